// ABOUTME: Dashboard statistics derived from the client and deal collections
// ABOUTME: Recomputed from a full scan on every call, plus an ASCII renderer
package viz

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/LautaroSnchz/kion-crm/models"
)

// Source is the read side of the repository.
type Source interface {
	ListClients(ctx context.Context) ([]models.Client, error)
	ListDeals(ctx context.Context) ([]models.Deal, error)
}

type DashboardStats struct {
	// Headline figures
	TotalRevenue  int64 `json:"total_revenue"`
	ActiveDeals   int   `json:"active_deals"`
	ActiveClients int   `json:"active_clients"`
	WinRate       int   `json:"win_rate"`

	// Pipeline overview
	PipelineByStage  map[models.Stage]PipelineStageStats `json:"pipeline_by_stage"`
	WeightedPipeline int64                               `json:"weighted_pipeline"`

	TotalClients int `json:"total_clients"`
	TotalDeals   int `json:"total_deals"`
}

type PipelineStageStats struct {
	Stage models.Stage `json:"stage"`
	Count int          `json:"count"`
	Value int64        `json:"value"`
}

func GenerateDashboardStats(ctx context.Context, src Source) (*DashboardStats, error) {
	clients, err := src.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clients: %w", err)
	}
	deals, err := src.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	return ComputeStats(clients, deals), nil
}

// ComputeStats derives the dashboard figures. Win rate is the share of all
// deals that are closed, rounded to a whole percent.
func ComputeStats(clients []models.Client, deals []models.Deal) *DashboardStats {
	stats := &DashboardStats{
		PipelineByStage: make(map[models.Stage]PipelineStageStats),
		TotalClients:    len(clients),
		TotalDeals:      len(deals),
	}

	closed := 0
	for _, d := range deals {
		ps := stats.PipelineByStage[d.Stage]
		ps.Stage = d.Stage
		ps.Count++
		ps.Value += d.Value
		stats.PipelineByStage[d.Stage] = ps

		if d.Stage == models.StageClosed {
			closed++
			stats.TotalRevenue += d.Value
			continue
		}
		stats.ActiveDeals++
		stats.WeightedPipeline += d.Value * int64(d.Probability) / 100
	}

	for _, c := range clients {
		if c.Status == models.StatusActive {
			stats.ActiveClients++
		}
	}

	if len(deals) > 0 {
		stats.WinRate = int(math.Round(float64(closed) / float64(len(deals)) * 100))
	}
	return stats
}

// FormatMoney renders whole currency units with thousands separators.
func FormatMoney(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	var out strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(r)
	}
	return sign + "$" + out.String()
}

func RenderDashboard(appName string, stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString(fmt.Sprintf("  %s DASHBOARD\n", strings.ToUpper(appName)))
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("HEADLINES\n")
	out.WriteString(fmt.Sprintf("  💰 Revenue        %s\n", FormatMoney(stats.TotalRevenue)))
	out.WriteString(fmt.Sprintf("  💼 Active deals   %d\n", stats.ActiveDeals))
	out.WriteString(fmt.Sprintf("  👥 Active clients %d\n", stats.ActiveClients))
	out.WriteString(fmt.Sprintf("  🏆 Win rate       %d%%\n\n", stats.WinRate))

	out.WriteString("PIPELINE OVERVIEW\n")
	renderPipeline(&out, stats.PipelineByStage)
	out.WriteString(fmt.Sprintf("  weighted open pipeline: %s\n\n", FormatMoney(stats.WeightedPipeline)))

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  %d clients  %d deals\n", stats.TotalClients, stats.TotalDeals))

	return out.String()
}

func renderPipeline(out *strings.Builder, pipeline map[models.Stage]PipelineStageStats) {
	maxCount := 0
	for _, ps := range pipeline {
		if ps.Count > maxCount {
			maxCount = ps.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, stage := range models.Stages {
		ps := pipeline[stage]
		barLength := (ps.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-11s %s  %2d (%s)\n", stage.Label(), bar, ps.Count, FormatMoney(ps.Value)))
	}
}
