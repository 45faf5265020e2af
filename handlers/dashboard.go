// ABOUTME: Dashboard, graph and maintenance MCP tool handlers
// ABOUTME: Implements dashboard_stats, pipeline_graph and reset_crm
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/LautaroSnchz/kion-crm/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type DashboardHandlers struct {
	repo  *db.Repository
	guard Guard
}

func NewDashboardHandlers(repo *db.Repository, guard Guard) *DashboardHandlers {
	return &DashboardHandlers{repo: repo, guard: guard}
}

type DashboardStatsInput struct{}

type StageOutput struct {
	Stage string `json:"stage"`
	Label string `json:"label"`
	Count int    `json:"count"`
	Value int64  `json:"value"`
}

type DashboardStatsOutput struct {
	TotalRevenue     int64         `json:"total_revenue"`
	ActiveDeals      int           `json:"active_deals"`
	ActiveClients    int           `json:"active_clients"`
	WinRate          int           `json:"win_rate"`
	WeightedPipeline int64         `json:"weighted_pipeline"`
	TotalClients     int           `json:"total_clients"`
	TotalDeals       int           `json:"total_deals"`
	Pipeline         []StageOutput `json:"pipeline"`
}

func statsToOutput(stats *viz.DashboardStats) DashboardStatsOutput {
	out := DashboardStatsOutput{
		TotalRevenue:     stats.TotalRevenue,
		ActiveDeals:      stats.ActiveDeals,
		ActiveClients:    stats.ActiveClients,
		WinRate:          stats.WinRate,
		WeightedPipeline: stats.WeightedPipeline,
		TotalClients:     stats.TotalClients,
		TotalDeals:       stats.TotalDeals,
	}
	for _, st := range models.Stages {
		ps := stats.PipelineByStage[st]
		out.Pipeline = append(out.Pipeline, StageOutput{Stage: string(st), Label: st.Label(), Count: ps.Count, Value: ps.Value})
	}
	return out
}

func (h *DashboardHandlers) DashboardStats(ctx context.Context, _ *mcp.CallToolRequest, _ DashboardStatsInput) (*mcp.CallToolResult, DashboardStatsOutput, error) {
	stats, err := viz.GenerateDashboardStats(ctx, h.repo)
	if err != nil {
		return nil, DashboardStatsOutput{}, err
	}
	return nil, statsToOutput(stats), nil
}

type PipelineGraphInput struct {
	Client string `json:"client,omitempty" jsonschema:"Limit the graph to one client (id or exact name)"`
}

type PipelineGraphOutput struct {
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *DashboardHandlers) PipelineGraph(ctx context.Context, _ *mcp.CallToolRequest, input PipelineGraphInput) (*mcp.CallToolResult, PipelineGraphOutput, error) {
	var clientID string
	if input.Client != "" {
		client, err := db.ResolveClient(ctx, h.repo, input.Client)
		if err != nil {
			return nil, PipelineGraphOutput{}, err
		}
		clientID = client.ID
	}

	dot, err := viz.NewGraphGenerator(h.repo).GeneratePipelineGraph(ctx, clientID)
	if err != nil {
		return nil, PipelineGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	return nil, PipelineGraphOutput{
		DOTSource: dot,
		NodeCount: strings.Count(dot, "label="),
		EdgeCount: strings.Count(dot, "->"),
	}, nil
}

type ResetInput struct {
	Confirm bool `json:"confirm" jsonschema:"Must be true: replaces all clients and deals with the sample data"`
}

type ResetOutput struct {
	Clients int `json:"clients"`
	Deals   int `json:"deals"`
}

func (h *DashboardHandlers) ResetCRM(ctx context.Context, _ *mcp.CallToolRequest, input ResetInput) (*mcp.CallToolResult, ResetOutput, error) {
	if err := checkWrite(ctx, h.guard); err != nil {
		return nil, ResetOutput{}, err
	}
	if !input.Confirm {
		return nil, ResetOutput{}, fmt.Errorf("confirm must be true to reset the CRM")
	}
	if err := h.repo.Reset(ctx); err != nil {
		return nil, ResetOutput{}, fmt.Errorf("failed to reset: %w", err)
	}
	clients, err := h.repo.ListClients(ctx)
	if err != nil {
		return nil, ResetOutput{}, err
	}
	deals, err := h.repo.ListDeals(ctx)
	if err != nil {
		return nil, ResetOutput{}, err
	}
	return nil, ResetOutput{Clients: len(clients), Deals: len(deals)}, nil
}
