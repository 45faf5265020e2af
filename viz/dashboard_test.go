// ABOUTME: Tests for dashboard statistics and pipeline graph rendering
// ABOUTME: Uses fixture data and hand-built collections
package viz

import (
	"context"
	"strings"
	"testing"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/kv"
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStatsTwoDeals(t *testing.T) {
	deals := []models.Deal{
		{ID: "a", Stage: models.StageClosed, Value: 100},
		{ID: "b", Stage: models.StageLead, Value: 50, Probability: 20},
	}
	stats := ComputeStats(nil, deals)

	assert.Equal(t, int64(100), stats.TotalRevenue)
	assert.Equal(t, 1, stats.ActiveDeals)
	assert.Equal(t, 50, stats.WinRate)
	assert.Equal(t, int64(10), stats.WeightedPipeline)
	assert.Equal(t, 1, stats.PipelineByStage[models.StageLead].Count)
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil, nil)
	assert.Zero(t, stats.WinRate)
	assert.Zero(t, stats.TotalRevenue)
	assert.Zero(t, stats.ActiveDeals)
}

func TestComputeStatsRoundsWinRate(t *testing.T) {
	deals := []models.Deal{
		{Stage: models.StageClosed}, {Stage: models.StageLead}, {Stage: models.StageProposal},
	}
	assert.Equal(t, 33, ComputeStats(nil, deals).WinRate)

	deals = append(deals, models.Deal{Stage: models.StageClosed}, models.Deal{Stage: models.StageClosed})
	assert.Equal(t, 60, ComputeStats(nil, deals).WinRate)
}

func TestGenerateDashboardStatsFromFixtures(t *testing.T) {
	ctx := context.Background()
	repo := db.NewRepository(kv.NewMemoryStore())
	require.NoError(t, repo.Initialize(ctx))

	stats, err := GenerateDashboardStats(ctx, repo)
	require.NoError(t, err)

	assert.Equal(t, int64(125000), stats.TotalRevenue)
	assert.Equal(t, 5, stats.ActiveDeals)
	assert.Equal(t, 6, stats.ActiveClients)
	assert.Equal(t, 17, stats.WinRate)
	assert.Equal(t, 9, stats.TotalClients)
	assert.Equal(t, 6, stats.TotalDeals)

	// Stats are recomputed on every call.
	_, err = repo.MoveDeal(ctx, "5", models.StageClosed)
	require.NoError(t, err)
	stats, err = GenerateDashboardStats(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, int64(192000), stats.TotalRevenue)
	assert.Equal(t, 33, stats.WinRate)
}

func TestRenderDashboard(t *testing.T) {
	stats := ComputeStats(nil, []models.Deal{{Stage: models.StageClosed, Value: 125000}})
	out := RenderDashboard("KionCRM", stats)

	assert.Contains(t, out, "KIONCRM DASHBOARD")
	assert.Contains(t, out, "$125,000")
	assert.Contains(t, out, "Closed Won")
	assert.Equal(t, 1, strings.Count(out, "██████████"))
	assert.Equal(t, 3, strings.Count(out, "░░░░░░░░░░"))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$0", FormatMoney(0))
	assert.Equal(t, "$999", FormatMoney(999))
	assert.Equal(t, "$45,000", FormatMoney(45000))
	assert.Equal(t, "$1,250,000", FormatMoney(1250000))
	assert.Equal(t, "-$1,000", FormatMoney(-1000))
}

func TestGeneratePipelineGraph(t *testing.T) {
	ctx := context.Background()
	repo := db.NewRepository(kv.NewMemoryStore())
	require.NoError(t, repo.Initialize(ctx))

	gen := NewGraphGenerator(repo)
	dot, err := gen.GeneratePipelineGraph(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, dot, "cluster_closed")
	assert.Contains(t, dot, "client_6")

	dot, err = gen.GeneratePipelineGraph(ctx, "3")
	require.NoError(t, err)
	assert.Contains(t, dot, "deal_3")
	assert.NotContains(t, dot, "deal_6")

	_, err = gen.GeneratePipelineGraph(ctx, "missing")
	assert.Error(t, err)
}
