// ABOUTME: Tests for the MCP tool, resource and prompt handlers
// ABOUTME: Runs against a seeded in-memory repository
package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/LautaroSnchz/kion-crm/auth"
	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/kv"
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type denyGuard struct{}

func (denyGuard) RequireWriter(context.Context) (*auth.Session, error) {
	return nil, auth.ErrReadOnly
}

func setupTestRepo(t *testing.T) *db.Repository {
	t.Helper()
	now := time.Date(2026, 1, 22, 9, 0, 0, 0, time.UTC)
	repo := db.NewRepository(kv.NewMemoryStore(), db.WithClock(func() time.Time { return now }))
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func TestListClientsFilters(t *testing.T) {
	ctx := context.Background()
	h := NewClientHandlers(setupTestRepo(t), nil)

	_, all, err := h.ListClients(ctx, nil, ListClientsInput{})
	require.NoError(t, err)
	assert.Equal(t, 9, all.Count)

	_, byQuery, err := h.ListClients(ctx, nil, ListClientsInput{Query: "stark"})
	require.NoError(t, err)
	require.Equal(t, 1, byQuery.Count)
	assert.Equal(t, "Stark Industries", byQuery.Clients[0].Name)

	_, _, err = h.ListClients(ctx, nil, ListClientsInput{Status: "vip"})
	assert.Error(t, err)
}

func TestGetClientIncludesDeals(t *testing.T) {
	h := NewClientHandlers(setupTestRepo(t), nil)

	_, out, err := h.GetClient(context.Background(), nil, GetClientInput{Client: "Acme SA"})
	require.NoError(t, err)
	assert.Equal(t, "1", out.ID)
	require.Len(t, out.Deals, 1)
	assert.Equal(t, "Acme SA", out.Deals[0].ClientName)
}

func TestAddClientValidates(t *testing.T) {
	ctx := context.Background()
	h := NewClientHandlers(setupTestRepo(t), nil)

	_, _, err := h.AddClient(ctx, nil, AddClientInput{Name: "Acme", Email: "not-an-email", Company: "AcmeCo"})
	require.Error(t, err)
	var fe models.FieldErrors
	assert.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "email")

	_, out, err := h.AddClient(ctx, nil, AddClientInput{Name: "Acme", Email: "a@acme.com", Company: "AcmeCo", Status: "prospect"})
	require.NoError(t, err)
	assert.Equal(t, "prospect", out.Status)
	assert.Equal(t, "2026-01-22", out.CreatedAt)
}

func TestUpdateClientPartial(t *testing.T) {
	ctx := context.Background()
	h := NewClientHandlers(setupTestRepo(t), nil)

	phone := "555-0100"
	_, out, err := h.UpdateClient(ctx, nil, UpdateClientInput{Client: "2", Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "555-0100", out.Phone)
	assert.Equal(t, "Initech", out.Name)

	_, _, err = h.UpdateClient(ctx, nil, UpdateClientInput{Client: "2"})
	assert.Error(t, err)
}

func TestDeleteClientInUse(t *testing.T) {
	ctx := context.Background()
	h := NewClientHandlers(setupTestRepo(t), nil)

	_, _, err := h.DeleteClient(ctx, nil, DeleteClientInput{Client: "1"})
	assert.ErrorIs(t, err, db.ErrClientInUse)

	_, out, err := h.DeleteClient(ctx, nil, DeleteClientInput{Client: "Weyland-Yutani"})
	require.NoError(t, err)
	assert.True(t, out.Deleted)
}

func TestWritesRespectGuard(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	clients := NewClientHandlers(repo, denyGuard{})
	deals := NewDealHandlers(repo, denyGuard{})

	_, _, err := clients.AddClient(ctx, nil, AddClientInput{Name: "Acme", Email: "a@acme.com", Company: "AcmeCo"})
	assert.ErrorIs(t, err, auth.ErrReadOnly)
	_, _, err = deals.MoveDeal(ctx, nil, MoveDealInput{ID: "1", Stage: "closed"})
	assert.ErrorIs(t, err, auth.ErrReadOnly)

	// Reads stay open.
	_, out, err := deals.ListDeals(ctx, nil, ListDealsInput{})
	require.NoError(t, err)
	assert.Equal(t, 6, out.Count)
}

func TestCreateDeal(t *testing.T) {
	ctx := context.Background()
	h := NewDealHandlers(setupTestRepo(t), nil)

	_, out, err := h.CreateDeal(ctx, nil, CreateDealInput{
		Title:             "Cloud migration",
		Client:            "initech",
		Value:             5000,
		Probability:       30,
		ExpectedCloseDate: "2026-05-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "2", out.ClientID)
	assert.Equal(t, "Initech", out.ClientName)
	assert.Equal(t, "lead", out.Stage)
	assert.Equal(t, "Lead", out.StageLabel)

	_, _, err = h.CreateDeal(ctx, nil, CreateDealInput{Title: "Orphan", Client: "Initeck", Value: 1, ExpectedCloseDate: "2026-05-01"})
	require.ErrorIs(t, err, db.ErrClientNotFound)
	assert.Contains(t, err.Error(), "did you mean Initech?")

	_, _, err = h.CreateDeal(ctx, nil, CreateDealInput{Title: "Free", Client: "2", Value: 0, ExpectedCloseDate: "2026-05-01"})
	assert.Error(t, err)
}

func TestListDealsByStageAndClient(t *testing.T) {
	ctx := context.Background()
	h := NewDealHandlers(setupTestRepo(t), nil)

	_, leads, err := h.ListDeals(ctx, nil, ListDealsInput{Stage: "Lead"})
	require.NoError(t, err)
	assert.Equal(t, 2, leads.Count)

	_, acme, err := h.ListDeals(ctx, nil, ListDealsInput{Client: "1"})
	require.NoError(t, err)
	assert.Equal(t, 1, acme.Count)

	_, _, err = h.ListDeals(ctx, nil, ListDealsInput{Stage: "won"})
	assert.Error(t, err)
}

func TestMoveAndDeleteDeal(t *testing.T) {
	ctx := context.Background()
	h := NewDealHandlers(setupTestRepo(t), nil)

	_, moved, err := h.MoveDeal(ctx, nil, MoveDealInput{ID: "5", Stage: "closed"})
	require.NoError(t, err)
	assert.Equal(t, "closed", moved.Stage)

	_, _, err = h.MoveDeal(ctx, nil, MoveDealInput{ID: "missing", Stage: "closed"})
	assert.Error(t, err)

	_, del, err := h.DeleteDeal(ctx, nil, DeleteDealInput{ID: "5"})
	require.NoError(t, err)
	assert.True(t, del.Deleted)

	_, del, err = h.DeleteDeal(ctx, nil, DeleteDealInput{ID: "5"})
	require.NoError(t, err)
	assert.False(t, del.Deleted)
}

func TestDashboardStats(t *testing.T) {
	h := NewDashboardHandlers(setupTestRepo(t), nil)

	_, out, err := h.DashboardStats(context.Background(), nil, DashboardStatsInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(125000), out.TotalRevenue)
	assert.Equal(t, 5, out.ActiveDeals)
	assert.Equal(t, 6, out.ActiveClients)
	assert.Equal(t, 17, out.WinRate)
	require.Len(t, out.Pipeline, 4)
	assert.Equal(t, "Lead", out.Pipeline[0].Label)
	assert.Equal(t, 2, out.Pipeline[0].Count)
}

func TestResetRequiresConfirm(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	h := NewDashboardHandlers(repo, nil)

	_, err := repo.RemoveDeal(ctx, "1")
	require.NoError(t, err)

	_, _, err = h.ResetCRM(ctx, nil, ResetInput{})
	assert.Error(t, err)

	_, out, err := h.ResetCRM(ctx, nil, ResetInput{Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, ResetOutput{Clients: 9, Deals: 6}, out)
}

func readResource(t *testing.T, h *ResourceHandlers, uri string) (*mcp.ReadResourceResult, error) {
	t.Helper()
	return h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
}

func TestReadResources(t *testing.T) {
	h := NewResourceHandlers(setupTestRepo(t))

	res, err := readResource(t, h, "crm://clients")
	require.NoError(t, err)
	var clients []models.Client
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &clients))
	assert.Len(t, clients, 9)

	res, err = readResource(t, h, "crm://clients/1")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, `"deals"`)

	res, err = readResource(t, h, "crm://pipeline")
	require.NoError(t, err)
	var pipeline struct {
		Columns []struct {
			Stage string        `json:"stage"`
			Deals []models.Deal `json:"deals"`
		} `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &pipeline))
	require.Len(t, pipeline.Columns, 4)
	assert.Len(t, pipeline.Columns[3].Deals, 1)

	_, err = readResource(t, h, "crm://deals/nope")
	assert.Error(t, err)
	_, err = readResource(t, h, "http://clients")
	assert.Error(t, err)
}

func TestPrompts(t *testing.T) {
	ctx := context.Background()
	h := NewPromptHandlers(setupTestRepo(t))
	assert.Len(t, h.Prompts(), 3)

	res, err := h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{
		Name:      "client-summary",
		Arguments: map[string]string{"client": "Acme SA"},
	}})
	require.NoError(t, err)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Name: Acme SA")

	res, err = h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "deal-analysis"}})
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.(*mcp.TextContent).Text, "Win rate: 17%")

	_, err = h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "nope"}})
	assert.Error(t, err)
}
