// ABOUTME: MCP resource handlers for exposing CRM data
// ABOUTME: Provides read-only access to clients, deals and the pipeline via crm:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/LautaroSnchz/kion-crm/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ResourceHandlers struct {
	repo *db.Repository
}

func NewResourceHandlers(repo *db.Repository) *ResourceHandlers {
	return &ResourceHandlers{repo: repo}
}

// Resources lists the fixed URIs served by ReadResource.
func (h *ResourceHandlers) Resources() []*mcp.Resource {
	return []*mcp.Resource{
		{URI: "crm://clients", Name: "clients", Description: "All clients", MIMEType: "application/json"},
		{URI: "crm://deals", Name: "deals", Description: "All deals", MIMEType: "application/json"},
		{URI: "crm://pipeline", Name: "pipeline", Description: "Deals grouped by stage with dashboard figures", MIMEType: "application/json"},
	}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "crm://") {
		return nil, fmt.Errorf("invalid URI scheme: expected crm://")
	}

	parts := strings.Split(strings.TrimPrefix(uri, "crm://"), "/")

	switch parts[0] {
	case "clients":
		if len(parts) == 1 {
			return h.readAllClients(ctx, uri)
		}
		return h.readClient(ctx, uri, parts[1])

	case "deals":
		if len(parts) == 1 {
			return h.readAllDeals(ctx, uri)
		}
		return h.readDeal(ctx, uri, parts[1])

	case "pipeline":
		return h.readPipeline(ctx, uri)

	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}

func (h *ResourceHandlers) readAllClients(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	clients, err := h.repo.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clients: %w", err)
	}
	return jsonResult(uri, clients)
}

func (h *ResourceHandlers) readClient(ctx context.Context, uri, id string) (*mcp.ReadResourceResult, error) {
	client, err := h.repo.GetClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}
	if client == nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	// Include the client's deals
	deals, err := h.repo.DealsForClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch client deals: %w", err)
	}

	return jsonResult(uri, struct {
		models.Client
		Deals []models.Deal `json:"deals"`
	}{Client: *client, Deals: deals})
}

func (h *ResourceHandlers) readAllDeals(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	deals, err := h.repo.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	return jsonResult(uri, deals)
}

func (h *ResourceHandlers) readDeal(ctx context.Context, uri, id string) (*mcp.ReadResourceResult, error) {
	deal, err := h.repo.GetDeal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deal: %w", err)
	}
	if deal == nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	return jsonResult(uri, deal)
}

func (h *ResourceHandlers) readPipeline(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	clients, err := h.repo.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clients: %w", err)
	}
	deals, err := h.repo.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}

	type column struct {
		Stage string        `json:"stage"`
		Label string        `json:"label"`
		Deals []models.Deal `json:"deals"`
	}
	columns := make([]column, 0, len(models.Stages))
	for _, st := range models.Stages {
		col := column{Stage: string(st), Label: st.Label(), Deals: []models.Deal{}}
		for _, d := range deals {
			if d.Stage == st {
				col.Deals = append(col.Deals, d)
			}
		}
		columns = append(columns, col)
	}

	return jsonResult(uri, struct {
		Stats   DashboardStatsOutput `json:"stats"`
		Columns []column             `json:"columns"`
	}{Stats: statsToOutput(viz.ComputeStats(clients, deals)), Columns: columns})
}
