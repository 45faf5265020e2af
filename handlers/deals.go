// ABOUTME: Deal MCP tool handlers
// ABOUTME: Implements list_deals, get_deal, create_deal, update_deal, move_deal and delete_deal
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type DealHandlers struct {
	repo  *db.Repository
	guard Guard
}

func NewDealHandlers(repo *db.Repository, guard Guard) *DealHandlers {
	return &DealHandlers{repo: repo, guard: guard}
}

func (h *DealHandlers) clientNames(ctx context.Context) (map[string]string, error) {
	clients, err := h.repo.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clients: %w", err)
	}
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	return names, nil
}

type ListDealsInput struct {
	Stage  string `json:"stage,omitempty" jsonschema:"Filter by stage: lead, qualified, proposal, closed"`
	Client string `json:"client,omitempty" jsonschema:"Filter by client id or exact name"`
}

type ListDealsOutput struct {
	Deals      []DealOutput `json:"deals"`
	Count      int          `json:"count"`
	TotalValue int64        `json:"total_value"`
}

func (h *DealHandlers) ListDeals(ctx context.Context, _ *mcp.CallToolRequest, input ListDealsInput) (*mcp.CallToolResult, ListDealsOutput, error) {
	var (
		deals []models.Deal
		err   error
	)
	switch {
	case input.Client != "":
		client, rerr := db.ResolveClient(ctx, h.repo, input.Client)
		if rerr != nil {
			return nil, ListDealsOutput{}, rerr
		}
		deals, err = h.repo.DealsForClient(ctx, client.ID)
	case input.Stage != "":
		stage, perr := models.ParseStage(input.Stage)
		if perr != nil {
			return nil, ListDealsOutput{}, perr
		}
		deals, err = h.repo.DealsByStage(ctx, stage)
	default:
		deals, err = h.repo.ListDeals(ctx)
	}
	if err != nil {
		return nil, ListDealsOutput{}, fmt.Errorf("failed to list deals: %w", err)
	}

	// A client filter combined with a stage filter narrows further.
	if input.Client != "" && input.Stage != "" {
		stage, perr := models.ParseStage(input.Stage)
		if perr != nil {
			return nil, ListDealsOutput{}, perr
		}
		var kept []models.Deal
		for _, d := range deals {
			if d.Stage == stage {
				kept = append(kept, d)
			}
		}
		deals = kept
	}

	names, err := h.clientNames(ctx)
	if err != nil {
		return nil, ListDealsOutput{}, err
	}

	out := ListDealsOutput{Deals: []DealOutput{}}
	for i := range deals {
		out.Deals = append(out.Deals, dealToOutput(&deals[i], names[deals[i].ClientID]))
		out.TotalValue += deals[i].Value
	}
	out.Count = len(out.Deals)
	return nil, out, nil
}

type GetDealInput struct {
	ID string `json:"id" jsonschema:"Deal id (required)"`
}

func (h *DealHandlers) GetDeal(ctx context.Context, _ *mcp.CallToolRequest, input GetDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if input.ID == "" {
		return nil, DealOutput{}, fmt.Errorf("id is required")
	}
	deal, err := h.repo.GetDeal(ctx, input.ID)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to fetch deal: %w", err)
	}
	if deal == nil {
		return nil, DealOutput{}, fmt.Errorf("deal not found: %s", input.ID)
	}
	client, err := h.repo.GetClient(ctx, deal.ClientID)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to fetch client: %w", err)
	}
	var name string
	if client != nil {
		name = client.Name
	}
	return nil, dealToOutput(deal, name), nil
}

type CreateDealInput struct {
	Title             string `json:"title" jsonschema:"Deal title (required)"`
	Client            string `json:"client" jsonschema:"Client id or exact name (required, must exist)"`
	Value             int64  `json:"value" jsonschema:"Deal value in whole currency units, greater than 0 (required)"`
	Stage             string `json:"stage,omitempty" jsonschema:"Deal stage: lead, qualified, proposal, closed (default lead)"`
	Probability       int    `json:"probability,omitempty" jsonschema:"Win probability 0-100"`
	ExpectedCloseDate string `json:"expected_close_date" jsonschema:"Expected close date YYYY-MM-DD (required)"`
	Owner             string `json:"owner,omitempty" jsonschema:"Sales owner"`
	Notes             string `json:"notes,omitempty" jsonschema:"Free-form notes (markdown)"`
}

func (h *DealHandlers) CreateDeal(ctx context.Context, _ *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if err := checkWrite(ctx, h.guard); err != nil {
		return nil, DealOutput{}, err
	}

	in := models.DealInput{
		Title:       strings.TrimSpace(input.Title),
		Value:       input.Value,
		Probability: input.Probability,
		Owner:       strings.TrimSpace(input.Owner),
		Notes:       input.Notes,
	}
	if input.Stage != "" {
		stage, err := models.ParseStage(input.Stage)
		if err != nil {
			return nil, DealOutput{}, err
		}
		in.Stage = stage
	}
	closeDate, err := optionalDate("expected_close_date", input.ExpectedCloseDate)
	if err != nil {
		return nil, DealOutput{}, err
	}
	if closeDate != nil {
		in.ExpectedCloseDate = *closeDate
	}

	var client *models.Client
	if strings.TrimSpace(input.Client) != "" {
		client, err = db.ResolveClient(ctx, h.repo, input.Client)
		if err != nil {
			return nil, DealOutput{}, err
		}
		in.ClientID = client.ID
	}

	if err := models.ValidateDealInput(in).Err(); err != nil {
		return nil, DealOutput{}, err
	}

	deal, err := h.repo.AddDeal(ctx, in)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to create deal: %w", err)
	}
	return nil, dealToOutput(deal, client.Name), nil
}

type UpdateDealInput struct {
	ID                string  `json:"id" jsonschema:"Deal id (required)"`
	Title             *string `json:"title,omitempty" jsonschema:"New title"`
	Client            *string `json:"client,omitempty" jsonschema:"New client id or exact name"`
	Value             *int64  `json:"value,omitempty" jsonschema:"New value"`
	Stage             *string `json:"stage,omitempty" jsonschema:"New stage: lead, qualified, proposal, closed"`
	Probability       *int    `json:"probability,omitempty" jsonschema:"New win probability 0-100"`
	ExpectedCloseDate *string `json:"expected_close_date,omitempty" jsonschema:"New expected close date YYYY-MM-DD"`
	Owner             *string `json:"owner,omitempty" jsonschema:"New owner"`
	Notes             *string `json:"notes,omitempty" jsonschema:"Replacement notes"`
}

func (h *DealHandlers) UpdateDeal(ctx context.Context, _ *mcp.CallToolRequest, input UpdateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if err := checkWrite(ctx, h.guard); err != nil {
		return nil, DealOutput{}, err
	}
	if input.ID == "" {
		return nil, DealOutput{}, fmt.Errorf("id is required")
	}

	patch := models.DealPatch{
		Title:       input.Title,
		Value:       input.Value,
		Probability: input.Probability,
		Owner:       input.Owner,
		Notes:       input.Notes,
	}
	if input.Stage != nil {
		stage, err := models.ParseStage(*input.Stage)
		if err != nil {
			return nil, DealOutput{}, err
		}
		patch.Stage = &stage
	}
	if input.ExpectedCloseDate != nil {
		d, err := models.ParseDate(*input.ExpectedCloseDate)
		if err != nil {
			return nil, DealOutput{}, fmt.Errorf("invalid expected_close_date: %w", err)
		}
		patch.ExpectedCloseDate = &d
	}
	if input.Client != nil {
		client, err := db.ResolveClient(ctx, h.repo, *input.Client)
		if err != nil {
			return nil, DealOutput{}, err
		}
		patch.ClientID = &client.ID
	}
	if patch.IsEmpty() {
		return nil, DealOutput{}, fmt.Errorf("nothing to update")
	}
	if err := models.ValidateDealPatch(patch).Err(); err != nil {
		return nil, DealOutput{}, err
	}

	deal, err := h.repo.UpdateDeal(ctx, input.ID, patch)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to update deal: %w", err)
	}
	if deal == nil {
		return nil, DealOutput{}, fmt.Errorf("deal not found: %s", input.ID)
	}
	names, err := h.clientNames(ctx)
	if err != nil {
		return nil, DealOutput{}, err
	}
	return nil, dealToOutput(deal, names[deal.ClientID]), nil
}

type MoveDealInput struct {
	ID    string `json:"id" jsonschema:"Deal id (required)"`
	Stage string `json:"stage" jsonschema:"Target stage: lead, qualified, proposal, closed (required)"`
}

func (h *DealHandlers) MoveDeal(ctx context.Context, _ *mcp.CallToolRequest, input MoveDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if err := checkWrite(ctx, h.guard); err != nil {
		return nil, DealOutput{}, err
	}
	if input.ID == "" {
		return nil, DealOutput{}, fmt.Errorf("id is required")
	}
	stage, err := models.ParseStage(input.Stage)
	if err != nil {
		return nil, DealOutput{}, err
	}

	deal, err := h.repo.MoveDeal(ctx, input.ID, stage)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to move deal: %w", err)
	}
	if deal == nil {
		return nil, DealOutput{}, fmt.Errorf("deal not found: %s", input.ID)
	}
	names, err := h.clientNames(ctx)
	if err != nil {
		return nil, DealOutput{}, err
	}
	return nil, dealToOutput(deal, names[deal.ClientID]), nil
}

type DeleteDealInput struct {
	ID string `json:"id" jsonschema:"Deal id (required)"`
}

func (h *DealHandlers) DeleteDeal(ctx context.Context, _ *mcp.CallToolRequest, input DeleteDealInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if err := checkWrite(ctx, h.guard); err != nil {
		return nil, DeleteOutput{}, err
	}
	if input.ID == "" {
		return nil, DeleteOutput{}, fmt.Errorf("id is required")
	}
	removed, err := h.repo.RemoveDeal(ctx, input.ID)
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete deal: %w", err)
	}
	return nil, DeleteOutput{ID: input.ID, Deleted: removed}, nil
}
