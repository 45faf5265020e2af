// ABOUTME: Client MCP tool handlers
// ABOUTME: Implements list_clients, get_client, add_client, update_client and delete_client
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ClientHandlers struct {
	repo  *db.Repository
	guard Guard
}

func NewClientHandlers(repo *db.Repository, guard Guard) *ClientHandlers {
	return &ClientHandlers{repo: repo, guard: guard}
}

type ListClientsInput struct {
	Query  string `json:"query,omitempty" jsonschema:"Case-insensitive filter on name, company or email"`
	Status string `json:"status,omitempty" jsonschema:"Filter by status: active, inactive, prospect"`
}

type ListClientsOutput struct {
	Clients []ClientOutput `json:"clients"`
	Count   int            `json:"count"`
}

func (h *ClientHandlers) ListClients(ctx context.Context, _ *mcp.CallToolRequest, input ListClientsInput) (*mcp.CallToolResult, ListClientsOutput, error) {
	var status models.ClientStatus
	if input.Status != "" {
		var err error
		status, err = models.ParseClientStatus(input.Status)
		if err != nil {
			return nil, ListClientsOutput{}, err
		}
	}

	clients, err := h.repo.ListClients(ctx)
	if err != nil {
		return nil, ListClientsOutput{}, fmt.Errorf("failed to list clients: %w", err)
	}

	query := strings.ToLower(input.Query)
	out := ListClientsOutput{Clients: []ClientOutput{}}
	for i := range clients {
		c := &clients[i]
		if status != "" && c.Status != status {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(c.Name+" "+c.Company+" "+c.Email), query) {
			continue
		}
		out.Clients = append(out.Clients, clientToOutput(c))
	}
	out.Count = len(out.Clients)
	return nil, out, nil
}

type GetClientInput struct {
	Client string `json:"client" jsonschema:"Client id or exact name (required)"`
}

type ClientDetailOutput struct {
	ClientOutput
	Deals []DealOutput `json:"deals"`
}

func (h *ClientHandlers) GetClient(ctx context.Context, _ *mcp.CallToolRequest, input GetClientInput) (*mcp.CallToolResult, ClientDetailOutput, error) {
	client, err := db.ResolveClient(ctx, h.repo, input.Client)
	if err != nil {
		return nil, ClientDetailOutput{}, err
	}

	deals, err := h.repo.DealsForClient(ctx, client.ID)
	if err != nil {
		return nil, ClientDetailOutput{}, fmt.Errorf("failed to fetch deals: %w", err)
	}

	out := ClientDetailOutput{ClientOutput: clientToOutput(client), Deals: []DealOutput{}}
	for i := range deals {
		out.Deals = append(out.Deals, dealToOutput(&deals[i], client.Name))
	}
	return nil, out, nil
}

type AddClientInput struct {
	Name        string `json:"name" jsonschema:"Contact name (required)"`
	Email       string `json:"email" jsonschema:"Email address (required)"`
	Phone       string `json:"phone,omitempty" jsonschema:"Phone number"`
	Company     string `json:"company" jsonschema:"Company name (required)"`
	Status      string `json:"status,omitempty" jsonschema:"Status: active, inactive, prospect (default active)"`
	Value       int64  `json:"value,omitempty" jsonschema:"Lifetime value in whole currency units"`
	LastContact string `json:"last_contact,omitempty" jsonschema:"Last contact, a YYYY-MM-DD date or a short note"`
}

func (h *ClientHandlers) AddClient(ctx context.Context, _ *mcp.CallToolRequest, input AddClientInput) (*mcp.CallToolResult, ClientOutput, error) {
	if err := checkWrite(ctx, h.guard); err != nil {
		return nil, ClientOutput{}, err
	}

	in := models.ClientInput{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.TrimSpace(input.Email),
		Phone:   strings.TrimSpace(input.Phone),
		Company: strings.TrimSpace(input.Company),
		Value:   input.Value,
	}
	if input.Status != "" {
		status, err := models.ParseClientStatus(input.Status)
		if err != nil {
			return nil, ClientOutput{}, err
		}
		in.Status = status
	}
	in.LastContact = models.MarkerFor(input.LastContact)

	if err := models.ValidateClientInput(in).Err(); err != nil {
		return nil, ClientOutput{}, err
	}

	client, err := h.repo.AddClient(ctx, in)
	if err != nil {
		return nil, ClientOutput{}, fmt.Errorf("failed to add client: %w", err)
	}
	return nil, clientToOutput(client), nil
}

type UpdateClientInput struct {
	Client      string  `json:"client" jsonschema:"Client id or exact name (required)"`
	Name        *string `json:"name,omitempty" jsonschema:"New name"`
	Email       *string `json:"email,omitempty" jsonschema:"New email"`
	Phone       *string `json:"phone,omitempty" jsonschema:"New phone"`
	Company     *string `json:"company,omitempty" jsonschema:"New company"`
	Status      *string `json:"status,omitempty" jsonschema:"New status: active, inactive, prospect"`
	Value       *int64  `json:"value,omitempty" jsonschema:"New lifetime value"`
	LastContact *string `json:"last_contact,omitempty" jsonschema:"New last contact, a date or a short note"`
}

func (h *ClientHandlers) UpdateClient(ctx context.Context, _ *mcp.CallToolRequest, input UpdateClientInput) (*mcp.CallToolResult, ClientOutput, error) {
	if err := checkWrite(ctx, h.guard); err != nil {
		return nil, ClientOutput{}, err
	}

	client, err := db.ResolveClient(ctx, h.repo, input.Client)
	if err != nil {
		return nil, ClientOutput{}, err
	}

	patch := models.ClientPatch{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Company: input.Company,
		Value:   input.Value,
	}
	if input.Status != nil {
		status, err := models.ParseClientStatus(*input.Status)
		if err != nil {
			return nil, ClientOutput{}, err
		}
		patch.Status = &status
	}
	if input.LastContact != nil {
		lc := models.ContactMarker(strings.TrimSpace(*input.LastContact))
		patch.LastContact = &lc
	}
	if patch.IsEmpty() {
		return nil, ClientOutput{}, fmt.Errorf("nothing to update")
	}
	if err := models.ValidateClientPatch(patch).Err(); err != nil {
		return nil, ClientOutput{}, err
	}

	updated, err := h.repo.UpdateClient(ctx, client.ID, patch)
	if err != nil {
		return nil, ClientOutput{}, fmt.Errorf("failed to update client: %w", err)
	}
	if updated == nil {
		return nil, ClientOutput{}, fmt.Errorf("client not found: %s", client.ID)
	}
	return nil, clientToOutput(updated), nil
}

type DeleteClientInput struct {
	Client string `json:"client" jsonschema:"Client id or exact name (required)"`
}

func (h *ClientHandlers) DeleteClient(ctx context.Context, _ *mcp.CallToolRequest, input DeleteClientInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if err := checkWrite(ctx, h.guard); err != nil {
		return nil, DeleteOutput{}, err
	}

	client, err := db.ResolveClient(ctx, h.repo, input.Client)
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	removed, err := h.repo.RemoveClient(ctx, client.ID)
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete client: %w", err)
	}
	return nil, DeleteOutput{ID: client.ID, Deleted: removed}, nil
}
