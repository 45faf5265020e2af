// ABOUTME: MCP prompt handlers for reusable CRM workflow templates
// ABOUTME: Provides client-summary, deal-analysis and follow-up-suggestions prompts
package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/LautaroSnchz/kion-crm/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	repo *db.Repository
}

func NewPromptHandlers(repo *db.Repository) *PromptHandlers {
	return &PromptHandlers{repo: repo}
}

// Prompts lists the templates served by GetPrompt.
func (h *PromptHandlers) Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "client-summary",
			Description: "Summarize a client and their open deals",
			Arguments: []*mcp.PromptArgument{
				{Name: "client", Description: "Client id or exact name", Required: true},
			},
		},
		{Name: "deal-analysis", Description: "Analyze pipeline health by stage"},
		{Name: "follow-up-suggestions", Description: "Clients that have not been contacted recently"},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "client-summary":
		return h.getClientSummaryPrompt(ctx, request.Params.Arguments)
	case "deal-analysis":
		return h.getDealAnalysisPrompt(ctx)
	case "follow-up-suggestions":
		return h.getFollowUpSuggestionsPrompt(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}

func (h *PromptHandlers) getClientSummaryPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	ref, ok := args["client"]
	if !ok {
		return nil, fmt.Errorf("client is required")
	}
	client, err := db.ResolveClient(ctx, h.repo, ref)
	if err != nil {
		return nil, err
	}
	deals, err := h.repo.DealsForClient(ctx, client.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}

	var promptText strings.Builder
	promptText.WriteString("Please provide a comprehensive summary of this client:\n\n")
	promptText.WriteString(fmt.Sprintf("Name: %s\n", client.Name))
	promptText.WriteString(fmt.Sprintf("Company: %s\n", client.Company))
	promptText.WriteString(fmt.Sprintf("Email: %s\n", client.Email))
	if client.Phone != "" {
		promptText.WriteString(fmt.Sprintf("Phone: %s\n", client.Phone))
	}
	promptText.WriteString(fmt.Sprintf("Status: %s\n", client.Status))
	promptText.WriteString(fmt.Sprintf("Lifetime value: %s\n", viz.FormatMoney(client.Value)))
	if client.LastContact != nil {
		promptText.WriteString(fmt.Sprintf("Last contact: %s\n", client.LastContact))
	}

	if len(deals) > 0 {
		promptText.WriteString("\nDeals:\n")
		for _, d := range deals {
			promptText.WriteString(fmt.Sprintf("  - %s: %s, %s, %d%%, closes %s\n",
				d.Title, d.Stage.Label(), viz.FormatMoney(d.Value), d.Probability, d.ExpectedCloseDate))
		}
	}

	promptText.WriteString("\nPlease analyze this client and provide:")
	promptText.WriteString("\n1. A brief summary of the relationship")
	promptText.WriteString("\n2. Recommendations for next steps on each open deal")

	return userPrompt(fmt.Sprintf("Summary for client: %s", client.Name), promptText.String()), nil
}

func (h *PromptHandlers) getDealAnalysisPrompt(ctx context.Context) (*mcp.GetPromptResult, error) {
	stats, err := viz.GenerateDashboardStats(ctx, h.repo)
	if err != nil {
		return nil, err
	}

	var promptText strings.Builder
	promptText.WriteString("Please analyze the current deal pipeline:\n\n")
	promptText.WriteString(fmt.Sprintf("Total Deals: %d\n", stats.TotalDeals))
	promptText.WriteString(fmt.Sprintf("Closed revenue: %s\n", viz.FormatMoney(stats.TotalRevenue)))
	promptText.WriteString(fmt.Sprintf("Weighted open pipeline: %s\n", viz.FormatMoney(stats.WeightedPipeline)))
	promptText.WriteString(fmt.Sprintf("Win rate: %d%%\n\n", stats.WinRate))
	promptText.WriteString("Pipeline by Stage:\n")
	for _, st := range models.Stages {
		ps := stats.PipelineByStage[st]
		promptText.WriteString(fmt.Sprintf("  - %s: %d deals, %s\n", st.Label(), ps.Count, viz.FormatMoney(ps.Value)))
	}

	promptText.WriteString("\nPlease provide:")
	promptText.WriteString("\n1. Analysis of pipeline health and distribution")
	promptText.WriteString("\n2. Recommendations for deals that may need attention")
	promptText.WriteString("\n3. Suggestions for improving conversion rates")

	return userPrompt("Deal pipeline analysis", promptText.String()), nil
}

func (h *PromptHandlers) getFollowUpSuggestionsPrompt(ctx context.Context) (*mcp.GetPromptResult, error) {
	clients, err := h.repo.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clients: %w", err)
	}

	// Never-contacted clients first, then notes that are not dates, then
	// oldest dated contact first.
	rank := func(c models.Client) (int, models.Date) {
		if c.LastContact == nil {
			return 0, models.Date{}
		}
		d, ok := c.LastContact.Date()
		if !ok {
			return 1, models.Date{}
		}
		return 2, d
	}
	sort.SliceStable(clients, func(i, j int) bool {
		ri, di := rank(clients[i])
		rj, dj := rank(clients[j])
		if ri != rj {
			return ri < rj
		}
		return di.Before(dj.Time)
	})

	var promptText strings.Builder
	promptText.WriteString("These clients are ordered by how long ago we last spoke to them:\n\n")
	for _, c := range clients {
		if c.Status == models.StatusInactive {
			continue
		}
		last := "never"
		if c.LastContact != nil {
			last = c.LastContact.String()
		}
		promptText.WriteString(fmt.Sprintf("  - %s (%s, %s): last contact %s\n", c.Name, c.Company, c.Status, last))
	}

	promptText.WriteString("\nPlease suggest who to follow up with this week and a short opener for each.")

	return userPrompt("Follow-up suggestions", promptText.String()), nil
}
