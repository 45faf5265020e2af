// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server for desktop assistant integration
package cli

import (
	"context"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// NewMCPServer registers every tool, resource and prompt against repo.
// guard authorizes the mutating tools; nil allows everything.
func NewMCPServer(repo *db.Repository, guard handlers.Guard, version string) *mcp.Server {
	clientHandlers := handlers.NewClientHandlers(repo, guard)
	dealHandlers := handlers.NewDealHandlers(repo, guard)
	dashboardHandlers := handlers.NewDashboardHandlers(repo, guard)
	resourceHandlers := handlers.NewResourceHandlers(repo)
	promptHandlers := handlers.NewPromptHandlers(repo)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "kion-crm",
		Version: version,
	}, nil)

	// Clients
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_clients",
		Description: "List clients, optionally filtered by text or status",
	}, clientHandlers.ListClients)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_client",
		Description: "Get one client by id or name, with their deals",
	}, clientHandlers.GetClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_client",
		Description: "Add a new client to the CRM",
	}, clientHandlers.AddClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_client",
		Description: "Update only the given fields of an existing client",
	}, clientHandlers.UpdateClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_client",
		Description: "Delete a client that has no deals",
	}, clientHandlers.DeleteClient)

	// Deals
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_deals",
		Description: "List deals, optionally filtered by stage or client",
	}, dealHandlers.ListDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_deal",
		Description: "Get one deal by id",
	}, dealHandlers.GetDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a new deal for an existing client",
	}, dealHandlers.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_deal",
		Description: "Update only the given fields of an existing deal",
	}, dealHandlers.UpdateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_deal",
		Description: "Move a deal to another pipeline stage",
	}, dealHandlers.MoveDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_deal",
		Description: "Delete a deal",
	}, dealHandlers.DeleteDeal)

	// Dashboard and maintenance
	mcp.AddTool(server, &mcp.Tool{
		Name:        "dashboard_stats",
		Description: "Revenue, active deals, active clients, win rate and pipeline by stage",
	}, dashboardHandlers.DashboardStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_graph",
		Description: "Graphviz DOT source of the deal pipeline",
	}, dashboardHandlers.PipelineGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reset_crm",
		Description: "Replace all clients and deals with the sample data",
	}, dashboardHandlers.ResetCRM)

	for _, res := range resourceHandlers.Resources() {
		server.AddResource(res, resourceHandlers.ReadResource)
	}
	for _, p := range promptHandlers.Prompts() {
		server.AddPrompt(p, promptHandlers.GetPrompt)
	}

	return server
}

// MCPCommand starts the MCP server on stdio
func MCPCommand(ctx context.Context, repo *db.Repository, guard handlers.Guard, version string, logger *zap.Logger) error {
	logger.Info("starting MCP server", zap.String("version", version))

	server := NewMCPServer(repo, guard, version)

	// Run server on stdio transport
	return server.Run(ctx, &mcp.StdioTransport{})
}
