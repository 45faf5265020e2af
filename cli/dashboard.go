// ABOUTME: Dashboard, graph and lifecycle CLI commands
// ABOUTME: Prints the stats view, renders the pipeline graph, seeds and resets data
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/viz"
)

// DashboardCommand prints the derived stats.
func DashboardCommand(ctx context.Context, repo *db.Repository, appName string, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	_ = fs.Parse(args)

	stats, err := viz.GenerateDashboardStats(ctx, repo)
	if err != nil {
		return fmt.Errorf("failed to generate dashboard stats: %w", err)
	}

	fmt.Fprint(stdout, viz.RenderDashboard(appName, stats))
	return nil
}

// VizPipelineCommand generates a deal pipeline graph.
func VizPipelineCommand(ctx context.Context, repo *db.Repository, args []string) error {
	fs := flag.NewFlagSet("viz pipeline", flag.ExitOnError)
	output := fs.String("output", "", "Output file (default: stdout)")
	clientRef := fs.String("client", "", "Only draw this client's deals (id or name)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var clientID string
	if *clientRef != "" {
		client, err := db.ResolveClient(ctx, repo, *clientRef)
		if err != nil {
			return err
		}
		clientID = client.ID
	}

	dot, err := viz.NewGraphGenerator(repo).GeneratePipelineGraph(ctx, clientID)
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(dot), 0644)
	}

	fmt.Fprintln(stdout, dot)
	return nil
}

// InitCommand seeds the sample data unless the store was already initialized.
func InitCommand(ctx context.Context, repo *db.Repository, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	_ = fs.Parse(args)

	initialized, err := repo.Initialized(ctx)
	if err != nil {
		return err
	}
	if initialized {
		fmt.Fprintln(stdout, "Already initialized, nothing to do")
		return nil
	}
	if err := repo.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	fmt.Fprintln(stdout, "✓ Sample data loaded")
	return nil
}

// ResetCommand replaces all clients and deals with the sample data.
func ResetCommand(ctx context.Context, repo *db.Repository, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	confirm := fs.Bool("confirm", false, "Confirm replacing all data")
	_ = fs.Parse(args)

	if !*confirm {
		fmt.Fprintln(stdout, "WARNING: This replaces ALL clients and deals with the sample data!")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "To confirm, run:")
		fmt.Fprintln(stdout, "  kion crm reset --confirm")
		return nil
	}

	if err := repo.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	fmt.Fprintln(stdout, "✓ CRM reset to sample data")
	return nil
}
