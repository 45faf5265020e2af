// ABOUTME: Deal CLI commands
// ABOUTME: Human-friendly commands for managing deals and moving them through stages
package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/LautaroSnchz/kion-crm/viz"
)

// AddDealCommand adds a new deal.
func AddDealCommand(ctx context.Context, repo *db.Repository, args []string) error {
	fs := flag.NewFlagSet("add-deal", flag.ExitOnError)
	title := fs.String("title", "", "Deal title (required)")
	clientRef := fs.String("client", "", "Client id or name (required)")
	value := fs.Int64("value", 0, "Deal value in whole currency units (required)")
	stage := fs.String("stage", string(models.StageLead), "Stage (lead, qualified, proposal, closed)")
	probability := fs.Int("probability", 0, "Win probability 0-100")
	closeDate := fs.String("close", "", "Expected close date YYYY-MM-DD (required)")
	owner := fs.String("owner", "", "Sales owner")
	notes := fs.String("notes", "", "Notes (markdown)")
	_ = fs.Parse(args)

	in := models.DealInput{
		Title:       strings.TrimSpace(*title),
		Value:       *value,
		Probability: *probability,
		Owner:       strings.TrimSpace(*owner),
		Notes:       *notes,
	}
	st, err := models.ParseStage(*stage)
	if err != nil {
		return err
	}
	in.Stage = st
	if *closeDate != "" {
		d, err := parseDateFlag("close", *closeDate)
		if err != nil {
			return err
		}
		in.ExpectedCloseDate = d
	}

	var client *models.Client
	if strings.TrimSpace(*clientRef) != "" {
		client, err = db.ResolveClient(ctx, repo, *clientRef)
		if err != nil {
			return err
		}
		in.ClientID = client.ID
	}

	if err := models.ValidateDealInput(in).Err(); err != nil {
		return err
	}

	deal, err := repo.AddDeal(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}

	fmt.Fprintf(stdout, "✓ Deal created: %s (ID: %s)\n", deal.Title, deal.ID)
	fmt.Fprintf(stdout, "  Client: %s\n", client.Name)
	fmt.Fprintf(stdout, "  Value: %s\n", viz.FormatMoney(deal.Value))
	fmt.Fprintf(stdout, "  Stage: %s\n", deal.Stage.Label())
	return nil
}

// ListDealsCommand lists deals, optionally by stage or client.
func ListDealsCommand(ctx context.Context, repo *db.Repository, args []string) error {
	fs := flag.NewFlagSet("list-deals", flag.ExitOnError)
	stage := fs.String("stage", "", "Filter by stage")
	clientRef := fs.String("client", "", "Filter by client id or name")
	_ = fs.Parse(args)

	var (
		deals []models.Deal
		err   error
	)
	if *clientRef != "" {
		client, rerr := db.ResolveClient(ctx, repo, *clientRef)
		if rerr != nil {
			return rerr
		}
		deals, err = repo.DealsForClient(ctx, client.ID)
	} else {
		deals, err = repo.ListDeals(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to find deals: %w", err)
	}

	if *stage != "" {
		st, err := models.ParseStage(*stage)
		if err != nil {
			return err
		}
		var kept []models.Deal
		for _, d := range deals {
			if d.Stage == st {
				kept = append(kept, d)
			}
		}
		deals = kept
	}

	if len(deals) == 0 {
		fmt.Fprintln(stdout, "No deals found")
		return nil
	}

	clients, err := repo.ListClients(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch clients: %w", err)
	}
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TITLE\tCLIENT\tVALUE\tSTAGE\tPROB\tCLOSE\tOWNER\tID")
	_, _ = fmt.Fprintln(w, "-----\t------\t-----\t-----\t----\t-----\t-----\t--")

	var total int64
	for _, d := range deals {
		total += d.Value
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\t%s\t%s\n",
			d.Title, orDash(names[d.ClientID]), viz.FormatMoney(d.Value), d.Stage.Label(),
			d.Probability, d.ExpectedCloseDate, orDash(d.Owner), d.ID)
	}
	_ = w.Flush()

	fmt.Fprintf(stdout, "\n%d deal(s), %s total\n", len(deals), viz.FormatMoney(total))
	return nil
}

// ShowDealCommand prints one deal with its notes rendered as markdown.
func ShowDealCommand(ctx context.Context, repo *db.Repository, dark bool, args []string) error {
	fs := flag.NewFlagSet("show-deal", flag.ExitOnError)
	raw := fs.Bool("raw", false, "Print notes without markdown rendering")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: show-deal <id>")
	}

	deal, err := repo.GetDeal(ctx, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to fetch deal: %w", err)
	}
	if deal == nil {
		return fmt.Errorf("deal not found: %s", fs.Arg(0))
	}
	client, err := repo.GetClient(ctx, deal.ClientID)
	if err != nil {
		return fmt.Errorf("failed to fetch client: %w", err)
	}
	clientName := deal.ClientID
	if client != nil {
		clientName = client.Name
	}

	fmt.Fprintf(stdout, "%s\n", deal.Title)
	fmt.Fprintf(stdout, "  ID:          %s\n", deal.ID)
	fmt.Fprintf(stdout, "  Client:      %s\n", clientName)
	fmt.Fprintf(stdout, "  Value:       %s\n", viz.FormatMoney(deal.Value))
	fmt.Fprintf(stdout, "  Stage:       %s\n", deal.Stage.Label())
	fmt.Fprintf(stdout, "  Probability: %d%%\n", deal.Probability)
	fmt.Fprintf(stdout, "  Close:       %s\n", deal.ExpectedCloseDate)
	fmt.Fprintf(stdout, "  Owner:       %s\n", orDash(deal.Owner))
	fmt.Fprintf(stdout, "  Created:     %s\n", deal.CreatedAt)

	if deal.Notes != "" {
		fmt.Fprintln(stdout, "\nNotes:")
		if *raw {
			fmt.Fprintln(stdout, deal.Notes)
		} else {
			fmt.Fprint(stdout, viz.RenderMarkdown(deal.Notes, dark, 80))
		}
	}
	return nil
}

// UpdateDealCommand merges the given flags into an existing deal.
func UpdateDealCommand(ctx context.Context, repo *db.Repository, args []string) error {
	fs := flag.NewFlagSet("update-deal", flag.ExitOnError)
	title := fs.String("title", "", "Deal title")
	clientRef := fs.String("client", "", "Client id or name")
	value := fs.Int64("value", 0, "Deal value")
	stage := fs.String("stage", "", "Stage")
	probability := fs.Int("probability", 0, "Win probability 0-100")
	closeDate := fs.String("close", "", "Expected close date YYYY-MM-DD")
	owner := fs.String("owner", "", "Sales owner")
	notes := fs.String("notes", "", "Replacement notes")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("deal ID is required")
	}
	dealID := fs.Arg(0)

	set := setFlags(fs)
	var patch models.DealPatch
	if set["title"] {
		patch.Title = title
	}
	if set["value"] {
		patch.Value = value
	}
	if set["probability"] {
		patch.Probability = probability
	}
	if set["owner"] {
		patch.Owner = owner
	}
	if set["notes"] {
		patch.Notes = notes
	}
	if set["stage"] {
		st, err := models.ParseStage(*stage)
		if err != nil {
			return err
		}
		patch.Stage = &st
	}
	if set["close"] {
		d, err := parseDateFlag("close", *closeDate)
		if err != nil {
			return err
		}
		patch.ExpectedCloseDate = &d
	}
	if set["client"] {
		client, err := db.ResolveClient(ctx, repo, *clientRef)
		if err != nil {
			return err
		}
		patch.ClientID = &client.ID
	}

	if patch.IsEmpty() {
		return fmt.Errorf("nothing to update: pass at least one field flag")
	}
	if err := models.ValidateDealPatch(patch).Err(); err != nil {
		return err
	}

	deal, err := repo.UpdateDeal(ctx, dealID, patch)
	if err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}
	if deal == nil {
		return fmt.Errorf("deal not found: %s", dealID)
	}

	fmt.Fprintf(stdout, "✓ Updated deal: %s (ID: %s)\n", deal.Title, deal.ID)
	return nil
}

// MoveDealCommand moves a deal to another stage.
func MoveDealCommand(ctx context.Context, repo *db.Repository, args []string) error {
	fs := flag.NewFlagSet("move-deal", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("usage: move-deal <id> <stage>")
	}
	st, err := models.ParseStage(fs.Arg(1))
	if err != nil {
		return err
	}

	deal, err := repo.MoveDeal(ctx, fs.Arg(0), st)
	if err != nil {
		return fmt.Errorf("failed to move deal: %w", err)
	}
	if deal == nil {
		return fmt.Errorf("deal not found: %s", fs.Arg(0))
	}

	fmt.Fprintf(stdout, "✓ Moved %s to %s\n", deal.Title, deal.Stage.Label())
	return nil
}

// DeleteDealCommand removes a deal.
func DeleteDealCommand(ctx context.Context, repo *db.Repository, args []string) error {
	fs := flag.NewFlagSet("delete-deal", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: delete-deal <id>")
	}

	removed, err := repo.RemoveDeal(ctx, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	if !removed {
		return fmt.Errorf("deal not found: %s", fs.Arg(0))
	}

	fmt.Fprintf(stdout, "✓ Deleted deal: %s\n", fs.Arg(0))
	return nil
}
