// ABOUTME: Client CLI commands
// ABOUTME: Human-friendly commands for managing clients
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

// AddClientCommand adds a new client.
func AddClientCommand(ctx context.Context, repo *db.Repository, args []string) error {
	fs := flag.NewFlagSet("add-client", flag.ExitOnError)
	name := fs.String("name", "", "Contact name (required)")
	email := fs.String("email", "", "Email address (required)")
	phone := fs.String("phone", "", "Phone number")
	company := fs.String("company", "", "Company name (required)")
	status := fs.String("status", string(models.StatusActive), "Status (active, inactive, prospect)")
	value := fs.Int64("value", 0, "Lifetime value in whole currency units")
	lastContact := fs.String("last-contact", "", "Last contact (YYYY-MM-DD or a short note)")
	_ = fs.Parse(args)

	in := models.ClientInput{
		Name:    strings.TrimSpace(*name),
		Email:   strings.TrimSpace(*email),
		Phone:   strings.TrimSpace(*phone),
		Company: strings.TrimSpace(*company),
		Value:   *value,
	}
	st, err := models.ParseClientStatus(*status)
	if err != nil {
		return err
	}
	in.Status = st
	in.LastContact = models.MarkerFor(*lastContact)

	if err := models.ValidateClientInput(in).Err(); err != nil {
		return err
	}

	client, err := repo.AddClient(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to add client: %w", err)
	}

	fmt.Fprintf(stdout, "✓ Client added: %s (ID: %s)\n", client.Name, client.ID)
	fmt.Fprintf(stdout, "  Company: %s\n", client.Company)
	fmt.Fprintf(stdout, "  Status: %s\n", client.Status)
	return nil
}

// ListClientsCommand lists clients, optionally filtered.
func ListClientsCommand(ctx context.Context, repo *db.Repository, args []string) error {
	fs := flag.NewFlagSet("list-clients", flag.ExitOnError)
	query := fs.String("query", "", "Filter by name, company or email")
	status := fs.String("status", "", "Filter by status")
	_ = fs.Parse(args)

	var wantStatus models.ClientStatus
	if *status != "" {
		st, err := models.ParseClientStatus(*status)
		if err != nil {
			return err
		}
		wantStatus = st
	}

	clients, err := repo.ListClients(ctx)
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}

	q := strings.ToLower(*query)
	var shown []models.Client
	for _, c := range clients {
		if wantStatus != "" && c.Status != wantStatus {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Name+" "+c.Company+" "+c.Email), q) {
			continue
		}
		shown = append(shown, c)
	}

	if len(shown) == 0 {
		fmt.Fprintln(stdout, "No clients found")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tCOMPANY\tEMAIL\tSTATUS\tVALUE\tLAST CONTACT\tID")
	_, _ = fmt.Fprintln(w, "----\t-------\t-----\t------\t-----\t------------\t--")
	for _, c := range shown {
		last := "-"
		if c.LastContact != nil {
			last = c.LastContact.String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Name, c.Company, orDash(c.Email), c.Status, viz.FormatMoney(c.Value), last, c.ID)
	}
	_ = w.Flush()

	fmt.Fprintf(stdout, "\n%d client(s)\n", len(shown))
	return nil
}

// ShowClientCommand prints one client and its deals.
func ShowClientCommand(ctx context.Context, repo *db.Repository, args []string) error {
	fs := flag.NewFlagSet("show-client", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: show-client <id|name>")
	}

	client, err := db.ResolveClient(ctx, repo, fs.Arg(0))
	if err != nil {
		return err
	}
	deals, err := repo.DealsForClient(ctx, client.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch deals: %w", err)
	}

	fmt.Fprintf(stdout, "%s (%s)\n", client.Name, client.Company)
	fmt.Fprintf(stdout, "  ID:           %s\n", client.ID)
	fmt.Fprintf(stdout, "  Email:        %s\n", orDash(client.Email))
	fmt.Fprintf(stdout, "  Phone:        %s\n", orDash(client.Phone))
	fmt.Fprintf(stdout, "  Status:       %s\n", client.Status)
	fmt.Fprintf(stdout, "  Value:        %s\n", viz.FormatMoney(client.Value))
	fmt.Fprintf(stdout, "  Created:      %s\n", client.CreatedAt)
	if client.LastContact != nil {
		fmt.Fprintf(stdout, "  Last contact: %s\n", client.LastContact)
	}

	if len(deals) == 0 {
		fmt.Fprintln(stdout, "\nNo deals")
		return nil
	}
	fmt.Fprintln(stdout, "\nDeals:")
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	for _, d := range deals {
		_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%d%%\t%s\n", d.Title, d.Stage.Label(), viz.FormatMoney(d.Value), d.Probability, d.ID)
	}
	return w.Flush()
}

// UpdateClientCommand merges the given flags into an existing client.
func UpdateClientCommand(ctx context.Context, repo *db.Repository, args []string) error {
	fs := flag.NewFlagSet("update-client", flag.ExitOnError)
	name := fs.String("name", "", "Contact name")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	company := fs.String("company", "", "Company name")
	status := fs.String("status", "", "Status (active, inactive, prospect)")
	value := fs.Int64("value", 0, "Lifetime value")
	lastContact := fs.String("last-contact", "", "Last contact (YYYY-MM-DD or a short note)")
	_ = fs.Parse(args)

	// First positional arg is the client id or name
	if fs.NArg() < 1 {
		return fmt.Errorf("client ID or name is required")
	}
	client, err := db.ResolveClient(ctx, repo, fs.Arg(0))
	if err != nil {
		return err
	}

	set := setFlags(fs)
	var patch models.ClientPatch
	if set["name"] {
		patch.Name = name
	}
	if set["email"] {
		patch.Email = email
	}
	if set["phone"] {
		patch.Phone = phone
	}
	if set["company"] {
		patch.Company = company
	}
	if set["value"] {
		patch.Value = value
	}
	if set["status"] {
		st, err := models.ParseClientStatus(*status)
		if err != nil {
			return err
		}
		patch.Status = &st
	}
	if set["last-contact"] {
		lc := models.ContactMarker(strings.TrimSpace(*lastContact))
		patch.LastContact = &lc
	}

	if patch.IsEmpty() {
		return fmt.Errorf("nothing to update: pass at least one field flag")
	}
	if err := models.ValidateClientPatch(patch).Err(); err != nil {
		return err
	}

	updated, err := repo.UpdateClient(ctx, client.ID, patch)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	if updated == nil {
		return fmt.Errorf("client not found: %s", client.ID)
	}

	fmt.Fprintf(stdout, "✓ Updated client: %s (ID: %s)\n", updated.Name, updated.ID)
	return nil
}

// DeleteClientCommand removes a client that has no deals.
func DeleteClientCommand(ctx context.Context, repo *db.Repository, args []string) error {
	fs := flag.NewFlagSet("delete-client", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: delete-client <id|name>")
	}
	client, err := db.ResolveClient(ctx, repo, fs.Arg(0))
	if err != nil {
		return err
	}

	removed, err := repo.RemoveClient(ctx, client.ID)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if !removed {
		return fmt.Errorf("client not found: %s", client.ID)
	}

	fmt.Fprintf(stdout, "✓ Deleted client: %s\n", client.Name)
	return nil
}
