// ABOUTME: CLI commands for the storage backend
// ABOUTME: Status, remote sync for replicated backends and a full wipe
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/kv"
)

// StorageInfo describes where the repository lives.
type StorageInfo struct {
	Backend string
	Path    string
}

// StorageStatusCommand shows the backend, its keys and, for charm, the account.
func StorageStatusCommand(ctx context.Context, repo *db.Repository, info StorageInfo, args []string) error {
	fs := flag.NewFlagSet("storage status", flag.ExitOnError)
	_ = fs.Parse(args)

	fmt.Fprintln(stdout, "Storage Status")
	fmt.Fprintln(stdout, "──────────────")
	fmt.Fprintf(stdout, "Backend:   %s\n", info.Backend)
	if info.Path != "" {
		fmt.Fprintf(stdout, "Path:      %s\n", info.Path)
	}

	store := repo.KV()
	_, syncs := store.(kv.Syncer)
	_, watches := store.(kv.Watcher)
	fmt.Fprintf(stdout, "Sync:      %v\n", syncs)
	fmt.Fprintf(stdout, "Watch:     %v\n", watches)

	if charm, ok := store.(*kv.CharmStore); ok {
		id, err := charm.ID()
		if err != nil {
			fmt.Fprintln(stdout, "\nStatus: Connected (ID unavailable)")
		} else {
			fmt.Fprintf(stdout, "Account:   %s\n", id)
		}
	}

	keys, err := repo.Keys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}
	sort.Strings(keys)
	fmt.Fprintf(stdout, "Keys:      %d\n", len(keys))
	for _, k := range keys {
		fmt.Fprintf(stdout, "  %s\n", k)
	}

	initialized, err := repo.Initialized(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Seeded:    %v\n", initialized)
	return nil
}

// StorageSyncCommand pushes and pulls remote changes.
func StorageSyncCommand(ctx context.Context, repo *db.Repository, info StorageInfo, args []string) error {
	fs := flag.NewFlagSet("storage sync", flag.ExitOnError)
	_ = fs.Parse(args)

	if err := repo.Sync(ctx); err != nil {
		if errors.Is(err, db.ErrUnsupported) {
			return fmt.Errorf("the %s backend does not sync; use storage.backend = \"charm\"", info.Backend)
		}
		return fmt.Errorf("sync failed: %w", err)
	}
	fmt.Fprintln(stdout, "✓ Sync complete")
	return nil
}

// StorageWipeCommand completely resets the store
// WARNING: This deletes all local data, including the session and theme!
func StorageWipeCommand(ctx context.Context, repo *db.Repository, args []string) error {
	fs := flag.NewFlagSet("storage wipe", flag.ExitOnError)
	confirm := fs.Bool("confirm", false, "Confirm data wipe")
	_ = fs.Parse(args)

	if !*confirm {
		fmt.Fprintln(stdout, "WARNING: This will delete ALL local data!")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "To confirm, run:")
		fmt.Fprintln(stdout, "  kion storage wipe --confirm")
		return nil
	}

	if err := repo.Wipe(ctx); err != nil {
		return fmt.Errorf("wipe failed: %w", err)
	}
	fmt.Fprintln(stdout, "✓ Store wiped. Sample data will be reloaded on next start.")
	return nil
}
