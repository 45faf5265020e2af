// ABOUTME: Theme CLI command
// ABOUTME: Shows, sets or toggles the persisted light/dark preference
package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/LautaroSnchz/kion-crm/theme"
)

// ThemeCommand handles `theme [show|light|dark|toggle]`.
func ThemeCommand(ctx context.Context, themes *theme.Manager, args []string) error {
	fs := flag.NewFlagSet("theme", flag.ExitOnError)
	_ = fs.Parse(args)

	action := "show"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}

	switch action {
	case "show":
		cur, err := themes.Current(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Theme: %s\n", cur)
		return nil

	case "toggle":
		next, err := themes.Toggle(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✓ Theme: %s\n", next)
		return nil

	default:
		t, err := theme.Parse(action)
		if err != nil {
			return fmt.Errorf("usage: theme [show|light|dark|toggle]: %w", err)
		}
		if err := themes.Set(ctx, t); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✓ Theme: %s\n", t)
		return nil
	}
}
