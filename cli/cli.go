// ABOUTME: Shared plumbing for the CLI commands
// ABOUTME: Output writer, session checks per command and flag helpers
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/LautaroSnchz/kion-crm/auth"
	"github.com/LautaroSnchz/kion-crm/models"
)

// stdout is where commands print. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// mutatingCommands need an admin session; every other crm command only
// needs to be signed in.
var mutatingCommands = map[string]bool{
	"add-client":    true,
	"update-client": true,
	"delete-client": true,
	"add-deal":      true,
	"update-deal":   true,
	"move-deal":     true,
	"delete-deal":   true,
	"reset":         true,
}

// Authorize checks the current session against a crm subcommand.
func Authorize(ctx context.Context, sessions *auth.Manager, command string) (*auth.Session, error) {
	var (
		sess *auth.Session
		err  error
	)
	if mutatingCommands[command] {
		sess, err = sessions.RequireWriter(ctx)
	} else {
		sess, err = sessions.RequireSession(ctx)
	}
	switch {
	case errors.Is(err, auth.ErrNotSignedIn):
		return nil, fmt.Errorf("%w: run 'kion auth login' or 'kion auth demo' first", err)
	case errors.Is(err, auth.ErrReadOnly):
		return nil, fmt.Errorf("%w: %s needs an admin session", err, command)
	case err != nil:
		return nil, err
	}
	return sess, nil
}

// setFlags reports which flags were given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func parseDateFlag(name, value string) (models.Date, error) {
	d, err := models.ParseDate(value)
	if err != nil {
		return models.Date{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return d, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
