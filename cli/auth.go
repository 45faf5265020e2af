// ABOUTME: Session CLI commands
// ABOUTME: Sign in with a built-in account or as the read-only demo user
package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/LautaroSnchz/kion-crm/auth"
	"golang.org/x/term"
)

// readPassword prompts on the terminal without echo, or reads a line when
// stdin is not a terminal.
var readPassword = func(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// LoginCommand signs in with email and password.
func LoginCommand(ctx context.Context, sessions *auth.Manager, args []string) error {
	fs := flag.NewFlagSet("auth login", flag.ExitOnError)
	email := fs.String("email", "", "Account email (required)")
	password := fs.String("password", "", "Password (prompted when omitted)")
	_ = fs.Parse(args)

	if *email == "" {
		return fmt.Errorf("--email is required")
	}
	pw := *password
	if pw == "" {
		var err error
		pw, err = readPassword("Password: ")
		if err != nil {
			return err
		}
	}

	sess, err := sessions.Login(ctx, *email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "✓ Signed in as %s (%s)\n", sess.Name, sess.Role)
	return nil
}

// DemoCommand signs in as the read-only demo user.
func DemoCommand(ctx context.Context, sessions *auth.Manager, args []string) error {
	fs := flag.NewFlagSet("auth demo", flag.ExitOnError)
	_ = fs.Parse(args)

	sess, err := sessions.LoginAsDemo(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "✓ Signed in as %s (read-only)\n", sess.Name)
	return nil
}

// LogoutCommand removes the session.
func LogoutCommand(ctx context.Context, sessions *auth.Manager, args []string) error {
	fs := flag.NewFlagSet("auth logout", flag.ExitOnError)
	_ = fs.Parse(args)

	if err := sessions.Logout(ctx); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	fmt.Fprintln(stdout, "✓ Signed out")
	return nil
}

// WhoamiCommand prints the current session.
func WhoamiCommand(ctx context.Context, sessions *auth.Manager, args []string) error {
	fs := flag.NewFlagSet("auth whoami", flag.ExitOnError)
	_ = fs.Parse(args)

	sess, err := sessions.Current(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Fprintln(stdout, "Not signed in")
		return nil
	}
	fmt.Fprintf(stdout, "%s <%s>\n", sess.Name, sess.Email)
	fmt.Fprintf(stdout, "  Role:    %s\n", sess.Role)
	fmt.Fprintf(stdout, "  Writes:  %v\n", sess.CanWrite())
	if subject, at, err := auth.DecodeToken(sess.Token); err == nil {
		fmt.Fprintf(stdout, "  Since:   %s (%s)\n", at.Local().Format("2006-01-02 15:04"), subject)
	}
	return nil
}
