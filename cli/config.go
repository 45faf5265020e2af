// ABOUTME: Configuration CLI commands
// ABOUTME: Prints the effective settings and writes single keys to the config file
package cli

import (
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/LautaroSnchz/kion-crm/config"
)

// ConfigShowCommand prints every key with its effective value.
func ConfigShowCommand(cfg config.Config, explicitPath string, args []string) error {
	fs := flag.NewFlagSet("config show", flag.ExitOnError)
	_ = fs.Parse(args)

	fmt.Fprintf(stdout, "Config file: %s\n\n", config.Path(explicitPath))

	values := cfg.Flatten()
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	for _, key := range config.Keys() {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", key, orDash(values[key]))
	}
	return w.Flush()
}

// ConfigSetCommand writes `key value` to the config file.
func ConfigSetCommand(explicitPath string, args []string) error {
	fs := flag.NewFlagSet("config set", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("usage: config set <key> <value>")
	}
	if err := config.Set(explicitPath, fs.Arg(0), fs.Arg(1)); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "✓ %s = %s\n", fs.Arg(0), fs.Arg(1))
	return nil
}
