// ABOUTME: Entry point for the KionCRM CLI, TUI, web dashboard and MCP server
// ABOUTME: Wires config, logging, storage backend, repository, session and theme for every command
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/LautaroSnchz/kion-crm/auth"
	"github.com/LautaroSnchz/kion-crm/cli"
	"github.com/LautaroSnchz/kion-crm/config"
	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/kv"
	"github.com/LautaroSnchz/kion-crm/logging"
	"github.com/LautaroSnchz/kion-crm/metrics"
	"github.com/LautaroSnchz/kion-crm/theme"
	"github.com/LautaroSnchz/kion-crm/tui"
	"github.com/LautaroSnchz/kion-crm/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.2.0"

// app holds everything a command may need. Storage is opened lazily so
// commands like version and config never touch the backend.
type app struct {
	configPath string
	dbPath     string
	backend    string
	verbose    bool

	cfg      config.Config
	logger   *zap.Logger
	metrics  *metrics.Registry
	store    kv.Store
	repo     *db.Repository
	sessions *auth.Manager
	themes   *theme.Manager
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := &app{}
	err := a.rootCommand().ExecuteContext(ctx)
	a.close()
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "kion",
		Short:         "KionCRM: clients, deals and a sales pipeline on a local key-value store",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/kion/config.toml)")
	pf.StringVar(&a.dbPath, "db-path", "", "Storage path (default depends on the backend)")
	pf.StringVar(&a.backend, "backend", "", "Storage backend: "+strings.Join(kv.Backends, ", "))
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		a.crmCommand(),
		a.authCommand(),
		a.themeCommand(),
		a.storageCommand(),
		a.vizCommand(),
		a.configCommand(),
		a.mcpCommand(),
		a.webCommand(),
		a.tuiCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "kion version %s\n", version)
			},
		},
	)
	return root
}

// passthrough builds a command whose flags are parsed by the cli package.
// Global flags are still honoured anywhere in the argument list.
func (a *app) passthrough(use, short string, run func(ctx context.Context, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:                use,
		Short:              short,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rest, err := a.takeGlobalFlags(cmd, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), rest)
		},
	}
}

// takeGlobalFlags pulls the persistent flags out of args for commands that
// skip cobra flag parsing.
func (a *app) takeGlobalFlags(cmd *cobra.Command, args []string) ([]string, error) {
	pf := cmd.Root().PersistentFlags()
	var rest []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			rest = append(rest, args[i:]...)
			break
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") {
			rest = append(rest, arg)
			continue
		}
		switch name {
		case "config", "db-path", "backend":
			if !hasValue {
				if i+1 >= len(args) {
					return nil, fmt.Errorf("flag needs an argument: --%s", name)
				}
				i++
				value = args[i]
			}
			if err := pf.Set(name, value); err != nil {
				return nil, err
			}
		case "verbose", "v":
			if !hasValue {
				value = "true"
			}
			if err := pf.Set("verbose", value); err != nil {
				return nil, err
			}
		default:
			rest = append(rest, arg)
		}
	}
	return rest, nil
}

func (a *app) loadConfig() error {
	if a.logger != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Storage.Backend = a.backend
	}
	if a.dbPath != "" {
		cfg.Storage.Path = a.dbPath
	}

	logger, err := logging.New(cfg.Log.Level, a.verbose)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// open connects to the configured backend. seed loads the sample data on
// first use.
func (a *app) open(ctx context.Context, seed bool) error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	if a.repo == nil {
		store, err := kv.Open(ctx, kv.Options{
			Backend:         a.cfg.Storage.Backend,
			Path:            a.cfg.StoragePath(),
			CharmHost:       a.cfg.Storage.Charm.Host,
			CharmAutoSync:   a.cfg.Storage.Charm.AutoSync,
			MongoURI:        a.cfg.Storage.Mongo.URI,
			MongoDatabase:   a.cfg.Storage.Mongo.Database,
			MongoCollection: a.cfg.Storage.Mongo.Collection,
			RedisURL:        a.cfg.Storage.Redis.URL,
			RedisPrefix:     a.cfg.Storage.Redis.Prefix,
			Logger:          a.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to open %s storage: %w", a.cfg.Storage.Backend, err)
		}
		a.logger.Debug("storage opened",
			zap.String("backend", a.cfg.Storage.Backend),
			zap.String("path", a.cfg.StoragePath()))

		a.store = store
		a.metrics = metrics.NewRegistry()
		a.repo = db.NewRepository(store, db.WithLogger(a.logger), db.WithMetrics(a.metrics))
		a.sessions = auth.NewManager(store)
		a.themes = theme.NewManager(store)
		if a.cfg.UI.Theme != "" {
			initial, err := theme.Parse(a.cfg.UI.Theme)
			if err != nil {
				return fmt.Errorf("ui.theme: %w", err)
			}
			a.themes.WithInitial(initial)
		}
	}
	if seed {
		return a.repo.Initialize(ctx)
	}
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.logger != nil {
			a.logger.Warn("failed to close storage", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) dark(ctx context.Context) bool {
	t, err := a.themes.Current(ctx)
	return err == nil && t == theme.Dark
}

func (a *app) storageInfo() cli.StorageInfo {
	return cli.StorageInfo{Backend: a.cfg.Storage.Backend, Path: a.cfg.StoragePath()}
}

const crmUsage = `Clients:
  add-client      --name --email --company [--phone --status --value --last-contact]
  list-clients    [--query --status]
  show-client     <id|name>
  update-client   [flags] <id|name>
  delete-client   <id|name>

Deals:
  add-deal        --title --client --value --close [--stage --probability --owner --notes]
  list-deals      [--stage --client]
  show-deal       [--raw] <id>
  update-deal     [flags] <id>
  move-deal       <id> <stage>
  delete-deal     <id>

Other:
  dashboard       Headline stats and pipeline
  init            Load the sample data if the store is empty
  reset           --confirm: replace everything with the sample data`

func (a *app) crmCommand() *cobra.Command {
	cmd := a.passthrough("crm <command> [flags]", "Manage clients and deals", func(ctx context.Context, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("crm requires a command\n\n%s", crmUsage)
		}
		command, rest := args[0], args[1:]
		switch command {
		case "help", "-h", "--help":
			fmt.Println(crmUsage)
			return nil
		}

		seed := command != "init" && command != "reset"
		if err := a.open(ctx, seed); err != nil {
			return err
		}
		if _, err := cli.Authorize(ctx, a.sessions, command); err != nil {
			return err
		}

		commands := map[string]func(context.Context, *db.Repository, []string) error{
			"add-client":    cli.AddClientCommand,
			"list-clients":  cli.ListClientsCommand,
			"show-client":   cli.ShowClientCommand,
			"update-client": cli.UpdateClientCommand,
			"delete-client": cli.DeleteClientCommand,
			"add-deal":      cli.AddDealCommand,
			"list-deals":    cli.ListDealsCommand,
			"update-deal":   cli.UpdateDealCommand,
			"move-deal":     cli.MoveDealCommand,
			"delete-deal":   cli.DeleteDealCommand,
			"init":          cli.InitCommand,
			"reset":         cli.ResetCommand,
		}
		switch command {
		case "show-deal":
			return cli.ShowDealCommand(ctx, a.repo, a.dark(ctx), rest)
		case "dashboard":
			return cli.DashboardCommand(ctx, a.repo, a.cfg.App.Name, rest)
		}
		run, ok := commands[command]
		if !ok {
			return fmt.Errorf("unknown crm command: %s\n\n%s", command, crmUsage)
		}
		return run(ctx, a.repo, rest)
	})
	cmd.Long = "Manage clients and deals.\n\n" + crmUsage
	return cmd
}

func (a *app) authCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "Sign in, sign out and show the current session"}

	withSessions := func(run func(context.Context, *auth.Manager, []string) error) func(context.Context, []string) error {
		return func(ctx context.Context, args []string) error {
			if err := a.open(ctx, false); err != nil {
				return err
			}
			return run(ctx, a.sessions, args)
		}
	}
	cmd.AddCommand(
		a.passthrough("login [--email] [--password]", "Sign in with a built-in account", withSessions(cli.LoginCommand)),
		a.passthrough("demo", "Sign in as the read-only demo user", withSessions(cli.DemoCommand)),
		a.passthrough("logout", "Sign out", withSessions(cli.LogoutCommand)),
		a.passthrough("whoami", "Show the current session", withSessions(cli.WhoamiCommand)),
	)
	return cmd
}

func (a *app) themeCommand() *cobra.Command {
	return a.passthrough("theme [show|toggle|light|dark]", "Show or change the color theme", func(ctx context.Context, args []string) error {
		if err := a.open(ctx, false); err != nil {
			return err
		}
		return cli.ThemeCommand(ctx, a.themes, args)
	})
}

func (a *app) storageCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "storage", Short: "Inspect, sync or wipe the storage backend"}
	cmd.AddCommand(
		a.passthrough("status", "Show backend, keys and seed state", func(ctx context.Context, args []string) error {
			if err := a.open(ctx, false); err != nil {
				return err
			}
			return cli.StorageStatusCommand(ctx, a.repo, a.storageInfo(), args)
		}),
		a.passthrough("sync", "Sync with the remote server (charm backend)", func(ctx context.Context, args []string) error {
			if err := a.open(ctx, false); err != nil {
				return err
			}
			return cli.StorageSyncCommand(ctx, a.repo, a.storageInfo(), args)
		}),
		a.passthrough("wipe --confirm", "Delete every key, including session and theme", func(ctx context.Context, args []string) error {
			if err := a.open(ctx, false); err != nil {
				return err
			}
			return cli.StorageWipeCommand(ctx, a.repo, args)
		}),
	)
	return cmd
}

func (a *app) vizCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "viz", Short: "Graphviz output of the pipeline"}
	cmd.AddCommand(a.passthrough("pipeline [--output file] [--client id|name]", "Pipeline graph as DOT", func(ctx context.Context, args []string) error {
		if err := a.open(ctx, true); err != nil {
			return err
		}
		if _, err := cli.Authorize(ctx, a.sessions, "viz"); err != nil {
			return err
		}
		return cli.VizPipelineCommand(ctx, a.repo, args)
	}))
	return cmd
}

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Show or change configuration"}
	cmd.AddCommand(
		a.passthrough("show", "Show the effective configuration", func(ctx context.Context, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			return cli.ConfigShowCommand(a.cfg, a.configPath, args)
		}),
		a.passthrough("set <key> <value>", "Write one key to the config file", func(ctx context.Context, args []string) error {
			return cli.ConfigSetCommand(a.configPath, args)
		}),
	)
	return cmd
}

func (a *app) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx, true); err != nil {
				return err
			}
			return cli.MCPCommand(ctx, a.repo, a.sessions, version, a.logger)
		},
	}
}

func (a *app) webCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the read-only web dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx, true); err != nil {
				return err
			}
			if _, err := a.sessions.RequireSession(ctx); err != nil {
				return fmt.Errorf("%w: run 'kion auth login' or 'kion auth demo' first", err)
			}
			if addr == "" {
				addr = a.cfg.Web.Addr
			}

			srv, err := web.NewServer(a.repo,
				web.WithLogger(a.logger),
				web.WithMetrics(a.metrics),
				web.WithAppName(a.cfg.App.Name),
				web.WithWatch(a.cfg.Storage.Watch),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at http://%s\n", a.cfg.App.Name, addr)
			err = srv.Start(ctx, addr)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from web.addr)")
	return cmd
}

func (a *app) tuiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive pipeline board",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx, false); err != nil {
				return err
			}
			sess, err := a.sessions.RequireSession(ctx)
			if err != nil {
				return fmt.Errorf("%w: run 'kion auth login' or 'kion auth demo' first", err)
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			if a.cfg.Storage.Watch {
				go func() {
					if err := a.repo.WatchExternal(ctx); err != nil && !errors.Is(err, context.Canceled) {
						a.logger.Warn("not watching storage", zap.Error(err))
					}
				}()
			}

			return tui.Run(ctx, a.repo, tui.Options{
				AppName:   a.cfg.App.Name,
				Themes:    a.themes,
				Session:   sess,
				LoadDelay: a.cfg.UI.LoadDelay,
			})
		},
	}
}
