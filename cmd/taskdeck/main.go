package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/naveenspark/taskdeck/internal/config"
	"github.com/naveenspark/taskdeck/internal/guard"
	"github.com/naveenspark/taskdeck/internal/logging"
	"github.com/naveenspark/taskdeck/internal/session"
	"github.com/naveenspark/taskdeck/internal/storage"
	"github.com/naveenspark/taskdeck/internal/tui"
	"github.com/naveenspark/taskdeck/pkg/client"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// errNotSignedIn is returned by commands the route guard would redirect.
var errNotSignedIn = errors.New("not signed in, run `taskdeck login` first")

// sessionDebounce coalesces the token and user writes of one sign in.
const sessionDebounce = 50 * time.Millisecond

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configDir string
	apiURL    string
	logLevel  string
	logFile   string
}

// deps is everything a command needs, built once per invocation.
type deps struct {
	cfg     *config.Config
	logger  *logging.Logger
	store   *storage.FileStore
	client  *client.Client
	session *session.Store
	router  *guard.Router
}

func (d *deps) Close() {
	if err := d.logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close log: %v\n", err)
	}
}

// cli holds the parsed flags and, once PersistentPreRunE ran, the deps.
type cli struct {
	flags globalFlags
	deps  *deps
}

func rootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "taskdeck",
		Short: "Projects and tasks from the terminal",
		Long: `taskdeck manages your projects and their tasks.

Run without arguments to open the interactive TUI, or use the
subcommands below for scripting.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			d, err := setup(c.flags)
			if err != nil {
				return err
			}
			c.deps = d
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.deps != nil {
				c.deps.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), c.deps)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&c.flags.configDir, "config-dir", "", "Config directory (default $XDG_CONFIG_HOME/taskdeck)")
	pf.StringVar(&c.flags.apiURL, "api-url", "", "Backend API base URL")
	pf.StringVar(&c.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&c.flags.logFile, "log-file", "", "Log file path, - for stderr")

	cmd.AddCommand(
		c.registerCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.projectsCmd(),
		c.tasksCmd(),
		versionCmd(),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skips config loading.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.AppName+" "+version)
		},
	}
}

// setup loads config and builds the storage, client, session and router.
func setup(f globalFlags) (*deps, error) {
	loader := config.NewLoader(f.configDir, logging.Discard())
	cfg, err := loader.Load(config.Overrides{
		APIURL:   f.apiURL,
		LogLevel: f.logLevel,
		LogFile:  f.logFile,
	})
	if err != nil {
		return nil, err
	}

	logger, err := logging.Open(cfg.Log)
	if err != nil {
		return nil, err
	}
	if created, err := loader.EnsureFile(); err != nil {
		logger.Warn("could not write default config", slog.String("error", err.Error()))
	} else if created {
		logger.Info("created default config", slog.String("path", loader.Path()))
	}

	store, err := storage.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		logger.Close() //nolint:errcheck
		return nil, err
	}

	api := client.New(cfg.API.URL, store,
		client.WithTimeout(cfg.API.Timeout),
		client.WithLogger(logger.Logger),
	)
	sess := session.New(store, api, logger.Logger)
	router := guard.NewRouter(guard.New(sess))
	sess.SetNavigator(router)
	sess.Initialize()

	logger.Debug("ready",
		slog.String("api_url", cfg.API.URL),
		slog.String("storage_dir", cfg.Storage.Dir),
		slog.Bool("authenticated", sess.Authenticated()))

	return &deps{cfg: cfg, logger: logger, store: store, client: api, session: sess, router: router}, nil
}

// requireSignedIn asks the route guard whether path is reachable.
func (d *deps) requireSignedIn(path string) error {
	if d.router.Guard().Resolve(path).Redirected {
		return errNotSignedIn
	}
	return nil
}

func runTUI(ctx context.Context, d *deps) error {
	app := tui.NewApp(tui.Options{
		Session:              d.session,
		Client:               d.client,
		Router:               d.router,
		Logger:               d.logger.Logger,
		WebURL:               d.cfg.API.WebURL,
		LogoutOnUnauthorized: d.cfg.Auth.LogoutOnUnauthorized,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go watchSession(watchCtx, d, func() { p.Send(tui.SessionChangedMsg{}) })

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// watchSession reports session changes made by other processes, such as
// `taskdeck logout` in another terminal.
func watchSession(ctx context.Context, d *deps, notify func()) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	onChange := func(key string) {
		d.logger.Debug("stored session changed", slog.String("key", key))
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(sessionDebounce, notify)
	}

	err := d.store.Watch(ctx, []string{session.TokenKey, session.UserKey}, onChange)
	if err != nil {
		d.logger.Warn("session watch stopped", slog.String("error", err.Error()))
	}

	mu.Lock()
	if timer != nil {
		timer.Stop()
	}
	mu.Unlock()
}
