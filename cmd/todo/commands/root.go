// Package commands implements the todo command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/benvon/simple-todo/internal/actions"
	"github.com/benvon/simple-todo/internal/app"
	"github.com/benvon/simple-todo/internal/config"
	"github.com/benvon/simple-todo/internal/logger"
	"github.com/benvon/simple-todo/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// App holds the global flags and the resources opened for one invocation
type App struct {
	Backend string
	APIURL  string
	Debug   bool
	LogFile string

	// store and logger are preset by tests; otherwise opened from config
	store  store.Store
	logger *zap.Logger
}

// NewRootCmd builds the todo command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{})
}

func newRootCmd(a *App) *cobra.Command {
	var light bool

	cmd := &cobra.Command{
		Use:          "todo",
		Short:        "Todo list in the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive UI
  todo

  # Scriptable commands
  todo add Buy milk
  todo list
  todo toggle 1
  todo edit 1 Buy oat milk
  todo delete 1

  # Talk to a running API server
  todo --backend remote --api-url http://localhost:8080 list
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd, !light)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.Backend, "backend", "", "Store backend: "+strings.Join(config.Backends, ", ")+" (default from STORE_BACKEND)")
	flags.StringVar(&a.APIURL, "api-url", "", "API base URL for the remote backend (default from TODO_API_URL)")
	flags.BoolVar(&a.Debug, "debug", false, "Enable debug logging")
	flags.StringVar(&a.LogFile, "log-file", filepath.Join(os.TempDir(), "simple-todo.log"), "Log file (empty logs to stderr)")
	cmd.Flags().BoolVar(&light, "light", false, "Start with the light theme")

	cmd.AddCommand(newTUICmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newAddCmd(a))
	cmd.AddCommand(newToggleCmd(a))
	cmd.AddCommand(newEditCmd(a))
	cmd.AddCommand(newDeleteCmd(a))

	return cmd
}

// config loads the environment configuration and applies flag overrides
func (a *App) config() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if a.Backend != "" {
		cfg.StoreBackend = strings.ToLower(a.Backend)
	}
	if a.APIURL != "" {
		cfg.APIURL = a.APIURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *App) newLogger() (*zap.Logger, error) {
	if a.logger != nil {
		return a.logger, nil
	}
	if a.LogFile == "" {
		return logger.NewDevelopmentLogger(a.Debug)
	}
	return logger.NewFileLogger(a.LogFile, a.Debug)
}

// session is what one invocation works with
type session struct {
	svc    *actions.Service
	cfg    *config.Config
	logger *zap.Logger
	store  store.Store
	owned  bool
}

// close releases the store when this session opened it
func (s *session) close() {
	if s.owned {
		if err := app.CloseStore(s.store); err != nil {
			s.logger.Warn("failed_to_close_store", zap.Error(err))
		}
	}
	_ = logger.Sync(s.logger)
}

// connect builds an action service that has not fetched anything yet
func (a *App) connect() (*session, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	log, err := a.newLogger()
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	s := &session{cfg: cfg, logger: log, store: a.store}
	if s.store == nil {
		s.store, err = app.OpenStore(cfg, log)
		if err != nil {
			return nil, err
		}
		s.owned = true
	}

	s.svc = actions.NewService(s.store,
		actions.WithValidator(app.NewValidator(cfg)),
		actions.WithLogger(log),
	)
	return s, nil
}

// open builds a loaded action service
func (a *App) open(ctx context.Context) (*session, error) {
	s, err := a.connect()
	if err != nil {
		return nil, err
	}
	if err := s.svc.Load(ctx); err != nil {
		s.close()
		return nil, fmt.Errorf("load todos: %w", err)
	}
	return s, nil
}

// withService runs fn against a loaded service and prints its notifications
func (a *App) withService(fn func(cmd *cobra.Command, args []string, svc *actions.Service) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := a.open(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		s.svc.Observe(noticePrinter(cmd.OutOrStdout()))
		return fn(cmd, args, s.svc)
	}
}

// noticePrinter writes success and info notices. Errors are returned by the command instead.
func noticePrinter(w io.Writer) actions.Observer {
	return actions.ObserverFuncs{
		OnNotify: func(n actions.Notification) {
			if n.Level != actions.LevelError {
				fmt.Fprintln(w, n.Message)
			}
		},
	}
}
