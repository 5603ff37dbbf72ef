package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"taskflow/internal/config"
	"taskflow/internal/logging"
	"taskflow/internal/recordstore"
	"taskflow/internal/recordstore/remote"
	"taskflow/internal/recordstore/sqlstore"
	"taskflow/internal/repository"
	"taskflow/internal/service"
)

// errReported means the failure was already shown to the user.
var errReported = errors.New("reported")

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "taskflow",
	Short: "Tasks with categories, priorities and due dates",
	Long: `TaskFlow keeps tasks grouped by category, ordered by priority and
flagged when their due date has passed.

Examples:
  taskflow add "Prepare slides" --category 2 --priority urgent --due "next friday"
  taskflow tasks --search report
  taskflow serve
  taskflow bot`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "completion" || cmd.Name() == "help" {
			return nil
		}
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg = loaded
		logger = logging.New(logging.Config{
			Level: logging.ParseLevel(cfg.LogLevel),
			JSON:  cfg.LogFormat == "json",
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, botCmd, reportCmd)
	rootCmd.AddCommand(tasksCmd, addCmd, toggleCmd, rmCmd, clearCmd)
	rootCmd.AddCommand(categoriesCmd, categoryCmd)
}

// openStore returns the remote store when one is configured, the local database otherwise.
func openStore() (recordstore.Client, func(), error) {
	if cfg.Remote() {
		client, err := remote.New(remote.Options{
			BaseURL:   cfg.StoreURL,
			ProjectID: cfg.ProjectID,
			PublicKey: cfg.PublicKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("store: %w", err)
		}
		logger.Debug("using remote store", "url", cfg.StoreURL)
		return client, func() {}, nil
	}

	store, err := sqlstore.Open(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("close db", "error", err)
		}
	}, nil
}

type repositories struct {
	tasks      *repository.TaskRepository
	categories *repository.CategoryRepository
}

func newRepositories(store recordstore.Client) repositories {
	return repositories{
		tasks:      repository.NewTaskRepository(store, logger),
		categories: repository.NewCategoryRepository(store, logger),
	}
}

func (r repositories) dashboard(notifier service.Notifier) *service.Dashboard {
	return service.NewDashboard(r.tasks, r.categories, service.DashboardOptions{
		Notifier:       notifier,
		Logger:         logger,
		SearchDebounce: cfg.SearchDebounce,
	})
}

// withDashboard opens the store, loads a dashboard that prints its
// notifications and runs fn against it.
func withDashboard(cmd *cobra.Command, fn func(d *service.Dashboard) error) error {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	dash := newRepositories(store).dashboard(printNotifier(cmd))
	defer dash.Close()
	if err := dash.Load(cmd.Context()); err != nil {
		return errReported
	}
	return fn(dash)
}
