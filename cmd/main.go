package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/persona/internal/repositories"
	"github.com/desertthunder/persona/internal/services"
	"github.com/desertthunder/persona/internal/session"
	"github.com/desertthunder/persona/internal/shared"
	"github.com/desertthunder/persona/internal/ui"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := os.Getenv("PERSONA_CONFIG")
	if configPath == "" {
		configPath = "config.toml"
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			logger.Fatalf("invalid config %s: %v", configPath, err)
		}
		config = loaded
	}

	level, err := shared.ParseLevel(config.Log.Level)
	if err != nil {
		logger.Warn("unknown log level, using info", "error", err)
	}
	shared.SetLogLevel(logger, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: config.API.Timeout.Duration}
	api := services.NewAPIService(config.API.BaseURL, httpClient,
		services.WithLimiter(services.NewLimiter(config.API)),
		services.WithUserAgent(config.API.UserAgent),
		services.WithLogger(shared.WithLogger(logger, "component", "api")),
	)

	opts := RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		API:        api,
		HTTPClient: httpClient,
		Logger:     logger,
	}

	db, err := shared.OpenStore(config.Database)
	if err != nil {
		logger.Warn("local database unavailable, session commands disabled", "error", err)
	} else {
		defer db.Close()
		opts.Session, opts.History = openSession(ctx, db, api, logger)
	}

	runner := NewRunner(opts)

	app := &cli.Command{
		Name:     "persona",
		Usage:    "Generate and share persona videos from the command line",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		switch {
		case shared.NeedsLogin(err):
			logger.Error(err.Error())
			os.Stderr.WriteString(ui.Help("Run 'persona auth login' to continue") + "\n")
			os.Exit(1)
		case errors.Is(err, context.Canceled):
			os.Exit(130)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

// openSession restores the stored session. A corrupt or unreadable store leaves the user logged out.
func openSession(ctx context.Context, db *sql.DB, api *services.APIService, logger *log.Logger) (*session.Manager, History) {
	kv := repositories.NewKVRepository(db)
	manager := session.NewManager(kv, services.NewAuthService(api), shared.WithLogger(logger, "component", "session"))
	if err := manager.Rehydrate(ctx); err != nil {
		logger.Warn("failed to restore session", "error", err)
	}
	return manager, repositories.NewJobHistoryRepository(db)
}
