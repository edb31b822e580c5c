package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/playperu/festquest/internal/account"
	"github.com/playperu/festquest/internal/badges"
	"github.com/playperu/festquest/internal/config"
	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/migrations"
	"github.com/playperu/festquest/internal/progress"
	"github.com/playperu/festquest/internal/quest"
	"github.com/playperu/festquest/internal/scoring"
)

// env is the wiring shared by commands that touch the database.
type env struct {
	cfg      *config.Config
	db       *sql.DB
	logger   *slog.Logger
	accounts *account.Service
	quests   *quest.Service
	progress *progress.Service
}

// openEnv loads configuration, opens and migrates the database, and
// builds the services. Callers must call close.
func openEnv(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}

	var logOut io.Writer = io.Discard
	if opts.Verbose {
		logOut = cmd.ErrOrStderr()
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel}))

	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.DBPath, err)
	}
	if err := migrations.RunContext(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	levels, err := scoring.NewLevels(cfg.LevelThresholds)
	if err != nil {
		db.Close()
		return nil, err
	}
	engine := scoring.NewEngine(levels)

	return &env{
		cfg:      cfg,
		db:       db,
		logger:   logger,
		accounts: account.NewService(db),
		quests:   quest.NewService(db, engine, badges.NewEvaluator(logger), nil, logger, cfg.CompleteRetries),
		progress: progress.NewService(db, engine),
	}, nil
}

func (e *env) close() error {
	return e.db.Close()
}
