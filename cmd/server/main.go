package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/festquest/internal/account"
	"github.com/playperu/festquest/internal/auth"
	"github.com/playperu/festquest/internal/badges"
	"github.com/playperu/festquest/internal/catalog"
	"github.com/playperu/festquest/internal/config"
	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/handler/health"
	"github.com/playperu/festquest/internal/migrations"
	"github.com/playperu/festquest/internal/progress"
	"github.com/playperu/festquest/internal/quest"
	"github.com/playperu/festquest/internal/scoring"
	"github.com/playperu/festquest/internal/seed"
	"github.com/playperu/festquest/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.RunContext(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	if err := applyCatalog(ctx, db, cfg.CatalogFile); err != nil {
		return err
	}

	// --- Domain ---
	levels, err := scoring.NewLevels(cfg.LevelThresholds)
	if err != nil {
		return fmt.Errorf("level thresholds: %w", err)
	}
	engine := scoring.NewEngine(levels)
	broker := server.NewBroker()

	checks := map[string]health.Checker{"sqlite": health.SQL(db)}
	var notifier quest.Notifier = broker

	// --- Redis (optional) ---
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis", "channel", cfg.RedisChannel)

		checks["redis"] = health.Redis(rdb)
	}

	var relay *server.RedisRelay
	if rdb != nil {
		relay = server.NewRedisRelay(rdb, cfg.RedisChannel, broker, logger)
		notifier = relay
	}

	accounts := account.NewService(db)
	quests := quest.NewService(db, engine, badges.NewEvaluator(logger), notifier, logger, cfg.CompleteRetries)

	if cfg.SeedDemo {
		if err := seed.Demo(ctx, logger, accounts, quests, catalog.New(db)); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		DB:               db,
		Quests:           quests,
		Progress:         progress.NewService(db, engine),
		Accounts:         accounts,
		Tokens:           auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Broker:           broker,
		Checks:           checks,
		LeaderboardLimit: cfg.LeaderboardLimit,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

// applyCatalog upserts the activity and badge catalog from path, or the
// built-in festival catalog when path is empty.
func applyCatalog(ctx context.Context, db *sql.DB, path string) error {
	f := catalog.Default()
	if path != "" {
		var err error
		if f, err = catalog.LoadFile(path); err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
	}
	return database.WithTx(ctx, db, func(tx *sql.Tx) error {
		return catalog.Apply(ctx, tx, f)
	})
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
