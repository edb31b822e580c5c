package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/playperu/festquest/internal/account"
	"github.com/playperu/festquest/internal/badges"
	"github.com/playperu/festquest/internal/catalog"
	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/migrations"
	"github.com/playperu/festquest/internal/progress"
	"github.com/playperu/festquest/internal/quest"
	"github.com/playperu/festquest/internal/scoring"
)

func TestDemo(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := catalog.Apply(ctx, db, catalog.Default()); err != nil {
		t.Fatalf("apply catalog: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	levels, _ := scoring.NewLevels(scoring.DefaultThresholds)
	engine := scoring.NewEngine(levels)
	accounts := account.NewService(db)
	quests := quest.NewService(db, engine, badges.NewEvaluator(logger), nil, logger, 1)

	// Running twice must not duplicate anything.
	for range 2 {
		if err := Demo(ctx, logger, accounts, quests, catalog.New(db)); err != nil {
			t.Fatalf("Demo() failed: %v", err)
		}
	}

	board, err := progress.NewService(db, engine).GlobalLeaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != len(visitors) {
		t.Fatalf("leaderboard has %d entries, want %d", len(board), len(visitors))
	}
	if board[0].DisplayName != "Maria Santos" {
		t.Errorf("leader = %s, want Maria Santos", board[0].DisplayName)
	}
	// 100 + 100 + 150 + 125.
	if board[0].TotalPoints != 475 {
		t.Errorf("Maria points = %d, want 475", board[0].TotalPoints)
	}
}
