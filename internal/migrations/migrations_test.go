package migrations_test

import (
	"context"
	"testing"

	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/migrations"
)

func TestMigrations(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	// Verify all tables exist by querying sqlite_master.
	want := []string{"family_groups", "users", "activities", "badges", "completions", "user_badges"}

	for _, table := range want {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}

	// Re-running is a no-op.
	if err := migrations.Run(db); err != nil {
		t.Fatalf("re-running migrations: %v", err)
	}
	v, err := migrations.Version(context.Background(), db)
	if err != nil {
		t.Fatalf("Version() failed: %v", err)
	}
	if v != 1 {
		t.Errorf("version = %d, want 1", v)
	}
}

func TestCompletionsUniquePerUserActivity(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	stmts := []string{
		`INSERT INTO users (email, password_hash, display_name) VALUES ('a@example.com', 'x', 'A')`,
		`INSERT INTO activities (name, category, points, scan_code) VALUES ('Bifana', 'food', 100, 'FOOD_1')`,
		`INSERT INTO completions (user_id, activity_id, points_earned) VALUES (1, 1, 100)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}

	if _, err := db.Exec(`INSERT INTO completions (user_id, activity_id, points_earned) VALUES (1, 1, 100)`); err == nil {
		t.Error("duplicate completion accepted, want unique violation")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(db); err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}
}
