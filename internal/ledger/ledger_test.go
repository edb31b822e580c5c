package ledger

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/festival"
	"github.com/playperu/festquest/internal/migrations"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	stmts := []string{
		`INSERT INTO family_groups (id, name, invite_code) VALUES (1, 'Santos Family', 'SANTOS2025')`,
		`INSERT INTO users (id, email, password_hash, display_name, family_group_id) VALUES (1, 'maria@example.com', 'x', 'Maria', 1)`,
		`INSERT INTO users (id, email, password_hash, display_name, family_group_id) VALUES (2, 'sam@example.com', 'x', 'Sam', 1)`,
		`INSERT INTO users (id, email, password_hash, display_name) VALUES (3, 'miguel@example.com', 'x', 'Miguel')`,
		`INSERT INTO activities (id, name, category, points, scan_code) VALUES (1, 'Bacalhau', 'food', 100, 'FOOD_1')`,
		`INSERT INTO activities (id, name, category, points, scan_code) VALUES (2, 'Nata', 'food', 50, 'FOOD_2')`,
		`INSERT INTO activities (id, name, category, points, scan_code) VALUES (3, 'Fado', 'culture', 150, 'CULTURE_1')`,
		`INSERT INTO activities (id, name, category, points, scan_code, is_active) VALUES (4, 'Retired', 'social', 10, 'OLD_1', 0)`,
		`INSERT INTO badges (id, name, criteria, display_order) VALUES (1, 'First Steps', '{"kind":"total_activities","count":1}', 1)`,
		`INSERT INTO badges (id, name, criteria, display_order) VALUES (2, 'Rising Star', '{"kind":"total_points","points":100}', 2)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("seeding %q: %v", s, err)
		}
	}
	return db
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	l := New(setupDB(t))

	c, err := l.Record(ctx, 1, 1, 100)
	if err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if c.ID == 0 || c.PointsEarned != 100 || c.CompletedAt.IsZero() {
		t.Errorf("Record() = %+v", c)
	}

	tests := []struct {
		name       string
		userID     int64
		activityID int64
		points     int
		want       error
	}{
		{"repeat", 1, 1, 100, festival.ErrAlreadyCompleted},
		{"points mismatch", 1, 2, 100, festival.ErrPointsMismatch},
		{"inactive activity", 1, 4, 10, festival.ErrNotFound},
		{"missing activity", 1, 99, 10, festival.ErrNotFound},
		{"missing user", 42, 2, 50, festival.ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Record(ctx, tt.userID, tt.activityID, tt.points)
			if !errors.Is(err, tt.want) {
				t.Errorf("Record() error = %v, want %v", err, tt.want)
			}
		})
	}

	points, n, err := l.Totals(ctx, 1)
	if err != nil {
		t.Fatalf("Totals() failed: %v", err)
	}
	if points != 100 || n != 1 {
		t.Errorf("Totals() = %d, %d, want 100, 1", points, n)
	}
}

func TestRecordConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	l := New(setupDB(t))

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Record(ctx, 2, 3, 150)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, festival.ErrAlreadyCompleted):
				dupes++
			default:
				t.Errorf("Record() unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || dupes != attempts-1 {
		t.Errorf("successes = %d, duplicates = %d, want 1 and %d", successes, dupes, attempts-1)
	}
	points, n, err := l.Totals(ctx, 2)
	if err != nil {
		t.Fatalf("Totals() failed: %v", err)
	}
	if points != 150 || n != 1 {
		t.Errorf("Totals() = %d, %d, want 150, 1", points, n)
	}
}

func TestCategoryStats(t *testing.T) {
	ctx := context.Background()
	l := New(setupDB(t))

	for _, r := range []struct {
		activity int64
		points   int
	}{{1, 100}, {2, 50}, {3, 150}} {
		if _, err := l.Record(ctx, 1, r.activity, r.points); err != nil {
			t.Fatalf("Record(%d) failed: %v", r.activity, err)
		}
	}

	stats, err := l.CategoryStats(ctx, 1)
	if err != nil {
		t.Fatalf("CategoryStats() failed: %v", err)
	}
	if got := stats[festival.CategoryFood]; got != (CategoryStat{Completed: 2, Points: 150}) {
		t.Errorf("food = %+v, want {2 150}", got)
	}
	if got := stats[festival.CategoryCulture]; got != (CategoryStat{Completed: 1, Points: 150}) {
		t.Errorf("culture = %+v, want {1 150}", got)
	}

	counts, err := l.CategoryCounts(ctx, 1)
	if err != nil {
		t.Fatalf("CategoryCounts() failed: %v", err)
	}
	if counts[festival.CategoryFood] != 2 || counts[festival.CategorySocial] != 0 {
		t.Errorf("CategoryCounts() = %v", counts)
	}

	completions, err := l.Completions(ctx, 1)
	if err != nil {
		t.Fatalf("Completions() failed: %v", err)
	}
	sum := 0
	for _, c := range completions {
		sum += c.PointsEarned
	}
	points, _, err := l.Totals(ctx, 1)
	if err != nil {
		t.Fatalf("Totals() failed: %v", err)
	}
	if sum != points {
		t.Errorf("sum of completions = %d, Totals() = %d", sum, points)
	}
}

func TestAwardBadge(t *testing.T) {
	ctx := context.Background()
	l := New(setupDB(t))

	awarded, err := l.AwardBadge(ctx, 1, 1)
	if err != nil {
		t.Fatalf("AwardBadge() failed: %v", err)
	}
	if !awarded {
		t.Error("first AwardBadge() = false, want true")
	}

	awarded, err = l.AwardBadge(ctx, 1, 1)
	if err != nil {
		t.Fatalf("second AwardBadge() failed: %v", err)
	}
	if awarded {
		t.Error("second AwardBadge() = true, want false")
	}

	earned, err := l.EarnedBadges(ctx, 1)
	if err != nil {
		t.Fatalf("EarnedBadges() failed: %v", err)
	}
	if len(earned) != 1 || earned[0].Name != "First Steps" {
		t.Errorf("EarnedBadges() = %+v", earned)
	}
	if earned[0].EarnedAt.IsZero() {
		t.Error("EarnedAt is zero")
	}
}

func TestRankings(t *testing.T) {
	ctx := context.Background()
	l := New(setupDB(t))

	// Maria 150, Sam 150, Miguel 100.
	for _, r := range []struct {
		user, activity int64
		points         int
	}{{1, 1, 100}, {1, 2, 50}, {2, 3, 150}, {3, 1, 100}} {
		if _, err := l.Record(ctx, r.user, r.activity, r.points); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}

	global, err := l.GlobalRanking(ctx, 10)
	if err != nil {
		t.Fatalf("GlobalRanking() failed: %v", err)
	}
	if len(global) != 3 {
		t.Fatalf("GlobalRanking() rows = %d, want 3", len(global))
	}
	wantRanks := []int{1, 1, 3}
	for i, s := range global {
		if s.Rank != wantRanks[i] {
			t.Errorf("row %d rank = %d, want %d", i, s.Rank, wantRanks[i])
		}
	}
	if global[0].FamilyName != "Santos Family" {
		t.Errorf("FamilyName = %q", global[0].FamilyName)
	}
	if global[2].FamilyGroupID != nil {
		t.Errorf("Miguel FamilyGroupID = %v, want nil", *global[2].FamilyGroupID)
	}

	top, err := l.GlobalRanking(ctx, 1)
	if err != nil {
		t.Fatalf("GlobalRanking(1) failed: %v", err)
	}
	if len(top) != 1 {
		t.Errorf("GlobalRanking(1) rows = %d, want 1", len(top))
	}

	family, err := l.FamilyRanking(ctx, 1, 10)
	if err != nil {
		t.Fatalf("FamilyRanking() failed: %v", err)
	}
	if len(family) != 2 {
		t.Errorf("FamilyRanking() rows = %d, want 2", len(family))
	}

	st, err := l.UserStanding(ctx, 3)
	if err != nil {
		t.Fatalf("UserStanding() failed: %v", err)
	}
	if st.Rank != 3 || st.TotalPoints != 100 || st.Activities != 1 {
		t.Errorf("UserStanding() = %+v", st)
	}
	if _, err := l.UserStanding(ctx, 99); !errors.Is(err, festival.ErrUserNotFound) {
		t.Errorf("UserStanding(missing) error = %v, want ErrUserNotFound", err)
	}
}
