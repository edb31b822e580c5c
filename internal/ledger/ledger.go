// Package ledger records completions and earned badges. The completion
// set is the only source of points: totals are always summed from it.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/festival"
)

type Ledger struct {
	q database.Querier
}

// New returns a Ledger that runs its queries on q, which may be a
// transaction.
func New(q database.Querier) *Ledger {
	return &Ledger{q: q}
}

// Record appends a completion of activityID by userID worth points.
//
// The activity must exist, be active and be worth exactly points, and the
// user must exist. A second completion of the same pair returns
// festival.ErrAlreadyCompleted; concurrent duplicates are resolved by the
// (user_id, activity_id) unique constraint so exactly one insert wins.
func (l *Ledger) Record(ctx context.Context, userID, activityID int64, points int) (festival.Completion, error) {
	c := festival.Completion{UserID: userID, ActivityID: activityID, PointsEarned: points}

	var current, active int
	err := l.q.QueryRowContext(ctx,
		`SELECT points, is_active FROM activities WHERE id = ?`, activityID,
	).Scan(&current, &active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && active == 0) {
		return c, festival.ErrNotFound
	}
	if err != nil {
		return c, festival.Storage("record completion: load activity", err)
	}
	if current != points {
		return c, festival.ErrPointsMismatch
	}

	var exists int
	err = l.q.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return c, festival.ErrUserNotFound
	}
	if err != nil {
		return c, festival.Storage("record completion: load user", err)
	}

	var completedAt string
	err = l.q.QueryRowContext(ctx, `
		INSERT INTO completions (user_id, activity_id, points_earned, completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, activity_id) DO NOTHING
		RETURNING id, completed_at
	`, userID, activityID, points, database.NowUTC()).Scan(&c.ID, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, festival.ErrAlreadyCompleted
	}
	if err != nil {
		return c, festival.Storage("record completion", err)
	}
	c.CompletedAt, err = database.ParseTime(completedAt)
	return c, festival.Storage("record completion", err)
}

// Completions lists the user's completions, oldest first.
func (l *Ledger) Completions(ctx context.Context, userID int64) ([]festival.Completion, error) {
	rows, err := l.q.QueryContext(ctx, `
		SELECT id, user_id, activity_id, points_earned, completed_at
		FROM completions
		WHERE user_id = ?
		ORDER BY completed_at, id
	`, userID)
	if err != nil {
		return nil, festival.Storage("list completions", err)
	}
	defer rows.Close()

	var out []festival.Completion
	for rows.Next() {
		var (
			c  festival.Completion
			at string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.ActivityID, &c.PointsEarned, &at); err != nil {
			return nil, festival.Storage("scan completion", err)
		}
		if c.CompletedAt, err = database.ParseTime(at); err != nil {
			return nil, festival.Storage("scan completion", err)
		}
		out = append(out, c)
	}
	return out, festival.Storage("list completions", rows.Err())
}

// Totals sums the user's completion points and counts completions.
func (l *Ledger) Totals(ctx context.Context, userID int64) (points, activities int, err error) {
	err = l.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(points_earned), 0), COUNT(*)
		FROM completions
		WHERE user_id = ?
	`, userID).Scan(&points, &activities)
	return points, activities, festival.Storage("sum completions", err)
}

// CategoryStat is the user's standing in one category.
type CategoryStat struct {
	Completed int
	Points    int
}

// CategoryStats groups the user's completions by activity category.
func (l *Ledger) CategoryStats(ctx context.Context, userID int64) (map[festival.Category]CategoryStat, error) {
	rows, err := l.q.QueryContext(ctx, `
		SELECT a.category, COUNT(*), COALESCE(SUM(c.points_earned), 0)
		FROM completions c
		JOIN activities a ON a.id = c.activity_id
		WHERE c.user_id = ?
		GROUP BY a.category
	`, userID)
	if err != nil {
		return nil, festival.Storage("count completions by category", err)
	}
	defer rows.Close()

	out := make(map[festival.Category]CategoryStat)
	for rows.Next() {
		var (
			cat festival.Category
			st  CategoryStat
		)
		if err := rows.Scan(&cat, &st.Completed, &st.Points); err != nil {
			return nil, festival.Storage("scan category count", err)
		}
		out[cat] = st
	}
	return out, festival.Storage("count completions by category", rows.Err())
}

// CategoryCounts is CategoryStats reduced to completion counts.
func (l *Ledger) CategoryCounts(ctx context.Context, userID int64) (map[festival.Category]int, error) {
	stats, err := l.CategoryStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[festival.Category]int, len(stats))
	for c, st := range stats {
		out[c] = st.Completed
	}
	return out, nil
}

// CompletedIDs maps each activity the user completed to its completion time.
func (l *Ledger) CompletedIDs(ctx context.Context, userID int64) (map[int64]time.Time, error) {
	completions, err := l.Completions(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]time.Time, len(completions))
	for _, c := range completions {
		out[c.ActivityID] = c.CompletedAt
	}
	return out, nil
}
