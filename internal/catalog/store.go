// Package catalog stores the activities and badges users can earn.
package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/festival"
)

type Store struct {
	q database.Querier
}

// New returns a Store that runs its queries on q, which may be a
// transaction.
func New(q database.Querier) *Store {
	return &Store{q: q}
}

type scanner interface {
	Scan(dest ...any) error
}

const activityColumns = `id, name, description, category, points, scan_code, location, icon, is_active, created_at`

func scanActivity(s scanner) (festival.Activity, error) {
	var (
		a       festival.Activity
		active  int
		created string
	)
	err := s.Scan(&a.ID, &a.Name, &a.Description, &a.Category, &a.Points,
		&a.ScanCode, &a.Location, &a.Icon, &active, &created)
	if err != nil {
		return a, err
	}
	a.Active = active == 1
	a.CreatedAt, err = database.ParseTime(created)
	return a, err
}

func (s *Store) Activity(ctx context.Context, id int64) (festival.Activity, error) {
	a, err := scanActivity(s.q.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return a, festival.ErrNotFound
	}
	return a, festival.Storage("load activity", err)
}

func (s *Store) ActivityByCode(ctx context.Context, scanCode string) (festival.Activity, error) {
	a, err := scanActivity(s.q.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE scan_code = ?`, scanCode))
	if errors.Is(err, sql.ErrNoRows) {
		return a, festival.ErrNotFound
	}
	return a, festival.Storage("load activity by code", err)
}

// Activities lists activities ordered by category then id.
func (s *Store) Activities(ctx context.Context, activeOnly bool) ([]festival.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY category, id`

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, festival.Storage("list activities", err)
	}
	defer rows.Close()

	var out []festival.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, festival.Storage("scan activity", err)
		}
		out = append(out, a)
	}
	return out, festival.Storage("list activities", rows.Err())
}

// ActiveTotals counts active activities per category.
func (s *Store) ActiveTotals(ctx context.Context) (map[festival.Category]int, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM activities
		WHERE is_active = 1
		GROUP BY category
	`)
	if err != nil {
		return nil, festival.Storage("count activities", err)
	}
	defer rows.Close()

	out := make(map[festival.Category]int)
	for rows.Next() {
		var (
			c festival.Category
			n int
		)
		if err := rows.Scan(&c, &n); err != nil {
			return nil, festival.Storage("scan activity count", err)
		}
		out[c] = n
	}
	return out, festival.Storage("count activities", rows.Err())
}

// PutActivity inserts a, or refreshes the descriptive fields of the
// activity already holding a.ScanCode. Points and category of an existing
// activity are never changed since completions reference them.
func (s *Store) PutActivity(ctx context.Context, a festival.Activity) (int64, error) {
	active := 0
	if a.Active {
		active = 1
	}
	var id int64
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO activities (name, description, category, points, scan_code, location, icon, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (scan_code) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			location = excluded.location,
			icon = excluded.icon,
			is_active = excluded.is_active
		RETURNING id
	`, a.Name, a.Description, a.Category, a.Points, a.ScanCode, a.Location, a.Icon, active).Scan(&id)
	return id, festival.Storage("put activity", err)
}

// Deactivate hides an activity from quests and rejects further scans of
// it. Existing completions keep counting.
func (s *Store) Deactivate(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `UPDATE activities SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return festival.Storage("deactivate activity", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return festival.Storage("deactivate activity", err)
	}
	if n == 0 {
		return festival.ErrNotFound
	}
	return nil
}
