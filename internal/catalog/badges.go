package catalog

import (
	"context"

	"github.com/playperu/festquest/internal/festival"
)

const badgeColumns = `id, name, description, category, icon, criteria, display_order, is_secret`

func scanBadge(s scanner) (festival.Badge, error) {
	var (
		b        festival.Badge
		criteria string
		secret   int
	)
	err := s.Scan(&b.ID, &b.Name, &b.Description, &b.Category, &b.Icon,
		&criteria, &b.DisplayOrder, &secret)
	b.Criteria = []byte(criteria)
	b.Secret = secret == 1
	return b, err
}

// Badges lists badges in display order. Secret badges are included only
// when includeSecret is set.
func (s *Store) Badges(ctx context.Context, includeSecret bool) ([]festival.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badges`
	if !includeSecret {
		query += ` WHERE is_secret = 0`
	}
	query += ` ORDER BY display_order, id`

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, festival.Storage("list badges", err)
	}
	defer rows.Close()

	var out []festival.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, festival.Storage("scan badge", err)
		}
		out = append(out, b)
	}
	return out, festival.Storage("list badges", rows.Err())
}

// UnearnedBadges lists, in display order, every badge userID has not been
// awarded yet, secret ones included.
func (s *Store) UnearnedBadges(ctx context.Context, userID int64) ([]festival.Badge, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+badgeColumns+` FROM badges
		WHERE id NOT IN (SELECT badge_id FROM user_badges WHERE user_id = ?)
		ORDER BY display_order, id
	`, userID)
	if err != nil {
		return nil, festival.Storage("list unearned badges", err)
	}
	defer rows.Close()

	var out []festival.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, festival.Storage("scan badge", err)
		}
		out = append(out, b)
	}
	return out, festival.Storage("list unearned badges", rows.Err())
}

// PutBadge inserts b or replaces the badge with the same name. Criteria
// are stored as given; they are parsed when evaluated.
func (s *Store) PutBadge(ctx context.Context, b festival.Badge) (int64, error) {
	secret := 0
	if b.Secret {
		secret = 1
	}
	var id int64
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO badges (name, description, category, icon, criteria, display_order, is_secret)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			description = excluded.description,
			category = excluded.category,
			icon = excluded.icon,
			criteria = excluded.criteria,
			display_order = excluded.display_order,
			is_secret = excluded.is_secret
		RETURNING id
	`, b.Name, b.Description, b.Category, b.Icon, string(b.Criteria), b.DisplayOrder, secret).Scan(&id)
	return id, festival.Storage("put badge", err)
}
