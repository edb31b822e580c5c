package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/festival"
)

// AwardBadge records that userID earned badgeID. It reports false when
// the badge was already held, leaving the original award untouched.
func (l *Ledger) AwardBadge(ctx context.Context, userID, badgeID int64) (bool, error) {
	var id int64
	err := l.q.QueryRowContext(ctx, `
		INSERT INTO user_badges (user_id, badge_id, earned_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, badge_id) DO NOTHING
		RETURNING id
	`, userID, badgeID, database.NowUTC()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, festival.Storage("award badge", err)
	}
	return true, nil
}

// EarnedBadges lists the user's badges, most recent first.
func (l *Ledger) EarnedBadges(ctx context.Context, userID int64) ([]festival.EarnedBadge, error) {
	rows, err := l.q.QueryContext(ctx, `
		SELECT b.id, b.name, b.description, b.category, b.icon, b.criteria,
		       b.display_order, b.is_secret, ub.earned_at
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = ?
		ORDER BY ub.earned_at DESC, b.display_order DESC
	`, userID)
	if err != nil {
		return nil, festival.Storage("list earned badges", err)
	}
	defer rows.Close()

	var out []festival.EarnedBadge
	for rows.Next() {
		var (
			eb       festival.EarnedBadge
			criteria string
			secret   int
			earnedAt string
		)
		err := rows.Scan(&eb.ID, &eb.Name, &eb.Description, &eb.Category, &eb.Icon,
			&criteria, &eb.DisplayOrder, &secret, &earnedAt)
		if err != nil {
			return nil, festival.Storage("scan earned badge", err)
		}
		eb.Criteria = []byte(criteria)
		eb.Secret = secret == 1
		if eb.EarnedAt, err = database.ParseTime(earnedAt); err != nil {
			return nil, festival.Storage("scan earned badge", err)
		}
		out = append(out, eb)
	}
	return out, festival.Storage("list earned badges", rows.Err())
}
