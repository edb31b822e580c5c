package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/playperu/festquest/internal/festival"
)

// Standing is one row of a points ranking. Users with equal points share
// a rank.
type Standing struct {
	Rank          int
	UserID        int64
	DisplayName   string
	FamilyGroupID *int64
	FamilyName    string
	TotalPoints   int
	Activities    int
	Badges        int
}

// rankedUsers ranks every user matching the WHERE clause by points summed
// from the completion set.
const rankedUsers = `
	WITH totals AS (
		SELECT u.id, u.display_name, u.family_group_id,
		       COALESCE(f.name, '') AS family_name,
		       COALESCE((SELECT SUM(c.points_earned) FROM completions c WHERE c.user_id = u.id), 0) AS points,
		       (SELECT COUNT(*) FROM completions c WHERE c.user_id = u.id) AS activities,
		       (SELECT COUNT(*) FROM user_badges b WHERE b.user_id = u.id) AS badges
		FROM users u
		LEFT JOIN family_groups f ON f.id = u.family_group_id
		%s
	)
	SELECT RANK() OVER (ORDER BY points DESC) AS rank,
	       id, display_name, family_group_id, family_name, points, activities, badges
	FROM totals
`

// GlobalRanking returns the top limit users across all families.
func (l *Ledger) GlobalRanking(ctx context.Context, limit int) ([]Standing, error) {
	query := fmt.Sprintf(rankedUsers, "") + `ORDER BY rank, id LIMIT ?`
	return l.ranking(ctx, query, limit)
}

// FamilyRanking returns the top limit members of a family group.
func (l *Ledger) FamilyRanking(ctx context.Context, familyID int64, limit int) ([]Standing, error) {
	query := fmt.Sprintf(rankedUsers, `WHERE u.family_group_id = ?`) + `ORDER BY rank, id LIMIT ?`
	return l.ranking(ctx, query, familyID, limit)
}

// UserStanding returns the user's place in the global ranking.
func (l *Ledger) UserStanding(ctx context.Context, userID int64) (Standing, error) {
	query := `SELECT * FROM (` + fmt.Sprintf(rankedUsers, "") + `) WHERE id = ?`
	out, err := l.ranking(ctx, query, userID)
	if err != nil {
		return Standing{}, err
	}
	if len(out) == 0 {
		return Standing{}, festival.ErrUserNotFound
	}
	return out[0], nil
}

func (l *Ledger) ranking(ctx context.Context, query string, args ...any) ([]Standing, error) {
	rows, err := l.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, festival.Storage("rank users", err)
	}
	defer rows.Close()

	var out []Standing
	for rows.Next() {
		var (
			s      Standing
			family sql.NullInt64
		)
		err := rows.Scan(&s.Rank, &s.UserID, &s.DisplayName, &family, &s.FamilyName,
			&s.TotalPoints, &s.Activities, &s.Badges)
		if err != nil {
			return nil, festival.Storage("scan standing", err)
		}
		if family.Valid {
			s.FamilyGroupID = &family.Int64
		}
		out = append(out, s)
	}
	return out, festival.Storage("rank users", rows.Err())
}
