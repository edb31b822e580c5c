package progress

import (
	"context"

	"github.com/playperu/festquest/internal/ledger"
)

type LeaderboardEntry struct {
	ledger.Standing
	Level int
}

// GlobalLeaderboard ranks the top limit users by points.
func (s *Service) GlobalLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := ledger.New(s.db).GlobalRanking(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.withLevels(rows), nil
}

// FamilyLeaderboard ranks the members of familyID by points.
func (s *Service) FamilyLeaderboard(ctx context.Context, familyID int64, limit int) ([]LeaderboardEntry, error) {
	rows, err := ledger.New(s.db).FamilyRanking(ctx, familyID, limit)
	if err != nil {
		return nil, err
	}
	return s.withLevels(rows), nil
}

// FamilyMembers ranks every member of familyID. Points and levels come
// from the completion set.
func (s *Service) FamilyMembers(ctx context.Context, familyID int64) ([]LeaderboardEntry, error) {
	// LIMIT -1 is unbounded in SQLite.
	rows, err := ledger.New(s.db).FamilyRanking(ctx, familyID, -1)
	if err != nil {
		return nil, err
	}
	return s.withLevels(rows), nil
}

func (s *Service) withLevels(rows []ledger.Standing) []LeaderboardEntry {
	out := make([]LeaderboardEntry, len(rows))
	for i, r := range rows {
		out[i] = LeaderboardEntry{Standing: r, Level: s.engine.Levels().LevelFor(r.TotalPoints)}
	}
	return out
}
