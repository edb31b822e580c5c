// Package progress builds the read-side views of a user's progression:
// the quest board, the progress summary and the leaderboards. Each view is
// read inside one transaction so it reflects a single committed state.
package progress

import (
	"context"
	"database/sql"
	"math"
	"slices"
	"time"

	"github.com/playperu/festquest/internal/catalog"
	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/festival"
	"github.com/playperu/festquest/internal/ledger"
	"github.com/playperu/festquest/internal/scoring"
)

type Service struct {
	db     *sql.DB
	engine *scoring.Engine
}

func NewService(db *sql.DB, engine *scoring.Engine) *Service {
	return &Service{db: db, engine: engine}
}

type ActivityStatus struct {
	festival.Activity
	Completed   bool
	CompletedAt *time.Time
}

type QuestView struct {
	festival.Quest
	Activities []ActivityStatus
	Total      int
	Completed  int
	Percentage int
}

// QuestBoard groups the active activities into quests and marks the ones
// userID has completed.
func (s *Service) QuestBoard(ctx context.Context, userID int64) ([]QuestView, error) {
	var board []QuestView
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		activities, err := catalog.New(tx).Activities(ctx, true)
		if err != nil {
			return err
		}
		done, err := ledger.New(tx).CompletedIDs(ctx, userID)
		if err != nil {
			return err
		}

		byCategory := make(map[festival.Category]*QuestView)
		for _, c := range categoryOrder(activities) {
			board = append(board, QuestView{Quest: festival.QuestFor(c)})
		}
		for i := range board {
			byCategory[board[i].Category] = &board[i]
		}

		for _, a := range activities {
			q := byCategory[a.Category]
			st := ActivityStatus{Activity: a}
			if at, ok := done[a.ID]; ok {
				st.Completed = true
				st.CompletedAt = &at
				q.Completed++
			}
			q.Activities = append(q.Activities, st)
			q.Total++
		}
		for i := range board {
			board[i].Percentage = percent(board[i].Completed, board[i].Total)
		}
		return nil
	})
	return board, err
}

type CategoryProgress struct {
	Category     festival.Category
	Name         string
	Total        int
	Completed    int
	PointsEarned int
	Percentage   int
}

type View struct {
	festival.Summary
	// NextLevelAt is nil at the top level.
	NextLevelAt  *int
	PointsToNext int
	Rank         int
	Categories   []CategoryProgress
	Badges       []festival.EarnedBadge
}

// Progress summarizes userID's points, level, per-quest completion and
// earned badges.
func (s *Service) Progress(ctx context.Context, userID int64) (View, error) {
	var v View
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		l := ledger.New(tx)

		standing, err := l.UserStanding(ctx, userID)
		if err != nil {
			return err
		}
		v.Summary = s.engine.Summarize(standing.TotalPoints, standing.Activities)
		v.Rank = standing.Rank
		if next, ok := s.engine.Levels().NextThreshold(v.TotalPoints); ok {
			v.NextLevelAt = &next
			v.PointsToNext = next - v.TotalPoints
		}

		totals, err := catalog.New(tx).ActiveTotals(ctx)
		if err != nil {
			return err
		}
		stats, err := l.CategoryStats(ctx, userID)
		if err != nil {
			return err
		}
		cats := make([]festival.Category, 0, len(totals))
		for c := range totals {
			cats = append(cats, c)
		}
		for _, c := range sortCategories(cats) {
			st := stats[c]
			v.Categories = append(v.Categories, CategoryProgress{
				Category:     c,
				Name:         festival.QuestFor(c).Name,
				Total:        totals[c],
				Completed:    st.Completed,
				PointsEarned: st.Points,
				Percentage:   percent(st.Completed, totals[c]),
			})
		}

		v.Badges, err = l.EarnedBadges(ctx, userID)
		return err
	})
	return v, err
}

// Summary returns the user's derived points and level.
func (s *Service) Summary(ctx context.Context, userID int64) (festival.Summary, error) {
	return s.engine.ComputeSummary(ctx, s.db, userID)
}

func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// categoryOrder returns the distinct categories of activities, built-in
// quests first.
func categoryOrder(activities []festival.Activity) []festival.Category {
	var cats []festival.Category
	for _, a := range activities {
		if !slices.Contains(cats, a.Category) {
			cats = append(cats, a.Category)
		}
	}
	return sortCategories(cats)
}

func sortCategories(cats []festival.Category) []festival.Category {
	rank := func(c festival.Category) int {
		for i, q := range festival.Quests {
			if q.Category == c {
				return i
			}
		}
		return len(festival.Quests)
	}
	slices.SortFunc(cats, func(a, b festival.Category) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
	return cats
}
