// Package badges decides which badges a user has unlocked.
package badges

import (
	"context"
	"log/slog"

	"github.com/playperu/festquest/internal/catalog"
	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/festival"
	"github.com/playperu/festquest/internal/ledger"
)

// Trigger carries the state right after a completion. Category is the
// completed activity's category and may be empty for a full re-check.
type Trigger struct {
	Category        festival.Category
	TotalPoints     int
	TotalActivities int
}

type Evaluator struct {
	logger *slog.Logger
}

func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// EvaluateUnlocks checks every badge userID has not earned, in display
// order, and awards each one whose criterion is met. The returned badges
// are exactly the awards inserted by this call.
//
// A badge with a malformed criterion is logged and skipped.
func (e *Evaluator) EvaluateUnlocks(ctx context.Context, q database.Querier, userID int64, t Trigger) ([]festival.Badge, error) {
	candidates, err := catalog.New(q).UnearnedBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	l := ledger.New(q)
	counts, err := l.CategoryCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := festival.Progress{
		TotalPoints:     t.TotalPoints,
		TotalActivities: t.TotalActivities,
		CategoryCounts:  counts,
	}

	var unlocked []festival.Badge
	for _, b := range candidates {
		c, err := festival.ParseCriterion(b.Criteria)
		if err != nil {
			e.logger.WarnContext(ctx, "skipping badge with malformed criterion",
				"user_id", userID,
				"badge_id", b.ID,
				"badge", b.Name,
				"error", err,
			)
			continue
		}
		if !c.Satisfied(p) {
			continue
		}
		awarded, err := l.AwardBadge(ctx, userID, b.ID)
		if err != nil {
			return nil, err
		}
		if awarded {
			unlocked = append(unlocked, b)
		}
	}

	if len(unlocked) > 0 {
		e.logger.DebugContext(ctx, "badges unlocked",
			"user_id", userID,
			"category", t.Category,
			"count", len(unlocked),
		)
	}
	return unlocked, nil
}
