package scoring

import (
	"context"

	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/festival"
	"github.com/playperu/festquest/internal/ledger"
)

// Engine computes summaries on read. Nothing it returns is stored.
type Engine struct {
	levels Levels
}

func NewEngine(levels Levels) *Engine {
	return &Engine{levels: levels}
}

func (e *Engine) Levels() Levels { return e.levels }

// ComputeSummary sums the user's completions on q. A user with no
// completions gets the zero summary at level 1.
func (e *Engine) ComputeSummary(ctx context.Context, q database.Querier, userID int64) (festival.Summary, error) {
	points, activities, err := ledger.New(q).Totals(ctx, userID)
	if err != nil {
		return festival.Summary{}, err
	}
	return e.Summarize(points, activities), nil
}

// Summarize builds a summary from already summed totals.
func (e *Engine) Summarize(points, activities int) festival.Summary {
	return festival.Summary{
		TotalPoints:     points,
		TotalActivities: activities,
		Level:           e.levels.LevelFor(points),
	}
}
