// Package quest completes activities: it validates a scan, appends it to
// the ledger, rescoring and awarding badges in the same transaction.
package quest

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/playperu/festquest/internal/badges"
	"github.com/playperu/festquest/internal/catalog"
	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/festival"
	"github.com/playperu/festquest/internal/ledger"
	"github.com/playperu/festquest/internal/scoring"
)

// Notifier receives the events of a committed completion. Delivery is
// best effort and must not block.
type Notifier interface {
	Notify(ctx context.Context, events []festival.Event)
}

type Service struct {
	db       *sql.DB
	scoring  *scoring.Engine
	badges   *badges.Evaluator
	notifier Notifier
	logger   *slog.Logger
	retries  uint64
}

// NewService wires the orchestrator. notifier may be nil. retries bounds
// how often a storage fault is retried before giving up.
func NewService(db *sql.DB, engine *scoring.Engine, evaluator *badges.Evaluator, notifier Notifier, logger *slog.Logger, retries uint64) *Service {
	return &Service{
		db:       db,
		scoring:  engine,
		badges:   evaluator,
		notifier: notifier,
		logger:   logger,
		retries:  retries,
	}
}

// CompleteActivity records that userID scanned scanCode at activityID.
//
// It returns festival.ErrInvalidCode when the activity is unknown,
// inactive or the code does not match exactly, and
// festival.ErrAlreadyCompleted when the user already completed it. In the
// latter case the returned result still carries the user's unchanged
// TotalPoints and Level.
//
// The ledger append, the new summary and any badge awards commit together.
// Storage faults are retried with exponential backoff; the unique
// constraint on completions makes a retry after a lost commit safe.
func (s *Service) CompleteActivity(ctx context.Context, userID, activityID int64, scanCode string) (festival.CompletionResult, error) {
	var result festival.CompletionResult
	op := func() error {
		var err error
		result, err = s.completeOnce(ctx, userID, activityID, scanCode)
		if err != nil && !festival.IsStorage(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 50 * time.Millisecond
	eb.MaxElapsedTime = 5 * time.Second

	attempt := 0
	err := backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(eb, s.retries), ctx),
		func(err error, d time.Duration) {
			attempt++
			s.logger.WarnContext(ctx, "retrying completion after storage fault",
				"user_id", userID,
				"activity_id", activityID,
				"attempt", attempt,
				"backoff", d,
				"error", err,
			)
		},
	)
	if err != nil {
		if festival.IsStorage(err) {
			s.logger.ErrorContext(ctx, "completing activity",
				"user_id", userID,
				"activity_id", activityID,
				"attempt", attempt+1,
				"error", err,
			)
		}
		return result, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, festival.EventsFor(userID, result))
	}
	return result, nil
}

func (s *Service) completeOnce(ctx context.Context, userID, activityID int64, scanCode string) (festival.CompletionResult, error) {
	var result festival.CompletionResult
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		a, err := catalog.New(tx).Activity(ctx, activityID)
		if errors.Is(err, festival.ErrNotFound) {
			return festival.ErrInvalidCode
		}
		if err != nil {
			return err
		}
		if !a.Active || a.ScanCode != scanCode {
			return festival.ErrInvalidCode
		}

		before, err := s.scoring.ComputeSummary(ctx, tx, userID)
		if err != nil {
			return err
		}
		result.TotalPoints = before.TotalPoints
		result.Level = before.Level

		c, err := ledger.New(tx).Record(ctx, userID, a.ID, a.Points)
		if err != nil {
			return err
		}

		after, err := s.scoring.ComputeSummary(ctx, tx, userID)
		if err != nil {
			return err
		}

		unlocked, err := s.badges.EvaluateUnlocks(ctx, tx, userID, badges.Trigger{
			Category:        a.Category,
			TotalPoints:     after.TotalPoints,
			TotalActivities: after.TotalActivities,
		})
		if err != nil {
			return err
		}

		result = festival.CompletionResult{
			Completion:    c,
			Activity:      a,
			PointsEarned:  c.PointsEarned,
			TotalPoints:   after.TotalPoints,
			Level:         after.Level,
			PreviousLevel: before.Level,
			NewBadges:     unlocked,
		}
		return nil
	})
	if err != nil {
		return result, classify(err)
	}
	return result, nil
}

// classify passes domain outcomes through and marks everything else,
// including failed begin and commit, as a storage fault.
func classify(err error) error {
	switch {
	case errors.Is(err, festival.ErrInvalidCode),
		errors.Is(err, festival.ErrAlreadyCompleted),
		errors.Is(err, festival.ErrUserNotFound),
		errors.Is(err, festival.ErrPointsMismatch),
		errors.Is(err, festival.ErrNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return festival.Storage("complete activity", err)
}
