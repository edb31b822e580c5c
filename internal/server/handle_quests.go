package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/playperu/festquest/internal/festival"
	"github.com/playperu/festquest/internal/progress"
	"github.com/playperu/festquest/internal/quest"
)

// CompleteRequest is the request body for POST /api/quests/complete.
type CompleteRequest struct {
	ActivityID int64  `json:"activityId" validate:"gt=0"`
	ScanCode   string `json:"scanCode" validate:"required,max=128"`
}

type CompleteResponse struct {
	Message      string           `json:"message"`
	Activity     ActivityResponse `json:"activity"`
	PointsEarned int              `json:"pointsEarned"`
	TotalPoints  int              `json:"totalPoints"`
	Level        int              `json:"level"`
	LeveledUp    bool             `json:"leveledUp"`
	NewBadges    []BadgeResponse  `json:"newBadges"`
}

// AlreadyCompletedResponse is the 409 body of a repeated scan. It carries
// the caller's unchanged totals.
type AlreadyCompletedResponse struct {
	ErrorResponse
	TotalPoints int `json:"totalPoints"`
	Level       int `json:"level"`
}

func handleComplete(logger *slog.Logger, quests *quest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CompleteRequest
		if err := readValid(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
			return
		}

		res, err := quests.CompleteActivity(r.Context(), userFrom(r), req.ActivityID, req.ScanCode)
		if errors.Is(err, festival.ErrAlreadyCompleted) {
			writeJSON(w, http.StatusConflict, AlreadyCompletedResponse{
				ErrorResponse: ErrorResponse{Error: "activity already completed", Code: codeAlreadyCompleted},
				TotalPoints:   res.TotalPoints,
				Level:         res.Level,
			})
			return
		}
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, CompleteResponse{
			Message:      fmt.Sprintf("Great job! You earned %d points!", res.PointsEarned),
			Activity:     toActivity(res.Activity),
			PointsEarned: res.PointsEarned,
			TotalPoints:  res.TotalPoints,
			Level:        res.Level,
			LeveledUp:    res.LeveledUp(),
			NewBadges:    toBadges(res.NewBadges),
		})
	}
}

func handleQuestBoard(logger *slog.Logger, progressSvc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board, err := progressSvc.QuestBoard(r.Context(), userFrom(r))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toQuests(board))
	}
}

func handleQuestProgress(logger *slog.Logger, progressSvc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := progressSvc.Progress(r.Context(), userFrom(r))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toProgress(v))
	}
}
