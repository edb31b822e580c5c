package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/playperu/festquest/internal/account"
	"github.com/playperu/festquest/internal/progress"
)

func handleGlobalLeaderboard(logger *slog.Logger, progressSvc *progress.Service, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(w, r, maxLimit)
		if !ok {
			return
		}

		entries, err := progressSvc.GlobalLeaderboard(r.Context(), limit)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toLeaderboard("global", entries))
	}
}

// handleFamilyLeaderboard ranks the caller's family.
func handleFamilyLeaderboard(logger *slog.Logger, accounts *account.Service, progressSvc *progress.Service, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(w, r, maxLimit)
		if !ok {
			return
		}

		u, err := accounts.User(r.Context(), userFrom(r))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		if u.FamilyGroupID == nil {
			writeError(w, http.StatusNotFound, codeNotFound, "not in a family group")
			return
		}
		writeFamilyLeaderboard(w, r, logger, progressSvc, *u.FamilyGroupID, limit)
	}
}

func handleFamilyLeaderboardByID(logger *slog.Logger, accounts *account.Service, progressSvc *progress.Service, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(w, r, maxLimit)
		if !ok {
			return
		}
		familyID, ok := pathID(w, r, "familyID")
		if !ok {
			return
		}

		if _, err := accounts.Family(r.Context(), familyID); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeFamilyLeaderboard(w, r, logger, progressSvc, familyID, limit)
	}
}

func writeFamilyLeaderboard(w http.ResponseWriter, r *http.Request, logger *slog.Logger, progressSvc *progress.Service, familyID int64, limit int) {
	entries, err := progressSvc.FamilyLeaderboard(r.Context(), familyID, limit)
	if err != nil {
		writeDomainError(w, r, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaderboard("family", entries))
}

func limitParam(w http.ResponseWriter, r *http.Request, maxLimit int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return maxLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid limit")
		return 0, false
	}
	return min(n, maxLimit), true
}
