package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/festquest/internal/catalog"
	"github.com/playperu/festquest/internal/ledger"
)

func handleListActivities(logger *slog.Logger, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acts, err := catalog.New(db).Activities(r.Context(), true)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		resp := make([]ActivityResponse, len(acts))
		for i, a := range acts {
			resp[i] = toActivity(a)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGetActivity(logger *slog.Logger, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		a, err := catalog.New(db).Activity(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		// Retired activities are hidden the same way the list hides them.
		if !a.Active {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, toActivity(a))
	}
}

// handleListBadges lists the badge catalog without secret badges.
func handleListBadges(logger *slog.Logger, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bs, err := catalog.New(db).Badges(r.Context(), false)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toBadges(bs))
	}
}

// handleEarnedBadges lists the caller's badges, secret ones included.
func handleEarnedBadges(logger *slog.Logger, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		earned, err := ledger.New(db).EarnedBadges(r.Context(), userFrom(r))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toEarnedBadges(earned))
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
