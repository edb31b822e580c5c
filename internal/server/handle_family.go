package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/festquest/internal/account"
	"github.com/playperu/festquest/internal/progress"
)

// CreateFamilyRequest is the request body for POST /api/families.
type CreateFamilyRequest struct {
	Name string `json:"name" validate:"required,max=80"`
}

// MyFamilyResponse is the caller's family group with its members ranked
// by points. Family is null when the caller has not joined one.
type MyFamilyResponse struct {
	Family  *FamilyResponse            `json:"family"`
	Members []LeaderboardEntryResponse `json:"members"`
}

func handleMyFamily(logger *slog.Logger, accounts *account.Service, progressSvc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := accounts.User(r.Context(), userFrom(r))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		if u.FamilyGroupID == nil {
			writeJSON(w, http.StatusOK, MyFamilyResponse{Members: []LeaderboardEntryResponse{}})
			return
		}

		f, err := accounts.Family(r.Context(), *u.FamilyGroupID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		members, err := progressSvc.FamilyMembers(r.Context(), f.ID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, MyFamilyResponse{
			Family:  &FamilyResponse{ID: f.ID, Name: f.Name, InviteCode: f.InviteCode},
			Members: toLeaderboard("family", members).Entries,
		})
	}
}

// handleCreateFamily founds a family group with a fresh invite code and
// moves the caller into it.
func handleCreateFamily(logger *slog.Logger, accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateFamilyRequest
		if err := readValid(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
			return
		}

		f, err := accounts.FoundFamily(r.Context(), userFrom(r), req.Name)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, FamilyResponse{ID: f.ID, Name: f.Name, InviteCode: f.InviteCode})
	}
}
