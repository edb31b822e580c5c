package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/playperu/festquest/internal/account"
	"github.com/playperu/festquest/internal/auth"
	"github.com/playperu/festquest/internal/festival"
	"github.com/playperu/festquest/internal/progress"
)

// RegisterRequest is the request body for POST /api/auth/register.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"displayName" validate:"required,max=80"`
	FamilyCode  string `json:"familyCode,omitempty" validate:"omitempty,alphanum,max=32"`
}

// LoginRequest is the request body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// JoinFamilyRequest is the request body for POST /api/users/me/family.
type JoinFamilyRequest struct {
	InviteCode string `json:"inviteCode" validate:"required,alphanum,max=32"`
}

func handleRegister(logger *slog.Logger, accounts *account.Service, tokens *auth.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := readValid(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
			return
		}

		u, err := accounts.Register(r.Context(), account.Registration{
			Email:       req.Email,
			Password:    req.Password,
			DisplayName: req.DisplayName,
			FamilyCode:  req.FamilyCode,
		})
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		token, expires, err := tokens.Issue(u.ID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, AuthResponse{
			Token:     token,
			ExpiresAt: expires,
			User:      toUser(u, festival.Summary{Level: 1}),
		})
	}
}

func handleLogin(logger *slog.Logger, accounts *account.Service, progressSvc *progress.Service, tokens *auth.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := readValid(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
			return
		}

		u, err := accounts.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		sum, err := progressSvc.Summary(r.Context(), u.ID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		token, expires, err := tokens.Issue(u.ID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, AuthResponse{
			Token:     token,
			ExpiresAt: expires,
			User:      toUser(u, sum),
		})
	}
}

func handleMe(logger *slog.Logger, accounts *account.Service, progressSvc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userFrom(r)

		u, err := accounts.User(r.Context(), userID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		sum, err := progressSvc.Summary(r.Context(), userID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, toUser(u, sum))
	}
}

func handleJoinFamily(logger *slog.Logger, accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinFamilyRequest
		if err := readValid(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
			return
		}

		f, err := accounts.JoinFamily(r.Context(), userFrom(r), req.InviteCode)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, FamilyResponse{ID: f.ID, Name: f.Name, InviteCode: f.InviteCode})
	}
}
