// Package account manages users and the family groups they compete in.
package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/playperu/festquest/internal/auth"
	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/festival"
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

type Registration struct {
	Email       string
	Password    string
	DisplayName string
	// FamilyCode optionally joins an existing family group.
	FamilyCode string
}

// Register creates a user. The email is stored lowercased and must be
// unused; a non-empty FamilyCode must name an existing family group.
func (s *Service) Register(ctx context.Context, reg Registration) (festival.User, error) {
	email := normalizeEmail(reg.Email)
	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return festival.User{}, err
	}

	var u festival.User
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var taken int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&taken)
		if err != nil {
			return festival.Storage("check email", err)
		}
		if taken > 0 {
			return festival.ErrEmailTaken
		}

		var familyID *int64
		if code := strings.TrimSpace(reg.FamilyCode); code != "" {
			f, err := familyByCode(ctx, tx, code)
			if errors.Is(err, festival.ErrNotFound) {
				return festival.ErrInvalidFamilyCode
			}
			if err != nil {
				return err
			}
			familyID = &f.ID
		}

		var created string
		err = tx.QueryRowContext(ctx, `
			INSERT INTO users (email, password_hash, display_name, family_group_id, created_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id, created_at
		`, email, hash, strings.TrimSpace(reg.DisplayName), familyID, database.NowUTC()).Scan(&u.ID, &created)
		if err != nil {
			return festival.Storage("insert user", err)
		}
		u.Email = email
		u.DisplayName = strings.TrimSpace(reg.DisplayName)
		u.PasswordHash = hash
		u.FamilyGroupID = familyID
		u.CreatedAt, err = database.ParseTime(created)
		return err
	})
	return u, err
}

// Authenticate returns the user with email if password matches.
func (s *Service) Authenticate(ctx context.Context, email, password string) (festival.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return festival.User{}, festival.ErrInvalidCredentials
	}
	if err != nil {
		return festival.User{}, festival.Storage("load user", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return festival.User{}, festival.ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) User(ctx context.Context, id int64) (festival.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return u, festival.ErrUserNotFound
	}
	return u, festival.Storage("load user", err)
}

// JoinFamily moves userID into the family group with inviteCode.
func (s *Service) JoinFamily(ctx context.Context, userID int64, inviteCode string) (festival.FamilyGroup, error) {
	var f festival.FamilyGroup
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		f, err = familyByCode(ctx, tx, strings.TrimSpace(inviteCode))
		if errors.Is(err, festival.ErrNotFound) {
			return festival.ErrInvalidFamilyCode
		}
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE users SET family_group_id = ? WHERE id = ?`, f.ID, userID)
		if err != nil {
			return festival.Storage("join family", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return festival.Storage("join family", err)
		} else if n == 0 {
			return festival.ErrUserNotFound
		}
		return nil
	})
	return f, err
}

const userColumns = `id, email, password_hash, display_name, family_group_id, created_at`

func scanUser(row *sql.Row) (festival.User, error) {
	var (
		u       festival.User
		family  sql.NullInt64
		created string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &family, &created)
	if err != nil {
		return u, err
	}
	if family.Valid {
		u.FamilyGroupID = &family.Int64
	}
	u.CreatedAt, err = database.ParseTime(created)
	return u, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
