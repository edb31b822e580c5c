package account

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/festival"
)

const familyColumns = `id, name, invite_code, created_at`

func scanFamily(row *sql.Row) (festival.FamilyGroup, error) {
	var (
		f       festival.FamilyGroup
		created string
	)
	if err := row.Scan(&f.ID, &f.Name, &f.InviteCode, &created); err != nil {
		return f, err
	}
	var err error
	f.CreatedAt, err = database.ParseTime(created)
	return f, err
}

func familyByCode(ctx context.Context, q database.Querier, code string) (festival.FamilyGroup, error) {
	f, err := scanFamily(q.QueryRowContext(ctx,
		`SELECT `+familyColumns+` FROM family_groups WHERE invite_code = ?`, strings.ToUpper(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return f, festival.ErrNotFound
	}
	return f, festival.Storage("load family", err)
}

func (s *Service) Family(ctx context.Context, id int64) (festival.FamilyGroup, error) {
	f, err := scanFamily(s.db.QueryRowContext(ctx,
		`SELECT `+familyColumns+` FROM family_groups WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return f, festival.ErrNotFound
	}
	return f, festival.Storage("load family", err)
}

// CreateFamily creates a family group, or renames the group already
// holding inviteCode. An empty inviteCode gets a fresh random code.
func (s *Service) CreateFamily(ctx context.Context, name, inviteCode string) (festival.FamilyGroup, error) {
	code := strings.ToUpper(strings.TrimSpace(inviteCode))
	if code == "" {
		return insertFamily(ctx, s.db, name)
	}
	f, err := scanFamily(s.db.QueryRowContext(ctx, `
		INSERT INTO family_groups (name, invite_code, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (invite_code) DO UPDATE SET name = excluded.name
		RETURNING `+familyColumns,
		strings.TrimSpace(name), code, database.NowUTC()))
	return f, festival.Storage("create family", err)
}

// FoundFamily creates a family group with a random invite code and moves
// userID into it.
func (s *Service) FoundFamily(ctx context.Context, userID int64, name string) (festival.FamilyGroup, error) {
	var f festival.FamilyGroup
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if f, err = insertFamily(ctx, tx, name); err != nil {
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

const inviteCodeAttempts = 5

// insertFamily inserts a group under a random invite code, drawing a new
// code when one is already taken.
func insertFamily(ctx context.Context, q database.Querier, name string) (festival.FamilyGroup, error) {
	for range inviteCodeAttempts {
		f, err := scanFamily(q.QueryRowContext(ctx, `
			INSERT INTO family_groups (name, invite_code, created_at)
			VALUES (?, ?, ?)
			ON CONFLICT (invite_code) DO NOTHING
			RETURNING `+familyColumns,
			strings.TrimSpace(name), newInviteCode(), database.NowUTC()))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		return f, festival.Storage("create family", err)
	}
	return festival.FamilyGroup{}, festival.Storage("create family",
		fmt.Errorf("no free invite code after %d attempts", inviteCodeAttempts))
}

const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newInviteCode() string {
	b := make([]byte, 8)
	rand.Read(b)
	for i := range b {
		b[i] = inviteAlphabet[int(b[i])%len(inviteAlphabet)]
	}
	return string(b)
}
