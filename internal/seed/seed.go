// Package seed loads demo families, visitors and completions.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/playperu/festquest/internal/account"
	"github.com/playperu/festquest/internal/catalog"
	"github.com/playperu/festquest/internal/festival"
	"github.com/playperu/festquest/internal/quest"
)

// DemoPassword is shared by every demo visitor.
const DemoPassword = "password123"

type family struct {
	name, code string
}

type visitor struct {
	email, name, family string
	scans               []string
}

var families = []family{
	{name: "Santos Family", code: "SANTOS2025"},
	{name: "Silva Family", code: "SILVA2025"},
	{name: "Costa Family", code: "COSTA2025"},
}

var visitors = []visitor{
	{
		email: "maria@example.com", name: "Maria Santos", family: "SANTOS2025",
		scans: []string{"FOODIE_BACALHAU_2025", "FOODIE_PASTEIS_2025", "CULTURE_FADO_2025", "FUTEBOL_PANNA_2025"},
	},
	{
		email: "sam@example.com", name: "Sam Santos", family: "SANTOS2025",
		scans: []string{"FUTEBOL_PANNA_2025", "FUTEBOL_TRIVIA_2025"},
	},
	{
		email: "sofia@example.com", name: "Sofia Silva", family: "SILVA2025",
		scans: []string{"CULTURE_FADO_2025", "CULTURE_LANGUAGE_2025", "CULTURE_STORY_2025"},
	},
	{
		email: "miguel@example.com", name: "Miguel Costa", family: "COSTA2025",
		scans: []string{"SOCIAL_FAMILY_2025"},
	},
}

// Demo creates the demo families and visitors and replays their scans
// through the quest service, so points and badges come out exactly as
// live traffic would produce them. Idempotent: visitors that already
// exist are skipped.
func Demo(ctx context.Context, logger *slog.Logger, accounts *account.Service, quests *quest.Service, acts *catalog.Store) error {
	for _, f := range families {
		if _, err := accounts.CreateFamily(ctx, f.name, f.code); err != nil {
			return fmt.Errorf("creating family %s: %w", f.code, err)
		}
	}

	created := 0
	for _, v := range visitors {
		u, err := accounts.Register(ctx, account.Registration{
			Email:       v.email,
			Password:    DemoPassword,
			DisplayName: v.name,
			FamilyCode:  v.family,
		})
		if errors.Is(err, festival.ErrEmailTaken) {
			continue
		}
		if err != nil {
			return fmt.Errorf("registering %s: %w", v.email, err)
		}
		created++

		for _, code := range v.scans {
			a, err := acts.ActivityByCode(ctx, code)
			if errors.Is(err, festival.ErrNotFound) {
				logger.WarnContext(ctx, "demo scan code not in catalog", "scan_code", code)
				continue
			}
			if err != nil {
				return err
			}
			_, err = quests.CompleteActivity(ctx, u.ID, a.ID, code)
			if err != nil && !errors.Is(err, festival.ErrAlreadyCompleted) && !errors.Is(err, festival.ErrInvalidCode) {
				return fmt.Errorf("replaying %s for %s: %w", code, v.email, err)
			}
		}
	}

	if created > 0 {
		logger.Info("demo data seeded", "visitors", created)
	}
	return nil
}
