package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/playperu/festquest/internal/auth"
	"github.com/playperu/festquest/internal/catalog"
	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/festival"
	"github.com/playperu/festquest/internal/migrations"
	"github.com/playperu/festquest/internal/seed"
)

// NewMigrateCommand applies pending schema migrations.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Apply pending schema migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), opts, cmd)
			if err != nil {
				return commandError(err)
			}
			defer e.close()

			v, err := migrations.Version(cmd.Context(), e.db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", e.cfg.DBPath, v)
			return nil
		},
	}
}

// NewSeedCommand loads the activity catalog and, optionally, demo data.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	var (
		file string
		demo bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the activity and badge catalog",
		Long: `Upsert activities and badges from a YAML catalog file, or the built-in
festival catalog when --file is omitted. Existing activities keep their
points and category. With --demo, demo families and visitors are created
and their scans replayed.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := catalog.Default()
			if file != "" {
				var err error
				if f, err = catalog.LoadFile(file); err != nil {
					return commandError(err)
				}
			}

			ctx := cmd.Context()
			e, err := openEnv(ctx, opts, cmd)
			if err != nil {
				return commandError(err)
			}
			defer e.close()

			err = database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
				return catalog.Apply(ctx, tx, f)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog: %d activities, %d badges\n", len(f.Activities), len(f.Badges))

			if demo {
				if err := seed.Demo(ctx, e.logger, e.accounts, e.quests, catalog.New(e.db)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "demo visitors ready (password %q)\n", seed.DemoPassword)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file")
	cmd.Flags().BoolVar(&demo, "demo", false, "also create demo families and visitors")
	return cmd
}

// NewCatalogCommand groups catalog file tooling.
func NewCatalogCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect catalog files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:          "validate <file>",
		Short:        "Check a catalog file without touching the database",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), opts.Format, map[string]int{
				"activities": len(f.Activities),
				"badges":     len(f.Badges),
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:          "default",
		Short:        "Print the built-in festival catalog",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return write(cmd.OutOrStdout(), opts.Format, catalog.Default())
		},
	})

	return cmd
}

// NewDeactivateCommand hides an activity from new scans. Completions
// already recorded keep their points.
func NewDeactivateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "deactivate <activity-id>",
		Short:        "Stop accepting scans for an activity",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return commandError(fmt.Errorf("invalid activity id %q", args[0]))
			}

			e, err := openEnv(cmd.Context(), opts, cmd)
			if err != nil {
				return commandError(err)
			}
			defer e.close()

			if err := catalog.New(e.db).Deactivate(cmd.Context(), id); err != nil {
				if errors.Is(err, festival.ErrNotFound) {
					return fmt.Errorf("activity %d not found", id)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "activity %d deactivated\n", id)
			return nil
		},
	}
}

// NewTokenCommand issues a bearer token for a user, for support and
// load testing.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var (
		userID int64
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:          "token",
		Short:        "Issue a bearer token for a user",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), opts, cmd)
			if err != nil {
				return commandError(err)
			}
			defer e.close()

			if _, err := e.accounts.User(cmd.Context(), userID); err != nil {
				return err
			}
			if ttl == 0 {
				ttl = e.cfg.TokenTTL
			}

			token, expires, err := auth.NewIssuer(e.cfg.JWTSecret, ttl).Issue(userID)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), opts.Format, tokenOutput{
				Token:     token,
				ExpiresAt: expires.UTC().Format(time.RFC3339),
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default $TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

type tokenOutput struct {
	Token     string `json:"token" yaml:"token"`
	ExpiresAt string `json:"expiresAt" yaml:"expiresAt"`
}

// NewFamilyCommand groups family administration subcommands.
func NewFamilyCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "family",
		Short: "Manage family groups",
	}

	var code string
	create := &cobra.Command{
		Use:          "create <name>",
		Short:        "Create a family group and print its invite code",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return commandError(errors.New("family name is empty"))
			}

			e, err := openEnv(cmd.Context(), opts, cmd)
			if err != nil {
				return commandError(err)
			}
			defer e.close()

			f, err := e.accounts.CreateFamily(cmd.Context(), name, code)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), opts.Format, familyOutput{
				ID:         f.ID,
				Name:       f.Name,
				InviteCode: f.InviteCode,
			})
		},
	}
	create.Flags().StringVar(&code, "code", "", "invite code (random when empty)")
	cmd.AddCommand(create)
	return cmd
}

type familyOutput struct {
	ID         int64  `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	InviteCode string `json:"inviteCode" yaml:"inviteCode"`
}

// NewProgressCommand prints a user's progress view.
func NewProgressCommand(opts *RootOptions) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:          "progress",
		Short:        "Show a user's points, level, quests and badges",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), opts, cmd)
			if err != nil {
				return commandError(err)
			}
			defer e.close()

			out, err := progressFor(cmd.Context(), e, userID)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), opts.Format, out)
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

type questOutput struct {
	Category  string `json:"category" yaml:"category"`
	Completed int    `json:"completed" yaml:"completed"`
	Total     int    `json:"total" yaml:"total"`
	Points    int    `json:"points" yaml:"points"`
}

type progressOutput struct {
	User         string        `json:"user" yaml:"user"`
	TotalPoints  int           `json:"totalPoints" yaml:"totalPoints"`
	Level        int           `json:"level" yaml:"level"`
	PointsToNext int           `json:"pointsToNext,omitempty" yaml:"pointsToNext,omitempty"`
	Rank         int           `json:"rank" yaml:"rank"`
	Quests       []questOutput `json:"quests" yaml:"quests"`
	Badges       []string      `json:"badges" yaml:"badges"`
}

func progressFor(ctx context.Context, e *env, userID int64) (progressOutput, error) {
	u, err := e.accounts.User(ctx, userID)
	if err != nil {
		return progressOutput{}, err
	}
	v, err := e.progress.Progress(ctx, userID)
	if err != nil {
		return progressOutput{}, err
	}

	out := progressOutput{
		User:         u.DisplayName,
		TotalPoints:  v.TotalPoints,
		Level:        v.Level,
		PointsToNext: v.PointsToNext,
		Rank:         v.Rank,
		Quests:       make([]questOutput, 0, len(v.Categories)),
		Badges:       make([]string, 0, len(v.Badges)),
	}
	for _, c := range v.Categories {
		out.Quests = append(out.Quests, questOutput{
			Category:  string(c.Category),
			Completed: c.Completed,
			Total:     c.Total,
			Points:    c.PointsEarned,
		})
	}
	for _, b := range v.Badges {
		out.Badges = append(out.Badges, b.Name)
	}
	return out, nil
}
