package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/festival"
)

// ErrActivityChanged reports a catalog entry whose points or category
// differ from the stored activity with the same scan code. Both are fixed
// once an activity exists.
var ErrActivityChanged = errors.New("activity points or category changed")

//go:embed default.yaml
var defaultCatalog []byte

// File is the on-disk catalog format. Badges are displayed in file order.
type File struct {
	Activities []ActivitySpec `yaml:"activities" validate:"unique=ScanCode,dive"`
	Badges     []BadgeSpec    `yaml:"badges" validate:"unique=Name,dive"`
}

type ActivitySpec struct {
	Name        string            `yaml:"name" validate:"required"`
	Description string            `yaml:"description"`
	Category    festival.Category `yaml:"category" validate:"required,lowercase"`
	Points      int               `yaml:"points" validate:"gt=0"`
	ScanCode    string            `yaml:"scan_code" validate:"required,printascii"`
	Location    string            `yaml:"location"`
	Icon        string            `yaml:"icon"`
	Inactive    bool              `yaml:"inactive"`
}

type BadgeSpec struct {
	Name        string                 `yaml:"name" validate:"required"`
	Description string                 `yaml:"description"`
	Category    festival.Category      `yaml:"category" validate:"omitempty,lowercase"`
	Icon        string                 `yaml:"icon"`
	Secret      bool                   `yaml:"secret"`
	Criterion   festival.CriterionSpec `yaml:"criterion"`
}

var validate = validator.New()

// Parse decodes and validates a YAML catalog. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks field constraints and that every badge criterion is
// well formed.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("validating catalog: %w", err)
	}
	var errs []error
	for _, b := range f.Badges {
		if _, err := b.Criterion.Criterion(); err != nil {
			errs = append(errs, fmt.Errorf("badge %q: %w", b.Name, err))
		}
	}
	return errors.Join(errs...)
}

// LoadFile reads a catalog from path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in festival catalog.
func Default() *File {
	f, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded default: %v", err))
	}
	return f
}

// Apply upserts every activity and badge of f. It fails with
// ErrActivityChanged when f changes the points or category of an activity
// that is already stored.
func Apply(ctx context.Context, q database.Querier, f *File) error {
	s := New(q)
	for _, a := range f.Activities {
		stored, err := s.ActivityByCode(ctx, a.ScanCode)
		switch {
		case errors.Is(err, festival.ErrNotFound):
		case err != nil:
			return fmt.Errorf("activity %q: %w", a.Name, err)
		case stored.Points != a.Points || stored.Category != a.Category:
			return fmt.Errorf("activity %q: %w: stored %d points in %s, file has %d in %s",
				a.Name, ErrActivityChanged, stored.Points, stored.Category, a.Points, a.Category)
		}

		_, err = s.PutActivity(ctx, festival.Activity{
			Name:        a.Name,
			Description: a.Description,
			Category:    a.Category,
			Points:      a.Points,
			ScanCode:    a.ScanCode,
			Location:    a.Location,
			Icon:        a.Icon,
			Active:      !a.Inactive,
		})
		if err != nil {
			return fmt.Errorf("activity %q: %w", a.Name, err)
		}
	}
	for i, b := range f.Badges {
		c, err := b.Criterion.Criterion()
		if err != nil {
			return fmt.Errorf("badge %q: %w", b.Name, err)
		}
		raw, err := festival.MarshalCriterion(c)
		if err != nil {
			return fmt.Errorf("badge %q: %w", b.Name, err)
		}
		_, err = s.PutBadge(ctx, festival.Badge{
			Name:         b.Name,
			Description:  b.Description,
			Category:     b.Category,
			Icon:         b.Icon,
			Criteria:     raw,
			DisplayOrder: i + 1,
			Secret:       b.Secret,
		})
		if err != nil {
			return fmt.Errorf("badge %q: %w", b.Name, err)
		}
	}
	return nil
}
