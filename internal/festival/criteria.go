package festival

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type CriterionKind string

const (
	KindCategoryCount   CriterionKind = "category_count"
	KindTotalPoints     CriterionKind = "total_points"
	KindTotalActivities CriterionKind = "total_activities"
)

// Progress is the derived state a criterion is evaluated against.
type Progress struct {
	TotalPoints     int
	TotalActivities int
	CategoryCounts  map[Category]int
}

// Criterion is a badge unlock rule. The set of implementations is closed:
// CategoryCount, TotalPoints and TotalActivities.
type Criterion interface {
	Kind() CriterionKind
	Satisfied(p Progress) bool
	criterion()
}

// CategoryCount is met once Count activities of Category are completed.
type CategoryCount struct {
	Category Category
	Count    int
}

func (c CategoryCount) Kind() CriterionKind { return KindCategoryCount }
func (c CategoryCount) Satisfied(p Progress) bool {
	return p.CategoryCounts[c.Category] >= c.Count
}
func (CategoryCount) criterion() {}

// TotalPoints is met once the user holds at least Points points.
type TotalPoints struct {
	Points int
}

func (c TotalPoints) Kind() CriterionKind      { return KindTotalPoints }
func (c TotalPoints) Satisfied(p Progress) bool { return p.TotalPoints >= c.Points }
func (TotalPoints) criterion()                  {}

// TotalActivities is met once Count activities are completed overall.
type TotalActivities struct {
	Count int
}

func (c TotalActivities) Kind() CriterionKind { return KindTotalActivities }
func (c TotalActivities) Satisfied(p Progress) bool {
	return p.TotalActivities >= c.Count
}
func (TotalActivities) criterion() {}

// CriterionSpec is the serialized form of a criterion, shared by the
// stored JSON column and catalog files.
type CriterionSpec struct {
	Kind     CriterionKind `json:"kind" yaml:"kind"`
	Category Category      `json:"category,omitempty" yaml:"category,omitempty"`
	Count    int           `json:"count,omitempty" yaml:"count,omitempty"`
	Points   int           `json:"points,omitempty" yaml:"points,omitempty"`
}

// Criterion validates w and returns the typed criterion.
func (w CriterionSpec) Criterion() (Criterion, error) {
	switch w.Kind {
	case KindCategoryCount:
		if w.Category == "" || w.Count <= 0 || w.Points != 0 {
			return nil, fmt.Errorf("%w: category_count needs category and positive count", ErrMalformedCriterion)
		}
		return CategoryCount{Category: w.Category, Count: w.Count}, nil
	case KindTotalPoints:
		if w.Points <= 0 || w.Count != 0 || w.Category != "" {
			return nil, fmt.Errorf("%w: total_points needs positive points", ErrMalformedCriterion)
		}
		return TotalPoints{Points: w.Points}, nil
	case KindTotalActivities:
		if w.Count <= 0 || w.Points != 0 || w.Category != "" {
			return nil, fmt.Errorf("%w: total_activities needs positive count", ErrMalformedCriterion)
		}
		return TotalActivities{Count: w.Count}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedCriterion, w.Kind)
	}
}

// ParseCriterion decodes the stored JSON form of a criterion. Any decoding
// or shape problem wraps ErrMalformedCriterion.
func ParseCriterion(raw []byte) (Criterion, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var w CriterionSpec
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCriterion, err)
	}
	return w.Criterion()
}

// MarshalCriterion encodes c in the stored JSON form.
func MarshalCriterion(c Criterion) ([]byte, error) {
	var w CriterionSpec
	switch c := c.(type) {
	case CategoryCount:
		w = CriterionSpec{Kind: KindCategoryCount, Category: c.Category, Count: c.Count}
	case TotalPoints:
		w = CriterionSpec{Kind: KindTotalPoints, Points: c.Points}
	case TotalActivities:
		w = CriterionSpec{Kind: KindTotalActivities, Count: c.Count}
	default:
		return nil, fmt.Errorf("%w: unsupported criterion %T", ErrMalformedCriterion, c)
	}
	return json.Marshal(w)
}
