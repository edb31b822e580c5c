// Package festival defines the core domain types shared by the catalog,
// ledger, scoring, badge and quest packages. It has no external dependencies.
package festival

import "time"

// Category groups activities into quests. The known set is closed for
// display purposes but the catalog accepts any lowercase slug.
type Category string

const (
	CategoryFood    Category = "food"
	CategoryCulture Category = "culture"
	CategorySports  Category = "sports"
	CategorySocial  Category = "social"
)

// Quest describes how a category is presented as a quest.
type Quest struct {
	Category Category
	Name     string
	Emoji    string
}

// Quests lists the built-in quests in board order.
var Quests = []Quest{
	{Category: CategoryFood, Name: "Foodie Explorer", Emoji: "🍴"},
	{Category: CategoryCulture, Name: "Culture Keeper", Emoji: "🎭"},
	{Category: CategorySports, Name: "Futebol Fan", Emoji: "⚽"},
	{Category: CategorySocial, Name: "Social Connector", Emoji: "🤝"},
}

// QuestFor returns the quest for c, synthesizing one for categories added
// after the built-in set.
func QuestFor(c Category) Quest {
	for _, q := range Quests {
		if q.Category == c {
			return q
		}
	}
	return Quest{Category: c, Name: string(c)}
}

type Activity struct {
	ID          int64
	Name        string
	Description string
	Category    Category
	Points      int
	ScanCode    string
	Location    string
	Icon        string
	Active      bool
	CreatedAt   time.Time
}

type Badge struct {
	ID           int64
	Name         string
	Description  string
	Category     Category
	Icon         string
	Criteria     []byte
	DisplayOrder int
	Secret       bool
}

// Completion is the immutable fact that a user finished an activity.
type Completion struct {
	ID           int64
	UserID       int64
	ActivityID   int64
	PointsEarned int
	CompletedAt  time.Time
}

type EarnedBadge struct {
	Badge
	EarnedAt time.Time
}

// Summary is derived from the completion set and never stored.
type Summary struct {
	TotalPoints     int
	TotalActivities int
	Level           int
}

// CompletionResult is the consolidated outcome of one successful scan.
type CompletionResult struct {
	Completion    Completion
	Activity      Activity
	PointsEarned  int
	TotalPoints   int
	Level         int
	PreviousLevel int
	NewBadges     []Badge
}

// LeveledUp reports whether the completion crossed a level threshold.
func (r CompletionResult) LeveledUp() bool {
	return r.Level > r.PreviousLevel
}

type FamilyGroup struct {
	ID         int64
	Name       string
	InviteCode string
	CreatedAt  time.Time
}

type User struct {
	ID            int64
	Email         string
	DisplayName   string
	PasswordHash  string
	FamilyGroupID *int64
	CreatedAt     time.Time
}
