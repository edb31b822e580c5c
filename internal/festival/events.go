package festival

// EventType names a progress event pushed to a user's stream.
type EventType string

const (
	EventActivityCompleted EventType = "activity_completed"
	EventLevelUp           EventType = "level_up"
	EventBadgeUnlocked     EventType = "badge_unlocked"
)

type Event struct {
	Type        EventType `json:"type"`
	UserID      int64     `json:"userId"`
	ActivityID  int64     `json:"activityId,omitempty"`
	Points      int       `json:"points,omitempty"`
	TotalPoints int       `json:"totalPoints,omitempty"`
	Level       int       `json:"level,omitempty"`
	BadgeID     int64     `json:"badgeId,omitempty"`
	BadgeName   string    `json:"badgeName,omitempty"`
}

// EventsFor expands a completion result into the events it produces, in
// the order subscribers should see them.
func EventsFor(userID int64, r CompletionResult) []Event {
	events := []Event{{
		Type:        EventActivityCompleted,
		UserID:      userID,
		ActivityID:  r.Activity.ID,
		Points:      r.PointsEarned,
		TotalPoints: r.TotalPoints,
		Level:       r.Level,
	}}
	if r.LeveledUp() {
		events = append(events, Event{
			Type:        EventLevelUp,
			UserID:      userID,
			TotalPoints: r.TotalPoints,
			Level:       r.Level,
		})
	}
	for _, b := range r.NewBadges {
		events = append(events, Event{
			Type:      EventBadgeUnlocked,
			UserID:    userID,
			BadgeID:   b.ID,
			BadgeName: b.Name,
		})
	}
	return events
}
