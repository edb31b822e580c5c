package server

import (
	"time"

	"github.com/playperu/festquest/internal/festival"
	"github.com/playperu/festquest/internal/progress"
)

// ActivityResponse never carries the scan code.
type ActivityResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Points      int    `json:"points"`
	Location    string `json:"location"`
	Icon        string `json:"icon"`
	Active      bool   `json:"active"`
}

type BadgeResponse struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Category     string     `json:"category,omitempty"`
	Icon         string     `json:"icon"`
	DisplayOrder int        `json:"displayOrder"`
	EarnedAt     *time.Time `json:"earnedAt,omitempty"`
}

type UserResponse struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	DisplayName     string    `json:"displayName"`
	FamilyGroupID   *int64    `json:"familyGroupId"`
	TotalPoints     int       `json:"totalPoints"`
	TotalActivities int       `json:"totalActivities"`
	Level           int       `json:"level"`
	CreatedAt       time.Time `json:"createdAt"`
}

type FamilyResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"inviteCode"`
}

type QuestActivityResponse struct {
	ActivityResponse
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type QuestProgress struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Percentage int `json:"percentage"`
}

type QuestResponse struct {
	Category   string                  `json:"category"`
	Name       string                  `json:"name"`
	Emoji      string                  `json:"emoji"`
	Activities []QuestActivityResponse `json:"activities"`
	Progress   QuestProgress           `json:"progress"`
}

type CategoryProgressResponse struct {
	Category     string `json:"category"`
	Name         string `json:"name"`
	Total        int    `json:"total"`
	Completed    int    `json:"completed"`
	PointsEarned int    `json:"pointsEarned"`
	Percentage   int    `json:"percentage"`
}

type ProgressResponse struct {
	TotalPoints       int                        `json:"totalPoints"`
	TotalActivities   int                        `json:"totalActivities"`
	Level             int                        `json:"level"`
	NextLevelAt       *int                       `json:"nextLevelAt"`
	PointsToNextLevel int                        `json:"pointsToNextLevel"`
	Rank              int                        `json:"rank"`
	Quests            []CategoryProgressResponse `json:"quests"`
	Badges            []BadgeResponse            `json:"badges"`
}

type LeaderboardEntryResponse struct {
	Rank        int    `json:"rank"`
	UserID      int64  `json:"userId"`
	DisplayName string `json:"displayName"`
	FamilyName  string `json:"familyName,omitempty"`
	TotalPoints int    `json:"totalPoints"`
	Level       int    `json:"level"`
	Activities  int    `json:"activitiesCompleted"`
	Badges      int    `json:"badgesEarned"`
}

type LeaderboardResponse struct {
	Scope   string                     `json:"scope"`
	Entries []LeaderboardEntryResponse `json:"entries"`
}

func toActivity(a festival.Activity) ActivityResponse {
	return ActivityResponse{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Category:    string(a.Category),
		Points:      a.Points,
		Location:    a.Location,
		Icon:        a.Icon,
		Active:      a.Active,
	}
}

func toBadge(b festival.Badge) BadgeResponse {
	return BadgeResponse{
		ID:           b.ID,
		Name:         b.Name,
		Description:  b.Description,
		Category:     string(b.Category),
		Icon:         b.Icon,
		DisplayOrder: b.DisplayOrder,
	}
}

func toBadges(bs []festival.Badge) []BadgeResponse {
	out := make([]BadgeResponse, len(bs))
	for i, b := range bs {
		out[i] = toBadge(b)
	}
	return out
}

func toEarnedBadges(bs []festival.EarnedBadge) []BadgeResponse {
	out := make([]BadgeResponse, len(bs))
	for i, b := range bs {
		out[i] = toBadge(b.Badge)
		out[i].EarnedAt = &bs[i].EarnedAt
	}
	return out
}

func toUser(u festival.User, s festival.Summary) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		DisplayName:     u.DisplayName,
		FamilyGroupID:   u.FamilyGroupID,
		TotalPoints:     s.TotalPoints,
		TotalActivities: s.TotalActivities,
		Level:           s.Level,
		CreatedAt:       u.CreatedAt,
	}
}

func toQuests(board []progress.QuestView) []QuestResponse {
	out := make([]QuestResponse, 0, len(board))
	for _, q := range board {
		qr := QuestResponse{
			Category:   string(q.Category),
			Name:       q.Name,
			Emoji:      q.Emoji,
			Activities: make([]QuestActivityResponse, 0, len(q.Activities)),
			Progress:   QuestProgress{Total: q.Total, Completed: q.Completed, Percentage: q.Percentage},
		}
		for _, a := range q.Activities {
			qr.Activities = append(qr.Activities, QuestActivityResponse{
				ActivityResponse: toActivity(a.Activity),
				Completed:        a.Completed,
				CompletedAt:      a.CompletedAt,
			})
		}
		out = append(out, qr)
	}
	return out
}

func toProgress(v progress.View) ProgressResponse {
	resp := ProgressResponse{
		TotalPoints:       v.TotalPoints,
		TotalActivities:   v.TotalActivities,
		Level:             v.Level,
		NextLevelAt:       v.NextLevelAt,
		PointsToNextLevel: v.PointsToNext,
		Rank:              v.Rank,
		Quests:            make([]CategoryProgressResponse, 0, len(v.Categories)),
		Badges:            toEarnedBadges(v.Badges),
	}
	for _, c := range v.Categories {
		resp.Quests = append(resp.Quests, CategoryProgressResponse{
			Category:     string(c.Category),
			Name:         c.Name,
			Total:        c.Total,
			Completed:    c.Completed,
			PointsEarned: c.PointsEarned,
			Percentage:   c.Percentage,
		})
	}
	return resp
}

func toLeaderboard(scope string, entries []progress.LeaderboardEntry) LeaderboardResponse {
	resp := LeaderboardResponse{Scope: scope, Entries: make([]LeaderboardEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, LeaderboardEntryResponse{
			Rank:        e.Rank,
			UserID:      e.UserID,
			DisplayName: e.DisplayName,
			FamilyName:  e.FamilyName,
			TotalPoints: e.TotalPoints,
			Level:       e.Level,
			Activities:  e.Activities,
			Badges:      e.Badges,
		})
	}
	return resp
}
