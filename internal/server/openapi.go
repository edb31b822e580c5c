package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/festquest/internal/handler/health"
)

type operation struct {
	method, path, summary, description string
	req                                any
	resp                               any
	status                             int
	errors                             []int
}

var operations = []operation{
	{
		method: http.MethodGet, path: "/healthz",
		summary: "Health check", description: "Returns the health status of backend dependencies.",
		resp: health.Response{}, status: http.StatusOK,
		errors: []int{http.StatusServiceUnavailable},
	},
	{
		method: http.MethodPost, path: "/api/auth/register",
		summary: "Register", description: "Creates an account, optionally joining a family group, and returns a bearer token.",
		req: RegisterRequest{}, resp: AuthResponse{}, status: http.StatusCreated,
		errors: []int{http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity},
	},
	{
		method: http.MethodPost, path: "/api/auth/login",
		summary: "Log in", description: "Exchanges email and password for a bearer token.",
		req: LoginRequest{}, resp: AuthResponse{}, status: http.StatusOK,
		errors: []int{http.StatusBadRequest, http.StatusUnauthorized},
	},
	{
		method: http.MethodGet, path: "/api/activities",
		summary: "List activities", description: "Returns the active activities. Scan codes are never included.",
		resp: []ActivityResponse{}, status: http.StatusOK,
	},
	{
		method: http.MethodGet, path: "/api/activities/{id}",
		summary: "Get activity", description: "Returns one activity.",
		req: struct {
			ID int64 `path:"id"`
		}{}, resp: ActivityResponse{}, status: http.StatusOK,
		errors: []int{http.StatusNotFound},
	},
	{
		method: http.MethodGet, path: "/api/badges",
		summary: "List badges", description: "Returns the badge catalog in display order. Secret badges are hidden.",
		resp: []BadgeResponse{}, status: http.StatusOK,
	},
	{
		method: http.MethodGet, path: "/api/events",
		summary: "SSE event stream", description: "Server-Sent Events stream of the caller's progress events. Pass token as query parameter.",
		req: struct {
			Token string `query:"token"`
		}{}, status: http.StatusOK,
		errors: []int{http.StatusUnauthorized},
	},
	{
		method: http.MethodGet, path: "/api/users/me",
		summary: "Current user", description: "Returns the caller's profile with derived points and level. Requires Bearer token.",
		resp: UserResponse{}, status: http.StatusOK,
		errors: []int{http.StatusUnauthorized},
	},
	{
		method: http.MethodPost, path: "/api/users/me/family",
		summary: "Join family group", description: "Moves the caller into the family group with the invite code. Requires Bearer token.",
		req: JoinFamilyRequest{}, resp: FamilyResponse{}, status: http.StatusOK,
		errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusUnprocessableEntity},
	},
	{
		method: http.MethodGet, path: "/api/users/me/family",
		summary: "My family group", description: "Returns the caller's family group and its members ranked by points. Family is null when the caller has none. Requires Bearer token.",
		resp: MyFamilyResponse{}, status: http.StatusOK,
		errors: []int{http.StatusUnauthorized},
	},
	{
		method: http.MethodPost, path: "/api/families",
		summary: "Create family group", description: "Creates a family group with a generated invite code and moves the caller into it. Requires Bearer token.",
		req: CreateFamilyRequest{}, resp: FamilyResponse{}, status: http.StatusCreated,
		errors: []int{http.StatusBadRequest, http.StatusUnauthorized},
	},
	{
		method: http.MethodGet, path: "/api/badges/earned",
		summary: "Earned badges", description: "Returns the caller's badges, most recent first. Requires Bearer token.",
		resp: []BadgeResponse{}, status: http.StatusOK,
		errors: []int{http.StatusUnauthorized},
	},
	{
		method: http.MethodGet, path: "/api/quests",
		summary: "Quest board", description: "Returns active activities grouped into quests with the caller's completion status. Requires Bearer token.",
		resp: []QuestResponse{}, status: http.StatusOK,
		errors: []int{http.StatusUnauthorized},
	},
	{
		method: http.MethodGet, path: "/api/quests/progress",
		summary: "Quest progress", description: "Returns points, level, per-quest progress and earned badges. Requires Bearer token.",
		resp: ProgressResponse{}, status: http.StatusOK,
		errors: []int{http.StatusUnauthorized},
	},
	{
		method: http.MethodPost, path: "/api/quests/complete",
		summary: "Complete activity", description: "Submits a scanned code. Points are granted at most once per activity. Requires Bearer token.",
		req: CompleteRequest{}, resp: CompleteResponse{}, status: http.StatusOK,
		errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusUnprocessableEntity, http.StatusServiceUnavailable},
	},
	{
		method: http.MethodGet, path: "/api/leaderboard/global",
		summary: "Global leaderboard", description: "Ranks users by points. Requires Bearer token.",
		req: struct {
			Limit int `query:"limit"`
		}{}, resp: LeaderboardResponse{}, status: http.StatusOK,
		errors: []int{http.StatusUnauthorized},
	},
	{
		method: http.MethodGet, path: "/api/leaderboard/family",
		summary: "Family leaderboard", description: "Ranks the members of the caller's family group. Requires Bearer token.",
		resp: LeaderboardResponse{}, status: http.StatusOK,
		errors: []int{http.StatusUnauthorized, http.StatusNotFound},
	},
	{
		method: http.MethodGet, path: "/api/leaderboard/family/{familyID}",
		summary: "Family leaderboard by id", description: "Ranks the members of a family group. Requires Bearer token.",
		req: struct {
			FamilyID int64 `path:"familyID"`
		}{}, resp: LeaderboardResponse{}, status: http.StatusOK,
		errors: []int{http.StatusUnauthorized, http.StatusNotFound},
	},
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Festquest API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Quest, points and badge progression for festival visitors.")

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.description)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		if op.path == "/api/events" {
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(op.status),
				openapi.WithContentType("text/event-stream"))
		} else {
			oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(op.status))
		}
		for _, status := range op.errors {
			if op.path == "/healthz" {
				oc.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(status))
				continue
			}
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(status))
		}
		if op.path == "/api/quests/complete" {
			oc.AddRespStructure(AlreadyCompletedResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func handleSwaggerUI() http.HandlerFunc {
	return v5emb.New("Festquest API", "/openapi.json", "/docs").ServeHTTP
}
