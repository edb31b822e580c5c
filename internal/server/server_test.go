package server

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/playperu/festquest/internal/account"
	"github.com/playperu/festquest/internal/auth"
	"github.com/playperu/festquest/internal/badges"
	"github.com/playperu/festquest/internal/catalog"
	"github.com/playperu/festquest/internal/database"
	"github.com/playperu/festquest/internal/festival"
	"github.com/playperu/festquest/internal/handler/health"
	"github.com/playperu/festquest/internal/migrations"
	"github.com/playperu/festquest/internal/progress"
	"github.com/playperu/festquest/internal/quest"
	"github.com/playperu/festquest/internal/scoring"
)

type testEnv struct {
	router   http.Handler
	db       *sql.DB
	accounts *account.Service
	tokens   *auth.Issuer
	broker   *Broker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := catalog.Apply(ctx, db, catalog.Default()); err != nil {
		t.Fatalf("apply catalog: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	levels, err := scoring.NewLevels(scoring.DefaultThresholds)
	if err != nil {
		t.Fatalf("levels: %v", err)
	}
	engine := scoring.NewEngine(levels)
	broker := NewBroker()
	accounts := account.NewService(db)
	tokens := auth.NewIssuer("test-secret", time.Hour)

	deps := Deps{
		DB:               db,
		Quests:           quest.NewService(db, engine, badges.NewEvaluator(logger), broker, logger, 1),
		Progress:         progress.NewService(db, engine),
		Accounts:         accounts,
		Tokens:           tokens,
		Broker:           broker,
		Checks:           map[string]health.Checker{"sqlite": health.SQL(db)},
		LeaderboardLimit: 10,
	}

	return &testEnv{
		router:   newRouter(logger, deps),
		db:       db,
		accounts: accounts,
		tokens:   tokens,
		broker:   broker,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email, name, familyCode string) AuthResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Email:       email,
		Password:    "password123",
		DisplayName: name,
		FamilyCode:  familyCode,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %s", email, rec.Code, rec.Body.String())
	}
	var resp AuthResponse
	decode(t, rec, &resp)
	return resp
}

func (e *testEnv) activityID(t *testing.T, scanCode string) int64 {
	t.Helper()
	a, err := catalog.New(e.db).ActivityByCode(context.Background(), scanCode)
	if err != nil {
		t.Fatalf("activity %s: %v", scanCode, err)
	}
	return a.ID
}

func (e *testEnv) complete(t *testing.T, token, scanCode string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/quests/complete", token, CompleteRequest{
		ActivityID: e.activityID(t, scanCode),
		ScanCode:   scanCode,
	})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	reg := env.register(t, "Maria@Example.com", "Maria", "")
	if reg.Token == "" {
		t.Fatal("register returned no token")
	}
	if reg.User.Email != "maria@example.com" {
		t.Errorf("email = %q, want lowercased", reg.User.Email)
	}
	if reg.User.Level != 1 || reg.User.TotalPoints != 0 {
		t.Errorf("new user = level %d / %d points, want 1 / 0", reg.User.Level, reg.User.TotalPoints)
	}

	tests := []struct {
		name       string
		body       LoginRequest
		wantStatus int
	}{
		{name: "valid", body: LoginRequest{Email: "maria@example.com", Password: "password123"}, wantStatus: http.StatusOK},
		{name: "wrong password", body: LoginRequest{Email: "maria@example.com", Password: "nope"}, wantStatus: http.StatusUnauthorized},
		{name: "unknown email", body: LoginRequest{Email: "ghost@example.com", Password: "password123"}, wantStatus: http.StatusUnauthorized},
		{name: "missing email", body: LoginRequest{Password: "password123"}, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/login", "", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Email: "maria@example.com", Password: "password123", DisplayName: "Again",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRegisterUnknownFamilyCode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Email: "sam@example.com", Password: "password123", DisplayName: "Sam", FamilyCode: "NOPE2025",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	paths := []string{"/api/users/me", "/api/quests", "/api/quests/progress", "/api/leaderboard/global", "/api/badges/earned"}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			if rec := env.do(t, http.MethodGet, p, "", nil); rec.Code != http.StatusUnauthorized {
				t.Errorf("no token: status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			if rec := env.do(t, http.MethodGet, p, "garbage", nil); rec.Code != http.StatusUnauthorized {
				t.Errorf("bad token: status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestCompleteActivity(t *testing.T) {
	env := newTestEnv(t)
	maria := env.register(t, "maria@example.com", "Maria", "")

	rec := env.complete(t, maria.Token, "FOODIE_BACALHAU_2025")
	if rec.Code != http.StatusOK {
		t.Fatalf("first scan: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var first CompleteResponse
	decode(t, rec, &first)

	if first.PointsEarned != 100 || first.TotalPoints != 100 {
		t.Errorf("points = %d earned / %d total, want 100 / 100", first.PointsEarned, first.TotalPoints)
	}
	if first.Level != 2 || !first.LeveledUp {
		t.Errorf("level = %d leveledUp = %v, want 2 true", first.Level, first.LeveledUp)
	}
	var names []string
	for _, b := range first.NewBadges {
		names = append(names, b.Name)
	}
	if want := []string{"First Steps", "Rising Star"}; !slices.Equal(names, want) {
		t.Errorf("new badges = %v, want %v in display order", names, want)
	}

	rec = env.complete(t, maria.Token, "FOODIE_BACALHAU_2025")
	if rec.Code != http.StatusConflict {
		t.Fatalf("repeat scan: status = %d, want %d", rec.Code, http.StatusConflict)
	}
	var again AlreadyCompletedResponse
	decode(t, rec, &again)
	if again.Code != codeAlreadyCompleted || again.TotalPoints != 100 || again.Level != 2 {
		t.Errorf("repeat = %+v, want already_completed with 100 points at level 2", again)
	}
}

func TestCompleteRejects(t *testing.T) {
	env := newTestEnv(t)
	maria := env.register(t, "maria@example.com", "Maria", "")
	bacalhau := env.activityID(t, "FOODIE_BACALHAU_2025")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "wrong code",
			body:       CompleteRequest{ActivityID: bacalhau, ScanCode: "CULTURE_FADO_2025"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeInvalidCode,
		},
		{
			name:       "unknown activity",
			body:       CompleteRequest{ActivityID: 9999, ScanCode: "FOODIE_BACALHAU_2025"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeInvalidCode,
		},
		{
			name:       "missing code",
			body:       CompleteRequest{ActivityID: bacalhau},
			wantStatus: http.StatusBadRequest,
			wantCode:   codeInvalidRequest,
		},
		{
			name:       "malformed json",
			body:       "not an object",
			wantStatus: http.StatusBadRequest,
			wantCode:   codeInvalidRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/quests/complete", maria.Token, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var resp ErrorResponse
			decode(t, rec, &resp)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}

	rec := env.do(t, http.MethodGet, "/api/users/me", maria.Token, nil)
	var me UserResponse
	decode(t, rec, &me)
	if me.TotalPoints != 0 {
		t.Errorf("points after rejected scans = %d, want 0", me.TotalPoints)
	}
}

func TestActivitiesHideScanCodes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/activities", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "_2025") {
		t.Error("activity list leaks scan codes")
	}
	var acts []ActivityResponse
	decode(t, rec, &acts)
	if len(acts) != 14 {
		t.Errorf("activities = %d, want 14", len(acts))
	}

	id := env.activityID(t, "FOODIE_BACALHAU_2025")
	path := "/api/activities/" + strconv.FormatInt(id, 10)
	if rec := env.do(t, http.MethodGet, path, "", nil); rec.Code != http.StatusOK {
		t.Fatalf("active activity status = %d, want %d", rec.Code, http.StatusOK)
	}
	if err := catalog.New(env.db).Deactivate(context.Background(), id); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if rec := env.do(t, http.MethodGet, path, "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("inactive activity status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = env.do(t, http.MethodGet, "/api/activities/9999", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown activity status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	rec = env.do(t, http.MethodGet, "/api/activities/abc", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestBadgesHideSecret(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/badges", "", nil)
	var bs []BadgeResponse
	decode(t, rec, &bs)

	if len(bs) != 8 {
		t.Fatalf("badges = %d, want 8", len(bs))
	}
	for i, b := range bs {
		if b.Name == "Completionist" {
			t.Error("secret badge listed")
		}
		if i > 0 && b.DisplayOrder < bs[i-1].DisplayOrder {
			t.Errorf("badges not in display order at %d", i)
		}
	}
}

func TestQuestBoardAndProgress(t *testing.T) {
	env := newTestEnv(t)
	maria := env.register(t, "maria@example.com", "Maria", "")

	for _, code := range []string{"CULTURE_FADO_2025", "CULTURE_LANGUAGE_2025", "CULTURE_STORY_2025"} {
		if rec := env.complete(t, maria.Token, code); rec.Code != http.StatusOK {
			t.Fatalf("complete %s: status = %d", code, rec.Code)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/quests", maria.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("quests status = %d", rec.Code)
	}
	var board []QuestResponse
	decode(t, rec, &board)

	var culture *QuestResponse
	for i := range board {
		if board[i].Category == string(festival.CategoryCulture) {
			culture = &board[i]
		}
	}
	if culture == nil {
		t.Fatal("culture quest missing")
	}
	if culture.Progress != (QuestProgress{Total: 3, Completed: 3, Percentage: 100}) {
		t.Errorf("culture progress = %+v", culture.Progress)
	}

	rec = env.do(t, http.MethodGet, "/api/quests/progress", maria.Token, nil)
	var p ProgressResponse
	decode(t, rec, &p)
	if p.TotalActivities != 3 || p.Rank != 1 {
		t.Errorf("progress = %d activities rank %d, want 3 rank 1", p.TotalActivities, p.Rank)
	}
	found := false
	for _, b := range p.Badges {
		if b.Name == "Culture Keeper" {
			found = true
		}
	}
	if !found {
		t.Error("Culture Keeper not in progress badges")
	}
}

func TestLeaderboards(t *testing.T) {
	env := newTestEnv(t)

	fam, err := env.accounts.CreateFamily(context.Background(), "Santos", "SANTOS2025")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	maria := env.register(t, "maria@example.com", "Maria", "SANTOS2025")
	sam := env.register(t, "sam@example.com", "Sam", "santos2025")
	loner := env.register(t, "solo@example.com", "Solo", "")

	env.complete(t, maria.Token, "FUTEBOL_PANNA_2025")
	env.complete(t, loner.Token, "FOODIE_BACALHAU_2025")

	rec := env.do(t, http.MethodGet, "/api/leaderboard/global", sam.Token, nil)
	var global LeaderboardResponse
	decode(t, rec, &global)
	if len(global.Entries) != 3 {
		t.Fatalf("global entries = %d, want 3", len(global.Entries))
	}
	if global.Entries[0].DisplayName != "Maria" || global.Entries[0].Rank != 1 {
		t.Errorf("leader = %+v, want Maria at rank 1", global.Entries[0])
	}

	rec = env.do(t, http.MethodGet, "/api/leaderboard/global?limit=1", sam.Token, nil)
	decode(t, rec, &global)
	if len(global.Entries) != 1 {
		t.Errorf("limited entries = %d, want 1", len(global.Entries))
	}

	rec = env.do(t, http.MethodGet, "/api/leaderboard/family", sam.Token, nil)
	var family LeaderboardResponse
	decode(t, rec, &family)
	if family.Scope != "family" || len(family.Entries) != 2 {
		t.Fatalf("family board = %+v, want 2 members", family)
	}

	rec = env.do(t, http.MethodGet, "/api/leaderboard/family", loner.Token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("no family status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	path := "/api/leaderboard/family/" + strconv.FormatInt(fam.ID, 10)
	if rec := env.do(t, http.MethodGet, path, loner.Token, nil); rec.Code != http.StatusOK {
		t.Errorf("family by id status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/leaderboard/family/9999", loner.Token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown family status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestFamilyCreateAndMembers(t *testing.T) {
	env := newTestEnv(t)
	ana := env.register(t, "ana@example.com", "Ana", "")
	ben := env.register(t, "ben@example.com", "Ben", "")

	rec := env.do(t, http.MethodGet, "/api/users/me/family", ana.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("no family status = %d, want %d", rec.Code, http.StatusOK)
	}
	var mine MyFamilyResponse
	decode(t, rec, &mine)
	if mine.Family != nil || mine.Members == nil || len(mine.Members) != 0 {
		t.Errorf("no family = %+v, want null family and empty members", mine)
	}

	tests := []struct {
		name string
		body CreateFamilyRequest
		want int
	}{
		{"empty name", CreateFamilyRequest{Name: ""}, http.StatusBadRequest},
		{"name too long", CreateFamilyRequest{Name: strings.Repeat("x", 81)}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(t, http.MethodPost, "/api/families", ana.Token, tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if rec := env.do(t, http.MethodPost, "/api/families", "", CreateFamilyRequest{Name: "Silva"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous create status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = env.do(t, http.MethodPost, "/api/families", ana.Token, CreateFamilyRequest{Name: "Silva"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var fam FamilyResponse
	decode(t, rec, &fam)
	if fam.Name != "Silva" || len(fam.InviteCode) != 8 {
		t.Fatalf("family = %+v, want Silva with an 8 character code", fam)
	}

	rec = env.do(t, http.MethodPost, "/api/users/me/family", ben.Token, JoinFamilyRequest{InviteCode: fam.InviteCode})
	if rec.Code != http.StatusOK {
		t.Fatalf("join status = %d, body = %s", rec.Code, rec.Body.String())
	}
	env.complete(t, ana.Token, "FUTEBOL_PANNA_2025")

	rec = env.do(t, http.MethodGet, "/api/users/me/family", ben.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("members status = %d", rec.Code)
	}
	decode(t, rec, &mine)
	if mine.Family == nil || mine.Family.ID != fam.ID || mine.Family.InviteCode != fam.InviteCode {
		t.Fatalf("family = %+v, want %+v", mine.Family, fam)
	}
	want := []LeaderboardEntryResponse{
		{Rank: 1, UserID: ana.User.ID, DisplayName: "Ana", TotalPoints: 125, Level: 2},
		{Rank: 2, UserID: ben.User.ID, DisplayName: "Ben", TotalPoints: 0, Level: 1},
	}
	if len(mine.Members) != len(want) {
		t.Fatalf("members = %d, want %d", len(mine.Members), len(want))
	}
	for i, w := range want {
		got := mine.Members[i]
		if got.Rank != w.Rank || got.UserID != w.UserID || got.DisplayName != w.DisplayName ||
			got.TotalPoints != w.TotalPoints || got.Level != w.Level {
			t.Errorf("member %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp health.Response
	decode(t, rec, &resp)
	if resp["sqlite"].Status != "ok" {
		t.Errorf("sqlite = %q, want ok", resp["sqlite"].Status)
	}
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t)
	maria := env.register(t, "maria@example.com", "Maria", "")

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	if resp, err := http.Get(srv.URL + "/api/events"); err != nil {
		t.Fatalf("get: %v", err)
	} else {
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("no token status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?token="+maria.Token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}

	// The handler subscribes after flushing headers; wait until it is registered.
	deadline := time.Now().Add(2 * time.Second)
	for {
		env.broker.mu.RLock()
		n := len(env.broker.subs[maria.User.ID])
		env.broker.mu.RUnlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if rec := env.complete(t, maria.Token, "FOODIE_BACALHAU_2025"); rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d", rec.Code)
	}

	sc := bufio.NewScanner(resp.Body)
	var got []string
	for sc.Scan() && len(got) < 1 {
		line := sc.Text()
		if ev, ok := strings.CutPrefix(line, "event: "); ok {
			got = append(got, ev)
		}
	}
	if len(got) == 0 || got[0] != string(festival.EventActivityCompleted) {
		t.Errorf("first event = %v, want %s", got, festival.EventActivityCompleted)
	}
}
