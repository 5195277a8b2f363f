package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wirechat/wirechat/internal/auth"
	"github.com/wirechat/wirechat/internal/authz"
	"github.com/wirechat/wirechat/internal/broker"
	"github.com/wirechat/wirechat/internal/db"
	"github.com/wirechat/wirechat/internal/store"
)

// getTestPool returns a connection to the test database, or skips.
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration tests")
	}

	pool, err := db.Open(context.Background(), dbURL, 4)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.Migrate(context.Background(), pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return pool
}

type testEnv struct {
	t      *testing.T
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	pool := getTestPool(t)
	t.Cleanup(pool.Close)

	tokens, err := auth.NewService("integration-test-secret-0123456789", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	st := store.New(pool)
	brk := broker.New(nil) // no redis in tests, local dispatch only
	t.Cleanup(brk.Close)

	s := &Server{
		Store:  st,
		Auth:   tokens,
		Authz:  authz.New(st),
		Broker: brk,
	}
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return &testEnv{t: t, server: srv}
}

// do fires a JSON request, optionally authenticated, and decodes the body
// into out when it is non-nil.
func (e *testEnv) do(method, path, token string, body, out any) int {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		e.t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.t.Fatalf("read response: %v", err)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			e.t.Fatalf("%s %s: bad response body %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode
}

// signup registers a fresh user and returns their id and access token.
func (e *testEnv) signup(prefix string) (int64, string) {
	e.t.Helper()
	username := fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano()%1_000_000_000)

	var reg struct {
		ID int64 `json:"id"`
	}
	code := e.do(http.MethodPost, "/auth/register", "", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct-horse-battery",
	}, &reg)
	if code != http.StatusCreated {
		e.t.Fatalf("register %s: code %d", username, code)
	}

	var pair auth.TokenPair
	code = e.do(http.MethodPost, "/auth/login", "", map[string]any{
		"username": username,
		"password": "correct-horse-battery",
	}, &pair)
	if code != http.StatusOK {
		e.t.Fatalf("login %s: code %d", username, code)
	}
	return reg.ID, pair.AccessToken
}

func TestRegisterLoginMe(t *testing.T) {
	e := newTestEnv(t)
	userID, token := e.signup("alice")

	var me struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	if code := e.do(http.MethodGet, "/me", token, nil, &me); code != http.StatusOK {
		t.Fatalf("/me code = %d", code)
	}
	if me.ID != userID {
		t.Errorf("/me id = %d, want %d", me.ID, userID)
	}

	// No token, bad token.
	if code := e.do(http.MethodGet, "/me", "", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("unauthenticated /me code = %d", code)
	}
	if code := e.do(http.MethodGet, "/me", "garbage", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("garbage-token /me code = %d", code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestEnv(t)
	_, _ = e.signup("bob")

	code := e.do(http.MethodPost, "/auth/login", "", map[string]any{
		"username": "no_such_user_here",
		"password": "whatever-pass",
	}, nil)
	if code != http.StatusUnauthorized {
		t.Errorf("missing-user login code = %d", code)
	}
}

func TestMessageLifecycle(t *testing.T) {
	e := newTestEnv(t)
	_, owner := e.signup("owner")
	memberID, member := e.signup("member")

	var chat struct {
		ID int64 `json:"id"`
	}
	title := "standup"
	code := e.do(http.MethodPost, "/chats", owner, map[string]any{
		"type":       "group",
		"title":      title,
		"member_ids": []int64{memberID},
	}, &chat)
	if code != http.StatusCreated {
		t.Fatalf("create chat code = %d", code)
	}
	base := fmt.Sprintf("/chats/%d/messages", chat.ID)

	var msg struct {
		ID      int64   `json:"id"`
		Content *string `json:"content"`
	}
	code = e.do(http.MethodPost, base, member, map[string]any{
		"content": "hello there",
	}, &msg)
	if code != http.StatusCreated {
		t.Fatalf("send message code = %d", code)
	}
	if msg.Content == nil || *msg.Content != "hello there" {
		t.Errorf("echoed content = %v", msg.Content)
	}

	var listed []struct {
		ID int64 `json:"id"`
	}
	if code := e.do(http.MethodGet, base, owner, nil, &listed); code != http.StatusOK {
		t.Fatalf("list messages code = %d", code)
	}
	if len(listed) == 0 || listed[len(listed)-1].ID != msg.ID {
		t.Errorf("new message not last in history: %+v", listed)
	}

	// Edit is sender-only.
	edit := fmt.Sprintf("%s/%d", base, msg.ID)
	if code := e.do(http.MethodPut, edit, owner, map[string]any{"content": "hijacked"}, nil); code != http.StatusForbidden {
		t.Errorf("foreign edit code = %d, want 403", code)
	}
	if code := e.do(http.MethodPut, edit, member, map[string]any{"content": "hello again"}, nil); code != http.StatusOK {
		t.Errorf("own edit code = %d", code)
	}

	// Reactions toggle.
	react := fmt.Sprintf("%s/%d/reactions", base, msg.ID)
	var toggle struct {
		Action string `json:"action"`
	}
	e.do(http.MethodPost, react, owner, map[string]any{"emoji": "👍"}, &toggle)
	if toggle.Action != "added" {
		t.Errorf("first toggle = %q", toggle.Action)
	}
	e.do(http.MethodPost, react, owner, map[string]any{"emoji": "👍"}, &toggle)
	if toggle.Action != "removed" {
		t.Errorf("second toggle = %q", toggle.Action)
	}

	// Delete for everyone by the sender.
	if code := e.do(http.MethodDelete, edit, member, map[string]any{"for_everyone": true}, nil); code != http.StatusNoContent {
		t.Errorf("delete code = %d", code)
	}
}

func TestMessagePagingWindows(t *testing.T) {
	e := newTestEnv(t)
	_, owner := e.signup("owner")

	var chat struct {
		ID int64 `json:"id"`
	}
	if code := e.do(http.MethodPost, "/chats", owner, map[string]any{"type": "group", "title": "log"}, &chat); code != http.StatusCreated {
		t.Fatalf("create chat code = %d", code)
	}
	base := fmt.Sprintf("/chats/%d/messages", chat.ID)

	ids := make([]int64, 0, 5)
	for i := 0; i < 5; i++ {
		var msg struct {
			ID int64 `json:"id"`
		}
		if code := e.do(http.MethodPost, base, owner, map[string]any{"content": fmt.Sprintf("m%d", i)}, &msg); code != http.StatusCreated {
			t.Fatalf("send %d code = %d", i, code)
		}
		ids = append(ids, msg.ID)
	}

	fetch := func(query string) []int64 {
		t.Helper()
		var rows []struct {
			ID int64 `json:"id"`
		}
		if code := e.do(http.MethodGet, base+query, owner, nil, &rows); code != http.StatusOK {
			t.Fatalf("GET %s code = %d", query, code)
		}
		out := make([]int64, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.ID)
		}
		return out
	}

	ascending := func(got []int64) bool {
		for i := 1; i < len(got); i++ {
			if got[i] <= got[i-1] {
				return false
			}
		}
		return true
	}

	// Default window: newest rows, ascending in the response.
	got := fetch("")
	if len(got) != 5 || !ascending(got) || got[4] != ids[4] {
		t.Errorf("default window = %v", got)
	}
	got = fetch("?limit=2")
	if len(got) != 2 || got[0] != ids[3] || got[1] != ids[4] {
		t.Errorf("limited default window = %v, want newest two ascending", got)
	}

	// Backward page: strictly older than the cursor, still ascending.
	got = fetch(fmt.Sprintf("?before=%d", ids[2]))
	if len(got) != 2 || got[0] != ids[0] || got[1] != ids[1] {
		t.Errorf("before window = %v", got)
	}

	// Forward page: strictly newer than the cursor.
	got = fetch(fmt.Sprintf("?after_id=%d", ids[2]))
	if len(got) != 2 || got[0] != ids[3] || got[1] != ids[4] {
		t.Errorf("after window = %v", got)
	}
}

func TestNonMemberSeesNothing(t *testing.T) {
	e := newTestEnv(t)
	_, owner := e.signup("owner")
	_, stranger := e.signup("stranger")

	var chat struct {
		ID int64 `json:"id"`
	}
	if code := e.do(http.MethodPost, "/chats", owner, map[string]any{"type": "group", "title": "private"}, &chat); code != http.StatusCreated {
		t.Fatalf("create chat code = %d", code)
	}

	paths := []string{
		fmt.Sprintf("/chats/%d", chat.ID),
		fmt.Sprintf("/chats/%d/messages", chat.ID),
	}
	for _, p := range paths {
		if code := e.do(http.MethodGet, p, stranger, nil, nil); code != http.StatusNotFound {
			t.Errorf("GET %s as stranger = %d, want neutral 404", p, code)
		}
	}
	if code := e.do(http.MethodPost, paths[1], stranger, map[string]any{"content": "hi"}, nil); code != http.StatusNotFound {
		t.Errorf("stranger post code = %d, want neutral 404", code)
	}
}

func TestChannelPostingRestricted(t *testing.T) {
	e := newTestEnv(t)
	_, owner := e.signup("owner")
	subID, sub := e.signup("sub")

	var chat struct {
		ID int64 `json:"id"`
	}
	code := e.do(http.MethodPost, "/chats", owner, map[string]any{
		"type":       "channel",
		"title":      "announcements",
		"member_ids": []int64{subID},
	}, &chat)
	if code != http.StatusCreated {
		t.Fatalf("create channel code = %d", code)
	}
	base := fmt.Sprintf("/chats/%d/messages", chat.ID)

	if code := e.do(http.MethodPost, base, owner, map[string]any{"content": "v2 is out"}, nil); code != http.StatusCreated {
		t.Errorf("owner post code = %d", code)
	}
	if code := e.do(http.MethodPost, base, sub, map[string]any{"content": "first!"}, nil); code != http.StatusForbidden {
		t.Errorf("subscriber post code = %d, want 403", code)
	}
}

func TestDirectChatDeduplicated(t *testing.T) {
	e := newTestEnv(t)
	_, a := e.signup("a")
	bID, _ := e.signup("b")

	body := map[string]any{"type": "direct", "member_ids": []int64{bID}}

	var first, second struct {
		ID int64 `json:"id"`
	}
	if code := e.do(http.MethodPost, "/chats", a, body, &first); code != http.StatusCreated {
		t.Fatalf("first create code = %d", code)
	}
	if code := e.do(http.MethodPost, "/chats", a, body, &second); code != http.StatusOK {
		t.Fatalf("second create code = %d, want 200 existing", code)
	}
	if first.ID != second.ID {
		t.Errorf("direct chat duplicated: %d vs %d", first.ID, second.ID)
	}
}
