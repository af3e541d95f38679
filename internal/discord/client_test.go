package discord

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *recorder) handler(t *testing.T, status int, respBody string) roundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		rec := recordedRequest{method: req.Method, path: req.URL.EscapedPath(), auth: req.Header.Get("Authorization")}
		if req.Body != nil {
			raw, _ := io.ReadAll(req.Body)
			if len(raw) > 0 && raw[0] == '{' {
				if err := json.Unmarshal(raw, &rec.body); err != nil {
					t.Fatalf("decode body: %v", err)
				}
			}
		}
		r.mu.Lock()
		r.requests = append(r.requests, rec)
		r.mu.Unlock()
		return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(respBody)), Header: make(http.Header)}, nil
	}
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

func TestSendChannelMessagePlain(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(rec.handler(t, http.StatusOK, `{"id":"m1"}`))

	if err := c.SendChannelMessage(context.Background(), "g1", "c1", "Alice found Bob's Key at Somewhere", false); err != nil {
		t.Fatalf("send: %v", err)
	}
	reqs := rec.all()
	if len(reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(reqs))
	}
	got := reqs[0]
	if got.method != http.MethodPost || got.path != "/api/v10/channels/c1/messages" {
		t.Fatalf("unexpected request %s %s", got.method, got.path)
	}
	if got.auth != "Bot test-token" {
		t.Fatalf("unexpected auth header %q", got.auth)
	}
	if got.body["content"] != "Alice found Bob's Key at Somewhere" {
		t.Fatalf("unexpected content: %v", got.body["content"])
	}
	if _, ok := got.body["embeds"]; ok {
		t.Fatalf("plain message must not carry embeds: %#v", got.body)
	}
}

func TestSendChannelMessageEmphasizedUsesErrorEmbed(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(rec.handler(t, http.StatusOK, `{}`))

	if err := c.SendChannelMessage(context.Background(), "g1", "c1", "Failed to login.", true); err != nil {
		t.Fatalf("send: %v", err)
	}
	body := rec.all()[0].body
	embeds, ok := body["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("unexpected embeds: %#v", body["embeds"])
	}
	e := embeds[0].(map[string]any)
	if e["title"] != "Something failed while completing action" {
		t.Fatalf("unexpected title: %v", e["title"])
	}
	if e["description"] != "Failed to login." {
		t.Fatalf("unexpected description: %v", e["description"])
	}
	if e["color"] != float64(errorEmbedColor) {
		t.Fatalf("unexpected color: %v", e["color"])
	}
}

func TestSendChannelMessageSplitsLongText(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(rec.handler(t, http.StatusOK, `{}`))

	line := strings.Repeat("x", 1500)
	if err := c.SendChannelMessage(context.Background(), "g1", "c1", line+"\n"+line, false); err != nil {
		t.Fatalf("send: %v", err)
	}
	reqs := rec.all()
	if len(reqs) != 2 {
		t.Fatalf("expected two messages, got %d", len(reqs))
	}
	for i, r := range reqs {
		if r.body["content"] != line {
			t.Fatalf("chunk %d has unexpected content length %d", i, len(r.body["content"].(string)))
		}
	}
}

func TestSendChannelMessageAPIError(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(rec.handler(t, http.StatusForbidden, `{"message":"Missing Access"}`))

	err := c.SendChannelMessage(context.Background(), "g1", "c1", "hi", false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden || !strings.Contains(apiErr.Body, "Missing Access") {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestResolveDisplayNameCaches(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(rec.handler(t, http.StatusOK, `{"id":"111","username":"alice","global_name":"Alice"}`))

	for i := 0; i < 2; i++ {
		name, err := c.ResolveDisplayName(context.Background(), "111")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if name != "Alice" {
			t.Fatalf("expected global name, got %q", name)
		}
	}
	reqs := rec.all()
	if len(reqs) != 1 || reqs[0].path != "/api/v10/users/111" {
		t.Fatalf("expected one user lookup, got %+v", reqs)
	}
}

func TestResolveDisplayNameFallsBackToUsername(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(rec.handler(t, http.StatusOK, `{"id":"222","username":"bob"}`))

	name, err := c.ResolveDisplayName(context.Background(), "222")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if name != "bob" {
		t.Fatalf("expected username, got %q", name)
	}
}

func TestRememberUserSkipsLookup(t *testing.T) {
	c := newTestClient(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("unexpected request")
	})
	c.RememberUser(User{ID: "333", Username: "carol"})

	name, err := c.ResolveDisplayName(context.Background(), "333")
	if err != nil || name != "carol" {
		t.Fatalf("expected cached name, got %q, %v", name, err)
	}
	if got := c.Mention("333"); got != "<@333>" {
		t.Fatalf("unexpected mention %q", got)
	}
}

func TestGuildRoleNamesCacheExpires(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(rec.handler(t, http.StatusOK, `[{"id":"r1","name":"Moderator"},{"id":"r2","name":"Player"}]`))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	names, err := c.GuildRoleNames(context.Background(), "g1")
	if err != nil {
		t.Fatalf("roles: %v", err)
	}
	if names["r1"] != "Moderator" || names["r2"] != "Player" {
		t.Fatalf("unexpected roles: %v", names)
	}
	if _, err := c.GuildRoleNames(context.Background(), "g1"); err != nil {
		t.Fatalf("roles: %v", err)
	}
	if got := len(rec.all()); got != 1 {
		t.Fatalf("expected cached roles, got %d requests", got)
	}

	now = now.Add(roleCacheTTL + time.Second)
	if _, err := c.GuildRoleNames(context.Background(), "g1"); err != nil {
		t.Fatalf("roles: %v", err)
	}
	if got := len(rec.all()); got != 2 {
		t.Fatalf("expected refetch after ttl, got %d requests", got)
	}
}

func TestEditOriginalResponse(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(rec.handler(t, http.StatusOK, `{}`))

	if err := c.EditOriginalResponse(context.Background(), "tok", "Slot Alice was assigned."); err != nil {
		t.Fatalf("edit: %v", err)
	}
	got := rec.all()[0]
	if got.method != http.MethodPatch || got.path != "/api/v10/webhooks/app-1/tok/messages/@original" {
		t.Fatalf("unexpected request %s %s", got.method, got.path)
	}
	if got.body["content"] != "Slot Alice was assigned." {
		t.Fatalf("unexpected content: %v", got.body["content"])
	}
}

func TestRegisterCommandsRoutes(t *testing.T) {
	tests := []struct {
		name    string
		guildID string
		path    string
	}{
		{name: "global", path: "/api/v10/applications/app-1/commands"},
		{name: "guild", guildID: "g1", path: "/api/v10/applications/app-1/guilds/g1/commands"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			c := newTestClient(rec.handler(t, http.StatusOK, `[]`))
			cmds := []ApplicationCommand{NewChatCommand("status", "Show status", nil)}
			if err := c.RegisterCommands(context.Background(), tc.guildID, cmds); err != nil {
				t.Fatalf("register: %v", err)
			}
			got := rec.all()[0]
			if got.method != http.MethodPut || got.path != tc.path {
				t.Fatalf("unexpected request %s %s", got.method, got.path)
			}
		})
	}
}

func TestSplitContent(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "short", text: "a\nb", limit: 10, want: []string{"a\nb"}},
		{name: "line boundary", text: "aaaa\nbbbb\ncc", limit: 9, want: []string{"aaaa\nbbbb", "cc"}},
		{name: "long line hard cut", text: "abcdefgh", limit: 3, want: []string{"abc", "def", "gh"}},
		{name: "multibyte", text: "ééé\nééé", limit: 4, want: []string{"ééé", "ééé"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := splitContent(tc.text, tc.limit)
			if strings.Join(got, "|") != strings.Join(tc.want, "|") {
				t.Fatalf("splitContent(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}
