package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voicedash/internal/normalize"
)

func testClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL, APIKey: "k", PlatformName: "voiceplatform"}, nil)
}

func TestHTTPClient_ListPageSendsPaginationParams(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{map[string]any{"id": 1}}, "total": 1})
	})

	payload, err := c.ListPage(context.Background(), "w1", ResourceCalls, 2, 50)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if gotPath != "/call/list" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer k" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	for _, want := range []string{"pageno=2", "pagesize=50", "workspace=w1"} {
		if !strings.Contains(gotQuery, want) {
			t.Fatalf("query %q missing %q", gotQuery, want)
		}
	}

	env, err := normalize.Normalize(payload)
	if err != nil || len(env.Records) != 1 {
		t.Fatalf("list payload should normalize, got (%v, %v)", env, err)
	}
}

func TestHTTPClient_AttachFailsClosedOnOversizedID(t *testing.T) {
	called := false
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	err := c.AttachNumberAgent(context.Background(), "9999999999", "7")
	if !errors.Is(err, normalize.ErrIDOutOfRange) {
		t.Fatalf("expected ErrIDOutOfRange, got %v", err)
	}
	if called {
		t.Fatalf("no HTTP call may be issued for an out-of-range id")
	}
}

func TestHTTPClient_NonOKStatusIsRemoteUnavailable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	err := c.DetachNumberAgent(context.Background(), "5")
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestHTTPClient_ImportNumberAcceptsNumericOrStringID(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 12345})
	})
	id, err := c.ImportNumber(context.Background(), "w", ImportNumberRequest{Number: "+15550104477"})
	if err != nil || id != "12345" {
		t.Fatalf("expected id 12345, got (%q, %v)", id, err)
	}
}
