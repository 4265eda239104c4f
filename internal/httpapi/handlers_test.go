package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"voicedash/internal/auth"
	"voicedash/internal/events"
	"voicedash/internal/mirror"
	"voicedash/internal/rbac"
	"voicedash/internal/reconcile"
	"voicedash/internal/remote"
	"voicedash/internal/webhook"
)

const platformName = "voiceplatform"

func newWebhookRig(t *testing.T) (Handlers, *remote.StubClient, *mirror.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := mirror.NewMemoryStore()
	client := remote.NewStubClient()
	rec := reconcile.New(store, client, events.Nop{}, nil)
	h := Handlers{
		Rec:          rec,
		Store:        store,
		Webhooks:     webhook.NewRouter(rec, nil),
		PlatformName: platformName,
	}
	return h, client, store
}

func postWebhook(t *testing.T, h Handlers, payload map[string]any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/webhooks/platform", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	h.PlatformWebhook(c)
	return w
}

func TestPlatformWebhookProvenanceSuppressesOutbound(t *testing.T) {
	h, client, store := newWebhookRig(t)

	payload := map[string]any{
		"workspace_id":    "ws_1",
		"phone_number_id": "n1",
		"agent_id":        "a1",
	}
	w := postWebhook(t, h, payload, map[string]string{"x-source": platformName})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if calls := client.OutboundCalls(); len(calls) != 0 {
		t.Fatalf("remote-originated attach must not propagate, got %v", calls)
	}
	num, err := store.GetNumber(context.Background(), "ws_1", "n1")
	if err != nil {
		t.Fatalf("number not mirrored: %v", err)
	}
	if num.AttachedAgentRemoteID != "a1" {
		t.Fatalf("attached agent = %q, want a1", num.AttachedAgentRemoteID)
	}
}

func TestPlatformWebhookWithoutMarkerPropagates(t *testing.T) {
	h, client, _ := newWebhookRig(t)

	payload := map[string]any{
		"workspace_id":    "ws_1",
		"phone_number_id": "n1",
		"agent_id":        "a1",
	}
	w := postWebhook(t, h, payload, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	calls := client.OutboundCalls()
	if len(calls) != 1 || calls[0] != "attach_number n1 a1" {
		t.Fatalf("expected exactly one outbound attach, got %v", calls)
	}
}

func TestPlatformWebhookRequiresWorkspace(t *testing.T) {
	h, _, _ := newWebhookRig(t)
	w := postWebhook(t, h, map[string]any{"phone_number_id": "n1"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPlatformWebhookUnroutableNamesExpectedKeys(t *testing.T) {
	h, _, _ := newWebhookRig(t)
	w := postWebhook(t, h, map[string]any{"workspace_id": "ws_1", "mystery": true}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("file_id")) {
		t.Fatalf("expected the error to name the known id keys, got %s", w.Body.String())
	}
}

func TestDeleteResourceRemoteFailureIsUserVisible(t *testing.T) {
	h, client, store := newWebhookRig(t)
	ctx := context.Background()
	if _, err := store.PutAgent(ctx, mirror.Agent{WorkspaceID: "ws_1", RemoteID: "7", Name: "Ava"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	client.Err = remote.ErrRemoteUnavailable

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/v1/agents/7", nil)
	c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), auth.Identity{UserID: "u1", WorkspaceID: "ws_1", Role: rbac.RoleOperator}))
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.DeleteResource(remote.ResourceAgents)(c)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if _, err := store.GetAgent(ctx, "ws_1", "7"); err != nil {
		t.Fatalf("local copy must survive a failed remote delete: %v", err)
	}
}
