package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"voicedash/internal/normalize"
)

const defaultTimeout = 30 * time.Second

// HTTPClient talks to the voice-AI platform's REST API.
type HTTPClient struct {
	baseURL  string
	apiKey   string
	platform string
	hc       *http.Client
	log      *slog.Logger
}

type HTTPClientConfig struct {
	BaseURL string
	APIKey  string
	// PlatformName is the provenance value the platform sends in the
	// x-source header of its webhook deliveries.
	PlatformName string
	Timeout      time.Duration
}

func NewHTTPClient(cfg HTTPClientConfig, log *slog.Logger) *HTTPClient {
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		platform: cfg.PlatformName,
		hc:       &http.Client{Timeout: timeout},
		log:      log,
	}
}

func (c *HTTPClient) Name() string { return c.platform }

// listPaths maps resources onto the platform's list endpoints.
var listPaths = map[Resource]string{
	ResourceCalls:     "call/list",
	ResourceNumbers:   "phone/list",
	ResourceFiles:     "file/list",
	ResourceAgents:    "agent/list",
	ResourceCampaigns: "campaign/list",
}

func (c *HTTPClient) ListPage(ctx context.Context, workspaceID string, res Resource, pageno, pagesize int) (any, error) {
	path, ok := listPaths[res]
	if !ok {
		return nil, fmt.Errorf("remote: unknown resource %q", res)
	}
	q := url.Values{}
	q.Set("pageno", strconv.Itoa(pageno))
	q.Set("pagesize", strconv.Itoa(pagesize))
	if workspaceID != "" {
		q.Set("workspace", workspaceID)
	}

	var payload any
	if err := c.do(ctx, http.MethodGet, path+"?"+q.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *HTTPClient) AttachNumberAgent(ctx context.Context, numberRemoteID, agentRemoteID string) error {
	numID, err := c.boundedID("number", numberRemoteID)
	if err != nil {
		return err
	}
	agentID, err := c.boundedID("agent", agentRemoteID)
	if err != nil {
		return err
	}
	body := map[string]any{"phone_number_id": numID, "agent_id": agentID}
	return c.do(ctx, http.MethodPost, "phone/attach", body, nil)
}

func (c *HTTPClient) DetachNumberAgent(ctx context.Context, numberRemoteID string) error {
	numID, err := c.boundedID("number", numberRemoteID)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "phone/detach", map[string]any{"phone_number_id": numID}, nil)
}

func (c *HTTPClient) AttachFileAgent(ctx context.Context, fileRemoteID, agentRemoteID string) error {
	fileID, err := c.boundedID("file", fileRemoteID)
	if err != nil {
		return err
	}
	agentID, err := c.boundedID("agent", agentRemoteID)
	if err != nil {
		return err
	}
	body := map[string]any{"file_id": fileID, "agent_id": agentID}
	return c.do(ctx, http.MethodPost, "file/attach", body, nil)
}

func (c *HTTPClient) DetachFileAgent(ctx context.Context, fileRemoteID, agentRemoteID string) error {
	fileID, err := c.boundedID("file", fileRemoteID)
	if err != nil {
		return err
	}
	agentID, err := c.boundedID("agent", agentRemoteID)
	if err != nil {
		return err
	}
	body := map[string]any{"file_id": fileID, "agent_id": agentID, "detach": true}
	return c.do(ctx, http.MethodPost, "file/detach", body, nil)
}

var deletePaths = map[Resource]string{
	ResourceCalls:   "call/delete",
	ResourceNumbers: "phone/delete",
	ResourceFiles:   "file/delete",
	ResourceAgents:  "agent/delete",
}

func (c *HTTPClient) DeleteResource(ctx context.Context, res Resource, remoteID string) error {
	path, ok := deletePaths[res]
	if !ok {
		return fmt.Errorf("remote: resource %q cannot be deleted", res)
	}
	id, err := c.boundedID(res.Singular(), remoteID)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, map[string]any{"id": id}, nil)
}

func (c *HTTPClient) ImportNumber(ctx context.Context, workspaceID string, req ImportNumberRequest) (string, error) {
	body := map[string]any{
		"number":    req.Number,
		"label":     req.Label,
		"provider":  req.Provider,
		"workspace": workspaceID,
	}
	var resp map[string]any
	if err := c.do(ctx, http.MethodPost, "phone/create", body, &resp); err != nil {
		return "", err
	}
	// The platform answers with either a number or a string id.
	id := normalize.ExtractID(resp["id"])
	if id == "" {
		id = normalize.ExtractID(resp["phone_number_id"])
	}
	if id == "" {
		return "", fmt.Errorf("%w: create response carried no identifier", ErrRemoteUnavailable)
	}
	return id, nil
}

// boundedID enforces the platform's signed 32-bit identifier contract.
// Overflowing or non-numeric ids fail closed before any HTTP call.
func (c *HTTPClient) boundedID(kind, remoteID string) (int32, error) {
	id, err := normalize.BoundedInt32ID(remoteID)
	if err != nil {
		c.log.Warn("skipping outbound call, identifier outside remote contract",
			"kind", kind, "remote_id", remoteID, "err", err)
		return 0, err
	}
	return id, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, reader)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrRemoteUnavailable, method, path, resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrRemoteUnavailable, err)
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
