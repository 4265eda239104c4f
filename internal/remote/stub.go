package remote

import (
	"context"
	"fmt"
	"sync"
)

// StubClient is an in-memory Client for tests. Pages are scripted per
// resource; every outbound mutation is recorded.
type StubClient struct {
	mu sync.Mutex

	// Pages holds the scripted list responses per resource, in fetch
	// order. A fetch beyond the script returns an empty bare array.
	Pages map[Resource][]any

	// Err, when set, fails every call.
	Err error

	fetches  map[Resource]int
	Outbound []string // "attach_number 5 9", "delete files 3", ...
	ImportID string
}

func NewStubClient() *StubClient {
	return &StubClient{Pages: map[Resource][]any{}, fetches: map[Resource]int{}}
}

func (s *StubClient) Name() string { return "stub" }

func (s *StubClient) ListPage(ctx context.Context, workspaceID string, res Resource, pageno, pagesize int) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	i := s.fetches[res]
	s.fetches[res]++
	script := s.Pages[res]
	if i >= len(script) {
		return []any{}, nil
	}
	return script[i], nil
}

// Fetches reports how many pages were pulled for a resource.
func (s *StubClient) Fetches(res Resource) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[res]
}

func (s *StubClient) record(format string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Outbound = append(s.Outbound, fmt.Sprintf(format, args...))
	return nil
}

// OutboundCalls returns a copy of the recorded mutation log.
func (s *StubClient) OutboundCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Outbound))
	copy(out, s.Outbound)
	return out
}

func (s *StubClient) AttachNumberAgent(ctx context.Context, numberRemoteID, agentRemoteID string) error {
	return s.record("attach_number %s %s", numberRemoteID, agentRemoteID)
}

func (s *StubClient) DetachNumberAgent(ctx context.Context, numberRemoteID string) error {
	return s.record("detach_number %s", numberRemoteID)
}

func (s *StubClient) AttachFileAgent(ctx context.Context, fileRemoteID, agentRemoteID string) error {
	return s.record("attach_file %s %s", fileRemoteID, agentRemoteID)
}

func (s *StubClient) DetachFileAgent(ctx context.Context, fileRemoteID, agentRemoteID string) error {
	return s.record("detach_file %s %s", fileRemoteID, agentRemoteID)
}

func (s *StubClient) DeleteResource(ctx context.Context, res Resource, remoteID string) error {
	return s.record("delete %s %s", res, remoteID)
}

func (s *StubClient) ImportNumber(ctx context.Context, workspaceID string, req ImportNumberRequest) (string, error) {
	if err := s.record("import_number %s %s", workspaceID, req.Number); err != nil {
		return "", err
	}
	if s.ImportID != "" {
		return s.ImportID, nil
	}
	return "1", nil
}

var _ Client = (*StubClient)(nil)
