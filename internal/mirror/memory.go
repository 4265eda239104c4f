package mirror

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for tests and early development.
// It enforces the same unique-(workspace_id, remote_id) invariant the
// Postgres implementation gets from its primary key.
type MemoryStore struct {
	mu sync.Mutex

	calls     map[string]CallRecord
	numbers   map[string]PhoneNumber
	files     map[string]File
	agents    map[string]Agent
	campaigns map[string]Campaign
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		calls:     map[string]CallRecord{},
		numbers:   map[string]PhoneNumber{},
		files:     map[string]File{},
		agents:    map[string]Agent{},
		campaigns: map[string]Campaign{},
	}
}

func key(workspaceID, remoteID string) string { return workspaceID + "|" + remoteID }

func paginate[T any](rows []T, p Page) ([]T, int) {
	p = p.normalized()
	total := len(rows)
	start := (p.Pageno - 1) * p.Pagesize
	if start >= total {
		return []T{}, total
	}
	end := start + p.Pagesize
	if end > total {
		end = total
	}
	return rows[start:end], total
}

/* ===================== Calls ===================== */

func (s *MemoryStore) GetCall(ctx context.Context, workspaceID, remoteID string) (CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.calls[key(workspaceID, remoteID)]
	if !ok {
		return CallRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) PutCall(ctx context.Context, rec CallRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(rec.WorkspaceID, rec.RemoteID)
	_, exists := s.calls[k]
	s.calls[k] = rec
	return !exists, nil
}

func (s *MemoryStore) ListCalls(ctx context.Context, workspaceID string, f CallFilter, p Page) ([]CallRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]CallRecord, 0)
	for _, c := range s.calls {
		if c.WorkspaceID != workspaceID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.CampaignName != "" && c.CampaignName != f.CampaignName {
			continue
		}
		if !f.From.IsZero() && c.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !c.CreatedAt.Before(f.To) {
			continue
		}
		rows = append(rows, c)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].RemoteID > rows[j].RemoteID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	page, total := paginate(rows, p)
	return page, total, nil
}

func (s *MemoryStore) DeleteCall(ctx context.Context, workspaceID, remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(workspaceID, remoteID)
	if _, ok := s.calls[k]; !ok {
		return ErrNotFound
	}
	delete(s.calls, k)
	return nil
}

/* ===================== Phone numbers ===================== */

func (s *MemoryStore) GetNumber(ctx context.Context, workspaceID, remoteID string) (PhoneNumber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.numbers[key(workspaceID, remoteID)]
	if !ok {
		return PhoneNumber{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) PutNumber(ctx context.Context, rec PhoneNumber) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(rec.WorkspaceID, rec.RemoteID)
	_, exists := s.numbers[k]
	s.numbers[k] = rec
	return !exists, nil
}

func (s *MemoryStore) ListNumbers(ctx context.Context, workspaceID string, f NumberFilter, p Page) ([]PhoneNumber, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]PhoneNumber, 0)
	for _, n := range s.numbers {
		if n.WorkspaceID != workspaceID {
			continue
		}
		if f.AttachedAgentRemoteID != "" && n.AttachedAgentRemoteID != f.AttachedAgentRemoteID {
			continue
		}
		rows = append(rows, n)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RemoteID < rows[j].RemoteID })
	page, total := paginate(rows, p)
	return page, total, nil
}

func (s *MemoryStore) DeleteNumber(ctx context.Context, workspaceID, remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(workspaceID, remoteID)
	if _, ok := s.numbers[k]; !ok {
		return ErrNotFound
	}
	delete(s.numbers, k)
	return nil
}

/* ===================== Files ===================== */

func (s *MemoryStore) GetFile(ctx context.Context, workspaceID, remoteID string) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.files[key(workspaceID, remoteID)]
	if !ok {
		return File{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) PutFile(ctx context.Context, rec File) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(rec.WorkspaceID, rec.RemoteID)
	_, exists := s.files[k]
	s.files[k] = rec
	return !exists, nil
}

func (s *MemoryStore) ListFiles(ctx context.Context, workspaceID string, p Page) ([]File, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]File, 0)
	for _, f := range s.files {
		if f.WorkspaceID == workspaceID {
			rows = append(rows, f)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RemoteID < rows[j].RemoteID })
	page, total := paginate(rows, p)
	return page, total, nil
}

func (s *MemoryStore) DeleteFile(ctx context.Context, workspaceID, remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(workspaceID, remoteID)
	if _, ok := s.files[k]; !ok {
		return ErrNotFound
	}
	delete(s.files, k)
	return nil
}

func (s *MemoryStore) CountFilesForAgent(ctx context.Context, workspaceID, agentRemoteID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, f := range s.files {
		if f.WorkspaceID != workspaceID {
			continue
		}
		for _, id := range f.AttachedAgentRemoteIDs {
			if id == agentRemoteID {
				count++
				break
			}
		}
	}
	return count, nil
}

/* ===================== Agents ===================== */

func (s *MemoryStore) GetAgent(ctx context.Context, workspaceID, remoteID string) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.agents[key(workspaceID, remoteID)]
	if !ok {
		return Agent{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) GetAgentByName(ctx context.Context, workspaceID, name string) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.agents {
		if a.WorkspaceID == workspaceID && strings.EqualFold(a.Name, name) {
			return a, nil
		}
	}
	return Agent{}, ErrNotFound
}

func (s *MemoryStore) PutAgent(ctx context.Context, rec Agent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(rec.WorkspaceID, rec.RemoteID)
	_, exists := s.agents[k]
	s.agents[k] = rec
	return !exists, nil
}

func (s *MemoryStore) ListAgents(ctx context.Context, workspaceID string, p Page) ([]Agent, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]Agent, 0)
	for _, a := range s.agents {
		if a.WorkspaceID == workspaceID {
			rows = append(rows, a)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RemoteID < rows[j].RemoteID })
	page, total := paginate(rows, p)
	return page, total, nil
}

func (s *MemoryStore) DeleteAgent(ctx context.Context, workspaceID, remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(workspaceID, remoteID)
	if _, ok := s.agents[k]; !ok {
		return ErrNotFound
	}
	delete(s.agents, k)
	return nil
}

/* ===================== Campaigns ===================== */

func (s *MemoryStore) GetCampaign(ctx context.Context, workspaceID, remoteID string) (Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.campaigns[key(workspaceID, remoteID)]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) PutCampaign(ctx context.Context, rec Campaign) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(rec.WorkspaceID, rec.RemoteID)
	_, exists := s.campaigns[k]
	s.campaigns[k] = rec
	return !exists, nil
}

func (s *MemoryStore) ListCampaigns(ctx context.Context, workspaceID string, p Page) ([]Campaign, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]Campaign, 0)
	for _, c := range s.campaigns {
		if c.WorkspaceID == workspaceID {
			rows = append(rows, c)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].RemoteID > rows[j].RemoteID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	page, total := paginate(rows, p)
	return page, total, nil
}

func (s *MemoryStore) GetCampaignByCallRequestID(ctx context.Context, workspaceID, callRequestID string) (Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.campaigns {
		if c.WorkspaceID != workspaceID {
			continue
		}
		for _, id := range c.CallRequestIDs {
			if id == callRequestID {
				return c, nil
			}
		}
	}
	return Campaign{}, ErrNotFound
}

func (s *MemoryStore) LatestCampaignByMatch(ctx context.Context, workspaceID, toDigits, agentRemoteID string) (Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best Campaign
	found := false
	for _, c := range s.campaigns {
		if c.WorkspaceID != workspaceID || c.ToDigits != toDigits {
			continue
		}
		if agentRemoteID != "" && c.AgentRemoteID != agentRemoteID {
			continue
		}
		if !found || c.CreatedAt.After(best.CreatedAt) {
			best = c
			found = true
		}
	}
	if !found {
		return Campaign{}, ErrNotFound
	}
	return best, nil
}

func (s *MemoryStore) DeleteCampaign(ctx context.Context, workspaceID, remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(workspaceID, remoteID)
	if _, ok := s.campaigns[k]; !ok {
		return ErrNotFound
	}
	delete(s.campaigns, k)
	return nil
}

func (s *MemoryStore) ListWorkspaceIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	for _, c := range s.calls {
		seen[c.WorkspaceID] = struct{}{}
	}
	for _, n := range s.numbers {
		seen[n.WorkspaceID] = struct{}{}
	}
	for _, f := range s.files {
		seen[f.WorkspaceID] = struct{}{}
	}
	for _, a := range s.agents {
		seen[a.WorkspaceID] = struct{}{}
	}
	for _, c := range s.campaigns {
		seen[c.WorkspaceID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
