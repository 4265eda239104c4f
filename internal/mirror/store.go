package mirror

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("mirror: record not found")

// Page is the pageno/pagesize convention shared with the remote
// platform. Pageno is 1-based.
type Page struct {
	Pageno   int
	Pagesize int
}

func (p Page) normalized() Page {
	out := p
	if out.Pageno < 1 {
		out.Pageno = 1
	}
	if out.Pagesize < 1 {
		out.Pagesize = 20
	}
	return out
}

// CallFilter narrows call listings. Zero values mean "no constraint".
type CallFilter struct {
	Status       string
	CampaignName string
	From, To     time.Time
}

// NumberFilter narrows phone-number listings.
type NumberFilter struct {
	AttachedAgentRemoteID string
}

// Store is the persistence contract for the local mirror.
//
// Implementations must provide indexed upsert-by-(workspace_id,
// remote_id): Put replaces the stored record wholesale and reports
// whether it inserted. Field-merge semantics live in the reconcilers,
// not here, so concurrent webhook and pull writes stay last-write-wins.
type Store interface {
	// Calls
	GetCall(ctx context.Context, workspaceID, remoteID string) (CallRecord, error)
	PutCall(ctx context.Context, rec CallRecord) (created bool, err error)
	ListCalls(ctx context.Context, workspaceID string, f CallFilter, p Page) ([]CallRecord, int, error)
	DeleteCall(ctx context.Context, workspaceID, remoteID string) error

	// Phone numbers
	GetNumber(ctx context.Context, workspaceID, remoteID string) (PhoneNumber, error)
	PutNumber(ctx context.Context, rec PhoneNumber) (created bool, err error)
	ListNumbers(ctx context.Context, workspaceID string, f NumberFilter, p Page) ([]PhoneNumber, int, error)
	DeleteNumber(ctx context.Context, workspaceID, remoteID string) error

	// Files
	GetFile(ctx context.Context, workspaceID, remoteID string) (File, error)
	PutFile(ctx context.Context, rec File) (created bool, err error)
	ListFiles(ctx context.Context, workspaceID string, p Page) ([]File, int, error)
	DeleteFile(ctx context.Context, workspaceID, remoteID string) error
	CountFilesForAgent(ctx context.Context, workspaceID, agentRemoteID string) (int, error)

	// Agents
	GetAgent(ctx context.Context, workspaceID, remoteID string) (Agent, error)
	GetAgentByName(ctx context.Context, workspaceID, name string) (Agent, error)
	PutAgent(ctx context.Context, rec Agent) (created bool, err error)
	ListAgents(ctx context.Context, workspaceID string, p Page) ([]Agent, int, error)
	DeleteAgent(ctx context.Context, workspaceID, remoteID string) error

	// Campaigns
	GetCampaign(ctx context.Context, workspaceID, remoteID string) (Campaign, error)
	PutCampaign(ctx context.Context, rec Campaign) (created bool, err error)
	ListCampaigns(ctx context.Context, workspaceID string, p Page) ([]Campaign, int, error)
	DeleteCampaign(ctx context.Context, workspaceID, remoteID string) error
	GetCampaignByCallRequestID(ctx context.Context, workspaceID, callRequestID string) (Campaign, error)
	// LatestCampaignByMatch finds the most recently created campaign
	// sharing the destination digits; agentRemoteID "" matches any agent.
	LatestCampaignByMatch(ctx context.Context, workspaceID, toDigits, agentRemoteID string) (Campaign, error)

	// Workspaces with at least one mirrored record, for periodic pulls.
	ListWorkspaceIDs(ctx context.Context) ([]string, error)
}

// Pagination is the wire shape returned to dashboard list reads.
type Pagination struct {
	Pageno   int `json:"pageno"`
	Pagesize int `json:"pagesize"`
	Total    int `json:"total"`
	Pages    int `json:"pages"`
}

func NewPagination(p Page, total int) Pagination {
	p = p.normalized()
	pages := total / p.Pagesize
	if total%p.Pagesize != 0 {
		pages++
	}
	return Pagination{Pageno: p.Pageno, Pagesize: p.Pagesize, Total: total, Pages: pages}
}
