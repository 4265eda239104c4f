package remote

import (
	"context"
	"errors"
)

// Resource names a remote platform resource collection.
type Resource string

const (
	ResourceCalls     Resource = "calls"
	ResourceNumbers   Resource = "numbers"
	ResourceFiles     Resource = "files"
	ResourceAgents    Resource = "agents"
	ResourceCampaigns Resource = "campaigns"
)

func (r Resource) Valid() bool {
	switch r {
	case ResourceCalls, ResourceNumbers, ResourceFiles, ResourceAgents, ResourceCampaigns:
		return true
	default:
		return false
	}
}

// Singular is the form used in event names and webhook payloads.
func (r Resource) Singular() string {
	switch r {
	case ResourceCalls:
		return "call"
	case ResourceNumbers:
		return "number"
	case ResourceFiles:
		return "file"
	case ResourceAgents:
		return "agent"
	case ResourceCampaigns:
		return "campaign"
	default:
		return string(r)
	}
}

var ErrRemoteUnavailable = errors.New("remote: platform call failed")

// ImportNumberRequest asks the platform to take over a phone number.
type ImportNumberRequest struct {
	Number   string `json:"number"`
	Label    string `json:"label,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Client is the outbound boundary to the voice-AI platform.
//
// Rules (provider-adapter discipline):
//   - No platform HTTP calls outside this package.
//   - List responses are returned as decoded-but-unshaped JSON; the
//     normalizer owns envelope interpretation.
//   - Identifiers cross this boundary as strings and are parsed to the
//     platform's bounded numeric contract inside the implementation,
//     failing closed on overflow.
type Client interface {
	Name() string

	// ListPage fetches one page, pageno is 1-based.
	ListPage(ctx context.Context, workspaceID string, res Resource, pageno, pagesize int) (any, error)

	AttachNumberAgent(ctx context.Context, numberRemoteID, agentRemoteID string) error
	DetachNumberAgent(ctx context.Context, numberRemoteID string) error
	AttachFileAgent(ctx context.Context, fileRemoteID, agentRemoteID string) error
	DetachFileAgent(ctx context.Context, fileRemoteID, agentRemoteID string) error
	DeleteResource(ctx context.Context, res Resource, remoteID string) error
	ImportNumber(ctx context.Context, workspaceID string, req ImportNumberRequest) (remoteID string, err error)
}
