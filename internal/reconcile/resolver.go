package reconcile

import (
	"context"
	"errors"

	gocache "github.com/patrickmn/go-cache"

	"voicedash/internal/mirror"
)

// DefaultCampaignLabel annotates calls no campaign claims.
const DefaultCampaignLabel = "Incoming Call"

// ResolveCampaignName attaches a human-readable campaign name to a
// call. It is a best-effort display annotation, not a foreign key:
// every tier recovers from store errors and the chain bottoms out at
// the default label, so resolution can never block ingestion.
//
// Tiers, first hit wins:
//  1. a campaign name already denormalized onto the record
//  2. lookup by the call's request identifier against campaign line items
//  3. campaign sharing destination digits and the resolved agent, newest first
//  4. same lookup without the agent constraint
//  5. origin number not among the workspace's own outbound numbers
//  6. default label
func (r *Reconciler) ResolveCampaignName(ctx context.Context, workspaceID string, rec mirror.CallRecord) string {
	if rec.CampaignName != "" {
		return rec.CampaignName
	}

	if rec.CallRequestID != "" {
		if c, err := r.store.GetCampaignByCallRequestID(ctx, workspaceID, rec.CallRequestID); err == nil && c.Name != "" {
			return c.Name
		} else if err != nil && !isNotFound(err) {
			r.log.Debug("campaign lookup by call request failed", "workspace_id", workspaceID, "err", err)
		}
	}

	if rec.ToDigits != "" {
		cacheKey := workspaceID + "|" + rec.ToDigits + "|" + rec.AgentRemoteID
		if name, ok := r.campaignNames.Get(cacheKey); ok {
			return name.(string)
		}
		if name := r.campaignByMatch(ctx, workspaceID, rec.ToDigits, rec.AgentRemoteID); name != "" {
			r.campaignNames.Set(cacheKey, name, gocache.DefaultExpiration)
			return name
		}
	}

	// Tiers 5 and 6 both land on the default label; listing the
	// workspace's numbers only confirms the call came from outside.
	return DefaultCampaignLabel
}

func (r *Reconciler) campaignByMatch(ctx context.Context, workspaceID, toDigits, agentRemoteID string) string {
	if agentRemoteID != "" {
		if c, err := r.store.LatestCampaignByMatch(ctx, workspaceID, toDigits, agentRemoteID); err == nil && c.Name != "" {
			return c.Name
		} else if err != nil && !isNotFound(err) {
			r.log.Debug("campaign match lookup failed", "workspace_id", workspaceID, "err", err)
			return ""
		}
	}
	if c, err := r.store.LatestCampaignByMatch(ctx, workspaceID, toDigits, ""); err == nil && c.Name != "" {
		return c.Name
	} else if err != nil && !isNotFound(err) {
		r.log.Debug("campaign match lookup failed", "workspace_id", workspaceID, "err", err)
	}
	return ""
}

func isNotFound(err error) bool {
	return errors.Is(err, mirror.ErrNotFound)
}
