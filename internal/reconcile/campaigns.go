package reconcile

import (
	"context"
	"errors"
	"reflect"
	"time"

	"voicedash/internal/events"
	"voicedash/internal/mirror"
	"voicedash/internal/normalize"
	"voicedash/internal/remote"
)

var (
	campaignIDChain = []normalize.StringExtractor{
		normalize.IDKey("campaign_id"), normalize.IDKey("id"),
	}
	campaignNameChain = []normalize.StringExtractor{
		normalize.Key("campaign_name"), normalize.Key("name"), normalize.Key("title"),
	}
	campaignAgentChain = []normalize.StringExtractor{
		normalize.IDKey("agent_id"), normalize.Path("agent", "id"), normalize.IDKey("bot_id"),
	}
	campaignNumberChain = []normalize.StringExtractor{
		normalize.IDKey("phone_number_id"), normalize.IDKey("from_number_id"),
	}
	campaignToChain = []normalize.StringExtractor{
		normalize.Key("to_number"), normalize.Key("phone_number"), normalize.Key("recipient"),
	}
	campaignRequestListKeys = []string{"call_request_ids", "call_requests", "request_ids"}
)

// ReconcileCampaigns upserts a page of raw campaign records.
func (r *Reconciler) ReconcileCampaigns(ctx context.Context, workspaceID string, raw []normalize.RawRecord) (Result, error) {
	var res Result
	for _, rec := range raw {
		remoteID := normalize.FirstString(rec, campaignIDChain...)
		if remoteID == "" {
			r.log.Warn("campaign record without usable identifier skipped", "workspace_id", workspaceID)
			res.Skipped++
			continue
		}
		if err := r.reconcileCampaign(ctx, workspaceID, remoteID, rec, &res); err != nil {
			r.log.Error("campaign reconcile failed", "workspace_id", workspaceID, "remote_id", remoteID, "err", err)
			res.Skipped++
		}
	}
	return res, nil
}

func (r *Reconciler) reconcileCampaign(ctx context.Context, workspaceID, remoteID string, raw normalize.RawRecord, res *Result) error {
	now := r.now().UTC()

	incoming := mirror.Campaign{
		RemoteID:       remoteID,
		WorkspaceID:    workspaceID,
		Name:           normalize.FirstString(raw, campaignNameChain...),
		AgentRemoteID:  normalize.FirstString(raw, campaignAgentChain...),
		NumberRemoteID: normalize.FirstString(raw, campaignNumberChain...),
		ToDigits:       normalize.LastTenDigits(normalize.FirstString(raw, campaignToChain...)),
	}
	for _, k := range campaignRequestListKeys {
		if v, ok := raw[k]; ok {
			incoming.CallRequestIDs = idList(v)
			break
		}
	}
	if n, ok := normalize.FirstNumber(raw, "total_calls", "calls_total", "total"); ok {
		incoming.TotalCalls = int(n)
	} else {
		incoming.TotalCalls = len(incoming.CallRequestIDs)
	}
	if n, ok := normalize.FirstNumber(raw, "completed_calls", "calls_completed", "completed"); ok {
		incoming.CompletedCalls = int(n)
	}

	existing, err := r.store.GetCampaign(ctx, workspaceID, remoteID)
	switch {
	case errors.Is(err, mirror.ErrNotFound):
		incoming.LastSyncedAt = now
		incoming.SyncStatus = mirror.SyncStatusSynced
		incoming.CreatedAt = r.recordCreatedAt(raw)
		incoming.UpdatedAt = now
		if _, err := r.store.PutCampaign(ctx, incoming); err != nil {
			return err
		}
		res.Created++
		res.Synced++
		r.emit.Emit(ctx, events.New("campaign", events.ActionCreated, workspaceID, remoteID, incoming))
		return nil
	case err != nil:
		return err
	}

	merged := existing
	if incoming.Name != "" {
		merged.Name = incoming.Name
	}
	if incoming.AgentRemoteID != "" {
		merged.AgentRemoteID = incoming.AgentRemoteID
	}
	if incoming.NumberRemoteID != "" {
		merged.NumberRemoteID = incoming.NumberRemoteID
	}
	if incoming.ToDigits != "" {
		merged.ToDigits = incoming.ToDigits
	}
	if incoming.CallRequestIDs != nil {
		merged.CallRequestIDs = incoming.CallRequestIDs
	}
	if incoming.TotalCalls > 0 {
		merged.TotalCalls = incoming.TotalCalls
	}
	if incoming.CompletedCalls > 0 {
		merged.CompletedCalls = incoming.CompletedCalls
	}
	merged.LastSyncedAt = now
	merged.SyncStatus = mirror.SyncStatusSynced
	merged.UpdatedAt = now

	if _, err := r.store.PutCampaign(ctx, merged); err != nil {
		return err
	}
	res.Synced++
	res.Updated++
	if campaignChanged(existing, merged) {
		r.emit.Emit(ctx, events.New("campaign", events.ActionUpdated, workspaceID, remoteID, merged))
	}
	return nil
}

// DeleteCampaign removes a campaign locally; dashboard deletes go to
// the platform first. Call records keep their denormalized campaign
// name, so history stays readable after the campaign is gone.
func (r *Reconciler) DeleteCampaign(ctx context.Context, workspaceID, remoteID string, origin Origin) error {
	if origin == OriginDashboard {
		if err := r.remote.DeleteResource(ctx, remote.ResourceCampaigns, remoteID); err != nil {
			if !errors.Is(err, normalize.ErrIDOutOfRange) {
				return err
			}
			r.log.Warn("campaign delete skipped outbound, id outside remote contract", "remote_id", remoteID)
		}
	}
	if err := r.store.DeleteCampaign(ctx, workspaceID, remoteID); err != nil {
		return err
	}
	r.emit.Emit(ctx, events.New("campaign", events.ActionDeleted, workspaceID, remoteID, nil))
	return nil
}

func campaignChanged(before, after mirror.Campaign) bool {
	before.LastSyncedAt, after.LastSyncedAt = time.Time{}, time.Time{}
	before.UpdatedAt, after.UpdatedAt = time.Time{}, time.Time{}
	before.SyncStatus, after.SyncStatus = "", ""
	return !reflect.DeepEqual(before, after)
}
