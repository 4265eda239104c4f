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

// Field fallback chains for call payloads. Ordered; first hit wins.
var (
	callIDChain = []normalize.StringExtractor{
		normalize.IDKey("call_id"), normalize.IDKey("id"), normalize.IDKey("cid"),
	}
	callFromChain = []normalize.StringExtractor{
		normalize.Key("from_number"), normalize.Key("from"), normalize.Key("caller"),
	}
	callToChain = []normalize.StringExtractor{
		normalize.Key("to_number"), normalize.Key("to"), normalize.Key("callee"),
	}
	callStatusChain = []normalize.StringExtractor{
		normalize.Key("status"), normalize.Key("call_status"),
	}
	callTranscriptChain = []normalize.StringExtractor{
		normalize.Key("transcript"), normalize.Key("call_transcript"),
	}
	callRecordingChain = []normalize.StringExtractor{
		normalize.Key("recording_url"), normalize.Key("recording"), normalize.Key("call_recording"),
	}
	callAgentIDChain = []normalize.StringExtractor{
		normalize.IDKey("agent_id"), normalize.Path("agent", "id"),
	}
	callBotIDChain = []normalize.StringExtractor{
		normalize.IDKey("active_bot_id"), normalize.IDKey("bot_id"),
	}
	callAgentNameChain = []normalize.StringExtractor{
		normalize.Key("agent_name"), normalize.Path("agent", "name"),
	}
	callRequestIDChain = []normalize.StringExtractor{
		normalize.IDKey("call_request_id"), normalize.IDKey("request_id"),
	}
	callCampaignNameChain = []normalize.StringExtractor{
		normalize.Key("campaign_name"), normalize.Path("campaign", "name"),
	}
	callDurationKeys = []string{"duration", "call_duration", "duration_seconds"}
)

// ReconcileCalls upserts a page of raw call records. Calls are synced
// incrementally, so no absent-record pruning is ever offered for them:
// a partial page would read as mass deletion.
func (r *Reconciler) ReconcileCalls(ctx context.Context, workspaceID string, raw []normalize.RawRecord) (Result, error) {
	var res Result
	for _, rec := range raw {
		remoteID := normalize.FirstString(rec, callIDChain...)
		if remoteID == "" {
			r.log.Warn("call record without usable identifier skipped", "workspace_id", workspaceID)
			res.Skipped++
			continue
		}
		if err := r.reconcileCall(ctx, workspaceID, remoteID, rec, &res); err != nil {
			// One bad record must not abort the batch.
			r.log.Error("call reconcile failed", "workspace_id", workspaceID, "remote_id", remoteID, "err", err)
			res.Skipped++
		}
	}
	return res, nil
}

func (r *Reconciler) reconcileCall(ctx context.Context, workspaceID, remoteID string, raw normalize.RawRecord, res *Result) error {
	now := r.now().UTC()

	incoming := mirror.CallRecord{
		RemoteID:      remoteID,
		WorkspaceID:   workspaceID,
		FromNumber:    normalize.FirstString(raw, callFromChain...),
		ToNumber:      normalize.FirstString(raw, callToChain...),
		Status:        normalize.FirstString(raw, callStatusChain...),
		CampaignName:  normalize.FirstString(raw, callCampaignNameChain...),
		CallRequestID: normalize.FirstString(raw, callRequestIDChain...),
		LastSyncedAt:  now,
		SyncStatus:    mirror.SyncStatusSynced,
	}
	incoming.FromDigits = normalize.LastTenDigits(incoming.FromNumber)
	incoming.ToDigits = normalize.LastTenDigits(incoming.ToNumber)

	for _, k := range callDurationKeys {
		v, present := raw[k]
		if !present {
			continue
		}
		secs, ok := normalize.ParseDuration(v)
		if !ok {
			r.log.Warn("unparseable call duration defaulted to 0", "remote_id", remoteID, "value", v)
		}
		incoming.DurationSeconds = secs
		break
	}
	if cost, ok := normalize.FirstNumber(raw, "cost", "call_cost", "price"); ok {
		incoming.Cost = cost
	}
	if tr := normalize.FirstString(raw, callTranscriptChain...); tr != "" {
		incoming.Transcript = &tr
	}
	if rec := normalize.FirstString(raw, callRecordingChain...); rec != "" {
		incoming.RecordingURL = &rec
	}

	incoming.AgentRemoteID, incoming.AgentName = r.resolveCallAgent(ctx, workspaceID, raw)

	existing, err := r.store.GetCall(ctx, workspaceID, remoteID)
	switch {
	case errors.Is(err, mirror.ErrNotFound):
		incoming.CreatedAt = r.recordCreatedAt(raw)
		incoming.UpdatedAt = now
		if incoming.CampaignName == "" {
			incoming.CampaignName = r.ResolveCampaignName(ctx, workspaceID, incoming)
		}
		if _, err := r.store.PutCall(ctx, incoming); err != nil {
			return err
		}
		res.Created++
		res.Synced++
		r.emit.Emit(ctx, events.New("call", events.ActionCreated, workspaceID, remoteID, incoming))
		return nil
	case err != nil:
		return err
	}

	merged := mergeCall(existing, incoming, now)
	if merged.CampaignName == "" {
		merged.CampaignName = r.ResolveCampaignName(ctx, workspaceID, merged)
	}
	if _, err := r.store.PutCall(ctx, merged); err != nil {
		return err
	}
	res.Synced++
	res.Updated++
	// Broadcast only when an externally visible field moved.
	if callChanged(existing, merged) {
		r.emit.Emit(ctx, events.New("call", events.ActionUpdated, workspaceID, remoteID, merged))
	}
	return nil
}

// resolveCallAgent tries, in order: explicit remote agent id, the
// remote "active bot id", then the agent display name. The first
// strategy that finds a mirrored agent wins.
func (r *Reconciler) resolveCallAgent(ctx context.Context, workspaceID string, raw normalize.RawRecord) (remoteID, name string) {
	for _, chain := range [][]normalize.StringExtractor{callAgentIDChain, callBotIDChain} {
		id := normalize.FirstString(raw, chain...)
		if id == "" {
			continue
		}
		agent, err := r.store.GetAgent(ctx, workspaceID, id)
		if err == nil {
			return agent.RemoteID, agent.Name
		}
	}
	if n := normalize.FirstString(raw, callAgentNameChain...); n != "" {
		agent, err := r.store.GetAgentByName(ctx, workspaceID, n)
		if err == nil {
			return agent.RemoteID, agent.Name
		}
		// Keep the display name even when the agent is not mirrored yet.
		return "", n
	}
	return "", ""
}

// mergeCall lays incoming non-zero fields over the existing record.
// A resolved agent reference is never cleared by a sync that failed to
// re-resolve it: stale-but-present beats null.
func mergeCall(existing, incoming mirror.CallRecord, now time.Time) mirror.CallRecord {
	out := existing

	if incoming.FromNumber != "" {
		out.FromNumber, out.FromDigits = incoming.FromNumber, incoming.FromDigits
	}
	if incoming.ToNumber != "" {
		out.ToNumber, out.ToDigits = incoming.ToNumber, incoming.ToDigits
	}
	if incoming.DurationSeconds != 0 {
		out.DurationSeconds = incoming.DurationSeconds
	}
	if incoming.Status != "" {
		out.Status = incoming.Status
	}
	if incoming.Cost != 0 {
		out.Cost = incoming.Cost
	}
	if incoming.Transcript != nil {
		out.Transcript = incoming.Transcript
	}
	if incoming.RecordingURL != nil {
		out.RecordingURL = incoming.RecordingURL
	}
	if incoming.AgentRemoteID != "" {
		out.AgentRemoteID = incoming.AgentRemoteID
	}
	if incoming.AgentName != "" {
		out.AgentName = incoming.AgentName
	}
	if incoming.CampaignName != "" {
		out.CampaignName = incoming.CampaignName
	}
	if incoming.CallRequestID != "" {
		out.CallRequestID = incoming.CallRequestID
	}

	out.LastSyncedAt = incoming.LastSyncedAt
	out.SyncStatus = mirror.SyncStatusSynced
	out.UpdatedAt = now
	return out
}

// DeleteCall removes a call record locally; dashboard deletes
// propagate to the platform first.
func (r *Reconciler) DeleteCall(ctx context.Context, workspaceID, remoteID string, origin Origin) error {
	if origin == OriginDashboard {
		if err := r.remote.DeleteResource(ctx, remote.ResourceCalls, remoteID); err != nil {
			if !errors.Is(err, normalize.ErrIDOutOfRange) {
				return err
			}
			r.log.Warn("call delete skipped outbound, id outside remote contract", "remote_id", remoteID)
		}
	}
	if err := r.store.DeleteCall(ctx, workspaceID, remoteID); err != nil {
		return err
	}
	r.emit.Emit(ctx, events.New("call", events.ActionDeleted, workspaceID, remoteID, nil))
	return nil
}

// callChanged reports whether an externally visible field moved.
func callChanged(before, after mirror.CallRecord) bool {
	before.LastSyncedAt, after.LastSyncedAt = time.Time{}, time.Time{}
	before.UpdatedAt, after.UpdatedAt = time.Time{}, time.Time{}
	before.SyncStatus, after.SyncStatus = "", ""
	return !reflect.DeepEqual(before, after)
}
