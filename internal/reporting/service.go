package reporting

import (
	"context"
	"errors"

	"voicedash/internal/mirror"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// scanPagesize bounds the one-shot listing a summary works from.
const scanPagesize = 10000

// Service aggregates mirrored records into dashboard summaries. All
// reads go through the mirror store; reporting never calls the remote
// platform.
type Service struct {
	store mirror.Store
}

func NewService(store mirror.Store) *Service { return &Service{store: store} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.WorkspaceID == "" {
		return CallsSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.store == nil {
		return CallsSummary{}, errors.New("reporting: store not configured")
	}

	rows, _, err := s.store.ListCalls(ctx, req.WorkspaceID, mirror.CallFilter{
		CampaignName: req.CampaignName,
		From:         req.Range.From,
		To:           req.Range.To,
	}, mirror.Page{Pageno: 1, Pagesize: scanPagesize})
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{WorkspaceID: req.WorkspaceID, CampaignName: req.CampaignName}
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		out.TotalCost += c.Cost
		if c.RecordingURL != nil && *c.RecordingURL != "" {
			out.RecordedCalls++
		}
		if c.Transcript != nil && *c.Transcript != "" {
			out.TranscribedCalls++
		}
		switch c.Status {
		case "completed":
			out.CompletedCalls++
		case "failed":
			out.FailedCalls++
		case "no_answer", "no-answer":
			out.NoAnswerCalls++
		case "busy":
			out.BusyCalls++
		case "canceled", "cancelled":
			out.CanceledCalls++
		case "in_progress", "in-progress", "ongoing":
			out.InProgressCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}

func (s *Service) CampaignProgress(ctx context.Context, req CampaignProgressRequest) ([]CampaignProgress, error) {
	if req.WorkspaceID == "" {
		return nil, ErrInvalidRequest
	}
	if s.store == nil {
		return nil, errors.New("reporting: store not configured")
	}

	rows, _, err := s.store.ListCampaigns(ctx, req.WorkspaceID, mirror.Page{Pageno: 1, Pagesize: scanPagesize})
	if err != nil {
		return nil, err
	}

	out := make([]CampaignProgress, 0, len(rows))
	for _, c := range rows {
		p := CampaignProgress{
			RemoteID:       c.RemoteID,
			Name:           c.Name,
			TotalCalls:     c.TotalCalls,
			CompletedCalls: c.CompletedCalls,
		}
		if p.TotalCalls > 0 {
			p.CompletionRate = float64(p.CompletedCalls) / float64(p.TotalCalls)
		}
		out = append(out, p)
	}
	return out, nil
}

// SyncHealth counts mirrored records with degraded sync status across
// every resource table of a workspace.
func (s *Service) SyncHealth(ctx context.Context, req SyncHealthRequest) (SyncHealth, error) {
	if req.WorkspaceID == "" {
		return SyncHealth{}, ErrInvalidRequest
	}
	if s.store == nil {
		return SyncHealth{}, errors.New("reporting: store not configured")
	}

	out := SyncHealth{WorkspaceID: req.WorkspaceID}
	page := mirror.Page{Pageno: 1, Pagesize: scanPagesize}

	calls, _, err := s.store.ListCalls(ctx, req.WorkspaceID, mirror.CallFilter{}, page)
	if err != nil {
		return SyncHealth{}, err
	}
	for _, c := range calls {
		out.tally(c.SyncStatus)
	}

	numbers, _, err := s.store.ListNumbers(ctx, req.WorkspaceID, mirror.NumberFilter{}, page)
	if err != nil {
		return SyncHealth{}, err
	}
	for _, n := range numbers {
		out.tally(n.SyncStatus)
	}

	files, _, err := s.store.ListFiles(ctx, req.WorkspaceID, page)
	if err != nil {
		return SyncHealth{}, err
	}
	for _, f := range files {
		out.tally(f.SyncStatus)
	}

	agents, _, err := s.store.ListAgents(ctx, req.WorkspaceID, page)
	if err != nil {
		return SyncHealth{}, err
	}
	for _, a := range agents {
		out.tally(a.SyncStatus)
	}

	campaigns, _, err := s.store.ListCampaigns(ctx, req.WorkspaceID, page)
	if err != nil {
		return SyncHealth{}, err
	}
	for _, c := range campaigns {
		out.tally(c.SyncStatus)
	}

	return out, nil
}

func (h *SyncHealth) tally(status mirror.SyncStatus) {
	h.TotalRecords++
	switch status {
	case mirror.SyncStatusPending:
		h.PendingRecords++
	case mirror.SyncStatusError:
		h.ErrorRecords++
	}
}
