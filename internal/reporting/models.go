package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics.
// Workspace isolation: WorkspaceID is required.

type CallsSummaryRequest struct {
	WorkspaceID  string    `json:"workspace_id"`
	Range        TimeRange `json:"range"`
	CampaignName string    `json:"campaign_name,omitempty"`
}

type CallsSummary struct {
	WorkspaceID  string `json:"workspace_id"`
	CampaignName string `json:"campaign_name,omitempty"`

	TotalCalls      int `json:"total_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	NoAnswerCalls   int `json:"no_answer_calls"`
	BusyCalls       int `json:"busy_calls"`
	CanceledCalls   int `json:"canceled_calls"`
	InProgressCalls int `json:"in_progress_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	TotalCost        float64 `json:"total_cost"`
	RecordedCalls    int     `json:"recorded_calls"`
	TranscribedCalls int     `json:"transcribed_calls"`
}

// CampaignProgressRequest requests per-campaign progress derived from
// the mirrored campaign counters.

type CampaignProgressRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

type CampaignProgress struct {
	RemoteID       string  `json:"remote_id"`
	Name           string  `json:"name"`
	TotalCalls     int     `json:"total_calls"`
	CompletedCalls int     `json:"completed_calls"`
	CompletionRate float64 `json:"completion_rate"`
}

// SyncHealthRequest requests mirror freshness for a workspace.

type SyncHealthRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

type SyncHealth struct {
	WorkspaceID string `json:"workspace_id"`

	TotalRecords   int `json:"total_records"`
	PendingRecords int `json:"pending_records"`
	ErrorRecords   int `json:"error_records"`
}
