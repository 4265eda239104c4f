package mirror

import "time"

// The mirror holds canonical copies of resources owned by the remote
// voice-AI platform. Every entity is keyed by (workspace_id, remote_id);
// remote_id is stored as an opaque string because remote numeric
// identifiers can exceed 32-bit range.

type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPending SyncStatus = "pending"
	SyncStatusError   SyncStatus = "error"
)

// CallRecord mirrors one call on the remote platform.
//
// AgentRemoteID and CampaignName are weak references: once resolved
// they are not cleared by a later sync that fails to re-resolve them.
type CallRecord struct {
	RemoteID    string `json:"remote_id" db:"remote_id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	FromNumber string `json:"from_number" db:"from_number"`
	ToNumber   string `json:"to_number" db:"to_number"`
	// Last-10-digit forms used for cross-entity matching.
	FromDigits string `json:"from_digits" db:"from_digits"`
	ToDigits   string `json:"to_digits" db:"to_digits"`

	DurationSeconds int     `json:"duration" db:"duration_seconds"`
	Status          string  `json:"status" db:"status"`
	Cost            float64 `json:"cost" db:"cost"`

	Transcript   *string `json:"transcript,omitempty" db:"transcript"`
	RecordingURL *string `json:"recording_url,omitempty" db:"recording_url"`

	AgentRemoteID string `json:"agent_remote_id,omitempty" db:"agent_remote_id"`
	AgentName     string `json:"agent_name,omitempty" db:"agent_name"`

	CampaignName  string `json:"campaign_name,omitempty" db:"campaign_name"`
	CallRequestID string `json:"call_request_id,omitempty" db:"call_request_id"`

	LastSyncedAt time.Time  `json:"last_synced_at" db:"last_synced_at"`
	SyncStatus   SyncStatus `json:"sync_status" db:"sync_status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PhoneNumber mirrors a number imported into the remote platform.
// A number is attached to at most one agent at a time; the remote
// side's attachment wins on pull.
type PhoneNumber struct {
	RemoteID    string `json:"remote_id" db:"remote_id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	Number string `json:"number" db:"number"`
	// E164 is the canonical rendering of Number when it parses as a
	// valid phone number; empty otherwise.
	E164     string `json:"e164,omitempty" db:"e164"`
	Digits   string `json:"digits" db:"digits"`
	Label    string `json:"label,omitempty" db:"label"`
	Provider string `json:"provider,omitempty" db:"provider"`

	Capabilities []string `json:"capabilities,omitempty" db:"capabilities"`

	AttachedAgentRemoteID string `json:"attached_agent_remote_id,omitempty" db:"attached_agent_remote_id"`

	LastSyncedAt time.Time  `json:"last_synced_at" db:"last_synced_at"`
	SyncStatus   SyncStatus `json:"sync_status" db:"sync_status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// File mirrors a knowledge-base file. An agent's KnowledgeBaseFileCount
// must always equal the number of Files referencing it; the count is
// recomputed after every attach/detach, never incrementally trusted.
type File struct {
	RemoteID    string `json:"remote_id" db:"remote_id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	Name        string `json:"name" db:"name"`
	StorageURL  string `json:"storage_url,omitempty" db:"storage_url"`
	SizeBytes   int64  `json:"size_bytes" db:"size_bytes"`
	ContentType string `json:"content_type,omitempty" db:"content_type"`

	AttachedAgentRemoteIDs []string `json:"attached_agent_remote_ids,omitempty" db:"attached_agent_remote_ids"`

	LastSyncedAt time.Time  `json:"last_synced_at" db:"last_synced_at"`
	SyncStatus   SyncStatus `json:"sync_status" db:"sync_status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Agent mirrors a voice agent configuration.
type Agent struct {
	RemoteID    string `json:"remote_id" db:"remote_id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`

	LLMModel string `json:"llm_model,omitempty" db:"llm_model"`
	VoiceID  string `json:"voice_id,omitempty" db:"voice_id"`
	UseCase  string `json:"use_case,omitempty" db:"use_case"`

	// Derived: count of Files whose attachment set references this agent.
	KnowledgeBaseFileCount int `json:"knowledge_base_file_count" db:"knowledge_base_file_count"`

	LastSyncedAt time.Time  `json:"last_synced_at" db:"last_synced_at"`
	SyncStatus   SyncStatus `json:"sync_status" db:"sync_status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Campaign mirrors a bulk-call campaign.
type Campaign struct {
	RemoteID    string `json:"remote_id" db:"remote_id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	Name string `json:"name" db:"name"`

	AgentRemoteID  string `json:"agent_remote_id,omitempty" db:"agent_remote_id"`
	NumberRemoteID string `json:"number_remote_id,omitempty" db:"number_remote_id"`
	// ToDigits is the campaign's destination-number match key.
	ToDigits string `json:"to_digits,omitempty" db:"to_digits"`

	// CallRequestIDs are the campaign's line-item identifiers; a call
	// carrying one of them belongs to this campaign.
	CallRequestIDs []string `json:"call_request_ids,omitempty" db:"call_request_ids"`

	TotalCalls     int `json:"total_calls" db:"total_calls"`
	CompletedCalls int `json:"completed_calls" db:"completed_calls"`

	LastSyncedAt time.Time  `json:"last_synced_at" db:"last_synced_at"`
	SyncStatus   SyncStatus `json:"sync_status" db:"sync_status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
