package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore implements Store over database/sql with the pgx stdlib
// driver. Uniqueness of (workspace_id, remote_id) comes from the
// primary keys; upserts are ON CONFLICT DO UPDATE whole-row writes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

// Schema creates the mirror tables. Idempotent; run at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS mirror_calls (
	workspace_id     TEXT NOT NULL,
	remote_id        TEXT NOT NULL,
	from_number      TEXT NOT NULL DEFAULT '',
	to_number        TEXT NOT NULL DEFAULT '',
	from_digits      TEXT NOT NULL DEFAULT '',
	to_digits        TEXT NOT NULL DEFAULT '',
	duration_seconds INT  NOT NULL DEFAULT 0,
	status           TEXT NOT NULL DEFAULT '',
	cost             DOUBLE PRECISION NOT NULL DEFAULT 0,
	transcript       TEXT,
	recording_url    TEXT,
	agent_remote_id  TEXT NOT NULL DEFAULT '',
	agent_name       TEXT NOT NULL DEFAULT '',
	campaign_name    TEXT NOT NULL DEFAULT '',
	call_request_id  TEXT NOT NULL DEFAULT '',
	last_synced_at   TIMESTAMPTZ NOT NULL,
	sync_status      TEXT NOT NULL DEFAULT 'synced',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (workspace_id, remote_id)
);
CREATE INDEX IF NOT EXISTS idx_mirror_calls_created ON mirror_calls (workspace_id, created_at DESC);

CREATE TABLE IF NOT EXISTS mirror_numbers (
	workspace_id    TEXT NOT NULL,
	remote_id       TEXT NOT NULL,
	number          TEXT NOT NULL DEFAULT '',
	e164            TEXT NOT NULL DEFAULT '',
	digits          TEXT NOT NULL DEFAULT '',
	label           TEXT NOT NULL DEFAULT '',
	provider        TEXT NOT NULL DEFAULT '',
	capabilities    JSONB NOT NULL DEFAULT '[]',
	attached_agent_remote_id TEXT NOT NULL DEFAULT '',
	last_synced_at  TIMESTAMPTZ NOT NULL,
	sync_status     TEXT NOT NULL DEFAULT 'synced',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (workspace_id, remote_id)
);

CREATE TABLE IF NOT EXISTS mirror_files (
	workspace_id   TEXT NOT NULL,
	remote_id      TEXT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	storage_url    TEXT NOT NULL DEFAULT '',
	size_bytes     BIGINT NOT NULL DEFAULT 0,
	content_type   TEXT NOT NULL DEFAULT '',
	attached_agent_remote_ids JSONB NOT NULL DEFAULT '[]',
	last_synced_at TIMESTAMPTZ NOT NULL,
	sync_status    TEXT NOT NULL DEFAULT 'synced',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (workspace_id, remote_id)
);

CREATE TABLE IF NOT EXISTS mirror_agents (
	workspace_id   TEXT NOT NULL,
	remote_id      TEXT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	llm_model      TEXT NOT NULL DEFAULT '',
	voice_id       TEXT NOT NULL DEFAULT '',
	use_case       TEXT NOT NULL DEFAULT '',
	knowledge_base_file_count INT NOT NULL DEFAULT 0,
	last_synced_at TIMESTAMPTZ NOT NULL,
	sync_status    TEXT NOT NULL DEFAULT 'synced',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (workspace_id, remote_id)
);
CREATE INDEX IF NOT EXISTS idx_mirror_agents_name ON mirror_agents (workspace_id, lower(name));

CREATE TABLE IF NOT EXISTS mirror_campaigns (
	workspace_id     TEXT NOT NULL,
	remote_id        TEXT NOT NULL,
	name             TEXT NOT NULL DEFAULT '',
	agent_remote_id  TEXT NOT NULL DEFAULT '',
	number_remote_id TEXT NOT NULL DEFAULT '',
	to_digits        TEXT NOT NULL DEFAULT '',
	call_request_ids JSONB NOT NULL DEFAULT '[]',
	total_calls      INT NOT NULL DEFAULT 0,
	completed_calls  INT NOT NULL DEFAULT 0,
	last_synced_at   TIMESTAMPTZ NOT NULL,
	sync_status      TEXT NOT NULL DEFAULT 'synced',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (workspace_id, remote_id)
);
CREATE INDEX IF NOT EXISTS idx_mirror_campaigns_match ON mirror_campaigns (workspace_id, to_digits, created_at DESC);
`

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("mirror: schema apply failed: %w", err)
	}
	return nil
}

func jsonList(v []string) []byte {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return b
}

func scanJSONList(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func nullStr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func strPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

/* ===================== Calls ===================== */

const callColumns = `workspace_id, remote_id, from_number, to_number, from_digits, to_digits,
	duration_seconds, status, cost, transcript, recording_url, agent_remote_id, agent_name,
	campaign_name, call_request_id, last_synced_at, sync_status, created_at, updated_at`

func scanCall(row interface{ Scan(...any) error }) (CallRecord, error) {
	var rec CallRecord
	var transcript, recording sql.NullString
	err := row.Scan(&rec.WorkspaceID, &rec.RemoteID, &rec.FromNumber, &rec.ToNumber,
		&rec.FromDigits, &rec.ToDigits, &rec.DurationSeconds, &rec.Status, &rec.Cost,
		&transcript, &recording, &rec.AgentRemoteID, &rec.AgentName, &rec.CampaignName,
		&rec.CallRequestID, &rec.LastSyncedAt, &rec.SyncStatus, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return CallRecord{}, err
	}
	rec.Transcript = strPtr(transcript)
	rec.RecordingURL = strPtr(recording)
	return rec, nil
}

func (s *PostgresStore) GetCall(ctx context.Context, workspaceID, remoteID string) (CallRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+callColumns+` FROM mirror_calls WHERE workspace_id = $1 AND remote_id = $2`,
		workspaceID, remoteID)
	rec, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CallRecord{}, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) PutCall(ctx context.Context, rec CallRecord) (bool, error) {
	var created bool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO mirror_calls (`+callColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (workspace_id, remote_id) DO UPDATE SET
			from_number = EXCLUDED.from_number, to_number = EXCLUDED.to_number,
			from_digits = EXCLUDED.from_digits, to_digits = EXCLUDED.to_digits,
			duration_seconds = EXCLUDED.duration_seconds, status = EXCLUDED.status,
			cost = EXCLUDED.cost, transcript = EXCLUDED.transcript,
			recording_url = EXCLUDED.recording_url, agent_remote_id = EXCLUDED.agent_remote_id,
			agent_name = EXCLUDED.agent_name, campaign_name = EXCLUDED.campaign_name,
			call_request_id = EXCLUDED.call_request_id, last_synced_at = EXCLUDED.last_synced_at,
			sync_status = EXCLUDED.sync_status, updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)`,
		rec.WorkspaceID, rec.RemoteID, rec.FromNumber, rec.ToNumber, rec.FromDigits, rec.ToDigits,
		rec.DurationSeconds, rec.Status, rec.Cost, nullStr(rec.Transcript), nullStr(rec.RecordingURL),
		rec.AgentRemoteID, rec.AgentName, rec.CampaignName, rec.CallRequestID,
		rec.LastSyncedAt, rec.SyncStatus, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&created)
	return created, err
}

func (s *PostgresStore) ListCalls(ctx context.Context, workspaceID string, f CallFilter, p Page) ([]CallRecord, int, error) {
	p = p.normalized()
	where := `workspace_id = $1`
	args := []any{workspaceID}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if f.CampaignName != "" {
		args = append(args, f.CampaignName)
		where += fmt.Sprintf(` AND campaign_name = $%d`, len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		where += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		where += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM mirror_calls WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, p.Pagesize, (p.Pageno-1)*p.Pagesize)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+callColumns+` FROM mirror_calls WHERE `+where+
			fmt.Sprintf(` ORDER BY created_at DESC, remote_id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]CallRecord, 0, p.Pagesize)
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (s *PostgresStore) DeleteCall(ctx context.Context, workspaceID, remoteID string) error {
	return s.deleteByKey(ctx, "mirror_calls", workspaceID, remoteID)
}

/* ===================== Phone numbers ===================== */

const numberColumns = `workspace_id, remote_id, number, e164, digits, label, provider, capabilities,
	attached_agent_remote_id, last_synced_at, sync_status, created_at, updated_at`

func scanNumber(row interface{ Scan(...any) error }) (PhoneNumber, error) {
	var rec PhoneNumber
	var caps []byte
	err := row.Scan(&rec.WorkspaceID, &rec.RemoteID, &rec.Number, &rec.E164, &rec.Digits, &rec.Label,
		&rec.Provider, &caps, &rec.AttachedAgentRemoteID, &rec.LastSyncedAt, &rec.SyncStatus,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return PhoneNumber{}, err
	}
	rec.Capabilities = scanJSONList(caps)
	return rec, nil
}

func (s *PostgresStore) GetNumber(ctx context.Context, workspaceID, remoteID string) (PhoneNumber, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+numberColumns+` FROM mirror_numbers WHERE workspace_id = $1 AND remote_id = $2`,
		workspaceID, remoteID)
	rec, err := scanNumber(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PhoneNumber{}, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) PutNumber(ctx context.Context, rec PhoneNumber) (bool, error) {
	var created bool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO mirror_numbers (`+numberColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (workspace_id, remote_id) DO UPDATE SET
			number = EXCLUDED.number, e164 = EXCLUDED.e164, digits = EXCLUDED.digits,
			label = EXCLUDED.label, provider = EXCLUDED.provider,
			capabilities = EXCLUDED.capabilities,
			attached_agent_remote_id = EXCLUDED.attached_agent_remote_id,
			last_synced_at = EXCLUDED.last_synced_at, sync_status = EXCLUDED.sync_status,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)`,
		rec.WorkspaceID, rec.RemoteID, rec.Number, rec.E164, rec.Digits, rec.Label, rec.Provider,
		jsonList(rec.Capabilities), rec.AttachedAgentRemoteID, rec.LastSyncedAt, rec.SyncStatus,
		rec.CreatedAt, rec.UpdatedAt,
	).Scan(&created)
	return created, err
}

func (s *PostgresStore) ListNumbers(ctx context.Context, workspaceID string, f NumberFilter, p Page) ([]PhoneNumber, int, error) {
	p = p.normalized()
	where := `workspace_id = $1`
	args := []any{workspaceID}
	if f.AttachedAgentRemoteID != "" {
		args = append(args, f.AttachedAgentRemoteID)
		where += fmt.Sprintf(` AND attached_agent_remote_id = $%d`, len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM mirror_numbers WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, p.Pagesize, (p.Pageno-1)*p.Pagesize)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+numberColumns+` FROM mirror_numbers WHERE `+where+
			fmt.Sprintf(` ORDER BY remote_id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]PhoneNumber, 0, p.Pagesize)
	for rows.Next() {
		rec, err := scanNumber(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (s *PostgresStore) DeleteNumber(ctx context.Context, workspaceID, remoteID string) error {
	return s.deleteByKey(ctx, "mirror_numbers", workspaceID, remoteID)
}

/* ===================== Files ===================== */

const fileColumns = `workspace_id, remote_id, name, storage_url, size_bytes, content_type,
	attached_agent_remote_ids, last_synced_at, sync_status, created_at, updated_at`

func scanFile(row interface{ Scan(...any) error }) (File, error) {
	var rec File
	var attached []byte
	err := row.Scan(&rec.WorkspaceID, &rec.RemoteID, &rec.Name, &rec.StorageURL, &rec.SizeBytes,
		&rec.ContentType, &attached, &rec.LastSyncedAt, &rec.SyncStatus, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return File{}, err
	}
	rec.AttachedAgentRemoteIDs = scanJSONList(attached)
	return rec, nil
}

func (s *PostgresStore) GetFile(ctx context.Context, workspaceID, remoteID string) (File, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM mirror_files WHERE workspace_id = $1 AND remote_id = $2`,
		workspaceID, remoteID)
	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) PutFile(ctx context.Context, rec File) (bool, error) {
	var created bool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO mirror_files (`+fileColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (workspace_id, remote_id) DO UPDATE SET
			name = EXCLUDED.name, storage_url = EXCLUDED.storage_url,
			size_bytes = EXCLUDED.size_bytes, content_type = EXCLUDED.content_type,
			attached_agent_remote_ids = EXCLUDED.attached_agent_remote_ids,
			last_synced_at = EXCLUDED.last_synced_at, sync_status = EXCLUDED.sync_status,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)`,
		rec.WorkspaceID, rec.RemoteID, rec.Name, rec.StorageURL, rec.SizeBytes, rec.ContentType,
		jsonList(rec.AttachedAgentRemoteIDs), rec.LastSyncedAt, rec.SyncStatus,
		rec.CreatedAt, rec.UpdatedAt,
	).Scan(&created)
	return created, err
}

func (s *PostgresStore) ListFiles(ctx context.Context, workspaceID string, p Page) ([]File, int, error) {
	p = p.normalized()
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM mirror_files WHERE workspace_id = $1`, workspaceID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM mirror_files WHERE workspace_id = $1 ORDER BY remote_id LIMIT $2 OFFSET $3`,
		workspaceID, p.Pagesize, (p.Pageno-1)*p.Pagesize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]File, 0, p.Pagesize)
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (s *PostgresStore) DeleteFile(ctx context.Context, workspaceID, remoteID string) error {
	return s.deleteByKey(ctx, "mirror_files", workspaceID, remoteID)
}

func (s *PostgresStore) CountFilesForAgent(ctx context.Context, workspaceID, agentRemoteID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM mirror_files WHERE workspace_id = $1 AND attached_agent_remote_ids ? $2`,
		workspaceID, agentRemoteID).Scan(&count)
	return count, err
}

/* ===================== Agents ===================== */

const agentColumns = `workspace_id, remote_id, name, description, llm_model, voice_id, use_case,
	knowledge_base_file_count, last_synced_at, sync_status, created_at, updated_at`

func scanAgent(row interface{ Scan(...any) error }) (Agent, error) {
	var rec Agent
	err := row.Scan(&rec.WorkspaceID, &rec.RemoteID, &rec.Name, &rec.Description, &rec.LLMModel,
		&rec.VoiceID, &rec.UseCase, &rec.KnowledgeBaseFileCount, &rec.LastSyncedAt, &rec.SyncStatus,
		&rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

func (s *PostgresStore) GetAgent(ctx context.Context, workspaceID, remoteID string) (Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM mirror_agents WHERE workspace_id = $1 AND remote_id = $2`,
		workspaceID, remoteID)
	rec, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) GetAgentByName(ctx context.Context, workspaceID, name string) (Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM mirror_agents WHERE workspace_id = $1 AND lower(name) = lower($2) LIMIT 1`,
		workspaceID, name)
	rec, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) PutAgent(ctx context.Context, rec Agent) (bool, error) {
	var created bool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO mirror_agents (`+agentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (workspace_id, remote_id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			llm_model = EXCLUDED.llm_model, voice_id = EXCLUDED.voice_id,
			use_case = EXCLUDED.use_case,
			knowledge_base_file_count = EXCLUDED.knowledge_base_file_count,
			last_synced_at = EXCLUDED.last_synced_at, sync_status = EXCLUDED.sync_status,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)`,
		rec.WorkspaceID, rec.RemoteID, rec.Name, rec.Description, rec.LLMModel, rec.VoiceID,
		rec.UseCase, rec.KnowledgeBaseFileCount, rec.LastSyncedAt, rec.SyncStatus,
		rec.CreatedAt, rec.UpdatedAt,
	).Scan(&created)
	return created, err
}

func (s *PostgresStore) ListAgents(ctx context.Context, workspaceID string, p Page) ([]Agent, int, error) {
	p = p.normalized()
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM mirror_agents WHERE workspace_id = $1`, workspaceID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+agentColumns+` FROM mirror_agents WHERE workspace_id = $1 ORDER BY remote_id LIMIT $2 OFFSET $3`,
		workspaceID, p.Pagesize, (p.Pageno-1)*p.Pagesize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Agent, 0, p.Pagesize)
	for rows.Next() {
		rec, err := scanAgent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (s *PostgresStore) DeleteAgent(ctx context.Context, workspaceID, remoteID string) error {
	return s.deleteByKey(ctx, "mirror_agents", workspaceID, remoteID)
}

/* ===================== Campaigns ===================== */

const campaignColumns = `workspace_id, remote_id, name, agent_remote_id, number_remote_id, to_digits,
	call_request_ids, total_calls, completed_calls, last_synced_at, sync_status, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (Campaign, error) {
	var rec Campaign
	var reqIDs []byte
	err := row.Scan(&rec.WorkspaceID, &rec.RemoteID, &rec.Name, &rec.AgentRemoteID,
		&rec.NumberRemoteID, &rec.ToDigits, &reqIDs, &rec.TotalCalls, &rec.CompletedCalls,
		&rec.LastSyncedAt, &rec.SyncStatus, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return Campaign{}, err
	}
	rec.CallRequestIDs = scanJSONList(reqIDs)
	return rec, nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, workspaceID, remoteID string) (Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM mirror_campaigns WHERE workspace_id = $1 AND remote_id = $2`,
		workspaceID, remoteID)
	rec, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) PutCampaign(ctx context.Context, rec Campaign) (bool, error) {
	var created bool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO mirror_campaigns (`+campaignColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (workspace_id, remote_id) DO UPDATE SET
			name = EXCLUDED.name, agent_remote_id = EXCLUDED.agent_remote_id,
			number_remote_id = EXCLUDED.number_remote_id, to_digits = EXCLUDED.to_digits,
			call_request_ids = EXCLUDED.call_request_ids, total_calls = EXCLUDED.total_calls,
			completed_calls = EXCLUDED.completed_calls, last_synced_at = EXCLUDED.last_synced_at,
			sync_status = EXCLUDED.sync_status, updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)`,
		rec.WorkspaceID, rec.RemoteID, rec.Name, rec.AgentRemoteID, rec.NumberRemoteID,
		rec.ToDigits, jsonList(rec.CallRequestIDs), rec.TotalCalls, rec.CompletedCalls,
		rec.LastSyncedAt, rec.SyncStatus, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&created)
	return created, err
}

func (s *PostgresStore) ListCampaigns(ctx context.Context, workspaceID string, p Page) ([]Campaign, int, error) {
	p = p.normalized()
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM mirror_campaigns WHERE workspace_id = $1`, workspaceID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM mirror_campaigns WHERE workspace_id = $1
		 ORDER BY created_at DESC, remote_id DESC LIMIT $2 OFFSET $3`,
		workspaceID, p.Pagesize, (p.Pageno-1)*p.Pagesize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Campaign, 0, p.Pagesize)
	for rows.Next() {
		rec, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (s *PostgresStore) GetCampaignByCallRequestID(ctx context.Context, workspaceID, callRequestID string) (Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM mirror_campaigns
		 WHERE workspace_id = $1 AND call_request_ids ? $2 LIMIT 1`,
		workspaceID, callRequestID)
	rec, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) LatestCampaignByMatch(ctx context.Context, workspaceID, toDigits, agentRemoteID string) (Campaign, error) {
	q := `SELECT ` + campaignColumns + ` FROM mirror_campaigns
	      WHERE workspace_id = $1 AND to_digits = $2`
	args := []any{workspaceID, toDigits}
	if agentRemoteID != "" {
		args = append(args, agentRemoteID)
		q += ` AND agent_remote_id = $3`
	}
	q += ` ORDER BY created_at DESC LIMIT 1`

	rec, err := scanCampaign(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) DeleteCampaign(ctx context.Context, workspaceID, remoteID string) error {
	return s.deleteByKey(ctx, "mirror_campaigns", workspaceID, remoteID)
}

func (s *PostgresStore) ListWorkspaceIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT workspace_id FROM (
			SELECT workspace_id FROM mirror_calls
			UNION SELECT workspace_id FROM mirror_numbers
			UNION SELECT workspace_id FROM mirror_files
			UNION SELECT workspace_id FROM mirror_agents
			UNION SELECT workspace_id FROM mirror_campaigns
		) AS w ORDER BY workspace_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *PostgresStore) deleteByKey(ctx context.Context, table, workspaceID, remoteID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE workspace_id = $1 AND remote_id = $2`, workspaceID, remoteID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
var _ Store = (*MemoryStore)(nil)
