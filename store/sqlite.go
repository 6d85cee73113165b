package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/agentrelay/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id              TEXT PRIMARY KEY,
	thread_id       TEXT NOT NULL,
	type            TEXT NOT NULL,
	payload         TEXT,
	parent_event_id TEXT,
	trace_id        TEXT,
	priority        INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL,
	metadata        TEXT,
	ttl_ms          INTEGER NOT NULL DEFAULT 0,
	expires_at      TIMESTAMP,
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_thread_status ON events(thread_id, status);

CREATE TABLE IF NOT EXISTS messages (
	id           TEXT PRIMARY KEY,
	thread_id    TEXT NOT NULL,
	sender_id    TEXT NOT NULL,
	sender_type  TEXT NOT NULL,
	content      TEXT NOT NULL,
	tool_call_id TEXT,
	tool_calls   TEXT,
	metadata     TEXT,
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, created_at);

CREATE TABLE IF NOT EXISTS threads (
	id               TEXT PRIMARY KEY,
	title            TEXT,
	participants     TEXT NOT NULL,
	status           TEXT NOT NULL,
	parent_thread_id TEXT,
	task_id          TEXT,
	context          TEXT,
	metadata         TEXT,
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT,
	status      TEXT,
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	external_id TEXT UNIQUE,
	name        TEXT NOT NULL
);
`

// SQLite is a core.Storage backed by a single SQLite file via the pure-Go
// driver. Suitable for durable single-node deployments; WAL mode and a busy
// timeout make concurrent readers safe while the worker writes.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path, applies production-safe
// pragmas and ensures the schema exists. Pass ":memory:" for an ephemeral
// database in tests.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	ctx := context.Background()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout on %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// DB exposes the handle for callers that manage threads, tasks and users
// through their own queries.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) AddToQueue(ctx context.Context, threadID string, ev core.Event) error {
	if ev.Type == core.EventToken {
		return core.ErrEphemeralEvent
	}

	if ev.Status == "" {
		ev.Status = core.StatusPending
	}

	payload, err := marshalNullable(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	metadata, err := marshalNullable(ev.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, thread_id, type, payload, parent_event_id, trace_id, priority, status, metadata, ttl_ms, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, threadID, string(ev.Type), payload, ev.ParentEventID, ev.TraceID,
		ev.Priority, string(ev.Status), metadata, ev.TTLMs, ev.ExpiresAt,
		ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *SQLite) GetProcessingQueueItem(ctx context.Context, threadID string) (*core.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, thread_id, type, payload, parent_event_id, trace_id, priority, status, metadata, ttl_ms, expires_at, created_at, updated_at
		FROM events WHERE thread_id = ? AND status = ? LIMIT 1`,
		threadID, string(core.StatusProcessing),
	)
	return scanEvent(row)
}

func (s *SQLite) GetNextPendingQueueItem(ctx context.Context, threadID string) (*core.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, thread_id, type, payload, parent_event_id, trace_id, priority, status, metadata, ttl_ms, expires_at, created_at, updated_at
		FROM events WHERE thread_id = ? AND status = ?
		ORDER BY priority DESC, created_at ASC, id ASC LIMIT 1`,
		threadID, string(core.StatusPending),
	)
	return scanEvent(row)
}

func (s *SQLite) UpdateQueueItemStatus(ctx context.Context, eventID string, status core.EventStatus) error {
	var current string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM events WHERE id = ?`, eventID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load event status: %w", err)
	}

	if !core.ValidTransition(core.EventStatus(current), status) {
		return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, current, status)
	}

	// The WHERE clause repeats the current status so a concurrent transition
	// loses cleanly instead of clobbering.
	res, err := s.db.ExecContext(ctx, `UPDATE events SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(status), time.Now().UTC(), eventID, current,
	)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: event %s changed concurrently", core.ErrInvalidTransition, eventID)
	}
	return nil
}

func (s *SQLite) CreateMessage(ctx context.Context, msg core.Message) error {
	toolCalls, err := marshalNullable(msg.ToolCalls)
	if err != nil {
		return fmt.Errorf("marshal tool calls: %w", err)
	}

	metadata, err := marshalNullable(msg.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, thread_id, sender_id, sender_type, content, tool_call_id, tool_calls, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ThreadID, msg.SenderID, string(msg.SenderType), msg.Content,
		msg.ToolCallID, toolCalls, metadata, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *SQLite) GetThreadByID(ctx context.Context, threadID string) (*core.Thread, error) {
	var (
		t                         core.Thread
		participants, metadata    sql.NullString
		title, parent, taskID, tc sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, participants, status, parent_thread_id, task_id, context, metadata, created_at, updated_at
		FROM threads WHERE id = ?`, threadID,
	).Scan(&t.ID, &title, &participants, &t.Status, &parent, &taskID, &tc, &metadata, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}

	t.Title = title.String
	t.ParentThreadID = parent.String
	t.TaskID = taskID.String
	t.Context = tc.String

	if participants.Valid && participants.String != "" {
		if err := json.Unmarshal([]byte(participants.String), &t.Participants); err != nil {
			return nil, fmt.Errorf("decode participants: %w", err)
		}
	}

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &t.Metadata); err != nil {
			return nil, fmt.Errorf("decode thread metadata: %w", err)
		}
	}

	return &t, nil
}

// SaveThread inserts or replaces a thread snapshot.
func (s *SQLite) SaveThread(ctx context.Context, t core.Thread) error {
	participants, err := json.Marshal(t.Participants)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}

	metadata, err := marshalNullable(t.Metadata)
	if err != nil {
		return fmt.Errorf("marshal thread metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO threads (id, title, participants, status, parent_thread_id, task_id, context, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, string(participants), string(t.Status), t.ParentThreadID,
		t.TaskID, t.Context, metadata, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save thread: %w", err)
	}
	return nil
}

// SaveTask inserts or replaces a task record.
func (s *SQLite) SaveTask(ctx context.Context, t core.Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO tasks (id, title, description, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// SaveUser inserts or replaces a user record.
func (s *SQLite) SaveUser(ctx context.Context, u core.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO users (id, external_id, name) VALUES (?, ?, ?)`,
		u.ID, u.ExternalID, u.Name,
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *SQLite) GetTaskByID(ctx context.Context, taskID string) (*core.Task, error) {
	var (
		t                   core.Task
		description, status sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, created_at FROM tasks WHERE id = ?`, taskID,
	).Scan(&t.ID, &t.Title, &description, &status, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}

	t.Description = description.String
	t.Status = status.String
	return &t, nil
}

func (s *SQLite) GetMessageHistory(ctx context.Context, threadID, _ string) ([]core.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, sender_id, sender_type, content, tool_call_id, tool_calls, metadata, created_at
		FROM messages WHERE thread_id = ? ORDER BY created_at ASC, id ASC`, threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []core.Message
	for rows.Next() {
		var (
			msg                             core.Message
			toolCallID, toolCalls, metadata sql.NullString
		)

		if err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.SenderID, &msg.SenderType, &msg.Content, &toolCallID, &toolCalls, &metadata, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		msg.ToolCallID = toolCallID.String

		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("decode tool calls: %w", err)
			}
		}

		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("decode message metadata: %w", err)
			}
		}

		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *SQLite) GetUserByExternalID(ctx context.Context, externalID string) (*core.User, error) {
	var u core.User

	err := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, name FROM users WHERE external_id = ?`, externalID,
	).Scan(&u.ID, &u.ExternalID, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &u, nil
}

// scanEvent decodes one event row, rebuilding the typed payload from its
// event type.
func scanEvent(row *sql.Row) (*core.Event, error) {
	var (
		ev                core.Event
		payload, parent   sql.NullString
		traceID, metadata sql.NullString
		expiresAt         sql.NullTime
		typ, status       string
	)

	err := row.Scan(&ev.ID, &ev.ThreadID, &typ, &payload, &parent, &traceID, &ev.Priority, &status, &metadata, &ev.TTLMs, &expiresAt, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}

	ev.Type = core.EventType(typ)
	ev.Status = core.EventStatus(status)
	ev.ParentEventID = parent.String
	ev.TraceID = traceID.String

	if expiresAt.Valid {
		t := expiresAt.Time
		ev.ExpiresAt = &t
	}

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &ev.Metadata); err != nil {
			return nil, fmt.Errorf("decode event metadata: %w", err)
		}
	}

	if payload.Valid && payload.String != "" {
		p, err := decodePayload(ev.Type, []byte(payload.String))
		if err != nil {
			return nil, err
		}
		ev.Payload = p
	}

	return &ev, nil
}

// decodePayload rebuilds the typed payload for an event type so accessors on
// core.Event keep working after a round-trip through SQLite.
func decodePayload(typ core.EventType, data []byte) (any, error) {
	switch typ {
	case core.EventNewMessage:
		var p core.NewMessagePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode new-message payload: %w", err)
		}
		return &p, nil
	case core.EventLLMCall:
		var p core.LLMCallPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode llm-call payload: %w", err)
		}
		return &p, nil
	case core.EventToolCall:
		var p core.ToolCallPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode tool-call payload: %w", err)
		}
		return &p, nil
	default:
		var p map[string]any
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return p, nil
	}
}

// marshalNullable renders v as a JSON string or NULL when v is nil.
func marshalNullable(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

var _ core.Storage = (*SQLite)(nil)
