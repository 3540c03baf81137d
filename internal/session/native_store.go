package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	envShortTermMemory = "AGENT_SHORT_TERM_MEMORY"
	envSessionStoreURI = "AGENT_SESSION_STORE_URI"
)

// Checkpoint is one thread's persisted state: a session's message history,
// serialized by the caller (pkg/agentship) and stored as opaque bytes in a
// BLOB column.
type Checkpoint struct {
	ThreadID  string
	State     []byte
	UpdatedAt time.Time
}

// Checkpointer is the storage surface pkg/agentship persists session
// history through, generalizing LangGraph's checkpointer protocol
// (AsyncPostgresSaver / InMemorySaver in the prototype) to a single
// database/sql-backed implementation. No Postgres driver appears anywhere
// in the retrieval pack, so NativeStore concretely uses modernc.org/sqlite;
// because it is written against database/sql, swapping in a real Postgres
// driver later only requires changing the driver name and DSN (see
// DESIGN.md).
type Checkpointer interface {
	Load(ctx context.Context, threadID string) (*Checkpoint, error)
	Save(ctx context.Context, threadID string, state []byte) error
}

// NativeStore is the native engine's Store implementation. The
// checkpointer is initialized lazily on first use (mirroring the
// prototype's async lazy-init pattern, adapted to Go's sync.Once/mutex
// idiom). Each NativeStore opens its own connection; stores built for the
// same agent do not share one.
type NativeStore struct {
	agentName string

	mu   sync.Mutex
	db   *sql.DB
	open bool
}

// NewNativeStore builds a NativeStore for agentName. The underlying
// connection is not opened until the first EnsureSessionExists or
// GetCheckpointer call.
func NewNativeStore(agentName string) *NativeStore {
	return &NativeStore{agentName: agentName}
}

// GetCheckpointer returns the underlying SQL checkpointer, opening the
// connection and creating its schema on first call.
func (s *NativeStore) GetCheckpointer(ctx context.Context) (Checkpointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return sqlCheckpointer{db: s.db}, nil
	}

	db, err := openCheckpointDB(ctx)
	if err != nil {
		return nil, err
	}
	s.db = db
	s.open = true
	return sqlCheckpointer{db: s.db}, nil
}

// RefreshCheckpointer closes and reopens the underlying connection,
// mirroring the prototype's reset_checkpointer (used to recover from a
// stale/broken database connection without restarting the process).
func (s *NativeStore) RefreshCheckpointer(ctx context.Context) (Checkpointer, error) {
	s.mu.Lock()
	if s.db != nil {
		_ = s.db.Close()
	}
	s.open = false
	s.mu.Unlock()
	return s.GetCheckpointer(ctx)
}

// EnsureSessionExists is a near no-op: the checkpoint table auto-creates
// thread state on first Save, exactly like the prototype's LangGraph
// checkpointer. It still opens the connection eagerly so a misconfigured
// AGENT_SESSION_STORE_URI fails fast at session start rather than on the
// first turn.
func (s *NativeStore) EnsureSessionExists(ctx context.Context, userID, sessionID string) error {
	_, err := s.GetCheckpointer(ctx)
	return err
}

func openCheckpointDB(ctx context.Context) (*sql.DB, error) {
	dsn := "file::memory:?cache=shared"
	if os.Getenv(envShortTermMemory) == "Database" {
		uri := os.Getenv(envSessionStoreURI)
		if uri == "" {
			return nil, fmt.Errorf("%s is not set; cannot initialize the SQL checkpointer", envSessionStoreURI)
		}
		dsn = uri
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to checkpoint database: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS agentship_checkpoints (
	thread_id TEXT PRIMARY KEY,
	state BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create checkpoint schema: %w", err)
	}
	return db, nil
}

type sqlCheckpointer struct {
	db *sql.DB
}

func (c sqlCheckpointer) Load(ctx context.Context, threadID string) (*Checkpoint, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT state, updated_at FROM agentship_checkpoints WHERE thread_id = ?`, threadID)
	var cp Checkpoint
	cp.ThreadID = threadID
	if err := row.Scan(&cp.State, &cp.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load checkpoint %q: %w", threadID, err)
	}
	return &cp, nil
}

func (c sqlCheckpointer) Save(ctx context.Context, threadID string, state []byte) error {
	_, err := c.db.ExecContext(ctx, `
INSERT INTO agentship_checkpoints (thread_id, state, updated_at) VALUES (?, ?, ?)
ON CONFLICT(thread_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		threadID, state, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save checkpoint %q: %w", threadID, err)
	}
	return nil
}

var _ Store = (*NativeStore)(nil)
