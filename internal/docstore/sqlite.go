package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// SQLiteLog is a ConversationLog backed by a local SQLite database. It is the
// fallback used when no MongoDB URI is configured, so local development still
// retains chat history.
type SQLiteLog struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultLogDBPath returns the default path for the local conversation log
// database. It resolves to ~/.wwmc/chatlog.db, creating the directory if needed.
func DefaultLogDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("docstore: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".wwmc")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("docstore: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "chatlog.db"), nil
}

// OpenSQLiteLog opens (or creates) a SQLiteLog at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func OpenSQLiteLog(path string) (*SQLiteLog, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	l := &SQLiteLog{db: db}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// migrate creates the schema if it does not already exist.
func (l *SQLiteLog) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS chat_log (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    messages     TEXT    NOT NULL,  -- JSON array of {role, content}
    response     TEXT    NOT NULL,
    location     TEXT    NOT NULL,  -- JSON geo context
    created_at   INTEGER NOT NULL   -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_chat_log_created
    ON chat_log (created_at);
`
	if _, err := l.db.Exec(ddl); err != nil {
		return fmt.Errorf("docstore: migrate: %w", err)
	}
	return nil
}

// Insert persists a single log record.
func (l *SQLiteLog) Insert(ctx context.Context, rec LogRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	messages, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("docstore: marshal messages: %w", err)
	}
	location, err := json.Marshal(rec.Location)
	if err != nil {
		return fmt.Errorf("docstore: marshal location: %w", err)
	}

	const q = `INSERT INTO chat_log (messages, response, location, created_at) VALUES (?, ?, ?, ?)`
	if _, err := l.db.ExecContext(ctx, q, string(messages), rec.Response, string(location), rec.CreatedAt.Unix()); err != nil {
		return fmt.Errorf("docstore: insert log: %w", err)
	}
	return nil
}

// Recent returns the most recent n log records, newest first. It exists for
// local inspection of the fallback database; the Mongo backend is queried
// through its own tooling instead.
func (l *SQLiteLog) Recent(ctx context.Context, n int) ([]LogRecord, error) {
	const q = `
SELECT messages, response, location, created_at
FROM   chat_log
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := l.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("docstore: recent: %w", err)
	}
	defer rows.Close()

	var recs []LogRecord
	for rows.Next() {
		var rec LogRecord
		var messages, location string
		var ts int64
		if err := rows.Scan(&messages, &rec.Response, &location, &ts); err != nil {
			return nil, fmt.Errorf("docstore: recent scan: %w", err)
		}
		if err := json.Unmarshal([]byte(messages), &rec.Messages); err != nil {
			return nil, fmt.Errorf("docstore: unmarshal messages: %w", err)
		}
		if err := json.Unmarshal([]byte(location), &rec.Location); err != nil {
			return nil, fmt.Errorf("docstore: unmarshal location: %w", err)
		}
		rec.CreatedAt = time.Unix(ts, 0).UTC()
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: recent rows: %w", err)
	}
	return recs, nil
}

// Close releases the database connection pool.
func (l *SQLiteLog) Close(ctx context.Context) error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("docstore: close: %w", err)
	}
	return nil
}
