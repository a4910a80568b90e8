// Package audit persists one row per top-level host request in SQLite so
// operators can inspect what was replayed and why a request was rejected.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/glebarez/sqlite"

	"bondswap/core/host"
)

const defaultFilePragmas = "mode=rwc&_busy_timeout=5000&_journal_mode=WAL"

var ErrPathRequired = errors.New("audit journal path must be configured")

// Journal implements host.Journal.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Entry is a stored journal row.
type Entry struct {
	RequestID  string
	Kind       string
	Contract   string
	Code       string
	Action     string
	Sender     string
	Height     uint64
	BlockTime  uint64
	Error      string
	Events     json.RawMessage
	RecordedAt time.Time
}

// FileDSN converts a filesystem path into an on-disk SQLite DSN.
func FileDSN(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", ErrPathRequired
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve journal path: %w", err)
	}
	return fmt.Sprintf("file:%s?%s", abs, defaultFilePragmas), nil
}

// Open initialises the journal using a sqlite-compatible DSN.
func Open(dsn string) (*Journal, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrPathRequired
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close releases database resources.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record implements host.Journal.
func (j *Journal) Record(ctx context.Context, entry host.JournalEntry) error {
	if j == nil {
		return fmt.Errorf("journal not configured")
	}
	evts, err := json.Marshal(entry.Events)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	var errText string
	if entry.Err != nil {
		errText = entry.Err.Error()
	}
	_, err = j.db.ExecContext(ctx, `
        INSERT INTO requests(request_id, kind, contract, code, action, sender, height, block_time, error, events, recorded_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, entry.ID.String(), entry.Kind, entry.Contract.String(), entry.Code, entry.Action, entry.Sender.String(),
		int64(entry.Height), int64(entry.Time), errText, string(evts), j.now().UTC())
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. failedOnly restricts the
// result to rejected requests.
func (j *Journal) Recent(ctx context.Context, limit int, failedOnly bool) ([]Entry, error) {
	if j == nil {
		return nil, fmt.Errorf("journal not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT request_id, kind, contract, code, action, sender, height, block_time, error, events, recorded_at
        FROM requests`
	if failedOnly {
		query += ` WHERE error <> ''`
	}
	query += ` ORDER BY id DESC LIMIT ?`

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e             Entry
			height, btime int64
			evts          string
		)
		if err := rows.Scan(&e.RequestID, &e.Kind, &e.Contract, &e.Code, &e.Action, &e.Sender, &height, &btime, &e.Error, &evts, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		e.Height = uint64(height)
		e.BlockTime = uint64(btime)
		e.Events = json.RawMessage(evts)
		out = append(out, e)
	}
	return out, rows.Err()
}

const schema = `
CREATE TABLE IF NOT EXISTS requests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL,
    contract TEXT NOT NULL,
    code TEXT NOT NULL,
    action TEXT NOT NULL,
    sender TEXT NOT NULL,
    height INTEGER NOT NULL,
    block_time INTEGER NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    events TEXT NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_contract ON requests(contract, id);
`
