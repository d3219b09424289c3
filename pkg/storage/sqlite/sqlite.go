package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
	_ "modernc.org/sqlite"
)

var paramsDecMode, _ = cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any{})}.DecMode()

// Store owns the journal database.
type Store struct {
	db   *sql.DB
	path string
}

// CallRecord describes one dispatched request.
type CallRecord struct {
	TraceID      string
	Method       string
	RequestID    string
	WindowID     string
	ErrorCode    int
	ErrorMessage string
	Params       json.RawMessage
	StartedAt    time.Time
	Duration     time.Duration
}

// LifecycleRecord describes a window being created or closed.
type LifecycleRecord struct {
	WindowID string
	Event    string
	Cause    string
	At       time.Time
}

// Path returns the underlying SQLite file path.
func (s *Store) Path() string {
	return s.path
}

// Open initializes a SQLite database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db, path: path}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Init ensures pragmas and schema are configured.
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("nil store")
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return s.applySchema(ctx)
}

func (s *Store) applySchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES ('schemaVersion','1');`,
		`CREATE TABLE IF NOT EXISTS calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trace_id TEXT NOT NULL,
			method TEXT NOT NULL,
			request_id TEXT NOT NULL,
			window_id TEXT,
			error_code INTEGER,
			error_message TEXT,
			params BLOB,
			started_at INTEGER NOT NULL,
			duration_us INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_calls_window ON calls(window_id, started_at);`,
		`CREATE TABLE IF NOT EXISTS lifecycle (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			window_id TEXT NOT NULL,
			event TEXT NOT NULL CHECK (event IN ('created','closed')),
			cause TEXT NOT NULL,
			at INTEGER NOT NULL
		);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// InsertCall stores rec with its params re-encoded as CBOR.
func (s *Store) InsertCall(ctx context.Context, rec CallRecord) error {
	blob, err := EncodeParams(rec.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO calls(trace_id, method, request_id, window_id, error_code, error_message, params, started_at, duration_us)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		rec.TraceID, rec.Method, rec.RequestID, nullString(rec.WindowID), nullInt(rec.ErrorCode), nullString(rec.ErrorMessage),
		blob, rec.StartedAt.UnixMilli(), rec.Duration.Microseconds())
	return err
}

// InsertLifecycle stores a window lifecycle event.
func (s *Store) InsertLifecycle(ctx context.Context, rec LifecycleRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO lifecycle(window_id, event, cause, at) VALUES(?,?,?,?)`,
		rec.WindowID, rec.Event, rec.Cause, rec.At.UnixMilli())
	return err
}

// Calls returns the most recent calls, oldest first.
func (s *Store) Calls(ctx context.Context, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT trace_id, method, request_id, window_id, error_code, error_message, params, started_at, duration_us
		FROM (SELECT * FROM calls ORDER BY id DESC LIMIT ?)
		ORDER BY id ASC;
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		var (
			rec      CallRecord
			windowID sql.NullString
			code     sql.NullInt64
			message  sql.NullString
			blob     []byte
			started  int64
			duration int64
		)
		if err := rows.Scan(&rec.TraceID, &rec.Method, &rec.RequestID, &windowID, &code, &message, &blob, &started, &duration); err != nil {
			return nil, err
		}
		rec.WindowID = windowID.String
		rec.ErrorCode = int(code.Int64)
		rec.ErrorMessage = message.String
		rec.StartedAt = time.UnixMilli(started)
		rec.Duration = time.Duration(duration) * time.Microsecond
		if rec.Params, err = DecodeParams(blob); err != nil {
			return nil, fmt.Errorf("decode params of %s: %w", rec.TraceID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Lifecycle returns the lifecycle events recorded for windowID, oldest first.
func (s *Store) Lifecycle(ctx context.Context, windowID string) ([]LifecycleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT window_id, event, cause, at FROM lifecycle WHERE window_id = ? ORDER BY id ASC`, windowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LifecycleRecord
	for rows.Next() {
		var (
			rec LifecycleRecord
			at  int64
		)
		if err := rows.Scan(&rec.WindowID, &rec.Event, &rec.Cause, &at); err != nil {
			return nil, err
		}
		rec.At = time.UnixMilli(at)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// EncodeParams converts JSON params into CBOR. Empty input stores NULL.
func EncodeParams(params json.RawMessage) ([]byte, error) {
	if len(params) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(params, &v); err != nil {
		return nil, err
	}
	return cbor.Marshal(v)
}

// DecodeParams converts a stored CBOR blob back to JSON.
func DecodeParams(blob []byte) (json.RawMessage, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	var v any
	if err := paramsDecMode.Unmarshal(blob, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
