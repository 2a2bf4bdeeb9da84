package sink

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/lineage/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is fixed width so recorded_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Schema version tracking:
// 1 - records table keyed by (process, id)
const currentSchemaVersion = 1

// SQLiteSink stores events in a SQLite database.
// Uses WAL mode so a reader can rebuild lineage while a process is writing.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// Write inserts the event.
// Uses ON CONFLICT DO NOTHING - a repeated (process, id) is silently ignored.
func (s *SQLiteSink) Write(ctx context.Context, event *Event) error {
	parents := event.Parents
	if parents == nil {
		parents = []Parent{}
	}
	parentsJSON, err := json.Marshal(parents)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records
		(process, id, label, template, value, parents, origin, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(process, id) DO NOTHING
	`,
		event.Process,
		event.ID,
		event.Label,
		event.Template,
		record.FormatValue(float64(event.Value)),
		string(parentsJSON),
		event.Origin,
		event.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	return nil
}

// Events returns the events of process ordered by id. An empty process
// selects every process.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *SQLiteSink) Events(ctx context.Context, process string) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT process, id, label, template, value, parents, origin, recorded_at
		FROM records
		WHERE ? = '' OR process = ?
		ORDER BY recorded_at ASC, id ASC
	`, process, process)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return events, nil
}

// LatestProcess returns the process that wrote most recently, or "" for an
// empty database.
func (s *SQLiteSink) LatestProcess(ctx context.Context) (string, error) {
	var process string
	err := s.db.QueryRowContext(ctx, `
		SELECT process FROM records
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`).Scan(&process)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query latest process: %w", err)
	}
	return process, nil
}

func scanEvent(rows *sql.Rows) (*Event, error) {
	var (
		ev          Event
		value       string
		parentsJSON string
		recordedAt  string
	)
	if err := rows.Scan(&ev.Process, &ev.ID, &ev.Label, &ev.Template, &value, &parentsJSON, &ev.Origin, &recordedAt); err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("record %d: parse value %q: %w", ev.ID, value, err)
	}
	ev.Value = Float(v)
	if err := json.Unmarshal([]byte(parentsJSON), &ev.Parents); err != nil {
		return nil, fmt.Errorf("record %d: parse parents: %w", ev.ID, err)
	}
	if len(ev.Parents) == 0 {
		ev.Parents = nil
	}
	ts, err := time.Parse(timeLayout, recordedAt)
	if err != nil {
		return nil, fmt.Errorf("record %d: parse timestamp: %w", ev.ID, err)
	}
	ev.Timestamp = ts
	return &ev, nil
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Name returns the sink identifier.
func (s *SQLiteSink) Name() string {
	return "sqlite"
}
