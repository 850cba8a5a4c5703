// Package store archives audit entries into SQLite for long-term retention
// and aggregate reporting. The live trail stays JSON Lines; the archive is
// where rotated history lands and where stats are computed.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"gatehouse-hq/gatehouse/pkg/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id          TEXT PRIMARY KEY,
	timestamp   TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	tool_name   TEXT,
	outcome     TEXT NOT NULL,
	decision    TEXT,
	mode        TEXT,
	entry_json  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_entries(session_id);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_outcome ON audit_entries(outcome);
`

// Archive is a SQLite-backed archive of audit entries.
type Archive struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive database at path.
func Open(path string) (*Archive, error) {
	if path == "" {
		return nil, fmt.Errorf("archive path cannot be empty")
	}
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Insert stores entries, skipping any whose ID is already archived so the
// same rotated log segment can be re-imported safely.
func (a *Archive) Insert(ctx context.Context, entries []audit.Entry) (int, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO audit_entries
		(id, timestamp, event_type, session_id, tool_name, outcome, decision, mode, entry_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare archive insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range entries {
		e := &entries[i]
		raw, err := json.Marshal(e)
		if err != nil {
			return inserted, fmt.Errorf("failed to encode entry %s: %w", e.ID, err)
		}
		res, err := stmt.ExecContext(ctx,
			e.ID,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			e.EventType,
			e.SessionID,
			e.ToolName,
			string(e.Outcome),
			string(e.Decision),
			string(e.Mode),
			string(raw),
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to archive entry %s: %w", e.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit archive transaction: %w", err)
	}
	return inserted, nil
}

// Stats summarizes the archived trail.
type Stats struct {
	Total      int64            `json:"total"`
	ByOutcome  map[string]int64 `json:"by_outcome"`
	ByDecision map[string]int64 `json:"by_decision"`
	Sessions   int64            `json:"sessions"`
}

// Stats computes aggregate counts over the archive.
func (a *Archive) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{
		ByOutcome:  make(map[string]int64),
		ByDecision: make(map[string]int64),
	}

	if err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT session_id) FROM audit_entries`,
	).Scan(&s.Total, &s.Sessions); err != nil {
		return nil, fmt.Errorf("failed to count archive entries: %w", err)
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM audit_entries GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate outcomes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var outcome string
		var count int64
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan outcome row: %w", err)
		}
		s.ByOutcome[outcome] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	drows, err := a.db.QueryContext(ctx,
		`SELECT decision, COUNT(*) FROM audit_entries WHERE decision != '' GROUP BY decision`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate decisions: %w", err)
	}
	defer drows.Close()
	for drows.Next() {
		var decision string
		var count int64
		if err := drows.Scan(&decision, &count); err != nil {
			return nil, fmt.Errorf("failed to scan decision row: %w", err)
		}
		s.ByDecision[decision] = count
	}
	return s, drows.Err()
}

// ArchiveLog imports every entry from the JSON Lines file at logPath.
func (a *Archive) ArchiveLog(ctx context.Context, logPath string) (int, error) {
	entries, err := audit.Query(logPath, audit.QueryFilters{})
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	return a.Insert(ctx, entries)
}
