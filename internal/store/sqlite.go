package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is the local history backend. The driver is pure Go, so local runs
// need no cgo and no external service.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS title_records (
	date TEXT NOT NULL,
	source_id TEXT NOT NULL,
	title TEXT NOT NULL,
	first_seen TEXT NOT NULL,
	last_seen TEXT NOT NULL,
	observed_count INTEGER NOT NULL,
	ranks TEXT NOT NULL DEFAULT '[]',
	url TEXT NOT NULL DEFAULT '',
	mobile_url TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (date, source_id, title)
);
CREATE INDEX IF NOT EXISTS idx_title_records_date ON title_records(date);

CREATE TABLE IF NOT EXISTS run_markers (
	kind TEXT NOT NULL,
	date TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL,
	PRIMARY KEY (kind, date)
);
`

// NewSQLite opens (or creates) the history database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) GetTitleRecord(ctx context.Context, date string, id Identity) (TitleRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT first_seen, last_seen, observed_count, ranks, url, mobile_url
		FROM title_records
		WHERE date = ? AND source_id = ? AND title = ?`,
		date, id.SourceID, id.Title)

	rec, err := scanTitleRecord(row.Scan)
	if err == sql.ErrNoRows {
		return TitleRecord{}, false, nil
	}
	if err != nil {
		return TitleRecord{}, false, fmt.Errorf("get title record: %w", err)
	}
	return rec, true, nil
}

func (s *SQLite) PutTitleRecord(ctx context.Context, date string, id Identity, rec TitleRecord) error {
	ranks, err := json.Marshal(rec.Ranks)
	if err != nil {
		return fmt.Errorf("marshal ranks: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO title_records (date, source_id, title, first_seen, last_seen, observed_count, ranks, url, mobile_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (date, source_id, title) DO UPDATE SET
			last_seen = excluded.last_seen,
			observed_count = excluded.observed_count,
			ranks = excluded.ranks,
			url = excluded.url,
			mobile_url = excluded.mobile_url`,
		date, id.SourceID, id.Title,
		rec.FirstSeen.Format(time.RFC3339Nano), rec.LastSeen.Format(time.RFC3339Nano),
		rec.ObservedCount, string(ranks), rec.URL, rec.MobileURL)
	if err != nil {
		return fmt.Errorf("put title record: %w", err)
	}
	return nil
}

func (s *SQLite) RecordsForDate(ctx context.Context, date string) (map[Identity]TitleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, title, first_seen, last_seen, observed_count, ranks, url, mobile_url
		FROM title_records
		WHERE date = ?`, date)
	if err != nil {
		return nil, fmt.Errorf("records for date: %w", err)
	}
	defer rows.Close()

	out := make(map[Identity]TitleRecord)
	for rows.Next() {
		var id Identity
		rec, err := scanTitleRecord(func(dest ...any) error {
			full := append([]any{&id.SourceID, &id.Title}, dest...)
			return rows.Scan(full...)
		})
		if err != nil {
			return nil, fmt.Errorf("scan title record: %w", err)
		}
		out[id] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records for date: %w", err)
	}
	return out, nil
}

func (s *SQLite) HasMarker(ctx context.Context, kind MarkerKind, date string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM run_markers WHERE kind = ? AND date = ?`,
		string(kind), date).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check marker: %w", err)
	}
	return count > 0, nil
}

func (s *SQLite) SetMarker(ctx context.Context, kind MarkerKind, date string, note string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_markers (kind, date, note, recorded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (kind, date) DO UPDATE SET note = excluded.note, recorded_at = excluded.recorded_at`,
		string(kind), date, note, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set marker: %w", err)
	}
	return nil
}

func (s *SQLite) ClearMarker(ctx context.Context, kind MarkerKind, date string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM run_markers WHERE kind = ? AND date = ?`, string(kind), date)
	if err != nil {
		return fmt.Errorf("clear marker: %w", err)
	}
	return nil
}

func (s *SQLite) Cleanup(ctx context.Context, before string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM title_records WHERE date < ?`, before); err != nil {
		return fmt.Errorf("cleanup title records: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_markers WHERE date < ?`, before); err != nil {
		return fmt.Errorf("cleanup markers: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// scanTitleRecord decodes the shared column layout of both SQL backends.
func scanTitleRecord(scan func(dest ...any) error) (TitleRecord, error) {
	var rec TitleRecord
	var firstSeen, lastSeen, ranks string
	if err := scan(&firstSeen, &lastSeen, &rec.ObservedCount, &ranks, &rec.URL, &rec.MobileURL); err != nil {
		return TitleRecord{}, err
	}

	var err error
	if rec.FirstSeen, err = time.Parse(time.RFC3339Nano, firstSeen); err != nil {
		return TitleRecord{}, fmt.Errorf("parse first_seen %q: %w", firstSeen, err)
	}
	if rec.LastSeen, err = time.Parse(time.RFC3339Nano, lastSeen); err != nil {
		return TitleRecord{}, fmt.Errorf("parse last_seen %q: %w", lastSeen, err)
	}
	if err := json.Unmarshal([]byte(ranks), &rec.Ranks); err != nil {
		return TitleRecord{}, fmt.Errorf("decode ranks %q: %w", ranks, err)
	}
	return rec, nil
}
