package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// Postgres is the remote history backend, used when runs are spread over
// short-lived environments (scheduled CI jobs) that share one database.
type Postgres struct {
	db *sql.DB
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS title_records (
	date VARCHAR(10) NOT NULL,
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
	kind VARCHAR(32) NOT NULL,
	date VARCHAR(10) NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMP NOT NULL DEFAULT NOW(),
	PRIMARY KEY (kind, date)
);
`

// NewPostgres connects to the given DSN and initializes the schema.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres store: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init postgres schema: %w", err)
	}
	slog.Info("postgres history store connected")
	return &Postgres{db: db}, nil
}

func (p *Postgres) GetTitleRecord(ctx context.Context, date string, id Identity) (TitleRecord, bool, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT first_seen, last_seen, observed_count, ranks, url, mobile_url
		FROM title_records
		WHERE date = $1 AND source_id = $2 AND title = $3`,
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

func (p *Postgres) PutTitleRecord(ctx context.Context, date string, id Identity, rec TitleRecord) error {
	ranks, err := json.Marshal(rec.Ranks)
	if err != nil {
		return fmt.Errorf("marshal ranks: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO title_records (date, source_id, title, first_seen, last_seen, observed_count, ranks, url, mobile_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (date, source_id, title) DO UPDATE SET
			last_seen = EXCLUDED.last_seen,
			observed_count = EXCLUDED.observed_count,
			ranks = EXCLUDED.ranks,
			url = EXCLUDED.url,
			mobile_url = EXCLUDED.mobile_url`,
		date, id.SourceID, id.Title,
		rec.FirstSeen.Format(time.RFC3339Nano), rec.LastSeen.Format(time.RFC3339Nano),
		rec.ObservedCount, string(ranks), rec.URL, rec.MobileURL)
	if err != nil {
		return fmt.Errorf("put title record: %w", err)
	}
	return nil
}

func (p *Postgres) RecordsForDate(ctx context.Context, date string) (map[Identity]TitleRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT source_id, title, first_seen, last_seen, observed_count, ranks, url, mobile_url
		FROM title_records
		WHERE date = $1`, date)
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

func (p *Postgres) HasMarker(ctx context.Context, kind MarkerKind, date string) (bool, error) {
	var count int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM run_markers WHERE kind = $1 AND date = $2`,
		string(kind), date).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check marker: %w", err)
	}
	return count > 0, nil
}

func (p *Postgres) SetMarker(ctx context.Context, kind MarkerKind, date string, note string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO run_markers (kind, date, note, recorded_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (kind, date) DO UPDATE SET note = EXCLUDED.note, recorded_at = NOW()`,
		string(kind), date, note)
	if err != nil {
		return fmt.Errorf("set marker: %w", err)
	}
	return nil
}

func (p *Postgres) ClearMarker(ctx context.Context, kind MarkerKind, date string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM run_markers WHERE kind = $1 AND date = $2`, string(kind), date)
	if err != nil {
		return fmt.Errorf("clear marker: %w", err)
	}
	return nil
}

func (p *Postgres) Cleanup(ctx context.Context, before string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM title_records WHERE date < $1`, before)
	if err != nil {
		return fmt.Errorf("cleanup title records: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows > 0 {
		slog.Info("cleaned up old title records", "rows", rows)
	}
	if _, err := p.db.ExecContext(ctx, `DELETE FROM run_markers WHERE date < $1`, before); err != nil {
		return fmt.Errorf("cleanup markers: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
