package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/risk-analyzer/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scans (
	id               TEXT PRIMARY KEY,
	scan_type        TEXT NOT NULL,
	input            TEXT NOT NULL,
	overall_score    INTEGER NOT NULL,
	label            TEXT NOT NULL,
	domain_score     INTEGER NOT NULL DEFAULT 0,
	structural_score INTEGER NOT NULL DEFAULT 0,
	language_score   INTEGER NOT NULL DEFAULT 0,
	api_score        INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_scans_label ON scans(label);
CREATE INDEX IF NOT EXISTS idx_scans_scan_type ON scans(scan_type);
CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteInsertScan = `INSERT INTO scans
	(id, scan_type, input, overall_score, label, domain_score, structural_score, language_score, api_score, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func scanArgs(r model.ScanRecord) []any {
	return []any{
		r.ID, string(r.ScanType), r.Input, r.OverallScore, string(r.Label),
		r.SubScores.Domain, r.SubScores.Structural, r.SubScores.Language, r.SubScores.APIReputation,
		r.CreatedAt.UTC(),
	}
}

// SaveScan inserts one record.
func (s *SQLiteStore) SaveScan(ctx context.Context, rec model.ScanRecord) error {
	if _, err := s.db.ExecContext(ctx, sqliteInsertScan, scanArgs(rec)...); err != nil {
		return eris.Wrapf(err, "sqlite: insert scan %s", rec.ID)
	}
	return nil
}

// SaveScans inserts recs in one transaction.
func (s *SQLiteStore) SaveScans(ctx context.Context, recs []model.ScanRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteInsertScan)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert scan")
	}
	defer stmt.Close() //nolint:errcheck

	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx, scanArgs(rec)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert scan %s", rec.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit scans")
}

const scanColumns = `id, scan_type, input, overall_score, label, domain_score, structural_score, language_score, api_score, created_at`

// GetScan returns one record by id.
func (s *SQLiteStore) GetScan(ctx context.Context, id string) (*model.ScanRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scanColumns+` FROM scans WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get scan %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get scan %s", id)
	}
	return rec, nil
}

// ListScans returns records matching filter, newest first.
func (s *SQLiteStore) ListScans(ctx context.Context, filter ScanFilter) ([]model.ScanRecord, error) {
	query := `SELECT ` + scanColumns + ` FROM scans`
	var (
		where []string
		args  []any
	)
	if filter.Label != "" {
		where = append(where, "label = ?")
		args = append(args, string(filter.Label))
	}
	if filter.ScanType != "" {
		where = append(where, "scan_type = ?")
		args = append(args, string(filter.ScanType))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.limit(), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scans")
	}
	defer rows.Close() //nolint:errcheck

	recs := []model.ScanRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list scans rows")
}

// Stats aggregates the history by label.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, COUNT(*), COALESCE(SUM(overall_score), 0) FROM scans GROUP BY label`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	defer rows.Close() //nolint:errcheck

	st := &Stats{ByLabel: map[model.Label]int{}}
	var sum int
	for rows.Next() {
		var (
			label    string
			n, total int
		)
		if err := rows.Scan(&label, &n, &total); err != nil {
			return nil, eris.Wrap(err, "sqlite: stats row")
		}
		st.ByLabel[model.Label(label)] = n
		st.Total += n
		sum += total
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats rows")
	}
	if st.Total > 0 {
		st.AvgScore = float64(sum) / float64(st.Total)
	}
	return st, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.ScanRecord, error) {
	var (
		r         model.ScanRecord
		scanType  string
		label     string
		createdAt time.Time
	)
	err := row.Scan(&r.ID, &scanType, &r.Input, &r.OverallScore, &label,
		&r.SubScores.Domain, &r.SubScores.Structural, &r.SubScores.Language, &r.SubScores.APIReputation,
		&createdAt)
	if err != nil {
		return nil, err
	}
	r.ScanType = model.ScanType(scanType)
	r.Label = model.Label(label)
	r.CreatedAt = createdAt.UTC()
	return &r, nil
}
