package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-analyzer/internal/model"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

var _ Store = (*PostgresStore)(nil)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scans (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	scan_type        TEXT NOT NULL,
	input            TEXT NOT NULL,
	overall_score    INTEGER NOT NULL CHECK (overall_score BETWEEN 0 AND 100),
	label            TEXT NOT NULL,
	domain_score     INTEGER NOT NULL DEFAULT 0,
	structural_score INTEGER NOT NULL DEFAULT 0,
	language_score   INTEGER NOT NULL DEFAULT 0,
	api_score        INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scans_label ON scans(label);
CREATE INDEX IF NOT EXISTS idx_scans_scan_type ON scans(scan_type);
CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at DESC);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var scanColumnList = []string{
	"id", "scan_type", "input", "overall_score", "label",
	"domain_score", "structural_score", "language_score", "api_score", "created_at",
}

// SaveScan inserts one record.
func (s *PostgresStore) SaveScan(ctx context.Context, rec model.ScanRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scans (`+scanColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		scanArgs(rec)...,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert scan %s", rec.ID)
	}
	return nil
}

// SaveScans bulk-inserts recs with the COPY protocol.
func (s *PostgresStore) SaveScans(ctx context.Context, recs []model.ScanRecord) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = scanArgs(r)
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"scans"}, scanColumnList, pgx.CopyFromRows(rows))
	if err != nil {
		return eris.Wrap(err, "postgres: COPY INTO scans")
	}
	if int(n) != len(recs) {
		return eris.Errorf("postgres: COPY INTO scans: wrote %d of %d rows", n, len(recs))
	}
	return nil
}

// GetScan returns one record by id.
func (s *PostgresStore) GetScan(ctx context.Context, id string) (*model.ScanRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+scanColumns+` FROM scans WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get scan %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get scan %s", id)
	}
	return rec, nil
}

// ListScans returns records matching filter, newest first.
func (s *PostgresStore) ListScans(ctx context.Context, filter ScanFilter) ([]model.ScanRecord, error) {
	query := `SELECT ` + scanColumns + ` FROM scans`
	var (
		where []string
		args  []any
	)
	if filter.Label != "" {
		args = append(args, string(filter.Label))
		where = append(where, fmt.Sprintf("label = $%d", len(args)))
	}
	if filter.ScanType != "" {
		args = append(args, string(filter.ScanType))
		where = append(where, fmt.Sprintf("scan_type = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.limit(), filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scans")
	}
	defer rows.Close()

	recs := []model.ScanRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list scans rows")
}

// Stats aggregates the history by label.
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.pool.Query(ctx, `SELECT label, COUNT(*), COALESCE(SUM(overall_score), 0) FROM scans GROUP BY label`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	defer rows.Close()

	st := &Stats{ByLabel: map[model.Label]int{}}
	var sum int64
	for rows.Next() {
		var (
			label    string
			n, total int64
		)
		if err := rows.Scan(&label, &n, &total); err != nil {
			return nil, eris.Wrap(err, "postgres: stats row")
		}
		st.ByLabel[model.Label(label)] = int(n)
		st.Total += int(n)
		sum += total
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: stats rows")
	}
	if st.Total > 0 {
		st.AvgScore = float64(sum) / float64(st.Total)
	}
	return st, nil
}
