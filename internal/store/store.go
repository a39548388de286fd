// Package store persists scan summaries for the history view.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-analyzer/internal/config"
	"github.com/sells-group/risk-analyzer/internal/model"
)

// DefaultListLimit caps ListScans when the filter sets no limit.
const DefaultListLimit = 50

// MaxListLimit is the largest page ListScans returns.
const MaxListLimit = 500

// ScanFilter specifies criteria for listing scans.
type ScanFilter struct {
	Label    model.Label    `json:"label,omitempty"`
	ScanType model.ScanType `json:"scan_type,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	Offset   int            `json:"offset,omitempty"`
}

// limit returns the effective page size.
func (f ScanFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

// Stats summarizes the stored history.
type Stats struct {
	Total    int                 `json:"total"`
	ByLabel  map[model.Label]int `json:"by_label"`
	AvgScore float64             `json:"avg_score"`
}

// Store defines the persistence interface for scan history.
type Store interface {
	SaveScan(ctx context.Context, rec model.ScanRecord) error
	SaveScans(ctx context.Context, recs []model.ScanRecord) error
	GetScan(ctx context.Context, id string) (*model.ScanRecord, error)
	ListScans(ctx context.Context, filter ScanFilter) ([]model.ScanRecord, error)
	Stats(ctx context.Context) (*Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// ErrNotFound is returned by GetScan for an unknown id.
var ErrNotFound = eris.New("scan not found")

// New opens the backend named by cfg.Driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	case "none":
		return Nop{}, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// Nop discards every write and returns empty reads. It backs driver "none".
type Nop struct{}

var _ Store = Nop{}

// SaveScan implements Store.
func (Nop) SaveScan(context.Context, model.ScanRecord) error { return nil }

// SaveScans implements Store.
func (Nop) SaveScans(context.Context, []model.ScanRecord) error { return nil }

// GetScan implements Store.
func (Nop) GetScan(context.Context, string) (*model.ScanRecord, error) {
	return nil, ErrNotFound
}

// ListScans implements Store.
func (Nop) ListScans(context.Context, ScanFilter) ([]model.ScanRecord, error) {
	return []model.ScanRecord{}, nil
}

// Stats implements Store.
func (Nop) Stats(context.Context) (*Stats, error) {
	return &Stats{ByLabel: map[model.Label]int{}}, nil
}

// Migrate implements Store.
func (Nop) Migrate(context.Context) error { return nil }

// Close implements Store.
func (Nop) Close() error { return nil }
