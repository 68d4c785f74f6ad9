// package repositories provides the history ledger backends.
package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
)

// HistoryStore is the durable record of every job ever started.
//
// Records are appended when a job starts and afterwards only have their status, error detail, title and item count
// changed. Nothing is ever deleted.
type HistoryStore interface {
	// Record appends rec and persists it.
	Record(rec models.HistoryRecord) error

	// UpdateStatus changes the status and error detail of the most recent record with id.
	UpdateStatus(id string, status models.Status, detail string) error

	// SetDetails fills in the title and item count of the most recent record with id. Empty values are ignored.
	SetDetails(id, title string, itemCount int) error

	// Load reads every record in insertion order. A missing or unreadable store yields an empty slice.
	Load() ([]models.HistoryRecord, error)

	// List returns every record, newest first.
	List() ([]models.HistoryRecord, error)

	// Get returns the most recent record with id.
	Get(id string) (models.HistoryRecord, error)

	Close() error
}

// OpenHistoryStore opens the backend selected by cfg.History.Backend.
func OpenHistoryStore(ctx context.Context, cfg *shared.Config, logger *log.Logger) (HistoryStore, error) {
	switch strings.ToLower(cfg.History.Backend) {
	case "", "json":
		return NewHistoryLedger(shared.ExpandPath(cfg.History.Path), logger), nil
	case "sqlite":
		db, err := shared.NewDatabase(shared.ExpandPath(cfg.Database.Path))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrPersistence, err)
		}
		shared.ConfigureDatabase(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)

		if err := shared.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %w", shared.ErrPersistence, err)
		}
		return NewSQLiteLedger(db), nil
	default:
		return nil, fmt.Errorf("%w: unknown history backend %q", shared.ErrInvalidConfig, cfg.History.Backend)
	}
}

func newest(records []models.HistoryRecord) []models.HistoryRecord {
	out := make([]models.HistoryRecord, len(records))
	for i, rec := range records {
		out[len(records)-1-i] = rec
	}
	return out
}
