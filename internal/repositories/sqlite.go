package repositories

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
)

const historyColumns = `
	id, source_locator, destination, format_spec, item_selection,
	created_at, updated_at, status, title, item_count, error_detail
`

// SQLiteLedger implements [HistoryStore] on the history table.
type SQLiteLedger struct {
	db  *sql.DB
	now func() time.Time
	mu  sync.Mutex
}

// NewSQLiteLedger creates a ledger on db. Migrations must already have run.
func NewSQLiteLedger(db *sql.DB) *SQLiteLedger {
	return &SQLiteLedger{db: db, now: time.Now}
}

// Record implements [HistoryStore].
func (r *SQLiteLedger) Record(rec models.HistoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	query := `
		INSERT INTO history (
			id, source_locator, destination, format_spec, item_selection,
			created_at, updated_at, status, title, item_count, error_detail
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		rec.ID,
		rec.SourceLocator,
		rec.Destination,
		rec.FormatSpec,
		rec.ItemSelection,
		rec.CreatedAt,
		rec.UpdatedAt,
		string(rec.Status),
		rec.Title,
		rec.ItemCount,
		nullable(rec.ErrorDetail),
	)
	if err != nil {
		return fmt.Errorf("%w: insert history record: %v", shared.ErrPersistence, err)
	}
	return nil
}

// UpdateStatus implements [HistoryStore].
func (r *SQLiteLedger) UpdateStatus(id string, status models.Status, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE history
		SET status = ?, error_detail = ?, updated_at = ?
		WHERE seq = (SELECT MAX(seq) FROM history WHERE id = ?)
	`

	result, err := r.db.Exec(query, string(status), nullable(detail), r.now(), id)
	return r.checkUpdated(id, result, err)
}

// SetDetails implements [HistoryStore].
func (r *SQLiteLedger) SetDetails(id, title string, itemCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE history
		SET title = COALESCE(NULLIF(?, ''), title),
			item_count = CASE WHEN ? > 0 THEN ? ELSE item_count END,
			updated_at = ?
		WHERE seq = (SELECT MAX(seq) FROM history WHERE id = ?)
	`

	result, err := r.db.Exec(query, title, itemCount, itemCount, r.now(), id)
	return r.checkUpdated(id, result, err)
}

// Load implements [HistoryStore].
func (r *SQLiteLedger) Load() ([]models.HistoryRecord, error) {
	return r.query(`SELECT ` + historyColumns + ` FROM history ORDER BY seq ASC`)
}

// List implements [HistoryStore].
func (r *SQLiteLedger) List() ([]models.HistoryRecord, error) {
	return r.query(`SELECT ` + historyColumns + ` FROM history ORDER BY seq DESC`)
}

// Get implements [HistoryStore].
func (r *SQLiteLedger) Get(id string) (models.HistoryRecord, error) {
	row := r.db.QueryRow(`SELECT `+historyColumns+` FROM history WHERE id = ? ORDER BY seq DESC LIMIT 1`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return models.HistoryRecord{}, fmt.Errorf("%w: %s", shared.ErrRecordNotFound, id)
	}
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return rec, nil
}

// Close closes the underlying database.
func (r *SQLiteLedger) Close() error {
	return r.db.Close()
}

func (r *SQLiteLedger) query(query string, args ...any) ([]models.HistoryRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query history: %v", shared.ErrPersistence, err)
	}
	defer rows.Close()

	records := []models.HistoryRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrPersistence, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrPersistence, err)
	}
	return records, nil
}

func (r *SQLiteLedger) checkUpdated(id string, result sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("%w: update history record: %v", shared.ErrPersistence, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrPersistence, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRecordNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord scans one history row from a [sql.Row] or [sql.Rows].
func scanRecord(s scanner) (models.HistoryRecord, error) {
	var (
		rec         models.HistoryRecord
		status      string
		errorDetail sql.NullString
	)

	err := s.Scan(
		&rec.ID, &rec.SourceLocator, &rec.Destination, &rec.FormatSpec, &rec.ItemSelection,
		&rec.CreatedAt, &rec.UpdatedAt, &status, &rec.Title, &rec.ItemCount, &errorDetail,
	)
	if err != nil {
		return models.HistoryRecord{}, err
	}

	rec.Status = models.Status(status)
	if errorDetail.Valid {
		rec.ErrorDetail = errorDetail.String
	}
	return rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
