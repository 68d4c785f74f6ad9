package testing

import (
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
)

// MemoryLedger is an in-memory history ledger.
//
// Setting Err makes every write fail with it after the write has been applied, so callers can check that ledger
// failures are tolerated.
type MemoryLedger struct {
	mu      sync.Mutex
	records []models.HistoryRecord
	Err     error
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Record appends rec.
func (l *MemoryLedger) Record(rec models.HistoryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return l.Err
}

// UpdateStatus sets the status of the most recent record with id.
func (l *MemoryLedger) UpdateStatus(id string, status models.Status, detail string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.find(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", shared.ErrRecordNotFound, id)
	}
	l.records[i].Status = status
	l.records[i].ErrorDetail = detail
	l.records[i].UpdatedAt = time.Now()
	return l.Err
}

// SetDetails sets the title and item count of the most recent record with id.
func (l *MemoryLedger) SetDetails(id, title string, itemCount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.find(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", shared.ErrRecordNotFound, id)
	}
	if title != "" {
		l.records[i].Title = title
	}
	if itemCount > 0 {
		l.records[i].ItemCount = itemCount
	}
	return l.Err
}

// Records returns a copy of every record.
func (l *MemoryLedger) Records() []models.HistoryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.HistoryRecord(nil), l.records...)
}

// Get returns the most recent record with id.
func (l *MemoryLedger) Get(id string) (models.HistoryRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.find(id); i >= 0 {
		return l.records[i], true
	}
	return models.HistoryRecord{}, false
}

func (l *MemoryLedger) find(id string) int {
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].ID == id {
			return i
		}
	}
	return -1
}
