package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
)

// HistoryLedger implements [HistoryStore] on a JSON file.
//
// The file is read on first use and rewritten whole after every change.
type HistoryLedger struct {
	path   string
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	records []models.HistoryRecord
	loaded  bool
}

// NewHistoryLedger creates a ledger backed by the file at path. The file does not need to exist.
func NewHistoryLedger(path string, logger *log.Logger) *HistoryLedger {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &HistoryLedger{path: path, logger: logger, now: time.Now}
}

// Path returns the backing file path.
func (l *HistoryLedger) Path() string {
	return l.path
}

// Load re-reads the file, replacing what is held in memory.
func (l *HistoryLedger) Load() ([]models.HistoryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.load()
	return append([]models.HistoryRecord(nil), l.records...), nil
}

// Record implements [HistoryStore].
func (l *HistoryLedger) Record(rec models.HistoryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ensureLoaded()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	l.records = append(l.records, rec)
	return l.persist()
}

// UpdateStatus implements [HistoryStore].
func (l *HistoryLedger) UpdateStatus(id string, status models.Status, detail string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, err := l.latest(id)
	if err != nil {
		return err
	}
	l.records[i].Status = status
	l.records[i].ErrorDetail = detail
	l.records[i].UpdatedAt = l.now()
	return l.persist()
}

// SetDetails implements [HistoryStore].
func (l *HistoryLedger) SetDetails(id, title string, itemCount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, err := l.latest(id)
	if err != nil {
		return err
	}
	if title != "" {
		l.records[i].Title = title
	}
	if itemCount > 0 {
		l.records[i].ItemCount = itemCount
	}
	l.records[i].UpdatedAt = l.now()
	return l.persist()
}

// List implements [HistoryStore].
func (l *HistoryLedger) List() ([]models.HistoryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ensureLoaded()
	return newest(l.records), nil
}

// Get implements [HistoryStore].
func (l *HistoryLedger) Get(id string) (models.HistoryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, err := l.latest(id)
	if err != nil {
		return models.HistoryRecord{}, err
	}
	return l.records[i], nil
}

// Close implements [HistoryStore]. Every change is already on disk.
func (l *HistoryLedger) Close() error {
	return nil
}

func (l *HistoryLedger) ensureLoaded() {
	if !l.loaded {
		l.load()
	}
}

// load reads the file into memory. A missing file is an empty history. An unparsable file is moved aside and
// treated as empty.
func (l *HistoryLedger) load() {
	l.loaded = true
	l.records = nil

	data, err := os.ReadFile(l.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.logger.Debug("no history file yet", "path", l.path)
		return
	case err != nil:
		l.logger.Warn("failed to read history, starting empty", "path", l.path, "error", err)
		return
	}

	var records []models.HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		aside := fmt.Sprintf("%s.corrupt-%d", l.path, l.now().Unix())
		if renameErr := os.Rename(l.path, aside); renameErr != nil {
			aside = ""
		}
		l.logger.Warn("history file is not valid, starting empty", "path", l.path, "moved_to", aside, "error", err)
		return
	}
	l.records = records
}

func (l *HistoryLedger) latest(id string) (int, error) {
	l.ensureLoaded()
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", shared.ErrRecordNotFound, id)
}

// persist writes every record to a temp file next to the ledger and renames it into place.
func (l *HistoryLedger) persist() error {
	records := l.records
	if records == nil {
		records = []models.HistoryRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode history: %v", shared.ErrPersistence, err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: create history directory: %v", shared.ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", shared.ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write history: %v", shared.ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync history: %v", shared.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close history: %v", shared.ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("%w: replace history: %v", shared.ErrPersistence, err)
	}
	return nil
}
