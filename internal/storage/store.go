package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// RunRecord is one pipeline invocation as persisted in the run log. Failed
// runs keep the stage reached and the orphan flags so operators can
// reconcile remote objects that were created before the failure.
type RunRecord struct {
	ID            int64
	CreatedAt     time.Time
	Succeeded     bool
	Stage         string
	SKU           string
	OfferID       string
	Title         string
	Price         float64
	Currency      string
	Error         string
	MediaUploaded bool
	ItemCreated   bool
}

// VisionCacheEntry holds a cached extraction result for an image hash.
type VisionCacheEntry struct {
	Title           string
	Description     string
	Brand           string
	Condition       string
	CategoryKeyword string
	SuggestedPrice  float64
	Currency        string
}

// Store defines the persistence interface used by the pipeline and server.
type Store interface {
	RecordRun(rec *RunRecord) error
	ListRuns(limit int) ([]RunRecord, error)

	GetVisionCache(hash string) (*VisionCacheEntry, error)
	SetVisionCache(hash string, entry *VisionCacheEntry) error

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore creates a new SQLite-backed store at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	runsQuery := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		succeeded INTEGER NOT NULL,
		stage TEXT NOT NULL,
		sku TEXT NOT NULL,
		offer_id TEXT NOT NULL,
		title TEXT NOT NULL,
		price REAL NOT NULL,
		currency TEXT NOT NULL,
		error TEXT NOT NULL,
		media_uploaded INTEGER NOT NULL,
		item_created INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(runsQuery); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	// "condition" is a reserved word in SQLite, hence the quoting.
	cacheQuery := `
	CREATE TABLE IF NOT EXISTS vision_cache (
		image_hash TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		brand TEXT NOT NULL,
		"condition" TEXT NOT NULL,
		category_keyword TEXT NOT NULL,
		suggested_price REAL NOT NULL,
		currency TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(cacheQuery); err != nil {
		return fmt.Errorf("failed to create vision_cache table: %w", err)
	}

	return nil
}

// RecordRun appends a pipeline run to the run log.
func (s *SQLiteStore) RecordRun(rec *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	res, err := s.db.Exec(`
		INSERT INTO runs (created_at, succeeded, stage, sku, offer_id, title, price, currency, error, media_uploaded, item_created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CreatedAt, rec.Succeeded, rec.Stage, rec.SKU, rec.OfferID, rec.Title,
		rec.Price, rec.Currency, rec.Error, rec.MediaUploaded, rec.ItemCreated,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, created_at, succeeded, stage, sku, offer_id, title, price, currency, error, media_uploaded, item_created
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.ID, &rec.CreatedAt, &rec.Succeeded, &rec.Stage, &rec.SKU,
			&rec.OfferID, &rec.Title, &rec.Price, &rec.Currency, &rec.Error,
			&rec.MediaUploaded, &rec.ItemCreated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// GetVisionCache returns the cached extraction for an image hash, or nil if
// not cached.
func (s *SQLiteStore) GetVisionCache(hash string) (*VisionCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entry VisionCacheEntry
	err := s.db.QueryRow(`
		SELECT title, description, brand, "condition", category_keyword, suggested_price, currency
		FROM vision_cache WHERE image_hash = ?`, hash).Scan(
		&entry.Title, &entry.Description, &entry.Brand, &entry.Condition,
		&entry.CategoryKeyword, &entry.SuggestedPrice, &entry.Currency,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vision cache: %w", err)
	}
	return &entry, nil
}

// SetVisionCache stores an extraction result for an image hash.
func (s *SQLiteStore) SetVisionCache(hash string, entry *VisionCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO vision_cache (image_hash, title, description, brand, "condition", category_keyword, suggested_price, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		hash, entry.Title, entry.Description, entry.Brand, entry.Condition,
		entry.CategoryKeyword, entry.SuggestedPrice, entry.Currency,
	)
	if err != nil {
		return fmt.Errorf("failed to set vision cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
