package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"ebay-sales-analytics/models"
)

// SQLiteWriter exports normalized upload datasets to a local SQLite file.
type SQLiteWriter struct {
	db *sql.DB
}

func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create output dir: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sales_records (
  id            INTEGER PRIMARY KEY,
  upload_id     TEXT    NOT NULL,
  listing_order INTEGER NOT NULL DEFAULT 0,
  product       TEXT    NOT NULL,
  url           TEXT    NOT NULL,
  item_id       TEXT    NOT NULL DEFAULT 'N/A',
  price         NUMERIC NOT NULL DEFAULT 0,
  dec_sales     INTEGER NOT NULL DEFAULT 0,
  jan_sales     INTEGER NOT NULL DEFAULT 0,
  date_checked  DATETIME,
  status        TEXT    NOT NULL DEFAULT 'N/A',
  total_sales   INTEGER NOT NULL DEFAULT 0,
  growth        INTEGER NOT NULL DEFAULT 0,
  growth_pct    REAL    NOT NULL DEFAULT 0,
  total_revenue NUMERIC NOT NULL DEFAULT 0,
  source        TEXT    NOT NULL DEFAULT '',
  created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_sales_records_upload ON sales_records(upload_id);
    `); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	return &SQLiteWriter{db: db}, nil
}

// Write replaces every row stored for uploadID with ds.
func (w *SQLiteWriter) Write(uploadID string, ds models.Dataset) error {
	if err := replaceUpload(w.db, questionPlaceholder, uploadID, ds); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return nil
}

func (w *SQLiteWriter) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}
