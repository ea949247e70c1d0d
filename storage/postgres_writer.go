package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"ebay-sales-analytics/models"
	"ebay-sales-analytics/utils"
)

// PostgresWriter exports normalized upload datasets to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, pinging through retry
// until the server answers, runs schema migrations and returns a ready
// writer.
func NewPostgresWriter(dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do("postgres ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS sales_records (
			id            SERIAL PRIMARY KEY,
			upload_id     VARCHAR(36)   NOT NULL,
			listing_order INTEGER       NOT NULL DEFAULT 0,
			product       TEXT          NOT NULL,
			url           TEXT          NOT NULL,
			item_id       VARCHAR(32)   NOT NULL DEFAULT 'N/A',
			price         NUMERIC(12,2) NOT NULL DEFAULT 0,
			dec_sales     INTEGER       NOT NULL DEFAULT 0,
			jan_sales     INTEGER       NOT NULL DEFAULT 0,
			date_checked  TIMESTAMPTZ,
			status        TEXT          NOT NULL DEFAULT 'N/A',
			total_sales   INTEGER       NOT NULL DEFAULT 0,
			growth        INTEGER       NOT NULL DEFAULT 0,
			growth_pct    DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_revenue NUMERIC(14,2) NOT NULL DEFAULT 0,
			source        TEXT          NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_sales_records_upload  ON sales_records(upload_id);
		CREATE INDEX IF NOT EXISTS idx_sales_records_product ON sales_records(product);
		CREATE INDEX IF NOT EXISTS idx_sales_records_url     ON sales_records(url);
	`)
	return err
}

// Write replaces every row stored for uploadID with ds.
func (pw *PostgresWriter) Write(uploadID string, ds models.Dataset) error {
	if err := replaceUpload(pw.db, dollarPlaceholder, uploadID, ds); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
