package storage

import "ebay-sales-analytics/models"

// ExportWriter is the interface any database export sink must satisfy.
// Writing the same uploadID twice replaces the earlier rows.
type ExportWriter interface {
	Write(uploadID string, ds models.Dataset) error
	Close() error
}

var (
	_ ExportWriter = (*PostgresWriter)(nil)
	_ ExportWriter = (*SQLiteWriter)(nil)
)
