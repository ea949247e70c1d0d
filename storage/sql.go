package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"ebay-sales-analytics/models"
)

const (
	recordsTable = "sales_records"
	batchSize    = 50
)

var recordColumns = []string{
	"upload_id", "listing_order", "product", "url", "item_id", "price",
	"dec_sales", "jan_sales", "date_checked", "status",
	"total_sales", "growth", "growth_pct", "total_revenue", "source",
}

// placeholderFunc renders the n-th (1-based) bind parameter of a dialect.
type placeholderFunc func(n int) string

func dollarPlaceholder(n int) string   { return fmt.Sprintf("$%d", n) }
func questionPlaceholder(_ int) string { return "?" }

// buildInsert renders a multi-row INSERT for rows records.
func buildInsert(table string, cols []string, rows int, ph placeholderFunc) string {
	valueStrings := make([]string, 0, rows)
	for i := 0; i < rows; i++ {
		base := i * len(cols)
		params := make([]string, len(cols))
		for j := range cols {
			params[j] = ph(base + j + 1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(params, ",")+")")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(cols, ", "), strings.Join(valueStrings, ","))
}

func recordArgs(uploadID string, r *models.Record) []interface{} {
	var checked interface{}
	if r.DateChecked != nil {
		checked = r.DateChecked.UTC()
	}
	return []interface{}{
		uploadID, r.ListingOrder, r.Product, r.URL, r.ItemID, r.Price.StringFixed(2),
		r.DecSales, r.JanSales, checked, r.Status,
		r.TotalSales, r.Growth, r.GrowthPct, r.TotalRevenue.StringFixed(2), r.SourceName,
	}
}

// replaceUpload deletes the earlier rows of uploadID and batch-inserts ds,
// all inside one transaction.
func replaceUpload(db *sql.DB, ph placeholderFunc, uploadID string, ds models.Dataset) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE upload_id = %s", recordsTable, ph(1)), uploadID); err != nil {
		return fmt.Errorf("clear upload: %w", err)
	}

	for i := 0; i < len(ds); i += batchSize {
		end := i + batchSize
		if end > len(ds) {
			end = len(ds)
		}
		batch := ds[i:end]

		args := make([]interface{}, 0, len(batch)*len(recordColumns))
		for _, r := range batch {
			args = append(args, recordArgs(uploadID, r)...)
		}
		if _, err = tx.Exec(buildInsert(recordsTable, recordColumns, len(batch), ph), args...); err != nil {
			return fmt.Errorf("insert batch at %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
