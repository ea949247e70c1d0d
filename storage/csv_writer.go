package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"ebay-sales-analytics/models"
)

// DateLayout is how DateChecked is written back out.
const DateLayout = "2006-01-02 15:04:05"

var recordHeader = []string{
	"listing_order", "product", "url", "item_id", "price", "dec_sales", "jan_sales",
	"date_checked", "status", "total_sales", "growth", "growth_pct",
	"dec_revenue", "jan_revenue", "total_revenue", "revenue_growth", "source",
}

var productHeader = []string{"product", "total_sales", "total_revenue", "listings", "avg_price"}

// CSVWriter re-serializes normalized records and product aggregates.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	closer io.Closer
	writer *csv.Writer
}

// NewCSVWriter writes to w. Close does not close w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{writer: csv.NewWriter(w)}
}

// CreateCSVFile creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func CreateCSVFile(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	return &CSVWriter{closer: f, writer: csv.NewWriter(f)}, nil
}

// WriteRecords writes a header row followed by one row per record.
func (c *CSVWriter) WriteRecords(ds models.Dataset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write(recordHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, r := range ds {
		if err := c.writer.Write(recordRow(r)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// WriteProducts writes the per-product aggregate table.
func (c *CSVWriter) WriteProducts(stats []models.ProductStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write(productHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, p := range stats {
		row := []string{
			p.Product,
			strconv.Itoa(p.TotalSales),
			p.TotalRevenue.StringFixed(2),
			strconv.Itoa(p.Listings),
			p.AvgPrice.StringFixed(2),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and, for file-backed writers, closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	if c.closer == nil {
		return c.writer.Error()
	}
	return c.closer.Close()
}

func recordRow(r *models.Record) []string {
	order := ""
	if r.ListingOrder > 0 {
		order = strconv.Itoa(r.ListingOrder)
	}
	checked := ""
	if r.DateChecked != nil {
		checked = r.DateChecked.Format(DateLayout)
	}

	return []string{
		order,
		r.Product,
		r.URL,
		r.ItemID,
		r.Price.StringFixed(2),
		strconv.Itoa(r.DecSales),
		strconv.Itoa(r.JanSales),
		checked,
		r.Status,
		strconv.Itoa(r.TotalSales),
		strconv.Itoa(r.Growth),
		strconv.FormatFloat(r.GrowthPct, 'f', 2, 64),
		r.DecRevenue.StringFixed(2),
		r.JanRevenue.StringFixed(2),
		r.TotalRevenue.StringFixed(2),
		r.RevenueGrowth.StringFixed(2),
		r.SourceName,
	}
}
