package services

import (
	"strings"
	"testing"

	"ebay-sales-analytics/config"
	"ebay-sales-analytics/models"
	"ebay-sales-analytics/utils"
)

const (
	rowPricedA   = "Water Heaters,https://www.ebay.com/itm/336302890907,$41.41,16,45,2026-01-24 11:54:57,Success"
	rowUnpricedB = "silicone pot holders,https://www.ebay.com/itm/174746731680,11,5,2026-01-14 22:52:31,Success"
	rowAmazonC   = "Water Heaters,https://www.amazon.com/dp/B000123,$19.99,3,4,2026-01-20 10:00:00,Success"
)

func newTestLogger() *utils.Logger { return utils.NewDiscardLogger() }

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewPipeline(config.Default(), newTestLogger())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func rows(lines ...string) []models.RawRow {
	out := make([]models.RawRow, 0, len(lines))
	for _, l := range lines {
		out = append(out, models.RawRow(strings.Split(l, ",")))
	}
	return out
}

func source(name string, lines ...string) models.Source {
	return models.Source{Name: name, Content: []byte(strings.Join(lines, "\n") + "\n")}
}

func byURL(ds models.Dataset) map[string]*models.Record {
	m := make(map[string]*models.Record, len(ds))
	for _, r := range ds {
		m[r.URL] = r
	}
	return m
}
