package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ebay-sales-analytics/models"
)

// Filter narrows a dataset the way the dashboard sidebar does. Zero values
// disable each criterion.
type Filter struct {
	Product       string
	Categories    []models.Category
	MinTotalSales int
	MinJanSales   int
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal

	// CheckedWithin keeps records checked no earlier than Now-CheckedWithin.
	CheckedWithin time.Duration
	Now           time.Time
}

// Apply returns the matching records in their original order.
func (f Filter) Apply(ds models.Dataset) models.Dataset {
	var cutoff time.Time
	if f.CheckedWithin > 0 {
		now := f.Now
		if now.IsZero() {
			now = time.Now()
		}
		cutoff = now.Add(-f.CheckedWithin)
	}

	out := make(models.Dataset, 0, len(ds))
	for _, r := range ds {
		if f.matches(r, cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func (f Filter) matches(r *models.Record, cutoff time.Time) bool {
	if f.Product != "" && r.Product != f.Product {
		return false
	}
	if len(f.Categories) > 0 && !containsCategory(f.Categories, r.Category()) {
		return false
	}
	if r.TotalSales < f.MinTotalSales || r.JanSales < f.MinJanSales {
		return false
	}
	if f.MinPrice != nil && r.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && r.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if !cutoff.IsZero() && (r.DateChecked == nil || r.DateChecked.Before(cutoff)) {
		return false
	}
	return true
}

func containsCategory(cats []models.Category, c models.Category) bool {
	for _, x := range cats {
		if x == c {
			return true
		}
	}
	return false
}

// Products lists the distinct product names in a dataset, sorted.
func Products(ds models.Dataset) []string {
	seen := make(map[string]struct{})
	for _, r := range ds {
		seen[r.Product] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for p := range seen {
		names = append(names, p)
	}
	sort.Strings(names)
	return names
}
