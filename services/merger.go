package services

import (
	"sort"
	"time"

	"ebay-sales-analytics/models"
	"ebay-sales-analytics/utils"
)

// Merger combines the datasets of several uploaded sources.
type Merger struct {
	logger *utils.Logger
}

// NewMerger creates a Merger with the given logger.
func NewMerger(logger *utils.Logger) *Merger {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &Merger{logger: logger}
}

// Merge concatenates datasets in upload order and deduplicates by url, the
// last occurrence winning at its own position. The result is stably sorted
// by date checked, with undated records last, and numbered 1..n in
// ListingOrder. Input records are copied, never modified.
func (m *Merger) Merge(datasets ...models.Dataset) models.Dataset {
	var all models.Dataset
	for _, ds := range datasets {
		all = append(all, ds...)
	}

	last := make(map[string]int, len(all))
	for i, r := range all {
		last[r.URL] = i
	}

	result := make(models.Dataset, 0, len(last))
	for i, r := range all {
		if last[r.URL] != i {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return checkedBefore(result[i].DateChecked, result[j].DateChecked)
	})
	for i, r := range result {
		r.ListingOrder = i + 1
	}

	m.logger.Info("[merger] Merged %d sources: %d → %d records (duplicates dropped %d)",
		len(datasets), len(all), len(result), len(all)-len(result))
	return result
}

// checkedBefore orders dated records chronologically ahead of undated ones.
func checkedBefore(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.Before(*b)
}
