package services

import (
	"regexp"
	"strings"

	"ebay-sales-analytics/models"
)

const (
	DefaultSampleRows     = 50
	DefaultMinPriceHits   = 3
	DefaultHeaderSentinel = "keyword"

	minColumns = 3
)

// decimalRegexp matches a bare decimal numeral such as "41.41". Integers are
// excluded on purpose: in an unpriced layout that position holds sales counts.
var decimalRegexp = regexp.MustCompile(`^\d+\.\d+$`)

// Detector decides which column layout a source uses.
type Detector struct {
	SampleRows     int
	MinPriceHits   int
	HeaderSentinel string
}

// NewDetector creates a Detector. Non-positive values fall back to defaults.
func NewDetector(sampleRows, minPriceHits int, headerSentinel string) *Detector {
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}
	if minPriceHits <= 0 {
		minPriceHits = DefaultMinPriceHits
	}
	if headerSentinel == "" {
		headerSentinel = DefaultHeaderSentinel
	}
	return &Detector{
		SampleRows:     sampleRows,
		MinPriceHits:   minPriceHits,
		HeaderSentinel: strings.ToLower(headerSentinel),
	}
}

// StripHeader drops the first row when its first cell contains the header
// sentinel, whatever the rest of the row holds.
func (d *Detector) StripHeader(rows []models.RawRow) []models.RawRow {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return rows
	}
	if strings.Contains(strings.ToLower(rows[0][0]), d.HeaderSentinel) {
		return rows[1:]
	}
	return rows
}

// DominantWidth returns the most common row width. Ties go to the wider one.
func DominantWidth(rows []models.RawRow) int {
	counts := make(map[int]int)
	for _, r := range rows {
		counts[len(r)]++
	}

	width, best := 0, 0
	for w, c := range counts {
		if c > best || (c == best && w > width) {
			width, best = w, c
		}
	}
	return width
}

// DetectSchema classifies header-stripped rows and returns the schema along
// with the column count it was decided on. Fewer than three columns yields
// SchemaUnknown.
func (d *Detector) DetectSchema(rows []models.RawRow) (models.Schema, int) {
	numCols := DominantWidth(rows)

	switch {
	case numCols >= 7:
		if d.hasPriceColumn(rows, numCols) {
			return models.SchemaPriced, numCols
		}
		return models.SchemaNoPriceStandard, numCols
	case numCols == 6:
		return models.SchemaNoPriceStandard, numCols
	case numCols >= minColumns:
		return models.SchemaNoPriceShort, numCols
	default:
		return models.SchemaUnknown, numCols
	}
}

// hasPriceColumn samples the third cell of the first SampleRows rows of the
// dominant width and counts the currency-looking ones.
func (d *Detector) hasPriceColumn(rows []models.RawRow, numCols int) bool {
	sampled, hits := 0, 0
	for _, r := range rows {
		if sampled >= d.SampleRows {
			break
		}
		if len(r) != numCols {
			continue
		}
		sampled++
		if LooksLikePrice(r[2]) {
			hits++
		}
	}
	if sampled == 0 {
		return false
	}
	return hits >= d.requiredHits(sampled)
}

// requiredHits scales MinPriceHits down for tiny samples so that a two-row
// priced file can still be recognized. At least one hit is always needed.
func (d *Detector) requiredHits(sampled int) int {
	half := (sampled + 1) / 2
	if half < d.MinPriceHits {
		return half
	}
	return d.MinPriceHits
}

// LooksLikePrice reports whether a cell holds a currency amount: a currency
// symbol anywhere, or a bare decimal numeral.
func LooksLikePrice(cell string) bool {
	cell = strings.TrimSpace(cell)
	if strings.ContainsAny(cell, currencySymbols) {
		return true
	}
	return decimalRegexp.MatchString(cell)
}
