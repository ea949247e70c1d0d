package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"

	"ebay-sales-analytics/models"
	"ebay-sales-analytics/utils"
)

const (
	DefaultMarketplaceDomain = "ebay.com"

	currencySymbols = "$£€"
	notAvailable    = "N/A"
)

var (
	// itemIDRegexp captures the numeric listing id after /itm/
	itemIDRegexp = regexp.MustCompile(`/itm/(\d+)`)
	// priceStripper removes currency symbols, thousands separators and spaces
	priceStripper = strings.NewReplacer("$", "", "£", "", "€", "", ",", "", " ", "")
	// priceRegexp is what must remain once decoration is stripped
	priceRegexp = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// fieldLayout holds the column index of each base field, or -1 when the
// schema has no such column.
type fieldLayout struct {
	product, url, price, dec, jan, date, status int
}

// Normalizer turns raw rows into validated, metric-bearing records.
type Normalizer struct {
	domain string
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer that keeps only urls containing domain.
func NewNormalizer(domain string, logger *utils.Logger) *Normalizer {
	if domain == "" {
		domain = DefaultMarketplaceDomain
	}
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &Normalizer{domain: strings.ToLower(domain), logger: logger}
}

func layoutFor(schema models.Schema) (fieldLayout, bool) {
	switch schema {
	case models.SchemaPriced:
		return fieldLayout{product: 0, url: 1, price: 2, dec: 3, jan: 4, date: 5, status: 6}, true
	case models.SchemaNoPriceStandard:
		return fieldLayout{product: 0, url: 1, price: -1, dec: 2, jan: 3, date: 4, status: 5}, true
	case models.SchemaNoPriceShort:
		return fieldLayout{product: 0, url: 1, price: -1, dec: 2, jan: 3, date: 4, status: -1}, true
	default:
		return fieldLayout{}, false
	}
}

// NormalizeRow coerces one row under the given schema. The second return
// value is false when the row was rejected.
func (n *Normalizer) NormalizeRow(row models.RawRow, schema models.Schema, source string) (*models.Record, bool) {
	layout, ok := layoutFor(schema)
	if !ok {
		return nil, false
	}

	url := strings.TrimSpace(cell(row, layout.url))
	if !n.Accepts(url) {
		return nil, false
	}

	status := notAvailable
	if layout.status >= 0 {
		if s := strings.TrimSpace(cell(row, layout.status)); s != "" {
			status = s
		}
	}

	price := decimal.Zero
	if layout.price >= 0 {
		price = parsePrice(cell(row, layout.price))
	}

	return models.NewRecord(models.RecordInput{
		Product:     strings.TrimSpace(cell(row, layout.product)),
		URL:         url,
		ItemID:      extractItemID(url),
		Price:       price,
		DecSales:    parseSales(cell(row, layout.dec)),
		JanSales:    parseSales(cell(row, layout.jan)),
		DateChecked: parseDate(cell(row, layout.date)),
		Status:      status,
		SourceName:  source,
	}), true
}

// Normalize maps rows to records in source order and reports how many rows
// were rejected by the domain rule.
func (n *Normalizer) Normalize(rows []models.RawRow, schema models.Schema, source string) (models.Dataset, int) {
	result := make(models.Dataset, 0, len(rows))
	rejected := 0

	for _, row := range rows {
		rec, ok := n.NormalizeRow(row, schema, source)
		if !ok {
			rejected++
			n.logger.Debug("[normalizer] Dropping row without %s url: %q", n.domain, cell(row, 1))
			continue
		}
		result = append(result, rec)
	}

	n.logger.Debug("[normalizer] %s: normalized %d → %d records (rejected %d)",
		source, len(rows), len(result), rejected)
	return result, rejected
}

// Accepts reports whether a url passes the marketplace domain rule.
func (n *Normalizer) Accepts(url string) bool {
	return strings.Contains(strings.ToLower(url), n.domain)
}

// FilterDomain re-applies the domain rule to an existing dataset.
func (n *Normalizer) FilterDomain(ds models.Dataset) models.Dataset {
	out := make(models.Dataset, 0, len(ds))
	for _, r := range ds {
		if n.Accepts(r.URL) {
			out = append(out, r)
		}
	}
	return out
}

func cell(row models.RawRow, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseSales reads a sales count. Float text is truncated ("12.0" → 12);
// anything unparseable is 0. Negative counts are kept.
func parseSales(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0
		}
		return n
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// parsePrice strips currency decoration and parses a non-negative decimal.
// Exponent notation and signs are rejected.
// Examples:
//
//	"$41.41"    → 41.41
//	"$1,299.00" → 1299
//	"N/A"       → 0
func parsePrice(raw string) decimal.Decimal {
	cleaned := priceStripper.Replace(strings.TrimSpace(raw))
	if !priceRegexp.MatchString(cleaned) {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}
	return &t
}

func extractItemID(url string) string {
	m := itemIDRegexp.FindStringSubmatch(url)
	if len(m) < 2 {
		return notAvailable
	}
	return m[1]
}
