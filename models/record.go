package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is one split line of an uploaded file, before any coercion.
type RawRow []string

// Schema is the column layout assigned to one uploaded source.
type Schema int

const (
	SchemaUnknown Schema = iota
	SchemaNoPriceShort
	SchemaNoPriceStandard
	SchemaPriced
)

func (s Schema) String() string {
	switch s {
	case SchemaNoPriceShort:
		return "no-price-short"
	case SchemaNoPriceStandard:
		return "no-price-standard"
	case SchemaPriced:
		return "priced"
	default:
		return "unknown"
	}
}

// Canonical field names, in the order they appear in a priced row.
const (
	FieldProduct     = "product"
	FieldURL         = "url"
	FieldPrice       = "price"
	FieldDecSales    = "dec_sales"
	FieldJanSales    = "jan_sales"
	FieldDateChecked = "date_checked"
	FieldStatus      = "status"
)

// Columns names every position of a numCols-wide row under this schema.
// Positions past the known fields are labeled extra_<i>.
func (s Schema) Columns(numCols int) []string {
	var known []string
	switch s {
	case SchemaPriced:
		known = []string{FieldProduct, FieldURL, FieldPrice, FieldDecSales, FieldJanSales, FieldDateChecked, FieldStatus}
	case SchemaNoPriceStandard:
		known = []string{FieldProduct, FieldURL, FieldDecSales, FieldJanSales, FieldDateChecked, FieldStatus}
	case SchemaNoPriceShort:
		known = []string{FieldProduct, FieldURL, FieldDecSales, FieldJanSales, FieldDateChecked}
	default:
		return nil
	}

	cols := make([]string, 0, numCols)
	for i := 0; i < numCols; i++ {
		if i < len(known) {
			cols = append(cols, known[i])
			continue
		}
		cols = append(cols, "extra_"+strconv.Itoa(i-len(known)))
	}
	return cols
}

// Record is one fully coerced, metric-bearing row of a Dataset.
// Derived fields are filled by NewRecord and must not be edited afterwards.
type Record struct {
	Product     string          `json:"product"`
	URL         string          `json:"url"`
	ItemID      string          `json:"item_id"`
	Price       decimal.Decimal `json:"price"`
	DecSales    int             `json:"dec_sales"`
	JanSales    int             `json:"jan_sales"`
	DateChecked *time.Time      `json:"date_checked"`
	Status      string          `json:"status"`

	TotalSales    int             `json:"total_sales"`
	Growth        int             `json:"growth"`
	GrowthPct     float64         `json:"growth_pct"`
	DecRevenue    decimal.Decimal `json:"dec_revenue"`
	JanRevenue    decimal.Decimal `json:"jan_revenue"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	RevenueGrowth decimal.Decimal `json:"revenue_growth"`

	ListingOrder int    `json:"listing_order,omitempty"`
	SourceName   string `json:"source,omitempty"`
}

// RecordInput carries the coerced base fields of a record.
type RecordInput struct {
	Product     string
	URL         string
	ItemID      string
	Price       decimal.Decimal
	DecSales    int
	JanSales    int
	DateChecked *time.Time
	Status      string
	SourceName  string
}

// NewRecord builds a Record and computes its derived metrics once.
func NewRecord(in RecordInput) *Record {
	r := &Record{
		Product:     in.Product,
		URL:         in.URL,
		ItemID:      in.ItemID,
		Price:       in.Price,
		DecSales:    in.DecSales,
		JanSales:    in.JanSales,
		DateChecked: in.DateChecked,
		Status:      in.Status,
		SourceName:  in.SourceName,
	}

	r.TotalSales = r.DecSales + r.JanSales
	r.Growth = r.JanSales - r.DecSales
	r.GrowthPct = GrowthPct(r.DecSales, r.JanSales)

	r.DecRevenue = r.Price.Mul(decimal.NewFromInt(int64(r.DecSales)))
	r.JanRevenue = r.Price.Mul(decimal.NewFromInt(int64(r.JanSales)))
	r.TotalRevenue = r.Price.Mul(decimal.NewFromInt(int64(r.TotalSales)))
	r.RevenueGrowth = r.JanRevenue.Sub(r.DecRevenue)
	return r
}

// GrowthPct is the December to January change in percent. A listing that had
// no December sales but sold in January counts as 100% growth.
func GrowthPct(dec, jan int) float64 {
	if dec > 0 {
		return float64(jan-dec) / float64(dec) * 100
	}
	if jan > 0 {
		return 100
	}
	return 0
}

// Category buckets a record by its sales trend.
type Category string

const (
	CategoryGrowing   Category = "growing"
	CategoryDeclining Category = "declining"
	CategoryFlat      Category = "flat"
	CategoryNew       Category = "new"
)

// Category reports which performance bucket the record falls into.
func (r *Record) Category() Category {
	switch {
	case r.DecSales == 0 && r.JanSales > 0:
		return CategoryNew
	case r.Growth < 0:
		return CategoryDeclining
	case r.DecSales > 0 && r.Growth > 0:
		return CategoryGrowing
	default:
		return CategoryFlat
	}
}

// ParseCategory maps a user-supplied name onto a Category.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryGrowing, CategoryDeclining, CategoryFlat, CategoryNew:
		return Category(s), true
	}
	return "", false
}

// Dataset is an ordered collection of normalized records.
type Dataset []*Record

// Clone copies every record so the result can be handed out without
// exposing the receiver's records to mutation.
func (d Dataset) Clone() Dataset {
	if d == nil {
		return nil
	}
	out := make(Dataset, len(d))
	for i, r := range d {
		cp := *r
		out[i] = &cp
	}
	return out
}
