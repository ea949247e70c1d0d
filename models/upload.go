package models

import "github.com/shopspring/decimal"

// Source is the raw content of one uploaded file.
type Source struct {
	Name    string
	Content []byte
}

// SourceReport describes how one source fared in the pipeline.
type SourceReport struct {
	Name        string `json:"name"`
	ContentHash string `json:"content_hash"`
	Schema      string `json:"schema"`
	Columns     int    `json:"columns"`
	RawRows     int    `json:"raw_rows"`
	Skipped     int    `json:"skipped"`
	Rejected    int    `json:"rejected"`
	Records     int    `json:"records"`
	CacheHit    bool   `json:"cache_hit"`
	Error       string `json:"error,omitempty"`
}

// UploadResult is the output of one upload event: the final dataset plus a
// report per source, in upload order.
type UploadResult struct {
	UploadID string         `json:"upload_id"`
	Dataset  Dataset        `json:"records"`
	Sources  []SourceReport `json:"sources"`
	Merged   bool           `json:"merged"`
}

// ProductStats aggregates all listings that share a product name.
type ProductStats struct {
	Product      string          `json:"product"`
	TotalSales   int             `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	Listings     int             `json:"listings"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
}

// InsightReport holds the computed analytics over a dataset.
type InsightReport struct {
	TotalRecords   int              `json:"total_records"`
	DecSales       int              `json:"dec_sales"`
	JanSales       int              `json:"jan_sales"`
	TotalSales     int              `json:"total_sales"`
	TotalRevenue   decimal.Decimal  `json:"total_revenue"`
	TopSellers     []*Record        `json:"top_sellers"`
	RecentlyAdded  []*Record        `json:"recently_added,omitempty"`
	Products       []ProductStats   `json:"products"`
	CategoryCounts map[Category]int `json:"category_counts"`
}
