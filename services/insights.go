package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ebay-sales-analytics/models"
	"ebay-sales-analytics/utils"
)

const DefaultTopN = 30

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(ds models.Dataset, topN int) *models.InsightReport {
	if topN <= 0 {
		topN = DefaultTopN
	}

	report := &models.InsightReport{
		TotalRevenue:   decimal.Zero,
		CategoryCounts: make(map[models.Category]int),
	}
	if len(ds) == 0 {
		return report
	}

	report.TotalRecords = len(ds)
	for _, r := range ds {
		report.DecSales += r.DecSales
		report.JanSales += r.JanSales
		report.TotalSales += r.TotalSales
		report.TotalRevenue = report.TotalRevenue.Add(r.TotalRevenue)
		report.CategoryCounts[r.Category()]++
	}

	// Top N by total sales; ties keep dataset order
	top := make(models.Dataset, len(ds))
	copy(top, ds)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].TotalSales > top[j].TotalSales
	})
	report.TopSellers = limit(top, topN)

	// Most recently added, only meaningful once a merge assigned listing order
	var ordered models.Dataset
	for _, r := range ds {
		if r.ListingOrder > 0 {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ListingOrder > ordered[j].ListingOrder
	})
	report.RecentlyAdded = limit(ordered, topN)

	report.Products = ProductStats(ds)

	s.logger.Debug("[insights] %d records, %d products", report.TotalRecords, len(report.Products))
	return report
}

// ProductStats groups records by product name: summed sales and revenue,
// listing count and mean price. Sorted by sales descending, then by name.
func ProductStats(ds models.Dataset) []models.ProductStats {
	index := make(map[string]int)
	var stats []models.ProductStats
	priceSums := make([]decimal.Decimal, 0)

	for _, r := range ds {
		i, ok := index[r.Product]
		if !ok {
			i = len(stats)
			index[r.Product] = i
			stats = append(stats, models.ProductStats{Product: r.Product, TotalRevenue: decimal.Zero})
			priceSums = append(priceSums, decimal.Zero)
		}
		stats[i].TotalSales += r.TotalSales
		stats[i].TotalRevenue = stats[i].TotalRevenue.Add(r.TotalRevenue)
		stats[i].Listings++
		priceSums[i] = priceSums[i].Add(r.Price)
	}

	for i := range stats {
		stats[i].AvgPrice = priceSums[i].Div(decimal.NewFromInt(int64(stats[i].Listings))).Round(2)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].TotalSales != stats[j].TotalSales {
			return stats[i].TotalSales > stats[j].TotalSales
		}
		return stats[i].Product < stats[j].Product
	})
	return stats
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 EBAY SALES INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Key Metrics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings      : \033[1m%d\033[0m\n", r.TotalRecords)
	fmt.Fprintf(w, "  Dec sales     : \033[1m%d\033[0m\n", r.DecSales)
	fmt.Fprintf(w, "  Jan sales     : \033[1m%d\033[0m\n", r.JanSales)
	fmt.Fprintf(w, "  Total sales   : \033[1m%d\033[0m\n", r.TotalSales)
	fmt.Fprintf(w, "  Total revenue : \033[1;32m$%s\033[0m\n", r.TotalRevenue.StringFixed(2))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Performance\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, c := range []models.Category{models.CategoryGrowing, models.CategoryDeclining, models.CategoryFlat, models.CategoryNew} {
		fmt.Fprintf(w, "  %-10s %d\n", c, r.CategoryCounts[c])
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top %d Listings by Total Sales\033[0m\n", len(r.TopSellers))
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopSellers) == 0 {
		fmt.Fprintf(w, "  No listings\n")
	}
	for i, l := range r.TopSellers {
		fmt.Fprintf(w, "  \033[1m%2d.\033[0m %-34s %s | sales %d | %s\n",
			i+1, truncate(l.Product, 32), priceLabel(l.Price), l.TotalSales, growthLabel(l))
	}
	fmt.Fprintln(w)

	if len(r.RecentlyAdded) > 0 {
		fmt.Fprintf(w, "\033[1;33m  Most Recently Added\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for _, l := range r.RecentlyAdded {
			fmt.Fprintf(w, "  #%-4d %-34s (ID: %s)\n", l.ListingOrder, truncate(l.Product, 32), l.ItemID)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Products\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Products) == 0 {
		fmt.Fprintf(w, "  No product data\n")
	}
	for _, p := range r.Products {
		fmt.Fprintf(w, "  %-30s sales %-6d revenue $%-12s listings %-4d avg $%s\n",
			truncate(p.Product, 28), p.TotalSales, p.TotalRevenue.StringFixed(2), p.Listings, p.AvgPrice.StringFixed(2))
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func priceLabel(p decimal.Decimal) string {
	if p.IsZero() {
		return "No price"
	}
	return "$" + p.StringFixed(2)
}

func growthLabel(r *models.Record) string {
	return fmt.Sprintf("Dec %d → Jan %d (%+.0f%%)", r.DecSales, r.JanSales, r.GrowthPct)
}

func limit(ds models.Dataset, n int) []*models.Record {
	if len(ds) > n {
		return ds[:n]
	}
	return ds
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
