package cmd

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ebay-sales-analytics/models"
	"ebay-sales-analytics/services"
)

var reportCmd = &cobra.Command{
	Use:   "report FILE...",
	Short: "Print sales insights for the uploaded files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		topN, _ := cmd.Flags().GetInt("top-n")
		if topN <= 0 {
			topN = cfg.TopN
		}

		res, err := runUpload(cmd.Context(), args)
		if err != nil {
			return err
		}

		ds := filter.Apply(res.Dataset)
		logger.Info("Showing %d of %d listings", len(ds), len(res.Dataset))

		insights := services.NewInsightService(logger)
		insights.Print(os.Stdout, insights.Generate(ds, topN))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	addFilterFlags(reportCmd)
	reportCmd.Flags().Int("top-n", 0, "Number of top listings to show (default from config)")
}

func addFilterFlags(c *cobra.Command) {
	c.Flags().String("product", "", "Only include this product")
	c.Flags().StringSlice("category", nil, "Performance categories to include (growing, declining, flat, new)")
	c.Flags().Int("min-total-sales", 0, "Minimum Dec+Jan sales")
	c.Flags().Int("min-jan-sales", 0, "Minimum January sales")
	c.Flags().String("min-price", "", "Minimum price")
	c.Flags().String("max-price", "", "Maximum price")
	c.Flags().Duration("checked-within", 0, "Only listings checked within this long ago (e.g. 24h)")
}

func filterFromFlags(cmd *cobra.Command) (services.Filter, error) {
	var f services.Filter
	f.Product, _ = cmd.Flags().GetString("product")
	f.MinTotalSales, _ = cmd.Flags().GetInt("min-total-sales")
	f.MinJanSales, _ = cmd.Flags().GetInt("min-jan-sales")
	f.CheckedWithin, _ = cmd.Flags().GetDuration("checked-within")

	names, _ := cmd.Flags().GetStringSlice("category")
	for _, n := range names {
		c, ok := models.ParseCategory(n)
		if !ok {
			return f, fmt.Errorf("unknown category %q", n)
		}
		f.Categories = append(f.Categories, c)
	}

	for flag, dst := range map[string]**decimal.Decimal{"min-price": &f.MinPrice, "max-price": &f.MaxPrice} {
		v, _ := cmd.Flags().GetString(flag)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, fmt.Errorf("--%s: %w", flag, err)
		}
		*dst = &d
	}
	return f, nil
}
