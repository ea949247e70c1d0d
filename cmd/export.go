package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"ebay-sales-analytics/services"
	"ebay-sales-analytics/storage"
	"ebay-sales-analytics/utils"
)

var exportCmd = &cobra.Command{
	Use:   "export FILE...",
	Short: "Write records.csv and products.csv, and optionally database exports",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("out")
		toPostgres, _ := cmd.Flags().GetBool("postgres")
		toSQLite, _ := cmd.Flags().GetBool("sqlite")

		res, err := runUpload(cmd.Context(), args)
		if err != nil {
			return err
		}

		recordsPath := filepath.Join(outDir, "records.csv")
		if err := writeCSV(recordsPath, func(w *storage.CSVWriter) error { return w.WriteRecords(res.Dataset) }); err != nil {
			return err
		}
		productsPath := filepath.Join(outDir, "products.csv")
		if err := writeCSV(productsPath, func(w *storage.CSVWriter) error {
			return w.WriteProducts(services.ProductStats(res.Dataset))
		}); err != nil {
			return err
		}
		logger.Info("Wrote %d records to %s and %s", len(res.Dataset), recordsPath, productsPath)

		var sinks []storage.ExportWriter
		defer func() {
			for _, s := range sinks {
				s.Close()
			}
		}()

		if toPostgres {
			retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger}
			pw, err := storage.NewPostgresWriter(cfg.DSN(), retry)
			if err != nil {
				logger.Error("Make sure PostgreSQL is reachable at %s:%s", cfg.PostgresHost, cfg.PostgresPort)
				return err
			}
			sinks = append(sinks, pw)
		}
		if toSQLite {
			sw, err := storage.NewSQLiteWriter(cfg.SQLitePath)
			if err != nil {
				return err
			}
			sinks = append(sinks, sw)
		}

		for _, s := range sinks {
			if err := s.Write(res.UploadID, res.Dataset); err != nil {
				return err
			}
		}
		if len(sinks) > 0 {
			logger.Info("Upload %s stored in %d database(s) (table: sales_records)", res.UploadID, len(sinks))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("out", "./output", "Directory for the CSV exports")
	exportCmd.Flags().Bool("postgres", false, "Also store the dataset in PostgreSQL")
	exportCmd.Flags().Bool("sqlite", false, "Also store the dataset in the SQLite file at sqlite_path")
}

func writeCSV(path string, write func(*storage.CSVWriter) error) error {
	w, err := storage.CreateCSVFile(path)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return w.Close()
}
