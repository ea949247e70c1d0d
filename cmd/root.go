package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ebay-sales-analytics/config"
	"ebay-sales-analytics/models"
	"ebay-sales-analytics/services"
	"ebay-sales-analytics/utils"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = utils.NewLogger()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "salesdash",
	Short: "Normalize and analyze eBay sales tracking exports.",
	Long: `salesdash ingests sales tracking CSV exports with varying column layouts,
normalizes them into one dataset with revenue and growth metrics, and reports,
exports or serves the result.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.salesdash.yaml)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if lvl, _ := rootCmd.PersistentFlags().GetString("loglevel"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// stdout is reserved for command output
	logger.SetOutput(os.Stderr)
}

// readSources loads each path as one upload source named after its file.
func readSources(paths []string) ([]models.Source, error) {
	sources := make([]models.Source, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		sources = append(sources, models.Source{Name: filepath.Base(p), Content: content})
	}
	return sources, nil
}

// runUpload pushes the files through the pipeline as a single upload event.
// Per-source failures are logged; only a completely empty result is an error.
func runUpload(ctx context.Context, paths []string) (*models.UploadResult, error) {
	sources, err := readSources(paths)
	if err != nil {
		return nil, err
	}

	pipeline, err := services.NewPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}

	res, err := pipeline.Upload(ctx, sources)
	if res != nil {
		for _, s := range res.Sources {
			if s.Error != "" {
				logger.Warn("Skipped %s: %s", s.Name, s.Error)
			}
		}
	}
	if errors.Is(err, services.ErrNoValidData) {
		return nil, fmt.Errorf("no valid eBay data found in %d file(s)", len(paths))
	}
	return res, err
}
