package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"ebay-sales-analytics/storage"
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "Print the normalized dataset as CSV",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runUpload(cmd.Context(), args)
		if err != nil {
			return err
		}

		w := storage.NewCSVWriter(os.Stdout)
		if err := w.WriteRecords(res.Dataset); err != nil {
			return err
		}
		return w.Close()
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
