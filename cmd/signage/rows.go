package main

import (
	"github.com/spf13/cobra"
)

var rowsCmd = &cobra.Command{
	Use:   "rows <report.pdf>",
	Short: "List the rows of a report that can be put on the signage",
	Long: `List the work-item rows of the first table in a daily report.

The index of each row is what render --select expects.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		r := &renderer{cfg: cfg}
		doc, loadErr := r.load(args[0])
		if err := output(doc.Listing(cfg.ListingPlaceholders())); err != nil {
			return err
		}
		return loadErr
	},
}

func init() {
	rootCmd.AddCommand(rowsCmd)
}
