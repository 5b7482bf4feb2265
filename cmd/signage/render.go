package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/nippo-signage/go/internal/schedule"
	"github.com/nippo-signage/go/internal/signage"
)

var (
	renderSelect string
	renderAll    bool
	renderDate   string
	renderOut    string
)

var renderCmd = &cobra.Command{
	Use:   "render <report.pdf>",
	Short: "Render selected rows of a report as a signage PNG",
	Long: `Render rows of a daily report onto the signage background.

Examples:
  signage render report.pdf --select 0,2
  signage render report.pdf --all --date today --out lobby.png
  signage render report.pdf --select 1 --date 2024-04-01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var selection []int
		if !renderAll {
			var err error
			if selection, err = schedule.ParseSelection(renderSelect); err != nil {
				return err
			}
			if len(selection) == 0 {
				return errors.New("select at least one row with --select or pass --all")
			}
		}
		dateLabel, err := signage.ResolveDateLabel(renderDate, time.Now())
		if err != nil {
			return err
		}

		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		r, err := newRenderer(mgr.Get())
		if err != nil {
			return err
		}
		rep, err := r.renderFile(args[0], renderOut, selection, dateLabel)
		if outErr := output(rep); outErr != nil {
			return outErr
		}
		return err
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderSelect, "select", "", "comma-separated row indices, as listed by rows")
	renderCmd.Flags().BoolVar(&renderAll, "all", false, "render every row")
	renderCmd.Flags().StringVar(&renderDate, "date", "", "date label: today or YYYY-MM-DD (default: none)")
	renderCmd.Flags().StringVar(&renderOut, "out", "signage.png", "output PNG path")
	renderCmd.MarkFlagsMutuallyExclusive("select", "all")
	rootCmd.AddCommand(renderCmd)
}
