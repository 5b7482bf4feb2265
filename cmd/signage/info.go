package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nippo-signage/go/internal/models"
	"github.com/nippo-signage/go/internal/pdfpage"
	"github.com/nippo-signage/go/internal/schedule"
)

type infoReport struct {
	Input     string        `json:"input" yaml:"input"`
	Pages     int           `json:"pages" yaml:"pages"`
	Status    models.Status `json:"status" yaml:"status"`
	Extracted int           `json:"extracted_rows" yaml:"extracted_rows"`
	Kept      int           `json:"kept_rows" yaml:"kept_rows"`
	MaxRows   int           `json:"max_rows" yaml:"max_rows"`
	Missing   []string      `json:"missing_assets,omitempty" yaml:"missing_assets,omitempty"`
}

var infoCmd = &cobra.Command{
	Use:   "info <report.pdf>",
	Short: "Show how a report and the configured assets will be handled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		composer, err := cfg.NewComposer()
		if err != nil {
			return err
		}

		rep := infoReport{Input: args[0], MaxRows: composer.MaxRows()}
		for _, m := range composer.Assets.Missing {
			rep.Missing = append(rep.Missing, fmt.Sprintf("%s: %s", m.Asset, m.Path))
		}
		if n, err := pdfpage.PageCount(data); err == nil {
			rep.Pages = n
		} else {
			Logger.Debug("page count unavailable", "error", err)
		}
		doc, loadErr := schedule.Load(data, cfg.ExtractOptions(), cfg.RowFilter())
		rep.Status = doc.Status
		rep.Extracted = doc.Extracted
		rep.Kept = len(doc.Rows)
		if rep.Pages == 0 {
			rep.Pages = doc.Pages
		}
		if err := output(rep); err != nil {
			return err
		}
		return loadErr
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
