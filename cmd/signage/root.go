package main

import (
	"github.com/spf13/cobra"

	"github.com/nippo-signage/go/internal/config"
	"github.com/nippo-signage/go/internal/logger"
)

var Logger = logger.GetLogger("signage")

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "signage",
	Short: "Turn a daily report PDF into a schedule signage image",
	Long: `Signage reads the schedule table from the first page of a daily report PDF,
keeps the rows whose room carries a configured marker (ED-, MA- by default),
and draws the chosen rows onto a background image as a 1080p PNG.

Typical flow:
  signage rows report.pdf                  # list the rows that can be shown
  signage render report.pdf --select 0,2   # render rows 0 and 2
  signage serve                            # upload reports over HTTP`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./signage.yaml or ~/.signage/signage.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	rootCmd.AddCommand(versionCmd)
}

// loadConfig opens the configuration named by --config, or the default
// search path when the flag is unset.
func loadConfig() (*config.Manager, error) {
	return config.NewManager(cfgFile)
}
