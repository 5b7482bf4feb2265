package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("signage %s\n", version)
		fmt.Printf("  Go:     %s\n", runtime.Version())
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					fmt.Printf("  Commit: %s\n", s.Value)
				case "vcs.time":
					fmt.Printf("  Date:   %s\n", s.Value)
				}
			}
		}
	},
}
