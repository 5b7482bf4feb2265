package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nippo-signage/go/internal/signage"
)

var (
	batchOut  string
	batchJobs int
	batchDate string
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Render every report in a directory",
	Long: `Render all rows of every PDF in a directory, one PNG per report.

Reports that cannot be read or have no matching rows are listed in the
summary and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dateLabel, err := signage.ResolveDateLabel(batchDate, time.Now())
		if err != nil {
			return err
		}
		files, err := listPDFs(args[0])
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

		reports, err := runBatch(cmd.Context(), r, files, batchOut, batchJobs, dateLabel)
		if outErr := output(reports); outErr != nil {
			return outErr
		}
		return err
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchOut, "out", "signage", "output directory")
	batchCmd.Flags().IntVar(&batchJobs, "jobs", runtime.NumCPU(), "reports rendered in parallel")
	batchCmd.Flags().StringVar(&batchDate, "date", "", "date label: today or YYYY-MM-DD (default: none)")
	rootCmd.AddCommand(batchCmd)
}

func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// runBatch renders files with at most jobs workers. Per-file failures are
// recorded in the returned reports; only cancellation stops the batch.
func runBatch(ctx context.Context, r *renderer, files []string, outDir string, jobs int, dateLabel string) ([]renderReport, error) {
	if jobs < 1 {
		jobs = 1
	}
	reports := make([]renderReport, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	start := time.Now()
	for i, in := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + ".png"
			rep, err := r.renderFile(in, filepath.Join(outDir, name), nil, dateLabel)
			if err != nil {
				Logger.Error("report failed", "input", in, "error", err)
				if rep.Message == "" {
					rep.Message = err.Error()
				}
			}
			reports[i] = rep
			Logger.Debug("processed report", "input", in, "status", rep.Status)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, fmt.Errorf("batch interrupted: %w", err)
	}
	Logger.Info("batch finished", "reports", len(files), "elapsed", time.Since(start))
	return reports, nil
}
