package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/ignite/outreach-tracker/internal/app"
	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/spf13/cobra"
)

var (
	sweepJSON bool
	sweepAt   string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one follow-up sweep pass",
	Long: `Run one follow-up sweep pass against the configured database.

The pass takes the same distributed lock as the worker, so it reports
"skipped" when another sweep is in progress.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now().UTC()
		if sweepAt != "" {
			t, err := time.Parse(time.RFC3339, sweepAt)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			now = t.UTC()
		}

		cfg, err := app.Load(configPath)
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Sweep.Run(ctx, now)
		if err != nil {
			return err
		}
		if sweepJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printReport(report)
		return nil
	},
}

func printReport(r *domain.SweepReport) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("\n%s\n", cyan("=== Follow-up Sweep ==="))
	fmt.Printf("  Run:       %s\n", r.RunID)
	fmt.Printf("  As of:     %s\n", r.Now.Format(time.RFC3339))
	if r.Skipped {
		fmt.Printf("  %s\n\n", yellow("Skipped: another sweep holds the lock"))
		return
	}
	fmt.Printf("  Scanned:   %d\n", r.Scanned)
	fmt.Printf("  Reminded:  %s\n", green(r.Reminded))
	fmt.Printf("  Last chance due: %s\n", green(r.LastchanceDue))
	fmt.Printf("  Completed: %s\n", green(r.Completed))
	if r.Conflicts > 0 {
		fmt.Printf("  Conflicts: %s\n", yellow(r.Conflicts))
	}
	if n := r.Failed + r.NotifyFailures + r.OracleFailures; n > 0 {
		fmt.Printf("  Failures:  %s (write %d, notify %d, reply check %d)\n",
			red(n), r.Failed, r.NotifyFailures, r.OracleFailures)
	}
	fmt.Printf("  Took:      %s\n\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepJSON, "json", false, "print the report as JSON")
	sweepCmd.Flags().StringVar(&sweepAt, "at", "", "evaluate due dates as of this RFC3339 time")
	rootCmd.AddCommand(sweepCmd)
}
