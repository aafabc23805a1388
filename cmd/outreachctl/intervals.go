package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/ignite/outreach-tracker/internal/app"
	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/spf13/cobra"
)

var validateIntervalsCmd = &cobra.Command{
	Use:   "validate-intervals <followup-days> <lastchance-days>",
	Short: "Check a follow-up / last-chance interval pair",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := parseIntervals(args)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s follow-up after %d days, last chance after %d days\n",
			color.GreenString("valid:"), s.FollowupDays, s.LastchanceDays)
		return nil
	},
}

var setIntervalsUser int64

var setIntervalsCmd = &cobra.Command{
	Use:   "set-intervals <followup-days> <lastchance-days>",
	Short: "Update a user's interval settings",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if setIntervalsUser <= 0 {
			return fmt.Errorf("--user is required")
		}
		s, err := parseIntervals(args)
		if err != nil {
			return err
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

		saved, err := a.Settings.UpdateIntervals(ctx, setIntervalsUser, s.FollowupDays, s.LastchanceDays)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %d: follow-up %d days, last chance %d days\n",
			setIntervalsUser, saved.FollowupDays, saved.LastchanceDays)
		return nil
	},
}

func parseIntervals(args []string) (domain.IntervalSettings, error) {
	f, err := strconv.Atoi(args[0])
	if err != nil {
		return domain.IntervalSettings{}, fmt.Errorf("followup days: %w", err)
	}
	l, err := strconv.Atoi(args[1])
	if err != nil {
		return domain.IntervalSettings{}, fmt.Errorf("lastchance days: %w", err)
	}
	return domain.NewIntervalSettings(f, l)
}

func init() {
	setIntervalsCmd.Flags().Int64Var(&setIntervalsUser, "user", 0, "user id")
	rootCmd.AddCommand(validateIntervalsCmd, setIntervalsCmd)
}
