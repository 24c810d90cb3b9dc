/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"dbdoc/internal/bootstrap/logging"
	domain "dbdoc/internal/domain/reconcile"
	"dbdoc/internal/errs"
	"dbdoc/internal/usecase/reconcile"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Open issues for undocumented objects and reopen issues that came back",
	RunE:  withService(runMode(domain.ModePublish, false)),
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Close issues whose table or column is now documented",
	RunE:  withService(runMode(domain.ModeSweep, false)),
}

var planCmd = &cobra.Command{
	Use:     "plan",
	Aliases: []string{"dry-run"},
	Short:   "Show what publish or sweep would do without changing the tracker",
}

var planPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Plan a publish run",
	RunE:  withService(runMode(domain.ModePublish, true)),
}

var planSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Plan a sweep run",
	RunE:  withService(runMode(domain.ModeSweep, true)),
}

func runMode(mode domain.Mode, forceDryRun bool) func(ctx context.Context, cmd *cobra.Command, args []string, svc *reconcile.Service) error {
	return func(ctx context.Context, cmd *cobra.Command, _ []string, svc *reconcile.Service) error {
		output, _ := cmd.Flags().GetString("output")
		if err := validateOutput(output); err != nil {
			return err
		}
		dryRun := forceDryRun
		if !dryRun {
			dryRun, _ = cmd.Flags().GetBool("dry-run")
		}

		opts := reconcile.RunOptions{DryRun: dryRun}
		var (
			report reconcile.Report
			err    error
		)
		switch mode {
		case domain.ModePublish:
			report, err = svc.RunPublish(ctx, opts)
		case domain.ModeSweep:
			report, err = svc.RunSweep(ctx, opts)
		default:
			return fmt.Errorf("unsupported mode %q", mode)
		}
		if err != nil {
			return errs.Wrapf(err, "%s run", mode)
		}

		if err := renderReport(cmd.OutOrStdout(), output, report); err != nil {
			return err
		}
		logging.Info(ctx, "command finished",
			slog.String("run_id", report.RunID),
			slog.Int("failed", report.Count(reconcile.StatusFailed)),
		)
		return nil
	}
}

func init() {
	for _, c := range []*cobra.Command{publishCmd, sweepCmd, planPublishCmd, planSweepCmd} {
		c.Flags().StringP("output", "o", outputLine, "Output format: line, table or json")
	}
	publishCmd.Flags().Bool("dry-run", false, "Plan only, do not change the tracker")
	sweepCmd.Flags().Bool("dry-run", false, "Plan only, do not change the tracker")

	planCmd.AddCommand(planPublishCmd, planSweepCmd)
	rootCmd.AddCommand(publishCmd, sweepCmd, planCmd)
}
