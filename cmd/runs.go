/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"dbdoc/internal/usecase/reconcile"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run ledger",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: withHistory(func(ctx context.Context, cmd *cobra.Command, _ []string, history *reconcile.RunHistory) error {
		output, _ := cmd.Flags().GetString("output")
		if err := validateOutput(output); err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := history.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		return renderRuns(cmd.OutOrStdout(), output, runs)
	}),
}

var runsShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show one run and its actions",
	Args:  cobra.ExactArgs(1),
	RunE: withHistory(func(ctx context.Context, cmd *cobra.Command, args []string, history *reconcile.RunHistory) error {
		output, _ := cmd.Flags().GetString("output")
		if err := validateOutput(output); err != nil {
			return err
		}

		run, actions, err := history.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		return renderRun(cmd.OutOrStdout(), output, run, actions)
	}),
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "Maximum number of runs")
	for _, c := range []*cobra.Command{runsListCmd, runsShowCmd} {
		c.Flags().StringP("output", "o", outputLine, "Output format: line, table or json")
	}
	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
