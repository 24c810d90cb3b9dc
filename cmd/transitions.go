/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"dbdoc/internal/usecase/reconcile"
)

var transitionsCmd = &cobra.Command{
	Use:   "transitions",
	Short: "List the workflow transitions of an issue",
	Long:  "List the workflow transitions of an issue so the close and reopen ids can be configured.",
	RunE: withService(func(ctx context.Context, cmd *cobra.Command, _ []string, svc *reconcile.Service) error {
		output, _ := cmd.Flags().GetString("output")
		if err := validateOutput(output); err != nil {
			return err
		}
		key, _ := cmd.Flags().GetString("issue")

		transitions, err := svc.ListTransitions(ctx, key)
		if err != nil {
			return err
		}
		return renderTransitions(cmd.OutOrStdout(), output, key, transitions)
	}),
}

func init() {
	rootCmd.AddCommand(transitionsCmd)
	transitionsCmd.Flags().String("issue", "", "Issue key, e.g. EI-981 or owner/repo#12")
	transitionsCmd.Flags().StringP("output", "o", outputLine, "Output format: line, table or json")
	_ = transitionsCmd.MarkFlagRequired("issue")
}
