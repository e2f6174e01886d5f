package main

import (
	"fmt"

	propagationapp "github.com/erp/records/internal/application/propagation"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var tenantID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show job counts by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseTenant(tenantID)
			if err != nil {
				return err
			}
			return withOps(func(ops *propagationapp.OpsService) error {
				stats, err := ops.Stats(cmd.Context(), tid)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Restrict to one tenant UUID")
	return cmd
}

func newJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "job <job-id>",
		Short: "Show one job in any status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}
			return withOps(func(ops *propagationapp.OpsService) error {
				job, err := ops.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), job)
			})
		},
	}
}
