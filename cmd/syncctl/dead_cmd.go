package main

import (
	"fmt"

	propagationapp "github.com/erp/records/internal/application/propagation"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type retryAllOutput struct {
	Command string `json:"command"`
	Count   int64  `json:"count"`
}

func newDeadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dead",
		Short: "Inspect and requeue dead-lettered jobs",
	}
	cmd.AddCommand(newDeadListCmd(), newDeadRetryCmd(), newDeadRetryAllCmd())
	return cmd
}

func newDeadListCmd() *cobra.Command {
	var (
		tenantID string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dead jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseTenant(tenantID)
			if err != nil {
				return err
			}
			return withOps(func(ops *propagationapp.OpsService) error {
				res, err := ops.ListDead(cmd.Context(), propagationapp.DeadJobFilter{
					TenantID: tid,
					Page:     page,
					PageSize: pageSize,
				})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Restrict to one tenant UUID")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Page size (max 100)")
	return cmd
}

func newDeadRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Requeue one dead job with a fresh attempt budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}
			return withOps(func(ops *propagationapp.OpsService) error {
				job, err := ops.Retry(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), job)
			})
		},
	}
}

func newDeadRetryAllCmd() *cobra.Command {
	var tenantID string
	cmd := &cobra.Command{
		Use:   "retry-all",
		Short: "Requeue every dead job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseTenant(tenantID)
			if err != nil {
				return err
			}
			return withOps(func(ops *propagationapp.OpsService) error {
				n, err := ops.RetryAll(cmd.Context(), tid)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), retryAllOutput{Command: "dead retry-all", Count: n})
			})
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Restrict to one tenant UUID")
	return cmd
}
