package main

import (
	"fmt"
	"os"

	propagationapp "github.com/erp/records/internal/application/propagation"
	"github.com/erp/records/internal/infrastructure/config"
	"github.com/erp/records/internal/infrastructure/logger"
	"github.com/erp/records/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "syncctl",
		Short:        "Propagation queue operations",
		SilenceUsage: true,
	}
	cmd.AddCommand(newDeadCmd(), newStatsCmd(), newJobCmd())
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// withOps connects to the configured database and hands fn an OpsService
func withOps(fn func(ops *propagationapp.OpsService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{Level: "warn", Format: "console", Output: "stderr"})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(logger.NewGormLogger(log, logger.MapGormLogLevel("warn"), 0)),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Error closing database", zap.Error(err))
		}
	}()

	ops := propagationapp.NewOpsService(persistence.NewGormJobRepository(db.DB), log)
	return fn(ops)
}

func parseTenant(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --tenant: %w", err)
	}
	return &id, nil
}
