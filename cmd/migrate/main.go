// Command migrate manages the records PostgreSQL schema
package main

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"github.com/erp/records/internal/infrastructure/config"
	"github.com/erp/records/internal/infrastructure/logger"
	"github.com/erp/records/internal/infrastructure/migration"
	"github.com/erp/records/migrations"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cli struct {
	logLevel string
	dir      string
	log      *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Records database migration tool",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(&logger.Config{
				Level:      c.logLevel,
				Format:     "console",
				Output:     "stdout",
				TimeFormat: "2006-01-02 15:04:05",
			})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			c.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&c.dir, "dir", "migrations", "Migrations directory used by create")

	cmd.AddCommand(
		c.newUpCmd(),
		c.newDownCmd(),
		c.newStepCmd(),
		c.newVersionCmd(),
		c.newForceCmd(),
		c.newCreateCmd(),
		c.newListCmd(),
	)
	return cmd
}

// withMigrator opens the configured database and runs fn against the
// embedded schema
func (c *cli) withMigrator(fn func(m *migration.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, migrations.FS, c.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			c.log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return fn(m)
}

func (c *cli) newUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withMigrator(func(m *migration.Migrator) error { return m.Up() })
		},
	}
}

func (c *cli) newDownCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (destroys all records data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("refusing to roll back everything without --confirm")
			}
			return c.withMigrator(func(m *migration.Migrator) error { return m.Down() })
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the full rollback")
	return cmd
}

func (c *cli) newStepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step <n>",
		Short: "Apply n migrations (negative n rolls back)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			return c.withMigrator(func(m *migration.Migrator) error { return m.Steps(n) })
		},
	}
}

func (c *cli) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withMigrator(func(m *migration.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if version == 0 {
					c.log.Info("No migrations applied")
					return nil
				}
				c.log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
				return nil
			})
		},
	}
}

func (c *cli) newForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied and clear the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return c.withMigrator(func(m *migration.Migrator) error { return m.Force(version) })
		},
	}
}

func (c *cli) newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create the next numbered migration pair in --dir",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := ""
			if len(args) > 1 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(c.dir, args[0], description)
			if err != nil {
				return err
			}
			c.log.Info("Migration created",
				zap.Uint("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	}
}

func (c *cli) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the migrations embedded in this binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := migration.ListMigrations(migrations.FS)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%06d  %s\n", e.Version, e.Name)
			}
			return nil
		},
	}
}
