package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/BaSui01/viralshorts/internal/migration"
)

// =============================================================================
// Database Migration Commands
// =============================================================================

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long: `Applies the embedded SQL migrations for the configured database
driver (sqlite, postgres, mysql).`,
		Example: `  viralshorts migrate up
  viralshorts migrate status --config /etc/viralshorts/config.yaml
  viralshorts migrate force 1`,
	}

	// run 打开迁移器、执行 fn 并确保关闭
	run := func(fn func(ctx context.Context, cli *migration.CLI) error) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, _ []string) error {
			m, err := migration.NewFromConfig(opts.cfg.Database, opts.logger)
			if err != nil {
				return fmt.Errorf("failed to create migrator: %w", err)
			}
			defer m.Close()
			return fn(c.Context(), migration.NewCLI(m, c.OutOrStdout()))
		}
	}

	intArg := func(args []string) (int, error) {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, fmt.Errorf("invalid number %q: %w", args[0], err)
		}
		return n, nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  run(func(ctx context.Context, cli *migration.CLI) error { return cli.RunUp(ctx) }),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE:  run(func(ctx context.Context, cli *migration.CLI) error { return cli.RunDown(ctx) }),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE:  run(func(ctx context.Context, cli *migration.CLI) error { return cli.RunStatus(ctx) }),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show current migration version",
			RunE:  run(func(ctx context.Context, cli *migration.CLI) error { return cli.RunVersion(ctx) }),
		},
		&cobra.Command{
			Use:   "steps <n>",
			Short: "Apply n migrations (negative rolls back)",
			Args:  cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				n, err := intArg(args)
				if err != nil {
					return err
				}
				return run(func(ctx context.Context, cli *migration.CLI) error { return cli.RunSteps(ctx, n) })(c, args)
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Force set migration version (use with caution)",
			Args:  cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				v, err := intArg(args)
				if err != nil {
					return err
				}
				return run(func(ctx context.Context, cli *migration.CLI) error { return cli.RunForce(ctx, v) })(c, args)
			},
		},
	)
	return cmd
}
