package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"solana-mention-tracker/internal/storage/migrations"
	pgstore "solana-mention-tracker/internal/storage/postgres"
)

func newMigrateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded Postgres and ClickHouse migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.Postgres.DSN == "" && cfg.ClickHouse.DSN == "" {
				return errors.New("nothing to migrate: set postgres.dsn and/or clickhouse.dsn")
			}
			ctx := cmd.Context()

			if cfg.Postgres.DSN != "" {
				pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
				if err != nil {
					return err
				}
				defer pool.Close()

				applied, err := migrations.RunPostgresMigrations(ctx, pool, log)
				if err != nil {
					return fmt.Errorf("postgres migrations: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "postgres: applied %d migrations\n", len(applied))
			}

			if cfg.ClickHouse.DSN != "" {
				conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN, log)
				if err != nil {
					return fmt.Errorf("clickhouse migrations: %w", err)
				}
				defer conn.Close()
				fmt.Fprintln(cmd.OutOrStdout(), "clickhouse: migrations applied")
			}
			return nil
		},
	}
}
