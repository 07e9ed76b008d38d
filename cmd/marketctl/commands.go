package main

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/repository"
	"marketplace/internal/services"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update tables and partial indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		if err := database.AutoMigrate(e.db.WithContext(cmd.Context())); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
		return nil
	},
}

var sqlCmd = &cobra.Command{
	Use:   "sql <file.sql>...",
	Short: "Apply raw SQL migration files to Postgres, each in its own transaction",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Database.Driver != "postgres" {
			return fmt.Errorf("sql files target postgres, DB_DRIVER is %q", cfg.Database.Driver)
		}

		db, err := sql.Open("postgres", cfg.GetDSN())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(cmd.Context()); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}

		return applySQLFiles(cmd.Context(), db, args, cmd.OutOrStdout())
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute favorite and unread counters from their source rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		svc := services.NewReconcileService(repository.NewRepository(e.db), e.log, nil)
		report, err := svc.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Corrected %d listing favorite counts and %d conversation unread counters\n",
			report.FavoriteCounts, report.UnreadCounts)
		return nil
	},
}

var seedCategoriesCmd = &cobra.Command{
	Use:   "seed-categories",
	Short: "Insert the default category catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		inserted, err := services.NewCategoryService(repository.NewRepository(e.db)).SeedDefaults(cmd.Context())
		if err != nil {
			return err
		}
		e.log.Info("categories seeded", zap.Int64("inserted", inserted))
		fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d categories\n", inserted)
		return nil
	},
}
