// Command marketctl runs operator tasks against the marketplace database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "marketctl",
	Short:         "Operator tasks for the marketplace database",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, sqlCmd, reconcileCmd, seedCategoriesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every subcommand needs: configuration, a logger and an open
// database. close releases the logger and the connection pool.
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: logger, db: db}, nil
}

func (e *env) close() {
	_ = database.Close(e.db)
	_ = e.log.Sync()
}
