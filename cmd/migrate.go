package cmd

import (
	"fmt"

	"listing-manager/core/config"
	"listing-manager/core/database"
	"listing-manager/core/logger"
	extmodels "listing-manager/feature/extraction/models"
	invmodels "listing-manager/feature/inventory/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd creates or updates the database schema.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Runs the schema migration for every persisted model: dimension tables,
inventory listings and pricing offers, extraction sessions and change
records.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		l, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		l.Info("Migrating schema...", zap.String("driver", cfg.Database.Driver), zap.String("database", cfg.Database.Name))

		if err := db.AutoMigrate(append(invmodels.All(), extmodels.All()...)...); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		l.Info("Schema migration completed")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
