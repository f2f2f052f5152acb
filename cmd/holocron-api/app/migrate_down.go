package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/holocron-dev/holocron/database"
	"github.com/holocron-dev/holocron/internal/logger"
)

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back database migrations",
	Long: `Roll back the database migrations, dropping all tables created by this
service. This is destructive; all imported data is lost.`,
	RunE: runMigrateDown,
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, connString, err := migrationTarget(cmd)
	if err != nil {
		return err
	}

	confirmed, err := confirmMigration(cmd, "roll back migrations on", cfg)
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}

	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(ctx); closeErr != nil {
			logger.Errorf("Error closing database connection: %v", closeErr)
		}
	}()

	logger.Infof("Rolling back database migrations...")
	if err := database.MigrateDown(ctx, conn); err != nil {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}

	logger.Infof("Migrations rolled back successfully")
	return nil
}
