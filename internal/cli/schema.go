package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-retail-etl/internal/db"
	"github.com/pgEdge/pgedge-retail-etl/internal/logging"
	"github.com/pgEdge/pgedge-retail-etl/internal/warehouse"
)

var (
	schemaDropOnly     bool
	schemaDropMetadata bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Drop and recreate the star schema without loading data",
	Long: `Drop the staging, dimension and fact tables and create them again,
empty. Use --drop-only to leave the database without the schema, and
--drop-metadata to also remove the record of the last run.

Example:
  pgedge-retail-etl schema --connection "postgres://..." --drop-only --drop-metadata`,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaDropOnly, "drop-only", false,
		"drop the schema without recreating it")
	schemaCmd.Flags().BoolVar(&schemaDropMetadata, "drop-metadata", false,
		"also drop the run metadata table")
}

func runSchema(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	conn, err := db.ConnectSingle(ctx, cfg.Connection, "schema")
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	logging.Info().Msg("Dropping star schema")
	warehouse.DropSchema(ctx, conn)

	if schemaDropMetadata {
		if err := db.DropMetadata(ctx, conn); err != nil {
			return fmt.Errorf("failed to drop metadata: %w", err)
		}
	}

	if schemaDropOnly {
		logging.Info().Msg("Star schema dropped")
		return nil
	}

	logging.Info().Msg("Creating star schema")
	if err := warehouse.CreateSchema(ctx, conn); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logging.Info().
		Strs("tables", warehouse.Tables).
		Msg("Star schema created")
	return nil
}
