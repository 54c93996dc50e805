package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-retail-etl/internal/db"
	"github.com/pgEdge/pgedge-retail-etl/internal/warehouse"
)

// metadataKeys is the display order of the run metadata.
var metadataKeys = []string{
	"run_id", "completed_at", "csv_path", "rows_staged", "fact_rows", "dropped_rows", "version",
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show star schema row counts and the last run",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	counts, err := warehouse.TableCounts(ctx, pool)
	if err != nil {
		return err
	}

	var metadata map[string]string
	exists, err := db.MetadataExists(ctx, pool)
	if err != nil {
		return fmt.Errorf("failed to check metadata: %w", err)
	}
	if exists {
		metadata, err = db.GetAllMetadata(ctx, pool)
		if err != nil {
			return fmt.Errorf("failed to read metadata: %w", err)
		}
	}

	printStatus(cmd.OutOrStdout(), counts, metadata)
	return nil
}

func printStatus(out io.Writer, counts []warehouse.TableCount, metadata map[string]string) {
	fmt.Fprintln(out, "Tables:")
	for _, c := range counts {
		if !c.Exists {
			fmt.Fprintf(out, "  %-26s %12s\n", c.Name, "missing")
			continue
		}
		fmt.Fprintf(out, "  %-26s %12d\n", c.Name, c.Rows)
	}

	fmt.Fprintln(out)
	if len(metadata) == 0 {
		fmt.Fprintln(out, "No completed run recorded.")
		return
	}

	fmt.Fprintln(out, "Last run:")
	for _, key := range metadataKeys {
		if value, ok := metadata[key]; ok {
			fmt.Fprintf(out, "  %-26s %s\n", key, value)
		}
	}
}
