package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-retail-etl/internal/datagen"
	"github.com/pgEdge/pgedge-retail-etl/internal/db"
	"github.com/pgEdge/pgedge-retail-etl/internal/logging"
	"github.com/pgEdge/pgedge-retail-etl/internal/pipeline"
	"github.com/pgEdge/pgedge-retail-etl/internal/source"
)

var (
	runBatchSize        int
	runProgressInterval int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ETL: rebuild the star schema and load the CSV",
	Long: `Drop and recreate the star schema, copy the CSV into the staging
table, then populate the customer, product and date dimensions and the
sales fact table. Each stage commits before the next one starts.

A malformed row aborts the run before any staged row is committed. Staged
rows that cannot be matched to all three dimensions are left out of
fact_sales and reported as dropped.

Example:
  pgedge-retail-etl run --connection "postgres://..." --csv data/sales.csv`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runBatchSize, "batch-size", 0,
		"rows per COPY batch into the staging table")
	runCmd.Flags().Int64Var(&runProgressInterval, "progress-interval", 0,
		"log progress every N staged rows")
}

func runRun(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if runBatchSize > 0 {
		cfg.Load.BatchSize = runBatchSize
	}
	if runProgressInterval > 0 {
		cfg.Load.ProgressInterval = runProgressInterval
	}

	// Validate configuration
	if err := cfg.ValidateRun(); err != nil {
		return err
	}
	if _, err := os.Stat(cfg.CSVPath); err != nil {
		return fmt.Errorf("cannot read input file: %w", err)
	}

	runID := uuid.NewString()
	logging.WithRunID(runID)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	conn, err := db.ConnectSingle(ctx, cfg.Connection, "run")
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(context.Background())

	p := pipeline.New(conn, pipeline.Config{
		RunID:   runID,
		CSVPath: cfg.CSVPath,
		Batch: datagen.BatchInsertConfig{
			BatchSize:        cfg.Load.BatchSize,
			ProgressInterval: cfg.Load.ProgressInterval,
		},
	})

	summary, err := p.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("run cancelled: %w", err)
		}
		var perr *source.ParseError
		if errors.As(err, &perr) {
			logging.Error().
				Int("line", perr.Line).
				Str("column", perr.Column).
				Str("value", perr.Value).
				Msg("Input file rejected")
		}
		return err
	}

	printSummary(cmd, summary)
	return nil
}

func printSummary(cmd *cobra.Command, s *pipeline.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", s.RunID)
	if s.PreviousRun != "" {
		fmt.Fprintf(out, "  %-24s %s\n", "replaced run", s.PreviousRun)
	}
	fmt.Fprintf(out, "  %-24s %10d\n", "rows staged", s.RowsStaged)
	fmt.Fprintf(out, "  %-24s %10d\n", "dim_customer rows", s.Dimensions.Customers)
	fmt.Fprintf(out, "  %-24s %10d\n", "dim_product rows", s.Dimensions.Products)
	fmt.Fprintf(out, "  %-24s %10d\n", "dim_date rows", s.Dimensions.Dates)
	fmt.Fprintf(out, "  %-24s %10d\n", "fact_sales rows", s.FactRows)
	fmt.Fprintf(out, "  %-24s %10d\n", "dropped rows", s.DroppedRows)
	for _, st := range s.Stages {
		fmt.Fprintf(out, "  %-24s %10s\n", st.Stage+" stage", st.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(out, "  %-24s %10s\n", "total", s.Duration.Round(time.Millisecond))
}
