package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-retail-etl/internal/db"
	"github.com/pgEdge/pgedge-retail-etl/internal/warehouse"
)

var reportLimit int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print sales summaries from the star schema",
	Long: `Print sales by month, by product category and by customer gender,
computed from fact_sales and its dimensions.

Example:
  pgedge-retail-etl report --connection "postgres://..." --limit 6`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportLimit, "limit", 0,
		"maximum rows per section")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportLimit > 0 {
		cfg.Report.Limit = reportLimit
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	report, err := warehouse.BuildReport(ctx, pool, cfg.Report.Limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSection(out, "Sales by month", report.ByMonth)
	printSection(out, "Sales by product category", report.ByCategory)
	printSection(out, "Sales by customer gender", report.ByGender)
	return nil
}

func printSection(out io.Writer, title string, rows []warehouse.SalesRow) {
	fmt.Fprintln(out, title+":")
	if len(rows) == 0 {
		fmt.Fprintln(out, "  (no sales)")
		fmt.Fprintln(out)
		return
	}

	fmt.Fprintf(out, "  %-16s %12s %10s %14s\n", "", "transactions", "quantity", "revenue")
	for _, r := range rows {
		fmt.Fprintf(out, "  %-16s %12d %10d %14s\n",
			r.Label, r.Transactions, r.Quantity, r.Revenue.StringFixed(2))
	}
	fmt.Fprintln(out)
}
