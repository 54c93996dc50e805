//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration
// +build integration

// Integration tests for the ETL pipeline.
// Run with: go test -tags=integration ./internal/...
// Requires PostgreSQL to be available.
// Set PGEDGE_TEST_CONN environment variable to override connection string.

package pipeline_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-retail-etl/internal/datagen"
	"github.com/pgEdge/pgedge-retail-etl/internal/db"
	"github.com/pgEdge/pgedge-retail-etl/internal/pipeline"
	"github.com/pgEdge/pgedge-retail-etl/internal/source"
	"github.com/pgEdge/pgedge-retail-etl/internal/testutil"
	"github.com/pgEdge/pgedge-retail-etl/internal/warehouse"
)

func runPipeline(t *testing.T, conn *pgx.Conn, csvPath string) (*pipeline.Summary, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	return pipeline.New(conn, pipeline.Config{
		RunID:   "test-run",
		CSVPath: csvPath,
		Batch:   datagen.BatchInsertConfig{BatchSize: 7, ProgressInterval: 10},
	}).Run(ctx)
}

func count(t *testing.T, conn *pgx.Conn, table string) int64 {
	t.Helper()
	n, err := warehouse.RowCount(context.Background(), conn, table)
	if err != nil {
		t.Fatalf("RowCount(%s) failed: %v", table, err)
	}
	return n
}

func TestPipelineDistinctRows(t *testing.T) {
	_, conn := testutil.SetupTestDB(t, "distinct")

	csvPath := testutil.WriteCSV(t,
		"1,2023-11-24,CUST001,Male,34,Beauty,3,50,150",
		"2,2023-02-27,CUST002,Female,26,Clothing,2,500,1000",
		"3,2023-01-13,CUST003,Male,50,Electronics,1,30,30",
	)

	summary, err := runPipeline(t, conn, csvPath)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.RowsStaged != 3 || summary.FactRows != 3 || summary.DroppedRows != 0 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	for table, want := range map[string]int64{
		warehouse.TableStaging:  3,
		warehouse.TableCustomer: 3,
		warehouse.TableProduct:  3,
		warehouse.TableDate:     3,
		warehouse.TableFact:     3,
	} {
		if got := count(t, conn, table); got != want {
			t.Errorf("%s: expected %d rows, got %d", table, want, got)
		}
	}

	// Decomposed date parts
	var year, month, day int
	err = conn.QueryRow(context.Background(),
		`SELECT year, month, day FROM dim_date WHERE full_date = '2023-11-24'`).
		Scan(&year, &month, &day)
	if err != nil {
		t.Fatalf("Failed to read dim_date: %v", err)
	}
	if year != 2023 || month != 11 || day != 24 {
		t.Errorf("Unexpected date parts: %d-%d-%d", year, month, day)
	}

	// Money survives the load exactly
	var total string
	err = conn.QueryRow(context.Background(),
		`SELECT SUM(total_amount)::TEXT FROM fact_sales`).Scan(&total)
	if err != nil {
		t.Fatalf("Failed to sum totals: %v", err)
	}
	if total != "1180.00" {
		t.Errorf("Expected total 1180.00, got %s", total)
	}
}

func TestPipelineCustomerDimension(t *testing.T) {
	_, conn := testutil.SetupTestDB(t, "customers")

	csvPath := testutil.WriteCSV(t,
		"1,2023-01-01,CUST001,Male,34,Beauty,1,50,50",
		"2,2023-01-01,CUST001,Male,34,Beauty,2,50,100",
		"3,2023-01-02,CUST001,Male,35,Clothing,1,25,25",
		"4,2023-01-02,CUST002,Female,41,Clothing,4,25,100",
	)

	summary, err := runPipeline(t, conn, csvPath)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// (CUST001, Male, 34), (CUST001, Male, 35), (CUST002, Female, 41)
	if summary.Dimensions.Customers != 3 {
		t.Errorf("Expected 3 customers, got %d", summary.Dimensions.Customers)
	}
	if got := count(t, conn, warehouse.TableCustomer); got != 3 {
		t.Errorf("Expected 3 dim_customer rows, got %d", got)
	}
	if summary.Dimensions.Products != 2 || summary.Dimensions.Dates != 2 {
		t.Errorf("Unexpected dimension counts: %+v", summary.Dimensions)
	}
	if summary.FactRows != 4 {
		t.Errorf("Expected one fact per staged row, got %d", summary.FactRows)
	}
}

func TestPipelineRerun(t *testing.T) {
	_, conn := testutil.SetupTestDB(t, "rerun")

	cfg := datagen.TransactionConfig{
		Rows:      250,
		Customers: 40,
		Seed:      7,
		Start:     time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	csvPath := filepath.Join(t.TempDir(), "generated.csv")
	if _, err := datagen.NewTransactionGenerator(cfg).WriteFile(csvPath); err != nil {
		t.Fatalf("Failed to generate CSV: %v", err)
	}

	first, err := runPipeline(t, conn, csvPath)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	firstCounts, err := warehouse.TableCounts(context.Background(), conn)
	if err != nil {
		t.Fatalf("TableCounts failed: %v", err)
	}

	second, err := runPipeline(t, conn, csvPath)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	secondCounts, err := warehouse.TableCounts(context.Background(), conn)
	if err != nil {
		t.Fatalf("TableCounts failed: %v", err)
	}

	if first.PreviousRun != "" {
		t.Errorf("First run should not replace a run, got %q", first.PreviousRun)
	}
	if second.PreviousRun != "test-run" {
		t.Errorf("Expected second run to replace %q, got %q", "test-run", second.PreviousRun)
	}

	if first.FactRows != 250 || second.FactRows != 250 {
		t.Errorf("Expected 250 facts on both runs, got %d and %d", first.FactRows, second.FactRows)
	}
	for i := range firstCounts {
		if firstCounts[i] != secondCounts[i] {
			t.Errorf("%s changed between runs: %d -> %d",
				firstCounts[i].Name, firstCounts[i].Rows, secondCounts[i].Rows)
		}
	}

	// Surrogate keys restart with the fresh tables
	var minKey int64
	err = conn.QueryRow(context.Background(), `SELECT MIN(sales_key) FROM fact_sales`).Scan(&minKey)
	if err != nil {
		t.Fatalf("Failed to read sales_key: %v", err)
	}
	if minKey != 1 {
		t.Errorf("Expected sales_key to restart at 1, got %d", minKey)
	}

	meta, err := db.GetAllMetadata(context.Background(), conn)
	if err != nil {
		t.Fatalf("GetAllMetadata failed: %v", err)
	}
	if meta["fact_rows"] != "250" || meta["run_id"] != "test-run" || meta["csv_path"] != csvPath {
		t.Errorf("Unexpected metadata: %v", meta)
	}

	runID, err := db.GetMetadataValue(context.Background(), conn, db.KeyRunID)
	if err != nil {
		t.Fatalf("GetMetadataValue failed: %v", err)
	}
	if runID != "test-run" {
		t.Errorf("Expected run_id %q, got %q", "test-run", runID)
	}
}

func TestPipelineNonNumericAge(t *testing.T) {
	_, conn := testutil.SetupTestDB(t, "badage")

	csvPath := testutil.WriteCSV(t,
		"1,2023-01-01,CUST001,Male,34,Beauty,1,50,50",
		"2,2023-01-02,CUST002,Female,forty,Clothing,1,25,25",
	)

	_, err := runPipeline(t, conn, csvPath)
	if err == nil {
		t.Fatal("Expected run to fail on non-numeric Age")
	}

	var perr *source.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ParseError, got %v", err)
	}
	if perr.Line != 3 || perr.Column != source.ColAge {
		t.Errorf("Unexpected error location: line %d column %q", perr.Line, perr.Column)
	}

	// Schema committed, staging rolled back, later stages never ran
	if got := count(t, conn, warehouse.TableStaging); got != 0 {
		t.Errorf("Expected empty staging table, got %d rows", got)
	}
	if got := count(t, conn, warehouse.TableFact); got != 0 {
		t.Errorf("Expected empty fact table, got %d rows", got)
	}
}

func TestPipelineBadDate(t *testing.T) {
	_, conn := testutil.SetupTestDB(t, "baddate")

	csvPath := testutil.WriteCSV(t,
		"1,24/11/2023,CUST001,Male,34,Beauty,1,50,50",
	)

	_, err := runPipeline(t, conn, csvPath)

	var perr *source.ParseError
	if !errors.As(err, &perr) || perr.Column != source.ColDate {
		t.Fatalf("Expected Date ParseError, got %v", err)
	}
}

func TestPipelineMissingFile(t *testing.T) {
	_, conn := testutil.SetupTestDB(t, "missing")

	_, err := runPipeline(t, conn, filepath.Join(t.TempDir(), "absent.csv"))
	if err == nil {
		t.Fatal("Expected error for missing CSV")
	}
}
