//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline runs the retail ETL stages in order on one connection.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-retail-etl/internal/datagen"
	"github.com/pgEdge/pgedge-retail-etl/internal/db"
	"github.com/pgEdge/pgedge-retail-etl/internal/logging"
	"github.com/pgEdge/pgedge-retail-etl/internal/source"
	"github.com/pgEdge/pgedge-retail-etl/internal/warehouse"
)

// Stage names, in execution order.
const (
	StageSchema     = "schema"
	StageStaging    = "staging"
	StageDimensions = "dimensions"
	StageFacts      = "facts"
)

// Config configures a pipeline run.
type Config struct {
	// RunID identifies the run in logs and metadata.
	RunID string

	// CSVPath is the transactions file to load.
	CSVPath string

	// Batch controls the staging COPY batches.
	Batch datagen.BatchInsertConfig
}

// StageTiming records how long one stage took.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Summary describes a completed run.
type Summary struct {
	RunID       string
	PreviousRun string
	RowsStaged  int64
	Dimensions  warehouse.DimensionCounts
	FactRows    int64
	DroppedRows int64
	Stages      []StageTiming
	Duration    time.Duration
}

// Pipeline loads one CSV file into the star schema.
type Pipeline struct {
	conn db.DB
	cfg  Config
}

// New creates a pipeline that runs every statement on conn.
func New(conn db.DB, cfg Config) *Pipeline {
	return &Pipeline{conn: conn, cfg: cfg}
}

// Run resets the schema, loads staging, dimensions and facts, then records
// the run. Each stage commits before the next begins; a failure leaves the
// earlier stages committed.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: p.cfg.RunID}

	logging.Info().
		Str("csv_path", p.cfg.CSVPath).
		Msg("Starting ETL run")

	previous, err := p.previousRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read previous run: %w", err)
	}
	if previous != "" {
		summary.PreviousRun = previous
		logging.Info().
			Str("previous_run_id", previous).
			Msg("Replacing previous run")
	}

	err = p.stage(summary, StageSchema, func() error {
		return warehouse.ResetSchema(ctx, p.conn)
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(summary, StageStaging, func() error {
		src, err := source.Open(p.cfg.CSVPath)
		if err != nil {
			return err
		}
		defer src.Close()

		summary.RowsStaged, err = warehouse.LoadStaging(ctx, p.conn, src, p.cfg.Batch)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(summary, StageDimensions, func() error {
		var err error
		summary.Dimensions, err = warehouse.LoadDimensions(ctx, p.conn)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(summary, StageFacts, func() error {
		var err error
		summary.FactRows, err = warehouse.LoadFacts(ctx, p.conn)
		if err != nil {
			return err
		}
		summary.DroppedRows, err = warehouse.CountUnmatched(ctx, p.conn)
		return err
	})
	if err != nil {
		return nil, err
	}

	if summary.DroppedRows > 0 {
		logging.Warn().
			Int64("dropped_rows", summary.DroppedRows).
			Msg("Staged rows without matching dimensions were not loaded into fact_sales")
	}

	err = db.SaveRun(ctx, p.conn, db.RunRecord{
		RunID:       p.cfg.RunID,
		CSVPath:     p.cfg.CSVPath,
		CompletedAt: time.Now(),
		RowsStaged:  summary.RowsStaged,
		FactRows:    summary.FactRows,
		DroppedRows: summary.DroppedRows,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	summary.Duration = time.Since(start)

	logging.Info().
		Int64("rows_staged", summary.RowsStaged).
		Int64("customers", summary.Dimensions.Customers).
		Int64("products", summary.Dimensions.Products).
		Int64("dates", summary.Dimensions.Dates).
		Int64("fact_rows", summary.FactRows).
		Dur("duration", summary.Duration).
		Msg("ETL run complete")

	return summary, nil
}

// previousRun returns the id of the last completed run, or "" if none was
// recorded.
func (p *Pipeline) previousRun(ctx context.Context) (string, error) {
	exists, err := db.MetadataExists(ctx, p.conn)
	if err != nil || !exists {
		return "", err
	}
	runID, err := db.GetMetadataValue(ctx, p.conn, db.KeyRunID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return runID, err
}

func (p *Pipeline) stage(summary *Summary, name string, fn func() error) error {
	logging.Info().Str("stage", name).Msg("Stage started")
	start := time.Now()

	if err := fn(); err != nil {
		logging.Error().
			Err(err).
			Str("stage", name).
			Msg("Stage failed")
		return fmt.Errorf("%s stage failed: %w", name, err)
	}

	elapsed := time.Since(start)
	summary.Stages = append(summary.Stages, StageTiming{Stage: name, Duration: elapsed})
	logging.Info().
		Str("stage", name).
		Dur("duration", elapsed).
		Msg("Stage complete")
	return nil
}
