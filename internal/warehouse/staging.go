//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-retail-etl/internal/datagen"
	"github.com/pgEdge/pgedge-retail-etl/internal/db"
	"github.com/pgEdge/pgedge-retail-etl/internal/source"
)

// stagingColumns are the staging columns in COPY order.
var stagingColumns = []string{
	"transaction_id",
	"transaction_date",
	"customer_id",
	"gender",
	"age",
	"product_category",
	"quantity",
	"price_per_unit",
	"total_amount",
}

// TransactionSource yields decoded transactions until io.EOF.
type TransactionSource interface {
	Next() (source.Transaction, error)
}

// LoadStaging copies every transaction from src into the staging table in
// one transaction. Nothing is committed if any row fails to decode.
func LoadStaging(ctx context.Context, conn db.DB, src TransactionSource, cfg datagen.BatchInsertConfig) (int64, error) {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = datagen.DefaultBatchConfig().BatchSize
	}
	if cfg.ProgressInterval < 1 {
		cfg.ProgressInterval = datagen.DefaultBatchConfig().ProgressInterval
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	progress := datagen.NewProgressReporter(TableStaging, 0, cfg.ProgressInterval)
	batch := make([][]any, 0, cfg.BatchSize)
	var total int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{TableStaging}, stagingColumns, pgx.CopyFromRows(batch))
		if err != nil {
			return fmt.Errorf("failed to copy rows into %s: %w", TableStaging, err)
		}
		total += n
		progress.Update(n)
		batch = batch[:0]
		return nil
	}

	for {
		txn, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		batch = append(batch, stagingRow(txn))
		if len(batch) >= cfg.BatchSize {
			if err := flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := flush(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit staging load: %w", err)
	}
	progress.Done()

	return total, nil
}

func stagingRow(t source.Transaction) []any {
	return []any{
		t.TransactionID,
		t.Date.Time,
		t.CustomerID,
		t.Gender,
		int32(t.Age),
		t.ProductCategory,
		int32(t.Quantity),
		numeric(t.PricePerUnit),
		numeric(t.TotalAmount),
	}
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}
