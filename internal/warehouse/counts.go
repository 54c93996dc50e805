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

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-retail-etl/internal/db"
)

// TableCount is the row count of one schema table.
type TableCount struct {
	Name   string
	Exists bool
	Rows   int64
}

// TableCounts returns the row count of every schema table. Missing tables
// are reported with Exists false.
func TableCounts(ctx context.Context, conn db.DB) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(Tables))
	for _, table := range Tables {
		var exists bool
		err := conn.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check table %s: %w", table, err)
		}

		tc := TableCount{Name: table, Exists: exists}
		if exists {
			err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&tc.Rows)
			if err != nil {
				return nil, fmt.Errorf("failed to count %s: %w", table, err)
			}
		}
		counts = append(counts, tc)
	}
	return counts, nil
}

// RowCount returns the number of rows in a single schema table.
func RowCount(ctx context.Context, conn db.DB, table string) (int64, error) {
	var n int64
	err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
