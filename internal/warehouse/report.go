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

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-retail-etl/internal/db"
)

// SalesRow is one aggregated line of a sales report.
type SalesRow struct {
	Label        string
	Transactions int64
	Quantity     int64
	Revenue      decimal.Decimal
}

// Report groups the three standard sales breakdowns.
type Report struct {
	ByMonth    []SalesRow
	ByCategory []SalesRow
	ByGender   []SalesRow
}

// Sales by month, most recent first
const salesByMonthSQL = `
SELECT to_char(make_date(d.year, d.month, 1), 'YYYY-MM') AS label,
       COUNT(*) AS transaction_count,
       COALESCE(SUM(f.quantity), 0) AS total_quantity,
       COALESCE(SUM(f.total_amount), 0) AS total_sales
FROM fact_sales f
JOIN dim_date d ON f.date_key = d.date_key
GROUP BY d.year, d.month
ORDER BY d.year DESC, d.month DESC
LIMIT $1`

// Sales by product category
const salesByCategorySQL = `
SELECT p.product_category AS label,
       COUNT(*) AS transaction_count,
       COALESCE(SUM(f.quantity), 0) AS total_quantity,
       COALESCE(SUM(f.total_amount), 0) AS total_sales
FROM fact_sales f
JOIN dim_product p ON f.product_key = p.product_key
GROUP BY p.product_category
ORDER BY total_sales DESC, label
LIMIT $1`

// Sales by customer gender
const salesByGenderSQL = `
SELECT COALESCE(NULLIF(c.gender, ''), 'Unknown') AS label,
       COUNT(*) AS transaction_count,
       COALESCE(SUM(f.quantity), 0) AS total_quantity,
       COALESCE(SUM(f.total_amount), 0) AS total_sales
FROM fact_sales f
JOIN dim_customer c ON f.customer_key = c.customer_key
GROUP BY 1
ORDER BY total_sales DESC, label
LIMIT $1`

// BuildReport runs the sales breakdowns, each capped at limit rows.
func BuildReport(ctx context.Context, conn db.DB, limit int) (*Report, error) {
	if limit < 1 {
		return nil, fmt.Errorf("report limit must be at least 1")
	}

	byMonth, err := salesBy(ctx, conn, salesByMonthSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales by month: %w", err)
	}
	byCategory, err := salesBy(ctx, conn, salesByCategorySQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales by category: %w", err)
	}
	byGender, err := salesBy(ctx, conn, salesByGenderSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales by gender: %w", err)
	}

	return &Report{
		ByMonth:    byMonth,
		ByCategory: byCategory,
		ByGender:   byGender,
	}, nil
}

func salesBy(ctx context.Context, conn db.DB, sql string, limit int) ([]SalesRow, error) {
	rows, err := conn.Query(ctx, sql, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SalesRow
	for rows.Next() {
		var r SalesRow
		if err := rows.Scan(&r.Label, &r.Transactions, &r.Quantity, &r.Revenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
