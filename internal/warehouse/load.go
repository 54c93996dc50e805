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

	"github.com/pgEdge/pgedge-retail-etl/internal/db"
	"github.com/pgEdge/pgedge-retail-etl/internal/logging"
)

// DimensionCounts holds the rows inserted into each dimension.
type DimensionCounts struct {
	Customers int64
	Products  int64
	Dates     int64
}

const insertCustomersSQL = `
INSERT INTO dim_customer (customer_id, gender, age)
SELECT DISTINCT customer_id, gender, age
FROM stg_retail_transactions`

const insertProductsSQL = `
INSERT INTO dim_product (product_category)
SELECT DISTINCT product_category
FROM stg_retail_transactions`

const insertDatesSQL = `
INSERT INTO dim_date (full_date, year, month, day)
SELECT DISTINCT transaction_date,
       EXTRACT(YEAR FROM transaction_date)::INTEGER,
       EXTRACT(MONTH FROM transaction_date)::INTEGER,
       EXTRACT(DAY FROM transaction_date)::INTEGER
FROM stg_retail_transactions`

// Customers join on the full (customer_id, gender, age) tuple so each staged
// row matches at most one dimension row.
const insertFactsSQL = `
INSERT INTO fact_sales (date_key, customer_key, product_key, quantity, price_per_unit, total_amount)
SELECT d.date_key, c.customer_key, p.product_key, s.quantity, s.price_per_unit, s.total_amount
FROM stg_retail_transactions s
JOIN dim_customer c
  ON c.customer_id = s.customer_id
 AND c.gender IS NOT DISTINCT FROM s.gender
 AND c.age IS NOT DISTINCT FROM s.age
JOIN dim_product p ON p.product_category = s.product_category
JOIN dim_date d ON d.full_date = s.transaction_date`

const countUnmatchedSQL = `
SELECT COUNT(*)
FROM stg_retail_transactions s
WHERE NOT EXISTS (
    SELECT 1 FROM dim_customer c
    WHERE c.customer_id = s.customer_id
      AND c.gender IS NOT DISTINCT FROM s.gender
      AND c.age IS NOT DISTINCT FROM s.age
)
OR NOT EXISTS (
    SELECT 1 FROM dim_product p WHERE p.product_category = s.product_category
)
OR NOT EXISTS (
    SELECT 1 FROM dim_date d WHERE d.full_date = s.transaction_date
)`

// LoadDimensions fills the three dimensions from staging in one transaction.
func LoadDimensions(ctx context.Context, conn db.DB) (DimensionCounts, error) {
	var counts DimensionCounts

	tx, err := conn.Begin(ctx)
	if err != nil {
		return counts, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []struct {
		table string
		sql   string
		dest  *int64
	}{
		{TableCustomer, insertCustomersSQL, &counts.Customers},
		{TableProduct, insertProductsSQL, &counts.Products},
		{TableDate, insertDatesSQL, &counts.Dates},
	}

	for _, step := range steps {
		tag, err := tx.Exec(ctx, step.sql)
		if err != nil {
			return DimensionCounts{}, fmt.Errorf("failed to load %s: %w", step.table, err)
		}
		*step.dest = tag.RowsAffected()
		logging.Debug().
			Str("table", step.table).
			Int64("rows", *step.dest).
			Msg("Loaded dimension")
	}

	if err := tx.Commit(ctx); err != nil {
		return DimensionCounts{}, fmt.Errorf("failed to commit dimensions: %w", err)
	}
	return counts, nil
}

// LoadFacts fills fact_sales by joining staging to the dimensions.
func LoadFacts(ctx context.Context, conn db.DB) (int64, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, insertFactsSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", TableFact, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit facts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountUnmatched returns the number of staged rows with no matching
// customer, product or date. These rows never reach fact_sales.
func CountUnmatched(ctx context.Context, conn db.DB) (int64, error) {
	var n int64
	if err := conn.QueryRow(ctx, countUnmatchedSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unmatched rows: %w", err)
	}
	return n, nil
}
