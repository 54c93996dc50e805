//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse builds and loads the retail sales star schema.
package warehouse

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-retail-etl/internal/db"
	"github.com/pgEdge/pgedge-retail-etl/internal/logging"
)

// Table names.
const (
	TableStaging  = "stg_retail_transactions"
	TableCustomer = "dim_customer"
	TableProduct  = "dim_product"
	TableDate     = "dim_date"
	TableFact     = "fact_sales"
)

// Tables lists the schema tables in creation order.
var Tables = []string{TableStaging, TableCustomer, TableProduct, TableDate, TableFact}

// dropOrder drops the fact before the dimensions it references.
var dropOrder = []string{TableFact, TableDate, TableProduct, TableCustomer, TableStaging}

// Schema SQL for creating the star schema.
var createSchemaSQL = []string{
	// Staging
	`CREATE TABLE stg_retail_transactions (
    transaction_id   VARCHAR(50),
    transaction_date DATE,
    customer_id      VARCHAR(50),
    gender           VARCHAR(10),
    age              INTEGER,
    product_category VARCHAR(50),
    quantity         INTEGER,
    price_per_unit   NUMERIC(10,2),
    total_amount     NUMERIC(10,2)
)`,

	// Customer Dimension
	`CREATE TABLE dim_customer (
    customer_key BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    customer_id  VARCHAR(50),
    gender       VARCHAR(10),
    age          INTEGER
)`,

	// Product Dimension
	`CREATE TABLE dim_product (
    product_key      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    product_category VARCHAR(50)
)`,

	// Date Dimension
	`CREATE TABLE dim_date (
    date_key  BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    full_date DATE,
    year      INTEGER,
    month     INTEGER,
    day       INTEGER
)`,

	// Sales Fact
	`CREATE TABLE fact_sales (
    sales_key      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    date_key       BIGINT,
    customer_key   BIGINT,
    product_key    BIGINT,
    quantity       INTEGER,
    price_per_unit NUMERIC(10,2),
    total_amount   NUMERIC(10,2),
    CONSTRAINT fk_date FOREIGN KEY (date_key) REFERENCES dim_date (date_key),
    CONSTRAINT fk_customer FOREIGN KEY (customer_key) REFERENCES dim_customer (customer_key),
    CONSTRAINT fk_product FOREIGN KEY (product_key) REFERENCES dim_product (product_key)
)`,
}

// DropSchema drops the star schema tables one at a time. A failed drop is
// logged and skipped so that a partially created schema can still be reset.
func DropSchema(ctx context.Context, conn db.DB) {
	for _, table := range dropOrder {
		_, err := conn.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table))
		if err != nil {
			logging.Debug().
				Err(err).
				Str("table", table).
				Msg("Ignoring drop failure")
			continue
		}
		logging.Debug().Str("table", table).Msg("Dropped table")
	}
}

// CreateSchema creates the star schema in a single transaction and commits.
func CreateSchema(ctx context.Context, conn db.DB) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range createSchemaSQL {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table %s: %w", Tables[i], err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

// ResetSchema drops and recreates the star schema.
func ResetSchema(ctx context.Context, conn db.DB) error {
	DropSchema(ctx, conn)
	return CreateSchema(ctx, conn)
}
