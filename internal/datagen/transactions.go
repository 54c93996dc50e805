//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-retail-etl/internal/logging"
	"github.com/pgEdge/pgedge-retail-etl/internal/source"
)

// Reference data, matching the public retail sales dataset.
var categories = []string{"Clothing", "Electronics", "Beauty"}
var categoryWeights = []int{351, 342, 307}
var unitPrices = []int64{25, 30, 50, 300, 500}

const (
	minAge      = 18
	maxAge      = 64
	maxQuantity = 4
)

// TransactionConfig controls synthetic transaction generation.
type TransactionConfig struct {
	// Rows is the number of transactions to write.
	Rows int

	// Customers is the size of the customer pool. Zero gives every
	// transaction a customer of its own.
	Customers int

	// Seed makes the output reproducible (0 = random).
	Seed uint64

	// Start and End bound the transaction dates (inclusive).
	Start time.Time
	End   time.Time

	// ProgressInterval is how often to log progress (in rows).
	ProgressInterval int64
}

type customer struct {
	id     string
	gender string
	age    int
}

// TransactionGenerator produces retail transactions in the input CSV format.
type TransactionGenerator struct {
	faker     *Faker
	cfg       TransactionConfig
	customers []customer
}

// NewTransactionGenerator creates a generator for the given configuration.
func NewTransactionGenerator(cfg TransactionConfig) *TransactionGenerator {
	f := NewFaker()
	if cfg.Seed != 0 {
		f = NewFakerWithSeed(cfg.Seed)
	}

	g := &TransactionGenerator{faker: f, cfg: cfg}
	for i := 1; i <= cfg.Customers; i++ {
		g.customers = append(g.customers, g.newCustomer(i))
	}
	return g
}

func (g *TransactionGenerator) newCustomer(n int) customer {
	return customer{
		id:     fmt.Sprintf("CUST%03d", n),
		gender: g.faker.Gender(),
		age:    g.faker.Int(minAge, maxAge),
	}
}

// Transaction returns the n-th transaction (1-based).
func (g *TransactionGenerator) Transaction(n int) source.Transaction {
	var c customer
	if len(g.customers) > 0 {
		c = Choose(g.faker, g.customers)
	} else {
		c = g.newCustomer(n)
	}

	quantity := g.faker.Int(1, maxQuantity)
	price := decimal.NewFromInt(Choose(g.faker, unitPrices))
	day := g.faker.Day(g.cfg.Start, g.cfg.End)

	return source.Transaction{
		TransactionID:   strconv.Itoa(n),
		Date:            source.NewDate(day.Year(), day.Month(), day.Day()),
		CustomerID:      c.id,
		Gender:          c.gender,
		Age:             c.age,
		ProductCategory: ChooseWeighted(g.faker, categories, categoryWeights),
		Quantity:        quantity,
		PricePerUnit:    price,
		TotalAmount:     price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Write encodes cfg.Rows transactions with a header row to w.
func (g *TransactionGenerator) Write(w io.Writer, name string) (int64, error) {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	progress := NewProgressReporter(name, int64(g.cfg.Rows), g.cfg.ProgressInterval)
	for n := 1; n <= g.cfg.Rows; n++ {
		if err := enc.Encode(g.Transaction(n)); err != nil {
			return progress.Rows(), fmt.Errorf("failed to encode transaction %d: %w", n, err)
		}
		progress.Update(1)
	}

	// An empty file still gets its header.
	if g.cfg.Rows == 0 {
		if err := enc.EncodeHeader(source.Transaction{}); err != nil {
			return 0, fmt.Errorf("failed to encode header: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return progress.Rows(), fmt.Errorf("failed to write CSV: %w", err)
	}
	progress.Done()
	return progress.Rows(), nil
}

// WriteFile writes the generated transactions to path, creating parent
// directories as needed.
func (g *TransactionGenerator) WriteFile(path string) (int64, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	rows, err := g.Write(f, filepath.Base(path))
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, cerr)
	}
	if err != nil {
		return rows, err
	}

	if info, err := os.Stat(path); err == nil {
		logging.Info().
			Str("path", path).
			Int64("rows", rows).
			Str("size", FormatSize(info.Size())).
			Msg("Wrote transactions")
	}
	return rows, nil
}
