//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package source decodes the retail transactions CSV into typed rows.
package source

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the only accepted format for the Date column.
const DateLayout = "2006-01-02"

// AmountScale is the number of decimal places kept for money columns.
const AmountScale = 2

// Header names of the input file.
const (
	ColTransactionID   = "Transaction ID"
	ColDate            = "Date"
	ColCustomerID      = "Customer ID"
	ColGender          = "Gender"
	ColAge             = "Age"
	ColProductCategory = "Product Category"
	ColQuantity        = "Quantity"
	ColPricePerUnit    = "Price per Unit"
	ColTotalAmount     = "Total Amount"
)

// Columns lists the header names in dataset order.
var Columns = []string{
	ColTransactionID,
	ColDate,
	ColCustomerID,
	ColGender,
	ColAge,
	ColProductCategory,
	ColQuantity,
	ColPricePerUnit,
	ColTotalAmount,
}

// Date is a calendar day without time of day or zone.
type Date struct {
	time.Time
}

// NewDate returns the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses s as YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.Format(DateLayout)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Transaction is one row of the input file.
type Transaction struct {
	TransactionID   string          `csv:"Transaction ID" validate:"required"`
	Date            Date            `csv:"Date"`
	CustomerID      string          `csv:"Customer ID" validate:"required"`
	Gender          string          `csv:"Gender"`
	Age             int             `csv:"Age" validate:"gte=0"`
	ProductCategory string          `csv:"Product Category" validate:"required"`
	Quantity        int             `csv:"Quantity" validate:"gte=0"`
	PricePerUnit    decimal.Decimal `csv:"Price per Unit"`
	TotalAmount     decimal.Decimal `csv:"Total Amount"`
}

// ParseError reports a value that could not be converted or validated.
type ParseError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: column %q: invalid value %q: %v",
		e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MissingColumnsError is returned when the header lacks required columns.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %q", e.Columns)
}
