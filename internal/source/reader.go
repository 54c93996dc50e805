//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jszwec/csvutil"
	"github.com/shopspring/decimal"
)

// ErrEmptyInput is returned when the file has no header row.
var ErrEmptyInput = errors.New("input has no header row")

const byteOrderMark = "\ufeff"

// record is the raw string form of a row before conversion.
type record struct {
	TransactionID   string `csv:"Transaction ID"`
	Date            string `csv:"Date"`
	CustomerID      string `csv:"Customer ID"`
	Gender          string `csv:"Gender"`
	Age             string `csv:"Age"`
	ProductCategory string `csv:"Product Category"`
	Quantity        string `csv:"Quantity"`
	PricePerUnit    string `csv:"Price per Unit"`
	TotalAmount     string `csv:"Total Amount"`
}

// Reader decodes transactions one at a time.
type Reader struct {
	csv      *csv.Reader
	dec      *csvutil.Decoder
	validate *validator.Validate
	closer   io.Closer
	line     int
	rows     int64
}

// Open opens the CSV file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// NewReader reads the header from r and checks that every required column
// is present. Column order does not matter.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, err
	}

	header = normalizeHeader(header)
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	dec, err := csvutil.NewDecoder(cr, header...)
	if err != nil {
		return nil, err
	}

	return &Reader{
		csv:      cr,
		dec:      dec,
		validate: newValidator(),
		line:     1,
	}, nil
}

// Next returns the next transaction, or io.EOF when the input is exhausted.
func (r *Reader) Next() (Transaction, error) {
	var rec record
	if err := r.dec.Decode(&rec); err != nil {
		if err == io.EOF {
			return Transaction{}, io.EOF
		}
		return Transaction{}, fmt.Errorf("failed to read CSV record after line %d: %w", r.line, err)
	}
	r.line, _ = r.csv.FieldPos(0)
	r.rows++

	txn, err := rec.transaction(r.line)
	if err != nil {
		return Transaction{}, err
	}
	if err := r.check(txn); err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

// Line returns the CSV line number of the most recently decoded row.
func (r *Reader) Line() int {
	return r.line
}

// Rows returns how many data rows have been read so far.
func (r *Reader) Rows() int64 {
	return r.rows
}

// Close closes the underlying file when the reader was created by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadAll decodes every remaining row.
func (r *Reader) ReadAll() ([]Transaction, error) {
	var out []Transaction
	for {
		txn, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
}

func (r *Reader) check(txn Transaction) error {
	err := r.validate.Struct(txn)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ParseError{
			Line:   r.line,
			Column: fe.Field(),
			Value:  fmt.Sprint(fe.Value()),
			Err:    fmt.Errorf("failed %q check", fe.Tag()),
		}
	}
	return err
}

func (rec record) transaction(line int) (Transaction, error) {
	fail := func(column, value string, err error) (Transaction, error) {
		return Transaction{}, &ParseError{Line: line, Column: column, Value: value, Err: err}
	}

	date, err := ParseDate(rec.Date)
	if err != nil {
		return fail(ColDate, rec.Date, err)
	}
	age, err := parseInteger(rec.Age)
	if err != nil {
		return fail(ColAge, rec.Age, err)
	}
	quantity, err := parseInteger(rec.Quantity)
	if err != nil {
		return fail(ColQuantity, rec.Quantity, err)
	}
	price, err := parseAmount(rec.PricePerUnit)
	if err != nil {
		return fail(ColPricePerUnit, rec.PricePerUnit, err)
	}
	total, err := parseAmount(rec.TotalAmount)
	if err != nil {
		return fail(ColTotalAmount, rec.TotalAmount, err)
	}

	return Transaction{
		TransactionID:   rec.TransactionID,
		Date:            date,
		CustomerID:      rec.CustomerID,
		Gender:          rec.Gender,
		Age:             age,
		ProductCategory: rec.ProductCategory,
		Quantity:        quantity,
		PricePerUnit:    price,
		TotalAmount:     total,
	}, nil
}

// parseInteger accepts only values that fit the INTEGER staging columns.
func parseInteger(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// parseAmount accepts at most AmountScale decimal places so the value is
// stored without rounding.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.Exponent() < -AmountScale && !d.Equal(d.Truncate(AmountScale)) {
		return decimal.Decimal{}, fmt.Errorf("more than %d decimal places", AmountScale)
	}
	return d, nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, byteOrderMark)
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, c := range Columns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// newValidator reports failing fields by their CSV column name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("csv"); name != "" && name != "-" {
			return name
		}
		return fld.Name
	})
	return v
}
