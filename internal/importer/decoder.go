// Package importer decodes uploaded expense CSV files into expense records.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expense-api/internal/domain"
)

// ErrMalformed marks a stream or row that could not be decoded at all.
var ErrMalformed = errors.New("malformed csv")

// Column names recognized in the header row (case-insensitive).
const (
	colTitle         = "title"
	colAmount        = "amount"
	colCategory      = "category"
	colPaymentMethod = "paymentmethod"
	colDescription   = "description"
	colDate          = "date"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

type RowStatus int

const (
	RowAccepted RowStatus = iota
	RowSkipped
)

func (s RowStatus) String() string {
	switch s {
	case RowAccepted:
		return "accepted"
	case RowSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("RowStatus(%d)", int(s))
	}
}

// Row is the outcome of decoding one data row.
type Row struct {
	Line    int
	Status  RowStatus
	Expense domain.Expense
	Reason  string
}

// Decoder reads rows one at a time:
//
//	d := importer.NewDecoder(r, ownerID, time.Now())
//	for d.Next() {
//		row := d.Row()
//	}
//	if err := d.Err(); err != nil { ... }
type Decoder struct {
	cr      *csv.Reader
	ownerID string
	now     time.Time
	columns map[string]int
	line    int
	row     Row
	err     error
}

// NewDecoder returns a decoder that assigns every row to ownerID and uses now
// for rows without a date.
func NewDecoder(r io.Reader, ownerID string, now time.Time) *Decoder {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &Decoder{cr: cr, ownerID: ownerID, now: now}
}

// Next advances to the next data row. It returns false at end of input or on
// the first decode error; Err distinguishes the two.
func (d *Decoder) Next() bool {
	if d.err != nil {
		return false
	}

	if d.columns == nil {
		if !d.readHeader() {
			return false
		}
	}

	record, err := d.cr.Read()
	if err == io.EOF {
		return false
	}
	d.line++
	if err != nil {
		d.err = fmt.Errorf("%w: line %d: %v", ErrMalformed, d.line, err)
		return false
	}

	row, err := d.decode(record)
	if err != nil {
		d.err = err
		return false
	}
	d.row = row
	return true
}

func (d *Decoder) Row() Row {
	return d.row
}

func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) readHeader() bool {
	record, err := d.cr.Read()
	if err == io.EOF {
		return false
	}
	d.line++
	if err != nil {
		d.err = fmt.Errorf("%w: header: %v", ErrMalformed, err)
		return false
	}

	d.columns = make(map[string]int, len(record))
	for i, name := range record {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := d.columns[key]; !dup {
			d.columns[key] = i
		}
	}
	return true
}

func (d *Decoder) field(record []string, column string) string {
	i, ok := d.columns[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (d *Decoder) decode(record []string) (Row, error) {
	row := Row{Line: d.line}

	amount, err := decimal.NewFromString(d.field(record, colAmount))
	if err != nil {
		row.Status = RowSkipped
		row.Reason = fmt.Sprintf("amount %q is not a number", d.field(record, colAmount))
		return row, nil
	}

	date := d.now
	if raw := d.field(record, colDate); raw != "" {
		date, err = ParseDate(raw)
		if err != nil {
			return Row{}, fmt.Errorf("%w: line %d: %v", ErrMalformed, d.line, err)
		}
	}

	title := d.field(record, colTitle)
	if title == "" {
		title = domain.DefaultExpenseTitle
	}
	category := d.field(record, colCategory)
	if category == "" {
		category = domain.DefaultImportCategory
	}
	method := domain.PaymentMethod(strings.ToLower(d.field(record, colPaymentMethod)))
	if method == "" {
		method = domain.DefaultImportPayMethod
	}

	row.Status = RowAccepted
	row.Expense = domain.Expense{
		UserID:        d.ownerID,
		Title:         title,
		Amount:        amount.InexactFloat64(),
		Category:      category,
		PaymentMethod: method,
		Description:   d.field(record, colDescription),
		Date:          date.UTC(),
	}
	return row, nil
}

// ParseDate accepts RFC 3339 timestamps, ISO dates and US-style dates.
func ParseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q", raw)
}
