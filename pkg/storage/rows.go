package storage

import (
	"fmt"
	"slices"

	"github.com/rhuss/bote/pkg/value"
)

// Rows is an in-memory value.Cursor over a fixed result set.
type Rows struct {
	columns []string
	rows    [][]any
	pos     int
	closed  bool
}

var _ value.Cursor = (*Rows)(nil)

// NewRows creates a cursor over rows. Each row must have one value per
// column; a short or long row is reported by Values.
func NewRows(columns []string, rows [][]any) *Rows {
	return &Rows{columns: slices.Clone(columns), rows: rows, pos: -1}
}

// UserRows returns a cursor over users in UserColumns order.
func UserRows(users []User) *Rows {
	rows := make([][]any, len(users))
	for i, u := range users {
		rows[i] = []any{u.ID, u.Username, u.Password}
	}
	return NewRows(UserColumns, rows)
}

// Next advances to the next row.
func (r *Rows) Next() bool {
	if r.closed || r.pos+1 >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

// Columns returns the column names.
func (r *Rows) Columns() []string { return r.columns }

// Values returns the current row.
func (r *Rows) Values() ([]any, error) {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return nil, fmt.Errorf("no current row")
	}
	row := r.rows[r.pos]
	if len(row) != len(r.columns) {
		return nil, fmt.Errorf("row %d has %d values for %d columns", r.pos, len(row), len(r.columns))
	}
	return slices.Clone(row), nil
}

// Err always returns nil.
func (r *Rows) Err() error { return nil }

// Close ends iteration.
func (r *Rows) Close() { r.closed = true }

// Closed reports whether Close was called.
func (r *Rows) Closed() bool { return r.closed }
