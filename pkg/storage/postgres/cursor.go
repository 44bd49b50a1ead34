package postgres

import (
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rhuss/bote/pkg/value"
)

// Cursor adapts pgx.Rows to value.Cursor. Values decoded by pgx into types
// that have no natural mapping (timestamps, UUIDs, numerics, networks) are
// converted to text or numbers.
type Cursor struct {
	rows    pgx.Rows
	columns []string
}

var _ value.Cursor = (*Cursor)(nil)

// NewCursor wraps rows.
func NewCursor(rows pgx.Rows) *Cursor {
	return &Cursor{rows: rows}
}

// Next advances to the next row.
func (c *Cursor) Next() bool {
	return c.rows.Next()
}

// Columns returns the column names from the row description.
func (c *Cursor) Columns() []string {
	if c.columns == nil {
		fields := c.rows.FieldDescriptions()
		if len(fields) == 0 {
			return nil
		}
		c.columns = make([]string, len(fields))
		for i, f := range fields {
			c.columns[i] = f.Name
		}
	}
	return c.columns
}

// Values returns the current row with driver types converted.
func (c *Cursor) Values() ([]any, error) {
	vals, err := c.rows.Values()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		vals[i] = convert(v)
	}
	return vals, nil
}

// Err returns the error that ended iteration, if any.
func (c *Cursor) Err() error {
	return c.rows.Err()
}

// Close releases the rows and their connection.
func (c *Cursor) Close() {
	c.rows.Close()
}

func convert(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case netip.Prefix:
		return x.String()
	case []any:
		for i := range x {
			x[i] = convert(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = convert(x[k])
		}
		return x
	}
	return v
}
