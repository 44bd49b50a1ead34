package value

import "fmt"

// Cursor is a forward-only result set, such as rows returned by a database
// query. Normalize drains it into a sequence of mappings (one per row, keyed
// by column name) and closes it.
type Cursor interface {
	// Next advances to the next row and reports whether one is available.
	Next() bool

	// Columns returns the column names of the result set.
	Columns() []string

	// Values returns the values of the current row, in column order.
	Values() ([]any, error)

	// Err returns the error, if any, that ended iteration.
	Err() error

	// Close releases the cursor. It is safe to call more than once.
	Close()
}

func (n *normalizer) normalizeCursor(c Cursor) (Value, error) {
	defer c.Close()

	var rows []Value
	for c.Next() {
		// Columns is read per row: some drivers only describe the result
		// set once the first row has been fetched.
		columns := c.Columns()
		values, err := c.Values()
		if err != nil {
			return Value{}, fmt.Errorf("reading row %d: %w", len(rows), err)
		}
		if len(values) != len(columns) {
			return Value{}, fmt.Errorf("row %d has %d values for %d columns", len(rows), len(values), len(columns))
		}
		row := NewMap()
		for i, column := range columns {
			item, err := n.normalize(values[i])
			if err != nil {
				return Value{}, fmt.Errorf("column %q: %w", column, err)
			}
			row.Set(column, item)
		}
		rows = append(rows, Mapping(row))
	}
	if err := c.Err(); err != nil {
		return Value{}, fmt.Errorf("iterating cursor: %w", err)
	}
	return Sequence(rows), nil
}
