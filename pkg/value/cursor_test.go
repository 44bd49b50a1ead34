package value

import (
	"errors"
	"testing"
)

// sliceCursor is a Cursor over in-memory rows.
type sliceCursor struct {
	columns []string
	rows    [][]any
	pos     int
	err     error
	closed  bool
}

func (c *sliceCursor) Next() bool {
	if c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Columns() []string      { return c.columns }
func (c *sliceCursor) Values() ([]any, error) { return c.rows[c.pos-1], nil }
func (c *sliceCursor) Err() error             { return c.err }
func (c *sliceCursor) Close()                 { c.closed = true }

func TestNormalizeCursor(t *testing.T) {
	c := &sliceCursor{
		columns: []string{"id", "username"},
		rows: [][]any{
			{int32(1), "ali"},
			{int32(2), "sara"},
		},
	}

	got, err := Normalize(c)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if !c.closed {
		t.Error("cursor was not closed")
	}
	rows := got.Items()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	name, _ := rows[1].Map().Get("username")
	if name.Text() != "sara" {
		t.Errorf("rows[1].username = %q, want %q", name.Text(), "sara")
	}
	id, _ := rows[0].Map().Get("id")
	if id.Kind() != KindInt || id.Int() != 1 {
		t.Errorf("rows[0].id = %v, want int 1", id)
	}
}

func TestNormalizeEmptyCursor(t *testing.T) {
	got, err := Normalize(&sliceCursor{columns: []string{"id"}})
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if got.Kind() != KindSequence || len(got.Items()) != 0 {
		t.Errorf("got %v, want empty sequence", got)
	}
}

func TestNormalizeCursorError(t *testing.T) {
	boom := errors.New("connection reset")
	c := &sliceCursor{columns: []string{"id"}, err: boom}

	_, err := Normalize(c)
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped %v", err, boom)
	}
	if !c.closed {
		t.Error("cursor was not closed after error")
	}
}

func TestNormalizeCursorColumnMismatch(t *testing.T) {
	c := &sliceCursor{columns: []string{"id", "name"}, rows: [][]any{{1}}}
	if _, err := Normalize(c); err == nil {
		t.Error("expected error for short row")
	}
}
