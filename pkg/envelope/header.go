package envelope

import (
	"slices"
)

// Header names computed by envelopes. Names are case-sensitive.
const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderAllowOrigin   = "Access-Control-Allow-Origin"
)

// Field is one header line.
type Field struct {
	Name  string
	Value string
}

// Header is the immutable, ordered header set of a finalized envelope.
type Header struct {
	fields []Field
}

// buildHeader lays out the computed fields in order, replaces their values
// with user headers of the same name, and appends the remaining user
// headers sorted by name.
func buildHeader(computed []Field, user map[string]string) Header {
	fields := make([]Field, 0, len(computed)+len(user))
	seen := make(map[string]bool, len(computed))
	for _, f := range computed {
		if v, ok := user[f.Name]; ok {
			f.Value = v
		}
		seen[f.Name] = true
		fields = append(fields, f)
	}

	extra := make([]string, 0, len(user))
	for name := range user {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	for _, name := range extra {
		fields = append(fields, Field{Name: name, Value: user[name]})
	}
	return Header{fields: fields}
}

// Get returns the value of the named header.
func (h Header) Get(name string) (string, bool) {
	for _, f := range h.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Len returns the number of header fields.
func (h Header) Len() int { return len(h.fields) }

// Fields returns a copy of the header fields in wire order.
func (h Header) Fields() []Field {
	return slices.Clone(h.fields)
}

// Pairs encodes the header as (name, value) byte pairs, the form carried by
// a response start message.
func (h Header) Pairs() [][2][]byte {
	pairs := make([][2][]byte, len(h.fields))
	for i, f := range h.fields {
		pairs[i] = [2][]byte{[]byte(f.Name), []byte(f.Value)}
	}
	return pairs
}
