// Package value defines the closed set of wire-safe shapes a response body
// can carry and the normalizer that produces them.
//
// A [Value] is one of Null, Bool, Int, Float, Text, Bytes, Mapping or
// Sequence. Mappings are insertion ordered ([Map]) with unique string keys.
// [Normalize] converts arbitrary application values (structs, slices, maps,
// sets, database cursors) into a Value, or fails with
// *api.UnsupportedTypeError naming the offending type.
//
// Normalization is idempotent: normalizing a Value returns it unchanged.
package value
