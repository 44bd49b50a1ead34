// Package storage defines the user sources served by the bote demo server
// and the helpers shared by their implementations.
//
// Sources hand out their rows as value.Cursor so that handlers can return
// query results directly; normalization turns each row into a mapping of
// column name to value and closes the cursor.
package storage
