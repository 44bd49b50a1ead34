package storage

import (
	"context"

	"github.com/rhuss/bote/pkg/value"
)

// UserColumns are the columns every user source returns, in order.
var UserColumns = []string{"id", "username", "password"}

// User is a row of the users table.
type User struct {
	ID       int64
	Username string
	Password string
}

// UserStore serves the users table as cursors.
type UserStore interface {
	// ListUsers returns all users ordered by ID.
	ListUsers(ctx context.Context) (value.Cursor, error)

	// FindUser returns a cursor holding the user with the given ID, or no
	// rows if there is none.
	FindUser(ctx context.Context, id int64) (value.Cursor, error)

	// Ping checks that the source is reachable.
	Ping(ctx context.Context) error

	// Close releases the source.
	Close()
}
