// Package storage is the Postgres persistence layer: users, orders and
// their attachments, behind a thin sqlx repository.
package storage

import (
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store bundles the repositories over a shared connection pool.
type Store struct {
	db *sqlx.DB
}

// New wraps an established connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}
