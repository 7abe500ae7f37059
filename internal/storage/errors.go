package storage

import "errors"

// Storage errors shared by all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a load would insert two rows with
	// the same key (e.g. a repeated trader identifier).
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails, including
	// NOT NULL, foreign key and type violations reported by the store.
	ErrInvalidInput = errors.New("invalid input")
)
