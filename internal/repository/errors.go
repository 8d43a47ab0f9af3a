package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrStaleStatus is returned when a conditional status update finds the
	// row already moved on by another writer.
	ErrStaleStatus = errors.New("entity status changed concurrently")
)
