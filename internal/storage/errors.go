package storage

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConfiguration is returned when the store cannot be set up as
	// configured: an unknown mode, a live mode without a usable database or an
	// unreadable snapshot. It is the one storage error callers must not
	// swallow.
	ErrConfiguration = errors.New("invalid store configuration")

	// ErrStoreWrite wraps every failed upsert.
	ErrStoreWrite = errors.New("store write failed")
)
