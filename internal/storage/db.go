// Package storage provides database abstractions.
package storage

import "errors"

// ErrNotFound is returned by Get when the key does not exist. Callers use
// errors.Is to distinguish genuine absence from an I/O or corruption error,
// which must never be treated as absence.
var ErrNotFound = errors.New("key not found")

// DB is the interface for key-value storage.
type DB interface {
	// Get retrieves a value by key. Returns ErrNotFound if the key does
	// not exist; any other error is a real storage failure.
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Batch stages a group of mutations for a single atomic commit. Nothing
// staged in a Batch is visible to Get/Has/ForEach until Commit succeeds.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
}

// Batcher is implemented by a DB that can produce Batches. BadgerDB and
// MemoryDB both implement it (MemoryDB stages but cannot roll back a partial
// commit, since Go maps have no transaction primitive); DB itself does not
// require it, so callers that need batching type assert for Batcher rather
// than assuming every DB supports it.
type Batcher interface {
	NewBatch() Batch
}
