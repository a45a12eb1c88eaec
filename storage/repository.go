// Package storage provides the key-value abstraction the session layer persists into.
package storage

import "errors"

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("record not found")

// BatchTx provides Put and Delete within an atomic transaction.
type BatchTx interface {
	Put(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// Repository defines the interface for durable key-value storage.
type Repository interface {
	Get(key string) ([]byte, error)
	// Batch executes fn atomically. If fn returns an error no write made
	// through tx is visible to later readers.
	Batch(fn func(tx BatchTx) error) error
}
