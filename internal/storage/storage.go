// Package storage provides the keyed document store the engine persists
// profiles, plans, sequence states, and analytics records through.
//
// Three implementations share one contract: an in-memory store for tests and
// single-run orchestration, a JSON file store, and a Postgres-backed store.
// Rate-limit counters need TTL semantics and live in internal/ratelimit on
// Redis instead.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for keys that do not exist. Absence is a
// routine outcome, not an exception: callers branch on errors.Is.
var ErrNotFound = errors.New("storage: key not found")

// Store is a keyed JSON document store.
type Store interface {
	// Get unmarshals the document at key into out.
	Get(ctx context.Context, key string, out any) error
	// Set marshals val and writes it at key, replacing any prior document.
	Set(ctx context.Context, key string, val any) error
	// Delete removes the document at key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error
	// Keys lists all keys with the given prefix, in unspecified order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
