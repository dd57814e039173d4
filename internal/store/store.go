// Package store implements the shared result record: a flat key-value
// record asynchronously readable and writable by the probe, the relay and
// the panel, with change notification after every successful write.
package store

import (
	"context"
	"errors"

	"ecosense-relay/internal/record"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Listener receives the set of top-level keys whose values changed.
type Listener func(changed []string)

// Store is the shared record contract. Set applies whole-key replacement:
// a key present in the patch replaces that key's entire value (nil clears
// it), keys absent from the patch are untouched. There are no transactions;
// concurrent writers are applied in arrival order, last write wins per key.
type Store interface {
	// Get returns the current values for the requested keys. Unset keys are
	// omitted from the result. With no keys it returns the full record.
	Get(ctx context.Context, keys ...string) (map[string]any, error)

	// Set applies the patch and notifies subscribers of the changed keys.
	Set(ctx context.Context, patch record.Patch) error

	// Subscribe registers a listener invoked after every Set that changed at
	// least one key. The returned function removes the listener.
	Subscribe(l Listener) (unsubscribe func())
}

// Snapshot reads the full record as a typed Record.
func Snapshot(ctx context.Context, s Store) (record.Record, error) {
	values, err := s.Get(ctx)
	if err != nil {
		return record.Record{}, err
	}
	return record.FromMap(values)
}
