package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"ecosense-relay/internal/record"
)

// PGStore persists the record in Postgres, one row per top-level key, so the
// record survives relay process recycling. Change notification is local to
// the process that performed the write.
type PGStore struct {
	DB *sql.DB

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// NewPGStore constructs a PGStore over an open connection pool.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{
		DB:        db,
		listeners: make(map[int]Listener),
	}
}

// Get returns the requested keys, or the full record when keys is empty.
func (s *PGStore) Get(ctx context.Context, keys ...string) (map[string]any, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(keys) == 0 {
		rows, err = s.DB.QueryContext(ctx, `SELECT key, value FROM result_store`)
	} else {
		rows, err = s.DB.QueryContext(ctx, `SELECT key, value FROM result_store WHERE key = ANY($1)`, keysArray(keys))
	}
	if err != nil {
		return nil, fmt.Errorf("query result store: %w", err)
	}
	defer rows.Close()

	out := make(map[string]any)
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scan result store row: %w", err)
		}
		var val any
		if err := json.Unmarshal(raw, &val); err != nil {
			return nil, fmt.Errorf("decode stored key %s: %w", key, err)
		}
		out[key] = val
	}
	return out, rows.Err()
}

// Set upserts the patch's keys in one transaction and notifies local
// subscribers of the keys whose values changed.
func (s *PGStore) Set(ctx context.Context, patch record.Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if len(patch) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin result store tx: %w", err)
	}
	defer tx.Rollback()

	var changed []string
	for _, k := range patch.Keys() {
		val := patch[k]
		if val == nil {
			res, err := tx.ExecContext(ctx, `DELETE FROM result_store WHERE key = $1`, k)
			if err != nil {
				return fmt.Errorf("clear key %s: %w", k, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				changed = append(changed, k)
			}
			continue
		}

		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("encode key %s: %w", k, err)
		}

		var prev []byte
		err = tx.QueryRowContext(ctx, `SELECT value FROM result_store WHERE key = $1 FOR UPDATE`, k).Scan(&prev)
		switch {
		case err == sql.ErrNoRows:
			// fall through to upsert
		case err != nil:
			return fmt.Errorf("read key %s: %w", k, err)
		case bytes.Equal(prev, raw):
			continue
		}

		const upsert = `
INSERT INTO result_store (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
		if _, err := tx.ExecContext(ctx, upsert, k, raw); err != nil {
			return fmt.Errorf("upsert key %s: %w", k, err)
		}
		changed = append(changed, k)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit result store tx: %w", err)
	}

	if len(changed) == 0 {
		return nil
	}
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()
	for _, l := range listeners {
		l(append([]string(nil), changed...))
	}
	return nil
}

// Subscribe registers a change listener for writes made through this store.
func (s *PGStore) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// keysArray renders a text-array literal accepted by the pgx stdlib driver.
func keysArray(keys []string) string {
	buf := bytes.NewBufferString("{")
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(k)
	}
	buf.WriteByte('}')
	return buf.String()
}

var _ Store = (*PGStore)(nil)
