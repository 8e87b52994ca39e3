// file: internal/database/pebble_store.go
// version: 2.0.0
// guid: 0c1d2e3f-4a5b-6c7d-8e9f-0a1b2c3d4e5f

package database

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"
)

// PebbleStore implements Store on PebbleDB.
//
// Key Schema:
// - state:<logical key> -> JSON document for one state structure
type PebbleStore struct {
	db *pebble.DB
}

const (
	pebbleKeyPrefix = "state:"
	// ';' sorts directly after ':' and bounds the prefix scan.
	pebbleKeyUpper = "state;"
)

// NewPebbleStore opens or creates a PebbleDB store at path.
func NewPebbleStore(path string) (*PebbleStore, error) {
	return openPebble(path, &pebble.Options{FormatMajorVersion: pebble.FormatNewest})
}

// NewInMemoryPebbleStore opens a PebbleDB store on an in-memory filesystem.
func NewInMemoryPebbleStore() (*PebbleStore, error) {
	return openPebble("", &pebble.Options{FS: vfs.NewMem(), FormatMajorVersion: pebble.FormatNewest})
}

func openPebble(path string, opts *pebble.Options) (*PebbleStore, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func pebbleKey(key string) []byte {
	return []byte(pebbleKeyPrefix + key)
}

// Get returns a copy of the value stored under key.
func (p *PebbleStore) Get(key string) ([]byte, error) {
	value, closer, err := p.db.Get(pebbleKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get %s: %w", key, err)
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set writes value under key with a synced write.
func (p *PebbleStore) Set(key string, value []byte) error {
	if err := p.db.Set(pebbleKey(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (p *PebbleStore) Delete(key string) error {
	if err := p.db.Delete(pebbleKey(key), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete %s: %w", key, err)
	}
	return nil
}

// Keys lists the stored logical keys.
func (p *PebbleStore) Keys() ([]string, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(pebbleKeyPrefix),
		UpperBound: []byte(pebbleKeyUpper),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()[len(pebbleKeyPrefix):]))
	}
	return keys, iter.Error()
}

// Clear deletes every state key in a single synced batch.
func (p *PebbleStore) Clear() error {
	keys, err := p.Keys()
	if err != nil {
		return fmt.Errorf("pebble clear: %w", err)
	}
	batch := p.db.NewBatch()
	defer batch.Close()
	for _, k := range keys {
		if err := batch.Delete(pebbleKey(k), nil); err != nil {
			return fmt.Errorf("pebble clear %s: %w", k, err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("pebble clear commit: %w", err)
	}
	return nil
}

// Close closes the database
func (p *PebbleStore) Close() error {
	return p.db.Close()
}
