// file: internal/database/store.go
// version: 2.0.0
// guid: 3c4d5e6f-7a8b-9c0d-1e2f-3a4b5c6d7e8f

// Package database provides the durable key/value store that backs the
// application state. Values are opaque bytes; callers own the encoding.
package database

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has never been written or was
// cleared.
var ErrNotFound = errors.New("key not found")

// ErrSQLiteDisabled is returned when the sqlite backend is requested without
// the explicit opt-in flag.
var ErrSQLiteDisabled = errors.New("SQLite3 is not enabled. To use SQLite3, you must explicitly enable it with --enable-sqlite3-i-know-the-risks or set 'enable_sqlite3_i_know_the_risks: true' in your config file. PebbleDB is the recommended database for production use")

// Store is a durable key/value store. Writes are synchronous: when Set
// returns nil the value survives a restart.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	// Keys lists every stored key in ascending order.
	Keys() ([]string, error)
	// Clear removes every key.
	Clear() error
	Close() error
}

// Open opens the store selected by dbType ("pebble" or "sqlite").
func Open(dbType, path string, enableSQLite bool) (Store, error) {
	switch dbType {
	case "sqlite", "sqlite3":
		if !enableSQLite {
			return nil, ErrSQLiteDisabled
		}
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return store, nil
	case "pebble", "":
		store, err := NewPebbleStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PebbleDB store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: pebble, sqlite)", dbType)
	}
}
