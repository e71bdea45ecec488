// Package credstore persists the access/refresh credential pair so a session
// survives process restarts.
//
// Tokens are opaque blobs; no backend validates their structure. Every Set
// and Clear is visible to the next Get with no buffering.
package credstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// Well-known storage keys.
const (
	AccessKey  = "access_token"
	RefreshKey = "refresh_token"
)

// ErrNotFound is returned by Get when no pair is stored.
var ErrNotFound = errors.New("credentials not found")

// Pair is the current access and refresh credential.
type Pair struct {
	Access  string
	Refresh string
}

// Complete reports whether both halves are present. A partial pair cannot be
// told apart from corruption and is never treated as a session.
func (p Pair) Complete() bool {
	return p.Access != "" && p.Refresh != ""
}

// Store holds at most one pair.
type Store interface {
	// Get returns the stored pair, or ErrNotFound.
	Get(ctx context.Context) (Pair, error)

	// Set replaces the stored pair.
	Set(ctx context.Context, pair Pair) error

	// Clear removes the stored pair. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	// Backend is one of the Backend* names. Empty means file.
	Backend string

	// Dir is the directory holding file-based stores.
	Dir string

	// SQLitePath overrides the sqlite database path. Defaults to Dir/credentials.db.
	SQLitePath string

	// Redis configures the redis backend.
	Redis RedisOptions
}

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Open builds the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(filepath.Join(opts.Dir, TokenFile)), nil
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.Dir, "credentials.db")
		}
		return OpenSQLite(path)
	case BackendRedis:
		return OpenRedis(ctx, opts.Redis)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown credential store backend: %s", opts.Backend)
	}
}
