// ABOUTME: Key-value slot abstraction backing the CRM collections
// ABOUTME: Defines the Store interface, optional capabilities and the backend factory
package kv

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("kv: key not found")

// Store is a flat string-keyed byte store. Values are opaque to the store.
// Delete on a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Syncer is implemented by stores replicated to a remote server.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Resetter is implemented by stores that can drop every key at once.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Watcher is implemented by stores that can observe writes made by other
// processes. The channel carries changed keys and closes when ctx ends.
type Watcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendPebble = "pebble"
	BackendSQLite = "sqlite"
	BackendCharm  = "charm"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

// Backends lists every backend name.
var Backends = []string{BackendMemory, BackendFile, BackendBadger, BackendPebble, BackendSQLite, BackendCharm, BackendMongo, BackendRedis}

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Path is a file for sqlite and a directory for file, badger and pebble.
	Path string

	CharmHost     string
	CharmAutoSync bool

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	RedisURL    string
	RedisPrefix string

	Logger *zap.Logger
}

// Open creates the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("backend", opts.Backend))

	var (
		store Store
		err   error
	)
	switch opts.Backend {
	case BackendMemory:
		store = NewMemoryStore()
	case BackendFile:
		store, err = NewFileStore(opts.Path, logger)
	case BackendBadger:
		store, err = NewBadgerStore(opts.Path, logger)
	case BackendPebble:
		store, err = NewPebbleStore(opts.Path)
	case BackendSQLite, "":
		store, err = NewSQLiteStore(opts.Path)
	case BackendCharm:
		store, err = NewCharmStore(opts.CharmHost, opts.CharmAutoSync)
	case BackendMongo:
		store, err = NewMongoStore(ctx, opts.MongoURI, opts.MongoDatabase, opts.MongoCollection)
	case BackendRedis:
		store, err = NewRedisStore(ctx, opts.RedisURL, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (valid: %v)", opts.Backend, Backends)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", opts.Backend, err)
	}

	logger.Debug("storage opened", zap.String("path", filepath.Clean(opts.Path)))
	return store, nil
}
