// Package sprucedb is the public surface of the embedded key-value
// store: Open, Put, Get, Delete, Close. Everything else — the WAL,
// SSTable format, and coordinator internals — is an implementation
// detail reached only through this API.
package sprucedb

import (
	"github.com/sirupsen/logrus"

	"github.com/pragmatic-zac/sprucedb/internal/compaction"
	"github.com/pragmatic-zac/sprucedb/internal/eventbus"
	"github.com/pragmatic-zac/sprucedb/internal/lsm"
)

// Config configures a database at Open.
type Config struct {
	// BasePath is the directory the database stores its data under.
	// Defaults to "spruce_data".
	BasePath string
	// MemtableFlushThreshold is the entry count at which the memtable
	// is flushed to a new SSTable. Defaults to 1000.
	MemtableFlushThreshold int
	// SSTableIndexInterval is the sparse index sampling period.
	// Defaults to 1000.
	SSTableIndexInterval int
	// Logger receives structured logs from every layer. Defaults to a
	// logrus.Logger with default settings.
	Logger *logrus.Logger
	// Events, if set, receives lifecycle events (flush start/complete,
	// recovery, per-key apply) published by the coordinator.
	Events *eventbus.Bus
}

// DB is a handle to an open database. It is not safe for concurrent
// use — sprucedb is a single-writer, single-threaded engine.
type DB struct {
	coord *lsm.Coordinator
}

// Open prepares the on-disk layout under cfg.BasePath (creating it if
// necessary), replays any WAL segments not yet absorbed into an
// SSTable, and returns a ready-to-use handle.
func Open(cfg Config) (*DB, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "spruce_data"
	}

	coord, err := lsm.Open(lsm.Options{
		BasePath:               basePath,
		MemtableFlushThreshold: cfg.MemtableFlushThreshold,
		SSTableIndexInterval:   cfg.SSTableIndexInterval,
		Compactor:              compaction.NoopCompactor{},
		Logger:                 cfg.Logger,
		Events:                 cfg.Events,
	})
	if err != nil {
		return nil, err
	}

	return &DB{coord: coord}, nil
}

// Put writes value under key, superseding any prior value or
// tombstone for that key.
func (db *DB) Put(key string, value []byte) error {
	return db.coord.Put(key, value)
}

// Get returns the value stored for key, or ok=false if key is absent
// or was deleted.
func (db *DB) Get(key string) (value []byte, ok bool, err error) {
	return db.coord.Get(key)
}

// Delete writes a tombstone for key.
func (db *DB) Delete(key string) error {
	return db.coord.Delete(key)
}

// Close flushes the current WAL segment and releases all file
// handles. The in-memory memtable is not persisted; recovery on the
// next Open relies on WAL replay.
func (db *DB) Close() error {
	return db.coord.Close()
}
