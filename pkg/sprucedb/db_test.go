package sprucedb

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func quietConfig(dir string) Config {
	logger := newSilentLogger()
	return Config{BasePath: dir, Logger: logger}
}

func TestBasicDurabilityAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(quietConfig(dir))
	require.NoError(t, err)
	require.NoError(t, db.Put("user:1", []byte("alice")))
	require.NoError(t, db.Put("user:2", []byte("bob")))
	require.NoError(t, db.Delete("user:3"))
	require.NoError(t, db.Close())

	db2, err := Open(quietConfig(dir))
	require.NoError(t, err)
	defer db2.Close()

	v, ok, err := db2.Get("user:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("alice"), v)

	v, ok, err = db2.Get("user:2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("bob"), v)

	_, ok, err = db2.Get("user:3")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOverwriteWins(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(quietConfig(dir))
	require.NoError(t, err)
	require.NoError(t, db.Put("k", []byte("v1")))
	require.NoError(t, db.Put("k", []byte("v2")))
	require.NoError(t, db.Put("k", []byte("v3")))
	require.NoError(t, db.Close())

	db2, err := Open(quietConfig(dir))
	require.NoError(t, err)
	defer db2.Close()

	v, ok, err := db2.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v3"), v)
}

func TestDeleteAfterPutSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(quietConfig(dir))
	require.NoError(t, err)
	require.NoError(t, db.Put("k", []byte("v")))
	require.NoError(t, db.Delete("k"))
	require.NoError(t, db.Close())

	db2, err := Open(quietConfig(dir))
	require.NoError(t, err)
	defer db2.Close()

	_, ok, err := db2.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFlushThenReadThroughSSTable(t *testing.T) {
	dir := t.TempDir()
	cfg := quietConfig(dir)
	cfg.MemtableFlushThreshold = 5

	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	for i := 1; i <= 7; i++ {
		key := fmt.Sprintf("k%d", i)
		require.NoError(t, db.Put(key, []byte(fmt.Sprintf("v%d", i))))
	}

	entries, err := os.ReadDir(filepath.Join(dir, "sstables"))
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	v, ok, err := db.Get("k3")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v3"), v)
}

func TestReplaySkipsFlushedSegments(t *testing.T) {
	dir := t.TempDir()
	cfg := quietConfig(dir)
	cfg.MemtableFlushThreshold = 5

	db, err := Open(cfg)
	require.NoError(t, err)

	for i := 1; i <= 7; i++ {
		key := fmt.Sprintf("k%d", i)
		require.NoError(t, db.Put(key, []byte(fmt.Sprintf("v%d", i))))
	}
	require.NoError(t, db.Close())

	db2, err := Open(cfg)
	require.NoError(t, err)
	defer db2.Close()

	for i := 1; i <= 7; i++ {
		key := fmt.Sprintf("k%d", i)
		v, ok, err := db2.Get(key)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte(fmt.Sprintf("v%d", i)), v)
	}
}

func TestCorruptionResilience(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(quietConfig(dir))
	require.NoError(t, err)
	require.NoError(t, db.Put("k1", []byte("v1")))
	require.NoError(t, db.Put("k2", []byte("v2")))
	require.NoError(t, db.Put("k3", []byte("v3")))
	require.NoError(t, db.Close())

	walDir := filepath.Join(dir, "wal")
	segEntries, err := os.ReadDir(walDir)
	require.NoError(t, err)
	require.Len(t, segEntries, 1)

	segPath := filepath.Join(walDir, segEntries[0].Name())
	data, err := os.ReadFile(segPath)
	require.NoError(t, err)

	mid := len(data) / 2
	data[mid] ^= 0xFF
	require.NoError(t, os.WriteFile(segPath, data, 0o644))

	db2, err := Open(quietConfig(dir))
	require.NoError(t, err)
	defer db2.Close()

	_, ok1, _ := db2.Get("k1")
	_, ok3, _ := db2.Get("k3")
	require.True(t, ok1 || ok3)

	require.NoError(t, db2.Put("new", []byte("data")))
	v, ok, err := db2.Get("new")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("data"), v)
}

func TestGetMissingKeyReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(quietConfig(dir))
	require.NoError(t, err)
	defer db.Close()

	_, ok, err := db.Get("nope")
	require.NoError(t, err)
	require.False(t, ok)
}
