package sstable

import (
	"fmt"
	"os"
	"testing"

	"github.com/pragmatic-zac/sprucedb/internal/entry"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "sprucedb", 0, 0, nil)
	require.NoError(t, err)

	e1, _ := entry.MakePut("k1", 1, []byte("v1"), 0)
	e2, _ := entry.MakePut("k2", 2, []byte("v2"), 0)
	d3, _ := entry.MakeDelete("k3", 3, 0)

	require.NoError(t, w.AddEntry(e1))
	require.NoError(t, w.AddEntry(e2))
	require.NoError(t, w.AddEntry(d3))
	require.NoError(t, w.Finalize())

	r, err := Open(w.Path())
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, uint32(3), r.EntryCount())

	got, ok, err := r.Get("k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), got.Value)

	got, ok, err = r.Get("k3")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.IsTombstone())

	_, ok, err = r.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWriterRejectsOutOfOrderKeys(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "sprucedb", 0, 0, nil)
	require.NoError(t, err)
	defer w.Discard()

	e1, _ := entry.MakePut("k2", 1, []byte("v"), 0)
	require.NoError(t, w.AddEntry(e1))

	e2, _ := entry.MakePut("k1", 2, []byte("v"), 0)
	err = w.AddEntry(e2)
	require.Error(t, err)
}

func TestWriterRejectsDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "sprucedb", 0, 0, nil)
	require.NoError(t, err)
	defer w.Discard()

	e1, _ := entry.MakePut("k1", 1, []byte("v"), 0)
	require.NoError(t, w.AddEntry(e1))

	e2, _ := entry.MakePut("k1", 2, []byte("v2"), 0)
	err = w.AddEntry(e2)
	require.Error(t, err)
}

func TestDiscardRemovesFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "sprucedb", 0, 0, nil)
	require.NoError(t, err)

	e1, _ := entry.MakePut("k1", 1, []byte("v"), 0)
	require.NoError(t, w.AddEntry(e1))
	require.NoError(t, w.Discard())

	_, err = Open(w.Path())
	require.Error(t, err)
}

func TestFinalizeRejectsSecondCall(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "sprucedb", 0, 0, nil)
	require.NoError(t, err)

	e1, _ := entry.MakePut("k1", 1, []byte("v"), 0)
	require.NoError(t, w.AddEntry(e1))
	require.NoError(t, w.Finalize())

	require.Error(t, w.Finalize())
}

func TestSparseIndexBoundedScan(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "sprucedb", 0, 100, nil)
	require.NoError(t, err)

	const n = 100000
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key%08d", i)
		e, err := entry.MakePut(key, uint64(i+1), []byte("v"), 0)
		require.NoError(t, err)
		require.NoError(t, w.AddEntry(e))
	}
	require.NoError(t, w.Finalize())

	r, err := Open(w.Path())
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, n/100, len(r.index))

	got, ok, err := r.Get("key00054321")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(54322), got.Sequence)

	_, ok, err = r.Get("key99999999")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHeaderCRCDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "sprucedb", 0, 0, nil)
	require.NoError(t, err)

	e1, _ := entry.MakePut("k1", 1, []byte("v"), 0)
	require.NoError(t, w.AddEntry(e1))
	require.NoError(t, w.Finalize())

	path := w.Path()
	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	buf[12] ^= 0xFF // reserved header byte: only the header CRC covers it
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	_, err = Open(path)
	require.Error(t, err)
}

func TestEmptyTableGetReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "sprucedb", 0, 0, nil)
	require.NoError(t, err)
	require.NoError(t, w.Finalize())

	r, err := Open(w.Path())
	require.NoError(t, err)
	defer r.Close()

	_, ok, err := r.Get("anything")
	require.NoError(t, err)
	require.False(t, ok)
}
