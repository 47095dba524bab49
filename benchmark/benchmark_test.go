package benchmark

import (
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/pragmatic-zac/sprucedb/pkg/sprucedb"
)

// setupDB creates a temporary database for benchmarking.
func setupDB(b *testing.B, flushThreshold int) *sprucedb.DB {
	dir := filepath.Join(b.TempDir(), "bench-db")
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := sprucedb.Open(sprucedb.Config{
		BasePath:               dir,
		MemtableFlushThreshold: flushThreshold,
		Logger:                 logger,
	})
	if err != nil {
		b.Fatalf("failed to open db: %v", err)
	}
	return db
}

// BenchmarkPut measures the performance of Put operations.
func BenchmarkPut(b *testing.B) {
	db := setupDB(b, 1000)
	defer db.Close()

	keys := make([]string, b.N)
	values := make([][]byte, b.N)
	for i := 0; i < b.N; i++ {
		keys[i] = fmt.Sprintf("key-%d", i)
		values[i] = []byte(fmt.Sprintf("value-%d", i))
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if err := db.Put(keys[i], values[i]); err != nil {
			b.Fatalf("put failed: %v", err)
		}
	}
}

// BenchmarkGet measures Get performance against the memtable.
func BenchmarkGet(b *testing.B) {
	db := setupDB(b, 2000)
	defer db.Close()

	const numKeys = 1000
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("key-%d", i)
		value := []byte(fmt.Sprintf("value-%d", i))
		if err := db.Put(key, value); err != nil {
			b.Fatalf("put failed: %v", err)
		}
	}

	keys := make([]string, b.N)
	for i := 0; i < b.N; i++ {
		keys[i] = fmt.Sprintf("key-%d", i%numKeys)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, _, err := db.Get(keys[i]); err != nil {
			b.Fatalf("get failed: %v", err)
		}
	}
}

// BenchmarkGetFromSSTable measures Get performance once data has been
// flushed out of the memtable into SSTables on disk.
func BenchmarkGetFromSSTable(b *testing.B) {
	db := setupDB(b, 500)
	defer db.Close()

	const numKeys = 10000
	const valueSize = 100

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("key-%08d", i)
		value := make([]byte, valueSize)
		for j := range value {
			value[j] = byte(i + j)
		}
		if err := db.Put(key, value); err != nil {
			b.Fatalf("put failed: %v", err)
		}
	}

	keys := make([]string, b.N)
	for i := 0; i < b.N; i++ {
		keys[i] = fmt.Sprintf("key-%08d", i%numKeys)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, _, err := db.Get(keys[i]); err != nil {
			b.Fatalf("get failed: %v", err)
		}
	}
}

// BenchmarkPutGet measures mixed Put/Get operations.
func BenchmarkPutGet(b *testing.B) {
	db := setupDB(b, 1000)
	defer db.Close()

	keys := make([]string, b.N)
	values := make([][]byte, b.N)
	for i := 0; i < b.N; i++ {
		keys[i] = fmt.Sprintf("key-%d", i)
		values[i] = []byte(fmt.Sprintf("value-%d", i))
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if err := db.Put(keys[i], values[i]); err != nil {
			b.Fatalf("put failed: %v", err)
		}
		if _, _, err := db.Get(keys[i]); err != nil {
			b.Fatalf("get failed: %v", err)
		}
	}
}

// BenchmarkSequentialWrite measures sequential write throughput.
func BenchmarkSequentialWrite(b *testing.B) {
	db := setupDB(b, 1000)
	defer db.Close()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("key-%010d", i)
		value := []byte(fmt.Sprintf("value-%010d", i))
		if err := db.Put(key, value); err != nil {
			b.Fatalf("put failed: %v", err)
		}
	}
}

// BenchmarkDelete measures tombstone write throughput.
func BenchmarkDelete(b *testing.B) {
	db := setupDB(b, 1000)
	defer db.Close()

	keys := make([]string, b.N)
	for i := 0; i < b.N; i++ {
		keys[i] = fmt.Sprintf("key-%d", i)
		if err := db.Put(keys[i], []byte("v")); err != nil {
			b.Fatalf("put failed: %v", err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if err := db.Delete(keys[i]); err != nil {
			b.Fatalf("delete failed: %v", err)
		}
	}
}
