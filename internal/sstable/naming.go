package sstable

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pragmatic-zac/sprucedb/internal/errs"
)

// timestampLayout formats an SSTable's embedded timestamp as
// YYYYMMDDHHMMSS in UTC, matching the WAL segment naming scheme.
const timestampLayout = "20060102150405"

// filePath composes dir/<base>.<UTC timestamp>, the naming scheme
// under which SSTables sort lexicographically in timestamp order.
func filePath(dir, base string) string {
	ts := time.Now().UTC().Format(timestampLayout)
	return filepath.Join(dir, fmt.Sprintf("%s.%s", base, ts))
}

// DiscoverNewestFirst lists SSTable files under dir, sorted by their
// embedded timestamp suffix descending — the order the coordinator's
// read path consults them in.
func DiscoverNewestFirst(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.IO, err, "read sstable directory")
	}

	var names []string
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		names = append(names, de.Name())
	}

	sort.Slice(names, func(i, j int) bool { return names[i] > names[j] })

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

// IDFromPath returns the SSTable identifier (its base filename) for
// path, as recorded in a WAL FLUSH marker.
func IDFromPath(path string) string {
	return filepath.Base(path)
}
