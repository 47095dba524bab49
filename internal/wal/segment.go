package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pragmatic-zac/sprucedb/internal/errs"
)

const segmentPrefix = "current.wal."

// timestampLayout formats a WAL segment's embedded timestamp as
// YYYYMMDDHHMMSS in UTC.
const timestampLayout = "20060102150405"

// segmentPath composes dir/current.wal.<timestamp>.<counter>.
func segmentPath(dir string, counter int) string {
	ts := time.Now().UTC().Format(timestampLayout)
	return filepath.Join(dir, fmt.Sprintf("%s%s.%d", segmentPrefix, ts, counter))
}

// parseSegmentName extracts the embedded timestamp and counter from a
// WAL segment filename, for sorting and for picking the next counter.
func parseSegmentName(name string) (ts string, counter int, ok bool) {
	if !strings.HasPrefix(name, segmentPrefix) {
		return "", 0, false
	}
	rest := strings.TrimPrefix(name, segmentPrefix)
	parts := strings.Split(rest, ".")
	if len(parts) != 2 {
		return "", 0, false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, false
	}
	return parts[0], n, true
}

// DiscoverSegments lists WAL segments under dir, sorted by embedded
// timestamp ascending, which is the replay order.
func DiscoverSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.IO, err, "read wal directory")
	}

	type seg struct {
		path    string
		ts      string
		counter int
	}
	var segs []seg
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		ts, counter, ok := parseSegmentName(de.Name())
		if !ok {
			continue
		}
		segs = append(segs, seg{path: filepath.Join(dir, de.Name()), ts: ts, counter: counter})
	}

	sort.Slice(segs, func(i, j int) bool {
		if segs[i].ts != segs[j].ts {
			return segs[i].ts < segs[j].ts
		}
		return segs[i].counter < segs[j].counter
	})

	paths := make([]string, len(segs))
	for i, s := range segs {
		paths[i] = s.path
	}
	return paths, nil
}

// NextCounter returns the counter to use for the first segment opened
// in a fresh process: one past the highest counter discovered on disk,
// or 0 if no segments exist yet.
func NextCounter(dir string) (int, error) {
	paths, err := DiscoverSegments(dir)
	if err != nil {
		return 0, err
	}
	if len(paths) == 0 {
		return 0, nil
	}
	_, counter, ok := parseSegmentName(filepath.Base(paths[len(paths)-1]))
	if !ok {
		return 0, nil
	}
	return counter + 1, nil
}
