// Package lsm wires the memtable, WAL, and SSTable layers into the
// single-writer coordinator: sequence allocation, flush policy,
// read-path merge across memtable and SSTables newest-to-oldest, and
// crash recovery by WAL replay.
package lsm

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/pragmatic-zac/sprucedb/internal/compaction"
	"github.com/pragmatic-zac/sprucedb/internal/entry"
	"github.com/pragmatic-zac/sprucedb/internal/errs"
	"github.com/pragmatic-zac/sprucedb/internal/eventbus"
	"github.com/pragmatic-zac/sprucedb/internal/memtable"
	"github.com/pragmatic-zac/sprucedb/internal/sstable"
	"github.com/pragmatic-zac/sprucedb/internal/wal"
)

const (
	sstablesDirName = "sstables"
	walDirName      = "wal"
	manifestDirName = "manifest"

	sstableBaseName = "sprucedb"
)

// Options configures a Coordinator at Open.
type Options struct {
	BasePath               string
	MemtableFlushThreshold int
	SSTableIndexInterval   int
	Compactor              compaction.Compactor
	Logger                 *logrus.Logger
	Events                 *eventbus.Bus
}

// Coordinator is the engine's single-writer entry point: it owns the
// current memtable and WAL and is not safe for concurrent use — the
// engine is single-threaded by design.
type Coordinator struct {
	basePath    string
	sstableDir  string
	walDir      string
	flushAt     int
	indexIntvl  int
	compactor   compaction.Compactor
	logger      *logrus.Entry
	events      *eventbus.Bus

	mt       *memtable.Memtable
	walW     *wal.Writer
	reg      *registry
	seq      uint64
	closed   bool
}

// Open prepares the directory layout, replays any unflushed WAL
// segments into a fresh memtable, and opens a new WAL segment to
// receive writes.
func Open(opts Options) (*Coordinator, error) {
	if opts.BasePath == "" {
		return nil, errs.New(errs.Validation, "lsm: base path is required")
	}
	if opts.MemtableFlushThreshold <= 0 {
		opts.MemtableFlushThreshold = 1000
	}
	if opts.Compactor == nil {
		opts.Compactor = compaction.NoopCompactor{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Events == nil {
		opts.Events = eventbus.New()
	}

	sstableDir := filepath.Join(opts.BasePath, sstablesDirName)
	walDir := filepath.Join(opts.BasePath, walDirName)
	manifestDir := filepath.Join(opts.BasePath, manifestDirName)

	for _, dir := range []string{opts.BasePath, sstableDir, walDir, manifestDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.Wrap(errs.IO, err, "create sprucedb directory layout")
		}
	}

	logger := opts.Logger.WithField("component", "lsm")

	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}

	mt := memtable.New()
	maxSeq, err := recover_(walDir, mt, logger)
	if err != nil {
		return nil, err
	}

	counter, err := wal.NextCounter(walDir)
	if err != nil {
		return nil, err
	}
	walW, err := wal.OpenSegment(walDir, counter, logger)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		basePath:   opts.BasePath,
		sstableDir: sstableDir,
		walDir:     walDir,
		flushAt:    opts.MemtableFlushThreshold,
		indexIntvl: opts.SSTableIndexInterval,
		compactor:  opts.Compactor,
		logger:     logger,
		events:     opts.Events,
		mt:         mt,
		walW:       walW,
		reg:        reg,
		seq:        maxSeq,
	}

	logger.WithField("recovered_seq", maxSeq).Info("sprucedb opened")
	c.events.Publish(eventbus.Event{Kind: eventbus.Recovered, Sequence: maxSeq})

	return c, nil
}

// recover_ discovers WAL segments in chronological order and replays
// every non-FLUSH-terminated one into mt, returning the highest
// sequence observed across all segments (including FLUSH markers).
func recover_(walDir string, mt *memtable.Memtable, logger *logrus.Entry) (uint64, error) {
	segments, err := wal.DiscoverSegments(walDir)
	if err != nil {
		return 0, err
	}

	var maxSeq uint64
	for _, path := range segments {
		result, err := wal.ScanSegment(path, logger)
		if err != nil {
			return 0, err
		}

		endsWithFlush := len(result.Entries) > 0 && result.Entries[len(result.Entries)-1].Kind == entry.Flush

		for _, e := range result.Entries {
			if e.Sequence > maxSeq {
				maxSeq = e.Sequence
			}
			if e.Kind == entry.Flush {
				continue
			}
			if !endsWithFlush {
				mt.Insert(e)
			}
		}
	}

	return maxSeq, nil
}

// Put allocates a sequence number, appends a PUT record to the WAL
// (fsyncing before returning), and inserts it into the memtable. A
// flush runs synchronously if the memtable has reached its threshold.
func (c *Coordinator) Put(key string, value []byte) error {
	if c.closed {
		return errs.New(errs.State, "lsm: put on closed coordinator")
	}

	c.seq++
	e, err := entry.MakePut(key, c.seq, value, 0)
	if err != nil {
		return err
	}

	if _, err := c.walW.Write(e); err != nil {
		return err
	}
	c.mt.Insert(e)

	c.events.Publish(eventbus.Event{Kind: eventbus.PutApplied, Key: key, Sequence: e.Sequence})

	if c.mt.Len() >= c.flushAt {
		return c.flush()
	}
	return nil
}

// Delete writes a tombstone for key, following the same durability
// and flush-threshold rules as Put.
func (c *Coordinator) Delete(key string) error {
	if c.closed {
		return errs.New(errs.State, "lsm: delete on closed coordinator")
	}

	c.seq++
	e, err := entry.MakeDelete(key, c.seq, 0)
	if err != nil {
		return err
	}

	if _, err := c.walW.Write(e); err != nil {
		return err
	}
	c.mt.Insert(e)

	c.events.Publish(eventbus.Event{Kind: eventbus.DeleteApplied, Key: key, Sequence: e.Sequence})

	if c.mt.Len() >= c.flushAt {
		return c.flush()
	}
	return nil
}

// Get looks up key in the memtable first, then in each SSTable newest
// to oldest. A tombstone at any layer short-circuits to not-found.
func (c *Coordinator) Get(key string) ([]byte, bool, error) {
	if c.closed {
		return nil, false, errs.New(errs.State, "lsm: get on closed coordinator")
	}

	if e, ok := c.mt.Search(key); ok {
		if e.IsTombstone() {
			return nil, false, nil
		}
		return e.Value, true, nil
	}

	paths, err := sstable.DiscoverNewestFirst(c.sstableDir)
	if err != nil {
		return nil, false, err
	}

	for _, path := range paths {
		r, err := c.reg.get(path)
		if err != nil {
			c.logger.WithError(err).WithField("sstable", path).Warn("failed to open sstable during get")
			continue
		}
		e, ok, err := r.Get(key)
		if err != nil {
			c.logger.WithError(err).WithField("sstable", path).Warn("sstable read error during get")
			continue
		}
		if ok {
			if e.IsTombstone() {
				return nil, false, nil
			}
			return e.Value, true, nil
		}
	}

	return nil, false, nil
}

// flush drains the current memtable into a new SSTable, rotates the
// WAL with a FLUSH marker, and replaces the memtable with an empty
// one. If SSTable finalize fails the WAL is not rotated; the partial
// file is discarded.
func (c *Coordinator) flush() error {
	correlationID := eventbus.NewCorrelationID()
	c.events.Publish(eventbus.Event{Kind: eventbus.FlushStarted, CorrelationID: correlationID, Count: c.mt.Len()})

	w, err := sstable.NewWriter(c.sstableDir, sstableBaseName, 0, c.indexIntvl, c.logger)
	if err != nil {
		return err
	}

	it := c.mt.NewIterator()
	for it.Valid() {
		if err := w.AddEntry(it.Entry()); err != nil {
			w.Discard()
			return err
		}
		it.Next()
	}

	sstableID := w.ID()
	if err := w.Finalize(); err != nil {
		w.Discard()
		return err
	}
	c.reg.invalidate(w.Path())

	c.seq++
	if _, err := c.walW.Rotate(sstableID, c.seq); err != nil {
		return err
	}

	c.mt = memtable.New()

	c.logger.WithField("sstable_id", sstableID).Info("memtable flushed")
	c.events.Publish(eventbus.Event{Kind: eventbus.FlushCompleted, CorrelationID: correlationID, SSTableID: sstableID})

	removed, err := c.compactor.MaybeCompact(c.sstableDir, countFiles(c.sstableDir, c.logger))
	if err != nil {
		c.logger.WithError(err).Warn("compaction failed")
	}
	for _, path := range removed {
		c.reg.invalidate(path)
	}

	return nil
}

func countFiles(dir string, logger *logrus.Entry) int {
	paths, err := sstable.DiscoverNewestFirst(dir)
	if err != nil {
		logger.WithError(err).Warn("failed to enumerate sstables")
		return 0
	}
	return len(paths)
}

// Close fsyncs and closes the current WAL segment and every cached
// SSTable reader. The memtable is not flushed to disk; recovery on
// next open relies on WAL replay.
func (c *Coordinator) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	c.reg.closeAll()
	return c.walW.Close()
}
