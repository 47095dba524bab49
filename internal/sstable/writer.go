package sstable

import (
	"hash/crc32"
	"os"
	"time"

	"github.com/pragmatic-zac/sprucedb/internal/entry"
	"github.com/pragmatic-zac/sprucedb/internal/errs"
	"github.com/sirupsen/logrus"
)

// Writer streams a memtable's ordered entries into a new, immutable
// SSTable file. It enforces strict ascending key order and rejects
// duplicates, and builds a sparse index as it goes.
//
// Callers must end every writer's life with exactly one of Finalize or
// Discard: Finalize on success, Discard if any error escaped the
// scope. Leaving a Writer unresolved leaks a placeholder file.
type Writer struct {
	file          *os.File
	path          string
	featureFlags  uint32
	indexInterval int
	logger        *logrus.Entry
	createdAt     int64

	lastKey   string
	hasLast   bool
	count     uint32
	dataPos   int64
	dataCRC   uint32
	index     []indexEntry
	finalized bool
	discarded bool
}

// NewWriter composes a path under dir from base plus a UTC timestamp,
// opens it, and reserves space for a placeholder header. featureFlags
// is recorded verbatim (reserved for future on-disk compression).
// indexInterval <= 0 defaults to 1,000.
func NewWriter(dir, base string, featureFlags uint32, indexInterval int, logger *logrus.Entry) (*Writer, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	if indexInterval <= 0 {
		indexInterval = defaultIndexInterval
	}

	path := filePath(dir, base)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errs.Wrap(errs.IO, err, "open sstable file")
	}

	placeholder := encodeHeader(header{version: currentVersion, featureFlags: featureFlags})
	if _, err := f.Write(placeholder); err != nil {
		f.Close()
		os.Remove(path)
		return nil, errs.Wrap(errs.IO, err, "write sstable placeholder header")
	}

	return &Writer{
		file:          f,
		path:          path,
		featureFlags:  featureFlags,
		indexInterval: indexInterval,
		logger:        logger.WithField("sstable", path),
		createdAt:     time.Now().UTC().Unix(),
		dataPos:       int64(headerLen),
	}, nil
}

// Path returns the final path of the SSTable being written.
func (w *Writer) Path() string { return w.path }

// ID returns the SSTable identifier recorded in WAL FLUSH markers.
func (w *Writer) ID() string { return IDFromPath(w.path) }

// AddEntry appends e to the data region. Keys must be strictly
// ascending; an equal or lesser key is rejected. Every indexInterval-th
// entry (counting from zero) is sampled into the sparse index at its
// pre-write file offset.
func (w *Writer) AddEntry(e entry.Entry) error {
	if w.finalized || w.discarded {
		return errs.New(errs.State, "add_entry on finalized or discarded sstable writer")
	}
	if w.hasLast && e.Key <= w.lastKey {
		return errs.Newf(errs.Validation, "sstable writer received out-of-order or duplicate key %q after %q", e.Key, w.lastKey)
	}

	if int(w.count)%w.indexInterval == 0 {
		w.index = append(w.index, indexEntry{key: e.Key, offset: uint64(w.dataPos)})
	}

	buf := encodeDataRecord(e)
	if _, err := w.file.Write(buf); err != nil {
		return errs.Wrap(errs.IO, err, "write sstable data record")
	}

	w.dataCRC = crc32.Update(w.dataCRC, crc32.IEEETable, buf)
	w.dataPos += int64(len(buf))
	w.count++
	w.lastKey = e.Key
	w.hasLast = true

	return nil
}

// Finalize writes the sparse index and footer, rewrites the header
// with real counts and CRC, fsyncs, and closes the file. It consumes
// the writer: subsequent calls fail.
func (w *Writer) Finalize() error {
	if w.finalized || w.discarded {
		return errs.New(errs.State, "finalize on already-resolved sstable writer")
	}

	indexOffset := uint64(w.dataPos)
	indexBuf := encodeIndex(w.index)
	if _, err := w.file.Write(indexBuf); err != nil {
		return errs.Wrap(errs.IO, err, "write sstable index")
	}

	footerBuf := encodeFooter(footer{dataCRC: w.dataCRC, indexOffset: indexOffset})
	if _, err := w.file.Write(footerBuf); err != nil {
		return errs.Wrap(errs.IO, err, "write sstable footer")
	}

	headerBuf := encodeHeader(header{
		version:      currentVersion,
		featureFlags: w.featureFlags,
		timestamp:    w.createdAt,
		entryCount:   w.count,
		dataSize:     uint64(w.dataPos) - uint64(headerLen),
	})
	if _, err := w.file.WriteAt(headerBuf, 0); err != nil {
		return errs.Wrap(errs.IO, err, "rewrite sstable header")
	}

	if err := w.file.Sync(); err != nil {
		return errs.Wrap(errs.IO, err, "fsync sstable")
	}
	if err := w.file.Close(); err != nil {
		return errs.Wrap(errs.IO, err, "close sstable")
	}

	w.finalized = true
	w.logger.WithField("entries", w.count).Info("sstable finalized")
	return nil
}

// Discard closes and unlinks the partially written file. Safe to call
// after Finalize has already failed; a no-op if already resolved.
func (w *Writer) Discard() error {
	if w.finalized || w.discarded {
		return nil
	}
	w.discarded = true
	w.file.Close()
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.IO, err, "discard sstable file")
	}
	w.logger.Info("sstable discarded")
	return nil
}
