package wal

import (
	"io"
	"os"

	"github.com/pragmatic-zac/sprucedb/internal/entry"
	"github.com/pragmatic-zac/sprucedb/internal/errs"
	"github.com/sirupsen/logrus"
)

// Writer owns exactly one WAL segment file and appends CRC-framed
// records to it. Every Write fsyncs before returning: the coordinator
// must append to WAL and fsync before mutating the memtable, so write
// ordering relative to the memtable is strict.
type Writer struct {
	dir     string
	counter int
	file    *os.File
	path    string
	logger  *logrus.Entry
}

// OpenSegment creates a new WAL segment under dir named
// current.wal.<UTC timestamp>.<counter> and returns a Writer for it.
func OpenSegment(dir string, counter int, logger *logrus.Entry) (*Writer, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	path := segmentPath(dir, counter)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errs.Wrap(errs.IO, err, "open wal segment")
	}
	return &Writer{dir: dir, counter: counter, file: f, path: path, logger: logger.WithField("segment", path)}, nil
}

// Path returns the path of the segment currently being written.
func (w *Writer) Path() string { return w.path }

// Write appends e as a single framed record, flushing and fsyncing
// before returning the byte offset the record was written at.
func (w *Writer) Write(e entry.Entry) (int64, error) {
	if w.file == nil {
		return 0, errs.New(errs.State, "write on closed wal segment")
	}

	buf, err := encodeRecord(e)
	if err != nil {
		return 0, err
	}

	offset, err := w.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errs.Wrap(errs.IO, err, "seek wal segment")
	}

	if _, err := w.file.Write(buf); err != nil {
		return 0, errs.Wrap(errs.IO, err, "write wal record")
	}
	if err := w.file.Sync(); err != nil {
		return 0, errs.Wrap(errs.IO, err, "fsync wal segment")
	}

	return offset, nil
}

// Rotate writes a terminal FLUSH marker referencing sstableID at seq,
// fsyncs, closes the current segment, and opens a fresh one with an
// incremented counter. It returns the path of the segment that was
// rotated out.
func (w *Writer) Rotate(sstableID string, seq uint64) (string, error) {
	flushEntry := entry.MakeFlush(sstableID, seq)
	if _, err := w.Write(flushEntry); err != nil {
		return "", err
	}

	oldPath := w.path
	if err := w.file.Close(); err != nil {
		return "", errs.Wrap(errs.IO, err, "close rotated wal segment")
	}

	w.counter++
	newPath := segmentPath(w.dir, w.counter)
	f, err := os.OpenFile(newPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return "", errs.Wrap(errs.IO, err, "open new wal segment")
	}

	w.file = f
	w.path = newPath
	w.logger = w.logger.WithField("segment", newPath)
	w.logger.WithField("rotated_from", oldPath).Info("wal segment rotated")

	return oldPath, nil
}

// Sync flushes any pending buffers and fsyncs the current segment.
func (w *Writer) Sync() error {
	if w.file == nil {
		return errs.New(errs.State, "sync on closed wal segment")
	}
	if err := w.file.Sync(); err != nil {
		return errs.Wrap(errs.IO, err, "fsync wal segment")
	}
	return nil
}

// Close fsyncs and closes the current segment file.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	w.file = nil
	if syncErr != nil {
		return errs.Wrap(errs.IO, syncErr, "fsync wal segment on close")
	}
	if closeErr != nil {
		return errs.Wrap(errs.IO, closeErr, "close wal segment")
	}
	return nil
}
