package sstable

import (
	"os"
	"sort"

	"github.com/pragmatic-zac/sprucedb/internal/entry"
	"github.com/pragmatic-zac/sprucedb/internal/errs"
)

// Reader is a read-only, immutable-after-open handle on a finalized
// SSTable. Opening it parses the header and footer and materializes
// the sparse index into memory so point lookups avoid re-parsing it.
type Reader struct {
	file      *os.File
	path      string
	header    header
	footer    footer
	index     []indexEntry
	dataStart int64
	dataEnd   int64
}

// Open parses path's header and footer, verifying magic and CRCs, and
// loads its sparse index (if any) into memory.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.IO, err, "open sstable")
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errs.Wrap(errs.IO, err, "stat sstable")
	}
	size := stat.Size()
	if size < int64(headerLen+footerLen) {
		f.Close()
		return nil, errs.New(errs.Format, "sstable file too small")
	}

	headerBuf := make([]byte, headerLen)
	if _, err := f.ReadAt(headerBuf, 0); err != nil {
		f.Close()
		return nil, errs.Wrap(errs.IO, err, "read sstable header")
	}
	h, err := decodeHeader(headerBuf)
	if err != nil {
		f.Close()
		return nil, err
	}

	footerBuf := make([]byte, footerLen)
	if _, err := f.ReadAt(footerBuf, size-int64(footerLen)); err != nil {
		f.Close()
		return nil, errs.Wrap(errs.IO, err, "read sstable footer")
	}
	ft, err := decodeFooter(footerBuf)
	if err != nil {
		f.Close()
		return nil, err
	}

	dataStart := int64(headerLen)
	dataEnd := dataStart + int64(h.dataSize)

	var idx []indexEntry
	if ft.indexOffset > 0 {
		indexEnd := size - int64(footerLen)
		indexBuf := make([]byte, indexEnd-int64(ft.indexOffset))
		if _, err := f.ReadAt(indexBuf, int64(ft.indexOffset)); err != nil {
			f.Close()
			return nil, errs.Wrap(errs.IO, err, "read sstable index")
		}
		idx, err = decodeIndex(indexBuf)
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	return &Reader{
		file:      f,
		path:      path,
		header:    h,
		footer:    ft,
		index:     idx,
		dataStart: dataStart,
		dataEnd:   dataEnd,
	}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	if err != nil {
		return errs.Wrap(errs.IO, err, "close sstable")
	}
	return nil
}

// EntryCount returns the number of entries recorded in the header.
func (r *Reader) EntryCount() uint32 { return r.header.entryCount }

// Get performs a point lookup, binary-searching the sparse index for
// the largest indexed key <= target, then sequentially scanning the
// data region from that offset until key == target (found), key >
// target (not found), or the data region ends. Any bounds or decode
// failure during the scan ends it with not-found.
func (r *Reader) Get(key string) (entry.Entry, bool, error) {
	if r.file == nil {
		return entry.Entry{}, false, errs.New(errs.State, "get on closed sstable reader")
	}

	start := r.dataStart
	if len(r.index) > 0 {
		i := sort.Search(len(r.index), func(i int) bool { return r.index[i].key > key })
		if i > 0 {
			start = int64(r.index[i-1].offset)
		} else {
			// Target precedes the first indexed key; absent unless it
			// equals the first indexed key itself, in which case i==1
			// above already selected it. Nothing before the first
			// index entry can match.
			return entry.Entry{}, false, nil
		}
	}

	buf := make([]byte, r.dataEnd-start)
	if len(buf) == 0 {
		return entry.Entry{}, false, nil
	}
	if _, err := r.file.ReadAt(buf, start); err != nil {
		return entry.Entry{}, false, errs.Wrap(errs.IO, err, "read sstable data region")
	}

	pos := 0
	for pos < len(buf) {
		e, n, err := decodeDataRecord(buf[pos:])
		if err != nil {
			return entry.Entry{}, false, nil
		}
		if e.Key == key {
			return e, true, nil
		}
		if e.Key > key {
			return entry.Entry{}, false, nil
		}
		pos += n
	}
	return entry.Entry{}, false, nil
}
