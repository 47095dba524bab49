package memtable

import "github.com/pragmatic-zac/sprucedb/internal/entry"

// Memtable is the ordered, in-memory map the LSM coordinator mutates on
// every Put/Delete and drains on every flush. Size accounting is by
// entry count, which is sufficient for the flush threshold the
// coordinator applies.
type Memtable struct {
	sl *SkipList
}

// New creates a fresh, empty memtable.
func New() *Memtable {
	return &Memtable{sl: NewSkipList()}
}

// Insert stores e under its key, overwriting any prior entry for that
// key (the newer sequence number supersedes).
func (m *Memtable) Insert(e entry.Entry) {
	m.sl.Insert(e.Key, e)
}

// Search returns the latest entry stored for key, if any.
func (m *Memtable) Search(key string) (entry.Entry, bool) {
	return m.sl.Search(key)
}

// Len returns the number of distinct keys currently held.
func (m *Memtable) Len() int {
	return m.sl.Len()
}

// NewIterator returns entries in ascending key order, which the flush
// path consumes directly to build a strictly-ordered SSTable.
func (m *Memtable) NewIterator() *Iterator {
	return m.sl.NewIterator()
}
