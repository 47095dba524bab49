// Package entry defines the canonical unit of information in sprucedb:
// an Entry carries a key, a monotonic sequence number, a kind (PUT,
// DELETE, or the WAL-only FLUSH marker), and an optional value and
// timestamp. Both the WAL and the SSTable format convert to and from
// this type, so it's the one place key/value size limits and the
// PUT-has-value / DELETE-has-no-value invariant are enforced.
package entry

import (
	"unicode/utf8"

	"github.com/pragmatic-zac/sprucedb/internal/errs"
)

// Size limits shared by the WAL and SSTable formats.
const (
	MaxKeySize   = 65536      // 64 KiB
	MaxValueSize = 1 << 20    // 1 MiB
)

// Kind distinguishes a live write from a tombstone from an operational
// WAL marker. FLUSH is never stored in a memtable or SSTable; it only
// ever appears as the terminal record of a WAL segment.
type Kind uint8

const (
	Put Kind = iota + 1
	Delete
	Flush
)

func (k Kind) String() string {
	switch k {
	case Put:
		return "PUT"
	case Delete:
		return "DELETE"
	case Flush:
		return "FLUSH"
	default:
		return "UNKNOWN"
	}
}

// Entry is the universal record: {key, sequence, kind, value?, timestamp?}.
// Ordering is by key ascending, then by sequence ascending — for equal
// keys, the higher sequence is newer and wins on read.
type Entry struct {
	Key       string
	Sequence  uint64
	Kind      Kind
	Value     []byte // present iff Kind == Put
	Timestamp int64  // seconds since epoch; 0 if unset
	SSTableID string // only meaningful when Kind == Flush
}

// MakePut constructs a validated PUT entry.
func MakePut(key string, seq uint64, value []byte, timestamp int64) (Entry, error) {
	if err := validateKey(key); err != nil {
		return Entry{}, err
	}
	if value == nil {
		return Entry{}, errs.New(errs.Validation, "PUT entry requires a non-nil value")
	}
	if len(value) > MaxValueSize {
		return Entry{}, errs.Newf(errs.Validation, "value size %d exceeds maximum %d", len(value), MaxValueSize)
	}
	return Entry{Key: key, Sequence: seq, Kind: Put, Value: value, Timestamp: timestamp}, nil
}

// MakeDelete constructs a validated DELETE (tombstone) entry.
func MakeDelete(key string, seq uint64, timestamp int64) (Entry, error) {
	if err := validateKey(key); err != nil {
		return Entry{}, err
	}
	return Entry{Key: key, Sequence: seq, Kind: Delete, Value: nil, Timestamp: timestamp}, nil
}

// MakeFlush constructs a FLUSH marker entry. The marker carries no value
// and stores the flushed SSTable's id out of band from the key field:
// the on-disk record smuggles the id through the key bytes, but that's
// a wire format detail, not a reason to model it that way in memory.
func MakeFlush(sstableID string, seq uint64) Entry {
	return Entry{Kind: Flush, Sequence: seq, SSTableID: sstableID}
}

func validateKey(key string) error {
	if key == "" {
		return errs.New(errs.Validation, "key must not be empty")
	}
	if len(key) > MaxKeySize {
		return errs.Newf(errs.Validation, "key size %d exceeds maximum %d", len(key), MaxKeySize)
	}
	if !utf8.ValidString(key) {
		return errs.New(errs.Format, "key is not valid UTF-8")
	}
	return nil
}

// IsTombstone reports whether this entry represents a deletion.
func (e Entry) IsTombstone() bool {
	return e.Kind == Delete
}

// Less implements the total order: key ascending, then sequence
// ascending (ties broken in favor of the newer write).
func (e Entry) Less(other Entry) bool {
	if e.Key != other.Key {
		return e.Key < other.Key
	}
	return e.Sequence < other.Sequence
}
