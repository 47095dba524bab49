// Package errs defines the error taxonomy shared by every core component:
// entry, memtable, wal, sstable, and lsm. Callers pattern-match on Kind
// rather than on sentinel values or string contents.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure into a distinct, observable category; the
// propagation policy differs by kind.
type Kind int

const (
	// Validation covers malformed input caught before any I/O: empty
	// key, negative sequence, PUT without value, DELETE with value,
	// size bounds, duplicate or out-of-order SSTable keys.
	Validation Kind = iota
	// Format covers malformed on-disk data: bad magic, bad version,
	// header/footer CRC mismatch, bad UTF-8, length fields out of bounds.
	Format
	// Integrity covers CRC mismatches on records that are otherwise
	// well-formed. Non-fatal during WAL replay, fatal on random access.
	Integrity
	// IO covers file open/read/write/fsync/rename failures.
	IO
	// State covers operations attempted on a closed or not-yet-finalized
	// component (write to a closed WAL, finalize on a discarded writer).
	State
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Format:
		return "format"
	case Integrity:
		return "integrity"
	case IO:
		return "io"
	case State:
		return "state"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind and a stack trace captured
// at the point of classification (via github.com/pkg/errors), so a
// failure surfaced at Open() or Put() still carries the frame where it
// actually went wrong.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a new Error of the given kind, attaching a stack trace.
func New(kind Kind, msg string) error {
	return &Error{kind: kind, msg: msg, cause: errors.New(msg)}
}

// Newf builds a new Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return &Error{kind: kind, msg: msg, cause: errors.New(msg)}
}

// Wrap classifies an existing error under kind, attaching a stack trace
// captured at this call (even if cause already carries one).
func Wrap(kind Kind, cause error, msg string) error {
	if cause == nil {
		return nil
	}
	return &Error{kind: kind, msg: msg, cause: errors.WithStack(cause)}
}

// Is reports whether err (or anything it wraps) is classified as kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		err = errors.Unwrap(err)
	}
	return e != nil && e.kind == kind
}

// GetKind returns the Kind the error was classified under, and whether
// the error is one of ours at all.
func GetKind(err error) (Kind, bool) {
	for err != nil {
		if ae, ok := err.(*Error); ok {
			return ae.kind, true
		}
		err = errors.Unwrap(err)
	}
	return 0, false
}
