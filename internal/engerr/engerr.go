// Package engerr defines the typed error kinds surfaced by the engine
// (spec.md §7). Callers use errors.As to recover the Kind and branch on it;
// no error is ever silently swallowed.
package engerr

import "fmt"

// Kind classifies why an operation failed.
type Kind string

const (
	KindInvalidArgument    Kind = "invalid_argument"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindStorageUnavailable Kind = "storage_unavailable"
	KindCorruption         Kind = "corruption"
)

// Error wraps an underlying cause with a Kind so callers can distinguish,
// e.g., a missing memory (NotFound) from a disk failure
// (StorageUnavailable).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target has the same Kind, so callers can write
// errors.Is(err, engerr.NotFoundKind).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func InvalidArgument(op string, err error) *Error {
	return New(KindInvalidArgument, op, err)
}

func NotFound(op string, err error) *Error {
	return New(KindNotFound, op, err)
}

func Conflict(op string, err error) *Error {
	return New(KindConflict, op, err)
}

func StorageUnavailable(op string, err error) *Error {
	return New(KindStorageUnavailable, op, err)
}

func Corruption(op string, err error) *Error {
	return New(KindCorruption, op, err)
}

// sentinels for errors.Is comparisons that don't care about Op/Err.
var (
	NotFoundKind           = &Error{Kind: KindNotFound}
	ConflictKind           = &Error{Kind: KindConflict}
	InvalidArgumentKind    = &Error{Kind: KindInvalidArgument}
	StorageUnavailableKind = &Error{Kind: KindStorageUnavailable}
	CorruptionKind         = &Error{Kind: KindCorruption}
)
