package packstore

import "errors"

// Sentinel errors returned by packstore operations.
//
// Callers should use [errors.Is] to check error kinds:
//
//	if errors.Is(err, packstore.ErrNotFound) {
//	    // path has no live record
//	}
var (
	// ErrNotFound indicates [Store.Read] or [Store.Delete] was called on a
	// path with no live record.
	ErrNotFound = errors.New("packstore: not found")

	// ErrAlreadyExists indicates [Store.Write] was called with
	// overwrite=false against a path that already has a live record.
	ErrAlreadyExists = errors.New("packstore: already exists")

	// ErrMalformed indicates the recovery scan encountered an undecodable
	// record: a complete header with a negative payload size. A header or
	// payload cut short by end of file is a torn tail, which the scan
	// tolerates, not ErrMalformed.
	ErrMalformed = errors.New("packstore: malformed record")

	// ErrIO wraps a lower-level backing-file failure (a short read, a
	// failed write, a failed rename during compaction). The original error
	// is always available via errors.Is or errors.As.
	ErrIO = errors.New("packstore: io error")

	// ErrClosed indicates an operation was attempted on a [Store] after
	// [Store.Close] returned.
	ErrClosed = errors.New("packstore: store is closed")

	// ErrInvalidInput indicates invalid arguments: an empty path, a path
	// longer than 65535 bytes once UTF-8 encoded, or a negative payload
	// size.
	ErrInvalidInput = errors.New("packstore: invalid input")
)
