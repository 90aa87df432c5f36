package packstore

import (
	"fmt"
	"sync"

	"github.com/calvinalkan/packstore/pkg/fs"
	"github.com/calvinalkan/packstore/pkg/packstore/internal/bfile"
)

// Store is an open handle on one backing file: the public surface of
// this package. A Store owns its backing file and in-memory index for
// its lifetime and must be closed with [Store.Close] when no longer
// needed.
//
// A Store is safe for concurrent use by multiple goroutines. See the
// package doc comment for the locking discipline.
type Store struct {
	mu sync.RWMutex

	fsys     fs.FS
	opts     Options
	path     string
	strategy Strategy
	fillRate float64

	ix *index

	deletedCount uint32
	deletedSize  uint64

	closed bool
}

// Open opens (creating if necessary) the backing file named by
// opts.Path, scans it to rebuild the in-memory index, and returns a
// ready-to-use [Store].
func Open(opts Options) (*Store, error) {
	return OpenWithFS(fs.NewReal(), opts)
}

// OpenWithFS is [Open] with an explicit [fs.FS], for tests that need
// fault injection via [fs.Chaos] or an in-memory filesystem.
func OpenWithFS(fsys fs.FS, opts Options) (*Store, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	bf, err := bfile.Open(fsys, opts.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer bf.Close()

	result, err := scanForRecovery(bf)
	if err != nil {
		return nil, err
	}

	return &Store{
		fsys:         fsys,
		opts:         opts,
		path:         opts.Path,
		strategy:     opts.Strategy,
		fillRate:     opts.FillRate,
		ix:           result.index,
		deletedCount: result.deletedCount,
		deletedSize:  result.deletedSize,
	}, nil
}

// Close marks the store closed. Subsequent operations fail with
// [ErrClosed]. Close is idempotent and safe to call on a nil *Store.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// Exists reports whether any indexed path has prefix as a prefix.
func (s *Store) Exists(prefix string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrClosed
	}

	return s.ix.exists(prefix), nil
}

// List returns every indexed path whose prefix is prefix. An empty
// prefix returns every path.
func (s *Store) List(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	return s.ix.list(prefix), nil
}

// Find returns every indexed path whose suffix is name.
func (s *Store) Find(name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	return s.ix.find(name), nil
}

// Read returns the payload stored at path, or [ErrNotFound] if path has
// no live record.
func (s *Store) Read(path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	entry, ok := s.ix.get(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}

	bf, err := bfile.Open(s.fsys, s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer bf.Close()

	payload := make([]byte, entry.size)

	if _, err := bf.ReadAt(payload, int64(entry.payloadOffset)); err != nil { //nolint:gosec
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	return payload, nil
}

// Write stores value at path. If path already has a live record and
// overwrite is false, Write fails with [ErrAlreadyExists] and leaves the
// existing value untouched. Otherwise, any existing record is tombstoned
// before the new one is appended, so a reader never observes two live
// records for the same path.
func (s *Store) Write(path string, value []byte, overwrite bool) error {
	if path == "" {
		return fmt.Errorf("%w: path is empty", ErrInvalidInput)
	}

	if len(value) >= 1<<31 {
		return fmt.Errorf("%w: value too large (%d bytes)", ErrInvalidInput, len(value))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if existing, ok := s.ix.get(path); ok {
		if !overwrite {
			return fmt.Errorf("%w: %q", ErrAlreadyExists, path)
		}

		if err := s.tombstone(path, existing); err != nil {
			return err
		}
	}

	bf, err := bfile.Open(s.fsys, s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer bf.Close()

	header, err := encodeHeader(path, int32(len(value))) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}

	recordOffset, err := bf.Append(header)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	if len(value) > 0 {
		payloadOffset := recordOffset + headerSize(path)
		if err := bf.WriteAt(value, payloadOffset); err != nil {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
	}

	s.ix.put(path, indexEntry{
		size:          uint32(len(value)), //nolint:gosec // bounds checked above
		payloadOffset: uint64(recordOffset + headerSize(path)),
	})

	return s.maybeCompact()
}

// Delete removes the live record at path, or fails with [ErrNotFound] if
// path has no live record.
func (s *Store) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	entry, ok := s.ix.get(path)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, path)
	}

	if err := s.tombstone(path, entry); err != nil {
		return err
	}

	return s.maybeCompact()
}

// tombstone flips the on-disk tombstone byte for entry, removes path
// from the index, and folds entry's size into the deleted counters. The
// caller must hold the exclusive lock.
func (s *Store) tombstone(path string, entry indexEntry) error {
	bf, err := bfile.Open(s.fsys, s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer bf.Close()

	offset := tombstoneByteOffset(int64(entry.payloadOffset)) //nolint:gosec

	if err := bf.WriteAt([]byte{tombstoneDeleted}, offset); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	s.ix.remove(path)
	s.deletedCount++
	s.deletedSize += uint64(entry.size)

	return nil
}

// TruncateTornTail hard-truncates the backing file to the last fully
// decodable record boundary, discarding any torn tail bytes left by a
// crash mid-append. Open never calls this automatically, to keep the
// default recovery behavior tolerant-silent; callers that want strict
// enforcement of the no-gaps invariant call it explicitly once, after
// Open, accepting the loss of whatever torn bytes follow the last good
// record.
func (s *Store) TruncateTornTail() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	bf, err := bfile.Open(s.fsys, s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer bf.Close()

	return truncateTornTail(bf)
}

// Blobs is the capability set a [*Store] exposes to external collaborators
// built on top of it, such as the compression decorator and the
// streaming adapters: everything but the lifecycle methods Open/Close.
type Blobs interface {
	Exists(prefix string) (bool, error)
	List(prefix string) ([]string, error)
	Find(name string) ([]string, error)
	Read(path string) ([]byte, error)
	Write(path string, value []byte, overwrite bool) error
	Delete(path string) error
}

var _ Blobs = (*Store)(nil)

// StreamWriter is a reservation for an in-progress streaming write,
// returned by [Store.BeginStreamWrite]. It holds the store's exclusive
// lock for its entire lifetime; callers must call exactly one of
// [StreamWriter.Close] or [StreamWriter.Abort].
//
// Until Close backpatches the true size, the header on disk declares a
// placeholder size of 0. If the process crashes after BeginStreamWrite
// but before Close, the next recovery scan will see a live, zero-length
// record at this path, and any payload bytes already written past it
// will be misread as the start of the following record (or, more
// often, as a torn tail and discarded). This window is a deliberate,
// documented limit of the streaming adapter, not a bug: the core log
// format carries no checksum or footer that could detect it.
type StreamWriter struct {
	store         *Store
	bf            *bfile.File
	path          string
	headerOffset  int64
	payloadOffset int64
	written       int64
	done          bool
}

// BeginStreamWrite reserves a record at path: under the exclusive lock,
// any existing live record is tombstoned (exactly as in [Store.Write]),
// then a header with a placeholder size is appended. The returned
// [StreamWriter] accepts payload bytes via Write and must be finalized
// with Close or Abort.
func (s *Store) BeginStreamWrite(path string, overwrite bool) (*StreamWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path is empty", ErrInvalidInput)
	}

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	if existing, ok := s.ix.get(path); ok {
		if !overwrite {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %q", ErrAlreadyExists, path)
		}

		if err := s.tombstone(path, existing); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}

	bf, err := bfile.Open(s.fsys, s.path)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	header, err := encodeHeader(path, 0)
	if err != nil {
		bf.Close()
		s.mu.Unlock()

		return nil, err
	}

	headerOffset, err := bf.Append(header)
	if err != nil {
		bf.Close()
		s.mu.Unlock()

		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	return &StreamWriter{
		store:         s,
		bf:            bf,
		path:          path,
		headerOffset:  headerOffset,
		payloadOffset: headerOffset + headerSize(path),
	}, nil
}

// Write appends p to the payload immediately past any bytes already
// written by a prior call.
func (w *StreamWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, fmt.Errorf("%w: stream writer already closed", ErrInvalidInput)
	}

	if err := w.bf.WriteAt(p, w.payloadOffset+w.written); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIO, err)
	}

	w.written += int64(len(p))

	return len(p), nil
}

// Close backpatches the true accumulated size into the reserved header,
// updates the index, runs the configured compaction strategy, and
// releases the store's exclusive lock. Close is idempotent; calling it
// again after a successful Close is a no-op.
func (w *StreamWriter) Close() error {
	if w.done {
		return nil
	}

	w.done = true

	defer w.store.mu.Unlock()
	defer w.bf.Close()

	sizeField, err := encodeSize(w.written)
	if err != nil {
		return err
	}

	if err := w.bf.WriteAt(sizeField, sizeFieldOffset(w.headerOffset, w.path)); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	w.store.ix.put(w.path, indexEntry{
		size:          uint32(w.written), //nolint:gosec // bounds checked by encodeSize
		payloadOffset: uint64(w.payloadOffset), //nolint:gosec
	})

	return w.store.maybeCompact()
}

// Abort discards an in-progress reservation: truncates the backing file
// back to the start of the reserved header (safe, since nothing has
// been appended past the reservation) and releases the lock. If this
// write was overwriting an existing path, the old record stays
// tombstoned; Abort does not restore it.
func (w *StreamWriter) Abort() error {
	if w.done {
		return nil
	}

	w.done = true

	defer w.store.mu.Unlock()
	defer w.bf.Close()

	if err := w.bf.Truncate(w.headerOffset); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	return nil
}

// maybeCompact runs the configured compaction strategy and, if it
// fires, rewrites the backing file. The caller must hold the exclusive
// lock.
func (s *Store) maybeCompact() error {
	state := compactionState{
		liveCount:    s.ix.len(),
		liveSize:     s.ix.totalSize(),
		deletedCount: s.deletedCount,
		deletedSize:  s.deletedSize,
	}

	if !shouldCompact(s.strategy, s.fillRate, state) {
		return nil
	}

	bf, err := bfile.Open(s.fsys, s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer bf.Close()

	if err := compact(s.fsys, bf, s.ix); err != nil {
		return err
	}

	s.deletedCount = 0
	s.deletedSize = 0

	return nil
}
