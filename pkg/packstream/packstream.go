// Package packstream provides streaming read and write views over a
// single record in a packstore.Store, built entirely on the store's
// public contract.
//
// A [Reader] is a thin convenience wrapper: it performs one ordinary
// Read and exposes the result as an io.Reader/io.ReaderAt, so callers
// that want streaming-shaped code don't need to special-case a single
// in-memory fetch.
//
// A [Writer] is not thin: per the store's documented resource-lifetime
// contract, it retains the store's exclusive lock for its entire
// lifetime, releasing it only when Close or Abort returns.
package packstream

import (
	"bytes"
	"fmt"
	"io"

	"github.com/calvinalkan/packstore/pkg/packstore"
)

// Reader presents a record's payload as an io.Reader and io.ReaderAt.
type Reader struct {
	*bytes.Reader
}

// OpenReader fetches the payload at path from store (one ordinary Read)
// and wraps it for streaming-shaped access.
func OpenReader(store packstore.Blobs, path string) (*Reader, error) {
	data, err := store.Read(path)
	if err != nil {
		return nil, err
	}

	return &Reader{Reader: bytes.NewReader(data)}, nil
}

// Writer is a streaming write-view over a reserved record. It must be
// closed with Close to commit, or Abort to discard.
type Writer struct {
	pending *packstore.StreamWriter
}

// BeginWrite reserves a record at path under store's exclusive lock and
// returns a [Writer] accepting payload bytes via Write. The lock is held
// until the returned Writer's Close or Abort is called; see the package
// doc comment.
func BeginWrite(store *packstore.Store, path string, overwrite bool) (*Writer, error) {
	pending, err := store.BeginStreamWrite(path, overwrite)
	if err != nil {
		return nil, err
	}

	return &Writer{pending: pending}, nil
}

// Write appends p to the record's payload.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.pending.Write(p)
	if err != nil {
		return n, fmt.Errorf("packstream: write: %w", err)
	}

	return n, nil
}

// Close backpatches the true payload size into the record's header,
// makes the record visible to readers, and releases the store's
// exclusive lock.
func (w *Writer) Close() error {
	return w.pending.Close()
}

// Abort discards everything written so far and releases the store's
// exclusive lock without committing a record.
func (w *Writer) Abort() error {
	return w.pending.Abort()
}

var (
	_ io.Reader   = (*Reader)(nil)
	_ io.ReaderAt = (*Reader)(nil)
	_ io.Writer   = (*Writer)(nil)
	_ io.Closer   = (*Writer)(nil)
)
