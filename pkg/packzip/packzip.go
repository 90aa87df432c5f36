// Package packzip is a transparent-compression decorator over a
// packstore.Store: a byte-in/byte-out pass-through that compresses
// payloads on write and decompresses them on read, while leaving the
// path namespace, the tombstone protocol, and the backing file entirely
// to the wrapped store.
package packzip

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/calvinalkan/packstore/pkg/packstore"
)

// Store wraps a packstore.Blobs, compressing payloads with zstd on Write
// and decompressing them on Read. Exists, List, Find, and Delete pass
// through unchanged: compression never touches the index, the lock, or
// the backing file directly.
//
// EncodeAll and DecodeAll are safe for concurrent use on a shared
// *zstd.Encoder/*zstd.Decoder, so a single pair is reused across calls.
type Store struct {
	inner packstore.Blobs
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// Wrap returns a Store that compresses values written through it and
// decompresses values read back out, delegating everything else to
// inner.
func Wrap(inner packstore.Blobs) (*Store, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("packzip: new encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()

		return nil, fmt.Errorf("packzip: new decoder: %w", err)
	}

	return &Store{inner: inner, enc: enc, dec: dec}, nil
}

// Exists reports whether any indexed path has prefix as a prefix.
func (s *Store) Exists(prefix string) (bool, error) {
	return s.inner.Exists(prefix)
}

// List returns every indexed path whose prefix is prefix.
func (s *Store) List(prefix string) ([]string, error) {
	return s.inner.List(prefix)
}

// Find returns every indexed path whose suffix is name.
func (s *Store) Find(name string) ([]string, error) {
	return s.inner.Find(name)
}

// Delete removes the live record at path.
func (s *Store) Delete(path string) error {
	return s.inner.Delete(path)
}

// Read returns the decompressed payload stored at path.
func (s *Store) Read(path string) ([]byte, error) {
	compressed, err := s.inner.Read(path)
	if err != nil {
		return nil, err
	}

	value, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("packzip: decompress %q: %w", path, err)
	}

	return value, nil
}

// Write compresses value and stores it at path.
func (s *Store) Write(path string, value []byte, overwrite bool) error {
	compressed := s.enc.EncodeAll(value, nil)

	return s.inner.Write(path, compressed, overwrite)
}

// Close releases the encoder and decoder. It does not close the wrapped
// store.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()

	return nil
}

var _ packstore.Blobs = (*Store)(nil)
