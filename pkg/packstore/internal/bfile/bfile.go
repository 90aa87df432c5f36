// Package bfile is the random-access, absolute-offset adapter over a
// single backing file. All record-level reads and writes go through it;
// the only other direct use of a [fs.FS] is the compaction swap, which
// replaces the whole file through [fs.AtomicWriter].
package bfile

import (
	"fmt"
	"io"
	"os"

	"github.com/calvinalkan/packstore/pkg/fs"
)

// File is an open handle on one backing file, supporting absolute-offset
// reads and writes, append, length queries, and truncation. It does not
// buffer beyond what the underlying [fs.File] provides and does no
// locking of its own; callers serialize access externally.
type File struct {
	fsys FS
	path string
	f    fs.File
}

// FS is the subset of [fs.FS] bfile depends on.
type FS interface {
	OpenFile(path string, flag int, perm os.FileMode) (fs.File, error)
	Open(path string) (fs.File, error)
	Rename(oldpath, newpath string) error
	Remove(path string) error
}

// Open opens path for random-access reading and writing, creating it
// (empty) if it does not already exist.
func Open(fsys FS, path string) (*File, error) {
	f, err := fsys.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open backing file %q: %w", path, err)
	}

	return &File{fsys: fsys, path: path, f: f}, nil
}

// Path returns the path the file was opened with.
func (f *File) Path() string {
	return f.path
}

// Len returns the current length of the backing file.
func (f *File) Len() (int64, error) {
	info, err := f.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %q: %w", f.path, err)
	}

	return info.Size(), nil
}

// ReadAt reads len(p) bytes starting at absolute offset off.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	n, err := readAtSeeker(f.f, p, off)
	if err != nil {
		return n, fmt.Errorf("read %q at %d: %w", f.path, off, err)
	}

	return n, nil
}

// WriteAt writes p at absolute offset off, without changing the file's
// length unless off+len(p) extends past the current end.
func (f *File) WriteAt(p []byte, off int64) error {
	_, err := f.f.Seek(off, io.SeekStart)
	if err != nil {
		return fmt.Errorf("seek %q to %d: %w", f.path, off, err)
	}

	_, err = f.f.Write(p)
	if err != nil {
		return fmt.Errorf("write %q at %d: %w", f.path, off, err)
	}

	return nil
}

// Append writes p at the current end of the file and returns the offset
// it was written at.
func (f *File) Append(p []byte) (int64, error) {
	offset, err := f.Len()
	if err != nil {
		return 0, err
	}

	if err := f.WriteAt(p, offset); err != nil {
		return 0, err
	}

	return offset, nil
}

// Reader returns an io.Reader over size bytes starting at off. Its
// position is independent of any other outstanding reader or writer on
// this file, since it seeks before every read.
func (f *File) Reader(off int64, size int64) io.Reader {
	return io.NewSectionReader(sectionSeeker{f}, off, size)
}

// Sync commits the file's contents to disk.
func (f *File) Sync() error {
	if err := f.f.Sync(); err != nil {
		return fmt.Errorf("sync %q: %w", f.path, err)
	}

	return nil
}

// Close releases the underlying handle. It is safe to call on a nil
// *File.
func (f *File) Close() error {
	if f == nil {
		return nil
	}

	if err := f.f.Close(); err != nil {
		return fmt.Errorf("close %q: %w", f.path, err)
	}

	return nil
}

// Truncate shrinks or grows the file to exactly size bytes. Used only by
// the opt-in strict torn-tail repair and by a stream-write abort; the
// normal tolerant-silent recovery path never calls it.
func (f *File) Truncate(size int64) error {
	osFile, ok := f.f.(interface{ Truncate(int64) error })
	if !ok {
		return fmt.Errorf("truncate %q: underlying file does not support truncation", f.path)
	}

	if err := osFile.Truncate(size); err != nil {
		return fmt.Errorf("truncate %q to %d: %w", f.path, size, err)
	}

	return nil
}

func readAtSeeker(s fs.File, p []byte, off int64) (int, error) {
	if _, err := s.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}

	return io.ReadFull(s, p)
}

// sectionSeeker adapts *File to the io.ReaderAt interface expected by
// io.NewSectionReader without exposing WriteAt/Append concurrently from
// the same seek cursor as reads issued through Reader.
type sectionSeeker struct {
	f *File
}

func (s sectionSeeker) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}
