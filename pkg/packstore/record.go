package packstore

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxPathLen is the largest path length (in encoded bytes) the on-disk
// 2-byte length prefix can represent.
const maxPathLen = 65535

// tombstoneLive and tombstoneDeleted are the two values the 1-byte
// tombstone field is ever written with. Any nonzero byte read back counts
// as deleted, but this store only ever writes these two.
const (
	tombstoneLive    byte = 0
	tombstoneDeleted byte = 1
)

// recordHeader is the decoded form of one record's header: path, declared
// payload size, and tombstone state.
type recordHeader struct {
	path    string
	size    int32
	deleted bool
}

// encodeHeader serializes path and size into the on-disk header layout:
// a 2-byte big-endian path length, the path bytes, a 4-byte big-endian
// size, and a 1-byte tombstone flag, always written live (0).
//
// encodeHeader fails if path, once encoded, exceeds 65535 bytes, or if
// size is negative.
func encodeHeader(path string, size int32) ([]byte, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: path is empty", ErrInvalidInput)
	}

	if len(path) > maxPathLen {
		return nil, fmt.Errorf("%w: path length %d exceeds %d bytes", ErrInvalidInput, len(path), maxPathLen)
	}

	if size < 0 {
		return nil, fmt.Errorf("%w: negative payload size %d", ErrInvalidInput, size)
	}

	buf := make([]byte, headerSize(path))

	binary.BigEndian.PutUint16(buf[0:2], uint16(len(path)))
	copy(buf[2:2+len(path)], path)

	offset := 2 + len(path)
	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(size))
	buf[offset+4] = tombstoneLive

	return buf, nil
}

// headerSize returns the on-disk byte length of the header for path: the
// 2-byte length prefix, the path itself, the 4-byte size, and the 1-byte
// tombstone flag.
func headerSize(path string) int64 {
	return 2 + int64(len(path)) + 4 + 1
}

// decodeHeader reads one record's header from r, advancing r to the first
// payload byte.
//
// If r runs out of bytes partway through the header, decodeHeader returns
// the underlying io.EOF or io.ErrUnexpectedEOF unwrapped, so callers can
// distinguish "no more data" (a clean or torn end of file, tolerated by
// the recovery scan) from genuine corruption. A structurally complete
// header with an invalid size is a different failure and is always
// wrapped in [ErrMalformed].
func decodeHeader(r io.Reader) (recordHeader, error) {
	var lenBuf [2]byte

	_, err := io.ReadFull(r, lenBuf[:])
	if err != nil {
		return recordHeader{}, err
	}

	pathLen := binary.BigEndian.Uint16(lenBuf[:])

	pathBuf := make([]byte, pathLen)

	_, err = io.ReadFull(r, pathBuf)
	if err != nil {
		return recordHeader{}, err
	}

	var sizeBuf [4]byte

	_, err = io.ReadFull(r, sizeBuf[:])
	if err != nil {
		return recordHeader{}, err
	}

	size := int32(binary.BigEndian.Uint32(sizeBuf[:])) //nolint:gosec // wire format is a signed 32-bit size

	var tombBuf [1]byte

	_, err = io.ReadFull(r, tombBuf[:])
	if err != nil {
		return recordHeader{}, err
	}

	if size < 0 {
		return recordHeader{}, fmt.Errorf("%w: negative payload size %d", ErrMalformed, size)
	}

	return recordHeader{
		path:    string(pathBuf),
		size:    size,
		deleted: tombBuf[0] != tombstoneLive,
	}, nil
}

// sizeFieldOffset returns the absolute offset of the 4-byte size field
// within the header starting at headerOffset, for path. Used by the
// streaming write adapter to backpatch a placeholder size once the true
// length is known.
func sizeFieldOffset(headerOffset int64, path string) int64 {
	return headerOffset + 2 + int64(len(path))
}

// encodeSize serializes size as the on-disk 4-byte big-endian size
// field, for use when backpatching a header already written to disk.
func encodeSize(size int64) ([]byte, error) {
	if size < 0 || size >= 1<<31 {
		return nil, fmt.Errorf("%w: size %d out of range", ErrInvalidInput, size)
	}

	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(size))

	return buf, nil
}

// tombstoneByteOffset returns the absolute offset of the single byte that
// [Store.Delete] and a tombstoning [Store.Write] flip from live to
// deleted: the byte immediately before the payload.
func tombstoneByteOffset(payloadOffset int64) int64 {
	return payloadOffset - 1
}
