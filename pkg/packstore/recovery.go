package packstore

import (
	"errors"
	"fmt"
	"io"

	"github.com/calvinalkan/packstore/pkg/packstore/internal/bfile"
)

// recoveryResult is what a scan of the backing file produces: a
// populated index and the tombstone counters accumulated along the way.
type recoveryResult struct {
	index        *index
	deletedCount uint32
	deletedSize  uint64
}

// scanForRecovery walks bf from offset 0 to end-of-file, decoding one record at
// a time and folding it into the returned index and counters.
//
// A record whose header or payload runs past the current end of file is
// a torn tail: the scan stops at the last good record boundary without
// failing, per the tolerant-silent recovery policy. A record whose
// header decodes with a structurally invalid field (for example a
// negative size) while every header byte was actually present is
// distinct from a torn tail — it is real corruption mid-file, not a
// truncated write, and scanForRecovery fails the open with [ErrMalformed].
func scanForRecovery(bf *bfile.File) (recoveryResult, error) {
	length, err := bf.Len()
	if err != nil {
		return recoveryResult{}, fmt.Errorf("%w: %w", ErrIO, err)
	}

	result := recoveryResult{index: newIndex()}

	offset := int64(0)

	for offset < length {
		header, payloadOffset, err := decodeHeaderAt(bf, offset)
		if err != nil {
			if isTornRead(err) {
				break
			}

			return recoveryResult{}, err
		}

		recordEnd := payloadOffset + int64(header.size)
		if recordEnd > length {
			break
		}

		if header.deleted {
			result.deletedCount++
			result.deletedSize += uint64(header.size)
		} else {
			result.index.put(header.path, indexEntry{
				size:          uint32(header.size), //nolint:gosec // size is bounded to [0, 2^31) by the codec
				payloadOffset: uint64(payloadOffset),
			})
		}

		offset = recordEnd
	}

	return result, nil
}

// decodeHeaderAt decodes the header at absolute offset off and returns it
// along with the absolute payload offset that immediately follows it.
func decodeHeaderAt(bf *bfile.File, off int64) (recordHeader, int64, error) {
	length, err := bf.Len()
	if err != nil {
		return recordHeader{}, 0, fmt.Errorf("%w: %w", ErrIO, err)
	}

	// Read at most the remaining bytes; a header never exceeds
	// 2+maxPathLen+4+1 bytes, so this is always a tiny, bounded read.
	remaining := length - off
	if remaining <= 0 {
		return recordHeader{}, 0, io.EOF
	}

	header, err := decodeHeader(bf.Reader(off, remaining))
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return recordHeader{}, 0, err
		}

		return recordHeader{}, 0, fmt.Errorf("%w at offset %d: %w", ErrMalformed, off, err)
	}

	payloadOffset := off + headerSize(header.path)

	return header, payloadOffset, nil
}

// isTornRead reports whether err signals that the backing file ran out
// of bytes partway through a record, as opposed to a genuine decoding
// failure on a structurally complete record.
func isTornRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// truncateTornTail hard-truncates the backing file to the last good
// record boundary. It is never invoked automatically by [Open]; callers
// that want strict enforcement of the no-gaps invariant call it
// explicitly after opening, accepting the loss of any torn tail bytes.
func truncateTornTail(bf *bfile.File) error {
	length, err := bf.Len()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	offset := int64(0)

	for offset < length {
		header, payloadOffset, err := decodeHeaderAt(bf, offset)
		if err != nil {
			if isTornRead(err) {
				break
			}

			return err
		}

		recordEnd := payloadOffset + int64(header.size)
		if recordEnd > length {
			break
		}

		offset = recordEnd
	}

	if offset == length {
		return nil
	}

	if err := bf.Truncate(offset); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	return nil
}
