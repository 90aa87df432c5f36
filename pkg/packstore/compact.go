package packstore

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/calvinalkan/packstore/pkg/fs"
	"github.com/calvinalkan/packstore/pkg/packstore/internal/bfile"
)

// compactionState is the subset of a [Store]'s bookkeeping shouldCompact
// needs to evaluate its trigger. It is derived fresh from the index and
// counters on every call rather than cached, since both can change
// between calls.
type compactionState struct {
	liveCount    int
	liveSize     uint64
	deletedCount uint32
	deletedSize  uint64
}

// shouldCompact evaluates the configured strategy against the current
// counters.
//
// CheckSize's comparison deliberately mixes deletedCount into a
// size-denominated expression. This is preserved verbatim from the
// source behavior being reproduced here rather than "corrected" to
// compare deletedSize against live+deleted size — the mixed units are
// almost certainly an upstream bug, but nothing establishes what the
// intended arithmetic was, so this implementation reproduces the
// observed behavior rather than guessing at a fix.
func shouldCompact(strategy Strategy, fillRate float64, s compactionState) bool {
	switch strategy {
	case Never:
		return false
	case Always:
		return true
	case CheckCount:
		total := float64(s.liveCount) + float64(s.deletedCount)

		return float64(s.deletedCount) >= math.Ceil(total*fillRate)
	case CheckSize:
		denominator := float64(s.liveSize) + float64(s.deletedCount)

		return float64(s.deletedSize) >= math.Ceil(denominator*fillRate)
	default:
		return false
	}
}

// compact rewrites the backing file to contain only the records
// currently live in ix. It reads every live payload out of bf (still
// pointed at the pre-compaction file), assembles the replacement file
// entirely in memory, and swaps it in with [fs.AtomicWriter]'s
// temp-file-plus-rename-plus-dir-sync sequence. ix's payloadOffset
// entries are updated in place to point into the new file; the caller
// closes bf afterward, and later operations open their own handle on
// the same path.
//
// Paths are visited in sorted order, not map iteration order: two
// compaction passes over the same live set must emit byte-identical
// files, and Go's map iteration order is randomized per run.
func compact(fsys fs.FS, bf *bfile.File, ix *index) error {
	paths := make([]string, 0, len(ix.entries))
	for path := range ix.entries {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	var buf bytes.Buffer

	for _, path := range paths {
		entry := ix.entries[path]

		payload := make([]byte, entry.size)

		_, err := bf.ReadAt(payload, int64(entry.payloadOffset)) //nolint:gosec // payloadOffset is a file offset, always small enough
		if err != nil {
			return fmt.Errorf("%w: read live record %q for compaction: %w", ErrIO, path, err)
		}

		header, err := encodeHeader(path, int32(entry.size)) //nolint:gosec // size is bounded to [0, 2^31)
		if err != nil {
			return err
		}

		recordOffset := int64(buf.Len())

		buf.Write(header)
		buf.Write(payload)

		ix.put(path, indexEntry{
			size:          entry.size,
			payloadOffset: uint64(recordOffset) + uint64(headerSize(path)), //nolint:gosec
		})
	}

	writer := fs.NewAtomicWriter(fsys)

	if err := writer.WriteWithDefaults(bf.Path(), bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	return nil
}
