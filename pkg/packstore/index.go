package packstore

import (
	"sort"
	"strings"
)

// indexEntry is the in-memory record of one live path: its declared
// payload size and the absolute offset of its first payload byte.
type indexEntry struct {
	size          uint32
	payloadOffset uint64
}

// index is the authoritative live-set view: a plain map from path to
// indexEntry, plus the prefix/suffix query semantics layered on top of
// it. It carries no locking of its own; callers (the [Store]) hold the
// instance-wide lock for every access.
type index struct {
	entries map[string]indexEntry
}

func newIndex() *index {
	return &index{entries: make(map[string]indexEntry)}
}

// get returns the entry for path and whether it exists.
func (ix *index) get(path string) (indexEntry, bool) {
	e, ok := ix.entries[path]
	return e, ok
}

// put inserts or replaces the entry for path.
func (ix *index) put(path string, e indexEntry) {
	ix.entries[path] = e
}

// remove deletes the entry for path, if present.
func (ix *index) remove(path string) {
	delete(ix.entries, path)
}

// len returns the number of live entries.
func (ix *index) len() int {
	return len(ix.entries)
}

// totalSize returns the sum of every live entry's declared size.
func (ix *index) totalSize() uint64 {
	var total uint64
	for _, e := range ix.entries {
		total += uint64(e.size)
	}

	return total
}

// exists reports whether any indexed key has prefix as a prefix. This is
// prefix semantics, not exact match: a non-empty prefix that names no
// record but is itself a prefix of a live path still reports true.
func (ix *index) exists(prefix string) bool {
	for path := range ix.entries {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// list returns every indexed key whose prefix is prefix. An empty prefix
// matches every key.
func (ix *index) list(prefix string) []string {
	var out []string

	for path := range ix.entries {
		if strings.HasPrefix(path, prefix) {
			out = append(out, path)
		}
	}

	return out
}

// find returns every indexed key whose suffix is name, in sorted order.
func (ix *index) find(name string) []string {
	var out []string

	for path := range ix.entries {
		if strings.HasSuffix(path, name) {
			out = append(out, path)
		}
	}

	sort.Strings(out)

	return out
}
