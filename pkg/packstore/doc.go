// Package packstore is an embedded, single-file object store.
//
// It packs many logical "files" — identified by arbitrary string paths —
// into one physical backing file. Records are appended; deletes and
// overwrites tombstone the previous record rather than rewriting it in
// place, and a backing file is compacted only when the configured
// [Strategy] says the garbage-to-live ratio warrants it.
//
// # Basic Usage
//
//	store, err := packstore.Open(packstore.Options{
//	    Path:     "/var/lib/myapp/blobs.pack",
//	    Strategy: packstore.CheckCount,
//	    FillRate: 0.5,
//	})
//	if err != nil {
//	    // handle error
//	}
//	defer store.Close()
//
//	err = store.Write("a/b/c", []byte("hello"), true)
//	data, err := store.Read("a/b/c")
//	err = store.Delete("a/b/c")
//
// # Concurrency
//
// Store uses a single multi-reader, single-writer lock for the whole
// instance:
//   - [Store.Exists], [Store.List], [Store.Find], [Store.Read] take the
//     shared (read) side of the lock and may run concurrently with each
//     other.
//   - [Store.Write] and [Store.Delete] take the exclusive (write) side;
//     they run one at a time and exclude all readers.
//
// Multiple [Store] values opened against the same backing file path in
// the same process, or from more than one process, are not supported.
//
// # Error Handling
//
// Operations return one of [ErrNotFound], [ErrAlreadyExists],
// [ErrMalformed], [ErrClosed], [ErrInvalidInput], or an error wrapping
// [ErrIO]. Callers should use
// [errors.Is] to check error kinds.
package packstore
