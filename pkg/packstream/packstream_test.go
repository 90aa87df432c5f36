package packstream_test

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/packstore/pkg/packstore"
	"github.com/calvinalkan/packstore/pkg/packstream"
)

func openTestStore(t *testing.T) *packstore.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "store.pack")

	store, err := packstore.Open(packstore.Options{Path: path})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func Test_OpenReader_ExposesPayloadAsIOReader(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	require.NoError(t, store.Write("f", []byte("hello world"), true))

	reader, err := packstream.OpenReader(store, "f")
	require.NoError(t, err)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
}

func Test_OpenReader_SupportsReaderAt(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	require.NoError(t, store.Write("f", []byte("0123456789"), true))

	reader, err := packstream.OpenReader(store, "f")
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err := reader.ReadAt(buf, 3)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "3456", string(buf))
}

func Test_OpenReader_UnknownPath_ReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	_, err := packstream.OpenReader(store, "missing")
	require.ErrorIs(t, err, packstore.ErrNotFound)
}

func Test_Writer_CloseBackpatchesSizeAndMakesRecordReadable(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	w, err := packstream.BeginWrite(store, "f", true)
	require.NoError(t, err)

	_, err = w.Write([]byte("hel"))
	require.NoError(t, err)

	_, err = w.Write([]byte("lo"))
	require.NoError(t, err)

	require.NoError(t, w.Close())

	value, err := store.Read("f")
	require.NoError(t, err)
	require.Equal(t, "hello", string(value))
}

func Test_Writer_Abort_DiscardsPendingWrite(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	require.NoError(t, store.Write("f", []byte("original"), true))

	w, err := packstream.BeginWrite(store, "g", true)
	require.NoError(t, err)

	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)

	require.NoError(t, w.Abort())

	exists, err := store.Exists("g")
	require.NoError(t, err)
	require.False(t, exists)

	value, err := store.Read("f")
	require.NoError(t, err)
	require.Equal(t, "original", string(value))
}

func Test_Writer_HoldsExclusiveLockUntilClose(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	require.NoError(t, store.Write("f", []byte("v"), true))

	w, err := packstream.BeginWrite(store, "g", true)
	require.NoError(t, err)

	readDone := make(chan error, 1)

	go func() {
		_, err := store.Read("f")
		readDone <- err
	}()

	select {
	case <-readDone:
		t.Fatal("concurrent Read completed before the stream writer released the lock")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, w.Close())

	select {
	case err := <-readDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("concurrent Read did not complete after the stream writer released the lock")
	}
}
