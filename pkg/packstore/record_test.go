package packstore

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_EncodeDecodeHeader_RoundTrips(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		path string
		size int32
	}{
		{name: "SimplePath", path: "a/b/c", size: 5},
		{name: "ZeroSize", path: "f", size: 0},
		{name: "SlashPath", path: "/f1/sub/a.txt", size: 1024},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			encoded, err := encodeHeader(testCase.path, testCase.size)
			require.NoError(t, err)

			header, err := decodeHeader(bytes.NewReader(encoded))
			require.NoError(t, err)

			require.Equal(t, testCase.path, header.path)
			require.Equal(t, testCase.size, header.size)
			require.False(t, header.deleted)
		})
	}
}

func Test_DecodeHeader_ReadsTombstoneByte(t *testing.T) {
	t.Parallel()

	encoded, err := encodeHeader("f", 3)
	require.NoError(t, err)

	encoded[len(encoded)-1] = tombstoneDeleted

	header, err := decodeHeader(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.True(t, header.deleted)
}

func Test_EncodeHeader_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := encodeHeader("", 0)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = encodeHeader("f", -1)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = encodeHeader(strings.Repeat("x", maxPathLen+1), 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func Test_DecodeHeader_TruncatedInput_ReturnsEOFFamily(t *testing.T) {
	t.Parallel()

	encoded, err := encodeHeader("a/b/c", 5)
	require.NoError(t, err)

	for cutoff := range len(encoded) {
		_, err := decodeHeader(bytes.NewReader(encoded[:cutoff]))
		require.Error(t, err)
		require.True(t, errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF))
	}
}

func Test_DecodeHeader_NegativeSize_IsMalformed(t *testing.T) {
	t.Parallel()

	encoded, err := encodeHeader("f", 0)
	require.NoError(t, err)

	// Flip the size field to -1 (all 0xFF bytes) while leaving the whole
	// header present, to distinguish this from a torn read.
	sizeStart := 2 + len("f")
	for i := sizeStart; i < sizeStart+4; i++ {
		encoded[i] = 0xFF
	}

	_, err = decodeHeader(bytes.NewReader(encoded))
	require.ErrorIs(t, err, ErrMalformed)
}

func Test_TombstoneByteOffset_IsPayloadOffsetMinusOne(t *testing.T) {
	t.Parallel()

	require.Equal(t, int64(9), tombstoneByteOffset(10))
}

func Test_HeaderSize_MatchesEncodedLength(t *testing.T) {
	t.Parallel()

	encoded, err := encodeHeader("a/b/c", 42)
	require.NoError(t, err)

	require.Equal(t, int64(len(encoded)), headerSize("a/b/c"))
}
