package wire

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"hello",
		"1 0\n",
		strings.Repeat("x", 1<<16),
	}
	for _, payload := range cases {
		encoded, err := EncodeData(payload)
		require.NoError(t, err)

		got, err := RecvData(bytes.NewReader(encoded))
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
}

// shortReader returns at most n bytes per Read call, exercising the
// "short reads must still assemble the whole frame" requirement.
type shortReader struct {
	data []byte
	n    int
}

func (s *shortReader) Read(p []byte) (int, error) {
	if len(s.data) == 0 {
		return 0, io.EOF
	}
	max := s.n
	if max > len(p) {
		max = len(p)
	}
	if max > len(s.data) {
		max = len(s.data)
	}
	copy(p, s.data[:max])
	s.data = s.data[max:]
	return max, nil
}

func TestRecvAssemblesShortReads(t *testing.T) {
	encoded, err := EncodeData("assembled from crumbs")
	require.NoError(t, err)

	got, err := RecvData(&shortReader{data: encoded, n: 3})
	require.NoError(t, err)
	assert.Equal(t, "assembled from crumbs", got)
}

func TestRecvZeroByteReadIsClosed(t *testing.T) {
	_, err := Recv(bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrClosed)
}

func TestRecvDataRejectsControlType(t *testing.T) {
	encoded, err := Encode(Frame{Type: "control"})
	require.NoError(t, err)

	_, err = RecvData(bytes.NewReader(encoded))
	require.ErrorIs(t, err, ErrBadType)
}
