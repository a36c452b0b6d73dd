package compression

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{LZ4, None}, Available())
	assert.True(t, IsAvailable(LZ4))
	assert.False(t, IsAvailable("zstd"))

	c, err := Get("")
	require.NoError(t, err)
	assert.Equal(t, None, c.Name())

	_, err = Get("zstd")
	require.Error(t, err)
}

func TestLZ4(t *testing.T) {
	random := make([]byte, 512)
	_, err := rand.Read(random)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		flag byte
	}{
		{"empty", []byte{}, blockRaw},
		{"repetitive", bytes.Repeat([]byte("offer-record "), 64), blockLZ4},
		{"incompressible", random, blockRaw},
	}

	c := LZ4Compressor{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed, err := c.Compress(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.flag, packed[0])

			out, err := c.Decompress(packed)
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), len(out))
			assert.True(t, bytes.Equal(tt.data, out))
		})
	}
}

func TestLZ4Corrupt(t *testing.T) {
	c := LZ4Compressor{}
	for _, in := range [][]byte{nil, {blockLZ4}, {7, 0}, {blockRaw, 5, 1, 2}} {
		_, err := c.Decompress(in)
		require.ErrorIs(t, err, ErrCorrupt, "%v", in)
	}
}
