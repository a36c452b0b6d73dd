package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/pierrec/lz4"
)

// hashTables holds lz4 match tables; CompressBlock requires 64k entries.
var hashTables = sync.Pool{
	New: func() any { return make([]int, 1<<16) },
}

// ErrCorrupt is returned when a stored value cannot be decoded.
var ErrCorrupt = errors.New("compression: corrupt value")

// NoCompressor stores values unchanged.
type NoCompressor struct{}

func (NoCompressor) Name() string { return None }

func (NoCompressor) Compress(data []byte) ([]byte, error) {
	return bytes.Clone(data), nil
}

func (NoCompressor) Decompress(data []byte) ([]byte, error) {
	return bytes.Clone(data), nil
}

// Block flags of LZ4Compressor output.
const (
	blockRaw byte = iota
	blockLZ4
)

// LZ4Compressor frames values as flag byte, uvarint length, payload. Values
// lz4 cannot shrink are kept raw.
type LZ4Compressor struct{}

func (LZ4Compressor) Name() string { return LZ4 }

func (LZ4Compressor) Compress(data []byte) ([]byte, error) {
	header := make([]byte, 1+binary.MaxVarintLen64)
	n := 1 + binary.PutUvarint(header[1:], uint64(len(data)))

	if len(data) == 0 {
		header[0] = blockRaw
		return header[:n], nil
	}

	table := hashTables.Get().([]int)
	clear(table)
	block := make([]byte, lz4.CompressBlockBound(len(data)))
	size, err := lz4.CompressBlock(data, block, table)
	hashTables.Put(table)
	if err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}

	if size == 0 || size >= len(data) {
		header[0] = blockRaw
		return append(header[:n], data...), nil
	}
	header[0] = blockLZ4
	return append(header[:n], block[:size]...), nil
}

func (LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, ErrCorrupt
	}
	length, n := binary.Uvarint(data[1:])
	if n <= 0 {
		return nil, ErrCorrupt
	}
	payload := data[1+n:]

	switch data[0] {
	case blockRaw:
		if uint64(len(payload)) != length {
			return nil, ErrCorrupt
		}
		return bytes.Clone(payload), nil
	case blockLZ4:
		out := make([]byte, length)
		got, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if uint64(got) != length {
			return nil, ErrCorrupt
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: flag %d", ErrCorrupt, data[0])
}
