package wire

import (
	"errors"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrLZ4BlockTooLarge is returned when decompressing an LZ4 block
// exceeds the bounded number of buffer-growth attempts lz4Block.Decompress
// allows.
var ErrLZ4BlockTooLarge = errors.New("wire: lz4 block decompression exceeded size limit")

// BlockCompressor compresses/decompresses one serialized FsyncerMsg
// payload at a time, applied before framing (spec.md §6). Like
// StreamCompressor, its internal algorithm is opaque per spec.md's
// Non-goals; this package supplies the two concrete implementations the
// InitMsg compress bitset can select.
type BlockCompressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// NewBlockCompressor selects a BlockCompressor from an InitMsg.Compress
// bitset. RT_DSSC_ZSTD takes priority over RT_DSSC_CHUNKED if both bits
// are set; neither bit selects the identity (no-op) compressor.
func NewBlockCompressor(bits CompressBit) (BlockCompressor, error) {
	switch {
	case bits.Has(CompressRTDsscZSTD):
		return zstdBlock{encoder: newZstdEncoder()}, nil
	case bits.Has(CompressRTDsscChunked):
		return lz4Block{}, nil
	default:
		return identityBlock{}, nil
	}
}

type identityBlock struct{}

func (identityBlock) Compress(data []byte) ([]byte, error)   { return data, nil }
func (identityBlock) Decompress(data []byte) ([]byte, error) { return data, nil }

func newZstdEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		panic("wire: zstd.NewWriter: " + err.Error())
	}
	return enc
}

type zstdBlock struct {
	encoder *zstd.Encoder
}

func (b zstdBlock) Compress(data []byte) ([]byte, error) {
	return b.encoder.EncodeAll(data, nil), nil
}

func (zstdBlock) Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// lz4Block implements RT_DSSC_CHUNKED using LZ4's block (not frame) API,
// a natural fit for "chunked" one-shot payload compression.
type lz4Block struct{}

func (lz4Block) Compress(data []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	var compressor lz4.Compressor
	n, err := compressor.CompressBlock(data, buf)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Incompressible input: lz4 reports 0 when the compressed form
		// would not be smaller. Fall back to storing it raw, prefixed so
		// Decompress can tell the difference.
		return append([]byte{0}, data...), nil
	}
	return append([]byte{1}, buf[:n]...), nil
}

func (lz4Block) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	tag, body := data[0], data[1:]
	if tag == 0 {
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	}
	// The original (uncompressed) size isn't tracked by this minimal
	// framing; callers that need exact sizing should prefer the zstd
	// block compressor, which self-describes its frame. Grow the
	// destination buffer until it's large enough, bounded to avoid an
	// unbounded allocation loop on corrupt input.
	buf := make([]byte, len(body)*8+64)
	for attempt := 0; attempt < 16; attempt++ {
		n, err := lz4.UncompressBlock(body, buf)
		if err == nil {
			return buf[:n], nil
		}
		buf = make([]byte, len(buf)*2)
	}
	return nil, ErrLZ4BlockTooLarge
}
