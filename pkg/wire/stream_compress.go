package wire

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// StreamCompressor wraps a raw socket's reader/writer so that the entire
// byte stream -- including frame length prefixes -- passes through
// compression (spec.md §6: "stream compression ... wraps the byte stream
// after framing has been applied"). Treated as a pluggable, opaque
// transform per spec.md's Non-goals; this package supplies the two
// concrete implementations the InitMsg compress bitset can select.
type StreamCompressor interface {
	WrapWriter(w io.Writer) io.WriteCloser
	WrapReader(r io.Reader) io.ReadCloser
}

// NewStreamCompressor selects a StreamCompressor from an InitMsg.Compress
// bitset. STREAM_ZSTD takes priority over STREAM_LZ4 if both bits are
// set; neither bit selects the identity (no-op) compressor.
func NewStreamCompressor(bits CompressBit) (StreamCompressor, error) {
	switch {
	case bits.Has(CompressStreamZSTD):
		return zstdStream{}, nil
	case bits.Has(CompressStreamLZ4):
		return lz4Stream{}, nil
	default:
		return identityStream{}, nil
	}
}

type identityStream struct{}

func (identityStream) WrapWriter(w io.Writer) io.WriteCloser { return nopWriteCloser{w} }
func (identityStream) WrapReader(r io.Reader) io.ReadCloser  { return io.NopCloser(r) }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type zstdStream struct{}

func (zstdStream) WrapWriter(w io.Writer) io.WriteCloser {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		// zstd.NewWriter only fails on invalid options, none of which this
		// package passes; a failure here would be a programming error.
		panic(fmt.Sprintf("wire: zstd.NewWriter: %v", err))
	}
	return enc
}

func (zstdStream) WrapReader(r io.Reader) io.ReadCloser {
	dec, err := zstd.NewReader(r)
	if err != nil {
		panic(fmt.Sprintf("wire: zstd.NewReader: %v", err))
	}
	return dec.IOReadCloser()
}

type lz4Stream struct{}

func (lz4Stream) WrapWriter(w io.Writer) io.WriteCloser {
	return lz4.NewWriter(w)
}

func (lz4Stream) WrapReader(r io.Reader) io.ReadCloser {
	return io.NopCloser(lz4.NewReader(r))
}
