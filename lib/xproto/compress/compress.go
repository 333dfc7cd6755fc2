/*
Copyright 2024 Cadre Data, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package compress implements the optional compression layer of the
// protocol: frames above a size threshold travel inside COMPRESSION
// envelope frames whose payload decompresses back to ordinary frames.
//
// Three algorithms are supported, named as in the protocol's compression
// capability: "deflate_stream" and "zstd_stream" keep compressor state
// across envelopes within one connection, "lz4_message" compresses each
// envelope independently. Any error out of a codec leaves the connection
// unusable; there is no recovery from a corrupt compressed stream.
package compress

import (
	"bytes"
	"io"

	"github.com/gravitational/trace"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm names a wire compression algorithm.
type Algorithm string

const (
	// AlgorithmNone disables compression.
	AlgorithmNone Algorithm = ""
	// AlgorithmDeflate is a connection-long zlib/deflate stream, sync
	// flushed at each envelope boundary.
	AlgorithmDeflate Algorithm = "deflate_stream"
	// AlgorithmLZ4 compresses each envelope as an independent LZ4 frame.
	AlgorithmLZ4 Algorithm = "lz4_message"
	// AlgorithmZstd is a connection-long zstd stream.
	AlgorithmZstd Algorithm = "zstd_stream"
)

// ParseAlgorithm maps a capability string to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AlgorithmNone, AlgorithmDeflate, AlgorithmLZ4, AlgorithmZstd:
		return Algorithm(s), nil
	}
	return AlgorithmNone, trace.BadParameter("unsupported compression algorithm %q", s)
}

// Compressor compresses envelope payloads. For stream algorithms the
// internal state persists across calls, so envelopes must be decompressed
// in the order they were produced.
type Compressor interface {
	// Compress compresses one envelope payload.
	Compress(p []byte) ([]byte, error)
}

// Decompressor turns fed envelope payloads back into uncompressed bytes.
// Output is pulled incrementally: a single Read may return fewer bytes
// than requested and the caller comes back for the rest.
type Decompressor interface {
	// Feed hands the compressed payload of the next envelope to the
	// decompressor.
	Feed(p []byte) error
	// Read produces uncompressed bytes, io.Reader style.
	Read(p []byte) (n int, err error)
}

// New returns a connected compressor/decompressor pair for the algorithm.
// AlgorithmNone yields nil pairs, meaning frames pass through untouched.
func New(alg Algorithm) (Compressor, Decompressor, error) {
	switch alg {
	case AlgorithmNone:
		return nil, nil, nil
	case AlgorithmDeflate:
		var c deflateCompressor
		w, err := flate.NewWriter(&c.buf, flate.DefaultCompression)
		if err != nil {
			return nil, nil, trace.Wrap(err)
		}
		c.w = w
		d := &streamDecompressor{}
		d.open = func() io.Reader { return flate.NewReader(&d.in) }
		return &c, d, nil
	case AlgorithmZstd:
		var c zstdCompressor
		w, err := zstd.NewWriter(&c.buf)
		if err != nil {
			return nil, nil, trace.Wrap(err)
		}
		c.w = w
		d := &streamDecompressor{}
		d.open = func() io.Reader {
			r, err := zstd.NewReader(&d.in, zstd.WithDecoderConcurrency(1))
			if err != nil {
				return &errReader{err: err}
			}
			return r
		}
		return &c, d, nil
	case AlgorithmLZ4:
		return lz4Compressor{}, &lz4Decompressor{}, nil
	}
	return nil, nil, trace.BadParameter("unsupported compression algorithm %q", alg)
}

// deflateCompressor keeps one deflate stream per connection and emits a
// sync-flushed chunk per envelope.
type deflateCompressor struct {
	buf bytes.Buffer
	w   *flate.Writer
}

// Compress compresses one envelope payload.
func (c *deflateCompressor) Compress(p []byte) ([]byte, error) {
	c.buf.Reset()
	if _, err := c.w.Write(p); err != nil {
		return nil, trace.ConnectionProblem(err, "deflate compression failed")
	}
	if err := c.w.Flush(); err != nil {
		return nil, trace.ConnectionProblem(err, "deflate compression failed")
	}
	return bytes.Clone(c.buf.Bytes()), nil
}

// zstdCompressor keeps one zstd stream per connection.
type zstdCompressor struct {
	buf bytes.Buffer
	w   *zstd.Encoder
}

// Compress compresses one envelope payload.
func (c *zstdCompressor) Compress(p []byte) ([]byte, error) {
	c.buf.Reset()
	if _, err := c.w.Write(p); err != nil {
		return nil, trace.ConnectionProblem(err, "zstd compression failed")
	}
	if err := c.w.Flush(); err != nil {
		return nil, trace.ConnectionProblem(err, "zstd compression failed")
	}
	return bytes.Clone(c.buf.Bytes()), nil
}

// lz4Compressor compresses each envelope as a standalone LZ4 frame; no
// state survives between envelopes.
type lz4Compressor struct{}

// Compress compresses one envelope payload.
func (lz4Compressor) Compress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(p); err != nil {
		return nil, trace.ConnectionProblem(err, "lz4 compression failed")
	}
	if err := w.Close(); err != nil {
		return nil, trace.ConnectionProblem(err, "lz4 compression failed")
	}
	return buf.Bytes(), nil
}

// streamDecompressor feeds envelope payloads into one long decode stream.
// The decoder is created lazily on the first Feed so it never observes an
// empty source.
type streamDecompressor struct {
	in   bytes.Buffer
	r    io.Reader
	open func() io.Reader
}

// Feed hands the compressed payload of the next envelope to the
// decompressor.
func (d *streamDecompressor) Feed(p []byte) error {
	d.in.Write(p)
	if d.r == nil {
		d.r = d.open()
	}
	return nil
}

// Read produces uncompressed bytes.
func (d *streamDecompressor) Read(p []byte) (int, error) {
	if d.r == nil {
		return 0, trace.ConnectionProblem(nil, "no compressed data fed")
	}
	n, err := d.r.Read(p)
	if err != nil && err != io.EOF {
		return n, trace.ConnectionProblem(err, "corrupt compressed stream")
	}
	return n, err
}

// lz4Decompressor restarts decoding at every envelope since each one is an
// independent LZ4 frame.
type lz4Decompressor struct {
	in bytes.Buffer
	r  *lz4.Reader
}

// Feed hands the compressed payload of the next envelope to the
// decompressor.
func (d *lz4Decompressor) Feed(p []byte) error {
	d.in.Reset()
	d.in.Write(p)
	d.r = lz4.NewReader(&d.in)
	return nil
}

// Read produces uncompressed bytes.
func (d *lz4Decompressor) Read(p []byte) (int, error) {
	if d.r == nil {
		return 0, trace.ConnectionProblem(nil, "no compressed data fed")
	}
	n, err := d.r.Read(p)
	if err != nil && err != io.EOF {
		return n, trace.ConnectionProblem(err, "corrupt compressed stream")
	}
	return n, err
}

// errReader surfaces a deferred constructor error on first read.
type errReader struct {
	err error
}

func (r *errReader) Read([]byte) (int, error) {
	return 0, r.err
}
