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

package compress

import (
	"io"

	"github.com/gravitational/trace"

	"github.com/cadredata/xwire/lib/xproto/frame"
	"github.com/cadredata/xwire/lib/xproto/message"
)

// Reader is a frame source that transparently unwraps COMPRESSION
// envelopes. While an envelope's uncompressed byte budget lasts, frame
// headers and payloads come out of the decompressor instead of the raw
// stream; once it is exhausted, raw reads resume.
type Reader struct {
	src *frame.Reader
	dec Decompressor
	max uint32

	// remaining is the uncompressed byte budget left in the envelope
	// being unwrapped, zero when reading raw frames.
	remaining uint64
	header    [frame.HeaderSize]byte
	buf       []byte
}

// NewReader wraps a raw frame reader. dec may be nil when compression was
// not negotiated, in which case an incoming envelope is a protocol error.
// maxPayload bounds decompressed frame payloads the same way the raw
// reader bounds raw ones; zero means frame.DefaultMaxPayloadSize.
func NewReader(src *frame.Reader, dec Decompressor, maxPayload uint32) *Reader {
	if maxPayload == 0 {
		maxPayload = frame.DefaultMaxPayloadSize
	}
	return &Reader{src: src, dec: dec, max: maxPayload}
}

// SetDecompressor installs the decompressor once compression has been
// negotiated mid-connection.
func (r *Reader) SetDecompressor(dec Decompressor) {
	r.dec = dec
}

// ReadFrame returns the next logical frame, reading through envelopes as
// needed.
func (r *Reader) ReadFrame() (frame.Frame, error) {
	if r.remaining == 0 {
		f, err := r.src.ReadFrame()
		if err != nil {
			return frame.Frame{}, trace.Wrap(err)
		}
		if message.ServerType(f.Type) != message.ServerCompression {
			return f, nil
		}
		if err := r.openEnvelope(f.Payload); err != nil {
			return frame.Frame{}, trace.Wrap(err)
		}
	}
	return r.readDecompressed()
}

// openEnvelope decodes an envelope frame and feeds its payload to the
// decompressor.
func (r *Reader) openEnvelope(payload []byte) error {
	if r.dec == nil {
		return trace.ConnectionProblem(nil, "received a compressed frame but compression was not negotiated")
	}
	var env message.Compression
	if err := env.UnmarshalPayload(payload); err != nil {
		return trace.Wrap(err)
	}
	if env.UncompressedSize == 0 || len(env.Payload) == 0 {
		return trace.ConnectionProblem(nil, "malformed compression envelope")
	}
	if err := r.dec.Feed(env.Payload); err != nil {
		return trace.Wrap(err)
	}
	r.remaining = env.UncompressedSize
	return nil
}

// readDecompressed reads one complete frame out of the current envelope's
// uncompressed bytes.
func (r *Reader) readDecompressed() (frame.Frame, error) {
	if err := r.readFull(r.header[:]); err != nil {
		return frame.Frame{}, trace.Wrap(err)
	}
	length, typ, err := frame.DecodeHeader(r.header[:])
	if err != nil {
		return frame.Frame{}, trace.Wrap(err)
	}
	if length == 0 {
		return frame.Frame{}, trace.ConnectionProblem(nil, "malformed frame header in compressed envelope")
	}
	payloadLen := length - 1
	if payloadLen > r.max {
		return frame.Frame{}, trace.LimitExceeded("frame payload of %d bytes exceeds the maximum of %d", payloadLen, r.max)
	}
	if cap(r.buf) < int(payloadLen) {
		r.buf = make([]byte, payloadLen, cap(r.buf)*2+int(payloadLen))
	}
	r.buf = r.buf[:payloadLen]
	if err := r.readFull(r.buf); err != nil {
		return frame.Frame{}, trace.Wrap(err)
	}
	return frame.Frame{Type: typ, Payload: r.buf}, nil
}

// readFull fills p from the decompressor, charging the envelope budget.
// A frame that straddles the envelope boundary means the peer lied about
// the uncompressed size, which is unrecoverable.
func (r *Reader) readFull(p []byte) error {
	if uint64(len(p)) > r.remaining {
		return trace.ConnectionProblem(nil, "compressed envelope ends mid-frame")
	}
	if _, err := io.ReadFull(r.dec, p); err != nil {
		return trace.ConnectionProblem(err, "short read from compressed envelope")
	}
	r.remaining -= uint64(len(p))
	return nil
}
