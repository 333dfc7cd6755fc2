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

package frame

import (
	"io"

	"github.com/gravitational/trace"
)

// Source produces protocol frames. Implemented by Reader for raw streams
// and by the compression layer for streams with negotiated compression.
type Source interface {
	// ReadFrame returns the next frame. The frame payload is only valid
	// until the following ReadFrame call.
	ReadFrame() (Frame, error)
}

// Reader reads frames off a byte stream, header first, then payload. The
// payload buffer is reused across frames.
type Reader struct {
	r   io.Reader
	max uint32

	header [HeaderSize]byte
	buf    []byte
}

// NewReader returns a Reader over the given stream. maxPayload bounds the
// payload size of a single frame; zero means DefaultMaxPayloadSize.
func NewReader(r io.Reader, maxPayload uint32) *Reader {
	if maxPayload == 0 {
		maxPayload = DefaultMaxPayloadSize
	}
	return &Reader{r: r, max: maxPayload}
}

// ReadFrame reads the next frame from the stream. A frame that announces a
// payload larger than the configured maximum fails with a limit-exceeded
// error before any payload memory is allocated; the stream is unusable
// after that since the oversized payload was not consumed.
func (r *Reader) ReadFrame() (Frame, error) {
	if _, err := io.ReadFull(r.r, r.header[:]); err != nil {
		return Frame{}, trace.ConvertSystemError(err)
	}
	length, typ, err := DecodeHeader(r.header[:])
	if err != nil {
		return Frame{}, trace.Wrap(err)
	}
	if length == 0 {
		return Frame{}, trace.BadParameter("malformed frame header: zero length")
	}
	payloadLen := length - 1
	if payloadLen > r.max {
		return Frame{}, trace.LimitExceeded("frame payload of %d bytes exceeds the maximum of %d", payloadLen, r.max)
	}
	r.buf = grow(r.buf, int(payloadLen))
	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		return Frame{}, trace.ConvertSystemError(err)
	}
	return Frame{Type: typ, Payload: r.buf}, nil
}
