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
	"github.com/gravitational/trace"

	"github.com/cadredata/xwire/lib/xproto/frame"
	"github.com/cadredata/xwire/lib/xproto/message"
)

// DefaultThreshold is the frame size below which compression is not worth
// the envelope overhead. Matches the connector's default.
const DefaultThreshold = 1000

// Writer queues outgoing frames, wrapping those above the size threshold
// in compression envelopes. Without a compressor it degrades to plain
// frame queueing.
type Writer struct {
	fw        *frame.Writer
	cmp       Compressor
	threshold int
}

// NewWriter wraps a frame writer. cmp may be nil when compression was not
// negotiated. A zero threshold means DefaultThreshold.
func NewWriter(fw *frame.Writer, cmp Compressor, threshold int) *Writer {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Writer{fw: fw, cmp: cmp, threshold: threshold}
}

// SetCompressor installs the compressor once compression has been
// negotiated mid-connection.
func (w *Writer) SetCompressor(cmp Compressor) {
	w.cmp = cmp
}

// Queue appends one client message frame to the pending write buffer,
// wrapping it in a compression envelope when it is large enough.
func (w *Writer) Queue(typ message.ClientType, payload []byte) error {
	if w.cmp == nil || len(payload)+frame.HeaderSize < w.threshold {
		w.fw.Queue(byte(typ), payload)
		return nil
	}
	raw := frame.Append(nil, byte(typ), payload)
	compressed, err := w.cmp.Compress(raw)
	if err != nil {
		return trace.Wrap(err)
	}
	env := message.Compression{
		UncompressedSize: uint64(len(raw)),
		Payload:          compressed,
	}
	env.SetClientMessages(typ)
	envPayload, err := env.MarshalPayload(nil)
	if err != nil {
		return trace.Wrap(err)
	}
	w.fw.Queue(byte(message.ClientCompression), envPayload)
	return nil
}

// Pending reports how many bytes are queued and not yet flushed.
func (w *Writer) Pending() int {
	return w.fw.Pending()
}

// Flush writes all queued frames to the stream as a single write.
func (w *Writer) Flush() error {
	return trace.Wrap(w.fw.Flush())
}
