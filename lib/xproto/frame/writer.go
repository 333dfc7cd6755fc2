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

// Writer queues encoded frames and flushes them to a byte stream in a
// single write. Queueing several frames before a flush is how pipelined
// requests go out as one write.
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter returns a Writer over the given stream.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Queue appends an encoded frame to the pending write buffer without
// performing any I/O.
func (w *Writer) Queue(typ byte, payload []byte) {
	w.buf = Append(w.buf, typ, payload)
}

// QueueRaw appends already-framed bytes to the pending write buffer.
func (w *Writer) QueueRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Pending reports how many bytes are queued and not yet flushed.
func (w *Writer) Pending() int {
	return len(w.buf)
}

// Flush writes all queued frames to the stream. The queue is kept intact
// on error so the caller can observe what was pending, though after a
// failed flush the stream must be considered unusable.
func (w *Writer) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	if _, err := w.w.Write(w.buf); err != nil {
		return trace.ConvertSystemError(err)
	}
	w.buf = w.buf[:0]
	return nil
}
