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

// Package frame implements the length-prefixed framing of the X wire
// protocol.
//
// Every unit on the wire is a frame:
//
//	[4 bytes length, little-endian][1 byte type tag][length-1 bytes payload]
//
// The length counts the type tag plus the payload, so an empty message
// still has length 1. The codec performs no I/O of its own beyond reading
// already-framed bytes off a reader and queueing encoded bytes for a
// separate write step.
package frame

import (
	"encoding/binary"

	"github.com/gravitational/trace"
)

const (
	// HeaderSize is the size of the frame header: 4-byte length plus
	// 1-byte type tag.
	HeaderSize = 5
	// lengthSize is the size of the length prefix alone.
	lengthSize = 4

	// DefaultMaxPayloadSize bounds the payload of a single frame. Matches
	// the server's default mysqlx_max_allowed_packet.
	DefaultMaxPayloadSize = 64 * 1024 * 1024
)

// Frame is one parsed unit of wire data.
type Frame struct {
	// Type is the message type tag.
	Type byte
	// Payload is the message payload, not including the type tag. It is
	// only valid until the next read on the Reader that produced it.
	Payload []byte
}

// Append appends a complete encoded frame for the given type tag and
// payload to dst and returns the extended slice.
func Append(dst []byte, typ byte, payload []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(payload))+1)
	dst = append(dst, typ)
	return append(dst, payload...)
}

// EncodeHeader writes the 5-byte frame header for a payload of the given
// length into dst.
func EncodeHeader(dst *[HeaderSize]byte, typ byte, payloadLen int) {
	binary.LittleEndian.PutUint32(dst[:lengthSize], uint32(payloadLen)+1)
	dst[lengthSize] = typ
}

// DecodeHeader parses a frame header. The returned length is the raw wire
// value, i.e. payload length plus one for the type tag. The only failure
// mode is insufficient input.
func DecodeHeader(header []byte) (length uint32, typ byte, err error) {
	if len(header) < HeaderSize {
		return 0, 0, trace.BadParameter("frame header requires %d bytes, got %d", HeaderSize, len(header))
	}
	return binary.LittleEndian.Uint32(header[:lengthSize]), header[lengthSize], nil
}

// grow returns a buffer with capacity for at least n bytes, reusing buf
// when possible. Growth is geometric so repeated large frames do not
// reallocate every time.
func grow(buf []byte, n int) []byte {
	if cap(buf) >= n {
		return buf[:n]
	}
	size := cap(buf)*2 + n
	return make([]byte, n, size)
}
