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

package message

import (
	"github.com/gravitational/trace"
	"google.golang.org/protobuf/encoding/protowire"
)

// Compression is the envelope wrapping compressed frames. Its payload
// decompresses to one or more complete frames (header, type tag and
// payload) totalling UncompressedSize bytes. The original-type fields are
// bookkeeping for single-message envelopes; multi-frame envelopes leave
// them unset.
type Compression struct {
	// UncompressedSize is the total size of the wrapped frames before
	// compression.
	UncompressedSize uint64
	// ServerMessages is the wrapped type for a single server message.
	ServerMessages ServerType
	// ClientMessages is the wrapped type for a single client message.
	ClientMessages ClientType
	// Payload is the compressed bytes.
	Payload []byte

	// hasServerType and hasClientType record which optional original-type
	// fields were present on the wire.
	hasServerType bool
	hasClientType bool
}

// ClientType returns the frame type tag of the client-side envelope.
func (m *Compression) ClientType() ClientType {
	return ClientCompression
}

// SetServerMessages records the original server message type.
func (m *Compression) SetServerMessages(t ServerType) {
	m.ServerMessages, m.hasServerType = t, true
}

// SetClientMessages records the original client message type.
func (m *Compression) SetClientMessages(t ClientType) {
	m.ClientMessages, m.hasClientType = t, true
}

// MarshalPayload appends the payload encoding to dst.
func (m *Compression) MarshalPayload(dst []byte) ([]byte, error) {
	dst = protowire.AppendTag(dst, 1, protowire.VarintType)
	dst = protowire.AppendVarint(dst, m.UncompressedSize)
	if m.hasServerType {
		dst = protowire.AppendTag(dst, 2, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(m.ServerMessages))
	}
	if m.hasClientType {
		dst = protowire.AppendTag(dst, 3, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(m.ClientMessages))
	}
	dst = protowire.AppendTag(dst, 4, protowire.BytesType)
	dst = protowire.AppendBytes(dst, m.Payload)
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *Compression) UnmarshalPayload(b []byte) error {
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			m.UncompressedSize = f.varint()
		case 2:
			m.ServerMessages, m.hasServerType = ServerType(f.varint()), true
		case 3:
			m.ClientMessages, m.hasClientType = ClientType(f.varint()), true
		case 4:
			m.Payload = append([]byte(nil), f.bytes()...)
		default:
			f.skip()
		}
	}
	return trace.Wrap(f.err)
}
