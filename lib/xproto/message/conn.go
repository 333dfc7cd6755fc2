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

// ConnClose asks the server to close the connection. The server answers
// with Ok before the stream goes away.
type ConnClose struct{}

// ClientType returns the frame type tag of the message.
func (m *ConnClose) ClientType() ClientType {
	return ClientConnClose
}

// MarshalPayload appends the payload encoding to dst.
func (m *ConnClose) MarshalPayload(dst []byte) ([]byte, error) {
	return dst, nil
}

// SessionReset rolls the session back to a clean state without tearing
// down the connection.
type SessionReset struct {
	// KeepOpen keeps the session authenticated; otherwise the server
	// expects a fresh authentication exchange afterwards.
	KeepOpen bool
}

// ClientType returns the frame type tag of the message.
func (m *SessionReset) ClientType() ClientType {
	return ClientSessionReset
}

// MarshalPayload appends the payload encoding to dst.
func (m *SessionReset) MarshalPayload(dst []byte) ([]byte, error) {
	if m.KeepOpen {
		dst = protowire.AppendTag(dst, 1, protowire.VarintType)
		dst = protowire.AppendVarint(dst, 1)
	}
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *SessionReset) UnmarshalPayload(b []byte) error {
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			m.KeepOpen = f.varint() != 0
		default:
			f.skip()
		}
	}
	return trace.Wrap(f.err)
}

// SessionClose closes the current session while keeping the connection
// available for a fresh authentication.
type SessionClose struct{}

// ClientType returns the frame type tag of the message.
func (m *SessionClose) ClientType() ClientType {
	return ClientSessionClose
}

// MarshalPayload appends the payload encoding to dst.
func (m *SessionClose) MarshalPayload(dst []byte) ([]byte, error) {
	return dst, nil
}
