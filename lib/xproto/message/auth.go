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

// AuthenticateStart opens the authentication exchange with a mechanism
// name and optional initial data.
type AuthenticateStart struct {
	// MechName is the SASL-style mechanism name, e.g. "PLAIN" or
	// "MYSQL41".
	MechName string
	// AuthData is the mechanism-specific initial payload.
	AuthData []byte
	// InitialResponse is an optional response sent along with the start
	// message for mechanisms that support it.
	InitialResponse []byte
}

// ClientType returns the frame type tag of the message.
func (m *AuthenticateStart) ClientType() ClientType {
	return ClientAuthStart
}

// MarshalPayload appends the payload encoding to dst.
func (m *AuthenticateStart) MarshalPayload(dst []byte) ([]byte, error) {
	dst = protowire.AppendTag(dst, 1, protowire.BytesType)
	dst = protowire.AppendString(dst, m.MechName)
	if len(m.AuthData) > 0 {
		dst = protowire.AppendTag(dst, 2, protowire.BytesType)
		dst = protowire.AppendBytes(dst, m.AuthData)
	}
	if len(m.InitialResponse) > 0 {
		dst = protowire.AppendTag(dst, 3, protowire.BytesType)
		dst = protowire.AppendBytes(dst, m.InitialResponse)
	}
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *AuthenticateStart) UnmarshalPayload(b []byte) error {
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			m.MechName = f.str()
		case 2:
			m.AuthData = append([]byte(nil), f.bytes()...)
		case 3:
			m.InitialResponse = append([]byte(nil), f.bytes()...)
		default:
			f.skip()
		}
	}
	return trace.Wrap(f.err)
}

// AuthenticateContinue carries one round of challenge or response data.
// The same shape flows in both directions under different type tags.
type AuthenticateContinue struct {
	// AuthData is the mechanism-specific payload.
	AuthData []byte
}

// ClientType returns the frame type tag of the message.
func (m *AuthenticateContinue) ClientType() ClientType {
	return ClientAuthContinue
}

// MarshalPayload appends the payload encoding to dst.
func (m *AuthenticateContinue) MarshalPayload(dst []byte) ([]byte, error) {
	dst = protowire.AppendTag(dst, 1, protowire.BytesType)
	dst = protowire.AppendBytes(dst, m.AuthData)
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *AuthenticateContinue) UnmarshalPayload(b []byte) error {
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			m.AuthData = append([]byte(nil), f.bytes()...)
		default:
			f.skip()
		}
	}
	return trace.Wrap(f.err)
}

// AuthenticateOk closes a successful authentication exchange.
type AuthenticateOk struct {
	// AuthData is an optional final mechanism payload.
	AuthData []byte
}

// MarshalPayload appends the payload encoding to dst.
func (m *AuthenticateOk) MarshalPayload(dst []byte) ([]byte, error) {
	if len(m.AuthData) > 0 {
		dst = protowire.AppendTag(dst, 1, protowire.BytesType)
		dst = protowire.AppendBytes(dst, m.AuthData)
	}
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *AuthenticateOk) UnmarshalPayload(b []byte) error {
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			m.AuthData = append([]byte(nil), f.bytes()...)
		default:
			f.skip()
		}
	}
	return trace.Wrap(f.err)
}
