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

	"github.com/cadredata/xwire/lib/xproto/value"
)

// Notice payload types carried inside a notice frame.
const (
	// NoticeWarning is a server warning tied to the current operation.
	NoticeWarning uint32 = 1
	// NoticeSessionVariableChanged reports a changed session variable.
	NoticeSessionVariableChanged uint32 = 2
	// NoticeSessionStateChanged reports a session state change such as
	// rows affected or a generated insert id.
	NoticeSessionStateChanged uint32 = 3
)

// NoticeScope says whether a notice refers to the current operation or the
// connection as a whole.
type NoticeScope uint32

const (
	// ScopeGlobal is a connection-wide notice.
	ScopeGlobal NoticeScope = 1
	// ScopeLocal is a notice about the current operation.
	ScopeLocal NoticeScope = 2
)

// Notice is the asynchronous server-pushed info message. It can arrive
// interleaved with any reply; the payload is decoded on demand according
// to Type.
type Notice struct {
	// Type identifies the payload shape.
	Type uint32
	// Scope is the notice scope. Defaults to global on the wire.
	Scope NoticeScope
	// Payload is the encoded notice body.
	Payload []byte
}

// MarshalPayload appends the payload encoding to dst.
func (m *Notice) MarshalPayload(dst []byte) ([]byte, error) {
	dst = protowire.AppendTag(dst, 1, protowire.VarintType)
	dst = protowire.AppendVarint(dst, uint64(m.Type))
	if m.Scope != 0 {
		dst = protowire.AppendTag(dst, 2, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(m.Scope))
	}
	if len(m.Payload) > 0 {
		dst = protowire.AppendTag(dst, 3, protowire.BytesType)
		dst = protowire.AppendBytes(dst, m.Payload)
	}
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *Notice) UnmarshalPayload(b []byte) error {
	m.Scope = ScopeGlobal
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			m.Type = uint32(f.varint())
		case 2:
			m.Scope = NoticeScope(f.varint())
		case 3:
			m.Payload = append([]byte(nil), f.bytes()...)
		default:
			f.skip()
		}
	}
	return trace.Wrap(f.err)
}

// Warning decodes the notice payload as a server warning. Only valid when
// Type is NoticeWarning.
func (m *Notice) Warning() (*Warning, error) {
	if m.Type != NoticeWarning {
		return nil, trace.BadParameter("notice type %d is not a warning", m.Type)
	}
	var w Warning
	if err := w.UnmarshalPayload(m.Payload); err != nil {
		return nil, trace.Wrap(err)
	}
	return &w, nil
}

// SessionStateChange decodes the notice payload as a session state change.
// Only valid when Type is NoticeSessionStateChanged.
func (m *Notice) SessionStateChange() (*SessionStateChanged, error) {
	if m.Type != NoticeSessionStateChanged {
		return nil, trace.BadParameter("notice type %d is not a session state change", m.Type)
	}
	var s SessionStateChanged
	if err := s.UnmarshalPayload(m.Payload); err != nil {
		return nil, trace.Wrap(err)
	}
	return &s, nil
}

// Warning levels.
const (
	WarningLevelNote    uint32 = 1
	WarningLevelWarning uint32 = 2
	WarningLevelError   uint32 = 3
)

// Warning is the body of a warning notice.
type Warning struct {
	// Level is the warning severity.
	Level uint32
	// Code is the server warning code.
	Code uint32
	// Message is the warning text.
	Message string
}

// MarshalPayload appends the payload encoding to dst.
func (m *Warning) MarshalPayload(dst []byte) ([]byte, error) {
	if m.Level != 0 {
		dst = protowire.AppendTag(dst, 1, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(m.Level))
	}
	dst = protowire.AppendTag(dst, 2, protowire.VarintType)
	dst = protowire.AppendVarint(dst, uint64(m.Code))
	dst = protowire.AppendTag(dst, 3, protowire.BytesType)
	dst = protowire.AppendString(dst, m.Message)
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *Warning) UnmarshalPayload(b []byte) error {
	m.Level = WarningLevelWarning
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			m.Level = uint32(f.varint())
		case 2:
			m.Code = uint32(f.varint())
		case 3:
			m.Message = f.str()
		default:
			f.skip()
		}
	}
	return trace.Wrap(f.err)
}

// Session state change parameters.
const (
	StateGeneratedInsertID uint32 = 3
	StateRowsAffected      uint32 = 4
	StateProducedMessage   uint32 = 10
	StateClientIDAssigned  uint32 = 11
)

// SessionStateChanged is the body of a session state change notice.
type SessionStateChanged struct {
	// Param identifies which piece of session state changed.
	Param uint32
	// Values holds the new value(s), if any.
	Values []value.Value
}

// MarshalPayload appends the payload encoding to dst.
func (m *SessionStateChanged) MarshalPayload(dst []byte) ([]byte, error) {
	dst = protowire.AppendTag(dst, 1, protowire.VarintType)
	dst = protowire.AppendVarint(dst, uint64(m.Param))
	for _, v := range m.Values {
		sc, err := value.AppendScalar(nil, v)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		dst = protowire.AppendTag(dst, 2, protowire.BytesType)
		dst = protowire.AppendBytes(dst, sc)
	}
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *SessionStateChanged) UnmarshalPayload(b []byte) error {
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			m.Param = uint32(f.varint())
		case 2:
			sc, err := value.DecodeScalar(f.bytes())
			if err != nil {
				return trace.Wrap(err)
			}
			m.Values = append(m.Values, sc)
		default:
			f.skip()
		}
	}
	return trace.Wrap(f.err)
}
