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
	"fmt"

	"github.com/gravitational/trace"
	"google.golang.org/protobuf/encoding/protowire"
)

// Severity of a server-reported error.
type Severity uint32

const (
	// SeverityError is a statement-level failure; the connection remains
	// usable once the current reply is drained.
	SeverityError Severity = 0
	// SeverityFatal means the server will close the connection.
	SeverityFatal Severity = 1
)

// Ok is the generic acknowledgement message.
type Ok struct {
	// Message is an optional human-readable note.
	Message string
}

// MarshalPayload appends the payload encoding to dst.
func (m *Ok) MarshalPayload(dst []byte) ([]byte, error) {
	if m.Message != "" {
		dst = protowire.AppendTag(dst, 1, protowire.BytesType)
		dst = protowire.AppendString(dst, m.Message)
	}
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *Ok) UnmarshalPayload(b []byte) error {
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			m.Message = f.str()
		default:
			f.skip()
		}
	}
	return trace.Wrap(f.err)
}

// Error is the server-reported failure message. It implements the error
// interface so it can be surfaced to callers directly.
type Error struct {
	// Severity says whether the connection survives the error.
	Severity Severity
	// Code is the server error code.
	Code uint32
	// SQLState is the five-character SQLSTATE string.
	SQLState string
	// Message is the human-readable description.
	Message string
}

// Error returns a one-line rendering of the server error.
func (m *Error) Error() string {
	return fmt.Sprintf("server error %d (%s): %s", m.Code, m.SQLState, m.Message)
}

// MarshalPayload appends the payload encoding to dst.
func (m *Error) MarshalPayload(dst []byte) ([]byte, error) {
	dst = protowire.AppendTag(dst, 1, protowire.VarintType)
	dst = protowire.AppendVarint(dst, uint64(m.Severity))
	dst = protowire.AppendTag(dst, 2, protowire.VarintType)
	dst = protowire.AppendVarint(dst, uint64(m.Code))
	dst = protowire.AppendTag(dst, 3, protowire.BytesType)
	dst = protowire.AppendString(dst, m.Message)
	dst = protowire.AppendTag(dst, 4, protowire.BytesType)
	dst = protowire.AppendString(dst, m.SQLState)
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *Error) UnmarshalPayload(b []byte) error {
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			m.Severity = Severity(f.varint())
		case 2:
			m.Code = uint32(f.varint())
		case 3:
			m.Message = f.str()
		case 4:
			m.SQLState = f.str()
		default:
			f.skip()
		}
	}
	return trace.Wrap(f.err)
}

// StmtExecuteOk is the terminal acknowledgement closing a statement reply.
type StmtExecuteOk struct{}

// MarshalPayload appends the payload encoding to dst.
func (m *StmtExecuteOk) MarshalPayload(dst []byte) ([]byte, error) {
	return dst, nil
}

// UnmarshalPayload parses the payload. The message has no fields; unknown
// ones are ignored.
func (m *StmtExecuteOk) UnmarshalPayload(b []byte) error {
	return trace.Wrap(skipAll(b))
}

// FetchDone signals the end of the last result set of a reply.
type FetchDone struct{}

// MarshalPayload appends the payload encoding to dst.
func (m *FetchDone) MarshalPayload(dst []byte) ([]byte, error) {
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *FetchDone) UnmarshalPayload(b []byte) error {
	return trace.Wrap(skipAll(b))
}

// FetchDoneMoreResultsets signals the end of one result set with more to
// follow.
type FetchDoneMoreResultsets struct{}

// MarshalPayload appends the payload encoding to dst.
func (m *FetchDoneMoreResultsets) MarshalPayload(dst []byte) ([]byte, error) {
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *FetchDoneMoreResultsets) UnmarshalPayload(b []byte) error {
	return trace.Wrap(skipAll(b))
}

// FetchDoneMoreOutParams signals the end of a result set with a procedure
// out-parameter result set to follow.
type FetchDoneMoreOutParams struct{}

// MarshalPayload appends the payload encoding to dst.
func (m *FetchDoneMoreOutParams) MarshalPayload(dst []byte) ([]byte, error) {
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *FetchDoneMoreOutParams) UnmarshalPayload(b []byte) error {
	return trace.Wrap(skipAll(b))
}

// FetchSuspended signals that a cursor paused row delivery before the
// result set was exhausted.
type FetchSuspended struct{}

// MarshalPayload appends the payload encoding to dst.
func (m *FetchSuspended) MarshalPayload(dst []byte) ([]byte, error) {
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *FetchSuspended) UnmarshalPayload(b []byte) error {
	return trace.Wrap(skipAll(b))
}

// skipAll validates and discards every field of a payload.
func skipAll(b []byte) error {
	f := fields{buf: b}
	for f.next() {
		f.skip()
	}
	return f.err
}
