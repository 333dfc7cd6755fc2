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

// ClientMessage is an outgoing protocol message: it knows its frame type
// tag and how to append its payload encoding.
type ClientMessage interface {
	// ClientType returns the frame type tag of the message.
	ClientType() ClientType
	// MarshalPayload appends the payload encoding to dst.
	MarshalPayload(dst []byte) ([]byte, error)
}

// fields iterates the protobuf fields of a payload. Decoders loop with
// next, read the fields they know, and skip the rest, so unknown fields
// added by newer servers pass through silently. The first malformed byte
// sequence sticks as the reader error.
type fields struct {
	buf []byte
	num protowire.Number
	typ protowire.Type
	err error
}

// next advances to the next field, returning false at end of payload or on
// a parse error.
func (f *fields) next() bool {
	if f.err != nil || len(f.buf) == 0 {
		return false
	}
	num, typ, n := protowire.ConsumeTag(f.buf)
	if n < 0 {
		f.err = trace.Wrap(protowire.ParseError(n), "malformed message payload")
		return false
	}
	f.buf = f.buf[n:]
	f.num, f.typ = num, typ
	return true
}

// varint reads the current field as a varint.
func (f *fields) varint() uint64 {
	v, n := protowire.ConsumeVarint(f.buf)
	if n < 0 {
		f.err = trace.Wrap(protowire.ParseError(n), "malformed message payload")
		return 0
	}
	f.buf = f.buf[n:]
	return v
}

// bytes reads the current field as a length-delimited value. The returned
// slice aliases the payload.
func (f *fields) bytes() []byte {
	v, n := protowire.ConsumeBytes(f.buf)
	if n < 0 {
		f.err = trace.Wrap(protowire.ParseError(n), "malformed message payload")
		return nil
	}
	f.buf = f.buf[n:]
	return v
}

// str reads the current field as a string.
func (f *fields) str() string {
	return string(f.bytes())
}

// skip discards the current field whatever its type.
func (f *fields) skip() {
	n := protowire.ConsumeFieldValue(f.num, f.typ, f.buf)
	if n < 0 {
		f.err = trace.Wrap(protowire.ParseError(n), "malformed message payload")
		return
	}
	f.buf = f.buf[n:]
}
