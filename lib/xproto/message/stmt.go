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

// DefaultNamespace is the statement namespace for plain SQL.
const DefaultNamespace = "sql"

// StmtExecute submits one statement for execution. Arguments are
// positional; named placeholders must have been converted to positions by
// the builder layer before this message is constructed.
type StmtExecute struct {
	// Namespace selects the statement dialect. Empty means
	// DefaultNamespace.
	Namespace string
	// Stmt is the statement text.
	Stmt []byte
	// Args holds the positional argument values.
	Args []value.Value
	// CompactMetadata asks the server to skip the optional column
	// metadata fields.
	CompactMetadata bool
}

// ClientType returns the frame type tag of the message.
func (m *StmtExecute) ClientType() ClientType {
	return ClientStmtExecute
}

// MarshalPayload appends the payload encoding to dst.
func (m *StmtExecute) MarshalPayload(dst []byte) ([]byte, error) {
	dst = protowire.AppendTag(dst, 1, protowire.BytesType)
	dst = protowire.AppendBytes(dst, m.Stmt)
	for _, arg := range m.Args {
		av, err := value.AppendAny(nil, arg)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		dst = protowire.AppendTag(dst, 2, protowire.BytesType)
		dst = protowire.AppendBytes(dst, av)
	}
	if m.Namespace != "" && m.Namespace != DefaultNamespace {
		dst = protowire.AppendTag(dst, 3, protowire.BytesType)
		dst = protowire.AppendString(dst, m.Namespace)
	}
	if m.CompactMetadata {
		dst = protowire.AppendTag(dst, 4, protowire.VarintType)
		dst = protowire.AppendVarint(dst, 1)
	}
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *StmtExecute) UnmarshalPayload(b []byte) error {
	m.Namespace = DefaultNamespace
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			m.Stmt = append([]byte(nil), f.bytes()...)
		case 2:
			v, err := value.DecodeAny(f.bytes())
			if err != nil {
				return trace.Wrap(err)
			}
			m.Args = append(m.Args, v)
		case 3:
			m.Namespace = f.str()
		case 4:
			m.CompactMetadata = f.varint() != 0
		default:
			f.skip()
		}
	}
	return trace.Wrap(f.err)
}
