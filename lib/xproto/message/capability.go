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

// Capability is one named capability; the value reuses the Any value tree,
// so capabilities can carry scalars as well as documents (the compression
// capability is a document, for example).
type Capability struct {
	// Name is the capability name, e.g. "tls" or "compression".
	Name string
	// Value is the capability value.
	Value value.Value
}

// Capabilities is the capability document exchanged before authentication.
type Capabilities struct {
	// Capabilities holds the entries in server order.
	Capabilities []Capability
}

// Get returns the value of the named capability.
func (m *Capabilities) Get(name string) (value.Value, bool) {
	for _, c := range m.Capabilities {
		if c.Name == name {
			return c.Value, true
		}
	}
	return value.Value{}, false
}

// MarshalPayload appends the payload encoding to dst.
func (m *Capabilities) MarshalPayload(dst []byte) ([]byte, error) {
	for _, c := range m.Capabilities {
		av, err := value.AppendAny(nil, c.Value)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		var cap []byte
		cap = protowire.AppendTag(cap, 1, protowire.BytesType)
		cap = protowire.AppendString(cap, c.Name)
		cap = protowire.AppendTag(cap, 2, protowire.BytesType)
		cap = protowire.AppendBytes(cap, av)
		dst = protowire.AppendTag(dst, 1, protowire.BytesType)
		dst = protowire.AppendBytes(dst, cap)
	}
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *Capabilities) UnmarshalPayload(b []byte) error {
	f := fields{buf: b}
	for f.next() {
		if f.num != 1 {
			f.skip()
			continue
		}
		c, err := unmarshalCapability(f.bytes())
		if err != nil {
			return trace.Wrap(err)
		}
		m.Capabilities = append(m.Capabilities, c)
	}
	return trace.Wrap(f.err)
}

func unmarshalCapability(b []byte) (Capability, error) {
	var c Capability
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			c.Name = f.str()
		case 2:
			v, err := value.DecodeAny(f.bytes())
			if err != nil {
				return Capability{}, trace.Wrap(err)
			}
			c.Value = v
		default:
			f.skip()
		}
	}
	return c, trace.Wrap(f.err)
}

// CapabilitiesGet asks the server for its capability document.
type CapabilitiesGet struct{}

// ClientType returns the frame type tag of the message.
func (m *CapabilitiesGet) ClientType() ClientType {
	return ClientCapabilitiesGet
}

// MarshalPayload appends the payload encoding to dst.
func (m *CapabilitiesGet) MarshalPayload(dst []byte) ([]byte, error) {
	return dst, nil
}

// CapabilitiesSet asks the server to apply the given capability values.
type CapabilitiesSet struct {
	// Capabilities holds the requested settings.
	Capabilities Capabilities
}

// ClientType returns the frame type tag of the message.
func (m *CapabilitiesSet) ClientType() ClientType {
	return ClientCapabilitiesSet
}

// MarshalPayload appends the payload encoding to dst.
func (m *CapabilitiesSet) MarshalPayload(dst []byte) ([]byte, error) {
	caps, err := m.Capabilities.MarshalPayload(nil)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	dst = protowire.AppendTag(dst, 1, protowire.BytesType)
	return protowire.AppendBytes(dst, caps), nil
}

// UnmarshalPayload parses the payload.
func (m *CapabilitiesSet) UnmarshalPayload(b []byte) error {
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			if err := m.Capabilities.UnmarshalPayload(f.bytes()); err != nil {
				return trace.Wrap(err)
			}
		default:
			f.skip()
		}
	}
	return trace.Wrap(f.err)
}
