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

// FieldType is the wire type of a result set column
// (Mysqlx.Resultset.ColumnMetaData.FieldType).
type FieldType uint32

const (
	FieldTypeSint     FieldType = 1
	FieldTypeUint     FieldType = 2
	FieldTypeDouble   FieldType = 5
	FieldTypeFloat    FieldType = 6
	FieldTypeBytes    FieldType = 7
	FieldTypeTime     FieldType = 10
	FieldTypeDatetime FieldType = 12
	FieldTypeSet      FieldType = 15
	FieldTypeEnum     FieldType = 16
	FieldTypeBit      FieldType = 17
	FieldTypeDecimal  FieldType = 18
)

// ColumnMetaData describes one column of a result set. Columns are sent
// ahead of rows, one message per column.
type ColumnMetaData struct {
	// Type is the column wire type.
	Type FieldType
	// Name is the column alias.
	Name string
	// OriginalName is the underlying column name.
	OriginalName string
	// Table is the table alias.
	Table string
	// OriginalTable is the underlying table name.
	OriginalTable string
	// Schema is the schema name.
	Schema string
	// Catalog is the catalog name, always "def" in practice.
	Catalog string
	// Collation is the collation id for text columns.
	Collation uint64
	// FractionalDigits is the scale of decimal and time columns.
	FractionalDigits uint32
	// Length is the display length.
	Length uint32
	// Flags holds the column flags bitmask.
	Flags uint32
	// ContentType distinguishes JSON/XML/GEOMETRY payloads of bytes
	// columns.
	ContentType uint32
}

// MarshalPayload appends the payload encoding to dst.
func (m *ColumnMetaData) MarshalPayload(dst []byte) ([]byte, error) {
	dst = protowire.AppendTag(dst, 1, protowire.VarintType)
	dst = protowire.AppendVarint(dst, uint64(m.Type))
	dst = appendBytesField(dst, 2, m.Name)
	dst = appendBytesField(dst, 3, m.OriginalName)
	dst = appendBytesField(dst, 4, m.Table)
	dst = appendBytesField(dst, 5, m.OriginalTable)
	dst = appendBytesField(dst, 6, m.Schema)
	dst = appendBytesField(dst, 7, m.Catalog)
	if m.Collation != 0 {
		dst = protowire.AppendTag(dst, 8, protowire.VarintType)
		dst = protowire.AppendVarint(dst, m.Collation)
	}
	if m.FractionalDigits != 0 {
		dst = protowire.AppendTag(dst, 9, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(m.FractionalDigits))
	}
	if m.Length != 0 {
		dst = protowire.AppendTag(dst, 10, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(m.Length))
	}
	if m.Flags != 0 {
		dst = protowire.AppendTag(dst, 11, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(m.Flags))
	}
	if m.ContentType != 0 {
		dst = protowire.AppendTag(dst, 12, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(m.ContentType))
	}
	return dst, nil
}

// UnmarshalPayload parses the payload.
func (m *ColumnMetaData) UnmarshalPayload(b []byte) error {
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			m.Type = FieldType(f.varint())
		case 2:
			m.Name = f.str()
		case 3:
			m.OriginalName = f.str()
		case 4:
			m.Table = f.str()
		case 5:
			m.OriginalTable = f.str()
		case 6:
			m.Schema = f.str()
		case 7:
			m.Catalog = f.str()
		case 8:
			m.Collation = f.varint()
		case 9:
			m.FractionalDigits = uint32(f.varint())
		case 10:
			m.Length = uint32(f.varint())
		case 11:
			m.Flags = uint32(f.varint())
		case 12:
			m.ContentType = uint32(f.varint())
		default:
			f.skip()
		}
	}
	return trace.Wrap(f.err)
}

// Row is one result set row. Field values are in the column-specific
// binary encodings; interpreting them requires the column metadata and is
// the caller's business.
type Row struct {
	// Fields holds one encoded value per column. A NULL is an absent
	// (zero-length) field.
	Fields [][]byte
}

// MarshalPayload appends the payload encoding to dst.
func (m *Row) MarshalPayload(dst []byte) ([]byte, error) {
	for _, field := range m.Fields {
		dst = protowire.AppendTag(dst, 1, protowire.BytesType)
		dst = protowire.AppendBytes(dst, field)
	}
	return dst, nil
}

// UnmarshalPayload parses the payload. Field bytes are copied out of the
// frame buffer since rows routinely outlive the read loop.
func (m *Row) UnmarshalPayload(b []byte) error {
	f := fields{buf: b}
	for f.next() {
		switch f.num {
		case 1:
			m.Fields = append(m.Fields, append([]byte(nil), f.bytes()...))
		default:
			f.skip()
		}
	}
	return trace.Wrap(f.err)
}

func appendBytesField(dst []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return dst
	}
	dst = protowire.AppendTag(dst, num, protowire.BytesType)
	return protowire.AppendString(dst, v)
}
