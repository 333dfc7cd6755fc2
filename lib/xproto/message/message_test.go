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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cadredata/xwire/lib/xproto/value"
)

func TestError(t *testing.T) {
	t.Parallel()
	in := Error{
		Severity: SeverityFatal,
		Code:     1045,
		SQLState: "28000",
		Message:  "Access denied",
	}
	wire, err := in.MarshalPayload(nil)
	require.NoError(t, err)

	var out Error
	require.NoError(t, out.UnmarshalPayload(wire))
	require.Equal(t, in, out)

	// Error doubles as a Go error.
	require.ErrorContains(t, &out, "1045")
	require.ErrorContains(t, &out, "Access denied")
}

func TestNoticeWarning(t *testing.T) {
	t.Parallel()
	w := Warning{Level: WarningLevelWarning, Code: 1366, Message: "Incorrect value"}
	payload, err := w.MarshalPayload(nil)
	require.NoError(t, err)

	n := Notice{Type: NoticeWarning, Payload: payload}
	wire, err := n.MarshalPayload(nil)
	require.NoError(t, err)

	var out Notice
	require.NoError(t, out.UnmarshalPayload(wire))
	require.Equal(t, NoticeWarning, out.Type)
	// Scope defaults to global when absent from the wire.
	require.Equal(t, ScopeGlobal, out.Scope)

	decoded, err := out.Warning()
	require.NoError(t, err)
	require.Equal(t, w, *decoded)

	// The typed decoders refuse the wrong notice type.
	out.Type = NoticeSessionStateChanged
	_, err = out.Warning()
	require.Error(t, err)
}

func TestNoticeSessionStateChanged(t *testing.T) {
	t.Parallel()
	sc := SessionStateChanged{
		Param:  StateRowsAffected,
		Values: []value.Value{value.Uint(7)},
	}
	payload, err := sc.MarshalPayload(nil)
	require.NoError(t, err)

	n := Notice{Type: NoticeSessionStateChanged, Scope: ScopeLocal, Payload: payload}
	wire, err := n.MarshalPayload(nil)
	require.NoError(t, err)

	var out Notice
	require.NoError(t, out.UnmarshalPayload(wire))
	require.Equal(t, ScopeLocal, out.Scope)
	decoded, err := out.SessionStateChange()
	require.NoError(t, err)
	require.Equal(t, sc, *decoded)
}

func TestColumnMetaData(t *testing.T) {
	t.Parallel()
	in := ColumnMetaData{
		Type:          FieldTypeSint,
		Name:          "id",
		OriginalName:  "user_id",
		Table:         "users",
		OriginalTable: "users",
		Schema:        "app",
		Collation:     8,
		Length:        11,
		Flags:         0x10,
	}
	wire, err := in.MarshalPayload(nil)
	require.NoError(t, err)
	var out ColumnMetaData
	require.NoError(t, out.UnmarshalPayload(wire))
	require.Equal(t, in, out)
}

func TestRowFieldsAreCopied(t *testing.T) {
	t.Parallel()
	in := Row{Fields: [][]byte{[]byte("one"), {}, []byte("three")}}
	wire, err := in.MarshalPayload(nil)
	require.NoError(t, err)

	var out Row
	require.NoError(t, out.UnmarshalPayload(wire))
	require.Equal(t, in, out)

	// Decoded fields must survive the wire buffer being clobbered.
	for i := range wire {
		wire[i] = 0xaa
	}
	require.Equal(t, []byte("one"), out.Fields[0])
}

func TestStmtExecute(t *testing.T) {
	t.Parallel()

	t.Run("default namespace stays off the wire", func(t *testing.T) {
		t.Parallel()
		m := StmtExecute{Namespace: DefaultNamespace, Stmt: []byte("SELECT 1")}
		wire, err := m.MarshalPayload(nil)
		require.NoError(t, err)
		require.NotContains(t, string(wire), DefaultNamespace)

		var out StmtExecute
		require.NoError(t, out.UnmarshalPayload(wire))
		require.Equal(t, DefaultNamespace, out.Namespace)
		require.Equal(t, []byte("SELECT 1"), out.Stmt)
	})

	t.Run("args and options round-trip", func(t *testing.T) {
		t.Parallel()
		in := StmtExecute{
			Namespace:       "mysqlx",
			Stmt:            []byte("list_objects"),
			Args:            []value.Value{value.String("x"), value.Int(-1)},
			CompactMetadata: true,
		}
		wire, err := in.MarshalPayload(nil)
		require.NoError(t, err)
		var out StmtExecute
		require.NoError(t, out.UnmarshalPayload(wire))
		require.Equal(t, in, out)
	})
}

func TestCapabilities(t *testing.T) {
	t.Parallel()
	in := Capabilities{Capabilities: []Capability{
		{Name: "tls", Value: value.Bool(true)},
		{Name: "compression", Value: value.Object(
			value.Field{Key: "algorithm", Value: value.String("zstd_stream")},
		)},
	}}
	wire, err := in.MarshalPayload(nil)
	require.NoError(t, err)

	var out Capabilities
	require.NoError(t, out.UnmarshalPayload(wire))
	require.Equal(t, in, out)

	v, ok := out.Get("tls")
	require.True(t, ok)
	require.True(t, v.Bool())
	_, ok = out.Get("missing")
	require.False(t, ok)
}

func TestCapabilitiesSetNesting(t *testing.T) {
	t.Parallel()
	in := CapabilitiesSet{Capabilities: Capabilities{Capabilities: []Capability{
		{Name: "compression", Value: value.Object(
			value.Field{Key: "algorithm", Value: value.String("deflate_stream")},
		)},
	}}}
	wire, err := in.MarshalPayload(nil)
	require.NoError(t, err)

	// The capability list is nested under field 1 of the set message; the
	// receiver must decode CapabilitiesSet, not a bare Capabilities.
	var out CapabilitiesSet
	require.NoError(t, out.UnmarshalPayload(wire))
	require.Equal(t, in, out)
	v, ok := out.Capabilities.Get("compression")
	require.True(t, ok)
	require.Equal(t, "deflate_stream", v.Fields()[0].Value.Str())
}

func TestCompressionEnvelope(t *testing.T) {
	t.Parallel()
	in := Compression{
		UncompressedSize: 4096,
		Payload:          bytes.Repeat([]byte{0x42}, 16),
	}
	in.SetServerMessages(ServerRow)
	wire, err := in.MarshalPayload(nil)
	require.NoError(t, err)

	var out Compression
	require.NoError(t, out.UnmarshalPayload(wire))
	require.Equal(t, in, out)

	// Without an original type the optional fields stay absent.
	plain := Compression{UncompressedSize: 10, Payload: []byte{1}}
	wire, err = plain.MarshalPayload(nil)
	require.NoError(t, err)
	var back Compression
	require.NoError(t, back.UnmarshalPayload(wire))
	require.False(t, back.hasServerType)
	require.False(t, back.hasClientType)
}

func TestEmptyMessages(t *testing.T) {
	t.Parallel()
	var fd FetchDone
	wire, err := fd.MarshalPayload(nil)
	require.NoError(t, err)
	require.Empty(t, wire)
	require.NoError(t, fd.UnmarshalPayload(wire))

	// Unknown trailing fields are tolerated, garbage is not.
	require.Error(t, fd.UnmarshalPayload([]byte{0xff}))
}

func TestTypeNames(t *testing.T) {
	t.Parallel()
	require.Equal(t, "SQL_STMT_EXECUTE", ClientStmtExecute.String())
	require.Equal(t, "RESULTSET_ROW", ServerRow.String())
	require.Equal(t, byte(46), byte(ClientCompression))
	require.Equal(t, byte(19), byte(ServerCompression))
}
