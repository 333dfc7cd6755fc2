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

package value

import (
	"math"
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"
)

func TestScalarRoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   Value
	}{
		{name: "null", in: Null()},
		{name: "negative int", in: Int(-42)},
		{name: "uint", in: Uint(math.MaxUint64)},
		{name: "double", in: Double(3.5)},
		{name: "float", in: Float(-0.25)},
		{name: "bool", in: Bool(true)},
		{name: "string", in: String("héllo")},
		{name: "empty string", in: String("")},
		{name: "bytes", in: Bytes([]byte{0, 1, 2, 0xff})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wire, err := AppendScalar(nil, tt.in)
			require.NoError(t, err)
			got, err := DecodeScalar(wire)
			require.NoError(t, err)
			require.Equal(t, tt.in, got)
		})
	}
}

func TestAnyRoundTrip(t *testing.T) {
	t.Parallel()
	in := Object(
		Field{Key: "name", Value: String("alice")},
		Field{Key: "scores", Value: Array(Int(1), Int(2), Null())},
		Field{Key: "meta", Value: Object(
			Field{Key: "active", Value: Bool(false)},
		)},
	)
	wire, err := AppendAny(nil, in)
	require.NoError(t, err)
	got, err := DecodeAny(wire)
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestAnyRejectsComposite(t *testing.T) {
	t.Parallel()
	// Scalars must not hide composites behind the scalar encoder.
	_, err := AppendScalar(nil, Array(Int(1)))
	require.Error(t, err)
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	t.Run("first seen wins the position", func(t *testing.T) {
		t.Parallel()
		ph := NewPlaceholders(0)
		require.Equal(t, 0, ph.Resolve("a"))
		require.Equal(t, 1, ph.Resolve("b"))
		// Repeat use resolves to the original position.
		require.Equal(t, 0, ph.Resolve("a"))
		require.Equal(t, 2, ph.Count())
		require.Equal(t, []string{"a", "b"}, ph.Names())
	})

	t.Run("base offsets every position", func(t *testing.T) {
		t.Parallel()
		ph := NewPlaceholders(3)
		require.Equal(t, 3, ph.Resolve("x"))
		require.Equal(t, 4, ph.Resolve("y"))
		pos, err := ph.Position("y")
		require.NoError(t, err)
		require.Equal(t, 4, pos)
	})

	t.Run("undefined placeholder is an error", func(t *testing.T) {
		t.Parallel()
		ph := NewPlaceholders(0)
		ph.Resolve("known")
		_, err := ph.Position("unknown")
		require.True(t, trace.IsNotFound(err))
	})

	t.Run("bind produces argument order", func(t *testing.T) {
		t.Parallel()
		ph := NewPlaceholders(0)
		ph.Resolve("b")
		ph.Resolve("a")
		args, err := ph.Bind(map[string]Value{
			"a": Int(1),
			"b": Int(2),
		})
		require.NoError(t, err)
		require.Equal(t, []Value{Int(2), Int(1)}, args)
	})

	t.Run("bind rejects unknown and missing names", func(t *testing.T) {
		t.Parallel()
		ph := NewPlaceholders(0)
		ph.Resolve("a")
		_, err := ph.Bind(map[string]Value{"nope": Int(1)})
		require.Error(t, err)
		_, err = ph.Bind(map[string]Value{})
		require.Error(t, err)
	})
}

func TestAppendExprPlaceholders(t *testing.T) {
	t.Parallel()
	ph := NewPlaceholders(0)
	expr := Operator("==",
		Variable("x"),
		Placeholder("val"),
	)
	wire, err := AppendExpr(nil, expr, ph)
	require.NoError(t, err)
	require.NotEmpty(t, wire)
	require.Equal(t, 1, ph.Count())
	pos, err := ph.Position("val")
	require.NoError(t, err)
	require.Equal(t, 0, pos)

	// The same placeholder in a second expression keeps its position.
	wire, err = AppendExpr(wire, Placeholder("val"), ph)
	require.NoError(t, err)
	require.NotEmpty(t, wire)
	require.Equal(t, 1, ph.Count())
}
