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

// Package value implements the recursive value tree shared by statement
// arguments, capability documents and expression literals: a value is a
// scalar, an array of values, or a key-value object. The same tree encodes
// to the wire Any/Scalar/Expr shapes.
//
// Values are built top-down from constructors, so cycles cannot occur.
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind discriminates the variants of a Value.
type Kind int

const (
	// KindNull is the SQL NULL value.
	KindNull Kind = iota
	// KindInt is a signed 64-bit integer.
	KindInt
	// KindUint is an unsigned 64-bit integer.
	KindUint
	// KindDouble is a 64-bit float.
	KindDouble
	// KindFloat is a 32-bit float.
	KindFloat
	// KindBool is a boolean.
	KindBool
	// KindString is a character string.
	KindString
	// KindBytes is a raw octet string.
	KindBytes
	// KindArray is an ordered list of values.
	KindArray
	// KindObject is an ordered key-value document.
	KindObject
)

// String returns a readable kind name, used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindDouble:
		return "double"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Field is one key-value pair of an object value.
type Field struct {
	Key   string
	Value Value
}

// Value is one node of the value tree. The zero value is NULL.
type Value struct {
	kind Kind
	num  uint64
	str  string
	arr  []Value
	obj  []Field
}

// Null returns the NULL value.
func Null() Value {
	return Value{kind: KindNull}
}

// Int returns a signed integer value.
func Int(v int64) Value {
	return Value{kind: KindInt, num: uint64(v)}
}

// Uint returns an unsigned integer value.
func Uint(v uint64) Value {
	return Value{kind: KindUint, num: v}
}

// Double returns a 64-bit float value.
func Double(v float64) Value {
	return Value{kind: KindDouble, num: math.Float64bits(v)}
}

// Float returns a 32-bit float value.
func Float(v float32) Value {
	return Value{kind: KindFloat, num: uint64(math.Float32bits(v))}
}

// Bool returns a boolean value.
func Bool(v bool) Value {
	var n uint64
	if v {
		n = 1
	}
	return Value{kind: KindBool, num: n}
}

// String returns a string value.
func String(v string) Value {
	return Value{kind: KindString, str: v}
}

// Bytes returns an octets value. The slice is stored as-is, not copied.
func Bytes(v []byte) Value {
	return Value{kind: KindBytes, str: string(v)}
}

// Array returns an array value with the given elements.
func Array(elems ...Value) Value {
	return Value{kind: KindArray, arr: elems}
}

// Object returns an object value with the given fields, in order.
func Object(fields ...Field) Value {
	return Value{kind: KindObject, obj: fields}
}

// Kind returns the variant of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Int returns the signed integer payload. Valid for KindInt and KindBool.
func (v Value) Int() int64 {
	return int64(v.num)
}

// Uint returns the unsigned integer payload.
func (v Value) Uint() uint64 {
	return v.num
}

// Double returns the 64-bit float payload.
func (v Value) Double() float64 {
	return math.Float64frombits(v.num)
}

// Float returns the 32-bit float payload.
func (v Value) Float() float32 {
	return math.Float32frombits(uint32(v.num))
}

// Bool returns the boolean payload.
func (v Value) Bool() bool {
	return v.num != 0
}

// Str returns the string payload of a KindString or KindBytes value.
func (v Value) Str() string {
	return v.str
}

// BytesVal returns a copy of the octets payload.
func (v Value) BytesVal() []byte {
	return []byte(v.str)
}

// Elems returns the elements of an array value.
func (v Value) Elems() []Value {
	return v.arr
}

// Fields returns the fields of an object value.
func (v Value) Fields() []Field {
	return v.obj
}

// String renders the value for logs and error messages. Not a wire format.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(v.Int(), 10)
	case KindUint:
		return strconv.FormatUint(v.num, 10)
	case KindDouble:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64)
	case KindFloat:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	case KindBool:
		return strconv.FormatBool(v.Bool())
	case KindString:
		return strconv.Quote(v.str)
	case KindBytes:
		return fmt.Sprintf("0x%x", v.str)
	case KindArray:
		s := "["
		for i, e := range v.arr {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + "]"
	case KindObject:
		s := "{"
		for i, f := range v.obj {
			if i > 0 {
				s += ", "
			}
			s += strconv.Quote(f.Key) + ": " + f.Value.String()
		}
		return s + "}"
	}
	return fmt.Sprintf("value(kind=%d)", int(v.kind))
}
