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

	"github.com/gravitational/trace"
	"google.golang.org/protobuf/encoding/protowire"
)

// Wire shapes follow the public Mysqlx.Datatypes definitions: a Scalar is
// a tagged union of primitive literals, an Any adds the array and object
// variants on top. Field numbers below must not change, they are the wire
// contract.

// Scalar.Type enum values.
const (
	scalarSint   = 1
	scalarUint   = 2
	scalarNull   = 3
	scalarOctets = 4
	scalarDouble = 5
	scalarFloat  = 6
	scalarBool   = 7
	scalarString = 8
)

// Scalar field numbers.
const (
	fieldScalarType   = 1
	fieldScalarSint   = 2
	fieldScalarUint   = 3
	fieldScalarOctets = 5
	fieldScalarDouble = 6
	fieldScalarFloat  = 7
	fieldScalarBool   = 8
	fieldScalarString = 9
)

// Any.Type enum values and field numbers.
const (
	anyScalar = 1
	anyObject = 2
	anyArray  = 3

	fieldAnyType   = 1
	fieldAnyScalar = 2
	fieldAnyObject = 3
	fieldAnyArray  = 4
)

// Octets, String, Object and Array sub-message field numbers.
const (
	fieldOctetsValue = 1
	fieldStringValue = 1
	fieldObjectFld   = 1
	fieldFldKey      = 1
	fieldFldValue    = 2
	fieldArrayValue  = 1
)

// AppendScalar appends the wire encoding of a scalar value to dst. Array
// and object values have no scalar encoding and fail.
func AppendScalar(dst []byte, v Value) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return appendEnum(dst, fieldScalarType, scalarNull), nil
	case KindInt:
		dst = appendEnum(dst, fieldScalarType, scalarSint)
		dst = protowire.AppendTag(dst, fieldScalarSint, protowire.VarintType)
		return protowire.AppendVarint(dst, protowire.EncodeZigZag(v.Int())), nil
	case KindUint:
		dst = appendEnum(dst, fieldScalarType, scalarUint)
		dst = protowire.AppendTag(dst, fieldScalarUint, protowire.VarintType)
		return protowire.AppendVarint(dst, v.num), nil
	case KindDouble:
		dst = appendEnum(dst, fieldScalarType, scalarDouble)
		dst = protowire.AppendTag(dst, fieldScalarDouble, protowire.Fixed64Type)
		return protowire.AppendFixed64(dst, v.num), nil
	case KindFloat:
		dst = appendEnum(dst, fieldScalarType, scalarFloat)
		dst = protowire.AppendTag(dst, fieldScalarFloat, protowire.Fixed32Type)
		return protowire.AppendFixed32(dst, uint32(v.num)), nil
	case KindBool:
		dst = appendEnum(dst, fieldScalarType, scalarBool)
		dst = protowire.AppendTag(dst, fieldScalarBool, protowire.VarintType)
		return protowire.AppendVarint(dst, v.num), nil
	case KindString:
		dst = appendEnum(dst, fieldScalarType, scalarString)
		dst = protowire.AppendTag(dst, fieldScalarString, protowire.BytesType)
		var str []byte
		str = protowire.AppendTag(str, fieldStringValue, protowire.BytesType)
		str = protowire.AppendString(str, v.str)
		return protowire.AppendBytes(dst, str), nil
	case KindBytes:
		dst = appendEnum(dst, fieldScalarType, scalarOctets)
		dst = protowire.AppendTag(dst, fieldScalarOctets, protowire.BytesType)
		var oct []byte
		oct = protowire.AppendTag(oct, fieldOctetsValue, protowire.BytesType)
		oct = protowire.AppendString(oct, v.str)
		return protowire.AppendBytes(dst, oct), nil
	}
	return nil, trace.BadParameter("%v value has no scalar encoding", v.kind)
}

// AppendAny appends the wire encoding of any value, scalar or composite,
// to dst.
func AppendAny(dst []byte, v Value) ([]byte, error) {
	switch v.kind {
	case KindArray:
		dst = appendEnum(dst, fieldAnyType, anyArray)
		var arr []byte
		for _, e := range v.arr {
			el, err := AppendAny(nil, e)
			if err != nil {
				return nil, trace.Wrap(err)
			}
			arr = protowire.AppendTag(arr, fieldArrayValue, protowire.BytesType)
			arr = protowire.AppendBytes(arr, el)
		}
		dst = protowire.AppendTag(dst, fieldAnyArray, protowire.BytesType)
		return protowire.AppendBytes(dst, arr), nil
	case KindObject:
		dst = appendEnum(dst, fieldAnyType, anyObject)
		var obj []byte
		for _, f := range v.obj {
			fv, err := AppendAny(nil, f.Value)
			if err != nil {
				return nil, trace.Wrap(err)
			}
			var fld []byte
			fld = protowire.AppendTag(fld, fieldFldKey, protowire.BytesType)
			fld = protowire.AppendString(fld, f.Key)
			fld = protowire.AppendTag(fld, fieldFldValue, protowire.BytesType)
			fld = protowire.AppendBytes(fld, fv)
			obj = protowire.AppendTag(obj, fieldObjectFld, protowire.BytesType)
			obj = protowire.AppendBytes(obj, fld)
		}
		dst = protowire.AppendTag(dst, fieldAnyObject, protowire.BytesType)
		return protowire.AppendBytes(dst, obj), nil
	default:
		dst = appendEnum(dst, fieldAnyType, anyScalar)
		sc, err := AppendScalar(nil, v)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		dst = protowire.AppendTag(dst, fieldAnyScalar, protowire.BytesType)
		return protowire.AppendBytes(dst, sc), nil
	}
}

// DecodeScalar parses a wire-encoded scalar.
func DecodeScalar(b []byte) (Value, error) {
	var typ uint64
	var v Value
	seenValue := false
	for len(b) > 0 {
		num, wtyp, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Value{}, parseErr(n)
		}
		b = b[n:]
		switch num {
		case fieldScalarType:
			t, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			typ, b = t, b[n:]
		case fieldScalarSint:
			u, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			v, b, seenValue = Int(protowire.DecodeZigZag(u)), b[n:], true
		case fieldScalarUint:
			u, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			v, b, seenValue = Uint(u), b[n:], true
		case fieldScalarDouble:
			u, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			v, b, seenValue = Double(math.Float64frombits(u)), b[n:], true
		case fieldScalarFloat:
			u, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			v, b, seenValue = Float(math.Float32frombits(u)), b[n:], true
		case fieldScalarBool:
			u, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			v, b, seenValue = Bool(u != 0), b[n:], true
		case fieldScalarString:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			s, err := decodeLengthValue(sub, fieldStringValue)
			if err != nil {
				return Value{}, trace.Wrap(err)
			}
			v, b, seenValue = String(string(s)), b[n:], true
		case fieldScalarOctets:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			s, err := decodeLengthValue(sub, fieldOctetsValue)
			if err != nil {
				return Value{}, trace.Wrap(err)
			}
			v, b, seenValue = Bytes(append([]byte(nil), s...)), b[n:], true
		default:
			n := protowire.ConsumeFieldValue(num, wtyp, b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			b = b[n:]
		}
	}
	if typ == scalarNull || !seenValue {
		return Null(), nil
	}
	return v, nil
}

// DecodeAny parses a wire-encoded Any value.
func DecodeAny(b []byte) (Value, error) {
	var v Value
	for len(b) > 0 {
		num, wtyp, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Value{}, parseErr(n)
		}
		b = b[n:]
		switch num {
		case fieldAnyType:
			_, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			b = b[n:]
		case fieldAnyScalar:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			sc, err := DecodeScalar(sub)
			if err != nil {
				return Value{}, trace.Wrap(err)
			}
			v, b = sc, b[n:]
		case fieldAnyArray:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			arr, err := decodeArray(sub)
			if err != nil {
				return Value{}, trace.Wrap(err)
			}
			v, b = arr, b[n:]
		case fieldAnyObject:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			obj, err := decodeObject(sub)
			if err != nil {
				return Value{}, trace.Wrap(err)
			}
			v, b = obj, b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, wtyp, b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			b = b[n:]
		}
	}
	return v, nil
}

func decodeArray(b []byte) (Value, error) {
	elems := []Value{}
	for len(b) > 0 {
		num, wtyp, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Value{}, parseErr(n)
		}
		b = b[n:]
		if num != fieldArrayValue {
			n := protowire.ConsumeFieldValue(num, wtyp, b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			b = b[n:]
			continue
		}
		sub, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return Value{}, parseErr(n)
		}
		el, err := DecodeAny(sub)
		if err != nil {
			return Value{}, trace.Wrap(err)
		}
		elems, b = append(elems, el), b[n:]
	}
	return Array(elems...), nil
}

func decodeObject(b []byte) (Value, error) {
	fields := []Field{}
	for len(b) > 0 {
		num, wtyp, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Value{}, parseErr(n)
		}
		b = b[n:]
		if num != fieldObjectFld {
			n := protowire.ConsumeFieldValue(num, wtyp, b)
			if n < 0 {
				return Value{}, parseErr(n)
			}
			b = b[n:]
			continue
		}
		sub, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return Value{}, parseErr(n)
		}
		fld, err := decodeField(sub)
		if err != nil {
			return Value{}, trace.Wrap(err)
		}
		fields, b = append(fields, fld), b[n:]
	}
	return Object(fields...), nil
}

func decodeField(b []byte) (Field, error) {
	var f Field
	for len(b) > 0 {
		num, wtyp, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Field{}, parseErr(n)
		}
		b = b[n:]
		switch num {
		case fieldFldKey:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return Field{}, parseErr(n)
			}
			f.Key, b = s, b[n:]
		case fieldFldValue:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Field{}, parseErr(n)
			}
			v, err := DecodeAny(sub)
			if err != nil {
				return Field{}, trace.Wrap(err)
			}
			f.Value, b = v, b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, wtyp, b)
			if n < 0 {
				return Field{}, parseErr(n)
			}
			b = b[n:]
		}
	}
	return f, nil
}

// decodeLengthValue extracts the bytes payload of the given field from a
// single-field wrapper message such as Datatypes.Scalar.String.
func decodeLengthValue(b []byte, field protowire.Number) ([]byte, error) {
	var out []byte
	for len(b) > 0 {
		num, wtyp, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, parseErr(n)
		}
		b = b[n:]
		if num != field {
			n := protowire.ConsumeFieldValue(num, wtyp, b)
			if n < 0 {
				return nil, parseErr(n)
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, parseErr(n)
		}
		out, b = v, b[n:]
	}
	return out, nil
}

func appendEnum(dst []byte, field protowire.Number, v uint64) []byte {
	dst = protowire.AppendTag(dst, field, protowire.VarintType)
	return protowire.AppendVarint(dst, v)
}

func parseErr(n int) error {
	return trace.Wrap(protowire.ParseError(n), "malformed wire value")
}
