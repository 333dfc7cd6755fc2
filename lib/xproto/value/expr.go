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
	"github.com/gravitational/trace"
	"google.golang.org/protobuf/encoding/protowire"
)

// Expr.Type enum values of the Mysqlx.Expr wire schema.
const (
	exprLiteral     = 2
	exprVariable    = 3
	exprOperator    = 5
	exprPlaceholder = 6
	exprObject      = 7
	exprArray       = 8
)

// Expr field numbers.
const (
	fieldExprType     = 1
	fieldExprVariable = 3
	fieldExprLiteral  = 4
	fieldExprOperator = 6
	fieldExprPosition = 7
	fieldExprObject   = 8
	fieldExprArray    = 9

	fieldOperatorName  = 1
	fieldOperatorParam = 2
)

// Expr is one node of an expression tree: a literal, a placeholder, a
// session variable reference, an operator application, or an array/object
// of sub-expressions. Expressions are what statement builders turn into
// wire messages; placeholders are resolved to positions along the way.
type Expr struct {
	kind   int
	lit    Value
	name   string
	elems  []Expr
	fields []ExprField
}

// ExprField is one key-expression pair of an object expression.
type ExprField struct {
	Key  string
	Expr Expr
}

// Literal returns an expression holding a literal scalar value.
func Literal(v Value) Expr {
	return Expr{kind: exprLiteral, lit: v}
}

// Placeholder returns a named placeholder expression. Its position is
// assigned when the expression is encoded.
func Placeholder(name string) Expr {
	return Expr{kind: exprPlaceholder, name: name}
}

// Variable returns a session variable reference expression.
func Variable(name string) Expr {
	return Expr{kind: exprVariable, name: name}
}

// Operator returns an operator application over the given operands.
func Operator(name string, operands ...Expr) Expr {
	return Expr{kind: exprOperator, name: name, elems: operands}
}

// ExprArray returns an array expression.
func ExprArray(elems ...Expr) Expr {
	return Expr{kind: exprArray, elems: elems}
}

// ExprObject returns an object expression.
func ExprObject(fields ...ExprField) Expr {
	return Expr{kind: exprObject, fields: fields}
}

// AppendExpr appends the wire encoding of the expression to dst. Named
// placeholders encountered along the way are resolved to positions via ph,
// in first-seen order. The structure mirrors the value encoders: scalar
// slots are filled directly, arrays and objects ask the element encoder to
// fill each freshly appended slot.
func AppendExpr(dst []byte, e Expr, ph *Placeholders) ([]byte, error) {
	if ph == nil {
		ph = NewPlaceholders(0)
	}
	switch e.kind {
	case exprLiteral:
		dst = appendEnum(dst, fieldExprType, exprLiteral)
		sc, err := AppendScalar(nil, e.lit)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		dst = protowire.AppendTag(dst, fieldExprLiteral, protowire.BytesType)
		return protowire.AppendBytes(dst, sc), nil
	case exprPlaceholder:
		dst = appendEnum(dst, fieldExprType, exprPlaceholder)
		dst = protowire.AppendTag(dst, fieldExprPosition, protowire.VarintType)
		return protowire.AppendVarint(dst, uint64(ph.Resolve(e.name))), nil
	case exprVariable:
		dst = appendEnum(dst, fieldExprType, exprVariable)
		dst = protowire.AppendTag(dst, fieldExprVariable, protowire.BytesType)
		return protowire.AppendString(dst, e.name), nil
	case exprOperator:
		dst = appendEnum(dst, fieldExprType, exprOperator)
		var op []byte
		op = protowire.AppendTag(op, fieldOperatorName, protowire.BytesType)
		op = protowire.AppendString(op, e.name)
		for _, param := range e.elems {
			pe, err := AppendExpr(nil, param, ph)
			if err != nil {
				return nil, trace.Wrap(err)
			}
			op = protowire.AppendTag(op, fieldOperatorParam, protowire.BytesType)
			op = protowire.AppendBytes(op, pe)
		}
		dst = protowire.AppendTag(dst, fieldExprOperator, protowire.BytesType)
		return protowire.AppendBytes(dst, op), nil
	case exprArray:
		dst = appendEnum(dst, fieldExprType, exprArray)
		var arr []byte
		for _, el := range e.elems {
			ee, err := AppendExpr(nil, el, ph)
			if err != nil {
				return nil, trace.Wrap(err)
			}
			arr = protowire.AppendTag(arr, fieldArrayValue, protowire.BytesType)
			arr = protowire.AppendBytes(arr, ee)
		}
		dst = protowire.AppendTag(dst, fieldExprArray, protowire.BytesType)
		return protowire.AppendBytes(dst, arr), nil
	case exprObject:
		dst = appendEnum(dst, fieldExprType, exprObject)
		var obj []byte
		for _, f := range e.fields {
			fe, err := AppendExpr(nil, f.Expr, ph)
			if err != nil {
				return nil, trace.Wrap(err)
			}
			var fld []byte
			fld = protowire.AppendTag(fld, fieldFldKey, protowire.BytesType)
			fld = protowire.AppendString(fld, f.Key)
			fld = protowire.AppendTag(fld, fieldFldValue, protowire.BytesType)
			fld = protowire.AppendBytes(fld, fe)
			obj = protowire.AppendTag(obj, fieldObjectFld, protowire.BytesType)
			obj = protowire.AppendBytes(obj, fld)
		}
		dst = protowire.AppendTag(dst, fieldExprObject, protowire.BytesType)
		return protowire.AppendBytes(dst, obj), nil
	}
	return nil, trace.BadParameter("expression kind %d has no wire encoding", e.kind)
}
