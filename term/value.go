// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package term contains the algebraic value and term model: ground values
// that populate the fact store and lattice store, and the symbolic terms
// that appear in clause bodies and heads before grounding.
package term

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/opendatalog/stratalog/symbol"
)

// Kind is the tag of a sealed Value variant (Term uses TermKind).
type Kind int

// The value kinds named by the Value & Term model (spec.md §3): Unit, Bool,
// Int (of several widths), Str, and Constructor applications of up to 5
// arguments.
const (
	KindUnit Kind = iota
	KindBool
	KindInt
	KindStr
	KindConstructor
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "Unit"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindStr:
		return "Str"
	case KindConstructor:
		return "Constructor"
	default:
		return "?"
	}
}

// IntWidth is the bit width of an Int value: 8, 16, 32 or 64.
type IntWidth int

// MaxConstructorArity bounds Constructor values and terms to 5 arguments,
// per the Value & Term model (spec.md §3).
const MaxConstructorArity = 5

// Value is an immutable, freely shareable ground value. It is a sealed
// tagged union: callers must switch exhaustively on Kind rather than type
// assert on an open interface.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	width IntWidth
	s     string
	ctor  symbol.Symbol
	args  []Value
}

// Unit is the sole value of unit type.
var Unit = Value{kind: KindUnit}

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int constructs an integer value of the given bit width (8, 16, 32, 64).
func Int(width IntWidth, v int64) Value {
	return Value{kind: KindInt, i: v, width: width}
}

// Str constructs a string value.
func Str(s string) Value { return Value{kind: KindStr, s: s} }

// Constructor constructs a value built from a constructor name applied to
// at most MaxConstructorArity argument values.
func Constructor(name symbol.Symbol, args ...Value) (Value, error) {
	if len(args) > MaxConstructorArity {
		return Value{}, fmt.Errorf("term: constructor %s takes at most %d arguments, got %d", name, MaxConstructorArity, len(args))
	}
	cp := make([]Value, len(args))
	copy(cp, args)
	return Value{kind: KindConstructor, ctor: name, args: cp}, nil
}

// Kind returns the tag of this value.
func (v Value) Kind() Kind { return v.kind }

// BoolValue returns the boolean payload; valid only when Kind() == KindBool.
func (v Value) BoolValue() bool { return v.b }

// IntValue returns the integer payload and its width; valid only when
// Kind() == KindInt.
func (v Value) IntValue() (int64, IntWidth) { return v.i, v.width }

// StrValue returns the string payload; valid only when Kind() == KindStr.
func (v Value) StrValue() string { return v.s }

// ConstructorValue returns the constructor name and arguments; valid only
// when Kind() == KindConstructor.
func (v Value) ConstructorValue() (symbol.Symbol, []Value) { return v.ctor, v.args }

// Equals reports structural equality.
func (v Value) Equals(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindUnit:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i && v.width == o.width
	case KindStr:
		return v.s == o.s
	case KindConstructor:
		if v.ctor != o.ctor || len(v.args) != len(o.args) {
			return false
		}
		for i := range v.args {
			if !v.args[i].Equals(o.args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Hash returns an FNV-1a based hash code, with composite shapes combined
// via Szudzik's elegant pairing function, following the teacher's
// ast.Constant.Hash / hashPair scheme.
func (v Value) Hash() uint64 {
	switch v.kind {
	case KindUnit:
		return 0
	case KindBool:
		if v.b {
			return 1
		}
		return 2
	case KindInt:
		return hashBytes([]byte(strconv.FormatInt(v.i, 10))) ^ uint64(v.width)
	case KindStr:
		return hashBytes([]byte(v.s))
	case KindConstructor:
		h := hashBytes([]byte(v.ctor.Name()))
		for _, a := range v.args {
			h = szudzikPair(h, a.Hash())
		}
		return h
	default:
		return 0
	}
}

func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}

// szudzikPair implements Szudzik's elegant pairing function
// (http://szudzik.com/ElegantPairing.pdf).
func szudzikPair(a, b uint64) uint64 {
	if a >= b {
		return a*a + a + b
	}
	return b*b + a
}

// String returns a readable representation.
func (v Value) String() string {
	switch v.kind {
	case KindUnit:
		return "()"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindStr:
		return strconv.Quote(v.s)
	case KindConstructor:
		var sb strings.Builder
		sb.WriteString(v.ctor.Name())
		sb.WriteRune('(')
		for i, a := range v.args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.String())
		}
		sb.WriteRune(')')
		return sb.String()
	default:
		return "?"
	}
}
