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

// Package builtin evaluates functional and constraint body atoms: equality
// and the comparison/arithmetic operators spec.md §4.5 names.
//
// Trimmed down from the teacher's builtin.Decide/EvalApplyFn dispatch,
// which also covers list/map/struct built-ins, reducers, and a runtime
// type checker — none of which spec.md's atom shapes need, since Value has
// no list/map/struct/float variants. The numeric folds (evalPlus,
// evalMinus, evalMult) keep the teacher's exact accumulation style.
package builtin

import (
	"errors"

	"github.com/opendatalog/stratalog/term"
)

// errNotInt reports that a functional atom's argument evaluated to a
// non-Int Value.
var errNotInt = errors.New("builtin: arithmetic/comparison atom requires Int arguments")

// Eval evaluates the two bound arguments of a comparison atom (Eq, Lt, Le,
// Gt, Ge), or the three bound/one-free arguments of an arithmetic atom
// (Plus, Minus, Times) whose result position is args[len(args)-1].
// Arithmetic atoms return the computed result Value so the caller can bind
// a free result variable (spec.md §4.5's "propagate it bound to the
// computed value when the atom is a total function").
func Eval(fn term.FnSym, args []term.Value) (term.Value, error) {
	switch fn {
	case term.FnEq:
		return term.Bool(args[0].Equals(args[1])), nil
	case term.FnLt, term.FnLe, term.FnGt, term.FnGe:
		return evalComparison(fn, args)
	case term.FnPlus, term.FnMinus, term.FnTimes:
		return evalArithmetic(fn, args)
	default:
		return term.Value{}, errNotInt
	}
}

func evalComparison(fn term.FnSym, args []term.Value) (term.Value, error) {
	a, _, err := intOf(args[0])
	if err != nil {
		return term.Value{}, err
	}
	b, _, err := intOf(args[1])
	if err != nil {
		return term.Value{}, err
	}
	switch fn {
	case term.FnLt:
		return term.Bool(a < b), nil
	case term.FnLe:
		return term.Bool(a <= b), nil
	case term.FnGt:
		return term.Bool(a > b), nil
	case term.FnGe:
		return term.Bool(a >= b), nil
	default:
		return term.Value{}, errNotInt
	}
}

// evalArithmetic evaluates a binary arithmetic atom over its first two
// arguments; args[2], if present, is the already-bound result and is
// ignored by Eval (the caller compares it via unify.GroundOrMatch).
func evalArithmetic(fn term.FnSym, args []term.Value) (term.Value, error) {
	a, width, err := intOf(args[0])
	if err != nil {
		return term.Value{}, err
	}
	b, _, err := intOf(args[1])
	if err != nil {
		return term.Value{}, err
	}
	var result int64
	switch fn {
	case term.FnPlus:
		result = evalPlus(a, b)
	case term.FnMinus:
		result = evalMinus(a, b)
	case term.FnTimes:
		result = evalMult(a, b)
	default:
		return term.Value{}, errNotInt
	}
	return term.Int(width, result), nil
}

func intOf(v term.Value) (int64, term.IntWidth, error) {
	if v.Kind() != term.KindInt {
		return 0, 0, errNotInt
	}
	i, w := v.IntValue()
	return i, w, nil
}

func evalPlus(a, b int64) int64 { return a + b }

func evalMinus(a, b int64) int64 { return a - b }

func evalMult(a, b int64) int64 { return a * b }

// Arity reports the number of arguments a functional atom of kind fn takes:
// 2 for equality/comparison, 3 for arithmetic (lhs, rhs, result).
func Arity(fn term.FnSym) int {
	switch fn {
	case term.FnEq, term.FnLt, term.FnLe, term.FnGt, term.FnGe:
		return 2
	case term.FnPlus, term.FnMinus, term.FnTimes:
		return 3
	default:
		return 0
	}
}
