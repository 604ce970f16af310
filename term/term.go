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

package term

import (
	"errors"
	"strconv"
	"strings"

	"github.com/opendatalog/stratalog/symbol"
)

// TermKind tags the symbolic-term union: Constant, Variable or Constructor.
type TermKind int

// The term variants named by spec.md §3.
const (
	TermConst TermKind = iota
	TermVar
	TermCtor
)

// Term is a symbolic term belonging to a clause: a constant, a variable, or
// a constructor application over further terms. It is sealed, like Value.
type Term struct {
	kind  TermKind
	value Value          // valid when kind == TermConst
	v     symbol.Symbol  // valid when kind == TermVar
	ctor  symbol.Symbol  // valid when kind == TermCtor
	args  []Term         // valid when kind == TermCtor
}

// Const wraps a ground Value as a term.
func Const(v Value) Term { return Term{kind: TermConst, value: v} }

// Var constructs a variable term.
func Var(s symbol.Symbol) Term { return Term{kind: TermVar, v: s} }

// Ctor constructs a constructor term over at most MaxConstructorArity
// argument terms.
func Ctor(name symbol.Symbol, args ...Term) (Term, error) {
	if len(args) > MaxConstructorArity {
		return Term{}, errArity(name, len(args))
	}
	cp := make([]Term, len(args))
	copy(cp, args)
	return Term{kind: TermCtor, ctor: name, args: cp}, nil
}

func errArity(name symbol.Symbol, n int) error {
	return &termError{name, n}
}

type termError struct {
	name symbol.Symbol
	n    int
}

func (e *termError) Error() string {
	return "term: constructor " + e.name.Name() + " takes at most 5 arguments, got " + strconv.Itoa(e.n)
}

// Kind reports the term variant.
func (t Term) Kind() TermKind { return t.kind }

// IsVariable reports whether t is a (possibly wildcard) variable.
func (t Term) IsVariable() bool { return t.kind == TermVar }

// Variable returns the variable symbol; valid only when Kind() == TermVar.
func (t Term) Variable() symbol.Symbol { return t.v }

// ConstValue returns the wrapped value; valid only when Kind() == TermConst.
func (t Term) ConstValue() Value { return t.value }

// CtorParts returns the constructor name and argument terms; valid only
// when Kind() == TermCtor.
func (t Term) CtorParts() (symbol.Symbol, []Term) { return t.ctor, t.args }

// String returns a readable representation.
func (t Term) String() string {
	switch t.kind {
	case TermConst:
		return t.value.String()
	case TermVar:
		return t.v.Name()
	case TermCtor:
		var sb strings.Builder
		sb.WriteString(t.ctor.Name())
		sb.WriteRune('(')
		for i, a := range t.args {
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

// AddVars collects every variable occurring in t into out.
func AddVars(t Term, out map[symbol.Symbol]bool) {
	switch t.kind {
	case TermVar:
		out[t.v] = true
	case TermCtor:
		for _, a := range t.args {
			AddVars(a, out)
		}
	}
}

// Polarity distinguishes a positive atom from its negation.
type Polarity int

// The two polarities a predicate atom may carry.
const (
	Positive Polarity = iota
	Negated
)

// PredicateAtom is a predicate symbol applied to ordered terms, with a
// polarity. Arity is 1..5 per spec.md §3 (0-arity "propositions" are
// represented as PredicateSym{Arity: 0} and are allowed for convenience,
// matching the teacher's ast.PredicateSym treatment of 0-arity facts).
type PredicateAtom struct {
	Predicate symbol.PredicateSym
	Args      []Term
	Polarity  Polarity
}

// NewAtom constructs a positive predicate atom.
func NewAtom(pred symbol.PredicateSym, args ...Term) PredicateAtom {
	return PredicateAtom{Predicate: pred, Args: args, Polarity: Positive}
}

// Negate returns the negated form of a (necessarily positive) atom.
func (a PredicateAtom) Negate() PredicateAtom {
	return PredicateAtom{Predicate: a.Predicate, Args: a.Args, Polarity: Negated}
}

// IsNegated reports whether this atom is negated.
func (a PredicateAtom) IsNegated() bool { return a.Polarity == Negated }

func (a PredicateAtom) String() string {
	var sb strings.Builder
	if a.Polarity == Negated {
		sb.WriteRune('!')
	}
	sb.WriteString(a.Predicate.String())
	sb.WriteRune('(')
	for i, arg := range a.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteRune(')')
	return sb.String()
}

// FnSym names a functional/constraint built-in (equality, ordering,
// arithmetic) evaluated by package builtin.
type FnSym int

// The functional/constraint atom kinds spec.md §4.5 names.
const (
	FnEq FnSym = iota
	FnLt
	FnLe
	FnGt
	FnGe
	FnPlus
	FnMinus
	FnTimes
)

// FunctionalAtom is an equality or built-in constraint atom: the body-atom
// shape spec.md §3 calls a "functional" atom, as distinct from a predicate
// atom.
type FunctionalAtom struct {
	Fn   FnSym
	Args []Term // arity depends on Fn: 2 for comparisons/eq, 3 for arithmetic (lhs, rhs, result)
}

func (f FunctionalAtom) String() string {
	names := map[FnSym]string{FnEq: "=", FnLt: "<", FnLe: "<=", FnGt: ">", FnGe: ">=", FnPlus: "+", FnMinus: "-", FnTimes: "*"}
	var sb strings.Builder
	for i, a := range f.Args {
		if i > 0 {
			sb.WriteString(" ")
			sb.WriteString(names[f.Fn])
			sb.WriteString(" ")
		}
		sb.WriteString(a.String())
	}
	return sb.String()
}

// BodyAtom is any of the three shapes a clause body element may take:
// a predicate atom (positive or negated) or a functional/constraint atom.
type BodyAtom interface {
	isBodyAtom()
	String() string
}

func (PredicateAtom) isBodyAtom()  {}
func (FunctionalAtom) isBodyAtom() {}

// Clause is a Horn clause: a head atom and, possibly empty, body. An empty
// body and a ground head make this a fact.
type Clause struct {
	Head Head
	Body []BodyAtom
}

// Head is the head atom of a clause. For a lattice-interpreted predicate,
// the head's last argument is the derived lattice value being joined in;
// for a relational predicate, it is an ordinary tuple component.
type Head = PredicateAtom

// IsFact reports whether c has an empty body.
func (c Clause) IsFact() bool { return len(c.Body) == 0 }

func (c Clause) String() string {
	if c.IsFact() {
		return c.Head.String() + "."
	}
	var sb strings.Builder
	sb.WriteString(c.Head.String())
	sb.WriteString(" :- ")
	for i, b := range c.Body {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.String())
	}
	sb.WriteRune('.')
	return sb.String()
}

// RelationalAtoms returns the body's predicate atoms (positive and
// negated), in declared order.
func (c Clause) RelationalAtoms() []PredicateAtom {
	var out []PredicateAtom
	for _, b := range c.Body {
		if p, ok := b.(PredicateAtom); ok {
			out = append(out, p)
		}
	}
	return out
}

// FunctionalAtoms returns the body's functional/constraint atoms, in
// declared order.
func (c Clause) FunctionalAtoms() []FunctionalAtom {
	var out []FunctionalAtom
	for _, b := range c.Body {
		if f, ok := b.(FunctionalAtom); ok {
			out = append(out, f)
		}
	}
	return out
}

// Environment is a finite, purely functional mapping from variable symbol
// to ground Value. The zero value is the empty environment. Extend never
// mutates the receiver, matching spec.md's "purely functional extension"
// lifecycle for Environment.
type Environment struct {
	parent *Environment
	v      symbol.Symbol
	val    Value
}

// Lookup returns the bound value and true, or the zero Value and false.
func (e *Environment) Lookup(v symbol.Symbol) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if env.v == v {
			return env.val, true
		}
	}
	return Value{}, false
}

// Extend returns a new Environment binding v to val on top of e, without
// modifying e.
func (e *Environment) Extend(v symbol.Symbol, val Value) *Environment {
	return &Environment{parent: e, v: v, val: val}
}

// ErrUnboundVariable is an unbound-variable error that names no variable.
// Ground does not return this value itself: it returns a fresh error naming
// the missing variable, which IsUnboundVariable recognises.
var ErrUnboundVariable = &unboundErr{}

type unboundErr struct{ v symbol.Symbol }

func (e *unboundErr) Error() string {
	if e.v == (symbol.Symbol{}) {
		return "term: unbound variable"
	}
	return "term: unbound variable " + e.v.Name()
}

// IsUnboundVariable reports whether err is (or wraps) an unbound-variable
// failure from Ground, and if so which variable.
func IsUnboundVariable(err error) (symbol.Symbol, bool) {
	var ue *unboundErr
	if errors.As(err, &ue) {
		return ue.v, true
	}
	return symbol.Symbol{}, false
}

// Ground evaluates a symbolic term to a ground Value under env.
// Constant terms evaluate to themselves; a Variable looks itself up in env
// (and fails with an unbound-variable error, see IsUnboundVariable, if
// absent); a Constructor term
// recursively grounds its arguments. Ground performs no mutation.
func Ground(t Term, env *Environment) (Value, error) {
	switch t.kind {
	case TermConst:
		return t.value, nil
	case TermVar:
		val, ok := env.Lookup(t.v)
		if !ok {
			return Value{}, &unboundErr{t.v}
		}
		return val, nil
	case TermCtor:
		args := make([]Value, len(t.args))
		for i, a := range t.args {
			v, err := Ground(a, env)
			if err != nil {
				return Value{}, err
			}
			args[i] = v
		}
		return Constructor(t.ctor, args...)
	default:
		return Value{}, &unboundErr{}
	}
}

// GroundAtom grounds every argument of a, returning a tuple of Values.
func GroundAtom(a PredicateAtom, env *Environment) ([]Value, error) {
	out := make([]Value, len(a.Args))
	for i, t := range a.Args {
		v, err := Ground(t, env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
