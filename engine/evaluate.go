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

// Package engine implements the predicate evaluator, clause resolver, and
// semi-naive fixed-point driver (spec.md §4.5–§4.7).
//
// The per-atom-shape dispatch in extend is ported from the teacher's
// engine/premise.go (premiseAtom, premiseNegAtom, premiseEq, premiseIneq),
// generalized with a third atom shape for lattice-valued predicates and
// adapted to the narrower unify.Match in place of unionfind.UnifyTermsExtend.
package engine

import (
	"github.com/opendatalog/stratalog/builtin"
	"github.com/opendatalog/stratalog/diag"
	"github.com/opendatalog/stratalog/lattice"
	"github.com/opendatalog/stratalog/program"
	"github.com/opendatalog/stratalog/store"
	"github.com/opendatalog/stratalog/term"
	"github.com/opendatalog/stratalog/unify"
)

// extend evaluates one body atom under env, returning every environment
// extension that satisfies it (spec.md §4.5's "extend(atom, interpretation,
// env) → lazy sequence<env>", realized eagerly since the stores involved
// are in-memory and bounded by the program's own finite domains).
func extend(atom term.BodyAtom, prog program.Program, facts *store.Store, lat *lattice.Store, env *term.Environment) ([]*term.Environment, error) {
	switch a := atom.(type) {
	case term.PredicateAtom:
		if a.IsNegated() {
			return extendNegated(a, prog, facts, lat, env)
		}
		return extendPositive(a, prog, facts, lat, env)
	case term.FunctionalAtom:
		return extendFunctional(a, env)
	default:
		return nil, nil
	}
}

func interpOf(prog program.Program, p term.PredicateAtom) (program.Interpretation, error) {
	in, ok := prog.InterpretationOf(p.Predicate)
	if !ok {
		return program.Interpretation{}, diag.UnknownPredicateErr(p.Predicate)
	}
	wantArity := in.Arity
	if in.Kind == program.LatticeMap {
		wantArity = in.Arity + 1
	}
	if len(p.Args) != wantArity {
		return program.Interpretation{}, diag.ArityMismatchErr(p.Predicate, len(p.Args))
	}
	return in, nil
}

func extendPositive(a term.PredicateAtom, prog program.Program, facts *store.Store, lat *lattice.Store, env *term.Environment) ([]*term.Environment, error) {
	in, err := interpOf(prog, a)
	if err != nil {
		return nil, err
	}
	if in.Kind == program.LatticeMap {
		return extendLattice(a, in, lat, env)
	}
	return extendRelational(a, facts, env)
}

// extendRelational grounds every already-bound term in a, then looks up the
// fact store using whatever positions are bound as the pattern, binding the
// remaining free variables (and structurally matching Constructor terms)
// for each returned tuple.
func extendRelational(a term.PredicateAtom, facts *store.Store, env *term.Environment) ([]*term.Environment, error) {
	pattern := make([]*term.Value, len(a.Args))
	for i, t := range a.Args {
		if v, err := term.Ground(t, env); err == nil {
			pattern[i] = &v
		}
	}
	var out []*term.Environment
	facts.Lookup(a.Predicate, pattern, func(tuple store.Tuple) {
		next, ok := unify.Match(a.Args, []term.Value(tuple), env)
		if ok {
			out = append(out, next)
		}
	})
	return out, nil
}

// extendLattice grounds the key positions, binds or checks the value
// position against the stored join (spec.md §4.5's "upper approximation"
// reading).
func extendLattice(a term.PredicateAtom, in program.Interpretation, lat *lattice.Store, env *term.Environment) ([]*term.Environment, error) {
	keyTerms := a.Args[:in.Arity]
	valueTerm := a.Args[in.Arity]
	key := make(lattice.Key, len(keyTerms))
	for i, t := range keyTerms {
		v, err := term.Ground(t, env)
		if err != nil {
			return nil, err
		}
		key[i] = v
	}
	stored := lat.Get(a.Predicate, key)
	if valueTerm.IsVariable() && valueTerm.Variable().Name() != "_" {
		if _, bound := env.Lookup(valueTerm.Variable()); !bound {
			return []*term.Environment{env.Extend(valueTerm.Variable(), stored)}, nil
		}
	}
	v, err := term.Ground(valueTerm, env)
	if err != nil {
		return nil, err
	}
	if lat.Leq(a.Predicate, stored, v) {
		return []*term.Environment{env}, nil
	}
	return nil, nil
}

// extendNegated requires a to be fully ground under env (else
// UngroundNegation), and yields {env} iff the tuple is absent from the
// store. Because negated atoms are well-moded to run after every positive
// atom, and stratification guarantees the negated predicate belongs to a
// strictly lower, already-complete stratum, this is a safe point-in-time
// check (spec.md §4.5).
func extendNegated(a term.PredicateAtom, prog program.Program, facts *store.Store, lat *lattice.Store, env *term.Environment) ([]*term.Environment, error) {
	in, err := interpOf(prog, a)
	if err != nil {
		return nil, err
	}
	tuple, err := term.GroundAtom(a, env)
	if err != nil {
		return nil, diag.UngroundNegationErr(a)
	}
	var present bool
	if in.Kind == program.LatticeMap {
		key := lattice.Key(tuple[:in.Arity])
		present = lat.Leq(a.Predicate, tuple[in.Arity], lat.Get(a.Predicate, key)) &&
			lat.Leq(a.Predicate, lat.Get(a.Predicate, key), tuple[in.Arity])
	} else {
		present = facts.Contains(a.Predicate, store.Tuple(tuple))
	}
	if present {
		return nil, nil
	}
	return []*term.Environment{env}, nil
}

// extendFunctional evaluates a built-in comparison or arithmetic atom once
// every bound argument has a Value, propagating a single free result
// variable when the atom is a total function (spec.md §4.5).
func extendFunctional(a term.FunctionalAtom, env *term.Environment) ([]*term.Environment, error) {
	switch a.Fn {
	case term.FnEq:
		return extendEquality(a.Args[0], a.Args[1], env)
	case term.FnLt, term.FnLe, term.FnGt, term.FnGe:
		return extendComparison(a, env)
	case term.FnPlus, term.FnMinus, term.FnTimes:
		return extendArithmetic(a, env)
	default:
		return nil, nil
	}
}

// extendComparison requires both operands bound, per spec.md §4.5 ("built-in
// predicates such as < ... evaluate after all its variables are bound").
func extendComparison(a term.FunctionalAtom, env *term.Environment) ([]*term.Environment, error) {
	lhs, err := term.Ground(a.Args[0], env)
	if err != nil {
		return nil, err
	}
	rhs, err := term.Ground(a.Args[1], env)
	if err != nil {
		return nil, err
	}
	result, err := builtin.Eval(a.Fn, []term.Value{lhs, rhs})
	if err != nil {
		return nil, nil
	}
	if result.BoolValue() {
		return []*term.Environment{env}, nil
	}
	return nil, nil
}

// extendArithmetic grounds the two operands and either checks or binds the
// result position via GroundOrMatch, propagating the computed value to a
// single free result variable when the atom is a total function (spec.md
// §4.5).
func extendArithmetic(a term.FunctionalAtom, env *term.Environment) ([]*term.Environment, error) {
	lhs, err := term.Ground(a.Args[0], env)
	if err != nil {
		return nil, err
	}
	rhs, err := term.Ground(a.Args[1], env)
	if err != nil {
		return nil, err
	}
	result, err := builtin.Eval(a.Fn, []term.Value{lhs, rhs})
	if err != nil {
		return nil, nil
	}
	next, err := unify.GroundOrMatch(a.Args[2], result, env)
	if err != nil {
		if unify.IsMismatch(err) {
			return nil, nil
		}
		return nil, err
	}
	return []*term.Environment{next}, nil
}

// extendEquality handles the Eq functional atom: if both sides ground,
// succeeds iff they agree; if exactly one side is a single free variable,
// binds it to the other side's ground value; otherwise fails with
// UnboundVariable, since an equality with two free variables is not
// well-moded.
func extendEquality(left, right term.Term, env *term.Environment) ([]*term.Environment, error) {
	lv, lerr := term.Ground(left, env)
	rv, rerr := term.Ground(right, env)
	switch {
	case lerr == nil && rerr == nil:
		if lv.Equals(rv) {
			return []*term.Environment{env}, nil
		}
		return nil, nil
	case lerr == nil && rerr != nil:
		if right.IsVariable() {
			return []*term.Environment{env.Extend(right.Variable(), lv)}, nil
		}
		return nil, rerr
	case rerr == nil && lerr != nil:
		if left.IsVariable() {
			return []*term.Environment{env.Extend(left.Variable(), rv)}, nil
		}
		return nil, lerr
	default:
		return nil, lerr
	}
}
