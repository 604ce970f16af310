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

// Package unify implements the matching/environment-extension machinery
// the evaluator uses to bind a partial environment against a concrete fact
// tuple.
//
// The teacher's unionfind package solves the more general problem of
// unifying two open terms (either side may carry free variables), because
// its source language permits equating two unbound variables directly. In
// stratified Datalog with well-moded bodies (spec.md §4.5), a functional or
// negated atom's variables are always fully bound by a preceding positive
// atom before it runs, so only one side of a match is ever symbolic; the
// other is always a ground term.Value drawn from the fact or lattice
// store. Match below is that narrower, purely functional operation:
// extend an Environment so a pattern (terms, possibly with free variables
// and nested constructors) agrees with a ground tuple, or report failure.
package unify

import (
	"github.com/opendatalog/stratalog/term"
)

// Match attempts to extend env so that every term in pattern evaluates to
// the corresponding value in tuple. Already-bound variables in pattern
// must agree with tuple (by Value.Equals); unbound variables are bound.
// Constructor terms are matched structurally against Constructor values,
// recursively binding any free variables nested inside (spec.md §4.5:
// "unified against the retrieved Value by structural match"). Match never
// mutates env; on failure it returns (nil, false) and env is untouched.
func Match(pattern []term.Term, tuple []term.Value, env *term.Environment) (*term.Environment, bool) {
	if len(pattern) != len(tuple) {
		return nil, false
	}
	cur := env
	for i, pt := range pattern {
		next, ok := matchOne(pt, tuple[i], cur)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func matchOne(pat term.Term, val term.Value, env *term.Environment) (*term.Environment, bool) {
	switch pat.Kind() {
	case term.TermConst:
		if pat.ConstValue().Equals(val) {
			return env, true
		}
		return nil, false
	case term.TermVar:
		v := pat.Variable()
		if v.Name() == "_" {
			return env, true // wildcard: matches anything, binds nothing
		}
		if bound, ok := env.Lookup(v); ok {
			if bound.Equals(val) {
				return env, true
			}
			return nil, false
		}
		return env.Extend(v, val), true
	case term.TermCtor:
		if val.Kind() != term.KindConstructor {
			return nil, false
		}
		name, subArgs := val.ConstructorValue()
		patName, patArgs := pat.CtorParts()
		if name != patName || len(patArgs) != len(subArgs) {
			return nil, false
		}
		cur := env
		for i, sub := range patArgs {
			next, ok := matchOne(sub, subArgs[i], cur)
			if !ok {
				return nil, false
			}
			cur = next
		}
		return cur, true
	default:
		return nil, false
	}
}

// GroundOrMatch grounds pat under env if every variable it contains is
// already bound; if grounding fails only because of a single top-level
// free variable (pat is itself that variable), it instead binds that
// variable to want and succeeds. This implements the "propagate it bound
// to the computed value when the atom is a total function" clause of
// spec.md §4.5 for functional/constraint atoms with exactly one free
// variable.
func GroundOrMatch(pat term.Term, want term.Value, env *term.Environment) (*term.Environment, error) {
	v, err := term.Ground(pat, env)
	if err == nil {
		if v.Equals(want) {
			return env, nil
		}
		return nil, errMismatch
	}
	if sym, ok := term.IsUnboundVariable(err); ok && pat.Kind() == term.TermVar && pat.Variable() == sym {
		return env.Extend(sym, want), nil
	}
	return nil, err
}

var errMismatch = mismatchError{}

type mismatchError struct{}

func (mismatchError) Error() string { return "unify: value mismatch" }

// IsMismatch reports whether err is the "values disagree" failure from
// GroundOrMatch, as opposed to a propagated unbound-variable error.
func IsMismatch(err error) bool {
	_, ok := err.(mismatchError)
	return ok
}
