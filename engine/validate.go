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

package engine

import (
	"go.uber.org/multierr"

	"github.com/opendatalog/stratalog/builtin"
	"github.com/opendatalog/stratalog/diag"
	"github.com/opendatalog/stratalog/program"
	"github.com/opendatalog/stratalog/symbol"
	"github.com/opendatalog/stratalog/term"
)

// Validate checks every atom in prog against its declared interpretation
// before any evaluation starts, accumulating every failure found (rather
// than stopping at the first) via go.uber.org/multierr, the way the
// teacher's analysis package accumulates rule-check failures across a
// whole program.
func Validate(prog program.Program) error {
	var errs error
	checkAtom := func(a term.PredicateAtom) {
		in, ok := prog.InterpretationOf(a.Predicate)
		if !ok {
			errs = multierr.Append(errs, diag.UnknownPredicateErr(a.Predicate))
			return
		}
		want := in.Arity
		if in.Kind == program.LatticeMap {
			want++
		}
		if len(a.Args) != want {
			errs = multierr.Append(errs, diag.ArityMismatchErr(a.Predicate, len(a.Args)))
		}
	}
	checkClause := func(c term.Clause) {
		if c.Head.IsNegated() {
			errs = multierr.Append(errs, diag.NonRelationalHeadErr(c.Head.Predicate))
		}
		checkAtom(c.Head)
		boundVars := make(map[string]bool)
		for _, atom := range order(c.Body) {
			switch a := atom.(type) {
			case term.PredicateAtom:
				checkAtom(a)
				if a.IsNegated() {
					free := make(map[string]bool)
					for _, t := range a.Args {
						walkVars(t, free)
					}
					for v := range free {
						if !boundVars[v] {
							errs = multierr.Append(errs, diag.UngroundNegationErr(a))
							break
						}
					}
				} else {
					for _, t := range a.Args {
						walkVars(t, boundVars)
					}
				}
			case term.FunctionalAtom:
				if want := builtin.Arity(a.Fn); want != 0 && len(a.Args) != want {
					errs = multierr.Append(errs, diag.ArityMismatchErr(symbol.NewPredicateSym(a.String(), want), len(a.Args)))
				}
				// A functional atom may bind one free result variable; that
				// variable becomes available to atoms after it, which this
				// left-to-right pass models by adding all of its operands
				// (including the as-yet-unbound one) to boundVars here.
				for _, t := range a.Args {
					walkVars(t, boundVars)
				}
			}
		}
	}
	for _, f := range prog.Facts {
		checkAtom(f.Head)
	}
	for _, c := range prog.Clauses {
		checkClause(c)
	}
	return errs
}

func walkVars(t term.Term, out map[string]bool) {
	switch t.Kind() {
	case term.TermVar:
		out[t.Variable().Name()] = true
	case term.TermCtor:
		_, args := t.CtorParts()
		for _, a := range args {
			walkVars(a, out)
		}
	}
}
