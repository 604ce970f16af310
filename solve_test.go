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

package stratalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendatalog/stratalog/diag"
	"github.com/opendatalog/stratalog/lattice"
	"github.com/opendatalog/stratalog/program"
	"github.com/opendatalog/stratalog/symbol"
	"github.com/opendatalog/stratalog/term"
)

func fact(p symbol.PredicateSym, vals ...term.Value) term.Clause {
	args := make([]term.Term, len(vals))
	for i, v := range vals {
		args[i] = term.Const(v)
	}
	return term.Clause{Head: term.NewAtom(p, args...)}
}

func TestSolveTransitiveClosure(t *testing.T) {
	edge := symbol.NewPredicateSym("edge", 2)
	reach := symbol.NewPredicateSym("reach", 2)
	x, y, z := term.Var(symbol.Intern("X")), term.Var(symbol.Intern("Y")), term.Var(symbol.Intern("Z"))

	prog := program.Program{
		Interpretations: map[symbol.PredicateSym]program.Interpretation{
			edge:  {Kind: program.Relation, Arity: 2},
			reach: {Kind: program.Relation, Arity: 2},
		},
		Facts: []term.Clause{
			fact(edge, term.Str("a"), term.Str("b")),
			fact(edge, term.Str("b"), term.Str("c")),
		},
		Clauses: []term.Clause{
			{Head: term.NewAtom(reach, x, y), Body: []term.BodyAtom{term.NewAtom(edge, x, y)}},
			{
				Head: term.NewAtom(reach, x, z),
				Body: []term.BodyAtom{term.NewAtom(edge, x, y), term.NewAtom(reach, y, z)},
			},
		},
	}

	model, stats, err := Solve(prog)
	require.NoError(t, err)
	assert.Len(t, model.Relation("reach", 2), 3)
	assert.Greater(t, stats.RulesFired, 0, "stats.RulesFired should be nonzero")
}

func TestSolveWithPredicateAllowList(t *testing.T) {
	edge := symbol.NewPredicateSym("edge", 2)
	noise := symbol.NewPredicateSym("noise", 1)
	prog := program.Program{
		Interpretations: map[symbol.PredicateSym]program.Interpretation{
			edge:  {Kind: program.Relation, Arity: 2},
			noise: {Kind: program.Relation, Arity: 1},
		},
		Facts: []term.Clause{
			fact(edge, term.Str("a"), term.Str("b")),
			fact(noise, term.Str("x")),
		},
	}
	model, _, err := Solve(prog, WithPredicateAllowList(func(p symbol.PredicateSym) bool {
		return p == edge
	}))
	if err != nil {
		t.Fatal(err)
	}
	if got := model.Relation("edge", 2); len(got) != 1 {
		t.Errorf("edge has %d tuples, want 1", len(got))
	}
	if got := model.Relation("noise", 1); len(got) != 0 {
		t.Errorf("noise has %d tuples, want 0 (filtered out)", len(got))
	}
}

func TestSolveWithFactLimitReturnsPartialModel(t *testing.T) {
	edge := symbol.NewPredicateSym("edge", 2)
	prog := program.Program{
		Interpretations: map[symbol.PredicateSym]program.Interpretation{
			edge: {Kind: program.Relation, Arity: 2},
		},
		Facts: []term.Clause{
			fact(edge, term.Str("a"), term.Str("b")),
			fact(edge, term.Str("b"), term.Str("c")),
			fact(edge, term.Str("c"), term.Str("d")),
		},
	}
	model, _, err := Solve(prog, WithFactLimit(1))
	if !diag.IsKind(err, diag.Cancelled) {
		t.Fatalf("Solve() error = %v, want Cancelled", err)
	}
	if model == nil {
		t.Fatal("Solve() on Cancelled should still return a partial Model")
	}
	if got := len(model.Relation("edge", 2)); got == 0 {
		t.Error("partial model should contain at least the facts derived before cancellation")
	}
}

func TestSolveFatalErrorReturnsNilModel(t *testing.T) {
	p := symbol.NewPredicateSym("p", 1)
	q := symbol.NewPredicateSym("q", 1)
	x := term.Var(symbol.Intern("X"))
	prog := program.Program{
		Interpretations: map[symbol.PredicateSym]program.Interpretation{
			p: {Kind: program.Relation, Arity: 1},
			q: {Kind: program.Relation, Arity: 1},
		},
		Clauses: []term.Clause{
			{Head: term.NewAtom(p, x), Body: []term.BodyAtom{term.NewAtom(q, x).Negate()}},
			{Head: term.NewAtom(q, x), Body: []term.BodyAtom{term.NewAtom(p, x).Negate()}},
		},
	}
	model, _, err := Solve(prog)
	require.Error(t, err, "Solve() over an unstratifiable program should fail")
	assert.Nil(t, model, "Solve() on a fatal, non-Cancelled error should return a nil Model")
}

func TestSolveLatticeAggregation(t *testing.T) {
	reading := symbol.NewPredicateSym("reading", 2)
	peak := symbol.NewPredicateSym("peak", 2)
	x, v := term.Var(symbol.Intern("X")), term.Var(symbol.Intern("V"))

	maxInterp := lattice.Interpretation{
		Bottom: term.Int(64, 0),
		Leq: func(a, b term.Value) bool {
			i, _ := a.IntValue()
			j, _ := b.IntValue()
			return i <= j
		},
		Lub: func(a, b term.Value) term.Value {
			i, _ := a.IntValue()
			j, _ := b.IntValue()
			if i > j {
				return a
			}
			return b
		},
	}
	prog := program.Program{
		Interpretations: map[symbol.PredicateSym]program.Interpretation{
			reading: {Kind: program.Relation, Arity: 2},
			peak:    {Kind: program.LatticeMap, Arity: 1, Lattice: maxInterp},
		},
		Facts: []term.Clause{
			fact(reading, term.Str("s1"), term.Int(64, 2)),
			fact(reading, term.Str("s1"), term.Int(64, 8)),
		},
		Clauses: []term.Clause{
			{Head: term.NewAtom(peak, x, v), Body: []term.BodyAtom{term.NewAtom(reading, x, v)}},
		},
	}
	model, _, err := Solve(prog)
	if err != nil {
		t.Fatal(err)
	}
	got := model.Lattice("peak", 1)
	v2, ok := got["\"s1\""]
	if !ok || !v2.Equals(term.Int(64, 8)) {
		t.Errorf("Lattice()[\"s1\"] = (%v, %v), want (8, true)", v2, ok)
	}
}
