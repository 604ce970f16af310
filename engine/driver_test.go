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
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/opendatalog/stratalog/diag"
	"github.com/opendatalog/stratalog/lattice"
	"github.com/opendatalog/stratalog/program"
	"github.com/opendatalog/stratalog/store"
	"github.com/opendatalog/stratalog/symbol"
	"github.com/opendatalog/stratalog/term"
)

func sortedTuples(facts *store.Store, p symbol.PredicateSym) []string {
	var out []string
	facts.All(p, func(tup store.Tuple) {
		var row []string
		for _, v := range tup {
			row = append(row, v.String())
		}
		out = append(out, strings.Join(row, ","))
	})
	sort.Strings(out)
	return out
}

func factClause(p symbol.PredicateSym, vals ...term.Value) term.Clause {
	args := make([]term.Term, len(vals))
	for i, v := range vals {
		args[i] = term.Const(v)
	}
	return term.Clause{Head: term.NewAtom(p, args...)}
}

func TestRunTransitiveClosure(t *testing.T) {
	edge := symbol.NewPredicateSym("edge", 2)
	reach := symbol.NewPredicateSym("reach", 2)
	x, y, z := term.Var(symbol.Intern("X")), term.Var(symbol.Intern("Y")), term.Var(symbol.Intern("Z"))

	prog := program.Program{
		Interpretations: map[symbol.PredicateSym]program.Interpretation{
			edge:  {Kind: program.Relation, Arity: 2},
			reach: {Kind: program.Relation, Arity: 2},
		},
		Facts: []term.Clause{
			factClause(edge, term.Str("a"), term.Str("b")),
			factClause(edge, term.Str("b"), term.Str("c")),
			factClause(edge, term.Str("c"), term.Str("d")),
		},
		Clauses: []term.Clause{
			{Head: term.NewAtom(reach, x, y), Body: []term.BodyAtom{term.NewAtom(edge, x, y)}},
			{
				Head: term.NewAtom(reach, x, z),
				Body: []term.BodyAtom{term.NewAtom(edge, x, y), term.NewAtom(reach, y, z)},
			},
		},
	}

	facts := store.New()
	stats, err := Run(prog, facts, lattice.New(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := facts.Count(reach); got != 6 {
		t.Errorf("reach has %d tuples, want 6 (all pairs a<b<c<d)", got)
	}
	if stats.FactsDerived[reach] != 6 {
		t.Errorf("stats.FactsDerived[reach] = %d, want 6", stats.FactsDerived[reach])
	}
}

func TestRunStratifiedNegation(t *testing.T) {
	node := symbol.NewPredicateSym("node", 1)
	edge := symbol.NewPredicateSym("edge", 2)
	reach := symbol.NewPredicateSym("reach", 2)
	unreachable := symbol.NewPredicateSym("unreachable", 2)
	x, y, z := term.Var(symbol.Intern("X")), term.Var(symbol.Intern("Y")), term.Var(symbol.Intern("Z"))

	prog := program.Program{
		Interpretations: map[symbol.PredicateSym]program.Interpretation{
			node:        {Kind: program.Relation, Arity: 1},
			edge:        {Kind: program.Relation, Arity: 2},
			reach:       {Kind: program.Relation, Arity: 2},
			unreachable: {Kind: program.Relation, Arity: 2},
		},
		Facts: []term.Clause{
			factClause(node, term.Str("a")),
			factClause(node, term.Str("b")),
			factClause(node, term.Str("c")),
			factClause(edge, term.Str("a"), term.Str("b")),
		},
		Clauses: []term.Clause{
			{Head: term.NewAtom(reach, x, y), Body: []term.BodyAtom{term.NewAtom(edge, x, y)}},
			{
				Head: term.NewAtom(reach, x, z),
				Body: []term.BodyAtom{term.NewAtom(edge, x, y), term.NewAtom(reach, y, z)},
			},
			{
				Head: term.NewAtom(unreachable, x, y),
				Body: []term.BodyAtom{
					term.NewAtom(node, x),
					term.NewAtom(node, y),
					term.NewAtom(reach, x, y).Negate(),
				},
			},
		},
	}

	facts := store.New()
	if _, err := Run(prog, facts, lattice.New(), Options{}); err != nil {
		t.Fatal(err)
	}
	if facts.Contains(unreachable, store.Tuple{term.Str("a"), term.Str("b")}) {
		t.Error("unreachable(a, b) should not hold, a reaches b")
	}
	if !facts.Contains(unreachable, store.Tuple{term.Str("c"), term.Str("a")}) {
		t.Error("unreachable(c, a) should hold, c cannot reach a")
	}
}

func TestRunLatticeMaxAggregation(t *testing.T) {
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
			factClause(reading, term.Str("sensor1"), term.Int(64, 3)),
			factClause(reading, term.Str("sensor1"), term.Int(64, 9)),
			factClause(reading, term.Str("sensor1"), term.Int(64, 5)),
		},
		Clauses: []term.Clause{
			{Head: term.NewAtom(peak, x, v), Body: []term.BodyAtom{term.NewAtom(reading, x, v)}},
		},
	}

	facts := store.New()
	lat := lattice.New()
	if _, err := Run(prog, facts, lat, Options{}); err != nil {
		t.Fatal(err)
	}
	got := lat.Get(peak, lattice.Key{term.Str("sensor1")})
	if !got.Equals(term.Int(64, 9)) {
		t.Errorf("peak for sensor1 = %v, want 9", got)
	}
}

func TestRunRejectsUnstratifiableProgram(t *testing.T) {
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
	_, err := Run(prog, store.New(), lattice.New(), Options{})
	if !diag.IsKind(err, diag.Unstratifiable) {
		t.Fatalf("Run() error = %v, want Unstratifiable", err)
	}
}

func TestRunFactLimitCancels(t *testing.T) {
	edge := symbol.NewPredicateSym("edge", 2)
	reach := symbol.NewPredicateSym("reach", 2)
	x, y, z := term.Var(symbol.Intern("X")), term.Var(symbol.Intern("Y")), term.Var(symbol.Intern("Z"))

	prog := program.Program{
		Interpretations: map[symbol.PredicateSym]program.Interpretation{
			edge:  {Kind: program.Relation, Arity: 2},
			reach: {Kind: program.Relation, Arity: 2},
		},
		Facts: []term.Clause{
			factClause(edge, term.Str("a"), term.Str("b")),
			factClause(edge, term.Str("b"), term.Str("c")),
			factClause(edge, term.Str("c"), term.Str("d")),
		},
		Clauses: []term.Clause{
			{Head: term.NewAtom(reach, x, y), Body: []term.BodyAtom{term.NewAtom(edge, x, y)}},
			{
				Head: term.NewAtom(reach, x, z),
				Body: []term.BodyAtom{term.NewAtom(edge, x, y), term.NewAtom(reach, y, z)},
			},
		},
	}
	_, err := Run(prog, store.New(), lattice.New(), Options{FactLimit: 1})
	if !diag.IsKind(err, diag.Cancelled) {
		t.Fatalf("Run() error = %v, want Cancelled", err)
	}
}

func TestRunMultipleRulesSameHead(t *testing.T) {
	likesCats := symbol.NewPredicateSym("likes_cats", 1)
	likesDogs := symbol.NewPredicateSym("likes_dogs", 1)
	petOwner := symbol.NewPredicateSym("pet_owner", 1)
	x := term.Var(symbol.Intern("X"))

	prog := program.Program{
		Interpretations: map[symbol.PredicateSym]program.Interpretation{
			likesCats: {Kind: program.Relation, Arity: 1},
			likesDogs: {Kind: program.Relation, Arity: 1},
			petOwner:  {Kind: program.Relation, Arity: 1},
		},
		Facts: []term.Clause{
			factClause(likesCats, term.Str("alice")),
			factClause(likesDogs, term.Str("bob")),
		},
		Clauses: []term.Clause{
			{Head: term.NewAtom(petOwner, x), Body: []term.BodyAtom{term.NewAtom(likesCats, x)}},
			{Head: term.NewAtom(petOwner, x), Body: []term.BodyAtom{term.NewAtom(likesDogs, x)}},
		},
	}
	facts := store.New()
	if _, err := Run(prog, facts, lattice.New(), Options{}); err != nil {
		t.Fatal(err)
	}
	if got := facts.Count(petOwner); got != 2 {
		t.Errorf("pet_owner has %d tuples, want 2", got)
	}
}

func TestRunSelfLoopPositiveRecursionTerminates(t *testing.T) {
	link := symbol.NewPredicateSym("link", 2)
	x, y := term.Var(symbol.Intern("X")), term.Var(symbol.Intern("Y"))

	prog := program.Program{
		Interpretations: map[symbol.PredicateSym]program.Interpretation{
			link: {Kind: program.Relation, Arity: 2},
		},
		Facts: []term.Clause{
			factClause(link, term.Str("a"), term.Str("a")),
		},
		Clauses: []term.Clause{
			{Head: term.NewAtom(link, x, y), Body: []term.BodyAtom{term.NewAtom(link, y, x)}},
		},
	}
	facts := store.New()
	if _, err := Run(prog, facts, lattice.New(), Options{}); err != nil {
		t.Fatal(err)
	}
	if got := facts.Count(link); got != 1 {
		t.Errorf("link has %d tuples, want 1 (self-loop should not blow up)", got)
	}
}

// signInterp is the five-element sign lattice bottom < {neg, zero, pos} < top,
// where neg/zero/pos are pairwise incomparable (spec.md §8 S6).
var signInterp = lattice.Interpretation{
	Bottom: term.Str("bottom"),
	Leq: func(a, b term.Value) bool {
		return a.Equals(term.Str("bottom")) || b.Equals(term.Str("top")) || a.Equals(b)
	},
	Lub: func(a, b term.Value) term.Value {
		if a.Equals(b) {
			return a
		}
		if a.Equals(term.Str("bottom")) {
			return b
		}
		if b.Equals(term.Str("bottom")) {
			return a
		}
		return term.Str("top")
	},
}

// TestRunLatticeSignDomainRecursion exercises spec.md §8 S6: a lattice
// predicate that reads its own value through a chain of positive references
// must stratify into a single stratum (monotone lub recursion, like positive
// relational recursion) and a later derivation that disagrees with an
// earlier one at the same key escalates to the lattice's top element rather
// than being rejected or silently overwritten.
func TestRunLatticeSignDomainRecursion(t *testing.T) {
	constP := symbol.NewPredicateSym("const", 2)
	phi := symbol.NewPredicateSym("phi", 3)
	sign := symbol.NewPredicateSym("sign", 1)
	x, n, y, z, a, b := term.Var(symbol.Intern("X")), term.Var(symbol.Intern("N")),
		term.Var(symbol.Intern("Y")), term.Var(symbol.Intern("Z")),
		term.Var(symbol.Intern("A")), term.Var(symbol.Intern("B"))
	zero := term.Const(term.Int(64, 0))

	prog := program.Program{
		Interpretations: map[symbol.PredicateSym]program.Interpretation{
			constP: {Kind: program.Relation, Arity: 2},
			phi:    {Kind: program.Relation, Arity: 3},
			sign:   {Kind: program.LatticeMap, Arity: 1, Lattice: signInterp},
		},
		Facts: []term.Clause{
			factClause(constP, term.Str("p"), term.Int(64, 5)),
			factClause(constP, term.Str("p"), term.Int(64, -3)),
			factClause(constP, term.Str("q"), term.Int(64, 7)),
			factClause(phi, term.Str("r"), term.Str("p"), term.Str("q")),
		},
		Clauses: []term.Clause{
			{
				Head: term.NewAtom(sign, x, term.Const(term.Str("pos"))),
				Body: []term.BodyAtom{
					term.NewAtom(constP, x, n),
					term.FunctionalAtom{Fn: term.FnGt, Args: []term.Term{n, zero}},
				},
			},
			{
				Head: term.NewAtom(sign, x, term.Const(term.Str("neg"))),
				Body: []term.BodyAtom{
					term.NewAtom(constP, x, n),
					term.FunctionalAtom{Fn: term.FnLt, Args: []term.Term{n, zero}},
				},
			},
			// Sign reads itself through Phi: this self-reference must stay in
			// sign's own stratum instead of being rejected as unstratifiable.
			{
				Head: term.NewAtom(sign, x, a),
				Body: []term.BodyAtom{term.NewAtom(phi, x, y, z), term.NewAtom(sign, y, a)},
			},
			{
				Head: term.NewAtom(sign, x, b),
				Body: []term.BodyAtom{term.NewAtom(phi, x, y, z), term.NewAtom(sign, z, b)},
			},
		},
	}

	facts := store.New()
	lat := lattice.New()
	if _, err := Run(prog, facts, lat, Options{}); err != nil {
		t.Fatal(err)
	}
	if got := lat.Get(sign, lattice.Key{term.Str("p")}); !got.Equals(term.Str("top")) {
		t.Errorf("sign(p) = %v, want top (neg and pos both derived for p)", got)
	}
	if got := lat.Get(sign, lattice.Key{term.Str("q")}); !got.Equals(term.Str("pos")) {
		t.Errorf("sign(q) = %v, want pos", got)
	}
	if got := lat.Get(sign, lattice.Key{term.Str("r")}); !got.Equals(term.Str("top")) {
		t.Errorf("sign(r) = %v, want top (inherited through phi from sign(p) = top)", got)
	}
}

func TestRunDeterministicAcrossRuns(t *testing.T) {
	edge := symbol.NewPredicateSym("edge", 2)
	reach := symbol.NewPredicateSym("reach", 2)
	x, y, z := term.Var(symbol.Intern("X")), term.Var(symbol.Intern("Y")), term.Var(symbol.Intern("Z"))

	build := func() program.Program {
		return program.Program{
			Interpretations: map[symbol.PredicateSym]program.Interpretation{
				edge:  {Kind: program.Relation, Arity: 2},
				reach: {Kind: program.Relation, Arity: 2},
			},
			Facts: []term.Clause{
				factClause(edge, term.Str("a"), term.Str("b")),
				factClause(edge, term.Str("b"), term.Str("c")),
			},
			Clauses: []term.Clause{
				{Head: term.NewAtom(reach, x, y), Body: []term.BodyAtom{term.NewAtom(edge, x, y)}},
				{
					Head: term.NewAtom(reach, x, z),
					Body: []term.BodyAtom{term.NewAtom(edge, x, y), term.NewAtom(reach, y, z)},
				},
			},
		}
	}

	var runs [][]string
	for i := 0; i < 5; i++ {
		facts := store.New()
		if _, err := Run(build(), facts, lattice.New(), Options{}); err != nil {
			t.Fatal(err)
		}
		runs = append(runs, sortedTuples(facts, reach))
	}
	for i := 1; i < len(runs); i++ {
		if diff := cmp.Diff(runs[0], runs[i]); diff != "" {
			t.Errorf("run %d produced a different reach set than run 0 (-want +got):\n%s", i, diff)
		}
	}
}
