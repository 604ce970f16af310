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

// Package program defines the solver's input contract: the Program the
// front-end hands the solver, consisting of per-predicate interpretations,
// ground facts, and rules (spec.md §6.1).
package program

import (
	"github.com/opendatalog/stratalog/lattice"
	"github.com/opendatalog/stratalog/symbol"
	"github.com/opendatalog/stratalog/term"
)

// Kind distinguishes a predicate's interpretation: an ordinary relation, or
// a lattice map.
type Kind int

// The two interpretation kinds a predicate may carry (spec.md §3).
const (
	Relation Kind = iota
	LatticeMap
)

// Interpretation declares how one predicate symbol's derivations are to be
// stored. A Relation interpretation's Arity is the tuple's full arity; a
// LatticeMap interpretation's Arity is the key arity (one less than the
// atom's declared arity — the final position is the joined value) and
// carries the bottom/leq/lub triple.
type Interpretation struct {
	Kind    Kind
	Arity   int
	Lattice lattice.Interpretation // populated iff Kind == LatticeMap
}

// Program is the solver's complete input: every predicate's interpretation,
// the ground facts, and the rules relating them.
type Program struct {
	Interpretations map[symbol.PredicateSym]Interpretation
	Facts           []term.Clause
	Clauses         []term.Clause
}

// InterpretationOf looks up sym's declared interpretation.
func (p Program) InterpretationOf(sym symbol.PredicateSym) (Interpretation, bool) {
	in, ok := p.Interpretations[sym]
	return in, ok
}

// AllClauses returns facts and rules concatenated, facts first.
func (p Program) AllClauses() []term.Clause {
	out := make([]term.Clause, 0, len(p.Facts)+len(p.Clauses))
	out = append(out, p.Facts...)
	out = append(out, p.Clauses...)
	return out
}
