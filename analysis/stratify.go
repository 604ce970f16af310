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

// Package analysis builds the predicate dependency graph and assigns each
// predicate a stratum, rejecting programs whose negated edges form a cycle.
//
// Ported from the teacher's analysis.Stratify / makeDepGraph / sccs
// (Kosaraju's algorithm over the predicate graph). A positive reference to
// a lattice-valued predicate is an ordinary positive edge, not a negative
// one: spec.md §4.3/§4.7 derive lattice values through the same worklist
// fixpoint as relational recursion, and lub is monotone, so a predicate
// that reads its own (or a peer's) lattice value through a chain of joins
// converges via the ascending-chain condition exactly like positive
// relational recursion (S8) does — it has no business being rejected as
// unstratifiable. Only an actual negated atom (term.BodyAtom.IsNegated)
// marks a negative edge, whether it negates a relational or a lattice
// predicate; that is the one case requiring its source to have already
// reached a fixed point in a strictly lower stratum. Map iteration order is
// never relied on for the result: every traversal instead walks a
// stringset-sorted predicate list, so two runs on the same Program produce
// byte-identical strata (spec.md §8 property 3, determinism).
package analysis

import (
	"bitbucket.org/creachadair/stringset"

	"github.com/opendatalog/stratalog/diag"
	"github.com/opendatalog/stratalog/program"
	"github.com/opendatalog/stratalog/symbol"
	"github.com/opendatalog/stratalog/term"
)

// Nodeset is a set of predicate symbols forming one strongly connected
// component of the dependency graph.
type Nodeset map[symbol.PredicateSym]bool

type edgeMap map[symbol.PredicateSym]bool // dest -> negated

type depGraph map[symbol.PredicateSym]edgeMap

func (dep depGraph) initNode(src symbol.PredicateSym) {
	if _, ok := dep[src]; !ok {
		dep[src] = make(edgeMap)
	}
}

func (dep depGraph) addEdge(src, dest symbol.PredicateSym, negated bool) {
	dep.initNode(src)
	edges := dep[src]
	if negated {
		edges[dest] = true
		return
	}
	if wasNegative, ok := edges[dest]; !ok || !wasNegative {
		edges[dest] = false
	}
}

func (dep depGraph) sortedNodes() []symbol.PredicateSym {
	names := stringset.New()
	byName := make(map[string]symbol.PredicateSym, len(dep))
	for sym := range dep {
		names.Add(sym.String())
		byName[sym.String()] = sym
	}
	out := make([]symbol.PredicateSym, 0, len(dep))
	for _, n := range names.Elements() {
		out = append(out, byName[n])
	}
	return out
}

func (dep depGraph) sortedDests(src symbol.PredicateSym) []symbol.PredicateSym {
	edges := dep[src]
	names := stringset.New()
	byName := make(map[string]symbol.PredicateSym, len(edges))
	for d := range edges {
		names.Add(d.String())
		byName[d.String()] = d
	}
	out := make([]symbol.PredicateSym, 0, len(edges))
	for _, n := range names.Elements() {
		out = append(out, byName[n])
	}
	return out
}

func makeDepGraph(prog program.Program) depGraph {
	dep := make(depGraph)
	for _, f := range prog.Facts {
		dep.initNode(f.Head.Predicate)
	}
	for _, clause := range prog.Clauses {
		head := clause.Head.Predicate
		dep.initNode(head)
		for _, atom := range clause.RelationalAtoms() {
			dep.addEdge(head, atom.Predicate, atom.IsNegated())
		}
	}
	return dep
}

func (dep depGraph) transpose() depGraph {
	rev := make(depGraph)
	for _, src := range dep.sortedNodes() {
		for _, dest := range dep.sortedDests(src) {
			rev.addEdge(dest, src, dep[src][dest])
		}
	}
	return rev
}

// sccs computes strongly connected components via Kosaraju's algorithm,
// returning them in an order derived from the deterministic forward-pass
// postorder.
func (dep depGraph) sccs() []Nodeset {
	var order []symbol.PredicateSym
	seen := make(map[symbol.PredicateSym]bool)
	var visit func(symbol.PredicateSym)
	visit = func(node symbol.PredicateSym) {
		if seen[node] {
			return
		}
		seen[node] = true
		for _, e := range dep.sortedDests(node) {
			visit(e)
		}
		order = append(order, node)
	}
	for _, node := range dep.sortedNodes() {
		visit(node)
	}

	rev := dep.transpose()
	seen = make(map[symbol.PredicateSym]bool)
	var scc Nodeset
	var rvisit func(symbol.PredicateSym)
	rvisit = func(node symbol.PredicateSym) {
		if seen[node] {
			return
		}
		seen[node] = true
		scc[node] = true
		for _, e := range rev.sortedDests(node) {
			rvisit(e)
		}
	}
	var sccs []Nodeset
	for i := len(order) - 1; i >= 0; i-- {
		top := order[i]
		if !seen[top] {
			scc = make(Nodeset)
			rvisit(top)
			sccs = append(sccs, scc)
		}
	}
	return sccs
}

// sortResult topologically sorts the strata so each predicate's stratum
// index only depends on strata that precede it.
func (dep depGraph) sortResult(strata []Nodeset, predToStratum map[symbol.PredicateSym]int) ([]Nodeset, map[symbol.PredicateSym]int) {
	var sorted []int
	seen := make(map[int]bool)
	var visit func(int)
	visit = func(idx int) {
		if seen[idx] {
			return
		}
		seen[idx] = true
		for sym := range strata[idx] {
			for _, d := range dep.sortedDests(sym) {
				visit(predToStratum[d])
			}
		}
		sorted = append(sorted, idx)
	}
	for i := range strata {
		visit(i)
	}
	newStrata := make([]Nodeset, len(strata))
	oldToNew := make(map[int]int, len(strata))
	for i, old := range sorted {
		newStrata[i] = strata[old]
		oldToNew[old] = i
	}
	newPredToStratum := make(map[symbol.PredicateSym]int, len(predToStratum))
	for sym, old := range predToStratum {
		newPredToStratum[sym] = oldToNew[old]
	}
	return newStrata, newPredToStratum
}

// Stratify computes the predicate dependency graph for prog and assigns
// each predicate a stratum. It rejects the program with a diag.Error of
// kind Unstratifiable if any strongly connected component contains a
// negative (negated-atom) edge between two of its own members. The returned strata are topologically ordered: stratum 0 first.
func Stratify(prog program.Program) ([]Nodeset, map[symbol.PredicateSym]int, error) {
	dep := makeDepGraph(prog)
	strata := dep.sccs()
	predToStratum := make(map[symbol.PredicateSym]int)
	for i, c := range strata {
		for sym := range c {
			predToStratum[sym] = i
		}
	}
	for i, c := range strata {
		for _, sym := range sortedMembers(c) {
			for _, dest := range dep.sortedDests(sym) {
				if !dep[sym][dest] {
					continue
				}
				if destStratum, ok := predToStratum[dest]; ok && destStratum == i {
					return nil, nil, diag.UnstratifiableErr(sym, cycleAtoms(c))
				}
			}
		}
	}
	strata, predToStratum = dep.sortResult(strata, predToStratum)
	return strata, predToStratum, nil
}

func sortedMembers(ns Nodeset) []symbol.PredicateSym {
	names := stringset.New()
	byName := make(map[string]symbol.PredicateSym, len(ns))
	for sym := range ns {
		names.Add(sym.String())
		byName[sym.String()] = sym
	}
	out := make([]symbol.PredicateSym, 0, len(ns))
	for _, n := range names.Elements() {
		out = append(out, byName[n])
	}
	return out
}

func cycleAtoms(c Nodeset) []term.PredicateAtom {
	var out []term.PredicateAtom
	for _, sym := range sortedMembers(c) {
		out = append(out, term.NewAtom(sym))
	}
	return out
}
