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

// Package store contains the indexed fact store: per-predicate multi-key
// indices supporting insert-if-absent with a novelty signal and prefix
// (or, more generally, bound-position) lookup.
//
// The representation ports the teacher's
// factstore.MultiIndexedArrayInMemoryStore: one shard per predicate, and
// within a shard, one sub-index per argument position mapping that
// position's value hash to the tuples agreeing there. Insert updates every
// position's sub-index; Lookup probes whichever position is bound
// (preferring the first, as the teacher's GetFacts does) and falls back to
// a full predicate scan when every argument is a wildcard.
package store

import (
	"github.com/opendatalog/stratalog/symbol"
	"github.com/opendatalog/stratalog/term"
)

// Tuple is a ground argument tuple for one fact.
type Tuple []term.Value

// Equals reports structural equality between tuples.
func (t Tuple) Equals(o Tuple) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if !t[i].Equals(o[i]) {
			return false
		}
	}
	return true
}

// Hash combines the per-value hashes via Szudzik pairing, matching
// term.Value's own composite-hash scheme.
func (t Tuple) Hash() uint64 {
	if len(t) == 0 {
		return 0
	}
	h := t[0].Hash()
	for _, v := range t[1:] {
		h = pair(h, v.Hash())
	}
	return h
}

func pair(a, b uint64) uint64 {
	if a >= b {
		return a*a + a + b
	}
	return b*b + a
}

type predicateShard struct {
	arity int
	// byPosition[i][valueHash][tupleHash] holds every stored tuple whose
	// i-th argument hashes to valueHash, keyed again by the tuple's own
	// hash to disambiguate collisions via Tuple.Equals on retrieval.
	byPosition []map[uint64]map[uint64][]Tuple
	// holds the single possible fact for a 0-arity (propositional) predicate.
	proposition bool
}

func newShard(arity int) *predicateShard {
	s := &predicateShard{arity: arity, byPosition: make([]map[uint64]map[uint64][]Tuple, arity)}
	for i := range s.byPosition {
		s.byPosition[i] = make(map[uint64]map[uint64][]Tuple)
	}
	return s
}

// Store is the indexed fact store for every relational predicate in a
// Solver run. The zero value is not usable; construct with New.
type Store struct {
	shards map[symbol.PredicateSym]*predicateShard
}

// New constructs an empty Store.
func New() *Store {
	return &Store{shards: make(map[symbol.PredicateSym]*predicateShard)}
}

func (s *Store) shardFor(p symbol.PredicateSym) *predicateShard {
	sh, ok := s.shards[p]
	if !ok {
		sh = newShard(p.Arity)
		s.shards[p] = sh
	}
	return sh
}

// Insert adds tuple for predicate p and reports true iff it was previously
// absent. This novelty bit is what drives the worklist (spec.md §4.2).
func (s *Store) Insert(p symbol.PredicateSym, tuple Tuple) bool {
	if s.Contains(p, tuple) {
		return false
	}
	sh := s.shardFor(p)
	if p.Arity == 0 {
		sh.proposition = true
		return true
	}
	th := tuple.Hash()
	for i, v := range tuple {
		vh := v.Hash()
		byVal, ok := sh.byPosition[i][vh]
		if !ok {
			byVal = make(map[uint64][]Tuple)
			sh.byPosition[i][vh] = byVal
		}
		byVal[th] = append(byVal[th], tuple)
	}
	return true
}

// Contains reports whether tuple is already present for predicate p.
func (s *Store) Contains(p symbol.PredicateSym, tuple Tuple) bool {
	sh, ok := s.shards[p]
	if !ok {
		return false
	}
	if p.Arity == 0 {
		return sh.proposition
	}
	th := tuple.Hash()
	vh := tuple[0].Hash()
	for _, cand := range sh.byPosition[0][vh][th] {
		if cand.Equals(tuple) {
			return true
		}
	}
	return false
}

// Lookup calls cb with every stored tuple for predicate p whose bound
// positions (pattern[i] != nil) agree with pattern. A nil entry in pattern
// is a wildcard. When no position is bound, Lookup performs a full
// predicate scan. This generalizes spec.md §4.2's "bound-prefix" contract
// to bound positions anywhere in the tuple, which is what the evaluator
// needs once a clause body has been reordered (spec.md §4.5).
func (s *Store) Lookup(p symbol.PredicateSym, pattern []*term.Value, cb func(Tuple)) {
	sh, ok := s.shards[p]
	if !ok {
		return
	}
	if p.Arity == 0 {
		if sh.proposition {
			cb(Tuple{})
		}
		return
	}
	probe := -1
	for i, v := range pattern {
		if v != nil {
			probe = i
			break
		}
	}
	if probe < 0 {
		s.scan(sh, cb)
		return
	}
	vh := pattern[probe].Hash()
	for _, bucket := range sh.byPosition[probe][vh] {
		for _, cand := range bucket {
			if matches(pattern, cand) {
				cb(cand)
			}
		}
	}
}

func (s *Store) scan(sh *predicateShard, cb func(Tuple)) {
	seen := make(map[uint64]bool)
	for _, byVal := range sh.byPosition[0] {
		for th, bucket := range byVal {
			if seen[th] {
				continue
			}
			seen[th] = true
			for _, cand := range bucket {
				cb(cand)
			}
		}
	}
}

func matches(pattern []*term.Value, tuple Tuple) bool {
	for i, v := range pattern {
		if v != nil && !v.Equals(tuple[i]) {
			return false
		}
	}
	return true
}

// Count returns the number of stored tuples for predicate p.
func (s *Store) Count(p symbol.PredicateSym) int {
	sh, ok := s.shards[p]
	if !ok {
		return 0
	}
	if p.Arity == 0 {
		if sh.proposition {
			return 1
		}
		return 0
	}
	total := 0
	seen := make(map[uint64]bool)
	for _, byVal := range sh.byPosition[0] {
		for th, bucket := range byVal {
			if seen[th] {
				continue
			}
			seen[th] = true
			total += len(bucket)
		}
	}
	return total
}

// Predicates lists every predicate with at least one stored tuple.
func (s *Store) Predicates() []symbol.PredicateSym {
	out := make([]symbol.PredicateSym, 0, len(s.shards))
	for p := range s.shards {
		out = append(out, p)
	}
	return out
}

// All calls cb with every stored tuple for predicate p.
func (s *Store) All(p symbol.PredicateSym, cb func(Tuple)) {
	s.Lookup(p, make([]*term.Value, p.Arity), cb)
}
