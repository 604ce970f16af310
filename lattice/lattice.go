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

// Package lattice holds the per-key lattice store for LatticeMap-interpreted
// predicates: a map from key tuple to the least upper bound of every value
// ever joined in under that key.
//
// This is a deliberate departure from the teacher's mechanism. google/mangle
// reaches aggregation indirectly, through fundep/merge-predicate declarations
// resolved by the evaluator (engine.mergeDelta, engine.hasMergePredicate): a
// rule declares which predicate merges duplicate keys and the engine
// special-cases that predicate during evaluation. Here the Interpretation
// itself carries bottom/leq/lub directly (spec.md §4.3), so the store can
// compute the join inline on every derivation rather than rewriting clauses
// or special-casing a merge predicate. Only the sharding style — one index
// per predicate, keyed by a hash of the key tuple — is carried over from the
// teacher's factstore package.
package lattice

import (
	"github.com/opendatalog/stratalog/symbol"
	"github.com/opendatalog/stratalog/term"
)

// Join is a binary least-upper-bound function. It must be commutative,
// associative, idempotent, and monotone with respect to Leq; the store
// trusts the caller to supply such a function (spec.md §4.3).
type Join func(a, b term.Value) term.Value

// Leq is a partial-order test: Leq(a, b) holds iff a is less than or equal
// to b under the lattice's order.
type Leq func(a, b term.Value) bool

// Interpretation is the bottom/leq/lub triple declared for a lattice
// predicate.
type Interpretation struct {
	Bottom term.Value
	Leq    Leq
	Lub    Join
}

// Key is a key tuple: the first arity-1 argument positions of a lattice
// predicate, used to look up its joined value.
type Key []term.Value

func (k Key) hash() uint64 {
	if len(k) == 0 {
		return 0
	}
	h := k[0].Hash()
	for _, v := range k[1:] {
		h = szudzikPair(h, v.Hash())
	}
	return h
}

func (k Key) equals(o Key) bool {
	if len(k) != len(o) {
		return false
	}
	for i := range k {
		if !k[i].Equals(o[i]) {
			return false
		}
	}
	return true
}

func szudzikPair(a, b uint64) uint64 {
	if a >= b {
		return a*a + a + b
	}
	return b*b + a
}

type entry struct {
	key Key
	val term.Value
}

type shard struct {
	interp Interpretation
	byHash map[uint64][]entry
}

// Store is the lattice store for every LatticeMap-interpreted predicate in
// a solve. The zero value is not usable; construct with New.
type Store struct {
	shards map[symbol.PredicateSym]*shard
}

// New constructs an empty Store.
func New() *Store {
	return &Store{shards: make(map[symbol.PredicateSym]*shard)}
}

// Declare registers p's lattice interpretation. Must be called before Join
// or Get for p.
func (s *Store) Declare(p symbol.PredicateSym, interp Interpretation) {
	s.shards[p] = &shard{interp: interp, byHash: make(map[uint64][]entry)}
}

// Join computes v' = lub(current-or-bottom, v) for predicate p at key, and
// if v' differs from the previously stored value, stores v' and reports
// true. This is the "changed?" bit the worklist consumes for lattice
// predicates (spec.md §4.3).
func (s *Store) Join(p symbol.PredicateSym, key Key, v term.Value) bool {
	sh := s.shards[p]
	h := key.hash()
	bucket := sh.byHash[h]
	current := sh.interp.Bottom
	idx := -1
	for i, e := range bucket {
		if e.key.equals(key) {
			current = e.val
			idx = i
			break
		}
	}
	joined := sh.interp.Lub(current, v)
	if joined.Equals(current) {
		return false
	}
	if idx >= 0 {
		bucket[idx].val = joined
		return true
	}
	sh.byHash[h] = append(bucket, entry{key: append(Key(nil), key...), val: joined})
	return true
}

// Get returns the stored value for p at key, or the predicate's bottom if
// key has never been joined into.
func (s *Store) Get(p symbol.PredicateSym, key Key) term.Value {
	sh, ok := s.shards[p]
	if !ok {
		return term.Unit
	}
	h := key.hash()
	for _, e := range sh.byHash[h] {
		if e.key.equals(key) {
			return e.val
		}
	}
	return sh.interp.Bottom
}

// Leq reports whether a is less-or-equal to b under p's declared order.
func (s *Store) Leq(p symbol.PredicateSym, a, b term.Value) bool {
	return s.shards[p].interp.Leq(a, b)
}

// Bottom returns p's declared bottom value.
func (s *Store) Bottom(p symbol.PredicateSym) term.Value {
	return s.shards[p].interp.Bottom
}

// Entries calls cb with every (key, value) pair currently stored for p.
func (s *Store) Entries(p symbol.PredicateSym, cb func(Key, term.Value)) {
	sh, ok := s.shards[p]
	if !ok {
		return
	}
	for _, bucket := range sh.byHash {
		for _, e := range bucket {
			cb(e.key, e.val)
		}
	}
}

// Predicates lists every predicate with a declared lattice interpretation.
func (s *Store) Predicates() []symbol.PredicateSym {
	out := make([]symbol.PredicateSym, 0, len(s.shards))
	for p := range s.shards {
		out = append(out, p)
	}
	return out
}
