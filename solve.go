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

// Package stratalog computes the minimal model of a stratified
// Datalog-with-lattices program: the smallest assignment of tuples to each
// relation, and of join values to each lattice map, that satisfies every
// rule (spec.md §1).
//
// Solve is the sole entry point. Its functional-options configuration
// (Option/Options, WithFactLimit/WithCancel/WithPredicateAllowList) follows
// the teacher's engine.EvalOption/EvalOptions pattern in
// engine/seminaivebottomup.go.
package stratalog

import (
	"github.com/opendatalog/stratalog/diag"
	"github.com/opendatalog/stratalog/engine"
	"github.com/opendatalog/stratalog/lattice"
	"github.com/opendatalog/stratalog/program"
	"github.com/opendatalog/stratalog/store"
	"github.com/opendatalog/stratalog/symbol"
	"github.com/opendatalog/stratalog/term"
)

// Options configures a Solve call.
type Options struct {
	factLimit          int
	cancel             <-chan struct{}
	predicateAllowList func(symbol.PredicateSym) bool
}

// Option affects the way Solve performs a solve.
type Option func(*Options)

// WithFactLimit aborts the solve with a Cancelled error, returning the
// partial model built so far, once more than limit facts (summed across
// every relation and every lattice join) have been derived. A limit of 0
// (the default) means unlimited.
func WithFactLimit(limit int) Option {
	return func(o *Options) { o.factLimit = limit }
}

// WithCancel polls ch at stratum boundaries; a closed or readable channel
// aborts the solve with a Cancelled error and the partial model built so
// far (spec.md §5).
func WithCancel(ch <-chan struct{}) Option {
	return func(o *Options) { o.cancel = ch }
}

// WithPredicateAllowList restricts evaluation to facts and rules whose head
// predicate satisfies allow; every other fact and rule is dropped from the
// program before solving. A nil allow (the default) evaluates everything.
func WithPredicateAllowList(allow func(symbol.PredicateSym) bool) Option {
	return func(o *Options) { o.predicateAllowList = allow }
}

func newOptions(opts ...Option) Options {
	var o Options
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// Solve computes the minimal model of prog. On success it returns the
// complete Model and Stats. On a fatal error (spec.md §7) it returns a nil
// Model and the error, except for Cancelled, which also returns the
// partial Model accumulated before cancellation.
func Solve(prog program.Program, opts ...Option) (*Model, engine.Stats, error) {
	o := newOptions(opts...)
	if o.predicateAllowList != nil {
		prog = filterProgram(prog, o.predicateAllowList)
	}

	facts := store.New()
	lat := lattice.New()
	stats, err := engine.Run(prog, facts, lat, engine.Options{
		FactLimit: o.factLimit,
		Cancel:    o.cancel,
	})
	model := &Model{prog: prog, facts: facts, lattice: lat}
	if err != nil {
		if diag.IsKind(err, diag.Cancelled) {
			return model, stats, err
		}
		return nil, stats, err
	}
	return model, stats, nil
}

func filterProgram(prog program.Program, allow func(symbol.PredicateSym) bool) program.Program {
	out := program.Program{Interpretations: prog.Interpretations}
	for _, f := range prog.Facts {
		if allow(f.Head.Predicate) {
			out.Facts = append(out.Facts, f)
		}
	}
	for _, c := range prog.Clauses {
		if allow(c.Head.Predicate) {
			out.Clauses = append(out.Clauses, c)
		}
	}
	return out
}

// Model is the solved output of a Program (spec.md §6.2): the complete
// relation contents and lattice-join results.
type Model struct {
	prog    program.Program
	facts   *store.Store
	lattice *lattice.Store
}

// Relation returns every tuple derived for the relational predicate named
// name with the given arity.
func (m *Model) Relation(name string, arity int) [][]term.Value {
	p := symbol.NewPredicateSym(name, arity)
	var out [][]term.Value
	m.facts.All(p, func(t store.Tuple) {
		out = append(out, []term.Value(t))
	})
	return out
}

// Lattice returns the joined value for every key ever derived under the
// lattice predicate named name with the given key arity.
func (m *Model) Lattice(name string, keyArity int) map[string]term.Value {
	p := symbol.NewPredicateSym(name, keyArity+1)
	out := make(map[string]term.Value)
	m.lattice.Entries(p, func(k lattice.Key, v term.Value) {
		out[keyString(k)] = v
	})
	return out
}

func keyString(k lattice.Key) string {
	s := ""
	for i, v := range k {
		if i > 0 {
			s += ","
		}
		s += v.String()
	}
	return s
}

