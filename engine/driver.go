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
	"time"

	"github.com/golang/glog"

	"github.com/opendatalog/stratalog/analysis"
	"github.com/opendatalog/stratalog/diag"
	"github.com/opendatalog/stratalog/lattice"
	"github.com/opendatalog/stratalog/program"
	"github.com/opendatalog/stratalog/store"
	"github.com/opendatalog/stratalog/symbol"
	"github.com/opendatalog/stratalog/term"
	"github.com/opendatalog/stratalog/unify"
)

// Options configures one Run. The zero value runs with no fact limit and no
// cancellation.
type Options struct {
	FactLimit int             // 0 means unlimited
	Cancel    <-chan struct{} // polled at stratum boundaries, spec.md §5
}

// Stats reports the work a Run performed (spec.md §6.2).
type Stats struct {
	FactsDerived  map[symbol.PredicateSym]int
	RulesFired    int
	WallClockTime time.Duration
}

func newStats() Stats {
	return Stats{FactsDerived: make(map[symbol.PredicateSym]int)}
}

type trigger struct {
	cc        *compiledClause
	atomIndex int
}

type workItem struct {
	cc      *compiledClause
	skip    int
	seedEnv *term.Environment
}

// Run executes the semi-naive fixed-point algorithm of spec.md §4.7 over
// prog, populating facts and lat in place. It returns once every stratum
// has reached quiescence, or on the first fatal diag.Error, or when Cancel
// fires at a stratum boundary (in which case the partial facts/lat content
// already committed is left in place and the error has Kind Cancelled).
func Run(prog program.Program, facts *store.Store, lat *lattice.Store, opts Options) (Stats, error) {
	start := time.Now()
	stats := newStats()

	for p, in := range prog.Interpretations {
		if in.Kind == program.LatticeMap {
			lat.Declare(p, in.Lattice)
		}
	}

	if err := Validate(prog); err != nil {
		return stats, err
	}

	strata, predToStratum, err := analysis.Stratify(prog)
	if err != nil {
		return stats, err
	}

	compiled := make([]*compiledClause, 0, len(prog.Clauses))
	for _, c := range prog.Clauses {
		compiled = append(compiled, compile(c))
	}
	deps := buildDeps(compiled)

	var worklist []workItem
	push := func(w workItem) { worklist = append(worklist, w) }

	propagate := func(tuple []term.Value, pred symbol.PredicateSym, stratum int) {
		for _, tr := range deps[pred] {
			headStratum := predToStratum[tr.cc.clause.Head.Predicate]
			if headStratum != stratum {
				continue
			}
			atom := tr.cc.body[tr.atomIndex].(term.PredicateAtom)
			seedEnv, ok := unify.Match(atom.Args, tuple, nil)
			if !ok {
				continue
			}
			push(workItem{cc: tr.cc, skip: tr.atomIndex, seedEnv: seedEnv})
		}
	}

	total := 0
	record := func(p symbol.PredicateSym, novel bool) error {
		if !novel {
			return nil
		}
		stats.FactsDerived[p]++
		total++
		if opts.FactLimit > 0 && total > opts.FactLimit {
			return diag.CancelledErr()
		}
		return nil
	}

	for s, stratum := range strata {
		if opts.Cancel != nil {
			select {
			case <-opts.Cancel:
				return stats, diag.CancelledErr()
			default:
			}
		}
		glog.V(1).Infof("engine: entering stratum %d with %d predicates", s, len(stratum))

		for _, fact := range prog.Facts {
			p := fact.Head.Predicate
			if predToStratum[p] != s {
				continue
			}
			novel, tuple, err := satisfy(fact.Head, prog, facts, lat, nil)
			if err != nil {
				return stats, err
			}
			if err := record(p, novel); err != nil {
				return stats, err
			}
			if novel {
				propagate(tuple, p, s)
			}
		}

		for _, cc := range compiled {
			if predToStratum[cc.clause.Head.Predicate] == s {
				push(workItem{cc: cc, skip: -1, seedEnv: nil})
			}
		}

		for len(worklist) > 0 {
			item := worklist[0]
			worklist = worklist[1:]
			envs, err := resolve(item.cc, item.skip, item.seedEnv, prog, facts, lat)
			if err != nil {
				return stats, err
			}
			if envs == nil {
				continue
			}
			stats.RulesFired++
			for _, env := range envs {
				p := item.cc.clause.Head.Predicate
				novel, tuple, err := satisfy(item.cc.clause.Head, prog, facts, lat, env)
				if err != nil {
					return stats, err
				}
				if err := record(p, novel); err != nil {
					return stats, err
				}
				if novel {
					propagate(tuple, p, s)
				}
			}
		}
	}

	stats.WallClockTime = time.Since(start)
	return stats, nil
}

// buildDeps indexes every positive predicate atom occurrence across every
// compiled clause, by the predicate it references. Negated atoms are
// excluded: stratification guarantees they reference a strictly lower,
// already-complete stratum, so they never need to re-wake a clause.
func buildDeps(compiled []*compiledClause) map[symbol.PredicateSym][]trigger {
	deps := make(map[symbol.PredicateSym][]trigger)
	for _, cc := range compiled {
		for i, atom := range cc.body {
			pa, ok := atom.(term.PredicateAtom)
			if !ok || pa.IsNegated() {
				continue
			}
			deps[pa.Predicate] = append(deps[pa.Predicate], trigger{cc: cc, atomIndex: i})
		}
	}
	return deps
}
