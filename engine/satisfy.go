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
	"github.com/opendatalog/stratalog/diag"
	"github.com/opendatalog/stratalog/lattice"
	"github.com/opendatalog/stratalog/program"
	"github.com/opendatalog/stratalog/store"
	"github.com/opendatalog/stratalog/term"
)

// satisfy grounds head under env and commits it to the appropriate store —
// store.Insert for a Relation interpretation, lattice.Store.Join for a
// LatticeMap one — dispatching by interpretation kind the way the
// teacher's engine.mergeDelta dispatches on hasMergePredicate. It reports
// the novelty/changed bit the driver forwards to the worklist, and the
// grounded tuple so the driver can build seed environments for whatever
// clauses depend on head's predicate.
func satisfy(head term.PredicateAtom, prog program.Program, facts *store.Store, lat *lattice.Store, env *term.Environment) (novel bool, tuple []term.Value, err error) {
	in, ok := prog.InterpretationOf(head.Predicate)
	if !ok {
		return false, nil, diag.UnknownPredicateErr(head.Predicate)
	}
	if head.IsNegated() {
		return false, nil, diag.NonRelationalHeadErr(head.Predicate)
	}
	tuple, err = term.GroundAtom(head, env)
	if err != nil {
		return false, nil, err
	}
	if in.Kind == program.LatticeMap {
		key := lattice.Key(tuple[:in.Arity])
		v := tuple[in.Arity]
		changed := lat.Join(head.Predicate, key, v)
		return changed, tuple, nil
	}
	added := facts.Insert(head.Predicate, store.Tuple(tuple))
	return added, tuple, nil
}
