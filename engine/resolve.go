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

	"github.com/opendatalog/stratalog/lattice"
	"github.com/opendatalog/stratalog/program"
	"github.com/opendatalog/stratalog/store"
	"github.com/opendatalog/stratalog/symbol"
	"github.com/opendatalog/stratalog/term"
)

// compiledClause is a clause with its body pre-sorted into well-moded
// order (ported from the teacher's oneStepEvalClause left-fold structure in
// engine/naivebottomup.go, generalized to skip one already-satisfied atom
// for the semi-naive refinement).
type compiledClause struct {
	clause term.Clause
	body   []term.BodyAtom
	vars   []symbol.Symbol // every variable occurring in head or body, sorted by name
}

func compile(c term.Clause) *compiledClause {
	ordered := order(c.Body)
	varSet := make(map[symbol.Symbol]bool)
	for _, t := range c.Head.Args {
		term.AddVars(t, varSet)
	}
	for _, b := range ordered {
		switch a := b.(type) {
		case term.PredicateAtom:
			for _, t := range a.Args {
				term.AddVars(t, varSet)
			}
		case term.FunctionalAtom:
			for _, t := range a.Args {
				term.AddVars(t, varSet)
			}
		}
	}
	vars := make([]symbol.Symbol, 0, len(varSet))
	for v := range varSet {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name() < vars[j].Name() })
	return &compiledClause{clause: c, body: ordered, vars: vars}
}

// envKey canonicalizes an environment's bindings over exactly the clause's
// relevant variables, so equivalent environments compare equal regardless
// of the order their bindings were extended in. This realizes spec.md
// §4.6's "frontier is a set (deduplicated by value equality)".
func (c *compiledClause) envKey(env *term.Environment) string {
	var sb strings.Builder
	for _, v := range c.vars {
		val, ok := env.Lookup(v)
		if !ok {
			continue
		}
		sb.WriteString(v.Name())
		sb.WriteByte('=')
		sb.WriteString(val.String())
		sb.WriteByte(';')
	}
	return sb.String()
}

// resolve folds seedEnv (or the empty environment, if seedEnv is nil) over
// every body atom in well-moded order, skipping skipIdx (the atom the
// caller has already established via a fresh fact or lattice join — the
// semi-naive refinement of spec.md §4.7). The returned frontier is
// deduplicated by envKey.
func resolve(cc *compiledClause, skipIdx int, seedEnv *term.Environment, prog program.Program, facts *store.Store, lat *lattice.Store) ([]*term.Environment, error) {
	frontier := []*term.Environment{seedEnv}
	for i, atom := range cc.body {
		if i == skipIdx {
			continue
		}
		var next []*term.Environment
		for _, env := range frontier {
			exts, err := extend(atom, prog, facts, lat, env)
			if err != nil {
				return nil, err
			}
			next = append(next, exts...)
		}
		frontier = dedupe(cc, next)
		if len(frontier) == 0 {
			return nil, nil
		}
	}
	return frontier, nil
}

func dedupe(cc *compiledClause, envs []*term.Environment) []*term.Environment {
	if len(envs) <= 1 {
		return envs
	}
	seen := make(map[string]bool, len(envs))
	out := make([]*term.Environment, 0, len(envs))
	for _, e := range envs {
		k := cc.envKey(e)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}
