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

import "github.com/opendatalog/stratalog/term"

// order rewrites a clause body into well-moded form (spec.md §4.5): every
// positive predicate atom first (declared order preserved), then every
// negated predicate atom, then every functional/constraint atom. This
// guarantees a negated or functional atom's variables are always bound by
// a preceding positive atom before the evaluator reaches it, which is what
// lets package unify get away with one-directional matching instead of
// full unification.
func order(body []term.BodyAtom) []term.BodyAtom {
	var positive, negated, functional []term.BodyAtom
	for _, b := range body {
		switch a := b.(type) {
		case term.PredicateAtom:
			if a.IsNegated() {
				negated = append(negated, a)
			} else {
				positive = append(positive, a)
			}
		case term.FunctionalAtom:
			functional = append(functional, a)
		}
	}
	out := make([]term.BodyAtom, 0, len(body))
	out = append(out, positive...)
	out = append(out, negated...)
	out = append(out, functional...)
	return out
}
