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

// Package diag defines the solver's structured failure kinds (spec.md §4.8,
// §7). Each Error carries the offending predicate symbol and atom; multiple
// validation failures from a single pass are joined with go.uber.org/multierr,
// mirroring how the teacher's analysis package accumulates rule-check
// failures.
package diag

import (
	"fmt"

	"github.com/opendatalog/stratalog/symbol"
	"github.com/opendatalog/stratalog/term"
)

// Kind enumerates the solver's structured failure kinds.
type Kind int

// The failure kinds named by spec.md §4.8 and §7.
const (
	UnknownPredicate Kind = iota
	ArityMismatch
	UnboundVariable
	UngroundNegation
	NonRelationalHead
	Unstratifiable
	LatticeContract
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case UnknownPredicate:
		return "UnknownPredicate"
	case ArityMismatch:
		return "ArityMismatch"
	case UnboundVariable:
		return "UnboundVariable"
	case UngroundNegation:
		return "UngroundNegation"
	case NonRelationalHead:
		return "NonRelationalHead"
	case Unstratifiable:
		return "Unstratifiable"
	case LatticeContract:
		return "LatticeContract"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Span is a source location propagated from the front-end. The zero value
// means "no span available" (e.g. for programs constructed directly rather
// than parsed).
type Span struct {
	File      string
	Line, Col int
}

func (s Span) String() string {
	if s.File == "" && s.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Error is a single structured solver failure.
type Error struct {
	Kind      Kind
	Predicate symbol.PredicateSym
	Atom      *term.PredicateAtom // nil when the failure is not atom-specific
	Span      Span
	Detail    string // human-readable elaboration, e.g. the cycle member list
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Predicate.String()
	if e.Atom != nil {
		msg += " in " + e.Atom.String()
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if sp := e.Span.String(); sp != "" {
		msg += " at " + sp
	}
	return msg
}

func newErr(k Kind, p symbol.PredicateSym, detail string) *Error {
	return &Error{Kind: k, Predicate: p, Detail: detail}
}

// UnknownPredicateErr reports an atom referencing a predicate absent from
// the program's interpretations map.
func UnknownPredicateErr(p symbol.PredicateSym) error {
	return newErr(UnknownPredicate, p, "")
}

// ArityMismatchErr reports an atom whose argument count disagrees with p's
// declared arity.
func ArityMismatchErr(p symbol.PredicateSym, got int) error {
	return newErr(ArityMismatch, p, fmt.Sprintf("got arity %d", got))
}

// UnboundVariableErr reports a variable used in a functional or negated
// atom before any preceding positive atom bound it.
func UnboundVariableErr(p symbol.PredicateSym, v symbol.Symbol) error {
	return newErr(UnboundVariable, p, "unbound variable "+v.Name())
}

// UngroundNegationErr reports a negated atom with a free variable after
// well-moded reordering.
func UngroundNegationErr(a term.PredicateAtom) error {
	e := newErr(UngroundNegation, a.Predicate, "")
	e.Atom = &a
	return e
}

// NonRelationalHeadErr reports a clause whose head is not a positive
// predicate atom (a negated head).
func NonRelationalHeadErr(p symbol.PredicateSym) error {
	return newErr(NonRelationalHead, p, "")
}

// UnstratifiableErr reports a negative-edge cycle found by the stratifier.
func UnstratifiableErr(p symbol.PredicateSym, cycle []term.PredicateAtom) error {
	names := ""
	for i, a := range cycle {
		if i > 0 {
			names += ", "
		}
		names += a.Predicate.String()
	}
	return newErr(Unstratifiable, p, "cycle: "+names)
}

// LatticeContractErr is reserved for future runtime checks of lub's
// algebraic laws (spec.md §4.8); no caller raises it yet.
func LatticeContractErr(p symbol.PredicateSym, detail string) error {
	return newErr(LatticeContract, p, detail)
}

// CancelledErr reports that an external cancellation token fired at a
// stratum boundary.
func CancelledErr() error {
	return &Error{Kind: Cancelled}
}

// IsKind reports whether err is a *Error of kind k.
func IsKind(err error, k Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == k
}
