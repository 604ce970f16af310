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

// Package symbol provides interned names used to identify predicates and
// variables throughout a program.
package symbol

import "sync"

// Symbol is an interned name. Two Symbols with the same Name always compare
// equal and, once obtained from the same Interner, are the identical value.
type Symbol struct {
	name string
}

// Name returns the underlying string.
func (s Symbol) Name() string { return s.name }

func (s Symbol) String() string { return s.name }

// Interner hands out Symbols for names, ensuring a single representative
// per distinct name. It is process-wide safe: several Solver instances may
// share one Interner and intern concurrently.
type Interner struct {
	mu   sync.RWMutex
	seen map[string]Symbol
}

// NewInterner constructs an empty Interner.
func NewInterner() *Interner {
	return &Interner{seen: make(map[string]Symbol)}
}

// Intern returns the Symbol for name, creating it on first use.
func (in *Interner) Intern(name string) Symbol {
	in.mu.RLock()
	if s, ok := in.seen[name]; ok {
		in.mu.RUnlock()
		return s
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if s, ok := in.seen[name]; ok {
		return s
	}
	s := Symbol{name: name}
	in.seen[name] = s
	return s
}

// global is the default process-wide interner used by the package-level
// helpers Intern and NewPredicateSym, for callers that do not need an
// isolated namespace.
var global = NewInterner()

// Intern interns name in the process-wide default Interner.
func Intern(name string) Symbol {
	return global.Intern(name)
}

// PredicateSym identifies a predicate by interned name and declared arity.
// Arity is part of the identity: p/2 and p/3 are different predicates, as
// is standard in Datalog.
type PredicateSym struct {
	Name  Symbol
	Arity int
}

func (p PredicateSym) String() string { return p.Name.String() }

// NewPredicateSym interns name and pairs it with arity.
func NewPredicateSym(name string, arity int) PredicateSym {
	return PredicateSym{Name: Intern(name), Arity: arity}
}
