// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
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

package flow

import (
	"github.com/awslabs/argot-ifds/analysis/domain"
)

// Function is a flow function: Targets returns the facts at the destination of an edge that hold when fact d holds
// at its source. Targets must be pure (always return the same set for the same d) and must return a set containing
// the zero fact when d is the zero fact.
type Function interface {
	Targets(d int) *FactSet
}

// FunctionOf adapts a function to the Function interface
type FunctionOf func(d int) *FactSet

// Targets implements Function
func (f FunctionOf) Targets(d int) *FactSet { return f(d) }

type identity struct{}

func (identity) Targets(d int) *FactSet { return NewFactSet(d) }

// Identity is the flow function mapping every fact to itself
var Identity Function = identity{}

type union []Function

func (u union) Targets(d int) *FactSet {
	res := NewFactSet()
	for _, f := range u {
		res.AddAll(f.Targets(d))
	}
	return res
}

// Union returns the function whose targets are the union of the targets of fs
func Union(fs ...Function) Function {
	if len(fs) == 1 {
		return fs[0]
	}
	return union(fs)
}

type composed struct {
	first  Function
	second Function
}

func (c composed) Targets(d int) *FactSet {
	res := NewFactSet()
	c.first.Targets(d).ForEach(func(x int) bool {
		res.AddAll(c.second.Targets(x))
		return true
	})
	return res
}

// Compose returns the function applying first, then second to each of the targets of first
func Compose(first, second Function) Function {
	if first == Identity {
		return second
	}
	if second == Identity {
		return first
	}
	return composed{first: first, second: second}
}

// Sequence composes the functions in order. An empty sequence is the identity.
func Sequence(fs ...Function) Function {
	var res Function = Identity
	for _, f := range fs {
		res = Compose(res, f)
	}
	return res
}

// GlobalIdentity returns the function that propagates only the facts on global code elements (see domain.IsGlobal),
// and the zero fact.
func GlobalIdentity(dom *domain.Domain) Function {
	return FunctionOf(func(d int) *FactSet {
		if d == domain.Zero {
			return NewFactSet(domain.Zero)
		}
		if domain.IsGlobal(dom.MustElementOf(d).Code) {
			return NewFactSet(d)
		}
		return NewFactSet()
	})
}

// TaintEverything returns the function mapping a fact to every fact of the domain sharing its flow type. Code
// elements that never appeared with that flow type get a new index. This is a very conservative function, with a
// number of targets linear in the size of the domain.
func TaintEverything(dom *domain.Domain) Function {
	return FunctionOf(func(d int) *FactSet {
		res := NewFactSet(d)
		if d == domain.Zero {
			return res
		}
		taint := dom.MustElementOf(d).Taint
		for _, c := range dom.AllCodeElements() {
			res.Add(dom.IndexOf(domain.Element{Code: c, Taint: taint}))
		}
		return res
	})
}

// Kill returns the function that maps every fact to itself, except the facts whose element satisfies killed, which
// are mapped to the empty set.
func Kill(dom *domain.Domain, killed func(e domain.Element) bool) Function {
	return FunctionOf(func(d int) *FactSet {
		if d == domain.Zero || !killed(dom.MustElementOf(d)) {
			return NewFactSet(d)
		}
		return NewFactSet()
	})
}

// Gen returns the function that maps the zero fact to itself and the elements generated, and every other fact to
// the empty set. It is meant to be used in a Union.
func Gen(dom *domain.Domain, generated ...domain.Element) Function {
	return FunctionOf(func(d int) *FactSet {
		res := NewFactSet()
		if d != domain.Zero {
			return res
		}
		res.Add(domain.Zero)
		for _, e := range generated {
			res.Add(dom.IndexOf(e))
		}
		return res
	})
}

// useDefFunction is the flow function of an instruction described by its use/def pairs.
//   - a fact is propagated to itself unless its code element is a local, a static field or the return placeholder
//     defined by the instruction; fields of abstract objects are updated weakly,
//   - a fact on a used element flows to the defined elements with the same flow type,
//   - the zero fact generates the generated elements.
type useDefFunction struct {
	dom       *domain.Domain
	pairs     []UseDefPair
	killed    map[domain.CodeElement]bool
	generated []domain.Element
}

func newUseDefFunction(dom *domain.Domain, ud UseDefSetPair, generated []domain.Element) Function {
	if len(ud.Uses) == 0 && len(ud.Defs) == 0 && len(generated) == 0 {
		return Identity
	}
	f := &useDefFunction{
		dom:       dom,
		pairs:     ud.Pairs(),
		killed:    map[domain.CodeElement]bool{},
		generated: generated,
	}
	for _, def := range ud.Defs {
		switch def.(type) {
		case domain.Local, domain.StaticField, domain.Return:
			f.killed[def] = true
		}
	}
	return f
}

func (f *useDefFunction) Targets(d int) *FactSet {
	res := NewFactSet()
	if d == domain.Zero {
		res.Add(domain.Zero)
		for _, e := range f.generated {
			res.Add(f.dom.IndexOf(e))
		}
		return res
	}
	e := f.dom.MustElementOf(d)
	if !f.killed[e.Code] {
		res.Add(d)
	}
	for _, p := range f.pairs {
		if p.Use == e.Code {
			res.Add(f.dom.IndexOf(domain.Element{Code: p.Def, Taint: e.Taint}))
		}
	}
	return res
}
