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

package tabulation

import (
	"github.com/awslabs/argot-ifds/analysis/domain"
	"github.com/awslabs/argot-ifds/analysis/flow"
	"github.com/awslabs/argot-ifds/analysis/ir"
)

// Result holds the facts computed by a Solver. The fact indices are those of the domain of the problem.
type Result struct {
	sg        ir.Supergraph
	dom       *domain.Domain
	facts     map[ir.Node]*flow.FactSet
	summaries map[summaryKey]*flow.FactSet
	complete  bool
}

// Complete returns false if the solve was interrupted before reaching its fixed point
func (r *Result) Complete() bool {
	return r.complete
}

// Supergraph returns the supergraph the result was computed on
func (r *Result) Supergraph() ir.Supergraph {
	return r.sg
}

// Domain returns the domain the facts are numbered in
func (r *Result) Domain() *domain.Domain {
	return r.dom
}

// FactsAt returns a copy of the facts holding after node n
func (r *Result) FactsAt(n ir.Node) *flow.FactSet {
	return r.facts[n].Clone()
}

// Reached returns true if n is reachable from an entrypoint, i.e. the zero fact holds at n
func (r *Result) Reached(n ir.Node) bool {
	return r.facts[n].Contains(domain.Zero)
}

// Holds returns true if the element e holds after node n
func (r *Result) Holds(n ir.Node, e domain.Element) bool {
	d, ok := r.dom.Lookup(e)
	return ok && r.facts[n].Contains(d)
}

// ElementsAt returns the elements holding after node n, in fact index order. The zero fact is omitted.
func (r *Result) ElementsAt(n ir.Node) []domain.Element {
	var elements []domain.Element
	r.facts[n].ForEach(func(d int) bool {
		if d != domain.Zero {
			elements = append(elements, r.dom.MustElementOf(d))
		}
		return true
	})
	return elements
}

// FlowTypesOf returns the flow types of the elements on code element c holding after node n
func (r *Result) FlowTypesOf(n ir.Node, c domain.CodeElement) []domain.FlowType {
	var types []domain.FlowType
	for _, e := range r.ElementsAt(n) {
		if e.Code == c {
			types = append(types, e.Taint)
		}
	}
	return types
}

// EndSummary returns a copy of the facts reaching the exit of proc when it is entered with fact d1
func (r *Result) EndSummary(proc ir.Procedure, d1 int) *flow.FactSet {
	return r.summaries[summaryKey{proc: proc, d1: d1}].Clone()
}

// SummaryFunction returns the entry to exit function of proc computed by the solver. It is only defined on the entry
// facts the procedure has been entered with.
func (r *Result) SummaryFunction(proc ir.Procedure) flow.Function {
	return flow.FunctionOf(func(d int) *flow.FactSet { return r.EndSummary(proc, d) })
}

// ReachedNodes returns the nodes reachable from an entrypoint, in procedure and node order
func (r *Result) ReachedNodes() []ir.Node {
	var nodes []ir.Node
	for _, proc := range r.sg.Procedures() {
		for _, n := range r.sg.Nodes(proc) {
			if r.Reached(n) {
				nodes = append(nodes, n)
			}
		}
	}
	return nodes
}
