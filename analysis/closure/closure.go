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

package closure

import (
	"github.com/awslabs/argot-ifds/internal/graphutil"
	"github.com/yourbasic/graph"
	"golang.org/x/tools/container/intsets"
)

// BitVectorProblem is a forward gen/kill dataflow problem over Graph. For every node v, the solution satisfies
//
//	Out[v] = Gen[v] ∪ (∪{Out[p] | p predecessor of v} \ Kill[v])
//
// Gen and Kill are indexed by node; they may be shorter than the order of the graph, and nil entries are empty sets.
type BitVectorProblem struct {
	Graph graph.Iterator
	Gen   []*intsets.Sparse
	Kill  []*intsets.Sparse
}

// Solve computes the least solution of the problem. Nodes are first visited in topological order of the SCCs of the
// graph, and then re-visited until no set changes.
func (p BitVectorProblem) Solve() []*intsets.Sparse {
	n := p.Graph.Order()
	out := make([]*intsets.Sparse, n)
	for v := range out {
		out[v] = &intsets.Sparse{}
		if g := at(p.Gen, v); g != nil {
			out[v].Copy(g)
		}
	}
	preds := graph.Transpose(p.Graph)

	// components come callees-first: reversing them gives a forward order
	sccs := graphutil.IteratorComponents(p.Graph)
	worklist := make([]int, 0, n)
	queued := make([]bool, n)
	for i := len(sccs) - 1; i >= 0; i-- {
		for _, v := range sccs[i] {
			worklist = append(worklist, v)
			queued[v] = true
		}
	}

	var in intsets.Sparse
	for len(worklist) > 0 {
		v := worklist[0]
		worklist = worklist[1:]
		queued[v] = false

		in.Clear()
		preds.Visit(v, func(u int, _ int64) bool {
			in.UnionWith(out[u])
			return false
		})
		if k := at(p.Kill, v); k != nil {
			in.DifferenceWith(k)
		}
		if !out[v].UnionWith(&in) {
			continue
		}
		p.Graph.Visit(v, func(w int, _ int64) bool {
			if !queued[w] {
				queued[w] = true
				worklist = append(worklist, w)
			}
			return false
		})
	}
	return out
}

func at(sets []*intsets.Sparse, v int) *intsets.Sparse {
	if v < len(sets) {
		return sets[v]
	}
	return nil
}

// TransitiveClosure returns, for every node of cg, the union of its local set and the local sets of all the nodes it
// transitively calls. local is indexed by node ID.
func TransitiveClosure(cg graphutil.CGraph, local []*intsets.Sparse) []*intsets.Sparse {
	return BitVectorProblem{Graph: graph.Transpose(cg), Gen: local}.Solve()
}
