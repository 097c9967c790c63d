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
	"github.com/awslabs/argot-ifds/analysis/domain"
	"github.com/awslabs/argot-ifds/analysis/ir"
	"github.com/awslabs/argot-ifds/analysis/tabulation"
	"github.com/awslabs/argot-ifds/internal/funcutil"
	"github.com/awslabs/argot-ifds/internal/graphutil"
	"golang.org/x/tools/container/intsets"
)

// LocalFacts returns, for each procedure of the result's supergraph (indexed as in graphutil.NewCallGraph), the facts
// holding at any of its nodes for which keep returns true. A nil keep keeps every fact. The zero fact is never kept.
func LocalFacts(result *tabulation.Result, keep func(domain.Element) bool) []*intsets.Sparse {
	sg := result.Supergraph()
	dom := result.Domain()
	procs := sg.Procedures()
	local := make([]*intsets.Sparse, len(procs))
	for i, proc := range procs {
		local[i] = &intsets.Sparse{}
		for _, n := range sg.Nodes(proc) {
			result.FactsAt(n).ForEach(func(d int) bool {
				if d != domain.Zero && (keep == nil || keep(dom.MustElementOf(d))) {
					local[i].Insert(d)
				}
				return true
			})
		}
	}
	return local
}

// Summary holds, for each procedure reachable from the entrypoints, the facts holding anywhere in the procedure or in
// its transitive callees.
type Summary struct {
	graph graphutil.CGraph
	dom   *domain.Domain
	sets  []*intsets.Sparse
}

// Summarize computes the transitive summaries of the facts of result that satisfy keep (nil keeps everything).
// Procedures that are not reachable from an entrypoint have an empty summary.
func Summarize(result *tabulation.Result, keep func(domain.Element) bool) *Summary {
	sg := result.Supergraph()
	cg := graphutil.NewCallGraph(sg)
	reachable := graphutil.Subgraph(cg, cg.Reachable(sg.Entrypoints()))
	local := LocalFacts(result, keep)
	for i := range local {
		if reachable.Node(i) == nil {
			local[i].Clear()
		}
	}
	return &Summary{
		graph: reachable,
		dom:   result.Domain(),
		sets:  TransitiveClosure(reachable, local),
	}
}

// Facts returns a copy of the summary of proc. It is empty for unknown procedures.
func (s *Summary) Facts(proc ir.Procedure) *intsets.Sparse {
	res := &intsets.Sparse{}
	if id, ok := s.graph.IDs[proc]; ok {
		res.Copy(s.sets[id])
	}
	return res
}

// FlowTypes returns the distinct flow types of the facts in the summary of proc, in fact order
func (s *Summary) FlowTypes(proc ir.Procedure) []domain.FlowType {
	var types []domain.FlowType
	facts := s.Facts(proc)
	for _, d := range facts.AppendTo(nil) {
		if t := s.dom.MustElementOf(d).Taint; !funcutil.Contains(types, t) {
			types = append(types, t)
		}
	}
	return types
}

// Contains returns true if fact d is in the summary of proc
func (s *Summary) Contains(proc ir.Procedure, d int) bool {
	id, ok := s.graph.IDs[proc]
	return ok && s.sets[id].Has(d)
}
