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

package analysis

import (
	"golang.org/x/tools/go/ssa"

	"github.com/awslabs/argot-ifds/analysis/ir"
)

// SSAResult holds general statistics about the SSA representation of a set of functions
type SSAResult struct {
	NumberOfFunctions         uint
	NumberOfNonemptyFunctions uint
	NumberOfBlocks            uint
	NumberOfInstructions      uint
}

// SSAStatistics returns general statistics about the SSA representation of the functions.
func SSAStatistics(functions map[*ssa.Function]bool) SSAResult {
	result := SSAResult{}
	for f := range functions {
		result.NumberOfFunctions++
		if len(f.Blocks) == 0 {
			continue
		}
		result.NumberOfNonemptyFunctions++
		for _, b := range f.Blocks {
			result.NumberOfBlocks++
			result.NumberOfInstructions += uint(len(b.Instrs))
		}
	}
	return result
}

// SupergraphResult holds the size of a supergraph. A call edge is a pair of a call node and one of its callees;
// unresolved calls are call nodes without callees.
type SupergraphResult struct {
	NumberOfProcedures   uint
	NumberOfNodes        uint
	NumberOfInstructions uint
	NumberOfCallNodes    uint
	NumberOfCallEdges    uint
	UnresolvedCalls      uint
}

// SupergraphStatistics returns the size of the supergraph the tabulation runs on
func SupergraphStatistics(sg ir.Supergraph) SupergraphResult {
	result := SupergraphResult{}
	for _, proc := range sg.Procedures() {
		result.NumberOfProcedures++
		for _, n := range sg.Nodes(proc) {
			result.NumberOfNodes++
			result.NumberOfInstructions += uint(len(n.Instructions()))
			if !sg.IsCall(n) {
				continue
			}
			result.NumberOfCallNodes++
			callees := len(sg.Callees(n))
			result.NumberOfCallEdges += uint(callees)
			if callees == 0 {
				result.UnresolvedCalls++
			}
		}
	}
	return result
}
