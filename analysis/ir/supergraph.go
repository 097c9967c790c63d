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

package ir

// Supergraph is the interprocedural control-flow graph the tabulation solver runs on. Nodes are basic blocks of
// procedures in context. Intraprocedural edges are given by Succs and Preds; call and return edges are given
// implicitly by Callees, Entry, Exit and ReturnSites.
type Supergraph interface {
	// Entrypoints returns the procedures where the analysis starts
	Entrypoints() []Procedure

	// Procedures returns all the procedures of the supergraph
	Procedures() []Procedure

	// Nodes returns the nodes of procedure p, in block index order
	Nodes(p Procedure) []Node

	// Entry returns the entry node of procedure p
	Entry(p Procedure) Node

	// Exit returns the unique exit node of procedure p
	Exit(p Procedure) Node

	// Succs returns the intraprocedural successors of n
	Succs(n Node) []Node

	// Preds returns the intraprocedural predecessors of n
	Preds(n Node) []Node

	// IsCall returns true if the last instruction of n is an invocation
	IsCall(n Node) bool

	// IsExit returns true if n is the exit node of its procedure
	IsExit(n Node) bool

	// CallInstruction returns the invocation ending the call node n, or nil if n is not a call node
	CallInstruction(n Node) InvokeInstruction

	// Callees returns the procedures the call node n may call. An empty result means the call targets code that is
	// not analyzed.
	Callees(n Node) []Procedure

	// ReturnSites returns the nodes where execution continues in the caller after the call node n returns
	ReturnSites(n Node) []Node

	// Callers returns the call nodes that may call p
	Callers(p Procedure) []Node
}

// PointsTo is the oracle answering heap abstraction queries.
type PointsTo interface {
	// PointsTo returns the abstract objects the pointer key may point to
	PointsTo(k PointerKey) []InstanceKey

	// Implementations returns the procedures the call graph resolved method m to. An empty result means calls to m
	// target code that is not analyzed.
	Implementations(m MethodRef) []Procedure
}

// LastInstruction returns the last instruction of n, or nil if n has no instruction
func LastInstruction(n Node) Instruction {
	instrs := n.Instructions()
	if len(instrs) == 0 {
		return nil
	}
	return instrs[len(instrs)-1]
}
