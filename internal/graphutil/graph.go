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

package graphutil

import (
	"sort"

	"github.com/awslabs/argot-ifds/analysis/ir"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"
)

// CGraph is an abstraction over the call graph of a supergraph to work with existing graph libraries. It implements
// the methods to satisfy yourbasic's graph.Iterator and Gonum's graph.Graph. Procedures are numbered densely, in the
// order of ir.Supergraph.Procedures.
type CGraph struct {
	// Procs maps node IDs to procedures
	Procs []ir.Procedure

	// IDs maps procedures to node IDs
	IDs map[ir.Procedure]int64

	// Keys are the IDs of the nodes present in the graph, in increasing order
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means some call node of Procs[x] may call Procs[y]
	Edges map[int64]map[int64]bool
}

// NewCallGraph returns the call graph of sg, with an edge from each procedure to each of its callees
func NewCallGraph(sg ir.Supergraph) CGraph {
	procs := sg.Procedures()
	ids := make(map[ir.Procedure]int64, len(procs))
	keys := make([]int64, len(procs))
	edges := make(map[int64]map[int64]bool, len(procs))
	for i, p := range procs {
		ids[p] = int64(i)
		keys[i] = int64(i)
	}
	for i, p := range procs {
		out := map[int64]bool{}
		for _, n := range sg.Nodes(p) {
			if !sg.IsCall(n) {
				continue
			}
			for _, callee := range sg.Callees(n) {
				if id, ok := ids[callee]; ok {
					out[id] = true
				}
			}
		}
		edges[int64(i)] = out
	}
	return CGraph{Procs: procs, IDs: ids, Keys: keys, Edges: edges}
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges that have
// both the origin and destination nodes in the include nodes are kept in the resulting graph.
// The subgraph's order and Procs are the same as in origin, meaning that node indices will stay consistent
// across subgraphs.
func Subgraph(original CGraph, include []int64) CGraph {
	included := make(map[int64]bool, len(include))
	for _, i := range include {
		included[i] = true
	}
	keys := make([]int64, 0, len(include))
	edges := make(map[int64]map[int64]bool, len(include))
	for i := range included {
		keys = append(keys, i)
		edges[i] = map[int64]bool{}
		for e := range original.Edges[i] {
			if included[e] {
				edges[i][e] = true
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return CGraph{
		Procs: original.Procs,
		IDs:   original.IDs,
		Keys:  keys,
		Edges: edges,
	}
}

// Reachable returns the IDs of the nodes reachable from roots, in increasing order. Roots are reachable.
func (c CGraph) Reachable(roots []ir.Procedure) []int64 {
	var reached []int64
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) { reached = append(reached, n.ID()) },
	}
	for _, root := range roots {
		id, ok := c.IDs[root]
		if !ok || c.Edges[id] == nil || bf.Visited(CNode{id: id}) {
			continue
		}
		bf.Walk(c, c.Node(int(id)), nil)
	}
	sort.Slice(reached, func(i, j int) bool { return reached[i] < reached[j] })
	return reached
}

// Order implements the order of the graph.Iterator interface for the CGraph
func (c CGraph) Order() int {
	return len(c.Procs)
}

// Visit implements the graph.Iterator interface for the CGraph
func (c CGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	for w := range c.Edges[int64(v)] {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** Graph interface implementation **********************

// Node implements the Graph interface
func (c CGraph) Node(v int) graph.Node {
	if _, ok := c.Edges[int64(v)]; !ok {
		return nil
	}
	return CNode{id: int64(v), proc: c.Procs[v]}
}

// Nodes returns the set of nodes in the graph
func (c CGraph) Nodes() graph.Nodes {
	return c.nodeSet(c.Keys)
}

// From returns the set of nodes reachable from the id
func (c CGraph) From(id int64) graph.Nodes {
	keys := make([]int64, 0, len(c.Edges[id]))
	for out := range c.Edges[id] {
		keys = append(keys, out)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return c.nodeSet(keys)
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (c CGraph) HasEdgeBetween(xid, yid int64) bool {
	return c.Edges[xid][yid] || c.Edges[yid][xid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (c CGraph) Edge(uid, vid int64) graph.Edge {
	if c.Edges[uid][vid] {
		return CEdge{from: c.Node(int(uid)).(CNode), to: c.Node(int(vid)).(CNode)}
	}
	return nil
}

func (c CGraph) nodeSet(ids []int64) *NodeSet {
	nodes := make([]CNode, len(ids))
	for i, id := range ids {
		nodes[i] = CNode{id: id, proc: c.Procs[id]}
	}
	return &NodeSet{nodes: nodes, cur: -1}
}

// *************** Nodes implementation **********************

// CNode is a procedure of a CGraph. It implements the graph.Node interface
type CNode struct {
	id   int64
	proc ir.Procedure
}

// ID returns the id of the node
func (n CNode) ID() int64 {
	return n.id
}

// Procedure returns the procedure of the node
func (n CNode) Procedure() ir.Procedure {
	return n.proc
}

func (n CNode) String() string {
	if n.proc == nil {
		return ""
	}
	return n.proc.String()
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet struct {
	nodes []CNode

	// cur is the current index of the iterator. It is -1 before the first call to Next.
	cur int
}

// Next moves the current node to the next, and returns true if such a node exists. Otherwise, returns false
// and the current node has not changed.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.nodes)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the number of nodes left to iterate over
func (ns *NodeSet) Len() int {
	return len(ns.nodes) - ns.cur - 1
}

// Reset moves the iterator back before the first node
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node return the current node in the set, or nil if Next has not been called
func (ns *NodeSet) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.nodes) {
		return nil
	}
	return ns.nodes[ns.cur]
}

// *************** Edge implementation **********************

// CEdge implements the graph.Edge interface
type CEdge struct {
	from CNode
	to   CNode
}

// From returns the origin of the edge
func (e CEdge) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e CEdge) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e CEdge) ReversedEdge() graph.Edge {
	return CEdge{from: e.to, to: e.from}
}
