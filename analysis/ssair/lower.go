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

package ssair

import (
	"errors"
	"fmt"
	"go/types"

	"github.com/awslabs/argot-ifds/analysis/config"
	"github.com/awslabs/argot-ifds/analysis/ir"
	"github.com/awslabs/argot-ifds/internal/funcutil"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/pointer"
	"golang.org/x/tools/go/ssa"
)

// Options configures the lowering
type Options struct {
	// Include restricts the functions that are lowered. Calls to functions that are not lowered are calls to excluded
	// callees. A nil Include lowers every reachable function with a body.
	Include func(*ssa.Function) bool

	// Pointer is the result of the pointer analysis used to build the points-to oracle. When it is nil, pointers alias
	// when they point to values of the same type.
	Pointer *pointer.Result
}

// Call is a call node of a lowered program with the SSA instruction it comes from
type Call struct {
	Node *ir.Block
	Site ssa.CallInstruction
}

// Program is the supergraph of a lowered SSA program. It embeds the ir.Program and keeps the correspondence between
// the SSA entities and the supergraph entities.
type Program struct {
	*ir.Program

	// PointsTo is the points-to oracle of the lowered program
	PointsTo *ir.PointsToMap

	procs  map[*ssa.Function]*ir.Proc
	funcs  map[*ir.Proc]*ssa.Function
	values map[*ir.Proc]map[ssa.Value]ir.ValueNumber
	sites  map[*ir.Block]ssa.CallInstruction
	calls  []Call
}

// Proc returns the procedure f was lowered to
func (p *Program) Proc(f *ssa.Function) (*ir.Proc, bool) {
	proc, ok := p.procs[f]
	return proc, ok
}

// Function returns the SSA function proc was lowered from, or nil
func (p *Program) Function(proc ir.Procedure) *ssa.Function {
	if pr, ok := proc.(*ir.Proc); ok {
		return p.funcs[pr]
	}
	return nil
}

// CallSite returns the SSA call instruction of the call node n, or nil if n is not a call node
func (p *Program) CallSite(n ir.Node) ssa.CallInstruction {
	if b, ok := n.(*ir.Block); ok {
		return p.sites[b]
	}
	return nil
}

// Calls returns the call nodes of the program, in procedure and node order
func (p *Program) Calls() []Call {
	return p.calls
}

// ValueNumber returns the value number of v in the procedure of f
func (p *Program) ValueNumber(f *ssa.Function, v ssa.Value) (ir.ValueNumber, bool) {
	proc, ok := p.procs[f]
	if !ok {
		return ir.NoValue, false
	}
	n, ok := p.values[proc][v]
	return n, ok
}

// Lower translates the functions of cg reachable from roots into a supergraph whose entrypoints are the roots.
func Lower(cg *callgraph.Graph, roots []*ssa.Function, opts Options, logger *config.LogGroup) (*Program, error) {
	if cg == nil {
		return nil, errors.New("no call graph")
	}
	if len(roots) == 0 {
		return nil, errors.New("no entry function")
	}
	include := func(f *ssa.Function) bool {
		return f != nil && f.Blocks != nil && (opts.Include == nil || opts.Include(f))
	}

	p := &Program{
		Program:  ir.NewProgram(),
		PointsTo: ir.NewPointsToMap(nil),
		procs:    map[*ssa.Function]*ir.Proc{},
		funcs:    map[*ir.Proc]*ssa.Function{},
		values:   map[*ir.Proc]map[ssa.Value]ir.ValueNumber{},
		sites:    map[*ir.Block]ssa.CallInstruction{},
	}

	// discover the functions to lower, breadth-first from the roots
	var queue []*ssa.Function
	for _, root := range roots {
		if cg.Nodes[root] == nil {
			return nil, fmt.Errorf("entry function %s is not in the call graph", root)
		}
		if !include(root) {
			return nil, fmt.Errorf("entry function %s is excluded from the analysis", root)
		}
		if _, seen := p.procs[root]; !seen {
			p.addProc(root)
			queue = append(queue, root)
		}
	}
	for i := 0; i < len(queue); i++ {
		for _, e := range cg.Nodes[queue[i]].Out {
			callee := e.Callee.Func
			if _, seen := p.procs[callee]; seen || !include(callee) {
				continue
			}
			p.addProc(callee)
			queue = append(queue, callee)
		}
	}
	for _, root := range roots {
		p.AddEntrypoint(p.procs[root])
	}

	for _, f := range queue {
		p.lowerFunction(f, cg.Nodes[f])
	}
	p.buildOracle(opts.Pointer)

	logger.Debugf("Lowered %d of the %d functions of the call graph (%d call nodes)\n",
		len(queue), len(cg.Nodes), len(p.calls))
	if err := ir.Validate(p); err != nil {
		return nil, fmt.Errorf("lowering produced an invalid supergraph: %w", err)
	}
	return p, nil
}

func (p *Program) addProc(f *ssa.Function) {
	proc := p.NewProcedure(f.String(), len(f.Params))
	p.procs[f] = proc
	p.funcs[proc] = f
	values := map[ssa.Value]ir.ValueNumber{}
	for i, param := range f.Params {
		values[param] = ir.FormalParameter(i)
	}
	for i, fv := range f.FreeVars {
		values[fv] = ir.FormalParameter(len(f.Params) + i)
	}
	p.values[proc] = values
}

func (p *Program) lowerFunction(f *ssa.Function, node *callgraph.Node) {
	proc := p.procs[f]
	l := &lowering{values: p.values[proc], fn: f}

	callees := map[ssa.CallInstruction][]*ir.Proc{}
	if node != nil {
		for _, e := range node.Out {
			if callee, ok := p.procs[e.Callee.Func]; ok {
				callees[e.Site] = append(callees[e.Site], callee)
			}
		}
	}

	first := map[*ssa.BasicBlock]*ir.Block{}
	last := map[*ssa.BasicBlock]*ir.Block{}
	for _, b := range f.Blocks {
		var prev *ir.Block
		for _, instr := range b.Instrs {
			var blk *ir.Block
			if lowered := l.instruction(instr); lowered != nil {
				blk = proc.NewBlock(lowered)
			} else {
				blk = proc.NewBlock()
			}
			if site, ok := instr.(ssa.CallInstruction); ok {
				p.sites[blk] = site
				p.calls = append(p.calls, Call{Node: blk, Site: site})
				p.AddCallees(blk, callees[site]...)
				p.PointsTo.AddImplementation(l.methodRef(site.Common()), toProcedures(callees[site])...)
			}
			if prev == nil {
				first[b] = blk
			} else {
				proc.Connect(prev, blk)
			}
			prev = blk
		}
		last[b] = prev
		switch b.Instrs[len(b.Instrs)-1].(type) {
		case *ssa.Return, *ssa.Panic:
			proc.Connect(prev, proc.ExitBlock())
		}
	}
	for _, b := range f.Blocks {
		for _, s := range b.Succs {
			proc.Connect(last[b], first[s])
		}
	}
	proc.Connect(proc.EntryBlock(), first[f.Blocks[0]])
	if f.Recover != nil {
		proc.Connect(proc.EntryBlock(), first[f.Recover])
	}
}

func toProcedures(procs []*ir.Proc) []ir.Procedure {
	res := make([]ir.Procedure, len(procs))
	for i, proc := range procs {
		res[i] = proc
	}
	return res
}

func sortedMembers(pkg *ssa.Package) []string {
	return funcutil.SortedKeys(pkg.Members)
}

// pointee returns the type pointed to by t if t is a pointer, and t otherwise
func pointee(t types.Type) types.Type {
	if ptr, ok := t.Underlying().(*types.Pointer); ok {
		return ptr.Elem()
	}
	return t
}
