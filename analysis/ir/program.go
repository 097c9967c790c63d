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

import (
	"fmt"
)

// Program is an in-memory Supergraph. Procedures are created with NewProcedure, which also creates their entry and
// exit blocks; blocks are added with NewBlock and connected with Connect. Call blocks are blocks whose last
// instruction is an InvokeInstruction; their callees are registered with AddCallees and their return sites are their
// successors.
type Program struct {
	procs       []*Proc
	entrypoints []*Proc
	callees     map[*Block][]*Proc
	callers     map[*Proc][]*Block
}

// Proc is a procedure of a Program.
type Proc struct {
	id     int
	name   string
	prog   *Program
	blocks []*Block
	entry  *Block
	exit   *Block

	// NumParams is the number of formal parameters, numbered 1..NumParams
	NumParams int
}

// Block is a node of a Program.
type Block struct {
	proc   *Proc
	index  int
	instrs []Instruction
	succs  []*Block
	preds  []*Block
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{
		callees: map[*Block][]*Proc{},
		callers: map[*Proc][]*Block{},
	}
}

// NewProcedure adds a new procedure with its entry and exit blocks to the program.
func (p *Program) NewProcedure(name string, numParams int) *Proc {
	proc := &Proc{id: len(p.procs), name: name, prog: p, NumParams: numParams}
	proc.entry = proc.NewBlock()
	proc.exit = proc.NewBlock()
	p.procs = append(p.procs, proc)
	return proc
}

// AddEntrypoint marks procs as entrypoints of the analysis.
func (p *Program) AddEntrypoint(procs ...*Proc) {
	p.entrypoints = append(p.entrypoints, procs...)
}

// AddCallees registers callees as possible targets of the call block.
func (p *Program) AddCallees(call *Block, callees ...*Proc) {
	for _, callee := range callees {
		if !containsProc(p.callees[call], callee) {
			p.callees[call] = append(p.callees[call], callee)
			p.callers[callee] = append(p.callers[callee], call)
		}
	}
}

// RemoveCallee removes callee from the possible targets of the call block.
func (p *Program) RemoveCallee(call *Block, callee *Proc) {
	p.callees[call] = removeProc(p.callees[call], callee)
	var callers []*Block
	for _, c := range p.callers[callee] {
		if c != call {
			callers = append(callers, c)
		}
	}
	p.callers[callee] = callers
}

// Procs returns the procedures of the program, in creation order.
func (p *Program) Procs() []*Proc {
	return p.procs
}

// NewBlock adds a block containing instrs to the procedure
func (proc *Proc) NewBlock(instrs ...Instruction) *Block {
	b := &Block{proc: proc, index: len(proc.blocks), instrs: instrs}
	proc.blocks = append(proc.blocks, b)
	return b
}

// Connect adds an intraprocedural edge from a to b. Both blocks must belong to proc.
func (proc *Proc) Connect(a, b *Block) {
	if a.proc != proc || b.proc != proc {
		panic(fmt.Sprintf("cannot connect blocks of different procedures in %s", proc.name))
	}
	for _, s := range a.succs {
		if s == b {
			return
		}
	}
	a.succs = append(a.succs, b)
	b.preds = append(b.preds, a)
}

// Chain connects the entry block to the first block, each block to the next one, and the last block to the exit
// block. It returns its arguments to allow for inline construction.
func (proc *Proc) Chain(blocks ...*Block) []*Block {
	prev := proc.entry
	for _, b := range blocks {
		proc.Connect(prev, b)
		prev = b
	}
	proc.Connect(prev, proc.exit)
	return blocks
}

// EntryBlock returns the entry block of the procedure
func (proc *Proc) EntryBlock() *Block { return proc.entry }

// ExitBlock returns the exit block of the procedure
func (proc *Proc) ExitBlock() *Block { return proc.exit }

// Name returns the name of the procedure
func (proc *Proc) Name() string { return proc.name }

// ID returns the index of the procedure in its program
func (proc *Proc) ID() int { return proc.id }

func (proc *Proc) String() string { return proc.name }

// Procedure returns the procedure of the block
func (b *Block) Procedure() Procedure { return b.proc }

// Index returns the index of the block in its procedure
func (b *Block) Index() int { return b.index }

// Instructions returns the instructions of the block
func (b *Block) Instructions() []Instruction { return b.instrs }

func (b *Block) String() string {
	return fmt.Sprintf("%s#%d", b.proc.name, b.index)
}

// Entrypoints implements Supergraph
func (p *Program) Entrypoints() []Procedure {
	return toProcedures(p.entrypoints)
}

// Procedures implements Supergraph
func (p *Program) Procedures() []Procedure {
	return toProcedures(p.procs)
}

// Nodes implements Supergraph
func (p *Program) Nodes(proc Procedure) []Node {
	pr, ok := proc.(*Proc)
	if !ok {
		return nil
	}
	return toNodes(pr.blocks)
}

// Entry implements Supergraph
func (p *Program) Entry(proc Procedure) Node {
	if pr, ok := proc.(*Proc); ok {
		return pr.entry
	}
	return nil
}

// Exit implements Supergraph
func (p *Program) Exit(proc Procedure) Node {
	if pr, ok := proc.(*Proc); ok {
		return pr.exit
	}
	return nil
}

// Succs implements Supergraph
func (p *Program) Succs(n Node) []Node {
	if b, ok := n.(*Block); ok {
		return toNodes(b.succs)
	}
	return nil
}

// Preds implements Supergraph
func (p *Program) Preds(n Node) []Node {
	if b, ok := n.(*Block); ok {
		return toNodes(b.preds)
	}
	return nil
}

// IsCall implements Supergraph
func (p *Program) IsCall(n Node) bool {
	return p.CallInstruction(n) != nil
}

// IsExit implements Supergraph
func (p *Program) IsExit(n Node) bool {
	b, ok := n.(*Block)
	return ok && b.proc.exit == b
}

// CallInstruction implements Supergraph
func (p *Program) CallInstruction(n Node) InvokeInstruction {
	if n == nil {
		return nil
	}
	if call, ok := LastInstruction(n).(InvokeInstruction); ok {
		return call
	}
	return nil
}

// Callees implements Supergraph
func (p *Program) Callees(n Node) []Procedure {
	if b, ok := n.(*Block); ok {
		return toProcedures(p.callees[b])
	}
	return nil
}

// ReturnSites implements Supergraph
func (p *Program) ReturnSites(n Node) []Node {
	return p.Succs(n)
}

// Callers implements Supergraph
func (p *Program) Callers(proc Procedure) []Node {
	if pr, ok := proc.(*Proc); ok {
		return toNodes(p.callers[pr])
	}
	return nil
}

func toProcedures(procs []*Proc) []Procedure {
	res := make([]Procedure, len(procs))
	for i, p := range procs {
		res[i] = p
	}
	return res
}

func toNodes(blocks []*Block) []Node {
	res := make([]Node, len(blocks))
	for i, b := range blocks {
		res[i] = b
	}
	return res
}

func containsProc(procs []*Proc, p *Proc) bool {
	for _, x := range procs {
		if x == p {
			return true
		}
	}
	return false
}

func removeProc(procs []*Proc, p *Proc) []*Proc {
	var res []*Proc
	for _, x := range procs {
		if x != p {
			res = append(res, x)
		}
	}
	return res
}
