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

	"github.com/awslabs/argot-ifds/internal/funcutil"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/callgraph/static"
	"golang.org/x/tools/go/pointer"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// CallgraphMode selects the algorithm used to build the call graph
type CallgraphMode int

const (
	// PointerAnalysis builds the call graph with Andersen's pointer analysis. It is over-approximating and slow, and
	// it requires a main package.
	PointerAnalysis CallgraphMode = iota
	// StaticAnalysis only resolves static calls. It is under-approximating and fast.
	StaticAnalysis
	// ClassHierarchyAnalysis resolves dynamic calls to every method of matching signature. It is a coarse
	// over-approximation, and fast.
	ClassHierarchyAnalysis
)

func (m CallgraphMode) String() string {
	switch m {
	case PointerAnalysis:
		return "pointer"
	case StaticAnalysis:
		return "static"
	case ClassHierarchyAnalysis:
		return "cha"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseCallgraphMode returns the mode named s, as printed by String
func ParseCallgraphMode(s string) (CallgraphMode, error) {
	for _, m := range []CallgraphMode{PointerAnalysis, StaticAnalysis, ClassHierarchyAnalysis} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown call graph mode %q", s)
}

// ErrNoMainPackage is returned when the pointer analysis is requested on a program without main package
var ErrNoMainPackage = errors.New("no main package")

// BuildCallGraph computes the call graph of prog. In PointerAnalysis mode, the pointer analysis result is returned as
// well; its queries cover the pointer-like values of every function for which include returns true.
func BuildCallGraph(prog *ssa.Program, mode CallgraphMode, include func(*ssa.Function) bool) (*callgraph.Graph,
	*pointer.Result, error) {
	switch mode {
	case PointerAnalysis:
		result, err := DoPointerAnalysis(prog, include)
		if err != nil {
			return nil, nil, fmt.Errorf("pointer analysis failed: %w", err)
		}
		return result.CallGraph, result, nil
	case StaticAnalysis:
		return static.CallGraph(prog), nil, nil
	case ClassHierarchyAnalysis:
		return cha.CallGraph(prog), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported call graph mode %s", mode)
	}
}

// DoPointerAnalysis runs the pointer analysis on prog, building the call graph and querying every pointer-like
// operand of the instructions of the functions for which include returns true (all functions if include is nil).
func DoPointerAnalysis(prog *ssa.Program, include func(*ssa.Function) bool) (*pointer.Result, error) {
	mains := ssautil.MainPackages(prog.AllPackages())
	if len(mains) == 0 {
		return nil, ErrNoMainPackage
	}
	cfg := &pointer.Config{
		Mains:           mains,
		Reflection:      false,
		BuildCallGraph:  true,
		Queries:         make(map[ssa.Value]struct{}),
		IndirectQueries: make(map[ssa.Value]struct{}),
	}
	for function := range ssautil.AllFunctions(prog) {
		if include != nil && !include(function) {
			continue
		}
		for _, param := range function.Params {
			addQuery(cfg, param)
		}
		for _, b := range function.Blocks {
			for _, instr := range b.Instrs {
				if v, ok := instr.(ssa.Value); ok {
					addQuery(cfg, v)
				}
				for _, operand := range instr.Operands(nil) {
					if operand != nil && *operand != nil {
						addQuery(cfg, *operand)
					}
				}
			}
		}
	}
	return pointer.Analyze(cfg)
}

func addQuery(cfg *pointer.Config, v ssa.Value) {
	if v.Type() == nil || !pointer.CanPoint(v.Type()) {
		return
	}
	switch v.(type) {
	case *ssa.Const, *ssa.Builtin:
		return
	}
	cfg.AddQuery(v)
}

// EntryFunctions returns the functions the analysis of prog starts from: the init and main functions of the main
// packages if there are any, and otherwise every package-level function with a body in pkgs, in name order.
func EntryFunctions(prog *ssa.Program, pkgs []*ssa.Package) []*ssa.Function {
	var roots []*ssa.Function
	for _, m := range ssautil.MainPackages(prog.AllPackages()) {
		for _, name := range []string{"init", "main"} {
			if f := m.Func(name); f != nil {
				roots = append(roots, f)
			}
		}
	}
	if len(roots) > 0 {
		return roots
	}
	for _, pkg := range funcutil.Filter(pkgs, func(p *ssa.Package) bool { return p != nil }) {
		for _, name := range sortedMembers(pkg) {
			if f, ok := pkg.Members[name].(*ssa.Function); ok && f.Blocks != nil {
				roots = append(roots, f)
			}
		}
	}
	return roots
}
