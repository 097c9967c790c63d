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
	"context"
	"errors"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"testing"

	"github.com/awslabs/argot-ifds/analysis/config"
	"github.com/awslabs/argot-ifds/analysis/domain"
	"github.com/awslabs/argot-ifds/analysis/flow"
	"github.com/awslabs/argot-ifds/analysis/ir"
	"github.com/awslabs/argot-ifds/analysis/tabulation"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/go/callgraph/static"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

const mainSrc = `package main

type T struct{ f string }

var g string

func source() string { return "secret" }

func sink(s string) {}

func id(s string) string { return s }

func (t *T) set(s string) { t.f = s }

func main() {
	s := source()
	u := id(s)
	t := &T{}
	t.set(u)
	sink(t.f)
	g = s
	sink(g)
	c := id("x")
	sink(c)
}
`

const libSrc = `package lib

func B() {}

func A() { B() }

type S struct{}

func (S) M() {}
`

func quietLogger() *config.LogGroup {
	return config.NewLogGroupWithLevel(config.ErrLevel, io.Discard)
}

func buildSSA(t *testing.T, path, src string) *ssa.Package {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "src.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("could not parse source: %v", err)
	}
	pkg := types.NewPackage(path, f.Name.Name)
	ssaPkg, _, err := ssautil.BuildPackage(&types.Config{Importer: importer.Default()}, fset, pkg,
		[]*ast.File{f}, ssa.SanityCheckFunctions)
	if err != nil {
		t.Fatalf("could not build SSA: %v", err)
	}
	return ssaPkg
}

func lowerMain(t *testing.T) (*ssa.Package, *Program) {
	t.Helper()
	pkg := buildSSA(t, "example.com/p", mainSrc)
	cg, _, err := BuildCallGraph(pkg.Prog, StaticAnalysis, nil)
	if err != nil {
		t.Fatalf("could not build call graph: %v", err)
	}
	prog, err := Lower(cg, EntryFunctions(pkg.Prog, []*ssa.Package{pkg}), Options{}, quietLogger())
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	return pkg, prog
}

// callsTo returns the calls whose static callee is named name, in program order
func callsTo(prog *Program, name string) []Call {
	var res []Call
	for _, c := range prog.Calls() {
		if callee := c.Site.Common().StaticCallee(); callee != nil && callee.Name() == name {
			res = append(res, c)
		}
	}
	return res
}

func TestLowerStructure(t *testing.T) {
	pkg, prog := lowerMain(t)

	var entrypoints []string
	for _, e := range prog.Entrypoints() {
		entrypoints = append(entrypoints, e.Name())
	}
	if diff := cmp.Diff([]string{"example.com/p.init", "example.com/p.main"}, entrypoints); diff != "" {
		t.Errorf("entrypoints mismatch (-want +got):\n%s", diff)
	}

	idFn := pkg.Func("id")
	idProc, ok := prog.Proc(idFn)
	if !ok {
		t.Fatalf("id was not lowered")
	}
	if prog.Function(idProc) != idFn {
		t.Errorf("Function should map the procedure back to id")
	}
	if idProc.NumParams != 1 {
		t.Errorf("expected 1 parameter for id, got %d", idProc.NumParams)
	}

	idCalls := callsTo(prog, "id")
	if len(idCalls) != 2 {
		t.Fatalf("expected 2 calls to id, got %d", len(idCalls))
	}
	for _, c := range idCalls {
		if !prog.IsCall(c.Node) {
			t.Errorf("%s should be a call node", c.Node)
		}
		if prog.CallSite(c.Node) != c.Site {
			t.Errorf("CallSite mismatch at %s", c.Node)
		}
		callees := prog.Callees(c.Node)
		if len(callees) != 1 || callees[0] != ir.Procedure(idProc) {
			t.Errorf("unexpected callees %v at %s", callees, c.Node)
		}
		if len(prog.ReturnSites(c.Node)) != 1 {
			t.Errorf("expected one return site at %s", c.Node)
		}
	}
	if len(prog.PointsTo.Implementations(ir.MethodRef{Owner: "example.com/p", Name: "id"})) != 1 {
		t.Errorf("id should have one implementation")
	}
}

func TestLowerInstructions(t *testing.T) {
	pkg, prog := lowerMain(t)

	setFn := pkg.Prog.FuncValue(pkg.Pkg.Scope().Lookup("T").Type().(*types.Named).Method(0))
	setProc, ok := prog.Proc(setFn)
	if !ok {
		t.Fatalf("(*T).set was not lowered")
	}
	if setProc.NumParams != 2 {
		t.Errorf("expected receiver and argument as parameters of set, got %d", setProc.NumParams)
	}
	var puts []*ir.PutField
	for _, n := range prog.Nodes(setProc) {
		for _, instr := range n.Instructions() {
			if put, ok := instr.(*ir.PutField); ok {
				puts = append(puts, put)
			}
		}
	}
	want := []*ir.PutField{{Object: 1, Val: 2, F: ir.FieldRef{Owner: "example.com/p.T", Name: "f"}}}
	if diff := cmp.Diff(want, puts); diff != "" {
		t.Errorf("field writes of set mismatch (-want +got):\n%s", diff)
	}

	mainProc, _ := prog.Proc(pkg.Func("main"))
	var static []ir.FieldRef
	for _, n := range prog.Nodes(mainProc) {
		for _, instr := range n.Instructions() {
			if fi, ok := instr.(ir.FieldInstruction); ok && fi.IsStatic() {
				static = append(static, fi.Field())
			}
		}
	}
	g := ir.FieldRef{Owner: "example.com/p", Name: "g"}
	if diff := cmp.Diff([]ir.FieldRef{g, g}, static); diff != "" {
		t.Errorf("static accesses of main mismatch (-want +got):\n%s", diff)
	}

	// without pointer analysis, pointers to T alias through their type
	tValue, ok := prog.ValueNumber(setFn, setFn.Params[0])
	if !ok || tValue != 1 {
		t.Fatalf("receiver of set should be value 1, got %d", tValue)
	}
	keys := prog.PointsTo.PointsTo(ir.LocalKey{Proc: setProc, Value: tValue})
	if diff := cmp.Diff([]ir.InstanceKey{TypeKey{Type: "example.com/p.T"}}, keys); diff != "" {
		t.Errorf("points-to mismatch (-want +got):\n%s", diff)
	}
}

func TestTaintThroughLoweredProgram(t *testing.T) {
	pkg, prog := lowerMain(t)
	srcFlow := domain.SourceFlow{Label: "source"}
	sources := func(call ir.Node, _ ir.InvokeInstruction) (domain.FlowType, bool) {
		site := prog.CallSite(call)
		if callee := site.Common().StaticCallee(); callee != nil && callee.Name() == "source" {
			return srcFlow, true
		}
		return nil, false
	}
	dom := domain.New()
	provider := flow.NewTaintProvider(prog, dom, prog.PointsTo, flow.Options{Sources: sources})
	s, err := tabulation.NewSolver(tabulation.Problem{Supergraph: prog, Domain: dom, Flows: provider},
		tabulation.Options{}, quietLogger())
	if err != nil {
		t.Fatalf("could not create solver: %v", err)
	}
	res, err := s.Solve(context.Background())
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	mainFn := pkg.Func("main")
	sinks := callsTo(prog, "sink")
	if len(sinks) != 3 {
		t.Fatalf("expected 3 sink calls, got %d", len(sinks))
	}
	for i, want := range []bool{true, true, false} {
		arg, ok := prog.ValueNumber(mainFn, sinks[i].Site.Common().Args[0])
		if !ok {
			t.Fatalf("argument of sink call %d has no value number", i)
		}
		got := res.Holds(sinks[i].Node, domain.Element{Code: domain.Local{Value: arg}, Taint: srcFlow})
		if got != want {
			t.Errorf("sink call %d: expected tainted=%v, got %v", i, want, got)
		}
	}
}

func TestLowerErrors(t *testing.T) {
	pkg := buildSSA(t, "example.com/p", mainSrc)
	cg := static.CallGraph(pkg.Prog)
	roots := EntryFunctions(pkg.Prog, []*ssa.Package{pkg})

	if _, err := Lower(nil, roots, Options{}, quietLogger()); err == nil {
		t.Errorf("expected an error without call graph")
	}
	if _, err := Lower(cg, nil, Options{}, quietLogger()); err == nil {
		t.Errorf("expected an error without entry function")
	}
	excludeAll := Options{Include: func(*ssa.Function) bool { return false }}
	if _, err := Lower(cg, roots, excludeAll, quietLogger()); err == nil {
		t.Errorf("expected an error when the entry functions are excluded")
	}
}

func TestExcludedFunctionsAreNotLowered(t *testing.T) {
	pkg := buildSSA(t, "example.com/p", mainSrc)
	cg := static.CallGraph(pkg.Prog)
	noID := Options{Include: func(f *ssa.Function) bool { return f.Name() != "id" }}
	prog, err := Lower(cg, EntryFunctions(pkg.Prog, []*ssa.Package{pkg}), noID, quietLogger())
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	if _, ok := prog.Proc(pkg.Func("id")); ok {
		t.Errorf("id should not be lowered")
	}
	for _, c := range callsTo(prog, "id") {
		if len(prog.Callees(c.Node)) != 0 {
			t.Errorf("calls to id should have no callee")
		}
	}
}

func TestEntryFunctionsLibrary(t *testing.T) {
	pkg := buildSSA(t, "example.com/lib", libSrc)
	var names []string
	for _, f := range EntryFunctions(pkg.Prog, []*ssa.Package{pkg}) {
		names = append(names, f.Name())
	}
	if diff := cmp.Diff([]string{"A", "B", "init"}, names); diff != "" {
		t.Errorf("entry functions mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCallGraph(t *testing.T) {
	lib := buildSSA(t, "example.com/lib", libSrc)
	for _, mode := range []CallgraphMode{StaticAnalysis, ClassHierarchyAnalysis} {
		cg, ptr, err := BuildCallGraph(lib.Prog, mode, nil)
		if err != nil || cg == nil || ptr != nil {
			t.Errorf("mode %s: unexpected result %v, %v, %v", mode, cg, ptr, err)
		}
	}
	if _, _, err := BuildCallGraph(lib.Prog, PointerAnalysis, nil); !errors.Is(err, ErrNoMainPackage) {
		t.Errorf("expected ErrNoMainPackage, got %v", err)
	}
	if _, _, err := BuildCallGraph(lib.Prog, CallgraphMode(42), nil); err == nil {
		t.Errorf("expected an error for an unknown mode")
	}
}

func TestParseCallgraphMode(t *testing.T) {
	for _, mode := range []CallgraphMode{PointerAnalysis, StaticAnalysis, ClassHierarchyAnalysis} {
		got, err := ParseCallgraphMode(mode.String())
		if err != nil || got != mode {
			t.Errorf("ParseCallgraphMode(%q) = %v, %v", mode.String(), got, err)
		}
	}
	if _, err := ParseCallgraphMode("vta"); err == nil {
		t.Errorf("expected an error for an unknown mode")
	}
}
