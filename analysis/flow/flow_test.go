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

package flow

import (
	"errors"
	"testing"
	"time"

	"github.com/awslabs/argot-ifds/analysis/domain"
	"github.com/awslabs/argot-ifds/analysis/ir"
	"github.com/google/go-cmp/cmp"
)

var (
	taintA = domain.SourceFlow{Label: "A"}
	taintB = domain.SourceFlow{Label: "B"}
	fieldF = ir.FieldRef{Owner: "T", Name: "f"}
	globG  = ir.FieldRef{Owner: "pkg", Name: "g"}
	obj1   = ir.AllocationSite{Proc: "main", Label: "o1"}
	obj2   = ir.AllocationSite{Proc: "main", Label: "o2"}
)

// callFixture is a caller with a single call to callee: entry -> call -> ret -> exit
type callFixture struct {
	prog   *ir.Program
	main   *ir.Proc
	callee *ir.Proc
	call   *ir.Block
	ret    *ir.Block
	pts    *ir.PointsToMap
	dom    *domain.Domain
}

func newCallFixture(invoke *ir.Invoke, retInstrs ...ir.Instruction) *callFixture {
	prog := ir.NewProgram()
	main := prog.NewProcedure("main", 0)
	callee := prog.NewProcedure("callee", invoke.NumArgs())
	callee.Chain()
	call := main.NewBlock(invoke)
	ret := main.NewBlock(retInstrs...)
	main.Chain(call, ret)
	prog.AddCallees(call, callee)
	prog.AddEntrypoint(main)
	return &callFixture{
		prog:   prog,
		main:   main,
		callee: callee,
		call:   call,
		ret:    ret,
		pts:    ir.NewPointsToMap(prog),
		dom:    domain.New(),
	}
}

func (f *callFixture) provider(opts Options) *TaintProvider {
	return NewTaintProvider(f.prog, f.dom, f.pts, opts)
}

func (f *callFixture) fact(c domain.CodeElement, t domain.FlowType) int {
	return f.dom.IndexOf(domain.Element{Code: c, Taint: t})
}

func (f *callFixture) elements(s *FactSet) []domain.Element {
	var res []domain.Element
	for _, d := range s.Slice() {
		if d == domain.Zero {
			continue
		}
		res = append(res, f.dom.MustElementOf(d))
	}
	return res
}

func elementSet(elements []domain.Element) map[domain.Element]bool {
	res := map[domain.Element]bool{}
	for _, e := range elements {
		res[e] = true
	}
	return res
}

func checkTargets(t *testing.T, f *callFixture, fn Function, d int, want ...domain.Element) {
	t.Helper()
	got := elementSet(f.elements(fn.Targets(d)))
	if diff := cmp.Diff(elementSet(want), got); diff != "" {
		t.Errorf("targets of %d mismatch (-want +got):\n%s", d, diff)
	}
	if !fn.Targets(domain.Zero).Contains(domain.Zero) {
		t.Errorf("zero fact is not propagated")
	}
}

func local(v ir.ValueNumber) domain.Local { return domain.Local{Value: v} }

func TestUseDefsFieldGetExpandsPointsTo(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Dst: ir.NoValue})
	f.pts.AddPointsTo(ir.LocalKey{Proc: f.main, Value: 2}, obj1, obj2)
	ud, err := UseDefs(&ir.GetField{Dst: 3, Object: 2, F: fieldF}, f.main, f.pts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := UseDefSetPair{
		Uses: []domain.CodeElement{
			local(2),
			domain.Field{Instance: obj1, Field: fieldF},
			domain.Instance{Instance: obj1},
			domain.Field{Instance: obj2, Field: fieldF},
			domain.Instance{Instance: obj2},
		},
		Defs: []domain.CodeElement{local(3)},
	}
	if diff := cmp.Diff(want, ud); diff != "" {
		t.Errorf("use/defs mismatch (-want +got):\n%s", diff)
	}
	if len(ud.Pairs()) != 5 {
		t.Errorf("expected 5 use/def pairs, got %d", len(ud.Pairs()))
	}
}

func TestUseDefsHeapWrites(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Dst: ir.NoValue})
	f.pts.AddPointsTo(ir.LocalKey{Proc: f.main, Value: 1}, obj1, obj2)
	cases := []struct {
		name  string
		instr ir.Instruction
		want  UseDefSetPair
	}{
		{
			name:  "putfield",
			instr: &ir.PutField{Object: 1, Val: 4, F: fieldF},
			want: UseDefSetPair{
				Uses: []domain.CodeElement{local(4)},
				Defs: []domain.CodeElement{
					domain.Field{Instance: obj1, Field: fieldF},
					domain.Field{Instance: obj2, Field: fieldF},
				},
			},
		},
		{
			name:  "arraystore",
			instr: &ir.StoreArray{ArrayRef: 1, Index: 5, Val: 4},
			want: UseDefSetPair{
				Uses: []domain.CodeElement{local(4)},
				Defs: []domain.CodeElement{
					domain.Field{Instance: obj1, Field: ir.ArrayContents},
					domain.Field{Instance: obj2, Field: ir.ArrayContents},
				},
			},
		},
		{
			name:  "putstatic",
			instr: &ir.PutField{Val: 4, F: globG, Static: true},
			want: UseDefSetPair{
				Uses: []domain.CodeElement{local(4)},
				Defs: []domain.CodeElement{domain.StaticField{Field: globG}},
			},
		},
		{
			name:  "return",
			instr: &ir.Return{Results: []ir.ValueNumber{4, 6}},
			want: UseDefSetPair{
				Uses: []domain.CodeElement{local(4), local(6)},
				Defs: []domain.CodeElement{domain.Return{}},
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ud, err := UseDefs(c.instr, f.main, f.pts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(c.want, ud); diff != "" {
				t.Errorf("use/defs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// misshapen claims to be a field read but does not implement ir.FieldInstruction
type misshapen struct{ ir.Op }

func (m *misshapen) Kind() ir.InstrKind { return ir.KindFieldGet }

func TestUseDefsUnexpectedShape(t *testing.T) {
	_, err := UseDefs(&misshapen{}, nil, nil)
	if err == nil {
		t.Fatalf("expected an error for a misshapen instruction")
	}
}

func TestNormalFlowPassThroughAndNewFlow(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Dst: ir.NoValue})
	n := f.main.NewBlock(&ir.Op{Label: "add", Uses: []ir.ValueNumber{1, 2}, Defs: []ir.ValueNumber{3}})
	fn, err := f.provider(Options{}).NormalFlow(f.main.EntryBlock(), n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkTargets(t, f, fn, f.fact(local(1), taintA),
		domain.Element{Code: local(1), Taint: taintA},
		domain.Element{Code: local(3), Taint: taintA})
	checkTargets(t, f, fn, f.fact(local(3), taintB))
	checkTargets(t, f, fn, f.fact(local(4), taintA), domain.Element{Code: local(4), Taint: taintA})
}

func TestNormalFlowHeapWriteIsWeak(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Dst: ir.NoValue})
	f.pts.AddPointsTo(ir.LocalKey{Proc: f.main, Value: 1}, obj1)
	n := f.main.NewBlock(&ir.PutField{Object: 1, Val: 2, F: fieldF})
	fn, err := f.provider(Options{}).NormalFlow(f.main.EntryBlock(), n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	field := domain.Field{Instance: obj1, Field: fieldF}
	checkTargets(t, f, fn, f.fact(field, taintB), domain.Element{Code: field, Taint: taintB})
	checkTargets(t, f, fn, f.fact(local(2), taintA),
		domain.Element{Code: local(2), Taint: taintA},
		domain.Element{Code: field, Taint: taintA})
}

func TestNormalFlowStaticWriteIsStrong(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Dst: ir.NoValue})
	n := f.main.NewBlock(&ir.PutField{Val: 2, F: globG, Static: true})
	fn, err := f.provider(Options{}).NormalFlow(f.main.EntryBlock(), n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	static := domain.StaticField{Field: globG}
	checkTargets(t, f, fn, f.fact(static, taintA))
	checkTargets(t, f, fn, f.fact(local(2), taintB),
		domain.Element{Code: local(2), Taint: taintB},
		domain.Element{Code: static, Taint: taintB})
}

func TestNormalFlowTaintStaticFields(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Dst: ir.NoValue})
	read := f.main.NewBlock(&ir.GetField{Dst: 5, F: globG, Static: true})
	readFinal := f.main.NewBlock(&ir.GetField{Dst: 6, F: fieldF, Static: true, Final: true})

	fn, _ := f.provider(Options{TaintStaticFields: true}).NormalFlow(f.main.EntryBlock(), read)
	checkTargets(t, f, fn, domain.Zero,
		domain.Element{Code: local(5), Taint: domain.StaticFieldFlow{Field: globG}})

	fn, _ = f.provider(Options{TaintStaticFields: true}).NormalFlow(f.main.EntryBlock(), readFinal)
	checkTargets(t, f, fn, domain.Zero)

	fn, _ = f.provider(Options{}).NormalFlow(f.main.EntryBlock(), read)
	checkTargets(t, f, fn, domain.Zero)
}

func TestCallFlowMapsActualsToFormals(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Method: ir.MethodRef{Name: "callee"}, Args: []ir.ValueNumber{4, 7}, Dst: 8})
	fn, err := f.provider(Options{}).CallFlow(f.call, f.callee.EntryBlock(), f.ret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkTargets(t, f, fn, f.fact(local(4), taintA), domain.Element{Code: local(1), Taint: taintA})
	checkTargets(t, f, fn, f.fact(local(7), taintB), domain.Element{Code: local(2), Taint: taintB})
	checkTargets(t, f, fn, f.fact(local(9), taintA))
	checkTargets(t, f, fn, f.fact(domain.Return{}, taintA))
	static := domain.StaticField{Field: globG}
	checkTargets(t, f, fn, f.fact(static, taintA), domain.Element{Code: static, Taint: taintA})
	inst := domain.Instance{Instance: obj1}
	checkTargets(t, f, fn, f.fact(inst, taintA), domain.Element{Code: inst, Taint: taintA})
}

func TestCallToReturnKillsResult(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Method: ir.MethodRef{Name: "callee"}, Args: []ir.ValueNumber{4}, Dst: 8})
	fn, err := f.provider(Options{}).CallToReturnFlow(f.call, f.ret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkTargets(t, f, fn, f.fact(local(4), taintA), domain.Element{Code: local(4), Taint: taintA})
	checkTargets(t, f, fn, f.fact(local(8), taintA))
}

func TestCallToReturnWithoutImplementationUsesExcludedPolicy(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Method: ir.MethodRef{Name: "callee"}, Args: []ir.ValueNumber{4}, Dst: 8})
	f.pts = ir.NewPointsToMap(nil)
	fn, err := f.provider(Options{}).CallToReturnFlow(f.call, f.ret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkTargets(t, f, fn, f.fact(local(4), taintA),
		domain.Element{Code: local(4), Taint: taintA},
		domain.Element{Code: local(8), Taint: taintA})
}

func TestCallNoneToReturnPolicies(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Method: ir.MethodRef{Name: "lib"}, Args: []ir.ValueNumber{4}, Dst: 8})
	static := domain.StaticField{Field: globG}
	// populate the domain with code elements under another flow type
	f.fact(local(10), taintB)
	f.fact(static, taintB)
	in := f.fact(local(4), taintA)

	fn, err := f.provider(Options{ExcludedCallee: IdentityPolicy}).CallNoneToReturnFlow(f.call, f.ret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkTargets(t, f, fn, in,
		domain.Element{Code: local(4), Taint: taintA},
		domain.Element{Code: local(8), Taint: taintA})

	fn, err = f.provider(Options{ExcludedCallee: TaintEverythingPolicy}).CallNoneToReturnFlow(f.call, f.ret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkTargets(t, f, fn, in,
		domain.Element{Code: local(4), Taint: taintA},
		domain.Element{Code: local(8), Taint: taintA},
		domain.Element{Code: local(10), Taint: taintA},
		domain.Element{Code: static, Taint: taintA})
}

func TestSourceCallsGenerateTaint(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Method: ir.MethodRef{Name: "source"}, Dst: 8})
	src := domain.SourceFlow{Label: "source()"}
	opts := Options{Sources: func(_ ir.Node, invoke ir.InvokeInstruction) (domain.FlowType, bool) {
		return src, invoke.Target().Name == "source"
	}}
	fn, err := f.provider(opts).CallNoneToReturnFlow(f.call, f.ret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkTargets(t, f, fn, domain.Zero, domain.Element{Code: local(8), Taint: src})
}

func TestReturnFlowTranslatesReturnValue(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Method: ir.MethodRef{Name: "callee"}, Args: []ir.ValueNumber{4}, Receiver: true, Dst: 8})
	f.pts.AddPointsTo(ir.LocalKey{Proc: f.main, Value: 4}, obj1)
	fn, err := f.provider(Options{}).ReturnFlow(f.call, f.callee.ExitBlock(), f.ret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkTargets(t, f, fn, f.fact(domain.Return{}, taintA), domain.Element{Code: local(8), Taint: taintA})
	checkTargets(t, f, fn, f.fact(local(1), taintA))
	static := domain.StaticField{Field: globG}
	checkTargets(t, f, fn, f.fact(static, taintB), domain.Element{Code: static, Taint: taintB})
	inst := domain.Instance{Instance: obj1}
	checkTargets(t, f, fn, f.fact(inst, taintB),
		domain.Element{Code: inst, Taint: taintB},
		domain.Element{Code: local(4), Taint: taintB})
}

func TestReturnFlowAppliesContinuation(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Method: ir.MethodRef{Name: "callee"}, Dst: 8},
		&ir.Op{Label: "copy", Uses: []ir.ValueNumber{8}, Defs: []ir.ValueNumber{9}})
	fn, err := f.provider(Options{}).ReturnFlow(f.call, f.callee.ExitBlock(), f.ret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkTargets(t, f, fn, f.fact(domain.Return{}, taintA),
		domain.Element{Code: local(8), Taint: taintA},
		domain.Element{Code: local(9), Taint: taintA})
}

func TestReturnFlowAcrossProceduresIsStructuralError(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Method: ir.MethodRef{Name: "callee"}, Dst: 8})
	_, err := f.provider(Options{}).ReturnFlow(f.call, f.callee.ExitBlock(), f.callee.EntryBlock())
	var se *ir.StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("expected a structural error, got %v", err)
	}
}

func TestReturnFlowFromNonCallIsGlobalIdentity(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Method: ir.MethodRef{Name: "callee"}, Dst: 8})
	fn, err := f.provider(Options{}).ReturnFlow(f.ret, f.callee.ExitBlock(), f.ret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkTargets(t, f, fn, f.fact(domain.Return{}, taintA))
	static := domain.StaticField{Field: globG}
	checkTargets(t, f, fn, f.fact(static, taintA), domain.Element{Code: static, Taint: taintA})
}

// countingProvider counts the normal flow functions it builds
type countingProvider struct {
	Provider
	built int
	fail  bool
}

func (c *countingProvider) NormalFlow(src, dest ir.Node) (Function, error) {
	c.built++
	if c.fail {
		return nil, errors.New("no flow function")
	}
	return c.Provider.NormalFlow(src, dest)
}

func TestCachingProviderMemoizes(t *testing.T) {
	f := newCallFixture(&ir.Invoke{Method: ir.MethodRef{Name: "callee"}, Dst: 8})
	counting := &countingProvider{Provider: f.provider(Options{})}
	c := NewCachingProvider(counting, 10, time.Minute, nil)
	for i := 0; i < 3; i++ {
		if _, err := c.NormalFlow(f.main.EntryBlock(), f.call); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if counting.built != 1 {
		t.Errorf("normal flow built %d times, want 1", counting.built)
	}
	requests, misses := c.Stats()
	if requests != 3 || misses != 1 {
		t.Errorf("requests=%d misses=%d, want 3 and 1", requests, misses)
	}

	counting.fail = true
	for i := 0; i < 2; i++ {
		if _, err := c.NormalFlow(f.call, f.ret); err == nil {
			t.Fatalf("expected construction error")
		}
	}
	if counting.built != 3 {
		t.Errorf("failed constructions should not be cached, built %d times", counting.built)
	}
}

func TestFunctionAlgebra(t *testing.T) {
	a := FunctionOf(func(d int) *FactSet { return NewFactSet(d, d+1) })
	b := FunctionOf(func(d int) *FactSet { return NewFactSet(d * 10) })
	if got := Compose(a, b).Targets(2).Slice(); !cmp.Equal(got, []int{20, 30}) {
		t.Errorf("compose: got %v", got)
	}
	if got := Union(a, b).Targets(2).Slice(); !cmp.Equal(got, []int{2, 3, 20}) {
		t.Errorf("union: got %v", got)
	}
	if got := Sequence().Targets(7).Slice(); !cmp.Equal(got, []int{7}) {
		t.Errorf("empty sequence: got %v", got)
	}
	if !NewFactSet(1, 2).Equal(NewFactSet(2, 1)) || NewFactSet(1).Equal(NewFactSet()) {
		t.Errorf("FactSet.Equal is wrong")
	}
}
