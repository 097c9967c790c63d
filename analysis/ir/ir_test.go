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
	"errors"
	"strings"
	"testing"
)

func TestProgramBuilder(t *testing.T) {
	prog := NewProgram()
	main := prog.NewProcedure("main", 0)
	callee := prog.NewProcedure("callee", 2)
	call := main.NewBlock(&Invoke{Method: MethodRef{Name: "callee"}, Args: []ValueNumber{1, 2}, Dst: 3})
	ret := main.NewBlock(&Return{Results: []ValueNumber{3}})
	main.Chain(call, ret)
	callee.Chain()
	prog.AddCallees(call, callee, callee)
	prog.AddEntrypoint(main)

	if len(prog.Procedures()) != 2 || prog.Entrypoints()[0] != Procedure(main) {
		t.Fatalf("unexpected procedures")
	}
	if prog.Entry(main) != Node(main.EntryBlock()) || prog.Exit(main) != Node(main.ExitBlock()) {
		t.Errorf("entry or exit block is wrong")
	}
	if len(prog.Nodes(main)) != 4 {
		t.Errorf("main should have 4 nodes, has %d", len(prog.Nodes(main)))
	}
	if !prog.IsCall(call) || prog.IsCall(ret) || !prog.IsExit(main.ExitBlock()) || prog.IsExit(ret) {
		t.Errorf("node classification is wrong")
	}
	if got := prog.CallInstruction(call); got == nil || got.Target().Name != "callee" || got.NumArgs() != 2 {
		t.Errorf("unexpected call instruction %v", got)
	}
	if callees := prog.Callees(call); len(callees) != 1 || callees[0] != Procedure(callee) {
		t.Errorf("callees should be registered once, got %v", callees)
	}
	if sites := prog.ReturnSites(call); len(sites) != 1 || sites[0] != Node(ret) {
		t.Errorf("return site should be the successor of the call, got %v", sites)
	}
	if callers := prog.Callers(callee); len(callers) != 1 || callers[0] != Node(call) {
		t.Errorf("unexpected callers %v", callers)
	}
	if preds := prog.Preds(ret); len(preds) != 1 || preds[0] != Node(call) {
		t.Errorf("unexpected predecessors %v", preds)
	}
	if callee.ID() != 1 || call.Index() != 2 || call.String() != "main#2" {
		t.Errorf("unexpected identifiers %d %d %s", callee.ID(), call.Index(), call)
	}

	prog.RemoveCallee(call, callee)
	if len(prog.Callees(call)) != 0 || len(prog.Callers(callee)) != 0 {
		t.Errorf("callee was not removed")
	}
}

func TestConnectAcrossProceduresPanics(t *testing.T) {
	prog := NewProgram()
	a := prog.NewProcedure("a", 0)
	b := prog.NewProcedure("b", 0)
	defer func() {
		if recover() == nil {
			t.Errorf("connecting blocks of different procedures should panic")
		}
	}()
	a.Connect(a.EntryBlock(), b.ExitBlock())
}

func TestPointsToMap(t *testing.T) {
	prog := NewProgram()
	main := prog.NewProcedure("main", 0)
	impl := prog.NewProcedure("impl", 1)
	method := MethodRef{Owner: "T", Name: "m"}
	call := main.NewBlock(&Invoke{Method: method, Args: []ValueNumber{1}, Receiver: true, Dst: NoValue})
	main.Chain(call)
	prog.AddCallees(call, impl)

	pts := NewPointsToMap(prog)
	if got := pts.Implementations(method); len(got) != 1 || got[0] != Procedure(impl) {
		t.Errorf("implementations should be derived from the call sites, got %v", got)
	}
	if got := pts.Implementations(MethodRef{Name: "other"}); len(got) != 0 {
		t.Errorf("unknown method should have no implementation, got %v", got)
	}
	o := AllocationSite{Proc: "main", Label: "o"}
	key := LocalKey{Proc: main, Value: 1}
	pts.AddPointsTo(key, o, o)
	if got := pts.PointsTo(key); len(got) != 1 || got[0] != InstanceKey(o) {
		t.Errorf("unexpected points-to set %v", got)
	}
	if got := pts.PointsTo(LocalKey{Proc: impl, Value: 1}); len(got) != 0 {
		t.Errorf("pointer keys are per procedure, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	prog := NewProgram()
	main := prog.NewProcedure("main", 0)
	callee := prog.NewProcedure("callee", 0)
	callee.Chain()
	good := main.NewBlock(&Invoke{Method: MethodRef{Name: "callee"}, Dst: NoValue})
	main.Chain(good)
	prog.AddCallees(good, callee)
	if err := Validate(prog); err != nil {
		t.Fatalf("unexpected error on a well formed program: %v", err)
	}

	bad := main.NewBlock(&Invoke{Method: MethodRef{Name: "callee"}, Dst: NoValue})
	main.Connect(main.EntryBlock(), bad)
	err := Validate(prog)
	var se *StructuralError
	if !errors.As(err, &se) || !errors.Is(err, ErrMalformedSupergraph) {
		t.Fatalf("expected a structural error, got %v", err)
	}
	if se.Node != Node(bad) || !strings.Contains(err.Error(), "without return site") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestInstructionIntrospection(t *testing.T) {
	get := &GetField{Dst: 2, Object: 1, F: FieldRef{Owner: "T", Name: "f"}}
	if get.Kind() != KindFieldGet || get.NumUses() != 1 || get.Use(0) != 1 || get.Ref() != 1 || get.Value() != 2 {
		t.Errorf("unexpected field get introspection")
	}
	static := &GetField{Dst: 2, F: FieldRef{Owner: "pkg", Name: "g"}, Static: true}
	if static.Kind() != KindStaticGet || static.NumUses() != 0 || static.Ref() != NoValue {
		t.Errorf("unexpected static get introspection")
	}
	store := &StoreArray{ArrayRef: 1, Index: NoValue, Val: 3}
	if store.Kind() != KindArrayStore || store.NumUses() != 2 || store.Use(1) != 3 || store.NumDefs() != 0 {
		t.Errorf("unexpected array store introspection")
	}
	call := &Invoke{Method: MethodRef{Name: "f"}, Args: []ValueNumber{4}, Dst: NoValue}
	if call.NumDefs() != 0 || call.Result() != NoValue || call.String() != "invoke f(v4)" {
		t.Errorf("unexpected invoke introspection: %s", call)
	}
	if KindReturn.String() != "return" || InstrKind(42).String() != "kind(42)" {
		t.Errorf("unexpected kind names")
	}
}

func TestDefiningInstructions(t *testing.T) {
	for _, c := range []struct {
		instr Instruction
		want  ValueNumber
	}{
		{&GetField{Dst: 5, Object: 1, F: FieldRef{Owner: "T", Name: "f"}}, 5},
		{&LoadArray{Dst: 6, ArrayRef: 1, Index: 2}, 6},
		{&Invoke{Method: MethodRef{Name: "f"}, Args: []ValueNumber{1}, Dst: 7}, 7},
	} {
		if c.instr.NumDefs() != 1 || c.instr.Def(0) != c.want {
			t.Errorf("%s should define v%d, got %d defs", c.instr, c.want, c.instr.NumDefs())
		}
	}
	if v := (&LoadArray{Dst: 6, ArrayRef: 1, Index: 2}).Value(); v != 6 {
		t.Errorf("array load value is v%d, want v6", v)
	}
	if r := (&Invoke{Method: MethodRef{Name: "f"}, Dst: 7}).Result(); r != 7 {
		t.Errorf("invoke result is v%d, want v7", r)
	}
}
