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
	"fmt"
	"go/token"
	"go/types"
	"strconv"
	"strings"

	"github.com/awslabs/argot-ifds/analysis/ir"
	"golang.org/x/tools/go/ssa"
)

// lowering holds the state of the translation of the instructions of one function
type lowering struct {
	fn     *ssa.Function
	values map[ssa.Value]ir.ValueNumber
}

// num returns the value number of v, allocating one if needed. Constants and functions carry no data that can be
// tainted: they have no value number.
func (l *lowering) num(v ssa.Value) ir.ValueNumber {
	switch v.(type) {
	case nil, *ssa.Const, *ssa.Function, *ssa.Builtin:
		return ir.NoValue
	}
	if n, ok := l.values[v]; ok {
		return n
	}
	n := ir.ValueNumber(len(l.values) + 1)
	l.values[v] = n
	return n
}

func (l *lowering) operands(instr ssa.Instruction) []ir.ValueNumber {
	var uses []ir.ValueNumber
	for _, operand := range instr.Operands(nil) {
		if operand == nil {
			continue
		}
		if n := l.num(*operand); n != ir.NoValue {
			uses = append(uses, n)
		}
	}
	return uses
}

// instruction returns the ir instruction of instr, or nil if instr does not move data
func (l *lowering) instruction(instr ssa.Instruction) ir.Instruction {
	switch x := instr.(type) {
	case ssa.CallInstruction:
		return l.invoke(x)

	case *ssa.Return:
		results := make([]ir.ValueNumber, 0, len(x.Results))
		for _, r := range x.Results {
			if n := l.num(r); n != ir.NoValue {
				results = append(results, n)
			}
		}
		return &ir.Return{Results: results}

	case *ssa.Store:
		return l.store(x.Addr, l.num(x.Val))

	case *ssa.UnOp:
		switch x.Op {
		case token.MUL:
			return l.load(x, x.X)
		case token.ARROW:
			return &ir.LoadArray{Dst: l.num(x), ArrayRef: l.num(x.X), Index: ir.NoValue}
		}

	case *ssa.Index:
		return &ir.LoadArray{Dst: l.num(x), ArrayRef: l.num(x.X), Index: l.num(x.Index)}

	case *ssa.Lookup:
		return &ir.LoadArray{Dst: l.num(x), ArrayRef: l.num(x.X), Index: l.num(x.Index)}

	case *ssa.MapUpdate:
		return &ir.StoreArray{ArrayRef: l.num(x.Map), Index: l.num(x.Key), Val: l.num(x.Value)}

	case *ssa.Send:
		return &ir.StoreArray{ArrayRef: l.num(x.Chan), Index: ir.NoValue, Val: l.num(x.X)}

	case *ssa.Jump, *ssa.If, *ssa.Panic, *ssa.DebugRef, *ssa.RunDefers:
		return nil
	}

	v, isValue := instr.(ssa.Value)
	if !isValue {
		return nil
	}
	return &ir.Op{Label: opLabel(instr), Uses: l.operands(instr), Defs: []ir.ValueNumber{l.num(v)}}
}

func (l *lowering) load(def ssa.Value, addr ssa.Value) ir.Instruction {
	switch a := addr.(type) {
	case *ssa.FieldAddr:
		return &ir.GetField{Dst: l.num(def), Object: l.num(a.X), F: structField(a.X.Type(), a.Field)}
	case *ssa.IndexAddr:
		return &ir.LoadArray{Dst: l.num(def), ArrayRef: l.num(a.X), Index: l.num(a.Index)}
	case *ssa.Global:
		return &ir.GetField{Dst: l.num(def), Object: ir.NoValue, F: globalField(a), Static: true}
	default:
		return &ir.GetField{Dst: l.num(def), Object: l.num(addr), F: ir.PointeeContents}
	}
}

func (l *lowering) store(addr ssa.Value, val ir.ValueNumber) ir.Instruction {
	switch a := addr.(type) {
	case *ssa.FieldAddr:
		return &ir.PutField{Object: l.num(a.X), Val: val, F: structField(a.X.Type(), a.Field)}
	case *ssa.IndexAddr:
		return &ir.StoreArray{ArrayRef: l.num(a.X), Index: l.num(a.Index), Val: val}
	case *ssa.Global:
		return &ir.PutField{Object: ir.NoValue, Val: val, F: globalField(a), Static: true}
	default:
		return &ir.PutField{Object: l.num(addr), Val: val, F: ir.PointeeContents}
	}
}

func (l *lowering) invoke(site ssa.CallInstruction) *ir.Invoke {
	common := site.Common()
	invoke := &ir.Invoke{Method: l.methodRef(common), Dst: ir.NoValue}
	if common.IsInvoke() {
		invoke.Receiver = true
		invoke.Args = append(invoke.Args, l.num(common.Value))
	} else if callee := common.StaticCallee(); callee != nil && callee.Signature.Recv() != nil {
		invoke.Receiver = true
	}
	for _, arg := range common.Args {
		invoke.Args = append(invoke.Args, l.num(arg))
	}
	if v := site.Value(); v != nil {
		invoke.Dst = l.num(v)
	}
	return invoke
}

// methodRef names the target of a call. Dynamic calls of function values are named after the value in its
// function, so that they never share a name with another call site.
func (l *lowering) methodRef(common *ssa.CallCommon) ir.MethodRef {
	if common.IsInvoke() {
		return ir.MethodRef{Owner: common.Value.Type().String(), Name: common.Method.Name()}
	}
	if f := common.StaticCallee(); f != nil {
		switch {
		case f.Signature.Recv() != nil:
			return ir.MethodRef{Owner: f.Signature.Recv().Type().String(), Name: f.Name()}
		case f.Pkg != nil:
			return ir.MethodRef{Owner: f.Pkg.Pkg.Path(), Name: f.Name()}
		default:
			return ir.MethodRef{Name: f.String()}
		}
	}
	return ir.MethodRef{Owner: l.fn.String(), Name: common.Value.Name()}
}

func structField(ptr types.Type, index int) ir.FieldRef {
	t := pointee(ptr)
	ref := ir.FieldRef{Owner: t.String(), Name: strconv.Itoa(index)}
	if s, ok := t.Underlying().(*types.Struct); ok && index < s.NumFields() {
		ref.Name = s.Field(index).Name()
	}
	return ref
}

func globalField(g *ssa.Global) ir.FieldRef {
	if g.Pkg == nil {
		return ir.FieldRef{Name: g.Name()}
	}
	return ir.FieldRef{Owner: g.Pkg.Pkg.Path(), Name: g.Name()}
}

func opLabel(instr ssa.Instruction) string {
	return strings.ToLower(strings.TrimPrefix(fmt.Sprintf("%T", instr), "*ssa."))
}
