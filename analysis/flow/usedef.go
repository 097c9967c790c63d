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
	"fmt"

	"github.com/awslabs/argot-ifds/analysis/domain"
	"github.com/awslabs/argot-ifds/analysis/ir"
)

// UseDefPair relates a code element read by an instruction to a code element it writes
type UseDefPair struct {
	Use domain.CodeElement
	Def domain.CodeElement
}

// UseDefSetPair holds the code elements read (Uses) and written (Defs) by an instruction. Both lists are free of
// duplicates.
type UseDefSetPair struct {
	Uses []domain.CodeElement
	Defs []domain.CodeElement
}

// Pairs returns the cartesian product of the uses and the defs: every use may flow to every def.
func (p UseDefSetPair) Pairs() []UseDefPair {
	pairs := make([]UseDefPair, 0, len(p.Uses)*len(p.Defs))
	for _, use := range p.Uses {
		for _, def := range p.Defs {
			pairs = append(pairs, UseDefPair{Use: use, Def: def})
		}
	}
	return pairs
}

// elementList accumulates distinct code elements in insertion order
type elementList struct {
	elements []domain.CodeElement
	seen     map[domain.CodeElement]bool
}

func (l *elementList) add(c domain.CodeElement) {
	if l.seen == nil {
		l.seen = map[domain.CodeElement]bool{}
	}
	if !l.seen[c] {
		l.seen[c] = true
		l.elements = append(l.elements, c)
	}
}

func (l *elementList) addLocal(v ir.ValueNumber) {
	if v != ir.NoValue {
		l.add(domain.Local{Value: v})
	}
}

func instanceKeys(pts ir.PointsTo, proc ir.Procedure, v ir.ValueNumber) []ir.InstanceKey {
	if pts == nil || v == ir.NoValue {
		return nil
	}
	return pts.PointsTo(ir.LocalKey{Proc: proc, Value: v})
}

// UseDefs returns the code elements used and defined by instr, an instruction of procedure proc.
//
// Heap accesses are expanded with the points-to oracle: an access to field f of the object referenced by v is an
// access to the field f of every instance key v may point to. Reads of a field also read the object itself, so that
// tainting an object taints all its fields. Array elements are modeled as the ir.ArrayContents pseudo-field.
//
// Invocations have no uses or defs here: calls are handled by the call, call-to-return and return flow functions.
// See InvokeUseDefs.
func UseDefs(instr ir.Instruction, proc ir.Procedure, pts ir.PointsTo) (UseDefSetPair, error) {
	var uses, defs elementList
	switch instr.Kind() {
	case ir.KindOther:
		for i := 0; i < instr.NumUses(); i++ {
			uses.addLocal(instr.Use(i))
		}
		for i := 0; i < instr.NumDefs(); i++ {
			defs.addLocal(instr.Def(i))
		}

	case ir.KindFieldGet:
		fi, ok := instr.(ir.FieldInstruction)
		if !ok {
			return UseDefSetPair{}, unexpectedShape(instr)
		}
		uses.addLocal(fi.Ref())
		for _, ik := range instanceKeys(pts, proc, fi.Ref()) {
			uses.add(domain.Field{Instance: ik, Field: fi.Field()})
			uses.add(domain.Instance{Instance: ik})
		}
		defs.addLocal(fi.Value())

	case ir.KindFieldPut:
		fi, ok := instr.(ir.FieldInstruction)
		if !ok {
			return UseDefSetPair{}, unexpectedShape(instr)
		}
		uses.addLocal(fi.Value())
		for _, ik := range instanceKeys(pts, proc, fi.Ref()) {
			defs.add(domain.Field{Instance: ik, Field: fi.Field()})
		}

	case ir.KindStaticGet:
		fi, ok := instr.(ir.FieldInstruction)
		if !ok {
			return UseDefSetPair{}, unexpectedShape(instr)
		}
		uses.add(domain.StaticField{Field: fi.Field()})
		defs.addLocal(fi.Value())

	case ir.KindStaticPut:
		fi, ok := instr.(ir.FieldInstruction)
		if !ok {
			return UseDefSetPair{}, unexpectedShape(instr)
		}
		uses.addLocal(fi.Value())
		defs.add(domain.StaticField{Field: fi.Field()})

	case ir.KindArrayLoad:
		ai, ok := instr.(ir.ArrayInstruction)
		if !ok {
			return UseDefSetPair{}, unexpectedShape(instr)
		}
		uses.addLocal(ai.Array())
		for _, ik := range instanceKeys(pts, proc, ai.Array()) {
			uses.add(domain.Field{Instance: ik, Field: ir.ArrayContents})
			uses.add(domain.Instance{Instance: ik})
		}
		defs.addLocal(ai.Value())

	case ir.KindArrayStore:
		ai, ok := instr.(ir.ArrayInstruction)
		if !ok {
			return UseDefSetPair{}, unexpectedShape(instr)
		}
		uses.addLocal(ai.Value())
		for _, ik := range instanceKeys(pts, proc, ai.Array()) {
			defs.add(domain.Field{Instance: ik, Field: ir.ArrayContents})
		}

	case ir.KindInvoke:
		if _, ok := instr.(ir.InvokeInstruction); !ok {
			return UseDefSetPair{}, unexpectedShape(instr)
		}

	case ir.KindReturn:
		for i := 0; i < instr.NumUses(); i++ {
			uses.addLocal(instr.Use(i))
		}
		defs.add(domain.Return{})

	default:
		return UseDefSetPair{}, fmt.Errorf("unknown instruction kind %s for %s", instr.Kind(), instr)
	}
	return UseDefSetPair{Uses: uses.elements, Defs: defs.elements}, nil
}

// InvokeUseDefs returns the use/def pairs of a call treated as an ordinary instruction: every argument flows to the
// result. This is the treatment of calls whose callee is not analyzed.
func InvokeUseDefs(call ir.InvokeInstruction) UseDefSetPair {
	var uses, defs elementList
	for i := 0; i < call.NumArgs(); i++ {
		uses.addLocal(call.Arg(i))
	}
	defs.addLocal(call.Result())
	return UseDefSetPair{Uses: uses.elements, Defs: defs.elements}
}

func unexpectedShape(instr ir.Instruction) error {
	return fmt.Errorf("unexpected instruction shape %T for kind %s: %s", instr, instr.Kind(), instr)
}
