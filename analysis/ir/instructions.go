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
	"strings"
)

// InstrKind distinguishes the instruction shapes that need specialized use/def extraction.
type InstrKind int

const (
	// KindOther is any instruction whose uses and defs are all locals
	KindOther InstrKind = iota
	// KindFieldGet reads an instance field
	KindFieldGet
	// KindFieldPut writes an instance field
	KindFieldPut
	// KindStaticGet reads a static field
	KindStaticGet
	// KindStaticPut writes a static field
	KindStaticPut
	// KindArrayLoad reads an element of an array
	KindArrayLoad
	// KindArrayStore writes an element of an array
	KindArrayStore
	// KindInvoke is a call
	KindInvoke
	// KindReturn returns from the current procedure
	KindReturn
)

var kindNames = [...]string{"other", "field-get", "field-put", "static-get", "static-put", "array-load",
	"array-store", "invoke", "return"}

func (k InstrKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Instruction is the introspection interface the flow functions use on instructions.
type Instruction interface {
	Kind() InstrKind
	NumUses() int
	Use(i int) ValueNumber
	NumDefs() int
	Def(i int) ValueNumber
	String() string
}

// FieldInstruction is implemented by instructions of kind KindFieldGet, KindFieldPut, KindStaticGet and
// KindStaticPut.
type FieldInstruction interface {
	Instruction
	Field() FieldRef
	// Ref is the value number of the object whose field is accessed, or NoValue for static fields
	Ref() ValueNumber
	IsStatic() bool
	// IsFinal is true when the field cannot be written after initialization
	IsFinal() bool
	// Value is the value read (for gets) or written (for puts)
	Value() ValueNumber
}

// ArrayInstruction is implemented by instructions of kind KindArrayLoad and KindArrayStore.
type ArrayInstruction interface {
	Instruction
	Array() ValueNumber
	// Value is the value read (for loads) or written (for stores)
	Value() ValueNumber
}

// InvokeInstruction is implemented by instructions of kind KindInvoke.
type InvokeInstruction interface {
	Instruction
	Target() MethodRef
	// NumArgs is the number of actual arguments, including the receiver if there is one
	NumArgs() int
	Arg(i int) ValueNumber
	// HasReceiver is true if Arg(0) is the receiver of the call
	HasReceiver() bool
	// Result is the value number defined by the call, or NoValue
	Result() ValueNumber
}

func valueList(vs []ValueNumber) string {
	s := make([]string, len(vs))
	for i, v := range vs {
		s[i] = fmt.Sprintf("v%d", v)
	}
	return strings.Join(s, ", ")
}

// Op is an instruction that only uses and defines locals.
type Op struct {
	Label string
	Uses  []ValueNumber
	Defs  []ValueNumber
}

func (o *Op) Kind() InstrKind       { return KindOther }
func (o *Op) NumUses() int          { return len(o.Uses) }
func (o *Op) Use(i int) ValueNumber { return o.Uses[i] }
func (o *Op) NumDefs() int          { return len(o.Defs) }
func (o *Op) Def(i int) ValueNumber { return o.Defs[i] }
func (o *Op) String() string {
	return fmt.Sprintf("%s = %s(%s)", valueList(o.Defs), o.Label, valueList(o.Uses))
}

// GetField reads Object.F (or the static field F when Static is set) into Dst.
type GetField struct {
	Dst    ValueNumber
	Object ValueNumber
	F      FieldRef
	Static bool
	Final  bool
}

func (g *GetField) Kind() InstrKind {
	if g.Static {
		return KindStaticGet
	}
	return KindFieldGet
}

func (g *GetField) NumUses() int {
	if g.Static {
		return 0
	}
	return 1
}

func (g *GetField) Use(i int) ValueNumber {
	if g.Static || i != 0 {
		panic(fmt.Sprintf("GetField: use %d out of range", i))
	}
	return g.Object
}

func (g *GetField) NumDefs() int          { return 1 }
func (g *GetField) Def(_ int) ValueNumber { return g.Dst }
func (g *GetField) Field() FieldRef       { return g.F }
func (g *GetField) IsStatic() bool        { return g.Static }
func (g *GetField) IsFinal() bool         { return g.Final }
func (g *GetField) Value() ValueNumber    { return g.Dst }

func (g *GetField) Ref() ValueNumber {
	if g.Static {
		return NoValue
	}
	return g.Object
}

func (g *GetField) String() string {
	if g.Static {
		return fmt.Sprintf("v%d = getstatic %s", g.Dst, g.F)
	}
	return fmt.Sprintf("v%d = getfield v%d.%s", g.Dst, g.Object, g.F)
}

// PutField writes Val into Object.F (or the static field F when Static is set).
type PutField struct {
	Object ValueNumber
	Val    ValueNumber
	F      FieldRef
	Static bool
	Final  bool
}

func (p *PutField) Kind() InstrKind {
	if p.Static {
		return KindStaticPut
	}
	return KindFieldPut
}

func (p *PutField) NumUses() int {
	if p.Static {
		return 1
	}
	return 2
}

func (p *PutField) Use(i int) ValueNumber {
	if p.Static {
		return p.Val
	}
	if i == 0 {
		return p.Object
	}
	return p.Val
}

func (p *PutField) NumDefs() int { return 0 }
func (p *PutField) Def(i int) ValueNumber {
	panic(fmt.Sprintf("PutField: def %d out of range", i))
}
func (p *PutField) Field() FieldRef    { return p.F }
func (p *PutField) IsStatic() bool     { return p.Static }
func (p *PutField) IsFinal() bool      { return p.Final }
func (p *PutField) Value() ValueNumber { return p.Val }

func (p *PutField) Ref() ValueNumber {
	if p.Static {
		return NoValue
	}
	return p.Object
}

func (p *PutField) String() string {
	if p.Static {
		return fmt.Sprintf("putstatic %s = v%d", p.F, p.Val)
	}
	return fmt.Sprintf("putfield v%d.%s = v%d", p.Object, p.F, p.Val)
}

// LoadArray reads an element of ArrayRef into Dst. Index may be NoValue when the index is not a value.
type LoadArray struct {
	Dst      ValueNumber
	ArrayRef ValueNumber
	Index    ValueNumber
}

func (l *LoadArray) Kind() InstrKind { return KindArrayLoad }

func (l *LoadArray) NumUses() int {
	if l.Index == NoValue {
		return 1
	}
	return 2
}

func (l *LoadArray) Use(i int) ValueNumber {
	if i == 0 {
		return l.ArrayRef
	}
	return l.Index
}

func (l *LoadArray) NumDefs() int          { return 1 }
func (l *LoadArray) Def(_ int) ValueNumber { return l.Dst }
func (l *LoadArray) Array() ValueNumber    { return l.ArrayRef }
func (l *LoadArray) Value() ValueNumber    { return l.Dst }
func (l *LoadArray) String() string {
	return fmt.Sprintf("v%d = arrayload v%d[v%d]", l.Dst, l.ArrayRef, l.Index)
}

// StoreArray writes Val into an element of ArrayRef. Index may be NoValue.
type StoreArray struct {
	ArrayRef ValueNumber
	Index    ValueNumber
	Val      ValueNumber
}

func (s *StoreArray) Kind() InstrKind { return KindArrayStore }

func (s *StoreArray) NumUses() int {
	if s.Index == NoValue {
		return 2
	}
	return 3
}

func (s *StoreArray) Use(i int) ValueNumber {
	switch {
	case i == 0:
		return s.ArrayRef
	case i == 1 && s.Index != NoValue:
		return s.Index
	default:
		return s.Val
	}
}

func (s *StoreArray) NumDefs() int { return 0 }
func (s *StoreArray) Def(i int) ValueNumber {
	panic(fmt.Sprintf("StoreArray: def %d out of range", i))
}
func (s *StoreArray) Array() ValueNumber { return s.ArrayRef }
func (s *StoreArray) Value() ValueNumber { return s.Val }
func (s *StoreArray) String() string {
	return fmt.Sprintf("arraystore v%d[v%d] = v%d", s.ArrayRef, s.Index, s.Val)
}

// Invoke calls Method with Args. If Receiver is set, Args[0] is the receiver. Dst is NoValue for calls that do not
// return a value.
type Invoke struct {
	Method   MethodRef
	Args     []ValueNumber
	Receiver bool
	Dst      ValueNumber
}

func (c *Invoke) Kind() InstrKind       { return KindInvoke }
func (c *Invoke) NumUses() int          { return len(c.Args) }
func (c *Invoke) Use(i int) ValueNumber { return c.Args[i] }

func (c *Invoke) NumDefs() int {
	if c.Dst == NoValue {
		return 0
	}
	return 1
}

func (c *Invoke) Def(_ int) ValueNumber { return c.Dst }
func (c *Invoke) Target() MethodRef     { return c.Method }
func (c *Invoke) NumArgs() int          { return len(c.Args) }
func (c *Invoke) Arg(i int) ValueNumber { return c.Args[i] }
func (c *Invoke) HasReceiver() bool     { return c.Receiver }
func (c *Invoke) Result() ValueNumber   { return c.Dst }
func (c *Invoke) String() string {
	if c.Dst == NoValue {
		return fmt.Sprintf("invoke %s(%s)", c.Method, valueList(c.Args))
	}
	return fmt.Sprintf("v%d = invoke %s(%s)", c.Dst, c.Method, valueList(c.Args))
}

// Return returns Results from the procedure. An empty Results is a return without value.
type Return struct {
	Results []ValueNumber
}

func (r *Return) Kind() InstrKind       { return KindReturn }
func (r *Return) NumUses() int          { return len(r.Results) }
func (r *Return) Use(i int) ValueNumber { return r.Results[i] }
func (r *Return) NumDefs() int          { return 0 }
func (r *Return) Def(i int) ValueNumber {
	panic(fmt.Sprintf("Return: def %d out of range", i))
}
func (r *Return) String() string { return "return " + valueList(r.Results) }
