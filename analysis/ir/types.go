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

import "fmt"

// ValueNumber identifies a virtual register inside one procedure. The formal parameters of a procedure are numbered
// 1..n, in order; other values are numbered after them.
type ValueNumber int

// NoValue is the value number used when an instruction does not define or use a value at some position, e.g. the
// result of a call to a procedure that does not return anything.
const NoValue ValueNumber = -1

// FormalParameter returns the value number of the i-th formal parameter (0-indexed) of a procedure.
func FormalParameter(i int) ValueNumber {
	return ValueNumber(i + 1)
}

// FieldRef is a reference to a field, either of a heap object or a static (global) field.
type FieldRef struct {
	// Owner is the type (or package for globals) declaring the field
	Owner string
	// Name is the name of the field
	Name string
}

func (f FieldRef) String() string {
	return f.Owner + "." + f.Name
}

// ArrayContents is the pseudo-field used to represent the contents of arrays, slices and maps.
var ArrayContents = FieldRef{Owner: "[]", Name: "contents"}

// PointeeContents is the pseudo-field used to represent the memory location a pointer points to.
var PointeeContents = FieldRef{Owner: "*", Name: "contents"}

// MethodRef is a reference to a method or function, as it appears at a call site.
type MethodRef struct {
	Owner string
	Name  string
}

func (m MethodRef) String() string {
	if m.Owner == "" {
		return m.Name
	}
	return "(" + m.Owner + ")." + m.Name
}

// InstanceKey is the identity of an abstract heap object. Implementations must be comparable: two instance keys
// denote the same abstract object if and only if they are equal.
type InstanceKey interface {
	String() string
}

// AllocationSite is a simple InstanceKey naming an allocation by its procedure and a label.
type AllocationSite struct {
	Proc  string
	Label string
}

func (a AllocationSite) String() string {
	return fmt.Sprintf("alloc(%s@%s)", a.Label, a.Proc)
}

// PointerKey is a query key for the points-to oracle. It is either a LocalKey or a StaticFieldKey.
type PointerKey interface {
	isPointerKey()
	String() string
}

// LocalKey is the pointer key of a local value in some procedure
type LocalKey struct {
	Proc  Procedure
	Value ValueNumber
}

func (LocalKey) isPointerKey() {}

func (k LocalKey) String() string {
	return fmt.Sprintf("v%d@%s", k.Value, k.Proc)
}

// StaticFieldKey is the pointer key of a static field
type StaticFieldKey struct {
	Field FieldRef
}

func (StaticFieldKey) isPointerKey() {}

func (k StaticFieldKey) String() string {
	return "static " + k.Field.String()
}

// Procedure is a node of the call graph: a procedure in some calling context. Implementations must be comparable.
type Procedure interface {
	// Name returns the name of the procedure, which does not need to be unique
	Name() string
	String() string
}

// Node is a node of the supergraph: a basic block of a procedure in some calling context. Implementations must be
// comparable.
type Node interface {
	// Procedure returns the procedure the node belongs to
	Procedure() Procedure
	// Index returns the index of the block in its procedure
	Index() int
	// Instructions returns the instructions of the block, in execution order
	Instructions() []Instruction
	String() string
}
