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

package domain

import (
	"fmt"

	"github.com/awslabs/argot-ifds/analysis/ir"
)

// CodeElement is the atomic unit of code that can carry taint. The implementations are Local, Field, StaticField,
// Return and Instance; they are all comparable, and equality is structural.
type CodeElement interface {
	isCodeElement()
	String() string
}

// Local is a virtual register of a procedure activation
type Local struct {
	Value ir.ValueNumber
}

// Field is a field of an abstract heap object
type Field struct {
	Instance ir.InstanceKey
	Field    ir.FieldRef
}

// StaticField is a global field
type StaticField struct {
	Field ir.FieldRef
}

// Return stands for the value a procedure is about to return, before it is bound to a variable of the caller
type Return struct{}

// Instance is an abstract heap object, independently of any of its fields
type Instance struct {
	Instance ir.InstanceKey
}

func (Local) isCodeElement()       {}
func (Field) isCodeElement()       {}
func (StaticField) isCodeElement() {}
func (Return) isCodeElement()      {}
func (Instance) isCodeElement()    {}

func (l Local) String() string       { return fmt.Sprintf("local(v%d)", l.Value) }
func (f Field) String() string       { return fmt.Sprintf("field(%s.%s)", f.Instance, f.Field.Name) }
func (s StaticField) String() string { return fmt.Sprintf("static(%s)", s.Field) }
func (Return) String() string        { return "return" }
func (i Instance) String() string    { return fmt.Sprintf("instance(%s)", i.Instance) }

// IsGlobal returns true when c is not scoped to a procedure activation: fields, static fields and abstract objects.
// Facts on global elements pass through call and return edges unchanged.
func IsGlobal(c CodeElement) bool {
	switch c.(type) {
	case Field, StaticField, Instance:
		return true
	default:
		return false
	}
}

// FlowType is the provenance tag of a fact. Implementations must be comparable; the solver only uses them for
// equality.
type FlowType interface {
	String() string
}

// SourceFlow is a taint introduced by a source, identified by its label
type SourceFlow struct {
	Label string
}

func (s SourceFlow) String() string { return "source " + s.Label }

// StaticFieldFlow is a taint introduced by reading a static field that is considered a source in itself
type StaticFieldFlow struct {
	Field ir.FieldRef
}

func (s StaticFieldFlow) String() string { return "static field " + s.Field.String() }

// Element is the unit numbered by a Domain: a code element and the flow type that tainted it.
type Element struct {
	Code  CodeElement
	Taint FlowType
}

func (e Element) String() string {
	return fmt.Sprintf("%s <- %s", e.Code, e.Taint)
}
