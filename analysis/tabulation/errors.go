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

package tabulation

import (
	"fmt"

	"github.com/awslabs/argot-ifds/analysis/ir"
)

// EdgeKind is the kind of supergraph edge a flow function is requested for
type EdgeKind int

const (
	// NormalEdge is an intraprocedural edge from a node that is not a call
	NormalEdge EdgeKind = iota
	// CallEdge is an edge from a call node to the entry of a callee
	CallEdge
	// CallToReturnEdge is an edge from a call node with analyzed callees to one of its return sites
	CallToReturnEdge
	// CallNoneToReturnEdge is an edge from a call node without analyzed callee to one of its return sites
	CallNoneToReturnEdge
	// ReturnEdge is an edge from the exit of a callee to a return site
	ReturnEdge
)

func (k EdgeKind) String() string {
	switch k {
	case NormalEdge:
		return "normal"
	case CallEdge:
		return "call"
	case CallToReturnEdge:
		return "call-to-return"
	case CallNoneToReturnEdge:
		return "call-none-to-return"
	case ReturnEdge:
		return "return"
	default:
		return fmt.Sprintf("edge(%d)", int(k))
	}
}

// A FlowFunctionError is returned by Solve when the flow function of an edge could not be built. The solve cannot
// continue past a missing flow function without losing soundness.
type FlowFunctionError struct {
	Kind EdgeKind
	Src  ir.Node
	Dest ir.Node
	Err  error
}

func (e *FlowFunctionError) Error() string {
	return fmt.Sprintf("could not build %s flow function for %s -> %s: %v", e.Kind, e.Src, e.Dest, e.Err)
}

func (e *FlowFunctionError) Unwrap() error {
	return e.Err
}
