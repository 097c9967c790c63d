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
	"fmt"
)

// ErrMalformedSupergraph is the sentinel wrapped by every StructuralError
var ErrMalformedSupergraph = errors.New("malformed supergraph")

// StructuralError is returned when the supergraph violates a precondition of the analysis. It signals a bug in the
// supplied call graph, not a condition the analysis can recover from.
type StructuralError struct {
	Node   Node
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Node == nil {
		return fmt.Sprintf("%s: %s", ErrMalformedSupergraph, e.Reason)
	}
	return fmt.Sprintf("%s: at %s: %s", ErrMalformedSupergraph, e.Node, e.Reason)
}

func (e *StructuralError) Unwrap() error {
	return ErrMalformedSupergraph
}

// NewStructuralError returns a structural error at node n
func NewStructuralError(n Node, format string, args ...any) *StructuralError {
	return &StructuralError{Node: n, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the structural preconditions of the tabulation on sg:
//   - every procedure has an entry and an exit node belonging to it,
//   - every call node has at least one return site, and all return sites are in the caller,
//   - every callee of a call node is a procedure with an entry node.
//
// All the violations found are joined in the returned error.
func Validate(sg Supergraph) error {
	var errs []error
	for _, proc := range sg.Procedures() {
		entry, exit := sg.Entry(proc), sg.Exit(proc)
		if entry == nil || exit == nil {
			errs = append(errs, NewStructuralError(nil, "procedure %s has no entry or exit node", proc))
			continue
		}
		if entry.Procedure() != proc || exit.Procedure() != proc {
			errs = append(errs, NewStructuralError(entry, "entry or exit node not in procedure %s", proc))
		}
		for _, n := range sg.Nodes(proc) {
			if !sg.IsCall(n) {
				continue
			}
			returnSites := sg.ReturnSites(n)
			if len(returnSites) == 0 {
				errs = append(errs, NewStructuralError(n, "call node without return site"))
			}
			for _, r := range returnSites {
				if r.Procedure() != n.Procedure() {
					errs = append(errs, NewStructuralError(n, "return site %s is not in the caller", r))
				}
			}
			for _, callee := range sg.Callees(n) {
				if sg.Entry(callee) == nil {
					errs = append(errs, NewStructuralError(n, "callee %s has no entry node", callee))
				}
			}
		}
	}
	return errors.Join(errs...)
}
