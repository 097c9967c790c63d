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

	"github.com/awslabs/argot-ifds/analysis/ir"
	"github.com/awslabs/argot-ifds/internal/funcutil"
	"golang.org/x/tools/go/pointer"
	"golang.org/x/tools/go/ssa"
)

// Allocation is the instance key of an object allocated at Site, as identified by the pointer analysis
type Allocation struct {
	Site ssa.Value
}

func (a Allocation) String() string {
	if fn := a.Site.Parent(); fn != nil {
		return fmt.Sprintf("%s@%s", a.Site.Name(), fn.Name())
	}
	return a.Site.Name()
}

// Synthetic is the instance key of an object of the pointer analysis that has no allocation site
type Synthetic struct {
	Label string
}

func (s Synthetic) String() string { return s.Label }

// TypeKey is the instance key of all the objects of type Type. It is used when no pointer analysis is available.
type TypeKey struct {
	Type string
}

func (k TypeKey) String() string { return "type(" + k.Type + ")" }

// buildOracle records the instance keys of every pointer-like value of the lowered procedures
func (p *Program) buildOracle(result *pointer.Result) {
	for proc, values := range p.values {
		for v, n := range values {
			if v.Type() == nil || !pointer.CanPoint(v.Type()) {
				continue
			}
			key := ir.LocalKey{Proc: proc, Value: n}
			if result == nil {
				p.PointsTo.AddPointsTo(key, TypeKey{Type: pointee(v.Type()).String()})
				continue
			}
			ptr, ok := result.Queries[v]
			if !ok {
				continue
			}
			p.PointsTo.AddPointsTo(key, labelKeys(ptr.PointsTo().Labels())...)
		}
	}
}

func labelKeys(labels []*pointer.Label) []ir.InstanceKey {
	keys := make([]ir.InstanceKey, 0, len(labels))
	for _, label := range labels {
		if label.Value() != nil {
			keys = append(keys, Allocation{Site: label.Value()})
		} else {
			keys = append(keys, Synthetic{Label: label.String()})
		}
	}
	return funcutil.SortedBy(keys, ir.InstanceKey.String)
}
