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

package graphutil

import (
	yb "github.com/yourbasic/graph"
)

// IteratorComponents returns the strongly connected components (SCCs) of g in topological order with successors
// first: if g is a call graph, callees come before their callers. The order of the nodes inside an SCC is arbitrary.
func IteratorComponents(g yb.Iterator) [][]int {
	return yb.StrongComponents(g)
}
