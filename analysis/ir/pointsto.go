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

// PointsToMap is an in-memory PointsTo oracle. Implementations are derived from the call sites of a supergraph, and
// can be completed with AddImplementation.
type PointsToMap struct {
	pts   map[PointerKey][]InstanceKey
	impls map[MethodRef][]Procedure
}

// NewPointsToMap returns an oracle whose implementations are those resolved at the call sites of sg. sg may be nil.
func NewPointsToMap(sg Supergraph) *PointsToMap {
	m := &PointsToMap{
		pts:   map[PointerKey][]InstanceKey{},
		impls: map[MethodRef][]Procedure{},
	}
	if sg == nil {
		return m
	}
	for _, proc := range sg.Procedures() {
		for _, n := range sg.Nodes(proc) {
			if call := sg.CallInstruction(n); call != nil {
				m.AddImplementation(call.Target(), sg.Callees(n)...)
			}
		}
	}
	return m
}

// AddPointsTo records that k may point to each of the instance keys
func (m *PointsToMap) AddPointsTo(k PointerKey, keys ...InstanceKey) {
	for _, ik := range keys {
		if !containsKey(m.pts[k], ik) {
			m.pts[k] = append(m.pts[k], ik)
		}
	}
}

// AddImplementation records that method may resolve to each of the procedures
func (m *PointsToMap) AddImplementation(method MethodRef, procs ...Procedure) {
	for _, p := range procs {
		found := false
		for _, q := range m.impls[method] {
			if q == p {
				found = true
				break
			}
		}
		if !found {
			m.impls[method] = append(m.impls[method], p)
		}
	}
}

// PointsTo implements PointsTo
func (m *PointsToMap) PointsTo(k PointerKey) []InstanceKey {
	return m.pts[k]
}

// Implementations implements PointsTo
func (m *PointsToMap) Implementations(method MethodRef) []Procedure {
	return m.impls[method]
}

func containsKey(keys []InstanceKey, k InstanceKey) bool {
	for _, x := range keys {
		if x == k {
			return true
		}
	}
	return false
}
