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
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// FactSet is a set of fact indices. The zero value is an empty set ready to use.
type FactSet struct {
	bits roaring.Bitmap
}

// NewFactSet returns a set containing facts
func NewFactSet(facts ...int) *FactSet {
	s := &FactSet{}
	for _, d := range facts {
		s.Add(d)
	}
	return s
}

// Add adds d to the set and returns true if d was not already in the set
func (s *FactSet) Add(d int) bool {
	return s.bits.CheckedAdd(uint32(d))
}

// AddAll adds all the facts of o to s
func (s *FactSet) AddAll(o *FactSet) {
	if o != nil {
		s.bits.Or(&o.bits)
	}
}

// Contains returns true if d is in the set
func (s *FactSet) Contains(d int) bool {
	return s != nil && s.bits.Contains(uint32(d))
}

// Len returns the number of facts in the set
func (s *FactSet) Len() int {
	if s == nil {
		return 0
	}
	return int(s.bits.GetCardinality())
}

// IsEmpty returns true if the set has no element
func (s *FactSet) IsEmpty() bool {
	return s == nil || s.bits.IsEmpty()
}

// ForEach calls f on every fact of the set in increasing order, until f returns false
func (s *FactSet) ForEach(f func(d int) bool) {
	if s == nil {
		return
	}
	s.bits.Iterate(func(x uint32) bool { return f(int(x)) })
}

// Slice returns the facts of the set in increasing order
func (s *FactSet) Slice() []int {
	if s == nil {
		return nil
	}
	res := make([]int, 0, s.Len())
	s.ForEach(func(d int) bool {
		res = append(res, d)
		return true
	})
	return res
}

// Clone returns a copy of the set
func (s *FactSet) Clone() *FactSet {
	c := &FactSet{}
	c.AddAll(s)
	return c
}

// Equal returns true if both sets contain the same facts
func (s *FactSet) Equal(o *FactSet) bool {
	if s.IsEmpty() || o.IsEmpty() {
		return s.IsEmpty() && o.IsEmpty()
	}
	return s.bits.Equals(&o.bits)
}

func (s *FactSet) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, d := range s.Slice() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(d))
	}
	b.WriteString("}")
	return b.String()
}
