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
	"errors"
	"fmt"
	"sync"
)

// Zero is the index of the zero fact. It is never mapped to an Element.
const Zero = 0

// ErrInvalidIndex is returned when looking up the zero index or an index that has not been allocated
var ErrInvalidIndex = errors.New("invalid domain index")

// Domain is a bijective numbering of Elements to positive integers. Indices are allocated in increasing order and
// are never reused or renumbered. The domain only grows.
//
// A Domain built by New is not safe for concurrent use; use NewSync for a domain shared by several goroutines.
type Domain struct {
	// mu is nil for unsynchronized domains
	mu *sync.RWMutex

	// elements[i] is the element of index i; elements[0] is unused
	elements []Element

	index map[Element]int

	// codes lists the distinct code elements, in order of first appearance
	codes    []CodeElement
	codeSeen map[CodeElement]bool
}

// New returns an empty domain
func New() *Domain {
	return &Domain{
		elements: []Element{{}},
		index:    map[Element]int{},
		codeSeen: map[CodeElement]bool{},
	}
}

// NewSync returns an empty domain whose operations are synchronized
func NewSync() *Domain {
	d := New()
	d.mu = &sync.RWMutex{}
	return d
}

// IndexOf returns the index of e, allocating the next unused index if e has never been seen.
func (d *Domain) IndexOf(e Element) int {
	if e.Code == nil {
		panic("domain: element without code element")
	}
	if d.mu != nil {
		d.mu.RLock()
		i, ok := d.index[e]
		d.mu.RUnlock()
		if ok {
			return i
		}
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	if i, ok := d.index[e]; ok {
		return i
	}
	i := len(d.elements)
	d.elements = append(d.elements, e)
	d.index[e] = i
	if !d.codeSeen[e.Code] {
		d.codeSeen[e.Code] = true
		d.codes = append(d.codes, e.Code)
	}
	return i
}

// Lookup returns the index of e and true if e has an index, without allocating one.
func (d *Domain) Lookup(e Element) (int, bool) {
	if d.mu != nil {
		d.mu.RLock()
		defer d.mu.RUnlock()
	}
	i, ok := d.index[e]
	return i, ok
}

// ElementOf returns the element of index i. It returns an error wrapping ErrInvalidIndex for the zero index and
// for indices that have not been allocated.
func (d *Domain) ElementOf(i int) (Element, error) {
	if d.mu != nil {
		d.mu.RLock()
		defer d.mu.RUnlock()
	}
	if i <= Zero || i >= len(d.elements) {
		return Element{}, fmt.Errorf("%w: %d (domain size %d)", ErrInvalidIndex, i, len(d.elements)-1)
	}
	return d.elements[i], nil
}

// MustElementOf is like ElementOf but panics if i is not a valid index. Flow functions use it: a lookup of an invalid
// index is a programming error that would otherwise silently corrupt the propagation.
func (d *Domain) MustElementOf(i int) Element {
	e, err := d.ElementOf(i)
	if err != nil {
		panic(err)
	}
	return e
}

// Size returns the number of elements in the domain, not counting the zero fact
func (d *Domain) Size() int {
	if d.mu != nil {
		d.mu.RLock()
		defer d.mu.RUnlock()
	}
	return len(d.elements) - 1
}

// AllCodeElements returns every distinct code element that appeared in an element of the domain, in order of first
// appearance. The returned slice is a snapshot and can be used while the domain grows.
func (d *Domain) AllCodeElements() []CodeElement {
	if d.mu != nil {
		d.mu.RLock()
		defer d.mu.RUnlock()
	}
	res := make([]CodeElement, len(d.codes))
	copy(res, d.codes)
	return res
}

// String returns a description of the non-zero facts in the domain, one per line
func (d *Domain) String() string {
	if d.mu != nil {
		d.mu.RLock()
		defer d.mu.RUnlock()
	}
	s := ""
	for i := 1; i < len(d.elements); i++ {
		s += fmt.Sprintf("%d: %s\n", i, d.elements[i])
	}
	return s
}
