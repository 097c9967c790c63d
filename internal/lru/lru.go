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

// Package lru implements a bounded cache with least-recently-used eviction and time-based expiry of entries.
//
// Entries are kept in a heap ordered by last access time. Expired entries are dropped lazily, when they are looked up
// or when an insertion happens. Eviction is a performance concern only: callers must be able to rebuild any evicted
// value.
package lru

import (
	"container/heap"
	"fmt"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Cache is a bounded, expiring map from K to V. Cache must be created with New. It is safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu sync.Mutex

	// maxEntries <= 0 means unbounded
	maxEntries int

	// expiry <= 0 means entries never expire
	expiry time.Duration

	now func() time.Time

	m   map[K]*entry[K, V]
	lah lastAccessHeap[K, V]

	requests *metrics.Counter
	misses   *metrics.Counter
	evicted  *metrics.Counter
}

type entry[K comparable, V any] struct {
	lastAccess time.Time
	heapIdx    int

	key   K
	value V
}

// Option configures a Cache
type Option func(*options)

type options struct {
	now  func() time.Time
	set  *metrics.Set
	name string
}

// WithClock sets the function used to read the current time
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics registers the request, miss and eviction counters of the cache in set, labelled with name
func WithMetrics(set *metrics.Set, name string) Option {
	return func(o *options) {
		o.set = set
		o.name = name
	}
}

// New returns a cache holding at most maxEntries entries, each expiring after expiry without being accessed.
func New[K comparable, V any](maxEntries int, expiry time.Duration, opts ...Option) *Cache[K, V] {
	o := &options{now: time.Now, set: metrics.NewSet(), name: "default"}
	for _, opt := range opts {
		opt(o)
	}
	return &Cache[K, V]{
		maxEntries: maxEntries,
		expiry:     expiry,
		now:        o.now,
		m:          make(map[K]*entry[K, V]),
		requests:   o.set.GetOrCreateCounter(fmt.Sprintf(`flow_cache_requests_total{cache=%q}`, o.name)),
		misses:     o.set.GetOrCreateCounter(fmt.Sprintf(`flow_cache_misses_total{cache=%q}`, o.name)),
		evicted:    o.set.GetOrCreateCounter(fmt.Sprintf(`flow_cache_evictions_total{cache=%q}`, o.name)),
	}
}

// Get returns the value cached for key and true, or false if there is no live entry for key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.requests.Inc()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache[K, V]) getLocked(key K) (V, bool) {
	var zero V
	e, ok := c.m[key]
	if !ok {
		c.misses.Inc()
		return zero, false
	}
	now := c.now()
	if c.isExpired(e, now) {
		c.removeLocked(e)
		c.misses.Inc()
		return zero, false
	}
	e.lastAccess = now
	heap.Fix(&c.lah, e.heapIdx)
	return e.value, true
}

// Put stores value under key, evicting the least recently used entries if the cache is full.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(key, value)
}

func (c *Cache[K, V]) putLocked(key K, value V) {
	now := c.now()
	if e, ok := c.m[key]; ok {
		e.value = value
		e.lastAccess = now
		heap.Fix(&c.lah, e.heapIdx)
		return
	}
	c.cleanByTimeout(now)
	e := &entry[K, V]{lastAccess: now, key: key, value: value}
	heap.Push(&c.lah, e)
	c.m[key] = e
	for c.maxEntries > 0 && len(c.lah) > c.maxEntries {
		c.removeLocked(c.lah[0])
		c.evicted.Inc()
	}
}

// GetOrLoad returns the value cached for key, or calls load to compute it and caches the result. Errors returned by
// load are returned as is and nothing is cached.
//
// The lock is not held while load runs, so concurrent misses on the same key may load the value more than once.
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Put(key, v)
	return v, nil
}

// Len returns the number of entries in the cache, including expired entries that have not been dropped yet
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Requests returns the number of lookups
func (c *Cache[K, V]) Requests() uint64 {
	return c.requests.Get()
}

// Misses returns the number of lookups that did not find a live entry
func (c *Cache[K, V]) Misses() uint64 {
	return c.misses.Get()
}

func (c *Cache[K, V]) isExpired(e *entry[K, V], now time.Time) bool {
	return c.expiry > 0 && now.Sub(e.lastAccess) > c.expiry
}

// cleanByTimeout removes all the entries that have not been accessed for longer than the expiry duration
func (c *Cache[K, V]) cleanByTimeout(now time.Time) {
	for len(c.lah) > 0 && c.isExpired(c.lah[0], now) {
		c.removeLocked(c.lah[0])
	}
}

func (c *Cache[K, V]) removeLocked(e *entry[K, V]) {
	delete(c.m, e.key)
	heap.Remove(&c.lah, e.heapIdx)
}

type lastAccessHeap[K comparable, V any] []*entry[K, V]

// Len implements heap.Interface
func (lah *lastAccessHeap[K, V]) Len() int {
	return len(*lah)
}

// Swap implements heap.Interface
func (lah *lastAccessHeap[K, V]) Swap(i, j int) {
	h := *lah
	a := h[i]
	b := h[j]
	a.heapIdx = j
	b.heapIdx = i
	h[i] = b
	h[j] = a
}

// Less implements heap.Interface
func (lah *lastAccessHeap[K, V]) Less(i, j int) bool {
	h := *lah
	return h[i].lastAccess.Before(h[j].lastAccess)
}

// Push implements heap.Interface
func (lah *lastAccessHeap[K, V]) Push(x interface{}) {
	e := x.(*entry[K, V])
	h := *lah
	e.heapIdx = len(h)
	*lah = append(h, e)
}

// Pop implements heap.Interface
func (lah *lastAccessHeap[K, V]) Pop() interface{} {
	h := *lah
	e := h[len(h)-1]

	// Remove the reference to deleted entry, so Go GC could free up memory occupied by the deleted entry.
	h[len(h)-1] = nil

	*lah = h[:len(h)-1]
	return e
}
