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
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/awslabs/argot-ifds/analysis/ir"
	"github.com/awslabs/argot-ifds/internal/lru"
)

type edgeKey struct {
	src  ir.Node
	dest ir.Node
}

// CachingProvider memoizes the normal and call flow functions of the Provider it wraps, keyed by the (source,
// destination) pair of the edge. The other functions are cheap to build and are not cached.
//
// The caches are bounded and entries expire; an evicted function is simply rebuilt, which is correct because flow
// functions are pure.
type CachingProvider struct {
	Provider
	normal *lru.Cache[edgeKey, Function]
	call   *lru.Cache[edgeKey, Function]
}

// NewCachingProvider wraps p with caches holding at most maxEntries functions each, expiring after expiry. If set is
// non-nil, the cache counters are registered in it.
func NewCachingProvider(p Provider, maxEntries int, expiry time.Duration, set *metrics.Set) *CachingProvider {
	var normalOpts, callOpts []lru.Option
	if set != nil {
		normalOpts = append(normalOpts, lru.WithMetrics(set, "normal"))
		callOpts = append(callOpts, lru.WithMetrics(set, "call"))
	}
	return &CachingProvider{
		Provider: p,
		normal:   lru.New[edgeKey, Function](maxEntries, expiry, normalOpts...),
		call:     lru.New[edgeKey, Function](maxEntries, expiry, callOpts...),
	}
}

// NormalFlow returns the cached normal flow function of src -> dest, building it if necessary
func (c *CachingProvider) NormalFlow(src, dest ir.Node) (Function, error) {
	f, err := c.normal.GetOrLoad(edgeKey{src, dest}, func() (Function, error) {
		return c.Provider.NormalFlow(src, dest)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build normal flow function %s -> %s: %w", src, dest, err)
	}
	return f, nil
}

// CallFlow returns the cached call flow function of src -> dest, building it if necessary. The call flow function
// does not depend on the return site.
func (c *CachingProvider) CallFlow(src, dest, ret ir.Node) (Function, error) {
	f, err := c.call.GetOrLoad(edgeKey{src, dest}, func() (Function, error) {
		return c.Provider.CallFlow(src, dest, ret)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build call flow function %s -> %s: %w", src, dest, err)
	}
	return f, nil
}

// Stats returns the number of requests and misses of the normal and call flow caches
func (c *CachingProvider) Stats() (requests uint64, misses uint64) {
	return c.normal.Requests() + c.call.Requests(), c.normal.Misses() + c.call.Misses()
}
