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

package config

import "time"

const (
	// ExcludedCalleeIdentity propagates facts unchanged through calls without analyzed callee, except for the flow
	// from the arguments to the result
	ExcludedCalleeIdentity = "identity"

	// ExcludedCalleeTaintEverything lets any fact flow to every code element at calls without analyzed callee
	ExcludedCalleeTaintEverything = "taint-everything"

	// DefaultFlowCacheMaxEntries is the default bound on the number of memoized flow functions per cache
	DefaultFlowCacheMaxEntries = 10000

	// DefaultFlowCacheExpiry is the default duration after which an unused flow function is dropped
	DefaultFlowCacheExpiry = 10 * time.Minute
)
