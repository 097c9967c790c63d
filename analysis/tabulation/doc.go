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

// Package tabulation implements the IFDS tabulation algorithm over an ir.Supergraph.
//
// The solver computes path edges (d1, n, d2): fact d2 holds after node n in some realizable path that entered the
// procedure of n with fact d1. Summaries of procedures are indexed by entry fact, so a procedure body is analyzed once
// per entry fact, regardless of the number of call sites that reach it. The zero fact (domain.Zero) holds at every
// node reachable from the entrypoints.
//
// Flow functions are requested from a flow.Provider, one per supergraph edge:
//
//	normal:          n -> succ            (n not a call)
//	call:            call -> entry(callee)
//	call-to-return:  call -> return site  (callees analyzed)
//	call-none:       call -> return site  (no analyzed callee)
//	return:          exit(callee) -> return site of call
//
// The solver is single-threaded. Solve checks its context once per processed path edge; a cancelled solve returns the
// partial result with the context's error.
package tabulation
