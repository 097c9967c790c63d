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

/*
Package flow implements the flow-function protocol of the tabulation solver.

A [Function] maps a fact index at the source of a supergraph edge to the set of fact indices at its destination. A
[Provider] returns the function of each kind of edge:
  - normal edges, inside a procedure,
  - call edges, from a call node to the entry of a callee,
  - call-to-return edges, from a call node to its return site, bypassing analyzed callees,
  - call-none-to-return edges, the same for calls that have no analyzed callee,
  - return edges, from the exit of a callee to a return site in the caller.

Every function maps the zero fact to a set containing the zero fact.

[TaintProvider] implements the taint propagation rules over the use/def pairs of instructions ([UseDefs]), and
[CachingProvider] memoizes the expensive normal and call flow functions.
*/
package flow
