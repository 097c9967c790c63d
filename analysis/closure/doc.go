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

// Package closure computes whole-program summaries over a call graph once the tabulation has run.
//
// The central piece is BitVectorProblem, a gen/kill dataflow over any graph implementing yourbasic's graph.Iterator.
// TransitiveClosure instantiates it on the inverted call graph so that each procedure accumulates the contributions of
// all its transitive callees, and Summarize uses that to answer questions such as "which taint sources can reach the
// code executed by a call to f".
//
// None of this depends on the exploded supergraph: the problems only see call graph nodes and precomputed sets.
package closure
