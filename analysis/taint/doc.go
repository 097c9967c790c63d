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

// Package taint runs the taint analysis of a Go program with the tabulation solver.
//
// Sources and sinks are the functions listed in the taint-tracking-problems of the configuration. The result of
// every call to a source is tainted with a flow labeled by the source specification; a flow is reported when a
// tainted value, or an object pointed to by a tainted value, reaches an argument of a call to a sink.
//
// The analysis proceeds in four steps:
//   - the call graph is built (with the pointer analysis when the program has a main package),
//   - the functions reachable from the entry functions are lowered into a supergraph (see package ssair),
//   - the tabulation solver computes the facts holding at every node, with cached flow functions,
//   - the facts at sink calls are collected into flows, and a per-function summary of the reachable flow types is
//     computed over the call graph.
package taint
