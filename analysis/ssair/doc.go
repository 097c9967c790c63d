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

// Package ssair lowers Go programs in SSA form into the supergraph representation of the ir package.
//
// Each SSA instruction becomes one node of the supergraph, so that every call node ends with its invocation and its
// return site is the node of the next instruction. Memory accesses are translated into field, static field and array
// accesses:
//
//	*(&x.f)        field get / put of f on x
//	*g             static get / put of the global g
//	*(&a[i]), a[i] array load / store on a (also used for maps and channels)
//	*p             field get / put of the pseudo-field ir.PointeeContents on p
//
// The points-to oracle is either computed from the result of the pointer analysis of golang.org/x/tools/go/pointer,
// or approximated by aliasing all pointers to values of the same type.
package ssair
