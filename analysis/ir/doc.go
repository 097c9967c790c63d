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

// Package ir defines the narrow interfaces through which the tabulation engine consumes its collaborators: the
// supergraph built from the call graph, the per-node instructions with their use/def lists, and the points-to oracle.
//
// The package also provides an in-memory implementation of those interfaces ([Program] and [PointsToMap]) that
// front ends can lower into, and a structural validator ([Validate]) that rejects malformed supergraphs before a
// solve starts.
package ir
