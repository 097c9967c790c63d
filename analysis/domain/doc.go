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

// Package domain implements the numbering of the abstract facts of the taint analysis.
//
// A fact is a [Element]: a [CodeElement] (a local, a field of an abstract object, a static field, the return value
// placeholder, or an abstract object) paired with the [FlowType] that introduced the taint. A [Domain] maps elements
// to small positive integers so that the tabulation solver can manipulate sets of facts as bitmaps. Index 0 is the
// zero fact ("no taint") and never denotes an element.
package domain
