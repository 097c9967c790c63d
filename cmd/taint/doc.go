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
The taint tool runs the IFDS taint analysis on your code, using its SSA representation.

Usage:

	taint [flags] -config config.yaml package...

The flags are:

	-build=D          see the documentation of buildmode for the ssa package

	-callgraph=mode   the call graph algorithm: pointer (default), static or cha. The pointer analysis falls back to
	                  cha when the program has no main package

	-config path      a path to the configuration file containing definitions for sinks and sources

	-metrics          print the counters of the solver and of the flow function caches in Prometheus format

	-timeout=d        interrupt the analysis after the duration d

	-verbose=false    setting verbose mode, overrides config file options if set
*/
package main
