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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/awslabs/argot-ifds/analysis"
	"github.com/awslabs/argot-ifds/analysis/config"
	"github.com/awslabs/argot-ifds/analysis/ssair"
	"github.com/awslabs/argot-ifds/internal/formatutil"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

var (
	jsonFlag      = flag.Bool("json", false, "output results as JSON")
	callgraphMode = flag.String("callgraph", ssair.ClassHierarchyAnalysis.String(), "Call graph algorithm: pointer, static or cha")
	mode          = ssa.BuilderMode(0)
)

func init() {
	flag.Var(&mode, "build", ssa.BuilderModeDoc)
}

const usage = `Print the size of the SSA program and of the supergraph the taint analysis runs on.

Usage:
  statistics [options] package...

Examples:
% statistics ./...
`

// stats is the output of the command
type stats struct {
	SSA        analysis.SSAResult
	Supergraph analysis.SupergraphResult
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err := doMain(); err != nil {
		fmt.Fprintf(os.Stderr, "statistics: %s\n", err)
		os.Exit(1)
	}
}

func doMain() error {
	cgMode, err := ssair.ParseCallgraphMode(*callgraphMode)
	if err != nil {
		return err
	}
	logger := config.NewLogGroup(config.NewDefault())

	fmt.Fprintln(os.Stderr, formatutil.Faint("Reading sources"))
	program, err := analysis.LoadProgram(nil, "", mode, flag.Args())
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, formatutil.Faint("Analyzing"))
	cg, ptr, err := ssair.BuildCallGraph(program.Program, cgMode, nil)
	if err != nil {
		return err
	}
	lowered, err := ssair.Lower(cg, ssair.EntryFunctions(program.Program, program.Packages),
		ssair.Options{Pointer: ptr}, logger)
	if err != nil {
		return err
	}

	result := stats{
		SSA:        analysis.SSAStatistics(ssautil.AllFunctions(program.Program)),
		Supergraph: analysis.SupergraphStatistics(lowered),
	}
	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Printf("Functions:              %d\n", result.SSA.NumberOfFunctions)
	fmt.Printf("Nonempty functions:     %d\n", result.SSA.NumberOfNonemptyFunctions)
	fmt.Printf("Blocks:                 %d\n", result.SSA.NumberOfBlocks)
	fmt.Printf("Instructions:           %d\n", result.SSA.NumberOfInstructions)
	fmt.Printf("Procedures:             %d\n", result.Supergraph.NumberOfProcedures)
	fmt.Printf("Supergraph nodes:       %d\n", result.Supergraph.NumberOfNodes)
	fmt.Printf("Call nodes:             %d (%d unresolved)\n", result.Supergraph.NumberOfCallNodes,
		result.Supergraph.UnresolvedCalls)
	fmt.Printf("Call edges:             %d\n", result.Supergraph.NumberOfCallEdges)
	return nil
}
