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
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/awslabs/argot-ifds/analysis"
	"github.com/awslabs/argot-ifds/analysis/config"
	"github.com/awslabs/argot-ifds/analysis/domain"
	"github.com/awslabs/argot-ifds/analysis/ssair"
	"github.com/awslabs/argot-ifds/analysis/taint"
	"github.com/awslabs/argot-ifds/internal/formatutil"
	"github.com/awslabs/argot-ifds/internal/funcutil"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

var (
	configPath    = flag.String("config", "", "Config file path for taint analysis")
	callgraphMode = flag.String("callgraph", ssair.PointerAnalysis.String(), "Call graph algorithm: pointer, static or cha")
	timeout       = flag.Duration("timeout", 0, "Stop the analysis after this duration (0 means no limit)")
	printMetrics  = flag.Bool("metrics", false, "Print the solver metrics at the end of the analysis")
	verbose       = flag.Bool("verbose", false, "Verbose printing on standard output")
	buildmode     = ssa.BuilderMode(0)
)

func init() {
	flag.Var(&buildmode, "build", ssa.BuilderModeDoc)
}

const usage = ` Perform taint analysis on your packages.
Usage:
    taint [options] <package path(s)>
Examples:
% taint -config config.yaml package...
`

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		_, _ = fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", formatutil.Red(err))
		os.Exit(1)
	}
}

func run() error {
	cfg := config.NewDefault()
	if *configPath != "" {
		config.SetGlobalConfig(*configPath)
		loaded, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("could not load config %s: %w", *configPath, err)
		}
		cfg = loaded
	}
	if *verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}
	mode, err := ssair.ParseCallgraphMode(*callgraphMode)
	if err != nil {
		return err
	}
	logger := config.NewLogGroup(cfg)

	logger.Infof("%s\n", formatutil.Faint("Reading sources"))
	program, err := analysis.LoadProgram(nil, "", buildmode, flag.Args())
	if err != nil {
		return fmt.Errorf("could not load program: %w", err)
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := taint.Analyze(ctx, logger, cfg, program.Program, program.Packages, taint.Options{Mode: mode})
	if *printMetrics && result.Metrics != nil {
		result.Metrics.WritePrometheus(os.Stdout)
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	logger.Infof("Analysis took %3.4f s\n", time.Since(start).Seconds())
	ssaStats := analysis.SSAStatistics(ssautil.AllFunctions(program.Program))
	sgStats := analysis.SupergraphStatistics(result.Program)
	logger.Debugf("SSA: %d functions (%d nonempty), %d blocks, %d instructions\n",
		ssaStats.NumberOfFunctions, ssaStats.NumberOfNonemptyFunctions, ssaStats.NumberOfBlocks,
		ssaStats.NumberOfInstructions)
	logger.Debugf("Supergraph: %d procedures, %d nodes, %d call nodes (%d unresolved), %d call edges\n",
		sgStats.NumberOfProcedures, sgStats.NumberOfNodes, sgStats.NumberOfCallNodes, sgStats.UnresolvedCalls,
		sgStats.NumberOfCallEdges)

	fset := program.Program.Fset
	for _, f := range result.Flows {
		site := f.Sink.Site
		logger.Infof("%s in function %s:\n\tSink: %s (argument %d)\n\t\t[%s]\n\tSources: %s\n",
			formatutil.Red("A source has reached a sink"),
			formatutil.Sanitize(site.Parent().Name()),
			formatutil.Sanitize(site.String()),
			f.Arg,
			fset.Position(site.Pos()),
			strings.Join(funcutil.Map(f.Types, domain.FlowType.String), ", "))
	}
	if len(result.Flows) == 0 {
		logger.Infof("%s\n", formatutil.Green("No taint flow found"))
	}
	return nil
}
