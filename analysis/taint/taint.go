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

package taint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/awslabs/argot-ifds/analysis/closure"
	"github.com/awslabs/argot-ifds/analysis/config"
	"github.com/awslabs/argot-ifds/analysis/domain"
	"github.com/awslabs/argot-ifds/analysis/flow"
	"github.com/awslabs/argot-ifds/analysis/ir"
	"github.com/awslabs/argot-ifds/analysis/ssair"
	"github.com/awslabs/argot-ifds/analysis/tabulation"
	"github.com/awslabs/argot-ifds/internal/funcutil"
	"golang.org/x/tools/go/ssa"
)

// Flow is a set of taints reaching an argument of a sink call
type Flow struct {
	// Sink is the sink call
	Sink ssair.Call
	// Arg is the index of the argument of the call, counting the receiver of invocations
	Arg int
	// Types are the flow types of the taints, sorted by name
	Types []domain.FlowType
}

// AnalysisResult is the result of Analyze
type AnalysisResult struct {
	// Flows are the flows from sources to sinks, in program order
	Flows []Flow

	// Program is the lowered program the solver ran on
	Program *ssair.Program

	// Result holds the facts computed by the solver. It is partial if the analysis was interrupted.
	Result *tabulation.Result

	// Summary holds the flow types reachable from each procedure through its callees. It is nil if the analysis was
	// interrupted.
	Summary *closure.Summary

	// Metrics holds the counters of the solver and of the flow function caches
	Metrics *metrics.Set
}

// Options are the settings of the analysis that are not part of the configuration file
type Options struct {
	// Mode is the call graph algorithm. If the program has no main package, PointerAnalysis falls back to
	// ClassHierarchyAnalysis.
	Mode ssair.CallgraphMode
}

// Analyze runs the taint analysis on prog, starting from the entry functions of pkgs (see ssair.EntryFunctions).
// Only the functions whose package matches the package filter of the configuration are analyzed; calls to other
// functions are handled according to the excluded callee policy.
//
// If ctx is done before the end of the analysis, the result holds the partial facts and no flow, and the error wraps
// ctx.Err().
func Analyze(ctx context.Context, logger *config.LogGroup, cfg *config.Config, prog *ssa.Program,
	pkgs []*ssa.Package, opts Options) (AnalysisResult, error) {
	include := func(f *ssa.Function) bool {
		pkg := packagePath(f)
		return pkg != "" && cfg.MatchPkgFilter(pkg)
	}

	start := time.Now()
	mode := opts.Mode
	cg, ptr, err := ssair.BuildCallGraph(prog, mode, include)
	if errors.Is(err, ssair.ErrNoMainPackage) {
		logger.Warnf("No main package for the pointer analysis, using %s call graph instead\n",
			ssair.ClassHierarchyAnalysis)
		mode = ssair.ClassHierarchyAnalysis
		cg, ptr, err = ssair.BuildCallGraph(prog, mode, include)
	}
	if err != nil {
		return AnalysisResult{}, err
	}
	logger.Infof("Call graph (%s) built in %.2f s\n", mode, time.Since(start).Seconds())

	var roots []*ssa.Function
	for _, f := range ssair.EntryFunctions(prog, pkgs) {
		if include(f) {
			roots = append(roots, f)
		}
	}
	lowered, err := ssair.Lower(cg, roots, ssair.Options{Include: include, Pointer: ptr}, logger)
	if err != nil {
		return AnalysisResult{}, err
	}

	set := metrics.NewSet()
	dom := domain.New()
	provider := flow.NewTaintProvider(lowered, dom, lowered.PointsTo, flow.Options{
		TaintStaticFields: cfg.TaintStaticFields,
		ExcludedCallee:    excludedCalleePolicy(cfg),
		Sources:           sourceFunc(cfg, lowered),
	})
	caching := flow.NewCachingProvider(provider, cfg.FlowCacheMaxEntries, cfg.FlowCacheExpiryDuration(), set)
	solver, err := tabulation.NewSolver(tabulation.Problem{Supergraph: lowered, Domain: dom, Flows: caching},
		tabulation.Options{Metrics: set}, logger)
	if err != nil {
		return AnalysisResult{}, err
	}

	start = time.Now()
	res, err := solver.Solve(ctx)
	analysisResult := AnalysisResult{Program: lowered, Result: res, Metrics: set}
	if err != nil {
		return analysisResult, fmt.Errorf("tabulation failed: %w", err)
	}
	requests, misses := caching.Stats()
	logger.Infof("Tabulation done in %.2f s (%d facts, flow function cache: %d requests, %d misses)\n",
		time.Since(start).Seconds(), dom.Size(), requests, misses)

	analysisResult.Flows = collectFlows(logger, cfg, lowered, res)
	analysisResult.Summary = closure.Summarize(res, nil)
	return analysisResult, nil
}

func excludedCalleePolicy(cfg *config.Config) flow.ExcludedCalleePolicy {
	if cfg.ExcludedCalleePolicy == config.ExcludedCalleeTaintEverything {
		return flow.TaintEverythingPolicy
	}
	return flow.IdentityPolicy
}

// sourceFunc returns the function deciding which calls of prog are sources according to cfg
func sourceFunc(cfg *config.Config, prog *ssair.Program) flow.SourceFunc {
	return func(call ir.Node, _ ir.InvokeInstruction) (domain.FlowType, bool) {
		site := prog.CallSite(call)
		if site == nil {
			return nil, false
		}
		cid, ok := CalleeIdentifier(site.Common())
		if !ok {
			return nil, false
		}
		label, isSource := cfg.SourceLabel(cid)
		if !isSource {
			return nil, false
		}
		return domain.SourceFlow{Label: label}, true
	}
}

// collectFlows returns the flows reaching the arguments of the sink calls of prog. The facts at a call node are the
// facts holding before the call.
func collectFlows(logger *config.LogGroup, cfg *config.Config, prog *ssair.Program,
	res *tabulation.Result) []Flow {
	var flows []Flow
	for _, call := range prog.Calls() {
		cid, ok := CalleeIdentifier(call.Site.Common())
		if !ok || !cfg.IsSomeSink(cid) || !res.Reached(call.Node) {
			continue
		}
		invoke := prog.CallInstruction(call.Node)
		elements := res.ElementsAt(call.Node)
		for i := 0; i < invoke.NumArgs(); i++ {
			types := argumentTaints(prog, call.Node, invoke.Arg(i), elements)
			if len(types) == 0 {
				continue
			}
			flows = append(flows, Flow{Sink: call, Arg: i, Types: types})
			logger.Debugf("Sink %s reached at argument %d by %v\n", cid, i, types)
			if cfg.MaxAlarms > 0 && len(flows) >= cfg.MaxAlarms {
				logger.Warnf("Reached the maximum number of alarms (%d), stopping\n", cfg.MaxAlarms)
				return flows
			}
		}
	}
	return flows
}

// argumentTaints returns the flow types tainting the value arg at node n, or the objects it points to
func argumentTaints(prog *ssair.Program, n ir.Node, arg ir.ValueNumber, elements []domain.Element) []domain.FlowType {
	if arg == ir.NoValue {
		return nil
	}
	pointees := map[ir.InstanceKey]bool{}
	for _, ik := range prog.PointsTo.PointsTo(ir.LocalKey{Proc: n.Procedure(), Value: arg}) {
		pointees[ik] = true
	}
	found := map[domain.FlowType]bool{}
	for _, e := range elements {
		switch c := e.Code.(type) {
		case domain.Local:
			if c.Value == arg {
				found[e.Taint] = true
			}
		case domain.Field:
			if pointees[c.Instance] {
				found[e.Taint] = true
			}
		case domain.Instance:
			if pointees[c.Instance] {
				found[e.Taint] = true
			}
		}
	}
	if len(found) == 0 {
		return nil
	}
	types := make([]domain.FlowType, 0, len(found))
	for t := range found {
		types = append(types, t)
	}
	return funcutil.SortedBy(types, domain.FlowType.String)
}
