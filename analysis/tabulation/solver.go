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

package tabulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/awslabs/argot-ifds/analysis/config"
	"github.com/awslabs/argot-ifds/analysis/domain"
	"github.com/awslabs/argot-ifds/analysis/flow"
	"github.com/awslabs/argot-ifds/analysis/ir"
)

// Seed is a fact that holds after Node whenever the procedure of Node is entered with the zero fact. A seed in a
// procedure that is never reached produces no facts.
type Seed struct {
	Node ir.Node
	Fact int
}

// Problem is an IFDS problem: a supergraph, the domain its facts are numbered in, and the flow functions of its edges.
type Problem struct {
	Supergraph ir.Supergraph
	Domain     *domain.Domain
	Flows      flow.Provider

	// Seeds are facts introduced at given nodes, in addition to the zero fact at the entry of each entrypoint
	Seeds []Seed
}

// Options tune a Solver
type Options struct {
	// SkipValidation skips the structural validation of the supergraph before solving. Malformed call nodes are
	// still reported when they are reached.
	SkipValidation bool

	// Metrics is the set the solver counters are registered in. If nil, the solver uses a set of its own.
	Metrics *metrics.Set
}

// summaryKey identifies a procedure entered with some fact
type summaryKey struct {
	proc ir.Procedure
	d1   int
}

// pathEdge is the path edge (d1, n, d2)
type pathEdge struct {
	d1 int
	n  ir.Node
	d2 int
}

// Solver runs the tabulation algorithm on a Problem
type Solver struct {
	problem Problem
	opts    Options
	logger  *config.LogGroup
	set     *metrics.Set

	pathEdgesTotal    *metrics.Counter
	summariesTotal    *metrics.Counter
	summaryUsesTotal  *metrics.Counter
	excludedCallTotal *metrics.Counter

	// pathEdges maps a node to its path edges, indexed by entry fact
	pathEdges map[ir.Node]map[int]*flow.FactSet
	// factsAt is the projection of pathEdges on their target fact
	factsAt  map[ir.Node]*flow.FactSet
	worklist []pathEdge
	// endSummary maps a procedure and entry fact to the facts reaching the exit
	endSummary map[summaryKey]*flow.FactSet
	// incoming maps a procedure and entry fact to the call nodes that entered it with that fact, and the caller entry
	// facts of the path edges at those calls
	incoming map[summaryKey]map[ir.Node]*flow.FactSet
	// excluded records the call nodes without callee that have been reported
	excluded map[ir.Node]bool
	// pendingSeeds holds the seeds of the procedures whose entry has not been reached with the zero fact yet
	pendingSeeds map[ir.Procedure][]Seed
}

// NewSolver returns a solver for the problem. The logger must not be nil.
func NewSolver(problem Problem, opts Options, logger *config.LogGroup) (*Solver, error) {
	if problem.Supergraph == nil || problem.Domain == nil || problem.Flows == nil {
		return nil, errors.New("problem must have a supergraph, a domain and flow functions")
	}
	set := opts.Metrics
	if set == nil {
		set = metrics.NewSet()
	}
	return &Solver{
		problem:           problem,
		opts:              opts,
		logger:            logger,
		set:               set,
		pathEdgesTotal:    set.GetOrCreateCounter("ifds_path_edges_total"),
		summariesTotal:    set.GetOrCreateCounter("ifds_summary_edges_total"),
		summaryUsesTotal:  set.GetOrCreateCounter("ifds_summary_applications_total"),
		excludedCallTotal: set.GetOrCreateCounter("ifds_excluded_call_edges_total"),
	}, nil
}

// Metrics returns the metrics set of the solver
func (s *Solver) Metrics() *metrics.Set {
	return s.set
}

// WriteMetrics writes the solver metrics to w in Prometheus text format
func (s *Solver) WriteMetrics(w io.Writer) {
	s.set.WritePrometheus(w)
}

// Solve runs the tabulation to a fixed point and returns the facts holding at every node.
//
// If the supergraph is malformed, the returned error wraps an *ir.StructuralError. If a flow function cannot be
// built, the returned error wraps a *FlowFunctionError. In both cases the result is nil. If ctx is done before the
// fixed point is reached, Solve returns the partial result, whose Complete method returns false, and ctx.Err().
func (s *Solver) Solve(ctx context.Context) (*Result, error) {
	sg := s.problem.Supergraph
	if !s.opts.SkipValidation {
		if err := ir.Validate(sg); err != nil {
			return nil, fmt.Errorf("invalid supergraph: %w", err)
		}
	}
	s.reset()
	start := time.Now()
	s.logger.Debugf("Starting tabulation: %d entrypoints, %d seeds\n",
		len(sg.Entrypoints()), len(s.problem.Seeds))

	for _, entrypoint := range sg.Entrypoints() {
		s.propagate(domain.Zero, sg.Entry(entrypoint), domain.Zero)
	}
	processed := 0
	for len(s.worklist) > 0 {
		if err := ctx.Err(); err != nil {
			s.logger.Warnf("Tabulation interrupted after %d path edges, %d left: %v\n",
				processed, len(s.worklist), err)
			return s.result(false), err
		}
		edge := s.worklist[0]
		s.worklist = s.worklist[1:]
		processed++

		var err error
		switch {
		case sg.IsCall(edge.n):
			err = s.processCall(edge)
		case sg.IsExit(edge.n):
			err = s.processExit(edge)
		default:
			err = s.processNormal(edge)
		}
		if err != nil {
			return nil, err
		}
	}

	s.logger.Debugf("Tabulation done in %s: %d path edges, %d procedure summaries, %d facts in domain\n",
		time.Since(start), processed, len(s.endSummary), s.problem.Domain.Size())
	return s.result(true), nil
}

func (s *Solver) reset() {
	s.pathEdges = map[ir.Node]map[int]*flow.FactSet{}
	s.factsAt = map[ir.Node]*flow.FactSet{}
	s.worklist = nil
	s.endSummary = map[summaryKey]*flow.FactSet{}
	s.incoming = map[summaryKey]map[ir.Node]*flow.FactSet{}
	s.excluded = map[ir.Node]bool{}
	s.pendingSeeds = map[ir.Procedure][]Seed{}
	for _, seed := range s.problem.Seeds {
		proc := seed.Node.Procedure()
		s.pendingSeeds[proc] = append(s.pendingSeeds[proc], seed)
	}
}

func (s *Solver) result(complete bool) *Result {
	return &Result{
		sg:        s.problem.Supergraph,
		dom:       s.problem.Domain,
		facts:     s.factsAt,
		summaries: s.endSummary,
		complete:  complete,
	}
}

// propagate adds the path edge (d1, n, d2) to the worklist if it has not been seen before
func (s *Solver) propagate(d1 int, n ir.Node, d2 int) {
	byEntry, ok := s.pathEdges[n]
	if !ok {
		byEntry = map[int]*flow.FactSet{}
		s.pathEdges[n] = byEntry
	}
	targets, ok := byEntry[d1]
	if !ok {
		targets = flow.NewFactSet()
		byEntry[d1] = targets
	}
	if !targets.Add(d2) {
		return
	}
	facts, ok := s.factsAt[n]
	if !ok {
		facts = flow.NewFactSet()
		s.factsAt[n] = facts
	}
	facts.Add(d2)
	s.pathEdgesTotal.Inc()
	if s.logger.LogsTrace() {
		s.logger.Tracef("path edge <%s> -> %s <%s>\n", s.factString(d1), n, s.factString(d2))
	}
	s.worklist = append(s.worklist, pathEdge{d1: d1, n: n, d2: d2})
	if d1 == domain.Zero && d2 == domain.Zero {
		s.releaseSeeds(n)
	}
}

// releaseSeeds propagates the seeds of the procedure of n once n is known to be its entry reached with the zero fact
func (s *Solver) releaseSeeds(n ir.Node) {
	proc := n.Procedure()
	seeds, ok := s.pendingSeeds[proc]
	if !ok || s.problem.Supergraph.Entry(proc) != n {
		return
	}
	delete(s.pendingSeeds, proc)
	for _, seed := range seeds {
		s.propagate(domain.Zero, seed.Node, seed.Fact)
	}
}

func (s *Solver) processNormal(e pathEdge) error {
	for _, succ := range s.problem.Supergraph.Succs(e.n) {
		f, err := s.problem.Flows.NormalFlow(e.n, succ)
		if err != nil {
			return s.flowError(NormalEdge, e.n, succ, err)
		}
		f.Targets(e.d2).ForEach(func(d3 int) bool {
			s.propagate(e.d1, succ, d3)
			return true
		})
	}
	return nil
}

func (s *Solver) processCall(e pathEdge) error {
	sg := s.problem.Supergraph
	returnSites := sg.ReturnSites(e.n)
	if len(returnSites) == 0 {
		return ir.NewStructuralError(e.n, "call node without return site")
	}
	callees := sg.Callees(e.n)

	for _, callee := range callees {
		entry, exit := sg.Entry(callee), sg.Exit(callee)
		if entry == nil || exit == nil {
			return ir.NewStructuralError(e.n, "callee %s has no entry or exit node", callee)
		}
		f, err := s.problem.Flows.CallFlow(e.n, entry, returnSites[0])
		if err != nil {
			return s.flowError(CallEdge, e.n, entry, err)
		}
		callerEntry := flow.NewFactSet(e.d1)
		var returnErr error
		f.Targets(e.d2).ForEach(func(d3 int) bool {
			s.propagate(d3, entry, d3)
			key := summaryKey{proc: callee, d1: d3}
			s.addIncoming(key, e.n, e.d1)
			if exitFacts := s.endSummary[key]; !exitFacts.IsEmpty() {
				returnErr = s.returnFrom(e.n, exit, exitFacts, callerEntry)
			}
			return returnErr == nil
		})
		if returnErr != nil {
			return returnErr
		}
	}

	for _, ret := range returnSites {
		var f flow.Function
		var err error
		if len(callees) > 0 {
			f, err = s.problem.Flows.CallToReturnFlow(e.n, ret)
			if err != nil {
				return s.flowError(CallToReturnEdge, e.n, ret, err)
			}
		} else {
			s.excludedCallTotal.Inc()
			if !s.excluded[e.n] {
				s.excluded[e.n] = true
				s.logger.Debugf("No analyzed callee at %s: %s\n", e.n, sg.CallInstruction(e.n))
			}
			f, err = s.problem.Flows.CallNoneToReturnFlow(e.n, ret)
			if err != nil {
				return s.flowError(CallNoneToReturnEdge, e.n, ret, err)
			}
		}
		f.Targets(e.d2).ForEach(func(d3 int) bool {
			s.propagate(e.d1, ret, d3)
			return true
		})
	}
	return nil
}

func (s *Solver) processExit(e pathEdge) error {
	key := summaryKey{proc: e.n.Procedure(), d1: e.d1}
	exitFacts, ok := s.endSummary[key]
	if !ok {
		exitFacts = flow.NewFactSet()
		s.endSummary[key] = exitFacts
	}
	if !exitFacts.Add(e.d2) {
		return nil
	}
	s.summariesTotal.Inc()
	newExitFact := flow.NewFactSet(e.d2)
	for call, callerEntry := range s.incoming[key] {
		if err := s.returnFrom(call, e.n, newExitFact, callerEntry); err != nil {
			return err
		}
	}
	return nil
}

// returnFrom propagates the exitFacts of a callee to the return sites of call, in the context of each of the caller
// entry facts
func (s *Solver) returnFrom(call, exit ir.Node, exitFacts, callerEntry *flow.FactSet) error {
	for _, ret := range s.problem.Supergraph.ReturnSites(call) {
		f, err := s.problem.Flows.ReturnFlow(call, exit, ret)
		if err != nil {
			return s.flowError(ReturnEdge, exit, ret, err)
		}
		s.summaryUsesTotal.Inc()
		exitFacts.ForEach(func(d4 int) bool {
			f.Targets(d4).ForEach(func(d5 int) bool {
				callerEntry.ForEach(func(d1 int) bool {
					s.propagate(d1, ret, d5)
					return true
				})
				return true
			})
			return true
		})
	}
	return nil
}

func (s *Solver) addIncoming(key summaryKey, call ir.Node, d1 int) {
	calls, ok := s.incoming[key]
	if !ok {
		calls = map[ir.Node]*flow.FactSet{}
		s.incoming[key] = calls
	}
	entryFacts, ok := calls[call]
	if !ok {
		entryFacts = flow.NewFactSet()
		calls[call] = entryFacts
	}
	entryFacts.Add(d1)
}

func (s *Solver) flowError(kind EdgeKind, src, dest ir.Node, err error) error {
	var structural *ir.StructuralError
	if errors.As(err, &structural) {
		return err
	}
	return &FlowFunctionError{Kind: kind, Src: src, Dest: dest, Err: err}
}

func (s *Solver) factString(d int) string {
	if d == domain.Zero {
		return "0"
	}
	e, err := s.problem.Domain.ElementOf(d)
	if err != nil {
		return fmt.Sprintf("?%d", d)
	}
	return e.String()
}
