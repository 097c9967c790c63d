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
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"testing"

	"github.com/awslabs/argot-ifds/analysis/config"
	"github.com/awslabs/argot-ifds/analysis/domain"
	"github.com/awslabs/argot-ifds/analysis/ssair"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

const appSrc = `package main

type Conn struct{ data string }

func (c *Conn) Read() string { return c.data }

type Box struct{ v string }

func wrap(s string) *Box { return &Box{v: s} }

func Source() string { return "tainted" }

func Sink(s string) {}

func SinkBox(b *Box) {}

func Log(s string) {}

func apply(f func(string), s string) { f(s) }

func main() {
	s := Source()
	Sink(s)
	Log(s)
	c := &Conn{}
	Sink(c.Read())
	b := wrap(s)
	SinkBox(b)
	Sink("clean")
	apply(Log, s)
}
`

const appConfig = `
taint-tracking-problems:
  - sources:
      - package: "example.com/app"
        method: "^Source$"
        label: "user-input"
      - package: "example.com/app"
        receiver: "Conn"
        method: "Read"
    sinks:
      - package: "example.com/app"
        method: "^Sink"
`

const connRead = "example.com/app.(Conn).Read"

func quietLogger() *config.LogGroup {
	return config.NewLogGroupWithLevel(config.ErrLevel, io.Discard)
}

func buildApp(t *testing.T) *ssa.Package {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "app.go", appSrc, 0)
	if err != nil {
		t.Fatalf("could not parse source: %v", err)
	}
	pkg, _, err := ssautil.BuildPackage(&types.Config{Importer: importer.Default()}, fset,
		types.NewPackage("example.com/app", "main"), []*ast.File{f}, ssa.BuilderMode(0))
	if err != nil {
		t.Fatalf("could not build SSA: %v", err)
	}
	return pkg
}

func loadConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(extra + appConfig))
	if err != nil {
		t.Fatalf("could not parse config: %v", err)
	}
	return cfg
}

func analyze(t *testing.T, ctx context.Context, cfg *config.Config) (*ssa.Package, AnalysisResult, error) {
	t.Helper()
	pkg := buildApp(t)
	res, err := Analyze(ctx, quietLogger(), cfg, pkg.Prog, []*ssa.Package{pkg},
		Options{Mode: ssair.StaticAnalysis})
	return pkg, res, err
}

type flowSummary struct {
	Sink  string
	Arg   int
	Types []string
}

func summarizeFlows(flows []Flow) []flowSummary {
	var res []flowSummary
	for _, f := range flows {
		s := flowSummary{Sink: f.Sink.Site.Common().StaticCallee().Name(), Arg: f.Arg}
		for _, typ := range f.Types {
			s.Types = append(s.Types, typ.String())
		}
		res = append(res, s)
	}
	return res
}

func TestAnalyzeFlows(t *testing.T) {
	_, res, err := analyze(t, context.Background(), loadConfig(t, ""))
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	want := []flowSummary{
		{Sink: "Sink", Arg: 0, Types: []string{"source user-input"}},
		{Sink: "Sink", Arg: 0, Types: []string{"source " + connRead}},
		{Sink: "SinkBox", Arg: 0, Types: []string{"source user-input"}},
	}
	if diff := cmp.Diff(want, summarizeFlows(res.Flows)); diff != "" {
		t.Errorf("flows mismatch (-want +got):\n%s", diff)
	}
	if !res.Result.Complete() {
		t.Errorf("the result should be complete")
	}
}

func TestAnalyzeSummary(t *testing.T) {
	pkg, res, err := analyze(t, context.Background(), loadConfig(t, ""))
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	mainProc, ok := res.Program.Proc(pkg.Func("main"))
	if !ok {
		t.Fatalf("main was not lowered")
	}
	want := map[domain.FlowType]bool{
		domain.SourceFlow{Label: "user-input"}: true,
		domain.SourceFlow{Label: connRead}:     true,
	}
	got := map[domain.FlowType]bool{}
	for _, typ := range res.Summary.FlowTypes(mainProc) {
		got[typ] = true
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("flow types of main mismatch (-want +got):\n%s", diff)
	}

	// the body of wrap sees the user input through its parameter
	wrapProc, _ := res.Program.Proc(pkg.Func("wrap"))
	if types := res.Summary.FlowTypes(wrapProc); len(types) != 1 {
		t.Errorf("expected one flow type in wrap, got %v", types)
	}
}

func TestAnalyzeMaxAlarms(t *testing.T) {
	_, res, err := analyze(t, context.Background(), loadConfig(t, "options:\n  max-alarms: 1\n"))
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	if len(res.Flows) != 1 {
		t.Errorf("expected 1 flow, got %d", len(res.Flows))
	}
}

func TestAnalyzePkgFilterExcludesEverything(t *testing.T) {
	_, _, err := analyze(t, context.Background(), loadConfig(t, "options:\n  pkg-filter: \"^other\\\\.com\"\n"))
	if err == nil {
		t.Errorf("expected an error when no entry function is analyzed")
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, res, err := analyze(t, ctx, loadConfig(t, ""))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected a cancellation error, got %v", err)
	}
	if res.Result == nil || res.Result.Complete() {
		t.Errorf("expected a partial result")
	}
	if res.Flows != nil || res.Summary != nil {
		t.Errorf("no flow should be reported for an interrupted analysis")
	}
}

func TestAnalyzeMetrics(t *testing.T) {
	_, res, err := analyze(t, context.Background(), loadConfig(t, ""))
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	names := res.Metrics.ListMetricNames()
	for _, name := range []string{"ifds_path_edges_total", `flow_cache_requests_total{cache="normal"}`} {
		found := false
		for _, n := range names {
			found = found || n == name
		}
		if !found {
			t.Errorf("metric %s not found in %v", name, names)
		}
	}
}

func TestCalleeIdentifier(t *testing.T) {
	pkg := buildApp(t)
	var got []string
	var dynamic int
	for _, fn := range []*ssa.Function{pkg.Func("main"), pkg.Func("apply")} {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				call, ok := instr.(*ssa.Call)
				if !ok {
					continue
				}
				cid, ok := CalleeIdentifier(call.Common())
				if !ok {
					dynamic++
					continue
				}
				got = append(got, cid.String())
			}
		}
	}
	want := []string{
		"example.com/app.Source",
		"example.com/app.Sink",
		"example.com/app.Log",
		connRead,
		"example.com/app.Sink",
		"example.com/app.wrap",
		"example.com/app.SinkBox",
		"example.com/app.Sink",
		"example.com/app.apply",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("identifiers mismatch (-want +got):\n%s", diff)
	}
	if dynamic != 1 {
		t.Errorf("expected one dynamic call, got %d", dynamic)
	}
}
