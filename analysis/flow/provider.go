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

package flow

import (
	"fmt"

	"github.com/awslabs/argot-ifds/analysis/domain"
	"github.com/awslabs/argot-ifds/analysis/ir"
)

// Provider returns the flow function of each supergraph edge. Building a function may fail, e.g. on an instruction
// of unexpected shape; the solver cannot continue past such an error since a missing function is indistinguishable
// from an absence of propagation.
type Provider interface {
	// NormalFlow returns the function of the intraprocedural edge src -> dest
	NormalFlow(src, dest ir.Node) (Function, error)

	// CallFlow returns the function of the edge from the call node src to the entry dest of a callee. ret is a
	// return site of the call.
	CallFlow(src, dest, ret ir.Node) (Function, error)

	// CallToReturnFlow returns the function of the edge from the call node src to its return site dest, for calls
	// that have analyzed callees.
	CallToReturnFlow(src, dest ir.Node) (Function, error)

	// CallNoneToReturnFlow returns the function of the edge from the call node src to its return site dest, for
	// calls that have no analyzed callee.
	CallNoneToReturnFlow(src, dest ir.Node) (Function, error)

	// ReturnFlow returns the function of the edge from the exit src of a callee to the return site dest of the call
	// node call. call and dest must belong to the same procedure.
	ReturnFlow(call, src, dest ir.Node) (Function, error)
}

// ExcludedCalleePolicy is the treatment of calls whose callee is not analyzed
type ExcludedCalleePolicy int

const (
	// IdentityPolicy propagates the facts unchanged, except for the flow from the arguments to the result of the
	// call. It is the default.
	IdentityPolicy ExcludedCalleePolicy = iota

	// TaintEverythingPolicy lets every fact flow to every fact of the domain with the same flow type. Very
	// conservative and expensive.
	TaintEverythingPolicy
)

func (p ExcludedCalleePolicy) String() string {
	switch p {
	case IdentityPolicy:
		return "identity"
	case TaintEverythingPolicy:
		return "taint-everything"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// SourceFunc decides whether the value returned by a call is a taint source, and returns its flow type if it is.
type SourceFunc func(call ir.Node, invoke ir.InvokeInstruction) (domain.FlowType, bool)

// Options configures a TaintProvider
type Options struct {
	// TaintStaticFields introduces a new taint at every read of a non-final static field
	TaintStaticFields bool

	// ExcludedCallee is the treatment of calls without analyzed callee
	ExcludedCallee ExcludedCalleePolicy

	// Sources, if non-nil, introduces taint on the results of source calls
	Sources SourceFunc
}

// TaintProvider is the Provider of the taint analysis.
type TaintProvider struct {
	sg   ir.Supergraph
	dom  *domain.Domain
	pts  ir.PointsTo
	opts Options
}

// NewTaintProvider returns a taint flow function provider for the supergraph sg. pts may be nil, in which case heap
// accesses do not propagate taint and every call is considered resolved.
func NewTaintProvider(sg ir.Supergraph, dom *domain.Domain, pts ir.PointsTo, opts Options) *TaintProvider {
	return &TaintProvider{sg: sg, dom: dom, pts: pts, opts: opts}
}

// Domain returns the domain of the provider
func (p *TaintProvider) Domain() *domain.Domain {
	return p.dom
}

// NormalFlow applies the instructions of dest, in order.
func (p *TaintProvider) NormalFlow(_, dest ir.Node) (Function, error) {
	return p.nodeFunction(dest)
}

// nodeFunction is the composition of the flow functions of the instructions of n
func (p *TaintProvider) nodeFunction(n ir.Node) (Function, error) {
	var fs []Function
	for _, instr := range n.Instructions() {
		ud, err := UseDefs(instr, n.Procedure(), p.pts)
		if err != nil {
			return nil, fmt.Errorf("in %s: %w", n, err)
		}
		fs = append(fs, newUseDefFunction(p.dom, ud, p.generatedBy(instr)))
	}
	return Sequence(fs...), nil
}

// generatedBy returns the elements generated from the zero fact by instr
func (p *TaintProvider) generatedBy(instr ir.Instruction) []domain.Element {
	if !p.opts.TaintStaticFields || instr.Kind() != ir.KindStaticGet {
		return nil
	}
	fi, ok := instr.(ir.FieldInstruction)
	if !ok || fi.IsFinal() || fi.Value() == ir.NoValue {
		return nil
	}
	return []domain.Element{{
		Code:  domain.Local{Value: fi.Value()},
		Taint: domain.StaticFieldFlow{Field: fi.Field()},
	}}
}

func (p *TaintProvider) invoke(call ir.Node) (ir.InvokeInstruction, error) {
	invoke := p.sg.CallInstruction(call)
	if invoke == nil {
		return nil, ir.NewStructuralError(call, "node is not a call")
	}
	return invoke, nil
}

// CallFlow maps the actual arguments to the formal parameters of the callee: the i-th argument flows to the local
// ir.FormalParameter(i). Facts on global elements are propagated, and all other facts are dropped.
func (p *TaintProvider) CallFlow(src, _, _ ir.Node) (Function, error) {
	invoke, err := p.invoke(src)
	if err != nil {
		return nil, err
	}
	formals := map[ir.ValueNumber][]ir.ValueNumber{}
	for i := 0; i < invoke.NumArgs(); i++ {
		if a := invoke.Arg(i); a != ir.NoValue {
			formals[a] = append(formals[a], ir.FormalParameter(i))
		}
	}
	return FunctionOf(func(d int) *FactSet {
		res := NewFactSet()
		if d == domain.Zero {
			res.Add(domain.Zero)
			return res
		}
		e := p.dom.MustElementOf(d)
		switch c := e.Code.(type) {
		case domain.Local:
			for _, formal := range formals[c.Value] {
				res.Add(p.dom.IndexOf(domain.Element{Code: domain.Local{Value: formal}, Taint: e.Taint}))
			}
		default:
			if domain.IsGlobal(c) {
				res.Add(d)
			}
		}
		return res
	}), nil
}

// CallToReturnFlow propagates the facts of the caller around the call, except the fact on the result of the call
// which is produced by the return flow. If the oracle resolves the target method to no implementation, the call is
// treated as a call without callee.
func (p *TaintProvider) CallToReturnFlow(src, dest ir.Node) (Function, error) {
	invoke, err := p.invoke(src)
	if err != nil {
		return nil, err
	}
	if p.pts != nil && len(p.pts.Implementations(invoke.Target())) == 0 {
		return p.CallNoneToReturnFlow(src, dest)
	}
	continuation, err := p.nodeFunction(dest)
	if err != nil {
		return nil, err
	}
	var around Function = Identity
	if result := invoke.Result(); result != ir.NoValue {
		around = Kill(p.dom, func(e domain.Element) bool { return e.Code == domain.Local{Value: result} })
	}
	return Compose(p.withSource(src, invoke, around), continuation), nil
}

// CallNoneToReturnFlow treats the call as an ordinary instruction in which the arguments flow to the result. Under
// the TaintEverythingPolicy, every fact also flows to every fact with the same flow type.
func (p *TaintProvider) CallNoneToReturnFlow(src, dest ir.Node) (Function, error) {
	invoke, err := p.invoke(src)
	if err != nil {
		return nil, err
	}
	continuation, err := p.nodeFunction(dest)
	if err != nil {
		return nil, err
	}
	around := newUseDefFunction(p.dom, InvokeUseDefs(invoke), nil)
	if p.opts.ExcludedCallee == TaintEverythingPolicy {
		around = Union(around, TaintEverything(p.dom))
	}
	return Compose(p.withSource(src, invoke, around), continuation), nil
}

// withSource adds the generation of the source fact to f if the call is a source
func (p *TaintProvider) withSource(call ir.Node, invoke ir.InvokeInstruction, f Function) Function {
	if p.opts.Sources == nil || invoke.Result() == ir.NoValue {
		return f
	}
	taint, isSource := p.opts.Sources(call, invoke)
	if !isSource {
		return f
	}
	return Union(f, Gen(p.dom, domain.Element{Code: domain.Local{Value: invoke.Result()}, Taint: taint}))
}

// ReturnFlow translates the facts at the exit of the callee into facts of the caller, then applies the
// instructions of the return site dest:
//   - the return placeholder flows to the local defined by the call,
//   - facts on global elements are propagated; if the call has a receiver, facts on the objects it points to also
//     flow to the receiver local,
//   - facts on the locals of the callee are dropped.
//
// If call is not an invocation, only the facts on global elements are propagated.
func (p *TaintProvider) ReturnFlow(call, _, dest ir.Node) (Function, error) {
	if call.Procedure() != dest.Procedure() {
		return nil, ir.NewStructuralError(call, "return site %s is not in the procedure of the call", dest)
	}
	invoke := p.sg.CallInstruction(call)
	if invoke == nil {
		return GlobalIdentity(p.dom), nil
	}
	continuation, err := p.nodeFunction(dest)
	if err != nil {
		return nil, err
	}
	result := invoke.Result()
	receiver := ir.NoValue
	receiverKeys := map[ir.InstanceKey]bool{}
	if invoke.HasReceiver() && invoke.NumArgs() > 0 {
		receiver = invoke.Arg(0)
		for _, ik := range instanceKeys(p.pts, call.Procedure(), receiver) {
			receiverKeys[ik] = true
		}
	}
	translate := FunctionOf(func(d int) *FactSet {
		res := NewFactSet()
		if d == domain.Zero {
			res.Add(domain.Zero)
			return res
		}
		e := p.dom.MustElementOf(d)
		switch c := e.Code.(type) {
		case domain.Return:
			if result != ir.NoValue {
				res.Add(p.dom.IndexOf(domain.Element{Code: domain.Local{Value: result}, Taint: e.Taint}))
			}
		case domain.Instance:
			res.Add(d)
			if receiverKeys[c.Instance] {
				res.Add(p.dom.IndexOf(domain.Element{Code: domain.Local{Value: receiver}, Taint: e.Taint}))
			}
		default:
			if domain.IsGlobal(c) {
				res.Add(d)
			}
		}
		return res
	})
	return Compose(translate, continuation), nil
}
