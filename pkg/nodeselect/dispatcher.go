// Copyright 2019 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nodeselect

import (
	"time"

	"github.com/intel/node-scheduler/pkg/config"
	"github.com/intel/node-scheduler/pkg/gres"
	"github.com/intel/node-scheduler/pkg/log"
	"github.com/intel/node-scheduler/pkg/nodeset"
)

var evalLog = log.NewLogger("nodeselect")

// evalWarnRL rate-limits the per-candidate warnings admission can repeat
// once per node on every submission of an otherwise-identical job (e.g.
// "required node has zero avail_cpus"), so a flapping node doesn't flood
// the log once per scheduling attempt.
var evalWarnRL = log.RateLimit(evalLog, log.Interval(time.Minute))

// strategy is a tagged variant, one method per placement strategy. The
// dispatcher's branching table (strategyFor) is the entirety of the
// polymorphism here; there is deliberately no virtual dispatch.
type strategy func(ctx *EvalContext) error

// Evaluate is the core's single entry point. It mutates ctx.NodeMap in
// place (candidate bitmap becomes the selected bitmap on success) and
// the per-node AvailabilityRecords and GRES accounting as a documented
// side effect. It returns nil on success, or an error wrapping an
// ErrorKind on failure.
func Evaluate(ctx *EvalContext) error {
	if ctx.GRES == nil {
		ctx.GRES = gres.NoneScheduler{}
	}
	if ctx.Job.GRESListReq != nil {
		ctx.gresNeeded = ctx.GRES.Init(ctx.Job.GRESListReq)
	}

	candidates := ctx.NodeMap.Copy()

	if candidates.Count() < ctx.Job.MinNodes {
		recordFailure(ErrEmptyCandidates)
		return newEvalError(ErrEmptyCandidates, "only %d candidate nodes, need %d", candidates.Count(), ctx.Job.MinNodes)
	}

	if req := ctx.Job.ReqNodeBitmap; req != nil {
		if !candidates.Superset(req) {
			recordFailure(ErrRequiredUnavailable)
			return newEvalError(ErrRequiredUnavailable, "required nodes are not all in the candidate set")
		}
		if req.Count() > ctx.Job.MaxNodes {
			recordFailure(ErrRequiredExcess)
			return newEvalError(ErrRequiredExcess, "required node count %d exceeds max_nodes %d", req.Count(), ctx.Job.MaxNodes)
		}
	}

	ctx.MinNodes = ctx.Job.MinNodes
	ctx.ReqNodes = ctx.Job.ReqNodes
	ctx.MaxNodes = ctx.Job.MaxNodes
	ctx.CRType = config.Current().CRType
	ctx.candidates = candidates

	ctx.remNodes = ctx.MinNodes
	ctx.minRemNodes = ctx.MinNodes
	ctx.maxNodesRem = ctx.MaxNodes
	ctx.remCPUs = int64(ctx.Job.MinCPUs)
	ctx.remMaxCPUs = initRemMaxCPUs(ctx.Job, ctx.remNodes)

	ctx.NodeMap.Clear()

	strat, name := ctx.strategyFor(candidates)
	evalLog.Debug("dispatching to %s strategy", name)

	err := strat(ctx)

	recordOutcome(name, err)

	return err
}

// strategyFor implements the dispatch table of spec section 4.1: first
// match wins.
func (ctx *EvalContext) strategyFor(candidates *nodeset.NodeSet) (strategy, string) {
	toggles := config.Current()

	if ctx.BlockTable != nil && ctx.BlockTable.AllNodes != nil && ctx.BlockTable.AllNodes.Overlap(candidates) {
		return ctx.evalBlock, "block"
	}
	if ctx.Job.SpreadJob {
		return ctx.evalSpread, "spread"
	}
	if ctx.Job.PreferAllocNodes && !ctx.Job.Contiguous {
		return ctx.evalBusy, "busy"
	}
	if toggles.CRType.Has(config.CRLLN) {
		return ctx.evalLLN, "lln"
	}
	if toggles.PackSerialAtEnd && ctx.Job.MinCPUs == 1 && ctx.Job.ReqNodes == 1 {
		return ctx.evalSerial, "serial"
	}
	if ctx.SwitchTree != nil && len(ctx.SwitchTree.Switches) > 0 && !ctx.Job.Contiguous {
		topoMandatory := !toggles.TopoOptional
		if topoMandatory || ctx.Job.ReqSwitch > 0 {
			if toggles.Dragonfly {
				return ctx.evalDfly, "dfly"
			}
			return ctx.evalTopo, "topo"
		}
	}

	return ctx.evalConsec, "consec"
}

func waited(since time.Time) time.Duration {
	if since.IsZero() {
		return 0
	}
	return time.Since(since)
}
