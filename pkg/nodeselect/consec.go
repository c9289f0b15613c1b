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

// consecRun is one maximal run of consecutive candidate indices sharing
// one weight (weight is ignored, and the whole candidate set collapses
// to index order only, when the job is contiguous).
type consecRun struct {
	indices       []int
	cpus          int64
	weight        uint64
	firstReqIndex int // -1 if the run has no required node
	exhausted     bool
}

func (r *consecRun) sufficient(remCPUs int64, remNodes int) bool {
	return !r.exhausted && len(r.indices) >= remNodes && r.cpus >= remCPUs
}

// buildConsecRuns partitions the candidate set (minus already-selected
// nodes) into runs of consecutive indices, probing each via SelectCores
// so run.cpus reflects avail_cpus.
func (ctx *EvalContext) buildConsecRuns() []*consecRun {
	members := ctx.candidates.AndNot(ctx.NodeMap).Members()

	var runs []*consecRun
	var cur *consecRun

	for _, i := range members {
		ctx.SelectCores(ctx, i, ctx.remNodes)

		w := ctx.Nodes[i].SchedWeight
		isReq := ctx.Job.ReqNodeBitmap != nil && ctx.Job.ReqNodeBitmap.Test(i)

		sameRun := cur != nil && i == cur.indices[len(cur.indices)-1]+1 &&
			(ctx.Job.Contiguous || w == cur.weight)

		if !sameRun {
			cur = &consecRun{weight: w, firstReqIndex: -1}
			runs = append(runs, cur)
		}

		cur.indices = append(cur.indices, i)
		cur.cpus += int64(ctx.Avail[i].AvailCPUs)
		if isReq && cur.firstReqIndex < 0 {
			cur.firstReqIndex = i
		}
	}

	return runs
}

// bestConsecRun implements the run-ranking of spec section 4.6.
func bestConsecRun(ctx *EvalContext, runs []*consecRun) *consecRun {
	var best *consecRun

	for _, r := range runs {
		if r.exhausted || len(r.indices) == 0 {
			continue
		}
		if best == nil {
			best = r
			continue
		}

		bestHasReq := best.firstReqIndex >= 0
		rHasReq := r.firstReqIndex >= 0
		if rHasReq != bestHasReq {
			if rHasReq {
				best = r
			}
			continue
		}

		if r.weight != best.weight {
			if r.weight < best.weight {
				best = r
			}
			continue
		}

		rSuff := r.sufficient(ctx.remCPUs, ctx.remNodes)
		bestSuff := best.sufficient(ctx.remCPUs, ctx.remNodes)
		if rSuff != bestSuff {
			if rSuff {
				best = r
			}
			continue
		}

		if rSuff {
			if r.cpus < best.cpus {
				best = r
			}
		} else {
			if r.cpus > best.cpus {
				best = r
			}
		}
	}

	return best
}

// evalConsec implements spec section 4.6: no topology, prefer
// consecutive index ranges of equal weight.
func (ctx *EvalContext) evalConsec() error {
	for {
		if ctx.sufficient() {
			return ctx.checkConsecRequired()
		}
		if ctx.maxNodesRem <= 0 {
			break
		}

		runs := ctx.buildConsecRuns()
		run := bestConsecRun(ctx, runs)
		if run == nil {
			break
		}

		progressed := ctx.admitConsecRun(run)
		run.exhausted = true

		if !progressed {
			break
		}
	}

	if err := ctx.checkConsecRequired(); err != nil {
		return err
	}

	if ctx.sufficient() {
		return nil
	}

	kind := insufficiencyKind(ctx)
	ctx.resetToRequired()
	recordFailure(kind)
	return newEvalError(kind, "no consecutive run satisfies the remaining request")
}

// admitConsecRun admits nodes from run per spec section 4.6: fan out
// from the first required index if the run has one; otherwise, if the
// remaining request fits a single node, pick the tightest-fitting node
// and zero the rest of the run (spec section 9's documented "open
// question" corner). The zeroed values do not stick: buildConsecRuns
// re-probes every remaining candidate on the next pass, so those nodes
// can still be admitted later in the same evaluation. It returns whether
// any node was admitted.
func (ctx *EvalContext) admitConsecRun(run *consecRun) bool {
	admittedAny := false

	if run.firstReqIndex >= 0 {
		lo, hi := run.firstReqIndex, run.firstReqIndex
		admitted := ctx.NodeMap.Test(run.firstReqIndex)
		if !admitted {
			admitted = ctx.admitConsecRequired(run.firstReqIndex, consecRequiredTPNIndex(ctx, run.firstReqIndex))
		}
		if admitted {
			admittedAny = true
		}
		for {
			if ctx.remNodes <= 0 && ctx.remCPUs <= 0 {
				break
			}
			moved := false
			if hi+1 <= run.indices[len(run.indices)-1] {
				hi++
				if ctx.admit(hi) {
					admittedAny = true
					moved = true
				}
			}
			if ctx.remNodes <= 0 && ctx.remCPUs <= 0 {
				break
			}
			if lo-1 >= run.indices[0] {
				lo--
				if ctx.admit(lo) {
					admittedAny = true
					moved = true
				}
			}
			if !moved {
				break
			}
		}
		return admittedAny
	}

	if ctx.remNodes <= 1 {
		best := -1
		for _, i := range run.indices {
			if best < 0 || ctx.Avail[i].AvailCPUs < ctx.Avail[best].AvailCPUs {
				best = i
			}
		}
		if best >= 0 && ctx.Avail[best].AvailCPUs > 0 {
			if ctx.admit(best) {
				admittedAny = true
			}
		}
		for _, i := range run.indices {
			if i != best {
				ctx.Avail[i].AvailCPUs = 0
			}
		}
		return admittedAny
	}

	for _, i := range run.indices {
		if ctx.remNodes <= 0 && ctx.remCPUs <= 0 {
			break
		}
		if ctx.admit(i) {
			admittedAny = true
		}
	}

	return admittedAny
}

// consecRequiredTPNIndex returns node i's 0-based position within the
// job's required-node bitmap, ascending by index — the "count" that
// arbitrary_tpn is keyed by in the original source's required-node loop
// (eval_nodes.c:931-952). Returns -1 if i is not required.
func consecRequiredTPNIndex(ctx *EvalContext, i int) int {
	req := ctx.Job.ReqNodeBitmap
	if req == nil {
		return -1
	}
	for pos, idx := range req.Members() {
		if idx == i {
			return pos
		}
	}
	return -1
}

// admitConsecRequired admits required node i, the consec strategy's own
// required-node admission path (grounded on eval_nodes.c:931-952, the
// only strategy that reads arbitrary_tpn). When the job supplies an
// explicit per-task count for this required node's position in
// req_node_bitmap, that count replaces whatever select_cores/cpus_to_use
// computed outright (scaled by cpus_per_task, floored at
// pn_min_cpus/min_gres_cpu), and the node is rejected if it cannot
// actually supply that many CPUs. Nodes with no override fall back to
// the ordinary cpus_to_use clamp, exactly like ctx.admit.
func (ctx *EvalContext) admitConsecRequired(i int, tpnIndex int) bool {
	ctx.SelectCores(ctx, i, ctx.remNodes)

	avail := &ctx.Avail[i]

	tpn, overridden := ctx.Job.ArbitraryTPN[tpnIndex]
	if overridden {
		reqCPUs := int64(tpn)
		if ctx.Job.CPUsPerTask != 0 {
			reqCPUs *= int64(ctx.Job.CPUsPerTask)
		}
		if floor := int64(ctx.Job.PnMinCPUs); floor > reqCPUs {
			reqCPUs = floor
		}
		if floor := int64(ctx.Job.MinGresCPU); floor > reqCPUs {
			reqCPUs = floor
		}
		if int64(avail.AvailCPUs) < reqCPUs {
			evalLog.Debug("required node %q needed %d cpus but only has %d", ctx.Nodes[i].Name, reqCPUs, avail.AvailCPUs)
			return false
		}
		avail.AvailCPUs = clampUint16(reqCPUs)
	} else {
		ctx.cpusToUse(i)
	}

	if avail.AvailCPUs == 0 {
		return false
	}

	if ctx.gresNeeded {
		wide := uint32(avail.AvailCPUs)
		ctx.GRES.Add(ctx.Job.GRESListReq, avail.SockGRESList, &wide)
		avail.AvailCPUs = clampUint16(int64(wide))
	}

	if avail.AvailCPUs == 0 {
		return false
	}

	ctx.remNodes--
	ctx.minRemNodes--
	ctx.maxNodesRem--
	ctx.remCPUs -= int64(avail.AvailCPUs)
	ctx.remMaxCPUs -= int64(avail.AvailCPUs)

	ctx.NodeMap.Set(i)

	return true
}

// checkConsecRequired enforces the invariant that every required node
// ends up admitted; the run ranking prioritizes required-containing
// runs highly enough that this should never trigger in practice, but it
// guards the invariant explicitly rather than relying solely on ranking
// order.
func (ctx *EvalContext) checkConsecRequired() error {
	req := ctx.Job.ReqNodeBitmap
	if req == nil {
		return nil
	}
	if ctx.Job.Contiguous {
		if !ctx.NodeMap.Superset(req) {
			recordFailure(ErrTopologySplit)
			return newEvalError(ErrTopologySplit, "a required node lies outside the contiguous run")
		}
	}
	if !ctx.NodeMap.Superset(req) {
		recordFailure(ErrRequiredUnavailable)
		return newEvalError(ErrRequiredUnavailable, "not every required node could be admitted")
	}
	return nil
}
