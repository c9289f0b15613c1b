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
	"github.com/intel/node-scheduler/pkg/nodeset"
	"github.com/intel/node-scheduler/pkg/topology"
)

// switchCandidates is the per-switch {cpu_cnt, node_bitmap, node_cnt}
// working set of spec section 4.4 step 1.
type switchCandidates struct {
	bitmap  *nodeset.NodeSet
	cpuCnt  int64
	nodeCnt int
	required bool
}

func (ctx *EvalContext) computeSwitchCandidates() []switchCandidates {
	tree := ctx.SwitchTree
	out := make([]switchCandidates, len(tree.Switches))

	req := ctx.Job.ReqNodeBitmap

	for i, sw := range tree.Switches {
		bm := ctx.candidates.And(sw.NodeBitmap)
		out[i] = switchCandidates{
			bitmap:   bm,
			nodeCnt:  bm.Count(),
			required: req != nil && sw.NodeBitmap.Overlap(req),
		}
	}

	return out
}

// topSwitch implements spec section 4.4 step 2: the highest-level
// switch containing all required nodes, or, if none required, the
// highest-level switch whose candidates include the lowest-weight tier
// (tie-broken by lowest tier weight, then by table index per SPEC_FULL
// section C.2).
func (ctx *EvalContext) topSwitch(sc []switchCandidates) int {
	tree := ctx.SwitchTree
	req := ctx.Job.ReqNodeBitmap

	best := -1
	bestLevel := -1
	bestWeight := ^uint64(0)

	for i, sw := range tree.Switches {
		if req != nil && !req.IsEmpty() {
			if !sw.NodeBitmap.Superset(req) {
				continue
			}
			if best < 0 || sw.Level > bestLevel {
				best, bestLevel = i, sw.Level
			}
			continue
		}

		tiers := groupByWeight(ctx, sc[i].bitmap)
		if len(tiers) == 0 {
			continue
		}
		w := tiers[0].weight
		if best < 0 || sw.Level > bestLevel || (sw.Level == bestLevel && w < bestWeight) {
			best, bestLevel, bestWeight = i, sw.Level, w
		}
	}

	return best
}

// topoCheckpoint is the owned snapshot spec section 9 ("Checkpoint /
// restart (topo)") requires: NodeMap, the remainders, and the
// availability records as they stood right after required-node
// admission.
type topoCheckpoint struct {
	nodeMap     *nodeset.NodeSet
	avail       []AvailabilityRecord
	remNodes    int
	remCPUs     int64
	remMaxCPUs  int64
	minRemNodes int
	maxNodesRem int
	origMaxNodes int // org_max_nodes, kept alongside MaxNodes per section 9
}

func (ctx *EvalContext) snapshot() topoCheckpoint {
	avail := make([]AvailabilityRecord, len(ctx.Avail))
	copy(avail, ctx.Avail)
	return topoCheckpoint{
		nodeMap:      ctx.NodeMap.Copy(),
		avail:        avail,
		remNodes:     ctx.remNodes,
		remCPUs:      ctx.remCPUs,
		remMaxCPUs:   ctx.remMaxCPUs,
		minRemNodes:  ctx.minRemNodes,
		maxNodesRem:  ctx.maxNodesRem,
		origMaxNodes: ctx.MaxNodes,
	}
}

func (ctx *EvalContext) restore(cp topoCheckpoint) {
	ctx.NodeMap = cp.nodeMap.Copy()
	copy(ctx.Avail, cp.avail)
	ctx.remNodes = cp.remNodes
	ctx.remCPUs = cp.remCPUs
	ctx.remMaxCPUs = cp.remMaxCPUs
	ctx.minRemNodes = cp.minRemNodes
	ctx.maxNodesRem = cp.maxNodesRem
	ctx.MaxNodes = cp.origMaxNodes
}

// evalTopo implements spec section 4.4: the general switch-tree
// strategy.
func (ctx *EvalContext) evalTopo() error {
	return ctx.topoOrDfly(false)
}

// evalDfly implements spec section 4.5: the dragonfly strategy, which
// shares the topo strategy's top-switch selection, required-node
// handling, and leaf-count-restart bookkeeping, but fills leaves by
// round-robin instead of the general distance-ranked expansion.
func (ctx *EvalContext) evalDfly() error {
	if ctx.Job.ReqSwitch > 1 {
		evalLog.Warn("dfly: req_switch > 1 is not supported, clamping to 0")
		ctx.Job.ReqSwitch = 0
	}
	return ctx.topoOrDfly(true)
}

func (ctx *EvalContext) topoOrDfly(dragonfly bool) error {
	if ctx.SwitchTree == nil || len(ctx.SwitchTree.Switches) == 0 {
		recordFailure(ErrTopSwitchUnknown)
		return newEvalError(ErrTopSwitchUnknown, "no switch table")
	}

	sc := ctx.computeSwitchCandidates()
	top := ctx.topSwitch(sc)
	if top < 0 {
		recordFailure(ErrTopSwitchUnknown)
		return newEvalError(ErrTopSwitchUnknown, "no top switch contains the required nodes")
	}

	subtree := ctx.SwitchTree.Subtree(top)
	inSubtree := make(map[int]bool, len(subtree))
	for _, s := range subtree {
		inSubtree[s] = true
	}

	subtreeNodes := ctx.SwitchTree.Switches[top].NodeBitmap

	if req := ctx.Job.ReqNodeBitmap; req != nil && !req.IsEmpty() {
		if !subtreeNodes.Superset(req) {
			recordFailure(ErrTopologySplit)
			return newEvalError(ErrTopologySplit, "required nodes are not all within the chosen top switch")
		}
	}

	if err := ctx.admitRequired(); err != nil {
		recordFailure(ErrRequiredUnavailable)
		return err
	}

	if ctx.sufficient() {
		if req := ctx.Job.ReqNodeBitmap; req != nil && !req.IsEmpty() {
			logSchedulingAnomaly(ctx, strategyLabel(dragonfly))
		}
		ctx.setBestSwitch(len(requiredLeafSet(ctx, ctx.SwitchTree, inSubtree)))
		return nil
	}

	cp := ctx.snapshot()

	for {
		if err := ctx.accumulateBestNodes(subtreeNodes); err != nil {
			ctx.restore(cp)
			return err
		}

		if ctx.sufficient() {
			return nil
		}

		var leafCount int
		var err error
		if dragonfly {
			leafCount, err = ctx.fillDflyLeaves(subtreeNodes, inSubtree)
		} else {
			leafCount, err = ctx.fillTopoLeaves(subtreeNodes, inSubtree)
		}
		if err != nil {
			ctx.NodeMap = cp.nodeMap.Copy()
			return err
		}

		if ctx.Job.ReqSwitch > 0 && leafCount > ctx.Job.ReqSwitch && ctx.ReqNodes > ctx.MinNodes {
			ctx.ReqNodes--
			ctx.restore(cp)
			continue
		}

		if !ctx.sufficient() {
			kind := insufficiencyKind(ctx)
			ctx.resetToRequired()
			recordFailure(kind)
			return newEvalError(kind, "subtree does not have enough nodes/CPUs")
		}

		ctx.setBestSwitch(leafCount)
		return nil
	}
}

// setBestSwitch implements the best_switch output of spec section 8
// scenario 2: true unless req_switch bounds the leaf count and
// wait4switch has not yet elapsed.
func (ctx *EvalContext) setBestSwitch(leafCount int) {
	if ctx.Job.ReqSwitch > 0 && leafCount > ctx.Job.ReqSwitch {
		ctx.Job.BestSwitch = waited(ctx.Job.Wait4SwitchStart) >= ctx.Job.Wait4Switch
		return
	}
	ctx.Job.BestSwitch = true
}

// accumulateBestNodes implements spec section 4.4 steps 5-6: iterate
// weight tiers ascending, probing every candidate within the subtree;
// promote fully-included tiers into req2 and admit them unconditionally.
func (ctx *EvalContext) accumulateBestNodes(subtreeNodes *nodeset.NodeSet) error {
	region := ctx.candidates.And(subtreeNodes).AndNot(ctx.NodeMap)
	tiers := groupByWeight(ctx, region)

	var best bestFit
	req2 := nodeset.New()

	for _, tier := range tiers {
		tierFullyUsable := true
		for _, i := range tier.bitmap.Members() {
			ctx.SelectCores(ctx, i, ctx.remNodes)
			if ctx.Avail[i].AvailCPUs == 0 {
				tierFullyUsable = false
				continue
			}
			best.nodes++
			best.cpus += int64(ctx.Avail[i].AvailCPUs)
		}

		if tierFullyUsable {
			req2 = req2.Or(tier.bitmap)
		}

		if best.cpus >= ctx.remCPUs && enoughNodes(best.nodes, ctx.remNodes, ctx.MinNodes, ctx.ReqNodes) {
			break
		}
	}

	for _, i := range req2.Members() {
		if !ctx.NodeMap.Test(i) {
			ctx.admit(i)
		}
	}

	return nil
}

// fillTopoLeaves implements spec section 4.4 step 7: repeatedly pick
// the not-yet-required leaf with the best (distance, fit) ranking and
// admit all of its nodes, stopping on success or stall. It returns the
// number of distinct leaf switches now required.
func (ctx *EvalContext) fillTopoLeaves(subtreeNodes *nodeset.NodeSet, inSubtree map[int]bool) (int, error) {
	tree := ctx.SwitchTree
	requiredLeaves := requiredLeafSet(ctx, tree, inSubtree)

	for !ctx.sufficient() && ctx.maxNodesRem > 0 {
		candidateLeaves := unrequiredLeaves(tree, inSubtree, requiredLeaves)
		if len(candidateLeaves) == 0 {
			break
		}

		best := -1
		bestDist := -1
		bestFits := false
		var bestCount int

		for _, leaf := range candidateLeaves {
			cand := ctx.candidates.And(tree.Switches[leaf].NodeBitmap).AndNot(ctx.NodeMap)
			count := cand.Count()
			if count == 0 {
				continue
			}

			var cpuCnt int64
			for _, i := range cand.Members() {
				cpuCnt += int64(ctx.Avail[i].AvailCPUs)
			}

			dist := minDistance(tree, leaf, requiredLeaves)
			fits := count >= ctx.remNodes && cpuCnt >= ctx.remCPUs

			if best < 0 {
				best, bestDist, bestFits, bestCount = leaf, dist, fits, count
				continue
			}

			switch {
			case fits != bestFits:
				if fits {
					best, bestDist, bestFits, bestCount = leaf, dist, fits, count
				}
			case dist != bestDist:
				if dist < bestDist {
					best, bestDist, bestFits, bestCount = leaf, dist, fits, count
				}
			case fits:
				if count < bestCount {
					best, bestDist, bestFits, bestCount = leaf, dist, fits, count
				}
			default:
				if count > bestCount {
					best, bestDist, bestFits, bestCount = leaf, dist, fits, count
				}
			}
		}

		if best < 0 {
			break
		}

		before := ctx.remNodes
		for _, i := range ctx.candidates.And(tree.Switches[best].NodeBitmap).Members() {
			if ctx.maxNodesRem <= 0 {
				break
			}
			if !ctx.NodeMap.Test(i) {
				ctx.admit(i)
			}
		}
		requiredLeaves[best] = true

		if ctx.remNodes == before {
			break
		}
	}

	return len(requiredLeaves), nil
}

// fillDflyLeaves implements spec section 4.5: if exactly one leaf is
// required, try to complete from it alone; otherwise round-robin leaves
// one node per pass. Once only one not-yet-exhausted leaf remains, it is
// drained directly rather than continuing a one-wide round robin
// (SPEC_FULL section C.6).
func (ctx *EvalContext) fillDflyLeaves(subtreeNodes *nodeset.NodeSet, inSubtree map[int]bool) (int, error) {
	tree := ctx.SwitchTree
	requiredLeaves := requiredLeafSet(ctx, tree, inSubtree)

	if len(requiredLeaves) == 1 {
		var only int
		for l := range requiredLeaves {
			only = l
		}
		for _, i := range ctx.candidates.And(tree.Switches[only].NodeBitmap).Members() {
			if ctx.sufficient() || ctx.maxNodesRem <= 0 {
				break
			}
			if !ctx.NodeMap.Test(i) {
				ctx.admit(i)
			}
		}
		if ctx.sufficient() {
			return 1, nil
		}
	}

	leaves := unrequiredLeaves(tree, inSubtree, requiredLeaves)
	cursors := make(map[int]int, len(leaves))
	for _, l := range leaves {
		cursors[l] = 0
	}

	for !ctx.sufficient() && ctx.maxNodesRem > 0 {
		var active []int
		for _, l := range leaves {
			members := ctx.candidates.And(tree.Switches[l].NodeBitmap).Members()
			if cursors[l] < len(members) {
				active = append(active, l)
			}
		}
		if len(active) == 0 {
			break
		}
		if len(active) == 1 {
			l := active[0]
			members := ctx.candidates.And(tree.Switches[l].NodeBitmap).Members()
			for _, i := range members[cursors[l]:] {
				if ctx.sufficient() || ctx.maxNodesRem <= 0 {
					break
				}
				if !ctx.NodeMap.Test(i) {
					ctx.admit(i)
				}
			}
			requiredLeaves[l] = true
			break
		}

		progressed := false
		for _, l := range active {
			if ctx.sufficient() || ctx.maxNodesRem <= 0 {
				break
			}
			members := ctx.candidates.And(tree.Switches[l].NodeBitmap).Members()
			if cursors[l] >= len(members) {
				continue
			}
			i := members[cursors[l]]
			cursors[l]++
			requiredLeaves[l] = true
			if !ctx.NodeMap.Test(i) {
				if ctx.admit(i) {
					progressed = true
				}
			}
		}
		if !progressed {
			break
		}
	}

	return len(requiredLeaves), nil
}

func strategyLabel(dragonfly bool) string {
	if dragonfly {
		return "dfly"
	}
	return "topo"
}

func requiredLeafSet(ctx *EvalContext, tree *topology.Tree, inSubtree map[int]bool) map[int]bool {
	set := map[int]bool{}
	for _, l := range tree.Leaves() {
		if !inSubtree[l] {
			continue
		}
		if tree.Switches[l].NodeBitmap.Overlap(ctx.NodeMap) {
			set[l] = true
		}
	}
	return set
}

func unrequiredLeaves(tree *topology.Tree, inSubtree map[int]bool, required map[int]bool) []int {
	var out []int
	for _, l := range tree.Leaves() {
		if inSubtree[l] && !required[l] {
			out = append(out, l)
		}
	}
	return out
}

func minDistance(tree *topology.Tree, leaf int, required map[int]bool) int {
	if len(required) == 0 {
		return 0
	}
	best := -1
	for r := range required {
		d := tree.Distance(leaf, r)
		if d == topology.Infinite {
			continue
		}
		if best < 0 || d < best {
			best = d
		}
	}
	if best < 0 {
		return leaf // falls back to table-index tie-break, SPEC_FULL section C.2
	}
	return best
}
