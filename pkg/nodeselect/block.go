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

// evalBlock implements spec section 4.3: hierarchical block topology,
// picking a power-of-two number of base-blocks within one block.
func (ctx *EvalContext) evalBlock() error {
	bt := ctx.BlockTable

	exponent := blockExponent(bt, ctx.remNodes)

	blocks := bt.GroupBlocks(exponent)
	chosen := chooseBlock(ctx, blocks)
	if chosen == nil {
		recordFailure(ErrTopSwitchUnknown)
		return newEvalError(ErrTopSwitchUnknown, "no block could be selected")
	}

	if req := ctx.Job.ReqNodeBitmap; req != nil && req.Overlap(ctx.candidates) {
		if !chosen.NodeBitmap.Superset(req) {
			recordFailure(ErrTopologySplit)
			return newEvalError(ErrTopologySplit, "required nodes span more than one block")
		}
	}

	regionCandidates := ctx.candidates.And(chosen.NodeBitmap)

	if err := ctx.admitRequired(); err != nil {
		recordFailure(ErrRequiredUnavailable)
		return err
	}

	if ctx.sufficient() {
		if req := ctx.Job.ReqNodeBitmap; req != nil && !req.IsEmpty() {
			logSchedulingAnomaly(ctx, "block")
		}
		return nil
	}

	tiers := groupByWeight(ctx, regionCandidates.AndNot(ctx.NodeMap))

	var best bestFit
	var req2 *nodeset.NodeSet = nodeset.New()

	for _, tier := range tiers {
		for _, i := range tier.bitmap.Members() {
			ctx.SelectCores(ctx, i, ctx.remNodes)
			if ctx.Avail[i].AvailCPUs == 0 {
				continue
			}
			best.nodes++
			best.cpus += int64(ctx.Avail[i].AvailCPUs)
		}
		req2 = req2.Or(tier.bitmap)

		if best.nodes >= ctx.remNodes && best.cpus >= ctx.remCPUs {
			best.sufficient = true
			break
		}
	}

	for _, i := range req2.Members() {
		if !ctx.NodeMap.Test(i) {
			ctx.admit(i)
		}
	}

	if ctx.sufficient() {
		return nil
	}

	ok := ctx.fillBlockBaseBlocks(bt, chosen)
	if !ok {
		ctx.resetToRequired()
		recordFailure(ErrStalled)
		return newEvalError(ErrStalled, "block fill made no progress")
	}

	if !ctx.sufficient() {
		kind := insufficiencyKind(ctx)
		ctx.resetToRequired()
		recordFailure(kind)
		return newEvalError(kind, "chosen block does not have enough nodes/CPUs")
	}

	return nil
}

// bestFit tracks the running best weight-tier accumulation, supplemented
// from the original source (SPEC_FULL section C.1) instead of
// re-deriving node/CPU counts from a bitmap on every check.
type bestFit struct {
	nodes     int
	cpus      int64
	sufficient bool
}

// blockExponent implements spec section 4.3 step 1: the smallest power
// of two covering rem_nodes/bblock_node_cnt, snapped up to the nearest
// allowed exponent; falls back to the whole table as one block if no
// exponent is allowed.
func blockExponent(bt *topology.BlockTable, remNodes int) int {
	if bt.NodeCnt <= 0 {
		return ceilLog2(len(bt.BaseBlocks))
	}

	naive := ceilLog2(ceilDiv(remNodes, bt.NodeCnt))
	if naive < 0 {
		naive = 0
	}

	if k := bt.SmallestAllowedLevel(uint(naive)); k >= 0 {
		return k
	}

	return ceilLog2(len(bt.BaseBlocks))
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// ceilLog2 returns the smallest k with 2^k >= n (0 for n <= 1), using an
// integer bit-scan rather than log/pow (spec section 9, "floating-point
// avoidance").
func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	k := 0
	v := 1
	for v < n {
		v <<= 1
		k++
	}
	return k
}

// chooseBlock implements spec section 4.3 step 3: if the required set
// overlaps a block, that block is chosen; otherwise the block containing
// the lowest-weight tier wins, ties broken by smaller node count.
func chooseBlock(ctx *EvalContext, blocks []topology.Block) *topology.Block {
	req := ctx.Job.ReqNodeBitmap

	if req != nil && req.Overlap(ctx.candidates) {
		for i := range blocks {
			if blocks[i].NodeBitmap.Overlap(req) {
				return &blocks[i]
			}
		}
		return nil
	}

	var chosen *topology.Block
	var chosenWeight uint64
	var chosenCount int

	for i := range blocks {
		cand := ctx.candidates.And(blocks[i].NodeBitmap)
		if cand.IsEmpty() {
			continue
		}

		tiers := groupByWeight(ctx, cand)
		if len(tiers) == 0 {
			continue
		}
		lowest := tiers[0].weight
		count := cand.Count()

		if chosen == nil || lowest < chosenWeight || (lowest == chosenWeight && count < chosenCount) {
			chosen = &blocks[i]
			chosenWeight = lowest
			chosenCount = count
		}
	}

	return chosen
}

// fillBlockBaseBlocks implements spec section 4.3 step 5: repeatedly
// select the still-unused base-block whose candidate count best fits
// rem_nodes (tightest fit that still covers it; else the largest),
// admitting its nodes in bitmap order until remainders are satisfied or
// max_nodes is exhausted; stop when a pass makes no progress.
func (ctx *EvalContext) fillBlockBaseBlocks(bt *topology.BlockTable, chosen *topology.Block) bool {
	used := make([]bool, len(bt.BaseBlocks))
	anyProgress := false

	for {
		if ctx.sufficient() || ctx.maxNodesRem <= 0 {
			break
		}

		bestIdx := -1
		var bestCandCount int

		for i, bb := range bt.BaseBlocks {
			if used[i] {
				continue
			}
			if !bb.NodeBitmap.Overlap(chosen.NodeBitmap) {
				continue
			}
			cand := ctx.candidates.And(bb.NodeBitmap).AndNot(ctx.NodeMap)
			if cand.IsEmpty() {
				continue
			}
			count := cand.Count()

			if bestIdx < 0 {
				bestIdx, bestCandCount = i, count
				continue
			}
			fits := count >= ctx.remNodes
			bestFits := bestCandCount >= ctx.remNodes
			switch {
			case fits && bestFits:
				if count < bestCandCount {
					bestIdx, bestCandCount = i, count
				}
			case fits && !bestFits:
				bestIdx, bestCandCount = i, count
			case !fits && !bestFits:
				if count > bestCandCount {
					bestIdx, bestCandCount = i, count
				}
			}
		}

		if bestIdx < 0 {
			break
		}
		used[bestIdx] = true

		before := ctx.remNodes
		for _, i := range ctx.candidates.And(bt.BaseBlocks[bestIdx].NodeBitmap).Members() {
			if ctx.maxNodesRem <= 0 {
				break
			}
			if !ctx.NodeMap.Test(i) {
				ctx.admit(i)
			}
		}
		if ctx.remNodes != before {
			anyProgress = true
		} else {
			break
		}
	}

	return anyProgress || ctx.sufficient()
}
