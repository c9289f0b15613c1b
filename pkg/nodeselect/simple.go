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

// tierOrder produces the admission order for one weight tier, for a
// particular simple strategy (busy/lln/serial/spread). It is called
// repeatedly; each call should return the indices still worth trying,
// in the order they should be admitted, given the current remainders.
type tierOrder func(ctx *EvalContext, tier weightTier) []int

// runSimpleStrategy implements the shared skeleton of spec section 4.7:
// admit required nodes, drop every other candidate bit, group the rest
// by weight, and iterate tiers ascending admitting nodes in the order
// `order` provides. On failure with residual demand the entire NodeMap
// is cleared before returning, matching busy/lln/serial/spread's
// documented failure post-state.
func (ctx *EvalContext) runSimpleStrategy(name string, order tierOrder, exhaustTier bool) error {
	if err := ctx.admitRequired(); err != nil {
		recordFailure(ErrRequiredUnavailable)
		return err
	}

	if ctx.sufficient() {
		if req := ctx.Job.ReqNodeBitmap; req != nil && !req.IsEmpty() {
			logSchedulingAnomaly(ctx, name)
		}
		return nil
	}

	remaining := ctx.candidates.AndNot(ctx.NodeMap)
	tiers := groupByWeight(ctx, remaining)

	for _, tier := range tiers {
		for _, i := range order(ctx, tier) {
			if ctx.maxNodesRem <= 0 {
				break
			}
			if !exhaustTier && ctx.remNodes <= 0 && ctx.remCPUs <= 0 {
				break
			}
			if !ctx.NodeMap.Test(i) {
				ctx.admit(i)
			}
		}
		if ctx.sufficient() {
			return nil
		}
	}

	kind := insufficiencyKind(ctx)
	ctx.NodeMap.Clear()
	recordFailure(kind)
	return newEvalError(kind, "weight tiers exhausted without meeting remainders")
}
