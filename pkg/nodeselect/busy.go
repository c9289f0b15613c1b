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

// evalBusy prefers already-busy nodes, leaving idle nodes available for
// longer-running jobs (spec section 4.7): within each weight tier, try
// every non-idle node first, then every idle node.
func (ctx *EvalContext) evalBusy() error {
	return ctx.runSimpleStrategy("busy", func(ctx *EvalContext, tier weightTier) []int {
		members := tier.bitmap.Members()

		var busy, idle []int
		for _, i := range members {
			if ctx.IdleNodes != nil && ctx.IdleNodes.Test(i) {
				idle = append(idle, i)
			} else {
				busy = append(busy, i)
			}
		}

		return append(busy, idle...)
	}, false)
}
