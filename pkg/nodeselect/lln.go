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

import "sort"

// evalLLN implements "least-loaded node first" (spec section 4.7):
// within each weight tier, repeatedly pick the node maximizing
// avail_cpus/max_cpus, using integer cross-multiplication to avoid
// floating point (spec section 8 scenario 4, section 9 "floating-point
// avoidance").
func (ctx *EvalContext) evalLLN() error {
	return ctx.runSimpleStrategy("lln", func(ctx *EvalContext, tier weightTier) []int {
		members := tier.bitmap.Members()

		// Probe every candidate so avail_cpus/max_cpus reflect this
		// job's request before ranking; admit() re-probes idempotently.
		for _, i := range members {
			ctx.SelectCores(ctx, i, ctx.remNodes)
		}

		usable := members[:0:0]
		for _, i := range members {
			if ctx.Avail[i].AvailCPUs > 0 {
				usable = append(usable, i)
			}
		}

		sort.SliceStable(usable, func(a, b int) bool {
			return lessLoaded(ctx, usable[a], usable[b])
		})

		return usable
	}, false)
}

// lessLoaded reports whether node i has a strictly higher
// avail_cpus/max_cpus ratio than node j, i.e. i should be preferred
// (sorts first): avail_i * total_j > avail_j * total_i.
func lessLoaded(ctx *EvalContext, i, j int) bool {
	availI, totalI := uint64(ctx.Avail[i].AvailCPUs), uint64(ctx.Avail[i].MaxCPUs)
	availJ, totalJ := uint64(ctx.Avail[j].AvailCPUs), uint64(ctx.Avail[j].MaxCPUs)

	if totalI == 0 {
		totalI = 1
	}
	if totalJ == 0 {
		totalJ = 1
	}

	lhs := availI * totalJ
	rhs := availJ * totalI
	if lhs != rhs {
		return lhs > rhs
	}
	return i < j
}
