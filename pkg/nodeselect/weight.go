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
	"sort"

	"github.com/intel/node-scheduler/pkg/nodeset"
)

// weightTier is one entry of the weight-grouping list: a maximal subset
// of candidate nodes sharing one sched_weight.
type weightTier struct {
	weight  uint64
	bitmap  *nodeset.NodeSet
	nodeCnt int
}

// groupByWeight partitions candidates by NodeRecord.SchedWeight and
// returns the tiers sorted ascending by weight. The returned list (and
// its per-tier bitmaps) is owned by the caller; its lifetime is one
// Evaluate call.
func groupByWeight(ctx *EvalContext, candidates *nodeset.NodeSet) []weightTier {
	byWeight := map[uint64]*nodeset.NodeSet{}

	for _, i := range candidates.Members() {
		w := ctx.Nodes[i].SchedWeight
		if byWeight[w] == nil {
			byWeight[w] = nodeset.New()
		}
		byWeight[w].Set(i)
	}

	tiers := make([]weightTier, 0, len(byWeight))
	for w, bm := range byWeight {
		tiers = append(tiers, weightTier{weight: w, bitmap: bm, nodeCnt: bm.Count()})
	}

	sort.Slice(tiers, func(i, j int) bool { return tiers[i].weight < tiers[j].weight })

	return tiers
}

// enoughNodes implements spec section 4.8: enough_nodes(avail, rem, min,
// req) = avail >= (rem + min - req) if req > min else avail >= rem.
func enoughNodes(avail, rem, min, req int) bool {
	if req > min {
		return avail >= rem+min-req
	}
	return avail >= rem
}

// initRemMaxCPUs implements spec section 4.9: rem_max_cpus starts at
// max(min_cpus, max_cpus); lifted to min_gres_cpu * rem_nodes if the job
// sets min_gres_cpu, then to min_job_gres_cpu if that is set (whichever
// is larger wins, matching "lifts to" semantics).
func initRemMaxCPUs(job *JobRequest, remNodes int) int64 {
	rem := int64(job.MinCPUs)
	if int64(job.MaxCPUs) > rem {
		rem = int64(job.MaxCPUs)
	}

	if job.MinGresCPU > 0 {
		lifted := int64(job.MinGresCPU) * int64(remNodes)
		if lifted > rem {
			rem = lifted
		}
	}

	if job.MinJobGresCPU > 0 && int64(job.MinJobGresCPU) > rem {
		rem = int64(job.MinJobGresCPU)
	}

	return rem
}
