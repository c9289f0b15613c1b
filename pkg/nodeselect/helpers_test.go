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
	"fmt"

	"github.com/intel/node-scheduler/pkg/nodeset"
)

// uniformNodes builds n nodes, all sharing one sched_weight, each capable
// of contributing cpusEach CPUs.
func uniformNodes(n int, cpusEach uint16, weight uint64) []NodeRecord {
	nodes := make([]NodeRecord, n)
	for i := range nodes {
		nodes[i] = NodeRecord{
			Name:        fmt.Sprintf("node%d", i),
			SchedWeight: weight,
			TotCores:    cpusEach,
			TotSockets:  1,
			CPUs:        cpusEach,
		}
	}
	return nodes
}

// fixedCapacity returns a SelectCoresFunc that reports cap[i] CPUs
// available on node i, unconditionally (no per-request filtering), with
// MaxCPUs pinned to the same capacity.
func fixedCapacity(cap []uint16) SelectCoresFunc {
	return func(ctx *EvalContext, i int, remNodes int) {
		ctx.Avail[i].AvailCPUs = cap[i]
		ctx.Avail[i].MaxCPUs = cap[i]
	}
}

// newEvalContext builds a minimal EvalContext with n candidate nodes, all
// with cpusEach capacity, and a no-op GRES scheduler.
func newEvalContext(n int, cpusEach uint16) *EvalContext {
	cap := make([]uint16, n)
	for i := range cap {
		cap[i] = cpusEach
	}
	return &EvalContext{
		NodeMap:     nodeset.New(rangeInts(n)...),
		Nodes:       uniformNodes(n, cpusEach, 1),
		Avail:       make([]AvailabilityRecord, n),
		SelectCores: fixedCapacity(cap),
	}
}

func rangeInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
