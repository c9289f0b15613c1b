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
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/utils/cpuset"

	"github.com/intel/node-scheduler/pkg/config"
	"github.com/intel/node-scheduler/pkg/cpuallocator"
	"github.com/intel/node-scheduler/pkg/nodeset"
)

// dualCoreLayout gives each node two 2-thread cores (4 hardware threads
// total), matching NodeRecord.CPUs = 4 in the tests below.
func dualCoreLayout() cpuallocator.Layout {
	return cpuallocator.Layout{Cores: []cpuallocator.Core{
		{ID: 0, Threads: []int{0, 1}},
		{ID: 1, Threads: []int{2, 3}},
	}}
}

// TestCPUAllocatorSelectCoresEndToEnd wires the real
// pkg/cpuallocator-backed SelectCores collaborator (instead of the
// synthetic fixedCapacity test helper) into a full Evaluate call, to
// exercise the select_cores/cpus_to_use admission path against the
// teacher's own greedy tiered allocator rather than a stub.
func TestCPUAllocatorSelectCoresEndToEnd(t *testing.T) {
	config.Set(config.Toggles{})

	nl := NodeLayouts{
		Layouts: []cpuallocator.Layout{dualCoreLayout(), dualCoreLayout(), dualCoreLayout()},
		Idle:    []cpuset.CPUSet{cpuset.New(0, 1, 2, 3), cpuset.New(0, 1, 2, 3), cpuset.New(0, 1)},
	}

	ctx := &EvalContext{
		NodeMap: nodeset.New(0, 1, 2),
		Nodes: []NodeRecord{
			{Name: "node0", SchedWeight: 1, CPUs: 4, TotCores: 2, TotSockets: 1},
			{Name: "node1", SchedWeight: 1, CPUs: 4, TotCores: 2, TotSockets: 1},
			{Name: "node2", SchedWeight: 1, CPUs: 4, TotCores: 2, TotSockets: 1},
		},
		Avail:       make([]AvailabilityRecord, 3),
		SelectCores: NewCPUAllocatorSelectCores(nl),
	}
	ctx.Job = &JobRequest{
		MinNodes:    2,
		ReqNodes:    2,
		MaxNodes:    3,
		MinCPUs:     4,
		CPUsPerTask: 2,
	}

	err := Evaluate(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, ctx.NodeMap.Count())
	for _, i := range ctx.NodeMap.Members() {
		require.EqualValues(t, 2, ctx.Avail[i].AvailCPUs, "node %d", i)
	}
}

// A node whose idle set can't satisfy cpus_per_task reports zero
// AvailCPUs and is therefore skipped, exactly as section 6 requires.
func TestCPUAllocatorSelectCoresZerosStarvedNode(t *testing.T) {
	sc := NewCPUAllocatorSelectCores(NodeLayouts{
		Layouts: []cpuallocator.Layout{dualCoreLayout()},
		Idle:    []cpuset.CPUSet{cpuset.New(0)},
	})

	ctx := &EvalContext{
		Nodes: []NodeRecord{{CPUs: 4}},
		Avail: make([]AvailabilityRecord, 1),
		Job:   &JobRequest{CPUsPerTask: 2},
	}

	sc(ctx, 0, 1)
	require.EqualValues(t, 0, ctx.Avail[0].AvailCPUs)
}
