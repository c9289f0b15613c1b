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
	"k8s.io/utils/cpuset"

	"github.com/intel/node-scheduler/pkg/cpuallocator"
)

// NodeLayouts supplies the per-node hardware layout and idle thread set
// a real select_cores collaborator needs, indexed the same way as
// EvalContext.Nodes/Avail. It is the caller's responsibility to build
// this from node-record/sysfs discovery, which spec section 1 scopes
// out of this core.
type NodeLayouts struct {
	Layouts []cpuallocator.Layout
	Idle    []cpuset.CPUSet
}

// NewCPUAllocatorSelectCores implements the select_cores collaborator
// of spec sections 4.2/6 on top of pkg/cpuallocator's greedy tiered
// allocator: for each probed node it tries to allocate
// cpus_per_task * ntasks_per_node hardware threads out of the node's
// idle set (whole idle cores preferred, per the allocator's default
// CR_ONE_TASK_PER_CORE-friendly policy), and writes the allocated count
// back as AvailCPUs. A node with insufficient idle capacity reports
// zero, satisfying "must zero avail_cpus when the node cannot host a
// task".
//
// The probe is idempotent against nl.Idle: one Evaluate call invokes
// select_cores on the same node both while a strategy is only
// estimating a weight tier's capacity and again at actual admission
// time, so this must not itself deplete the idle set — that would
// silently shrink a node's reported capacity the second time it is
// probed. Committing the allocation to the node's real idle-thread
// pool (the documented per-node CPU accounting side effect in spec
// section 1) is the caller's job once a node is genuinely selected.
func NewCPUAllocatorSelectCores(nl NodeLayouts) SelectCoresFunc {
	return func(ctx *EvalContext, i int, remNodes int) {
		avail := &ctx.Avail[i]
		avail.AvailCPUs = 0
		avail.MaxCPUs = ctx.Nodes[i].CPUs

		if i >= len(nl.Layouts) || i >= len(nl.Idle) {
			return
		}

		wanted := wantedCPUs(ctx.Job)
		if wanted <= 0 {
			return
		}

		idle := nl.Idle[i].Clone()
		got, err := cpuallocator.Allocate(nl.Layouts[i], &idle, cpuset.New(), wanted)
		if err != nil {
			return
		}

		avail.AvailCPUs = clampUint16(int64(got.Size()))
	}
}

// wantedCPUs derives the number of hardware threads one node must
// contribute from the job's per-task directives (spec section 3,
// "Multi-core directives"): cpus_per_task times however many tasks the
// job wants packed onto one node, defaulting both to 1 when unset.
func wantedCPUs(job *JobRequest) int {
	perTask := job.CPUsPerTask
	if perTask == 0 {
		perTask = 1
	}
	tasks := job.NTasksPerNode
	if tasks == 0 {
		tasks = 1
	}
	return int(perTask * tasks)
}
