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

// Package nodeselect is the node-selection core of the scheduling
// plugin: given a pool of candidate compute nodes and a pending job's
// resource request, it chooses a subset of nodes that satisfies the
// request under one of seven placement strategies, mutating the
// candidate bitmap and the per-node availability/GRES accounting in
// place.
package nodeselect

import (
	"time"

	"github.com/intel/node-scheduler/pkg/config"
	"github.com/intel/node-scheduler/pkg/gres"
	"github.com/intel/node-scheduler/pkg/nodeset"
	"github.com/intel/node-scheduler/pkg/topology"
)

// WholeNode controls whether a node, once admitted, contributes all of
// its CPUs regardless of the job's per-task request.
type WholeNode int

const (
	// WholeNodeOff clamps avail_cpus to the job's per-node request.
	WholeNodeOff WholeNode = iota
	// WholeNodeOn makes cpus_to_use a no-op: a node contributes every
	// CPU select_cores reported.
	WholeNodeOn
)

// NodeRecord is the read-only per-node static information the core
// consults. Construction from hardware/network discovery is out of
// scope; callers supply an already-built table.
type NodeRecord struct {
	Name         string
	SchedWeight  uint64
	Cores        uint16
	TotCores     uint16
	TotSockets   uint16
	Boards       uint16
	TPC          uint16 // threads per core
	CoreSpecCnt  uint16
	CPUs         uint16
}

// AvailabilityRecord is the mutable, per-node accounting the admission
// protocol reads and writes during one evaluation.
type AvailabilityRecord struct {
	AvailCPUs    uint16
	MaxCPUs      uint16
	AvailGPUs    uint16
	SockGRESList gres.SockList
	GRESMinCPUs  uint16
	GRESMaxTasks uint16
}

// AvailResCnt is the derived avail_cpus + avail_gpus total.
func (a AvailabilityRecord) AvailResCnt() uint16 {
	return a.AvailCPUs + a.AvailGPUs
}

// JobRequest is the immutable snapshot of the pending job's resource
// request that drives one evaluation. ReqNodeBitmap, GRESListReq, and
// the topology fields may be nil/zero when not applicable.
type JobRequest struct {
	MinCPUs       uint32
	MaxCPUs       uint32
	NumTasks      uint32
	PnMinCPUs     uint32
	MinGresCPU    uint32
	MinJobGresCPU uint32

	MinNodes int
	MaxNodes int
	ReqNodes int

	ReqNodeBitmap *nodeset.NodeSet

	Contiguous bool
	WholeNode  WholeNode
	Overcommit bool

	// ArbitraryTPN overrides the per-task count for a required node
	// index; consec strategy only.
	ArbitraryTPN map[int]uint32

	GRESListReq []gres.Request

	CPUsPerTask    uint32
	NTasksPerNode  uint32
	NTasksPerBoard uint32
	NTasksPerSocket uint32
	NTasksPerCore  uint32
	NTasksPerTRES  uint32

	ReqSwitch        int
	Wait4Switch      time.Duration
	Wait4SwitchStart time.Time
	SpreadJob        bool

	// PreferAllocNodes selects the busy strategy when set together with
	// a non-contiguous request (dispatcher rule 3).
	PreferAllocNodes bool

	// BestSwitch is an output: set true when the topo/dfly strategy
	// accepted its plan outright, false when it is deferring to a
	// smaller leaf count because wait4switch has not yet elapsed.
	BestSwitch bool
}

// SelectCoresFunc is the opaque select_cores collaborator: it computes
// avail_cpus (honoring ntasks_per_*, cpus_per_task, whole_node,
// CR_ONE_TASK_PER_CORE, and, when the job has GRES, the socket/core GRES
// filter) and writes it, along with gres_min_cpus/gres_max_tasks, onto
// the node's availability record. It must zero AvailCPUs when the node
// cannot host a task.
type SelectCoresFunc func(ctx *EvalContext, nodeInx int, remNodes int)

// EvalContext bundles everything one Evaluate call needs: the mutable
// candidate/selected bitmap, per-node accounting, the job snapshot, size
// targets, and the collaborators invoked during admission.
type EvalContext struct {
	// NodeMap is the candidate bitmap on entry and the selected bitmap
	// on a successful return.
	NodeMap *nodeset.NodeSet

	Nodes []NodeRecord
	Avail []AvailabilityRecord

	Job *JobRequest

	// MinNodes/ReqNodes/MaxNodes are working copies of the job's size
	// targets; topo's checkpoint/restart loop mutates ReqNodes.
	MinNodes int
	ReqNodes int
	MaxNodes int

	CRType config.CRType

	SwitchTree  *topology.Tree
	BlockTable  *topology.BlockTable
	IdleNodes   *nodeset.NodeSet // nodes considered already idle, for busy

	SelectCores SelectCoresFunc
	GRES        gres.Scheduler

	// remainders, reset at the start of Evaluate and updated by the
	// shared admission protocol.
	remNodes    int
	remCPUs     int64
	remMaxCPUs  int64
	minRemNodes int
	maxNodesRem int

	gresBucket gres.Bucket
	gresNeeded bool

	// candidates is the frozen input bitmap for the current Evaluate
	// call; NodeMap itself is cleared and rebuilt as the selected set.
	candidates *nodeset.NodeSet
}
