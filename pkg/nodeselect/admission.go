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

	"github.com/hashicorp/go-multierror"

	"github.com/intel/node-scheduler/pkg/config"
)

// admit runs the shared admission protocol (spec section 4.2) for
// candidate index i: probe it via select_cores/cpus_to_use, commit its
// GRES contribution, decrement the remainders, and set its bit in
// ctx.NodeMap. It returns false if the node could not contribute any
// CPUs and was therefore rejected.
func (ctx *EvalContext) admit(i int) bool {
	ctx.SelectCores(ctx, i, ctx.remNodes)

	avail := &ctx.Avail[i]
	if avail.AvailCPUs == 0 {
		return false
	}

	ctx.cpusToUse(i)

	if ctx.gresNeeded {
		wide := uint32(avail.AvailCPUs)
		ctx.GRES.Add(ctx.Job.GRESListReq, avail.SockGRESList, &wide)
		avail.AvailCPUs = clampUint16(int64(wide))
	}

	ctx.remNodes--
	ctx.minRemNodes--
	ctx.maxNodesRem--
	ctx.remCPUs -= int64(avail.AvailCPUs)
	ctx.remMaxCPUs -= int64(avail.AvailCPUs)

	ctx.NodeMap.Set(i)

	return true
}

// cpusToUse implements spec section 4.2 step 2: unless whole_node is on,
// reserve CPUs for future admissions and clamp avail_cpus down to
// rem_max_cpus less that reservation, but never below the larger of
// pn_min_cpus and the GRES-derived minimum.
func (ctx *EvalContext) cpusToUse(i int) {
	avail := &ctx.Avail[i]

	if ctx.Job.WholeNode == WholeNodeOn {
		return
	}

	reserve := coresPerFutureNode(ctx, i) * int64(ctx.remNodes-1)
	if reserve < 0 {
		reserve = 0
	}

	ceiling := ctx.remMaxCPUs - reserve
	if ceiling < 0 {
		ceiling = 0
	}

	floor := int64(ctx.Job.PnMinCPUs)
	gresFloor := int64(avail.GRESMinCPUs)
	if gresFloor == 0 {
		gresFloor = int64(ctx.Job.MinGresCPU)
	}
	if gresFloor > floor {
		floor = gresFloor
	}
	if ceiling < floor {
		ceiling = floor
	}

	if int64(avail.AvailCPUs) > ceiling {
		avail.AvailCPUs = clampUint16(ceiling)
	}
}

// coresPerFutureNode implements the CR_SOCKET/CR_CORE distinction
// supplemented from the original source (SPEC_FULL section C.4): under
// CR_SOCKET the reservation is counted in whole sockets' worth of cores,
// otherwise a single core.
func coresPerFutureNode(ctx *EvalContext, i int) int64 {
	rec := ctx.Nodes[i]
	if ctx.CRType.Has(config.CRSocket) && rec.TotSockets > 0 {
		return int64(rec.TotCores / rec.TotSockets)
	}
	return 1
}

func clampUint16(v int64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xffff {
		return 0xffff
	}
	return uint16(v)
}

// sufficient implements the sufficiency test shared by every strategy:
// rem_nodes <= 0 && rem_cpus <= 0 && gres_sched_test(...).
func (ctx *EvalContext) sufficient() bool {
	if ctx.remNodes > 0 || ctx.remCPUs > 0 {
		return false
	}
	if !ctx.gresNeeded {
		return true
	}
	return ctx.GRES.Test(ctx.Job.GRESListReq)
}

// resetToRequired clears every admitted bit except the required set. It
// implements the topo/block/consec failure post-state documented in spec
// section 4 ("shared-resource discipline"): unlike busy/lln/serial/spread,
// which clear node_map entirely on failure, these three strategies reduce
// it back to just the required subset instead of discarding it outright.
func (ctx *EvalContext) resetToRequired() {
	req := ctx.Job.ReqNodeBitmap
	if req == nil {
		ctx.NodeMap.Clear()
		return
	}
	ctx.NodeMap = req.Copy()
}

// admitRequired unconditionally admits every node in the required set
// (spec section 4.2's required-node admission), failing if any required
// node cannot contribute resources. Unlike the rest of the admission
// protocol, this does not stop at the first failure: every required node
// gets a chance to admit, and any that come up zero are aggregated into a
// single diagnostic so the caller sees the whole required set's shortfall
// at once rather than one node at a time across repeated submissions. The
// caller is responsible for the topology-region check (required-set-
// within-one-subtree/block).
func (ctx *EvalContext) admitRequired() error {
	if ctx.Job.ReqNodeBitmap == nil {
		return nil
	}

	var failures *multierror.Error
	for _, i := range ctx.Job.ReqNodeBitmap.Members() {
		if ctx.NodeMap.Test(i) {
			continue
		}
		if !ctx.admit(i) {
			evalWarnRL.Warn("required node %q has zero avail_cpus (remaining candidates %s)", ctx.Nodes[i].Name, shortNodeSet(ctx.candidates.AndNot(ctx.NodeMap)))
			failures = multierror.Append(failures, fmt.Errorf("required node %q contributes zero CPUs", ctx.Nodes[i].Name))
		}
	}

	if failures != nil {
		return newEvalError(ErrRequiredUnavailable, "%s", failures.Error())
	}

	return nil
}
