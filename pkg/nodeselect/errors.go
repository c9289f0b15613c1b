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

	"github.com/pkg/errors"

	"github.com/intel/node-scheduler/pkg/nodeset"
	"github.com/intel/node-scheduler/pkg/utils/cpuset"
)

// shortNodeSet renders ns using the teacher's shortened cpuset notation
// (range-collapsed, e.g. "0-3,8") instead of nodeset.NodeSet's plain
// String(), for compact diagnostics that name the nodes involved.
func shortNodeSet(ns *nodeset.NodeSet) string {
	return cpuset.ShortCPUSet(ns.CPUSet())
}

// ErrorKind distinguishes why Evaluate failed. The public contract is
// still a binary success/error outcome; ErrorKind lets callers and tests
// branch on cause without parsing diagnostic text.
type ErrorKind int

const (
	// ErrRequiredUnavailable: req_node_bitmap is not a subset of the
	// candidates, or a required node has zero avail_cpus.
	ErrRequiredUnavailable ErrorKind = iota
	// ErrRequiredExcess: popcount(req_node_bitmap) > max_nodes.
	ErrRequiredExcess
	// ErrEmptyCandidates: popcount(candidates) < min_nodes.
	ErrEmptyCandidates
	// ErrTopologySplit: the required set does not fit under one top
	// switch/block.
	ErrTopologySplit
	// ErrInsufficientPool: the best weight-tier accumulation does not
	// reach rem_cpus/rem_nodes/GRES demand.
	ErrInsufficientPool
	// ErrExhaustedBudget: max_nodes was hit before sufficiency.
	ErrExhaustedBudget
	// ErrStalled: a progressive fill pass made no progress.
	ErrStalled
	// ErrTopSwitchUnknown: no top switch could be selected (disjoint
	// topology).
	ErrTopSwitchUnknown
	// ErrSchedulingAnomaly: required + priority promotion already
	// satisfied the request without further admission. This is logged
	// as an error but Evaluate still returns success.
	ErrSchedulingAnomaly
)

func (k ErrorKind) String() string {
	switch k {
	case ErrRequiredUnavailable:
		return "required-unavailable"
	case ErrRequiredExcess:
		return "required-excess"
	case ErrEmptyCandidates:
		return "empty-candidates"
	case ErrTopologySplit:
		return "topology-split"
	case ErrInsufficientPool:
		return "insufficient-pool"
	case ErrExhaustedBudget:
		return "exhausted-budget"
	case ErrStalled:
		return "stalled"
	case ErrTopSwitchUnknown:
		return "top-switch-unknown"
	case ErrSchedulingAnomaly:
		return "scheduling-anomaly"
	default:
		return "unknown"
	}
}

// EvalError is the typed failure Evaluate returns.
type EvalError struct {
	Kind ErrorKind
	msg  string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func newEvalError(kind ErrorKind, format string, args ...interface{}) error {
	return errors.WithStack(&EvalError{Kind: kind, msg: fmt.Sprintf(format, args...)})
}

// KindOf extracts the ErrorKind from err, if err (or something it wraps)
// is an *EvalError.
func KindOf(err error) (ErrorKind, bool) {
	var evalErr *EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Kind, true
	}
	return 0, false
}

// insufficiencyKind distinguishes the two ways a strategy can fail to
// reach sufficiency after its fill pass: the pool was exhausted with
// max_nodes still to spare (insufficient-pool), versus untried
// candidates remained but max_nodes was hit first (exhausted-budget).
func insufficiencyKind(ctx *EvalContext) ErrorKind {
	if ctx.maxNodesRem <= 0 && ctx.candidates.AndNot(ctx.NodeMap).Count() > 0 {
		return ErrExhaustedBudget
	}
	return ErrInsufficientPool
}

// logSchedulingAnomaly implements the scheduling-anomaly row of spec
// section 7: required-node admission (plus whatever priority promotion
// already ran) satisfied the request before the strategy did any further
// admission of its own. That is surprising enough to flag, but it is not
// a failure: Evaluate still returns success for the caller.
func logSchedulingAnomaly(ctx *EvalContext, strategyName string) {
	evalLog.Error("%s: %s: required nodes %s already satisfy the request with no further admission", strategyName, ErrSchedulingAnomaly, shortNodeSet(ctx.Job.ReqNodeBitmap))
}
