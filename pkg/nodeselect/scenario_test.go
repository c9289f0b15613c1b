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

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/intel/node-scheduler/pkg/config"
	"github.com/intel/node-scheduler/pkg/nodeset"
	"github.com/intel/node-scheduler/pkg/topology"
)

// nodeSnapshot is the projection of one selected node's outcome that the
// scenario tests below deep-compare against an expected snapshot: which
// node, and how many CPUs admission committed it for.
type nodeSnapshot struct {
	Node      string
	AvailCPUs uint16
}

// snapshotOf captures ctx.NodeMap's selected nodes as nodeSnapshots, in
// ascending index order.
func snapshotOf(ctx *EvalContext) []nodeSnapshot {
	out := make([]nodeSnapshot, 0, ctx.NodeMap.Count())
	for _, i := range ctx.NodeMap.Members() {
		out = append(out, nodeSnapshot{Node: ctx.Nodes[i].Name, AvailCPUs: ctx.Avail[i].AvailCPUs})
	}
	return out
}

// Scenario 1: plain consec. 8 nodes, weight 1, 4 CPUs each; min_nodes=2,
// req_nodes=2, min_cpus=8; no topology. Expected: nodes {0,1}.
func TestScenarioPlainConsec(t *testing.T) {
	config.Set(config.Toggles{})

	ctx := newEvalContext(8, 4)
	ctx.Job = &JobRequest{MinNodes: 2, ReqNodes: 2, MaxNodes: 8, MinCPUs: 8}

	err := Evaluate(ctx)
	require.NoError(t, err)
	require.True(t, ctx.NodeMap.Equal(nodeset.New(0, 1)), "got %s", ctx.NodeMap)
	require.EqualValues(t, 4, ctx.Avail[0].AvailCPUs)
	require.EqualValues(t, 4, ctx.Avail[1].AvailCPUs)

	want := []nodeSnapshot{{Node: "node0", AvailCPUs: 4}, {Node: "node1", AvailCPUs: 4}}
	if diff := cmp.Diff(want, snapshotOf(ctx)); diff != "" {
		t.Errorf("selected node snapshot mismatch (-want +got):\n%s", diff)
	}
}

// Scenario 3: block power-of-two rounding. bblock_node_cnt=4,
// block_levels allows exponents 1 and 3; requesting 5 nodes snaps the
// naive exponent (ceil(log2(ceil(5/4))) = 1) up to the nearest allowed
// exponent, which is already 1.
func TestScenarioBlockPowerOfTwoRounding(t *testing.T) {
	bt := &topology.BlockTable{NodeCnt: 4, Levels: 0b1010}
	require.Equal(t, 1, blockExponent(bt, 5))
}

// Scenario 4: LLN tie-breaking. A (avail=4, total=8) and B (avail=3,
// total=4); B's ratio is higher (3/4 > 4/8, i.e. 3*8 > 4*4) and must sort
// first.
func TestScenarioLLNTieBreak(t *testing.T) {
	ctx := &EvalContext{
		Avail: []AvailabilityRecord{
			{AvailCPUs: 4, MaxCPUs: 8},
			{AvailCPUs: 3, MaxCPUs: 4},
		},
	}
	require.True(t, lessLoaded(ctx, 1, 0), "B (index 1) should be preferred over A (index 0)")
	require.False(t, lessLoaded(ctx, 0, 1))
}

// Scenario 5: insufficient after required. Candidates {0,1,2}, 2 CPUs
// each, required={0}, min_cpus=10: after admitting the required node and
// exhausting the pool, total CPUs is 6 < 10. The consec strategy leaves
// node_map reduced to the required set on failure.
func TestScenarioInsufficientAfterRequired(t *testing.T) {
	config.Set(config.Toggles{})

	ctx := newEvalContext(3, 2)
	ctx.Job = &JobRequest{
		MinNodes:      1,
		ReqNodes:      1,
		MaxNodes:      3,
		MinCPUs:       10,
		ReqNodeBitmap: nodeset.New(0),
	}

	err := Evaluate(ctx)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, ErrInsufficientPool, kind)
	require.True(t, ctx.NodeMap.Equal(nodeset.New(0)), "got %s", ctx.NodeMap)
}

// Scenario 6: pack-serial-at-end. 10 nodes, weight 1, 1 CPU each;
// min_cpus=1, req_nodes=1, pack_serial_at_end=true. Expected: selected =
// {9}.
func TestScenarioPackSerialAtEnd(t *testing.T) {
	config.Set(config.Toggles{PackSerialAtEnd: true})
	defer config.Set(config.Toggles{})

	ctx := newEvalContext(10, 1)
	ctx.Job = &JobRequest{MinNodes: 1, ReqNodes: 1, MaxNodes: 10, MinCPUs: 1}

	err := Evaluate(ctx)
	require.NoError(t, err)
	require.True(t, ctx.NodeMap.Equal(nodeset.New(9)), "got %s", ctx.NodeMap)
}

// Scenario 2: required spanning split. 4 nodes per leaf switch, two
// leaves under one root; req_node_bitmap={0,4}, min_nodes=2. The topo
// strategy must find the root as the top switch and succeed with
// selected = {0,4}.
func TestScenarioRequiredSpanningSplit(t *testing.T) {
	config.Set(config.Toggles{})

	tree := &topology.Tree{Switches: []topology.Switch{
		{Name: "leaf0", Level: 0, Parent: 2, NodeBitmap: nodeset.New(0, 1, 2, 3), Dist: []int{0, 2, 1}},
		{Name: "leaf1", Level: 0, Parent: 2, NodeBitmap: nodeset.New(4, 5, 6, 7), Dist: []int{2, 0, 1}},
		{Name: "root", Level: 1, Parent: 2, NodeBitmap: nodeset.New(0, 1, 2, 3, 4, 5, 6, 7), Dist: []int{1, 1, 0}},
	}}

	ctx := newEvalContext(8, 4)
	ctx.SwitchTree = tree
	ctx.Job = &JobRequest{
		MinNodes:      2,
		ReqNodes:      2,
		MaxNodes:      8,
		MinCPUs:       8,
		ReqNodeBitmap: nodeset.New(0, 4),
	}

	err := Evaluate(ctx)
	require.NoError(t, err)
	require.True(t, ctx.NodeMap.Equal(nodeset.New(0, 4)), "got %s", ctx.NodeMap)
	require.True(t, ctx.Job.BestSwitch)

	want := []nodeSnapshot{{Node: "node0", AvailCPUs: 4}, {Node: "node4", AvailCPUs: 4}}
	if diff := cmp.Diff(want, snapshotOf(ctx)); diff != "" {
		t.Errorf("selected node snapshot mismatch (-want +got):\n%s", diff)
	}
}

// Exhausted-budget vs. insufficient-pool: 5 candidates, 1 CPU each, but
// max_nodes=2 caps admission to 2 nodes while 3 candidates remain
// untried. The shortfall is because the budget ran out, not because the
// pool was drained, so the failure kind must be exhausted-budget.
func TestScenarioExhaustedBudget(t *testing.T) {
	config.Set(config.Toggles{})

	ctx := newEvalContext(5, 1)
	ctx.Job = &JobRequest{MinNodes: 1, ReqNodes: 1, MaxNodes: 2, MinCPUs: 10}

	err := Evaluate(ctx)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, ErrExhaustedBudget, kind)
}

// Scheduling anomaly: the required node alone already satisfies the
// request before the lln strategy does any further admission of its
// own. Evaluate still succeeds; the corner case is only surprising
// enough to log.
func TestScenarioSchedulingAnomaly(t *testing.T) {
	config.Set(config.Toggles{CRType: config.CRLLN})
	defer config.Set(config.Toggles{})

	ctx := newEvalContext(2, 4)
	ctx.Job = &JobRequest{
		MinNodes:      1,
		ReqNodes:      1,
		MaxNodes:      2,
		MinCPUs:       4,
		ReqNodeBitmap: nodeset.New(0),
	}

	err := Evaluate(ctx)
	require.NoError(t, err)
	require.True(t, ctx.NodeMap.Equal(nodeset.New(0)), "got %s", ctx.NodeMap)
}
