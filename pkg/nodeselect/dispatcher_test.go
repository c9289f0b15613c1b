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

	"github.com/intel/node-scheduler/pkg/config"
	"github.com/intel/node-scheduler/pkg/nodeset"
	"github.com/intel/node-scheduler/pkg/topology"
)

func TestStrategyForDispatchTable(t *testing.T) {
	leafTree := &topology.Tree{Switches: []topology.Switch{
		{Name: "leaf", Level: 0, Parent: 0, NodeBitmap: nodeset.New(0, 1, 2, 3), Dist: []int{0}},
	}}

	cases := []struct {
		name    string
		ctx     *EvalContext
		toggles config.Toggles
		want    string
	}{
		{
			name: "block table overlap wins first",
			ctx: &EvalContext{
				Job:        &JobRequest{},
				BlockTable: &topology.BlockTable{AllNodes: nodeset.New(0, 1)},
			},
			want: "block",
		},
		{
			name: "spread job",
			ctx: &EvalContext{
				Job: &JobRequest{SpreadJob: true},
			},
			want: "spread",
		},
		{
			name: "prefer alloc nodes, non-contiguous",
			ctx: &EvalContext{
				Job: &JobRequest{PreferAllocNodes: true},
			},
			want: "busy",
		},
		{
			name:    "CR_LLN toggle",
			ctx:     &EvalContext{Job: &JobRequest{}},
			toggles: config.Toggles{CRType: config.CRLLN},
			want:    "lln",
		},
		{
			name:    "pack serial at end",
			ctx:     &EvalContext{Job: &JobRequest{MinCPUs: 1, ReqNodes: 1}},
			toggles: config.Toggles{PackSerialAtEnd: true},
			want:    "serial",
		},
		{
			name: "switch tree present, mandatory topo",
			ctx: &EvalContext{
				Job:        &JobRequest{},
				SwitchTree: leafTree,
			},
			want: "topo",
		},
		{
			name: "switch tree present, dragonfly toggle",
			ctx: &EvalContext{
				Job:        &JobRequest{},
				SwitchTree: leafTree,
			},
			toggles: config.Toggles{Dragonfly: true},
			want:    "dfly",
		},
		{
			name: "contiguous job skips topology even with a switch tree",
			ctx: &EvalContext{
				Job:        &JobRequest{Contiguous: true},
				SwitchTree: leafTree,
			},
			want: "consec",
		},
		{
			name: "no topology at all falls through to consec",
			ctx: &EvalContext{
				Job: &JobRequest{},
			},
			want: "consec",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config.Set(tc.toggles)
			defer config.Set(config.Toggles{})

			_, name := tc.ctx.strategyFor(nodeset.New(0, 1, 2, 3))
			require.Equal(t, tc.want, name)
		})
	}
}
