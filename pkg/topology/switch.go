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

// Package topology models the two topology shapes the node-selection
// core can place jobs under: a general switch tree (topo/dfly
// strategies) and a hierarchical block topology (block strategy). The
// core consumes a prebuilt instance of either; construction from raw
// hardware/network discovery is out of scope, exactly as node-record and
// switch-record construction is for the node set itself.
package topology

import "github.com/intel/node-scheduler/pkg/nodeset"

// Infinite marks an unreachable inter-switch hop distance.
const Infinite = -1

// Switch is one node of the general switch tree. Level 0 is a leaf
// switch directly connected to compute nodes; the root is the single
// switch that is its own parent.
type Switch struct {
	Name       string
	Level      int
	Parent     int // index into Tree.Switches; self-referential at the root
	NodeBitmap *nodeset.NodeSet
	LinkSpeed  uint32

	// Dist holds the inter-switch hop distance to every other switch in
	// the table, indexed the same way; Infinite marks unreachable pairs.
	Dist []int
}

// Tree is the general switch tree (switch_record_table).
type Tree struct {
	Switches []Switch
}

// RootIndex returns the index of the (first) switch that is its own
// parent, or -1 if the tree is empty or malformed.
func (t *Tree) RootIndex() int {
	for i, sw := range t.Switches {
		if sw.Parent == i {
			return i
		}
	}
	return -1
}

// Leaves returns the indices of every level-0 switch.
func (t *Tree) Leaves() []int {
	var leaves []int
	for i, sw := range t.Switches {
		if sw.Level == 0 {
			leaves = append(leaves, i)
		}
	}
	return leaves
}

// Ancestors returns the path from switch i up to (and including) the
// root, starting with i itself.
func (t *Tree) Ancestors(i int) []int {
	path := []int{i}
	for {
		p := t.Switches[i].Parent
		if p == i {
			return path
		}
		path = append(path, p)
		i = p
	}
}

// CommonAncestor returns the lowest switch that is an ancestor of both a
// and b (possibly the root, possibly a or b itself).
func (t *Tree) CommonAncestor(a, b int) int {
	ancestorsA := t.Ancestors(a)
	seen := make(map[int]bool, len(ancestorsA))
	for _, x := range ancestorsA {
		seen[x] = true
	}
	for _, x := range t.Ancestors(b) {
		if seen[x] {
			return x
		}
	}
	return t.RootIndex()
}

// Distance returns the inter-switch hop distance between a and b, or
// Infinite if unreachable or out of range.
func (t *Tree) Distance(a, b int) int {
	if a < 0 || a >= len(t.Switches) {
		return Infinite
	}
	dist := t.Switches[a].Dist
	if b < 0 || b >= len(dist) {
		return Infinite
	}
	return dist[b]
}

// Subtree returns every switch index in the subtree rooted at i
// (inclusive), computed from Parent links.
func (t *Tree) Subtree(i int) []int {
	var members []int
	for j := range t.Switches {
		for _, a := range t.Ancestors(j) {
			if a == i {
				members = append(members, j)
				break
			}
		}
	}
	return members
}
