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

package topology

import "github.com/intel/node-scheduler/pkg/nodeset"

// BaseBlock is the finest grouping unit of the hierarchical block
// topology.
type BaseBlock struct {
	Name       string
	NodeBitmap *nodeset.NodeSet
}

// BlockTable is the hierarchical block topology (block_record_table plus
// its associated constants).
type BlockTable struct {
	BaseBlocks []BaseBlock

	// NodeCnt is the constant number of nodes in every base-block
	// (bblock_node_cnt).
	NodeCnt int

	// Levels is a bitmask of legal grouping exponents: bit k set means a
	// block of exactly 2^k base-blocks is an allowed grouping
	// (block_levels).
	Levels uint32

	// AllNodes is the union of every base-block's NodeBitmap
	// (blocks_nodes_bitmap).
	AllNodes *nodeset.NodeSet
}

// HasLevel reports whether exponent k is an allowed block-size exponent.
func (bt *BlockTable) HasLevel(k uint) bool {
	return bt.Levels&(1<<k) != 0
}

// SmallestAllowedLevel returns the smallest exponent k with HasLevel(k)
// true and k >= min, or -1 if none exists.
func (bt *BlockTable) SmallestAllowedLevel(min uint) int {
	for k := min; k < 32; k++ {
		if bt.HasLevel(k) {
			return int(k)
		}
	}
	return -1
}

// Block is a contiguous run of 2^exponent base-blocks, grouped together
// for the purposes of the block strategy's region selection.
type Block struct {
	BaseBlockStart int
	Exponent       int
	NodeBitmap     *nodeset.NodeSet
}

// GroupBlocks partitions bt's base-blocks into blocks of size 2^exponent,
// in table order. The final, possibly short, group still forms a block
// (the original's "treat the whole table as one block" fallback is
// expressed by callers passing an exponent large enough to produce a
// single group).
func (bt *BlockTable) GroupBlocks(exponent int) []Block {
	size := 1 << uint(exponent)
	var blocks []Block

	for start := 0; start < len(bt.BaseBlocks); start += size {
		end := start + size
		if end > len(bt.BaseBlocks) {
			end = len(bt.BaseBlocks)
		}

		bits := nodeset.New()
		for _, bb := range bt.BaseBlocks[start:end] {
			bits = bits.Or(bb.NodeBitmap)
		}

		blocks = append(blocks, Block{
			BaseBlockStart: start,
			Exponent:       exponent,
			NodeBitmap:     bits,
		})
	}

	return blocks
}
