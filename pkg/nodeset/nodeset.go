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

// Package nodeset implements the candidate/selected node bitmap used by
// the node-selection core. It is a thin, mutable wrapper around the
// immutable k8s.io/utils/cpuset.CPUSet so that admission code can set and
// clear individual node indices in place instead of threading new CPUSet
// values through every call site.
package nodeset

import (
	"sort"

	"k8s.io/utils/cpuset"
)

// NodeSet is a bitmap over node indices 0..N-1 of the static node record
// table. The zero value is the empty set.
type NodeSet struct {
	cset cpuset.CPUSet
}

// New returns a NodeSet containing exactly the given indices.
func New(indices ...int) *NodeSet {
	return &NodeSet{cset: cpuset.New(indices...)}
}

// FromCPUSet wraps an existing cpuset.CPUSet as a NodeSet.
func FromCPUSet(cset cpuset.CPUSet) *NodeSet {
	return &NodeSet{cset: cset}
}

// CPUSet returns the underlying immutable cpuset.CPUSet.
func (s *NodeSet) CPUSet() cpuset.CPUSet {
	if s == nil {
		return cpuset.New()
	}
	return s.cset
}

// Copy returns an independent copy of s.
func (s *NodeSet) Copy() *NodeSet {
	if s == nil {
		return New()
	}
	return &NodeSet{cset: s.cset.Clone()}
}

// Test reports whether index i is set.
func (s *NodeSet) Test(i int) bool {
	if s == nil {
		return false
	}
	return s.cset.Contains(i)
}

// Set adds the given indices to the set.
func (s *NodeSet) Set(indices ...int) {
	s.cset = s.cset.Union(cpuset.New(indices...))
}

// Clear removes the given indices from the set. With no arguments, it
// empties the set entirely.
func (s *NodeSet) Clear(indices ...int) {
	if len(indices) == 0 {
		s.cset = cpuset.New()
		return
	}
	s.cset = s.cset.Difference(cpuset.New(indices...))
}

// Count returns the number of set bits (popcount).
func (s *NodeSet) Count() int {
	if s == nil {
		return 0
	}
	return s.cset.Size()
}

// IsEmpty reports whether no bit is set.
func (s *NodeSet) IsEmpty() bool {
	return s.Count() == 0
}

// First returns the lowest set index, or -1 if the set is empty.
func (s *NodeSet) First() int {
	ids := s.sorted()
	if len(ids) == 0 {
		return -1
	}
	return ids[0]
}

// Last returns the highest set index, or -1 if the set is empty.
func (s *NodeSet) Last() int {
	ids := s.sorted()
	if len(ids) == 0 {
		return -1
	}
	return ids[len(ids)-1]
}

// Next returns the lowest set index strictly greater than after, or -1.
func (s *NodeSet) Next(after int) int {
	for _, id := range s.sorted() {
		if id > after {
			return id
		}
	}
	return -1
}

// Members returns the set bits, sorted ascending.
func (s *NodeSet) Members() []int {
	return s.sorted()
}

func (s *NodeSet) sorted() []int {
	if s == nil {
		return nil
	}
	ids := s.cset.List()
	sort.Ints(ids)
	return ids
}

// Equal reports whether s and other contain exactly the same bits.
func (s *NodeSet) Equal(other *NodeSet) bool {
	return s.CPUSet().Equals(other.CPUSet())
}

// Superset reports whether s contains every bit of other.
func (s *NodeSet) Superset(other *NodeSet) bool {
	if other == nil || other.IsEmpty() {
		return true
	}
	if s == nil {
		return false
	}
	return other.cset.IsSubsetOf(s.cset)
}

// Overlap reports whether s and other share at least one set bit.
func (s *NodeSet) Overlap(other *NodeSet) bool {
	if s == nil || other == nil {
		return false
	}
	return !s.cset.Intersection(other.cset).IsEmpty()
}

// And returns s ∩ other as a new NodeSet.
func (s *NodeSet) And(other *NodeSet) *NodeSet {
	if s == nil || other == nil {
		return New()
	}
	return &NodeSet{cset: s.cset.Intersection(other.cset)}
}

// Or returns s ∪ other as a new NodeSet.
func (s *NodeSet) Or(other *NodeSet) *NodeSet {
	if other == nil {
		return s.Copy()
	}
	if s == nil {
		return other.Copy()
	}
	return &NodeSet{cset: s.cset.Union(other.cset)}
}

// AndNot returns s \ other as a new NodeSet.
func (s *NodeSet) AndNot(other *NodeSet) *NodeSet {
	if s == nil {
		return New()
	}
	if other == nil {
		return s.Copy()
	}
	return &NodeSet{cset: s.cset.Difference(other.cset)}
}

// String renders the set in cpuset-list notation, e.g. "0-2,5".
func (s *NodeSet) String() string {
	if s == nil {
		return ""
	}
	return s.cset.String()
}
