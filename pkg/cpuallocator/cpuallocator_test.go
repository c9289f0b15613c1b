// Copyright 2020 Intel Corporation. All Rights Reserved.
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

package cpuallocator

import (
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/utils/cpuset"
)

func singleThreadLayout(ids ...int) Layout {
	cores := make([]Core, len(ids))
	for i, id := range ids {
		cores[i] = Core{ID: id, Threads: []int{id}}
	}
	return Layout{Cores: cores}
}

func TestAllocateTooFew(t *testing.T) {
	from := cpuset.New(2, 3, 10, 11, 12, 13, 14, 20)
	_, err := Allocate(singleThreadLayout(2, 3, 10, 11, 12, 13, 14, 20), &from, cpuset.New(), 9)
	require.Error(t, err)
}

func TestAllocateAll(t *testing.T) {
	from := cpuset.New(2, 3, 10, 11)
	result, err := Allocate(singleThreadLayout(2, 3, 10, 11), &from, cpuset.New(2, 3), 4)
	require.NoError(t, err)
	require.True(t, result.Equals(cpuset.New(2, 3, 10, 11)))
	require.True(t, from.IsEmpty())
}

func TestAllocatePrefersPreferred(t *testing.T) {
	from := cpuset.New(2, 3, 10, 11, 12, 13, 14, 20)
	result, err := Allocate(singleThreadLayout(2, 3, 10, 11, 12, 13, 14, 20), &from, cpuset.New(10, 13, 20, 23), 4)
	require.NoError(t, err)
	require.Equal(t, 4, result.Size())
	require.True(t, result.Contains(10))
	require.True(t, result.Contains(13))
	require.True(t, result.Contains(20))
}

func TestAllocatePrefersWholeCores(t *testing.T) {
	layout := Layout{Cores: []Core{
		{ID: 0, Threads: []int{0, 1}},
		{ID: 1, Threads: []int{2}},
	}}
	from := cpuset.New(0, 1, 2)
	result, err := Allocate(layout, &from, cpuset.New(), 2)
	require.NoError(t, err)
	require.True(t, result.Equals(cpuset.New(0, 1)), "expected whole idle core (0,1), got %s", result)
}

func TestRelease(t *testing.T) {
	keep := cpuset.New(0, 1, 2, 3)
	released, err := Release(&keep, 2)
	require.NoError(t, err)
	require.Equal(t, 2, released.Size())
	require.Equal(t, 2, keep.Size())
}
