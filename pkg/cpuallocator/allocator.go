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

// Package cpuallocator implements the greedy, tiered CPU-thread
// allocator the node-selection core's select_cores/cpus_to_use
// collaborators use to decide which hardware threads on a single
// candidate node a job may actually bind to. It has no notion of the
// node-selection core's job/node records: it operates purely on a
// node's core layout and an already-idle thread set, so it can be
// exercised and tested independently of the scheduler core (node-record
// construction is an external collaborator per the core's own scope).
package cpuallocator

import (
	"flag"
	"fmt"
	"sort"

	"k8s.io/utils/cpuset"

	logger "github.com/intel/node-scheduler/pkg/log"
	"github.com/intel/node-scheduler/pkg/sysfs"
)

// AllocFlag represents CPU allocation preferences.
type AllocFlag uint

const (
	// AllocIdleCores requests allocation of full idle cores (every
	// thread sibling of the core is idle) before falling back to
	// individual idle threads.
	AllocIdleCores AllocFlag = 1 << iota
	// AllocDefault is the default allocation preference.
	AllocDefault = AllocIdleCores

	logSource = "cpuallocator"
	debugFlag = "cpu-allocator-debug"
)

// Core describes one physical core of a node: its own id and the ids of
// all of its hardware thread siblings (including itself for a
// single-thread core).
type Core struct {
	ID      int
	Threads []int
}

// Layout is a node's CPU topology as seen by the allocator: every
// physical core and its thread siblings.
type Layout struct {
	Cores []Core
}

// CoreOf returns the Core owning thread id, or false if id is unknown.
func (l Layout) CoreOf(id int) (Core, bool) {
	for _, c := range l.Cores {
		for _, t := range c.Threads {
			if t == id {
				return c, true
			}
		}
	}
	return Core{}, false
}

// ThreadSet returns every hardware thread id across the layout's cores,
// deduplicated, using the same package/core/thread-id bookkeeping type
// sysfs discovery hands off to the node-selection core below the
// node-index bitmap layer.
func (l Layout) ThreadSet() sysfs.IdSet {
	ids := sysfs.NewIdSet()
	for _, c := range l.Cores {
		for _, t := range c.Threads {
			ids.Add(sysfs.Id(t))
		}
	}
	return ids
}

var debug bool

func init() {
	flag.BoolVar(&debug, debugFlag, false, "enable CPU allocator debug log")
}

var log = logger.NewLogger(logSource)

// CpuAllocator encapsulates state for allocating CPU threads from a
// single node's Layout.
type CpuAllocator struct {
	logger.Logger
	layout    Layout
	flags     AllocFlag
	from      cpuset.CPUSet // idle threads to allocate from
	preferred cpuset.CPUSet // threads to prefer within from, ties broken by id
	cnt       int           // number of threads still to allocate
	result    cpuset.CPUSet // threads allocated so far
}

// NewCPUAllocator creates a new CPU allocator for the given node layout.
func NewCPUAllocator(layout Layout) *CpuAllocator {
	return &CpuAllocator{
		Logger: log,
		layout: layout,
		flags:  AllocDefault,
	}
}

func (a *CpuAllocator) debugf(format string, args ...interface{}) {
	if !debug {
		return
	}
	log.Info(format, args...)
}

// takeIdleCores allocates full idle cores: every thread sibling of the
// core must still be in a.from.
func (a *CpuAllocator) takeIdleCores() {
	a.Debug("* takeIdleCores()...")

	var idle []Core
	for _, c := range a.layout.Cores {
		allIdle := true
		for _, t := range c.Threads {
			if !a.from.Contains(t) {
				allIdle = false
				break
			}
		}
		if allIdle {
			idle = append(idle, c)
		}
	}

	sort.Slice(idle, func(i, j int) bool {
		iPref := corePreferred(idle[i], a.preferred)
		jPref := corePreferred(idle[j], a.preferred)
		if iPref != jPref {
			return iPref > jPref
		}
		return idle[i].ID < idle[j].ID
	})

	for _, c := range idle {
		if a.cnt == 0 {
			break
		}
		if len(c.Threads) > a.cnt {
			continue
		}
		cset := cpuset.New(c.Threads...)
		a.result = a.result.Union(cset)
		a.from = a.from.Difference(cset)
		a.cnt -= len(c.Threads)
	}
}

func corePreferred(c Core, preferred cpuset.CPUSet) int {
	n := 0
	for _, t := range c.Threads {
		if preferred.Contains(t) {
			n++
		}
	}
	return n
}

// takeIdleThreads allocates individual idle threads, preferring threads
// in a.preferred, then threads whose core already has siblings in
// a.result (pack onto fewer cores), then lowest id.
func (a *CpuAllocator) takeIdleThreads() {
	a.Debug("* takeIdleThreads()...")

	ids := a.from.List()

	sort.Slice(ids, func(i, j int) bool {
		iID, jID := ids[i], ids[j]
		iPref, jPref := a.preferred.Contains(iID), a.preferred.Contains(jID)
		if iPref != jPref {
			return iPref
		}

		iCore, _ := a.layout.CoreOf(iID)
		jCore, _ := a.layout.CoreOf(jID)
		iColo := cpuset.New(iCore.Threads...).Intersection(a.result).Size()
		jColo := cpuset.New(jCore.Threads...).Intersection(a.result).Size()
		if iColo != jColo {
			return iColo > jColo
		}

		return iID < jID
	})

	for _, id := range ids {
		if a.cnt == 0 {
			break
		}
		cset := cpuset.New(id)
		a.result = a.result.Union(cset)
		a.from = a.from.Difference(cset)
		a.cnt--
	}
}

// allocate runs the tiered allocation and returns the chosen threads, or
// the empty set if a.from could not satisfy a.cnt.
func (a *CpuAllocator) allocate() cpuset.CPUSet {
	if a.from.Size() < a.cnt {
		return cpuset.New()
	}

	if a.flags&AllocIdleCores != 0 {
		a.takeIdleCores()
		if a.cnt == 0 {
			return a.result
		}
	}

	a.takeIdleThreads()
	if a.cnt == 0 {
		return a.result
	}

	return cpuset.New()
}

// Allocate picks cnt idle threads out of from (a node's layout), removing
// them from from and returning the chosen set. preferred, if non-empty,
// biases selection towards those thread ids first.
func Allocate(layout Layout, from *cpuset.CPUSet, preferred cpuset.CPUSet, cnt int) (cpuset.CPUSet, error) {
	if threads := layout.ThreadSet(); threads.Size() > 0 {
		for _, id := range from.List() {
			if !threads.Has(sysfs.Id(id)) {
				return cpuset.New(), fmt.Errorf("idle set contains thread %d outside node layout {%s}", id, threads)
			}
		}
	}

	if from.Size() < cnt {
		return cpuset.New(), fmt.Errorf("cpuset %s does not have %d idle threads", from, cnt)
	}
	if from.Size() == cnt {
		result := from.Clone()
		*from = cpuset.New()
		return result, nil
	}

	a := NewCPUAllocator(layout)
	a.from = from.Clone()
	a.preferred = preferred
	a.cnt = cnt

	result := a.allocate()
	*from = a.from.Clone()

	a.debugf("Allocate(#%s, %d) => #%s", from.Union(result).String(), cnt, result.String())

	if result.Size() != cnt {
		return cpuset.New(), fmt.Errorf("could not allocate %d threads from %s", cnt, from)
	}

	return result, nil
}

// Release returns cnt threads from keep back to the caller, keeping the
// rest. It is Allocate's inverse, used when a strategy backs out an
// admission.
func Release(keep *cpuset.CPUSet, cnt int) (cpuset.CPUSet, error) {
	total := keep.Size()
	if cnt > total {
		return cpuset.New(), fmt.Errorf("cannot release %d threads from a set of %d", cnt, total)
	}

	oset := keep.Clone()

	result, err := Allocate(Layout{}, keep, cpuset.New(), total-cnt)
	if err != nil {
		return cpuset.New(), err
	}
	*keep = result

	released := oset.Difference(result)
	if debug {
		log.Info("Release(#%s, %d) => kept: #%s, released: #%s", oset.String(), cnt, result.String(), released.String())
	}

	return released, nil
}
