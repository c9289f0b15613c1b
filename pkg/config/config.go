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

// Package config holds the handful of process-wide toggles the
// node-selection core reads: the scheduler-parameter and
// topology-parameter tokens, and the select-type-plugin parameter flags.
// Nothing freezes them: Evaluate reads the current values on every call,
// and Set or the flags can replace them at any time. They are
// registered as ordinary flag.Value toggles in the
// same style pkg/log registers -logger-level/-logger-debug, and are
// meant to be parsed once (typically from flag.Parse in main, or set
// directly in tests) before the first Evaluate call.
package config

import "flag"

// CRType is the bitmask carried by select_type_param.
type CRType uint32

const (
	// CRSocket allocates whole sockets to a job.
	CRSocket CRType = 1 << iota
	// CRLLN selects least-loaded nodes first.
	CRLLN
	// CROneTaskPerCore restricts a node to one task per core.
	CROneTaskPerCore
)

// Has reports whether all bits of mask are set in t.
func (t CRType) Has(mask CRType) bool {
	return t&mask == mask
}

// Toggles bundles the three process-wide knobs spec.md section 4.1
// and section 6 require: pack_serial_at_end (sched_params), dragonfly and
// topo_optional (topology_param), plus the select_type_param CRType bits.
type Toggles struct {
	// PackSerialAtEnd makes serial jobs with a single requested node and
	// a single required CPU prefer the highest-index node.
	PackSerialAtEnd bool
	// Dragonfly selects the dfly strategy over the general topo strategy
	// when a switch table is present.
	Dragonfly bool
	// TopoOptional limits the topo/dfly strategies to jobs that request
	// switches; other jobs fall through to consec even when a switch
	// table is present.
	TopoOptional bool
	// CRType carries the select_type_param flags (CR_SOCKET, CR_LLN,
	// CR_ONE_TASK_PER_CORE).
	CRType CRType
}

var current = &Toggles{}

// Current returns the process-wide toggle set as it stands now.
func Current() Toggles {
	return *current
}

// Set overwrites the process-wide toggle set. Intended for test setup and
// for one-time initialization before the first Evaluate call; the core
// itself never mutates these.
func Set(t Toggles) {
	*current = t
}

type boolToggle struct {
	get func() bool
	set func(bool)
}

func (b *boolToggle) String() string {
	if b == nil || b.get == nil {
		return "false"
	}
	if b.get() {
		return "true"
	}
	return "false"
}

func (b *boolToggle) Set(value string) error {
	switch value {
	case "", "1", "true", "t", "yes", "on":
		b.set(true)
	case "0", "false", "f", "no", "off":
		b.set(false)
	default:
		b.set(true)
	}
	return nil
}

func (b *boolToggle) IsBoolFlag() bool { return true }

func init() {
	flag.Var(&boolToggle{
		get: func() bool { return current.PackSerialAtEnd },
		set: func(v bool) { current.PackSerialAtEnd = v },
	}, "sched-pack-serial-at-end", "pack serial jobs onto the highest-index node (sched_params: pack_serial_at_end)")

	flag.Var(&boolToggle{
		get: func() bool { return current.Dragonfly },
		set: func(v bool) { current.Dragonfly = v },
	}, "topology-dragonfly", "treat the switch table as a dragonfly topology (topology_param: dragonfly)")

	flag.Var(&boolToggle{
		get: func() bool { return current.TopoOptional },
		set: func(v bool) { current.TopoOptional = v },
	}, "topology-optional", "use the topo/dfly strategies only for jobs that request switches, otherwise consec (topology_param: TopoOptional)")

	flag.Var(&boolToggle{
		get: func() bool { return current.CRType.Has(CRLLN) },
		set: func(v bool) {
			if v {
				current.CRType |= CRLLN
			} else {
				current.CRType &^= CRLLN
			}
		},
	}, "select-type-cr-lln", "least-loaded-node-first placement (select_type_param: CR_LLN)")

	flag.Var(&boolToggle{
		get: func() bool { return current.CRType.Has(CRSocket) },
		set: func(v bool) {
			if v {
				current.CRType |= CRSocket
			} else {
				current.CRType &^= CRSocket
			}
		},
	}, "select-type-cr-socket", "allocate whole sockets (select_type_param: CR_SOCKET)")

	flag.Var(&boolToggle{
		get: func() bool { return current.CRType.Has(CROneTaskPerCore) },
		set: func(v bool) {
			if v {
				current.CRType |= CROneTaskPerCore
			} else {
				current.CRType &^= CROneTaskPerCore
			}
		},
	}, "select-type-cr-one-task-per-core", "restrict nodes to one task per core (select_type_param: CR_ONE_TASK_PER_CORE)")
}
