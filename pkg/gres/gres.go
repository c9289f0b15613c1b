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

// Package gres models the generic-resource (e.g. GPU) scheduling
// collaborator the node-selection core invokes as an opaque callback set.
// The core never inspects GRES internals directly; it only drives the
// Scheduler interface below, exactly the shape of gres_sched_init/
// gres_sched_consec/gres_sched_add/gres_sched_test/gres_sched_sufficient.
package gres

// Request is a job's generic-resource demand, e.g. "2 gpu:a100 per node".
type Request struct {
	Name       string
	CountPerNode uint32
	JobTotal   uint32
}

// SockList is the opaque per-socket GRES handle carried on a node's
// availability record (sock_gres_list in the original).
type SockList interface {
	// Sockets reports how many GRES units are currently usable per socket
	// index on the node this handle belongs to.
	Sockets() []uint32
}

// Bucket accumulates a tentative GRES commitment while a run or tier is
// being evaluated, before it is actually admitted (gres_sched_consec's
// accumulator).
type Bucket struct {
	Committed uint32
}

// Scheduler is the GRES collaborator the admission protocol drives.
type Scheduler interface {
	// Init reports whether the job carries any job-level GRES demand. If
	// it returns false, the admission protocol skips every other method
	// on this interface for the remainder of the evaluation (the
	// gres_sched_init short-circuit).
	Init(req []Request) bool

	// Consec accumulates sock's contribution into bucket without
	// committing it, used by strategies that need to test a run before
	// admitting it.
	Consec(bucket *Bucket, req []Request, sock SockList)

	// Add commits sock's contribution to the running job-level totals and
	// may tighten availCPUs if GRES affinity further restricts usable
	// CPUs on the node being admitted.
	Add(req []Request, sock SockList, availCPUs *uint32)

	// Test reports whether the job-level GRES demand is satisfied by
	// commitments made so far via Add.
	Test(req []Request) bool

	// Sufficient reports whether committing bucket, on top of
	// commitments made so far, would satisfy the job-level GRES demand.
	Sufficient(req []Request, bucket Bucket) bool
}

// NoneScheduler is the zero-GRES Scheduler: Init reports whether the
// request carries any demand, but nothing is tracked, Add and Consec are
// no-ops, and Test and Sufficient always report satisfied. It is the
// default when the caller supplies no Scheduler.
type NoneScheduler struct{}

var _ Scheduler = NoneScheduler{}

// Init reports whether req carries any JobTotal or CountPerNode demand.
func (NoneScheduler) Init(req []Request) bool { return len(req) > 0 && hasDemand(req) }

func hasDemand(req []Request) bool {
	for _, r := range req {
		if r.JobTotal > 0 || r.CountPerNode > 0 {
			return true
		}
	}
	return false
}

// Consec is a no-op for NoneScheduler.
func (NoneScheduler) Consec(bucket *Bucket, req []Request, sock SockList) {}

// Add is a no-op for NoneScheduler.
func (NoneScheduler) Add(req []Request, sock SockList, availCPUs *uint32) {}

// Test always reports satisfied for NoneScheduler.
func (NoneScheduler) Test(req []Request) bool { return true }

// Sufficient always reports satisfied for NoneScheduler.
func (NoneScheduler) Sufficient(req []Request, bucket Bucket) bool { return true }

// CountingScheduler is a reference Scheduler that tracks a single running
// total of committed GRES units against the summed JobTotal demand across
// all requests (CountPerNode is not counted towards that demand). It is intended for tests and as a worked
// example of the interface; production deployments supply their own
// Scheduler tied to real device inventory.
type CountingScheduler struct {
	committed uint32
}

var _ Scheduler = &CountingScheduler{}

// Init reports whether req carries any demand and resets the running total.
func (c *CountingScheduler) Init(req []Request) bool {
	c.committed = 0
	return hasDemand(req)
}

// Consec tallies sock's available units into bucket without committing.
func (c *CountingScheduler) Consec(bucket *Bucket, req []Request, sock SockList) {
	bucket.Committed += sumSockets(sock)
}

// Add commits sock's available units to the running total.
func (c *CountingScheduler) Add(req []Request, sock SockList, availCPUs *uint32) {
	c.committed += sumSockets(sock)
}

// Test reports whether the running total meets the summed demand.
func (c *CountingScheduler) Test(req []Request) bool {
	return c.committed >= demandTotal(req)
}

// Sufficient reports whether committed-so-far plus bucket meets demand.
func (c *CountingScheduler) Sufficient(req []Request, bucket Bucket) bool {
	return c.committed+bucket.Committed >= demandTotal(req)
}

func sumSockets(sock SockList) uint32 {
	if sock == nil {
		return 0
	}
	var total uint32
	for _, n := range sock.Sockets() {
		total += n
	}
	return total
}

func demandTotal(req []Request) uint32 {
	var total uint32
	for _, r := range req {
		total += r.JobTotal
	}
	return total
}
