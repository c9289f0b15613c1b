package gres

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSockList struct{ units []uint32 }

func (f fakeSockList) Sockets() []uint32 { return f.units }

func TestNoneSchedulerNoDemand(t *testing.T) {
	var s NoneScheduler
	require.False(t, s.Init(nil))
	require.True(t, s.Test(nil))
}

func TestNoneSchedulerWithDemand(t *testing.T) {
	var s NoneScheduler
	require.True(t, s.Init([]Request{{Name: "gpu", JobTotal: 2}}))
}

func TestCountingSchedulerSatisfiesDemand(t *testing.T) {
	s := &CountingScheduler{}
	req := []Request{{Name: "gpu", JobTotal: 3}}

	require.True(t, s.Init(req))
	require.False(t, s.Test(req))

	var avail uint32 = 8
	s.Add(req, fakeSockList{units: []uint32{2}}, &avail)
	require.False(t, s.Test(req))

	s.Add(req, fakeSockList{units: []uint32{1}}, &avail)
	require.True(t, s.Test(req))
}

func TestCountingSchedulerSufficient(t *testing.T) {
	s := &CountingScheduler{}
	req := []Request{{Name: "gpu", JobTotal: 4}}
	s.Init(req)

	var bucket Bucket
	s.Consec(&bucket, req, fakeSockList{units: []uint32{4}})
	require.True(t, s.Sufficient(req, bucket))

	bucket = Bucket{}
	s.Consec(&bucket, req, fakeSockList{units: []uint32{1}})
	require.False(t, s.Sufficient(req, bucket))
}
