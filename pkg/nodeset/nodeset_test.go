package nodeset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicOps(t *testing.T) {
	s := New(0, 2, 4)
	require.True(t, s.Test(2))
	require.False(t, s.Test(3))
	require.Equal(t, 3, s.Count())
	require.Equal(t, 0, s.First())
	require.Equal(t, 4, s.Last())
	require.Equal(t, 2, s.Next(0))
	require.Equal(t, -1, s.Next(4))
}

func TestSetClear(t *testing.T) {
	s := New()
	s.Set(1, 3)
	require.Equal(t, []int{1, 3}, s.Members())
	s.Clear(1)
	require.Equal(t, []int{3}, s.Members())
	s.Clear()
	require.True(t, s.IsEmpty())
}

func TestBooleanOps(t *testing.T) {
	a := New(0, 1, 2)
	b := New(1, 2, 3)

	require.Equal(t, []int{1, 2}, a.And(b).Members())
	require.Equal(t, []int{0, 1, 2, 3}, a.Or(b).Members())
	require.Equal(t, []int{0}, a.AndNot(b).Members())

	require.True(t, a.Overlap(b))
	require.False(t, New(9).Overlap(b))

	sub := New(1, 2)
	require.True(t, a.Superset(sub))
	require.False(t, sub.Superset(a))

	require.True(t, a.Equal(New(2, 1, 0)))
	require.False(t, a.Equal(b))
}

func TestCopyIndependence(t *testing.T) {
	a := New(0, 1)
	b := a.Copy()
	b.Set(5)

	require.False(t, a.Test(5))
	require.True(t, b.Test(5))
}

func TestNilReceiverSafety(t *testing.T) {
	var s *NodeSet
	require.Equal(t, 0, s.Count())
	require.True(t, s.IsEmpty())
	require.False(t, s.Test(0))
	require.Equal(t, -1, s.First())
	require.Equal(t, "", s.String())
}
