package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRTypeHas(t *testing.T) {
	var t1 CRType = CRSocket | CRLLN
	require.True(t, t1.Has(CRSocket))
	require.True(t, t1.Has(CRLLN))
	require.False(t, t1.Has(CROneTaskPerCore))
	require.True(t, t1.Has(CRSocket|CRLLN))
}

func TestSetAndCurrent(t *testing.T) {
	orig := Current()
	defer Set(orig)

	Set(Toggles{PackSerialAtEnd: true, Dragonfly: true, CRType: CRLLN})
	got := Current()
	require.True(t, got.PackSerialAtEnd)
	require.True(t, got.Dragonfly)
	require.False(t, got.TopoOptional)
	require.True(t, got.CRType.Has(CRLLN))
}

func TestBoolToggleSet(t *testing.T) {
	bt := &boolToggle{}
	var val bool
	bt.get = func() bool { return val }
	bt.set = func(v bool) { val = v }

	require.NoError(t, bt.Set("true"))
	require.True(t, val)
	require.Equal(t, "true", bt.String())

	require.NoError(t, bt.Set("off"))
	require.False(t, val)
	require.Equal(t, "false", bt.String())
}
