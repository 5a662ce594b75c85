package shmring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	region := newTestRegion()
	_, err := Inspect(region)
	require.Equal(t, ErrUninitialized, err)
	_, err = Inspect(region[:8])
	require.Error(t, err)

	r := Assign(region, 16, 4)
	require.NoError(t, r.Write([]byte("a")))
	require.NoError(t, r.Write([]byte("b")))
	state, err := Inspect(region)
	require.NoError(t, err)
	require.Equal(t, r.State(), state)
	require.Equal(t, 2, state.Used)

	region[offFrameOffset] = 1
	_, err = Inspect(region)
	require.Error(t, err)
}
