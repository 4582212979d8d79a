package clob

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddMarketMakerRejectsTakenSlot(t *testing.T) {
	makers := freshMakers()
	authority := Identity{1, 2, 3}

	require.NoError(t, AddMarketMaker(makers, 0, authority))
	require.ErrorIs(t, AddMarketMaker(makers, 0, Identity{9}), ErrIndexAlreadyTaken)
}

func TestFindMarketMaker(t *testing.T) {
	makers := freshMakers()
	authority := Identity{4, 5, 6}
	require.NoError(t, AddMarketMaker(makers, 2, authority))

	idx, err := FindMarketMaker(makers, authority)
	require.NoError(t, err)
	require.Equal(t, uint8(2), idx)

	_, err = FindMarketMaker(makers, Identity{7, 7, 7})
	require.ErrorIs(t, err, ErrMakerNotFound)
}
