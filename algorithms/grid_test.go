package algorithms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGridRejectsTinyGrids(t *testing.T) {
	for _, size := range []int{-1, 0, 1} {
		_, err := NewGrid(size)
		require.ErrorIs(t, err, ErrInvalidGridSize, "size %d", size)
	}

	g, err := NewGrid(2)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Size)
}

func TestInBounds(t *testing.T) {
	g := &Grid{Size: 20}

	tests := []struct {
		cell Cell
		want bool
	}{
		{Cell{0, 0}, true},
		{Cell{19, 19}, true},
		{Cell{20, 0}, false},
		{Cell{0, 20}, false},
		{Cell{-1, 5}, false},
		{Cell{5, -1}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, g.InBounds(tt.cell), "InBounds(%v)", tt.cell)
	}
}

func TestNeighborsOrderAndBounds(t *testing.T) {
	g := &Grid{Size: 5}

	assert.Equal(t, []Cell{{2, 3}, {2, 1}, {3, 2}, {1, 2}}, g.Neighbors(Cell{2, 2}))
	assert.Equal(t, []Cell{{0, 1}, {1, 0}}, g.Neighbors(Cell{0, 0}))
	assert.Equal(t, []Cell{{4, 3}, {3, 4}}, g.Neighbors(Cell{4, 4}))

	// repeated calls must agree for reproducible tie-breaking
	assert.Equal(t, g.Neighbors(Cell{1, 3}), g.Neighbors(Cell{1, 3}))
}

func TestCellAtRoundsToNearest(t *testing.T) {
	tests := []struct {
		x, y float64
		want Cell
	}{
		{3.0, 4.0, Cell{3, 4}},
		{3.49, 4.51, Cell{3, 5}},
		{3.5, 0.2, Cell{4, 0}},
		{0.4, 0.0, Cell{0, 0}},
		{19.0, 18.6, Cell{19, 19}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CellAt(tt.x, tt.y), "CellAt(%v, %v)", tt.x, tt.y)
	}
}

func TestManhattan(t *testing.T) {
	assert.Equal(t, 0, Manhattan(Cell{3, 3}, Cell{3, 3}))
	assert.Equal(t, 7, Manhattan(Cell{0, 0}, Cell{3, 4}))
	assert.Equal(t, 7, Manhattan(Cell{3, 4}, Cell{0, 0}))
}

func TestCellSet(t *testing.T) {
	set := NewCellSet(Cell{1, 1})
	set.Add(Cell{2, 2})

	assert.True(t, set.IsOccupied(Cell{1, 1}))
	assert.True(t, set.IsOccupied(Cell{2, 2}))
	assert.False(t, set.IsOccupied(Cell{1, 2}))
}
