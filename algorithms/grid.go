package algorithms

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGridSize is returned by NewGrid for grids smaller than 2x2.
var ErrInvalidGridSize = errors.New("invalid grid size")

// Cell is one discrete grid location.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Grid is a square navigable area of Size x Size cells.
type Grid struct {
	Size int
}

func NewGrid(size int) (*Grid, error) {
	if size < 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGridSize, size)
	}
	return &Grid{Size: size}, nil
}

func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.Size && c.Y < g.Size
}

// neighbor order is part of the search contract: ties in A* are broken by
// insertion order, so changing it changes which of two equal paths is returned.
var directions = [...]Cell{
	{X: 0, Y: 1},
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: -1, Y: 0},
}

// Neighbors returns the in-bounds axis-aligned neighbours of c in +y, -y, +x, -x order.
func (g *Grid) Neighbors(c Cell) []Cell {
	neighbors := make([]Cell, 0, len(directions))
	for _, d := range directions {
		n := Cell{X: c.X + d.X, Y: c.Y + d.Y}
		if g.InBounds(n) {
			neighbors = append(neighbors, n)
		}
	}
	return neighbors
}

// CellAt maps a continuous position to the cell it occupies by rounding each
// coordinate to the nearest integer (halves round away from zero).
func CellAt(x, y float64) Cell {
	return Cell{X: int(math.Round(x)), Y: int(math.Round(y))}
}

// Manhattan is the A* heuristic for unit-cost four-way moves.
func Manhattan(a, b Cell) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Occupancy reports cells that cannot be entered.
type Occupancy interface {
	IsOccupied(c Cell) bool
}

// CellSet is a fixed set of blocked cells.
type CellSet map[Cell]struct{}

func NewCellSet(cells ...Cell) CellSet {
	set := make(CellSet, len(cells))
	for _, c := range cells {
		set[c] = struct{}{}
	}
	return set
}

func (s CellSet) Add(c Cell) {
	s[c] = struct{}{}
}

func (s CellSet) IsOccupied(c Cell) bool {
	_, ok := s[c]
	return ok
}
