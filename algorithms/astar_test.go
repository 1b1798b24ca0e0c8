package algorithms

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bfsDistance is the reference shortest-path length in edges, or -1.
func bfsDistance(g *Grid, start, goal Cell, blocked Occupancy) int {
	if start == goal {
		return 0
	}
	dist := map[Cell]int{start: 0}
	queue := []Cell{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, n := range g.Neighbors(current) {
			if _, seen := dist[n]; seen || blocked.IsOccupied(n) {
				continue
			}
			dist[n] = dist[current] + 1
			if n == goal {
				return dist[n]
			}
			queue = append(queue, n)
		}
	}
	return -1
}

func assertValidPath(t *testing.T, g *Grid, path []Cell, start, goal Cell, blocked Occupancy) {
	t.Helper()
	require.NotEmpty(t, path)
	assert.Equal(t, start, path[0])
	assert.Equal(t, goal, path[len(path)-1])
	for i, c := range path {
		require.True(t, g.InBounds(c), "cell %v out of bounds", c)
		if i > 0 {
			require.False(t, blocked.IsOccupied(c), "path crosses occupied cell %v", c)
			require.Equal(t, 1, Manhattan(path[i-1], c), "non-adjacent step %v -> %v", path[i-1], c)
		}
	}
}

func TestFindPathStraightLine(t *testing.T) {
	g := &Grid{Size: 20}
	p := NewPlanner(g)

	path := p.FindPath(Cell{0, 0}, Cell{5, 0}, NewCellSet())

	assert.Equal(t, []Cell{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}, {5, 0}}, path)
}

func TestFindPathSameCell(t *testing.T) {
	p := NewPlanner(&Grid{Size: 20})

	assert.Equal(t, []Cell{{7, 3}}, p.FindPath(Cell{7, 3}, Cell{7, 3}, NewCellSet()))
}

func TestFindPathSingleObstacleDetour(t *testing.T) {
	g := &Grid{Size: 20}
	p := NewPlanner(g)
	start, goal := Cell{2, 5}, Cell{8, 5}
	blocked := NewCellSet(Cell{5, 5})

	path := p.FindPath(start, goal, blocked)

	assertValidPath(t, g, path, start, goal, blocked)
	assert.Equal(t, Manhattan(start, goal)+2, len(path)-1)
}

func TestFindPathUnreachable(t *testing.T) {
	g := &Grid{Size: 6}
	p := NewPlanner(g)
	// wall the goal in
	blocked := NewCellSet(Cell{4, 5}, Cell{5, 4}, Cell{4, 4})

	res := p.Search(Cell{0, 0}, Cell{5, 5}, blocked)

	assert.False(t, res.Found)
	assert.Empty(t, res.Path)
	assert.Positive(t, res.Expanded)
}

func TestFindPathOccupiedGoal(t *testing.T) {
	p := NewPlanner(&Grid{Size: 10})

	assert.Empty(t, p.FindPath(Cell{0, 0}, Cell{3, 3}, NewCellSet(Cell{3, 3})))
}

func TestFindPathOutOfBounds(t *testing.T) {
	p := NewPlanner(&Grid{Size: 10})

	assert.Empty(t, p.FindPath(Cell{0, 0}, Cell{10, 3}, nil))
	assert.Empty(t, p.FindPath(Cell{-1, 0}, Cell{3, 3}, nil))
}

func TestFindPathIgnoresOccupiedStart(t *testing.T) {
	p := NewPlanner(&Grid{Size: 10})

	path := p.FindPath(Cell{0, 0}, Cell{2, 0}, NewCellSet(Cell{0, 0}))

	assert.Equal(t, []Cell{{0, 0}, {1, 0}, {2, 0}}, path)
}

func TestFindPathIsDeterministic(t *testing.T) {
	g := &Grid{Size: 12}
	p := NewPlanner(g)
	blocked := NewCellSet(Cell{3, 3}, Cell{3, 4}, Cell{6, 2}, Cell{7, 7})

	first := p.FindPath(Cell{0, 0}, Cell{11, 11}, blocked)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, p.FindPath(Cell{0, 0}, Cell{11, 11}, blocked))
	}
}

func TestFindPathMatchesBFSOnRandomGrids(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 200; trial++ {
		size := 4 + rng.Intn(6)
		g := &Grid{Size: size}
		p := NewPlanner(g)

		blocked := NewCellSet()
		for i := 0; i < size*size/4; i++ {
			blocked.Add(Cell{rng.Intn(size), rng.Intn(size)})
		}
		start := Cell{rng.Intn(size), rng.Intn(size)}
		goal := Cell{rng.Intn(size), rng.Intn(size)}
		delete(blocked, start)

		want := bfsDistance(g, start, goal, blocked)
		res := p.Search(start, goal, blocked)

		if want < 0 {
			require.False(t, res.Found, "trial %d: found a path BFS could not", trial)
			require.Empty(t, res.Path)
			continue
		}
		require.True(t, res.Found, "trial %d: %v -> %v should be reachable", trial, start, goal)
		require.Equal(t, want, len(res.Path)-1, "trial %d: path not shortest", trial)
		require.Equal(t, want, res.Cost)
		assertValidPath(t, g, res.Path, start, goal, blocked)
	}
}
