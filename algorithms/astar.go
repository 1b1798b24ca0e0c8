package algorithms

import "container/heap"

// Result is the outcome of one A* query.
type Result struct {
	Path     []Cell
	Cost     int
	Expanded int
	Found    bool
}

// node is an open-set entry. seq records insertion order so equal f-scores
// pop first-found first.
type node struct {
	cell  Cell
	g     int
	f     int
	seq   int
	index int
}

type openSet []*node

func (o openSet) Len() int { return len(o) }

func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}

func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}

func (o *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*o)
	*o = append(*o, n)
}

func (o *openSet) Pop() any {
	old := *o
	last := len(old) - 1
	n := old[last]
	old[last] = nil
	n.index = -1
	*o = old[:last]
	return n
}

// Planner runs A* over a Grid. It holds no per-query state and is safe for
// concurrent use.
type Planner struct {
	grid *Grid
}

func NewPlanner(grid *Grid) *Planner {
	return &Planner{grid: grid}
}

// FindPath returns the cells from start to goal inclusive, or nil when the
// goal cannot be reached.
func (p *Planner) FindPath(start, goal Cell, blocked Occupancy) []Cell {
	return p.Search(start, goal, blocked).Path
}

// Search runs A* with unit step cost and the Manhattan heuristic. Cells
// reported by blocked are impassable; the start cell is never tested.
func (p *Planner) Search(start, goal Cell, blocked Occupancy) Result {
	if !p.grid.InBounds(start) || !p.grid.InBounds(goal) {
		return Result{}
	}
	if start == goal {
		return Result{Path: []Cell{start}, Found: true}
	}

	open := make(openSet, 0, p.grid.Size)
	heap.Init(&open)
	inOpen := make(map[Cell]*node)
	closed := make(map[Cell]bool)
	cameFrom := make(map[Cell]Cell)

	seq := 0
	push := func(c Cell, g int) {
		n := &node{cell: c, g: g, f: g + Manhattan(c, goal), seq: seq}
		seq++
		heap.Push(&open, n)
		inOpen[c] = n
	}
	push(start, 0)

	expanded := 0
	for open.Len() > 0 {
		current := heap.Pop(&open).(*node)
		delete(inOpen, current.cell)

		if current.cell == goal {
			return Result{
				Path:     reconstructPath(cameFrom, start, goal),
				Cost:     current.g,
				Expanded: expanded,
				Found:    true,
			}
		}

		closed[current.cell] = true
		expanded++

		for _, neighbor := range p.grid.Neighbors(current.cell) {
			if closed[neighbor] {
				continue
			}
			if blocked != nil && blocked.IsOccupied(neighbor) {
				continue
			}

			tentativeG := current.g + 1
			if existing, ok := inOpen[neighbor]; ok {
				if tentativeG >= existing.g {
					continue
				}
				existing.g = tentativeG
				existing.f = tentativeG + Manhattan(neighbor, goal)
				heap.Fix(&open, existing.index)
			} else {
				push(neighbor, tentativeG)
			}
			cameFrom[neighbor] = current.cell
		}
	}

	return Result{Expanded: expanded}
}

func reconstructPath(cameFrom map[Cell]Cell, start, goal Cell) []Cell {
	path := []Cell{goal}
	for current := goal; current != start; {
		prev, ok := cameFrom[current]
		if !ok {
			break
		}
		path = append(path, prev)
		current = prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
