package services

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/Akshit568/Robot-Navigation-System/algorithms"
	"github.com/Akshit568/Robot-Navigation-System/models"
)

const (
	DefaultTurnProbability = 0.3
	DefaultCollisionRadius = 1.0 // obstacle radius 0.5 + robot radius 0.5

	minObstacleSpeed = 0.5
	maxObstacleSpeed = 2.0

	// random draws per obstacle before placement gives up
	maxPlacementAttempts = 100
)

// ObstacleField owns the static obstacle cells and the moving obstacles.
// It is not safe for concurrent use; the Simulator serialises access.
type ObstacleField struct {
	grid *algorithms.Grid
	rng  *rand.Rand

	static      algorithms.CellSet
	staticOrder []algorithms.Cell // placement order, for stable snapshots
	moving      []models.MovingObstacle

	turnProbability float64
}

// NewObstacleField creates an empty field. A nil rng falls back to a
// time-seeded source.
func NewObstacleField(grid *algorithms.Grid, rng *rand.Rand) *ObstacleField {
	if rng == nil {
		rng = newTimeSeededRand()
	}
	return &ObstacleField{
		grid:            grid,
		rng:             rng,
		static:          algorithms.NewCellSet(),
		turnProbability: DefaultTurnProbability,
	}
}

// SetTurnProbability sets the per-tick chance that a moving obstacle picks a
// new diagonal direction. Values are clamped to [0, 1].
func (f *ObstacleField) SetTurnProbability(p float64) {
	f.turnProbability = math.Max(0, math.Min(1, p))
}

// IsOccupied reports a static obstacle at c or a moving obstacle whose
// rounded position is c.
func (f *ObstacleField) IsOccupied(c algorithms.Cell) bool {
	if f.static.IsOccupied(c) {
		return true
	}
	for _, o := range f.moving {
		if algorithms.CellAt(o.X, o.Y) == c {
			return true
		}
	}
	return false
}

// IsStatic reports a static obstacle at c.
func (f *ObstacleField) IsStatic(c algorithms.Cell) bool {
	return f.static.IsOccupied(c)
}

// GenerateStatic adds count static obstacles at distinct free cells outside
// avoid. It returns how many were placed, which is less than count only when
// free cells ran out.
func (f *ObstacleField) GenerateStatic(count int, avoid ...algorithms.Cell) (int, error) {
	if count < 0 {
		return 0, fmt.Errorf("static obstacles %d: %w", count, ErrNegativeCount)
	}
	skip := algorithms.NewCellSet(avoid...)

	placed := 0
	for ; placed < count; placed++ {
		c, ok := f.randomFreeCell(func(c algorithms.Cell) bool {
			return !skip.IsOccupied(c) && !f.static.IsOccupied(c)
		})
		if !ok {
			break
		}
		f.static.Add(c)
		f.staticOrder = append(f.staticOrder, c)
	}
	return placed, nil
}

// GenerateMoving replaces the moving obstacles with count new ones on free
// cells outside avoid. IDs restart at zero.
func (f *ObstacleField) GenerateMoving(count int, avoid ...algorithms.Cell) (int, error) {
	if count < 0 {
		return 0, fmt.Errorf("moving obstacles %d: %w", count, ErrNegativeCount)
	}
	skip := algorithms.NewCellSet(avoid...)
	taken := algorithms.NewCellSet()

	moving := make([]models.MovingObstacle, 0, count)
	for i := 0; i < count; i++ {
		c, ok := f.randomFreeCell(func(c algorithms.Cell) bool {
			return !skip.IsOccupied(c) && !f.static.IsOccupied(c) && !taken.IsOccupied(c)
		})
		if !ok {
			break
		}
		taken.Add(c)
		moving = append(moving, models.MovingObstacle{
			ID:    i,
			X:     float64(c.X),
			Y:     float64(c.Y),
			DX:    f.randomSign(),
			DY:    f.randomSign(),
			Speed: minObstacleSpeed + f.rng.Float64()*(maxObstacleSpeed-minObstacleSpeed),
		})
	}
	f.moving = moving
	return len(moving), nil
}

// ResetStatic removes every static obstacle.
func (f *ObstacleField) ResetStatic() {
	f.static = algorithms.NewCellSet()
	f.staticOrder = nil
}

// Tick advances every moving obstacle by one step of its speed. An obstacle
// leaving [0, size-1] on an axis has that direction component inverted and
// the coordinate clamped back into range.
func (f *ObstacleField) Tick() {
	limit := float64(f.grid.Size - 1)
	for i := range f.moving {
		o := &f.moving[i]
		if f.rng.Float64() < f.turnProbability {
			o.DX = f.randomSign()
			o.DY = f.randomSign()
		}

		x := o.X + float64(o.DX)*o.Speed
		y := o.Y + float64(o.DY)*o.Speed
		if x < 0 || x > limit {
			o.DX = -o.DX
			x = math.Max(0, math.Min(limit, x))
		}
		if y < 0 || y > limit {
			o.DY = -o.DY
			y = math.Max(0, math.Min(limit, y))
		}
		o.X, o.Y = x, y
	}
}

// CheckProximity reports whether any moving obstacle lies strictly closer
// than radius to (x, y).
func (f *ObstacleField) CheckProximity(x, y, radius float64) bool {
	for _, o := range f.moving {
		if math.Hypot(x-o.X, y-o.Y) < radius {
			return true
		}
	}
	return false
}

// StaticCells returns a copy of the static obstacles in placement order.
func (f *ObstacleField) StaticCells() []algorithms.Cell {
	out := make([]algorithms.Cell, len(f.staticOrder))
	copy(out, f.staticOrder)
	return out
}

// MovingObstacles returns a copy of the moving obstacles.
func (f *ObstacleField) MovingObstacles() []models.MovingObstacle {
	out := make([]models.MovingObstacle, len(f.moving))
	copy(out, f.moving)
	return out
}

// MeanSpeed is the average moving obstacle speed, zero when there are none.
func (f *ObstacleField) MeanSpeed() float64 {
	if len(f.moving) == 0 {
		return 0
	}
	total := 0.0
	for _, o := range f.moving {
		total += o.Speed
	}
	return total / float64(len(f.moving))
}

func (f *ObstacleField) randomFreeCell(free func(algorithms.Cell) bool) (algorithms.Cell, bool) {
	for attempt := 0; attempt < maxPlacementAttempts; attempt++ {
		c := algorithms.Cell{X: f.rng.Intn(f.grid.Size), Y: f.rng.Intn(f.grid.Size)}
		if free(c) {
			return c, true
		}
	}
	return algorithms.Cell{}, false
}

func (f *ObstacleField) randomSign() int {
	if f.rng.Float64() < 0.5 {
		return -1
	}
	return 1
}
