package services

import (
	"fmt"
	"time"

	"github.com/Akshit568/Robot-Navigation-System/algorithms"
	"github.com/Akshit568/Robot-Navigation-System/models"
)

// StepOutcome describes what one Robot.Step did.
type StepOutcome struct {
	Moved    bool
	Collided bool
	Arrived  bool
}

// screen coordinates: "up" decreases y
var moveDeltas = map[string]algorithms.Cell{
	models.DirectionUp:    {X: 0, Y: -1},
	models.DirectionDown:  {X: 0, Y: 1},
	models.DirectionLeft:  {X: -1, Y: 0},
	models.DirectionRight: {X: 1, Y: 0},
}

// Robot is the single navigating agent. Idle, Moving and Arrived are
// expressed by the moving flag and whether position equals goal. A run whose
// replan came back empty is stalled: not moving, but resumed by the next
// replan that finds a path.
// Not safe for concurrent use; the Simulator serialises access.
type Robot struct {
	grid    *algorithms.Grid
	planner *algorithms.Planner
	field   *ObstacleField
	now     func() time.Time

	home     algorithms.Cell
	position algorithms.Cell
	goal     algorithms.Cell
	path     []algorithms.Cell
	moving   bool
	stalled  bool

	collisions      int
	collisionRadius float64
	startedAt       time.Time
	timeToGoal      *time.Duration
	steps           int // cells advanced in the current run
}

// NewRobot places a robot at home. A zero collision radius uses
// DefaultCollisionRadius; a nil clock uses time.Now.
func NewRobot(grid *algorithms.Grid, field *ObstacleField, home, goal algorithms.Cell, collisionRadius float64, now func() time.Time) *Robot {
	if collisionRadius <= 0 {
		collisionRadius = DefaultCollisionRadius
	}
	if now == nil {
		now = time.Now
	}
	return &Robot{
		grid:            grid,
		planner:         algorithms.NewPlanner(grid),
		field:           field,
		now:             now,
		home:            home,
		position:        home,
		goal:            goal,
		collisionRadius: collisionRadius,
	}
}

func (r *Robot) Position() algorithms.Cell { return r.position }
func (r *Robot) Goal() algorithms.Cell     { return r.goal }
func (r *Robot) IsMoving() bool            { return r.moving }
func (r *Robot) Stalled() bool             { return r.stalled }
func (r *Robot) Collisions() int           { return r.collisions }
func (r *Robot) Steps() int                { return r.steps }

// TimeToGoal is set once the current run reaches the goal.
func (r *Robot) TimeToGoal() (time.Duration, bool) {
	if r.timeToGoal == nil {
		return 0, false
	}
	return *r.timeToGoal, true
}

// Path returns a copy of the planned path.
func (r *Robot) Path() []algorithms.Cell {
	return append([]algorithms.Cell(nil), r.path...)
}

// Start begins a run. It plans first when the current path does not lead
// from the position to the goal. Starting a robot that is already moving
// does nothing; starting a stalled one resumes its run.
func (r *Robot) Start() error {
	if r.moving {
		return nil
	}
	if r.position == r.goal {
		return ErrAlreadyAtGoal
	}
	if !r.pathValid() {
		r.path = r.planner.FindPath(r.position, r.goal, r.field)
	}
	if len(r.path) == 0 {
		return fmt.Errorf("start %v -> %v: %w", r.position, r.goal, ErrGoalUnreachable)
	}

	r.moving = true
	if r.stalled {
		r.stalled = false
		return nil
	}
	r.startedAt = r.now()
	r.timeToGoal = nil
	r.steps = 0
	return nil
}

// Stop halts motion, keeping position, path and metrics.
func (r *Robot) Stop() {
	r.moving = false
	r.stalled = false
}

// Step advances one cell along the path. It does nothing unless the robot
// is moving with somewhere left to go.
func (r *Robot) Step() StepOutcome {
	if !r.moving || len(r.path) < 2 {
		return StepOutcome{}
	}

	r.path = r.path[1:]
	r.position = r.path[0]
	r.steps++
	out := StepOutcome{Moved: true}

	// collisions are recorded, never avoided
	if r.field.CheckProximity(float64(r.position.X), float64(r.position.Y), r.collisionRadius) {
		r.collisions++
		out.Collided = true
	}

	if r.position == r.goal {
		r.arrive()
		out.Arrived = true
	}
	return out
}

// arrive ends the current run at the goal.
func (r *Robot) arrive() {
	r.moving = false
	r.stalled = false
	elapsed := r.now().Sub(r.startedAt)
	r.timeToGoal = &elapsed
}

// Replan replaces the path from the current position. An empty result
// stalls a moving robot and is reported as ErrGoalUnreachable; a path found
// for a stalled robot puts it back in motion.
func (r *Robot) Replan() error {
	r.path = r.planner.FindPath(r.position, r.goal, r.field)
	if len(r.path) == 0 {
		if r.moving {
			r.moving = false
			r.stalled = true
		}
		return fmt.Errorf("replan %v -> %v: %w", r.position, r.goal, ErrGoalUnreachable)
	}
	if r.stalled && len(r.path) > 1 {
		r.stalled = false
		r.moving = true
	}
	return nil
}

// SetGoal moves the goal and replans without starting motion. Out of bounds
// or occupied cells are rejected and nothing changes. An unreachable but
// valid goal is accepted and leaves the path empty. Moving the goal of an
// active run onto the robot's own cell finishes the run there, and arrived
// reports it.
func (r *Robot) SetGoal(c algorithms.Cell) (arrived bool, err error) {
	if !r.grid.InBounds(c) {
		return false, fmt.Errorf("goal %v: %w", c, ErrOutOfBounds)
	}
	if r.field.IsOccupied(c) {
		return false, fmt.Errorf("goal %v: %w", c, ErrCellOccupied)
	}
	r.goal = c
	if c == r.position && (r.moving || r.stalled) {
		r.path = []algorithms.Cell{c}
		r.arrive()
		return true, nil
	}
	_ = r.Replan()
	return false, nil
}

// Reset returns the robot to its home cell and clears the run. The caller
// regenerates obstacles and replans.
func (r *Robot) Reset() {
	r.position = r.home
	r.path = nil
	r.moving = false
	r.stalled = false
	r.collisions = 0
	r.startedAt = time.Time{}
	r.timeToGoal = nil
	r.steps = 0
}

// Move steps one cell by hand while idle, then replans.
func (r *Robot) Move(direction string) error {
	delta, ok := moveDeltas[direction]
	if !ok {
		return fmt.Errorf("move %q: %w", direction, ErrInvalidDirection)
	}
	if r.moving || r.stalled {
		return ErrRobotMoving
	}
	next := algorithms.Cell{X: r.position.X + delta.X, Y: r.position.Y + delta.Y}
	if !r.grid.InBounds(next) {
		return fmt.Errorf("move %s to %v: %w", direction, next, ErrOutOfBounds)
	}
	if r.field.IsOccupied(next) {
		return fmt.Errorf("move %s to %v: %w", direction, next, ErrCellOccupied)
	}
	r.position = next
	_ = r.Replan()
	return nil
}

// State returns the wire view of the robot.
func (r *Robot) State() models.RobotState {
	state := models.RobotState{
		X:          r.position.X,
		Y:          r.position.Y,
		GoalX:      r.goal.X,
		GoalY:      r.goal.Y,
		Path:       r.Path(),
		IsMoving:   r.moving,
		Collisions: r.collisions,
	}
	if state.Path == nil {
		state.Path = []algorithms.Cell{}
	}
	if r.timeToGoal != nil {
		ms := r.timeToGoal.Milliseconds()
		state.TimeToGoal = &ms
	}
	return state
}

func (r *Robot) pathValid() bool {
	return len(r.path) > 0 && r.path[0] == r.position && r.path[len(r.path)-1] == r.goal
}
