package models

import "github.com/Akshit568/Robot-Navigation-System/algorithms"

// RobotState is the wire view of the navigating agent.
type RobotState struct {
	X          int               `json:"x"`
	Y          int               `json:"y"`
	GoalX      int               `json:"goalX"`
	GoalY      int               `json:"goalY"`
	Path       []algorithms.Cell `json:"path"`
	IsMoving   bool              `json:"isMoving"`
	Collisions int               `json:"collisions"`
	TimeToGoal *int64            `json:"timeToGoal"` // ms, null until the goal is reached
}

// MovingObstacle has a continuous position and a diagonal direction.
type MovingObstacle struct {
	ID    int     `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	DX    int     `json:"dx"`
	DY    int     `json:"dy"`
	Speed float64 `json:"speed"`
}

// WorldSnapshot is an immutable copy of the world published once per tick.
// Nothing in it aliases simulator state.
type WorldSnapshot struct {
	Robot           RobotState        `json:"robot"`
	StaticObstacles []algorithms.Cell `json:"staticObstacles"`
	MovingObstacles []MovingObstacle  `json:"movingObstacles"`
	GridSize        int               `json:"gridSize"`
	Tick            uint64            `json:"tick"`
	Running         bool              `json:"running"`
}
