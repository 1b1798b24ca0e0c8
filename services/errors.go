package services

import (
	"context"
	"errors"

	"github.com/Akshit568/Robot-Navigation-System/algorithms"
)

// Command and configuration errors. Callers classify them with errors.Is;
// every rejection leaves the simulation state untouched, except that a
// failed startSimulation wrapped in ErrClockStartedRobotIdle has still set
// the clock running.
var (
	ErrInvalidGridSize  = algorithms.ErrInvalidGridSize
	ErrNegativeCount    = errors.New("obstacle count must not be negative")
	ErrOutOfBounds      = errors.New("cell out of bounds")
	ErrCellOccupied     = errors.New("cell occupied")
	ErrGoalUnreachable  = errors.New("goal unreachable")
	ErrAlreadyAtGoal    = errors.New("robot already at goal")
	ErrRobotMoving      = errors.New("robot is moving")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrQueueFull        = errors.New("command queue full")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrNotTicking       = errors.New("simulation clock is not running")

	ErrClockStartedRobotIdle = errors.New("simulation started, robot idle")
)

// PartiallyApplied reports whether a failed command still changed state.
func PartiallyApplied(err error) bool {
	return errors.Is(err, ErrClockStartedRobotIdle)
}

// ErrorCode maps a command error onto the short code sent to observers.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNegativeCount), errors.Is(err, ErrInvalidDirection),
		errors.Is(err, ErrUnknownCommand), errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrInvalidGridSize):
		return "invalid_argument"
	case errors.Is(err, ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, ErrCellOccupied):
		return "cell_occupied"
	case errors.Is(err, ErrGoalUnreachable):
		return "goal_unreachable"
	case errors.Is(err, ErrAlreadyAtGoal):
		return "already_at_goal"
	case errors.Is(err, ErrRobotMoving):
		return "robot_moving"
	case errors.Is(err, ErrQueueFull):
		return "queue_full"
	case errors.Is(err, ErrNotTicking):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "internal"
	}
}
