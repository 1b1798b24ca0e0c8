package models

import (
	"time"
)

// RunLog - navigation event log
type RunLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	RunID     string    `gorm:"size:36;index" json:"run_id"`
	EventType string    `gorm:"size:64;index" json:"event_type"` // "run_started", "collision", "goal_reached", ...
	Tick      uint64    `json:"tick"`

	// robot state at the time of the event
	RobotX     int `json:"robot_x"`
	RobotY     int `json:"robot_y"`
	GoalX      int `json:"goal_x"`
	GoalY      int `json:"goal_y"`
	Collisions int `json:"collisions"`

	SessionID string `gorm:"size:36" json:"session_id,omitempty"` // observer that issued the command, if any
	Detail    string `json:"detail"`
}

// RunResult - one finished run, recorded when the robot reaches its goal
type RunResult struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	RunID         string    `gorm:"size:36;uniqueIndex" json:"run_id"`
	ObstacleSpeed float64   `json:"obstacle_speed"` // mean moving obstacle speed
	ObstacleCount int       `json:"obstacle_count"`
	Collisions    int       `json:"collisions"`
	TimeToGoalMs  int64     `json:"time_to_goal_ms"`
	PathLength    int       `json:"path_length"` // steps taken
	Success       bool      `json:"success"`
}

// LogStats summarises the run log over a window.
type LogStats struct {
	TotalLogs     int64            `json:"total_logs"`
	EventCounts   map[string]int64 `json:"event_counts"`
	Runs          int64            `json:"runs"`
	AvgCollisions float64          `json:"avg_collisions"`
	AvgTimeToGoal float64          `json:"avg_time_to_goal_ms"`
	TimeRange     string           `json:"time_range"`
}
