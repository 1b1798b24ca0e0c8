package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Akshit568/Robot-Navigation-System/logging"
	"github.com/Akshit568/Robot-Navigation-System/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openTestDB returns an in-memory database private to the test.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := OpenDatabase(DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, logging.Noop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestRunLoggerFlushAndQuery(t *testing.T) {
	rl := NewRunLogger(openTestDB(t), 100, time.Hour, nil)
	base := time.Now().Add(-time.Minute)

	rl.Emit(NavEvent{Type: EventRunStarted, RunID: "run-1", Tick: 1, Robot: models.RobotState{X: 1, Y: 1, GoalX: 5, GoalY: 5}, At: base})
	rl.Emit(NavEvent{Type: EventCollision, RunID: "run-1", Tick: 4, Robot: models.RobotState{X: 3, Y: 1, Collisions: 1}, At: base.Add(time.Second)})
	rl.Emit(NavEvent{Type: EventGoalReached, RunID: "run-1", Tick: 9, Robot: models.RobotState{X: 5, Y: 5, GoalX: 5, GoalY: 5, Collisions: 1}, At: base.Add(2 * time.Second)})
	rl.RecordResult(models.RunResult{RunID: "run-1", Collisions: 1, TimeToGoalMs: 900, PathLength: 8, ObstacleSpeed: 1.25, ObstacleCount: 5, Success: true})

	recent, err := rl.RecentLogs(10)
	require.NoError(t, err)
	assert.Empty(t, recent, "nothing is written before a flush")

	require.NoError(t, rl.Flush())

	recent, err = rl.RecentLogs(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, EventGoalReached, recent[0].EventType)
	assert.Equal(t, EventCollision, recent[1].EventType)

	collisions, err := rl.LogsByEventType(EventCollision, 10)
	require.NoError(t, err)
	require.Len(t, collisions, 1)
	assert.Equal(t, 3, collisions[0].RobotX)
	assert.Equal(t, 1, collisions[0].Collisions)

	run, err := rl.LogsByRun("run-1")
	require.NoError(t, err)
	require.Len(t, run, 3)
	assert.Equal(t, EventRunStarted, run[0].EventType)
	assert.Equal(t, uint64(9), run[2].Tick)

	ranged, err := rl.LogsByTimeRange(base.Add(500*time.Millisecond), base.Add(3*time.Second), 0)
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	results, err := rl.Results(10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(900), results[0].TimeToGoalMs)
	assert.True(t, results[0].Success)

	stats, err := rl.Stats(1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalLogs)
	assert.Equal(t, int64(1), stats.EventCounts[EventCollision])
	assert.Equal(t, int64(1), stats.Runs)
	assert.InDelta(t, 1.0, stats.AvgCollisions, 1e-9)
	assert.InDelta(t, 900.0, stats.AvgTimeToGoal, 1e-9)
	assert.Equal(t, "Last 1 hours", stats.TimeRange)
}

func TestRunLoggerStopFlushes(t *testing.T) {
	db := openTestDB(t)
	rl := NewRunLogger(db, 100, time.Hour, nil)
	rl.Start()

	rl.Emit(NavEvent{Type: EventRobotReset, Data: map[string]interface{}{"count": 5}})
	rl.Stop()
	rl.Stop()

	var logs []models.RunLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Detail, `{"count":5}`)
}

func TestRunLoggerFlushesWhenBufferFills(t *testing.T) {
	db := openTestDB(t)
	rl := NewRunLogger(db, 2, time.Hour, nil)

	rl.Emit(NavEvent{Type: EventReplanned})
	rl.Emit(NavEvent{Type: EventReplanned})

	require.Eventually(t, func() bool {
		var count int64
		db.Model(&models.RunLog{}).Count(&count)
		return count == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunLoggerWithoutDatabase(t *testing.T) {
	rl := NewRunLogger(nil, 0, 0, nil)
	rl.Start()
	defer rl.Stop()

	rl.Emit(NavEvent{Type: EventCollision})
	rl.RecordResult(models.RunResult{RunID: "x"})

	assert.False(t, rl.Enabled())
	assert.NoError(t, rl.Flush())
	_, err := rl.RecentLogs(10)
	assert.True(t, errors.Is(err, ErrRunLogDisabled))
	_, err = rl.Stats(24)
	assert.True(t, errors.Is(err, ErrRunLogDisabled))
}

func TestOpenDatabaseDrivers(t *testing.T) {
	db, err := OpenDatabase(DatabaseConfig{Driver: "none"}, nil)
	assert.NoError(t, err)
	assert.Nil(t, db)

	_, err = OpenDatabase(DatabaseConfig{Driver: "postgres"}, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = OpenDatabase(DatabaseConfig{Driver: "mysql"}, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	assert.Equal(t, "nav:secret@tcp(db:3306)/runs?charset=utf8mb4&parseTime=True&loc=Local",
		MySQLConfig{Host: "db", User: "nav", Password: "secret", Database: "runs"}.DSN())
}
