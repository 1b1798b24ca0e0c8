package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Akshit568/Robot-Navigation-System/logging"
	"github.com/Akshit568/Robot-Navigation-System/models"
	"gorm.io/gorm"
)

// ErrRunLogDisabled is returned by queries when no database is configured.
var ErrRunLogDisabled = errors.New("run log disabled")

// RunLogger buffers run events and results in memory and writes them to the
// database in batches, either when the buffer fills or on a timer.
type RunLogger struct {
	db  *gorm.DB
	log logging.Logger

	mu      sync.Mutex
	logs    []models.RunLog
	results []models.RunResult

	flushSize     int
	flushInterval time.Duration

	stopChan  chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewRunLogger creates a logger over db. A nil db accepts and discards
// everything.
func NewRunLogger(db *gorm.DB, flushSize int, flushInterval time.Duration, log logging.Logger) *RunLogger {
	if flushSize < 1 {
		flushSize = 50
	}
	if flushInterval <= 0 {
		flushInterval = 10 * time.Second
	}
	if log == nil {
		log = logging.Noop()
	}
	return &RunLogger{
		db:            db,
		log:           log.With(logging.String("component", "run_log")),
		logs:          make([]models.RunLog, 0, flushSize*2),
		flushSize:     flushSize,
		flushInterval: flushInterval,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Enabled reports whether a database backs the logger.
func (l *RunLogger) Enabled() bool {
	return l != nil && l.db != nil
}

// Start launches the periodic flush goroutine.
func (l *RunLogger) Start() {
	l.startOnce.Do(func() {
		go l.autoFlush()
		l.log.Info(context.Background(), "run log started",
			logging.Int("flush_size", l.flushSize),
			logging.Duration("flush_interval", l.flushInterval))
	})
}

// Stop flushes what is buffered and ends the flush goroutine.
func (l *RunLogger) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
		started := true
		l.startOnce.Do(func() { started = false })
		if started {
			<-l.done
		} else if err := l.Flush(); err != nil {
			l.log.Error(context.Background(), "final flush failed", logging.Err(err))
		}
	})
}

func (l *RunLogger) autoFlush() {
	defer close(l.done)
	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := l.Flush(); err != nil {
				l.log.Error(context.Background(), "run log flush failed", logging.Err(err))
			}
		case <-l.stopChan:
			if err := l.Flush(); err != nil {
				l.log.Error(context.Background(), "final flush failed", logging.Err(err))
			}
			return
		}
	}
}

// Emit records a navigation event. It never blocks on the database.
func (l *RunLogger) Emit(ev NavEvent) {
	if !l.Enabled() {
		return
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	entry := models.RunLog{
		CreatedAt:  at,
		RunID:      ev.RunID,
		EventType:  ev.Type,
		Tick:       ev.Tick,
		RobotX:     ev.Robot.X,
		RobotY:     ev.Robot.Y,
		GoalX:      ev.Robot.GoalX,
		GoalY:      ev.Robot.GoalY,
		Collisions: ev.Robot.Collisions,
		SessionID:  ev.SessionID,
		Detail:     describeEvent(ev),
	}
	if len(ev.Data) > 0 {
		if raw, err := json.Marshal(ev.Data); err == nil {
			entry.Detail = fmt.Sprintf("%s %s", entry.Detail, raw)
		}
	}

	l.mu.Lock()
	l.logs = append(l.logs, entry)
	size := len(l.logs)
	l.mu.Unlock()

	if size >= l.flushSize {
		go func() {
			if err := l.Flush(); err != nil {
				l.log.Error(context.Background(), "run log flush failed", logging.Err(err))
			}
		}()
	}
}

// RecordResult buffers one finished run.
func (l *RunLogger) RecordResult(res models.RunResult) {
	if !l.Enabled() {
		return
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now()
	}
	l.mu.Lock()
	l.results = append(l.results, res)
	l.mu.Unlock()
}

// Flush writes everything buffered so far.
func (l *RunLogger) Flush() error {
	if !l.Enabled() {
		return nil
	}
	l.mu.Lock()
	if len(l.logs) == 0 && len(l.results) == 0 {
		l.mu.Unlock()
		return nil
	}
	logs := make([]models.RunLog, len(l.logs))
	copy(logs, l.logs)
	l.logs = l.logs[:0]
	results := l.results
	l.results = nil
	l.mu.Unlock()

	if len(logs) > 0 {
		if err := l.db.CreateInBatches(logs, 100).Error; err != nil {
			return fmt.Errorf("save %d run events: %w", len(logs), err)
		}
	}
	if len(results) > 0 {
		if err := l.db.CreateInBatches(results, 100).Error; err != nil {
			return fmt.Errorf("save %d run results: %w", len(results), err)
		}
	}
	l.log.Debug(context.Background(), "run log flushed",
		logging.Int("events", len(logs)), logging.Int("results", len(results)))
	return nil
}

// RecentLogs returns the newest events first.
func (l *RunLogger) RecentLogs(limit int) ([]models.RunLog, error) {
	if !l.Enabled() {
		return nil, ErrRunLogDisabled
	}
	var logs []models.RunLog
	err := l.db.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// LogsByTimeRange returns events created within [start, end].
func (l *RunLogger) LogsByTimeRange(start, end time.Time, limit int) ([]models.RunLog, error) {
	if !l.Enabled() {
		return nil, ErrRunLogDisabled
	}
	var logs []models.RunLog
	query := l.db.Where("created_at BETWEEN ? AND ?", start, end)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Order("created_at DESC, id DESC").Find(&logs).Error
	return logs, err
}

// LogsByEventType returns the newest events of one type.
func (l *RunLogger) LogsByEventType(eventType string, limit int) ([]models.RunLog, error) {
	if !l.Enabled() {
		return nil, ErrRunLogDisabled
	}
	var logs []models.RunLog
	err := l.db.Where("event_type = ?", eventType).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// LogsByRun returns one run's events in order.
func (l *RunLogger) LogsByRun(runID string) ([]models.RunLog, error) {
	if !l.Enabled() {
		return nil, ErrRunLogDisabled
	}
	var logs []models.RunLog
	err := l.db.Where("run_id = ?", runID).Order("id ASC").Find(&logs).Error
	return logs, err
}

// Results returns the newest run results first.
func (l *RunLogger) Results(limit int) ([]models.RunResult, error) {
	if !l.Enabled() {
		return nil, ErrRunLogDisabled
	}
	var results []models.RunResult
	err := l.db.Order("created_at DESC, id DESC").Limit(limit).Find(&results).Error
	return results, err
}

// Stats summarises the last hours of the run log.
func (l *RunLogger) Stats(hours int) (models.LogStats, error) {
	if !l.Enabled() {
		return models.LogStats{}, ErrRunLogDisabled
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	stats := models.LogStats{
		EventCounts: make(map[string]int64),
		TimeRange:   fmt.Sprintf("Last %d hours", hours),
	}

	if err := l.db.Model(&models.RunLog{}).
		Where("created_at >= ?", since).
		Count(&stats.TotalLogs).Error; err != nil {
		return stats, err
	}

	var eventCounts []struct {
		EventType string
		Count     int64
	}
	if err := l.db.Model(&models.RunLog{}).
		Select("event_type, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("event_type").
		Scan(&eventCounts).Error; err != nil {
		return stats, err
	}
	for _, ec := range eventCounts {
		stats.EventCounts[ec.EventType] = ec.Count
	}

	var results []models.RunResult
	if err := l.db.Where("created_at >= ?", since).Find(&results).Error; err != nil {
		return stats, err
	}
	stats.Runs = int64(len(results))
	if len(results) > 0 {
		var collisions, ms float64
		for _, r := range results {
			collisions += float64(r.Collisions)
			ms += float64(r.TimeToGoalMs)
		}
		stats.AvgCollisions = collisions / float64(len(results))
		stats.AvgTimeToGoal = ms / float64(len(results))
	}
	return stats, nil
}
