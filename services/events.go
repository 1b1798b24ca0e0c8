package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Akshit568/Robot-Navigation-System/logging"
	"github.com/Akshit568/Robot-Navigation-System/models"
)

// Navigation event types.
const (
	EventRunStarted       = "run_started"
	EventRunStopped       = "run_stopped"
	EventGoalReached      = "goal_reached"
	EventGoalUnreachable  = "goal_unreachable"
	EventCollision        = "collision"
	EventReplanned        = "replanned"
	EventObstaclesSpawned = "obstacles_spawned"
	EventRobotReset       = "robot_reset"
	EventEnvironmentReset = "environment_reset"
	EventGoalChanged      = "goal_changed"
	EventRobotMoved       = "robot_moved"
)

// events at or above this priority skip the per-type cooldown
const urgentPriority = 50

var eventPriority = map[string]int{
	EventGoalReached:      100,
	EventGoalUnreachable:  90,
	EventRunStarted:       80,
	EventRunStopped:       80,
	EventEnvironmentReset: 70,
	EventRobotReset:       70,
	EventGoalChanged:      60,
	EventObstaclesSpawned: 60,
	EventRobotMoved:       30,
	EventCollision:        20,
	EventReplanned:        5,
}

// NavEvent is something observers and the run log care about.
type NavEvent struct {
	Type      string
	Message   string
	Tick      uint64
	RunID     string
	SessionID string
	Robot     models.RobotState
	Data      map[string]interface{}
	At        time.Time
}

// EventSink accepts events from inside the simulation tick. Implementations
// must not block.
type EventSink interface {
	Emit(ev NavEvent)
}

// EventFeed forwards navigation events to observers from its own goroutine,
// throttling low-priority event types.
type EventFeed struct {
	broadcast func(models.WebSocketMessage)
	log       logging.Logger
	now       func() time.Time

	cooldown time.Duration
	lastSent map[string]time.Time
	mu       sync.Mutex

	queue    chan NavEvent
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewEventFeed creates a feed that calls broadcast for each accepted event.
func NewEventFeed(broadcast func(models.WebSocketMessage), cooldown time.Duration, log logging.Logger) *EventFeed {
	if log == nil {
		log = logging.Noop()
	}
	return &EventFeed{
		broadcast: broadcast,
		log:       log.With(logging.String("component", "event_feed")),
		now:       time.Now,
		cooldown:  cooldown,
		lastSent:  make(map[string]time.Time),
		queue:     make(chan NavEvent, 64),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the delivery goroutine.
func (f *EventFeed) Start() {
	go f.processEvents()
}

// Stop ends delivery. Queued events not yet sent are dropped.
func (f *EventFeed) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopChan)
		<-f.done
	})
}

// Emit queues an event without blocking; a full queue drops it.
func (f *EventFeed) Emit(ev NavEvent) {
	select {
	case f.queue <- ev:
	default:
		f.log.Warn(context.Background(), "event queue full, dropping event", logging.String("event_type", ev.Type))
	}
}

func (f *EventFeed) processEvents() {
	defer close(f.done)
	for {
		select {
		case ev := <-f.queue:
			f.handle(ev)
		case <-f.stopChan:
			return
		}
	}
}

// handle reports whether the event was broadcast.
func (f *EventFeed) handle(ev NavEvent) bool {
	now := f.now()
	if priorityOf(ev.Type) < urgentPriority {
		f.mu.Lock()
		if last, ok := f.lastSent[ev.Type]; ok && now.Sub(last) < f.cooldown {
			f.mu.Unlock()
			return false
		}
		f.lastSent[ev.Type] = now
		f.mu.Unlock()
	}

	if f.broadcast == nil {
		return false
	}
	at := ev.At
	if at.IsZero() {
		at = now
	}
	f.broadcast(models.WebSocketMessage{
		Type: models.MessageTypeNavEvent,
		Data: models.NavEventData{
			EventType: ev.Type,
			Message:   describeEvent(ev),
			Tick:      ev.Tick,
			Data:      ev.Data,
			Timestamp: at.UnixMilli(),
		},
		Timestamp: now.UnixMilli(),
	})
	return true
}

func priorityOf(eventType string) int {
	if p, ok := eventPriority[eventType]; ok {
		return p
	}
	return 10
}

// describeEvent renders the human-readable line shown in observer feeds.
func describeEvent(ev NavEvent) string {
	if ev.Message != "" {
		return ev.Message
	}
	pos := fmt.Sprintf("(%d,%d)", ev.Robot.X, ev.Robot.Y)
	goal := fmt.Sprintf("(%d,%d)", ev.Robot.GoalX, ev.Robot.GoalY)
	switch ev.Type {
	case EventRunStarted:
		return fmt.Sprintf("robot started at %s heading for %s", pos, goal)
	case EventRunStopped:
		return fmt.Sprintf("robot stopped at %s", pos)
	case EventGoalReached:
		if ev.Robot.TimeToGoal != nil {
			return fmt.Sprintf("goal %s reached in %d ms with %d collisions", goal, *ev.Robot.TimeToGoal, ev.Robot.Collisions)
		}
		return fmt.Sprintf("goal %s reached", goal)
	case EventGoalUnreachable:
		return fmt.Sprintf("no path from %s to %s", pos, goal)
	case EventCollision:
		return fmt.Sprintf("near miss at %s (%d total)", pos, ev.Robot.Collisions)
	case EventReplanned:
		return fmt.Sprintf("replanned from %s, %d cells to go", pos, len(ev.Robot.Path))
	case EventObstaclesSpawned:
		return fmt.Sprintf("spawned %v moving obstacles", ev.Data["count"])
	case EventRobotReset:
		return fmt.Sprintf("robot reset to %s", pos)
	case EventEnvironmentReset:
		return "environment regenerated"
	case EventGoalChanged:
		return fmt.Sprintf("goal moved to %s", goal)
	case EventRobotMoved:
		return fmt.Sprintf("robot moved to %s", pos)
	default:
		return ev.Type
	}
}
