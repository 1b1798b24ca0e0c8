package services

import (
	"testing"
	"time"

	"github.com/Akshit568/Robot-Navigation-System/logging"
	"github.com/Akshit568/Robot-Navigation-System/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFeedThrottlesLowPriorityEvents(t *testing.T) {
	var sent []models.WebSocketMessage
	feed := NewEventFeed(func(msg models.WebSocketMessage) { sent = append(sent, msg) }, 2*time.Second, logging.Noop())
	clock := newFakeClock()
	feed.now = clock.Now

	assert.True(t, feed.handle(NavEvent{Type: EventCollision}))
	assert.False(t, feed.handle(NavEvent{Type: EventCollision}), "second collision inside cooldown")
	assert.True(t, feed.handle(NavEvent{Type: EventReplanned}), "cooldown is per event type")

	clock.Advance(2 * time.Second)
	assert.True(t, feed.handle(NavEvent{Type: EventCollision}))

	assert.Len(t, sent, 3)
}

func TestEventFeedNeverThrottlesUrgentEvents(t *testing.T) {
	count := 0
	feed := NewEventFeed(func(models.WebSocketMessage) { count++ }, time.Hour, nil)

	for i := 0; i < 3; i++ {
		assert.True(t, feed.handle(NavEvent{Type: EventGoalReached}))
	}
	assert.Equal(t, 3, count)
}

func TestEventFeedMessageShape(t *testing.T) {
	var got models.WebSocketMessage
	feed := NewEventFeed(func(msg models.WebSocketMessage) { got = msg }, 0, nil)
	ms := int64(1234)

	feed.handle(NavEvent{
		Type:  EventGoalReached,
		Tick:  42,
		Robot: models.RobotState{GoalX: 5, GoalY: 6, Collisions: 2, TimeToGoal: &ms},
	})

	assert.Equal(t, models.MessageTypeNavEvent, got.Type)
	data, ok := got.Data.(models.NavEventData)
	require.True(t, ok)
	assert.Equal(t, EventGoalReached, data.EventType)
	assert.Equal(t, uint64(42), data.Tick)
	assert.Equal(t, "goal (5,6) reached in 1234 ms with 2 collisions", data.Message)
}

func TestEventFeedDeliversAsynchronously(t *testing.T) {
	received := make(chan models.WebSocketMessage, 4)
	feed := NewEventFeed(func(msg models.WebSocketMessage) { received <- msg }, 0, nil)
	feed.Start()
	defer feed.Stop()

	feed.Emit(NavEvent{Type: EventRunStarted, Robot: models.RobotState{X: 1, Y: 1, GoalX: 18, GoalY: 18}})

	select {
	case msg := <-received:
		assert.Equal(t, "robot started at (1,1) heading for (18,18)", msg.Data.(models.NavEventData).Message)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestEventFeedStopIsIdempotent(t *testing.T) {
	feed := NewEventFeed(nil, 0, nil)
	feed.Start()

	feed.Stop()
	feed.Stop()
}
