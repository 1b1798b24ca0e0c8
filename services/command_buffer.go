package services

import (
	"fmt"
	"sync"

	"github.com/Akshit568/Robot-Navigation-System/models"
)

// queueMetrics is the slice of Metrics the command buffer reports into.
type queueMetrics interface {
	SetQueueDepth(depth int)
	IncCommand(command string, err error)
}

// CommandBuffer holds commands between tick boundaries. Any goroutine may
// Push; only the clock drains it, taking the whole batch at once.
type CommandBuffer struct {
	mu      sync.Mutex
	pending []models.Command
	limit   int
	metrics queueMetrics
}

// NewCommandBuffer accepts up to limit commands per tick, at least one.
func NewCommandBuffer(limit int, metrics queueMetrics) *CommandBuffer {
	if limit < 1 {
		limit = 1
	}
	return &CommandBuffer{
		pending: make([]models.Command, 0, limit),
		limit:   limit,
		metrics: metrics,
	}
}

// Capacity is the number of commands one tick can receive.
func (b *CommandBuffer) Capacity() int { return b.limit }

// Push queues cmd for the next tick. A full buffer refuses it with
// ErrQueueFull, which is counted like any other rejected command.
func (b *CommandBuffer) Push(cmd models.Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == b.limit {
		err := fmt.Errorf("%s: %d commands pending: %w", cmd.Type, len(b.pending), ErrQueueFull)
		if b.metrics != nil {
			b.metrics.IncCommand(string(cmd.Type), err)
		}
		return err
	}
	b.pending = append(b.pending, cmd)
	b.reportDepth()
	return nil
}

// Drain hands every pending command to the caller in arrival order and
// starts a fresh batch.
func (b *CommandBuffer) Drain() []models.Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = make([]models.Command, 0, b.limit)
	b.reportDepth()
	return batch
}

// Len is the number of commands waiting for the next tick.
func (b *CommandBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *CommandBuffer) reportDepth() {
	if b.metrics != nil {
		b.metrics.SetQueueDepth(len(b.pending))
	}
}
