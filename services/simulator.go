package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Akshit568/Robot-Navigation-System/algorithms"
	"github.com/Akshit568/Robot-Navigation-System/logging"
	"github.com/Akshit568/Robot-Navigation-System/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultSpawnCount is used when spawnMovingObstacles carries no count.
const DefaultSpawnCount = 5

// ========================================
// Configuration
// ========================================

// Config holds the simulation parameters.
type Config struct {
	GridSize          int
	Start             algorithms.Cell
	Goal              algorithms.Cell
	StaticObstacles   int
	MovingObstacles   int
	TickInterval      time.Duration
	ReplanProbability float64
	TurnProbability   float64
	CollisionRadius   float64
	CommandQueueSize  int
	Seed              int64 // 0 seeds from the clock
}

// DefaultConfig is the stock 20x20 world.
func DefaultConfig() Config {
	return Config{
		GridSize:          20,
		Start:             algorithms.Cell{X: 1, Y: 1},
		Goal:              algorithms.Cell{X: 18, Y: 18},
		StaticObstacles:   25,
		MovingObstacles:   5,
		TickInterval:      100 * time.Millisecond,
		ReplanProbability: 0.1,
		TurnProbability:   DefaultTurnProbability,
		CollisionRadius:   DefaultCollisionRadius,
		CommandQueueSize:  256,
	}
}

// Validate rejects configurations the simulator cannot run.
func (c Config) Validate() error {
	grid, err := algorithms.NewGrid(c.GridSize)
	if err != nil {
		return err
	}
	if !grid.InBounds(c.Start) {
		return fmt.Errorf("start %v outside %dx%d grid: %w", c.Start, c.GridSize, c.GridSize, ErrInvalidConfig)
	}
	if !grid.InBounds(c.Goal) {
		return fmt.Errorf("goal %v outside %dx%d grid: %w", c.Goal, c.GridSize, c.GridSize, ErrInvalidConfig)
	}
	if c.StaticObstacles < 0 || c.MovingObstacles < 0 {
		return fmt.Errorf("obstacle counts %d/%d: %w", c.StaticObstacles, c.MovingObstacles, ErrNegativeCount)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval %v: %w", c.TickInterval, ErrInvalidConfig)
	}
	if c.ReplanProbability < 0 || c.ReplanProbability > 1 {
		return fmt.Errorf("replan probability %v: %w", c.ReplanProbability, ErrInvalidConfig)
	}
	if c.TurnProbability < 0 || c.TurnProbability > 1 {
		return fmt.Errorf("turn probability %v: %w", c.TurnProbability, ErrInvalidConfig)
	}
	if c.CollisionRadius <= 0 {
		return fmt.Errorf("collision radius %v: %w", c.CollisionRadius, ErrInvalidConfig)
	}
	if c.CommandQueueSize < 1 {
		return fmt.Errorf("command queue size %d: %w", c.CommandQueueSize, ErrInvalidConfig)
	}
	return nil
}

// ========================================
// Collaborators
// ========================================

// Publisher receives one snapshot per tick. Publish must not block.
type Publisher interface {
	Publish(snapshot models.WorldSnapshot)
}

// ResultRecorder stores finished runs.
type ResultRecorder interface {
	RecordResult(res models.RunResult)
}

// Option customises a Simulator.
type Option func(*Simulator)

func WithPublisher(p Publisher) Option { return func(s *Simulator) { s.publisher = p } }
func WithEventSink(sink EventSink) Option {
	return func(s *Simulator) { s.sinks = append(s.sinks, sink) }
}
func WithResultRecorder(r ResultRecorder) Option { return func(s *Simulator) { s.results = r } }
func WithMetrics(m *Metrics) Option              { return func(s *Simulator) { s.metrics = m } }
func WithLogger(l logging.Logger) Option         { return func(s *Simulator) { s.log = l } }
func WithRand(rng *rand.Rand) Option             { return func(s *Simulator) { s.rng = rng } }
func WithClock(now func() time.Time) Option      { return func(s *Simulator) { s.now = now } }

// ========================================
// Simulator
// ========================================

// SimulationState is the whole mutable world. Only the Simulator touches it,
// and only while holding its lock.
type SimulationState struct {
	Grid      *algorithms.Grid
	Obstacles *ObstacleField
	Robot     *Robot
	Running   bool
	Tick      uint64
	RunID     string
}

// Simulator is the single writer of the simulation state. Commands from any
// goroutine are queued and applied at the next tick boundary.
type Simulator struct {
	cfg Config

	mu    sync.Mutex
	state *SimulationState

	commands  *CommandBuffer
	publisher Publisher
	sinks     []EventSink
	results   ResultRecorder
	metrics   *Metrics
	log       logging.Logger
	rng       *rand.Rand
	now       func() time.Time

	ticking atomic.Bool
}

// NewSimulator validates cfg and generates the initial environment.
func NewSimulator(cfg Config, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Noop()
	}
	s.log = s.log.With(logging.String("component", "simulator"))
	if s.now == nil {
		s.now = time.Now
	}
	if s.rng == nil {
		if cfg.Seed != 0 {
			s.rng = rand.New(rand.NewSource(cfg.Seed))
		} else {
			s.rng = newTimeSeededRand()
		}
	}
	s.commands = NewCommandBuffer(cfg.CommandQueueSize, s.metrics)

	grid, _ := algorithms.NewGrid(cfg.GridSize)
	field := NewObstacleField(grid, s.rng)
	field.SetTurnProbability(cfg.TurnProbability)
	robot := NewRobot(grid, field, cfg.Start, cfg.Goal, cfg.CollisionRadius, s.now)
	s.state = &SimulationState{Grid: grid, Obstacles: field, Robot: robot}

	ctx := context.Background()
	s.generateStaticLocked(ctx)
	s.generateMovingLocked(ctx, cfg.MovingObstacles)
	if err := robot.Replan(); err != nil {
		s.log.Warn(ctx, "initial goal unreachable", logging.Err(err))
	}

	s.log.Info(ctx, "simulation ready",
		logging.Int("grid_size", cfg.GridSize),
		logging.Any("start", cfg.Start),
		logging.Any("goal", cfg.Goal),
		logging.Int("static_obstacles", len(field.StaticCells())),
		logging.Int("moving_obstacles", len(field.MovingObstacles())),
	)
	return s, nil
}

// Config returns the configuration the simulator was built with.
func (s *Simulator) Config() Config { return s.cfg }

// Enqueue stages a command for the next tick boundary.
func (s *Simulator) Enqueue(cmd models.Command) error {
	return s.commands.Push(cmd)
}

// Submit enqueues cmd and waits until a tick has applied it. It fails fast
// with ErrNotTicking when nothing drives the clock.
func (s *Simulator) Submit(ctx context.Context, cmd models.Command) error {
	if !s.Ticking() {
		return fmt.Errorf("%s: %w", cmd.Type, ErrNotTicking)
	}
	if cmd.Result == nil {
		cmd.Result = make(chan error, 1)
	}
	if err := s.Enqueue(cmd); err != nil {
		return err
	}
	select {
	case err := <-cmd.Result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", cmd.Type, ctx.Err())
	}
}

// Ticking reports whether Run is currently driving the clock.
func (s *Simulator) Ticking() bool { return s.ticking.Load() }

// Run ticks at the configured interval until ctx is cancelled. Ticks that
// fall behind are dropped by the ticker rather than queued.
func (s *Simulator) Run(ctx context.Context) {
	s.ticking.Store(true)
	defer s.ticking.Store(false)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.log.Info(ctx, "simulation clock started", logging.Duration("interval", s.cfg.TickInterval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info(context.Background(), "simulation clock stopped")
			return
		case <-ticker.C:
			s.Step(ctx)
		}
	}
}

// Step executes one tick: apply queued commands, then advance the world if
// running, then publish.
func (s *Simulator) Step(ctx context.Context) {
	ctx, span := tracer().Start(ctx, "simulation.tick")
	defer span.End()
	began := time.Now()

	pending := s.commands.Drain()

	s.mu.Lock()
	changed := false
	for _, cmd := range pending {
		mutated, err := s.applyLocked(ctx, cmd)
		changed = changed || mutated
		s.metrics.IncCommand(string(cmd.Type), err)
		if err != nil {
			s.log.Debug(ctx, "command rejected", logging.String("command", string(cmd.Type)), logging.Err(err))
		}
		if cmd.Result != nil {
			select {
			case cmd.Result <- err:
			default:
			}
		}
	}

	running := s.state.Running
	if running {
		s.advanceLocked(ctx)
	}

	var snapshot *models.WorldSnapshot
	if running || changed {
		snap := s.snapshotLocked()
		snapshot = &snap
	}
	tick := s.state.Tick
	s.mu.Unlock()

	if snapshot != nil && s.publisher != nil {
		s.publisher.Publish(*snapshot)
	}
	if running {
		s.metrics.ObserveTick(time.Since(began).Seconds())
	}
	span.SetAttributes(
		attribute.Int64("sim.tick", int64(tick)),
		attribute.Bool("sim.running", running),
		attribute.Int("sim.commands", len(pending)),
	)
}

// Snapshot returns a deep copy of the current world.
func (s *Simulator) Snapshot() models.WorldSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Simulator) snapshotLocked() models.WorldSnapshot {
	st := s.state
	return models.WorldSnapshot{
		Robot:           st.Robot.State(),
		StaticObstacles: st.Obstacles.StaticCells(),
		MovingObstacles: st.Obstacles.MovingObstacles(),
		GridSize:        st.Grid.Size,
		Tick:            st.Tick,
		Running:         st.Running,
	}
}

// advanceLocked runs the per-tick world update: obstacle motion, the
// stochastic replan, then one robot step.
func (s *Simulator) advanceLocked(ctx context.Context) {
	st := s.state
	st.Tick++
	st.Obstacles.Tick()

	// a stalled run resumes on the first periodic replan that finds a path
	if s.rng.Float64() < s.cfg.ReplanProbability {
		wasMoving := st.Robot.IsMoving()
		err := st.Robot.Replan()
		s.metrics.IncReplan("periodic", err == nil)
		switch {
		case err == nil:
			s.emitLocked(ctx, EventReplanned, "", nil)
		case wasMoving:
			s.emitLocked(ctx, EventGoalUnreachable, "", nil)
		}
	}

	out := st.Robot.Step()
	if out.Collided {
		s.metrics.IncCollision()
		s.emitLocked(ctx, EventCollision, "", nil)
	}
	if out.Arrived {
		s.finishRunLocked(ctx)
	}
}

func (s *Simulator) finishRunLocked(ctx context.Context) {
	s.metrics.IncGoalReached()
	s.emitLocked(ctx, EventGoalReached, "", nil)
	s.recordResultLocked()
}

func (s *Simulator) recordResultLocked() {
	if s.results == nil {
		return
	}
	st := s.state
	elapsed, _ := st.Robot.TimeToGoal()
	s.results.RecordResult(models.RunResult{
		CreatedAt:     s.now(),
		RunID:         st.RunID,
		ObstacleSpeed: st.Obstacles.MeanSpeed(),
		ObstacleCount: len(st.Obstacles.MovingObstacles()),
		Collisions:    st.Robot.Collisions(),
		TimeToGoalMs:  elapsed.Milliseconds(),
		PathLength:    st.Robot.Steps(),
		Success:       true,
	})
}

// applyLocked applies one command and reports whether observable state changed.
func (s *Simulator) applyLocked(ctx context.Context, cmd models.Command) (bool, error) {
	st := s.state
	robot := st.Robot

	switch cmd.Type {
	case models.CommandStartSimulation:
		wasRunning, wasMoving, wasStalled := st.Running, robot.IsMoving(), robot.Stalled()
		st.Running = true
		if err := robot.Start(); err != nil {
			if IsUnreachable(err) {
				s.emitLocked(ctx, EventGoalUnreachable, cmd.SessionID, nil)
			}
			if !wasRunning {
				// obstacles run even though the robot stays put
				return true, fmt.Errorf("%w: %w", ErrClockStartedRobotIdle, err)
			}
			return false, err
		}
		if !wasMoving && !wasStalled {
			st.RunID = uuid.NewString()
			s.emitLocked(ctx, EventRunStarted, cmd.SessionID, nil)
		}
		return !wasRunning || !wasMoving, nil

	case models.CommandStopSimulation:
		if !st.Running && !robot.IsMoving() {
			return false, nil
		}
		st.Running = false
		robot.Stop()
		s.emitLocked(ctx, EventRunStopped, cmd.SessionID, nil)
		return true, nil

	case models.CommandResetRobot:
		robot.Reset()
		st.Running = false
		st.RunID = ""
		s.generateMovingLocked(ctx, s.cfg.MovingObstacles)
		s.replanLocked(ctx, "command", cmd.SessionID)
		s.emitLocked(ctx, EventRobotReset, cmd.SessionID, nil)
		return true, nil

	case models.CommandSetGoal:
		goal := algorithms.Cell{X: cmd.X, Y: cmd.Y}
		arrived, err := robot.SetGoal(goal)
		if err != nil {
			return false, err
		}
		s.emitLocked(ctx, EventGoalChanged, cmd.SessionID, nil)
		if arrived {
			s.finishRunLocked(ctx)
			return true, nil
		}
		s.metrics.IncReplan("command", len(robot.Path()) > 0)
		if len(robot.Path()) == 0 {
			s.emitLocked(ctx, EventGoalUnreachable, cmd.SessionID, nil)
		}
		return true, nil

	case models.CommandSpawnObstacles:
		count := cmd.Count
		if count < 0 {
			return false, fmt.Errorf("spawn %d: %w", count, ErrNegativeCount)
		}
		if count == 0 {
			count = DefaultSpawnCount
		}
		placed := s.generateMovingLocked(ctx, count)
		s.replanLocked(ctx, "command", cmd.SessionID)
		s.emitLocked(ctx, EventObstaclesSpawned, cmd.SessionID, map[string]interface{}{
			"count":     placed,
			"requested": count,
		})
		return true, nil

	case models.CommandMoveRobot:
		if err := robot.Move(cmd.Direction); err != nil {
			return false, err
		}
		s.metrics.IncReplan("command", len(robot.Path()) > 0)
		s.emitLocked(ctx, EventRobotMoved, cmd.SessionID, map[string]interface{}{"direction": cmd.Direction})
		return true, nil

	case models.CommandResetEnvironment:
		robot.Reset()
		st.Running = false
		st.RunID = ""
		st.Obstacles.ResetStatic()
		s.generateStaticLocked(ctx)
		s.generateMovingLocked(ctx, s.cfg.MovingObstacles)
		s.replanLocked(ctx, "command", cmd.SessionID)
		s.emitLocked(ctx, EventEnvironmentReset, cmd.SessionID, nil)
		return true, nil

	default:
		return false, fmt.Errorf("%q: %w", cmd.Type, ErrUnknownCommand)
	}
}

func (s *Simulator) replanLocked(ctx context.Context, trigger, sessionID string) {
	err := s.state.Robot.Replan()
	s.metrics.IncReplan(trigger, err == nil)
	if err != nil {
		s.emitLocked(ctx, EventGoalUnreachable, sessionID, nil)
	}
}

// generateStaticLocked places the configured static obstacles away from the
// start and goal.
func (s *Simulator) generateStaticLocked(ctx context.Context) {
	st := s.state
	placed, err := st.Obstacles.GenerateStatic(s.cfg.StaticObstacles, s.cfg.Start, st.Robot.Goal())
	if err != nil {
		s.log.Error(ctx, "static obstacle generation failed", logging.Err(err))
		return
	}
	if placed < s.cfg.StaticObstacles {
		s.log.Warn(ctx, "placed fewer static obstacles than requested",
			logging.Int("requested", s.cfg.StaticObstacles), logging.Int("placed", placed))
	}
	s.metrics.SetObstacleCounts(len(st.Obstacles.StaticCells()), len(st.Obstacles.MovingObstacles()))
}

// generateMovingLocked replaces the moving obstacles, keeping the robot's
// cell, its home and its goal clear.
func (s *Simulator) generateMovingLocked(ctx context.Context, count int) int {
	st := s.state
	placed, err := st.Obstacles.GenerateMoving(count, st.Robot.Position(), s.cfg.Start, st.Robot.Goal())
	if err != nil {
		s.log.Error(ctx, "moving obstacle generation failed", logging.Err(err))
		return 0
	}
	if placed < count {
		s.log.Warn(ctx, "placed fewer moving obstacles than requested",
			logging.Int("requested", count), logging.Int("placed", placed))
	}
	s.metrics.SetObstacleCounts(len(st.Obstacles.StaticCells()), placed)
	return placed
}

func (s *Simulator) emitLocked(ctx context.Context, eventType, sessionID string, data map[string]interface{}) {
	ev := NavEvent{
		Type:      eventType,
		Tick:      s.state.Tick,
		RunID:     s.state.RunID,
		SessionID: sessionID,
		Robot:     s.state.Robot.State(),
		Data:      data,
		At:        s.now(),
	}
	s.log.Debug(ctx, "navigation event",
		logging.String("event_type", eventType),
		logging.Uint64("tick", ev.Tick),
		logging.String("run_id", ev.RunID),
	)
	for _, sink := range s.sinks {
		sink.Emit(ev)
	}
}

// IsUnreachable reports whether err means no path exists.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrGoalUnreachable)
}

func newTimeSeededRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
