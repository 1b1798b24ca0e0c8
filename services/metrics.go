package services

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors for the simulation and the
// observer fan-out. All methods are safe on a nil receiver.
type Metrics struct {
	gatherer prometheus.Gatherer

	Ticks         prometheus.Counter
	TickDuration  prometheus.Histogram
	Replans       *prometheus.CounterVec
	Collisions    prometheus.Counter
	GoalsReached  prometheus.Counter
	Commands      *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
	Obstacles     *prometheus.GaugeVec
	Observers     prometheus.Gauge
	DroppedFrames prometheus.Counter
}

// NewMetrics registers the collectors against reg, defaulting to the global
// registry when nil. Collectors already registered under the same name are
// reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{gatherer: gatherer}
	var err error

	if m.Ticks, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nav_ticks_total",
		Help: "Simulation ticks executed while running.",
	}), "nav_ticks_total"); err != nil {
		return nil, err
	}
	if m.TickDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nav_tick_duration_seconds",
		Help:    "Wall time spent inside one simulation tick.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "nav_tick_duration_seconds"); err != nil {
		return nil, err
	}
	if m.Replans, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_replans_total",
		Help: "Path replans, labeled by trigger and whether a path was found.",
	}, []string{"trigger", "found"}), "nav_replans_total"); err != nil {
		return nil, err
	}
	if m.Collisions, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nav_collisions_total",
		Help: "Proximity hits between the robot and moving obstacles.",
	}), "nav_collisions_total"); err != nil {
		return nil, err
	}
	if m.GoalsReached, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nav_goals_reached_total",
		Help: "Runs that reached their goal.",
	}), "nav_goals_reached_total"); err != nil {
		return nil, err
	}
	if m.Commands, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_commands_total",
		Help: "Observer commands, labeled by command and result code. queue_full counts commands refused before any tick.",
	}, []string{"command", "code"}), "nav_commands_total"); err != nil {
		return nil, err
	}
	if m.QueueDepth, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nav_command_queue_depth",
		Help: "Commands waiting for the next tick boundary.",
	}), "nav_command_queue_depth"); err != nil {
		return nil, err
	}
	if m.Obstacles, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nav_obstacles",
		Help: "Current obstacle count, labeled by kind.",
	}, []string{"kind"}), "nav_obstacles"); err != nil {
		return nil, err
	}
	if m.Observers, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nav_observers",
		Help: "Connected observer sessions.",
	}), "nav_observers"); err != nil {
		return nil, err
	}
	if m.DroppedFrames, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nav_observer_dropped_frames_total",
		Help: "Frames dropped from full observer queues.",
	}), "nav_observer_dropped_frames_total"); err != nil {
		return nil, err
	}
	return m, nil
}

// Handler exposes the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if m != nil && m.gatherer != nil {
		gatherer = m.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTick(seconds float64) {
	if m == nil {
		return
	}
	m.Ticks.Inc()
	m.TickDuration.Observe(seconds)
}

func (m *Metrics) IncReplan(trigger string, found bool) {
	if m == nil {
		return
	}
	m.Replans.WithLabelValues(trigger, fmt.Sprint(found)).Inc()
}

func (m *Metrics) IncCollision() {
	if m == nil {
		return
	}
	m.Collisions.Inc()
}

func (m *Metrics) IncGoalReached() {
	if m == nil {
		return
	}
	m.GoalsReached.Inc()
}

func (m *Metrics) IncCommand(command string, err error) {
	if m == nil {
		return
	}
	code := ErrorCode(err)
	if code == "" {
		code = "ok"
	}
	m.Commands.WithLabelValues(command, code).Inc()
}

func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

func (m *Metrics) SetObstacleCounts(static, moving int) {
	if m == nil {
		return
	}
	m.Obstacles.WithLabelValues("static").Set(float64(static))
	m.Obstacles.WithLabelValues("moving").Set(float64(moving))
}

func (m *Metrics) SetObservers(n int) {
	if m == nil {
		return
	}
	m.Observers.Set(float64(n))
}

func (m *Metrics) IncDroppedFrame() {
	if m == nil {
		return
	}
	m.DroppedFrames.Inc()
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
