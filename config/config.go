// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Akshit568/Robot-Navigation-System/logging"
	"github.com/Akshit568/Robot-Navigation-System/services"
	"github.com/joho/godotenv"
)

const (
	DefaultPort          = "3001"
	DefaultCORSOrigins   = "http://localhost:5173, http://localhost:3000"
	DefaultEventCooldown = 2 * time.Second
	DefaultFlushSize     = 50
	DefaultFlushInterval = 10 * time.Second
	DefaultServiceName   = "robot-navigation"
)

// Config is everything main needs to assemble the server.
type Config struct {
	Port           string
	CORSOrigins    string
	ObserverBuffer int
	EventCooldown  time.Duration
	FlushSize      int
	FlushInterval  time.Duration

	Simulation services.Config
	Database   services.DatabaseConfig
	Tracing    services.TracingConfig
	Logging    logging.Config

	// EnvFileLoaded is false when no .env file could be read.
	EnvFileLoaded bool
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Port:           DefaultPort,
		CORSOrigins:    DefaultCORSOrigins,
		ObserverBuffer: 16,
		EventCooldown:  DefaultEventCooldown,
		FlushSize:      DefaultFlushSize,
		FlushInterval:  DefaultFlushInterval,
		Simulation:     services.DefaultConfig(),
		Database: services.DatabaseConfig{
			Driver: "sqlite",
			DSN:    services.DefaultSQLiteDSN,
		},
		Tracing: services.TracingConfig{
			ServiceName: DefaultServiceName,
			Exporter:    "stdout",
			SampleRatio: 1,
		},
		Logging: logging.Config{Level: "info", Format: "text"},
	}
}

// Load reads the given .env files (".env" when none are named) into the
// process environment, then parses it. A missing file is not an error.
func Load(files ...string) (Config, error) {
	loadErr := godotenv.Load(files...)
	cfg, err := FromEnv(os.LookupEnv)
	cfg.EnvFileLoaded = loadErr == nil
	return cfg, err
}

// FromEnv builds a Config from lookup. Every malformed variable is reported,
// each wrapping services.ErrInvalidConfig.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	p := parser{lookup: lookup}

	p.str("PORT", &cfg.Port)
	p.str("CORS_ORIGINS", &cfg.CORSOrigins)
	p.positiveInt("OBSERVER_BUFFER", &cfg.ObserverBuffer)
	p.duration("EVENT_COOLDOWN", &cfg.EventCooldown)
	p.positiveInt("LOG_FLUSH_SIZE", &cfg.FlushSize)
	p.duration("LOG_FLUSH_INTERVAL", &cfg.FlushInterval)

	sim := &cfg.Simulation
	p.integer("GRID_SIZE", &sim.GridSize)
	p.integer("START_X", &sim.Start.X)
	p.integer("START_Y", &sim.Start.Y)
	p.integer("GOAL_X", &sim.Goal.X)
	p.integer("GOAL_Y", &sim.Goal.Y)
	p.integer("STATIC_OBSTACLES", &sim.StaticObstacles)
	p.integer("MOVING_OBSTACLES", &sim.MovingObstacles)
	p.duration("TICK_INTERVAL", &sim.TickInterval)
	p.probability("REPLAN_PROBABILITY", &sim.ReplanProbability)
	p.probability("TURN_PROBABILITY", &sim.TurnProbability)
	p.float("COLLISION_RADIUS", &sim.CollisionRadius)
	p.positiveInt("COMMAND_QUEUE_SIZE", &sim.CommandQueueSize)
	p.int64("SIM_SEED", &sim.Seed)

	db := &cfg.Database
	p.str("DB_DRIVER", &db.Driver)
	p.str("DB_DSN", &db.DSN)
	p.str("MYSQL_HOST", &db.MySQL.Host)
	p.integer("MYSQL_PORT", &db.MySQL.Port)
	p.str("MYSQL_USER", &db.MySQL.User)
	p.str("MYSQL_PASSWORD", &db.MySQL.Password)
	p.str("MYSQL_DATABASE", &db.MySQL.Database)
	db.Driver = strings.ToLower(db.Driver)
	switch db.Driver {
	case "sqlite", "none":
	case "mysql":
		// the in-memory default only applies to sqlite
		if _, set := lookup("DB_DSN"); !set {
			db.DSN = ""
		}
	default:
		p.fail("DB_DRIVER", db.Driver, errors.New("want sqlite, mysql or none"))
	}

	tr := &cfg.Tracing
	p.boolean("TRACING_ENABLED", &tr.Enabled)
	p.str("TRACING_SERVICE_NAME", &tr.ServiceName)
	p.str("TRACING_EXPORTER", &tr.Exporter)
	p.str("TRACING_ENDPOINT", &tr.Endpoint)
	p.probability("TRACING_SAMPLE_RATIO", &tr.SampleRatio)
	tr.Exporter = strings.ToLower(tr.Exporter)
	if tr.Exporter != "stdout" && tr.Exporter != "otlp" {
		p.fail("TRACING_EXPORTER", tr.Exporter, errors.New("want stdout or otlp"))
	}

	p.str("LOG_LEVEL", &cfg.Logging.Level)
	p.str("LOG_FORMAT", &cfg.Logging.Format)
	if !logging.ValidLevel(cfg.Logging.Level) {
		p.fail("LOG_LEVEL", cfg.Logging.Level, errors.New("want debug, info, warn or error"))
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		p.fail("LOG_FORMAT", cfg.Logging.Format, errors.New("want json or text"))
	}

	if err := cfg.Simulation.Validate(); err != nil {
		p.errs = append(p.errs, err)
	}
	return cfg, errors.Join(p.errs...)
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	raw, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func (p *parser) fail(key, raw string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%w: %s=%q: %v", services.ErrInvalidConfig, key, raw, err))
}

func (p *parser) str(key string, dst *string) {
	if raw, ok := p.get(key); ok {
		*dst = raw
	}
}

func (p *parser) integer(key string, dst *int) {
	raw, ok := p.get(key)
	if !ok {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return
	}
	*dst = v
}

func (p *parser) positiveInt(key string, dst *int) {
	raw, ok := p.get(key)
	if !ok {
		return
	}
	v, err := strconv.Atoi(raw)
	if err == nil && v <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		p.fail(key, raw, err)
		return
	}
	*dst = v
}

func (p *parser) int64(key string, dst *int64) {
	raw, ok := p.get(key)
	if !ok {
		return
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.fail(key, raw, err)
		return
	}
	*dst = v
}

func (p *parser) float(key string, dst *float64) {
	raw, ok := p.get(key)
	if !ok {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return
	}
	*dst = v
}

func (p *parser) probability(key string, dst *float64) {
	raw, ok := p.get(key)
	if !ok {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err == nil && (v < 0 || v > 1) {
		err = errors.New("must be within [0, 1]")
	}
	if err != nil {
		p.fail(key, raw, err)
		return
	}
	*dst = v
}

func (p *parser) boolean(key string, dst *bool) {
	raw, ok := p.get(key)
	if !ok {
		return
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return
	}
	*dst = v
}

// duration accepts Go duration strings or a bare number of milliseconds.
func (p *parser) duration(key string, dst *time.Duration) {
	raw, ok := p.get(key)
	if !ok {
		return
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		if ms <= 0 {
			p.fail(key, raw, errors.New("must be positive"))
			return
		}
		*dst = time.Duration(ms) * time.Millisecond
		return
	}
	d, err := time.ParseDuration(raw)
	if err == nil && d <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		p.fail(key, raw, err)
		return
	}
	*dst = d
}
