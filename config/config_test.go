package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Akshit568/Robot-Navigation-System/algorithms"
	"github.com/Akshit568/Robot-Navigation-System/services"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(mapLookup(nil))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, 20, cfg.Simulation.GridSize)
	assert.Equal(t, algorithms.Cell{X: 18, Y: 18}, cfg.Simulation.Goal)
	assert.Equal(t, 100*time.Millisecond, cfg.Simulation.TickInterval)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, services.DefaultSQLiteDSN, cfg.Database.DSN)
	assert.Equal(t, 16, cfg.ObserverBuffer)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{
		"PORT":                 "8080",
		"GRID_SIZE":            "30",
		"START_X":              "0",
		"START_Y":              "2",
		"GOAL_X":               "29",
		"GOAL_Y":               "28",
		"STATIC_OBSTACLES":     "40",
		"MOVING_OBSTACLES":     "0",
		"TICK_INTERVAL":        "250",
		"REPLAN_PROBABILITY":   "0.5",
		"TURN_PROBABILITY":     "0",
		"COLLISION_RADIUS":     "1.5",
		"SIM_SEED":             "42",
		"COMMAND_QUEUE_SIZE":   "8",
		"OBSERVER_BUFFER":      "4",
		"EVENT_COOLDOWN":       "500ms",
		"LOG_FLUSH_SIZE":       "10",
		"LOG_FLUSH_INTERVAL":   "1m",
		"DB_DRIVER":            "MySQL",
		"MYSQL_HOST":           "db",
		"MYSQL_PORT":           "3307",
		"MYSQL_USER":           "nav",
		"MYSQL_DATABASE":       "runs",
		"TRACING_ENABLED":      "true",
		"TRACING_EXPORTER":     "OTLP",
		"TRACING_ENDPOINT":     "collector:4317",
		"TRACING_SAMPLE_RATIO": "0.25",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "json",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	sim := cfg.Simulation
	assert.Equal(t, 30, sim.GridSize)
	assert.Equal(t, algorithms.Cell{X: 0, Y: 2}, sim.Start)
	assert.Equal(t, algorithms.Cell{X: 29, Y: 28}, sim.Goal)
	assert.Equal(t, 40, sim.StaticObstacles)
	assert.Equal(t, 0, sim.MovingObstacles)
	assert.Equal(t, 250*time.Millisecond, sim.TickInterval)
	assert.Equal(t, 0.5, sim.ReplanProbability)
	assert.Equal(t, 0.0, sim.TurnProbability)
	assert.Equal(t, 1.5, sim.CollisionRadius)
	assert.Equal(t, int64(42), sim.Seed)
	assert.Equal(t, 8, sim.CommandQueueSize)

	assert.Equal(t, 4, cfg.ObserverBuffer)
	assert.Equal(t, 500*time.Millisecond, cfg.EventCooldown)
	assert.Equal(t, 10, cfg.FlushSize)
	assert.Equal(t, time.Minute, cfg.FlushInterval)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Empty(t, cfg.Database.DSN, "sqlite default DSN does not leak into mysql")
	assert.Equal(t, "nav:@tcp(db:3307)/runs?charset=utf8mb4&parseTime=True&loc=Local", cfg.Database.MySQL.DSN())

	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "otlp", cfg.Tracing.Exporter)
	assert.Equal(t, "collector:4317", cfg.Tracing.Endpoint)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRatio)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestFromEnvReportsEveryInvalidVariable(t *testing.T) {
	_, err := FromEnv(mapLookup(map[string]string{
		"GRID_SIZE":          "big",
		"REPLAN_PROBABILITY": "1.5",
		"OBSERVER_BUFFER":    "0",
		"TICK_INTERVAL":      "-5ms",
		"DB_DRIVER":          "postgres",
		"TRACING_EXPORTER":   "zipkin",
		"LOG_LEVEL":          "loud",
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrInvalidConfig))
	for _, key := range []string{"GRID_SIZE", "REPLAN_PROBABILITY", "OBSERVER_BUFFER", "TICK_INTERVAL", "DB_DRIVER", "TRACING_EXPORTER", "LOG_LEVEL"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestFromEnvValidatesSimulation(t *testing.T) {
	_, err := FromEnv(mapLookup(map[string]string{"GRID_SIZE": "10", "GOAL_X": "12"}))
	assert.True(t, errors.Is(err, services.ErrInvalidConfig))

	_, err = FromEnv(mapLookup(map[string]string{"GRID_SIZE": "1"}))
	assert.True(t, errors.Is(err, services.ErrInvalidGridSize))

	_, err = FromEnv(mapLookup(map[string]string{"STATIC_OBSTACLES": "-1"}))
	assert.True(t, errors.Is(err, services.ErrNegativeCount))
}

func TestFromEnvIgnoresBlankValues(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{"PORT": "  ", "GRID_SIZE": ""}))
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, 20, cfg.Simulation.GridSize)
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, godotenv.Write(map[string]string{"GRID_SIZE": "12", "GOAL_X": "11", "GOAL_Y": "11"}, path))
	for _, key := range []string{"GRID_SIZE", "GOAL_X", "GOAL_Y"} {
		key := key
		_, set := os.LookupEnv(key)
		require.False(t, set, "%s already set in the test environment", key)
		t.Cleanup(func() { os.Unsetenv(key) })
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.EnvFileLoaded)
	assert.Equal(t, 12, cfg.Simulation.GridSize)
	assert.Equal(t, algorithms.Cell{X: 11, Y: 11}, cfg.Simulation.Goal)
}

func TestLoadWithoutDotEnvFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.False(t, cfg.EnvFileLoaded)
}
