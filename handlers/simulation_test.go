package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Akshit568/Robot-Navigation-System/models"
	"github.com/Akshit568/Robot-Navigation-System/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSimulation struct {
	err     error
	got     []models.Command
	snap    models.WorldSnapshot
	ticking bool
}

func (f *fakeSimulation) Submit(_ context.Context, cmd models.Command) error {
	f.got = append(f.got, cmd)
	return f.err
}

func (f *fakeSimulation) Snapshot() models.WorldSnapshot { return f.snap }
func (f *fakeSimulation) Ticking() bool                  { return f.ticking }
func (f *fakeSimulation) Config() services.Config        { return services.DefaultConfig() }

func newAPIApp(sim Simulation) *fiber.App {
	app := fiber.New()
	NewSimulationAPI(sim, NewMessageManager(nil, nil), nil).Register(app.Group("/api"))
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	return resp.StatusCode, decoded
}

func TestSimulationAPIStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{nil, http.StatusOK, ""},
		{fmt.Errorf("setGoal: %w", services.ErrOutOfBounds), http.StatusBadRequest, "out_of_bounds"},
		{services.ErrNegativeCount, http.StatusBadRequest, "invalid_argument"},
		{services.ErrCellOccupied, http.StatusConflict, "cell_occupied"},
		{services.ErrRobotMoving, http.StatusConflict, "robot_moving"},
		{services.ErrAlreadyAtGoal, http.StatusConflict, "already_at_goal"},
		{services.ErrGoalUnreachable, http.StatusUnprocessableEntity, "goal_unreachable"},
		{services.ErrQueueFull, http.StatusServiceUnavailable, "queue_full"},
		{services.ErrNotTicking, http.StatusServiceUnavailable, "unavailable"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "timeout"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		name := "ok"
		if tc.err != nil {
			name = tc.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			app := newAPIApp(&fakeSimulation{err: tc.err, ticking: true})
			status, body := doRequest(t, app, http.MethodPost, "/api/simulation/start", "")
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.err == nil, body["success"])
			if tc.err != nil {
				assert.Equal(t, tc.code, body["code"])
			}
		})
	}
}

func TestSimulationAPIReportsPartialStart(t *testing.T) {
	err := fmt.Errorf("%w: %w", services.ErrClockStartedRobotIdle, services.ErrAlreadyAtGoal)
	app := newAPIApp(&fakeSimulation{err: err, ticking: true, snap: models.WorldSnapshot{GridSize: 20, Running: true}})

	status, body := doRequest(t, app, http.MethodPost, "/api/simulation/start", "")

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "already_at_goal", body["code"])
	assert.Equal(t, true, body["applied"])
	state, ok := body["state"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, state["running"])

	app = newAPIApp(&fakeSimulation{err: services.ErrAlreadyAtGoal, ticking: true})
	_, body = doRequest(t, app, http.MethodPost, "/api/simulation/start", "")
	assert.NotContains(t, body, "applied")
	assert.NotContains(t, body, "state")
}

func TestSimulationAPIBuildsCommands(t *testing.T) {
	sim := &fakeSimulation{ticking: true}
	app := newAPIApp(sim)

	for _, req := range []struct{ path, body string }{
		{"/api/simulation/goal", `{"x":7,"y":3}`},
		{"/api/simulation/obstacles", `{"count":9}`},
		{"/api/simulation/obstacles", ""},
		{"/api/simulation/move", `{"direction":"down"}`},
		{"/api/simulation/stop", ""},
		{"/api/simulation/reset", ""},
		{"/api/simulation/reset-environment", ""},
	} {
		status, _ := doRequest(t, app, http.MethodPost, req.path, req.body)
		require.Equal(t, http.StatusOK, status, req.path)
	}

	require.Len(t, sim.got, 7)
	assert.Equal(t, models.CommandSetGoal, sim.got[0].Type)
	assert.Equal(t, 7, sim.got[0].X)
	assert.Equal(t, 3, sim.got[0].Y)
	assert.Equal(t, 9, sim.got[1].Count)
	assert.Equal(t, 0, sim.got[2].Count)
	assert.Equal(t, "down", sim.got[3].Direction)
	assert.Equal(t, models.CommandStopSimulation, sim.got[4].Type)
	assert.Equal(t, models.CommandResetRobot, sim.got[5].Type)
	assert.Equal(t, models.CommandResetEnvironment, sim.got[6].Type)
}

func TestSimulationAPIRejectsMalformedBodies(t *testing.T) {
	sim := &fakeSimulation{ticking: true}
	app := newAPIApp(sim)

	status, body := doRequest(t, app, http.MethodPost, "/api/simulation/goal", `{"x":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_argument", body["code"])
	assert.Empty(t, sim.got)
}

func TestSimulationAPIAgainstRunningSimulator(t *testing.T) {
	sim, _ := newRunningSimulator(t)
	app := newAPIApp(sim)

	status, body := doRequest(t, app, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, true, body["ticking"])

	status, body = doRequest(t, app, http.MethodPost, "/api/simulation/goal", `{"x":2,"y":2}`)
	require.Equal(t, http.StatusOK, status)
	state := body["state"].(map[string]interface{})
	robot := state["robot"].(map[string]interface{})
	assert.EqualValues(t, 2, robot["goalX"])
	assert.NotEmpty(t, robot["path"])

	status, body = doRequest(t, app, http.MethodPost, "/api/simulation/goal", `{"x":-1,"y":2}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "out_of_bounds", body["code"])

	status, _ = doRequest(t, app, http.MethodPost, "/api/simulation/start", "")
	require.Equal(t, http.StatusOK, status)

	status, body = doRequest(t, app, http.MethodPost, "/api/simulation/move", `{"direction":"up"}`)
	if status != http.StatusOK {
		// the run may already have finished on a fast machine
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "robot_moving", body["code"])
	}

	status, body = doRequest(t, app, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 20, body["gridSize"])
}

func TestSimulationAPINotTicking(t *testing.T) {
	sim, err := services.NewSimulator(services.DefaultConfig())
	require.NoError(t, err)
	app := newAPIApp(sim)

	status, body := doRequest(t, app, http.MethodPost, "/api/simulation/start", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unavailable", body["code"])
}
