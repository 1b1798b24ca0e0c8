package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/Akshit568/Robot-Navigation-System/logging"
	"github.com/Akshit568/Robot-Navigation-System/models"
	"github.com/Akshit568/Robot-Navigation-System/services"
	"github.com/gofiber/fiber/v2"
)

// SimulationAPI exposes the simulator over REST. Mutations go through the
// same command queue as websocket observers.
type SimulationAPI struct {
	sim            Simulation
	manager        *MessageManager
	commandTimeout time.Duration
	log            logging.Logger
}

// NewSimulationAPI creates the REST handlers. manager may be nil.
func NewSimulationAPI(sim Simulation, manager *MessageManager, log logging.Logger) *SimulationAPI {
	if log == nil {
		log = logging.Noop()
	}
	return &SimulationAPI{sim: sim, manager: manager, commandTimeout: DefaultCommandTimeout, log: log}
}

// Register mounts the routes on an /api group.
func (a *SimulationAPI) Register(api fiber.Router) {
	api.Get("/health", a.HandleHealth)
	api.Get("/state", a.HandleState)

	sim := api.Group("/simulation")
	sim.Post("/start", a.command(models.CommandStartSimulation))
	sim.Post("/stop", a.command(models.CommandStopSimulation))
	sim.Post("/reset", a.command(models.CommandResetRobot))
	sim.Post("/reset-environment", a.command(models.CommandResetEnvironment))
	sim.Post("/goal", a.HandleSetGoal)
	sim.Post("/obstacles", a.HandleSpawnObstacles)
	sim.Post("/move", a.HandleMove)
}

// HandleHealth reports server status.
func (a *SimulationAPI) HandleHealth(c *fiber.Ctx) error {
	observers := 0
	if a.manager != nil {
		observers = a.manager.GetClientCount()
	}
	snap := a.sim.Snapshot()
	return c.JSON(fiber.Map{
		"status":    "OK",
		"observers": observers,
		"ticking":   a.sim.Ticking(),
		"tick":      snap.Tick,
		"running":   snap.Running,
		"time":      time.Now().Format(time.RFC3339),
	})
}

// HandleState returns the current world snapshot.
func (a *SimulationAPI) HandleState(c *fiber.Ctx) error {
	return c.JSON(a.sim.Snapshot())
}

// HandleSetGoal takes {x, y}.
func (a *SimulationAPI) HandleSetGoal(c *fiber.Ctx) error {
	var req models.GoalPayload
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body must be {\"x\": int, \"y\": int}")
	}
	cmd := models.NewCommand(models.CommandSetGoal)
	cmd.X, cmd.Y = req.X, req.Y
	return a.submit(c, cmd)
}

// HandleSpawnObstacles takes {count}. An empty body spawns the default number.
func (a *SimulationAPI) HandleSpawnObstacles(c *fiber.Ctx) error {
	var req models.SpawnPayload
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "body must be {\"count\": int}")
		}
	}
	cmd := models.NewCommand(models.CommandSpawnObstacles)
	cmd.Count = req.Count
	return a.submit(c, cmd)
}

// HandleMove takes {direction}.
func (a *SimulationAPI) HandleMove(c *fiber.Ctx) error {
	var req models.MovePayload
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body must be {\"direction\": \"up|down|left|right\"}")
	}
	cmd := models.NewCommand(models.CommandMoveRobot)
	cmd.Direction = req.Direction
	return a.submit(c, cmd)
}

func (a *SimulationAPI) command(t models.CommandType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return a.submit(c, models.NewCommand(t))
	}
}

func (a *SimulationAPI) submit(c *fiber.Ctx, cmd models.Command) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), a.commandTimeout)
	defer cancel()

	if err := a.sim.Submit(ctx, cmd); err != nil {
		a.log.Info(ctx, "rest command rejected", logging.String("command", string(cmd.Type)), logging.Err(err))
		body := fiber.Map{
			"success": false,
			"command": cmd.Type,
			"error":   err.Error(),
			"code":    ErrorCode(err),
		}
		if services.PartiallyApplied(err) {
			body["applied"] = true
			body["state"] = a.sim.Snapshot()
		}
		return c.Status(statusFor(err)).JSON(body)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"command": cmd.Type,
		"state":   a.sim.Snapshot(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrGoalUnreachable):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrCellOccupied), errors.Is(err, services.ErrRobotMoving),
		errors.Is(err, services.ErrAlreadyAtGoal):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrQueueFull), errors.Is(err, services.ErrNotTicking),
		errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, services.ErrOutOfBounds), errors.Is(err, services.ErrNegativeCount),
		errors.Is(err, services.ErrInvalidDirection), errors.Is(err, services.ErrUnknownCommand),
		errors.Is(err, ErrMalformedMessage):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   msg,
		"code":    "invalid_argument",
	})
}
