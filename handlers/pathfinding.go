package handlers

import (
	"github.com/Akshit568/Robot-Navigation-System/algorithms"
	"github.com/gofiber/fiber/v2"
)

// PathfindingRequest plans on a caller-supplied grid, independent of the
// running simulation. Fractional coordinates round to the nearest cell.
type PathfindingRequest struct {
	Start struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"start"`
	Goal struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"goal"`
	GridSize  int               `json:"grid_size"`
	Obstacles []algorithms.Cell `json:"obstacles"`
}

type PathfindingResponse struct {
	Success  bool              `json:"success"`
	Path     []algorithms.Cell `json:"path,omitempty"`
	Cost     int               `json:"cost,omitempty"`
	Expanded int               `json:"expanded"`
	Message  string            `json:"message,omitempty"`
}

func HandlePathfinding(c *fiber.Ctx) error {
	var req PathfindingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(PathfindingResponse{
			Success: false,
			Message: "invalid request body",
		})
	}

	grid, err := algorithms.NewGrid(req.GridSize)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(PathfindingResponse{
			Success: false,
			Message: err.Error(),
		})
	}

	start := algorithms.CellAt(req.Start.X, req.Start.Y)
	goal := algorithms.CellAt(req.Goal.X, req.Goal.Y)
	if !grid.InBounds(start) || !grid.InBounds(goal) {
		return c.Status(fiber.StatusBadRequest).JSON(PathfindingResponse{
			Success: false,
			Message: "start and goal must lie inside the grid",
		})
	}

	res := algorithms.NewPlanner(grid).Search(start, goal, algorithms.NewCellSet(req.Obstacles...))
	if !res.Found {
		return c.Status(fiber.StatusOK).JSON(PathfindingResponse{
			Success:  false,
			Expanded: res.Expanded,
			Message:  "no path found",
		})
	}

	return c.Status(fiber.StatusOK).JSON(PathfindingResponse{
		Success:  true,
		Path:     res.Path,
		Cost:     res.Cost,
		Expanded: res.Expanded,
	})
}
