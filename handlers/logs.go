package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/Akshit568/Robot-Navigation-System/services"
	"github.com/gofiber/fiber/v2"
)

// LogsAPI serves run log queries.
type LogsAPI struct {
	runs *services.RunLogger
}

func NewLogsAPI(runs *services.RunLogger) *LogsAPI {
	return &LogsAPI{runs: runs}
}

// Register mounts the routes on an /api group.
func (a *LogsAPI) Register(api fiber.Router) {
	logs := api.Group("/logs")
	logs.Get("/recent", a.HandleGetRecentLogs)
	logs.Get("/range", a.HandleGetLogsByTimeRange)
	logs.Get("/type", a.HandleGetLogsByEventType)
	logs.Get("/run/:id", a.HandleGetLogsByRun)
	logs.Get("/stats", a.HandleGetLogStats)
	api.Get("/results", a.HandleGetResults)
}

// HandleGetRecentLogs returns the latest run log entries, newest first.
func (a *LogsAPI) HandleGetRecentLogs(c *fiber.Ctx) error {
	limit := queryLimit(c)
	logs, err := a.runs.RecentLogs(limit)
	if err != nil {
		return queryFailed(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(logs),
		"logs":    logs,
	})
}

// HandleGetLogsByTimeRange filters by start and end (RFC3339), defaulting to
// the last 24 hours.
func (a *LogsAPI) HandleGetLogsByTimeRange(c *fiber.Ctx) error {
	end := time.Now()
	start := end.Add(-24 * time.Hour)

	if s := c.Query("start"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return badRequest(c, "invalid start time format (use RFC3339)")
		}
		start = parsed
	}
	if s := c.Query("end"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return badRequest(c, "invalid end time format (use RFC3339)")
		}
		end = parsed
	}

	logs, err := a.runs.LogsByTimeRange(start, end, queryLimit(c))
	if err != nil {
		return queryFailed(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(logs),
		"time_range": fiber.Map{
			"start": start.Format(time.RFC3339),
			"end":   end.Format(time.RFC3339),
		},
		"logs": logs,
	})
}

// HandleGetLogsByEventType filters by ?event_type=, e.g. collision.
func (a *LogsAPI) HandleGetLogsByEventType(c *fiber.Ctx) error {
	eventType := c.Query("event_type")
	if eventType == "" {
		return badRequest(c, "event_type parameter is required")
	}

	logs, err := a.runs.LogsByEventType(eventType, queryLimit(c))
	if err != nil {
		return queryFailed(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"count":      len(logs),
		"event_type": eventType,
		"logs":       logs,
	})
}

// HandleGetLogsByRun returns every entry of one run, oldest first.
func (a *LogsAPI) HandleGetLogsByRun(c *fiber.Ctx) error {
	runID := c.Params("id")
	logs, err := a.runs.LogsByRun(runID)
	if err != nil {
		return queryFailed(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(logs),
		"run_id":  runID,
		"logs":    logs,
	})
}

// HandleGetLogStats summarises events over the last ?hours= (default 24).
func (a *LogsAPI) HandleGetLogStats(c *fiber.Ctx) error {
	hours, err := strconv.Atoi(c.Query("hours", "24"))
	if err != nil || hours <= 0 {
		hours = 24
	}

	stats, err := a.runs.Stats(hours)
	if err != nil {
		return queryFailed(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}

// HandleGetResults returns completed run summaries, newest first.
func (a *LogsAPI) HandleGetResults(c *fiber.Ctx) error {
	results, err := a.runs.Results(queryLimit(c))
	if err != nil {
		return queryFailed(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(results),
		"results": results,
	})
}

func queryLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	return limit
}

func queryFailed(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrRunLogDisabled) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "run log is disabled",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "failed to fetch logs",
	})
}
