package handlers

import (
	"encoding/json"
	"sync"

	"github.com/Akshit568/Robot-Navigation-System/models"
	"github.com/gofiber/fiber/v2"
	"github.com/invopop/jsonschema"
)

// snapshotEnvelope mirrors the gameState frame for schema generation.
type snapshotEnvelope struct {
	Type      string               `json:"type" jsonschema:"enum=gameState"`
	Data      models.WorldSnapshot `json:"data"`
	Timestamp int64                `json:"timestamp" jsonschema:"description=Unix milliseconds"`
}

var (
	snapshotSchemaOnce sync.Once
	snapshotSchema     []byte
	snapshotSchemaErr  error
)

// SnapshotSchema returns the JSON Schema of the gameState frame.
func SnapshotSchema() ([]byte, error) {
	snapshotSchemaOnce.Do(func() {
		reflector := jsonschema.Reflector{DoNotReference: true}
		snapshotSchema, snapshotSchemaErr = json.MarshalIndent(reflector.Reflect(&snapshotEnvelope{}), "", "  ")
	})
	return snapshotSchema, snapshotSchemaErr
}

// HandleSnapshotSchema serves SnapshotSchema as application/schema+json.
func HandleSnapshotSchema(c *fiber.Ctx) error {
	data, err := SnapshotSchema()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to build schema",
		})
	}
	c.Set(fiber.HeaderContentType, "application/schema+json")
	return c.Send(data)
}
