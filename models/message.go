package models

import "encoding/json"

// ========================================
// Message types
// ========================================
const (
	// Server → observers
	MessageTypeGameState    = "gameState"    // world snapshot, once per tick
	MessageTypeNavEvent     = "nav_event"    // navigation event (goal reached, collision, ...)
	MessageTypeCommandAck   = "commandAck"   // command applied
	MessageTypeCommandError = "commandError" // command rejected
	MessageTypeSystemInfo   = "system_info"  // connection banner
)

// ========================================
// Common websocket envelope
// ========================================
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"` // Unix ms
}

// InboundMessage is what observers send. Data is decoded per command type.
type InboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// CommandAckData is the payload of commandAck / commandError replies.
type CommandAckData struct {
	Command string `json:"command"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	// Applied marks a rejected command that still changed the world.
	Applied bool `json:"applied,omitempty"`
}

// NavEventData is the payload of nav_event messages.
type NavEventData struct {
	EventType string                 `json:"event_type"`
	Message   string                 `json:"message"`
	Tick      uint64                 `json:"tick"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// SystemInfo is sent once when an observer connects.
type SystemInfo struct {
	SessionID string `json:"session_id"`
	Encoding  string `json:"encoding"`
	GridSize  int    `json:"grid_size"`
	TickMs    int64  `json:"tick_ms"`
}
