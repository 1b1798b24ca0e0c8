package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Akshit568/Robot-Navigation-System/logging"
	"github.com/Akshit568/Robot-Navigation-System/models"
	"github.com/Akshit568/Robot-Navigation-System/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait             = 5 * time.Second
	DefaultCommandTimeout = 2 * time.Second
)

// ErrMalformedMessage is returned for frames that are not a valid command envelope.
var ErrMalformedMessage = errors.New("malformed message")

// Simulation is the part of the simulator the transport layer drives.
type Simulation interface {
	Submit(ctx context.Context, cmd models.Command) error
	Snapshot() models.WorldSnapshot
	Ticking() bool
	Config() services.Config
}

// ObserverHandler serves websocket observer sessions.
type ObserverHandler struct {
	sim            Simulation
	manager        *MessageManager
	buffer         int
	commandTimeout time.Duration
	log            logging.Logger
}

// NewObserverHandler wires observer sessions to sim through manager.
func NewObserverHandler(sim Simulation, manager *MessageManager, buffer int, log logging.Logger) *ObserverHandler {
	if buffer <= 0 {
		buffer = DefaultObserverBuffer
	}
	if log == nil {
		log = logging.Noop()
	}
	return &ObserverHandler{
		sim:            sim,
		manager:        manager,
		buffer:         buffer,
		commandTimeout: DefaultCommandTimeout,
		log:            log,
	}
}

// RequireUpgrade rejects plain HTTP requests on websocket routes.
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve runs one observer session until the connection drops.
func (h *ObserverHandler) Serve(c *websocket.Conn) {
	session := NewSession(uuid.NewString(), c.Query("encoding", EncodingJSON), h.buffer)
	log := h.log.With(logging.String("session", session.ID))
	ctx := context.Background()

	// banner and initial snapshot are queued before the session joins the
	// broadcast set so they are always the first frames
	h.greet(ctx, session)
	h.manager.RegisterClient(session)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, c, session, log)
	}()

	for {
		_, payload, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn(ctx, "observer read failed", logging.Err(err))
			}
			break
		}
		h.handleInbound(ctx, session, payload, log)
	}

	h.manager.UnregisterClient(session.ID)
	<-writerDone
}

func (h *ObserverHandler) greet(ctx context.Context, session *Session) {
	now := time.Now().UnixMilli()
	cfg := h.sim.Config()
	h.send(ctx, session, models.WebSocketMessage{
		Type: models.MessageTypeSystemInfo,
		Data: models.SystemInfo{
			SessionID: session.ID,
			Encoding:  session.Encoding,
			GridSize:  cfg.GridSize,
			TickMs:    cfg.TickInterval.Milliseconds(),
		},
		Timestamp: now,
	})
	h.send(ctx, session, models.WebSocketMessage{
		Type:      models.MessageTypeGameState,
		Data:      h.sim.Snapshot(),
		Timestamp: now,
	})
}

func (h *ObserverHandler) writeLoop(ctx context.Context, c *websocket.Conn, session *Session, log logging.Logger) {
	for frame := range session.Frames() {
		msgType := websocket.TextMessage
		if frame.Binary {
			msgType = websocket.BinaryMessage
		}
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(msgType, frame.Data); err != nil {
			log.Warn(ctx, "observer write failed", logging.Err(err))
			// unblock the reader; remaining frames are dropped by the queue
			_ = c.Close()
			return
		}
	}
}

func (h *ObserverHandler) handleInbound(ctx context.Context, session *Session, payload []byte, log logging.Logger) {
	cmd, err := ParseCommand(payload)
	if err != nil {
		log.Debug(ctx, "rejected observer frame", logging.Err(err))
		h.reply(ctx, session, commandName(payload), err)
		return
	}
	cmd.SessionID = session.ID

	waitCtx, cancel := context.WithTimeout(ctx, h.commandTimeout)
	defer cancel()
	err = h.sim.Submit(waitCtx, cmd)
	if err != nil {
		log.Info(ctx, "command rejected", logging.String("command", string(cmd.Type)), logging.Err(err))
	}
	h.reply(ctx, session, string(cmd.Type), err)
}

func (h *ObserverHandler) reply(ctx context.Context, session *Session, command string, err error) {
	msg := models.WebSocketMessage{
		Type:      models.MessageTypeCommandAck,
		Data:      models.CommandAckData{Command: command},
		Timestamp: time.Now().UnixMilli(),
	}
	if err != nil {
		msg.Type = models.MessageTypeCommandError
		msg.Data = models.CommandAckData{
			Command: command,
			Error:   err.Error(),
			Code:    ErrorCode(err),
			Applied: services.PartiallyApplied(err),
		}
	}
	h.send(ctx, session, msg)
}

func (h *ObserverHandler) send(ctx context.Context, session *Session, msg models.WebSocketMessage) {
	dropped, err := session.Send(msg)
	if err != nil {
		h.log.Error(ctx, "encode observer frame", logging.String("type", msg.Type), logging.Err(err))
		return
	}
	if dropped {
		h.manager.metrics.IncDroppedFrame()
	}
}

// ErrorCode extends services.ErrorCode with transport errors.
func ErrorCode(err error) string {
	if errors.Is(err, ErrMalformedMessage) {
		return "invalid_argument"
	}
	return services.ErrorCode(err)
}

// ParseCommand decodes an inbound envelope into a command. Both naming
// styles are accepted; spawn takes {count} or a bare number and move takes
// {direction} or a bare string.
func ParseCommand(raw []byte) (models.Command, error) {
	var msg models.InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return models.Command{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	cmdType, ok := models.ParseCommandType(msg.Type)
	if !ok {
		return models.Command{}, fmt.Errorf("%q: %w", msg.Type, services.ErrUnknownCommand)
	}

	cmd := models.NewCommand(cmdType)
	switch cmdType {
	case models.CommandSetGoal:
		var p models.GoalPayload
		if err := decodePayload(msg.Data, &p, true); err != nil {
			return models.Command{}, err
		}
		cmd.X, cmd.Y = p.X, p.Y
	case models.CommandSpawnObstacles:
		var n int
		if err := json.Unmarshal(msg.Data, &n); err == nil {
			cmd.Count = n
			break
		}
		var p models.SpawnPayload
		if err := decodePayload(msg.Data, &p, false); err != nil {
			return models.Command{}, err
		}
		cmd.Count = p.Count
	case models.CommandMoveRobot:
		var dir string
		if err := json.Unmarshal(msg.Data, &dir); err == nil {
			cmd.Direction = dir
			break
		}
		var p models.MovePayload
		if err := decodePayload(msg.Data, &p, true); err != nil {
			return models.Command{}, err
		}
		cmd.Direction = p.Direction
	}
	return cmd, nil
}

func decodePayload(data json.RawMessage, v any, required bool) error {
	if len(data) == 0 || string(data) == "null" {
		if required {
			return fmt.Errorf("%w: missing data", ErrMalformedMessage)
		}
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}

// commandName pulls the type out of a frame that failed to parse.
func commandName(raw []byte) string {
	var msg struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(raw, &msg)
	return msg.Type
}
