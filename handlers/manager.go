package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Akshit568/Robot-Navigation-System/logging"
	"github.com/Akshit568/Robot-Navigation-System/models"
	"github.com/Akshit568/Robot-Navigation-System/services"
	"github.com/vmihailenco/msgpack/v5"
)

// Wire encodings an observer can ask for.
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

// DefaultObserverBuffer is the per-session outbound queue length.
const DefaultObserverBuffer = 16

var encodings = []string{EncodingJSON, EncodingMsgpack}

// Frame is one encoded outbound message.
type Frame struct {
	Binary bool
	Data   []byte
}

// EncodeMessage renders msg in the given encoding. msgpack frames reuse the
// json struct tags so both encodings carry the same field names.
func EncodeMessage(msg models.WebSocketMessage, encoding string) (Frame, error) {
	switch encoding {
	case EncodingMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(msg); err != nil {
			return Frame{}, fmt.Errorf("msgpack encode %s: %w", msg.Type, err)
		}
		return Frame{Binary: true, Data: buf.Bytes()}, nil
	case EncodingJSON:
		data, err := json.Marshal(msg)
		if err != nil {
			return Frame{}, fmt.Errorf("json encode %s: %w", msg.Type, err)
		}
		return Frame{Data: data}, nil
	default:
		return Frame{}, fmt.Errorf("encoding %q: %w", encoding, services.ErrInvalidConfig)
	}
}

// Session is one connected observer. Its outbound queue is bounded; when it
// is full the oldest frame is discarded so a slow reader never stalls the
// broadcaster.
type Session struct {
	ID       string
	Encoding string

	mu     sync.Mutex
	queue  chan Frame
	closed bool
}

// NewSession creates a session with room for buffer frames (at least 2).
func NewSession(id, encoding string, buffer int) *Session {
	if buffer < 2 {
		buffer = 2
	}
	if encoding != EncodingMsgpack {
		encoding = EncodingJSON
	}
	return &Session{ID: id, Encoding: encoding, queue: make(chan Frame, buffer)}
}

// Frames is drained by the session's writer; it is closed on unregister.
func (s *Session) Frames() <-chan Frame { return s.queue }

// Send encodes msg for this session and queues it.
func (s *Session) Send(msg models.WebSocketMessage) (bool, error) {
	frame, err := EncodeMessage(msg, s.Encoding)
	if err != nil {
		return false, err
	}
	return s.push(frame), nil
}

// push queues f and reports whether an older frame was dropped for it.
func (s *Session) push(f Frame) (dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for {
		select {
		case s.queue <- f:
			return dropped
		default:
		}
		select {
		case <-s.queue:
			dropped = true
		default:
		}
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
}

// MessageManager fans snapshots and events out to every observer session.
type MessageManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	metrics  *services.Metrics
	log      logging.Logger
	now      func() time.Time
}

// NewMessageManager creates an empty manager. metrics may be nil.
func NewMessageManager(metrics *services.Metrics, log logging.Logger) *MessageManager {
	if log == nil {
		log = logging.Noop()
	}
	return &MessageManager{
		sessions: make(map[string]*Session),
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

// RegisterClient adds a session to the broadcast set.
func (m *MessageManager) RegisterClient(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetObservers(n)
	m.log.Info(context.Background(), "observer connected",
		logging.String("session", s.ID), logging.String("encoding", s.Encoding), logging.Int("observers", n))
}

// UnregisterClient removes a session and closes its queue.
func (m *MessageManager) UnregisterClient(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return
	}

	s.close()
	m.metrics.SetObservers(n)
	m.log.Info(context.Background(), "observer disconnected",
		logging.String("session", id), logging.Int("observers", n))
}

// GetClientCount returns the number of connected observers.
func (m *MessageManager) GetClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Publish broadcasts one world snapshot.
func (m *MessageManager) Publish(snap models.WorldSnapshot) {
	m.BroadcastMessage(models.WebSocketMessage{
		Type:      models.MessageTypeGameState,
		Data:      snap,
		Timestamp: m.now().UnixMilli(),
	})
}

// BroadcastMessage encodes msg at most once per encoding and queues it on
// every session.
func (m *MessageManager) BroadcastMessage(msg models.WebSocketMessage) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.sessions) == 0 {
		return
	}

	frames := make(map[string]Frame, len(encodings))
	for _, s := range m.sessions {
		frame, ok := frames[s.Encoding]
		if !ok {
			var err error
			frame, err = EncodeMessage(msg, s.Encoding)
			if err != nil {
				m.log.Error(context.Background(), "broadcast encode failed",
					logging.String("type", msg.Type), logging.Err(err))
				return
			}
			frames[s.Encoding] = frame
		}
		if s.push(frame) {
			m.metrics.IncDroppedFrame()
		}
	}
}
