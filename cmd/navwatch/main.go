// Command navwatch connects to the simulation server as an observer, issues
// optional commands and prints one line per received frame.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/Akshit568/Robot-Navigation-System/models"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

func main() {
	addr := flag.String("addr", "localhost:3001", "server host:port")
	encoding := flag.String("encoding", "json", "frame encoding: json or msgpack")
	start := flag.Bool("start", false, "send startSimulation after connecting")
	goal := flag.String("goal", "", "send setGoal before starting, as x,y")
	spawn := flag.Int("spawn", -1, "send spawnMovingObstacles with this count")
	frames := flag.Int("frames", 0, "exit after this many snapshots (0 = run until interrupted)")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/websocket/observer", RawQuery: "encoding=" + url.QueryEscape(*encoding)}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial %s: %v", u.String(), err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()
	log.Printf("connected to %s", u.String())

	commands, err := buildCommands(*goal, *spawn, *start)
	if err != nil {
		log.Fatalf("%v", err)
	}
	for _, cmd := range commands {
		if err := conn.WriteJSON(cmd); err != nil {
			log.Fatalf("send %s: %v", cmd.Type, err)
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	done := make(chan struct{})

	go func() {
		defer close(done)
		seen := 0
		for {
			msgType, payload, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("read: %v", err)
				}
				return
			}
			msg, err := decodeFrame(msgType, payload)
			if err != nil {
				log.Printf("decode: %v", err)
				continue
			}
			fmt.Println(describe(msg))
			if msg.Type == models.MessageTypeGameState {
				seen++
				if *frames > 0 && seen >= *frames {
					return
				}
			}
		}
	}()

	select {
	case <-done:
	case <-interrupt:
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// outbound is the command envelope the server reads.
type outbound struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

func buildCommands(goal string, spawn int, start bool) ([]outbound, error) {
	var cmds []outbound
	if goal != "" {
		x, y, err := parsePoint(goal)
		if err != nil {
			return nil, fmt.Errorf("goal %q: %w", goal, err)
		}
		cmds = append(cmds, outbound{Type: string(models.CommandSetGoal), Data: models.GoalPayload{X: x, Y: y}})
	}
	if spawn >= 0 {
		cmds = append(cmds, outbound{Type: string(models.CommandSpawnObstacles), Data: models.SpawnPayload{Count: spawn}})
	}
	if start {
		cmds = append(cmds, outbound{Type: string(models.CommandStartSimulation)})
	}
	return cmds, nil
}

func parsePoint(s string) (int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want x,y")
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// frame is a decoded server message with its payload still raw JSON.
type frame struct {
	Type string
	Data json.RawMessage
}

// decodeFrame normalises binary msgpack frames to JSON so both encodings
// share one printing path.
func decodeFrame(msgType int, payload []byte) (frame, error) {
	if msgType == websocket.BinaryMessage {
		var generic map[string]interface{}
		if err := msgpack.NewDecoder(bytes.NewReader(payload)).Decode(&generic); err != nil {
			return frame{}, err
		}
		var err error
		payload, err = json.Marshal(generic)
		if err != nil {
			return frame{}, err
		}
	}
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return frame{}, err
	}
	return frame{Type: env.Type, Data: env.Data}, nil
}

func describe(f frame) string {
	switch f.Type {
	case models.MessageTypeGameState:
		var snap models.WorldSnapshot
		if err := json.Unmarshal(f.Data, &snap); err != nil {
			return "gameState (undecodable)"
		}
		return summarize(snap)
	case models.MessageTypeNavEvent:
		var ev models.NavEventData
		if err := json.Unmarshal(f.Data, &ev); err != nil {
			return "nav_event (undecodable)"
		}
		return fmt.Sprintf("event  %-18s %s", ev.EventType, ev.Message)
	case models.MessageTypeCommandAck, models.MessageTypeCommandError:
		var ack models.CommandAckData
		if err := json.Unmarshal(f.Data, &ack); err != nil {
			return f.Type + " (undecodable)"
		}
		if ack.Error != "" {
			return fmt.Sprintf("reject %s: %s (%s)", ack.Command, ack.Error, ack.Code)
		}
		return "ack    " + ack.Command
	default:
		return fmt.Sprintf("%s %s", f.Type, string(f.Data))
	}
}

func summarize(snap models.WorldSnapshot) string {
	r := snap.Robot
	state := "idle"
	if r.IsMoving {
		state = "moving"
	}
	eta := "-"
	if r.TimeToGoal != nil {
		eta = fmt.Sprintf("%dms", *r.TimeToGoal)
	}
	return fmt.Sprintf("tick %-6d robot (%d,%d) -> (%d,%d) %-6s path=%d collisions=%d moving=%d time=%s",
		snap.Tick, r.X, r.Y, r.GoalX, r.GoalY, state, len(r.Path), r.Collisions, len(snap.MovingObstacles), eta)
}
