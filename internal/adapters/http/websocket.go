package http

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
	"github.com/arkaitzh/fleetfence/internal/core/usecases"
	"github.com/arkaitzh/fleetfence/internal/pkg/geo"
	"github.com/arkaitzh/fleetfence/internal/pkg/metrics"
)

// editMessage is a client command on an editing session socket.
type editMessage struct {
	Action      string          `json:"action"` // "update" | "flush" | "state"
	Coordinates domain.Boundary `json:"coordinates"`
}

// EditSessionHandler runs a live boundary editing session over WebSocket.
// Each connection owns its own Editor, so concurrent sessions debounce
// independently. The client streams {"action":"update","coordinates":[...]}
// as the user drags vertices; validation results are pushed back once the
// quiet period elapses. "flush" forces an immediate pass (the submit path),
// "state" echoes the last published result.
func EditSessionHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		log.Printf("edit session opened: %s", remoteAddr)
		metrics.ActiveEditSessions.Inc()
		defer metrics.ActiveEditSessions.Dec()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Validation results flow back over the socket as passes complete.
		// The trigger label distinguishes debounced passes from forced ones.
		var triggerMu sync.Mutex
		trigger := "debounce"
		editor := usecases.NewEditor(deps.EditorQuiet, func(res geo.Result) {
			triggerMu.Lock()
			t := trigger
			triggerMu.Unlock()

			outcome := "valid"
			if !res.Valid {
				outcome = "invalid"
			}
			metrics.BoundaryValidations.WithLabelValues(outcome, t).Inc()
			_ = writeJSON(map[string]interface{}{
				"type":    "validation",
				"trigger": t,
				"result":  res,
			})
		})
		defer editor.Close()

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m editMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "update":
				editor.Update(m.Coordinates)

			case "flush":
				// Flush publishes synchronously through the callback above.
				triggerMu.Lock()
				trigger = "flush"
				triggerMu.Unlock()
				editor.Flush()
				triggerMu.Lock()
				trigger = "debounce"
				triggerMu.Unlock()

			case "state":
				_ = writeJSON(map[string]interface{}{
					"type":   "state",
					"result": editor.State(),
				})

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		log.Printf("edit session closed: %s", remoteAddr)
	}
}

// wsMessage is sent from client to subscribe/unsubscribe to live feeds.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Device  string `json:"device"`  // device ID filter (optional, "" = all)
	Channel string `json:"channel"` // "positions" | "events" | "config" (default: positions)
}

// EventsSocketHandler upgrades to WebSocket and relays real-time NATS
// messages to connected clients.
// Clients send JSON: {"action":"subscribe","device":"truck-7","channel":"events"}
// An empty device means all devices. Default channel is "positions".
func EventsSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		log.Printf("ws client connected: %s", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Auto-subscribe to fence events by default
		defaultSubject := "fleet.fence.>"
		sub, err := nc.Subscribe(defaultSubject, func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		})
		if err != nil {
			log.Printf("ws default subscribe error: %v", err)
			return
		}
		subs[defaultSubject] = sub

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			channel := m.Channel
			if channel == "" {
				channel = "positions"
			}

			var subject string
			switch channel {
			case "positions":
				if m.Device != "" {
					subject = "fleet.position." + m.Device
				} else {
					subject = "fleet.position.>"
				}
			case "events":
				if m.Device != "" {
					subject = "fleet.fence.*." + m.Device
				} else {
					subject = "fleet.fence.>"
				}
			case "config":
				subject = "fleet.config.fence-updated"
			default:
				_ = writeJSON(map[string]string{"error": "unknown channel: " + channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, func(msg *nats.Msg) {
					_ = writeJSON(json.RawMessage(msg.Data))
				})
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		log.Printf("ws client disconnected: %s", remoteAddr)
	}
}
