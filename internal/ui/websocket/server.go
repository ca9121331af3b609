// Package websocket implements the WebSocket UI protocol described in
// spec.md §6 — one concrete UI contract on top of internal/environment —
// grounded on the teacher's internal/gateway ws_control_plane.go
// (upgrade/read-loop/write-loop/frame-envelope shape) and ws_schema.go
// (JSON-Schema-validated per-method params), generalized from nexus's
// chat.* RPC surface to this spec's worker/job command set.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/agentcore/runtime/internal/environment"
	"github.com/agentcore/runtime/internal/session"
	"github.com/agentcore/runtime/pkg/models"
)

const (
	maxPayloadBytes = 1 << 20
	pongWait        = 45 * time.Second
	writeWait       = 10 * time.Second
)

// Server is an http.Handler that upgrades connections to the WebSocket UI
// protocol and implements environment.UI so the agent environment can
// fan events out to every connected client.
type Server struct {
	Session  *session.Session
	Provider string
	Model    string

	log      *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	clients  map[string]*client
	commands chan environment.Command
}

// New builds a websocket UI bound to sess. provider/model select the
// defaults used for commands that don't name one explicitly.
func New(sess *session.Session, provider, model string) *Server {
	return &Server{
		Session:  sess,
		Provider: provider,
		Model:    model,
		log:      slog.Default(),
		clients:  make(map[string]*client),
		commands: make(chan environment.Command, 16),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  8192,
			WriteBufferSize: 8192,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Start implements environment.UI: it returns the channel of Prompt
// commands forwarded from connected clients. The HTTP server itself must
// be started separately (via ListenAndServe with Server as the handler);
// Start here only wires the command channel, matching "start() returns
// immediately, having spawned its own input loop" (spec.md §4.9) — the
// input loop is each client's readLoop, spawned on upgrade.
func (s *Server) Start(ctx context.Context) (<-chan environment.Command, error) {
	return s.commands, nil
}

// HandleEvent implements environment.UI, broadcasting ev to every
// connected client.
func (s *Server) HandleEvent(ev models.Event) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.enqueue(frame{Type: string(ev.Type), Payload: ev})
	}
}

// ServeHTTP upgrades the request to a WebSocket and runs the connection's
// read/write loops until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	c := &client{
		server: s,
		conn:   conn,
		id:     uuid.NewString(),
		send:   make(chan []byte, 64),
		ctx:    ctx,
		cancel: cancel,
	}
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
	}()

	c.run()
}

// frame is the envelope for every message in either direction: client
// commands are discriminated by Type and carry Params; server events are
// discriminated by Type and carry Payload (spec.md §6).
type frame struct {
	Type    string          `json:"type"`
	Params  json.RawMessage `json:"params,omitempty"`
	Payload any             `json:"payload,omitempty"`
}

type client struct {
	server *Server
	conn   *websocket.Conn
	id     string
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *client) run() {
	defer c.close()
	go c.writeLoop()

	c.server.onConnect(c)
	c.readLoop()
}

func (c *client) close() {
	c.cancel()
	close(c.send)
	_ = c.conn.Close()
}

func (c *client) readLoop() {
	c.conn.SetReadLimit(maxPayloadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.sendError("", "invalid command: "+err.Error())
			continue
		}
		if err := c.server.handleCommand(c, f); err != nil {
			c.sendError(f.Type, err.Error())
		}
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func (c *client) enqueue(f frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *client) sendError(command, message string) {
	c.enqueue(frame{Type: "error", Payload: errorPayload{
		Command:   command,
		Message:   message,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
	}})
}

type errorPayload struct {
	Command   string  `json:"command"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

type workersSnapshotPayload struct {
	Workers []workerView `json:"workers"`
}

type workerView struct {
	ID    string             `json:"id"`
	Name  string             `json:"name"`
	State models.WorkerState `json:"state"`
}

type conversationSnapshotPayload struct {
	WorkerID string         `json:"worker_id"`
	Entries  []models.Entry `json:"entries"`
}

// onConnect runs the on-connect sequence: WebSocketConnected, then a
// WorkersSnapshot, then a ConversationSnapshot for the worker named
// "main" if present (spec.md §6).
func (s *Server) onConnect(c *client) {
	c.enqueue(frame{Type: "websocket_connected"})
	c.enqueue(frame{Type: "workers_snapshot", Payload: s.workersSnapshot()})

	for _, w := range s.Session.GetWorkers() {
		if w.Name == "main" {
			c.enqueue(frame{Type: "conversation_snapshot", Payload: conversationSnapshotPayload{
				WorkerID: w.ID.String(),
				Entries:  w.History.Entries(),
			}})
			break
		}
	}
}

func (s *Server) workersSnapshot() workersSnapshotPayload {
	workers := s.Session.GetWorkers()
	out := make([]workerView, 0, len(workers))
	for _, w := range workers {
		out = append(out, workerView{ID: w.ID.String(), Name: w.Name, State: w.State()})
	}
	return workersSnapshotPayload{Workers: out}
}

// handleCommand dispatches one client→server command (spec.md §6):
// prompt, cancel, create_worker, get_workers, get_conversation_history,
// ping. Invalid commands produce an Error frame without closing the
// connection.
func (s *Server) handleCommand(c *client, f frame) error {
	switch f.Type {
	case "ping":
		c.enqueue(frame{Type: "pong"})
		return nil

	case "get_workers":
		c.enqueue(frame{Type: "workers_snapshot", Payload: s.workersSnapshot()})
		return nil

	case "get_conversation_history":
		var params struct {
			WorkerID string `json:"worker_id"`
		}
		if err := json.Unmarshal(f.Params, &params); err != nil {
			return err
		}
		id, err := parseWorkerID(params.WorkerID)
		if err != nil {
			return err
		}
		w, ok := s.Session.GetWorker(id)
		if !ok {
			return fmt.Errorf("unknown worker %q", params.WorkerID)
		}
		c.enqueue(frame{Type: "conversation_snapshot", Payload: conversationSnapshotPayload{
			WorkerID: w.ID.String(),
			Entries:  w.History.Entries(),
		}})
		return nil

	case "create_worker":
		var params struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(f.Params, &params); err != nil {
			return err
		}
		name := strings.TrimSpace(params.Name)
		if name == "" {
			name = "worker-" + uuid.NewString()[:8]
		}
		id := s.Session.BuildWorker(name)
		c.enqueue(frame{Type: "worker_created", Payload: map[string]string{"worker_id": id.String(), "name": name}})
		return nil

	case "cancel":
		var params struct {
			WorkerID string `json:"worker_id"`
		}
		if err := json.Unmarshal(f.Params, &params); err != nil {
			return err
		}
		id, err := parseWorkerID(params.WorkerID)
		if err != nil {
			return err
		}
		s.Session.CancelWorkerJobs(id)
		return nil

	case "prompt":
		var params struct {
			WorkerID string `json:"worker_id"`
			Text     string `json:"text"`
		}
		if err := json.Unmarshal(f.Params, &params); err != nil {
			return err
		}
		id, err := parseWorkerID(params.WorkerID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(params.Text) == "" {
			return fmt.Errorf("text must not be empty")
		}
		select {
		case s.commands <- environment.Command{Kind: environment.CommandPrompt, WorkerID: id, Text: params.Text, Provider: s.Provider, Model: s.Model}:
		case <-c.ctx.Done():
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", f.Type)
	}
}

func parseWorkerID(raw string) (models.WorkerId, error) {
	if strings.TrimSpace(raw) == "" {
		return models.WorkerId{}, fmt.Errorf("worker_id must not be empty")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return models.WorkerId{}, fmt.Errorf("invalid worker_id: %w", err)
	}
	return models.WorkerId(id), nil
}
