package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/probelab/flowboard/pkg/editor"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// WebSocketManager pushes live graph updates to connected canvas clients
type WebSocketManager struct {
	upgrader   websocket.Upgrader
	controller *editor.Controller
	logger     hclog.Logger

	connections map[*websocket.Conn]func()
	mu          sync.Mutex
}

// NewWebSocketManager creates a new WebSocket manager
func NewWebSocketManager(controller *editor.Controller, logger hclog.Logger) *WebSocketManager {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &WebSocketManager{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from any origin for now
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		controller:  controller,
		logger:      logger.Named("websocket"),
		connections: make(map[*websocket.Conn]func()),
	}
}

// HandleWebSocket upgrades the connection and streams graph updates until
// the client disconnects
func (wsm *WebSocketManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsm.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	updates, cancel := wsm.controller.Subscribe()

	wsm.mu.Lock()
	wsm.connections[conn] = cancel
	wsm.mu.Unlock()

	defer func() {
		wsm.mu.Lock()
		delete(wsm.connections, conn)
		wsm.mu.Unlock()
		cancel()
		conn.Close()
		wsm.logger.Debug("WebSocket connection closed")
	}()

	wsm.logger.Debug("WebSocket connection established")

	// Send the current graph so the client starts in sync
	nodes, edges, _ := wsm.controller.Graph()
	initial := editor.GraphUpdate{
		FlowID:  wsm.controller.ActiveFlowID(),
		Nodes:   nodes,
		Edges:   edges,
		CanUndo: wsm.controller.CanUndo(),
		CanRedo: wsm.controller.CanRedo(),
	}
	if err := wsm.writeUpdate(conn, initial); err != nil {
		return
	}

	done := make(chan struct{})
	go wsm.readLoop(conn, done)

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := wsm.writeUpdate(conn, update); err != nil {
				wsm.logger.Debug("failed to push graph update", "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

// CloseAll drops every open connection, for server shutdown
func (wsm *WebSocketManager) CloseAll() {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()

	for conn, cancel := range wsm.connections {
		cancel()
		conn.Close()
	}
	wsm.connections = make(map[*websocket.Conn]func())
}

// ConnectedClients returns the number of connected clients
func (wsm *WebSocketManager) ConnectedClients() int {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()
	return len(wsm.connections)
}

// readLoop drains client messages so pongs and close frames are processed
func (wsm *WebSocketManager) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetPongHandler(func(string) error { return nil })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				wsm.logger.Debug("WebSocket read error", "error", err)
			}
			return
		}
	}
}

// writeUpdate sends one graph update with a write deadline
func (wsm *WebSocketManager) writeUpdate(conn *websocket.Conn, update editor.GraphUpdate) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(update)
}
