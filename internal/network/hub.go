// Package network carries the observer websocket surface: a hub fanning
// server messages out to every connected client, and per-client read/write
// pumps feeding commands into the session service.
package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/machitown/disaster-sim/internal/platform/logger"
	"github.com/machitown/disaster-sim/internal/platform/metrics"
	"github.com/machitown/disaster-sim/internal/protocol"
)

// CommandHandler receives parsed-or-raw observer commands and join events.
// The session service implements it.
type CommandHandler interface {
	HandleCommand(raw []byte, reply func(protocol.ServerMessage))
	OnObserverJoin(send func(protocol.ServerMessage))
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	handler    CommandHandler
	logger     *logger.Logger
}

// NewHub initializes the websocket hub.
func NewHub(handler CommandHandler, log *logger.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		handler:    handler,
		logger:     log,
	}
}

// Run starts the hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("websocket hub shutting down")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(1)
			h.logger.Info("observer connected")
			h.handler.OnObserverJoin(client.Send)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.Get().RecordWSConnection(-1)
				h.logger.Info("observer disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast serializes a server message and fans it out to every observer.
func (h *Hub) Broadcast(msg protocol.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to serialize server message: " + err.Error())
		return
	}
	select {
	case h.broadcast <- payload:
		metrics.Get().RecordWSMessage(false)
	default:
		h.logger.Warn("broadcast queue full, dropping " + msg.Type)
	}
}

// ObserverCount returns the number of connected clients.
func (h *Hub) ObserverCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The observer UI is served from another origin during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request and starts the client pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed: " + err.Error())
		return
	}
	client := NewClient(h, conn)
	client.Register()
	go client.WritePump()
	go client.ReadPump()
}
