// Package websocket pushes pipeline state changes to connected dashboards.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/couchcryptid/city-sensor-pipeline/internal/observability"
	"github.com/couchcryptid/city-sensor-pipeline/internal/pipeline"
)

const broadcastBuffer = 16

// RenderFunc turns a state into the payload sent to clients.
type RenderFunc func(pipeline.State) any

type message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub maintains the set of active clients and broadcasts state changes.
// It implements pipeline.StatePublisher.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	last       []byte // most recent state, sent to new clients
	done       chan struct{}

	render   RenderFunc
	upgrader websocket.Upgrader
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewHub creates a hub that renders states with render.
func NewHub(render RenderFunc, metrics *observability.Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		render:     render,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from a different origin during development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Run owns the client set until the context is cancelled, then closes every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for client := range h.clients {
			h.drop(client)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			h.metrics.WebsocketClients.Set(float64(len(h.clients)))
			h.logger.Debug("websocket client registered", "remote", client.remote)
			if h.last != nil {
				client.send <- h.last
			}

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				h.logger.Debug("websocket client unregistered", "remote", client.remote)
			}

		case msg := <-h.broadcast:
			h.last = msg
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					h.logger.Warn("websocket client send buffer full, removing", "remote", client.remote)
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.metrics.WebsocketClients.Set(float64(len(h.clients)))
}

// PublishState queues a state notification. It never blocks; when the
// queue is full the notification is dropped.
func (h *Hub) PublishState(st pipeline.State) {
	b, err := json.Marshal(message{Type: "state", Payload: h.render(st)})
	if err != nil {
		h.logger.Error("marshal state notification", "error", err)
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.logger.Warn("state notification dropped, broadcast queue full")
	}
}

// ServeHTTP upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := newClient(h, conn)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}
