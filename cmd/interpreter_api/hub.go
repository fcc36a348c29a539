package main

import (
	"sync"
	"time"

	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// hub keeps the websocket clients that receive live readings.
type hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	log     logrus.FieldLogger
}

func newHub(logger logrus.FieldLogger) *hub {
	return &hub{
		clients: make(map[*websocket.Conn]bool),
		log:     logger,
	}
}

func (h *hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.log.WithField("clients", count).Debug("WebSocket client connected")
}

func (h *hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

func (h *hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast is registered as a poller reading handler.
func (h *hub) Broadcast(reading *types.Reading) {
	data := reading.ToJsonBytes()
	if data == nil {
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.WithError(err).Debug("Dropping websocket client")
			h.Remove(client)
		}
	}
}

func (h *hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*websocket.Conn]bool)
	h.mu.Unlock()

	for client := range clients {
		client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second))
		client.Close()
	}
}
