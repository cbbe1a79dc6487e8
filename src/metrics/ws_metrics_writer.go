package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"macrocopilot/src/datamodels"
)

// WebsocketMetricsWriter broadcasts every metric to the connected report viewers.
type WebsocketMetricsWriter struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

// NewWebSocketMetricsWriter creates a new WebSocketMetricsWriter
func NewWebSocketMetricsWriter() *WebsocketMetricsWriter {
	return &WebsocketMetricsWriter{
		clients: make(map[*websocket.Conn]bool),
	}
}

// AddClient adds a new client connection
func (w *WebsocketMetricsWriter) AddClient(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clients[conn] = true
}

// RemoveClient removes a client connection
func (w *WebsocketMetricsWriter) RemoveClient(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.clients, conn)
}

func (w *WebsocketMetricsWriter) NumClients() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.clients)
}

// Send writes v as JSON to one client. Writes to a registered client must go
// through the writer so they never interleave with broadcasts.
func (w *WebsocketMetricsWriter) Send(conn *websocket.Conn, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return conn.WriteJSON(v)
}

// Write sends the metric to every client. Clients that fail are dropped.
func (w *WebsocketMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	payload, err := json.Marshal(metric)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for client := range w.clients {
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Warn("Dropping websocket client", "remote", client.RemoteAddr(), "error", err)
			client.Close()
			delete(w.clients, client)
		}
	}
	return nil
}

func (w *WebsocketMetricsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for client := range w.clients {
		client.Close()
		delete(w.clients, client)
	}
	return nil
}
