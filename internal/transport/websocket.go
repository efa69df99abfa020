// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	applog "binterp/internal/log"
)

// WebSocketTransport broadcasts interpolated spectrum snapshots as JSON to
// every connected client. Sends that cannot be queued are dropped; a slow
// viewer must never back-pressure the audio engine.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server
}

// NewWebSocketTransport starts an HTTP server on addr with a /ws endpoint
// and returns the running transport.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local visualization clients only; no origin policy.
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
	}

	wst.start()
	return wst
}

func (wst *WebSocketTransport) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)

	wst.server = &http.Server{
		Addr:    wst.addr,
		Handler: mux,
	}

	go func() {
		applog.Infof("websocket: listening on %s", wst.addr)
		if err := wst.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("websocket: server error: %v", err)
		}
	}()

	go wst.handleBroadcasts()
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Errorf("websocket: upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("websocket: client connected, total: %d", total)

	go func() {
		// Block until the client closes or errors.
		if _, _, err := conn.ReadMessage(); err != nil {
			wst.clientsMu.Lock()
			delete(wst.clients, conn)
			total := len(wst.clients)
			wst.clientsMu.Unlock()
			conn.Close()
			applog.Infof("websocket: client disconnected, total: %d", total)
		}
	}()
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for data := range wst.broadcast {
		wst.clientsMu.Lock()
		for client := range wst.clients {
			if err := client.WriteJSON(data); err != nil {
				applog.Warnf("websocket: dropping client: %v", err)
				client.Close()
				delete(wst.clients, client)
			}
		}
		wst.clientsMu.Unlock()
	}
}

// Send queues data for broadcast. If the queue is full the payload is
// silently dropped; the next snapshot supersedes it anyway.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case wst.broadcast <- data:
	default:
	}
	return nil
}

// Close disconnects all clients and shuts down the server.
func (wst *WebSocketTransport) Close() error {
	applog.Infof("websocket: closing server")

	wst.clientsMu.Lock()
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.clientsMu.Unlock()

	if wst.server != nil {
		return wst.server.Close()
	}
	return nil
}

var _ Transport = (*WebSocketTransport)(nil)
