// Package hub pushes playback events to websocket clients and accepts
// start/stop requests from them.
package hub

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"

	"github.com/user/lrctype/internal/playback"
)

// Controls is the trigger surface the hub drives.
type Controls interface {
	Start() error
	Stop()
	Toggle() error
	Status() playback.Status
}

type Hub struct {
	clients    map[string]*Client
	register   chan *clientRegistration
	unregister chan *Client
	broadcast  chan []byte
	controls   Controls
	token      string
	mu         sync.RWMutex
	ctxWrap    *ctxWrapper
	running    atomic.Bool
}

type ctxWrapper struct {
	ctx context.Context
}

type clientRegistration struct {
	client        *Client
	initialStatus []byte
}

func New(token string, controls Controls) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *clientRegistration, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 256),
		controls:   controls,
		token:      token,
		ctxWrap:    &ctxWrapper{ctx: context.Background()},
	}
}

func (h *Hub) getContext() context.Context {
	if h.ctxWrap != nil {
		return h.ctxWrap.ctx
	}
	return context.Background()
}

func (h *Hub) Run(ctx context.Context) {
	h.ctxWrap = &ctxWrapper{ctx: ctx}
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return

		case reg := <-h.register:
			h.mu.Lock()
			h.clients[reg.client.id] = reg.client
			h.mu.Unlock()
			if reg.initialStatus != nil {
				select {
				case reg.client.send <- reg.initialStatus:
				default:
				}
			}
			go reg.client.writePump(h.getContext())
			go reg.client.readPump(h.getContext())
			log.Printf("client connected: %s (total: %d)", reg.client.id, h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("client disconnected: %s (total: %d)", client.id, h.ClientCount())

		case data := <-h.broadcast:
			h.broadcastToClients(data)
		}
	}
}

func (h *Hub) broadcastToClients(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("client %s send buffer full, dropping message", c.id)
		}
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" || token != h.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("websocket accept error: %v", err)
		return
	}

	client := newClient(conn, h)
	initialStatus, _ := json.Marshal(h.statusMessage())

	select {
	case h.register <- &clientRegistration{client: client, initialStatus: initialStatus}:
	default:
		log.Printf("hub not accepting connections")
		conn.Close(websocket.StatusTryAgainLater, "server busy")
		return
	}
}

// Notify implements playback.Observer. It never blocks the playback loop;
// events are dropped when the broadcast queue is full.
func (h *Hub) Notify(ev playback.Event) {
	h.enqueue(PlaybackMessage{Type: "playback", Event: ev}, "playback")
}

func (h *Hub) BroadcastStatus() {
	h.enqueue(h.statusMessage(), "status")
}

func (h *Hub) enqueue(msg any, kind string) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling %s message: %v", kind, err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Printf("broadcast channel full, dropping %s message", kind)
	}
}

func (h *Hub) statusMessage() StatusMessage {
	msg := StatusMessage{Type: "status", Status: playback.Status{State: playback.StateIdle}}
	if h.controls != nil {
		msg.Status = h.controls.Status()
	}
	return msg
}

func (h *Hub) SendError(client *Client, message string) {
	h.sendTo(client, ErrorMessage{Type: "error", Message: message})
}

func (h *Hub) sendTo(client *Client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling message for %s: %v", client.id, err)
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleControl(client *Client, kind string) {
	if h.controls == nil {
		h.SendError(client, "playback control unavailable")
		return
	}
	var err error
	switch kind {
	case "start":
		err = h.controls.Start()
	case "stop":
		h.controls.Stop()
	case "toggle":
		err = h.controls.Toggle()
	}
	if err != nil {
		h.SendError(client, err.Error())
		return
	}
	h.sendTo(client, h.statusMessage())
}

func (h *Hub) isRunning() bool {
	return h.running.Load()
}

func (h *Hub) unregisterClient(c *Client) {
	if !h.isRunning() {
		c.conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	select {
	case h.unregister <- c:
	default:
		log.Printf("unregister channel full for client %s, forcing close", c.id)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
}
