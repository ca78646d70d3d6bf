// Package realtime pushes issue events to websocket clients subscribed to a project.
package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/monocle-dev/tracker/internal/events"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Message is what clients receive. Private comments only announce that the
// issue changed.
type Message struct {
	Type      string `json:"type"`
	ProjectID uint   `json:"project_id"`
	IssueID   uint   `json:"issue_id,omitempty"`
	Event     string `json:"event,omitempty"`
	Subject   string `json:"subject,omitempty"`
}

// client serializes writes; a websocket connection supports one writer at a time.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

type Hub struct {
	clients  map[uint]map[*client]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHub accepts connections from the given origins only.
func NewHub(allowedOrigins []string, log zerolog.Logger) *Hub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &Hub{
		clients: make(map[uint]map[*client]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
		log: log,
	}
}

// Publish sends a refresh message to every client of the event's project.
func (h *Hub) Publish(event events.IssueEvent) {
	msg := Message{
		Type:      "refresh",
		ProjectID: event.ProjectID,
		IssueID:   event.IssueID,
		Event:     string(event.Type),
	}
	if !event.Private {
		msg.Subject = event.Subject
	}
	h.Broadcast(event.ProjectID, msg)
}

// Broadcast writes msg to the project's clients, dropping those that fail.
func (h *Hub) Broadcast(projectID uint, msg Message) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients[projectID]))
	for c := range h.clients[projectID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(msg); err != nil {
			h.log.Debug().Err(err).Uint("project_id", projectID).Msg("websocket broadcast failed")
			h.drop(projectID, c)
		}
	}
}

// Clients returns the number of connections subscribed to the project.
func (h *Hub) Clients(projectID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[projectID])
}

// Serve upgrades the request and keeps the connection subscribed to the
// project until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, projectID uint) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c := &client{conn: conn}

	h.mu.Lock()
	if h.clients[projectID] == nil {
		h.clients[projectID] = make(map[*client]bool)
	}
	h.clients[projectID][c] = true
	h.mu.Unlock()

	defer h.drop(projectID, c)

	if err := c.write(Message{Type: "connected", ProjectID: projectID}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				h.mu.RLock()
				alive := h.clients[projectID][c]
				h.mu.RUnlock()
				if !alive {
					return
				}
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return
		}
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug().Err(err).Uint("project_id", projectID).Msg("websocket closed")
			}
			return
		}
	}
}

func (h *Hub) drop(projectID uint, c *client) {
	h.mu.Lock()
	if clients, ok := h.clients[projectID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.clients, projectID)
		}
	}
	h.mu.Unlock()
	c.conn.Close()
}
