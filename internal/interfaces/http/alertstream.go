package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/carworth/carworth/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 45 * time.Second
	clientBuffer   = 16
	maxMessageSize = 512
)

// AlertStream fans newly raised market-shift alerts out to websocket
// subscribers. It satisfies the detector's AlertSink.
type AlertStream struct {
	upgrader websocket.Upgrader

	register   chan *streamClient
	unregister chan *streamClient
	broadcast  chan domain.MarketShiftAlert
	done       chan struct{}
}

type streamClient struct {
	conn *websocket.Conn
	send chan domain.MarketShiftAlert
}

// NewAlertStream creates the hub; call Run before serving connections.
func NewAlertStream() *AlertStream {
	return &AlertStream{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		broadcast:  make(chan domain.MarketShiftAlert, clientBuffer),
		done:       make(chan struct{}),
	}
}

// PublishAlert queues an alert for all connected subscribers. Never blocks
// the detector.
func (s *AlertStream) PublishAlert(alert domain.MarketShiftAlert) {
	select {
	case s.broadcast <- alert:
	default:
		log.Warn().Str("alert_id", alert.ID).Msg("alert stream backlog full, dropping")
	}
}

// Run owns the client set. Single goroutine, no locks.
func (s *AlertStream) Run() {
	clients := make(map[*streamClient]struct{})
	for {
		select {
		case c := <-s.register:
			clients[c] = struct{}{}
		case c := <-s.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
			}
		case alert := <-s.broadcast:
			for c := range clients {
				select {
				case c.send <- alert:
				default:
					delete(clients, c)
					close(c.send)
				}
			}
		case <-s.done:
			for c := range clients {
				close(c.send)
			}
			return
		}
	}
}

// Close stops the hub and disconnects all subscribers.
func (s *AlertStream) Close() {
	close(s.done)
}

// Serve upgrades the request and streams alerts until the peer goes away.
func (s *AlertStream) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &streamClient{conn: conn, send: make(chan domain.MarketShiftAlert, clientBuffer)}
	s.register <- client

	go s.writePump(client)
	s.readPump(client)
}

func (s *AlertStream) writePump(c *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case alert, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(alert); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the stream is one-way, but reading is
// required to process control messages and notice disconnects.
func (s *AlertStream) readPump(c *streamClient) {
	defer func() {
		s.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
