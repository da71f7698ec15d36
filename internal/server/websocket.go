package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kode4food/signwiz/internal/wizard"
	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/log"
)

type (
	// Client represents a WebSocket connection streaming wizard snapshots
	Client struct {
		conn       *websocket.Conn
		sub        *wizard.Subscription
		snapshot   func() *api.WizardState
		done       chan struct{}
		once       sync.Once
		minVersion uint64
	}

	// ClientMessage is a request sent by a WebSocket client
	ClientMessage struct {
		Type string `json:"type"`
	}
)

const (
	MessageSnapshot = "snapshot"
	MessageRefresh  = "refresh"

	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 512
	wsBufferSize       = 1024
	incomingBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return
	}

	client := &Client{
		conn:     conn,
		sub:      s.wizard.Subscribe(),
		snapshot: s.wizard.Snapshot,
		done:     make(chan struct{}),
	}
	s.registerWebSocket(client)

	go func() {
		defer s.unregisterWebSocket(client)
		client.run()
	}()
}

// Close ends the client's stream and closes its connection
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Client) run() {
	defer func() {
		c.sub.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	if !c.sendCurrent() {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	incoming := make(chan []byte, incomingBufferSize)
	go c.readMessages(incoming)

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message, ok := <-incoming:
			if !ok {
				return
			}
			if !c.handleMessage(message) {
				return
			}

		case snap, ok := <-c.sub.Receive():
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.sendIfNewer(snap) {
				return
			}

		case <-ticker.C:
			if !c.sendPing() {
				return
			}
		}
	}
}

func (c *Client) readMessages(incoming chan []byte) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			close(incoming)
			return
		}
		incoming <- message
	}
}

func (c *Client) handleMessage(message []byte) bool {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		slog.Error("Failed to parse WebSocket message",
			log.Error(err))
		return true
	}
	if msg.Type != MessageRefresh {
		return true
	}
	return c.sendCurrent()
}

func (c *Client) sendCurrent() bool {
	snap := c.snapshot()
	c.minVersion = 0
	return c.sendIfNewer(snap)
}

// sendIfNewer drops snapshots that arrive after a later one was sent
func (c *Client) sendIfNewer(snap *api.WizardState) bool {
	if snap.Version < c.minVersion {
		return true
	}
	c.minVersion = snap.Version + 1

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteJSON(&api.SnapshotMessage{
		Type:      MessageSnapshot,
		State:     snap,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		slog.Error("WebSocket write failed",
			log.Error(err))
		return false
	}
	return true
}

func (c *Client) sendPing() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.PingMessage, nil)
	return err == nil
}
