package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second

	// Inbound frames are ops and presence updates, all small JSON.
	maxMessageBytes = 16 * 1024

	sendQueueLen = 64
)

// ClientInfo identifies a connection: who is editing (UserID, DisplayName),
// which room (ProjectID) and which tab (ClientID). Playground visitors get
// synthetic user IDs, so ClientID is the stable key.
type ClientInfo struct {
	UserID      string
	DisplayName string
	ProjectID   string
	ClientID    string
}

type Client struct {
	ClientInfo

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn, info ClientInfo) *Client {
	return &Client{
		ClientInfo: info,
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendQueueLen),
	}
}

// ReadPump consumes frames until the connection dies, forwarding decoded
// messages to the hub. It runs on the connection's goroutine.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageBytes)

	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				slog.Debug("websocket read failed", "error", err, "client", c.ClientID)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("dropping malformed frame", "error", err, "client", c.ClientID)
			continue
		}
		if msg.Type == "" {
			continue
		}

		// The connection, not the frame, decides identity.
		msg.UserID = c.UserID
		msg.ClientID = c.ClientID
		msg.ProjectID = c.ProjectID

		c.hub.handleMessage(c, &msg)
	}
}

// WritePump drains the send queue and keeps the connection alive with pings.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Debug("websocket write failed", "error", err, "client", c.ClientID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Send marshals and queues a message for this client alone.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal outbound message", "error", err, "type", msg.Type)
		return
	}
	c.SendRaw(data)
}

// SendRaw queues pre-marshaled bytes. Broadcasts marshal once per room and
// fan out through here. A client that cannot keep up loses the frame
// instead of blocking the hub.
func (c *Client) SendRaw(data []byte) {
	select {
	case c.send <- data:
	default:
		slog.Warn("send queue full, dropping frame", "client", c.ClientID, "project", c.ProjectID)
	}
}
