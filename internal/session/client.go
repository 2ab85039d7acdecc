package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/coder/websocket"
)

const (
	writeWait    = 10 * time.Second
	pingPeriod   = 30 * time.Second
	maxMsgSize   = 64 * 1024
	sendCapacity = 256
)

// Client is the websocket connection of the clinician editing one drawing.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	session   *Session
	logger    *slog.Logger
	UserID    string
	DrawingID string
	ClientID  string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, drawingID, clientID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendCapacity),
		logger:    hub.logger.With("user", userID, "drawing", drawingID, "client", clientID),
		UserID:    userID,
		DrawingID: drawingID,
		ClientID:  clientID,
	}
}

// ReadPump feeds incoming messages to the drawing until the connection ends, then hands
// the client back to the hub, which saves and unloads the drawing.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if !closedNormally(err) {
				c.logger.Debug("read error", "error", err)
			}
			return
		}

		msg, err := c.decode(data)
		if err != nil {
			c.logger.Warn("invalid message", "error", err)
			c.Send(newMessage(TypeError, ErrorPayload{Message: "invalid message"}))
			continue
		}
		c.hub.handleMessage(ctx, c, msg)
	}
}

// decode parses a message and stamps it with the connection's identity; the client cannot
// address another drawing.
func (c *Client) decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, errors.New("missing message type")
	}
	msg.UserID = c.UserID
	msg.ClientID = c.ClientID
	msg.DrawingID = c.DrawingID
	return &msg, nil
}

func closedNormally(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}

// WritePump drains the send queue onto the connection and keeps it alive with pings.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, message); err != nil {
				c.logger.Debug("write error", "error", err)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, message []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageText, message)
}

// Send queues a message without blocking. Messages to a client that has fallen behind
// are dropped; the next frame carries the full picture again.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("marshal message", "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping message", "type", msg.Type)
	}
}
