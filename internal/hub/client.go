// Package hub is the WS Hub: connection lifecycle, typed message routing,
// bounded per-connection outbound queues with backpressure, and heartbeat.
// Ported from internal/server/websocket.{Client,HandleWebSocket} and
// generalized from a single poker table's connection set to the Room's.
package hub

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	outboundQueueSize = 128
	writeWait         = 10 * time.Second
	pongWait          = 30 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMissedPings    = 2
)

// criticalTypes never get dropped ahead of a non-critical message;
// Send enforces the drop-oldest-non-critical policy from spec §4.F.
var criticalTypes = map[string]bool{
	"question":      true,
	"answer_result": true,
	"game_ended":    true,
}

// outboundMessage pairs a frame with whether it is critical, so the
// queue can apply the backpressure policy without re-parsing JSON.
type outboundMessage struct {
	data     []byte
	critical bool
}

// Client is one live WebSocket connection, bound to exactly one
// participant. Mirrors internal/server/websocket.Client (Conn, Send
// chan []byte) with an added bounded-queue drop policy and missed-ping
// counter for the heartbeat rule in spec §4.F step 5.
type Client struct {
	Conn          *websocket.Conn
	ParticipantID string
	RoomID        string

	send        chan outboundMessage
	closeOnce   chan struct{}
	missedPings int

	onClose func(c *Client)
}

func NewClient(conn *websocket.Conn, roomID, participantID string, onClose func(*Client)) *Client {
	return &Client{
		Conn:          conn,
		ParticipantID: participantID,
		RoomID:        roomID,
		send:          make(chan outboundMessage, outboundQueueSize),
		closeOnce:     make(chan struct{}),
		onClose:       onClose,
	}
}

// Send enqueues data non-blocking. If the queue is full it drops the
// oldest non-critical message to make room; if even a critical message
// cannot be enqueued after that, the connection is closed with
// BACKPRESSURE, per spec §4.F step 4.
func (c *Client) Send(data []byte, messageType string) {
	msg := outboundMessage{data: data, critical: criticalTypes[messageType]}
	select {
	case c.send <- msg:
		return
	default:
	}
	if c.dropOldestNonCritical() {
		select {
		case c.send <- msg:
			return
		default:
		}
	}
	if msg.critical {
		c.closeWithCode(websocket.CloseMessage, "BACKPRESSURE")
		return
	}
	// non-critical and still no room: drop it silently
}

// dropOldestNonCritical drains exactly one buffered non-critical message
// to make room, by pulling everything off, discarding the first
// non-critical it finds, and replaying the rest in order.
func (c *Client) dropOldestNonCritical() bool {
	buffered := make([]outboundMessage, 0, len(c.send))
	for {
		select {
		case m := <-c.send:
			buffered = append(buffered, m)
		default:
			goto drained
		}
	}
drained:
	dropped := false
	for _, m := range buffered {
		if !dropped && !m.critical {
			dropped = true
			continue
		}
		c.send <- m
	}
	return dropped
}

func (c *Client) closeWithCode(messageType int, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = c.Conn.WriteControl(messageType, websocket.FormatCloseMessage(websocket.CloseMessage, reason), deadline)
	select {
	case <-c.closeOnce:
	default:
		close(c.closeOnce)
	}
	_ = c.Conn.Close()
}

// WritePump drains the outbound queue to the socket and drives the
// server-initiated ping, matching internal/server/websocket.Client's
// WritePump loop.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.Conn.Close()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg.data); err != nil {
				return
			}
		case <-ticker.C:
			c.missedPings++
			if c.missedPings > maxMissedPings {
				c.closeWithCode(websocket.CloseMessage, "TIMEOUT")
				return
			}
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closeOnce:
			return
		}
	}
}

// ReadPump reads inbound frames and hands them to handleMessage until the
// connection closes, resetting the missed-ping counter on any client
// activity (message or pong).
func (c *Client) ReadPump(handleMessage func(*Client, []byte)) {
	defer func() {
		if c.onClose != nil {
			c.onClose(c)
		}
		_ = c.Conn.Close()
	}()

	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.missedPings = 0
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}
		c.missedPings = 0
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		handleMessage(c, data)
	}
}

// Replace closes this connection because another claimed the same
// participant slot, per spec §4.F step 2.
func (c *Client) Replace() {
	c.closeWithCode(websocket.CloseMessage, "REPLACED")
}

func (c *Client) Close(reason string) {
	c.closeWithCode(websocket.CloseMessage, reason)
}
