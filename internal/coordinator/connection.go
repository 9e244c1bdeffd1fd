package coordinator

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/VanshMandot/LanForge/internal/wire"
)

// connection is the coordinator's per-accepted-connection state: the
// assigned clientId, the identity claimed via HELLO (empty until then),
// and the liveness clock the heartbeat loop reads.
type connection struct {
	clientID string
	wsConn   *websocket.Conn
	send     chan wire.Frame

	mu             sync.Mutex
	deviceID       string
	name           string
	lastActiveTime time.Time
	closed         bool
}

func (c *connection) touch() {
	c.mu.Lock()
	c.lastActiveTime = time.Now()
	c.mu.Unlock()
}

func (c *connection) lastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActiveTime
}

func (c *connection) setIdentity(deviceID, name string) {
	c.mu.Lock()
	c.deviceID = deviceID
	c.name = name
	c.mu.Unlock()
}

// enqueue drops the frame if the send buffer is full: a slow reader
// must not stall the read loop that is dispatching the frame to it.
func (c *connection) enqueue(f wire.Frame) {
	select {
	case c.send <- f:
	default:
		log.Printf("[coordinator] send buffer full for %s, dropping %s\n", c.clientID, f.Type)
	}
}

// writePump drains send and writes each frame to the socket.
func (c *connection) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-c.send:
			if !ok {
				return
			}
			data, err := wire.Encode(f)
			if err != nil {
				log.Printf("[coordinator] encoding %s for %s: %v\n", f.Type, c.clientID, err)
				continue
			}
			if err := c.wsConn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}

func (c *connection) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.wsConn.Close(websocket.StatusNormalClosure, "")
}

func (c *connection) closeWith(code websocket.StatusCode, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.wsConn.Close(code, reason)
}
