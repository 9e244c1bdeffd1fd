// Package coordinator implements the authoritative reliable-transport
// endpoint: it accepts connections, dispatches frames into the room
// model, and broadcasts snapshots back to every affected member.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/VanshMandot/LanForge/internal/identity"
	"github.com/VanshMandot/LanForge/internal/room"
	"github.com/VanshMandot/LanForge/internal/wire"
)

// HeartbeatInterval is how often the coordinator checks every connection
// for a timeout and pings the ones still alive.
const HeartbeatInterval = 5 * time.Second

// HeartbeatTimeout is how long a connection may go silent before the
// coordinator closes it.
const HeartbeatTimeout = 15 * time.Second

// Coordinator owns a listener bound to one address and every connection
// accepted on it. All room mutation is delegated to an internal
// *room.Store; the coordinator's own job is identity assignment, dispatch,
// and broadcast.
type Coordinator struct {
	store *room.Store

	mu      sync.Mutex
	conns   map[string]*connection // clientId -> connection
	running bool
	server  *http.Server
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New returns a Coordinator with an empty room store.
func New() *Coordinator {
	return &Coordinator{
		store: room.NewStore(),
		conns: make(map[string]*connection),
	}
}

// NewFromSnapshot returns a Coordinator whose store is seeded with snap,
// preserving roomId, joinCode, hostDeviceId, membership and chat history
// exactly. Member clientIds carried in the snapshot are provisional
// until their device reconnects and sends HELLO.
func NewFromSnapshot(snap room.Snapshot) (*Coordinator, error) {
	c := New()
	if _, err := c.store.RestoreRoom(snap); err != nil {
		return nil, fmt.Errorf("coordinator: restoring snapshot: %w", err)
	}
	return c, nil
}

// Store exposes the underlying room store, mainly so a peer that hosts its
// own coordinator can inspect state without a network round trip.
func (c *Coordinator) Store() *room.Store {
	return c.store
}

// Start binds addr (host:port) and begins accepting connections. It blocks
// until the listener fails or Stop is called, matching net/http.Server's
// ListenAndServe contract; callers typically run it in its own goroutine.
func (c *Coordinator) Start(addr string) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("coordinator: already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.running = true
	mux := http.NewServeMux()
	mux.HandleFunc("/", c.HandleUpgrade)
	c.server = &http.Server{Addr: addr, Handler: mux}
	c.mu.Unlock()

	c.wg.Add(1)
	go c.heartbeatLoop(ctx)

	log.Printf("[coordinator] listening on %s\n", addr)
	err := c.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop closes the listener, every open connection, and the heartbeat loop,
// releasing the port so a future re-election on this device can bind it
// again.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	server := c.server
	cancel := c.cancel
	conns := make([]*connection, 0, len(c.conns))
	for _, cn := range c.conns {
		conns = append(conns, cn)
	}
	c.mu.Unlock()

	cancel()
	c.wg.Wait()

	for _, cn := range conns {
		cn.closeWith(websocket.StatusNormalClosure, "coordinator stopping")
	}
	if server != nil {
		shCtx, shCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shCancel()
		_ = server.Shutdown(shCtx)
	}
}

// Addr returns the address string Start was given, or "" before Start.
// It is the configured address, not the bound one: for ":0" it returns
// ":0", not the port the listener actually received.
func (c *Coordinator) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.server == nil {
		return ""
	}
	return c.server.Addr
}

// HandleUpgrade is the http.HandlerFunc that accepts one connection and
// runs it until close. Start wires it to "/" on its own listener; it is
// exported so a caller that already owns an http.Server (or wants to test
// against httptest.Server) can mount it directly.
func (c *Coordinator) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	wsConn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("[coordinator] upgrade failed: %v\n", err)
		return
	}

	cn := &connection{
		clientID:       identity.NewClientID(),
		wsConn:         wsConn,
		send:           make(chan wire.Frame, 16),
		lastActiveTime: time.Now(),
	}

	c.mu.Lock()
	c.conns[cn.clientID] = cn
	c.mu.Unlock()

	log.Printf("[coordinator] accepted connection %s\n", cn.clientID)

	writeCtx, writeCancel := context.WithCancel(r.Context())
	defer writeCancel()
	go cn.writePump(writeCtx)

	c.readLoop(r.Context(), cn)
}

// readLoop owns one connection's lifetime: it decodes inbound frames,
// dispatches them, and on exit runs the disconnect path.
func (c *Coordinator) readLoop(ctx context.Context, cn *connection) {
	defer c.disconnect(cn)

	for {
		_, data, err := cn.wsConn.Read(ctx)
		if err != nil {
			return
		}
		cn.touch()

		f, err := wire.Decode(data)
		if err != nil {
			log.Printf("[coordinator] malformed frame from %s: %v\n", cn.clientID, err)
			continue
		}
		c.dispatch(cn, f)
	}
}

func (c *Coordinator) disconnect(cn *connection) {
	c.mu.Lock()
	delete(c.conns, cn.clientID)
	c.mu.Unlock()

	cn.close()

	if cn.deviceID == "" {
		return
	}
	r, destroyed, ok := c.store.LeaveRoom(cn.deviceID)
	if !ok || destroyed {
		return
	}
	c.broadcastSnapshot(r.RoomID)
}

// connectionsInRoom returns every live connection whose device is
// currently a member of roomID.
func (c *Coordinator) connectionsInRoom(roomID string) []*connection {
	c.mu.Lock()
	defer c.mu.Unlock()

	var members []*connection
	for _, cn := range c.conns {
		if cn.deviceID == "" {
			continue
		}
		if id, ok := c.store.RoomIDFor(cn.deviceID); ok && id == roomID {
			members = append(members, cn)
		}
	}
	return members
}

func (c *Coordinator) broadcastSnapshot(roomID string) {
	snap, err := c.store.MakeSnapshot(roomID)
	if err != nil {
		return
	}
	raw, err := marshalSnapshot(snap)
	if err != nil {
		log.Printf("[coordinator] marshaling snapshot for %s: %v\n", roomID, err)
		return
	}
	f, err := wire.New(wire.TypeStateSnapshot, identity.NewRequestID(), wire.ClientIDServer, wire.SnapshotPayload{Snapshot: raw})
	if err != nil {
		return
	}
	for _, cn := range c.connectionsInRoom(roomID) {
		cn.enqueue(f)
	}
}

func marshalSnapshot(snap room.Snapshot) (wire.RawSnapshot, error) {
	return json.Marshal(snap)
}

func (c *Coordinator) heartbeatLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkHeartbeats()
		}
	}
}

func (c *Coordinator) checkHeartbeats() {
	c.mu.Lock()
	conns := make([]*connection, 0, len(c.conns))
	for _, cn := range c.conns {
		conns = append(conns, cn)
	}
	c.mu.Unlock()

	now := time.Now()
	for _, cn := range conns {
		if now.Sub(cn.lastActive()) > HeartbeatTimeout {
			log.Printf("[coordinator] heartbeat timeout for %s\n", cn.clientID)
			cn.closeWith(websocket.StatusPolicyViolation, "Heartbeat timeout")
			continue
		}
		ping, err := wire.New(wire.TypePing, identity.NewRequestID(), wire.ClientIDServer, wire.PingPongPayload{Timestamp: now.UnixMilli()})
		if err != nil {
			continue
		}
		cn.enqueue(ping)
	}
}
