// Package peer implements LanForge's per-device engine: identity,
// connection lifecycle, the snapshot cache, the public room operations,
// and — the heart of the system — the migration state machine that
// reconciles coordinator loss with a fresh election and reconnect.
package peer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/VanshMandot/LanForge/internal/config"
	"github.com/VanshMandot/LanForge/internal/coordinator"
	"github.com/VanshMandot/LanForge/internal/discovery"
	"github.com/VanshMandot/LanForge/internal/identity"
	"github.com/VanshMandot/LanForge/internal/room"
	"github.com/VanshMandot/LanForge/internal/wire"
)

// State is one point in the migration state machine.
type State string

const (
	StateIdle         State = "idle"
	StateConnected    State = "connected"
	StateServerLost   State = "server_lost"
	StateBecomingHost State = "becoming_host"
	StateAwaitingHost State = "awaiting_host"
	StateDead         State = "dead" // terminal: MigrationAbandoned
)

// MigrationTimeout is how long Awaiting-Host waits for a matching
// announcement before falling back to the sole-survivor policy.
const MigrationTimeout = 10 * time.Second

// ErrMigrationAbandoned means coordinator loss was detected with no cached
// snapshot or no learned clientId to migrate from, or the cached snapshot
// left no member to elect or could not seed a local coordinator.
var ErrMigrationAbandoned = errors.New("peer: migration abandoned, no snapshot to recover from")

// Peer is one device's engine: exactly one is expected per process, but
// nothing here is a package-level singleton.
type Peer struct {
	cfg      config.Config
	deviceID string
	name     string
	Events   *Bus

	mu             sync.Mutex
	state          State
	serverURL      string
	wsConn         *websocket.Conn
	send           chan wire.Frame
	clientID       string
	roomID         string
	joinCode       string
	hostClientID   string
	cachedSnapshot *room.Snapshot
	isHandlingLoss bool

	ownCoordinator *coordinator.Coordinator
	announcer      *discovery.Announcer
	discoverer     *discovery.Discoverer
	migrationTimer *time.Timer

	readCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New returns a Peer for the given config, resolving DeviceID via
// internal/identity if it was not supplied.
func New(cfg config.Config) *Peer {
	return &Peer{
		cfg:       cfg,
		deviceID:  identity.Resolve(cfg.DeviceID),
		name:      cfg.ClientName,
		serverURL: cfg.ServerURL,
		state:     StateIdle,
		Events:    NewBus(),
	}
}

// DeviceID returns this peer's stable identity.
func (p *Peer) DeviceID() string {
	return p.deviceID
}

// State reports the current migration-state-machine state.
func (p *Peer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start connects to serverURL (or p.cfg.ServerURL if empty), queues HELLO,
// and begins the background read loop that feeds both normal dispatch and
// the migration state machine. It returns without waiting for WELCOME;
// the read loop records the assigned clientId when it arrives.
func (p *Peer) Start(serverURL string) error {
	if serverURL == "" {
		serverURL = p.cfg.ServerURL
	}
	return p.connect(serverURL)
}

func (p *Peer) connect(serverURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsConn, _, err := websocket.Dial(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("peer: dialing %s: %w", serverURL, err)
	}

	p.mu.Lock()
	prevCancel := p.readCancel
	prevSend := p.send
	p.serverURL = serverURL
	p.wsConn = wsConn
	p.send = make(chan wire.Frame, 16)
	p.clientID = wire.ClientIDPending
	p.state = StateConnected
	// A successful (re)connect closes out whatever migration was in
	// progress: Becoming-Host reconnecting to its own coordinator and
	// Awaiting-Host reconnecting to a discovered host both land here, and
	// either one must be able to detect and react to a later, separate
	// coordinator loss.
	p.isHandlingLoss = false
	p.mu.Unlock()

	// A migration reconnect calls connect() again on a live Peer: tear down
	// the prior writePump/readLoop pair before orphaning them. Cancelling
	// unblocks a writePump parked in its select and a readLoop blocked on
	// Read; closing send wakes a writePump waiting on an empty channel.
	if prevCancel != nil {
		prevCancel()
	}
	if prevSend != nil {
		close(prevSend)
	}

	readCtx, readCancel := context.WithCancel(context.Background())
	p.readCancel = readCancel

	p.wg.Add(2)
	go p.writePump(readCtx)
	go p.readLoop(readCtx)

	return p.sendHello()
}

func (p *Peer) sendHello() error {
	f, err := wire.New(wire.TypeHello, identity.NewRequestID(), wire.ClientIDPending, wire.HelloPayload{
		DeviceID: p.deviceID,
		Name:     p.name,
	})
	if err != nil {
		return err
	}
	p.enqueue(f)
	return nil
}

// enqueue drops the frame with a warning if the connection isn't open:
// operations are at-most-once, there is no retry queue.
func (p *Peer) enqueue(f wire.Frame) {
	p.mu.Lock()
	send := p.send
	state := p.state
	p.mu.Unlock()

	if send == nil || state != StateConnected {
		log.Printf("[peer] dropping %s frame, connection not open (state=%s)\n", f.Type, state)
		return
	}
	select {
	case send <- f:
	default:
		log.Printf("[peer] send buffer full, dropping %s frame\n", f.Type)
	}
}

func (p *Peer) writePump(ctx context.Context) {
	defer p.wg.Done()
	p.mu.Lock()
	send := p.send
	conn := p.wsConn
	p.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-send:
			if !ok {
				return
			}
			data, err := wire.Encode(f)
			if err != nil {
				log.Printf("[peer] encoding %s: %v\n", f.Type, err)
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}

func (p *Peer) readLoop(ctx context.Context) {
	defer p.wg.Done()
	p.mu.Lock()
	conn := p.wsConn
	p.mu.Unlock()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			p.handleTransportClosed()
			return
		}
		f, err := wire.Decode(data)
		if err != nil {
			log.Printf("[peer] malformed frame: %v\n", err)
			continue
		}
		p.dispatch(f)
	}
}

// CreateRoom sends CREATE_ROOM. The coordinator does not use roomName; a
// positive maxPlayers caps the room's membership (0 means no cap).
func (p *Peer) CreateRoom(roomName string, maxPlayers int) {
	f, err := wire.New(wire.TypeCreateRoom, identity.NewRequestID(), p.currentClientID(), wire.CreateRoomPayload{RoomName: roomName, MaxPlayers: maxPlayers})
	if err != nil {
		return
	}
	p.enqueue(f)
}

// JoinRoom sends JOIN_ROOM for the given code.
func (p *Peer) JoinRoom(joinCode string) {
	p.mu.Lock()
	p.joinCode = joinCode
	p.mu.Unlock()

	f, err := wire.New(wire.TypeJoinRoom, identity.NewRequestID(), p.currentClientID(), wire.JoinRoomPayload{JoinCode: joinCode})
	if err != nil {
		return
	}
	p.enqueue(f)
}

// SendChat sends a CHAT frame.
func (p *Peer) SendChat(text string) {
	f, err := wire.New(wire.TypeChat, identity.NewRequestID(), p.currentClientID(), wire.ChatInPayload{Text: text})
	if err != nil {
		return
	}
	p.enqueue(f)
}

// Kick sends a KICK frame naming targetDeviceID.
func (p *Peer) Kick(targetDeviceID string) {
	f, err := wire.New(wire.TypeKick, identity.NewRequestID(), p.currentClientID(), wire.KickPayload{TargetDeviceID: targetDeviceID})
	if err != nil {
		return
	}
	p.enqueue(f)
}

func (p *Peer) currentClientID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientID
}

// Snapshot returns the most recently cached snapshot, if any.
func (p *Peer) Snapshot() (room.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cachedSnapshot == nil {
		return room.Snapshot{}, false
	}
	return *p.cachedSnapshot, true
}

// Stop tears down the connection, any self-hosted coordinator, and any
// running announcer/discoverer/migration timer.
func (p *Peer) Stop() {
	p.mu.Lock()
	state := p.state
	send := p.send
	coord := p.ownCoordinator
	ann := p.announcer
	disc := p.discoverer
	timer := p.migrationTimer
	readCancel := p.readCancel
	p.state = StateIdle
	p.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if disc != nil {
		disc.Stop()
	}
	if ann != nil {
		ann.Stop()
	}
	if readCancel != nil {
		readCancel()
	}
	if send != nil {
		close(send)
	}
	if state == StateConnected {
		p.mu.Lock()
		conn := p.wsConn
		p.mu.Unlock()
		if conn != nil {
			conn.Close(websocket.StatusNormalClosure, "")
		}
	}
	if coord != nil {
		coord.Stop()
	}
	p.wg.Wait()
}

// serverURLFor renders a discovered host as a dialable server URL.
func serverURLFor(ip string, port int) string {
	u := url.URL{Scheme: "ws", Host: fmt.Sprintf("%s:%s", ip, strconv.Itoa(port))}
	return u.String()
}
