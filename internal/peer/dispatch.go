package peer

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/coder/websocket"

	"github.com/VanshMandot/LanForge/internal/discovery"
	"github.com/VanshMandot/LanForge/internal/room"
	"github.com/VanshMandot/LanForge/internal/wire"
)

// dispatch routes one decoded frame from the coordinator to its handler.
func (p *Peer) dispatch(f wire.Frame) {
	switch f.Type {
	case wire.TypeWelcome:
		p.handleWelcome(f)
	case wire.TypeStateSnapshot:
		p.handleSnapshot(f)
	case wire.TypeChat:
		p.handleChat(f)
	case wire.TypePing:
		p.handlePing(f)
	case wire.TypeKicked:
		p.handleKicked(f)
	case wire.TypeError:
		p.handleError(f)
	default:
		log.Printf("[peer] ignoring unknown frame type %s\n", f.Type)
	}
}

func (p *Peer) handleWelcome(f wire.Frame) {
	var payload wire.WelcomePayload
	if err := wire.DecodePayload(f, &payload); err != nil {
		log.Printf("[peer] malformed WELCOME: %v\n", err)
		return
	}
	p.mu.Lock()
	p.clientID = payload.ClientID
	p.mu.Unlock()
}

func (p *Peer) handleSnapshot(f wire.Frame) {
	var payload wire.SnapshotPayload
	if err := wire.DecodePayload(f, &payload); err != nil {
		log.Printf("[peer] malformed STATE_SNAPSHOT: %v\n", err)
		return
	}
	var snap room.Snapshot
	if err := json.Unmarshal(payload.Snapshot, &snap); err != nil {
		log.Printf("[peer] unmarshaling snapshot: %v\n", err)
		return
	}

	p.mu.Lock()
	p.cachedSnapshot = &snap
	p.roomID = snap.Room.RoomID
	p.joinCode = snap.Room.JoinCode
	p.hostClientID = snap.DeviceToClientID[snap.Room.HostDeviceID]
	elected := snap.Room.HostDeviceID == p.deviceID
	alreadyAnnouncing := p.announcer != nil && p.announcer.Running()
	p.mu.Unlock()

	p.Events.Publish(Event{Kind: EventSnapshotUpdated})

	if elected && !alreadyAnnouncing {
		p.startAnnouncing(snap)
	}
}

func (p *Peer) startAnnouncing(snap room.Snapshot) {
	port, err := strconv.Atoi(p.cfg.CoordinatorPort)
	if err != nil {
		log.Printf("[peer] cannot announce, bad coordinator port %q: %v\n", p.cfg.CoordinatorPort, err)
		return
	}
	ann := discovery.NewAnnouncer(discovery.LinkLocalBroadcast, p.cfg.DiscoveryPort)
	if err := ann.Start(discovery.Announcement{
		RoomID:       snap.Room.RoomID,
		JoinCode:     snap.Room.JoinCode,
		HostClientID: p.currentClientID(),
		Port:         port,
	}); err != nil {
		log.Printf("[peer] starting announcer: %v\n", err)
		return
	}
	p.mu.Lock()
	p.announcer = ann
	p.mu.Unlock()
}

func (p *Peer) handleChat(f wire.Frame) {
	var payload wire.ChatBroadcastPayload
	if err := wire.DecodePayload(f, &payload); err != nil {
		log.Printf("[peer] malformed CHAT: %v\n", err)
		return
	}
	p.Events.Publish(Event{Kind: EventChat, Text: payload.FromName + ": " + payload.Text})
}

func (p *Peer) handlePing(f wire.Frame) {
	pong, err := wire.New(wire.TypePong, f.RequestID, p.currentClientID(), wire.PingPongPayload{Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return
	}
	p.enqueue(pong)
}

func (p *Peer) handleKicked(f wire.Frame) {
	var payload wire.KickedPayload
	_ = wire.DecodePayload(f, &payload)
	log.Printf("[peer] kicked: %s\n", payload.Reason)
	p.Events.Publish(Event{Kind: EventKicked, Text: payload.Reason})

	p.mu.Lock()
	conn := p.wsConn
	p.mu.Unlock()
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "kicked")
	}
}

func (p *Peer) handleError(f wire.Frame) {
	var payload wire.ErrorPayload
	if err := wire.DecodePayload(f, &payload); err != nil {
		log.Printf("[peer] malformed ERROR: %v\n", err)
		return
	}
	p.Events.Publish(Event{Kind: EventError, Text: payload.Reason})
}
