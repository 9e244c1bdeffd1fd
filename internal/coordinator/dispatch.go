package coordinator

import (
	"errors"
	"log"
	"time"

	"github.com/VanshMandot/LanForge/internal/identity"
	"github.com/VanshMandot/LanForge/internal/room"
	"github.com/VanshMandot/LanForge/internal/wire"
)

// dispatch routes one decoded frame to its handler. Every per-request
// failure is answered with an ERROR frame to the offender; the
// coordinator itself never aborts on a bad request.
func (c *Coordinator) dispatch(cn *connection, f wire.Frame) {
	switch f.Type {
	case wire.TypePing:
		c.handlePing(cn, f)
	case wire.TypeHello:
		c.handleHello(cn, f)
	case wire.TypeCreateRoom:
		c.requireHello(cn, f, c.handleCreateRoom)
	case wire.TypeJoinRoom:
		c.requireHello(cn, f, c.handleJoinRoom)
	case wire.TypeLeaveRoom:
		c.requireHello(cn, f, c.handleLeaveRoom)
	case wire.TypeChat:
		c.requireHello(cn, f, c.handleChat)
	case wire.TypeKick:
		c.requireHello(cn, f, c.handleKick)
	case wire.TypePong:
		// Heartbeat reply: liveness is already refreshed by readLoop's
		// cn.touch() on every inbound frame, nothing further to do.
	default:
		c.sendError(cn, f.RequestID, "Unsupported message type", "")
	}
}

// requireHello enforces the "require prior HELLO" rule shared by
// CREATE_ROOM, JOIN_ROOM, LEAVE_ROOM, CHAT and KICK.
func (c *Coordinator) requireHello(cn *connection, f wire.Frame, handle func(*connection, wire.Frame)) {
	cn.mu.Lock()
	hasIdentity := cn.deviceID != ""
	cn.mu.Unlock()
	if !hasIdentity {
		c.sendError(cn, f.RequestID, "Must send HELLO first", "")
		return
	}
	handle(cn, f)
}

func (c *Coordinator) handlePing(cn *connection, f wire.Frame) {
	cn.enqueue(mustFrame(wire.New(wire.TypePong, f.RequestID, wire.ClientIDServer, wire.PingPongPayload{Timestamp: time.Now().UnixMilli()})))
}

func (c *Coordinator) handleHello(cn *connection, f wire.Frame) {
	var p wire.HelloPayload
	if err := wire.DecodePayload(f, &p); err != nil {
		c.sendError(cn, f.RequestID, "Malformed HELLO payload", "")
		return
	}

	// A device reconnecting after restore holds a provisional clientId in
	// the snapshot; rebind it to this connection's freshly assigned one.
	if _, err := c.store.UpdateMemberClientID(p.DeviceID, cn.clientID); err == nil {
		log.Printf("[coordinator] %s reconnected as %s\n", p.DeviceID, cn.clientID)
	}

	cn.setIdentity(p.DeviceID, p.Name)
	cn.enqueue(mustFrame(wire.New(wire.TypeWelcome, f.RequestID, wire.ClientIDServer, wire.WelcomePayload{ClientID: cn.clientID})))
}

func (c *Coordinator) handleCreateRoom(cn *connection, f wire.Frame) {
	var p wire.CreateRoomPayload
	_ = wire.DecodePayload(f, &p) // payload is optional; ignore absence

	cn.mu.Lock()
	deviceID, name := cn.deviceID, cn.name
	cn.mu.Unlock()

	r, err := c.store.CreateRoom(identity.NewRoomID(), deviceID, cn.clientID, name, p.MaxPlayers)
	if err != nil {
		c.sendError(cn, f.RequestID, err.Error(), "")
		return
	}
	c.broadcastSnapshot(r.RoomID)
}

func (c *Coordinator) handleJoinRoom(cn *connection, f wire.Frame) {
	var p wire.JoinRoomPayload
	if err := wire.DecodePayload(f, &p); err != nil {
		c.sendError(cn, f.RequestID, "Malformed JOIN_ROOM payload", "")
		return
	}

	cn.mu.Lock()
	deviceID, name := cn.deviceID, cn.name
	cn.mu.Unlock()

	r, err := c.store.JoinRoomByCode(p.JoinCode, deviceID, cn.clientID, name)
	if err != nil {
		c.sendError(cn, f.RequestID, errorReason(err), errorCode(err))
		return
	}
	c.broadcastSnapshot(r.RoomID)
}

func (c *Coordinator) handleLeaveRoom(cn *connection, f wire.Frame) {
	cn.mu.Lock()
	deviceID := cn.deviceID
	cn.mu.Unlock()

	r, destroyed, ok := c.store.LeaveRoom(deviceID)
	if !ok || destroyed {
		return
	}
	c.broadcastSnapshot(r.RoomID)
}

func (c *Coordinator) handleChat(cn *connection, f wire.Frame) {
	var p wire.ChatInPayload
	if err := wire.DecodePayload(f, &p); err != nil {
		c.sendError(cn, f.RequestID, "Malformed CHAT payload", "")
		return
	}

	cn.mu.Lock()
	deviceID := cn.deviceID
	cn.mu.Unlock()

	roomID, ok := c.store.RoomIDFor(deviceID)
	if !ok {
		c.sendError(cn, f.RequestID, errorReason(room.ErrNotInRoom), errorCode(room.ErrNotInRoom))
		return
	}

	entry, r, err := c.store.AppendChat(roomID, deviceID, p.Text)
	if err != nil {
		c.sendError(cn, f.RequestID, errorReason(err), errorCode(err))
		return
	}

	chatFrame := mustFrame(wire.New(wire.TypeChat, identity.NewRequestID(), wire.ClientIDServer, wire.ChatBroadcastPayload{
		FromDeviceID: entry.FromDeviceID,
		FromName:     entry.FromName,
		Text:         entry.Text,
		Timestamp:    entry.TimestampMs,
	}))
	for _, member := range c.connectionsInRoom(r.RoomID) {
		member.enqueue(chatFrame)
	}
	c.broadcastSnapshot(r.RoomID)
}

func (c *Coordinator) handleKick(cn *connection, f wire.Frame) {
	var p wire.KickPayload
	if err := wire.DecodePayload(f, &p); err != nil {
		c.sendError(cn, f.RequestID, "Malformed KICK payload", "")
		return
	}

	cn.mu.Lock()
	hostDeviceID := cn.deviceID
	cn.mu.Unlock()

	r, err := c.store.Kick(hostDeviceID, p.TargetDeviceID)
	if err != nil {
		c.sendError(cn, f.RequestID, errorReason(err), errorCode(err))
		return
	}

	if target := c.connectionByDevice(p.TargetDeviceID); target != nil {
		target.enqueue(mustFrame(wire.New(wire.TypeKicked, identity.NewRequestID(), wire.ClientIDServer, wire.KickedPayload{Reason: "Removed by host"})))
	}
	c.broadcastSnapshot(r.RoomID)
}

func (c *Coordinator) connectionByDevice(deviceID string) *connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cn := range c.conns {
		if cn.deviceID == deviceID {
			return cn
		}
	}
	return nil
}

func (c *Coordinator) sendError(cn *connection, requestID, reason, code string) {
	cn.enqueue(mustFrame(wire.New(wire.TypeError, requestID, wire.ClientIDServer, wire.ErrorPayload{Reason: reason, Code: code})))
}

// errorReason renders a room package sentinel error as the short,
// user-facing string an ERROR frame carries.
func errorReason(err error) string {
	switch {
	case errors.Is(err, room.ErrInvalidJoinCode):
		return "Invalid join code"
	case errors.Is(err, room.ErrNameConflict):
		return "Name already in use"
	case errors.Is(err, room.ErrNotHost):
		return "Not host"
	case errors.Is(err, room.ErrNotInRoom):
		return "Not in room"
	case errors.Is(err, room.ErrRoomFull):
		return "Room full"
	default:
		return err.Error()
	}
}

// errorCode renders a room package sentinel error as the machine-readable
// code an ERROR frame's optional Code field carries.
func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrInvalidJoinCode):
		return "INVALID_JOIN_CODE"
	case errors.Is(err, room.ErrNameConflict):
		return "NAME_CONFLICT"
	case errors.Is(err, room.ErrNotHost):
		return "NOT_HOST"
	case errors.Is(err, room.ErrNotInRoom):
		return "NOT_IN_ROOM"
	case errors.Is(err, room.ErrRoomFull):
		return "ROOM_FULL"
	default:
		return ""
	}
}

// mustFrame panics on a construction error, which only wire.New's own
// json.Marshal call can raise — and every payload type here is a plain
// struct of strings and numbers, so it never fails in practice.
func mustFrame(f wire.Frame, err error) wire.Frame {
	if err != nil {
		log.Panicf("coordinator: building frame: %v", err)
	}
	return f
}
