package room

import (
	"fmt"
	"sync"
	"time"
)

// maxCodeAttempts bounds the rejection-sampling loop for a fresh join
// code so a saturated code space fails loudly instead of spinning.
const maxCodeAttempts = 10

// Store holds every room live on one coordinator. Every exported method
// takes its own lock, which makes Store safe to drive directly from
// tests and from the coordinator, whose per-connection read loops call
// it concurrently. A sequence of calls is not atomic as a whole.
type Store struct {
	mu            sync.Mutex
	roomsByID     map[string]*Room
	idByCode      map[string]string
	roomByDevice  map[string]string // deviceId -> roomId
	nextJoinOrder int               // coordinator-wide counter, never reused
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		roomsByID:    make(map[string]*Room),
		idByCode:     make(map[string]string),
		roomByDevice: make(map[string]string),
	}
}

// CreateRoom allocates a fresh unique join code and creates a room with
// hostDeviceID as its sole member and host.
func (s *Store) CreateRoom(roomID, hostDeviceID, hostClientID, hostName string, maxPlayers int) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.allocateCode()
	if err != nil {
		return Room{}, err
	}

	order := s.nextJoinOrder
	s.nextJoinOrder++

	r := &Room{
		RoomID:       roomID,
		JoinCode:     code,
		HostDeviceID: hostDeviceID,
		MaxPlayers:   maxPlayers,
		Members: []Member{{
			DeviceID:  hostDeviceID,
			ClientID:  hostClientID,
			Name:      hostName,
			JoinOrder: order,
			Role:      RoleHost,
		}},
	}
	s.roomsByID[roomID] = r
	s.idByCode[code] = roomID
	s.roomByDevice[hostDeviceID] = roomID
	return deepCopyRoom(*r), nil
}

// allocateCode must be called with s.mu held.
func (s *Store) allocateCode() (string, error) {
	for range maxCodeAttempts {
		code, err := generateCode()
		if err != nil {
			return "", fmt.Errorf("generating join code: %w", err)
		}
		if _, exists := s.idByCode[code]; !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to allocate a unique join code after %d attempts", maxCodeAttempts)
}

// JoinRoomByCode adds a new member to the room identified by code.
func (s *Store) JoinRoomByCode(code, deviceID, clientID, name string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, ok := s.idByCode[code]
	if !ok {
		return Room{}, ErrInvalidJoinCode
	}
	r := s.roomsByID[roomID]

	for _, m := range r.Members {
		if m.Name == name {
			return Room{}, ErrNameConflict
		}
	}
	if r.MaxPlayers > 0 && len(r.Members) >= r.MaxPlayers {
		return Room{}, ErrRoomFull
	}

	order := s.nextJoinOrder
	s.nextJoinOrder++

	r.Members = append(r.Members, Member{
		DeviceID:  deviceID,
		ClientID:  clientID,
		Name:      name,
		JoinOrder: order,
		Role:      RoleMember,
	})
	s.roomByDevice[deviceID] = roomID
	return deepCopyRoom(*r), nil
}

// LeaveRoom removes deviceID from whatever room it currently belongs to.
// If the room becomes empty it is destroyed (destroyed=true, room is the
// zero value). If the leaver was host, a new host is elected and role
// fields are updated atomically with the removal. ok is false if deviceID
// was not in any room.
func (s *Store) LeaveRoom(deviceID string) (r Room, destroyed bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, in := s.roomByDevice[deviceID]
	if !in {
		return Room{}, false, false
	}
	room := s.roomsByID[roomID]
	delete(s.roomByDevice, deviceID)

	remaining := make([]Member, 0, len(room.Members)-1)
	wasHost := false
	for _, m := range room.Members {
		if m.DeviceID == deviceID {
			wasHost = m.Role == RoleHost
			continue
		}
		remaining = append(remaining, m)
	}
	room.Members = remaining

	if len(room.Members) == 0 {
		delete(s.roomsByID, roomID)
		delete(s.idByCode, room.JoinCode)
		return Room{}, true, true
	}

	if wasHost {
		winner, found := Elect(room.Members)
		if found {
			room.HostDeviceID = winner
			for i := range room.Members {
				if room.Members[i].DeviceID == winner {
					room.Members[i].Role = RoleHost
				} else {
					room.Members[i].Role = RoleMember
				}
			}
		}
	}

	return deepCopyRoom(*room), false, true
}

// Kick removes targetDeviceID from the room hostDeviceID currently hosts.
// Fails with ErrNotHost if hostDeviceID is in no room or is not the host
// of its room, and with ErrNotInRoom if the target is not in that room.
func (s *Store) Kick(hostDeviceID, targetDeviceID string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hostRoomID, ok := s.roomByDevice[hostDeviceID]
	if !ok {
		return Room{}, ErrNotHost
	}
	room := s.roomsByID[hostRoomID]
	if room.HostDeviceID != hostDeviceID {
		return Room{}, ErrNotHost
	}

	targetRoomID, ok := s.roomByDevice[targetDeviceID]
	if !ok || targetRoomID != hostRoomID {
		return Room{}, ErrNotInRoom
	}

	remaining := make([]Member, 0, len(room.Members)-1)
	for _, m := range room.Members {
		if m.DeviceID == targetDeviceID {
			continue
		}
		remaining = append(remaining, m)
	}
	room.Members = remaining
	delete(s.roomByDevice, targetDeviceID)

	return deepCopyRoom(*room), nil
}

// AppendChat records a chat message from fromDeviceID in roomID, dropping
// the oldest entry if the buffer is already at ChatCapacity.
func (s *Store) AppendChat(roomID, fromDeviceID, text string) (ChatEntry, Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.roomsByID[roomID]
	if !ok {
		return ChatEntry{}, Room{}, ErrNotInRoom
	}

	var fromName string
	member := false
	for _, m := range room.Members {
		if m.DeviceID == fromDeviceID {
			fromName = m.Name
			member = true
			break
		}
	}
	if !member {
		return ChatEntry{}, Room{}, ErrNotInRoom
	}

	entry := ChatEntry{
		FromDeviceID: fromDeviceID,
		FromName:     fromName,
		Text:         text,
		TimestampMs:  time.Now().UnixMilli(),
	}
	room.Chat = append(room.Chat, entry)
	if len(room.Chat) > ChatCapacity {
		room.Chat = room.Chat[len(room.Chat)-ChatCapacity:]
	}

	return entry, deepCopyRoom(*room), nil
}

// MakeSnapshot returns a deep-copy snapshot of the named room.
func (s *Store) MakeSnapshot(roomID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.roomsByID[roomID]
	if !ok {
		return Snapshot{}, fmt.Errorf("room: no such room %q", roomID)
	}
	return MakeSnapshot(*room), nil
}

// Get returns the room by id.
func (s *Store) Get(roomID string) (Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.roomsByID[roomID]
	if !ok {
		return Room{}, false
	}
	return deepCopyRoom(*room), true
}

// GetByCode returns the room by join code.
func (s *Store) GetByCode(code string) (Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roomID, ok := s.idByCode[code]
	if !ok {
		return Room{}, false
	}
	return deepCopyRoom(*s.roomsByID[roomID]), true
}

// RestoreRoom installs a room from a prior snapshot, preserving its
// identity, membership and chat history exactly. The coordinator-wide
// join order counter is advanced past every restored joinOrder so
// newcomers never collide with restored members.
func (s *Store) RestoreRoom(snap Snapshot) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := Restore(snap)
	if _, exists := s.roomsByID[r.RoomID]; exists {
		return Room{}, fmt.Errorf("room: %q already exists", r.RoomID)
	}
	if _, exists := s.idByCode[r.JoinCode]; exists {
		return Room{}, fmt.Errorf("room: join code %q already in use", r.JoinCode)
	}

	room := r
	s.roomsByID[room.RoomID] = &room
	s.idByCode[room.JoinCode] = room.RoomID
	for _, m := range room.Members {
		s.roomByDevice[m.DeviceID] = room.RoomID
		if m.JoinOrder >= s.nextJoinOrder {
			s.nextJoinOrder = m.JoinOrder + 1
		}
	}
	return deepCopyRoom(room), nil
}

// UpdateMemberClientID rebinds deviceID's clientId, used when a restored
// member's provisional clientId is replaced on reconnect.
func (s *Store) UpdateMemberClientID(deviceID, newClientID string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, ok := s.roomByDevice[deviceID]
	if !ok {
		return Room{}, ErrNotInRoom
	}
	room := s.roomsByID[roomID]
	for i := range room.Members {
		if room.Members[i].DeviceID == deviceID {
			room.Members[i].ClientID = newClientID
			return deepCopyRoom(*room), nil
		}
	}
	return Room{}, ErrNotInRoom
}

// RoomIDFor returns the room a device currently belongs to, if any.
func (s *Store) RoomIDFor(deviceID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.roomByDevice[deviceID]
	return id, ok
}
