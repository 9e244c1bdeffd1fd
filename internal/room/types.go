// Package room implements LanForge's authoritative room model (component
// C3): the replicated room state, its invariants, the bounded chat
// buffer, join-code allocation, and deterministic host election. The
// coordinator has no single serialization point: each connection's read
// loop calls the Store directly from its own goroutine, and Store's mutex
// is what serializes those calls (and calls made from tests).
package room

// Role distinguishes the room's coordinator-operator from everyone else.
type Role string

const (
	RoleHost   Role = "host"
	RoleMember Role = "member"
)

// Member is one logical participant in a room.
type Member struct {
	DeviceID  string `json:"deviceId"`
	ClientID  string `json:"clientId"`
	Name      string `json:"name"`
	JoinOrder int    `json:"joinOrder"`
	Role      Role   `json:"role"`
}

// ChatEntry is one message in a room's bounded chat history.
type ChatEntry struct {
	FromDeviceID string `json:"fromDeviceId"`
	FromName     string `json:"fromName"`
	Text         string `json:"text"`
	TimestampMs  int64  `json:"timestamp"`
}

// ChatCapacity bounds the FIFO chat buffer; the oldest entry is dropped on
// overflow.
const ChatCapacity = 50

// Room is the authoritative, in-memory state for one game session.
type Room struct {
	RoomID       string      `json:"roomId"`
	JoinCode     string      `json:"joinCode"`
	HostDeviceID string      `json:"hostDeviceId"`
	Members      []Member    `json:"members"`
	Chat         []ChatEntry `json:"chat"`
	MaxPlayers   int         `json:"maxPlayers,omitempty"` // 0 = unlimited
}

// Snapshot is the complete replicated datum broadcast on every observable
// mutation and used to seed a restored coordinator. The two lookup tables
// are derived from Members by MakeSnapshot. A peer reads them as received
// (its host clientId comes from DeviceToClientID); Restore ignores them,
// and the next MakeSnapshot rebuilds them from the member list.
type Snapshot struct {
	Room              Room              `json:"room"`
	DeviceToClientID  map[string]string `json:"deviceToClientId"`
	DeviceToName      map[string]string `json:"deviceToName"`
}

// deepCopyRoom returns a Room whose slices share no backing array with r,
// so callers cannot mutate Store-internal state through a returned value.
func deepCopyRoom(r Room) Room {
	members := make([]Member, len(r.Members))
	copy(members, r.Members)
	chat := make([]ChatEntry, len(r.Chat))
	copy(chat, r.Chat)
	return Room{
		RoomID:       r.RoomID,
		JoinCode:     r.JoinCode,
		HostDeviceID: r.HostDeviceID,
		Members:      members,
		Chat:         chat,
		MaxPlayers:   r.MaxPlayers,
	}
}

// buildLookups derives the two identity tables from a room's member list.
func buildLookups(r Room) (map[string]string, map[string]string) {
	toClient := make(map[string]string, len(r.Members))
	toName := make(map[string]string, len(r.Members))
	for _, m := range r.Members {
		toClient[m.DeviceID] = m.ClientID
		toName[m.DeviceID] = m.Name
	}
	return toClient, toName
}

// MakeSnapshot returns a deep copy of r as a Snapshot, rebuilding the
// lookup tables from its member list so they always exactly mirror it
// (invariant 6).
func MakeSnapshot(r Room) Snapshot {
	rc := deepCopyRoom(r)
	toClient, toName := buildLookups(rc)
	return Snapshot{Room: rc, DeviceToClientID: toClient, DeviceToName: toName}
}

// Restore rebuilds a Room from a Snapshot, ignoring its lookup tables
// (receivers treat the member list as authoritative and rebuild the
// lookups themselves).
func Restore(s Snapshot) Room {
	return deepCopyRoom(s.Room)
}
