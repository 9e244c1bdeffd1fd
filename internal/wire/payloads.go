package wire

import "encoding/json"

// HelloPayload — C→S, identifies the connecting device.
type HelloPayload struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
}

// WelcomePayload — S→C, assigns the connection its ephemeral client id.
type WelcomePayload struct {
	ClientID string `json:"clientId"`
}

// PingPongPayload — carries a timestamp both directions for PING/PONG.
type PingPongPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// ErrorPayload — S→C, reports a per-request failure.
type ErrorPayload struct {
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"`
}

// CreateRoomPayload — C→S, optional room creation hints.
type CreateRoomPayload struct {
	RoomName   string `json:"roomName,omitempty"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
}

// JoinRoomPayload — C→S, the join code the client is presenting.
type JoinRoomPayload struct {
	JoinCode string `json:"joinCode"`
}

// ChatInPayload — C→S, an outgoing chat message.
type ChatInPayload struct {
	Text string `json:"text"`
}

// ChatBroadcastPayload — S→C, a chat message relayed to the room.
type ChatBroadcastPayload struct {
	FromDeviceID string `json:"fromDeviceId"`
	FromName     string `json:"fromName"`
	Text         string `json:"text"`
	Timestamp    int64  `json:"timestamp"`
}

// KickPayload — C→S, the host requesting a member's removal.
type KickPayload struct {
	TargetDeviceID string `json:"targetDeviceId"`
}

// KickedPayload — S→C, notifies the removed member why.
type KickedPayload struct {
	Reason string `json:"reason"`
}

// SnapshotPayload wraps a room snapshot for the STATE_SNAPSHOT frame.
// It is deliberately generic (json.RawMessage) so this package does not
// import internal/room: the coordinator marshals a room.Snapshot into
// Snapshot, and the peer unmarshals Snapshot back into a room.Snapshot.
type SnapshotPayload struct {
	Snapshot RawSnapshot `json:"snapshot"`
}

// RawSnapshot is an opaque, pre-marshaled snapshot payload embedded as-is.
type RawSnapshot = json.RawMessage
