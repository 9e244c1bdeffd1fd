// Package discovery implements LanForge's link-local host announcement
// and discovery: connectionless UDP broadcast of coordinator presence
// and reception of the same. Announcer and Discoverer are instance-owned
// objects with explicit start/stop lifecycles, since more than one of
// each can exist in a single test process.
package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// Magic is the first token of every announcement datagram.
const Magic = "LANFORGE_HOST"

// LinkLocalBroadcast is the limited broadcast address announcements are
// sent to; no per-interface subnet broadcast address is computed.
const LinkLocalBroadcast = "255.255.255.255"

// Announcement is the parsed payload of one discovery datagram.
type Announcement struct {
	RoomID       string
	JoinCode     string
	HostClientID string
	Port         int
}

// Encode renders an Announcement as the wire payload:
// "LANFORGE_HOST <roomId> <joinCode> <hostClientId> <port>".
func Encode(a Announcement) []byte {
	return []byte(fmt.Sprintf("%s %s %s %s %d", Magic, a.RoomID, a.JoinCode, a.HostClientID, a.Port))
}

// errNotAnAnnouncement means the first token wasn't Magic.
var errNotAnAnnouncement = fmt.Errorf("discovery: payload does not start with %s", Magic)

// errShortPayload means the datagram didn't carry enough space-delimited
// fields.
var errShortPayload = fmt.Errorf("discovery: payload has too few fields")

// Decode parses a datagram payload. It rejects payloads whose first token
// isn't Magic, that don't carry all four fields, or whose port field
// isn't a parseable integer.
func Decode(payload []byte) (Announcement, error) {
	fields := strings.Fields(string(payload))
	if len(fields) < 5 {
		if len(fields) == 0 || fields[0] != Magic {
			return Announcement{}, errNotAnAnnouncement
		}
		return Announcement{}, errShortPayload
	}
	if fields[0] != Magic {
		return Announcement{}, errNotAnAnnouncement
	}

	port, err := strconv.Atoi(fields[4])
	if err != nil {
		return Announcement{}, fmt.Errorf("discovery: unparseable port %q: %w", fields[4], err)
	}

	return Announcement{
		RoomID:       fields[1],
		JoinCode:     fields[2],
		HostClientID: fields[3],
		Port:         port,
	}, nil
}
