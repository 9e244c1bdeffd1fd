package room

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_CreateRoom(t *testing.T) {
	s := NewStore()
	r, err := s.CreateRoom("room-1", "dev-A", "client-A", "Alice", 0)
	if err != nil {
		t.Fatalf("CreateRoom() error: %v", err)
	}
	if r.RoomID != "room-1" || r.HostDeviceID != "dev-A" {
		t.Fatalf("unexpected room: %+v", r)
	}
	if len(r.Chat) != 0 {
		t.Error("new room should have empty chat")
	}
	if len(r.JoinCode) != 6 {
		t.Errorf("JoinCode = %q, want length 6", r.JoinCode)
	}
	if len(r.Members) != 1 || r.Members[0].Role != RoleHost {
		t.Fatalf("expected sole host member, got %+v", r.Members)
	}
}

func TestStore_JoinRoomByCode(t *testing.T) {
	s := NewStore()
	room, _ := s.CreateRoom("room-1", "dev-A", "client-A", "Alice", 0)

	joined, err := s.JoinRoomByCode(room.JoinCode, "dev-B", "client-B", "Bob")
	if err != nil {
		t.Fatalf("JoinRoomByCode() error: %v", err)
	}
	if len(joined.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(joined.Members))
	}
	if joined.Members[1].Role != RoleMember || joined.Members[1].JoinOrder != joined.Members[0].JoinOrder+1 {
		t.Errorf("unexpected second member: %+v", joined.Members[1])
	}
}

func TestStore_JoinRoomByCode_InvalidCode(t *testing.T) {
	s := NewStore()
	_, err := s.JoinRoomByCode("ZZZZZZ", "dev-B", "client-B", "Bob")
	if !errors.Is(err, ErrInvalidJoinCode) {
		t.Fatalf("err = %v, want ErrInvalidJoinCode", err)
	}
}

func TestStore_JoinRoomByCode_NameConflict(t *testing.T) {
	s := NewStore()
	room, _ := s.CreateRoom("room-1", "dev-A", "client-A", "Alice", 0)

	_, err := s.JoinRoomByCode(room.JoinCode, "dev-B", "client-B", "Alice")
	if !errors.Is(err, ErrNameConflict) {
		t.Fatalf("err = %v, want ErrNameConflict", err)
	}

	// Cached room state elsewhere should be unaffected: verify member count.
	got, _ := s.Get(room.RoomID)
	if len(got.Members) != 1 {
		t.Errorf("member count = %d, want 1 after rejected join", len(got.Members))
	}
}

func TestStore_LeaveRoom_ElectsNewHost(t *testing.T) {
	s := NewStore()
	room, _ := s.CreateRoom("room-1", "dev-A", "client-A", "Alice", 0)
	s.JoinRoomByCode(room.JoinCode, "dev-B", "client-B", "Bob")

	updated, destroyed, ok := s.LeaveRoom("dev-A")
	if !ok || destroyed {
		t.Fatalf("LeaveRoom() = (destroyed=%v, ok=%v), want (false, true)", destroyed, ok)
	}
	if updated.HostDeviceID != "dev-B" {
		t.Errorf("HostDeviceID = %q, want dev-B", updated.HostDeviceID)
	}
	for _, m := range updated.Members {
		if m.DeviceID == "dev-B" && m.Role != RoleHost {
			t.Error("dev-B should now be host")
		}
	}
}

func TestStore_LeaveRoom_DestroysWhenEmpty(t *testing.T) {
	s := NewStore()
	room, _ := s.CreateRoom("room-1", "dev-A", "client-A", "Alice", 0)

	_, destroyed, ok := s.LeaveRoom("dev-A")
	if !ok || !destroyed {
		t.Fatalf("LeaveRoom() = (destroyed=%v, ok=%v), want (true, true)", destroyed, ok)
	}
	if _, exists := s.Get(room.RoomID); exists {
		t.Error("room should no longer exist")
	}
	if _, exists := s.GetByCode(room.JoinCode); exists {
		t.Error("join code should be released")
	}
}

func TestStore_LeaveRoom_UnknownDevice(t *testing.T) {
	s := NewStore()
	_, _, ok := s.LeaveRoom("nobody")
	if ok {
		t.Error("LeaveRoom() ok = true for unknown device, want false")
	}
}

func TestStore_Kick(t *testing.T) {
	s := NewStore()
	room, _ := s.CreateRoom("room-1", "dev-A", "client-A", "Alice", 0)
	s.JoinRoomByCode(room.JoinCode, "dev-B", "client-B", "Bob")

	updated, err := s.Kick("dev-A", "dev-B")
	if err != nil {
		t.Fatalf("Kick() error: %v", err)
	}
	if len(updated.Members) != 1 {
		t.Fatalf("expected 1 member after kick, got %d", len(updated.Members))
	}
}

func TestStore_Kick_NotHost(t *testing.T) {
	s := NewStore()
	room, _ := s.CreateRoom("room-1", "dev-A", "client-A", "Alice", 0)
	s.JoinRoomByCode(room.JoinCode, "dev-B", "client-B", "Bob")

	_, err := s.Kick("dev-B", "dev-A")
	if !errors.Is(err, ErrNotHost) {
		t.Fatalf("err = %v, want ErrNotHost", err)
	}
}

func TestStore_AppendChat(t *testing.T) {
	s := NewStore()
	room, _ := s.CreateRoom("room-1", "dev-A", "client-A", "Alice", 0)

	entry, updated, err := s.AppendChat(room.RoomID, "dev-A", "hi")
	if err != nil {
		t.Fatalf("AppendChat() error: %v", err)
	}
	if entry.FromName != "Alice" || entry.Text != "hi" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if len(updated.Chat) != 1 {
		t.Fatalf("expected 1 chat entry, got %d", len(updated.Chat))
	}
}

func TestStore_AppendChat_NotInRoom(t *testing.T) {
	s := NewStore()
	room, _ := s.CreateRoom("room-1", "dev-A", "client-A", "Alice", 0)

	_, _, err := s.AppendChat(room.RoomID, "dev-ghost", "hi")
	if !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("err = %v, want ErrNotInRoom", err)
	}
}

func TestStore_AppendChat_DropsOldestOverflow(t *testing.T) {
	s := NewStore()
	room, _ := s.CreateRoom("room-1", "dev-A", "client-A", "Alice", 0)

	var last Room
	for i := 0; i < ChatCapacity+1; i++ {
		_, updated, err := s.AppendChat(room.RoomID, "dev-A", "msg")
		if err != nil {
			t.Fatalf("AppendChat() error: %v", err)
		}
		last = updated
	}
	if len(last.Chat) != ChatCapacity {
		t.Fatalf("chat length = %d, want %d", len(last.Chat), ChatCapacity)
	}
}

// TestStore_MakeSnapshot_RoundTrip checks the makeSnapshot(restore(S)) ~= S
// property: every field that identifies the room or its members must
// survive a restore, not just the ones a plain field comparison would
// catch by accident.
func TestStore_MakeSnapshot_RoundTrip(t *testing.T) {
	s := NewStore()
	room, _ := s.CreateRoom("room-1", "dev-A", "client-A", "Alice", 0)
	s.JoinRoomByCode(room.JoinCode, "dev-B", "client-B", "Bob")
	s.AppendChat(room.RoomID, "dev-A", "hello")

	snap, err := s.MakeSnapshot(room.RoomID)
	require.NoError(t, err)

	restored := Restore(snap)
	resnap := MakeSnapshot(restored)

	require.Len(t, resnap.Room.Members, len(snap.Room.Members))
	require.Equal(t, snap.Room.RoomID, resnap.Room.RoomID)
	require.Equal(t, snap.Room.JoinCode, resnap.Room.JoinCode)
	require.Equal(t, snap.Room.HostDeviceID, resnap.Room.HostDeviceID)
	require.Equal(t, snap.Room.Chat, resnap.Room.Chat)
	require.Equal(t, snap.DeviceToClientID, resnap.DeviceToClientID)
	require.Equal(t, snap.DeviceToName, resnap.DeviceToName)
}

func TestStore_RestoreRoom_ThenUpdateClientID(t *testing.T) {
	s := NewStore()
	room, _ := s.CreateRoom("room-1", "dev-A", "client-A-old", "Alice", 0)
	snap, _ := s.MakeSnapshot(room.RoomID)

	fresh := NewStore()
	restored, err := fresh.RestoreRoom(snap)
	if err != nil {
		t.Fatalf("RestoreRoom() error: %v", err)
	}
	if restored.RoomID != room.RoomID || restored.JoinCode != room.JoinCode {
		t.Fatal("restored room identity mismatch")
	}

	updated, err := fresh.UpdateMemberClientID("dev-A", "client-A-new")
	if err != nil {
		t.Fatalf("UpdateMemberClientID() error: %v", err)
	}
	if updated.Members[0].ClientID != "client-A-new" {
		t.Errorf("ClientID = %q, want client-A-new", updated.Members[0].ClientID)
	}
}

func TestStore_ConcurrentCreate(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateRoom(deviceLikeID(i), deviceLikeID(i), deviceLikeID(i), "Player", 0)
			if err != nil {
				t.Errorf("CreateRoom() error: %v", err)
			}
		}(i)
	}
	wg.Wait()
}

func deviceLikeID(i int) string {
	return "room-" + string(rune('A'+i%26)) + string(rune('0'+i/26))
}

func TestInvariant_UniqueJoinOrderWithinRoom(t *testing.T) {
	s := NewStore()
	room, _ := s.CreateRoom("room-1", "dev-A", "client-A", "Alice", 0)
	room, _ = s.JoinRoomByCode(room.JoinCode, "dev-B", "client-B", "Bob")
	room, _ = s.JoinRoomByCode(room.JoinCode, "dev-C", "client-C", "Carol")

	seen := make(map[int]bool)
	for _, m := range room.Members {
		if seen[m.JoinOrder] {
			t.Fatalf("duplicate joinOrder %d", m.JoinOrder)
		}
		seen[m.JoinOrder] = true
	}
}

func TestInvariant_ExactlyOneHost(t *testing.T) {
	s := NewStore()
	room, _ := s.CreateRoom("room-1", "dev-A", "client-A", "Alice", 0)
	room, _ = s.JoinRoomByCode(room.JoinCode, "dev-B", "client-B", "Bob")

	hosts := 0
	for _, m := range room.Members {
		if m.Role == RoleHost {
			hosts++
			if m.DeviceID != room.HostDeviceID {
				t.Errorf("host member deviceId %q != room.HostDeviceID %q", m.DeviceID, room.HostDeviceID)
			}
		}
	}
	if hosts != 1 {
		t.Errorf("host count = %d, want 1", hosts)
	}
}
