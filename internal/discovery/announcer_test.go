package discovery

import "testing"

func TestAnnouncer_RefusesIncompleteAnnouncement(t *testing.T) {
	a := NewAnnouncer("255.255.255.255", 42069)

	cases := []Announcement{
		{RoomID: "", JoinCode: "X7QK2P", HostClientID: "c1", Port: 8080},
		{RoomID: "room-1", JoinCode: "", HostClientID: "c1", Port: 8080},
		{RoomID: "room-1", JoinCode: "X7QK2P", HostClientID: "", Port: 8080},
	}
	for _, c := range cases {
		if err := a.Start(c); err != ErrAnnouncementIncomplete {
			t.Errorf("Start(%+v) error = %v, want ErrAnnouncementIncomplete", c, err)
		}
		if a.Running() {
			t.Errorf("Start(%+v) left announcer running", c)
		}
	}
}

func TestAnnouncer_DoubleStopIsNoop(t *testing.T) {
	a := NewAnnouncer("255.255.255.255", 42069)
	a.Stop()
	a.Stop()
	if a.Running() {
		t.Error("Running() = true after Stop on never-started announcer")
	}
}
