package discovery

import "testing"

func TestEncodeDecode_RoundTrip(t *testing.T) {
	a := Announcement{RoomID: "room-1", JoinCode: "X7QK2P", HostClientID: "client-A", Port: 8080}
	decoded, err := Decode(Encode(a))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if decoded != a {
		t.Errorf("Decode(Encode(a)) = %+v, want %+v", decoded, a)
	}
}

func TestDecode_WrongMagic(t *testing.T) {
	_, err := Decode([]byte("SOMETHING_ELSE room-1 X7QK2P client-A 8080"))
	if err == nil {
		t.Fatal("Decode() error = nil, want error")
	}
}

func TestDecode_ShortPayload(t *testing.T) {
	_, err := Decode([]byte("LANFORGE_HOST room-1 X7QK2P"))
	if err == nil {
		t.Fatal("Decode() error = nil, want error")
	}
}

func TestDecode_UnparseablePort(t *testing.T) {
	_, err := Decode([]byte("LANFORGE_HOST room-1 X7QK2P client-A notaport"))
	if err == nil {
		t.Fatal("Decode() error = nil, want error")
	}
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode([]byte(""))
	if err == nil {
		t.Fatal("Decode() error = nil, want error")
	}
}
