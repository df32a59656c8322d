package wire

import (
	"bytes"
	"testing"
)

func TestErrorFrame(t *testing.T) {
	f := ErrorFrame("bad nickname")
	want := append([]byte{byte(OpErrorFrame)}, append([]byte("bad nickname"), 0x00)...)
	if !bytes.Equal(f, want) {
		t.Fatalf("ErrorFrame = % X, want % X", f, want)
	}
}

func TestIdentifyOK(t *testing.T) {
	if got := IdentifyOK(); !bytes.Equal(got, Frame{1}) {
		t.Fatalf("IdentifyOK = % X, want [01]", got)
	}
}

func TestServerMessage(t *testing.T) {
	f := ServerMessage("hi", 255, 0, 0)
	want := append([]byte{byte(OpServerMessage)}, append([]byte("hi"), 0x00, 255, 0, 0)...)
	if !bytes.Equal(f, want) {
		t.Fatalf("ServerMessage = % X, want % X", f, want)
	}
}

func TestRelay(t *testing.T) {
	f := Relay(OpBrushSize, 7, []byte{4, 4})
	want := Frame{byte(OpBrushSize), 7, 4, 4}
	if !bytes.Equal(f, want) {
		t.Fatalf("Relay = % X, want % X", f, want)
	}
}

func TestRosterHeaderAndEntry(t *testing.T) {
	h := RosterHeader(3)
	if !bytes.Equal(h, Frame{byte(OpJoin), 3}) {
		t.Fatalf("RosterHeader = % X", h)
	}
	e := RosterEntry(9, "ant")
	want := append([]byte{9}, append([]byte("ant"), 0x00)...)
	if !bytes.Equal(e, want) {
		t.Fatalf("RosterEntry = % X, want % X", e, want)
	}
}

func TestMemberJoinedAndParted(t *testing.T) {
	j := MemberJoined(5, "bob")
	want := append([]byte{byte(OpMemberJoined), 5}, append([]byte("bob"), 0x00)...)
	if !bytes.Equal(j, want) {
		t.Fatalf("MemberJoined = % X, want % X", j, want)
	}
	p := MemberParted(5)
	if !bytes.Equal(p, Frame{byte(OpMemberParted), 5}) {
		t.Fatalf("MemberParted = % X", p)
	}
}

func TestSyncForwardAndPropsForward(t *testing.T) {
	f := SyncForward(1, 2, 3, []byte{9, 9})
	want := Frame{byte(OpSyncForward), 1, 2, 3, 9, 9}
	if !bytes.Equal(f, want) {
		t.Fatalf("SyncForward = % X, want % X", f, want)
	}
	p := SyncPropsForward(OpBrushShape, 4, 200)
	if !bytes.Equal(p, Frame{byte(OpBrushShape), 4, 200}) {
		t.Fatalf("SyncPropsForward = % X", p)
	}
}

func TestUint24RoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 255, 65535, 16777215}
	for _, n := range cases {
		b := PutUint24(n)
		got := Uint24(b[:])
		if got != n {
			t.Fatalf("Uint24(PutUint24(%d)) = %d", n, got)
		}
	}
}

func FuzzUint24RoundTrip(f *testing.F) {
	f.Add(uint32(0))
	f.Add(uint32(1))
	f.Add(uint32(16777215))
	f.Fuzz(func(t *testing.T, n uint32) {
		n &= 0xFFFFFF
		b := PutUint24(n)
		if got := Uint24(b[:]); got != n {
			t.Fatalf("round trip mismatch: put %d got %d", n, got)
		}
	})
}
