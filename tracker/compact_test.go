package tracker

import (
	"testing"
)

func TestCompactPeer(t *testing.T) {
	cp := CompactPeer{
		IP:   [4]byte{1, 2, 3, 4},
		Port: 5,
	}
	b, err := cp.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	var cp2 CompactPeer
	err = cp2.UnmarshalBinary(b)
	if err != nil {
		t.Fatal(err)
	}
	if cp != cp2 {
		t.FailNow()
	}
}

func TestDecodePeersCompact(t *testing.T) {
	b := []byte{
		1, 2, 3, 4, 0x1f, 0x90,
		5, 6, 7, 8, 0x00, 0x50,
	}
	addrs, err := DecodePeersCompact(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(addrs) != 2 {
		t.Fatalf("got %d addrs", len(addrs))
	}
	if addrs[0].String() != "1.2.3.4:8080" {
		t.Error(addrs[0].String())
	}
	if addrs[1].String() != "5.6.7.8:80" {
		t.Error(addrs[1].String())
	}
	_, err = DecodePeersCompact(b[:7])
	if err != ErrInvalidPeerList {
		t.Fatal("misaligned list must be rejected")
	}
}

func TestDecodePeersCompact6(t *testing.T) {
	b := make([]byte, 18)
	b[15] = 1 // ::1
	b[16] = 0x1f
	b[17] = 0x90
	addrs, err := DecodePeersCompact6(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(addrs) != 1 {
		t.Fatalf("got %d addrs", len(addrs))
	}
	if addrs[0].String() != "[::1]:8080" {
		t.Error(addrs[0].String())
	}
	_, err = DecodePeersCompact6(b[:17])
	if err != ErrInvalidPeerList {
		t.Fatal("misaligned list must be rejected")
	}
}
