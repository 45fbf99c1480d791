package udptracker

import (
	"encoding/binary"
	"testing"
)

func TestNewTransactionID(t *testing.T) {
	seen := make(map[int32]struct{})
	for i := 0; i < 100; i++ {
		seen[newTransactionID()] = struct{}{}
	}
	// Collisions among 100 random 32-bit values are vanishingly rare.
	if len(seen) != 100 {
		t.Fatal("transaction ids repeat")
	}
}

func TestMatchTransaction(t *testing.T) {
	msg := make([]byte, 16)
	raw := uint32(0xDEADBEEF)
	binary.BigEndian.PutUint32(msg[4:8], raw)
	id := int32(raw)
	if !matchTransaction(msg, id) {
		t.Fatal("id at offset 4 must match")
	}
	if matchTransaction(msg, id+1) {
		t.Fatal("different id must not match")
	}
	for i := 0; i < 8; i++ {
		if matchTransaction(msg[:i], id) {
			t.Fatalf("datagram of %d bytes must never match", i)
		}
	}
}
