package udptracker

import (
	"crypto/rand"
	"encoding/binary"
)

// newTransactionID returns 4 random bytes as an int32. The bytes come from
// a cryptographic source; ids must not be guessable by off-path senders.
func newTransactionID() int32 {
	var b [4]byte
	_, err := rand.Read(b[:])
	if err != nil {
		panic(err)
	}
	return int32(binary.BigEndian.Uint32(b[:]))
}

// matchTransaction reports whether msg is a reply to the transaction with
// the given ID. Datagrams shorter than a message header never match.
func matchTransaction(msg []byte, id int32) bool {
	if len(msg) < 8 {
		return false
	}
	return int32(binary.BigEndian.Uint32(msg[4:8])) == id
}
