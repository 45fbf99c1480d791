package udptracker

import (
	"net"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"
)

func TestNetSocket(t *testing.T) {
	defer leaktest.Check(t)()

	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	tr := NewTransport(50)
	sock, err := tr.Open("udp4", pc.LocalAddr().String())
	require.NoError(t, err)

	require.NoError(t, sock.Send([]byte("ping")))
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(timeout)))
	buf := make([]byte, 64)
	n, addr, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))

	_, err = pc.WriteTo([]byte("pong"), addr)
	require.NoError(t, err)
	select {
	case msg := <-sock.Messages():
		require.Equal(t, "pong", string(msg))
	case <-time.After(timeout):
		t.Fatal("no message received")
	}

	require.NoError(t, sock.Close())
	require.NoError(t, sock.Close())

	// The read interrupted by Close must not surface as an error.
	select {
	case err := <-sock.Errors():
		t.Fatalf("error after close: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTransportOpenError(t *testing.T) {
	tr := NewTransport(50)
	_, err := tr.Open("udp4", "127.0.0.1:notaport")
	require.Error(t, err)
}
