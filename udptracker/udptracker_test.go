package udptracker_test

import (
	"net"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/chihaya/chihaya/frontend/udp"
	"github.com/chihaya/chihaya/middleware"
	"github.com/chihaya/chihaya/storage"
	_ "github.com/chihaya/chihaya/storage/memory"

	"utracker/tracker"
	"utracker/udptracker"
)

const timeout = 2 * time.Second

func trackerLogic(t *testing.T) *middleware.Logic {
	responseConfig := middleware.ResponseConfig{
		AnnounceInterval: time.Minute,
	}
	ps, err := storage.NewPeerStore("memory", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	return middleware.NewLogic(responseConfig, ps, nil, nil)
}

func startUDPTracker(t *testing.T, port int) func() {
	lgc := trackerLogic(t)
	fe, err := udp.NewFrontend(lgc, udp.Config{
		Addr:         "127.0.0.1:" + strconv.Itoa(port),
		MaxClockSkew: time.Minute,
		PrivateKey:   "M4YlzP02iB0B46P2i3QLyMOW6nWXnVlYeJ91xIdtu8Ao7IIVKLZEaCEshTChmFrS",
	})
	if err != nil {
		t.Fatal(err)
	}
	return func() {
		errC := fe.Stop()
		err := <-errC
		if err != nil {
			t.Fatal(err)
		}
	}
}

type eventCollector struct {
	updates  chan tracker.Update
	peers    chan *net.TCPAddr
	scrapes  chan tracker.ScrapeResult
	warnings chan error
}

func newEventCollector() *eventCollector {
	return &eventCollector{
		updates:  make(chan tracker.Update, 16),
		peers:    make(chan *net.TCPAddr, 16),
		scrapes:  make(chan tracker.ScrapeResult, 16),
		warnings: make(chan error, 16),
	}
}

func (c *eventCollector) OnUpdate(u tracker.Update) { c.updates <- u }

func (c *eventCollector) OnPeer(addr *net.TCPAddr) { c.peers <- addr }

func (c *eventCollector) OnScrape(sr tracker.ScrapeResult) { c.scrapes <- sr }

func (c *eventCollector) OnWarning(err error) { c.warnings <- err }

func TestUDPTracker(t *testing.T) {
	defer startUDPTracker(t, 5000)()

	const rawURL = "udp://127.0.0.1:5000/announce"
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}

	infoHash := [20]byte{1, 2, 3}
	obs := newEventCollector()
	torrent := func() tracker.Torrent {
		return tracker.Torrent{InfoHash: infoHash, PeerID: [20]byte{2}, Port: 2222}
	}
	s := udptracker.New(rawURL, u, obs, torrent, udptracker.DefaultConfig)
	defer s.Close()

	s.Announce(tracker.AnnounceRequest{
		Torrent: tracker.Torrent{InfoHash: infoHash, PeerID: [20]byte{1}, Port: 1111},
	})
	select {
	case upd := <-obs.updates:
		if upd.Announce != rawURL {
			t.Fatalf("unexpected announce url: %q", upd.Announce)
		}
	case err := <-obs.warnings:
		t.Fatal(err)
	case <-time.After(timeout):
		t.Fatal("no update for first announce")
	}

	s.Announce(tracker.AnnounceRequest{
		Torrent: tracker.Torrent{InfoHash: infoHash, PeerID: [20]byte{2}, Port: 2222, BytesLeft: 1},
		NumWant: 10,
	})
	select {
	case addr := <-obs.peers:
		if addr.Port != 1111 {
			t.Fatal(addr.String())
		}
	case err := <-obs.warnings:
		t.Fatal(err)
	case <-time.After(timeout):
		t.Fatal("no peer for second announce")
	}

	deadline := time.Now().Add(timeout)
	for s.Stats().AnnounceInterval != time.Minute {
		if time.Now().After(deadline) {
			t.Fatalf("announce interval not updated: %v", s.Stats().AnnounceInterval)
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.Scrape(tracker.ScrapeRequest{InfoHashes: [][20]byte{infoHash}})
	select {
	case sr := <-obs.scrapes:
		if sr.InfoHash != infoHash {
			t.Fatalf("unexpected info hash: %x", sr.InfoHash)
		}
		if sr.Complete < 1 {
			t.Fatalf("unexpected scrape counts: %#v", sr)
		}
	case err := <-obs.warnings:
		t.Fatal(err)
	case <-time.After(timeout):
		t.Fatal("no scrape result")
	}
}
