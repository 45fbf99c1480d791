// Package tracker provides the shared types for announcing and scraping
// torrents on UDP trackers.
package tracker

import (
	"errors"
	"net"
)

// Torrent contains fields that are sent in an announce request.
type Torrent struct {
	BytesUploaded   int64
	BytesDownloaded int64
	// BytesLeft is the number of bytes the client still has to download.
	// A negative value means unknown and is sent to the tracker as all ones.
	BytesLeft int64
	InfoHash  [20]byte
	PeerID    [20]byte
	Port      int
}

// AnnounceRequest is the parameters of a single announce operation.
type AnnounceRequest struct {
	Torrent Torrent
	Event   Event
	NumWant int
}

// ScrapeRequest is the parameters of a single scrape operation.
// An empty InfoHashes list scrapes the owner's torrent.
type ScrapeRequest struct {
	InfoHashes [][20]byte
}

// Update carries the swarm counts returned by a successful announce.
type Update struct {
	Announce   string
	Complete   int32
	Incomplete int32
}

// ScrapeResult carries the counts for one info-hash of a scrape reply.
type ScrapeResult struct {
	Announce   string
	InfoHash   [20]byte
	Complete   int32
	Downloaded int32
	Incomplete int32
}

// Observer receives the results of announce and scrape operations.
// Events of a single operation arrive in order. Operations on the same
// session run concurrently, so implementations must be safe for
// concurrent use.
type Observer interface {
	OnUpdate(u Update)
	OnPeer(addr *net.TCPAddr)
	OnScrape(s ScrapeResult)
	OnWarning(err error)
}

// Errors that end a single operation. They are reported once through
// Observer.OnWarning; the session and its other operations keep running.
var (
	ErrMalformedMessage   = errors.New("malformed message")
	ErrInvalidTransaction = errors.New("invalid transaction id")
	ErrInvalidAction      = errors.New("invalid action")
	ErrInvalidPeerList    = errors.New("invalid peer list length")
	ErrRequestTimeout     = errors.New("request timed out")
)

// Error is the failure reason sent by the tracker in an error reply.
type Error struct {
	FailureReason string
}

func (e *Error) Error() string { return e.FailureReason }
