package udptracker

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"utracker/internal/logger"
	"utracker/tracker"
)

type requestState int

const (
	stateAwaitConnect requestState = iota
	stateAwaitResponse
	stateDone
)

// request drives a single announce or scrape exchange: a connect message,
// then the operation message, then exactly one reply. It owns one socket,
// one timer and the current transaction ID, and runs in its own goroutine,
// so its fields need no locking.
type request struct {
	id      string
	session *Session
	log     logger.Logger

	// actionAnnounce or actionScrape; the message to send after connecting.
	action   action
	announce tracker.AnnounceRequest
	hashes   [][20]byte

	sock    Socket
	trxID   int32
	state   requestState
	timeout *time.Timer

	closeC chan struct{} // force-close signal from Session.Close
	doneC  chan struct{} // closed when the goroutine is gone
}

// start opens the socket and sends the connect message. The request is not
// running and owns no resources if start returns an error.
func (r *request) start() error {
	sock, err := r.session.transport.Open(r.session.config.Network, r.session.dest)
	if err != nil {
		return err
	}
	r.sock = sock
	r.trxID = newTransactionID()
	var buf bytes.Buffer
	if _, err = newConnectRequest(r.trxID).WriteTo(&buf); err != nil {
		sock.Close()
		return err
	}
	if err = sock.Send(buf.Bytes()); err != nil {
		sock.Close()
		return err
	}
	// One deadline covers the whole exchange. The timer is not rearmed
	// when the connect reply arrives.
	r.timeout = time.NewTimer(r.session.config.RequestTimeout)
	go r.run()
	return nil
}

func (r *request) run() {
	defer close(r.doneC)
	for {
		select {
		case msg := <-r.sock.Messages():
			if r.handleMessage(msg) {
				return
			}
		case err := <-r.sock.Errors():
			r.finish(err)
			return
		case <-r.timeout.C:
			r.handleTimeout()
			return
		case <-r.closeC:
			r.cleanup()
			return
		}
	}
}

// handleMessage reacts to one datagram and reports whether the request is
// finished.
func (r *request) handleMessage(msg []byte) bool {
	if !matchTransaction(msg, r.trxID) {
		// A reply we did not ask for ends the exchange.
		r.finish(tracker.ErrInvalidTransaction)
		return true
	}
	switch action(binary.BigEndian.Uint32(msg[:4])) {
	case actionConnect:
		return r.handleConnect(msg)
	case actionAnnounce:
		r.handleAnnounce(msg)
		return true
	case actionScrape:
		r.handleScrape(msg)
		return true
	case actionError:
		r.handleError(msg)
		return true
	default:
		r.finish(tracker.ErrInvalidAction)
		return true
	}
}

func (r *request) handleConnect(msg []byte) bool {
	connectionID, err := parseConnectResponse(msg)
	if err != nil {
		r.finish(err)
		return true
	}
	r.log.Debugf("connected, connection_id: %d", connectionID)
	// The operation message carries a fresh transaction ID.
	r.trxID = newTransactionID()
	var buf bytes.Buffer
	if _, err = r.operationRequest(connectionID).WriteTo(&buf); err != nil {
		r.finish(err)
		return true
	}
	if err = r.sock.Send(buf.Bytes()); err != nil {
		r.finish(err)
		return true
	}
	r.state = stateAwaitResponse
	return false
}

// operationRequest builds the announce or scrape message sent after the
// connect reply.
func (r *request) operationRequest(connectionID int64) io.WriterTo {
	if r.action == actionScrape {
		req := &scrapeRequest{infoHashes: r.hashes}
		req.ConnectionID = connectionID
		req.Action = actionScrape
		req.TransactionID = r.trxID
		return req
	}
	left := r.announce.Torrent.BytesLeft
	if left < 0 {
		// Unknown remaining size goes out as all ones.
		left = -1
	}
	req := &announceRequest{
		InfoHash:   r.announce.Torrent.InfoHash,
		PeerID:     r.announce.Torrent.PeerID,
		Downloaded: r.announce.Torrent.BytesDownloaded,
		Left:       left,
		Uploaded:   r.announce.Torrent.BytesUploaded,
		Event:      r.announce.Event,
		NumWant:    int32(r.announce.NumWant),
		Port:       uint16(r.announce.Torrent.Port),
	}
	req.ConnectionID = connectionID
	req.Action = actionAnnounce
	req.TransactionID = r.trxID
	return &transferAnnounceRequest{announceRequest: req, urlData: r.session.urlData}
}

func (r *request) handleAnnounce(msg []byte) {
	r.cleanup()
	response, peers, err := parseAnnounceResponse(msg, r.session.config.Network == "udp6")
	if err != nil {
		r.session.emitWarning(err)
		return
	}
	r.log.Debugf("announce response: %#v", response)
	if response.Interval > 0 {
		r.session.rescheduleInterval(time.Duration(response.Interval) * time.Second)
	}
	r.session.metrics.Peers.Inc(int64(len(peers)))
	r.session.emitUpdate(tracker.Update{
		Announce:   r.session.rawURL,
		Complete:   response.Seeders,
		Incomplete: response.Leechers,
	})
	for _, addr := range peers {
		r.session.emitPeer(addr)
	}
}

func (r *request) handleScrape(msg []byte) {
	r.cleanup()
	records, err := parseScrapeResponse(msg)
	if err != nil {
		r.session.emitWarning(err)
		return
	}
	// The reply carries no info-hashes. Records pair with the hashes of
	// the request by position.
	for i, h := range r.hashes {
		if i >= len(records) {
			break
		}
		r.session.emitScrape(tracker.ScrapeResult{
			Announce:   r.session.rawURL,
			InfoHash:   h,
			Complete:   records[i].Complete,
			Downloaded: records[i].Downloaded,
			Incomplete: records[i].Incomplete,
		})
	}
}

func (r *request) handleError(msg []byte) {
	r.cleanup()
	message, err := parseErrorResponse(msg)
	if err != nil {
		r.session.emitWarning(err)
		return
	}
	r.session.emitWarning(&tracker.Error{FailureReason: message})
}

func (r *request) handleTimeout() {
	r.session.metrics.Timeouts.Inc(1)
	// A stopped announce is fire and forget. Nobody waits for its reply,
	// so its timeout is not worth a warning.
	if r.action == actionAnnounce && r.announce.Event == tracker.EventStopped {
		r.cleanup()
		return
	}
	r.finish(tracker.ErrRequestTimeout)
}

// finish cleans the request up and reports err as a warning.
func (r *request) finish(err error) {
	r.cleanup()
	if err != nil {
		r.session.emitWarning(err)
	}
}

// cleanup releases the socket and the timer and removes the request from
// the session. Calling it again is a no-op.
func (r *request) cleanup() {
	if r.state == stateDone {
		return
	}
	r.state = stateDone
	r.timeout.Stop()
	if err := r.sock.Close(); err != nil {
		r.log.Debugln("error closing socket:", err)
	}
	r.session.removeRequest(r.id)
}
