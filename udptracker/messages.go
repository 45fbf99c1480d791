package udptracker

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"

	"utracker/tracker"
)

// Initial connection ID sent in a connect request, defined by the protocol.
const connectionIDMagic = 0x41727101980

type udpMessageHeader struct {
	Action        action
	TransactionID int32
}

type udpRequestHeader struct {
	ConnectionID int64
	udpMessageHeader
}

type connectRequest struct {
	udpRequestHeader
}

func newConnectRequest(trxID int32) *connectRequest {
	req := new(connectRequest)
	req.ConnectionID = connectionIDMagic
	req.Action = actionConnect
	req.TransactionID = trxID
	return req
}

func (r *connectRequest) WriteTo(w io.Writer) (int64, error) {
	return 0, binary.Write(w, binary.BigEndian, r)
}

type connectResponse struct {
	udpMessageHeader
	ConnectionID int64
}

// parseConnectResponse extracts the connection ID from a connect reply.
func parseConnectResponse(data []byte) (int64, error) {
	var response connectResponse
	if len(data) < binary.Size(response) {
		return 0, tracker.ErrMalformedMessage
	}
	err := binary.Read(bytes.NewReader(data), binary.BigEndian, &response)
	if err != nil {
		return 0, tracker.ErrMalformedMessage
	}
	return response.ConnectionID, nil
}

type announceRequest struct {
	udpRequestHeader
	InfoHash   [20]byte
	PeerID     [20]byte
	Downloaded int64
	Left       int64
	Uploaded   int64
	Event      tracker.Event
	IP         uint32
	Key        uint32
	NumWant    int32
	Port       uint16
}

// transferAnnounceRequest is an announceRequest with the URL data of the
// tracker address appended as BEP 41 options.
type transferAnnounceRequest struct {
	*announceRequest
	urlData string
}

func (r *transferAnnounceRequest) WriteTo(w io.Writer) (int64, error) {
	// Most tracker addresses carry URL data, reserve space for it up front.
	buf := bytes.NewBuffer(make([]byte, 0, 98+2+255))
	err := binary.Write(buf, binary.BigEndian, r.announceRequest)
	if err != nil {
		return 0, err
	}
	// URL data goes into option number 2, in chunks of at most 255 bytes.
	pos := 0
	for pos < len(r.urlData) {
		size := len(r.urlData) - pos
		if size > 255 {
			size = 255
		}
		buf.Write([]byte{0x2, byte(size)})
		buf.WriteString(r.urlData[pos : pos+size])
		pos += size
	}
	return buf.WriteTo(w)
}

type scrapeRequest struct {
	udpRequestHeader
	infoHashes [][20]byte
}

func (r *scrapeRequest) WriteTo(w io.Writer) (int64, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 16+20*len(r.infoHashes)))
	err := binary.Write(buf, binary.BigEndian, r.udpRequestHeader)
	if err != nil {
		return 0, err
	}
	for _, h := range r.infoHashes {
		buf.Write(h[:])
	}
	return buf.WriteTo(w)
}

type udpAnnounceResponse struct {
	udpMessageHeader
	Interval int32
	Leechers int32
	Seeders  int32
}

// parseAnnounceResponse decodes the fixed part of an announce reply and the
// compact peer list following it. Peers are packed as IPv6 addresses when
// ipv6 is true.
func parseAnnounceResponse(data []byte, ipv6 bool) (*udpAnnounceResponse, []*net.TCPAddr, error) {
	var response udpAnnounceResponse
	if len(data) < binary.Size(response) {
		return nil, nil, tracker.ErrMalformedMessage
	}
	err := binary.Read(bytes.NewReader(data), binary.BigEndian, &response)
	if err != nil {
		return nil, nil, tracker.ErrMalformedMessage
	}
	var peers []*net.TCPAddr
	if ipv6 {
		peers, err = tracker.DecodePeersCompact6(data[binary.Size(response):])
	} else {
		peers, err = tracker.DecodePeersCompact(data[binary.Size(response):])
	}
	if err != nil {
		return nil, nil, err
	}
	return &response, peers, nil
}

// udpScrapeRecord is one per-torrent triple in a scrape reply.
type udpScrapeRecord struct {
	Complete   int32
	Downloaded int32
	Incomplete int32
}

// parseScrapeResponse decodes the 12-byte records following the message
// header. The reply carries no info-hashes; records are in request order.
func parseScrapeResponse(data []byte) ([]udpScrapeRecord, error) {
	if len(data) < 20 || (len(data)-8)%12 != 0 {
		return nil, tracker.ErrMalformedMessage
	}
	records := make([]udpScrapeRecord, (len(data)-8)/12)
	err := binary.Read(bytes.NewReader(data[8:]), binary.BigEndian, records)
	if err != nil {
		return nil, tracker.ErrMalformedMessage
	}
	return records, nil
}

// parseErrorResponse extracts the failure text from an error reply.
func parseErrorResponse(data []byte) (string, error) {
	if len(data) < 8 {
		return "", tracker.ErrMalformedMessage
	}
	return string(data[8:]), nil
}
