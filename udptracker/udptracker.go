package udptracker

// http://bittorrent.org/beps/bep_0015.html
// http://xbtt.sourceforge.net/udp_tracker_protocol.html

import (
	"encoding/base64"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"utracker/internal/logger"
	"utracker/tracker"
)

// Session announces and scrapes torrents on a single UDP tracker.
// Operations do not block; results and failures are delivered through the
// tracker.Observer given at construction. A Session is safe for concurrent
// use.
type Session struct {
	rawURL    string
	dest      string
	urlData   string
	config    Config
	observer  tracker.Observer
	torrent   func() tracker.Torrent
	transport Transport
	log       logger.Logger
	metrics   *sessionMetrics

	m         sync.Mutex
	requests  map[string]*request
	destroyed bool
	interval  time.Duration
	drainedC  chan struct{} // closed when the last request is removed after Close

	intervalC chan time.Duration
	closeC    chan struct{}
	doneC     chan struct{}
	closeOnce sync.Once
}

// New returns a new Session for the tracker at u. rawURL is the announce
// URL as given by the caller; parsing it is the caller's job. The torrent
// func supplies identity and transfer counters for periodic announces and
// implicit scrapes.
func New(rawURL string, u *url.URL, obs tracker.Observer, torrent func() tracker.Torrent, cfg Config) *Session {
	return newWithTransport(rawURL, u, obs, torrent, cfg, NewTransport(cfg.MaxNumWant))
}

func newWithTransport(rawURL string, u *url.URL, obs tracker.Observer, torrent func() tracker.Torrent, cfg Config, tr Transport) *Session {
	s := &Session{
		rawURL:    rawURL,
		dest:      u.Host,
		urlData:   u.RequestURI(),
		config:    cfg,
		observer:  obs,
		torrent:   torrent,
		transport: tr,
		log:       logger.New("udp tracker " + u.Host),
		requests:  make(map[string]*request),
		interval:  cfg.DefaultAnnounceInterval,
		drainedC:  make(chan struct{}),
		intervalC: make(chan time.Duration),
		closeC:    make(chan struct{}),
		doneC:     make(chan struct{}),
	}
	s.initMetrics()
	go s.run()
	return s
}

// URL returns the announce URL string.
func (s *Session) URL() string {
	return s.rawURL
}

// Announce starts an announce exchange for the given request. It returns
// immediately; the result arrives through the Observer as one update event
// and one peer event per address, or a warning. Calls after Close are
// ignored.
func (s *Session) Announce(req tracker.AnnounceRequest) {
	if s.start(actionAnnounce, req, nil) {
		s.metrics.Announces.Inc(1)
	}
}

// Scrape starts a scrape exchange. The reply is delivered as one scrape
// event per requested info-hash, in request order. With an empty hash list
// the torrent func's info-hash is scraped. Calls after Close are ignored.
func (s *Session) Scrape(req tracker.ScrapeRequest) {
	hashes := req.InfoHashes
	if len(hashes) == 0 {
		hashes = [][20]byte{s.torrent().InfoHash}
	}
	if s.start(actionScrape, tracker.AnnounceRequest{}, hashes) {
		s.metrics.Scrapes.Inc(1)
	}
}

// start registers and launches a new request. It reports whether the
// request was started.
func (s *Session) start(act action, areq tracker.AnnounceRequest, hashes [][20]byte) bool {
	u, err := uuid.NewV1()
	if err != nil {
		s.emitWarning(err)
		return false
	}
	id := base64.RawURLEncoding.EncodeToString(u.Bytes())
	r := &request{
		id:       id,
		session:  s,
		log:      logger.New("udp tracker request " + id),
		action:   act,
		announce: areq,
		hashes:   hashes,
		closeC:   make(chan struct{}),
		doneC:    make(chan struct{}),
	}
	s.m.Lock()
	if s.destroyed {
		s.m.Unlock()
		return false
	}
	s.requests[r.id] = r
	s.m.Unlock()
	if err := r.start(); err != nil {
		s.removeRequest(r.id)
		close(r.doneC)
		s.emitWarning(err)
		return false
	}
	return true
}

// run adjusts the re-announce timer and fires periodic announces with the
// torrent func's current counters.
func (s *Session) run() {
	defer close(s.doneC)
	timer := time.NewTimer(s.getInterval())
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			s.Announce(tracker.AnnounceRequest{
				Torrent: s.torrent(),
				Event:   tracker.EventNone,
				NumWant: s.config.NumWant,
			})
			timer.Reset(s.getInterval())
		case d := <-s.intervalC:
			s.setInterval(d)
			timer.Reset(d)
		case <-s.closeC:
			return
		}
	}
}

// rescheduleInterval resets the periodic re-announce timer to the period
// supplied by the tracker.
func (s *Session) rescheduleInterval(d time.Duration) {
	select {
	case s.intervalC <- d:
	case <-s.closeC:
	}
}

func (s *Session) getInterval() time.Duration {
	s.m.Lock()
	defer s.m.Unlock()
	return s.interval
}

func (s *Session) setInterval(d time.Duration) {
	s.m.Lock()
	s.interval = d
	s.m.Unlock()
}

func (s *Session) removeRequest(id string) {
	s.m.Lock()
	delete(s.requests, id)
	if s.destroyed && len(s.requests) == 0 {
		select {
		case <-s.drainedC:
		default:
			close(s.drainedC)
		}
	}
	s.m.Unlock()
}

// Close destroys the session. New operations become no-ops right away.
// Requests already in flight get Config.DestroyTimeout to finish on their
// own, then their sockets are forced shut. Close returns when every
// request is gone and may be called more than once.
func (s *Session) Close() {
	s.closeOnce.Do(s.close)
}

func (s *Session) close() {
	s.m.Lock()
	s.destroyed = true
	active := len(s.requests)
	s.m.Unlock()

	close(s.closeC)
	<-s.doneC

	if active > 0 {
		s.log.Debugln("waiting for", active, "requests to finish")
		grace := time.NewTimer(s.config.DestroyTimeout)
		defer grace.Stop()
		select {
		case <-s.drainedC:
		case <-grace.C:
		}
	}

	s.m.Lock()
	remaining := make([]*request, 0, len(s.requests))
	for _, r := range s.requests {
		remaining = append(remaining, r)
	}
	s.m.Unlock()
	if len(remaining) > 0 {
		s.log.Debugln("force closing", len(remaining), "requests")
	}
	for _, r := range remaining {
		close(r.closeC)
	}
	for _, r := range remaining {
		<-r.doneC
	}
}

func (s *Session) isDestroyed() bool {
	s.m.Lock()
	defer s.m.Unlock()
	return s.destroyed
}

// Events are not emitted after the session is destroyed. A request whose
// reply lands during the grace window still cleans up, its result is
// dropped silently.

func (s *Session) emitUpdate(u tracker.Update) {
	if s.isDestroyed() {
		return
	}
	s.observer.OnUpdate(u)
}

func (s *Session) emitPeer(addr *net.TCPAddr) {
	if s.isDestroyed() {
		return
	}
	s.observer.OnPeer(addr)
}

func (s *Session) emitScrape(sr tracker.ScrapeResult) {
	if s.isDestroyed() {
		return
	}
	s.observer.OnScrape(sr)
}

func (s *Session) emitWarning(err error) {
	if s.isDestroyed() {
		return
	}
	s.metrics.Warnings.Inc(1)
	s.log.Debugln("warning:", err)
	s.observer.OnWarning(err)
}
