package udptracker

import (
	"time"

	"github.com/rcrowley/go-metrics"
)

type sessionMetrics struct {
	registry metrics.Registry

	ActiveRequests metrics.Gauge
	Announces      metrics.Counter
	Scrapes        metrics.Counter
	Peers          metrics.Counter
	Timeouts       metrics.Counter
	Warnings       metrics.Counter
}

func (s *Session) initMetrics() {
	r := metrics.NewRegistry()
	s.metrics = &sessionMetrics{
		registry: r,
		ActiveRequests: metrics.NewRegisteredFunctionalGauge("requests_active", r, func() int64 {
			s.m.Lock()
			defer s.m.Unlock()
			return int64(len(s.requests))
		}),
		Announces: metrics.NewRegisteredCounter("announces", r),
		Scrapes:   metrics.NewRegisteredCounter("scrapes", r),
		Peers:     metrics.NewRegisteredCounter("peers", r),
		Timeouts:  metrics.NewRegisteredCounter("timeouts", r),
		Warnings:  metrics.NewRegisteredCounter("warnings", r),
	}
}

// SessionStats are point-in-time observations of a Session.
type SessionStats struct {
	// Number of requests waiting for a reply.
	ActiveRequests int
	// Current period of automatic announces.
	AnnounceInterval time.Duration
	// Operations started since the session was created.
	Announces int64
	Scrapes   int64
	// Peer addresses received in announce replies.
	Peers int64
	// Requests abandoned after RequestTimeout.
	Timeouts int64
	// Failures reported to the observer.
	Warnings int64
}

// Stats returns information about the Session.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		ActiveRequests:   int(s.metrics.ActiveRequests.Value()),
		AnnounceInterval: s.getInterval(),
		Announces:        s.metrics.Announces.Count(),
		Scrapes:          s.metrics.Scrapes.Count(),
		Peers:            s.metrics.Peers.Count(),
		Timeouts:         s.metrics.Timeouts.Count(),
		Warnings:         s.metrics.Warnings.Count(),
	}
}
