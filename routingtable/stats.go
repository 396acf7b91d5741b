package routingtable

import (
	"sync"
	"time"

	"github.com/openkad/kadroute/id"
)

// peerStat holds the per-peer online bookkeeping: when the peer was first
// confirmed online first-hand, when it was last confirmed online
// first-hand, and how many maintenance-interval escalations it has earned.
type peerStat struct {
	firstSeen      time.Time
	lastSeenOnline time.Time
	checked        int
}

// stats is the PeerStat component (G): a map from Id to peerStat guarded by
// a single mutex, favoring a plain map plus mutex over a dedicated
// concurrent-map type.
type stats struct {
	mu   sync.Mutex
	byID map[id.Id]*peerStat
}

func newStats() *stats {
	return &stats{byID: make(map[id.Id]*peerStat)}
}

// lastSeenOnline returns the peer's last first-hand-online timestamp, or the
// zero Time if the peer has no stat entry or has never been seen online.
func (s *stats) lastSeenOnline(i id.Id) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byID[i]
	if !ok {
		return time.Time{}
	}
	return st.lastSeenOnline
}

func (s *stats) checkedCount(i id.Id) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byID[i]
	if !ok {
		return 0
	}
	return st.checked
}

// markOnline records a first-hand online observation: it sets
// lastSeenOnline to now and, if the elapsed time since the peer was first
// seen exceeds the current escalation threshold, advances checked to the
// next (longer) maintenance interval.
func (s *stats) markOnline(i id.Id, timeoutsSeconds []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.byID[i]
	if !ok {
		st = &peerStat{firstSeen: time.Now()}
		s.byID[i] = st
	}

	now := time.Now()
	if len(timeoutsSeconds) > 0 {
		idx := st.checked
		if idx >= len(timeoutsSeconds) {
			idx = len(timeoutsSeconds) - 1
		}
		threshold := time.Duration(timeoutsSeconds[idx]) * time.Second
		if now.Sub(st.firstSeen) > threshold {
			st.checked++
		}
	}
	st.lastSeenOnline = now
}

// clearOnline resets a peer's online-time stat, so the next schedule call
// treats it as never having been seen online, as in the non-removing-offline
// branch of an offline report.
func (s *stats) clearOnline(i id.Id) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byID[i]
	if !ok {
		return
	}
	st.lastSeenOnline = time.Time{}
}
