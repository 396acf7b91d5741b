package routingtable

import (
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/openkad/kadroute/id"
)

// offlineEntry is the OfflineLog record for one peer: how many consecutive
// failures have been logged, and when the most recent one happened. It is
// mutated under its own lock, taken only after the cache's own lookup has
// returned the entry (mapping lock -> entry lock ordering).
type offlineEntry struct {
	mu          sync.Mutex
	counter     uint32
	lastOffline time.Time
}

// offlineLog is the OfflineLog component (E): a bounded LRU cache of
// failure counters, backed by github.com/bluele/gcache the way the Peerster
// example backs its rankerCache.
type offlineLog struct {
	cache        gcache.Cache
	cacheTimeout time.Duration
	maxFail      uint32
}

func newOfflineLog(cacheSize int, cacheTimeout time.Duration, maxFail uint32) *offlineLog {
	return &offlineLog{
		cache:        gcache.New(cacheSize).LRU().Build(),
		cacheTimeout: cacheTimeout,
		maxFail:      maxFail,
	}
}

// getOrCreate returns the log entry for i, creating and caching a fresh one
// if absent.
func (l *offlineLog) getOrCreate(i id.Id) *offlineEntry {
	if v, err := l.cache.GetIFPresent(i); err == nil {
		return v.(*offlineEntry)
	}
	e := &offlineEntry{}
	l.cache.Set(i, e)
	return e
}

func (l *offlineLog) get(i id.Id) (*offlineEntry, bool) {
	v, err := l.cache.GetIFPresent(i)
	if err != nil {
		return nil, false
	}
	return v.(*offlineEntry), true
}

func (l *offlineLog) remove(i id.Id) {
	l.cache.Remove(i)
}

// shouldRemove reports whether e, as it currently stands, justifies removing
// its peer: enough failures, recently enough. Caller holds e.mu.
func (l *offlineLog) shouldRemove(e *offlineEntry) bool {
	if e.lastOffline.IsZero() {
		return false
	}
	return e.counter >= l.maxFail && time.Since(e.lastOffline) <= l.cacheTimeout
}

// forceRemove marks e as having exhausted its failure budget outright, used
// by the force=true path of peerOffline. Caller holds e.mu.
func (l *offlineLog) forceRemove(e *offlineEntry) {
	e.counter = l.maxFail
	e.lastOffline = time.Now()
}

// isRemovedTemporarily reports whether a peer recently removed for cause is
// still suppressed from re-admission: its log entry has not yet aged out of
// the failure window.
func (l *offlineLog) isRemovedTemporarily(i id.Id) bool {
	e, ok := l.get(i)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if l.shouldRemove(e) {
		return true
	}
	if !e.lastOffline.IsZero() && time.Since(e.lastOffline) > l.cacheTimeout {
		l.remove(i)
	}
	return false
}
