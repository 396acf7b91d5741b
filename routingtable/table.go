// Package routingtable implements a Kademlia-style routing table: bucketed
// XOR-distance storage with a soft per-bucket cap and a hard global cap, a
// bounded failure-accounting cache that temporarily suppresses re-admission
// of recently-removed peers, a liveness-maintenance scheduler, and a
// close-peer query. It is transport-agnostic: callers report peer liveness
// observations and drain maintenance/close-peer results, but the actual
// network probing is someone else's job.
package routingtable

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/openkad/kadroute/id"
	"github.com/openkad/kadroute/peer"
	"github.com/openkad/kadroute/utils"
)

var tableLog = utils.Logger("routingtable")

// Config holds the construction-time parameters of a RoutingTable.
type Config struct {
	// Self is this node's own id. It must not be the zero id.
	Self id.Id

	// BagSize is the soft per-bucket capacity.
	BagSize int

	// CacheSize is the capacity of the offline-log LRU.
	CacheSize int

	// CacheTimeout is the failure-window the offline log considers recent.
	CacheTimeout time.Duration

	// MaxFail is the number of logged failures within CacheTimeout that
	// justifies removing a peer.
	MaxFail uint32

	// MaintenanceTimeoutsSeconds is the non-decreasing sequence of
	// maintenance-interval escalations. An empty slice disables scheduling
	// entirely.
	MaintenanceTimeoutsSeconds []int
}

// RoutingTable is the orchestrator component (H): it combines Buckets,
// OversizeIndex, OfflineLog, MaintenanceQueue, PeerStat and ListenerSet
// behind a single online/offline/query/notify surface.
type RoutingTable struct {
	self     id.Id
	bagSize  int
	maxPeers int

	maintenanceTimeouts []int

	buckets   *buckets
	offline   *offlineLog
	maint     *maintenanceQueue
	stats     *stats
	listeners listenerSet

	peerCount int64 // atomic

	filterMu sync.Mutex
	filtered map[string]struct{}
}

// New constructs a RoutingTable. cfg.Self must not be the zero id.
func New(cfg Config) (*RoutingTable, error) {
	if cfg.Self.IsZero() {
		return nil, errors.New("routingtable: self id must not be zero")
	}
	if cfg.BagSize <= 0 {
		return nil, errors.Errorf("routingtable: bagSize must be positive, got %d", cfg.BagSize)
	}

	rt := &RoutingTable{
		self:                cfg.Self,
		bagSize:             cfg.BagSize,
		maxPeers:            cfg.BagSize * NumBuckets,
		maintenanceTimeouts: cfg.MaintenanceTimeoutsSeconds,
		buckets:             newBuckets(cfg.Self),
		offline:             newOfflineLog(cfg.CacheSize, cfg.CacheTimeout, cfg.MaxFail),
		maint:               newMaintenanceQueue(),
		stats:               newStats(),
		filtered:            make(map[string]struct{}),
	}
	tableLog.Printf("table created for %s, bagSize=%d maxPeers=%d", cfg.Self, cfg.BagSize, rt.maxPeers)
	return rt, nil
}

// Self returns this table's own id.
func (rt *RoutingTable) Self() id.Id {
	return rt.self
}

// Size returns the current number of peers held across all buckets.
func (rt *RoutingTable) Size() int {
	return int(atomic.LoadInt64(&rt.peerCount))
}

// AddAddressFilter blocks remote from ever being admitted by peerOnline,
// regardless of what the offline log or bucket capacity would otherwise
// allow.
func (rt *RoutingTable) AddAddressFilter(addr string) {
	rt.filterMu.Lock()
	defer rt.filterMu.Unlock()
	rt.filtered[addr] = struct{}{}
}

func (rt *RoutingTable) isFiltered(addr string) bool {
	rt.filterMu.Lock()
	defer rt.filterMu.Unlock()
	_, ok := rt.filtered[addr]
	return ok
}

// Contains reports whether i is currently held in some bucket.
func (rt *RoutingTable) Contains(i id.Id) bool {
	class := classOf(rt.self, i)
	if class < 0 {
		return false
	}
	return rt.buckets.bucket[class].contains(i)
}

// GetAll returns every peer currently held, across all buckets. Order is
// unspecified.
func (rt *RoutingTable) GetAll() []peer.Address {
	all := make([]peer.Address, 0, rt.Size())
	for i := 0; i < NumBuckets; i++ {
		all = append(all, rt.buckets.bucket[i].snapshot()...)
	}
	return all
}

// PeerOnline records that remote was observed alive, either first-hand
// (referrer == nil) or as reported by referrer. It reports whether remote
// was newly inserted (as opposed to an update of an already-held entry, or
// an outright rejection).
func (rt *RoutingTable) PeerOnline(remote peer.Address, referrer *id.Id) bool {
	firstHand := referrer == nil

	if firstHand {
		rt.offline.remove(remote.Id)
	}

	if remote.Id.IsZero() || remote.Id == rt.self {
		return false
	}
	if rt.offline.isRemovedTemporarily(remote.Id) {
		return false
	}
	if rt.isFiltered(remote.Addr) {
		return false
	}
	if remote.FirewalledTCP {
		return false
	}

	class := classOf(rt.self, remote.Id)
	if class < 0 {
		return false
	}
	b := rt.buckets.bucket[class]

	if int(atomic.LoadInt64(&rt.peerCount)) < rt.maxPeers || b.contains(remote.Id) {
		return rt.insertOrUpdate(b, class, remote, firstHand)
	}

	if b.len() < rt.bagSize && rt.removeLatestEntryExceedingBagSize() {
		return rt.insertOrUpdate(b, class, remote, firstHand)
	}
	return false
}

func (rt *RoutingTable) insertOrUpdate(b *bucket, class int, remote peer.Address, firstHand bool) bool {
	inserted := b.put(remote)
	if inserted {
		atomic.AddInt64(&rt.peerCount, 1)
		if b.len() > rt.bagSize {
			rt.buckets.oversize.add(class)
		}
	}

	rt.scheduleMaintenance(remote)
	if firstHand {
		rt.stats.markOnline(remote.Id, rt.maintenanceTimeouts)
	}

	if inserted {
		rt.listeners.inserted.notify(remote)
	} else {
		rt.listeners.updated.notify(remote)
	}
	return inserted
}

// PeerOffline records a failed liveness probe against remote. force skips
// the failure-count accounting and removes remote outright (used when the
// caller already knows, by other means, that remote is gone for good). It
// reports whether remote was removed.
func (rt *RoutingTable) PeerOffline(remote peer.Address, force bool) bool {
	rt.listeners.fail.notify(remote)

	if remote.Id.IsZero() || remote.Id == rt.self {
		return false
	}

	entry := rt.offline.getOrCreate(remote.Id)
	entry.mu.Lock()

	remove := force
	if force {
		rt.offline.forceRemove(entry)
	} else if rt.offline.shouldRemove(entry) {
		remove = true
	} else {
		entry.counter++
		entry.lastOffline = time.Now()
		remove = rt.offline.shouldRemove(entry)
	}
	entry.mu.Unlock()

	if remove {
		return rt.remove(remote)
	}

	rt.stats.clearOnline(remote.Id)
	rt.scheduleMaintenance(remote)
	return false
}

func (rt *RoutingTable) remove(remote peer.Address) bool {
	class := classOf(rt.self, remote.Id)
	var removed bool
	if class >= 0 {
		b := rt.buckets.bucket[class]
		removed = b.remove(remote.Id)
		if removed {
			if b.len() <= rt.bagSize {
				rt.buckets.oversize.remove(class)
			}
			rt.maint.remove(remote.Id)
			atomic.AddInt64(&rt.peerCount, -1)
			tableLog.Printf("removed %s (%s)", remote.Id, remote.Addr)
			rt.listeners.removed.notify(remote)
		}
	}
	rt.listeners.offline.notify(remote)
	return removed
}

// removeLatestEntryExceedingBagSize evicts the least-recently-seen-online
// entry from the first bucket the oversize index reports as still
// exceeding bagSize. It reports whether an eviction happened, freeing a
// global slot for an incoming peer.
func (rt *RoutingTable) removeLatestEntryExceedingBagSize() bool {
	for _, class := range rt.buckets.oversize.snapshot() {
		b := rt.buckets.bucket[class]
		victim, evicted, newLen := b.evictLeastRecentlySeen(rt.bagSize, rt.stats.lastSeenOnline)
		if !evicted {
			continue
		}

		if newLen <= rt.bagSize {
			rt.buckets.oversize.remove(class)
		}
		rt.maint.remove(victim.Id)
		atomic.AddInt64(&rt.peerCount, -1)
		rt.listeners.removed.notify(victim)
		return true
	}
	return false
}

// scheduleMaintenance schedules or reschedules remote's next liveness
// check. A peer never seen online is due immediately; otherwise its next
// check is staggered by the escalation sequence in maintenanceTimeouts,
// indexed by how many interval escalations it has earned (see
// stats.markOnline), capped at the last entry.
func (rt *RoutingTable) scheduleMaintenance(remote peer.Address) {
	if len(rt.maintenanceTimeouts) == 0 {
		return
	}

	lastSeen := rt.stats.lastSeenOnline(remote.Id)
	if lastSeen.IsZero() {
		rt.maint.schedule(remote, time.Now())
		return
	}

	checked := rt.stats.checkedCount(remote.Id)
	if checked >= len(rt.maintenanceTimeouts) {
		checked = len(rt.maintenanceTimeouts) - 1
	}
	at := time.Now().Add(time.Duration(rt.maintenanceTimeouts[checked]) * time.Second)
	rt.maint.schedule(remote, at)
}

// PeersForMaintenance drains and returns every peer whose scheduled
// liveness check is due, removing them from the maintenance queue. It is
// the caller's responsibility to probe each returned peer and report the
// result back through PeerOnline or PeerOffline.
func (rt *RoutingTable) PeersForMaintenance() []peer.Address {
	return rt.maint.drainDue(time.Now())
}

// ClosePeers returns a set of peers close to target by XOR distance,
// containing at least atLeast entries if that many are known, ordered from
// closest to farthest. Passing rt.Self() as target returns the table's
// globally closest known peers.
func (rt *RoutingTable) ClosePeers(target id.Id, atLeast int) []peer.Address {
	var collected []peer.Address
	appendBucket := func(i int) {
		collected = append(collected, rt.buckets.bucket[i].snapshot()...)
	}

	if target == rt.self {
		for i := 0; i < NumBuckets && len(collected) < atLeast; i++ {
			appendBucket(i)
		}
	} else {
		class := classOf(rt.self, target)
		appendBucket(class)

		// Every bucket below class shares target's high bit at position
		// class, so none of them is any closer to target than another:
		// stopping partway through them on an atLeast count can skip a
		// peer that is strictly closer than one already collected. The
		// downward walk is exhausted in full before any upward step.
		if len(collected) < atLeast {
			for i := class - 1; i >= 0; i-- {
				appendBucket(i)
			}
		}
		for i := class + 1; i < NumBuckets && len(collected) < atLeast; i++ {
			appendBucket(i)
		}
	}

	sort.Slice(collected, func(i, j int) bool {
		return isCloserRaw(target, collected[i].Id, collected[j].Id) < 0
	})
	return collected
}

// IsCloser reports whether a is closer to target than b: -1 if a is closer,
// +1 if b is closer, 0 if equidistant.
func IsCloser(target, a, b id.Id) int {
	return isCloserRaw(target, a, b)
}

func isCloserRaw(target, a, b id.Id) int {
	return target.Xor(a).Compare(target.Xor(b))
}

// OnInserted registers fn to be called whenever a new peer is admitted.
func (rt *RoutingTable) OnInserted(fn func(peer.Address)) CancelFunc {
	return rt.listeners.inserted.add(fn)
}

// OnRemoved registers fn to be called whenever a peer is evicted or removed
// for cause.
func (rt *RoutingTable) OnRemoved(fn func(peer.Address)) CancelFunc {
	return rt.listeners.removed.add(fn)
}

// OnUpdated registers fn to be called whenever an already-held peer's
// address is refreshed.
func (rt *RoutingTable) OnUpdated(fn func(peer.Address)) CancelFunc {
	return rt.listeners.updated.add(fn)
}

// OnFail registers fn to be called on every PeerOffline report, whether or
// not it results in removal.
func (rt *RoutingTable) OnFail(fn func(peer.Address)) CancelFunc {
	return rt.listeners.fail.add(fn)
}

// OnOffline registers fn to be called whenever PeerOffline decides to remove
// a peer (forced, or after MaxFail failures), whether or not the peer was
// still held in a bucket. Oversize eviction does not fire it.
func (rt *RoutingTable) OnOffline(fn func(peer.Address)) CancelFunc {
	return rt.listeners.offline.add(fn)
}
