package routingtable

import (
	"sync"
	"time"

	"github.com/openkad/kadroute/id"
	"github.com/openkad/kadroute/peer"
)

// bucket is a single distance-class bag: a map from Id to PeerAddress
// guarded by its own mutex, the leaf lock of the table - never held across
// any other lock acquisition or listener callback.
type bucket struct {
	mu      sync.Mutex
	entries map[id.Id]peer.Address
}

func newBucket() *bucket {
	return &bucket{entries: make(map[id.Id]peer.Address)}
}

func (b *bucket) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func (b *bucket) contains(i id.Id) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.entries[i]
	return ok
}

func (b *bucket) get(i id.Id) (peer.Address, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.entries[i]
	return p, ok
}

// put inserts or updates p. It reports whether this was a fresh insert (the
// id was previously absent) as opposed to an update of an existing entry.
func (b *bucket) put(p peer.Address) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, existed := b.entries[p.Id]
	b.entries[p.Id] = p
	return !existed
}

// remove drops i from the bucket and reports whether it was present.
func (b *bucket) remove(i id.Id) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.entries[i]
	delete(b.entries, i)
	return ok
}

// snapshot returns a defensive copy of every address currently held. Order
// is unspecified.
func (b *bucket) snapshot() []peer.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]peer.Address, 0, len(b.entries))
	for _, p := range b.entries {
		out = append(out, p)
	}
	return out
}

// evictLeastRecentlySeen removes and returns the entry with the smallest
// lastSeenOnline timestamp, as reported by seenAt, but only when the bucket
// currently holds more than bagSize entries. Peers never observed online
// report the zero time and are evicted first; the scan short-circuits the
// moment one is found. The new bucket length is returned alongside so the
// caller can update the oversize index without taking the lock a second
// time.
//
// seenAt is called with b.mu released: bucket locks are leaf locks and must
// never be held across another lock acquisition, so the candidate set is
// snapshotted under b.mu, released, scored via seenAt, and only then is b.mu
// retaken to re-validate and delete the chosen victim.
func (b *bucket) evictLeastRecentlySeen(bagSize int, seenAt func(id.Id) time.Time) (victim peer.Address, evicted bool, newLen int) {
	b.mu.Lock()
	if len(b.entries) <= bagSize {
		n := len(b.entries)
		b.mu.Unlock()
		return peer.Address{}, false, n
	}
	candidates := make([]peer.Address, 0, len(b.entries))
	for _, p := range b.entries {
		candidates = append(candidates, p)
	}
	b.mu.Unlock()

	found := false
	var minSeen time.Time
	for _, p := range candidates {
		seen := seenAt(p.Id)
		if !found || seen.Before(minSeen) {
			minSeen = seen
			victim = p
			found = true
		}
		if seen.IsZero() {
			break
		}
	}
	if !found {
		b.mu.Lock()
		n := len(b.entries)
		b.mu.Unlock()
		return peer.Address{}, false, n
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[victim.Id]; !ok || len(b.entries) <= bagSize {
		return peer.Address{}, false, len(b.entries)
	}
	delete(b.entries, victim.Id)
	return victim, true, len(b.entries)
}
