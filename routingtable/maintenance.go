package routingtable

import (
	"container/list"
	"sync"
	"time"

	"github.com/openkad/kadroute/id"
	"github.com/openkad/kadroute/peer"
)

// maintenanceEntry is one pending liveness check: the address to probe and
// the time at which it becomes due.
type maintenanceEntry struct {
	addr           peer.Address
	scheduledCheck time.Time
}

// maintenanceQueue is the MaintenanceQueue component (F): an
// insertion-ordered peer→scheduledCheck mapping, backed by a container/list
// plus an index map for O(1) lookup.
//
// Re-scheduling an id already queued updates its due time
// in place rather than moving it to the back - insertion order here tracks
// when a peer first entered the maintenance rotation, not when it was last
// rescheduled.
type maintenanceQueue struct {
	mu      sync.Mutex
	entries *list.List
	index   map[id.Id]*list.Element
}

func newMaintenanceQueue() *maintenanceQueue {
	return &maintenanceQueue{
		entries: list.New(),
		index:   make(map[id.Id]*list.Element),
	}
}

// schedule queues addr for a liveness check at t, or updates the due time
// and known address of an already-queued entry.
func (q *maintenanceQueue) schedule(addr peer.Address, t time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if el, ok := q.index[addr.Id]; ok {
		e := el.Value.(*maintenanceEntry)
		e.addr = addr
		e.scheduledCheck = t
		return
	}
	el := q.entries.PushBack(&maintenanceEntry{addr: addr, scheduledCheck: t})
	q.index[addr.Id] = el
}

// remove drops i from the queue, if present.
func (q *maintenanceQueue) remove(i id.Id) {
	q.mu.Lock()
	defer q.mu.Unlock()

	el, ok := q.index[i]
	if !ok {
		return
	}
	q.entries.Remove(el)
	delete(q.index, i)
}

// drainDue removes and returns every entry whose scheduledCheck is at or
// before now, in insertion order.
func (q *maintenanceQueue) drainDue(now time.Time) []peer.Address {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []peer.Address
	var next *list.Element
	for e := q.entries.Front(); e != nil; e = next {
		next = e.Next()
		entry := e.Value.(*maintenanceEntry)
		if !entry.scheduledCheck.After(now) {
			due = append(due, entry.addr)
			delete(q.index, entry.addr.Id)
			q.entries.Remove(e)
		}
	}
	return due
}
