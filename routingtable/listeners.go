package routingtable

import (
	"sync"

	"github.com/openkad/kadroute/peer"
	"github.com/openkad/kadroute/utils"
)

var listenerLog = utils.Logger("routingtable.listeners")

// CancelFunc unregisters a previously registered listener. Calling it more
// than once is a no-op.
type CancelFunc func()

// listenerList is one notification channel: a set of callbacks guarded by
// its own mutex, following a Subscribe/CancelFunc pattern but adapted from a
// channel
// subscription to a direct callback, since the routing table calls
// listeners synchronously rather than dispatching messages.
//
// Registration returns a CancelFunc that removes the subscriber by pointer
// identity, which keeps add and remove genuinely symmetric - the pair the
// original PeerMap implementation got wrong by calling add() from inside
// its remove method.
type listenerList struct {
	mu   sync.Mutex
	subs []*func(peer.Address)
}

func (l *listenerList) add(fn func(peer.Address)) CancelFunc {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub := &fn
	l.subs = append(l.subs, sub)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, s := range l.subs {
			if s == sub {
				l.subs = append(l.subs[:i], l.subs[i+1:]...)
				break
			}
		}
	}
}

// notify calls every current subscriber with p, on a snapshot taken under
// the lock so that registration/removal never blocks on (or is reordered
// by) listener execution.
func (l *listenerList) notify(p peer.Address) {
	l.mu.Lock()
	snapshot := make([]*func(peer.Address), len(l.subs))
	copy(snapshot, l.subs)
	l.mu.Unlock()

	for _, fn := range snapshot {
		callListener(*fn, p)
	}
}

func callListener(fn func(peer.Address), p peer.Address) {
	defer func() {
		if r := recover(); r != nil {
			listenerLog.Printf("listener panicked: %v", r)
		}
	}()
	fn(p)
}

// listenerSet bundles the five notification channels the routing table
// exposes: three change events (inserted, removed, updated) and two offline
// events (fail, offline), each independently guarded.
type listenerSet struct {
	inserted listenerList
	removed  listenerList
	updated  listenerList
	fail     listenerList
	offline  listenerList
}
