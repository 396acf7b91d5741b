package routingtable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openkad/kadroute/id"
	"github.com/openkad/kadroute/peer"
)

func mustID(t *testing.T, b byte) id.Id {
	var i id.Id
	i[id.Len-1] = b
	return i
}

func newTestTable(t *testing.T, bagSize int, cacheTimeout time.Duration, maxFail uint32, timeouts []int) *RoutingTable {
	self := mustID(t, 0x01)
	rt, err := New(Config{
		Self:                       self,
		BagSize:                    bagSize,
		CacheSize:                  128,
		CacheTimeout:               cacheTimeout,
		MaxFail:                    maxFail,
		MaintenanceTimeoutsSeconds: timeouts,
	})
	assert.NoError(t, err)
	return rt
}

func TestConstructionRejectsZeroSelf(t *testing.T) {
	_, err := New(Config{Self: id.Zero, BagSize: 2})
	assert.Error(t, err)
}

func TestClassOfAndXor(t *testing.T) {
	self := mustID(t, 0x01)
	other := mustID(t, 0x03)
	dist := self.Xor(other)
	assert.Equal(t, 2, dist.BitLength())
	assert.Equal(t, 1, classOf(self, other))
	assert.Equal(t, classOf(other, self), classOf(self, other))
	assert.Equal(t, -1, classOf(self, self))
}

func TestPeerOnlineRejectsSelfAndZero(t *testing.T) {
	rt := newTestTable(t, 2, time.Second, 3, nil)
	assert.False(t, rt.PeerOnline(peer.Address{Id: rt.Self()}, nil))
	assert.False(t, rt.PeerOnline(peer.Address{Id: id.Zero}, nil))
	assert.Equal(t, 0, rt.Size())
}

func TestPeerOnlineRejectsFirewalled(t *testing.T) {
	rt := newTestTable(t, 2, time.Second, 3, nil)
	p := peer.Address{Id: mustID(t, 0x02), FirewalledTCP: true}
	assert.False(t, rt.PeerOnline(p, nil))
	assert.False(t, rt.Contains(p.Id))
}

func TestSoftBucketExceedsBagSizeUnderGlobalCap(t *testing.T) {
	// Three peers that all fall into bucket class 5 relative to self.
	rt, err := New(Config{Self: mustID(t, 0x01), BagSize: 2, CacheSize: 8, CacheTimeout: time.Second, MaxFail: 3})
	assert.NoError(t, err)

	class5 := make([]peer.Address, 0, 3)
	for other := byte(0x20); len(class5) < 3; other++ {
		candidate := mustID(t, other)
		if classOf(rt.Self(), candidate) == 5 {
			class5 = append(class5, peer.Address{Id: candidate, Addr: "a"})
		}
	}
	assert.Len(t, class5, 3)

	for _, p := range class5 {
		assert.True(t, rt.PeerOnline(p, nil))
	}
	assert.Equal(t, 3, rt.Size())
	assert.True(t, rt.buckets.oversize.contains(5))
}

func TestSuppressionWindow(t *testing.T) {
	rt := newTestTable(t, 4, 10*time.Second, 3, nil)
	p := peer.Address{Id: mustID(t, 0x02), Addr: "a"}
	assert.True(t, rt.PeerOnline(p, nil))

	for i := 0; i < 3; i++ {
		rt.PeerOffline(p, false)
	}
	assert.False(t, rt.Contains(p.Id))

	referrer := mustID(t, 0x03)
	assert.False(t, rt.PeerOnline(p, &referrer))

	assert.True(t, rt.PeerOnline(p, nil))
	assert.True(t, rt.Contains(p.Id))
}

func TestStaleLogPurgesOnQuery(t *testing.T) {
	rt := newTestTable(t, 4, 10*time.Millisecond, 1, nil)
	p := peer.Address{Id: mustID(t, 0x02), Addr: "a"}
	assert.True(t, rt.PeerOnline(p, nil))
	rt.PeerOffline(p, false)
	assert.False(t, rt.Contains(p.Id))

	time.Sleep(20 * time.Millisecond)
	assert.False(t, rt.offline.isRemovedTemporarily(p.Id))
	_, ok := rt.offline.get(p.Id)
	assert.False(t, ok)
}

func TestClosePeersExhaustion(t *testing.T) {
	// Class c has exactly 2^c possible members, so a class with room for 3
	// distinct test peers must be at least class 2.
	rt := newTestTable(t, 8, time.Second, 3, nil)
	var sameClass []peer.Address
	for other := 0; len(sameClass) < 3 && other < 256; other++ {
		candidate := mustID(t, byte(other))
		if classOf(rt.Self(), candidate) == 2 {
			sameClass = append(sameClass, peer.Address{Id: candidate, Addr: "x"})
		}
	}
	for _, p := range sameClass {
		assert.True(t, rt.PeerOnline(p, nil))
	}

	result := rt.ClosePeers(sameClass[0].Id, 5)
	assert.Len(t, result, 3)
	for i := 1; i < len(result); i++ {
		assert.True(t, isCloserRaw(sameClass[0].Id, result[i-1].Id, result[i].Id) <= 0)
	}
}

func TestClosePeersExhaustsLowerBucketsBeforeUpward(t *testing.T) {
	// self's low byte is 0x01 and every candidate below is built from a
	// single differing low byte, so bucket class is just bits.Len8(xor)-1
	// on that byte. target's class (5) is left empty; two peers sit in
	// class 4 (immediately below) and one sits in class 2 (three below).
	// The class-2 peer is, by construction, strictly closer to target by
	// XOR distance than either class-4 peer: stopping the downward walk
	// as soon as atLeast is reached (here, after class 4 alone) would
	// wrongly omit it.
	rt := newTestTable(t, 8, time.Second, 3, nil)

	peerA := peer.Address{Id: mustID(t, 17), Addr: "a"} // class 4
	peerB := peer.Address{Id: mustID(t, 16), Addr: "b"} // class 4
	peerC := peer.Address{Id: mustID(t, 5), Addr: "c"}  // class 2
	target := mustID(t, 33)                             // class 5, left empty (self.Xor(target) = 32)

	assert.Equal(t, 5, classOf(rt.Self(), target))
	assert.Equal(t, 4, classOf(rt.Self(), peerA.Id))
	assert.Equal(t, 4, classOf(rt.Self(), peerB.Id))
	assert.Equal(t, 2, classOf(rt.Self(), peerC.Id))

	for _, p := range []peer.Address{peerA, peerB, peerC} {
		assert.True(t, rt.PeerOnline(p, nil))
	}

	result := rt.ClosePeers(target, 2)
	assert.Len(t, result, 3)
	assert.Equal(t, peerC.Id, result[0].Id)
	for i := 1; i < len(result); i++ {
		assert.True(t, isCloserRaw(target, result[i-1].Id, result[i].Id) <= 0)
	}
}

func TestMaintenanceDrain(t *testing.T) {
	rt := newTestTable(t, 4, time.Second, 3, []int{1, 5, 30})
	p := peer.Address{Id: mustID(t, 0x02), Addr: "a"}
	assert.True(t, rt.PeerOnline(p, nil))

	due := rt.PeersForMaintenance()
	assert.Len(t, due, 1)
	assert.Equal(t, p.Id, due[0].Id)

	assert.Empty(t, rt.PeersForMaintenance())
}

func TestMaintenanceDisabledWhenTimeoutsEmpty(t *testing.T) {
	rt := newTestTable(t, 4, time.Second, 3, nil)
	p := peer.Address{Id: mustID(t, 0x02), Addr: "a"}
	assert.True(t, rt.PeerOnline(p, nil))
	assert.Empty(t, rt.PeersForMaintenance())
}

func TestListenersFireOnInsertAndRemove(t *testing.T) {
	rt := newTestTable(t, 4, time.Second, 1, nil)

	var inserted, removed []peer.Address
	cancelIns := rt.OnInserted(func(p peer.Address) { inserted = append(inserted, p) })
	cancelRem := rt.OnRemoved(func(p peer.Address) { removed = append(removed, p) })
	defer cancelIns()
	defer cancelRem()

	p := peer.Address{Id: mustID(t, 0x02), Addr: "a"}
	assert.True(t, rt.PeerOnline(p, nil))
	assert.True(t, rt.PeerOffline(p, true))

	assert.Len(t, inserted, 1)
	assert.Len(t, removed, 1)
}

func TestListenerCancelIsSymmetric(t *testing.T) {
	rt := newTestTable(t, 4, time.Second, 1, nil)

	calls := 0
	cancel := rt.OnInserted(func(p peer.Address) { calls++ })
	cancel()

	p := peer.Address{Id: mustID(t, 0x02), Addr: "a"}
	rt.PeerOnline(p, nil)
	assert.Equal(t, 0, calls)
}

func TestGetAllAndContainsRoundTrip(t *testing.T) {
	rt := newTestTable(t, 4, time.Second, 1, nil)
	p := peer.Address{Id: mustID(t, 0x02), Addr: "a"}
	assert.True(t, rt.PeerOnline(p, nil))

	assert.True(t, rt.Contains(p.Id))
	all := rt.GetAll()
	assert.Len(t, all, 1)
	assert.True(t, all[0].Equal(p))
}

func TestAddressFilterBlocksAdmission(t *testing.T) {
	rt := newTestTable(t, 4, time.Second, 1, nil)
	rt.AddAddressFilter("blocked:1234")

	p := peer.Address{Id: mustID(t, 0x02), Addr: "blocked:1234"}
	assert.False(t, rt.PeerOnline(p, nil))
}
