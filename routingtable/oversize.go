package routingtable

import (
	"sync"

	"golang.org/x/tools/container/intsets"
)

// oversizeIndex tracks which bucket classes currently hold more entries
// than bagSize, so removeLatestEntryExceedingBagSize can find an eviction
// candidate without scanning all 160 buckets. Backed by
// intsets.Sparse behind a mutex, the same pattern the bcutil example uses
// for its sequence-number set.
type oversizeIndex struct {
	mu  sync.Mutex
	set intsets.Sparse
}

func (o *oversizeIndex) add(class int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.set.Insert(class)
}

func (o *oversizeIndex) remove(class int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.set.Remove(class)
}

func (o *oversizeIndex) contains(class int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.set.Has(class)
}

// snapshot returns the currently-oversize classes in ascending order.
func (o *oversizeIndex) snapshot() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]int, 0, o.set.Len())
	return o.set.AppendTo(out)
}
