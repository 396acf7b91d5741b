package routingtable

import "github.com/openkad/kadroute/id"

// NumBuckets is the number of distance classes a 160-bit id space admits.
const NumBuckets = id.Len * 8

// buckets is the fixed 160-slot bucket array plus the oversize index that
// tracks which of those slots currently exceed bagSize.
type buckets struct {
	self     id.Id
	bucket   [NumBuckets]*bucket
	oversize oversizeIndex
}

func newBuckets(self id.Id) *buckets {
	b := &buckets{self: self}
	for i := range b.bucket {
		b.bucket[i] = newBucket()
	}
	return b
}

// classOf returns the bucket class other falls into relative to self, or -1
// if other equals self (no valid class - self is never bucketed).
func classOf(self, other id.Id) int {
	if self == other {
		return -1
	}
	return self.Xor(other).BitLength() - 1
}
