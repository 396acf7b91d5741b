// Package id implements the 160-bit node identifier used to index the
// routing table: a fixed-length unsigned integer with an XOR distance
// metric, a bit-length primitive used to derive bucket classes, and a total
// order by unsigned magnitude.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"math/bits"
)

// Len is the length of an Id in bytes (160 bits).
const Len = 20

// Id is a 160-bit unsigned integer, stored big-endian (byte 0 holds the most
// significant 8 bits).
type Id [Len]byte

// Zero is the all-zero sentinel. It is never a valid peer id.
var Zero = Id{}

// Max is the all-ones sentinel, the largest possible Id.
var Max = func() Id {
	var m Id
	for i := range m {
		m[i] = 0xff
	}
	return m
}()

// IsZero reports whether id is the all-zero sentinel.
func (a Id) IsZero() bool {
	return a == Zero
}

// Xor returns the bitwise exclusive-or of a and b, the Kademlia distance
// metric.
func (a Id) Xor(b Id) Id {
	var r Id
	for i := range a {
		r[i] = a[i] ^ b[i]
	}
	return r
}

// BitLength returns the index of the most significant set bit plus one, or
// zero when every bit is zero. For two distinct ids a, b,
// BitLength(a.Xor(b))-1 is the Kademlia bucket class that b falls into
// relative to a.
func (a Id) BitLength() int {
	for i := 0; i < Len; i++ {
		if a[i] != 0 {
			return (Len-1-i)*8 + bits.Len8(a[i])
		}
	}
	return 0
}

// Compare returns -1, 0 or +1 as a is less than, equal to, or greater than b
// when interpreted as unsigned integers.
func (a Id) Compare(b Id) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports whether a is strictly smaller than b.
func (a Id) Less(b Id) bool {
	return a.Compare(b) < 0
}

// String renders the id as lowercase hex.
func (a Id) String() string {
	return hex.EncodeToString(a[:])
}

// Parse decodes a hex-encoded id. It fails unless the decoded value is
// exactly Len bytes long.
func Parse(s string) (Id, error) {
	var out Id
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != Len {
		return out, errInvalidLength
	}
	copy(out[:], b)
	return out, nil
}

// Random generates a cryptographically random id. It is used to mint a
// fresh self identity; it is not a cryptographic identity proof, and nothing
// here authenticates that a peer actually owns the id it presents.
func Random() (Id, error) {
	var out Id
	_, err := rand.Read(out[:])
	return out, err
}

var errInvalidLength = &lengthError{}

type lengthError struct{}

func (*lengthError) Error() string {
	return "id: decoded value is not 20 bytes long"
}
