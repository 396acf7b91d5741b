// Package peer defines the opaque peer endpoint record tracked by the
// routing table, keyed by a 160-bit Id.
package peer

import "github.com/openkad/kadroute/id"

// Address is a record describing a reachable peer. Equality is by Id alone.
// Callers must not mutate an Address after handing it to the routing table.
type Address struct {
	Id id.Id

	// Addr is the network address in whatever form the transport layer
	// understands (e.g. "host:port"). The routing table treats it as an
	// opaque string.
	Addr string

	// FirewalledTCP marks a peer that announced itself as unreachable over
	// TCP. Such peers are never admitted into any bucket.
	FirewalledTCP bool
}

// Equal reports whether two addresses refer to the same peer id.
func (a Address) Equal(b Address) bool {
	return a.Id == b.Id
}
