// Package commands implements the kadroute command line front end: a
// thin guinea-based shell around the routingtable library, standing in for
// the transport/probing layer the library itself treats as an external
// collaborator.
package commands

import "github.com/boreq/guinea"

var MainCmd = guinea.Command{
	Run: func(c guinea.Context) error {
		return guinea.ErrInvalidParms
	},
	Subcommands: map[string]*guinea.Command{
		"init":     &initCmd,
		"identity": &identityCmd,
		"serve":    &serveCmd,
	},
	ShortDescription: "a Kademlia-style routing table node",
	Description: `
kadroute maintains a bucketed, XOR-distance routing table and drives its
liveness maintenance loop against a configurable set of bootstrap peers.`,
}
