package commands

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/boreq/guinea"
	"github.com/pkg/errors"

	"github.com/openkad/kadroute/id"
	"github.com/openkad/kadroute/peer"
	"github.com/openkad/kadroute/routingtable"
	"github.com/openkad/kadroute/utils"
)

var serveLog = utils.Logger("commands.serve")

var serveCmd = guinea.Command{
	Run:              runServe,
	ShortDescription: "runs the maintenance loop",
	Description: `
Loads the config, builds a routing table, seeds it with the configured
bootstrap peers and runs the liveness maintenance loop until interrupted.`,
}

// Pinger is the probing-layer collaborator the routing table treats as
// external: something that can attempt to reach a peer and report whether
// it answered. The real implementation lives in the transport layer, out of
// scope here; stubPinger below stands in for it.
type Pinger interface {
	Ping(p peer.Address) bool
}

// stubPinger never succeeds. It exists so `serve` is runnable and
// observable (insertions from bootstrap, eviction from failed maintenance
// probes) without requiring a real transport.
type stubPinger struct{}

func (stubPinger) Ping(p peer.Address) bool {
	return false
}

func runServe(c guinea.Context) error {
	conf, err := GetConfig()
	if err != nil {
		return errors.Wrap(err, "loading config")
	}
	self, err := conf.Self()
	if err != nil {
		return errors.Wrap(err, "parsing self id")
	}

	rt, err := routingtable.New(routingtable.Config{
		Self:                       self,
		BagSize:                    conf.BagSize,
		CacheSize:                  conf.CacheSize,
		CacheTimeout:               conf.CacheTimeout(),
		MaxFail:                    conf.MaxFail,
		MaintenanceTimeoutsSeconds: conf.MaintenanceTimeoutsSeconds,
	})
	if err != nil {
		return errors.Wrap(err, "constructing routing table")
	}

	cancelIns := rt.OnInserted(func(p peer.Address) { fmt.Printf("+ %s %s\n", p.Id, p.Addr) })
	cancelRem := rt.OnRemoved(func(p peer.Address) { fmt.Printf("- %s %s\n", p.Id, p.Addr) })
	defer cancelIns()
	defer cancelRem()

	for _, addr := range conf.Bootstrap {
		bootstrapID, err := randomBootstrapID()
		if err != nil {
			return errors.Wrap(err, "generating bootstrap placeholder id")
		}
		rt.PeerOnline(peer.Address{Id: bootstrapID, Addr: addr}, nil)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	pinger := Pinger(stubPinger{})
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			for _, p := range rt.PeersForMaintenance() {
				if pinger.Ping(p) {
					rt.PeerOnline(p, nil)
				} else {
					rt.PeerOffline(p, false)
				}
			}
			serveLog.Printf("size=%d", rt.Size())
		}
	}
}

// randomBootstrapID mints a placeholder id for a bootstrap address whose
// real id isn't known yet. This is a CLI-only convenience: a real bootstrap
// handshake would learn the peer's actual id from its first response.
func randomBootstrapID() (id.Id, error) {
	return id.Random()
}
