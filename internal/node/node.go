// Package node wires every component into one running media node: the
// registry, the media-engine workers, the router/transport/relay/producer
// managers, and the dispatcher driving the control link.
package node

import (
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"aq-media-node/internal/codec"
	"aq-media-node/internal/config"
	"aq-media-node/internal/dispatcher"
	"aq-media-node/internal/keepalive"
	"aq-media-node/internal/loadselector"
	"aq-media-node/internal/mediaengine"
	"aq-media-node/internal/producer"
	"aq-media-node/internal/registry"
	"aq-media-node/internal/relay"
	"aq-media-node/internal/router"
	"aq-media-node/internal/transport"
)

// Node owns every long-lived component of a running media node.
type Node struct {
	ID     uuid.UUID
	Config *config.Config

	Registry   *registry.Registry
	Selector   *loadselector.Selector
	Routers    *router.Manager
	Transports *transport.Manager
	Relays     *relay.Manager
	Producers  *producer.Manager
}

// New constructs a node with cfg.Workers media-engine workers already
// started, ready to be handed to a Dispatcher.
func New(cfg *config.Config) *Node {
	reg := registry.New()
	engine := mediaengine.NewInMemoryEngine()

	for i := 0; i < cfg.Workers; i++ {
		listenInfos := []mediaengine.ListenInfo{{
			Protocol: "udp",
			IP:       net.IPv4zero,
			Port:     uint16(cfg.PortTransport + i),
		}}
		if cfg.TraverseNAT {
			listenInfos[0].AnnouncedIP = net.ParseIP(cfg.AnnounceIP)
		}
		w := engine.NewWorker(listenInfos)
		reg.PutWorker(w)
	}

	id := uuid.New()
	selector := loadselector.New(reg)
	routers := router.New(reg, selector)
	relays := relay.New(reg, routers, id)
	transports := transport.New(reg, routers, relays)
	producers := producer.New(reg, relays)

	return &Node{
		ID:         id,
		Config:     cfg,
		Registry:   reg,
		Selector:   selector,
		Routers:    routers,
		Transports: transports,
		Relays:     relays,
		Producers:  producers,
	}
}

// Serve dials the signaling service and runs the dispatcher loop until the
// control link fails, at which point the process exits (see
// dispatcher.Dispatcher.Run). A keepalive.Monitor watches for a control
// link that has gone quiet without an explicit read/write error and exits
// the process the same way, since a stalled link is operationally
// indistinguishable from a dead one.
func (n *Node) Serve(pionLogger logging.LeveledLogger) error {
	conn, err := net.Dial("tcp", n.Config.SignalingURL)
	if err != nil {
		return fmt.Errorf("node: dial signaling service %s: %w", n.Config.SignalingURL, err)
	}

	stdLog := log.New(levelWriter{pionLogger}, "", 0)

	cfg := keepalive.DefaultConfig()
	if n.Config.KeepaliveIntervalSec > 0 {
		cfg.CheckInterval = time.Duration(n.Config.KeepaliveIntervalSec) * time.Second
	}
	if n.Config.KeepaliveTimeoutSec > 0 {
		cfg.StaleAfter = time.Duration(n.Config.KeepaliveTimeoutSec) * time.Second
	}
	monitor := keepalive.NewMonitor(pionLogger, cfg, func() { os.Exit(1) })
	monitor.Start()

	c := codec.NewServerCodec(conn)
	d := dispatcher.New(n.ID, n.Config.Region, c, n.Registry, n.Routers, n.Transports, n.Relays, n.Producers, stdLog, monitor.Touch)
	d.Run(n.Config.Ingress, n.Config.Egress)
	return nil
}

type levelWriter struct{ l logging.LeveledLogger }

func (w levelWriter) Write(p []byte) (int, error) {
	w.l.Infof("%s", string(p))
	return len(p), nil
}
