// Package relay implements the Relay Manager: the ingress/egress pipe-relay
// handshake (storePipeRelay / connectPipeRelay), relay producer creation,
// and fan-out of a relayed producer onto every other router in the room.
//
// The handshake is asymmetric by design: the ingress node listens and
// records a PendingRelay; the egress node dials in using the parameters
// the ingress side published via storePipeRelay, then both sides call
// connectPipeRelay to flip the connection's is_connected bit. That flip
// must be idempotent and must persist — see FlipConnected in
// internal/registry, which fixes the upstream bug where the flip only
// ever touched a local copy of the relay record.
package relay

import (
	"fmt"
	"net"
	"os"

	"github.com/google/uuid"

	"aq-media-node/internal/mediaengine"
	"aq-media-node/internal/registry"
	"aq-media-node/internal/router"
)

// Manager owns inter-node pipe relay lifecycle.
type Manager struct {
	reg     *registry.Registry
	routers *router.Manager
	nodeID  uuid.UUID
	exit    func(code int)
}

func New(reg *registry.Registry, routers *router.Manager, nodeID uuid.UUID) *Manager {
	return &Manager{reg: reg, routers: routers, nodeID: nodeID, exit: os.Exit}
}

// StorePipeRelay is the ingress side's half of the handshake: it creates a
// PipeTransport on ingressRouter, listening, records its dial-in
// parameters as a PendingRelay, and returns them for the caller to forward.
// CreateRelayProducer does not read the PendingRelay; it dials the
// parameters passed to it.
func (m *Manager) StorePipeRelay(room string, ingressRouter uuid.UUID, listenInfo mediaengine.ListenInfo) (mediaengine.PipeTransportRemoteParameters, error) {
	rt, ok := m.reg.GetRouter(ingressRouter)
	if !ok {
		return mediaengine.PipeTransportRemoteParameters{}, fmt.Errorf("relay: unknown router %s", ingressRouter)
	}

	pipe, err := rt.CreatePipeTransport(mediaengine.PipeTransportOptions{
		ListenInfo: listenInfo,
		EnableSrtp: true,
	})
	if err != nil {
		return mediaengine.PipeTransportRemoteParameters{}, fmt.Errorf("relay: create pipe transport: %w", err)
	}

	m.reg.PutPipeTransport(pipe.ID(), registry.PipeTransportRecord{Room: room, Pipe: pipe})
	m.reg.PutPendingRelay(ingressRouter, registry.PendingRelay{
		IP:   pipe.ListenIP().String(),
		Port: pipe.Port(),
		Srtp: pipe.Srtp(),
	})

	return mediaengine.PipeTransportRemoteParameters{
		IP:   pipe.ListenIP(),
		Port: pipe.Port(),
		Srtp: pipe.Srtp(),
	}, nil
}

// IngressRelayResult is one outbound storePipeRelay payload produced by
// CreateIngressRelay, one per egress node that did not already have a
// relay from ingressRouter.
type IngressRelayResult struct {
	Room          string
	IngressRouter uuid.UUID
	EgressNode    uuid.UUID
	IP            net.IP
	Port          uint16
	Srtp          mediaengine.SrtpParameters
}

// CreateIngressRelay is the ingress side of the pipe relay handshake
// (create_ingress_relay, SPEC_FULL.md §4.G), triggered automatically by
// ingress transport creation for every egress node id the transport was
// created with. An egress node that already has a relay from
// ingressRouter is skipped — the Relays table is the source of truth for
// that idempotency check, not a side channel.
func (m *Manager) CreateIngressRelay(room string, ingressRouter uuid.UUID, egressNodes []uuid.UUID, listenInfo mediaengine.ListenInfo) ([]IngressRelayResult, error) {
	rt, ok := m.reg.GetRouter(ingressRouter)
	if !ok {
		return nil, fmt.Errorf("relay: unknown router %s", ingressRouter)
	}

	var results []IngressRelayResult
	for _, egress := range egressNodes {
		key := registry.RelayKey{IngressRouter: ingressRouter, EgressNode: egress}
		if _, ok := m.reg.GetRelay(key); ok {
			continue
		}

		pipe, err := rt.CreatePipeTransport(mediaengine.PipeTransportOptions{
			ListenInfo: listenInfo,
			EnableSrtp: true,
		})
		if err != nil {
			return results, fmt.Errorf("relay: create pipe transport: %w", err)
		}

		m.reg.PutPipeTransport(pipe.ID(), registry.PipeTransportRecord{Room: room, Pipe: pipe})
		m.reg.PutRelay(key, registry.RelayRecord{Room: room, TransportID: pipe.ID(), IsConnected: false})
		m.reg.PutPendingRelay(ingressRouter, registry.PendingRelay{
			IP:   pipe.ListenIP().String(),
			Port: pipe.Port(),
			Srtp: pipe.Srtp(),
		})

		results = append(results, IngressRelayResult{
			Room:          room,
			IngressRouter: ingressRouter,
			EgressNode:    egress,
			IP:            pipe.ListenIP(),
			Port:          pipe.Port(),
			Srtp:          pipe.Srtp(),
		})
	}
	return results, nil
}

// MediaMirror is one outbound createRelayProducer payload produced by
// MirrorMediaProducer, carrying enough state for the egress node to
// reconstruct the producer on its side.
type MediaMirror struct {
	Room       string
	EgressNode uuid.UUID
	ProducerID uuid.UUID
	Kind       mediaengine.MediaKind
	Rtp        mediaengine.RtpParameters
	AppData    mediaengine.AppData
}

// MirrorMediaProducer is the producer-mirroring half of the Relay Manager
// (relay_producer, SPEC_FULL.md §4.G/§4.H point 2): for every egress node
// already relayed from ingressRouter, it creates a local consumer on that
// relay's pipe transport so the media actually flows, and returns the
// payload the dispatcher should forward as createRelayProducer so the
// egress node can reconstruct the producer.
func (m *Manager) MirrorMediaProducer(ingressRouter, producerID uuid.UUID, kind mediaengine.MediaKind, rtp mediaengine.RtpParameters, appData mediaengine.AppData) []MediaMirror {
	var out []MediaMirror
	for _, key := range m.reg.RelaysForRouter(ingressRouter) {
		rec, ok := m.reg.GetRelay(key)
		if !ok {
			continue
		}
		pipeRec, ok := m.reg.GetPipeTransport(rec.TransportID)
		if !ok {
			continue
		}
		if _, err := pipeRec.Pipe.Consume(producerID); err != nil {
			continue
		}
		out = append(out, MediaMirror{Room: rec.Room, EgressNode: key.EgressNode, ProducerID: producerID, Kind: kind, Rtp: rtp, AppData: appData})
	}
	return out
}

// DataMirror is MediaMirror's data-producer counterpart.
type DataMirror struct {
	Room           string
	EgressNode     uuid.UUID
	DataProducerID uuid.UUID
	Label          mediaengine.DataLabel
	Sctp           mediaengine.SctpStreamParameters
	AppData        mediaengine.AppData
}

// MirrorDataProducer is MirrorMediaProducer's data-producer counterpart.
func (m *Manager) MirrorDataProducer(ingressRouter, dataProducerID uuid.UUID, label mediaengine.DataLabel, sctp mediaengine.SctpStreamParameters, appData mediaengine.AppData) []DataMirror {
	var out []DataMirror
	for _, key := range m.reg.RelaysForRouter(ingressRouter) {
		rec, ok := m.reg.GetRelay(key)
		if !ok {
			continue
		}
		pipeRec, ok := m.reg.GetPipeTransport(rec.TransportID)
		if !ok {
			continue
		}
		if _, err := pipeRec.Pipe.ConsumeData(dataProducerID); err != nil {
			continue
		}
		out = append(out, DataMirror{Room: rec.Room, EgressNode: key.EgressNode, DataProducerID: dataProducerID, Label: label, Sctp: sctp, AppData: appData})
	}
	return out
}

// CreateRelayProducer is the egress side's half of the handshake: it
// creates its own PipeTransport on localRouter, dials the ingress side's
// published parameters, and registers the relay under (ingressRouter,
// egressNode) pending connectPipeRelay. If a relay already exists for
// (ingressRouter, egressNode), this is a no-op success — per SPEC_FULL.md
// §4.G, re-running create_egress_relay must never regress an
// already-connected relay's is_connected bit or leak a second pipe
// transport.
func (m *Manager) CreateRelayProducer(room string, localRouter, ingressRouter, egressNode uuid.UUID, remote mediaengine.PipeTransportRemoteParameters) (uuid.UUID, error) {
	key := registry.RelayKey{IngressRouter: ingressRouter, EgressNode: egressNode}
	if existing, ok := m.reg.GetRelay(key); ok {
		return existing.TransportID, nil
	}

	rt, ok := m.reg.GetRouter(localRouter)
	if !ok {
		return uuid.Nil, fmt.Errorf("relay: unknown router %s", localRouter)
	}

	pipe, err := rt.CreatePipeTransport(mediaengine.PipeTransportOptions{
		ListenInfo: mediaengine.ListenInfo{IP: remote.IP},
		EnableSrtp: true,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("relay: create pipe transport: %w", err)
	}
	if err := pipe.Connect(remote); err != nil {
		return uuid.Nil, fmt.Errorf("relay: connect pipe transport: %w", err)
	}

	m.reg.PutPipeTransport(pipe.ID(), registry.PipeTransportRecord{Room: room, Pipe: pipe})
	m.reg.PutRelayRouter(ingressRouter, localRouter)
	m.reg.PutRelay(key, registry.RelayRecord{Room: room, TransportID: pipe.ID(), IsConnected: false})

	return pipe.ID(), nil
}

// ConnectPipeRelay flips the named relay's connected bit. Per the
// idempotency law in SPEC_FULL.md §8, calling this on an already-connected
// relay is a benign success, not an error — fixing the upstream behavior
// of returning an error string in that case.
func (m *Manager) ConnectPipeRelay(ingressRouter, egressNode uuid.UUID) error {
	key := registry.RelayKey{IngressRouter: ingressRouter, EgressNode: egressNode}
	if _, ok := m.reg.GetRelay(key); !ok {
		return fmt.Errorf("relay: unknown relay for router %s / node %s", ingressRouter, egressNode)
	}
	m.reg.FlipConnected(key)
	return nil
}

// PipeProducer fans producerID out from sourceRouter to every other router
// in room on this node. It does not pipe anything across a relay.
//
// If either the source or destination router has been closed concurrently,
// this node exits: a mid-fan-out closed router means the room topology is
// inconsistent in a way the control plane has no recovery path for, so the
// design intentionally fails hard rather than leaving a half-piped room.
func (m *Manager) PipeProducer(room string, sourceRouter uuid.UUID, producerID uuid.UUID) {
	src, ok := m.reg.GetRouter(sourceRouter)
	if !ok || src.Closed() {
		m.fatal("relay: source router %s missing or closed during fan-out", sourceRouter)
		return
	}

	for _, dest := range m.routers.OtherRouters(room, sourceRouter) {
		if dest.Closed() {
			m.fatal("relay: destination router %s closed during fan-out", dest.ID())
			return
		}
		if err := src.PipeProducerToRouter(producerID, dest); err != nil {
			m.fatal("relay: pipe producer %s to router %s: %v", producerID, dest.ID(), err)
			return
		}
	}
}

// PipeDataProducer is PipeProducer's data-channel counterpart.
func (m *Manager) PipeDataProducer(room string, sourceRouter uuid.UUID, dataProducerID uuid.UUID) {
	src, ok := m.reg.GetRouter(sourceRouter)
	if !ok || src.Closed() {
		m.fatal("relay: source router %s missing or closed during fan-out", sourceRouter)
		return
	}

	for _, dest := range m.routers.OtherRouters(room, sourceRouter) {
		if dest.Closed() {
			m.fatal("relay: destination router %s closed during fan-out", dest.ID())
			return
		}
		if err := src.PipeDataProducerToRouter(dataProducerID, dest); err != nil {
			m.fatal("relay: pipe data producer %s to router %s: %v", dataProducerID, dest.ID(), err)
			return
		}
	}
}

// DestroyRoom releases every relay-side record tied to room: pending
// listen parameters on routerIDs (the ingress side's half of a handshake
// that was never dialed), and every relay and pipe transport recorded
// against room on either side of the handshake. Per the PendingRelay
// invariant, these are otherwise only ever removed here, on room teardown.
func (m *Manager) DestroyRoom(room string, routerIDs []uuid.UUID) {
	for _, id := range routerIDs {
		m.reg.DeletePendingRelay(id)
	}

	for _, key := range m.reg.RelayKeysForRoom(room) {
		m.reg.DeleteRelayRouter(key.IngressRouter)
		m.reg.DeleteRelay(key)
	}

	for _, id := range m.reg.PipeTransportIDsForRoom(room) {
		if rec, ok := m.reg.GetPipeTransport(id); ok {
			rec.Pipe.Close()
		}
		m.reg.DeletePipeTransport(id)
	}
}

func (m *Manager) fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	m.exit(1)
}
