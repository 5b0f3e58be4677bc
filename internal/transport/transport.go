// Package transport implements the Transport Manager: createWebRTCIngress,
// createWebRTCEgress, connectWebRTC, restartIce, and disconnectTransport's
// cascading cleanup of every producer/consumer/data entity hung off a
// peer's transport.
package transport

import (
	"fmt"

	"github.com/google/uuid"

	"aq-media-node/internal/mediaengine"
	"aq-media-node/internal/registry"
	"aq-media-node/internal/relay"
	"aq-media-node/internal/router"
)

// Manager owns peer transport lifecycle.
type Manager struct {
	reg     *registry.Registry
	routers *router.Manager
	relays  *relay.Manager
}

func New(reg *registry.Registry, routers *router.Manager, relays *relay.Manager) *Manager {
	return &Manager{reg: reg, routers: routers, relays: relays}
}

// Created is returned to the dispatcher so it can reply with the transport
// parameters the client needs to complete its own ICE/DTLS setup.
type Created struct {
	TransportID    uuid.UUID
	Ice            mediaengine.IceParameters
	IceCandidates  []mediaengine.IceCandidate
	Dtls           mediaengine.DtlsParameters
	Sctp           mediaengine.SctpParameters
}

// CreateIngress creates (or returns the existing) WebRTC ingress transport
// for peer in room, placed on whichever router in the room's group the
// load selector picks (SPEC_FULL.md §4.D — never a client-supplied worker
// id). routerPipes names the egress node ids this ingress router should
// relay to; a pipe relay is created toward each one that doesn't already
// have one, and the resulting storePipeRelay payloads are returned for the
// dispatcher to forward.
func (m *Manager) CreateIngress(room string, peer uuid.UUID, opts mediaengine.WebRtcTransportOptions, routerPipes []uuid.UUID) (Created, []relay.IngressRelayResult, error) {
	return m.create(room, peer, opts, true, routerPipes)
}

// CreateEgress creates (or returns the existing) WebRTC egress transport
// for peer in room. Egress transports never initiate a relay themselves —
// that is exclusively the ingress side's responsibility.
func (m *Manager) CreateEgress(room string, peer uuid.UUID, opts mediaengine.WebRtcTransportOptions) (Created, error) {
	created, _, err := m.create(room, peer, opts, false, nil)
	return created, err
}

func (m *Manager) create(room string, peer uuid.UUID, opts mediaengine.WebRtcTransportOptions, ingress bool, routerPipes []uuid.UUID) (Created, []relay.IngressRelayResult, error) {
	if existing, ok := m.reg.GetTransport(peer); ok {
		return snapshot(existing), nil, nil
	}

	rt, err := m.routers.SelectRouter(room)
	if err != nil {
		return Created{}, nil, fmt.Errorf("transport: %w", err)
	}

	if w, ok := m.reg.GetWorker(rt.WorkerID()); ok && len(opts.ListenInfos) == 0 {
		opts.ListenInfos = w.WebRtcServer().ListenInfos()
	}

	t, err := rt.CreateWebRtcTransport(opts)
	if err != nil {
		return Created{}, nil, fmt.Errorf("transport: create webrtc transport: %w", err)
	}

	m.reg.PutTransport(peer, t)
	m.reg.PutTransportRouter(t.ID(), rt.ID())
	m.reg.PutEndpoint(t.ID(), peer)

	if !ingress || len(routerPipes) == 0 {
		return snapshot(t), nil, nil
	}

	relays, err := m.relays.CreateIngressRelay(room, rt.ID(), routerPipes, mediaengine.ListenInfo{})
	if err != nil {
		return snapshot(t), nil, fmt.Errorf("transport: create ingress relay: %w", err)
	}
	return snapshot(t), relays, nil
}

func snapshot(t mediaengine.WebRtcTransport) Created {
	return Created{
		TransportID:   t.ID(),
		Ice:           t.IceParameters(),
		IceCandidates: t.IceCandidates(),
		Dtls:          t.DtlsParameters(),
		Sctp:          t.SctpParameters(),
	}
}

// Connect completes the DTLS handshake for peer's transport.
func (m *Manager) Connect(peer uuid.UUID, remote mediaengine.DtlsParameters) error {
	t, ok := m.reg.GetTransport(peer)
	if !ok {
		return fmt.Errorf("transport: no transport for peer %s", peer)
	}
	return t.Connect(remote)
}

// RestartIce regenerates and returns fresh ICE credentials for peer's
// transport.
func (m *Manager) RestartIce(peer uuid.UUID) (mediaengine.IceParameters, error) {
	t, ok := m.reg.GetTransport(peer)
	if !ok {
		return mediaengine.IceParameters{}, fmt.Errorf("transport: no transport for peer %s", peer)
	}
	return t.RestartIce()
}

// Disconnect closes peer's transport and cascades cleanup of every
// producer peer owns and of every consumer and dedup-set entry in which
// peer is the consumer. It is the path taken by a disconnectTransport
// request. Consumers that other peers hold on peer's producers, and the
// dedup-set entries recording them, are not removed here.
func (m *Manager) Disconnect(peer uuid.UUID) {
	if t, ok := m.reg.GetTransport(peer); ok {
		if routerID, ok := m.reg.TransportRouter(t.ID()); ok {
			m.routers.ReleaseRouter(routerID)
		}
		m.reg.DeleteTransportRouter(t.ID())
		m.reg.DeleteEndpoint(t.ID())
		t.Close()
	}
	m.reg.DeleteTransport(peer)

	for _, id := range m.reg.AudioProducers(peer) {
		if p, ok := m.reg.GetProducerHandle(id); ok {
			p.Close()
		}
		m.reg.DeleteProducerHandle(id)
	}
	m.reg.DeleteAudioProducers(peer)

	for _, id := range m.reg.VideoProducers(peer) {
		if p, ok := m.reg.GetProducerHandle(id); ok {
			p.Close()
		}
		m.reg.DeleteProducerHandle(id)
	}
	m.reg.DeleteVideoProducers(peer)

	if id, ok := m.reg.EventProducer(peer); ok {
		if p, ok := m.reg.GetDataProducerHandle(id); ok {
			p.Close()
		}
		m.reg.DeleteDataProducerHandle(id)
		m.reg.DeleteEventProducer(peer)
	}

	if id, ok := m.reg.MovementProducer(peer); ok {
		if p, ok := m.reg.GetDataProducerHandle(id); ok {
			p.Close()
		}
		m.reg.DeleteDataProducerHandle(id)
		m.reg.DeleteMovementProducer(peer)
	}

	for _, id := range m.reg.ClearConsumed(peer) {
		if c, ok := m.reg.GetConsumerHandle(id); ok {
			c.Close()
		}
		m.reg.DeleteConsumerHandle(id)
	}
	for _, id := range m.reg.ClearAudioConsumed(peer) {
		if c, ok := m.reg.GetConsumerHandle(id); ok {
			c.Close()
		}
		m.reg.DeleteConsumerHandle(id)
	}
	for _, id := range m.reg.ClearDataConsumed(peer) {
		if c, ok := m.reg.GetDataConsumerHandle(id); ok {
			c.Close()
		}
		m.reg.DeleteDataConsumerHandle(id)
	}
	for _, id := range m.reg.ClearMovementConsumed(peer) {
		if c, ok := m.reg.GetDataConsumerHandle(id); ok {
			c.Close()
		}
		m.reg.DeleteDataConsumerHandle(id)
	}
}
