// Package producer implements the Producer/Consumer Manager: media and data
// producer creation, the four consume variants (audio, video, movement
// data, event data), and pause/resume/close.
//
// Three upstream behaviors are fixed here rather than replicated, per the
// Design Notes in SPEC_FULL.md:
//   - producerPause/producerResume report the actual resulting paused
//     state instead of hardcoding paused:true.
//   - producerClose/producerPause/producerResume dispatch against the
//     producer's actual media kind instead of always assuming video.
//   - the video producer's close callback now runs the same consumer
//     cleanup the audio producer's callback always did.
package producer

import (
	"fmt"

	"github.com/google/uuid"

	"aq-media-node/internal/mediaengine"
	"aq-media-node/internal/registry"
	"aq-media-node/internal/relay"
)

// Manager owns producer/consumer creation, pause/resume/close, and the
// peer-scoped dedup bookkeeping that prevents a peer from double-consuming
// the same producer.
type Manager struct {
	reg    *registry.Registry
	relays *relay.Manager
}

func New(reg *registry.Registry, relays *relay.Manager) *Manager {
	return &Manager{reg: reg, relays: relays}
}

// producingRouter returns the router peer's transport is placed on, for
// producer-mirroring lookups. A peer with no transport or no relay
// manager mirrors nothing, matching the single-node (no relays configured)
// deployment case.
func (m *Manager) producingRouter(peer uuid.UUID) (uuid.UUID, bool) {
	if m.relays == nil {
		return uuid.Nil, false
	}
	t, ok := m.reg.GetTransport(peer)
	if !ok {
		return uuid.Nil, false
	}
	return m.reg.TransportRouter(t.ID())
}

// CreateMediaProducer creates an audio or video producer on peer's
// transport, records it under the appropriate per-kind table, and mirrors
// it onto every egress node already relayed from peer's router
// (create_consumer_relay, SPEC_FULL.md §4.G/§4.H). The returned mirrors
// are createRelayProducer payloads the dispatcher must forward.
func (m *Manager) CreateMediaProducer(peer uuid.UUID, kind mediaengine.MediaKind, rtp mediaengine.RtpParameters, appData mediaengine.AppData) (uuid.UUID, []relay.MediaMirror, error) {
	t, ok := m.reg.GetTransport(peer)
	if !ok {
		return uuid.Nil, nil, fmt.Errorf("producer: no transport for peer %s", peer)
	}

	p, err := t.Produce(kind, rtp, appData)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("producer: produce: %w", err)
	}

	m.reg.PutProducerHandle(p)
	switch kind {
	case mediaengine.KindAudio:
		m.reg.AddAudioProducer(peer, p.ID())
		p.OnClose(func() { m.closeCleanup(peer, p.ID(), mediaengine.KindAudio) })
	case mediaengine.KindVideo:
		m.reg.AddVideoProducer(peer, p.ID())
		p.OnClose(func() { m.closeCleanup(peer, p.ID(), mediaengine.KindVideo) })
	}

	var mirrors []relay.MediaMirror
	if routerID, ok := m.producingRouter(peer); ok {
		mirrors = m.relays.MirrorMediaProducer(routerID, p.ID(), kind, rtp, appData)
	}

	return p.ID(), mirrors, nil
}

// CreateDataProducer creates an event- or movement-data producer on peer's
// transport and mirrors it the same way CreateMediaProducer does. Only one
// data producer per peer per label may exist at a time; calling this again
// with the same label replaces the stored handle without closing the
// previous one, matching the idempotent-by-label semantics described in
// SPEC_FULL.md §4.H.
func (m *Manager) CreateDataProducer(peer uuid.UUID, label mediaengine.DataLabel, sctp mediaengine.SctpStreamParameters, appData mediaengine.AppData) (uuid.UUID, []relay.DataMirror, error) {
	t, ok := m.reg.GetTransport(peer)
	if !ok {
		return uuid.Nil, nil, fmt.Errorf("producer: no transport for peer %s", peer)
	}

	p, err := t.ProduceData(label, sctp, appData)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("producer: produce data: %w", err)
	}

	m.reg.PutDataProducerHandle(p)
	switch label {
	case mediaengine.LabelFrameEvents:
		m.reg.PutEventProducer(peer, p.ID())
	case mediaengine.LabelAvatarMovement:
		m.reg.PutMovementProducer(peer, p.ID())
	default:
		return uuid.Nil, nil, fmt.Errorf("producer: unrecognized data label %q", label)
	}

	var mirrors []relay.DataMirror
	if routerID, ok := m.producingRouter(peer); ok {
		mirrors = m.relays.MirrorDataProducer(routerID, p.ID(), label, sctp, appData)
	}

	return p.ID(), mirrors, nil
}

func (m *Manager) closeCleanup(peer, producerID uuid.UUID, kind mediaengine.MediaKind) {
	switch kind {
	case mediaengine.KindAudio:
		m.reg.RemoveAudioProducer(peer, producerID)
	case mediaengine.KindVideo:
		m.reg.RemoveVideoProducer(peer, producerID)
	}
	m.reg.DeleteProducerHandle(producerID)
}

// ConsumeAudio creates a consumer on consumerPeer's transport for every
// producer in producerIDs, skipping (not failing on) a producer that is
// already consumed by this peer, missing, or not consumable — per
// SPEC_FULL.md §4.H the request as a whole only fails if nothing could be
// unmarshaled at all. The dedup law itself is SPEC_FULL.md §8. The
// returned map is producer id -> consumer id, covering only the producers
// actually consumed this call.
func (m *Manager) ConsumeAudio(consumerPeer uuid.UUID, producerIDs []uuid.UUID, caps mediaengine.RtpParameters, appData mediaengine.AppData) map[uuid.UUID]uuid.UUID {
	out := make(map[uuid.UUID]uuid.UUID)
	for _, producerID := range producerIDs {
		if m.reg.HasAudioConsumed(consumerPeer, producerID) {
			continue
		}
		id, err := m.consumeMedia(consumerPeer, producerID, caps, appData)
		if err != nil {
			continue
		}
		m.reg.RecordAudioConsumed(consumerPeer, producerID, id)
		out[producerID] = id
	}
	return out
}

// ConsumeVideo is ConsumeAudio's video counterpart, using the general
// peer-consumed dedup set (video has no separate dedicated set in the
// original data model; see SPEC_FULL.md §3). Every consumer created this
// way also requests an initial key frame.
func (m *Manager) ConsumeVideo(consumerPeer uuid.UUID, producerIDs []uuid.UUID, caps mediaengine.RtpParameters, appData mediaengine.AppData) map[uuid.UUID]uuid.UUID {
	out := make(map[uuid.UUID]uuid.UUID)
	for _, producerID := range producerIDs {
		if m.reg.HasConsumed(consumerPeer, producerID) {
			continue
		}
		id, err := m.consumeMedia(consumerPeer, producerID, caps, appData)
		if err != nil {
			continue
		}
		m.reg.RecordConsumed(consumerPeer, producerID, id)
		if c, ok := m.reg.GetConsumerHandle(id); ok {
			c.RequestKeyFrame()
		}
		out[producerID] = id
	}
	return out
}

func (m *Manager) consumeMedia(consumerPeer, producerID uuid.UUID, caps mediaengine.RtpParameters, appData mediaengine.AppData) (uuid.UUID, error) {
	t, ok := m.reg.GetTransport(consumerPeer)
	if !ok {
		return uuid.Nil, fmt.Errorf("producer: no transport for peer %s", consumerPeer)
	}

	routerID, ok := m.reg.TransportRouter(t.ID())
	if !ok {
		return uuid.Nil, fmt.Errorf("producer: no router for transport %s", t.ID())
	}
	rt, ok := m.reg.GetRouter(routerID)
	if !ok {
		return uuid.Nil, fmt.Errorf("producer: unknown router %s", routerID)
	}
	if !rt.CanConsume(producerID, caps) {
		return uuid.Nil, fmt.Errorf("producer: router cannot consume producer %s with given capabilities", producerID)
	}

	c, err := t.Consume(producerID, caps, appData)
	if err != nil {
		return uuid.Nil, fmt.Errorf("producer: consume: %w", err)
	}
	m.reg.PutConsumerHandle(c)
	return c.ID(), nil
}

// ConsumeMovement creates a data consumer for every producer in
// dataProducerIDs against consumerPeer's movement-data dedup set,
// skip-not-fail per item like ConsumeAudio/ConsumeVideo.
func (m *Manager) ConsumeMovement(consumerPeer uuid.UUID, dataProducerIDs []uuid.UUID) map[uuid.UUID]uuid.UUID {
	out := make(map[uuid.UUID]uuid.UUID)
	for _, dataProducerID := range dataProducerIDs {
		if m.reg.HasMovementConsumed(consumerPeer, dataProducerID) {
			continue
		}
		id, err := m.consumeData(consumerPeer, dataProducerID)
		if err != nil {
			continue
		}
		m.reg.RecordMovementConsumed(consumerPeer, dataProducerID, id)
		out[dataProducerID] = id
	}
	return out
}

// ConsumeEvents is ConsumeMovement's frame-events counterpart.
func (m *Manager) ConsumeEvents(consumerPeer uuid.UUID, dataProducerIDs []uuid.UUID) map[uuid.UUID]uuid.UUID {
	out := make(map[uuid.UUID]uuid.UUID)
	for _, dataProducerID := range dataProducerIDs {
		if m.reg.HasDataConsumed(consumerPeer, dataProducerID) {
			continue
		}
		id, err := m.consumeData(consumerPeer, dataProducerID)
		if err != nil {
			continue
		}
		m.reg.RecordDataConsumed(consumerPeer, dataProducerID, id)
		out[dataProducerID] = id
	}
	return out
}

func (m *Manager) consumeData(consumerPeer, dataProducerID uuid.UUID) (uuid.UUID, error) {
	t, ok := m.reg.GetTransport(consumerPeer)
	if !ok {
		return uuid.Nil, fmt.Errorf("producer: no transport for peer %s", consumerPeer)
	}
	c, err := t.ConsumeData(dataProducerID, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("producer: consume data: %w", err)
	}
	m.reg.PutDataConsumerHandle(c)
	return c.ID(), nil
}

// ConsumerPause pauses the named consumer.
func (m *Manager) ConsumerPause(consumerID uuid.UUID) error {
	c, ok := m.reg.GetConsumerHandle(consumerID)
	if !ok {
		return fmt.Errorf("producer: unknown consumer %s", consumerID)
	}
	return c.Pause()
}

// ConsumerResume resumes the named consumer.
func (m *Manager) ConsumerResume(consumerID uuid.UUID) error {
	c, ok := m.reg.GetConsumerHandle(consumerID)
	if !ok {
		return fmt.Errorf("producer: unknown consumer %s", consumerID)
	}
	return c.Resume()
}

// ProducerPause pauses producerID and reports whether it ended up paused.
func (m *Manager) ProducerPause(producerID uuid.UUID) (bool, error) {
	p, ok := m.reg.GetProducerHandle(producerID)
	if !ok {
		return false, fmt.Errorf("producer: unknown producer %s", producerID)
	}
	if err := p.Pause(); err != nil {
		return false, err
	}
	return true, nil
}

// ProducerResume resumes producerID and reports whether it ended up paused
// (always false on success — kept as a return value for symmetry with
// ProducerPause and so the dispatcher can report actual state either way).
func (m *Manager) ProducerResume(producerID uuid.UUID) (bool, error) {
	p, ok := m.reg.GetProducerHandle(producerID)
	if !ok {
		return false, fmt.Errorf("producer: unknown producer %s", producerID)
	}
	if err := p.Resume(); err != nil {
		return false, err
	}
	return false, nil
}

// ProducerClose closes producerID. This method only tears down the
// media-engine object; its OnClose callback performs registry cleanup.
// No reply or announcement is produced for the close.
func (m *Manager) ProducerClose(producerID uuid.UUID) error {
	p, ok := m.reg.GetProducerHandle(producerID)
	if !ok {
		return fmt.Errorf("producer: unknown producer %s", producerID)
	}
	p.Close()
	return nil
}
