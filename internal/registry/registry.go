// Package registry holds the in-memory tables of every entity described by
// the media-graph data model: rooms, routers, workers, transports, relays,
// pipe transports, producers, consumers, and the peer-scoped dedup sets.
// Each table is independently locked; no cross-entity invariant is enforced
// here — that is the handlers' job (internal/router, internal/transport,
// internal/relay, internal/producer).
package registry

import (
	"sync"

	"github.com/google/uuid"

	"aq-media-node/internal/mediaengine"
)

// Registry is the single per-process state object. Every field is guarded
// independently so handlers never need to hold more than one lock at a time.
type Registry struct {
	rooms   roomRouters
	routers routers
	workers workers

	transports     transports
	transport2Router transport2Router
	endpoints      endpoints

	relays       relays
	relayRouters relayRouters
	pipes        pipeTransports
	pending      pendingRelays

	audioProducers audioProducers
	videoProducers videoProducers
	eventProducers dataProducerTable
	movementProducers dataProducerTable

	producers     producerHandles
	consumers     consumerHandles
	dataProducers dataProducerHandles
	dataConsumers dataConsumerHandles

	peerConsumed          dedupSet
	peerAudioConsumed     dedupSet
	peerDataConsumed      dedupSet
	peerMovementConsumed  dedupSet

	loads loads
}

func New() *Registry {
	return &Registry{
		rooms:             roomRouters{m: map[string][]uuid.UUID{}},
		routers:           routers{m: map[uuid.UUID]mediaengine.Router{}},
		workers:           workers{m: map[uuid.UUID]mediaengine.Worker{}},
		transports:        transports{m: map[uuid.UUID]mediaengine.WebRtcTransport{}},
		transport2Router:  transport2Router{m: map[uuid.UUID]uuid.UUID{}},
		endpoints:         endpoints{m: map[uuid.UUID]uuid.UUID{}},
		relays:            relays{m: map[RelayKey]RelayRecord{}},
		relayRouters:      relayRouters{m: map[uuid.UUID]uuid.UUID{}},
		pipes:             pipeTransports{m: map[uuid.UUID]PipeTransportRecord{}},
		pending:           pendingRelays{m: map[uuid.UUID]PendingRelay{}},
		audioProducers:    audioProducers{m: map[uuid.UUID][]uuid.UUID{}},
		videoProducers:    videoProducers{m: map[uuid.UUID][]uuid.UUID{}},
		eventProducers:    dataProducerTable{m: map[uuid.UUID]uuid.UUID{}},
		movementProducers: dataProducerTable{m: map[uuid.UUID]uuid.UUID{}},
		producers:         producerHandles{m: map[uuid.UUID]mediaengine.Producer{}},
		consumers:         consumerHandles{m: map[uuid.UUID]mediaengine.Consumer{}},
		dataProducers:     dataProducerHandles{m: map[uuid.UUID]mediaengine.DataProducer{}},
		dataConsumers:     dataConsumerHandles{m: map[uuid.UUID]mediaengine.DataConsumer{}},
		peerConsumed:         newDedupSet(),
		peerAudioConsumed:    newDedupSet(),
		peerDataConsumed:     newDedupSet(),
		peerMovementConsumed: newDedupSet(),
		loads: loads{m: map[uuid.UUID]*LoadData{}},
	}
}

// --- Room -> Routers -------------------------------------------------------

type roomRouters struct {
	mu sync.Mutex
	m  map[string][]uuid.UUID
}

func (r *Registry) RoomRouters(room string) ([]uuid.UUID, bool) {
	r.rooms.mu.Lock()
	defer r.rooms.mu.Unlock()
	ids, ok := r.rooms.m[room]
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	return out, ok
}

func (r *Registry) CreateRoom(room string, routerIDs []uuid.UUID) {
	r.rooms.mu.Lock()
	defer r.rooms.mu.Unlock()
	r.rooms.m[room] = routerIDs
}

func (r *Registry) DeleteRoom(room string) {
	r.rooms.mu.Lock()
	defer r.rooms.mu.Unlock()
	delete(r.rooms.m, room)
}

func (r *Registry) AllRooms() map[string]int {
	r.rooms.mu.Lock()
	defer r.rooms.mu.Unlock()
	out := make(map[string]int, len(r.rooms.m))
	for room, ids := range r.rooms.m {
		out[room] = len(ids)
	}
	return out
}

// --- Routers ----------------------------------------------------------------

type routers struct {
	mu sync.Mutex
	m  map[uuid.UUID]mediaengine.Router
}

func (r *Registry) GetRouter(id uuid.UUID) (mediaengine.Router, bool) {
	r.routers.mu.Lock()
	defer r.routers.mu.Unlock()
	rt, ok := r.routers.m[id]
	return rt, ok
}

func (r *Registry) PutRouter(rt mediaengine.Router) {
	r.routers.mu.Lock()
	defer r.routers.mu.Unlock()
	r.routers.m[rt.ID()] = rt
}

func (r *Registry) DeleteRouter(id uuid.UUID) {
	r.routers.mu.Lock()
	defer r.routers.mu.Unlock()
	delete(r.routers.m, id)
}

// --- Workers ----------------------------------------------------------------

type workers struct {
	mu sync.RWMutex
	m  map[uuid.UUID]mediaengine.Worker
}

func (r *Registry) PutWorker(w mediaengine.Worker) {
	r.workers.mu.Lock()
	defer r.workers.mu.Unlock()
	r.workers.m[w.ID()] = w
}

func (r *Registry) AllWorkers() []mediaengine.Worker {
	r.workers.mu.RLock()
	defer r.workers.mu.RUnlock()
	out := make([]mediaengine.Worker, 0, len(r.workers.m))
	for _, w := range r.workers.m {
		out = append(out, w)
	}
	return out
}

func (r *Registry) GetWorker(id uuid.UUID) (mediaengine.Worker, bool) {
	r.workers.mu.RLock()
	defer r.workers.mu.RUnlock()
	w, ok := r.workers.m[id]
	return w, ok
}

// --- Router -> Worker (routers2Workers) -------------------------------------

// Router2Worker is tracked implicitly: router.WorkerID() is authoritative,
// so no separate table is needed (unlike original_source's Routers2Worker,
// which existed only because its Router handle did not expose its worker).

// --- Transports (peer -> transport) -----------------------------------------

type transports struct {
	mu sync.Mutex
	m  map[uuid.UUID]mediaengine.WebRtcTransport
}

func (r *Registry) GetTransport(peer uuid.UUID) (mediaengine.WebRtcTransport, bool) {
	r.transports.mu.Lock()
	defer r.transports.mu.Unlock()
	t, ok := r.transports.m[peer]
	return t, ok
}

func (r *Registry) PutTransport(peer uuid.UUID, t mediaengine.WebRtcTransport) {
	r.transports.mu.Lock()
	defer r.transports.mu.Unlock()
	r.transports.m[peer] = t
}

func (r *Registry) DeleteTransport(peer uuid.UUID) {
	r.transports.mu.Lock()
	defer r.transports.mu.Unlock()
	delete(r.transports.m, peer)
}

// TransportCount reports the number of live peer transports, for the
// health endpoint's activeTransports figure.
func (r *Registry) TransportCount() int {
	r.transports.mu.Lock()
	defer r.transports.mu.Unlock()
	return len(r.transports.m)
}

// --- Transport -> Router -----------------------------------------------------

type transport2Router struct {
	mu sync.Mutex
	m  map[uuid.UUID]uuid.UUID
}

func (r *Registry) TransportRouter(transportID uuid.UUID) (uuid.UUID, bool) {
	r.transport2Router.mu.Lock()
	defer r.transport2Router.mu.Unlock()
	id, ok := r.transport2Router.m[transportID]
	return id, ok
}

func (r *Registry) PutTransportRouter(transportID, routerID uuid.UUID) {
	r.transport2Router.mu.Lock()
	defer r.transport2Router.mu.Unlock()
	r.transport2Router.m[transportID] = routerID
}

func (r *Registry) DeleteTransportRouter(transportID uuid.UUID) {
	r.transport2Router.mu.Lock()
	defer r.transport2Router.mu.Unlock()
	delete(r.transport2Router.m, transportID)
}

// --- Endpoints (transport -> peer) ------------------------------------------

type endpoints struct {
	mu sync.Mutex
	m  map[uuid.UUID]uuid.UUID
}

func (r *Registry) PutEndpoint(transportID, peer uuid.UUID) {
	r.endpoints.mu.Lock()
	defer r.endpoints.mu.Unlock()
	r.endpoints.m[transportID] = peer
}

func (r *Registry) DeleteEndpoint(transportID uuid.UUID) {
	r.endpoints.mu.Lock()
	defer r.endpoints.mu.Unlock()
	delete(r.endpoints.m, transportID)
}

func (r *Registry) Endpoint(transportID uuid.UUID) (uuid.UUID, bool) {
	r.endpoints.mu.Lock()
	defer r.endpoints.mu.Unlock()
	p, ok := r.endpoints.m[transportID]
	return p, ok
}

// --- Relays -------------------------------------------------------------

// RelayKey uniquely identifies one inter-node pipe relay.
type RelayKey struct {
	IngressRouter uuid.UUID
	EgressNode    uuid.UUID
}

// RelayRecord is the stored state of one relay; IsConnected must only ever
// transition false -> true, and that transition must be visible to every
// caller who holds the Registry (fixing the source's local-copy bug: the
// stored record, not a copy of it, is what Flip mutates).
type RelayRecord struct {
	Room          string
	TransportID   uuid.UUID
	IsConnected   bool
}

type relays struct {
	mu sync.Mutex
	m  map[RelayKey]RelayRecord
}

func (r *Registry) GetRelay(key RelayKey) (RelayRecord, bool) {
	r.relays.mu.Lock()
	defer r.relays.mu.Unlock()
	rec, ok := r.relays.m[key]
	return rec, ok
}

func (r *Registry) PutRelay(key RelayKey, rec RelayRecord) {
	r.relays.mu.Lock()
	defer r.relays.mu.Unlock()
	r.relays.m[key] = rec
}

func (r *Registry) DeleteRelay(key RelayKey) {
	r.relays.mu.Lock()
	defer r.relays.mu.Unlock()
	delete(r.relays.m, key)
}

// RelaysForRouter returns every relay whose ingress router is routerID —
// the Rust source's Relays.get_router(id).
func (r *Registry) RelaysForRouter(routerID uuid.UUID) []RelayKey {
	r.relays.mu.Lock()
	defer r.relays.mu.Unlock()
	var out []RelayKey
	for k := range r.relays.m {
		if k.IngressRouter == routerID {
			out = append(out, k)
		}
	}
	return out
}

// FlipConnected marks key's relay connected exactly once, in place, and
// reports whether this call performed the transition (false if it was
// already connected, or the key does not exist).
func (r *Registry) FlipConnected(key RelayKey) bool {
	r.relays.mu.Lock()
	defer r.relays.mu.Unlock()
	rec, ok := r.relays.m[key]
	if !ok || rec.IsConnected {
		return false
	}
	rec.IsConnected = true
	r.relays.m[key] = rec
	return true
}

// RelayKeysForRoom returns every relay recorded against room, regardless
// of which side (ingress or egress) created it — used to tear down every
// inter-node relay touching a room when that room is destroyed.
func (r *Registry) RelayKeysForRoom(room string) []RelayKey {
	r.relays.mu.Lock()
	defer r.relays.mu.Unlock()
	var out []RelayKey
	for k, rec := range r.relays.m {
		if rec.Room == room {
			out = append(out, k)
		}
	}
	return out
}

func (r *Registry) RelaysByEgressNode(egressNode uuid.UUID) []RelayKey {
	r.relays.mu.Lock()
	defer r.relays.mu.Unlock()
	var out []RelayKey
	for k := range r.relays.m {
		if k.EgressNode == egressNode {
			out = append(out, k)
		}
	}
	return out
}

// --- RelayRouters (ingress router -> local mirror router) -------------------

type relayRouters struct {
	mu sync.Mutex
	m  map[uuid.UUID]uuid.UUID
}

func (r *Registry) GetRelayRouter(ingressRouter uuid.UUID) (uuid.UUID, bool) {
	r.relayRouters.mu.Lock()
	defer r.relayRouters.mu.Unlock()
	id, ok := r.relayRouters.m[ingressRouter]
	return id, ok
}

func (r *Registry) PutRelayRouter(ingressRouter, localRouter uuid.UUID) {
	r.relayRouters.mu.Lock()
	defer r.relayRouters.mu.Unlock()
	r.relayRouters.m[ingressRouter] = localRouter
}

func (r *Registry) DeleteRelayRouter(ingressRouter uuid.UUID) {
	r.relayRouters.mu.Lock()
	defer r.relayRouters.mu.Unlock()
	delete(r.relayRouters.m, ingressRouter)
}

// --- PipeTransports -----------------------------------------------------

type PipeTransportRecord struct {
	Room   string
	Pipe   mediaengine.PipeTransport
}

type pipeTransports struct {
	mu sync.Mutex
	m  map[uuid.UUID]PipeTransportRecord
}

func (r *Registry) GetPipeTransport(id uuid.UUID) (PipeTransportRecord, bool) {
	r.pipes.mu.Lock()
	defer r.pipes.mu.Unlock()
	rec, ok := r.pipes.m[id]
	return rec, ok
}

func (r *Registry) PutPipeTransport(id uuid.UUID, rec PipeTransportRecord) {
	r.pipes.mu.Lock()
	defer r.pipes.mu.Unlock()
	r.pipes.m[id] = rec
}

func (r *Registry) DeletePipeTransport(id uuid.UUID) {
	r.pipes.mu.Lock()
	defer r.pipes.mu.Unlock()
	delete(r.pipes.m, id)
}

// PipeTransportIDsForRoom returns every pipe transport recorded against
// room, whether or not it has been claimed by a relay yet — used to tear
// down listening pipes a room's ingress routers opened but that were
// never dialed.
func (r *Registry) PipeTransportIDsForRoom(room string) []uuid.UUID {
	r.pipes.mu.Lock()
	defer r.pipes.mu.Unlock()
	var out []uuid.UUID
	for id, rec := range r.pipes.m {
		if rec.Room == room {
			out = append(out, id)
		}
	}
	return out
}

// --- PendingRelays ------------------------------------------------------

// PendingRelay is a listening pipe's dial-in parameters, stored on the
// ingress node while it waits for the egress node to call back.
type PendingRelay struct {
	IP   string
	Port uint16
	Srtp mediaengine.SrtpParameters
}

type pendingRelays struct {
	mu sync.Mutex
	m  map[uuid.UUID]PendingRelay
}

func (r *Registry) GetPendingRelay(ingressRouter uuid.UUID) (PendingRelay, bool) {
	r.pending.mu.Lock()
	defer r.pending.mu.Unlock()
	p, ok := r.pending.m[ingressRouter]
	return p, ok
}

func (r *Registry) PutPendingRelay(ingressRouter uuid.UUID, p PendingRelay) {
	r.pending.mu.Lock()
	defer r.pending.mu.Unlock()
	r.pending.m[ingressRouter] = p
}

func (r *Registry) DeletePendingRelay(ingressRouter uuid.UUID) {
	r.pending.mu.Lock()
	defer r.pending.mu.Unlock()
	delete(r.pending.m, ingressRouter)
}

// --- Producers by peer (audio / video) --------------------------------------

type audioProducers struct {
	mu sync.Mutex
	m  map[uuid.UUID][]uuid.UUID
}

type videoProducers struct {
	mu sync.Mutex
	m  map[uuid.UUID][]uuid.UUID
}

func (r *Registry) AddAudioProducer(peer, producerID uuid.UUID) {
	r.audioProducers.mu.Lock()
	defer r.audioProducers.mu.Unlock()
	r.audioProducers.m[peer] = append(r.audioProducers.m[peer], producerID)
}

func (r *Registry) AudioProducers(peer uuid.UUID) []uuid.UUID {
	r.audioProducers.mu.Lock()
	defer r.audioProducers.mu.Unlock()
	return append([]uuid.UUID(nil), r.audioProducers.m[peer]...)
}

func (r *Registry) RemoveAudioProducer(peer, producerID uuid.UUID) {
	r.audioProducers.mu.Lock()
	defer r.audioProducers.mu.Unlock()
	removeID(r.audioProducers.m, peer, producerID)
}

func (r *Registry) DeleteAudioProducers(peer uuid.UUID) {
	r.audioProducers.mu.Lock()
	defer r.audioProducers.mu.Unlock()
	delete(r.audioProducers.m, peer)
}

func (r *Registry) AddVideoProducer(peer, producerID uuid.UUID) {
	r.videoProducers.mu.Lock()
	defer r.videoProducers.mu.Unlock()
	r.videoProducers.m[peer] = append(r.videoProducers.m[peer], producerID)
}

func (r *Registry) VideoProducers(peer uuid.UUID) []uuid.UUID {
	r.videoProducers.mu.Lock()
	defer r.videoProducers.mu.Unlock()
	return append([]uuid.UUID(nil), r.videoProducers.m[peer]...)
}

func (r *Registry) RemoveVideoProducer(peer, producerID uuid.UUID) {
	r.videoProducers.mu.Lock()
	defer r.videoProducers.mu.Unlock()
	removeID(r.videoProducers.m, peer, producerID)
}

func (r *Registry) DeleteVideoProducers(peer uuid.UUID) {
	r.videoProducers.mu.Lock()
	defer r.videoProducers.mu.Unlock()
	delete(r.videoProducers.m, peer)
}

func removeID(m map[uuid.UUID][]uuid.UUID, peer, id uuid.UUID) {
	ids := m[peer]
	for i, existing := range ids {
		if existing == id {
			m[peer] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// --- Data producers by peer (event / movement), one per peer per label -----

type dataProducerTable struct {
	mu sync.Mutex
	m  map[uuid.UUID]uuid.UUID
}

func (r *Registry) EventProducer(peer uuid.UUID) (uuid.UUID, bool) {
	r.eventProducers.mu.Lock()
	defer r.eventProducers.mu.Unlock()
	id, ok := r.eventProducers.m[peer]
	return id, ok
}

func (r *Registry) PutEventProducer(peer, id uuid.UUID) {
	r.eventProducers.mu.Lock()
	defer r.eventProducers.mu.Unlock()
	r.eventProducers.m[peer] = id
}

func (r *Registry) DeleteEventProducer(peer uuid.UUID) {
	r.eventProducers.mu.Lock()
	defer r.eventProducers.mu.Unlock()
	delete(r.eventProducers.m, peer)
}

func (r *Registry) MovementProducer(peer uuid.UUID) (uuid.UUID, bool) {
	r.movementProducers.mu.Lock()
	defer r.movementProducers.mu.Unlock()
	id, ok := r.movementProducers.m[peer]
	return id, ok
}

func (r *Registry) PutMovementProducer(peer, id uuid.UUID) {
	r.movementProducers.mu.Lock()
	defer r.movementProducers.mu.Unlock()
	r.movementProducers.m[peer] = id
}

func (r *Registry) DeleteMovementProducer(peer uuid.UUID) {
	r.movementProducers.mu.Lock()
	defer r.movementProducers.mu.Unlock()
	delete(r.movementProducers.m, peer)
}

// --- Global handle maps (by id, for pause/resume/close and cleanup) --------

type producerHandles struct {
	mu sync.Mutex
	m  map[uuid.UUID]mediaengine.Producer
}

func (r *Registry) PutProducerHandle(p mediaengine.Producer) {
	r.producers.mu.Lock()
	defer r.producers.mu.Unlock()
	r.producers.m[p.ID()] = p
}

func (r *Registry) GetProducerHandle(id uuid.UUID) (mediaengine.Producer, bool) {
	r.producers.mu.Lock()
	defer r.producers.mu.Unlock()
	p, ok := r.producers.m[id]
	return p, ok
}

func (r *Registry) DeleteProducerHandle(id uuid.UUID) {
	r.producers.mu.Lock()
	defer r.producers.mu.Unlock()
	delete(r.producers.m, id)
}

type consumerHandles struct {
	mu sync.Mutex
	m  map[uuid.UUID]mediaengine.Consumer
}

func (r *Registry) PutConsumerHandle(c mediaengine.Consumer) {
	r.consumers.mu.Lock()
	defer r.consumers.mu.Unlock()
	r.consumers.m[c.ID()] = c
}

func (r *Registry) GetConsumerHandle(id uuid.UUID) (mediaengine.Consumer, bool) {
	r.consumers.mu.Lock()
	defer r.consumers.mu.Unlock()
	c, ok := r.consumers.m[id]
	return c, ok
}

func (r *Registry) DeleteConsumerHandle(id uuid.UUID) {
	r.consumers.mu.Lock()
	defer r.consumers.mu.Unlock()
	delete(r.consumers.m, id)
}

type dataProducerHandles struct {
	mu sync.Mutex
	m  map[uuid.UUID]mediaengine.DataProducer
}

func (r *Registry) PutDataProducerHandle(p mediaengine.DataProducer) {
	r.dataProducers.mu.Lock()
	defer r.dataProducers.mu.Unlock()
	r.dataProducers.m[p.ID()] = p
}

func (r *Registry) GetDataProducerHandle(id uuid.UUID) (mediaengine.DataProducer, bool) {
	r.dataProducers.mu.Lock()
	defer r.dataProducers.mu.Unlock()
	p, ok := r.dataProducers.m[id]
	return p, ok
}

func (r *Registry) DeleteDataProducerHandle(id uuid.UUID) {
	r.dataProducers.mu.Lock()
	defer r.dataProducers.mu.Unlock()
	delete(r.dataProducers.m, id)
}

type dataConsumerHandles struct {
	mu sync.Mutex
	m  map[uuid.UUID]mediaengine.DataConsumer
}

func (r *Registry) PutDataConsumerHandle(c mediaengine.DataConsumer) {
	r.dataConsumers.mu.Lock()
	defer r.dataConsumers.mu.Unlock()
	r.dataConsumers.m[c.ID()] = c
}

func (r *Registry) GetDataConsumerHandle(id uuid.UUID) (mediaengine.DataConsumer, bool) {
	r.dataConsumers.mu.Lock()
	defer r.dataConsumers.mu.Unlock()
	c, ok := r.dataConsumers.m[id]
	return c, ok
}

func (r *Registry) DeleteDataConsumerHandle(id uuid.UUID) {
	r.dataConsumers.mu.Lock()
	defer r.dataConsumers.mu.Unlock()
	delete(r.dataConsumers.m, id)
}

// --- Peer-consume dedup sets -------------------------------------------

// ConsumeTuple is (consumer_peer, producer_id, consumer_id).
type ConsumeTuple struct {
	ConsumerPeer uuid.UUID
	ProducerID   uuid.UUID
	ConsumerID   uuid.UUID
}

type dedupKey struct {
	ConsumerPeer uuid.UUID
	ProducerID   uuid.UUID
}

type dedupSet struct {
	mu sync.Mutex
	m  map[dedupKey]uuid.UUID
}

func newDedupSet() dedupSet { return dedupSet{m: map[dedupKey]uuid.UUID{}} }

func (s *dedupSet) has(peer, producerID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[dedupKey{peer, producerID}]
	return ok
}

func (s *dedupSet) insert(peer, producerID, consumerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[dedupKey{peer, producerID}] = consumerID
}

// removePeer drops every dedup entry belonging to peer and returns the
// consumer IDs they pointed at, so the caller can close the underlying
// consumer handles — removePeer itself only owns the dedup table.
func (s *dedupSet) removePeer(peer uuid.UUID) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var consumerIDs []uuid.UUID
	for k, consumerID := range s.m {
		if k.ConsumerPeer == peer {
			consumerIDs = append(consumerIDs, consumerID)
			delete(s.m, k)
		}
	}
	return consumerIDs
}

func (r *Registry) HasConsumed(peer, producerID uuid.UUID) bool { return r.peerConsumed.has(peer, producerID) }
func (r *Registry) RecordConsumed(peer, producerID, consumerID uuid.UUID) {
	r.peerConsumed.insert(peer, producerID, consumerID)
}

// ClearConsumed drops peer's video-consumer dedup entries and returns the
// consumer IDs they referenced.
func (r *Registry) ClearConsumed(peer uuid.UUID) []uuid.UUID { return r.peerConsumed.removePeer(peer) }

func (r *Registry) HasAudioConsumed(peer, producerID uuid.UUID) bool {
	return r.peerAudioConsumed.has(peer, producerID)
}
func (r *Registry) RecordAudioConsumed(peer, producerID, consumerID uuid.UUID) {
	r.peerAudioConsumed.insert(peer, producerID, consumerID)
}
func (r *Registry) ClearAudioConsumed(peer uuid.UUID) []uuid.UUID {
	return r.peerAudioConsumed.removePeer(peer)
}

func (r *Registry) HasDataConsumed(peer, producerID uuid.UUID) bool {
	return r.peerDataConsumed.has(peer, producerID)
}
func (r *Registry) RecordDataConsumed(peer, producerID, consumerID uuid.UUID) {
	r.peerDataConsumed.insert(peer, producerID, consumerID)
}
func (r *Registry) ClearDataConsumed(peer uuid.UUID) []uuid.UUID {
	return r.peerDataConsumed.removePeer(peer)
}

func (r *Registry) HasMovementConsumed(peer, producerID uuid.UUID) bool {
	return r.peerMovementConsumed.has(peer, producerID)
}
func (r *Registry) RecordMovementConsumed(peer, producerID, consumerID uuid.UUID) {
	r.peerMovementConsumed.insert(peer, producerID, consumerID)
}
func (r *Registry) ClearMovementConsumed(peer uuid.UUID) []uuid.UUID {
	return r.peerMovementConsumed.removePeer(peer)
}

// --- Loads -------------------------------------------------------------

// LoadData is the per-worker assignment counter: incremented whenever the
// load selector hands out a router on that worker, decremented on
// disconnect. The "last assigned router" is tracked for parity with
// original_source even though nothing currently reads it back.
type LoadData struct {
	Count             int
	LastAssignedRouter uuid.UUID
}

type loads struct {
	mu sync.Mutex
	m  map[uuid.UUID]*LoadData
}

func (r *Registry) IncrementLoad(workerID, routerID uuid.UUID) {
	r.loads.mu.Lock()
	defer r.loads.mu.Unlock()
	ld, ok := r.loads.m[workerID]
	if !ok {
		ld = &LoadData{}
		r.loads.m[workerID] = ld
	}
	ld.Count++
	ld.LastAssignedRouter = routerID
}

func (r *Registry) DecrementLoad(workerID uuid.UUID) {
	r.loads.mu.Lock()
	defer r.loads.mu.Unlock()
	ld, ok := r.loads.m[workerID]
	if !ok {
		return
	}
	if ld.Count > 0 {
		ld.Count--
	}
}

func (r *Registry) Load(workerID uuid.UUID) int {
	r.loads.mu.Lock()
	defer r.loads.mu.Unlock()
	ld, ok := r.loads.m[workerID]
	if !ok {
		return 0
	}
	return ld.Count
}
