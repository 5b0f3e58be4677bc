package relay

import (
	"net"
	"testing"

	"github.com/google/uuid"

	"aq-media-node/internal/loadselector"
	"aq-media-node/internal/mediaengine"
	"aq-media-node/internal/registry"
	"aq-media-node/internal/router"
)

func newTestManager(t *testing.T, room string, workerCount int) (*Manager, *registry.Registry, []uuid.UUID) {
	t.Helper()
	reg := registry.New()
	engine := mediaengine.NewInMemoryEngine()
	for i := 0; i < workerCount; i++ {
		w := engine.NewWorker([]mediaengine.ListenInfo{{Protocol: "udp", IP: net.IPv4zero, Port: uint16(42000 + i)}})
		reg.PutWorker(w)
	}
	routers := router.New(reg, loadselector.New(reg))
	ids, err := routers.CreateRouterGroup(room)
	if err != nil {
		t.Fatalf("CreateRouterGroup: %v", err)
	}
	return New(reg, routers, uuid.New()), reg, ids
}

func TestCreateIngressRelaySkipsAlreadyRelayedEgressNode(t *testing.T) {
	m, reg, ids := newTestManager(t, "room-1", 1)
	egressNode := uuid.New()

	first, err := m.CreateIngressRelay("room-1", ids[0], []uuid.UUID{egressNode}, mediaengine.ListenInfo{IP: net.IPv4zero, Port: 5100})
	if err != nil {
		t.Fatalf("CreateIngressRelay: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected one storePipeRelay result, got %d", len(first))
	}

	pipeCountAfterFirst := len(reg.PipeTransportIDsForRoom("room-1"))

	second, err := m.CreateIngressRelay("room-1", ids[0], []uuid.UUID{egressNode}, mediaengine.ListenInfo{IP: net.IPv4zero, Port: 5100})
	if err != nil {
		t.Fatalf("CreateIngressRelay (second call): %v", err)
	}
	if len(second) != 0 {
		t.Fatal("expected a repeated create_ingress_relay for the same egress node to be a no-op")
	}
	if got := len(reg.PipeTransportIDsForRoom("room-1")); got != pipeCountAfterFirst {
		t.Fatalf("expected no additional pipe transport to be created, had %d now have %d", pipeCountAfterFirst, got)
	}
}

func TestCreateIngressRelayCoversEveryNewEgressNode(t *testing.T) {
	m, _, ids := newTestManager(t, "room-1", 1)

	nodeA, nodeB := uuid.New(), uuid.New()
	results, err := m.CreateIngressRelay("room-1", ids[0], []uuid.UUID{nodeA, nodeB}, mediaengine.ListenInfo{IP: net.IPv4zero, Port: 5200})
	if err != nil {
		t.Fatalf("CreateIngressRelay: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected one storePipeRelay result per egress node, got %d", len(results))
	}
}

func TestMirrorMediaProducerOnlyTargetsAlreadyRelayedEgressNodes(t *testing.T) {
	m, _, ids := newTestManager(t, "room-1", 1)

	mirrors := m.MirrorMediaProducer(ids[0], uuid.New(), mediaengine.KindVideo, nil, nil)
	if len(mirrors) != 0 {
		t.Fatalf("expected no mirrors with no relay configured, got %d", len(mirrors))
	}

	egressNode := uuid.New()
	if _, err := m.CreateIngressRelay("room-1", ids[0], []uuid.UUID{egressNode}, mediaengine.ListenInfo{IP: net.IPv4zero, Port: 5300}); err != nil {
		t.Fatalf("CreateIngressRelay: %v", err)
	}

	producerID := uuid.New()
	mirrors = m.MirrorMediaProducer(ids[0], producerID, mediaengine.KindVideo, nil, nil)
	if len(mirrors) != 1 {
		t.Fatalf("expected one mirror once a relay exists, got %d", len(mirrors))
	}
	if mirrors[0].EgressNode != egressNode || mirrors[0].ProducerID != producerID {
		t.Fatalf("unexpected mirror payload: %+v", mirrors[0])
	}
}

func TestMirrorDataProducerOnlyTargetsAlreadyRelayedEgressNodes(t *testing.T) {
	m, _, ids := newTestManager(t, "room-1", 1)

	egressNode := uuid.New()
	if _, err := m.CreateIngressRelay("room-1", ids[0], []uuid.UUID{egressNode}, mediaengine.ListenInfo{IP: net.IPv4zero, Port: 5400}); err != nil {
		t.Fatalf("CreateIngressRelay: %v", err)
	}

	dataProducerID := uuid.New()
	mirrors := m.MirrorDataProducer(ids[0], dataProducerID, mediaengine.LabelFrameEvents, mediaengine.SctpStreamParameters{}, nil)
	if len(mirrors) != 1 {
		t.Fatalf("expected one mirror once a relay exists, got %d", len(mirrors))
	}
	if mirrors[0].EgressNode != egressNode || mirrors[0].DataProducerID != dataProducerID {
		t.Fatalf("unexpected mirror payload: %+v", mirrors[0])
	}
}

func TestCreateRelayProducerIsIdempotentPerIngressEgressPair(t *testing.T) {
	ingress, _, ingressRouters := newTestManager(t, "room-1", 1)
	egress, egressReg, egressRouters := newTestManager(t, "room-1", 1)

	remote, err := ingress.StorePipeRelay("room-1", ingressRouters[0], mediaengine.ListenInfo{IP: net.IPv4zero, Port: 5500})
	if err != nil {
		t.Fatalf("StorePipeRelay: %v", err)
	}

	egressNode := uuid.New()
	first, err := egress.CreateRelayProducer("room-1", egressRouters[0], ingressRouters[0], egressNode, remote)
	if err != nil {
		t.Fatalf("CreateRelayProducer: %v", err)
	}
	key := registry.RelayKey{IngressRouter: ingressRouters[0], EgressNode: egressNode}
	rec, ok := egressReg.GetRelay(key)
	if !ok {
		t.Fatal("expected a relay record after CreateRelayProducer")
	}
	pipeCount := len(egressReg.PipeTransportIDsForRoom("room-1"))

	if err := egress.ConnectPipeRelay(ingressRouters[0], egressNode); err != nil {
		t.Fatalf("ConnectPipeRelay: %v", err)
	}

	second, err := egress.CreateRelayProducer("room-1", egressRouters[0], ingressRouters[0], egressNode, remote)
	if err != nil {
		t.Fatalf("CreateRelayProducer (second call): %v", err)
	}
	if second != first {
		t.Fatalf("expected a repeated createRelayProducer to return the same pipe id, got %s vs %s", first, second)
	}

	recAfter, ok := egressReg.GetRelay(key)
	if !ok {
		t.Fatal("expected the relay record to still exist")
	}
	if !recAfter.IsConnected {
		t.Fatal("expected a repeated createRelayProducer not to regress an already-connected relay's is_connected bit")
	}
	if recAfter.TransportID != rec.TransportID {
		t.Fatal("expected the relay record's transport id to be unchanged by the repeated call")
	}
	if got := len(egressReg.PipeTransportIDsForRoom("room-1")); got != pipeCount {
		t.Fatalf("expected no additional pipe transport to be created, had %d now have %d", pipeCount, got)
	}
}

func TestPipeRelayHandshakeConnectsOnce(t *testing.T) {
	ingress, _, ingressRouters := newTestManager(t, "room-1", 1)
	egress, _, egressRouters := newTestManager(t, "room-1", 1)

	remote, err := ingress.StorePipeRelay("room-1", ingressRouters[0], mediaengine.ListenInfo{IP: net.IPv4zero, Port: 5000})
	if err != nil {
		t.Fatalf("StorePipeRelay: %v", err)
	}

	egressNode := uuid.New()
	if _, err := egress.CreateRelayProducer("room-1", egressRouters[0], ingressRouters[0], egressNode, remote); err != nil {
		t.Fatalf("CreateRelayProducer: %v", err)
	}

	if err := egress.ConnectPipeRelay(ingressRouters[0], egressNode); err != nil {
		t.Fatalf("ConnectPipeRelay: %v", err)
	}

	// Per the idempotency law, connecting an already-connected relay again
	// must succeed rather than error.
	if err := egress.ConnectPipeRelay(ingressRouters[0], egressNode); err != nil {
		t.Fatalf("ConnectPipeRelay (second call): %v", err)
	}
}

func TestConnectPipeRelayUnknownRelay(t *testing.T) {
	m, _, _ := newTestManager(t, "room-1", 1)
	if err := m.ConnectPipeRelay(uuid.New(), uuid.New()); err == nil {
		t.Fatal("expected an error connecting a relay that was never stored")
	}
}

func TestPipeProducerFansOutToOtherRouters(t *testing.T) {
	m, _, ids := newTestManager(t, "room-1", 3)

	exited := false
	m.exit = func(code int) { exited = true }

	m.PipeProducer("room-1", ids[0], uuid.New())

	if exited {
		t.Fatal("expected no fatal exit when every router in the group is open")
	}
}

func TestPipeProducerExitsOnClosedSourceRouter(t *testing.T) {
	m, reg, ids := newTestManager(t, "room-1", 2)

	rt, _ := reg.GetRouter(ids[0])
	rt.Close()

	exitCode := -1
	m.exit = func(code int) { exitCode = code }

	m.PipeProducer("room-1", ids[0], uuid.New())

	if exitCode != 1 {
		t.Fatalf("expected fatal exit with code 1 when source router is closed, got %d", exitCode)
	}
}

func TestPipeProducerExitsOnClosedDestinationRouter(t *testing.T) {
	m, reg, ids := newTestManager(t, "room-1", 2)

	dest, _ := reg.GetRouter(ids[1])
	dest.Close()

	exitCode := -1
	m.exit = func(code int) { exitCode = code }

	m.PipeProducer("room-1", ids[0], uuid.New())

	if exitCode != 1 {
		t.Fatalf("expected fatal exit with code 1 when a destination router is closed, got %d", exitCode)
	}
}

func TestDestroyRoomRemovesPendingRelayAndPipeTransport(t *testing.T) {
	ingress, reg, ingressRouters := newTestManager(t, "room-1", 1)

	if _, err := ingress.StorePipeRelay("room-1", ingressRouters[0], mediaengine.ListenInfo{IP: net.IPv4zero, Port: 5000}); err != nil {
		t.Fatalf("StorePipeRelay: %v", err)
	}
	if _, ok := reg.GetPendingRelay(ingressRouters[0]); !ok {
		t.Fatal("expected a pending relay to have been recorded")
	}

	ingress.DestroyRoom("room-1", ingressRouters)

	if _, ok := reg.GetPendingRelay(ingressRouters[0]); ok {
		t.Fatal("expected the pending relay to be removed once the room is destroyed")
	}
	if len(reg.PipeTransportIDsForRoom("room-1")) != 0 {
		t.Fatal("expected no pipe transports to remain recorded against the destroyed room")
	}
}

func TestDestroyRoomRemovesConnectedRelayAndRelayRouter(t *testing.T) {
	ingress, _, ingressRouters := newTestManager(t, "room-1", 1)
	egress, egressReg, egressRouters := newTestManager(t, "room-1", 1)

	remote, err := ingress.StorePipeRelay("room-1", ingressRouters[0], mediaengine.ListenInfo{IP: net.IPv4zero, Port: 5001})
	if err != nil {
		t.Fatalf("StorePipeRelay: %v", err)
	}

	egressNode := uuid.New()
	if _, err := egress.CreateRelayProducer("room-1", egressRouters[0], ingressRouters[0], egressNode, remote); err != nil {
		t.Fatalf("CreateRelayProducer: %v", err)
	}
	if err := egress.ConnectPipeRelay(ingressRouters[0], egressNode); err != nil {
		t.Fatalf("ConnectPipeRelay: %v", err)
	}

	key := registry.RelayKey{IngressRouter: ingressRouters[0], EgressNode: egressNode}
	if _, ok := egressReg.GetRelay(key); !ok {
		t.Fatal("expected the relay to be recorded on the egress side")
	}

	egress.DestroyRoom("room-1", egressRouters)

	if _, ok := egressReg.GetRelay(key); ok {
		t.Fatal("expected the relay record to be removed once the room is destroyed")
	}
	if _, ok := egressReg.GetRelayRouter(ingressRouters[0]); ok {
		t.Fatal("expected the relay router mapping to be removed once the room is destroyed")
	}
	if len(egressReg.PipeTransportIDsForRoom("room-1")) != 0 {
		t.Fatal("expected no pipe transports to remain recorded against the destroyed room on the egress side")
	}
}

func TestPipeDataProducerExitsOnUnknownSourceRouter(t *testing.T) {
	m, _, _ := newTestManager(t, "room-1", 1)

	exitCode := -1
	m.exit = func(code int) { exitCode = code }

	m.PipeDataProducer("room-1", uuid.New(), uuid.New())

	if exitCode != 1 {
		t.Fatalf("expected fatal exit with code 1 for an unknown source router, got %d", exitCode)
	}
}
