package transport

import (
	"net"
	"testing"

	"github.com/google/uuid"

	"aq-media-node/internal/loadselector"
	"aq-media-node/internal/mediaengine"
	"aq-media-node/internal/producer"
	"aq-media-node/internal/registry"
	"aq-media-node/internal/relay"
	"aq-media-node/internal/router"
)

func newTestHarness(t *testing.T) (*registry.Registry, *router.Manager, *relay.Manager, *Manager) {
	t.Helper()
	reg := registry.New()
	engine := mediaengine.NewInMemoryEngine()
	w := engine.NewWorker([]mediaengine.ListenInfo{{Protocol: "udp", IP: net.IPv4zero, Port: 41000}})
	reg.PutWorker(w)

	routers := router.New(reg, loadselector.New(reg))
	if _, err := routers.CreateRouterGroup("room-1"); err != nil {
		t.Fatalf("CreateRouterGroup: %v", err)
	}

	relays := relay.New(reg, routers, uuid.New())
	return reg, routers, relays, New(reg, routers, relays)
}

func TestCreateIngressIsIdempotentPerPeer(t *testing.T) {
	_, _, _, transports := newTestHarness(t)
	peer := uuid.New()

	first, _, err := transports.CreateIngress("room-1", peer, mediaengine.WebRtcTransportOptions{}, nil)
	if err != nil {
		t.Fatalf("CreateIngress: %v", err)
	}
	second, _, err := transports.CreateIngress("room-1", peer, mediaengine.WebRtcTransportOptions{}, nil)
	if err != nil {
		t.Fatalf("CreateIngress (second call): %v", err)
	}
	if first.TransportID != second.TransportID {
		t.Fatalf("expected the same transport on repeated creation, got %s vs %s", first.TransportID, second.TransportID)
	}
}

func TestConnectAndRestartIce(t *testing.T) {
	_, _, _, transports := newTestHarness(t)
	peer := uuid.New()

	created, _, err := transports.CreateIngress("room-1", peer, mediaengine.WebRtcTransportOptions{}, nil)
	if err != nil {
		t.Fatalf("CreateIngress: %v", err)
	}

	remote := mediaengine.DtlsParameters{
		Role:         "client",
		Fingerprints: []mediaengine.DtlsFingerprint{{Algorithm: "sha-256", Value: "aa:bb"}},
	}
	if err := transports.Connect(peer, remote); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	newIce, err := transports.RestartIce(peer)
	if err != nil {
		t.Fatalf("RestartIce: %v", err)
	}
	if newIce.UsernameFragment == created.Ice.UsernameFragment {
		t.Fatal("expected RestartIce to generate fresh ICE credentials")
	}
}

func TestDisconnectCascadesCleanup(t *testing.T) {
	reg, _, relays, transports := newTestHarness(t)
	peer := uuid.New()

	if _, _, err := transports.CreateIngress("room-1", peer, mediaengine.WebRtcTransportOptions{}, nil); err != nil {
		t.Fatalf("CreateIngress: %v", err)
	}

	producers := producer.New(reg, relays)
	audioID, _, err := producers.CreateMediaProducer(peer, mediaengine.KindAudio, nil, nil)
	if err != nil {
		t.Fatalf("CreateMediaProducer (audio): %v", err)
	}
	videoID, _, err := producers.CreateMediaProducer(peer, mediaengine.KindVideo, nil, nil)
	if err != nil {
		t.Fatalf("CreateMediaProducer (video): %v", err)
	}

	transports.Disconnect(peer)

	if _, ok := reg.GetTransport(peer); ok {
		t.Fatal("expected transport to be gone after Disconnect")
	}
	if _, ok := reg.GetProducerHandle(audioID); ok {
		t.Fatal("expected audio producer handle to be gone after Disconnect")
	}
	if _, ok := reg.GetProducerHandle(videoID); ok {
		t.Fatal("expected video producer handle to be gone after Disconnect")
	}
	if ids := reg.AudioProducers(peer); len(ids) != 0 {
		t.Fatalf("expected no audio producers remaining for peer, got %v", ids)
	}
	if ids := reg.VideoProducers(peer); len(ids) != 0 {
		t.Fatalf("expected no video producers remaining for peer, got %v", ids)
	}
}

func TestDisconnectClosesConsumerHandlesTheDisconnectingPeerOwns(t *testing.T) {
	reg, _, relays, transports := newTestHarness(t)

	producerPeer := uuid.New()
	if _, _, err := transports.CreateIngress("room-1", producerPeer, mediaengine.WebRtcTransportOptions{}, nil); err != nil {
		t.Fatalf("CreateIngress (producer peer): %v", err)
	}
	producers := producer.New(reg, relays)
	videoID, _, err := producers.CreateMediaProducer(producerPeer, mediaengine.KindVideo, nil, nil)
	if err != nil {
		t.Fatalf("CreateMediaProducer (video): %v", err)
	}
	movementID, _, err := producers.CreateDataProducer(producerPeer, mediaengine.LabelAvatarMovement, mediaengine.SctpStreamParameters{}, nil)
	if err != nil {
		t.Fatalf("CreateDataProducer (movement): %v", err)
	}

	consumerPeer := uuid.New()
	if _, _, err := transports.CreateIngress("room-1", consumerPeer, mediaengine.WebRtcTransportOptions{}, nil); err != nil {
		t.Fatalf("CreateIngress (consumer peer): %v", err)
	}
	videoConsumers := producers.ConsumeVideo(consumerPeer, []uuid.UUID{videoID}, nil, nil)
	consumerID, ok := videoConsumers[videoID]
	if !ok {
		t.Fatal("ConsumeVideo: expected a consumer to be created")
	}
	movementConsumers := producers.ConsumeMovement(consumerPeer, []uuid.UUID{movementID})
	dataConsumerID, ok := movementConsumers[movementID]
	if !ok {
		t.Fatal("ConsumeMovement: expected a consumer to be created")
	}

	transports.Disconnect(consumerPeer)

	if _, ok := reg.GetConsumerHandle(consumerID); ok {
		t.Fatal("expected the video consumer handle to be closed and removed after Disconnect")
	}
	if _, ok := reg.GetDataConsumerHandle(dataConsumerID); ok {
		t.Fatal("expected the movement data consumer handle to be closed and removed after Disconnect")
	}
	// The producing peer's own handles must be untouched by the consumer's
	// disconnect.
	if _, ok := reg.GetProducerHandle(videoID); !ok {
		t.Fatal("expected the video producer handle to survive the consumer's Disconnect")
	}
}

func TestDisconnectOfUnknownPeerIsNoop(t *testing.T) {
	_, _, _, transports := newTestHarness(t)
	transports.Disconnect(uuid.New())
}
