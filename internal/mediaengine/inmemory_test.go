package mediaengine

import (
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/pion/rtcp"
)

func newTestRouter(t *testing.T) Router {
	t.Helper()
	engine := NewInMemoryEngine()
	w := engine.NewWorker([]ListenInfo{{Protocol: "udp", IP: net.IPv4zero, Port: 39000}})
	rt, err := w.CreateRouter(nil)
	if err != nil {
		t.Fatalf("CreateRouter: %v", err)
	}
	return rt
}

func TestWorkerCreateRouterFailsWhenClosed(t *testing.T) {
	engine := NewInMemoryEngine()
	w := engine.NewWorker([]ListenInfo{{Protocol: "udp", IP: net.IPv4zero, Port: 39001}})
	wi := w.(*worker)
	wi.mu.Lock()
	wi.closed = true
	wi.mu.Unlock()

	if _, err := w.CreateRouter(nil); err == nil {
		t.Fatal("expected CreateRouter to fail on a closed worker")
	}
}

func TestRouterPipeProducerToRouterFailsWhenDestinationClosed(t *testing.T) {
	rt := newTestRouter(t)
	dest := newTestRouter(t)

	if err := rt.PipeProducerToRouter(uuid.New(), dest); err != nil {
		t.Fatalf("expected piping between two open routers to succeed, got %v", err)
	}

	dest.Close()
	if err := rt.PipeProducerToRouter(uuid.New(), dest); err == nil {
		t.Fatal("expected piping to a closed destination router to fail")
	}
}

func TestOnCloseFiresImmediatelyIfAlreadyClosed(t *testing.T) {
	rt := newTestRouter(t)
	transport, err := rt.CreateWebRtcTransport(WebRtcTransportOptions{})
	if err != nil {
		t.Fatalf("CreateWebRtcTransport: %v", err)
	}
	transport.Close()

	fired := false
	transport.OnClose(func() { fired = true })
	if !fired {
		t.Fatal("expected OnClose to fire immediately when the transport is already closed")
	}
}

func TestOnCloseFiresOnceOnActualClose(t *testing.T) {
	rt := newTestRouter(t)
	transport, err := rt.CreateWebRtcTransport(WebRtcTransportOptions{})
	if err != nil {
		t.Fatalf("CreateWebRtcTransport: %v", err)
	}

	calls := 0
	transport.OnClose(func() { calls++ })
	transport.Close()
	transport.Close()

	if calls != 1 {
		t.Fatalf("expected OnClose to fire exactly once, got %d", calls)
	}
}

func TestWebRtcTransportConnectRequiresFingerprints(t *testing.T) {
	rt := newTestRouter(t)
	transport, err := rt.CreateWebRtcTransport(WebRtcTransportOptions{})
	if err != nil {
		t.Fatalf("CreateWebRtcTransport: %v", err)
	}

	if err := transport.Connect(DtlsParameters{}); err == nil {
		t.Fatal("expected Connect to fail without any remote fingerprints")
	}

	remote := DtlsParameters{Fingerprints: []DtlsFingerprint{{Algorithm: "sha-256", Value: "aa"}}}
	if err := transport.Connect(remote); err != nil {
		t.Fatalf("expected Connect to succeed with a fingerprint present, got %v", err)
	}
}

func TestRestartIcePreservesIceLiteAndChangesCredentials(t *testing.T) {
	rt := newTestRouter(t)
	transport, err := rt.CreateWebRtcTransport(WebRtcTransportOptions{})
	if err != nil {
		t.Fatalf("CreateWebRtcTransport: %v", err)
	}
	before := transport.IceParameters()

	after, err := transport.RestartIce()
	if err != nil {
		t.Fatalf("RestartIce: %v", err)
	}
	if after.UsernameFragment == before.UsernameFragment || after.Password == before.Password {
		t.Fatal("expected RestartIce to generate fresh credentials")
	}
	if after.IceLite != before.IceLite {
		t.Fatal("expected RestartIce to preserve IceLite")
	}
}

func TestPipeTransportConnectRequiresNonZeroPort(t *testing.T) {
	rt := newTestRouter(t)
	pt, err := rt.CreatePipeTransport(PipeTransportOptions{})
	if err != nil {
		t.Fatalf("CreatePipeTransport: %v", err)
	}

	if err := pt.Connect(PipeTransportRemoteParameters{Port: 0}); err == nil {
		t.Fatal("expected Connect to fail with a zero remote port")
	}
	if err := pt.Connect(PipeTransportRemoteParameters{Port: 5000}); err != nil {
		t.Fatalf("expected Connect to succeed with a nonzero port, got %v", err)
	}
}

func TestProducerPauseResumeToggleIndependentlyOfConsumer(t *testing.T) {
	rt := newTestRouter(t)
	transport, err := rt.CreateWebRtcTransport(WebRtcTransportOptions{})
	if err != nil {
		t.Fatalf("CreateWebRtcTransport: %v", err)
	}

	producer, err := transport.Produce(KindVideo, nil, nil)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	consumer, err := transport.Consume(producer.ID(), nil, nil)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	if err := producer.Pause(); err != nil {
		t.Fatalf("producer Pause: %v", err)
	}
	if err := consumer.Resume(); err != nil {
		t.Fatalf("consumer Resume: %v", err)
	}
	if consumer.ProducerID() != producer.ID() {
		t.Fatal("expected the consumer to reference its producer's id")
	}
}

func TestConsumerRequestKeyFrameBuildsPLIWithDistinctSSRCs(t *testing.T) {
	rt := newTestRouter(t)
	transport, err := rt.CreateWebRtcTransport(WebRtcTransportOptions{})
	if err != nil {
		t.Fatalf("CreateWebRtcTransport: %v", err)
	}
	producer, err := transport.Produce(KindVideo, nil, nil)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}

	c1, err := transport.Consume(producer.ID(), nil, nil)
	if err != nil {
		t.Fatalf("Consume (1): %v", err)
	}
	c2, err := transport.Consume(producer.ID(), nil, nil)
	if err != nil {
		t.Fatalf("Consume (2): %v", err)
	}

	pli1, ok := c1.RequestKeyFrame().(*rtcp.PictureLossIndication)
	if !ok {
		t.Fatal("expected RequestKeyFrame to build a PictureLossIndication")
	}
	pli2, ok := c2.RequestKeyFrame().(*rtcp.PictureLossIndication)
	if !ok {
		t.Fatal("expected RequestKeyFrame to build a PictureLossIndication")
	}
	if pli1.MediaSSRC == pli2.MediaSSRC {
		t.Fatal("expected distinct consumers to carry distinct SSRCs")
	}
}

func TestCanConsumeRejectsOnlyExplicitlyEmptyCapabilities(t *testing.T) {
	rt := newTestRouter(t)
	if !rt.CanConsume(uuid.New(), nil) {
		t.Fatal("expected nil capabilities (caller didn't specify any) to be permitted")
	}
	if !rt.CanConsume(uuid.New(), RtpParameters{"codec": "opus"}) {
		t.Fatal("expected a nonempty capability set to be permitted")
	}
	if rt.CanConsume(uuid.New(), RtpParameters{}) {
		t.Fatal("expected an explicitly empty capability set to be rejected")
	}
}
