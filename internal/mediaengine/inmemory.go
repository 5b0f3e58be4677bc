package mediaengine

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
)

// InMemoryEngine is a self-contained media-engine stand-in. It honors every
// lifecycle contract in engine.go (create, connect, produce, consume, close
// callbacks, can-consume) without driving real RTP over the wire. It exists
// so the control plane above it — the subject of this repository — can be
// built and exercised end to end against a deterministic, in-process engine.
type InMemoryEngine struct{}

func NewInMemoryEngine() *InMemoryEngine { return &InMemoryEngine{} }

func (e *InMemoryEngine) NewWorker(listenInfos []ListenInfo) Worker {
	return &worker{id: uuid.New(), server: &webRtcServer{id: uuid.New(), listenInfos: listenInfos}}
}

type worker struct {
	id     uuid.UUID
	server *webRtcServer
	mu     sync.Mutex
	closed bool
}

func (w *worker) ID() uuid.UUID            { return w.id }
func (w *worker) WebRtcServer() WebRtcServer { return w.server }
func (w *worker) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *worker) CreateRouter(codecs []webrtc.RTPCodecCapability) (Router, error) {
	if w.Closed() {
		return nil, fmt.Errorf("worker %s is closed", w.id)
	}
	return &router{id: uuid.New(), workerID: w.id, codecs: codecs}, nil
}

type webRtcServer struct {
	id          uuid.UUID
	listenInfos []ListenInfo
}

func (s *webRtcServer) ID() uuid.UUID           { return s.id }
func (s *webRtcServer) ListenInfos() []ListenInfo { return s.listenInfos }

type router struct {
	id       uuid.UUID
	workerID uuid.UUID
	codecs   []webrtc.RTPCodecCapability

	mu     sync.Mutex
	closed bool
}

func (r *router) ID() uuid.UUID       { return r.id }
func (r *router) WorkerID() uuid.UUID { return r.workerID }

func (r *router) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *router) CreateWebRtcTransport(opts WebRtcTransportOptions) (WebRtcTransport, error) {
	if r.Closed() {
		return nil, fmt.Errorf("router %s is closed", r.id)
	}
	return newWebRtcTransport(r.id, opts), nil
}

func (r *router) CreatePipeTransport(opts PipeTransportOptions) (PipeTransport, error) {
	if r.Closed() {
		return nil, fmt.Errorf("router %s is closed", r.id)
	}
	return newPipeTransport(r.id, opts), nil
}

// CanConsume reflects mediasoup's real contract loosely: consumption is
// permitted unless the caller passes an explicitly empty capability set.
func (r *router) CanConsume(producerID uuid.UUID, caps RtpParameters) bool {
	return caps == nil || len(caps) > 0
}

func (r *router) PipeProducerToRouter(producerID uuid.UUID, dest Router) error {
	if r.Closed() || dest.Closed() {
		return fmt.Errorf("cannot pipe producer %s: a router in the path is closed", producerID)
	}
	return nil
}

func (r *router) PipeDataProducerToRouter(dataProducerID uuid.UUID, dest Router) error {
	if r.Closed() || dest.Closed() {
		return fmt.Errorf("cannot pipe data producer %s: a router in the path is closed", dataProducerID)
	}
	return nil
}

type closable struct {
	mu        sync.Mutex
	onClose   []func()
	closed    bool
}

func (c *closable) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		fn()
		return
	}
	c.onClose = append(c.onClose, fn)
}

func (c *closable) fireClose() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cbs := c.onClose
	c.mu.Unlock()
	for _, fn := range cbs {
		fn()
	}
}

type webRtcTransportImpl struct {
	closable
	id       uuid.UUID
	routerID uuid.UUID
	opts     WebRtcTransportOptions

	ice  IceParameters
	dtls DtlsParameters
	sctp SctpParameters

	mu               sync.Mutex
	maxOutgoingBps   uint32
	onSctpStateChange func(string)
}

func newWebRtcTransport(routerID uuid.UUID, opts WebRtcTransportOptions) *webRtcTransportImpl {
	return &webRtcTransportImpl{
		id:       uuid.New(),
		routerID: routerID,
		opts:     opts,
		ice:      IceParameters{UsernameFragment: randToken(8), Password: randToken(24)},
		dtls: DtlsParameters{
			Role:         "auto",
			Fingerprints: []DtlsFingerprint{{Algorithm: "sha-256", Value: randToken(32)}},
		},
		sctp:           opts.NumSctpStreams,
		maxOutgoingBps: opts.InitialBitrateBps,
	}
}

func (t *webRtcTransportImpl) ID() uuid.UUID       { return t.id }
func (t *webRtcTransportImpl) RouterID() uuid.UUID { return t.routerID }
func (t *webRtcTransportImpl) Close()              { t.fireClose() }

func (t *webRtcTransportImpl) IceParameters() IceParameters   { return t.ice }
func (t *webRtcTransportImpl) IceCandidates() []IceCandidate {
	candidates := make([]IceCandidate, 0, len(t.opts.ListenInfos))
	for i, li := range t.opts.ListenInfos {
		ip := li.IP
		if li.AnnouncedIP != nil {
			ip = li.AnnouncedIP
		}
		candidates = append(candidates, IceCandidate{
			Foundation: fmt.Sprintf("f%d", i),
			Priority:   uint32(2130706431 - i),
			IP:         ip.String(),
			Protocol:   li.Protocol,
			Port:       li.Port,
			Type:       "host",
		})
	}
	return candidates
}

func (t *webRtcTransportImpl) DtlsParameters() DtlsParameters { return t.dtls }
func (t *webRtcTransportImpl) SctpParameters() SctpParameters { return t.sctp }

func (t *webRtcTransportImpl) Connect(remote DtlsParameters) error {
	if len(remote.Fingerprints) == 0 {
		return fmt.Errorf("dtls connect: no remote fingerprints supplied")
	}
	return nil
}

func (t *webRtcTransportImpl) RestartIce() (IceParameters, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ice = IceParameters{UsernameFragment: randToken(8), Password: randToken(24), IceLite: t.ice.IceLite}
	return t.ice, nil
}

func (t *webRtcTransportImpl) SetMaxOutgoingBitrate(bps uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maxOutgoingBps = bps
	return nil
}

func (t *webRtcTransportImpl) Produce(kind MediaKind, rtp RtpParameters, appData AppData) (Producer, error) {
	return newProducer(kind, appData), nil
}

func (t *webRtcTransportImpl) ProduceData(label DataLabel, sctp SctpStreamParameters, appData AppData) (DataProducer, error) {
	return newDataProducer(label, appData), nil
}

func (t *webRtcTransportImpl) Consume(producerID uuid.UUID, caps RtpParameters, appData AppData) (Consumer, error) {
	return newConsumer(producerID), nil
}

func (t *webRtcTransportImpl) ConsumeData(dataProducerID uuid.UUID, appData AppData) (DataConsumer, error) {
	return newDataConsumer(dataProducerID), nil
}

func (t *webRtcTransportImpl) OnSctpStateChange(fn func(string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSctpStateChange = fn
}

type pipeTransportImpl struct {
	closable
	id       uuid.UUID
	routerID uuid.UUID
	opts     PipeTransportOptions
	srtp     SrtpParameters

	mu        sync.Mutex
	connected bool
}

func newPipeTransport(routerID uuid.UUID, opts PipeTransportOptions) *pipeTransportImpl {
	return &pipeTransportImpl{
		id:       uuid.New(),
		routerID: routerID,
		opts:     opts,
		srtp:     SrtpParameters{CryptoSuite: "AES_CM_128_HMAC_SHA1_80", KeyBase64: randToken(30)},
	}
}

func (p *pipeTransportImpl) ID() uuid.UUID       { return p.id }
func (p *pipeTransportImpl) RouterID() uuid.UUID { return p.routerID }
func (p *pipeTransportImpl) Close()              { p.fireClose() }

func (p *pipeTransportImpl) ListenIP() net.IP {
	ip := p.opts.ListenInfo.IP
	if p.opts.ListenInfo.AnnouncedIP != nil {
		ip = p.opts.ListenInfo.AnnouncedIP
	}
	return ip
}

func (p *pipeTransportImpl) Port() uint16        { return p.opts.ListenInfo.Port }
func (p *pipeTransportImpl) Srtp() SrtpParameters { return p.srtp }

func (p *pipeTransportImpl) Connect(remote PipeTransportRemoteParameters) error {
	if remote.Port == 0 {
		return fmt.Errorf("pipe transport connect: remote port is zero")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

func (p *pipeTransportImpl) Produce(kind MediaKind, rtp RtpParameters, appData AppData) (Producer, error) {
	return newProducer(kind, appData), nil
}

func (p *pipeTransportImpl) ProduceData(label DataLabel, sctp SctpStreamParameters, appData AppData) (DataProducer, error) {
	return newDataProducer(label, appData), nil
}

func (p *pipeTransportImpl) Consume(producerID uuid.UUID) (Consumer, error) {
	return newConsumer(producerID), nil
}

func (p *pipeTransportImpl) ConsumeData(dataProducerID uuid.UUID) (DataConsumer, error) {
	return newDataConsumer(dataProducerID), nil
}

type producerImpl struct {
	closable
	id      uuid.UUID
	kind    MediaKind
	appData AppData
	paused  atomic.Bool
}

func newProducer(kind MediaKind, appData AppData) *producerImpl {
	return &producerImpl{id: uuid.New(), kind: kind, appData: appData}
}

func (p *producerImpl) ID() uuid.UUID   { return p.id }
func (p *producerImpl) Kind() MediaKind { return p.kind }
func (p *producerImpl) AppData() AppData { return p.appData }
func (p *producerImpl) Pause() error    { p.paused.Store(true); return nil }
func (p *producerImpl) Resume() error   { p.paused.Store(false); return nil }
func (p *producerImpl) Close()          { p.fireClose() }

type consumerImpl struct {
	id         uuid.UUID
	producerID uuid.UUID
	ssrc       uint32
	paused     atomic.Bool
}

func newConsumer(producerID uuid.UUID) *consumerImpl {
	return &consumerImpl{id: uuid.New(), producerID: producerID, ssrc: randSSRC()}
}

func (c *consumerImpl) ID() uuid.UUID         { return c.id }
func (c *consumerImpl) ProducerID() uuid.UUID { return c.producerID }
func (c *consumerImpl) Pause() error          { c.paused.Store(true); return nil }
func (c *consumerImpl) Resume() error         { c.paused.Store(false); return nil }
func (c *consumerImpl) Close()                {}

// RequestKeyFrame builds the PLI this consumer would send upstream to ask
// its producer for a fresh keyframe, mirroring the dispatch-keyframe
// pattern every pion-based SFU in this family implements.
func (c *consumerImpl) RequestKeyFrame() rtcp.Packet {
	return &rtcp.PictureLossIndication{MediaSSRC: c.ssrc}
}

func randSSRC() uint32 {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return binary.BigEndian.Uint32(buf[:])
}

type dataProducerImpl struct {
	closable
	id      uuid.UUID
	label   DataLabel
	appData AppData
}

func newDataProducer(label DataLabel, appData AppData) *dataProducerImpl {
	return &dataProducerImpl{id: uuid.New(), label: label, appData: appData}
}

func (d *dataProducerImpl) ID() uuid.UUID     { return d.id }
func (d *dataProducerImpl) Label() DataLabel  { return d.label }
func (d *dataProducerImpl) AppData() AppData  { return d.appData }
func (d *dataProducerImpl) Close()            { d.fireClose() }

type dataConsumerImpl struct {
	id             uuid.UUID
	dataProducerID uuid.UUID
}

func newDataConsumer(dataProducerID uuid.UUID) *dataConsumerImpl {
	return &dataConsumerImpl{id: uuid.New(), dataProducerID: dataProducerID}
}

func (d *dataConsumerImpl) ID() uuid.UUID             { return d.id }
func (d *dataConsumerImpl) DataProducerID() uuid.UUID { return d.dataProducerID }
func (d *dataConsumerImpl) Close()                    {}

func randToken(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}
