// Package mediaengine declares the media-engine boundary the control plane
// consumes. No implementation in this repo understands RTP/RTCP media
// processing itself; it owns opaque handles returned by this interface and
// wires them together. A production deployment swaps InMemoryEngine for a real
// mediasoup-equivalent adapter.
package mediaengine

import (
	"net"

	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
)

// MediaKind distinguishes audio and video producers/consumers.
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

// DataLabel is the recognized set of data-channel producer labels.
type DataLabel string

const (
	LabelFrameEvents    DataLabel = "FrameEvents"
	LabelAvatarMovement DataLabel = "AvatarMovement"
)

// AppData is the opaque string map carried end-to-end through producers and
// consumers. The engine never interprets it.
type AppData map[string]string

// IceParameters mirrors the ICE session credentials a transport hands back
// to its client after creation.
type IceParameters struct {
	UsernameFragment string `json:"usernameFragment"`
	Password         string `json:"password"`
	IceLite          bool   `json:"iceLite"`
}

// IceCandidate is a single ICE candidate advertised by a transport.
type IceCandidate struct {
	Foundation string `json:"foundation"`
	Priority   uint32 `json:"priority"`
	IP         string `json:"ip"`
	Protocol   string `json:"protocol"`
	Port       uint16 `json:"port"`
	Type       string `json:"type"`
}

// DtlsParameters carries the DTLS fingerprint set exchanged during connect.
type DtlsParameters struct {
	Role         string              `json:"role"`
	Fingerprints []DtlsFingerprint   `json:"fingerprints"`
}

type DtlsFingerprint struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// SctpParameters describes a transport's SCTP association.
type SctpParameters struct {
	Port               uint16 `json:"port"`
	OS                 uint16 `json:"os"`
	MIS                uint16 `json:"mis"`
	MaxMessageSize     uint32 `json:"maxMessageSize"`
}

// SctpStreamParameters identifies one data producer's SCTP stream.
type SctpStreamParameters struct {
	StreamID          uint16 `json:"streamId"`
	Ordered           bool   `json:"ordered"`
	MaxPacketLifeTime *uint16 `json:"maxPacketLifeTime,omitempty"`
	MaxRetransmits    *uint16 `json:"maxRetransmits,omitempty"`
}

// RtpParameters is the negotiated codec/encoding set for one producer or
// consumer. It is opaque to the control plane beyond passing it through.
type RtpParameters map[string]any

// SrtpParameters are the keying material for a pipe transport.
type SrtpParameters struct {
	CryptoSuite string `json:"cryptoSuite"`
	KeyBase64   string `json:"keyBase64"`
}

// ListenInfo is one bind address/port the worker's WebRtcServer listens on.
type ListenInfo struct {
	Protocol    string
	IP          net.IP
	AnnouncedIP net.IP
	Port        uint16
}

// Worker is a media-engine subprocess hosting routers.
type Worker interface {
	ID() uuid.UUID
	CreateRouter(codecs []webrtc.RTPCodecCapability) (Router, error)
	WebRtcServer() WebRtcServer
	Closed() bool
}

// WebRtcServer is the shared UDP/TCP listener bound at worker creation.
type WebRtcServer interface {
	ID() uuid.UUID
	ListenInfos() []ListenInfo
}

// Router is a media-engine session into which transports are attached.
type Router interface {
	ID() uuid.UUID
	WorkerID() uuid.UUID
	Closed() bool
	Close()
	CreateWebRtcTransport(opts WebRtcTransportOptions) (WebRtcTransport, error)
	CreatePipeTransport(opts PipeTransportOptions) (PipeTransport, error)
	CanConsume(producerID uuid.UUID, caps RtpParameters) bool
	PipeProducerToRouter(producerID uuid.UUID, dest Router) error
	PipeDataProducerToRouter(dataProducerID uuid.UUID, dest Router) error
}

// WebRtcTransportOptions configures a peer-facing ingress or egress transport.
type WebRtcTransportOptions struct {
	ListenInfos          []ListenInfo
	EnableUDP            bool
	EnableTCP            bool
	PreferUDP            bool
	EnableSctp           bool
	NumSctpStreams       SctpParameters
	InitialBitrateBps    uint32
}

// PipeTransportOptions configures a node-to-node relay transport.
type PipeTransportOptions struct {
	ListenInfo  ListenInfo
	EnableSctp  bool
	EnableRtx   bool
	EnableSrtp  bool
}

// Transport is the shared behavior of WebRtcTransport and PipeTransport.
type Transport interface {
	ID() uuid.UUID
	RouterID() uuid.UUID
	Close()
	OnClose(func())
}

// WebRtcTransport is a single peer's ingress or egress WebRTC session.
type WebRtcTransport interface {
	Transport
	IceParameters() IceParameters
	IceCandidates() []IceCandidate
	DtlsParameters() DtlsParameters
	SctpParameters() SctpParameters
	Connect(remote DtlsParameters) error
	RestartIce() (IceParameters, error)
	SetMaxOutgoingBitrate(bps uint32) error
	Produce(kind MediaKind, rtp RtpParameters, appData AppData) (Producer, error)
	ProduceData(label DataLabel, sctp SctpStreamParameters, appData AppData) (DataProducer, error)
	Consume(producerID uuid.UUID, caps RtpParameters, appData AppData) (Consumer, error)
	ConsumeData(dataProducerID uuid.UUID, appData AppData) (DataConsumer, error)
	OnSctpStateChange(func(state string))
}

// PipeTransport forwards media between routers, same-node or cross-node.
type PipeTransport interface {
	Transport
	Connect(remote PipeTransportRemoteParameters) error
	ListenIP() net.IP
	Port() uint16
	Srtp() SrtpParameters
	Produce(kind MediaKind, rtp RtpParameters, appData AppData) (Producer, error)
	ProduceData(label DataLabel, sctp SctpStreamParameters, appData AppData) (DataProducer, error)
	Consume(producerID uuid.UUID) (Consumer, error)
	ConsumeData(dataProducerID uuid.UUID) (DataConsumer, error)
}

// PipeTransportRemoteParameters is what one side dials into the other.
type PipeTransportRemoteParameters struct {
	IP   net.IP
	Port uint16
	Srtp SrtpParameters
}

// Producer is a media-producing endpoint inside a transport.
type Producer interface {
	ID() uuid.UUID
	Kind() MediaKind
	AppData() AppData
	Pause() error
	Resume() error
	Close()
	OnClose(func())
}

// Consumer is a media-consuming endpoint inside a transport.
type Consumer interface {
	ID() uuid.UUID
	ProducerID() uuid.UUID
	Pause() error
	Resume() error
	Close()
	// RequestKeyFrame asks the producing side for a fresh keyframe by
	// building the PLI this consumer would send upstream. A real adapter
	// forwards the packet over the RTCP feedback channel; the in-memory
	// stand-in only constructs it so the control plane's request path is
	// exercised end to end.
	RequestKeyFrame() rtcp.Packet
}

// DataProducer is a data-channel producing endpoint.
type DataProducer interface {
	ID() uuid.UUID
	Label() DataLabel
	AppData() AppData
	Close()
	OnClose(func())
}

// DataConsumer is a data-channel consuming endpoint.
type DataConsumer interface {
	ID() uuid.UUID
	DataProducerID() uuid.UUID
	Close()
}
