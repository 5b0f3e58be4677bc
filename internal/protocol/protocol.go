// Package protocol declares the control-protocol envelope and message
// payload types exchanged between this node and the signaling service, per
// SPEC_FULL.md §6.2. Payloads are carried as raw JSON and decoded into the
// concrete type once the dispatcher has read the envelope's "type" field.
package protocol

import "encoding/json"

// Inbound message type names (signaling -> node).
const (
	TypeCreateRouterGroup      = "createRouterGroup"
	TypeCreateWebRTCIngress    = "createWebRTCIngress"
	TypeCreateWebRTCEgress     = "createWebRTCEgress"
	TypeConnectWebRTCIngress   = "connectWebRTCIngress"
	TypeConnectWebRTCEgress    = "connectWebRTCEgress"
	TypeCreateMediaProducer    = "createMediaProducer"
	TypeCreateDataProducer     = "createDataProducer"
	TypeCreateEventProducer    = "createEventProducer"
	TypeConsumeAudio           = "consumeAudio"
	TypeConsumeVideo           = "consumeVideo"
	TypeConsumeMovement        = "consumeMovement"
	TypeConsumeEvents          = "consumeEvents"
	TypeDisconnectTransport    = "disconnectTransport"
	TypeDestroyRouterGroup     = "destroyRouterGroup"
	TypeStorePipeRelay         = "storePipeRelay"
	TypeCreateRelayProducer    = "createRelayProducer"
	TypeConnectPipeRelay       = "connectPipeRelay"
	TypeConsumerPause          = "consumerPause"
	TypeConsumerResume         = "consumerResume"
	TypeProducerPause          = "producerPause"
	TypeProducerResume         = "producerResume"
	TypeProducerClose          = "producerClose"
	TypeRestartIce             = "restartIce"
)

// Outbound message type names (node -> signaling).
const (
	TypeRegisterMediaServer       = "registerMediaServer"
	TypeJoinedRoom                = "joinedRoom"
	TypeCreatedIngressTransport   = "createdIngressTransport"
	TypeCreatedEgressTransport    = "createdEgressTransport"
	TypeConnectedIngressTransport = "connectedIngressTransport"
	TypeConnectedEgressTransport  = "connectedEgressTransport"
	TypeProducedMedia             = "producedMedia"
	TypeProducedData               = "producedData"
	TypeProducedEvents             = "producedEvents"
	TypeAudioAnnouncement          = "audioAnnouncement"
	TypeVideoAnnouncement          = "videoAnnouncement"
	TypeMovementAnnouncement        = "movementAnnouncement"
	TypeEventAnnouncement           = "eventAnnouncement"
	TypeServerLoad                  = "serverLoad"
	TypeOutCreateRelayProducer       = "createRelayProducer"
	TypeOutStorePipeRelay            = "storePipeRelay"
	TypeOutConnectPipeRelay          = "connectPipeRelay"
	TypeCreatedRelayProducer         = "createdRelayProducer"
	TypeProducerPaused               = "producerPaused"
	TypeProducerResumed              = "producerResume"
	TypeRestartedIce                 = "restartedIce"
)

// Incoming is one client-originated message relayed by the signaling
// service, tagged with the websocket connection id it arrived on.
type Incoming struct {
	WSID    string          `json:"wsid"`
	Message json.RawMessage `json:"message"`
}

// IncomingServer is a message the signaling service originates itself
// (not on behalf of any one client), optionally still scoped to a wsid.
type IncomingServer struct {
	Node    string          `json:"node"`
	WSID    *string         `json:"wsid,omitempty"`
	Message json.RawMessage `json:"message"`
}

// Outgoing addresses a reply back to one client connection.
type Outgoing struct {
	WS      string `json:"ws"`
	Message any    `json:"message"`
}

// OutgoingCommunication is a peer-to-peer relay announcement (e.g. a new
// producer another peer should know about), distinct from Outgoing only in
// its envelope field name, matching the protocol's own vocabulary.
type OutgoingCommunication struct {
	WS            string `json:"ws"`
	Communication any    `json:"communication"`
}

// OutgoingServer is a message this node sends about itself rather than on
// behalf of any one client (registration, load reports, relay handshake).
type OutgoingServer struct {
	Node    string `json:"node"`
	Message any    `json:"message"`
}

// Envelope is the minimal shape every message carries, used to dispatch on
// type before unmarshaling the rest.
type Envelope struct {
	Type string `json:"type"`
}

type CreateRouterGroup struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

// CreateWebRTCTransport requests a new ingress or egress transport for
// peer in room. The node — not the client — picks the router via the load
// selector (SPEC_FULL.md §4.D); RouterPipes is only meaningful on ingress
// creation and names the egress node ids that should receive this room's
// relayed media.
type CreateWebRTCTransport struct {
	Type        string   `json:"type"`
	Room        string   `json:"room"`
	Peer        string   `json:"peer"`
	RouterPipes []string `json:"routerPipes,omitempty"`
}

type ConnectWebRTCTransport struct {
	Type string          `json:"type"`
	Peer string          `json:"peer"`
	Dtls json.RawMessage `json:"dtlsParameters"`
}

type CreateMediaProducer struct {
	Type string          `json:"type"`
	Peer string          `json:"peer"`
	Kind string          `json:"kind"`
	Rtp  json.RawMessage `json:"rtpParameters"`
}

type CreateDataProducer struct {
	Type  string `json:"type"`
	Peer  string `json:"peer"`
	Label string `json:"label"`
}

// Consume requests consumers for every producer in ProducerPeers on Peer's
// transport. Per-item failures (already consumed, missing, not consumable)
// are skipped rather than failing the whole request; see Announcement.
type Consume struct {
	Type          string          `json:"type"`
	Peer          string          `json:"peer"`
	ProducerPeers []string        `json:"producerPeers"`
	Caps          json.RawMessage `json:"rtpCapabilities,omitempty"`
}

// ConsumerOptions is what one newly created consumer/data consumer exposes
// to the peer that asked to consume it.
type ConsumerOptions struct {
	ConsumerID string `json:"consumerId"`
	ProducerID string `json:"producerId"`
}

// Announcement is the aggregated reply to a consumeAudio/consumeVideo/
// consumeMovement/consumeEvents request, keyed by producer id: one entry
// per producer that was actually consumed this call. It is only sent when
// at least one consumer was created.
type Announcement struct {
	Type      string                     `json:"type"`
	Peer      string                     `json:"peer"`
	Consumers map[string]ConsumerOptions `json:"consumers"`
}

type DisconnectTransport struct {
	Type string `json:"type"`
	Peer string `json:"peer"`
}

type DestroyRouterGroup struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type StorePipeRelay struct {
	Type          string `json:"type"`
	Room          string `json:"room"`
	IngressRouter string `json:"ingressRouter"`
}

type CreateRelayProducer struct {
	Type          string `json:"type"`
	Room          string `json:"room"`
	LocalRouter   string `json:"localRouter"`
	IngressRouter string `json:"ingressRouter"`
	EgressNode    string `json:"egressNode"`
	IP            string `json:"ip"`
	Port          uint16 `json:"port"`
}

type ConnectPipeRelay struct {
	Type          string `json:"type"`
	IngressRouter string `json:"ingressRouter"`
	EgressNode    string `json:"egressNode"`
}

type ConsumerControl struct {
	Type       string `json:"type"`
	ConsumerID string `json:"consumerId"`
}

type ProducerControl struct {
	Type       string `json:"type"`
	ProducerID string `json:"producerId"`
}

type RestartIce struct {
	Type string `json:"type"`
	Peer string `json:"peer"`
}

// RegisterMediaServer announces this node's identity and capabilities.
type RegisterMediaServer struct {
	Type    string `json:"type"`
	Node    string `json:"node"`
	Region  string `json:"region"`
	Ingress bool   `json:"ingress"`
	Egress  bool   `json:"egress"`
}

// ServerLoad reports this node's current CPU sample.
type ServerLoad struct {
	Type string `json:"type"`
	Node string `json:"node"`
	Load int    `json:"load"`
}
