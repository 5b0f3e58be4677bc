// Package dispatcher implements the Message Dispatcher: one detached
// goroutine per inbound control message, a bounded reply channel those
// goroutines post to, and a single writer goroutine that drains replies to
// the signaling link one at a time, never starting a new write before the
// previous one finishes.
//
// A TCP read error or the write queue observing a broken pipe both end the
// process: the control link is this node's only way to learn about peer
// and room lifecycle, so losing it leaves every in-memory registry
// unrecoverably stale.
package dispatcher

import (
	"encoding/json"
	"log"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"aq-media-node/internal/codec"
	"aq-media-node/internal/cpuload"
	"aq-media-node/internal/database"
	"aq-media-node/internal/mediaengine"
	"aq-media-node/internal/metrics"
	"aq-media-node/internal/producer"
	"aq-media-node/internal/protocol"
	"aq-media-node/internal/registry"
	"aq-media-node/internal/relay"
	"aq-media-node/internal/router"
	"aq-media-node/internal/transport"
)

// replyQueueSize bounds the dispatcher's internal reply channel; a
// handler goroutine blocks on send once the queue is full rather than
// growing it unboundedly.
const replyQueueSize = 128

// Dispatcher owns the control link and every component handlers need to
// act on a message.
type Dispatcher struct {
	nodeID  uuid.UUID
	region  string
	codec   *codec.ServerCodec
	replies chan protocol.OutgoingServer

	reg       *registry.Registry
	routers   *router.Manager
	transports *transport.Manager
	relays    *relay.Manager
	producers *producer.Manager
	sampler   *cpuload.Sampler

	logger     *log.Logger
	exit       func(code int)
	onActivity func()
}

// New builds a Dispatcher around an already-connected control link.
// onActivity, if non-nil, is called after every successful read or write
// on the control link — the keepalive package's Monitor.Touch is the
// intended caller, decoupling link-liveness tracking from the codec's own
// framing concerns.
func New(nodeID uuid.UUID, region string, c *codec.ServerCodec, reg *registry.Registry, routers *router.Manager, transports *transport.Manager, relays *relay.Manager, producers *producer.Manager, logger *log.Logger, onActivity func()) *Dispatcher {
	return &Dispatcher{
		nodeID:     nodeID,
		region:     region,
		codec:      c,
		replies:    make(chan protocol.OutgoingServer, replyQueueSize),
		reg:        reg,
		routers:    routers,
		transports: transports,
		relays:     relays,
		producers:  producers,
		sampler:    cpuload.NewSampler(),
		logger:     logger,
		exit:       os.Exit,
		onActivity: onActivity,
	}
}

// Run registers the node, then drives the read loop and write loop until
// the control link fails.
func (d *Dispatcher) Run(ingress, egress bool) {
	d.reply(protocol.RegisterMediaServer{
		Type:    protocol.TypeRegisterMediaServer,
		Node:    d.nodeID.String(),
		Region:  d.region,
		Ingress: ingress,
		Egress:  egress,
	})
	metrics.RecordNodeRegistration()
	if err := database.RecordNodeRegistration(d.nodeID.String(), d.region, ingress, egress); err != nil {
		d.logger.Printf("dispatcher: audit write (registration) failed: %v", err)
	}

	go d.writeLoop()
	go d.tickLoop()
	d.readLoop()
}

func (d *Dispatcher) readLoop() {
	for {
		var env protocol.Incoming
		if err := d.codec.ReadMessage(&env); err != nil {
			d.logger.Printf("dispatcher: control link read failed, exiting: %v", err)
			d.exit(1)
			return
		}
		if d.onActivity != nil {
			d.onActivity()
		}
		go d.handle(env)
	}
}

func (d *Dispatcher) writeLoop() {
	for msg := range d.replies {
		if err := d.codec.WriteMessage(msg); err != nil {
			d.logger.Printf("dispatcher: control link write failed, exiting: %v", err)
			d.exit(1)
			return
		}
		if d.onActivity != nil {
			d.onActivity()
		}
	}
}

// tickLoop emits a serverLoad report, first after 10s then every 2s
// thereafter, matching the cadence described in SPEC_FULL.md §4.I.
func (d *Dispatcher) tickLoop() {
	time.Sleep(10 * time.Second)
	for {
		load, err := d.sampler.Sample()
		if err == nil {
			d.reply(protocol.ServerLoad{Type: protocol.TypeServerLoad, Node: d.nodeID.String(), Load: load})
		}
		time.Sleep(2 * time.Second)
	}
}

func (d *Dispatcher) reply(message any) {
	d.replies <- protocol.OutgoingServer{Node: d.nodeID.String(), Message: message}
}

func (d *Dispatcher) handle(env protocol.Incoming) {
	metrics.RecordMessageProcessed()

	var head protocol.Envelope
	if err := json.Unmarshal(env.Message, &head); err != nil {
		d.logger.Printf("dispatcher: malformed message from %s: %v", env.WSID, err)
		return
	}

	switch head.Type {
	case protocol.TypeCreateRouterGroup:
		d.handleCreateRouterGroup(env.Message)
	case protocol.TypeDestroyRouterGroup:
		d.handleDestroyRouterGroup(env.Message)
	case protocol.TypeCreateWebRTCIngress, protocol.TypeCreateWebRTCEgress:
		d.handleCreateTransport(env.Message, head.Type)
	case protocol.TypeConnectWebRTCIngress, protocol.TypeConnectWebRTCEgress:
		d.handleConnectTransport(env.Message, head.Type)
	case protocol.TypeDisconnectTransport:
		d.handleDisconnectTransport(env.Message)
	case protocol.TypeCreateMediaProducer:
		d.handleCreateMediaProducer(env.Message)
	case protocol.TypeCreateDataProducer, protocol.TypeCreateEventProducer:
		d.handleCreateDataProducer(env.Message)
	case protocol.TypeConsumeAudio:
		d.handleConsume(env.Message, protocol.TypeConsumeAudio)
	case protocol.TypeConsumeVideo:
		d.handleConsume(env.Message, protocol.TypeConsumeVideo)
	case protocol.TypeConsumeMovement:
		d.handleConsume(env.Message, protocol.TypeConsumeMovement)
	case protocol.TypeConsumeEvents:
		d.handleConsume(env.Message, protocol.TypeConsumeEvents)
	case protocol.TypeStorePipeRelay:
		d.handleStorePipeRelay(env.Message)
	case protocol.TypeCreateRelayProducer:
		d.handleCreateRelayProducer(env.Message)
	case protocol.TypeConnectPipeRelay:
		d.handleConnectPipeRelay(env.Message)
	case protocol.TypeConsumerPause:
		d.handleConsumerControl(env.Message, true)
	case protocol.TypeConsumerResume:
		d.handleConsumerControl(env.Message, false)
	case protocol.TypeProducerPause:
		d.handleProducerPauseResume(env.Message, true)
	case protocol.TypeProducerResume:
		d.handleProducerPauseResume(env.Message, false)
	case protocol.TypeProducerClose:
		d.handleProducerClose(env.Message)
	case protocol.TypeRestartIce:
		d.handleRestartIce(env.Message)
	default:
		d.logger.Printf("dispatcher: unrecognized message type %q", head.Type)
	}
}

func (d *Dispatcher) handleCreateRouterGroup(raw json.RawMessage) {
	var msg protocol.CreateRouterGroup
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: createRouterGroup: %v", err)
		return
	}
	if _, err := d.routers.CreateRouterGroup(msg.Room); err != nil {
		d.logger.Printf("dispatcher: createRouterGroup %q: %v", msg.Room, err)
		return
	}
	metrics.RecordRoomCreated()
	if err := database.RecordRoomEvent(msg.Room, "createRouterGroup", d.nodeID.String()); err != nil {
		d.logger.Printf("dispatcher: audit write (room created) failed: %v", err)
	}
	d.reply(protocol.CreateRouterGroup{Type: protocol.TypeJoinedRoom, Room: msg.Room})
}

func (d *Dispatcher) handleDestroyRouterGroup(raw json.RawMessage) {
	var msg protocol.DestroyRouterGroup
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: destroyRouterGroup: %v", err)
		return
	}
	routerIDs, _ := d.reg.RoomRouters(msg.Room)
	d.routers.DestroyRouterGroup(msg.Room)
	d.relays.DestroyRoom(msg.Room, routerIDs)
	metrics.RecordRoomDestroyed()
	if err := database.RecordRoomEvent(msg.Room, "destroyRouterGroup", d.nodeID.String()); err != nil {
		d.logger.Printf("dispatcher: audit write (room destroyed) failed: %v", err)
	}
}

func (d *Dispatcher) handleCreateTransport(raw json.RawMessage, msgType string) {
	var msg protocol.CreateWebRTCTransport
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: %s: %v", msgType, err)
		return
	}
	peer, err := uuid.Parse(msg.Peer)
	if err != nil {
		d.logger.Printf("dispatcher: %s: bad peer id: %v", msgType, err)
		return
	}

	opts := mediaengine.WebRtcTransportOptions{EnableUDP: true, EnableTCP: true, PreferUDP: true, EnableSctp: true}
	var created transport.Created
	var ingressRelays []relay.IngressRelayResult
	if msgType == protocol.TypeCreateWebRTCIngress {
		pipes := make([]uuid.UUID, 0, len(msg.RouterPipes))
		for _, s := range msg.RouterPipes {
			id, err := uuid.Parse(s)
			if err != nil {
				d.logger.Printf("dispatcher: %s: bad routerPipes entry %q: %v", msgType, s, err)
				continue
			}
			pipes = append(pipes, id)
		}
		created, ingressRelays, err = d.transports.CreateIngress(msg.Room, peer, opts, pipes)
	} else {
		created, err = d.transports.CreateEgress(msg.Room, peer, opts)
	}
	if err != nil {
		d.logger.Printf("dispatcher: %s: %v", msgType, err)
		return
	}
	metrics.RecordTransportCreated()

	replyType := protocol.TypeCreatedIngressTransport
	if msgType == protocol.TypeCreateWebRTCEgress {
		replyType = protocol.TypeCreatedEgressTransport
	}
	d.reply(map[string]any{
		"type":           replyType,
		"peer":           msg.Peer,
		"transportId":    created.TransportID.String(),
		"iceParameters":  created.Ice,
		"iceCandidates":  created.IceCandidates,
		"dtlsParameters": created.Dtls,
		"sctpParameters": created.Sctp,
	})

	for _, r := range ingressRelays {
		d.reply(map[string]any{
			"type":          protocol.TypeOutStorePipeRelay,
			"room":          r.Room,
			"ingressRouter": r.IngressRouter.String(),
			"egressNode":    r.EgressNode.String(),
			"ip":            r.IP.String(),
			"port":          r.Port,
		})
	}
}

func (d *Dispatcher) handleConnectTransport(raw json.RawMessage, msgType string) {
	var msg protocol.ConnectWebRTCTransport
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: %s: %v", msgType, err)
		return
	}
	peer, err := uuid.Parse(msg.Peer)
	if err != nil {
		d.logger.Printf("dispatcher: %s: bad peer id: %v", msgType, err)
		return
	}

	var dtls mediaengine.DtlsParameters
	if err := json.Unmarshal(msg.Dtls, &dtls); err != nil {
		d.logger.Printf("dispatcher: %s: bad dtlsParameters: %v", msgType, err)
		return
	}
	if err := d.transports.Connect(peer, dtls); err != nil {
		d.logger.Printf("dispatcher: %s: %v", msgType, err)
		return
	}

	replyType := protocol.TypeConnectedIngressTransport
	if msgType == protocol.TypeConnectWebRTCEgress {
		replyType = protocol.TypeConnectedEgressTransport
	}
	d.reply(map[string]any{"type": replyType, "peer": msg.Peer})
}

func (d *Dispatcher) handleDisconnectTransport(raw json.RawMessage) {
	var msg protocol.DisconnectTransport
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: disconnectTransport: %v", err)
		return
	}
	peer, err := uuid.Parse(msg.Peer)
	if err != nil {
		d.logger.Printf("dispatcher: disconnectTransport: bad peer id: %v", err)
		return
	}
	d.transports.Disconnect(peer)
	metrics.RecordTransportDisconnected()
}

func (d *Dispatcher) handleCreateMediaProducer(raw json.RawMessage) {
	var msg protocol.CreateMediaProducer
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: createMediaProducer: %v", err)
		return
	}
	peer, err := uuid.Parse(msg.Peer)
	if err != nil {
		d.logger.Printf("dispatcher: createMediaProducer: bad peer id: %v", err)
		return
	}
	kind := mediaengine.KindAudio
	if msg.Kind == string(mediaengine.KindVideo) {
		kind = mediaengine.KindVideo
	}
	var rtp mediaengine.RtpParameters
	_ = json.Unmarshal(msg.Rtp, &rtp)

	id, mirrors, err := d.producers.CreateMediaProducer(peer, kind, rtp, nil)
	if err != nil {
		d.logger.Printf("dispatcher: createMediaProducer: %v", err)
		return
	}
	metrics.RecordMediaProducerCreated()
	d.reply(map[string]any{"type": protocol.TypeProducedMedia, "peer": msg.Peer, "producerId": id.String(), "kind": string(kind)})

	for _, mir := range mirrors {
		d.reply(map[string]any{
			"type":       protocol.TypeOutCreateRelayProducer,
			"room":       mir.Room,
			"egressNode": mir.EgressNode.String(),
			"producerId": mir.ProducerID.String(),
			"kind":       string(mir.Kind),
			"rtpParameters": mir.Rtp,
		})
	}
}

func (d *Dispatcher) handleCreateDataProducer(raw json.RawMessage) {
	var msg protocol.CreateDataProducer
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: createDataProducer: %v", err)
		return
	}
	peer, err := uuid.Parse(msg.Peer)
	if err != nil {
		d.logger.Printf("dispatcher: createDataProducer: bad peer id: %v", err)
		return
	}
	label := mediaengine.DataLabel(msg.Label)
	id, mirrors, err := d.producers.CreateDataProducer(peer, label, mediaengine.SctpStreamParameters{Ordered: true}, nil)
	if err != nil {
		d.logger.Printf("dispatcher: createDataProducer: %v", err)
		return
	}
	metrics.RecordDataProducerCreated()

	replyType := protocol.TypeProducedData
	if label == mediaengine.LabelFrameEvents {
		replyType = protocol.TypeProducedEvents
	}
	d.reply(map[string]any{"type": replyType, "peer": msg.Peer, "dataProducerId": id.String(), "label": msg.Label})

	for _, mir := range mirrors {
		d.reply(map[string]any{
			"type":           protocol.TypeOutCreateRelayProducer,
			"room":           mir.Room,
			"egressNode":     mir.EgressNode.String(),
			"dataProducerId": mir.DataProducerID.String(),
			"label":          string(mir.Label),
			"sctpParameters": mir.Sctp,
		})
	}
}

func (d *Dispatcher) handleConsume(raw json.RawMessage, msgType string) {
	var msg protocol.Consume
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: %s: %v", msgType, err)
		return
	}
	peer, err := uuid.Parse(msg.Peer)
	if err != nil {
		d.logger.Printf("dispatcher: %s: bad peer id: %v", msgType, err)
		return
	}

	producerIDs := make([]uuid.UUID, 0, len(msg.ProducerPeers))
	for _, s := range msg.ProducerPeers {
		id, err := uuid.Parse(s)
		if err != nil {
			d.logger.Printf("dispatcher: %s: bad producer id %q: %v", msgType, s, err)
			continue
		}
		producerIDs = append(producerIDs, id)
	}

	var caps mediaengine.RtpParameters
	_ = json.Unmarshal(msg.Caps, &caps)

	consumers := make(map[string]protocol.ConsumerOptions)
	switch msgType {
	case protocol.TypeConsumeAudio:
		for producerID, consumerID := range d.producers.ConsumeAudio(peer, producerIDs, caps, nil) {
			consumers[producerID.String()] = protocol.ConsumerOptions{ConsumerID: consumerID.String(), ProducerID: producerID.String()}
			metrics.RecordConsumerCreated()
		}
	case protocol.TypeConsumeVideo:
		for producerID, consumerID := range d.producers.ConsumeVideo(peer, producerIDs, caps, nil) {
			consumers[producerID.String()] = protocol.ConsumerOptions{ConsumerID: consumerID.String(), ProducerID: producerID.String()}
			metrics.RecordConsumerCreated()
		}
	case protocol.TypeConsumeMovement:
		for producerID, consumerID := range d.producers.ConsumeMovement(peer, producerIDs) {
			consumers[producerID.String()] = protocol.ConsumerOptions{ConsumerID: consumerID.String(), ProducerID: producerID.String()}
			metrics.RecordDataConsumerCreated()
		}
	case protocol.TypeConsumeEvents:
		for producerID, consumerID := range d.producers.ConsumeEvents(peer, producerIDs) {
			consumers[producerID.String()] = protocol.ConsumerOptions{ConsumerID: consumerID.String(), ProducerID: producerID.String()}
			metrics.RecordDataConsumerCreated()
		}
	}

	if len(consumers) == 0 {
		return
	}

	announceType := map[string]string{
		protocol.TypeConsumeAudio:    protocol.TypeAudioAnnouncement,
		protocol.TypeConsumeVideo:    protocol.TypeVideoAnnouncement,
		protocol.TypeConsumeMovement: protocol.TypeMovementAnnouncement,
		protocol.TypeConsumeEvents:   protocol.TypeEventAnnouncement,
	}[msgType]
	d.reply(protocol.Announcement{Type: announceType, Peer: msg.Peer, Consumers: consumers})
}

func (d *Dispatcher) handleStorePipeRelay(raw json.RawMessage) {
	var msg protocol.StorePipeRelay
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: storePipeRelay: %v", err)
		return
	}
	ingressRouter, err := uuid.Parse(msg.IngressRouter)
	if err != nil {
		d.logger.Printf("dispatcher: storePipeRelay: bad router id: %v", err)
		return
	}
	remote, err := d.relays.StorePipeRelay(msg.Room, ingressRouter, mediaengine.ListenInfo{})
	if err != nil {
		d.logger.Printf("dispatcher: storePipeRelay: %v", err)
		return
	}
	metrics.RecordRelayHandshakeStarted()
	if err := database.RecordRelayEvent(msg.Room, msg.IngressRouter, "", "storePipeRelay"); err != nil {
		d.logger.Printf("dispatcher: audit write (storePipeRelay) failed: %v", err)
	}
	d.reply(map[string]any{
		"type":          protocol.TypeOutStorePipeRelay,
		"room":          msg.Room,
		"ingressRouter": msg.IngressRouter,
		"ip":            remote.IP.String(),
		"port":          remote.Port,
	})
}

func (d *Dispatcher) handleCreateRelayProducer(raw json.RawMessage) {
	var msg protocol.CreateRelayProducer
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: createRelayProducer: %v", err)
		return
	}
	localRouter, err1 := uuid.Parse(msg.LocalRouter)
	ingressRouter, err2 := uuid.Parse(msg.IngressRouter)
	egressNode, err3 := uuid.Parse(msg.EgressNode)
	if err1 != nil || err2 != nil || err3 != nil {
		d.logger.Printf("dispatcher: createRelayProducer: bad id")
		return
	}

	remote := mediaengine.PipeTransportRemoteParameters{IP: net.ParseIP(msg.IP), Port: msg.Port}
	pipeID, err := d.relays.CreateRelayProducer(msg.Room, localRouter, ingressRouter, egressNode, remote)
	if err != nil {
		d.logger.Printf("dispatcher: createRelayProducer: %v", err)
		return
	}
	if err := database.RecordRelayEvent(msg.Room, msg.IngressRouter, msg.EgressNode, "createRelayProducer"); err != nil {
		d.logger.Printf("dispatcher: audit write (createRelayProducer) failed: %v", err)
	}
	d.reply(map[string]any{
		"type":          protocol.TypeCreatedRelayProducer,
		"room":          msg.Room,
		"ingressRouter": msg.IngressRouter,
		"egressNode":    msg.EgressNode,
		"pipeId":        pipeID.String(),
	})
}

func (d *Dispatcher) handleConnectPipeRelay(raw json.RawMessage) {
	var msg protocol.ConnectPipeRelay
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: connectPipeRelay: %v", err)
		return
	}
	ingressRouter, err1 := uuid.Parse(msg.IngressRouter)
	egressNode, err2 := uuid.Parse(msg.EgressNode)
	if err1 != nil || err2 != nil {
		d.logger.Printf("dispatcher: connectPipeRelay: bad id")
		return
	}
	if err := d.relays.ConnectPipeRelay(ingressRouter, egressNode); err != nil {
		d.logger.Printf("dispatcher: connectPipeRelay: %v", err)
		return
	}
	metrics.RecordRelayHandshakeCompleted()
	if err := database.RecordRelayEvent("", msg.IngressRouter, msg.EgressNode, "connectPipeRelay"); err != nil {
		d.logger.Printf("dispatcher: audit write (connectPipeRelay) failed: %v", err)
	}
	d.reply(map[string]any{"type": protocol.TypeOutConnectPipeRelay, "ingressRouter": msg.IngressRouter, "egressNode": msg.EgressNode})
}

func (d *Dispatcher) handleConsumerControl(raw json.RawMessage, pause bool) {
	var msg protocol.ConsumerControl
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: consumer control: %v", err)
		return
	}
	consumerID, err := uuid.Parse(msg.ConsumerID)
	if err != nil {
		d.logger.Printf("dispatcher: consumer control: bad id: %v", err)
		return
	}
	if pause {
		err = d.producers.ConsumerPause(consumerID)
	} else {
		err = d.producers.ConsumerResume(consumerID)
	}
	if err != nil {
		d.logger.Printf("dispatcher: consumer control: %v", err)
	}
}

func (d *Dispatcher) handleProducerPauseResume(raw json.RawMessage, pause bool) {
	var msg protocol.ProducerControl
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: producer pause/resume: %v", err)
		return
	}
	producerID, err := uuid.Parse(msg.ProducerID)
	if err != nil {
		d.logger.Printf("dispatcher: producer pause/resume: bad id: %v", err)
		return
	}

	var isPaused bool
	if pause {
		isPaused, err = d.producers.ProducerPause(producerID)
	} else {
		isPaused, err = d.producers.ProducerResume(producerID)
	}
	if err != nil {
		d.logger.Printf("dispatcher: producer pause/resume: %v", err)
		return
	}

	replyType := protocol.TypeProducerPaused
	if !pause {
		replyType = protocol.TypeProducerResumed
	}
	d.reply(map[string]any{"type": replyType, "producerId": msg.ProducerID, "paused": isPaused})
}

func (d *Dispatcher) handleProducerClose(raw json.RawMessage) {
	var msg protocol.ProducerControl
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: producerClose: %v", err)
		return
	}
	producerID, err := uuid.Parse(msg.ProducerID)
	if err != nil {
		d.logger.Printf("dispatcher: producerClose: bad id: %v", err)
		return
	}
	if err := d.producers.ProducerClose(producerID); err != nil {
		d.logger.Printf("dispatcher: producerClose: %v", err)
	}
}

func (d *Dispatcher) handleRestartIce(raw json.RawMessage) {
	var msg protocol.RestartIce
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Printf("dispatcher: restartIce: %v", err)
		return
	}
	peer, err := uuid.Parse(msg.Peer)
	if err != nil {
		d.logger.Printf("dispatcher: restartIce: bad peer id: %v", err)
		return
	}
	ice, err := d.transports.RestartIce(peer)
	if err != nil {
		d.logger.Printf("dispatcher: restartIce: %v", err)
		return
	}
	d.reply(map[string]any{"type": protocol.TypeRestartedIce, "peer": msg.Peer, "iceParameters": ice})
}
