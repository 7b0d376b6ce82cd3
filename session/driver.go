package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/robgrahamau/datis-go/srsproto"
)

const (
	positionUpdatePeriod = 60 * time.Second
	gameRelayPeriod      = 5 * time.Second
	voicePingPeriod      = 5 * time.Second

	// outQueueCapacity is the bounded MPSC queue feeding the UDP sink.
	outQueueCapacity = 32

	// voiceInBuffer absorbs bursts of inbound voice datagrams; a reader
	// that falls behind loses packets rather than stalling the socket.
	voiceInBuffer = 64

	// voicePacketsPerSecond/voiceBurst pace SendAudio so a producer that
	// pushes audio faster than the wire can carry it smooths out instead
	// of piling an unbounded backlog into outQueue. 50/s matches a
	// 20ms-per-frame cadence; the burst allows a short catch-up window.
	voicePacketsPerSecond = 50
	voiceBurst            = 16

	// maxRecommendedAudioPart is a soft guideline, not an enforced limit:
	// staying under it keeps an encoded voice datagram under typical
	// network MTU. Enforcing it is the audio producer's responsibility.
	maxRecommendedAudioPart = 1400
)

type frameKind int

const (
	frameVoice frameKind = iota
	framePing
)

type udpFrame struct {
	kind  frameKind
	voice srsproto.VoicePacket
	ping  srsproto.SGUID
}

type controlEvent struct {
	msg srsproto.ControlMessage
	err error
}

// Driver is the concurrent orchestrator of a single SRS session: it owns
// the TCP control socket and UDP voice socket, the timers, the inbound
// game-feed channel, the outbound voice queue, and the shutdown signal.
// Scheduling model: a single cooperative event loop per Driver: see run.
type Driver struct {
	identity *Identity
	settings ServerSettings

	conn net.Conn
	udp  *net.UDPConn

	gameSource <-chan GameMessage
	recvVoice  bool
	shutdown   <-chan struct{}

	controlCh chan controlEvent
	outQueue  chan udpFrame
	voiceIn   chan srsproto.VoicePacket

	limiter *rate.Limiter

	packetID atomic.Uint64

	// lastGameMsg and lastPosition are only ever touched from the run
	// goroutine (or, in tests, a goroutine standing in for it); they are
	// not guarded by errMu.
	lastGameMsg  *GameMessage
	lastPosition Position

	ctx    context.Context
	cancel context.CancelFunc

	doneCh chan struct{}
	errMu  sync.Mutex
	err    error
}

// Handle is the caller-facing view of a running Driver: a sink for
// outbound audio, a stream of decoded inbound voice packets, and the
// session's completion signal.
type Handle struct {
	d *Driver
}

// Start connects to addr over TCP, binds and connects a UDP socket to the
// same address, and starts the session's event loop. gameSource may be
// nil, meaning the session acts as a stationary transmitter using
// identity's own position and frequency rather than relaying live game
// state; a non-nil gameSource also marks the session as wanting to
// receive voice, which enables the UDP keep-alive ping.
func Start(identity *Identity, addr string, gameSource <-chan GameMessage, shutdown <-chan struct{}) (*Handle, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("session: connect tcp %s: %w", addr, err)
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("session: resolve udp addr %s: %w", addr, err)
	}
	udp, err := net.DialUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: 0}, udpAddr)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("session: bind udp: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Driver{
		identity:   identity,
		conn:       conn,
		udp:        udp,
		gameSource: gameSource,
		recvVoice:  gameSource != nil,
		shutdown:   shutdown,
		controlCh:  make(chan controlEvent, 1),
		outQueue:   make(chan udpFrame, outQueueCapacity),
		voiceIn:    make(chan srsproto.VoicePacket, voiceInBuffer),
		limiter:    rate.NewLimiter(rate.Limit(voicePacketsPerSecond), voiceBurst),
		ctx:        ctx,
		cancel:     cancel,
		doneCh:     make(chan struct{}),
	}

	go d.readControlLoop()
	go d.readVoiceLoop()
	go d.run()

	return &Handle{d: d}, nil
}

// SendAudio wraps a chunk of raw audio bytes into a VoicePacket stamped
// with the session's frequency, modulation, and the next monotonic
// packet id, and queues it for the UDP sink. It blocks (propagating
// backpressure) while the outbound queue is full, and returns an error
// once the driver has exited.
func (h *Handle) SendAudio(data []byte) error { return h.d.sendAudio(data) }

// Voice yields decoded inbound voice packets. The channel is closed once
// the driver's UDP socket is closed.
func (h *Handle) Voice() <-chan srsproto.VoicePacket { return h.d.voiceIn }

// Done is closed once the driver's event loop has exited, for any reason.
func (h *Handle) Done() <-chan struct{} { return h.d.doneCh }

// Err returns the reason the driver exited. It is only meaningful after
// Done is closed; before that it returns nil. ErrShutdownRequested is
// returned when the driver exited because its shutdown signal fired, and
// is not indicative of failure.
func (h *Handle) Err() error { return h.d.resultErr() }

// Close aborts the session immediately, without draining in-flight
// sends. This is the "drop the handle" path: prefer firing the
// shutdown channel passed to Start for a graceful exit.
func (h *Handle) Close() { h.d.abort() }

func (d *Driver) sendAudio(data []byte) error {
	if err := d.limiter.Wait(d.ctx); err != nil {
		return fmt.Errorf("session: send audio: %w", d.terminalError(err))
	}

	if len(data) > maxRecommendedAudioPart {
		log.Printf("[session] audio_part of %d bytes exceeds the recommended %d-byte soft limit", len(data), maxRecommendedAudioPart)
	}

	pkt := srsproto.VoicePacket{
		AudioPart: data,
		Frequencies: []srsproto.Frequency{{
			Freq:       float64(d.identity.Freq()),
			Modulation: d.identity.Modulation(),
			Encryption: srsproto.EncryptionNone,
		}},
		UnitID:            unitIDOrZero(d.identity),
		PacketID:          d.packetID.Add(1),
		HopCount:          0,
		TransmissionSGUID: d.identity.WireSGUID(),
		ClientSGUID:       d.identity.WireSGUID(),
	}

	select {
	case d.outQueue <- udpFrame{kind: frameVoice, voice: pkt}:
		return nil
	case <-d.ctx.Done():
		return fmt.Errorf("session: send audio: %w", d.terminalError(d.ctx.Err()))
	}
}

func (d *Driver) abort() {
	d.cancel()
	_ = d.conn.Close()
	_ = d.udp.Close()
}

func (d *Driver) terminalError(fallback error) error {
	if err := d.resultErr(); err != nil {
		return err
	}
	return fallback
}

func (d *Driver) resultErr() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.err
}

func (d *Driver) fail(err error) {
	d.errMu.Lock()
	if d.err == nil {
		d.err = err
	}
	d.errMu.Unlock()
}

func (d *Driver) cleanup() {
	d.cancel()
	_ = d.conn.Close()
	_ = d.udp.Close()
	close(d.voiceIn)
}

// readControlLoop decodes inbound TCP control messages and forwards them
// to run via controlCh, one message (or terminal error) at a time.
func (d *Driver) readControlLoop() {
	dec := srsproto.NewMessageDecoder(d.conn)
	for {
		msg, err := dec.Decode()
		if err != nil {
			d.controlCh <- controlEvent{err: err}
			close(d.controlCh)
			return
		}
		d.controlCh <- controlEvent{msg: msg}
	}
}

// readVoiceLoop decodes inbound UDP voice datagrams independently of the
// event loop, so a slow consumer of Handle.Voice cannot stall the send
// arm or the timers. Packets are dropped, not buffered without bound, if
// the consumer falls behind.
func (d *Driver) readVoiceLoop() {
	codec := srsproto.VoiceCodec{}
	buf := make([]byte, 2048)
	for {
		n, err := d.udp.Read(buf)
		if err != nil {
			return
		}
		pkt, ok := codec.Decode(buf[:n])
		if !ok {
			continue // truncated datagram: a protocol error on UDP, not worth retrying
		}
		select {
		case d.voiceIn <- pkt:
		default:
		}
	}
}

// send encodes and writes a single control message over the TCP
// channel.
func (d *Driver) send(msg srsproto.ControlMessage) error {
	b, err := srsproto.MessageCodec{}.Encode(msg)
	if err != nil {
		return err
	}
	_, err = d.conn.Write(b)
	return err
}

// checkPositionUpdate sends a position UPDATE if the session is a
// stationary transmitter (no gameSource), at least one of the server's
// LOS/distance gating flags is enabled, and the position has changed
// since the last update. It is a no-op (returns nil, sends nothing) in
// every other case, per the two boundary behaviors documented for the
// position-update timer.
func (d *Driver) checkPositionUpdate() error {
	if d.gameSource != nil {
		return nil
	}
	if !d.settings.LOSEnabled() && !d.settings.DistanceEnabled() {
		return nil
	}
	cur := d.identity.Position()
	if cur == d.lastPosition {
		return nil
	}
	d.lastPosition = cur
	return d.send(updateMessage(d.identity))
}

// checkGameRelay sends a RADIO_UPDATE reflecting the most recently
// buffered GameMessage, or does nothing if none has arrived yet.
func (d *Driver) checkGameRelay() error {
	if d.lastGameMsg == nil {
		return nil
	}
	return d.send(radioUpdateFromGame(d.identity, *d.lastGameMsg))
}

// checkVoicePing enqueues a UDP keep-alive ping when the session wants
// to receive voice, dropping it if the outbound queue is already full
// rather than blocking the event loop.
func (d *Driver) checkVoicePing() {
	if !d.recvVoice {
		return
	}
	select {
	case d.outQueue <- udpFrame{kind: framePing, ping: d.identity.WireSGUID()}:
	default:
		// queue full: skip this keep-alive, the next one is 5s away
	}
}

// run is the driver's single cooperative event loop. It performs the
// startup handshake, fires each timer's action once immediately, then
// multiplexes over the seven event sources with no implicit priority.
func (d *Driver) run() {
	defer close(d.doneCh)
	defer d.cleanup()

	if err := d.send(syncMessage(d.identity)); err != nil {
		d.fail(fmt.Errorf("session: send sync: %w", err))
		return
	}
	if err := d.send(radioUpdateMessage(d.identity)); err != nil {
		d.fail(fmt.Errorf("session: send radio update: %w", err))
		return
	}

	d.lastPosition = d.identity.Position()

	if err := d.checkPositionUpdate(); err != nil {
		d.fail(fmt.Errorf("session: send position update: %w", err))
		return
	}
	_ = d.checkGameRelay() // lastGameMsg is nil on the first pass; nothing to send yet
	d.checkVoicePing()

	posTicker := time.NewTicker(positionUpdatePeriod)
	defer posTicker.Stop()
	relayTicker := time.NewTicker(gameRelayPeriod)
	defer relayTicker.Stop()
	pingTicker := time.NewTicker(voicePingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case ev, ok := <-d.controlCh:
			if !ok {
				d.fail(fmt.Errorf("session: control channel closed unexpectedly"))
				return
			}
			if ev.err != nil {
				if errors.Is(ev.err, io.EOF) {
					d.fail(fmt.Errorf("session: control stream closed by server"))
				} else {
					d.fail(fmt.Errorf("session: control stream: %w", ev.err))
				}
				return
			}
			d.settings.ApplyRaw(ev.msg.ServerSettings)
			if ev.msg.MsgType == srsproto.MsgTypeVersionMismatch {
				mismatch := &VersionMismatchError{Ours: srsproto.ProtocolVersion, Theirs: ev.msg.Version}
				log.Printf("[session] %v", mismatch)
				d.fail(mismatch)
				return
			}

		case gm, ok := <-d.gameSource:
			if ok {
				msg := gm
				d.lastGameMsg = &msg
			} else {
				d.gameSource = nil // disable this arm; treat as if absent from here on
			}

		case <-posTicker.C:
			if err := d.checkPositionUpdate(); err != nil {
				d.fail(fmt.Errorf("session: send position update: %w", err))
				return
			}

		case <-relayTicker.C:
			if err := d.checkGameRelay(); err != nil {
				d.fail(fmt.Errorf("session: send radio relay: %w", err))
				return
			}

		case <-pingTicker.C:
			d.checkVoicePing()

		case frame := <-d.outQueue:
			if err := d.writeFrame(frame); err != nil {
				d.fail(fmt.Errorf("session: udp write: %w", err))
				return
			}

		case <-d.shutdown:
			if tcp, ok := d.conn.(*net.TCPConn); ok {
				_ = tcp.CloseWrite()
			}
			d.drainOutQueue()
			d.fail(ErrShutdownRequested)
			return
		}
	}
}

// drainOutQueue flushes any voice packets already queued before exiting
// on a graceful shutdown.
func (d *Driver) drainOutQueue() {
	for {
		select {
		case frame := <-d.outQueue:
			_ = d.writeFrame(frame)
		default:
			return
		}
	}
}

func (d *Driver) writeFrame(f udpFrame) error {
	switch f.kind {
	case framePing:
		_, err := d.udp.Write(f.ping[:])
		return err
	default:
		encoded := srsproto.VoiceCodec{}.Encode(f.voice)
		_, err := d.udp.Write(encoded)
		return err
	}
}
