// Package channel implements the supervised, long-lived bidirectional
// message channel the session engine speaks over: heartbeat
// supervision, multi-frame continuation reassembly, and text/binary
// message normalization, sitting on top of an abstract Conn so the
// engine can be driven and tested without a real socket.
package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// FrameKind enumerates the frame alphabet the channel understands:
// plain text/binary messages, the parts of a fragmented continuation
// sequence, and control frames.
type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
	FrameContinueText
	FrameContinueBinary
	FrameFirstText
	FrameFirstBinary
	FrameLast
	FramePing
	FramePong
	FrameClose
)

// Conn is the abstract transport binding. wsconn.Conn is the concrete
// implementation over github.com/coder/websocket; tests in this
// package drive Channel against a fake.
type Conn interface {
	ReadMessage(ctx context.Context) (FrameKind, []byte, error)
	WriteMessage(ctx context.Context, kind FrameKind, payload []byte) error
	// Ping emits a ping and blocks until the peer's pong arrives (or
	// ctx expires): a nil return means the peer answered.
	Ping(ctx context.Context) error
	Close(code int, reason string) error
}

// Config holds the channel's supervision parameters. Callers start
// from DefaultConfig and override; the zero value is not valid.
type Config struct {
	// HeartbeatInterval is how often the channel emits a ping.
	HeartbeatInterval time.Duration

	// ClientTimeout is the maximum time since the last observed
	// heartbeat (any frame from the peer, or a ping the peer answered)
	// before the channel closes the session.
	ClientTimeout time.Duration

	// ContinuationGrowthFactor sizes the continuation buffer's initial
	// capacity as a multiple of the first part's size.
	ContinuationGrowthFactor int
}

// DefaultConfig returns the standard supervision parameters: a ping
// every 100ms and teardown after 500ms without a heartbeat.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:        100 * time.Millisecond,
		ClientTimeout:            500 * time.Millisecond,
		ContinuationGrowthFactor: 2,
	}
}

// ErrProtocol signals a frame sequence the channel cannot make sense
// of; Run has already closed the connection with a protocol-error code
// when it returns this.
var ErrProtocol = errors.New("channel: protocol error")

// ErrPeerClosed signals a clean close frame from the peer.
var ErrPeerClosed = errors.New("channel: closed by peer")

// ErrHeartbeatTimeout signals that no heartbeat was observed within
// ClientTimeout.
var ErrHeartbeatTimeout = errors.New("channel: heartbeat timeout")

// Handler processes one fully reassembled logical message (continuation
// parts concatenated into a single binary payload) and returns the
// reply to write back to the peer.
type Handler func(payload []byte) []byte

// Channel drives one Conn: a background goroutine blocks on
// conn.ReadMessage while Run's main loop pings on a ticker and watches
// for heartbeat starvation.
type Channel struct {
	conn    Conn
	cfg     Config
	log     zerolog.Logger
	handler Handler
}

// New constructs a Channel bound to conn, supervised per cfg, logging
// through log, and dispatching reassembled messages to handler.
func New(conn Conn, cfg Config, log zerolog.Logger, handler Handler) *Channel {
	return &Channel{conn: conn, cfg: cfg, log: log, handler: handler}
}

type frameEvent struct {
	kind    FrameKind
	payload []byte
	err     error
}

// Run drives the channel until the peer closes, a protocol error
// occurs, the heartbeat times out, or ctx is canceled. It returns the
// reason the channel stopped.
func (c *Channel) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan frameEvent)
	go func() {
		for {
			kind, payload, err := c.conn.ReadMessage(ctx)
			select {
			case frames <- frameEvent{kind: kind, payload: payload, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	lastHeartbeat := time.Now()
	var continuation *continuationBuffer

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			if time.Since(lastHeartbeat) > c.cfg.ClientTimeout {
				c.log.Warn().Msg("heartbeat timeout, closing session")
				c.conn.Close(closeCodePolicyViolation, "heartbeat timeout")
				return ErrHeartbeatTimeout
			}
			// Conn.Ping is a round trip: it returns nil once the peer's
			// pong arrives, so success counts as a heartbeat. Bounded by
			// the ticker interval so a dead peer can't stall the loop
			// past the next supervision check.
			pingCtx, cancelPing := context.WithTimeout(ctx, c.cfg.HeartbeatInterval)
			err := c.conn.Ping(pingCtx)
			cancelPing()
			if err != nil {
				c.log.Warn().Err(err).Msg("ping failed")
			} else {
				lastHeartbeat = time.Now()
			}

		case ev := <-frames:
			if ev.err != nil {
				if ev.err == context.Canceled || ev.err == context.DeadlineExceeded {
					return ev.err
				}
				c.log.Warn().Err(ev.err).Msg("protocol error reading message")
				c.conn.Close(closeCodeProtocolError, "protocol error")
				return fmt.Errorf("%w: %v", ErrProtocol, ev.err)
			}
			lastHeartbeat = time.Now()

			switch ev.kind {
			case FramePing, FramePong:
				// Heartbeat already recorded above.

			case FrameClose:
				c.conn.Close(closeCodeNormal, "")
				return ErrPeerClosed

			case FrameText, FrameBinary:
				c.dispatch(ctx, ev.payload)

			case FrameFirstText, FrameFirstBinary:
				continuation = newContinuationBuffer(ev.payload, c.cfg.ContinuationGrowthFactor)

			case FrameContinueText, FrameContinueBinary:
				if continuation == nil {
					// Tolerant degradation: treat as the first part.
					continuation = newContinuationBuffer(ev.payload, c.cfg.ContinuationGrowthFactor)
				} else {
					continuation.append(ev.payload)
				}

			case FrameLast:
				if continuation == nil {
					continuation = newContinuationBuffer(ev.payload, c.cfg.ContinuationGrowthFactor)
				} else {
					continuation.append(ev.payload)
				}
				payload := continuation.bytes()
				continuation = nil
				c.dispatch(ctx, payload)

			default:
				c.log.Warn().Int("kind", int(ev.kind)).Msg("unrecognized frame kind")
				c.conn.Close(closeCodeProtocolError, "protocol error")
				return fmt.Errorf("%w: unrecognized frame kind %d", ErrProtocol, ev.kind)
			}
		}
	}
}

func (c *Channel) dispatch(ctx context.Context, payload []byte) {
	reply := c.handler(payload)
	if reply == nil {
		return
	}
	if err := c.conn.WriteMessage(ctx, FrameBinary, reply); err != nil {
		c.log.Warn().Err(err).Msg("write reply failed")
	}
}

const (
	closeCodeNormal          = 1000
	closeCodePolicyViolation = 1008
	closeCodeProtocolError   = 1002
)

// continuationBuffer accumulates continuation-frame parts into a single
// logical payload, initially sized to ContinuationGrowthFactor times
// the first part's length.
type continuationBuffer struct {
	buf []byte
}

func newContinuationBuffer(first []byte, growthFactor int) *continuationBuffer {
	if growthFactor < 1 {
		growthFactor = 1
	}
	buf := make([]byte, 0, len(first)*growthFactor)
	buf = append(buf, first...)
	return &continuationBuffer{buf: buf}
}

func (c *continuationBuffer) append(part []byte) {
	c.buf = append(c.buf, part...)
}

func (c *continuationBuffer) bytes() []byte {
	return c.buf
}
