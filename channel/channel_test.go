package channel

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeConn is a scripted Conn: ReadMessage replays a fixed sequence of
// frames, then blocks until the context is canceled. Writes, pings, and
// closes are recorded for assertions.
type fakeConn struct {
	mu       sync.Mutex
	frames   []frameEvent
	pos      int
	writes   []frameEvent
	pings    int
	pingErr  error
	closed   bool
	closeErr error
}

func (f *fakeConn) ReadMessage(ctx context.Context) (FrameKind, []byte, error) {
	f.mu.Lock()
	if f.pos < len(f.frames) {
		ev := f.frames[f.pos]
		f.pos++
		f.mu.Unlock()
		return ev.kind, ev.payload, ev.err
	}
	f.mu.Unlock()

	<-ctx.Done()
	return 0, nil, ctx.Err()
}

func (f *fakeConn) WriteMessage(ctx context.Context, kind FrameKind, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, frameEvent{kind: kind, payload: payload})
	return nil
}

func (f *fakeConn) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeConn) Close(code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.closeErr
}

func echoHandler(payload []byte) []byte {
	out := make([]byte, len(payload))
	copy(out, payload)
	return out
}

func TestRun_DispatchesBinaryMessage(t *testing.T) {
	conn := &fakeConn{frames: []frameEvent{
		{kind: FrameBinary, payload: []byte("hello")},
		{err: io.EOF},
	}}

	cfg := DefaultConfig()
	cfg.HeartbeatInterval = time.Hour // don't let the ticker interfere
	ch := New(conn, cfg, zerolog.Nop(), echoHandler)

	err := ch.Run(context.Background())
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("Run error = %v, want wrapped io.EOF as ErrProtocol", err)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.writes) != 1 || string(conn.writes[0].payload) != "hello" {
		t.Errorf("writes = %+v, want one echo of \"hello\"", conn.writes)
	}
}

func TestRun_ReassemblesContinuation(t *testing.T) {
	conn := &fakeConn{frames: []frameEvent{
		{kind: FrameFirstBinary, payload: []byte("ab")},
		{kind: FrameContinueBinary, payload: []byte("cd")},
		{kind: FrameLast, payload: []byte("ef")},
		{err: io.EOF},
	}}

	cfg := DefaultConfig()
	cfg.HeartbeatInterval = time.Hour
	ch := New(conn, cfg, zerolog.Nop(), echoHandler)

	if err := ch.Run(context.Background()); !errors.Is(err, ErrProtocol) {
		t.Fatalf("Run error = %v, want wrapped io.EOF as ErrProtocol", err)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.writes) != 1 || string(conn.writes[0].payload) != "abcdef" {
		t.Errorf("writes = %+v, want one echo of \"abcdef\"", conn.writes)
	}
}

// TestRun_ContinueWithoutFirstDegradesToFirst covers tolerant
// degradation: a Continue or Last frame with no prior First part is
// treated as the first part rather than rejected.
func TestRun_ContinueWithoutFirstDegradesToFirst(t *testing.T) {
	conn := &fakeConn{frames: []frameEvent{
		{kind: FrameContinueBinary, payload: []byte("x")},
		{kind: FrameLast, payload: []byte("y")},
		{err: io.EOF},
	}}

	cfg := DefaultConfig()
	cfg.HeartbeatInterval = time.Hour
	ch := New(conn, cfg, zerolog.Nop(), echoHandler)

	if err := ch.Run(context.Background()); !errors.Is(err, ErrProtocol) {
		t.Fatalf("Run error = %v, want wrapped io.EOF as ErrProtocol", err)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.writes) != 1 || string(conn.writes[0].payload) != "xy" {
		t.Errorf("writes = %+v, want one echo of \"xy\"", conn.writes)
	}
}

func TestRun_PeerCloseStopsSession(t *testing.T) {
	conn := &fakeConn{frames: []frameEvent{
		{kind: FrameClose},
	}}

	ch := New(conn, DefaultConfig(), zerolog.Nop(), echoHandler)

	err := ch.Run(context.Background())
	if err != ErrPeerClosed {
		t.Fatalf("Run error = %v, want ErrPeerClosed", err)
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if !conn.closed {
		t.Error("expected Close to be called on peer close")
	}
}

func TestRun_HeartbeatTimeoutClosesSession(t *testing.T) {
	// The peer never sends a frame and never answers a ping.
	conn := &fakeConn{pingErr: errors.New("no pong")}

	cfg := Config{
		HeartbeatInterval:        5 * time.Millisecond,
		ClientTimeout:            10 * time.Millisecond,
		ContinuationGrowthFactor: 2,
	}
	ch := New(conn, cfg, zerolog.Nop(), echoHandler)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := ch.Run(ctx)
	if err != ErrHeartbeatTimeout {
		t.Fatalf("Run error = %v, want ErrHeartbeatTimeout", err)
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if !conn.closed {
		t.Error("expected Close to be called on heartbeat timeout")
	}
}

// TestRun_AnsweredPingsKeepSessionAlive covers the idle-but-alive peer:
// as long as pings are answered, the session outlives ClientTimeout.
func TestRun_AnsweredPingsKeepSessionAlive(t *testing.T) {
	conn := &fakeConn{} // no frames, but pings succeed

	cfg := Config{
		HeartbeatInterval:        5 * time.Millisecond,
		ClientTimeout:            10 * time.Millisecond,
		ContinuationGrowthFactor: 2,
	}
	ch := New(conn, cfg, zerolog.Nop(), echoHandler)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := ch.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run error = %v, want context deadline (session should stay alive)", err)
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.pings == 0 {
		t.Error("expected at least one ping")
	}
}

// TestRun_PongUpdatesHeartbeat checks that a pong frame is consumed as a
// heartbeat without ending the run: Run keeps reading until the later
// io.EOF. The ticker is set to an hour, so the heartbeat timestamp
// itself is not observed here.
func TestRun_PongUpdatesHeartbeat(t *testing.T) {
	conn := &fakeConn{frames: []frameEvent{
		{kind: FramePong},
		{err: io.EOF},
	}}

	cfg := DefaultConfig()
	cfg.HeartbeatInterval = time.Hour
	ch := New(conn, cfg, zerolog.Nop(), echoHandler)

	if err := ch.Run(context.Background()); !errors.Is(err, ErrProtocol) {
		t.Fatalf("Run error = %v, want wrapped io.EOF as ErrProtocol", err)
	}
}
