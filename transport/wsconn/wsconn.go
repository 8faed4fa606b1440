// Package wsconn binds channel.Conn to a concrete WebSocket
// connection using github.com/coder/websocket. It is intentionally
// thin: frame-kind translation only, no business logic, so
// channel.Channel stays testable against a fake Conn without a real
// socket.
package wsconn

import (
	"context"
	"errors"

	"github.com/coder/websocket"

	"github.com/vawk-go/vawk/channel"
)

// Conn adapts a *websocket.Conn to channel.Conn.
//
// coder/websocket reassembles fragmented frames internally: its Read
// call always returns one complete logical message, never a raw
// Continue/Last frame. Conn therefore never emits
// FrameFirstText/FrameContinueText/FrameLast (or their binary
// counterparts) — it always reports a complete message as FrameText or
// FrameBinary. channel.Channel's continuation-reassembly path exists
// for transports that do expose raw frames (and is exercised directly
// by channel's own tests against a fake Conn); against this concrete
// binding it is simply never triggered, which is harmless since a
// single First/Last pair of one part each degenerates to the same
// result as a plain message.
type Conn struct {
	conn *websocket.Conn
}

// New wraps an already-accepted *websocket.Conn.
func New(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn}
}

func (c *Conn) ReadMessage(ctx context.Context) (channel.FrameKind, []byte, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) != -1 {
			return channel.FrameClose, nil, nil
		}
		return 0, nil, err
	}

	switch typ {
	case websocket.MessageText:
		return channel.FrameText, data, nil
	case websocket.MessageBinary:
		return channel.FrameBinary, data, nil
	default:
		return 0, nil, errors.New("wsconn: unrecognized websocket message type")
	}
}

func (c *Conn) WriteMessage(ctx context.Context, kind channel.FrameKind, payload []byte) error {
	typ := websocket.MessageBinary
	if kind == channel.FrameText {
		typ = websocket.MessageText
	}
	return c.conn.Write(ctx, typ, payload)
}

func (c *Conn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *Conn) Close(code int, reason string) error {
	return c.conn.Close(websocket.StatusCode(code), reason)
}
