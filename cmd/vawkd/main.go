// Command vawkd reads its own stdin fully into memory once, accepts
// exactly one WebSocket upgrade, constructs one session.Session over
// that buffer, and exits when that session ends. It is deliberately
// not a multi-tenant listener and serves no static assets or UI; it
// exists to host a single interactive session over a captured buffer.
package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vawk-go/vawk/channel"
	"github.com/vawk-go/vawk/session"
	"github.com/vawk-go/vawk/transport/wsconn"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read stdin")
	}

	addr := os.Getenv("VAWKD_ADDR")
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	done := make(chan struct{})
	var once sync.Once
	var accepted atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		if !accepted.CompareAndSwap(false, true) {
			http.Error(w, "session already started", http.StatusConflict)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.CloseNow()

		sess := session.New("session-1", input, log)
		ch := channel.New(wsconn.New(conn), channel.DefaultConfig(), log, sess.HandleMessage)

		if err := ch.Run(r.Context()); err != nil {
			log.Info().Err(err).Msg("session ended")
		}
		once.Do(func() { close(done) })
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bind listener")
	}
	log.Info().Str("addr", listener.Addr().String()).Msg("listening")

	srv := &http.Server{Handler: mux}

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	<-done
	srv.Shutdown(context.Background())
}
