// Command ae_proxy terminates plaintext connections and forwards them over
// NORX64-4-1 encrypted connections, keying each connection with an ephemeral
// Ristretto255 handshake. Each direction of a connection is carried as one
// streaming message.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net"

	"github.com/norx64/norx/handshake"
	"github.com/norx64/norx/stream"
)

//nolint:funlen // it's just complicated
func main() {
	var (
		listen  = flag.String("listen", "127.0.0.1:6060", "the address to listen on")
		connect = flag.String("connect", "127.0.0.1:5050", "the address to connect to")
		domain  = flag.String("domain", "norx.ae_proxy", "the handshake domain string")
	)
	flag.Parse()

	log := slog.New(slog.Default().Handler())

	listenConfig := new(net.ListenConfig)
	listener, err := listenConfig.Listen(context.Background(), "tcp", *listen)
	if err != nil {
		panic(err)
	}
	log.Info("listening", "addr", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Error("failed to accept connection", "err", err)
			continue
		}

		go func() {
			log.Info("accepted new connection", "addr", conn.RemoteAddr())
			defer func() {
				_ = conn.Close()
				log.Info("closed connection", "addr", conn.RemoteAddr())
			}()

			log.Info("connecting", "addr", *connect)
			dialer := new(net.Dialer)
			client, err := dialer.DialContext(context.Background(), "tcp", *connect)
			if err != nil {
				log.Error("error connecting", "err", err)
				return
			}
			defer func() {
				_ = client.Close()
			}()

			finish, request, err := handshake.Initiate(*domain, rand.Reader)
			if err != nil {
				panic(err)
			}
			if _, err := client.Write(request); err != nil {
				log.Error("error sending handshake", "err", err)
				return
			}
			response := make([]byte, handshake.MessageSize)
			if _, err := io.ReadFull(client, response); err != nil {
				log.Error("error reading handshake", "err", err)
				return
			}
			send, recv, err := finish(response)
			if err != nil {
				log.Error("handshake failed", "err", err)
				return
			}
			log.Info("handshake established")

			w := stream.NewWriter(client, send.Key[:], send.Nonce[:], nil, nil)
			r := stream.NewReader(client, recv.Key[:], recv.Nonce[:], nil, nil)
			defer func() {
				if err := w.Close(); err != nil {
					log.Error("error closing stream", "err", err)
				}
			}()

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				if _, err := io.Copy(w, conn); err != nil && !errors.Is(err, net.ErrClosed) {
					log.Error("error reading from client", "err", err)
				}
				cancel()
			}()
			go func() {
				if _, err := io.Copy(conn, r); err != nil && !errors.Is(err, net.ErrClosed) {
					log.Error("error writing to server", "err", err)
				}
				cancel()
			}()
			<-ctx.Done()
		}()
	}
}
