// Command ae_reverse_proxy terminates NORX64-4-1 encrypted connections keyed
// by an ephemeral Ristretto255 handshake and forwards them as plaintext
// connections.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"io"
	"log/slog"
	"net"

	"github.com/norx64/norx/handshake"
	"github.com/norx64/norx/stream"
)

//nolint:funlen // it's complicated
func main() {
	var (
		listen  = flag.String("listen", "127.0.0.1:5050", "the address to listen on")
		connect = flag.String("connect", "127.0.0.1:4040", "the address to connect to")
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
				log.Info("closed connection")
			}()

			request := make([]byte, handshake.MessageSize)
			if _, err := io.ReadFull(conn, request); err != nil {
				log.Error("error reading handshake", "err", err)
				return
			}
			send, recv, response, err := handshake.Respond(*domain, rand.Reader, request)
			if err != nil {
				log.Error("handshake failed", "err", err)
				return
			}
			if _, err := conn.Write(response); err != nil {
				log.Error("error sending handshake", "err", err)
				return
			}
			log.Info("handshake established")

			w := stream.NewWriter(conn, send.Key[:], send.Nonce[:], nil, nil)
			r := stream.NewReader(conn, recv.Key[:], recv.Nonce[:], nil, nil)
			defer func() {
				if err := w.Close(); err != nil {
					log.Error("error closing stream", "err", err)
				}
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

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				if _, err := io.Copy(client, r); err != nil {
					log.Error("error reading from client", "err", err)
				}
				cancel()
			}()
			go func() {
				if _, err := io.Copy(w, client); err != nil {
					log.Error("error writing to server", "err", err)
				}
				cancel()
			}()
			<-ctx.Done()
		}()
	}
}
