// Command ae_pipe encrypts or decrypts standard input to standard output as a
// single NORX64-4-1 message, with optional authenticated header and trailer
// strings.
package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/norx64/norx/stream"
)

func main() {
	var (
		keyHex   = flag.String("key", "", "the key, as 64 hex digits")
		nonceHex = flag.String("nonce", "", "the nonce, as 32 hex digits (generated if empty)")
		header   = flag.String("header", "", "an authenticated header string")
		trailer  = flag.String("trailer", "", "an authenticated trailer string")
		decrypt  = flag.Bool("d", false, "decrypt instead of encrypting")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	key, err := hex.DecodeString(*keyHex)
	if err != nil {
		log.Error("invalid key", "err", err)
		os.Exit(1)
	}

	var nonce []byte
	if *nonceHex == "" && *decrypt {
		log.Error("nonce required for decryption")
		os.Exit(1)
	} else if *nonceHex == "" {
		nonce = make([]byte, 16)
		if _, err := rand.Read(nonce); err != nil {
			panic(err)
		}
		fmt.Fprintf(os.Stderr, "nonce = %x\n", nonce)
	} else if nonce, err = hex.DecodeString(*nonceHex); err != nil {
		log.Error("invalid nonce", "err", err)
		os.Exit(1)
	}

	in := bufio.NewReader(os.Stdin)
	out := bufio.NewWriter(os.Stdout)

	if *decrypt {
		r := stream.NewReader(in, key, nonce, []byte(*header), []byte(*trailer))
		if _, err := io.Copy(out, r); err != nil {
			log.Error("decryption failed", "err", err)
			os.Exit(1)
		}
	} else {
		w := stream.NewWriter(out, key, nonce, []byte(*header), []byte(*trailer))
		if _, err := io.Copy(w, in); err != nil {
			log.Error("encryption failed", "err", err)
			os.Exit(1)
		}
		if err := w.Close(); err != nil {
			log.Error("encryption failed", "err", err)
			os.Exit(1)
		}
	}

	if err := out.Flush(); err != nil {
		log.Error("write failed", "err", err)
		os.Exit(1)
	}
}
