// Package ftp implements the protocol engine for a single logical FTP
// client session: connection establishment and greeting, feature
// negotiation, explicit and implicit TLS, authentication, binary transfer
// mode, and the request/response cycle over a dual-channel (control + data)
// transport, per RFC 959, RFC 2228, RFC 2389, RFC 2428, and RFC 3659.
//
// # Overview
//
// A Client drives one ordered pipeline on connect:
//
//	Connect -> Greet -> Feat -> (AUTH TLS) -> (PBSZ/PROT) -> USER/PASS -> TYPE I -> Ready
//
// Once Ready, the session exposes directory, metadata, and transfer
// operations that are serialized through a single-holder lock so that
// command/reply/data-transfer sequences stay atomic on the half-duplex
// control channel, even when called concurrently from multiple goroutines.
//
// # Basic usage
//
//	c, err := ftp.Dial("ftp.example.com:21",
//		ftp.WithCredentials("user", "pass"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	data, err := c.Download("/pub/README")
//
// # TLS
//
// Explicit TLS upgrades the control channel in place via AUTH TLS after the
// greeting; implicit TLS wraps the control socket before any command is
// sent (conventionally port 990):
//
//	c, err := ftp.Dial("ftp.example.com:21",
//		ftp.WithExplicitTLS(&tls.Config{ServerName: "ftp.example.com"}),
//	)
//
// # Scope
//
// This package is the protocol core only: it does not implement an FTP
// server, does not pipeline multiple commands on one control channel, does
// not cache directory listings, and does not retry or reconnect on its own.
// REST is detected via the feature matrix but never used to resume a
// transfer automatically.
package ftp
