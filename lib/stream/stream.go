/*
Copyright 2024 Cadre Data, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package stream defines the duplex byte stream the protocol core runs on
// top of. The core never opens sockets itself; anything that satisfies Conn
// (a plain TCP connection, a TLS connection, an in-memory pipe in tests)
// can carry a protocol session.
package stream

import (
	"context"
	"net"
	"time"

	"github.com/gravitational/trace"
)

// Conn is a duplex byte stream with deadline support. It is the subset of
// net.Conn the protocol core needs, so any net.Conn satisfies it.
type Conn interface {
	// Read reads up to len(p) bytes into p.
	Read(p []byte) (n int, err error)
	// Write writes p to the stream.
	Write(p []byte) (n int, err error)
	// Close closes the stream. The stream is unusable afterwards.
	Close() error
	// SetReadDeadline sets the deadline for future Read calls.
	SetReadDeadline(t time.Time) error
	// SetWriteDeadline sets the deadline for future Write calls.
	SetWriteDeadline(t time.Time) error
}

// Dial opens a TCP connection to the given address and returns it as a Conn.
// TLS, proxying and the like are the caller's business: wrap the returned
// connection, or dial your own and skip this helper.
func Dial(ctx context.Context, network, address string) (Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, trace.ConvertSystemError(err)
	}
	return conn, nil
}

// Pipe returns a connected pair of in-memory streams, used by tests to play
// both sides of a session without a socket.
func Pipe() (client Conn, server Conn) {
	return net.Pipe()
}
