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

package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cadredata/xwire/lib/stream"
	"github.com/cadredata/xwire/lib/xproto/frame"
	"github.com/cadredata/xwire/lib/xproto/message"
)

// payloadMarshaler is the marshalling half shared by all wire messages.
type payloadMarshaler interface {
	MarshalPayload(dst []byte) ([]byte, error)
}

// fakeServer plays the server side of a session over an in-memory pipe.
// Its methods run from a script goroutine; the pipe is synchronous, so the
// script must consume client frames before producing responses.
type fakeServer struct {
	t    *testing.T
	conn stream.Conn
	fr   *frame.Reader
	fw   *frame.Writer
}

// makeTestSession returns a session and the fake server wired to its other
// end.
func makeTestSession(t *testing.T) (*Session, *fakeServer) {
	t.Helper()
	client, server := stream.Pipe()
	sess, err := New(Config{Conn: client})
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return sess, &fakeServer{
		t:    t,
		conn: server,
		fr:   frame.NewReader(server, 0),
		fw:   frame.NewWriter(server),
	}
}

// script runs fn as the server and returns a channel closed when it ends.
func (s *fakeServer) script(fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	return done
}

// expect reads the next client frame and asserts its type.
func (s *fakeServer) expect(typ message.ClientType) frame.Frame {
	f, err := s.fr.ReadFrame()
	require.NoError(s.t, err)
	require.Equal(s.t, byte(typ), f.Type, "expected client message %v, got %v",
		typ, message.ClientType(f.Type))
	return f
}

// send marshals and writes one server message frame.
func (s *fakeServer) send(typ message.ServerType, m payloadMarshaler) {
	payload, err := m.MarshalPayload(nil)
	require.NoError(s.t, err)
	s.sendRaw(byte(typ), payload)
}

// sendRaw writes one frame with the given type tag and payload.
func (s *fakeServer) sendRaw(typ byte, payload []byte) {
	s.fw.Queue(typ, payload)
	require.NoError(s.t, s.fw.Flush())
}

// sendColumns sends n minimal column descriptions.
func (s *fakeServer) sendColumns(n int) {
	for i := 0; i < n; i++ {
		s.send(message.ServerColumnMetaData, &message.ColumnMetaData{
			Type: message.FieldTypeSint,
			Name: "c",
		})
	}
}

// sendRow sends one row with the given raw field values.
func (s *fakeServer) sendRow(fields ...[]byte) {
	s.send(message.ServerRow, &message.Row{Fields: fields})
}

// serveGoodbye answers the graceful connection shutdown.
func (s *fakeServer) serveGoodbye() {
	s.expect(message.ClientConnClose)
	s.send(message.ServerOk, &message.Ok{Message: "bye!"})
}
