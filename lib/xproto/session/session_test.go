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
	"bytes"
	"context"
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/cadredata/xwire/lib/xproto/compress"
	"github.com/cadredata/xwire/lib/xproto/frame"
	"github.com/cadredata/xwire/lib/xproto/message"
	"github.com/cadredata/xwire/lib/xproto/value"
)

func TestConfigCheckAndSetDefaults(t *testing.T) {
	t.Parallel()
	var cfg Config
	require.True(t, trace.IsBadParameter(cfg.CheckAndSetDefaults()))

	_, err := New(Config{})
	require.Error(t, err)
}

func TestCapabilitiesGet(t *testing.T) {
	t.Parallel()
	sess, srv := makeTestSession(t)
	done := srv.script(func() {
		srv.expect(message.ClientCapabilitiesGet)
		srv.send(message.ServerCapabilities, &message.Capabilities{Capabilities: []message.Capability{
			{Name: "tls", Value: value.Bool(true)},
			{Name: "node_type", Value: value.String("mysql")},
		}})
	})

	caps, err := sess.CapabilitiesGet(context.Background())
	require.NoError(t, err)
	<-done

	v, ok := caps.Get("node_type")
	require.True(t, ok)
	require.Equal(t, "mysql", v.Str())
}

func TestCapabilitiesSetRejected(t *testing.T) {
	t.Parallel()
	sess, srv := makeTestSession(t)
	done := srv.script(func() {
		srv.expect(message.ClientCapabilitiesSet)
		srv.send(message.ServerError, &message.Error{
			Code: 5001, SQLState: "HY000", Message: "Capability prepare failed",
		})
	})

	err := sess.CapabilitiesSet(context.Background(), message.Capabilities{
		Capabilities: []message.Capability{{Name: "nope", Value: value.Bool(true)}},
	})
	require.ErrorContains(t, err, "Capability prepare failed")
	<-done
	// A rejected capability is a server error, not a protocol violation.
	require.False(t, sess.Damaged())
}

func TestAuthenticateMySQL41(t *testing.T) {
	t.Parallel()
	sess, srv := makeTestSession(t)
	nonce := bytes.Repeat([]byte{0x42}, 20)

	done := srv.script(func() {
		f := srv.expect(message.ClientAuthStart)
		var start message.AuthenticateStart
		require.NoError(srv.t, start.UnmarshalPayload(f.Payload))
		require.Equal(srv.t, "MYSQL41", start.MechName)
		require.Empty(srv.t, start.AuthData)

		srv.send(message.ServerAuthContinue, &message.AuthenticateContinue{AuthData: nonce})

		f = srv.expect(message.ClientAuthContinue)
		var cont message.AuthenticateContinue
		require.NoError(srv.t, cont.UnmarshalPayload(f.Payload))
		// db \0 user \0 * then 40 hex characters of scramble.
		parts := bytes.SplitN(cont.AuthData, []byte{0}, 3)
		require.Len(srv.t, parts, 3)
		require.Equal(srv.t, []byte("app"), parts[0])
		require.Equal(srv.t, []byte("alice"), parts[1])
		require.Equal(srv.t, byte('*'), parts[2][0])
		require.Len(srv.t, parts[2], 41)

		srv.send(message.ServerAuthOk, &message.AuthenticateOk{})
	})

	err := sess.Authenticate(context.Background(), MySQL41{
		Database: "app",
		User:     "alice",
		Password: "secret",
	})
	require.NoError(t, err)
	<-done
}

func TestAuthenticatePlain(t *testing.T) {
	t.Parallel()
	sess, srv := makeTestSession(t)
	done := srv.script(func() {
		f := srv.expect(message.ClientAuthStart)
		var start message.AuthenticateStart
		require.NoError(srv.t, start.UnmarshalPayload(f.Payload))
		require.Equal(srv.t, "PLAIN", start.MechName)
		require.Equal(srv.t, []byte("app\x00bob\x00hunter2"), start.AuthData)
		srv.send(message.ServerAuthOk, &message.AuthenticateOk{})
	})

	err := sess.Authenticate(context.Background(), Plain{
		Database: "app",
		User:     "bob",
		Password: "hunter2",
	})
	require.NoError(t, err)
	<-done
}

func TestAuthenticateDenied(t *testing.T) {
	t.Parallel()
	sess, srv := makeTestSession(t)
	done := srv.script(func() {
		srv.expect(message.ClientAuthStart)
		srv.send(message.ServerError, &message.Error{
			Severity: message.SeverityFatal,
			Code:     1045, SQLState: "28000", Message: "Access denied",
		})
	})

	err := sess.Authenticate(context.Background(), Plain{User: "mallory"})
	require.ErrorContains(t, err, "Access denied")
	<-done
}

func TestScramble41(t *testing.T) {
	t.Parallel()
	nonce := bytes.Repeat([]byte{0x01}, 20)
	first := scramble41("secret", nonce)
	require.Len(t, first, 40)
	// Deterministic for the same inputs, different otherwise.
	require.Equal(t, first, scramble41("secret", nonce))
	require.NotEqual(t, first, scramble41("other", nonce))
	other := bytes.Repeat([]byte{0x02}, 20)
	require.NotEqual(t, first, scramble41("secret", other))
}

func TestEnableCompression(t *testing.T) {
	t.Parallel()
	sess, srv := makeTestSession(t)

	// The server keeps its own codec pair: its decompressor sees client
	// envelopes, its compressor produces server envelopes.
	srvCmp, srvDec, err := compress.New(compress.AlgorithmDeflate)
	require.NoError(t, err)

	big := bytes.Repeat([]byte("select repeat('x', 100); "), 200)
	done := srv.script(func() {
		f := srv.expect(message.ClientCapabilitiesSet)
		var set message.CapabilitiesSet
		require.NoError(srv.t, set.UnmarshalPayload(f.Payload))
		v, ok := set.Capabilities.Get("compression")
		require.True(srv.t, ok)
		require.Equal(srv.t, "deflate_stream", v.Fields()[0].Value.Str())
		srv.send(message.ServerOk, &message.Ok{})

		// The large statement must arrive wrapped in an envelope.
		f = srv.expect(message.ClientType(message.ClientCompression))
		var env message.Compression
		require.NoError(srv.t, env.UnmarshalPayload(f.Payload))
		require.NoError(srv.t, srvDec.Feed(env.Payload))
		raw := make([]byte, env.UncompressedSize)
		for read := 0; read < len(raw); {
			n, err := srvDec.Read(raw[read:])
			if n == 0 {
				require.NoError(srv.t, err)
			}
			read += n
		}
		length, typ, err := frame.DecodeHeader(raw)
		require.NoError(srv.t, err)
		require.Equal(srv.t, byte(message.ClientStmtExecute), typ)
		require.Equal(srv.t, uint64(frame.HeaderSize+length-1), env.UncompressedSize)

		// Respond with a compressed Ok envelope.
		okPayload, err := (&message.Ok{}).MarshalPayload(nil)
		require.NoError(srv.t, err)
		rawResp := frame.Append(nil, byte(message.ServerOk), okPayload)
		compressed, err := srvCmp.Compress(rawResp)
		require.NoError(srv.t, err)
		resp := message.Compression{
			UncompressedSize: uint64(len(rawResp)),
			Payload:          compressed,
		}
		resp.SetServerMessages(message.ServerOk)
		respPayload, err := resp.MarshalPayload(nil)
		require.NoError(srv.t, err)
		srv.sendRaw(byte(message.ServerCompression), respPayload)
	})

	ctx := context.Background()
	require.NoError(t, sess.EnableCompression(ctx, compress.AlgorithmDeflate))

	reply, err := sess.Execute(&message.StmtExecute{Stmt: big})
	require.NoError(t, err)
	var c Collector
	require.NoError(t, reply.Drain(ctx, c.Processors()))
	<-done
	require.True(t, reply.Done())
}

func TestSessionReset(t *testing.T) {
	t.Parallel()
	sess, srv := makeTestSession(t)
	done := srv.script(func() {
		f := srv.expect(message.ClientSessionReset)
		var reset message.SessionReset
		require.NoError(srv.t, reset.UnmarshalPayload(f.Payload))
		require.True(srv.t, reset.KeepOpen)
		srv.send(message.ServerOk, &message.Ok{})
	})

	require.NoError(t, sess.Reset(context.Background(), true))
	<-done
}

func TestSessionClose(t *testing.T) {
	t.Parallel()
	sess, srv := makeTestSession(t)
	done := srv.script(func() {
		srv.serveGoodbye()
	})

	require.NoError(t, sess.Close(context.Background()))
	<-done

	// Closing twice is fine, using a closed session is not.
	require.NoError(t, sess.Close(context.Background()))
	_, err := sess.Execute(&message.StmtExecute{Stmt: []byte("SELECT 1")})
	require.True(t, trace.IsBadParameter(err))
}

func TestPipelinedStatementIsDeferred(t *testing.T) {
	t.Parallel()
	sess, srv := makeTestSession(t)

	// Execute must only queue: with a synchronous pipe and no server
	// reading yet, an eager write would deadlock right here.
	reply, err := sess.Execute(&message.StmtExecute{Stmt: []byte("SELECT 1")})
	require.NoError(t, err)
	require.Positive(t, sess.wr.Pending())

	done := srv.script(func() {
		srv.expect(message.ClientStmtExecute)
		srv.send(message.ServerOk, &message.Ok{})
	})
	var c Collector
	require.NoError(t, reply.Drain(context.Background(), c.Processors()))
	<-done
	require.Zero(t, sess.wr.Pending())
}
