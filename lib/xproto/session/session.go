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
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/cadredata/xwire/lib/stream"
	"github.com/cadredata/xwire/lib/xproto/compress"
	"github.com/cadredata/xwire/lib/xproto/frame"
	"github.com/cadredata/xwire/lib/xproto/message"
	"github.com/cadredata/xwire/lib/xproto/value"
)

// DefaultExchangeTimeout bounds a single-message exchange when the caller's
// context carries no deadline of its own.
const DefaultExchangeTimeout = 30 * time.Second

// Config is the session configuration.
type Config struct {
	// Conn is the established byte stream to the server.
	Conn stream.Conn
	// Log emits session events.
	Log *slog.Logger
	// Clock is the time source, overridden in tests.
	Clock clockwork.Clock
	// MaxPayloadSize bounds the payload of a single received frame. Zero
	// means frame.DefaultMaxPayloadSize.
	MaxPayloadSize uint32
	// CompressionThreshold is the outgoing frame size at which compression
	// kicks in once negotiated. Zero means compress.DefaultThreshold.
	CompressionThreshold int
	// ExchangeTimeout bounds single-message exchanges without a caller
	// deadline. Zero means DefaultExchangeTimeout.
	ExchangeTimeout time.Duration
	// Notices observes server notices outside any reply. Optional; notices
	// with no processor are decoded and discarded.
	Notices NoticeProcessor
}

// CheckAndSetDefaults validates the config and fills in defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.Conn == nil {
		return trace.BadParameter("missing parameter Conn")
	}
	if c.Log == nil {
		c.Log = slog.With("component", "xwire:session")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.ExchangeTimeout == 0 {
		c.ExchangeTimeout = DefaultExchangeTimeout
	}
	return nil
}

// Session drives the client side of one connection: it frames and queues
// outgoing messages, reads the server's frames back through the optional
// compression layer, and sequences multi-message exchanges.
//
// Outgoing messages are queued, not written; the queue is flushed before
// the next read, so pipelined requests leave as a single write. A session
// is not safe for concurrent use.
type Session struct {
	cfg Config

	rd *compress.Reader
	wr *compress.Writer

	// reply is the outstanding statement reply, if any.
	reply *Reply
	// damaged is set on protocol violations; the stream position can no
	// longer be trusted, only Close is allowed.
	damaged bool
	closed  bool
}

// New returns a session over the configured stream. No handshake is
// performed; negotiate capabilities and authenticate explicitly.
func New(cfg Config) (*Session, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Session{
		cfg: cfg,
		rd:  compress.NewReader(frame.NewReader(cfg.Conn, cfg.MaxPayloadSize), nil, cfg.MaxPayloadSize),
		wr:  compress.NewWriter(frame.NewWriter(cfg.Conn), nil, cfg.CompressionThreshold),
	}, nil
}

// checkUsable rejects work on a session that is closed, damaged, or has a
// reply still being consumed.
func (s *Session) checkUsable() error {
	if s.closed {
		return trace.BadParameter("session is closed")
	}
	if s.damaged {
		return trace.ConnectionProblem(nil, "session is damaged by an earlier protocol violation")
	}
	if s.reply != nil && !s.reply.Done() {
		return trace.BadParameter("previous reply has not been fully consumed")
	}
	return nil
}

// damage marks the stream as unrecoverable. Server-reported errors never
// damage a session; protocol violations and transport failures do.
func (s *Session) damage() {
	if !s.damaged {
		s.damaged = true
		metricSessionsDamaged.Inc()
	}
}

// Damaged reports whether the session suffered a protocol violation.
func (s *Session) Damaged() bool {
	return s.damaged
}

// applyDeadline propagates the context deadline to the stream, falling
// back to the configured exchange timeout.
func (s *Session) applyDeadline(ctx context.Context) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = s.cfg.Clock.Now().Add(s.cfg.ExchangeTimeout)
	}
	s.cfg.Conn.SetReadDeadline(deadline)
	s.cfg.Conn.SetWriteDeadline(deadline)
}

// queue marshals a client message and appends its frame to the pending
// write buffer. No I/O happens until the next flush.
func (s *Session) queue(m message.ClientMessage) error {
	payload, err := m.MarshalPayload(nil)
	if err != nil {
		return trace.Wrap(err)
	}
	if err := s.wr.Queue(m.ClientType(), payload); err != nil {
		s.damage()
		return trace.Wrap(err)
	}
	metricMessagesSent.WithLabelValues(m.ClientType().String()).Inc()
	return nil
}

// readFrame flushes any queued writes and reads the next frame. Called by
// reply operations and single-message exchanges alike, so queued requests
// always reach the server before the session blocks on a read.
func (s *Session) readFrame() (frame.Frame, error) {
	if s.wr.Pending() > 0 {
		if err := s.wr.Flush(); err != nil {
			s.damage()
			return frame.Frame{}, trace.Wrap(err)
		}
	}
	f, err := s.rd.ReadFrame()
	if err != nil {
		s.damage()
		return frame.Frame{}, trace.Wrap(err)
	}
	metricMessagesReceived.WithLabelValues(message.ServerType(f.Type).String()).Inc()
	return f, nil
}

// exchange queues m, flushes, and dispatches received frames against
// handlers until one of them reports the exchange complete. Notices pass
// to the configured notice processor; a server Error is returned to the
// caller without damaging the session.
func (s *Session) exchange(ctx context.Context, m message.ClientMessage, handlers handlerMap, done *bool) error {
	if err := s.checkUsable(); err != nil {
		return trace.Wrap(err)
	}
	s.applyDeadline(ctx)
	if err := s.queue(m); err != nil {
		return trace.Wrap(err)
	}
	for !*done {
		if err := ctx.Err(); err != nil {
			return trace.Wrap(err)
		}
		f, err := s.readFrame()
		if err != nil {
			return trace.Wrap(err)
		}
		if err := dispatch(f, handlers, s.cfg.Notices); err != nil {
			return s.exchangeError(err)
		}
	}
	return nil
}

// exchangeError converts a dispatch outcome: server errors surface as-is,
// anything else is a protocol violation.
func (s *Session) exchangeError(err error) error {
	var srv *errServer
	if errors.As(err, &srv) {
		return trace.Wrap(srv.msg)
	}
	s.damage()
	return trace.Wrap(err)
}

// CapabilitiesGet fetches the server's capability set.
func (s *Session) CapabilitiesGet(ctx context.Context) (*message.Capabilities, error) {
	var caps message.Capabilities
	var done bool
	handlers := handlerMap{
		message.ServerCapabilities: func(p []byte) error {
			if err := caps.UnmarshalPayload(p); err != nil {
				return trace.Wrap(err)
			}
			done = true
			return nil
		},
	}
	if err := s.exchange(ctx, &message.CapabilitiesGet{}, handlers, &done); err != nil {
		return nil, trace.Wrap(err)
	}
	return &caps, nil
}

// CapabilitiesSet asks the server to adopt the given capability values.
func (s *Session) CapabilitiesSet(ctx context.Context, caps message.Capabilities) error {
	var done bool
	handlers := handlerMap{
		message.ServerOk: func(p []byte) error {
			var ok message.Ok
			if err := ok.UnmarshalPayload(p); err != nil {
				return trace.Wrap(err)
			}
			done = true
			return nil
		},
	}
	return trace.Wrap(s.exchange(ctx, &message.CapabilitiesSet{Capabilities: caps}, handlers, &done))
}

// EnableCompression negotiates the given algorithm with the server and
// installs it on both directions of the stream. Frames queued before the
// call go out uncompressed.
func (s *Session) EnableCompression(ctx context.Context, alg compress.Algorithm) error {
	if alg == compress.AlgorithmNone {
		return trace.BadParameter("no compression algorithm specified")
	}
	caps := message.Capabilities{Capabilities: []message.Capability{{
		Name: "compression",
		Value: value.Object(
			value.Field{Key: "algorithm", Value: value.String(string(alg))},
		),
	}}}
	if err := s.CapabilitiesSet(ctx, caps); err != nil {
		return trace.Wrap(err)
	}
	cmp, dec, err := compress.New(alg)
	if err != nil {
		return trace.Wrap(err)
	}
	s.wr.SetCompressor(cmp)
	s.rd.SetDecompressor(dec)
	s.cfg.Log.DebugContext(ctx, "Negotiated compression.", "algorithm", alg)
	return nil
}

// Authenticate runs the challenge-response loop for the given mechanism.
func (s *Session) Authenticate(ctx context.Context, mech Mechanism) error {
	if mech == nil {
		return trace.BadParameter("missing parameter mech")
	}
	initial, err := mech.Start()
	if err != nil {
		return trace.Wrap(err)
	}
	var done bool
	handlers := handlerMap{
		message.ServerAuthContinue: func(p []byte) error {
			var cont message.AuthenticateContinue
			if err := cont.UnmarshalPayload(p); err != nil {
				return trace.Wrap(err)
			}
			response, err := mech.Continue(cont.AuthData)
			if err != nil {
				return trace.Wrap(err)
			}
			return trace.Wrap(s.queue(&message.AuthenticateContinue{AuthData: response}))
		},
		message.ServerAuthOk: func(p []byte) error {
			var ok message.AuthenticateOk
			if err := ok.UnmarshalPayload(p); err != nil {
				return trace.Wrap(err)
			}
			done = true
			return nil
		},
	}
	start := &message.AuthenticateStart{MechName: mech.Name(), AuthData: initial}
	if err := s.exchange(ctx, start, handlers, &done); err != nil {
		return trace.Wrap(err)
	}
	s.cfg.Log.DebugContext(ctx, "Authenticated.", "mechanism", mech.Name())
	return nil
}

// Execute queues a statement for execution and returns the reply to
// consume its result. The statement is not written until the first read
// on the reply, so several statements can be queued back to back and
// flushed as one write.
func (s *Session) Execute(stmt *message.StmtExecute) (*Reply, error) {
	if err := s.checkUsable(); err != nil {
		return nil, trace.Wrap(err)
	}
	if err := s.queue(stmt); err != nil {
		return nil, trace.Wrap(err)
	}
	metricStatementsExecuted.Inc()
	s.reply = &Reply{sess: s, notices: s.cfg.Notices}
	return s.reply, nil
}

// ExecuteNamed binds named arguments against the statement's placeholder
// table and queues it for execution.
func (s *Session) ExecuteNamed(stmtText string, ph *value.Placeholders, args map[string]value.Value) (*Reply, error) {
	bound, err := ph.Bind(args)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return s.Execute(&message.StmtExecute{Stmt: []byte(stmtText), Args: bound})
}

// Flush writes out any queued frames without waiting for a response.
func (s *Session) Flush(ctx context.Context) error {
	if s.closed {
		return trace.BadParameter("session is closed")
	}
	s.applyDeadline(ctx)
	if err := s.wr.Flush(); err != nil {
		s.damage()
		return trace.Wrap(err)
	}
	return nil
}

// Reset returns the session to its post-authentication state, discarding
// temporary server-side state. With keepOpen the server keeps the session
// alive for reuse without a fresh authentication.
func (s *Session) Reset(ctx context.Context, keepOpen bool) error {
	var done bool
	handlers := handlerMap{
		message.ServerOk: func(p []byte) error {
			var ok message.Ok
			if err := ok.UnmarshalPayload(p); err != nil {
				return trace.Wrap(err)
			}
			done = true
			return nil
		},
	}
	return trace.Wrap(s.exchange(ctx, &message.SessionReset{KeepOpen: keepOpen}, handlers, &done))
}

// Close announces the shutdown to the server when the stream is still
// healthy and closes the underlying stream. Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	if !s.damaged && (s.reply == nil || s.reply.Done()) {
		if err := s.announceClose(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.cfg.Conn.Close(); err != nil {
		errs = append(errs, trace.ConvertSystemError(err))
	}
	return trace.NewAggregate(errs...)
}

// announceClose performs the graceful ConnClose / Ok goodbye.
func (s *Session) announceClose(ctx context.Context) error {
	s.applyDeadline(ctx)
	if err := s.queue(&message.ConnClose{}); err != nil {
		return trace.Wrap(err)
	}
	for {
		f, err := s.readFrame()
		if err != nil {
			return trace.Wrap(err)
		}
		var done bool
		handlers := handlerMap{
			message.ServerOk: func(p []byte) error {
				done = true
				return nil
			},
		}
		if err := dispatch(f, handlers, s.cfg.Notices); err != nil {
			return s.exchangeError(err)
		}
		if done {
			return nil
		}
	}
}
