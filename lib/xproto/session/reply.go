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
	"errors"
	"fmt"

	"github.com/gravitational/trace"

	"github.com/cadredata/xwire/lib/xproto/frame"
	"github.com/cadredata/xwire/lib/xproto/message"
)

// replyState is the current phase of a reply's receive state machine.
type replyState int

const (
	// stateStart is the phase before the first message of the reply.
	stateStart replyState = iota
	// stateMetadata is the column description phase of a result set.
	stateMetadata
	// stateRows is the row delivery phase of a result set.
	stateRows
	// stateClose is the phase awaiting the terminal acknowledgement.
	stateClose
	// stateDone means the reply is fully consumed or aborted.
	stateDone
)

// String returns the stage name for error messages.
func (s replyState) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateMetadata:
		return "metadata"
	case stateRows:
		return "rows"
	case stateClose:
		return "close"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Reply tracks the server's response to one statement across its stages:
// column metadata, rows, then the closing acknowledgement, cycling back
// through metadata when the statement produces several result sets.
//
// Stages are read one at a time, each with the processor capability that
// stage needs, so a caller can read the metadata and then decide whether
// to pull rows at all. A message that ends a stage may belong to the next
// one; it is then held back undecoded and re-offered when the next stage
// runs. A server Error observed anywhere aborts the whole reply; the
// error is returned by the operation that saw it and by every call after
// that.
type Reply struct {
	sess    *Session
	notices NoticeProcessor

	state replyState
	// columns and rows count the current result set; both reset when a
	// new result set begins.
	columns uint64
	rows    uint64
	// resultSets counts the result set boundaries seen so far.
	resultSets int
	// pending is a stage-boundary message stashed for the next stage.
	pending *frame.Frame
	// srvErr is the captured server error after an abort.
	srvErr *message.Error
	// suspended is set when a cursor paused the row stream.
	suspended bool
	active    *Operation
}

// State accessors. Columns and Rows describe the most recent result set.

// Done reports whether the reply has been fully consumed or aborted.
func (r *Reply) Done() bool {
	return r.state == stateDone
}

// Err returns the captured server error, if the reply was aborted by one.
func (r *Reply) Err() error {
	if r.srvErr == nil {
		return nil
	}
	return r.srvErr
}

// Columns returns the number of columns described in the current result
// set.
func (r *Reply) Columns() uint64 {
	return r.columns
}

// Rows returns the number of rows delivered in the current result set.
func (r *Reply) Rows() uint64 {
	return r.rows
}

// More reports whether another result set follows the one just read; it
// is meaningful after a rows stage completed.
func (r *Reply) More() bool {
	return r.state == stateMetadata && r.resultSets > 0
}

// Suspended reports whether the row stream was paused by the server
// rather than exhausted.
func (r *Reply) Suspended() bool {
	return r.suspended
}

// ReadMetadata returns the operation consuming the metadata stage: column
// descriptions up to the point where the stage ends. The column count is
// reported to the processor exactly once, when the stage ends, even if no
// columns were seen.
func (r *Reply) ReadMetadata(mp MetadataProcessor) *Operation {
	if err := r.beginStage(stateMetadata); err != nil {
		return failedOperation(err)
	}
	if mp == nil {
		return failedOperation(trace.BadParameter("resuming the metadata stage requires a metadata processor"))
	}
	op := newOperation(func() (bool, error) { return r.stepMetadata(mp) })
	r.active = op
	return op
}

// ReadRows returns the operation consuming the row stage of the current
// result set.
func (r *Reply) ReadRows(rp RowProcessor) *Operation {
	if err := r.beginStage(stateRows); err != nil {
		return failedOperation(err)
	}
	if rp == nil {
		return failedOperation(trace.BadParameter("resuming the rows stage requires a row processor"))
	}
	op := newOperation(func() (bool, error) { return r.stepRows(rp) })
	r.active = op
	return op
}

// ReadClose returns the operation consuming the terminal acknowledgement.
func (r *Reply) ReadClose(cp CompletionProcessor) *Operation {
	if err := r.beginStage(stateClose); err != nil {
		return failedOperation(err)
	}
	if cp == nil {
		return failedOperation(trace.BadParameter("resuming the close stage requires a completion processor"))
	}
	op := newOperation(func() (bool, error) { return r.stepClose(cp) })
	r.active = op
	return op
}

// Drain reads the rest of the reply to completion, running whichever
// stages occur with the matching processors from procs. A stage without
// its processor fails with a sequencing error. Drain returns the captured
// server error when the reply was aborted by one.
func (r *Reply) Drain(ctx context.Context, procs Processors) error {
	r.sess.applyDeadline(ctx)
	if procs.Notice != nil {
		r.notices = procs.Notice
	}
	for r.state != stateDone {
		var op *Operation
		switch r.state {
		case stateStart, stateMetadata:
			op = r.ReadMetadata(procs.Metadata)
		case stateRows:
			op = r.ReadRows(procs.Row)
		case stateClose:
			op = r.ReadClose(procs.Completion)
		}
		if err := op.Wait(ctx); err != nil {
			return trace.Wrap(err)
		}
	}
	if r.srvErr != nil {
		return trace.Wrap(r.srvErr)
	}
	return nil
}

// beginStage validates that the requested stage may start now. Resuming a
// stage out of order or while another operation is still in progress is a
// programming error, not a protocol condition.
func (r *Reply) beginStage(want replyState) error {
	if r.active != nil && !r.active.Completed() {
		return trace.BadParameter("a reply operation is still in progress")
	}
	if r.state == stateDone {
		if r.srvErr != nil {
			return trace.Wrap(r.srvErr)
		}
		return trace.BadParameter("reply already fully consumed")
	}
	switch want {
	case stateMetadata:
		if r.state != stateStart && r.state != stateMetadata {
			return trace.BadParameter("cannot resume the metadata stage in the %v stage", r.state)
		}
	case stateRows:
		if r.state != stateRows {
			return trace.BadParameter("cannot resume the rows stage in the %v stage", r.state)
		}
	case stateClose:
		if r.state != stateClose {
			return trace.BadParameter("cannot resume the close stage in the %v stage", r.state)
		}
	}
	return nil
}

// stepMetadata consumes one message of the metadata stage. done is
// reported when the stage ends, one way or another.
func (r *Reply) stepMetadata(mp MetadataProcessor) (bool, error) {
	f, err := r.next()
	if err != nil {
		return true, trace.Wrap(err)
	}
	t := message.ServerType(f.Type)
	// A statement that produces anything beyond a bare acknowledgement
	// moves to the metadata phase on its first message.
	if r.state == stateStart && t != message.ServerOk &&
		t != message.ServerNotice && t != message.ServerError {
		r.state = stateMetadata
	}

	var done bool
	handlers := handlerMap{
		message.ServerColumnMetaData: func(p []byte) error {
			var col message.ColumnMetaData
			if err := col.UnmarshalPayload(p); err != nil {
				return r.fatal(err)
			}
			r.columns++
			return trace.Wrap(mp.Column(&col))
		},
		// The first row belongs to the next stage: the state commits
		// immediately and the undecoded message is re-offered once the
		// rows stage runs. A row before any column was described is a
		// protocol violation.
		message.ServerRow: func(p []byte) error {
			if r.columns == 0 {
				return r.fatal(trace.BadParameter("received a row before any column description"))
			}
			r.state = stateRows
			r.stash(message.ServerRow, p)
			done = true
			return trace.Wrap(mp.ColumnCount(r.columns))
		},
		message.ServerFetchDone: func(p []byte) error {
			return r.metadataFetchDone(message.ServerFetchDone, p, mp, &done, stateClose)
		},
		message.ServerFetchDoneMoreResultsets: func(p []byte) error {
			return r.metadataFetchDone(message.ServerFetchDoneMoreResultsets, p, mp, &done, stateMetadata)
		},
		message.ServerFetchDoneMoreOutParams: func(p []byte) error {
			return r.metadataFetchDone(message.ServerFetchDoneMoreOutParams, p, mp, &done, stateMetadata)
		},
		// A terminal ack with no result set: the ack is consumed by the
		// close stage, the metadata stage just ends here.
		message.ServerStmtExecuteOk: func(p []byte) error {
			if r.columns > 0 {
				return r.fatal(trace.BadParameter("terminal acknowledgement interrupted column metadata"))
			}
			r.state = stateClose
			r.stash(message.ServerStmtExecuteOk, p)
			done = true
			return trace.Wrap(mp.ColumnCount(0))
		},
	}
	if r.state == stateStart {
		// Pure command acknowledgement, no result set at all.
		handlers[message.ServerOk] = func(p []byte) error {
			var ok message.Ok
			if err := ok.UnmarshalPayload(p); err != nil {
				return r.fatal(err)
			}
			r.state = stateDone
			done = true
			return trace.Wrap(mp.ColumnCount(0))
		}
	}
	if err := dispatch(f, handlers, r.notices); err != nil {
		return true, r.dispatchError(err)
	}
	return done, nil
}

// metadataFetchDone handles the fetch-done family observed during the
// metadata stage. With no columns described the message is consumed as
// part of this stage (an empty reply, or an empty result set with more to
// follow); with columns described it marks an empty result set and is
// re-offered to the rows stage.
func (r *Reply) metadataFetchDone(t message.ServerType, p []byte, mp MetadataProcessor, done *bool, emptyNext replyState) error {
	*done = true
	if r.columns == 0 {
		if err := skipPayload(t, p); err != nil {
			return r.fatal(err)
		}
		r.state = emptyNext
		if emptyNext == stateMetadata {
			r.resultSets++
		}
		return trace.Wrap(mp.ColumnCount(0))
	}
	r.state = stateRows
	r.stash(t, p)
	return trace.Wrap(mp.ColumnCount(r.columns))
}

// stepRows consumes one message of the row stage.
func (r *Reply) stepRows(rp RowProcessor) (bool, error) {
	f, err := r.next()
	if err != nil {
		return true, trace.Wrap(err)
	}
	var done bool
	handlers := handlerMap{
		message.ServerRow: func(p []byte) error {
			var row message.Row
			if err := row.UnmarshalPayload(p); err != nil {
				return r.fatal(err)
			}
			r.rows++
			return trace.Wrap(rp.Row(&row))
		},
		message.ServerFetchDone: func(p []byte) error {
			if err := skipPayload(message.ServerFetchDone, p); err != nil {
				return r.fatal(err)
			}
			r.state = stateClose
			done = true
			return nil
		},
		message.ServerFetchSuspended: func(p []byte) error {
			if err := skipPayload(message.ServerFetchSuspended, p); err != nil {
				return r.fatal(err)
			}
			r.suspended = true
			r.state = stateClose
			done = true
			return nil
		},
		message.ServerFetchDoneMoreResultsets: func(p []byte) error {
			return r.rowsNextResultSet(message.ServerFetchDoneMoreResultsets, p, &done)
		},
		message.ServerFetchDoneMoreOutParams: func(p []byte) error {
			return r.rowsNextResultSet(message.ServerFetchDoneMoreOutParams, p, &done)
		},
	}
	if err := dispatch(f, handlers, r.notices); err != nil {
		return true, r.dispatchError(err)
	}
	return done, nil
}

// rowsNextResultSet ends the row stage with another result set to follow:
// back to metadata, counters reset.
func (r *Reply) rowsNextResultSet(t message.ServerType, p []byte, done *bool) error {
	if err := skipPayload(t, p); err != nil {
		return r.fatal(err)
	}
	r.state = stateMetadata
	r.resultSets++
	r.columns, r.rows = 0, 0
	*done = true
	return nil
}

// stepClose consumes the terminal acknowledgement.
func (r *Reply) stepClose(cp CompletionProcessor) (bool, error) {
	f, err := r.next()
	if err != nil {
		return true, trace.Wrap(err)
	}
	var done bool
	handlers := handlerMap{
		message.ServerStmtExecuteOk: func(p []byte) error {
			var ok message.StmtExecuteOk
			if err := ok.UnmarshalPayload(p); err != nil {
				return r.fatal(err)
			}
			r.state = stateDone
			done = true
			return trace.Wrap(cp.Complete())
		},
	}
	if err := dispatch(f, handlers, r.notices); err != nil {
		return true, r.dispatchError(err)
	}
	return done, nil
}

// next returns the message to process: the stashed stage-boundary message
// first, then the next frame off the wire.
func (r *Reply) next() (frame.Frame, error) {
	if r.pending != nil {
		f := *r.pending
		r.pending = nil
		return f, nil
	}
	f, err := r.sess.readFrame()
	if err != nil {
		r.state = stateDone
		return frame.Frame{}, trace.Wrap(err)
	}
	return f, nil
}

// stash holds back an undecoded message for the next stage. The payload
// is copied since the read buffer is reused by the next read.
func (r *Reply) stash(t message.ServerType, payload []byte) {
	r.pending = &frame.Frame{Type: byte(t), Payload: bytes.Clone(payload)}
}

// fatal marks a protocol violation: the reply is dead and so is the
// session, since the stream can no longer be trusted.
func (r *Reply) fatal(err error) error {
	r.state = stateDone
	r.sess.damage()
	return trace.Wrap(err)
}

// dispatchError folds the outcome of a dispatch into the reply state: a
// server error aborts the reply and is surfaced as the operation error; an
// unexpected message is fatal; handler and processor errors pass through,
// leaving the stage resumable since the wire position is still consistent.
func (r *Reply) dispatchError(err error) error {
	var srv *errServer
	if errors.As(err, &srv) {
		r.srvErr = srv.msg
		r.state = stateDone
		return trace.Wrap(srv.msg)
	}
	var unexpected *errUnexpected
	if errors.As(err, &unexpected) {
		return r.fatal(unexpected.err)
	}
	return trace.Wrap(err)
}

// skipPayload validates the payload of a message the state machine
// consumes without looking inside.
func skipPayload(t message.ServerType, p []byte) error {
	switch t {
	case message.ServerFetchDone:
		var m message.FetchDone
		return trace.Wrap(m.UnmarshalPayload(p))
	case message.ServerFetchSuspended:
		var m message.FetchSuspended
		return trace.Wrap(m.UnmarshalPayload(p))
	case message.ServerFetchDoneMoreResultsets:
		var m message.FetchDoneMoreResultsets
		return trace.Wrap(m.UnmarshalPayload(p))
	case message.ServerFetchDoneMoreOutParams:
		var m message.FetchDoneMoreOutParams
		return trace.Wrap(m.UnmarshalPayload(p))
	}
	return nil
}
