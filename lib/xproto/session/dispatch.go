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
	"slices"
	"strings"

	"github.com/gravitational/trace"

	"github.com/cadredata/xwire/lib/xproto/frame"
	"github.com/cadredata/xwire/lib/xproto/message"
)

// handlerMap maps the server message types valid in the current context to
// their decode-and-process routines.
type handlerMap map[message.ServerType]func(payload []byte) error

// errServer tags a dispatched frame as a server-reported Error message so
// contexts can tell it apart from local failures.
type errServer struct {
	msg *message.Error
}

func (e *errServer) Error() string {
	return e.msg.Error()
}

// errUnexpected tags a message type the current context had no handler
// for. The tag matters: an unexpected message is a protocol violation that
// condemns the stream, while a handler or processor failure leaves the
// wire position intact.
type errUnexpected struct {
	err error
}

func (e *errUnexpected) Error() string {
	return e.err.Error()
}

func (e *errUnexpected) Unwrap() error {
	return e.err
}

// dispatch routes one received frame. Notices and errors are intercepted
// uniformly before context-specific handling, so every context supports
// interleaved notices and server errors without its own cases: a notice
// goes to the notice processor and dispatch reports "not done", a server
// error comes back as *errServer for the context to record. Any other
// message must be expected by the handler map.
func dispatch(f frame.Frame, handlers handlerMap, notices NoticeProcessor) error {
	t := message.ServerType(f.Type)
	switch t {
	case message.ServerNotice:
		var n message.Notice
		if err := n.UnmarshalPayload(f.Payload); err != nil {
			return trace.Wrap(err)
		}
		if notices == nil {
			return nil
		}
		return trace.Wrap(notices.Notice(&n))
	case message.ServerError:
		var e message.Error
		if err := e.UnmarshalPayload(f.Payload); err != nil {
			return trace.Wrap(err)
		}
		return &errServer{msg: &e}
	}
	h, ok := handlers[t]
	if !ok {
		return unexpectedMessage(t, handlers)
	}
	return trace.Wrap(h(f.Payload))
}

// unexpectedMessage builds the fatal wrong-message error, naming both the
// observed type and the types the context was prepared for.
func unexpectedMessage(got message.ServerType, handlers handlerMap) error {
	expected := make([]string, 0, len(handlers))
	for t := range handlers {
		expected = append(expected, t.String())
	}
	slices.Sort(expected)
	return &errUnexpected{err: trace.BadParameter("unexpected message %v, expected one of [%v]",
		got, strings.Join(expected, ", "))}
}
