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

// Package session sequences the client side of one protocol connection:
// capability negotiation, authentication, statement execution, and the
// staged consumption of statement replies.
//
// The session model is deliberately single-threaded and pull-based.
// Outgoing messages are queued and flushed before the next read, so a
// batch of statements pipelines into a single write. Incoming reply
// messages are consumed stage by stage through Operation values, with the
// caller supplying only the processor capabilities the stage at hand
// needs; see Reply.
//
// Server-reported errors abort the reply they occur in but leave the
// session usable. Protocol violations damage the session: the stream
// position can no longer be trusted and only Close remains valid.
package session
