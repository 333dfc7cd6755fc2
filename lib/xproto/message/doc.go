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

// Package message defines the concrete protocol messages the core speaks
// and their wire encoding.
//
// The encoding is standard protobuf wire format, hand-rolled over
// google.golang.org/protobuf/encoding/protowire rather than generated
// code: the core only needs a fixed, small set of messages, and the field
// numbers are a stable public contract. Type tags and field numbers match
// the published Mysqlx protocol definitions:
//
//	https://dev.mysql.com/doc/dev/mysql-server/latest/mysqlx_protocol.html
//
// Server messages implement both directions of the codec so tests can play
// the server side of a conversation.
package message
