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

import "github.com/cadredata/xwire/lib/xproto/message"

// Processors are capability sets, not classes: each reply stage needs only
// its own small interface, and one type may implement several. A processor
// callback returning an error aborts the running operation; the protocol
// core delivers messages, what to do with them is the caller's business.

// MetadataProcessor consumes the metadata stage of a reply.
type MetadataProcessor interface {
	// Column is called once per column description, in column order.
	Column(col *message.ColumnMetaData) error
	// ColumnCount is called exactly once, when the metadata stage of a
	// result set ends, even if zero columns were seen.
	ColumnCount(n uint64) error
}

// RowProcessor consumes the row stage of a reply.
type RowProcessor interface {
	// Row is called once per result set row, in arrival order.
	Row(row *message.Row) error
}

// CompletionProcessor consumes the close stage of a reply.
type CompletionProcessor interface {
	// Complete is called once the terminal acknowledgement of the reply
	// has been consumed.
	Complete() error
}

// NoticeProcessor observes server notices, which may arrive interleaved
// with any reply stage or single-message exchange.
type NoticeProcessor interface {
	// Notice is called for each notice frame as it is intercepted.
	Notice(n *message.Notice) error
}

// Processors bundles the optional capabilities for draining a whole reply.
// A stage that occurs in the reply requires the matching capability to be
// non-nil; supplying the wrong subset is a sequencing error, not a
// recoverable condition.
type Processors struct {
	Metadata   MetadataProcessor
	Row        RowProcessor
	Completion CompletionProcessor
	Notice     NoticeProcessor
}
