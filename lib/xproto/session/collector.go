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

// ResultSet is one collected result set: its column descriptions and the
// raw rows delivered for them.
type ResultSet struct {
	Columns []message.ColumnMetaData
	Rows    []message.Row
}

// Collector is a Processors implementation that buffers everything: column
// metadata, rows, notices, and the statement's side effects reported via
// session state notices. Fine for small results; large results should use
// streaming processors instead.
type Collector struct {
	// Sets holds the collected result sets in arrival order.
	Sets []ResultSet
	// Warnings holds decoded warning notices.
	Warnings []message.Warning
	// RowsAffected and LastInsertID are filled from session state notices
	// when the server reports them.
	RowsAffected uint64
	LastInsertID uint64
	// ProducedMessage is the human-readable statement outcome, if any.
	ProducedMessage string
	// Done is set once the terminal acknowledgement was consumed.
	Done bool

	current ResultSet
}

// Processors returns the capability bundle for draining a reply into the
// collector.
func (c *Collector) Processors() Processors {
	return Processors{Metadata: c, Row: c, Completion: c, Notice: c}
}

// Column implements MetadataProcessor.
func (c *Collector) Column(col *message.ColumnMetaData) error {
	c.current.Columns = append(c.current.Columns, *col)
	return nil
}

// ColumnCount implements MetadataProcessor. Each count ends one metadata
// stage, so it starts a fresh result set.
func (c *Collector) ColumnCount(n uint64) error {
	c.Sets = append(c.Sets, c.current)
	c.current = ResultSet{}
	return nil
}

// Row implements RowProcessor.
func (c *Collector) Row(row *message.Row) error {
	set := &c.Sets[len(c.Sets)-1]
	set.Rows = append(set.Rows, *row)
	return nil
}

// Complete implements CompletionProcessor.
func (c *Collector) Complete() error {
	c.Done = true
	return nil
}

// Notice implements NoticeProcessor, decoding warnings and session state
// changes and ignoring other notice types.
func (c *Collector) Notice(n *message.Notice) error {
	switch n.Type {
	case message.NoticeWarning:
		w, err := n.Warning()
		if err != nil {
			return err
		}
		c.Warnings = append(c.Warnings, *w)
	case message.NoticeSessionStateChanged:
		sc, err := n.SessionStateChange()
		if err != nil {
			return err
		}
		c.applyStateChange(sc)
	}
	return nil
}

func (c *Collector) applyStateChange(sc *message.SessionStateChanged) {
	if len(sc.Values) == 0 {
		return
	}
	switch sc.Param {
	case message.StateRowsAffected:
		c.RowsAffected = sc.Values[0].Uint()
	case message.StateGeneratedInsertID:
		c.LastInsertID = sc.Values[0].Uint()
	case message.StateProducedMessage:
		c.ProducedMessage = sc.Values[0].Str()
	}
}
