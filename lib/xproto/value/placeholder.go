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

package value

import (
	"github.com/gravitational/trace"
)

// Placeholders maps named placeholders to positional argument indices.
// Positions are assigned in first-seen order as expressions are encoded.
// A base offset shifts all positions, for composed messages that already
// reserved leading argument slots (e.g. limit arguments at positions 0
// and 1, named parameters continuing from 2).
type Placeholders struct {
	base  int
	names []string
	pos   map[string]int
}

// NewPlaceholders returns an empty placeholder table whose first assigned
// position is base.
func NewPlaceholders(base int) *Placeholders {
	return &Placeholders{base: base, pos: make(map[string]int)}
}

// Resolve returns the position of the named placeholder, assigning the
// next free position on first use.
func (p *Placeholders) Resolve(name string) int {
	if pos, ok := p.pos[name]; ok {
		return pos
	}
	pos := p.base + len(p.names)
	p.pos[name] = pos
	p.names = append(p.names, name)
	return pos
}

// Position returns the position of a previously resolved placeholder.
// Referencing a name that never appeared in an expression is a fatal
// conversion error.
func (p *Placeholders) Position(name string) (int, error) {
	pos, ok := p.pos[name]
	if !ok {
		return 0, trace.NotFound("undefined placeholder %q", name)
	}
	return pos, nil
}

// Names returns the recorded placeholder names in position order.
func (p *Placeholders) Names() []string {
	return p.names
}

// Count returns the number of named placeholders recorded.
func (p *Placeholders) Count() int {
	return len(p.names)
}

// Bind converts named arguments to the positional argument list the wire
// messages carry. Every recorded placeholder must have a value, and every
// provided name must correspond to a recorded placeholder.
func (p *Placeholders) Bind(args map[string]Value) ([]Value, error) {
	for name := range args {
		if _, ok := p.pos[name]; !ok {
			return nil, trace.NotFound("undefined placeholder %q", name)
		}
	}
	out := make([]Value, len(p.names))
	for i, name := range p.names {
		v, ok := args[name]
		if !ok {
			return nil, trace.BadParameter("no value bound for placeholder %q", name)
		}
		out[i] = v
	}
	return out, nil
}
