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

// Package route turns a set of candidate server endpoints into a failover
// order: lower priority values are tried first, and endpoints sharing a
// priority are shuffled by weight so load spreads the way SRV records
// intend.
package route

import (
	"context"
	"math/rand/v2"
	"net"
	"slices"
	"strconv"

	"github.com/gravitational/trace"
)

// Endpoint is one candidate server address.
type Endpoint struct {
	Host string
	Port uint16
	// Priority orders endpoints; lower values are tried first.
	Priority uint16
	// Weight biases selection among endpoints of equal priority.
	Weight uint16
}

// Address returns the host:port dial address.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// Source produces the candidate endpoints for a route.
type Source interface {
	// Endpoints returns the current candidates, in no particular order.
	Endpoints(ctx context.Context) ([]Endpoint, error)
}

// Static is a fixed endpoint list Source.
type Static []Endpoint

// Endpoints implements Source.
func (s Static) Endpoints(ctx context.Context) ([]Endpoint, error) {
	if len(s) == 0 {
		return nil, trace.NotFound("no endpoints configured")
	}
	return slices.Clone(s), nil
}

// Selector orders endpoints of equal priority. Implementations may be
// deterministic for tests.
type Selector interface {
	// Order rearranges group in place into try-order.
	Order(group []Endpoint)
}

// WeightedSelector orders an equal-priority group by repeated weighted
// random draws, the standard SRV selection procedure. Zero-weight
// endpoints still get a small chance so they are not starved forever.
type WeightedSelector struct {
	// Rand is the randomness source; nil means the shared global one.
	Rand *rand.Rand
}

func (s WeightedSelector) intN(n int) int {
	if s.Rand != nil {
		return s.Rand.IntN(n)
	}
	return rand.IntN(n)
}

// Order implements Selector.
func (s WeightedSelector) Order(group []Endpoint) {
	for i := range group {
		rest := group[i:]
		total := 0
		for _, e := range rest {
			total += int(e.Weight) + 1
		}
		draw := s.intN(total)
		for j, e := range rest {
			draw -= int(e.Weight) + 1
			if draw < 0 {
				rest[0], rest[j] = rest[j], rest[0]
				break
			}
		}
	}
}

// Route produces failover orderings from a Source.
type Route struct {
	src Source
	sel Selector
}

// New returns a Route over src. A nil selector means WeightedSelector.
func New(src Source, sel Selector) (*Route, error) {
	if src == nil {
		return nil, trace.BadParameter("missing parameter src")
	}
	if sel == nil {
		sel = WeightedSelector{}
	}
	return &Route{src: src, sel: sel}, nil
}

// Order returns the endpoints in the order they should be tried: sorted
// by ascending priority, with each equal-priority group ordered by the
// selector.
func (r *Route) Order(ctx context.Context) ([]Endpoint, error) {
	eps, err := r.src.Endpoints(ctx)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if len(eps) == 0 {
		return nil, trace.NotFound("no endpoints available")
	}
	slices.SortStableFunc(eps, func(a, b Endpoint) int {
		return int(a.Priority) - int(b.Priority)
	})
	for lo := 0; lo < len(eps); {
		hi := lo + 1
		for hi < len(eps) && eps[hi].Priority == eps[lo].Priority {
			hi++
		}
		r.sel.Order(eps[lo:hi])
		lo = hi
	}
	return eps, nil
}
