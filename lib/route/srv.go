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

package route

import (
	"context"
	"net"
	"strings"

	"github.com/gravitational/trace"
)

// Resolver is the DNS SRV lookup surface, satisfied by *net.Resolver.
type Resolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// SRV sources endpoints from DNS SRV records.
type SRV struct {
	// Resolver performs the lookups; nil means net.DefaultResolver.
	Resolver Resolver
	// Service and Proto form the record prefix, e.g. "mysqlx" and "tcp".
	Service string
	Proto   string
	// Name is the domain the records live under.
	Name string
}

// Endpoints implements Source.
func (s SRV) Endpoints(ctx context.Context) ([]Endpoint, error) {
	if s.Name == "" {
		return nil, trace.BadParameter("missing parameter Name")
	}
	resolver := s.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	_, records, err := resolver.LookupSRV(ctx, s.Service, s.Proto, s.Name)
	if err != nil {
		return nil, trace.Wrap(err, "looking up SRV records for %q", s.Name)
	}
	eps := make([]Endpoint, 0, len(records))
	for _, rec := range records {
		// A single record with target "." means the service is
		// decidedly not available at this domain.
		if rec.Target == "." {
			continue
		}
		eps = append(eps, Endpoint{
			Host:     strings.TrimSuffix(rec.Target, "."),
			Port:     rec.Port,
			Priority: rec.Priority,
			Weight:   rec.Weight,
		})
	}
	if len(eps) == 0 {
		return nil, trace.NotFound("no usable SRV records for %q", s.Name)
	}
	return eps, nil
}
