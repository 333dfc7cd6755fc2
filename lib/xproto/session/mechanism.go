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
	"crypto/sha1"
	"encoding/hex"

	"github.com/gravitational/trace"
)

// Mechanism produces the client side of one authentication exchange.
type Mechanism interface {
	// Name is the mechanism name as sent in AuthenticateStart.
	Name() string
	// Start returns the initial auth payload.
	Start() ([]byte, error)
	// Continue answers a server challenge. Mechanisms that complete in one
	// round never see it.
	Continue(challenge []byte) ([]byte, error)
}

// Plain is the PLAIN mechanism: database, user, and password in the clear.
// Only for streams already protected by TLS.
type Plain struct {
	Database string
	User     string
	Password string
}

// Name implements Mechanism.
func (p Plain) Name() string { return "PLAIN" }

// Start implements Mechanism.
func (p Plain) Start() ([]byte, error) {
	if p.User == "" {
		return nil, trace.BadParameter("missing parameter User")
	}
	out := make([]byte, 0, len(p.Database)+len(p.User)+len(p.Password)+2)
	out = append(out, p.Database...)
	out = append(out, 0)
	out = append(out, p.User...)
	out = append(out, 0)
	out = append(out, p.Password...)
	return out, nil
}

// Continue implements Mechanism. PLAIN completes in a single round.
func (p Plain) Continue(challenge []byte) ([]byte, error) {
	return nil, trace.BadParameter("unexpected challenge for the PLAIN mechanism")
}

// MySQL41 is the MYSQL41 challenge-response mechanism: the password never
// crosses the wire, only a scramble derived from the server's 20-byte
// nonce.
type MySQL41 struct {
	Database string
	User     string
	Password string
}

// Name implements Mechanism.
func (m MySQL41) Name() string { return "MYSQL41" }

// Start implements Mechanism. MYSQL41 sends no initial data; the response
// waits for the server nonce.
func (m MySQL41) Start() ([]byte, error) {
	if m.User == "" {
		return nil, trace.BadParameter("missing parameter User")
	}
	return nil, nil
}

// Continue implements Mechanism.
func (m MySQL41) Continue(challenge []byte) ([]byte, error) {
	if len(challenge) != 20 {
		return nil, trace.BadParameter("expected a 20-byte auth nonce, got %d bytes", len(challenge))
	}
	out := make([]byte, 0, len(m.Database)+len(m.User)+2+41)
	out = append(out, m.Database...)
	out = append(out, 0)
	out = append(out, m.User...)
	out = append(out, 0)
	if m.Password != "" {
		out = append(out, '*')
		out = append(out, scramble41(m.Password, challenge)...)
	}
	return out, nil
}

// scramble41 computes the MYSQL41 password proof:
// SHA1(password) XOR SHA1(nonce + SHA1(SHA1(password))), hex-encoded.
func scramble41(password string, nonce []byte) []byte {
	h1 := sha1.Sum([]byte(password))
	h2 := sha1.Sum(h1[:])
	mix := sha1.New()
	mix.Write(nonce)
	mix.Write(h2[:])
	proof := mix.Sum(nil)
	for i := range proof {
		proof[i] ^= h1[i]
	}
	out := make([]byte, hex.EncodedLen(len(proof)))
	hex.Encode(out, proof)
	return out
}
