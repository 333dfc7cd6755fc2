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

package compress

import (
	"bytes"
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/cadredata/xwire/lib/xproto/frame"
	"github.com/cadredata/xwire/lib/xproto/message"
)

func TestParseAlgorithm(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"", "deflate_stream", "lz4_message", "zstd_stream"} {
		alg, err := ParseAlgorithm(s)
		require.NoError(t, err)
		require.Equal(t, Algorithm(s), alg)
	}
	_, err := ParseAlgorithm("snappy")
	require.True(t, trace.IsBadParameter(err))
}

// queueEnvelope compresses the given raw frames into one server-side
// COMPRESSION envelope and queues it on fw.
func queueEnvelope(t *testing.T, fw *frame.Writer, cmp Compressor, rawFrames ...[]byte) {
	t.Helper()
	var raw []byte
	for _, f := range rawFrames {
		raw = append(raw, f...)
	}
	compressed, err := cmp.Compress(raw)
	require.NoError(t, err)
	env := message.Compression{
		UncompressedSize: uint64(len(raw)),
		Payload:          compressed,
	}
	payload, err := env.MarshalPayload(nil)
	require.NoError(t, err)
	fw.Queue(byte(message.ServerCompression), payload)
}

func TestReaderRoundTrip(t *testing.T) {
	t.Parallel()
	algorithms := []Algorithm{AlgorithmDeflate, AlgorithmLZ4, AlgorithmZstd}
	for _, alg := range algorithms {
		t.Run(string(alg), func(t *testing.T) {
			t.Parallel()
			cmp, dec, err := New(alg)
			require.NoError(t, err)

			big := bytes.Repeat([]byte("0123456789abcdef"), 512)
			var wire bytes.Buffer
			fw := frame.NewWriter(&wire)

			// First envelope wraps two frames, then a raw frame passes
			// through, then a second envelope checks that stream
			// algorithms survive the boundary.
			queueEnvelope(t, fw, cmp,
				frame.Append(nil, 13, big),
				frame.Append(nil, 13, []byte("small")),
			)
			fw.Queue(11, []byte("raw notice"))
			queueEnvelope(t, fw, cmp,
				frame.Append(nil, 14, nil),
			)
			require.NoError(t, fw.Flush())

			r := NewReader(frame.NewReader(&wire, 0), dec, 0)

			f, err := r.ReadFrame()
			require.NoError(t, err)
			require.Equal(t, byte(13), f.Type)
			require.Equal(t, big, f.Payload)

			f, err = r.ReadFrame()
			require.NoError(t, err)
			require.Equal(t, byte(13), f.Type)
			require.Equal(t, []byte("small"), f.Payload)

			f, err = r.ReadFrame()
			require.NoError(t, err)
			require.Equal(t, byte(11), f.Type)
			require.Equal(t, []byte("raw notice"), f.Payload)

			f, err = r.ReadFrame()
			require.NoError(t, err)
			require.Equal(t, byte(14), f.Type)
			require.Empty(t, f.Payload)
		})
	}
}

func TestReaderErrors(t *testing.T) {
	t.Parallel()

	t.Run("envelope without negotiation", func(t *testing.T) {
		t.Parallel()
		var wire bytes.Buffer
		fw := frame.NewWriter(&wire)
		fw.Queue(byte(message.ServerCompression), []byte{0x08, 0x01})
		require.NoError(t, fw.Flush())

		r := NewReader(frame.NewReader(&wire, 0), nil, 0)
		_, err := r.ReadFrame()
		require.True(t, trace.IsConnectionProblem(err))
	})

	t.Run("uncompressed size cuts a frame short", func(t *testing.T) {
		t.Parallel()
		cmp, dec, err := New(AlgorithmLZ4)
		require.NoError(t, err)

		raw := frame.Append(nil, 13, []byte("full frame payload"))
		compressed, err := cmp.Compress(raw)
		require.NoError(t, err)
		env := message.Compression{
			// Lie: announce fewer uncompressed bytes than one frame.
			UncompressedSize: uint64(len(raw) - 4),
			Payload:          compressed,
		}
		payload, err := env.MarshalPayload(nil)
		require.NoError(t, err)

		var wire bytes.Buffer
		fw := frame.NewWriter(&wire)
		fw.Queue(byte(message.ServerCompression), payload)
		require.NoError(t, fw.Flush())

		r := NewReader(frame.NewReader(&wire, 0), dec, 0)
		_, err = r.ReadFrame()
		require.True(t, trace.IsConnectionProblem(err))
	})

	t.Run("decompressed frame over the payload limit", func(t *testing.T) {
		t.Parallel()
		cmp, dec, err := New(AlgorithmDeflate)
		require.NoError(t, err)

		var wire bytes.Buffer
		fw := frame.NewWriter(&wire)
		queueEnvelope(t, fw, cmp, frame.Append(nil, 13, bytes.Repeat([]byte{'x'}, 200)))
		require.NoError(t, fw.Flush())

		r := NewReader(frame.NewReader(&wire, 1024), dec, 100)
		_, err = r.ReadFrame()
		require.True(t, trace.IsLimitExceeded(err))
	})
}

func TestWriter(t *testing.T) {
	t.Parallel()

	t.Run("small frames skip compression", func(t *testing.T) {
		t.Parallel()
		cmp, _, err := New(AlgorithmZstd)
		require.NoError(t, err)

		var wire bytes.Buffer
		fw := frame.NewWriter(&wire)
		w := NewWriter(fw, cmp, 0)
		require.NoError(t, w.Queue(message.ClientStmtExecute, []byte("tiny")))
		require.NoError(t, w.Flush())

		fr := frame.NewReader(&wire, 0)
		f, err := fr.ReadFrame()
		require.NoError(t, err)
		require.Equal(t, byte(message.ClientStmtExecute), f.Type)
		require.Equal(t, []byte("tiny"), f.Payload)
	})

	t.Run("large frames travel in an envelope", func(t *testing.T) {
		t.Parallel()
		for _, alg := range []Algorithm{AlgorithmDeflate, AlgorithmLZ4, AlgorithmZstd} {
			cmp, dec, err := New(alg)
			require.NoError(t, err)

			payload := bytes.Repeat([]byte("abcdefgh"), 1024)
			var wire bytes.Buffer
			fw := frame.NewWriter(&wire)
			w := NewWriter(fw, cmp, 0)
			require.NoError(t, w.Queue(message.ClientStmtExecute, payload))
			require.NoError(t, w.Flush())

			fr := frame.NewReader(&wire, 0)
			f, err := fr.ReadFrame()
			require.NoError(t, err)
			require.Equal(t, byte(message.ClientCompression), f.Type)

			var env message.Compression
			require.NoError(t, env.UnmarshalPayload(f.Payload))
			require.Equal(t, message.ClientStmtExecute, env.ClientMessages)
			wantRaw := frame.Append(nil, byte(message.ClientStmtExecute), payload)
			require.Equal(t, uint64(len(wantRaw)), env.UncompressedSize)
			require.Less(t, len(env.Payload), len(wantRaw))

			// Decompress and compare against the original frame.
			require.NoError(t, dec.Feed(env.Payload))
			got := make([]byte, len(wantRaw))
			for read := 0; read < len(got); {
				n, err := dec.Read(got[read:])
				if n == 0 {
					require.NoError(t, err)
				}
				read += n
			}
			require.Equal(t, wantRaw, got)
		}
	})

	t.Run("no compressor degrades to plain frames", func(t *testing.T) {
		t.Parallel()
		var wire bytes.Buffer
		fw := frame.NewWriter(&wire)
		w := NewWriter(fw, nil, 0)
		payload := bytes.Repeat([]byte{'x'}, 4096)
		require.NoError(t, w.Queue(message.ClientStmtExecute, payload))
		require.NoError(t, w.Flush())

		fr := frame.NewReader(&wire, 0)
		f, err := fr.ReadFrame()
		require.NoError(t, err)
		require.Equal(t, byte(message.ClientStmtExecute), f.Type)
		require.Equal(t, payload, f.Payload)
	})
}
