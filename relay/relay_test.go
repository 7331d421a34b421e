// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package relay

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/respd/confengine"
)

// newFakeUpstream 一个最小化的上游 每收到一个请求就回复 +PONG
func newFakeUpstream(t *testing.T) net.Listener {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				block := make([]byte, 4096)
				for {
					if _, err := conn.Read(block); err != nil {
						return
					}
					if _, err := conn.Write([]byte("+PONG\r\n")); err != nil {
						return
					}
				}
			}()
		}
	}()
	return ln
}

func startRelay(t *testing.T, upstream string, reencode bool) *Relay {
	content := fmt.Sprintf(`
relay:
  listen: 127.0.0.1:0
  upstream: %s
  reencode: %v
`, upstream, reencode)

	cfg, err := confengine.LoadContent([]byte(content))
	require.NoError(t, err)

	r, err := New(cfg)
	require.NoError(t, err)
	go func() {
		_ = r.ListenAndServe()
	}()

	for i := 0; i < 100; i++ {
		if r.Addr() != nil {
			return r
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("relay not listening")
	return nil
}

func TestRelay(t *testing.T) {
	for _, reencode := range []bool{false, true} {
		name := "passthrough"
		if reencode {
			name = "reencode"
		}
		t.Run(name, func(t *testing.T) {
			upstream := newFakeUpstream(t)
			defer upstream.Close()

			r := startRelay(t, upstream.Addr().String(), reencode)
			defer r.Close()

			client, err := net.Dial("tcp", r.Addr().String())
			require.NoError(t, err)
			defer client.Close()

			_, err = client.Write([]byte("*1\r\n$4\r\nPING\r\n"))
			require.NoError(t, err)

			want := []byte("+PONG\r\n")
			got := make([]byte, len(want))
			_ = client.SetReadDeadline(time.Now().Add(3 * time.Second))
			_, err = io.ReadFull(client, got)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			// 两个方向的帧都应该被观测到
			assert.Eventually(t, func() bool {
				stats := r.Stats()
				return stats.RequestFrames >= 1 && stats.ResponseFrames >= 1
			}, 3*time.Second, 10*time.Millisecond)
		})
	}
}

func TestRelayStatsHandler(t *testing.T) {
	upstream := newFakeUpstream(t)
	defer upstream.Close()

	r := startRelay(t, upstream.Addr().String(), false)
	defer r.Close()

	rec := httptest.NewRecorder()
	r.StatsHandler(rec, httptest.NewRequest(http.MethodGet, "/relay/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats Stats
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.ActiveConnections)
}

func TestRelayConfigInvalid(t *testing.T) {
	cfg, err := confengine.LoadContent([]byte("relay:\n  listen: ':0'\n"))
	require.NoError(t, err)

	_, err = New(cfg)
	assert.Error(t, err)
}
