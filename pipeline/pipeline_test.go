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

package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/respd/common"
	"github.com/packetd/respd/resp"
)

func TestSessionFeed(t *testing.T) {
	tests := []struct {
		name   string
		inputs []string
		want   []resp.DataType
	}{
		{
			name:   "single frame",
			inputs: []string{"+OK\r\n"},
			want:   []resp.DataType{resp.SimpleStrings},
		},
		{
			name:   "pipelined frames",
			inputs: []string{"+OK\r\n:1\r\n$3\r\nfoo\r\n"},
			want:   []resp.DataType{resp.SimpleStrings, resp.Integers, resp.BulkStrings},
		},
		{
			name: "array fragmented across feeds",
			inputs: []string{
				"*2\r\n$3\r\nfoo\r\n",
				"$3\r\nba",
				"r\r\n",
			},
			want: []resp.DataType{resp.Arrays},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []resp.DataType
			sess, err := NewSession(func(msg *resp.Message) {
				got = append(got, msg.Type())
				assert.NoError(t, msg.Release())
			}, common.NewOptions())
			require.NoError(t, err)
			assert.NotEmpty(t, sess.ID())

			for _, input := range tt.inputs {
				assert.NoError(t, sess.Feed([]byte(input)))
			}
			assert.Equal(t, tt.want, got)
			assert.NoError(t, sess.Close())
		})
	}
}

func TestSessionStreaming(t *testing.T) {
	opts := common.NewOptions()
	opts.Merge("streaming", true)

	var got []resp.DataType
	sess, err := NewSession(func(msg *resp.Message) {
		got = append(got, msg.Type())
		assert.NoError(t, msg.Release())
	}, opts)
	require.NoError(t, err)

	assert.NoError(t, sess.Feed([]byte("*2\r\n+Foo\r\n-Bar\r\n")))
	assert.Equal(t, []resp.DataType{resp.ArrayHeader, resp.SimpleStrings, resp.Errors}, got)
	assert.NoError(t, sess.Close())
}

func TestSessionFeedInvalid(t *testing.T) {
	sess, err := NewSession(func(msg *resp.Message) {
		assert.NoError(t, msg.Release())
	}, common.NewOptions())
	require.NoError(t, err)

	assert.Error(t, sess.Feed([]byte("invalid\r\n")))
	assert.NoError(t, sess.Close())
}

func TestSessionRun(t *testing.T) {
	payload := strings.Repeat("a", common.ReadWriteBlockSize*3)
	input := "+OK\r\n$" + "12288" + "\r\n" + payload + "\r\n:42\r\n"

	var got []*resp.Message
	sess, err := NewSession(func(msg *resp.Message) {
		got = append(got, msg)
	}, common.NewOptions())
	require.NoError(t, err)

	require.NoError(t, sess.Run(bytes.NewReader([]byte(input))))
	require.Len(t, got, 3)
	assert.Equal(t, resp.SimpleStrings, got[0].Type())
	assert.Equal(t, payload, string(got[1].Bytes()))
	assert.Equal(t, int64(42), got[2].Integer())

	for _, msg := range got {
		assert.NoError(t, msg.Release())
	}
	assert.NoError(t, sess.Close())
}

// TestSessionCloseMidFrame 帧中途关闭会话不泄漏已累积的子节点
func TestSessionCloseMidFrame(t *testing.T) {
	sess, err := NewSession(func(msg *resp.Message) {
		t.Fatal("unexpected message")
	}, common.NewOptions())
	require.NoError(t, err)

	assert.NoError(t, sess.Feed([]byte("*3\r\n$3\r\nfoo\r\n$3\r\nbar\r\n")))
	assert.NoError(t, sess.Close())
	assert.NoError(t, sess.Close())
}
