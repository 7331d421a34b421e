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

package bytebuf

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer(t *testing.T) {
	t.Run("ReadByte", func(t *testing.T) {
		buf := NewBytes([]byte("ab"))
		c, err := buf.ReadByte()
		assert.NoError(t, err)
		assert.Equal(t, byte('a'), c)

		c, err = buf.ReadByte()
		assert.NoError(t, err)
		assert.Equal(t, byte('b'), c)

		_, err = buf.ReadByte()
		assert.Equal(t, io.ErrShortBuffer, err)
		assert.NoError(t, buf.Release())
	})

	t.Run("WriteAppends", func(t *testing.T) {
		buf := New()
		buf.Write([]byte("foo"))
		buf.WriteByte(':')
		buf.WriteInt64(-1234)
		assert.Equal(t, "foo:-1234", string(buf.Bytes()))
		assert.NoError(t, buf.Release())
	})

	t.Run("SkipIndexByte", func(t *testing.T) {
		buf := NewBytes([]byte("hello\r\nworld"))
		assert.Equal(t, 6, buf.IndexByte('\n'))
		assert.NoError(t, buf.Skip(7))
		assert.Equal(t, 12-7, buf.ReadableBytes())
		assert.Equal(t, -1, buf.IndexByte('\n'))
		assert.Error(t, buf.Skip(100))
		assert.NoError(t, buf.Release())
	})

	t.Run("ReadSlice", func(t *testing.T) {
		buf := NewBytes([]byte("foobar"))
		sl, err := buf.ReadSlice(3)
		assert.NoError(t, err)
		assert.Equal(t, "foo", string(sl.Bytes()))
		assert.Equal(t, 3, sl.Len())
		assert.Equal(t, 2, buf.Refs())
		assert.Equal(t, "bar", string(buf.Bytes()))

		_, err = buf.ReadSlice(4)
		assert.Error(t, err)

		assert.NoError(t, sl.Release())
		assert.Equal(t, 1, buf.Refs())
		assert.NoError(t, buf.Release())
	})

	t.Run("SliceSurvivesGrow", func(t *testing.T) {
		buf := NewBytes([]byte("foo"))
		sl, err := buf.ReadSlice(3)
		assert.NoError(t, err)

		// 追加大量数据触发底层数组扩容 已派生的切片内容不受影响
		buf.Write(bytes.Repeat([]byte("x"), 1<<20))
		assert.Equal(t, "foo", string(sl.Bytes()))

		assert.NoError(t, sl.Release())
		assert.NoError(t, buf.Release())
	})

	t.Run("DoubleRelease", func(t *testing.T) {
		buf := NewBytes([]byte("foo"))
		assert.NoError(t, buf.Release())
		assert.Equal(t, ErrReleased, buf.Release())
	})

	t.Run("SliceKeepsSharedAlive", func(t *testing.T) {
		buf := NewBytes([]byte("foobar"))
		sl, err := buf.ReadSlice(6)
		assert.NoError(t, err)

		assert.NoError(t, buf.Release())
		assert.Equal(t, "foobar", string(sl.Bytes()))
		assert.NoError(t, sl.Release())
		assert.Equal(t, ErrReleased, sl.Release())
	})

	t.Run("ResetGuard", func(t *testing.T) {
		buf := NewBytes([]byte("foobar"))
		sl, err := buf.ReadSlice(3)
		assert.NoError(t, err)
		assert.Error(t, buf.Reset())

		assert.NoError(t, sl.Release())
		assert.NoError(t, buf.Reset())
		assert.Equal(t, 0, buf.ReadableBytes())
		buf.Write([]byte("x"))
		assert.Equal(t, 1, buf.ReadableBytes())
		assert.NoError(t, buf.Release())
	})

	t.Run("NewSize", func(t *testing.T) {
		buf := NewSize(128)
		assert.Equal(t, 0, buf.ReadableBytes())
		buf.Write(bytes.Repeat([]byte("a"), 128))
		assert.Equal(t, 128, buf.ReadableBytes())
		assert.NoError(t, buf.Release())
	})
}
