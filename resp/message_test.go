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

package resp

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/respd/internal/bytebuf"
)

func TestSingletons(t *testing.T) {
	t.Run("NullNotEmpty", func(t *testing.T) {
		assert.NotSame(t, NullBulkString, EmptyBulkString)
		assert.NotSame(t, NullArray, EmptyArray)
		assert.True(t, NullBulkString.IsNull())
		assert.False(t, EmptyBulkString.IsNull())
		assert.True(t, NullArray.IsNull())
		assert.False(t, EmptyArray.IsNull())
	})

	t.Run("NoReleaseObligation", func(t *testing.T) {
		for _, m := range []*Message{NullBulkString, EmptyBulkString, NullArray, EmptyArray} {
			m.Retain()
			assert.NoError(t, m.Release())
			assert.NoError(t, m.Release())
		}
	})

	t.Run("Constructors", func(t *testing.T) {
		assert.Same(t, NullBulkString, NewBulkString(nil))
		assert.Same(t, NullBulkString, NewBulkStringBytes(nil))
		assert.Same(t, EmptyBulkString, NewBulkStringBytes([]byte{}))
		assert.Same(t, NullArray, NewArray(nil))
		assert.Same(t, EmptyArray, NewArray([]*Message{}))
	})
}

func TestPredefined(t *testing.T) {
	t.Run("SimpleStrings", func(t *testing.T) {
		assert.Same(t, NewSimpleString([]byte("OK")), NewSimpleString([]byte("OK")))
		assert.Same(t, NewSimpleString([]byte("PONG")), NewSimpleString([]byte("PONG")))
		assert.NotSame(t, NewSimpleString([]byte("foo")), NewSimpleString([]byte("foo")))
	})

	t.Run("Errors", func(t *testing.T) {
		assert.Same(t, NewError([]byte("ERR")), NewError([]byte("ERR")))
		assert.NotSame(t, NewError([]byte("ERR something odd")), NewError([]byte("ERR something odd")))
	})

	t.Run("TypeIsolated", func(t *testing.T) {
		// 同样的内容 预定义表按类型隔离
		assert.Nil(t, lookupError([]byte("OK")))
		assert.Nil(t, lookupSimpleString([]byte("ERR")))
	})
}

func TestMessageRelease(t *testing.T) {
	t.Run("BulkStrings", func(t *testing.T) {
		buf := bytebuf.NewBytes([]byte("foobar"))
		sl, err := buf.ReadSlice(6)
		require.NoError(t, err)

		msg := NewBulkString(sl)
		assert.Equal(t, 2, buf.Refs())
		assert.NoError(t, msg.Release())
		assert.Equal(t, 1, buf.Refs())

		assert.True(t, errors.Is(msg.Release(), ErrReleased))
		assert.NoError(t, buf.Release())
	})

	t.Run("RetainDelaysFree", func(t *testing.T) {
		buf := bytebuf.NewBytes([]byte("foobar"))
		sl, err := buf.ReadSlice(6)
		require.NoError(t, err)

		msg := NewBulkString(sl)
		msg.Retain()
		assert.NoError(t, msg.Release())
		assert.Equal(t, 2, buf.Refs())
		assert.NoError(t, msg.Release())
		assert.Equal(t, 1, buf.Refs())
		assert.NoError(t, buf.Release())
	})

	t.Run("ArrayReleasesChildrenOnce", func(t *testing.T) {
		buf := bytebuf.NewBytes([]byte("foobar"))
		sl1, err := buf.ReadSlice(3)
		require.NoError(t, err)
		sl2, err := buf.ReadSlice(3)
		require.NoError(t, err)

		child1 := NewBulkString(sl1)
		child2 := NewBulkString(sl2)
		arr := NewArray([]*Message{child1, NewArray([]*Message{child2, NewInteger(1)})})

		assert.Equal(t, 3, buf.Refs())
		assert.NoError(t, arr.Release())
		assert.Equal(t, 1, buf.Refs())

		// 顶层与任意子节点的再次释放都是引用计数错误
		assert.True(t, errors.Is(arr.Release(), ErrReleased))
		assert.True(t, errors.Is(child1.Release(), ErrReleased))
		assert.True(t, errors.Is(child2.Release(), ErrReleased))
		assert.NoError(t, buf.Release())
	})
}

func TestMessageBytes(t *testing.T) {
	assert.Nil(t, NullBulkString.Bytes())
	assert.NotNil(t, EmptyBulkString.Bytes())
	assert.Len(t, EmptyBulkString.Bytes(), 0)
	assert.Equal(t, []byte("foo"), NewSimpleString([]byte("foo")).Bytes())
	assert.Equal(t, []byte("foo"), NewBulkStringBytes([]byte("foo")).Bytes())
	assert.Equal(t, int64(-42), NewInteger(-42).Integer())
}

func TestDataType(t *testing.T) {
	assert.True(t, SimpleStrings.Inline())
	assert.True(t, Errors.Inline())
	assert.True(t, Integers.Inline())
	assert.False(t, BulkStrings.Inline())
	assert.False(t, Arrays.Inline())

	assert.True(t, DataType('$').Valid())
	assert.False(t, DataType('@').Valid())
	assert.Equal(t, "BulkStrings", BulkStrings.String())
	assert.Equal(t, "ArrayHeader", ArrayHeader.String())
}
