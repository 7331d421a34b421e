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
	"strconv"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

var (
	// ErrReleased 表示缓冲区已经被释放 再次 Release 属于引用计数错误
	ErrReleased = errors.New("bytebuf: already released")

	errOutOfRange = errors.New("bytebuf: out of range")
)

// shared 为 Buffer 及其派生 Slice 共享的底层存储
//
// 底层 []byte 来自 bytebufferpool 引用计数归零时归还
// 代码假定单条链接的读写均为单线程 计数无需原子操作
type shared struct {
	refs int
	bb   *bytebufferpool.ByteBuffer
}

func (sh *shared) retain() {
	sh.refs++
}

func (sh *shared) release() error {
	if sh.refs <= 0 {
		return ErrReleased
	}
	sh.refs--
	if sh.refs == 0 {
		bytebufferpool.Put(sh.bb)
		sh.bb = nil
	}
	return nil
}

// Buffer 面向流的引用计数缓冲区
//
// Write 追加数据 读操作按读索引向前消费 Buffer 持有 shared 的一个引用
// ReadSlice 产生的 Slice 是底层存储的零拷贝子视图 与 Buffer 共享生命周期
//
// 注意 Write 可能触发底层数组扩容 但已经派生出去的 Slice 捕获的是
// 扩容前的数组 其内容不受后续写入影响
type Buffer struct {
	sh *shared
	r  int
}

// New 创建并返回空的 Buffer 实例
func New() *Buffer {
	return &Buffer{
		sh: &shared{refs: 1, bb: bytebufferpool.Get()},
	}
}

// NewSize 创建 Buffer 实例并确保底层存储至少有 n 字节容量
//
// 写入总量不超过 n 时底层数组不会再扩容
func NewSize(n int) *Buffer {
	buf := New()
	bb := buf.sh.bb
	if cap(bb.B) < n {
		bb.B = make([]byte, 0, n)
	}
	return buf
}

// NewBytes 创建 Buffer 实例并写入 p
func NewBytes(p []byte) *Buffer {
	buf := New()
	buf.Write(p)
	return buf
}

// Write 追加写入 p 写入不会失败
func (buf *Buffer) Write(p []byte) {
	buf.sh.bb.B = append(buf.sh.bb.B, p...)
}

// WriteByte 追加写入单个字节
func (buf *Buffer) WriteByte(c byte) {
	buf.sh.bb.B = append(buf.sh.bb.B, c)
}

// WriteInt64 以 ASCII 十进制形式追加写入 v
func (buf *Buffer) WriteInt64(v int64) {
	buf.sh.bb.B = strconv.AppendInt(buf.sh.bb.B, v, 10)
}

// ReadableBytes 返回当前可读的字节数
func (buf *Buffer) ReadableBytes() int {
	return len(buf.sh.bb.B) - buf.r
}

// Bytes 返回当前可读窗口
//
// 返回值是底层存储的临时视图 不增加引用计数
// 调用方不得修改内容 也不得在下一次读写操作之后继续持有
func (buf *Buffer) Bytes() []byte {
	return buf.sh.bb.B[buf.r:]
}

// ReadByte 读取并消费一个字节
func (buf *Buffer) ReadByte() (byte, error) {
	if buf.ReadableBytes() == 0 {
		return 0, io.ErrShortBuffer
	}
	c := buf.sh.bb.B[buf.r]
	buf.r++
	return c, nil
}

// Skip 消费 n 字节
func (buf *Buffer) Skip(n int) error {
	if n < 0 || buf.ReadableBytes() < n {
		return errOutOfRange
	}
	buf.r += n
	return nil
}

// IndexByte 返回 c 在可读窗口中首次出现的偏移 不存在时返回 -1
func (buf *Buffer) IndexByte(c byte) int {
	return bytes.IndexByte(buf.Bytes(), c)
}

// ReadSlice 以零拷贝方式读取并消费 n 字节 返回的 Slice 持有 shared 的一个引用
func (buf *Buffer) ReadSlice(n int) (*Slice, error) {
	if n < 0 || buf.ReadableBytes() < n {
		return nil, errOutOfRange
	}
	sl := &Slice{
		sh: buf.sh,
		b:  buf.sh.bb.B[buf.r : buf.r+n],
	}
	buf.sh.retain()
	buf.r += n
	return sl, nil
}

// Refs 返回底层存储当前的引用计数
func (buf *Buffer) Refs() int {
	return buf.sh.refs
}

// Reset 重置 Buffer 复用底层存储
//
// 仅当不存在任何派生 Slice 时允许调用 否则会破坏其内容
func (buf *Buffer) Reset() error {
	if buf.sh.refs != 1 {
		return errOutOfRange
	}
	buf.sh.bb.Reset()
	buf.r = 0
	return nil
}

// Retain 增加引用计数
func (buf *Buffer) Retain() {
	buf.sh.retain()
}

// Release 减少引用计数 归零时归还底层存储
func (buf *Buffer) Release() error {
	return buf.sh.release()
}

// Slice 底层存储的零拷贝子视图
//
// 由 Buffer.ReadSlice 派生 持有 shared 的一个引用
// 内容只读 消费方使用完毕后必须 Release
type Slice struct {
	sh *shared
	b  []byte
}

// Bytes 返回视图内容
func (sl *Slice) Bytes() []byte {
	return sl.b
}

// Len 返回视图长度
func (sl *Slice) Len() int {
	return len(sl.b)
}

// Retain 增加引用计数
func (sl *Slice) Retain() {
	sl.sh.retain()
}

// Release 减少引用计数
func (sl *Slice) Release() error {
	return sl.sh.release()
}
