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
	"github.com/hashicorp/go-multierror"

	"github.com/packetd/respd/internal/bytebuf"
)

const (
	// refsStatic 进程级共享的不可变消息 不参与引用计数
	refsStatic = -1
)

type flag uint8

const (
	flagNone flag = iota

	// flagNull 空值标记 仅对 BulkStrings / Arrays 有意义
	//
	// RESP 区分 `空值` 与 `空` 两种状态
	// "$-1\r\n" 是空值多行字符串 "$0\r\n\r\n" 是空多行字符串
	// "*-1\r\n" 是空值数组 "*0\r\n" 是空数组
	flagNull

	// flagEmpty 空标记
	flagEmpty
)

// Message RESP 消息树节点
//
// 五种可观测的数据类型共用一个结构体 以 dtype 区分变体
// 额外的 ArrayHeader 仅作为 Decoder 与 Aggregator 之间的内部 token
//
// BulkStrings 的内容是输入缓冲区的零拷贝子视图 Arrays 拥有其全部子节点
// 这两种变体参与引用计数 消费方使用完毕后必须 Release 且恰好一次
// 行内类型以及 空值/空 单例没有释放义务
type Message struct {
	dtype DataType
	flags flag

	num   int64          // Integers 的值 或 ArrayHeader 声明的子节点个数
	str   []byte         // SimpleStrings / Errors 的内容
	slice *bytebuf.Slice // BulkStrings 的内容
	items []*Message     // Arrays 的子节点

	refs int
}

var (
	// NullBulkString 空值多行字符串单例 "$-1\r\n"
	NullBulkString = &Message{dtype: BulkStrings, flags: flagNull, refs: refsStatic}

	// EmptyBulkString 空多行字符串单例 "$0\r\n\r\n"
	EmptyBulkString = &Message{dtype: BulkStrings, flags: flagEmpty, refs: refsStatic}

	// NullArray 空值数组单例 "*-1\r\n"
	NullArray = &Message{dtype: Arrays, flags: flagNull, refs: refsStatic}

	// EmptyArray 空数组单例 "*0\r\n"
	EmptyArray = &Message{dtype: Arrays, flags: flagEmpty, refs: refsStatic}
)

// NewSimpleString 创建 SimpleStrings 消息
//
// 内容命中预定义表时返回共享的不可变实例 内容不允许包含 CR / LF
// 调用方让渡 b 的所有权 不得再修改
func NewSimpleString(b []byte) *Message {
	if m := lookupSimpleString(b); m != nil {
		return m
	}
	return &Message{dtype: SimpleStrings, str: b, refs: refsStatic}
}

// NewError 创建 Errors 消息 预定义行为与 NewSimpleString 一致
func NewError(b []byte) *Message {
	if m := lookupError(b); m != nil {
		return m
	}
	return &Message{dtype: Errors, str: b, refs: refsStatic}
}

// NewInteger 创建 Integers 消息
func NewInteger(v int64) *Message {
	return &Message{dtype: Integers, num: v, refs: refsStatic}
}

// NewBulkString 创建 BulkStrings 消息 接管 sl 已经持有的一个引用
//
// sl 为 nil 时返回空值单例 长度为 0 时释放 sl 并返回空单例
func NewBulkString(sl *bytebuf.Slice) *Message {
	if sl == nil {
		return NullBulkString
	}
	if sl.Len() == 0 {
		_ = sl.Release()
		return EmptyBulkString
	}
	return &Message{dtype: BulkStrings, slice: sl, refs: 1}
}

// NewBulkStringBytes 创建持有独立内容的 BulkStrings 消息
//
// 编码侧构造消息树时使用 b 为 nil 时返回空值单例
func NewBulkStringBytes(b []byte) *Message {
	if b == nil {
		return NullBulkString
	}
	if len(b) == 0 {
		return EmptyBulkString
	}
	return &Message{dtype: BulkStrings, str: b, refs: 1}
}

// NewArray 创建 Arrays 消息 接管 items 中每个子节点已经持有的引用
//
// items 为 nil 时返回空值单例 长度为 0 时返回空单例
func NewArray(items []*Message) *Message {
	if items == nil {
		return NullArray
	}
	if len(items) == 0 {
		return EmptyArray
	}
	return &Message{dtype: Arrays, items: items, refs: 1}
}

// newArrayHeader 创建数组头 token n 为声明的子节点个数 负值代表空值数组
func newArrayHeader(n int64) *Message {
	return &Message{dtype: ArrayHeader, num: n, refs: refsStatic}
}

// Type 返回消息的数据类型
func (m *Message) Type() DataType {
	return m.dtype
}

// IsNull 返回消息是否为空值 仅对 BulkStrings / Arrays 有意义
func (m *Message) IsNull() bool {
	return m.flags == flagNull
}

// Integer 返回 Integers 的值 对 ArrayHeader 返回声明的子节点个数
func (m *Message) Integer() int64 {
	return m.num
}

// Bytes 返回 SimpleStrings / Errors / BulkStrings 的内容
//
// 空值消息返回 nil 空消息返回零长度切片
// 返回值与消息共享生命周期 消息 Release 之后不得继续使用
func (m *Message) Bytes() []byte {
	switch m.flags {
	case flagNull:
		return nil
	case flagEmpty:
		return []byte{}
	}
	if m.slice != nil {
		return m.slice.Bytes()
	}
	return m.str
}

// Items 返回 Arrays 的子节点
func (m *Message) Items() []*Message {
	return m.items
}

// static 返回消息是否为进程级共享的不可变实例
func (m *Message) static() bool {
	return m.refs == refsStatic
}

// Retain 增加引用计数 共享实例为空操作
func (m *Message) Retain() {
	if m.static() {
		return
	}
	m.refs++
}

// Release 减少引用计数 归零时释放持有的资源
//
// BulkStrings 释放其底层切片 Arrays 释放每个子节点且恰好一次
// 对已经释放的消息再次 Release 返回 ErrReleased
func (m *Message) Release() error {
	if m.static() {
		return nil
	}
	if m.refs <= 0 {
		return ErrReleased
	}
	m.refs--
	if m.refs > 0 {
		return nil
	}

	if m.slice != nil {
		if err := m.slice.Release(); err != nil {
			return err
		}
		m.slice = nil
		return nil
	}

	var errs *multierror.Error
	for _, item := range m.items {
		if err := item.Release(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	m.items = nil
	return errs.ErrorOrNil()
}
