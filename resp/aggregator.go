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
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// frame 一个尚未闭合的数组
type frame struct {
	declared int        // 声明的子节点个数
	items    []*Message // 已经收到的子节点
}

func (f *frame) complete() bool {
	return len(f.items) == f.declared
}

// Aggregator 将 Decoder 产出的 token 流组装为完整的消息树
//
// RESP 支持嵌套数组 且嵌套的打开与闭合分布在任意多个数据块中
// 参考了编程语言的【函数栈】设计 每个 ArrayHeader 入栈一个 frame
// 叶子 token 追加到栈顶 frame 凑满即闭合成 Arrays 消息并继续向外层追加
// 一个叶子可能一次性闭合任意深度的嵌套 栈空时消息即为完整的一帧
//
// 子节点由 Decoder 交付时已经各自持有一个引用
// 组装成 Arrays 时所有权整体转移 不重复 Retain
type Aggregator struct {
	stack []*frame
}

// NewAggregator 创建并返回 Aggregator 实例
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// OnToken 消费一个 token 当且仅当凑满完整的一帧时返回非空消息
func (a *Aggregator) OnToken(msg *Message) (*Message, error) {
	if msg.Type() != ArrayHeader {
		return a.onLeaf(msg), nil
	}

	n := msg.Integer()
	switch {
	case n == -1:
		return a.onLeaf(NullArray), nil

	case n < -1:
		return nil, errors.WithMessagef(ErrMalformedNumber, "array length %d", n)

	case n == 0:
		return a.onLeaf(EmptyArray), nil

	case n > math.MaxInt32:
		// 数组长度必须能安全地转换为原生有符号 32 位索引
		return nil, errors.WithMessagef(ErrLengthOutOfRange, "array length %d", n)
	}

	a.stack = append(a.stack, &frame{
		declared: int(n),
	})
	return nil, nil
}

// onLeaf 向栈顶追加叶子 循环闭合所有凑满的 frame
func (a *Aggregator) onLeaf(msg *Message) *Message {
	for {
		if len(a.stack) == 0 {
			return msg
		}

		top := a.stack[len(a.stack)-1]
		top.items = append(top.items, msg)
		if !top.complete() {
			return nil
		}

		a.stack = a.stack[:len(a.stack)-1]
		msg = NewArray(top.items)
	}
}

// Depth 返回当前尚未闭合的数组层数
func (a *Aggregator) Depth() int {
	return len(a.stack)
}

// Release 释放所有尚未闭合的 frame 中持有的子节点
//
// 宿主在帧中途丢弃解码器时调用 避免已累积的子节点泄漏
func (a *Aggregator) Release() error {
	var errs *multierror.Error
	for _, f := range a.stack {
		for _, item := range f.items {
			if err := item.Release(); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	a.stack = nil
	return errs.ErrorOrNil()
}
