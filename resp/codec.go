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
	"github.com/packetd/respd/internal/bytebuf"
)

// Codec 单条链接的编解码器 组合 Decoder 与 Aggregator
//
// Codec 是纯粹的状态容器 内部不阻塞不等待
// 宿主保证同一实例上的 Decode / DecodeTokens 调用不并发
// 不同链接的实例相互独立 可以在各自的 goroutine 中运行
type Codec struct {
	dec *Decoder
	agg *Aggregator
}

// NewCodec 创建并返回 Codec 实例
func NewCodec() *Codec {
	return &Codec{
		dec: NewDecoder(),
		agg: NewAggregator(),
	}
}

// Decode 从 buf 中解析出零或多个完整的消息树
//
// 字节不足不是错误 每个完整的 RESP 帧恰好产出一条顶层消息
// 链接内的消息始终按线上顺序交付
func (c *Codec) Decode(buf *bytebuf.Buffer) ([]*Message, error) {
	tokens, err := c.dec.Decode(buf)

	var msgs []*Message
	for _, token := range tokens {
		msg, aerr := c.agg.OnToken(token)
		if aerr != nil {
			return msgs, aerr
		}
		if msg != nil {
			msgs = append(msgs, msg)
		}
	}
	return msgs, err
}

// DecodeTokens 流式消费模式 绕过 Aggregator 直接交付原始 token
//
// ArrayHeader 会原样交付 消费方自行履行其声明的子节点个数
// 同一实例不允许在一帧中途混用 Decode 与 DecodeTokens
func (c *Codec) DecodeTokens(buf *bytebuf.Buffer) ([]*Message, error) {
	return c.dec.Decode(buf)
}

// Release 尽力释放 Codec 持有的资源
//
// 宿主在帧中途丢弃 Codec 时调用 释放 Aggregator 中已累积的子节点
func (c *Codec) Release() error {
	return c.agg.Release()
}
