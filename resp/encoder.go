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
	"github.com/pkg/errors"

	"github.com/packetd/respd/internal/bytebuf"
)

var crlf = []byte("\r\n")

// Encode 将消息树序列化为线上字节
//
// 两阶段序列化 第一遍遍历计算精确的字节总数
// 第二遍按该容量一次性申请输出缓冲区并逐节点写入 过程中不再扩容
// 返回的 Buffer 由调用方 Release
func Encode(msg *Message) (*bytebuf.Buffer, error) {
	n, err := encodedSize(msg)
	if err != nil {
		return nil, err
	}

	buf := bytebuf.NewSize(n)
	if err := encodeTo(buf, msg); err != nil {
		_ = buf.Release()
		return nil, err
	}
	encodedTotal.WithLabelValues(msg.Type().String()).Inc()
	encodedBytesTotal.Add(float64(n))
	return buf, nil
}

// encodedSize 计算消息树序列化后的字节总数
func encodedSize(msg *Message) (int, error) {
	switch msg.Type() {
	case SimpleStrings, Errors:
		// "+<content>\r\n"
		return 1 + len(msg.Bytes()) + 2, nil

	case Integers:
		// ":<value>\r\n"
		return 1 + intLen(msg.Integer()) + 2, nil

	case BulkStrings:
		if msg.IsNull() {
			// "$-1\r\n"
			return 5, nil
		}
		// "$<len>\r\n<content>\r\n"
		n := len(msg.Bytes())
		return 1 + intLen(int64(n)) + 2 + n + 2, nil

	case Arrays:
		if msg.IsNull() {
			// "*-1\r\n"
			return 5, nil
		}
		// "*<count>\r\n<items...>"
		items := msg.Items()
		total := 1 + intLen(int64(len(items))) + 2
		for _, item := range items {
			n, err := encodedSize(item)
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	}

	return 0, errors.WithMessagef(ErrUnknownType, "encode %s", msg.Type())
}

// encodeTo 递归写入消息树
func encodeTo(buf *bytebuf.Buffer, msg *Message) error {
	switch msg.Type() {
	case SimpleStrings, Errors:
		buf.WriteByte(byte(msg.Type()))
		buf.Write(msg.Bytes())
		buf.Write(crlf)
		return nil

	case Integers:
		buf.WriteByte(byte(Integers))
		buf.WriteInt64(msg.Integer())
		buf.Write(crlf)
		return nil

	case BulkStrings:
		buf.WriteByte(byte(BulkStrings))
		if msg.IsNull() {
			buf.WriteInt64(-1)
			buf.Write(crlf)
			return nil
		}
		b := msg.Bytes()
		buf.WriteInt64(int64(len(b)))
		buf.Write(crlf)
		buf.Write(b)
		buf.Write(crlf)
		return nil

	case Arrays:
		buf.WriteByte(byte(Arrays))
		if msg.IsNull() {
			buf.WriteInt64(-1)
			buf.Write(crlf)
			return nil
		}
		items := msg.Items()
		buf.WriteInt64(int64(len(items)))
		buf.Write(crlf)
		for _, item := range items {
			if err := encodeTo(buf, item); err != nil {
				return err
			}
		}
		return nil
	}

	return errors.WithMessagef(ErrUnknownType, "encode %s", msg.Type())
}

// intLen 返回 v 的 ASCII 十进制长度 含可能的负号
func intLen(v int64) int {
	n := 1
	if v < 0 {
		n++
	}
	// 除法朝零截断 v 为 math.MinInt64 时同样成立
	for v = v / 10; v != 0; v /= 10 {
		n++
	}
	return n
}
