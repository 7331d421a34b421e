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
	"bytes"
	"math"

	"github.com/pkg/errors"

	"github.com/packetd/respd/internal/bytebuf"
)

// state 解码器状态
//
// 状态之间的迁移关系固定
//
//	              +--> decodeInline ----+
//	decodeType ---+                     +--> decodeType
//	              +--> decodeLength --+-+
//	                                  |
//	                                  +--> decodeBulkString --> decodeType
type state uint8

const (
	// stateDecodeType 初始态/终止态 读取一个字节解析出数据类型
	stateDecodeType state = iota

	// stateDecodeInline 读取一行 CRLF 结尾的内容并产出行内类型 token
	stateDecodeInline

	// stateDecodeLength 读取一行 CRLF 结尾的十进制长度
	stateDecodeLength

	// stateDecodeBulkString 按此前解析出的长度消费 BulkStrings 内容
	stateDecodeBulkString
)

// Decoder RESP 字节流解码器
//
// Decoder 负责将流式的 RESP 数据解析为扁平的 token 流
// 即叶子消息（行内类型与 BulkStrings） 以及每个数组打开时的 ArrayHeader
//
// TCP 层的数据已经被切割 不保证单次到达的数据块能覆盖完整的 RESP 帧
// 任何状态发现可读字节不足时立即挂起 等待宿主追加数据后重入
// 挂起期间的全部记忆就是 state 加上 dtype / bulkLen 两个标量
type Decoder struct {
	state   state
	dtype   DataType
	bulkLen int64
}

// NewDecoder 创建并返回 Decoder 实例
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode 持续从 buf 中解析 token 直到可读字节不足
//
// 单次调用可能产出任意数量的 token 字节不足不是错误 返回已产出的部分即可
// 出现任何解码错误时状态机重置回初始态并向上透出
// 已经消费的字节不会回退 链接此时已不可恢复 宿主应当关闭链接
func (d *Decoder) Decode(buf *bytebuf.Buffer) ([]*Message, error) {
	var msgs []*Message
	for {
		msg, err := d.decode(buf)
		if err != nil {
			if errors.Is(err, errShortBytes) {
				return msgs, nil
			}
			d.state = stateDecodeType
			decodeErrorsTotal.Inc()
			return msgs, err
		}
		decodedTotal.WithLabelValues(msg.Type().String()).Inc()
		msgs = append(msgs, msg)
	}
}

// decode 推进状态机直到产出下一个 token
func (d *Decoder) decode(buf *bytebuf.Buffer) (*Message, error) {
	for {
		switch d.state {
		case stateDecodeType:
			c, err := buf.ReadByte()
			if err != nil {
				return nil, errShortBytes
			}
			dt := DataType(c)
			if !dt.Valid() {
				return nil, errors.WithMessagef(ErrUnknownType, "got %q", c)
			}
			d.dtype = dt
			if dt.Inline() {
				d.state = stateDecodeInline
			} else {
				d.state = stateDecodeLength
			}

		case stateDecodeInline:
			line, err := readLine(buf)
			if err != nil {
				return nil, err
			}
			msg, err := d.decodeInline(line)
			if err != nil {
				return nil, err
			}
			d.state = stateDecodeType
			return msg, nil

		case stateDecodeLength:
			line, err := readLine(buf)
			if err != nil {
				return nil, err
			}
			n, err := parseInt(line)
			if err != nil {
				return nil, err
			}
			if d.dtype == Arrays {
				d.state = stateDecodeType
				return newArrayHeader(n), nil
			}
			d.bulkLen = n
			d.state = stateDecodeBulkString

		case stateDecodeBulkString:
			msg, err := d.decodeBulkString(buf)
			if err != nil {
				return nil, err
			}
			d.state = stateDecodeType
			return msg, nil
		}
	}
}

// decodeInline 解析 +/-/: 三个标识符的内容
//
// SimpleStrings / Errors 优先复用预定义实例 未命中时拷贝一份内容
// 行内容是输入缓冲区的临时视图 直接持有会被后续写入破坏
func (d *Decoder) decodeInline(line []byte) (*Message, error) {
	switch d.dtype {
	case SimpleStrings:
		if m := lookupSimpleString(line); m != nil {
			return m, nil
		}
		if bytes.IndexByte(line, '\r') >= 0 {
			return nil, errors.WithMessage(ErrBadFraming, "CR in content")
		}
		return NewSimpleString(append([]byte(nil), line...)), nil

	case Errors:
		if m := lookupError(line); m != nil {
			return m, nil
		}
		if bytes.IndexByte(line, '\r') >= 0 {
			return nil, errors.WithMessage(ErrBadFraming, "CR in content")
		}
		return NewError(append([]byte(nil), line...)), nil
	}

	v, err := parseInt(line)
	if err != nil {
		return nil, err
	}
	return NewInteger(v), nil
}

// decodeBulkString 按声明长度解析 BulkStrings 内容
//
// 长度为 -1 / 0 时返回对应单例 正长度要求 `长度 + 2` 字节全部可读
// 内容以零拷贝切片的方式从输入缓冲区取出 消息持有其一个引用
func (d *Decoder) decodeBulkString(buf *bytebuf.Buffer) (*Message, error) {
	n := d.bulkLen
	switch {
	case n == -1:
		return NullBulkString, nil

	case n < -1:
		return nil, errors.WithMessagef(ErrMalformedNumber, "bulk length %d", n)

	case n == 0:
		if err := skipCRLF(buf); err != nil {
			return nil, err
		}
		return EmptyBulkString, nil
	}

	if n > math.MaxInt32 {
		return nil, errors.WithMessagef(ErrLengthOutOfRange, "bulk length %d", n)
	}
	if buf.ReadableBytes() < int(n)+2 {
		return nil, errShortBytes
	}

	sl, err := buf.ReadSlice(int(n))
	if err != nil {
		return nil, err
	}
	if err := skipCRLF(buf); err != nil {
		_ = sl.Release()
		return nil, err
	}
	return NewBulkString(sl), nil
}

// readLine 读取一行 CRLF 结尾的内容 返回值不含 CRLF
//
// 在可读窗口中扫描首个 LF 未找到则挂起
// LF 之前必须是 CR 否则视为帧边界违例
// 返回的行是缓冲区的临时视图 需要持有时调用方自行拷贝
func readLine(buf *bytebuf.Buffer) ([]byte, error) {
	idx := buf.IndexByte('\n')
	if idx < 0 {
		return nil, errShortBytes
	}
	if idx == 0 || buf.Bytes()[idx-1] != '\r' {
		return nil, errors.WithMessage(ErrBadFraming, "LF without CR")
	}

	line := buf.Bytes()[:idx-1]
	if err := buf.Skip(idx + 1); err != nil {
		return nil, err
	}
	return line, nil
}

// skipCRLF 校验并消费内容之后的 CRLF
func skipCRLF(buf *bytebuf.Buffer) error {
	if buf.ReadableBytes() < 2 {
		return errShortBytes
	}
	b := buf.Bytes()
	if b[0] != '\r' || b[1] != '\n' {
		return errors.WithMessage(ErrBadFraming, "content not terminated by CRLF")
	}
	return buf.Skip(2)
}

// parseInt 解析 ASCII 十进制有符号整数
//
// 负号仅允许出现在首位 累加过程保持非正数再按需取反
// 这样 math.MinInt64 也能被表示而不会中途溢出
func parseInt(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, errors.WithMessage(ErrMalformedNumber, "empty number")
	}

	neg := b[0] == '-'
	i := 0
	if neg {
		i = 1
		if len(b) == 1 {
			return 0, errors.WithMessage(ErrMalformedNumber, "bare minus")
		}
	}

	var n int64
	for ; i < len(b); i++ {
		c := b[i] - '0'
		if c > 9 {
			return 0, errors.WithMessagef(ErrMalformedNumber, "got %q", b[i])
		}
		if n < (math.MinInt64+int64(c))/10 {
			return 0, errors.WithMessage(ErrMalformedNumber, "overflows int64")
		}
		n = n*10 - int64(c)
	}

	if !neg {
		if n == math.MinInt64 {
			return 0, errors.WithMessage(ErrMalformedNumber, "overflows int64")
		}
		return -n, nil
	}
	return n, nil
}
