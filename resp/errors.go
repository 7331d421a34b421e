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
	"io"

	"github.com/pkg/errors"
)

func newError(format string, args ...any) error {
	format = "resp/codec: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrUnknownType 帧首字节不属于 RESP 类型集合 或编码时遇到非法的消息变体
	ErrUnknownType = newError("unknown data type")

	// ErrMalformedNumber 期望十进制整数的位置出现非法字节
	// 或 BulkStrings / Arrays 声明了 -1 以外的负长度
	ErrMalformedNumber = newError("malformed number")

	// ErrLengthOutOfRange 声明长度超出实现支持的范围
	ErrLengthOutOfRange = newError("length out of range")

	// ErrBadFraming 帧边界违例 LF 之前没有 CR 或行内类型的内容中出现 CR/LF
	ErrBadFraming = newError("bad framing")

	// ErrReleased 消息已经被释放 再次 Release 属于引用计数错误
	ErrReleased = newError("message already released")
)

// errShortBytes 可读字节不足 解码器以此挂起等待下一批数据
//
// 预期内的非错误状态 不会向上层透出
var errShortBytes = io.ErrShortBuffer
