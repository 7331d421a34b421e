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

	"github.com/cespare/xxhash/v2"
)

// 预定义消息表
//
// Redis 的响应中 "+OK\r\n" 这类短字符串出现得极其频繁
// 解码时对内容做一次哈希查表 命中则复用共享的不可变实例 避免逐条分配
// 预定义仅影响解码侧的复用 编码产物与普通消息完全一致
var (
	predefinedSimpleStrings = map[uint64]*Message{}
	predefinedErrors        = map[uint64]*Message{}
)

func init() {
	for _, s := range []string{
		"OK",
		"PONG",
		"QUEUED",
	} {
		m := &Message{dtype: SimpleStrings, str: []byte(s), refs: refsStatic}
		predefinedSimpleStrings[xxhash.Sum64String(s)] = m
	}

	for _, s := range []string{
		"ERR",
		"ERR index out of range",
		"ERR no such key",
		"ERR source and destination objects are the same",
		"ERR syntax error",
		"BUSYGROUP Consumer Group name already exists",
		"NOAUTH Authentication required.",
		"NOSCRIPT No matching script. Please use EVAL.",
		"WRONGTYPE Operation against a key holding the wrong kind of value",
	} {
		m := &Message{dtype: Errors, str: []byte(s), refs: refsStatic}
		predefinedErrors[xxhash.Sum64String(s)] = m
	}
}

// lookupSimpleString 查找内容完全一致的预定义 SimpleStrings 实例
func lookupSimpleString(b []byte) *Message {
	m := predefinedSimpleStrings[xxhash.Sum64(b)]
	if m != nil && bytes.Equal(m.str, b) {
		return m
	}
	return nil
}

// lookupError 查找内容完全一致的预定义 Errors 实例
func lookupError(b []byte) *Message {
	m := predefinedErrors[xxhash.Sum64(b)]
	if m != nil && bytes.Equal(m.str, b) {
		return m
	}
	return nil
}
