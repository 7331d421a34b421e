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

package common

const (
	// App 应用程序名称
	App = "respd"

	// Version 应用程序版本
	Version = "v0.0.1"

	// ReadWriteBlockSize 单次从链接读取的块长度
	//
	// RESP 单条消息的长度没有上限（BulkStrings 最大可达 512MB）
	// 因此每次按固定块长度读取并追加到输入 Buffer 中
	// 解码器需要支持在任意字节边界处挂起 等待下一个数据块到达后继续
	ReadWriteBlockSize = 4096
)
