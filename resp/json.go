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
	"github.com/goccy/go-json"
)

type jsonView struct {
	Type  string `json:"type"`
	Null  bool   `json:"null,omitempty"`
	Value any    `json:"value,omitempty"`
}

// MarshalJSON 实现 json.Marshaler 接口 供 dump 工具与日志输出使用
//
// BulkStrings 内容按 UTF-8 字符串输出 二进制内容的展示交由上层决定
func (m *Message) MarshalJSON() ([]byte, error) {
	view := jsonView{Type: m.Type().String()}

	switch m.Type() {
	case SimpleStrings, Errors:
		view.Value = string(m.Bytes())

	case Integers, ArrayHeader:
		view.Value = m.Integer()

	case BulkStrings:
		if m.IsNull() {
			view.Null = true
			break
		}
		view.Value = string(m.Bytes())

	case Arrays:
		if m.IsNull() {
			view.Null = true
			break
		}
		view.Value = m.Items()
	}
	return json.Marshal(view)
}
