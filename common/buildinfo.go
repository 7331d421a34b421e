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

import (
	"fmt"
	"runtime"
)

// BuildInfo 代表程序构建信息 管理接口 /version 按 JSON 输出
type BuildInfo struct {
	Version   string `json:"version"`
	GitHash   string `json:"gitHash"`
	Time      string `json:"time"`
	GoVersion string `json:"goVersion"`
}

var (
	buildVersion string
	buildTime    string
	buildHash    string
)

// GetBuildInfo 返回构建信息 未经 ldflags 注入时回退到默认版本号
func GetBuildInfo() BuildInfo {
	version := buildVersion
	if version == "" {
		version = Version
	}
	return BuildInfo{
		Version:   version,
		GitHash:   buildHash,
		Time:      buildTime,
		GoVersion: runtime.Version(),
	}
}

func (bi BuildInfo) String() string {
	return fmt.Sprintf("%s (hash=%s time=%s %s)", bi.Version, bi.GitHash, bi.Time, bi.GoVersion)
}
