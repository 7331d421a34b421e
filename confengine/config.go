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

package confengine

import (
	"github.com/elastic/go-ucfg"
	"github.com/elastic/go-ucfg/yaml"

	"github.com/packetd/respd/logger"
)

// Config 是对 ucfg.Config 的封装
//
// respd 的配置文件按组件切分为 relay / server / logger 三个命名段
// 组件自身只关心所属的段 通过 UnpackSection 判断存在性并解包
type Config struct {
	conf *ucfg.Config
}

func New(conf *ucfg.Config) *Config {
	return &Config{conf: conf}
}

func (c *Config) Has(s string) bool {
	ok, err := c.conf.Has(s, -1)
	if err != nil {
		return false
	}
	return ok
}

func (c *Config) UnpackChild(s string, to any) error {
	content, err := c.conf.Child(s, -1)
	if err != nil {
		return err
	}
	return content.Unpack(to)
}

// UnpackSection 解包命名配置段
//
// 配置段不存在不是错误 返回 false 且不修改 to 由调用方决定组件是否启用
func (c *Config) UnpackSection(s string, to any) (bool, error) {
	if !c.Has(s) {
		return false, nil
	}
	if err := c.UnpackChild(s, to); err != nil {
		return false, err
	}
	return true, nil
}

// LoggerOptions 读取 logger 配置段 不存在时返回 false 保持默认日志行为
func (c *Config) LoggerOptions() (logger.Options, bool) {
	var opt logger.Options
	ok, err := c.UnpackSection("logger", &opt)
	if err != nil || !ok {
		return logger.Options{}, false
	}
	return opt, true
}

func LoadConfigPath(path string) (*Config, error) {
	config, err := yaml.NewConfigWithFile(path, ucfg.PathSep("."))
	if err != nil {
		return nil, err
	}

	return New(config), err
}

func LoadContent(b []byte) (*Config, error) {
	config, err := yaml.NewConfig(b)
	if err != nil {
		return nil, err
	}
	return New(config), err
}
