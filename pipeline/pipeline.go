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

// Package pipeline 实现单条链接的解码宿主
//
// Session 持有一个持续增长的输入 Buffer 和一个 Codec 实例
// 宿主每收到一个数据块就 Feed 一次 解码出的消息按线上顺序交付给 Handler
// Codec 本身不阻塞不等待 字节不足时自然挂起 等待下一次 Feed
package pipeline

import (
	"io"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/packetd/respd/common"
	"github.com/packetd/respd/internal/bytebuf"
	"github.com/packetd/respd/logger"
	"github.com/packetd/respd/resp"
)

// Handler 消息交付回调
//
// 消息的所有权随调用转移 消费方使用完毕后负责 Release
type Handler func(msg *resp.Message)

// sessionOptions Session 可选配置
type sessionOptions struct {
	// Streaming 流式消费模式 绕过 Aggregator 直接交付原始 token
	Streaming bool `mapstructure:"streaming"`
}

// Session 单条链接的解码会话
type Session struct {
	id     string
	opts   sessionOptions
	log    logger.Logger
	buf    *bytebuf.Buffer
	codec  *resp.Codec
	onMsg  Handler
	closed bool
}

// NewSession 创建并返回 Session 实例
func NewSession(onMsg Handler, opts common.Options) (*Session, error) {
	var so sessionOptions
	if err := opts.Decode(&so); err != nil {
		return nil, err
	}
	id := uuid.New().String()
	return &Session{
		id:    id,
		opts:  so,
		log:   logger.With("session", id, "proto", resp.PROTO),
		buf:   bytebuf.New(),
		codec: resp.NewCodec(),
		onMsg: onMsg,
	}, nil
}

// ID 返回会话标识
func (s *Session) ID() string {
	return s.id
}

// Feed 追加一个数据块并推进解码
//
// 解码错误意味着链接已不可恢复 调用方应当关闭链接并 Close 会话
func (s *Session) Feed(p []byte) error {
	s.buf.Write(p)

	var msgs []*resp.Message
	var err error
	if s.opts.Streaming {
		msgs, err = s.codec.DecodeTokens(s.buf)
	} else {
		msgs, err = s.codec.Decode(s.buf)
	}

	for _, msg := range msgs {
		s.onMsg(msg)
	}
	if err != nil {
		s.log.Errorf("decode failed: %v", err)
		return err
	}

	s.compact()
	return nil
}

// compact 输入内容全部消费后回收缓冲区空间
//
// 没有未决引用时直接复用底层存储
// 仍有消息持有切片时换一块新的存储 旧存储随最后一个引用释放
func (s *Session) compact() {
	if s.buf.ReadableBytes() != 0 {
		return
	}
	if s.buf.Refs() == 1 {
		_ = s.buf.Reset()
		return
	}
	old := s.buf
	s.buf = bytebuf.New()
	_ = old.Release()
}

// Run 持续从 r 中按块读取并 Feed 直到 EOF 或出现错误
func (s *Session) Run(r io.Reader) error {
	block := make([]byte, common.ReadWriteBlockSize)
	for {
		n, err := r.Read(block)
		if n > 0 {
			if ferr := s.Feed(block[:n]); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Close 释放会话持有的资源
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs *multierror.Error
	if err := s.codec.Release(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := s.buf.Release(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}
