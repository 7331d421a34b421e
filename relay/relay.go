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

// Package relay 实现 RESP 流量中继
//
// 监听本地端口并将链接转发至上游 Redis 同时让两个方向的字节流
// 各自经过一条解码管线 以观测每一帧的类型与数量
//
// +----------+             +---------+             +----------+
// |  Client  |  ---------> |  relay  |  ---------> |  Server  |
// |          |  <--------- |         |  <--------- |          |
// +----------+             +---------+             +----------+
//
// 默认按原始字节透传 reencode 模式下每一帧先解码再重新编码后转发
// 两种模式对端侧均不可感知
package relay

import (
	"net"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/packetd/respd/common"
	"github.com/packetd/respd/confengine"
	"github.com/packetd/respd/internal/rescue"
	"github.com/packetd/respd/logger"
	"github.com/packetd/respd/pipeline"
	"github.com/packetd/respd/resp"
)

type Config struct {
	Listen   string `config:"listen"`
	Upstream string `config:"upstream"`
	Reencode bool   `config:"reencode"`
}

// Stats 进程内的中继运行时统计 与 prometheus 指标并行维护 供管理接口查询
type Stats struct {
	ActiveConnections int   `json:"activeConnections"`
	RequestFrames     int64 `json:"requestFrames"`
	ResponseFrames    int64 `json:"responseFrames"`
}

type Relay struct {
	config Config
	ln     net.Listener
	closed bool
	stats  Stats
	mut    sync.Mutex
}

// New 创建并返回 Relay 实例
func New(conf *confengine.Config) (*Relay, error) {
	var config Config
	ok, err := conf.UnpackSection("relay", &config)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("relay: section required")
	}
	if config.Listen == "" || config.Upstream == "" {
		return nil, errors.New("relay: listen/upstream required")
	}
	return &Relay{config: config}, nil
}

// Stats 返回当前统计快照
func (r *Relay) Stats() Stats {
	r.mut.Lock()
	defer r.mut.Unlock()
	return r.stats
}

// StatsHandler 按 JSON 输出统计快照 由管理接口注册为路由
func (r *Relay) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	b, err := json.Marshal(r.Stats())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(b)
}

func (r *Relay) countFrame(direction string) {
	r.mut.Lock()
	defer r.mut.Unlock()

	switch direction {
	case directionRequest:
		r.stats.RequestFrames++
	case directionResponse:
		r.stats.ResponseFrames++
	}
}

func (r *Relay) countConn(delta int) {
	r.mut.Lock()
	defer r.mut.Unlock()
	r.stats.ActiveConnections += delta
}

func (r *Relay) ListenAndServe() error {
	ln, err := net.Listen("tcp", r.config.Listen)
	if err != nil {
		return err
	}

	r.mut.Lock()
	r.ln = ln
	r.mut.Unlock()

	logger.Infof("relay listening on %s, upstream %s", r.config.Listen, r.config.Upstream)
	for {
		conn, err := ln.Accept()
		if err != nil {
			r.mut.Lock()
			closed := r.closed
			r.mut.Unlock()
			if closed {
				return nil
			}
			return err
		}
		go r.handleConn(conn)
	}
}

// Addr 返回实际监听的地址 尚未开始监听时返回 nil
func (r *Relay) Addr() net.Addr {
	r.mut.Lock()
	defer r.mut.Unlock()

	if r.ln == nil {
		return nil
	}
	return r.ln.Addr()
}

// Close 停止接受新链接 已建立的链接随对端关闭自然退出
func (r *Relay) Close() {
	r.mut.Lock()
	defer r.mut.Unlock()

	r.closed = true
	if r.ln != nil {
		_ = r.ln.Close()
	}
}

const (
	directionRequest  = "request"
	directionResponse = "response"
)

func (r *Relay) handleConn(client net.Conn) {
	defer rescue.HandleCrash("relay/conn")

	upstream, err := net.Dial("tcp", r.config.Upstream)
	if err != nil {
		logger.Errorf("relay: dial upstream %s failed: %v", r.config.Upstream, err)
		_ = client.Close()
		return
	}

	activeConns.Inc()
	r.countConn(1)
	defer func() {
		activeConns.Dec()
		r.countConn(-1)
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go r.pump(client, upstream, directionRequest, &wg)
	go r.pump(upstream, client, directionResponse, &wg)
	wg.Wait()
}

// pump 单方向搬运字节 所有数据同时经由解码管线观测
//
// 解码失败意味着流量不是合法的 RESP 此时关闭两端链接
func (r *Relay) pump(src, dst net.Conn, direction string, wg *sync.WaitGroup) {
	defer wg.Done()
	defer rescue.HandleCrash("relay/pump")

	log := logger.With("direction", direction, "peer", src.RemoteAddr().String())
	sess, err := pipeline.NewSession(func(msg *resp.Message) {
		framesTotal.WithLabelValues(direction, msg.Type().String()).Inc()
		r.countFrame(direction)

		if r.config.Reencode {
			out, eerr := resp.Encode(msg)
			if eerr != nil {
				log.Errorf("encode frame failed: %v", eerr)
			} else {
				_, _ = dst.Write(out.Bytes())
				_ = out.Release()
			}
		}
		if rerr := msg.Release(); rerr != nil {
			log.Warnf("release message failed: %v", rerr)
		}
	}, common.NewOptions())
	if err != nil {
		log.Errorf("create session failed: %v", err)
		return
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warnf("close session failed: %v", cerr)
		}
	}()

	block := make([]byte, common.ReadWriteBlockSize)
	for {
		n, rerr := src.Read(block)
		if n > 0 {
			if !r.config.Reencode {
				if _, werr := dst.Write(block[:n]); werr != nil {
					break
				}
			}
			if ferr := sess.Feed(block[:n]); ferr != nil {
				break
			}
		}
		if rerr != nil {
			break
		}
	}
	_ = src.Close()
	_ = dst.Close()
}
