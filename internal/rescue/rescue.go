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

package rescue

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/respd/common"
	"github.com/packetd/respd/logger"
)

var panicTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: common.App,
		Name:      "panic_total",
		Help:      "program causes panic total",
	},
	[]string{"scope"},
)

// PanicHandlers 每个 handler 依次收到 panic 所在的 scope 与 recover 值
//
// scope 用于区分中继的链接处理与单方向的数据搬运等不同现场
var PanicHandlers = []func(string, any){
	incPanicCounter,
	logPanic,
}

func incPanicCounter(scope string, _ any) {
	panicTotal.WithLabelValues(scope).Inc()
}

func logPanic(scope string, r any) {
	const size = 64 << 10
	stacktrace := make([]byte, size)
	stacktrace = stacktrace[:runtime.Stack(stacktrace, false)]
	if _, ok := r.(string); ok {
		logger.Errorf("Observed a panic in %s: %s\n%s", scope, r, stacktrace)
	} else {
		logger.Errorf("Observed a panic in %s: %#v (%v)\n%s", scope, r, r, stacktrace)
	}
}

// HandleCrash 兜住当前 goroutine 的 panic scope 标识发生现场
func HandleCrash(scope string) {
	if r := recover(); r != nil {
		for _, fn := range PanicHandlers {
			fn(scope, r)
		}
	}
}
