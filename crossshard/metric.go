// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package crossshard

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
)

var (
	crossShardRequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shard_proxy_crossshard_request_total",
			Help: "cross-shard fan-out count by outcome",
		},
		[]string{"status"},
	)

	crossShardFanoutSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shard_proxy_crossshard_fanout_size",
			Help:    "number of shards touched per cross-shard request",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		},
	)
)

// CrossShardRequestCountInc :
func CrossShardRequestCountInc(status string) {
	counter, err := crossShardRequestCount.GetMetricWithLabelValues(status)
	if err != nil {
		logging.StdLogger.Errorf("get crossshard request metric failed,error:%s", err)
		return
	}
	counter.Inc()
}

// CrossShardFanoutObserve :
func CrossShardFanoutObserve(size float64) {
	crossShardFanoutSize.Observe(size)
}

func init() {
	prometheus.MustRegister(crossShardRequestCount, crossShardFanoutSize)
}
