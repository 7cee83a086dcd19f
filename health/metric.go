// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package health

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
)

var (
	healthCheckCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shard_proxy_health_check_total",
			Help: "health probe count by shard and resulting status",
		},
		[]string{"shard", "status"},
	)

	healthCheckLatency = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shard_proxy_health_check_latency_seconds",
			Help: "latest health probe round-trip latency by shard",
		},
		[]string{"shard"},
	)
)

// HealthCheckCountInc :
func HealthCheckCountInc(shardID, status string) {
	counter, err := healthCheckCount.GetMetricWithLabelValues(shardID, status)
	if err != nil {
		logging.StdLogger.Errorf("get health check metric failed,error:%s", err)
		return
	}
	counter.Inc()
}

// HealthCheckLatencySet :
func HealthCheckLatencySet(shardID string, seconds float64) {
	gauge, err := healthCheckLatency.GetMetricWithLabelValues(shardID)
	if err != nil {
		logging.StdLogger.Errorf("get health latency metric failed,error:%s", err)
		return
	}
	gauge.Set(seconds)
}

func init() {
	prometheus.MustRegister(healthCheckCount, healthCheckLatency)
}
