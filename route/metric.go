// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package route

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
)

var (
	routeRequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shard_proxy_route_request_total",
			Help: "route request count by strategy and status",
		},
		[]string{"strategy", "status"},
	)

	routeFallbackCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shard_proxy_route_fallback_total",
			Help: "primary shard fallback count by reason",
		},
		[]string{"reason"},
	)

	routeFailoverCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shard_proxy_route_failover_total",
			Help: "unhealthy target failover count by strategy",
		},
		[]string{"strategy"},
	)
)

// RouteSuccessCountInc :
func RouteSuccessCountInc(strategy string) {
	counter, err := routeRequestCount.GetMetricWithLabelValues(strategy, "success")
	if err != nil {
		logging.StdLogger.Errorf("get route request metric failed,error:%s", err)
		return
	}
	counter.Inc()
}

// RouteFailedCountInc :
func RouteFailedCountInc(strategy string) {
	counter, err := routeRequestCount.GetMetricWithLabelValues(strategy, "failed")
	if err != nil {
		logging.StdLogger.Errorf("get route request metric failed,error:%s", err)
		return
	}
	counter.Inc()
}

// RouteFallbackCountInc :
func RouteFallbackCountInc(reason string) {
	counter, err := routeFallbackCount.GetMetricWithLabelValues(reason)
	if err != nil {
		logging.StdLogger.Errorf("get route fallback metric failed,error:%s", err)
		return
	}
	counter.Inc()
}

// RouteFailoverCountInc :
func RouteFailoverCountInc(strategy string) {
	counter, err := routeFailoverCount.GetMetricWithLabelValues(strategy)
	if err != nil {
		logging.StdLogger.Errorf("get route failover metric failed,error:%s", err)
		return
	}
	counter.Inc()
}

func init() {
	prometheus.MustRegister(routeRequestCount, routeFallbackCount, routeFailoverCount)
}
