// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package rebalance

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
)

var (
	rebalanceOpCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shard_proxy_rebalance_op_total",
			Help: "rebalance operation transition count by kind and status",
		},
		[]string{"kind", "status"},
	)

	rebalanceMovedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shard_proxy_rebalance_moved_rows_total",
			Help: "rows moved off a source shard by move_data operations",
		},
		[]string{"shard"},
	)
)

// RebalanceOpCountInc :
func RebalanceOpCountInc(kind, status string) {
	counter, err := rebalanceOpCount.GetMetricWithLabelValues(kind, status)
	if err != nil {
		logging.StdLogger.Errorf("get rebalance op metric failed,error:%s", err)
		return
	}
	counter.Inc()
}

// RebalanceMovedRowsAdd :
func RebalanceMovedRowsAdd(shardID string, rows float64) {
	counter, err := rebalanceMovedRows.GetMetricWithLabelValues(shardID)
	if err != nil {
		logging.StdLogger.Errorf("get rebalance moved rows metric failed,error:%s", err)
		return
	}
	counter.Add(rows)
}

func init() {
	prometheus.MustRegister(rebalanceOpCount, rebalanceMovedRows)
}
