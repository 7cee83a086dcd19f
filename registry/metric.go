// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package registry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	shardCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shard_proxy_shard_count",
			Help: "number of registered shards",
		},
	)
	shardUtilization = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shard_proxy_shard_utilization",
			Help: "storage utilization ratio per shard",
		},
		[]string{"shard"},
	)
)

// ShardCountSet :
func ShardCountSet(count float64) {
	shardCount.Set(count)
}

// ShardUtilizationSet :
func ShardUtilizationSet(shard string, ratio float64) {
	shardUtilization.WithLabelValues(shard).Set(ratio)
}

func init() {
	prometheus.MustRegister(shardCount, shardUtilization)
}
