// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package shard_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

func TestRoutingConfigRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		strategy shard.Strategy
	}{
		{"hash", &shard.HashStrategy{HashFunc: "default"}},
		{"range", &shard.RangeStrategy{Ranges: []shard.RangeInterval{
			{Min: 0, Max: 100, Table: "users"},
			{Min: 101, Max: 200, Table: "users"},
		}}},
		{"geo", &shard.GeoStrategy{Box: shard.BoundingBox{MinLat: -10, MaxLat: 10, MinLng: 100, MaxLng: 120}}},
		{"composite", &shard.CompositeStrategy{Strategies: []shard.RoutingConfig{
			{Strategy: &shard.HashStrategy{}},
			{Strategy: &shard.GeoStrategy{Box: shard.BoundingBox{MaxLat: 1, MaxLng: 1}}},
		}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			data, err := json.Marshal(shard.RoutingConfig{Strategy: c.strategy})
			require.NoError(t, err)
			decoded := shard.RoutingConfig{}
			require.NoError(t, json.Unmarshal(data, &decoded))
			require.NotNil(t, decoded.Strategy)
			assert.Equal(t, c.strategy.Kind(), decoded.Strategy.Kind())
			assert.Equal(t, c.strategy, decoded.Strategy)
		})
	}
}

func TestRoutingConfigEmpty(t *testing.T) {
	data, err := json.Marshal(shard.RoutingConfig{})
	require.NoError(t, err)
	decoded := shard.RoutingConfig{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Nil(t, decoded.Strategy)
}

func TestRangeIntervalContains(t *testing.T) {
	interval := shard.RangeInterval{Min: 0, Max: 100, Table: "users"}
	assert.True(t, interval.Contains("users", 0))
	assert.True(t, interval.Contains("users", 100))
	assert.True(t, interval.Contains("users", 50))
	assert.False(t, interval.Contains("users", -1))
	assert.False(t, interval.Contains("users", 101))
	assert.False(t, interval.Contains("orders", 50))
}

func TestBoundingBoxContains(t *testing.T) {
	box := shard.BoundingBox{MinLat: 0, MaxLat: 10, MinLng: 0, MaxLng: 10}
	assert.True(t, box.Contains(0, 0))
	assert.True(t, box.Contains(10, 10))
	assert.True(t, box.Contains(5, 5))
	assert.False(t, box.Contains(10.0001, 5))
	assert.False(t, box.Contains(5, -0.0001))
}

func TestCapacityUtilization(t *testing.T) {
	capacity := shard.Capacity{MaxStorageBytes: 1000, CurrentStorageBytes: 850}
	assert.InDelta(t, 0.85, capacity.Utilization(), 1e-9)
	empty := shard.Capacity{}
	assert.Zero(t, empty.Utilization())
}

func TestShardClone(t *testing.T) {
	origin := &shard.Shard{
		ID:     "s1",
		Active: true,
		Routing: shard.RoutingConfig{
			Strategy: &shard.RangeStrategy{Ranges: []shard.RangeInterval{{Min: 1, Max: 2, Table: "users"}}},
		},
		Health: shard.Health{Status: shard.StatusHealthy, Issues: []string{"a"}},
	}
	cloned := origin.Clone()
	cloned.Health.Issues[0] = "b"
	cloned.Routing.Strategy.(*shard.RangeStrategy).Ranges[0].Max = 99
	assert.Equal(t, "a", origin.Health.Issues[0])
	assert.Equal(t, int64(2), origin.Routing.Strategy.(*shard.RangeStrategy).Ranges[0].Max)
}
