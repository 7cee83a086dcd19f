// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package shard

import (
	"encoding/json"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/errors"
)

// StrategyKind 分片策略类型
type StrategyKind string

// :
const (
	StrategyHash      StrategyKind = "hash"
	StrategyRange     StrategyKind = "range"
	StrategyGeo       StrategyKind = "geo"
	StrategyComposite StrategyKind = "composite"
)

// Strategy 分片策略的和类型，路由侧通过类型switch做穷举匹配
// 不支持的策略在编译期即可发现，而不是运行时落入默认分支
type Strategy interface {
	Kind() StrategyKind
}

// HashStrategy hash策略，shard在活跃列表中的位置决定其hash桶
type HashStrategy struct {
	HashFunc string `json:"hash_func,omitempty"`
}

// Kind :
func (s *HashStrategy) Kind() StrategyKind { return StrategyHash }

// RangeInterval shard持有的一段闭区间
type RangeInterval struct {
	Min   int64  `json:"min"`
	Max   int64  `json:"max"`
	Table string `json:"table"`
}

// Contains 闭区间判断
func (r *RangeInterval) Contains(table string, value int64) bool {
	return r.Table == table && value >= r.Min && value <= r.Max
}

// RangeStrategy range策略，shard持有的有序区间列表
type RangeStrategy struct {
	Ranges []RangeInterval `json:"ranges"`
}

// Kind :
func (s *RangeStrategy) Kind() StrategyKind { return StrategyRange }

// BoundingBox 地理策略的边界盒，边界值本身包含在内
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// Contains :
func (b *BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// GeoStrategy 地理策略
type GeoStrategy struct {
	Box BoundingBox `json:"box"`
}

// Kind :
func (s *GeoStrategy) Kind() StrategyKind { return StrategyGeo }

// CompositeStrategy 组合策略，委托给多个子策略，冲突时按最低负载裁决
type CompositeStrategy struct {
	Strategies []RoutingConfig `json:"strategies"`
}

// Kind :
func (s *CompositeStrategy) Kind() StrategyKind { return StrategyComposite }

// RoutingConfig shard路由配置的序列化包装，以kind字段标记实际策略
type RoutingConfig struct {
	Strategy Strategy
}

type strategyEnvelope struct {
	Kind      StrategyKind    `json:"kind"`
	Hash      *HashStrategy   `json:"hash,omitempty"`
	Range     *RangeStrategy  `json:"range,omitempty"`
	Geo       *GeoStrategy    `json:"geo,omitempty"`
	Composite []RoutingConfig `json:"composite,omitempty"`
}

// MarshalJSON :
func (r RoutingConfig) MarshalJSON() ([]byte, error) {
	envelope := strategyEnvelope{}
	switch s := r.Strategy.(type) {
	case nil:
		// 未配置策略的shard序列化为空对象
		return json.Marshal(struct{}{})
	case *HashStrategy:
		envelope.Kind = StrategyHash
		envelope.Hash = s
	case *RangeStrategy:
		envelope.Kind = StrategyRange
		envelope.Range = s
	case *GeoStrategy:
		envelope.Kind = StrategyGeo
		envelope.Geo = s
	case *CompositeStrategy:
		envelope.Kind = StrategyComposite
		envelope.Composite = s.Strategies
	default:
		return nil, errors.Errorf("unknown strategy kind:%s", s.Kind())
	}
	return json.Marshal(envelope)
}

// UnmarshalJSON :
func (r *RoutingConfig) UnmarshalJSON(data []byte) error {
	envelope := strategyEnvelope{}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	switch envelope.Kind {
	case "":
		r.Strategy = nil
	case StrategyHash:
		if envelope.Hash == nil {
			envelope.Hash = &HashStrategy{}
		}
		r.Strategy = envelope.Hash
	case StrategyRange:
		if envelope.Range == nil {
			envelope.Range = &RangeStrategy{}
		}
		r.Strategy = envelope.Range
	case StrategyGeo:
		if envelope.Geo == nil {
			envelope.Geo = &GeoStrategy{}
		}
		r.Strategy = envelope.Geo
	case StrategyComposite:
		r.Strategy = &CompositeStrategy{Strategies: envelope.Composite}
	default:
		return errors.Errorf("unknown strategy kind:%s", envelope.Kind)
	}
	return nil
}

// Clone :
func (r RoutingConfig) Clone() RoutingConfig {
	switch s := r.Strategy.(type) {
	case nil:
		return RoutingConfig{}
	case *HashStrategy:
		cloned := *s
		return RoutingConfig{Strategy: &cloned}
	case *RangeStrategy:
		cloned := RangeStrategy{Ranges: append([]RangeInterval(nil), s.Ranges...)}
		return RoutingConfig{Strategy: &cloned}
	case *GeoStrategy:
		cloned := *s
		return RoutingConfig{Strategy: &cloned}
	case *CompositeStrategy:
		children := make([]RoutingConfig, 0, len(s.Strategies))
		for _, child := range s.Strategies {
			children = append(children, child.Clone())
		}
		return RoutingConfig{Strategy: &CompositeStrategy{Strategies: children}}
	default:
		return r
	}
}
