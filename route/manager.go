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
	"context"
	"strconv"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/common"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/errors"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/metastore"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/registry"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

var moduleName = "route"

// Router 查询路由器，按配置的分片策略把请求映射到目标shard
type Router struct {
	registry *registry.Manager
	store    metastore.Store
	kind     shard.StrategyKind
	// strict 为true时放弃primary fallback，直接返回路由错误
	strict bool
}

// NewRouter :
func NewRouter(reg *registry.Manager, store metastore.Store) *Router {
	kind := shard.StrategyKind(common.Config.GetString(common.ConfigKeyShardStrategy))
	if kind == "" {
		kind = shard.StrategyHash
	}
	return &Router{
		registry: reg,
		store:    store,
		kind:     kind,
		strict:   common.Config.GetBool(common.ConfigKeyShardStrictRouting),
	}
}

// Route 路由入口
func (r *Router) Route(ctx context.Context, req *Request) (*Result, error) {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module":  moduleName,
		"flow_id": common.NextFlowID(),
	})
	flowLog.Debugf("called")

	// 显式hint直接使用，只要求连接存活
	if req.ShardHint != "" {
		hintBackend, err := r.registry.GetBackend(req.ShardHint)
		if err != nil {
			flowLog.Errorf("shard hint->[%s] has no live connection", req.ShardHint)
			RouteFailedCountInc(string(r.kind))
			return nil, errors.NewQueryRoutingError(req.ShardHint, "shard hint->[%s] has no live connection", req.ShardHint)
		}
		RouteSuccessCountInc(string(r.kind))
		return &Result{ShardID: req.ShardHint, Backend: hintBackend}, nil
	}

	active := r.registry.ActiveShards()
	if len(active) == 0 {
		flowLog.Errorf("no active shards")
		RouteFailedCountInc(string(r.kind))
		return nil, errors.NewShardingError("", "no active shards")
	}

	// 搬迁过的记录先查override指针，策略计算会指回旧shard
	if req.RecordKey != "" {
		pointer, err := r.store.GetRecordShard(ctx, req.RecordKey)
		if err != nil {
			flowLog.Warnf("lookup record pointer failed,error:%s", err)
		} else if pointer != "" {
			if target := findShard(active, pointer); target != nil {
				flowLog.Debugf("record->[%s] moved to shard->[%s],override strategy", req.RecordKey, pointer)
				return r.finish(target, active, flowLog)
			}
			flowLog.Warnf("record pointer->[%s] targets unknown shard->[%s]", req.RecordKey, pointer)
		}
	}

	target, err := r.selectShard(req, active, flowLog)
	if err != nil {
		RouteFailedCountInc(string(r.kind))
		return nil, err
	}
	return r.finish(target, active, flowLog)
}

// selectShard 按策略选择目标shard，穷举匹配所有策略类型
func (r *Router) selectShard(req *Request, active []*shard.Shard, flowLog *logging.Entry) (*shard.Shard, error) {
	switch r.kind {
	case shard.StrategyHash:
		key, err := ExtractShardKey(req.Query, req.Params)
		if err != nil {
			return r.fallbackPrimary(active, "key_extraction_failed", flowLog)
		}
		return r.hashSelect(key.Value, active), nil
	case shard.StrategyRange:
		key, err := ExtractShardKey(req.Query, req.Params)
		if err != nil {
			return r.fallbackPrimary(active, "key_extraction_failed", flowLog)
		}
		target := r.rangeSelect(key, active)
		if target == nil {
			return r.fallbackPrimary(active, "range_not_matched", flowLog)
		}
		return target, nil
	case shard.StrategyGeo:
		lat, lng, err := ExtractGeoPoint(req.Query, req.Params)
		if err != nil {
			return r.fallbackPrimary(active, "geo_point_missing", flowLog)
		}
		target := r.geoSelect(lat, lng, active)
		if target == nil {
			return r.fallbackPrimary(active, "geo_not_matched", flowLog)
		}
		return target, nil
	case shard.StrategyComposite:
		return r.compositeSelect(req, active, flowLog)
	default:
		return nil, errors.NewShardingError("", "unsupported strategy:%s", r.kind)
	}
}

// hashSelect shard在活跃列表中的位置即hash桶位
func (r *Router) hashSelect(key string, active []*shard.Shard) *shard.Shard {
	index := int(HashKey(key)) % len(active)
	if index < 0 {
		index += len(active)
	}
	return active[index]
}

// rangeSelect 扫描各shard持有的区间，闭区间匹配
func (r *Router) rangeSelect(key *ShardKey, active []*shard.Shard) *shard.Shard {
	value, err := strconv.ParseInt(key.Value, 10, 64)
	if err != nil {
		return nil
	}
	for _, s := range active {
		strategy, ok := s.Routing.Strategy.(*shard.RangeStrategy)
		if !ok {
			continue
		}
		for i := range strategy.Ranges {
			if strategy.Ranges[i].Contains(key.Table, value) {
				return s
			}
		}
	}
	return nil
}

// geoSelect 第一个边界盒包含该点的shard即目标，边界值包含在内
func (r *Router) geoSelect(lat, lng float64, active []*shard.Shard) *shard.Shard {
	for _, s := range active {
		strategy, ok := s.Routing.Strategy.(*shard.GeoStrategy)
		if !ok {
			continue
		}
		if strategy.Box.Contains(lat, lng) {
			return s
		}
	}
	return nil
}

// compositeSelect 同时计算geo与hash候选，冲突时取当前负载更低的一方
func (r *Router) compositeSelect(req *Request, active []*shard.Shard, flowLog *logging.Entry) (*shard.Shard, error) {
	var hashCandidate, geoCandidate *shard.Shard
	if key, err := ExtractShardKey(req.Query, req.Params); err == nil {
		hashCandidate = r.hashSelect(key.Value, active)
	}
	if lat, lng, err := ExtractGeoPoint(req.Query, req.Params); err == nil {
		geoCandidate = r.geoSelect(lat, lng, active)
	}
	if hashCandidate == nil && geoCandidate == nil {
		return r.fallbackPrimary(active, "composite_no_candidate", flowLog)
	}
	if geoCandidate == nil {
		return hashCandidate, nil
	}
	if hashCandidate == nil || hashCandidate.ID == geoCandidate.ID {
		return geoCandidate, nil
	}
	// 两个候选不一致，按利用率裁决
	if geoCandidate.Capacity.Utilization() < hashCandidate.Capacity.Utilization() {
		flowLog.Debugf("composite tie-break,geo candidate->[%s] less loaded", geoCandidate.ID)
		return geoCandidate, nil
	}
	flowLog.Debugf("composite tie-break,hash candidate->[%s] less loaded", hashCandidate.ID)
	return hashCandidate, nil
}

// fallbackPrimary 显式的降级路径，永远可被测试断言
func (r *Router) fallbackPrimary(active []*shard.Shard, reason string, flowLog *logging.Entry) (*shard.Shard, error) {
	if r.strict {
		flowLog.Errorf("strict routing refused fallback,reason:%s", reason)
		return nil, errors.NewQueryRoutingError("", "strict routing refused fallback,reason:%s", reason)
	}
	RouteFallbackCountInc(reason)
	flowLog.Warnf("fallback to primary shard->[%s],reason:%s", active[0].ID, reason)
	return active[0], nil
}

// finish 返回前做健康检查，unhealthy的目标转移到任意healthy shard
func (r *Router) finish(target *shard.Shard, active []*shard.Shard, flowLog *logging.Entry) (*Result, error) {
	isCrossShard := false
	if target.Health.Status == shard.StatusUnhealthy {
		failover := r.pickHealthy(active, target.ID)
		if failover == nil {
			flowLog.Errorf("shard->[%s] unhealthy and no healthy shard available", target.ID)
			RouteFailedCountInc(string(r.kind))
			return nil, errors.NewQueryRoutingError(target.ID, "shard->[%s] unhealthy and no healthy shard available", target.ID)
		}
		flowLog.Warnf("shard->[%s] unhealthy,failover to shard->[%s]", target.ID, failover.ID)
		RouteFailoverCountInc(string(r.kind))
		target = failover
		isCrossShard = true
	}
	targetBackend, err := r.registry.GetBackend(target.ID)
	if err != nil {
		flowLog.Errorf("shard->[%s] has no live connection,error:%s", target.ID, err)
		RouteFailedCountInc(string(r.kind))
		return nil, errors.NewQueryRoutingError(target.ID, "shard->[%s] has no live connection", target.ID)
	}
	RouteSuccessCountInc(string(r.kind))
	flowLog.Debugf("done,target shard->[%s]", target.ID)
	return &Result{ShardID: target.ID, Backend: targetBackend, IsCrossShard: isCrossShard}, nil
}

func (r *Router) pickHealthy(active []*shard.Shard, exclude string) *shard.Shard {
	for _, s := range active {
		if s.ID == exclude {
			continue
		}
		if s.Health.Status == shard.StatusHealthy {
			return s
		}
	}
	return nil
}

func findShard(shards []*shard.Shard, id string) *shard.Shard {
	for _, s := range shards {
		if s.ID == id {
			return s
		}
	}
	return nil
}
