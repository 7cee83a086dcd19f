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
	"context"
	"strconv"
	"sync"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/backend"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/common"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/errors"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/registry"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/route"
)

var moduleName = "crossshard"

// ShardFailure 单shard失败记录，合并结果的partial-failure元数据
type ShardFailure struct {
	ShardID string `json:"shard_id"`
	Error   string `json:"error"`
}

// MergedResult 跨shard合并结果
// 失败的shard只记录在Failed里，不影响其它shard的数据
type MergedResult struct {
	Rows      []backend.Row  `json:"rows,omitempty"`
	Count     int64          `json:"count"`
	Succeeded []string       `json:"succeeded"`
	Failed    []ShardFailure `json:"failed,omitempty"`
}

// Executor 跨shard扇出执行器
type Executor struct {
	registry *registry.Manager
	router   *route.Router
}

// NewExecutor :
func NewExecutor(reg *registry.Manager, router *route.Router) *Executor {
	return &Executor{registry: reg, router: router}
}

type shardOutcome struct {
	shardID string
	result  *backend.Result
	err     error
}

// ExecuteAcrossShards 对所有可用shard扇出执行并按查询动词合并
// 等全部shard返回后才合并，单shard失败不取消其它shard
func (e *Executor) ExecuteAcrossShards(ctx context.Context, query string, params []interface{}, consistency route.Consistency) (*MergedResult, error) {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module":  moduleName,
		"flow_id": common.NextFlowID(),
	})
	flowLog.Debugf("called")

	shards := e.registry.HealthyShards()
	if len(shards) == 0 {
		flowLog.Errorf("no available shards")
		CrossShardRequestCountInc("failed")
		return nil, errors.NewShardingError("", "no active shards")
	}

	outcomes := make([]shardOutcome, len(shards))
	var wg sync.WaitGroup
	for i, s := range shards {
		wg.Add(1)
		go func(index int, shardID string) {
			defer wg.Done()
			outcomes[index] = e.executeOne(ctx, shardID, query, params, consistency)
		}(i, s.ID)
	}
	wg.Wait()

	verb := route.ExtractVerb(query)
	merged := e.merge(verb, outcomes)
	for _, failure := range merged.Failed {
		flowLog.Warnf("shard->[%s] failed,error:%s", failure.ShardID, failure.Error)
	}
	if len(merged.Succeeded) == 0 {
		flowLog.Errorf("all %d shards failed", len(shards))
		CrossShardRequestCountInc("failed")
		return nil, errors.NewQueryRoutingError("", "all %d shards failed", len(shards))
	}
	if len(merged.Failed) > 0 {
		CrossShardRequestCountInc("partial")
	} else {
		CrossShardRequestCountInc("success")
	}
	CrossShardFanoutObserve(float64(len(shards)))
	flowLog.Debugf("done,%d succeeded %d failed", len(merged.Succeeded), len(merged.Failed))
	return merged, nil
}

// executeOne 单shard路由+执行，hint定向到该shard
func (e *Executor) executeOne(ctx context.Context, shardID, query string, params []interface{}, consistency route.Consistency) shardOutcome {
	routed, err := e.router.Route(ctx, &route.Request{
		Query:       query,
		Params:      params,
		ShardHint:   shardID,
		Consistency: consistency,
	})
	if err != nil {
		return shardOutcome{shardID: shardID, err: err}
	}
	result, err := routed.Backend.Query(ctx, query, params)
	if err != nil {
		return shardOutcome{shardID: shardID, err: err}
	}
	return shardOutcome{shardID: shardID, result: result}
}

// merge 按动词合并
// select拼接各shard行集，aggregate求和标量，其它取第一个成功结果
func (e *Executor) merge(verb route.Verb, outcomes []shardOutcome) *MergedResult {
	merged := &MergedResult{
		Rows:      make([]backend.Row, 0),
		Succeeded: make([]string, 0, len(outcomes)),
	}
	for _, outcome := range outcomes {
		if outcome.err != nil {
			merged.Failed = append(merged.Failed, ShardFailure{
				ShardID: outcome.shardID,
				Error:   outcome.err.Error(),
			})
			continue
		}
		merged.Succeeded = append(merged.Succeeded, outcome.shardID)
		switch verb {
		case route.VerbSelect:
			merged.Rows = append(merged.Rows, outcome.result.Rows...)
			merged.Count = int64(len(merged.Rows))
		case route.VerbAggregate:
			merged.Count += scalarCount(outcome.result)
		default:
			// 首个成功shard的结果即最终结果
			if len(merged.Succeeded) == 1 {
				merged.Rows = append(merged.Rows, outcome.result.Rows...)
				merged.Count = outcome.result.Count
			}
		}
	}
	return merged
}

// scalarCount 取聚合查询的标量计数
// 标量在首行的唯一一列里，驱动可能给出数字或字符串
func scalarCount(result *backend.Result) int64 {
	if len(result.Rows) == 0 {
		return result.Count
	}
	for _, value := range result.Rows[0] {
		switch v := value.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		case string:
			if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
				return parsed
			}
		}
	}
	return result.Count
}
