// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Package proxy 引擎门面，应用进程内直接使用
// 组装registry/router/monitor/coordinator/executor并持有全部后台循环
package proxy

import (
	"context"
	"sync"

	"github.com/asaskevich/EventBus"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/crossshard"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/errors"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/health"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/metastore"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/rebalance"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/registry"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/route"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

var moduleName = "proxy"

// ShardMetrics 单shard的观测快照
type ShardMetrics struct {
	ShardID     string            `json:"shard_id"`
	Region      string            `json:"region"`
	Active      bool              `json:"active"`
	Utilization float64           `json:"utilization"`
	Health      shard.Health      `json:"health"`
	Performance shard.Performance `json:"performance"`
}

// Service 分片引擎门面
type Service struct {
	ctx        context.Context
	cancelFunc context.CancelFunc

	store       metastore.Store
	registry    *registry.Manager
	router      *route.Router
	monitor     *health.Monitor
	coordinator *rebalance.Coordinator
	executor    *crossshard.Executor
	bus         EventBus.Bus

	cleanupOnce sync.Once
}

// NewService 按当前配置组装全部组件，不启动后台循环
func NewService(outCtx context.Context) (*Service, error) {
	ctx, cancelFunc := context.WithCancel(outCtx)
	store, err := metastore.NewRedisStore(ctx)
	if err != nil {
		cancelFunc()
		return nil, errors.Wrap(err, "init meta store failed")
	}
	reg := registry.NewManager(ctx, store)
	router := route.NewRouter(reg, store)
	bus := EventBus.New()
	service := &Service{
		ctx:         ctx,
		cancelFunc:  cancelFunc,
		store:       store,
		registry:    reg,
		router:      router,
		monitor:     health.NewMonitor(ctx, reg),
		coordinator: rebalance.NewCoordinator(ctx, reg, store, bus),
		executor:    crossshard.NewExecutor(reg, router),
		bus:         bus,
	}
	return service, nil
}

// Init 注册初始shard集合并启动后台循环
// rebalanceExisting为true时立即跑一轮再平衡触发
func (s *Service) Init(shardConfigs []*shard.Shard, rebalanceExisting bool) error {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module": moduleName,
	})
	flowLog.Debugf("called")
	for _, config := range shardConfigs {
		if err := s.registry.Register(s.ctx, config); err != nil {
			return errors.Wrapf(err, "register shard->[%s]", config.ID)
		}
	}
	s.monitor.Start()
	s.coordinator.Start()
	if rebalanceExisting {
		s.coordinator.Tick()
	}
	flowLog.Infof("service initialized with %d shards", len(shardConfigs))
	return nil
}

// RegisterShard 运行期增量注册
func (s *Service) RegisterShard(config *shard.Shard) error {
	return s.registry.Register(s.ctx, config)
}

// DeregisterShard 显式摘除
func (s *Service) DeregisterShard(id string) error {
	return s.registry.Deregister(id)
}

// Route 单shard路由
func (s *Service) Route(ctx context.Context, req *route.Request) (*route.Result, error) {
	return s.router.Route(ctx, req)
}

// ExecuteAcrossShards 跨shard扇出执行
func (s *Service) ExecuteAcrossShards(ctx context.Context, query string, params []interface{}, consistency route.Consistency) (*crossshard.MergedResult, error) {
	return s.executor.ExecuteAcrossShards(ctx, query, params, consistency)
}

// ScheduleRebalancing 手动触发一轮再平衡
// 没有shard超阈值时天然无操作，可重复调用
func (s *Service) ScheduleRebalancing() []*rebalance.Operation {
	return s.coordinator.Schedule()
}

// RebalanceOperations 全部操作记录
func (s *Service) RebalanceOperations() []*rebalance.Operation {
	return s.coordinator.Operations()
}

// Bus rebalance生命周期事件订阅入口
func (s *Service) Bus() EventBus.Bus {
	return s.bus
}

// GetShardMetrics 拉取shard观测快照，id为空取全部
func (s *Service) GetShardMetrics(shardID string) []*ShardMetrics {
	var shards []*shard.Shard
	if shardID != "" {
		record, ok := s.registry.Get(shardID)
		if !ok {
			return nil
		}
		shards = []*shard.Shard{record}
	} else {
		shards = s.registry.All()
	}
	result := make([]*ShardMetrics, 0, len(shards))
	for _, record := range shards {
		result = append(result, &ShardMetrics{
			ShardID:     record.ID,
			Region:      record.Region,
			Active:      record.Active,
			Utilization: record.Capacity.Utilization(),
			Health:      record.Health,
			Performance: record.Performance,
		})
	}
	return result
}

// CheckHealth 立即探活一轮，探测结束才返回
func (s *Service) CheckHealth() {
	s.monitor.CheckAll()
}

// Cleanup 停止后台循环并关闭全部shard连接，重复调用无副作用
func (s *Service) Cleanup() {
	s.cleanupOnce.Do(func() {
		flowLog := logging.NewEntry(map[string]interface{}{
			"module": moduleName,
		})
		flowLog.Infof("cleanup called")
		s.monitor.Stop()
		s.coordinator.Stop()
		if err := s.registry.Stop(); err != nil {
			flowLog.Warnf("stop registry failed,error:%s", err)
		}
		if err := s.store.Close(); err != nil {
			flowLog.Warnf("close meta store failed,error:%s", err)
		}
		s.cancelFunc()
		flowLog.Infof("cleanup done")
	})
}
