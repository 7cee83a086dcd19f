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
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
	"golang.org/x/time/rate"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/common"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/errors"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/metastore"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/registry"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

var moduleName = "rebalance"

// 操作生命周期事件主题
const (
	TopicStarted        = "rebalance:started"
	TopicCompleted      = "rebalance:completed"
	TopicFailed         = "rebalance:failed"
	TopicScaleSuggested = "rebalance:scale_suggested"
)

// Coordinator 负载再平衡协调器
// 周期扫描利用率并生成操作，同一source同时只允许一个操作在途
type Coordinator struct {
	ctx        context.Context
	cancelFunc context.CancelFunc

	registry *registry.Manager
	store    metastore.Store
	bus      EventBus.Bus

	period            time.Duration
	threshold         float64
	criticalThreshold float64
	moveFraction      float64
	batchSize         int
	subBatchSize      int
	rateLimit         float64
	limiter           *rate.Limiter
	tables            []string

	lock       sync.Mutex
	operations map[string]*Operation
	order      []string
	// busy 在途(pending/in_progress)操作的source集合
	busy  map[string]bool
	opSeq uint64

	wg sync.WaitGroup
}

// NewCoordinator :
func NewCoordinator(ctx context.Context, reg *registry.Manager, store metastore.Store, bus EventBus.Bus) *Coordinator {
	period := common.Config.GetDuration(common.ConfigKeyRebalancePeriod)
	if period <= 0 {
		period = 5 * time.Minute
	}
	threshold := common.Config.GetFloat64(common.ConfigKeyRebalanceThreshold)
	if threshold <= 0 {
		threshold = 0.8
	}
	critical := common.Config.GetFloat64(common.ConfigKeyRebalanceCriticalThreshold)
	if critical <= 0 {
		critical = 0.9
	}
	fraction := common.Config.GetFloat64(common.ConfigKeyRebalanceMoveFraction)
	if fraction <= 0 {
		fraction = 0.3
	}
	batchSize := common.Config.GetInt(common.ConfigKeyRebalanceBatchSize)
	if batchSize <= 0 {
		batchSize = 1000
	}
	subBatchSize := common.Config.GetInt(common.ConfigKeyRebalanceSubBatchSize)
	if subBatchSize <= 0 {
		subBatchSize = 100
	}
	rateLimit := common.Config.GetFloat64(common.ConfigKeyRebalanceRateLimit)
	if rateLimit <= 0 {
		rateLimit = 1000
	}
	tables := common.Config.GetStringSlice(common.ConfigKeyRebalanceTables)
	if len(tables) == 0 {
		tables = []string{"records"}
	}
	childCtx, cancelFunc := context.WithCancel(ctx)
	return &Coordinator{
		ctx:               childCtx,
		cancelFunc:        cancelFunc,
		registry:          reg,
		store:             store,
		bus:               bus,
		period:            period,
		threshold:         threshold,
		criticalThreshold: critical,
		moveFraction:      fraction,
		batchSize:         batchSize,
		subBatchSize:      subBatchSize,
		rateLimit:         rateLimit,
		limiter:           rate.NewLimiter(rate.Limit(rateLimit), subBatchSize),
		tables:            tables,
		operations:        make(map[string]*Operation),
		busy:              make(map[string]bool),
	}
}

// Start 启动触发循环
func (c *Coordinator) Start() {
	c.wg.Add(1)
	go c.loop()
}

func (c *Coordinator) loop() {
	defer c.wg.Done()
	flowLog := logging.NewEntry(map[string]interface{}{
		"module": moduleName,
	})
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	flowLog.Infof("rebalance coordinator started,period:%s", c.period)
	for {
		select {
		case <-c.ctx.Done():
			flowLog.Infof("rebalance coordinator stopped")
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick 单次触发，扫描+顺序执行新产生的操作
// 执行失败只落操作状态，循环本身不退出
func (c *Coordinator) Tick() {
	for _, op := range c.Schedule() {
		if err := c.ExecuteOperation(op.ID); err != nil {
			logging.StdLogger.Errorf("execute %s failed,error:%s", op, err)
		}
	}
	c.checkAutoScaling()
}

// Schedule 扫描利用率生成pending操作
// 超过threshold即候选，超过criticalThreshold提升为critical优先级
func (c *Coordinator) Schedule() []*Operation {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module": moduleName,
	})
	created := make([]*Operation, 0)
	for _, s := range c.registry.ActiveShards() {
		utilization := s.Capacity.Utilization()
		if utilization <= c.threshold {
			continue
		}
		priority := PriorityHigh
		if utilization > c.criticalThreshold {
			priority = PriorityCritical
		}
		op := &Operation{
			Kind:        KindMoveData,
			SourceShard: s.ID,
			Priority:    priority,
			SizeBytes:   int64(float64(s.Capacity.CurrentStorageBytes) * c.moveFraction),
		}
		// 按限速折算计划搬迁量的预计耗时
		op.EstimatedDuration = time.Duration(float64(op.SizeBytes) / c.rateLimit * float64(time.Second))
		if err := c.submit(op); err != nil {
			// 该shard已有在途操作，本轮忽略
			flowLog.Debugf("skip shard->[%s],error:%s", s.ID, err)
			continue
		}
		flowLog.Infof("scheduled %s,utilization:%.2f", op, utilization)
		created = append(created, op.Clone())
	}
	return created
}

// SubmitSplit 提交拆分操作，newShard接收上半区间
func (c *Coordinator) SubmitSplit(source string, newShard *shard.Shard) (*Operation, error) {
	if newShard == nil {
		return nil, ErrMissingNewShard
	}
	op := &Operation{
		Kind:        KindSplitShard,
		SourceShard: source,
		Priority:    PriorityHigh,
		NewShard:    newShard.Clone(),
	}
	if err := c.submit(op); err != nil {
		return nil, err
	}
	return op.Clone(), nil
}

// SubmitMerge 提交合并操作，merge列表中的shard并入source后停用
// 合并属于缩容整理，低优先级
func (c *Coordinator) SubmitMerge(source string, mergeShards []string) (*Operation, error) {
	if len(mergeShards) == 0 {
		return nil, ErrMissingMergeShards
	}
	op := &Operation{
		Kind:        KindMergeShards,
		SourceShard: source,
		Priority:    PriorityLow,
		MergeShards: append([]string(nil), mergeShards...),
	}
	if err := c.submit(op); err != nil {
		return nil, err
	}
	return op.Clone(), nil
}

// SubmitAdd 提交扩容操作
func (c *Coordinator) SubmitAdd(newShard *shard.Shard) (*Operation, error) {
	if newShard == nil {
		return nil, ErrMissingNewShard
	}
	op := &Operation{
		Kind:        KindAddShard,
		SourceShard: newShard.ID,
		Priority:    PriorityMedium,
		NewShard:    newShard.Clone(),
	}
	if err := c.submit(op); err != nil {
		return nil, err
	}
	return op.Clone(), nil
}

// submit 入表并占用source的在途名额
func (c *Coordinator) submit(op *Operation) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.busy[op.SourceShard] {
		return errors.Wrapf(ErrSourceBusy, "shard->[%s]", op.SourceShard)
	}
	op.ID = fmt.Sprintf("rebalance-%d", atomic.AddUint64(&c.opSeq, 1))
	op.Status = StatusPending
	op.CreatedAt = time.Now()
	c.operations[op.ID] = op
	c.order = append(c.order, op.ID)
	c.busy[op.SourceShard] = true
	RebalanceOpCountInc(string(op.Kind), string(StatusPending))
	return nil
}

// ExecuteOperation 执行一个pending操作直到终态
func (c *Coordinator) ExecuteOperation(opID string) error {
	c.lock.Lock()
	op, ok := c.operations[opID]
	if !ok {
		c.lock.Unlock()
		return errors.Wrapf(ErrOperationNotFound, "operation->[%s]", opID)
	}
	if op.Status != StatusPending {
		c.lock.Unlock()
		return errors.Wrapf(ErrOperationNotReady, "operation->[%s] status->[%s]", opID, op.Status)
	}
	op.Status = StatusInProgress
	op.StartedAt = time.Now()
	snapshot := op.Clone()
	c.lock.Unlock()

	RebalanceOpCountInc(string(op.Kind), string(StatusInProgress))
	c.bus.Publish(TopicStarted, snapshot)

	var err error
	switch op.Kind {
	case KindMoveData:
		err = c.executeMoveData(op)
	case KindSplitShard:
		err = c.executeSplitShard(op)
	case KindMergeShards:
		err = c.executeMergeShards(op)
	case KindAddShard:
		err = c.executeAddShard(op)
	default:
		err = errors.Errorf("unknown operation kind->[%s]", op.Kind)
	}

	c.lock.Lock()
	op.FinishedAt = time.Now()
	if err != nil {
		op.Status = StatusFailed
		op.Error = err.Error()
	} else {
		op.Status = StatusCompleted
	}
	delete(c.busy, op.SourceShard)
	snapshot = op.Clone()
	c.lock.Unlock()

	RebalanceOpCountInc(string(op.Kind), string(snapshot.Status))
	if err != nil {
		c.bus.Publish(TopicFailed, snapshot)
		return errors.NewRebalanceError(op.SourceShard, err, "operation->[%s] failed", op.ID)
	}
	c.bus.Publish(TopicCompleted, snapshot)
	return nil
}

// executeMoveData 把source的一批数据搬到负载最低的shard
// 中途失败直接终止，已搬数据保留，指针层保证重试幂等
func (c *Coordinator) executeMoveData(op *Operation) error {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module":    moduleName,
		"operation": op.ID,
	})
	flowLog.Debugf("called")
	target := c.pickTarget(op.SourceShard)
	if target == nil {
		return ErrNoTargetShard
	}
	c.lock.Lock()
	op.TargetShard = target.ID
	c.lock.Unlock()

	sourceBackend, err := c.registry.GetBackend(op.SourceShard)
	if err != nil {
		return errors.Wrapf(err, "source shard->[%s]", op.SourceShard)
	}
	targetBackend, err := c.registry.GetBackend(target.ID)
	if err != nil {
		return errors.Wrapf(err, "target shard->[%s]", target.ID)
	}

	var movedRows int64
	for _, table := range c.tables {
		rows, err := sourceBackend.ReadBatch(c.ctx, table, 0, c.batchSize)
		if err != nil {
			return errors.Wrapf(err, "read batch from shard->[%s] table->[%s]", op.SourceShard, table)
		}
		for start := 0; start < len(rows); start += c.subBatchSize {
			end := start + c.subBatchSize
			if end > len(rows) {
				end = len(rows)
			}
			subBatch := rows[start:end]
			if err := c.limiter.WaitN(c.ctx, len(subBatch)); err != nil {
				return errors.Wrap(err, "rate limit wait")
			}
			if err := targetBackend.WriteBatch(c.ctx, table, subBatch); err != nil {
				return errors.Wrapf(err, "write batch to shard->[%s] table->[%s]", target.ID, table)
			}
			// 指针先落地，再删source，query按指针永远能找到数据
			migratedIDs := make([]interface{}, 0, len(subBatch))
			for _, row := range subBatch {
				id, ok := row["id"]
				if !ok {
					continue
				}
				recordID := fmt.Sprintf("%v", id)
				if err := c.store.PutRecordShard(c.ctx, recordID, target.ID); err != nil {
					return errors.Wrapf(err, "put record pointer->[%s]", recordID)
				}
				migratedIDs = append(migratedIDs, id)
			}
			if len(migratedIDs) > 0 {
				if err := sourceBackend.DeleteBatch(c.ctx, table, migratedIDs); err != nil {
					return errors.Wrapf(err, "delete batch from shard->[%s] table->[%s]", op.SourceShard, table)
				}
			}
			movedRows += int64(len(subBatch))
		}
	}

	// 容量记账按计划搬迁量调整，精确值由下一轮监控校准
	_ = c.registry.UpdateCapacity(op.SourceShard, func(capacity *shard.Capacity) {
		capacity.CurrentStorageBytes -= op.SizeBytes
		if capacity.CurrentStorageBytes < 0 {
			capacity.CurrentStorageBytes = 0
		}
	})
	_ = c.registry.UpdateCapacity(target.ID, func(capacity *shard.Capacity) {
		capacity.CurrentStorageBytes += op.SizeBytes
	})
	RebalanceMovedRowsAdd(op.SourceShard, float64(movedRows))
	flowLog.Infof("done,moved %d rows to shard->[%s]", movedRows, target.ID)
	return nil
}

// executeSplitShard 注册新shard并把source的区间对半拆分
func (c *Coordinator) executeSplitShard(op *Operation) error {
	if op.NewShard == nil {
		return ErrMissingNewShard
	}
	source, ok := c.registry.Get(op.SourceShard)
	if !ok {
		return errors.Errorf("source shard->[%s] not found", op.SourceShard)
	}
	if err := c.registry.Register(c.ctx, op.NewShard); err != nil {
		return errors.Wrapf(err, "register new shard->[%s]", op.NewShard.ID)
	}
	c.lock.Lock()
	op.TargetShard = op.NewShard.ID
	c.lock.Unlock()

	strategy, ok := source.Routing.Strategy.(*shard.RangeStrategy)
	if !ok {
		// hash/geo策略下成员变化本身就完成了再分布
		return nil
	}
	lower := make([]shard.RangeInterval, 0, len(strategy.Ranges))
	upper := make([]shard.RangeInterval, 0, len(strategy.Ranges))
	for _, interval := range strategy.Ranges {
		mid := interval.Min + (interval.Max-interval.Min)/2
		lower = append(lower, shard.RangeInterval{Table: interval.Table, Min: interval.Min, Max: mid})
		upper = append(upper, shard.RangeInterval{Table: interval.Table, Min: mid + 1, Max: interval.Max})
	}
	if err := c.registry.UpdateRouting(op.SourceShard, shard.RoutingConfig{
		Strategy: &shard.RangeStrategy{Ranges: lower},
	}); err != nil {
		return errors.Wrapf(err, "update routing for shard->[%s]", op.SourceShard)
	}
	if err := c.registry.UpdateRouting(op.NewShard.ID, shard.RoutingConfig{
		Strategy: &shard.RangeStrategy{Ranges: upper},
	}); err != nil {
		return errors.Wrapf(err, "update routing for shard->[%s]", op.NewShard.ID)
	}
	return nil
}

// executeMergeShards 把列表中shard的区间并入source并停用它们
func (c *Coordinator) executeMergeShards(op *Operation) error {
	if len(op.MergeShards) == 0 {
		return ErrMissingMergeShards
	}
	source, ok := c.registry.Get(op.SourceShard)
	if !ok {
		return errors.Errorf("source shard->[%s] not found", op.SourceShard)
	}
	merged := make([]shard.RangeInterval, 0)
	if strategy, ok := source.Routing.Strategy.(*shard.RangeStrategy); ok {
		merged = append(merged, strategy.Ranges...)
	}
	for _, id := range op.MergeShards {
		record, ok := c.registry.Get(id)
		if !ok {
			return errors.Errorf("merge shard->[%s] not found", id)
		}
		if strategy, ok := record.Routing.Strategy.(*shard.RangeStrategy); ok {
			merged = append(merged, strategy.Ranges...)
		}
		if err := c.registry.SetActive(id, false); err != nil {
			return errors.Wrapf(err, "deactivate shard->[%s]", id)
		}
	}
	if len(merged) > 0 {
		if err := c.registry.UpdateRouting(op.SourceShard, shard.RoutingConfig{
			Strategy: &shard.RangeStrategy{Ranges: merged},
		}); err != nil {
			return errors.Wrapf(err, "update routing for shard->[%s]", op.SourceShard)
		}
	}
	return nil
}

// executeAddShard 纯扩容，hash位次随活跃集合变化自然再分布
func (c *Coordinator) executeAddShard(op *Operation) error {
	if op.NewShard == nil {
		return ErrMissingNewShard
	}
	if err := c.registry.Register(c.ctx, op.NewShard); err != nil {
		return errors.Wrapf(err, "register new shard->[%s]", op.NewShard.ID)
	}
	return nil
}

// pickTarget 选当前利用率最低的活跃shard作为搬迁目标
func (c *Coordinator) pickTarget(exclude string) *shard.Shard {
	var target *shard.Shard
	for _, s := range c.registry.ActiveShards() {
		if s.ID == exclude {
			continue
		}
		if target == nil || s.Capacity.Utilization() < target.Capacity.Utilization() {
			target = s
		}
	}
	return target
}

// checkAutoScaling 集群整体水位检查
// 新shard的连接信息必须由运维提供，这里只发事件提示，不自动建shard
func (c *Coordinator) checkAutoScaling() {
	if !common.Config.GetBool(common.ConfigKeyAutoScalingEnabled) {
		return
	}
	active := c.registry.ActiveShards()
	if len(active) == 0 {
		return
	}
	maxShards := common.Config.GetInt(common.ConfigKeyAutoScalingMaxShards)
	if maxShards > 0 && len(active) >= maxShards {
		return
	}
	var total float64
	for _, s := range active {
		total += s.Capacity.Utilization()
	}
	average := total / float64(len(active))
	if average > c.criticalThreshold {
		logging.StdLogger.Warnf("cluster average utilization %.2f over %.2f,scale up suggested", average, c.criticalThreshold)
		c.bus.Publish(TopicScaleSuggested, average)
	}
}

// Operations 全部操作快照，按创建顺序
func (c *Coordinator) Operations() []*Operation {
	c.lock.Lock()
	defer c.lock.Unlock()
	result := make([]*Operation, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, c.operations[id].Clone())
	}
	return result
}

// GetOperation :
func (c *Coordinator) GetOperation(opID string) (*Operation, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	op, ok := c.operations[opID]
	if !ok {
		return nil, false
	}
	return op.Clone(), true
}

// Stop 停止触发循环
func (c *Coordinator) Stop() {
	c.cancelFunc()
	c.wg.Wait()
}
