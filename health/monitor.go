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
	"context"
	"sync"
	"time"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/common"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/registry"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

var moduleName = "health"

// degraded恢复healthy需要的连续达标探测次数
const restoreStreak = 3

// 性能指标滑动平均的新样本权重
const perfSampleWeight = 0.2

// Monitor 周期性探活所有shard并回写健康状态
// 探测结果只落状态，不向上抛错误
type Monitor struct {
	ctx        context.Context
	cancelFunc context.CancelFunc

	registry *registry.Manager

	period           time.Duration
	timeout          time.Duration
	latencyThreshold time.Duration

	wg sync.WaitGroup

	// goodStreak 各shard连续达标探测计数，探测goroutine并发写
	streakLock sync.Mutex
	goodStreak map[string]int
}

// NewMonitor :
func NewMonitor(ctx context.Context, reg *registry.Manager) *Monitor {
	period := common.Config.GetDuration(common.ConfigKeyHealthPeriod)
	if period <= 0 {
		period = time.Minute
	}
	timeout := common.Config.GetDuration(common.ConfigKeyHealthTimeout)
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	threshold := common.Config.GetDuration(common.ConfigKeyHealthLatencyThreshold)
	if threshold <= 0 {
		threshold = 500 * time.Millisecond
	}
	childCtx, cancelFunc := context.WithCancel(ctx)
	return &Monitor{
		ctx:              childCtx,
		cancelFunc:       cancelFunc,
		registry:         reg,
		period:           period,
		timeout:          timeout,
		latencyThreshold: threshold,
		goodStreak:       make(map[string]int),
	}
}

// Start 启动探活循环
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.loop()
}

func (m *Monitor) loop() {
	defer m.wg.Done()
	flowLog := logging.NewEntry(map[string]interface{}{
		"module": moduleName,
	})
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()
	flowLog.Infof("health monitor started,period:%s", m.period)
	for {
		select {
		case <-m.ctx.Done():
			flowLog.Infof("health monitor stopped")
			return
		case <-ticker.C:
			m.CheckAll()
		}
	}
}

// CheckAll 并发探测全部shard，等所有探测落地后返回
// 单个shard探测慢或失败不影响其它shard
func (m *Monitor) CheckAll() {
	shards := m.registry.All()
	var tickWg sync.WaitGroup
	for _, s := range shards {
		tickWg.Add(1)
		go func(snapshot *shard.Shard) {
			defer tickWg.Done()
			m.probe(snapshot)
		}(s)
	}
	tickWg.Wait()
	m.pruneStreaks(shards)
}

// pruneStreaks 丢弃已摘除shard的计数，防止同名shard重新注册时继承旧streak
func (m *Monitor) pruneStreaks(shards []*shard.Shard) {
	current := make(map[string]struct{}, len(shards))
	for _, s := range shards {
		current[s.ID] = struct{}{}
	}
	m.streakLock.Lock()
	defer m.streakLock.Unlock()
	for id := range m.goodStreak {
		if _, ok := current[id]; !ok {
			delete(m.goodStreak, id)
		}
	}
}

// probe 单shard探活，探测期间不持有registry锁
func (m *Monitor) probe(snapshot *shard.Shard) {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module": moduleName,
		"shard":  snapshot.ID,
	})
	shardBackend, err := m.registry.GetBackend(snapshot.ID)
	if err != nil {
		// shard已在探测途中被摘除
		flowLog.Warnf("get backend failed,error:%s", err)
		return
	}
	probeCtx, cancelFunc := context.WithTimeout(m.ctx, m.timeout)
	defer cancelFunc()

	latency, err := shardBackend.Ping(probeCtx)
	health := shard.Health{
		LastCheck:   time.Now(),
		LastLatency: latency,
	}
	switch {
	case err != nil:
		// 一次探测异常立即unhealthy，issue覆盖式记录
		health.Status = shard.StatusUnhealthy
		health.Issues = []string{err.Error()}
		m.resetStreak(snapshot.ID)
		flowLog.Warnf("probe failed,mark unhealthy,error:%s", err)
	case latency > m.latencyThreshold:
		health.Status = shard.StatusDegraded
		m.resetStreak(snapshot.ID)
		flowLog.Warnf("probe latency->[%s] over threshold->[%s],mark degraded", latency, m.latencyThreshold)
	default:
		health.Status = m.statusAfterGoodProbe(snapshot)
	}
	if err := m.registry.UpdateHealth(snapshot.ID, health); err != nil {
		flowLog.Warnf("update health failed,error:%s", err)
		return
	}
	if err := m.registry.UpdatePerformance(snapshot.ID, m.foldPerformance(snapshot, latency, err)); err != nil {
		flowLog.Warnf("update performance failed,error:%s", err)
	}
	HealthCheckCountInc(snapshot.ID, string(health.Status))
	HealthCheckLatencySet(snapshot.ID, latency.Seconds())
}

// foldPerformance 把本次探测结果折算进shard性能指标
// 延迟与错误率按滑动平均收敛，吞吐与缓存命中率由查询路径维护
func (m *Monitor) foldPerformance(snapshot *shard.Shard, latency time.Duration, probeErr error) shard.Performance {
	perf := snapshot.Performance
	if probeErr == nil {
		if perf.AvgQueryLatency == 0 {
			perf.AvgQueryLatency = latency
		} else {
			perf.AvgQueryLatency += time.Duration(perfSampleWeight * float64(latency-perf.AvgQueryLatency))
		}
	}
	errSample := 0.0
	if probeErr != nil {
		errSample = 1.0
	}
	perf.ErrorRate += perfSampleWeight * (errSample - perf.ErrorRate)
	return perf
}

// statusAfterGoodProbe 达标探测后的状态裁决
// healthy保持不变，非healthy需要连续restoreStreak次达标才恢复
func (m *Monitor) statusAfterGoodProbe(snapshot *shard.Shard) shard.Status {
	m.streakLock.Lock()
	defer m.streakLock.Unlock()
	m.goodStreak[snapshot.ID]++
	if snapshot.Health.Status == shard.StatusHealthy || snapshot.Health.Status == "" {
		return shard.StatusHealthy
	}
	if m.goodStreak[snapshot.ID] >= restoreStreak {
		return shard.StatusHealthy
	}
	return shard.StatusDegraded
}

func (m *Monitor) resetStreak(id string) {
	m.streakLock.Lock()
	m.goodStreak[id] = 0
	m.streakLock.Unlock()
}

// Stop 停止循环并等在途探测结束
func (m *Monitor) Stop() {
	m.cancelFunc()
	m.wg.Wait()
}
