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
	"context"
	"sync"
	"time"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/backend"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/common"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/errors"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/metastore"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

var moduleName = "registry"

// entry 单个shard的注册项，锁粒度到shard级
// shard A的健康写入不会阻塞shard B的路由读取
type entry struct {
	lock    sync.RWMutex
	record  *shard.Shard
	backend backend.Backend
}

func (e *entry) snapshot() *shard.Shard {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.record.Clone()
}

// Manager shard注册表，内存态为数据源头，异步镜像到元数据存储
type Manager struct {
	ctx        context.Context
	cancelFunc context.CancelFunc
	// lock 只保护shardMap和order本身，shard内容由entry锁保护
	lock     sync.RWMutex
	shardMap map[string]*entry
	order    []string
	store    metastore.Store
	wg       sync.WaitGroup
}

// NewManager :
func NewManager(outCtx context.Context, store metastore.Store) *Manager {
	m := new(Manager)
	m.ctx, m.cancelFunc = context.WithCancel(outCtx)
	m.shardMap = make(map[string]*entry)
	m.order = make([]string, 0)
	m.store = store
	return m
}

// Register 校验、试探连接、入表并镜像
// 同id不同连接描述视为冲突，同id同连接描述视为配置更新
func (m *Manager) Register(ctx context.Context, record *shard.Shard) error {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module": moduleName,
		"shard":  record.ID,
	})
	flowLog.Debugf("called")
	if err := validateShard(record); err != nil {
		flowLog.Errorf("validate shard failed,error:%s", err)
		return err
	}

	m.lock.Lock()
	if existing, ok := m.shardMap[record.ID]; ok {
		existing.lock.RLock()
		same := existing.record.Conn.Compare(&record.Conn)
		existing.lock.RUnlock()
		if !same {
			m.lock.Unlock()
			flowLog.Errorf("shard already registered with different connection")
			return ErrShardConflict
		}
		// 同连接的重复注册只更新路由和容量配置
		existing.lock.Lock()
		existing.record.Name = record.Name
		existing.record.Region = record.Region
		existing.record.Active = record.Active
		existing.record.Routing = record.Routing.Clone()
		existing.record.Capacity = record.Capacity
		snapshot := existing.record.Clone()
		existing.lock.Unlock()
		m.lock.Unlock()
		m.mirrorShard(snapshot)
		flowLog.Debugf("done,config updated")
		return nil
	}
	m.lock.Unlock()

	newBackend, err := m.makeBackend(ctx, record)
	if err != nil {
		flowLog.Errorf("make backend failed,error:%s", err)
		return err
	}
	// 注册前必须试探一次连接
	if _, err := newBackend.Ping(ctx); err != nil {
		newBackend.Close()
		flowLog.Errorf("probe shard failed,error:%s", err)
		return errors.Wrapf(ErrProbeFailed, "shard->[%s]", record.ID)
	}

	stored := record.Clone()
	if stored.Health.Status == "" {
		stored.Health.Status = shard.StatusHealthy
		stored.Health.LastCheck = time.Now()
	}

	m.lock.Lock()
	if _, ok := m.shardMap[record.ID]; ok {
		// 并发注册同一id，后到者让位
		m.lock.Unlock()
		newBackend.Close()
		return ErrShardConflict
	}
	m.shardMap[record.ID] = &entry{record: stored, backend: newBackend}
	m.order = append(m.order, record.ID)
	m.lock.Unlock()

	m.mirrorShard(stored.Clone())
	ShardCountSet(float64(m.count()))
	flowLog.Debugf("done")
	return nil
}

// Deregister 显式摘除shard，rebalance不走这条路径
func (m *Manager) Deregister(id string) error {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module": moduleName,
		"shard":  id,
	})
	flowLog.Debugf("called")
	m.lock.Lock()
	e, ok := m.shardMap[id]
	if !ok {
		m.lock.Unlock()
		return ErrShardNotFound
	}
	delete(m.shardMap, id)
	for i, name := range m.order {
		if name == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.lock.Unlock()

	if err := e.backend.Close(); err != nil {
		flowLog.Errorf("close backend failed,error:%s", err)
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.store.DeleteShard(context.Background(), id); err != nil {
			flowLog.Errorf("delete shard from metastore failed,error:%s", err)
		}
	}()
	ShardCountSet(float64(m.count()))
	flowLog.Debugf("done")
	return nil
}

// Get 查找shard快照，未知id返回not found而不是错误
func (m *Manager) Get(id string) (*shard.Shard, bool) {
	m.lock.RLock()
	e, ok := m.shardMap[id]
	m.lock.RUnlock()
	if !ok {
		return nil, false
	}
	return e.snapshot(), true
}

// All 全部shard快照，保持注册顺序
func (m *Manager) All() []*shard.Shard {
	m.lock.RLock()
	order := append([]string(nil), m.order...)
	entries := make([]*entry, 0, len(order))
	for _, id := range order {
		entries = append(entries, m.shardMap[id])
	}
	m.lock.RUnlock()
	result := make([]*shard.Shard, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.snapshot())
	}
	return result
}

// ActiveShards active的shard快照，稳定按注册顺序返回
// 顺序决定hash路由的桶位，不允许乱序
func (m *Manager) ActiveShards() []*shard.Shard {
	all := m.All()
	result := make([]*shard.Shard, 0, len(all))
	for _, s := range all {
		if s.Active {
			result = append(result, s)
		}
	}
	return result
}

// HealthyShards active且healthy的shard快照，跨shard执行与故障转移候选使用
func (m *Manager) HealthyShards() []*shard.Shard {
	all := m.All()
	result := make([]*shard.Shard, 0, len(all))
	for _, s := range all {
		if s.Active && s.Health.Status == shard.StatusHealthy {
			result = append(result, s)
		}
	}
	return result
}

// GetBackend 获取shard的连接句柄
func (m *Manager) GetBackend(id string) (backend.Backend, error) {
	m.lock.RLock()
	e, ok := m.shardMap[id]
	m.lock.RUnlock()
	if !ok {
		return nil, ErrBackendNotExist
	}
	return e.backend, nil
}

// UpdateHealth 健康检查写入口，镜像使用短TTL的health key
func (m *Manager) UpdateHealth(id string, health shard.Health) error {
	m.lock.RLock()
	e, ok := m.shardMap[id]
	m.lock.RUnlock()
	if !ok {
		return ErrShardNotFound
	}
	e.lock.Lock()
	e.record.Health = health
	snapshot := e.record.Clone()
	e.lock.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		flowLog := logging.NewEntry(map[string]interface{}{
			"module": moduleName,
			"shard":  id,
		})
		if err := m.store.PutHealth(context.Background(), id, &snapshot.Health); err != nil {
			// 镜像失败只记录，不阻塞内存态更新
			flowLog.Errorf("mirror health to metastore failed,error:%s", err)
		}
	}()
	return nil
}

// UpdatePerformance :
func (m *Manager) UpdatePerformance(id string, performance shard.Performance) error {
	m.lock.RLock()
	e, ok := m.shardMap[id]
	m.lock.RUnlock()
	if !ok {
		return ErrShardNotFound
	}
	e.lock.Lock()
	e.record.Performance = performance
	snapshot := e.record.Clone()
	e.lock.Unlock()
	m.mirrorShard(snapshot)
	return nil
}

// UpdateCapacity 单写者修改容量，utilization由容量实时推导
func (m *Manager) UpdateCapacity(id string, mutate func(*shard.Capacity)) error {
	m.lock.RLock()
	e, ok := m.shardMap[id]
	m.lock.RUnlock()
	if !ok {
		return ErrShardNotFound
	}
	e.lock.Lock()
	mutate(&e.record.Capacity)
	snapshot := e.record.Clone()
	e.lock.Unlock()
	ShardUtilizationSet(id, snapshot.Capacity.Utilization())
	m.mirrorShard(snapshot)
	return nil
}

// UpdateRouting rebalance重新分配区间/hash桶位时调用
func (m *Manager) UpdateRouting(id string, routing shard.RoutingConfig) error {
	m.lock.RLock()
	e, ok := m.shardMap[id]
	m.lock.RUnlock()
	if !ok {
		return ErrShardNotFound
	}
	e.lock.Lock()
	e.record.Routing = routing.Clone()
	snapshot := e.record.Clone()
	e.lock.Unlock()
	m.mirrorShard(snapshot)
	return nil
}

// SetActive :
func (m *Manager) SetActive(id string, active bool) error {
	m.lock.RLock()
	e, ok := m.shardMap[id]
	m.lock.RUnlock()
	if !ok {
		return ErrShardNotFound
	}
	e.lock.Lock()
	e.record.Active = active
	snapshot := e.record.Clone()
	e.lock.Unlock()
	m.mirrorShard(snapshot)
	return nil
}

// Stop 关闭所有连接并等待镜像任务退出
func (m *Manager) Stop() error {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module": moduleName,
	})
	flowLog.Debugf("called")
	m.cancelFunc()
	m.lock.Lock()
	for id, e := range m.shardMap {
		if err := e.backend.Close(); err != nil {
			flowLog.Errorf("close backend->[%s] failed,error:%s", id, err)
		}
	}
	m.lock.Unlock()
	m.wg.Wait()
	flowLog.Debugf("done")
	return nil
}

func (m *Manager) count() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.shardMap)
}

// mirrorShard 异步镜像shard记录到元数据存储，失败只记录日志
func (m *Manager) mirrorShard(snapshot *shard.Shard) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		flowLog := logging.NewEntry(map[string]interface{}{
			"module": moduleName,
			"shard":  snapshot.ID,
		})
		if err := m.store.PutShard(context.Background(), snapshot); err != nil {
			flowLog.Errorf("mirror shard to metastore failed,error:%s", err)
		}
	}()
}

func (m *Manager) makeBackend(ctx context.Context, record *shard.Shard) (backend.Backend, error) {
	protocol := record.Conn.Protocol
	if protocol == "" {
		protocol = "mysql"
	}
	backendFunc := backend.GetBackendFunc(protocol)
	if backendFunc == nil {
		return nil, errors.Wrapf(ErrUnknownProtocol, "protocol->[%s]", protocol)
	}
	timeout := common.Config.GetDuration(common.ConfigKeyBackendTimeout)
	config := backend.MakeBasicConfig(record.ID, record.Conn, timeout)
	return backendFunc(ctx, config)
}
