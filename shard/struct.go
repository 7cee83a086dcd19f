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
	"fmt"
	"time"
)

// Status shard健康状态
type Status string

// :
const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ConnInfo shard连接描述，引擎本身不解释凭据内容
type ConnInfo struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	DomainName string `json:"domain_name"`
	Port       int    `json:"port"`
	Database   string `json:"database"`
	// Protocol 决定backend工厂，默认mysql
	Protocol string `json:"protocol"`
}

/// Address :
func (c *ConnInfo) Address() string {
	return fmt.Sprintf("%s:%d", c.DomainName, c.Port)
}

// Compare 比较两个连接描述是否一致
func (c *ConnInfo) Compare(other *ConnInfo) bool {
	if other == nil {
		return false
	}
	return c.Username == other.Username &&
		c.Password == other.Password &&
		c.DomainName == other.DomainName &&
		c.Port == other.Port &&
		c.Database == other.Database &&
		c.Protocol == other.Protocol
}

// Capacity shard容量记录
type Capacity struct {
	MaxConnections      int64 `json:"max_connections"`
	CurrentConnections  int64 `json:"current_connections"`
	MaxStorageBytes     int64 `json:"max_storage_bytes"`
	CurrentStorageBytes int64 `json:"current_storage_bytes"`
}

// Utilization 利用率永远由容量实时计算，不落地存储
func (c *Capacity) Utilization() float64 {
	if c.MaxStorageBytes <= 0 {
		return 0
	}
	return float64(c.CurrentStorageBytes) / float64(c.MaxStorageBytes)
}

// Health shard健康记录，由健康检查模块维护
type Health struct {
	Status      Status        `json:"status"`
	LastCheck   time.Time     `json:"last_check"`
	LastLatency time.Duration `json:"last_latency"`
	Issues      []string      `json:"issues,omitempty"`
}

// Performance shard性能记录
type Performance struct {
	AvgQueryLatency time.Duration `json:"avg_query_latency"`
	QueriesPerSec   float64       `json:"queries_per_sec"`
	ErrorRate       float64       `json:"error_rate"`
	CacheHitRate    float64       `json:"cache_hit_rate"`
}

// Shard 一个物理独立的数据库实例记录
type Shard struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Region      string        `json:"region"`
	Active      bool          `json:"active"`
	Conn        ConnInfo      `json:"conn"`
	Routing     RoutingConfig `json:"routing"`
	Capacity    Capacity      `json:"capacity"`
	Health      Health        `json:"health"`
	Performance Performance   `json:"performance"`
}

// Clone 深拷贝，注册表对外只暴露副本
func (s *Shard) Clone() *Shard {
	cloned := *s
	if len(s.Health.Issues) > 0 {
		cloned.Health.Issues = append([]string(nil), s.Health.Issues...)
	}
	cloned.Routing = s.Routing.Clone()
	return &cloned
}

func (s *Shard) String() string {
	return fmt.Sprintf("shard:[%s],address:[%s],region:[%s],active:%v,status:%s",
		s.ID, s.Conn.Address(), s.Region, s.Active, s.Health.Status)
}
