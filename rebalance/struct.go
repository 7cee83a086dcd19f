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
	"fmt"
	"time"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

// Kind 操作类型
type Kind string

// :
const (
	KindMoveData    Kind = "move_data"
	KindSplitShard  Kind = "split_shard"
	KindMergeShards Kind = "merge_shards"
	KindAddShard    Kind = "add_shard"
)

// Priority 操作优先级
type Priority string

// :
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Status 操作生命周期，completed与failed均为终态
type Status string

// :
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Operation 一次rebalance操作记录
type Operation struct {
	ID          string   `json:"id"`
	Kind        Kind     `json:"kind"`
	SourceShard string   `json:"source_shard"`
	TargetShard string   `json:"target_shard,omitempty"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
	// SizeBytes move_data计划搬迁的数据量
	SizeBytes int64 `json:"size_bytes,omitempty"`
	// EstimatedDuration 按限速估算的搬迁耗时
	EstimatedDuration time.Duration `json:"estimated_duration,omitempty"`
	// NewShard add_shard与split_shard携带的新shard配置
	NewShard *shard.Shard `json:"new_shard,omitempty"`
	// MergeShards merge_shards要并入source的shard id列表
	MergeShards []string  `json:"merge_shards,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

// String :
func (o *Operation) String() string {
	return fmt.Sprintf("operation:[%s] kind:[%s] source:[%s] target:[%s] status:[%s]",
		o.ID, o.Kind, o.SourceShard, o.TargetShard, o.Status)
}

// Clone :
func (o *Operation) Clone() *Operation {
	cloned := *o
	if o.NewShard != nil {
		cloned.NewShard = o.NewShard.Clone()
	}
	if len(o.MergeShards) > 0 {
		cloned.MergeShards = append([]string(nil), o.MergeShards...)
	}
	return &cloned
}
