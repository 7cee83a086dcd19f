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
	"time"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/backend"
)

// Consistency 调用方声明的一致性要求
type Consistency string

// :
const (
	ConsistencyStrong   Consistency = "strong"
	ConsistencyEventual Consistency = "eventual"
	ConsistencyLocal    Consistency = "local"
)

// Request 一次路由请求，按调用构造，不落地
type Request struct {
	// Query 已经写好的语句，引擎只做轻量解析不改写
	Query  string
	Params []interface{}
	// ShardHint 显式指定目标shard，绕过策略计算
	ShardHint string
	// RecordKey 显式记录键，数据搬迁后的override指针按它查找
	RecordKey   string
	Consistency Consistency
	Timeout     time.Duration
}

// Result 路由结果
type Result struct {
	ShardID string
	Backend backend.Backend
	// IsCrossShard 为true表示这是故障转移结果而非策略的原始目标
	IsCrossShard bool
}

// ShardKey 从查询中提取出来的分片键
type ShardKey struct {
	Table string
	Value string
}

// Verb 查询动词分类，跨shard合并策略按它选择
type Verb string

// :
const (
	VerbSelect    Verb = "select"
	VerbAggregate Verb = "aggregate"
	VerbOther     Verb = "other"
)
