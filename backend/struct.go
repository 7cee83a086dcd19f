// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package backend

import (
	"context"
	"time"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

// Row 一行查询结果，列名到值
type Row map[string]interface{}

// Result 一次查询的结果集
type Result struct {
	Rows []Row
	// Count 聚合查询时的标量结果
	Count int64
}

// Backend 单个shard的长连接句柄，整个生命周期内复用
// 底层驱动不保证并发安全时由实现内部串行化
type Backend interface {
	Name() string
	// Ping 轻量存活探测，返回往返耗时
	Ping(ctx context.Context) (time.Duration, error)
	Query(ctx context.Context, stmt string, params []interface{}) (*Result, error)
	Exec(ctx context.Context, stmt string, params []interface{}) (int64, error)
	// ReadBatch 按主键顺序读取一批记录，rebalance数据搬迁使用
	ReadBatch(ctx context.Context, table string, offset, limit int) ([]Row, error)
	WriteBatch(ctx context.Context, table string, rows []Row) error
	DeleteBatch(ctx context.Context, table string, ids []interface{}) error
	Close() error
	String() string
}

// BasicConfig backend初始化配置
type BasicConfig struct {
	Name    string
	Conn    shard.ConnInfo
	Timeout time.Duration
}

// MakeBasicConfig :
func MakeBasicConfig(name string, conn shard.ConnInfo, timeout time.Duration) *BasicConfig {
	return &BasicConfig{
		Name:    name,
		Conn:    conn,
		Timeout: timeout,
	}
}
