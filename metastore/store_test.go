// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package metastore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goRedis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/suite"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/metastore"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

type StoreSuite struct {
	suite.Suite
	ctx    context.Context
	server *miniredis.Miniredis
	store  metastore.Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (t *StoreSuite) SetupTest() {
	t.ctx = context.Background()
	server, err := miniredis.Run()
	t.Require().NoError(err)
	t.server = server
	client := goRedis.NewClient(&goRedis.Options{Addr: server.Addr()})
	t.store = metastore.NewStoreWithClient(client, "test_proxy")
}

func (t *StoreSuite) TearDownTest() {
	t.store.Close()
	t.server.Close()
}

func (t *StoreSuite) TestShardRoundTrip() {
	record := &shard.Shard{
		ID:     "s1",
		Name:   "shard one",
		Region: "gz",
		Active: true,
		Conn: shard.ConnInfo{
			DomainName: "127.0.0.1",
			Port:       3306,
			Database:   "test",
		},
		Routing: shard.RoutingConfig{
			Strategy: &shard.RangeStrategy{Ranges: []shard.RangeInterval{{Min: 0, Max: 100, Table: "users"}}},
		},
		Capacity: shard.Capacity{MaxStorageBytes: 1000, CurrentStorageBytes: 300},
	}
	t.Require().NoError(t.store.PutShard(t.ctx, record))

	loaded, err := t.store.GetShard(t.ctx, "s1")
	t.Require().NoError(err)
	t.Require().NotNil(loaded)
	t.Equal(record.ID, loaded.ID)
	t.Equal(record.Conn, loaded.Conn)
	t.Equal(record.Capacity, loaded.Capacity)
	// 策略通过envelope编解码后类型保持不变
	t.Equal(record.Routing.Strategy, loaded.Routing.Strategy)

	// 未知shard返回nil而不是错误
	missing, err := t.store.GetShard(t.ctx, "ghost")
	t.Require().NoError(err)
	t.Nil(missing)

	t.Require().NoError(t.store.DeleteShard(t.ctx, "s1"))
	deleted, err := t.store.GetShard(t.ctx, "s1")
	t.Require().NoError(err)
	t.Nil(deleted)
}

func (t *StoreSuite) TestHealthRoundTrip() {
	health := &shard.Health{
		Status:      shard.StatusDegraded,
		LastCheck:   time.Now().Truncate(time.Second),
		LastLatency: 600 * time.Millisecond,
		Issues:      []string{"latency above threshold"},
	}
	t.Require().NoError(t.store.PutHealth(t.ctx, "s1", health))

	loaded, err := t.store.GetHealth(t.ctx, "s1")
	t.Require().NoError(err)
	t.Require().NotNil(loaded)
	t.Equal(health.Status, loaded.Status)
	t.Equal(health.LastLatency, loaded.LastLatency)
	t.Equal(health.Issues, loaded.Issues)

	missing, err := t.store.GetHealth(t.ctx, "ghost")
	t.Require().NoError(err)
	t.Nil(missing)

	// 健康快照必须带TTL，注册表才是数据源头
	t.Greater(t.server.TTL("test_proxy:shard:health:s1"), time.Duration(0))
}

func (t *StoreSuite) TestRecordShardPointer() {
	t.Require().NoError(t.store.PutRecordShard(t.ctx, "rec-1", "s2"))
	pointer, err := t.store.GetRecordShard(t.ctx, "rec-1")
	t.Require().NoError(err)
	t.Equal("s2", pointer)

	// 幂等重写同一指向
	t.Require().NoError(t.store.PutRecordShard(t.ctx, "rec-1", "s2"))

	// 不存在的指针返回空串
	pointer, err = t.store.GetRecordShard(t.ctx, "rec-404")
	t.Require().NoError(err)
	t.Equal("", pointer)
}
