// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package route_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/backend"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/common"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/errors"
	. "github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/mocktest"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/registry"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/route"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

type RouterSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	ctx     context.Context
	store   *MockStore
	manager *registry.Manager
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (t *RouterSuite) SetupTest() {
	t.ctrl = gomock.NewController(t.T())
	t.ctx = context.Background()
	t.store = NewMockStore(t.ctrl)
	// 注册表的异步镜像不在路由测试的断言范围内
	t.store.EXPECT().PutShard(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	t.store.EXPECT().PutHealth(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	t.store.EXPECT().DeleteShard(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	t.manager = registry.NewManager(t.ctx, t.store)

	common.Config.Set(common.ConfigKeyShardStrategy, "hash")
	common.Config.Set(common.ConfigKeyShardStrictRouting, false)
	backend.RegisterBackend("fake", func(ctx context.Context, config *backend.BasicConfig) (backend.Backend, error) {
		mockBackend := NewMockBackend(t.ctrl)
		mockBackend.EXPECT().Ping(gomock.Any()).Return(time.Millisecond, nil).AnyTimes()
		mockBackend.EXPECT().Close().Return(nil).AnyTimes()
		return mockBackend, nil
	})
}

func (t *RouterSuite) TearDownTest() {
	t.manager.Stop()
	t.ctrl.Finish()
}

func (t *RouterSuite) makeShard(id string, port int, strategy shard.Strategy, currentBytes int64) *shard.Shard {
	return &shard.Shard{
		ID:     id,
		Name:   id,
		Active: true,
		Conn: shard.ConnInfo{
			DomainName: "127.0.0.1",
			Port:       port,
			Database:   "test",
			Protocol:   "fake",
		},
		Routing:  shard.RoutingConfig{Strategy: strategy},
		Capacity: shard.Capacity{MaxStorageBytes: 1000, CurrentStorageBytes: currentBytes},
	}
}

func (t *RouterSuite) registerShards(shards ...*shard.Shard) {
	for _, s := range shards {
		t.Require().NoError(t.manager.Register(t.ctx, s))
	}
}

func (t *RouterSuite) TestHashDeterministic() {
	t.registerShards(
		t.makeShard("s1", 3301, &shard.HashStrategy{}, 0),
		t.makeShard("s2", 3302, &shard.HashStrategy{}, 0),
	)
	router := route.NewRouter(t.manager, t.store)

	request := &route.Request{Query: "SELECT * FROM users WHERE user_id = 'user-42'"}
	first, err := router.Route(t.ctx, request)
	t.Require().NoError(err)
	t.False(first.IsCrossShard)
	for i := 0; i < 10; i++ {
		result, err := router.Route(t.ctx, request)
		t.Require().NoError(err)
		t.Equal(first.ShardID, result.ShardID)
	}
}

func (t *RouterSuite) TestHashDistribution() {
	t.registerShards(
		t.makeShard("s1", 3301, &shard.HashStrategy{}, 0),
		t.makeShard("s2", 3302, &shard.HashStrategy{}, 0),
		t.makeShard("s3", 3303, &shard.HashStrategy{}, 0),
		t.makeShard("s4", 3304, &shard.HashStrategy{}, 0),
	)
	router := route.NewRouter(t.manager, t.store)

	total := 2000
	counts := make(map[string]int)
	for i := 0; i < total; i++ {
		result, err := router.Route(t.ctx, &route.Request{
			Query:  "SELECT * FROM users WHERE user_id = ?",
			Params: []interface{}{fmt.Sprintf("user-%d", i)},
		})
		t.Require().NoError(err)
		counts[result.ShardID]++
	}
	t.Len(counts, 4)
	for id, count := range counts {
		// 只要求大致均匀，不假设hash函数的具体分布
		t.Greater(count, total/20, "shard %s starved", id)
		t.Less(count, total/2, "shard %s overloaded", id)
	}
}

func (t *RouterSuite) TestRangeRouting() {
	common.Config.Set(common.ConfigKeyShardStrategy, "range")
	t.registerShards(
		t.makeShard("s1", 3301, &shard.RangeStrategy{Ranges: []shard.RangeInterval{
			{Min: 0, Max: 100, Table: "users"},
		}}, 0),
		t.makeShard("s2", 3302, &shard.RangeStrategy{Ranges: []shard.RangeInterval{
			{Min: 101, Max: 200, Table: "users"},
		}}, 0),
	)
	router := route.NewRouter(t.manager, t.store)

	cases := []struct {
		id      string
		shardID string
	}{
		{"0", "s1"},
		{"100", "s1"},
		{"101", "s2"},
		{"200", "s2"},
		// 区间外的记录落到primary
		{"201", "s1"},
	}
	for _, c := range cases {
		result, err := router.Route(t.ctx, &route.Request{
			Query: fmt.Sprintf("SELECT * FROM users WHERE id = %s", c.id),
		})
		t.Require().NoError(err)
		t.Equal(c.shardID, result.ShardID, "id=%s", c.id)
	}
}

func (t *RouterSuite) TestGeoRouting() {
	common.Config.Set(common.ConfigKeyShardStrategy, "geo")
	t.registerShards(
		t.makeShard("s1", 3301, &shard.GeoStrategy{
			Box: shard.BoundingBox{MinLat: 20, MaxLat: 30, MinLng: 20, MaxLng: 30},
		}, 0),
		t.makeShard("s2", 3302, &shard.GeoStrategy{
			Box: shard.BoundingBox{MinLat: 0, MaxLat: 10, MinLng: 0, MaxLng: 10},
		}, 0),
	)
	router := route.NewRouter(t.manager, t.store)

	// 边界点属于盒内
	result, err := router.Route(t.ctx, &route.Request{
		Query: "SELECT * FROM pois WHERE lat = 10.0 AND lng = 10.0",
	})
	t.Require().NoError(err)
	t.Equal("s2", result.ShardID)

	// 任何盒都不包含的点落到primary
	result, err = router.Route(t.ctx, &route.Request{
		Query: "SELECT * FROM pois WHERE lat = 50.0 AND lng = 50.0",
	})
	t.Require().NoError(err)
	t.Equal("s1", result.ShardID)
}

func (t *RouterSuite) TestCompositeTieBreak() {
	common.Config.Set(common.ConfigKeyShardStrategy, "composite")
	key := "user-42"
	ids := []string{"s1", "s2"}
	hashID := ids[int(route.HashKey(key))%2]
	geoID := ids[1-int(route.HashKey(key))%2]

	insideBox := shard.BoundingBox{MinLat: 0, MaxLat: 10, MinLng: 0, MaxLng: 10}
	outsideBox := shard.BoundingBox{MinLat: 20, MaxLat: 30, MinLng: 20, MaxLng: 30}
	boxes := map[string]shard.BoundingBox{geoID: insideBox, hashID: outsideBox}
	t.registerShards(
		t.makeShard("s1", 3301, &shard.GeoStrategy{Box: boxes["s1"]}, 200),
		t.makeShard("s2", 3302, &shard.GeoStrategy{Box: boxes["s2"]}, 200),
	)
	t.Require().NoError(t.manager.UpdateCapacity(hashID, func(c *shard.Capacity) {
		c.CurrentStorageBytes = 500
	}))
	router := route.NewRouter(t.manager, t.store)

	request := &route.Request{
		Query: fmt.Sprintf("SELECT * FROM users WHERE user_id = '%s' AND lat = 5.0 AND lng = 5.0", key),
	}
	// geo候选负载更低时胜出
	result, err := router.Route(t.ctx, request)
	t.Require().NoError(err)
	t.Equal(geoID, result.ShardID)

	// 负载翻转后hash候选胜出
	t.Require().NoError(t.manager.UpdateCapacity(geoID, func(c *shard.Capacity) {
		c.CurrentStorageBytes = 900
	}))
	result, err = router.Route(t.ctx, request)
	t.Require().NoError(err)
	t.Equal(hashID, result.ShardID)
}

func (t *RouterSuite) TestFailover() {
	t.registerShards(
		t.makeShard("s1", 3301, &shard.HashStrategy{}, 0),
		t.makeShard("s2", 3302, &shard.HashStrategy{}, 0),
	)
	router := route.NewRouter(t.manager, t.store)

	request := &route.Request{Query: "SELECT * FROM users WHERE user_id = 'user-42'"}
	first, err := router.Route(t.ctx, request)
	t.Require().NoError(err)

	t.Require().NoError(t.manager.UpdateHealth(first.ShardID, shard.Health{
		Status:    shard.StatusUnhealthy,
		LastCheck: time.Now(),
	}))
	second, err := router.Route(t.ctx, request)
	t.Require().NoError(err)
	t.NotEqual(first.ShardID, second.ShardID)
	t.True(second.IsCrossShard)

	// 无healthy候选时直接报路由错误
	t.Require().NoError(t.manager.UpdateHealth(second.ShardID, shard.Health{
		Status:    shard.StatusUnhealthy,
		LastCheck: time.Now(),
	}))
	_, err = router.Route(t.ctx, request)
	t.Require().Error(err)
	t.True(errors.IsQueryRoutingError(err))
}

func (t *RouterSuite) TestShardHint() {
	t.registerShards(
		t.makeShard("s1", 3301, &shard.HashStrategy{}, 0),
		t.makeShard("s2", 3302, &shard.HashStrategy{}, 0),
	)
	router := route.NewRouter(t.manager, t.store)

	result, err := router.Route(t.ctx, &route.Request{
		Query:     "SELECT * FROM users WHERE user_id = 'user-42'",
		ShardHint: "s2",
	})
	t.Require().NoError(err)
	t.Equal("s2", result.ShardID)
	t.False(result.IsCrossShard)

	_, err = router.Route(t.ctx, &route.Request{
		Query:     "SELECT * FROM users WHERE user_id = 'user-42'",
		ShardHint: "ghost",
	})
	t.Require().Error(err)
	t.True(errors.IsQueryRoutingError(err))
}

func (t *RouterSuite) TestRecordPointerOverride() {
	t.registerShards(
		t.makeShard("s1", 3301, &shard.HashStrategy{}, 0),
		t.makeShard("s2", 3302, &shard.HashStrategy{}, 0),
	)
	router := route.NewRouter(t.manager, t.store)

	// 找一个hash落在s1的键，保证override能被观测到
	key := ""
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("user-%d", i)
		if int(route.HashKey(candidate))%2 == 0 {
			key = candidate
			break
		}
	}
	query := fmt.Sprintf("SELECT * FROM users WHERE user_id = '%s'", key)

	t.store.EXPECT().GetRecordShard(gomock.Any(), "rec-9").Return("s2", nil)
	result, err := router.Route(t.ctx, &route.Request{Query: query, RecordKey: "rec-9"})
	t.Require().NoError(err)
	t.Equal("s2", result.ShardID)

	// 指针指向未知shard时回到策略计算
	t.store.EXPECT().GetRecordShard(gomock.Any(), "rec-9").Return("ghost", nil)
	result, err = router.Route(t.ctx, &route.Request{Query: query, RecordKey: "rec-9"})
	t.Require().NoError(err)
	t.Equal("s1", result.ShardID)
}

func (t *RouterSuite) TestFallbackPrimary() {
	t.registerShards(
		t.makeShard("s1", 3301, &shard.HashStrategy{}, 0),
		t.makeShard("s2", 3302, &shard.HashStrategy{}, 0),
	)
	router := route.NewRouter(t.manager, t.store)

	result, err := router.Route(t.ctx, &route.Request{
		Query: "SELECT * FROM users WHERE name = 'bob'",
	})
	t.Require().NoError(err)
	t.Equal("s1", result.ShardID)
}

func (t *RouterSuite) TestStrictRouting() {
	common.Config.Set(common.ConfigKeyShardStrictRouting, true)
	defer common.Config.Set(common.ConfigKeyShardStrictRouting, false)
	t.registerShards(
		t.makeShard("s1", 3301, &shard.HashStrategy{}, 0),
	)
	router := route.NewRouter(t.manager, t.store)

	_, err := router.Route(t.ctx, &route.Request{
		Query: "SELECT * FROM users WHERE name = 'bob'",
	})
	t.Require().Error(err)
	t.True(errors.IsQueryRoutingError(err))
}

func (t *RouterSuite) TestNoActiveShards() {
	router := route.NewRouter(t.manager, t.store)
	_, err := router.Route(t.ctx, &route.Request{
		Query: "SELECT * FROM users WHERE user_id = 'user-42'",
	})
	t.Require().Error(err)
	t.Contains(err.Error(), "no active shards")
}
