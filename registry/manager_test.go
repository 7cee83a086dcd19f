// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goRedis "github.com/go-redis/redis/v8"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/backend"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/errors"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/metastore"
	. "github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/mocktest"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/registry"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

type RegistrySuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	ctx     context.Context
	server  *miniredis.Miniredis
	store   metastore.Store
	manager *registry.Manager
	stopped bool
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (t *RegistrySuite) SetupTest() {
	t.ctrl = gomock.NewController(t.T())
	t.ctx = context.Background()
	server, err := miniredis.Run()
	t.Require().NoError(err)
	t.server = server
	client := goRedis.NewClient(&goRedis.Options{Addr: server.Addr()})
	t.store = metastore.NewStoreWithClient(client, "test_proxy")
	t.manager = registry.NewManager(t.ctx, t.store)
	t.stopped = false

	backend.RegisterBackend("fake", func(ctx context.Context, config *backend.BasicConfig) (backend.Backend, error) {
		mockBackend := NewMockBackend(t.ctrl)
		mockBackend.EXPECT().Ping(gomock.Any()).Return(time.Millisecond, nil).AnyTimes()
		mockBackend.EXPECT().Close().Return(nil).AnyTimes()
		return mockBackend, nil
	})
	backend.RegisterBackend("deadconn", func(ctx context.Context, config *backend.BasicConfig) (backend.Backend, error) {
		mockBackend := NewMockBackend(t.ctrl)
		mockBackend.EXPECT().Ping(gomock.Any()).Return(time.Duration(0), errors.New("connection refused")).AnyTimes()
		mockBackend.EXPECT().Close().Return(nil).AnyTimes()
		return mockBackend, nil
	})
}

func (t *RegistrySuite) TearDownTest() {
	t.stopManager()
	t.store.Close()
	t.server.Close()
	t.ctrl.Finish()
}

func (t *RegistrySuite) stopManager() {
	if !t.stopped {
		t.manager.Stop()
		t.stopped = true
	}
}

func (t *RegistrySuite) makeShard(id string, port int) *shard.Shard {
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
		Routing:  shard.RoutingConfig{Strategy: &shard.HashStrategy{}},
		Capacity: shard.Capacity{MaxStorageBytes: 1000},
	}
}

func (t *RegistrySuite) TestRegisterValidation() {
	cases := []struct {
		name   string
		record *shard.Shard
	}{
		{"empty id", t.makeShard("", 3301)},
		{"empty domain", func() *shard.Shard {
			s := t.makeShard("s1", 3301)
			s.Conn.DomainName = ""
			return s
		}()},
		{"invalid port", t.makeShard("s1", 0)},
		{"negative capacity", func() *shard.Shard {
			s := t.makeShard("s1", 3301)
			s.Capacity.CurrentStorageBytes = -1
			return s
		}()},
	}
	for _, c := range cases {
		err := t.manager.Register(t.ctx, c.record)
		t.Require().Error(err, c.name)
		t.ErrorIs(err, registry.ErrInvalidConfig, c.name)
	}
}

func (t *RegistrySuite) TestRegisterConflict() {
	t.Require().NoError(t.manager.Register(t.ctx, t.makeShard("s1", 3301)))

	// 同id不同连接描述视为冲突
	err := t.manager.Register(t.ctx, t.makeShard("s1", 3302))
	t.Require().Error(err)
	t.ErrorIs(err, registry.ErrShardConflict)

	// 同id同连接描述只更新配置
	updated := t.makeShard("s1", 3301)
	updated.Capacity.CurrentStorageBytes = 500
	t.Require().NoError(t.manager.Register(t.ctx, updated))
	record, ok := t.manager.Get("s1")
	t.Require().True(ok)
	t.Equal(int64(500), record.Capacity.CurrentStorageBytes)
}

func (t *RegistrySuite) TestRegisterProbeFailed() {
	record := t.makeShard("s1", 3301)
	record.Conn.Protocol = "deadconn"
	err := t.manager.Register(t.ctx, record)
	t.Require().Error(err)
	t.ErrorIs(err, registry.ErrProbeFailed)

	_, ok := t.manager.Get("s1")
	t.False(ok)
}

func (t *RegistrySuite) TestRegisterUnknownProtocol() {
	record := t.makeShard("s1", 3301)
	record.Conn.Protocol = "carrier-pigeon"
	err := t.manager.Register(t.ctx, record)
	t.Require().Error(err)
	t.ErrorIs(err, registry.ErrUnknownProtocol)
}

func (t *RegistrySuite) TestActiveShardsOrder() {
	t.Require().NoError(t.manager.Register(t.ctx, t.makeShard("s1", 3301)))
	t.Require().NoError(t.manager.Register(t.ctx, t.makeShard("s2", 3302)))
	t.Require().NoError(t.manager.Register(t.ctx, t.makeShard("s3", 3303)))

	ids := func(shards []*shard.Shard) []string {
		result := make([]string, 0, len(shards))
		for _, s := range shards {
			result = append(result, s.ID)
		}
		return result
	}
	t.Equal([]string{"s1", "s2", "s3"}, ids(t.manager.ActiveShards()))

	// 注册时默认补healthy
	for _, s := range t.manager.All() {
		t.Equal(shard.StatusHealthy, s.Health.Status)
	}

	t.Require().NoError(t.manager.SetActive("s2", false))
	t.Equal([]string{"s1", "s3"}, ids(t.manager.ActiveShards()))
	t.Equal([]string{"s1", "s2", "s3"}, ids(t.manager.All()))
}

func (t *RegistrySuite) TestHealthyShards() {
	t.Require().NoError(t.manager.Register(t.ctx, t.makeShard("s1", 3301)))
	t.Require().NoError(t.manager.Register(t.ctx, t.makeShard("s2", 3302)))

	t.Require().NoError(t.manager.UpdateHealth("s1", shard.Health{
		Status:    shard.StatusUnhealthy,
		LastCheck: time.Now(),
		Issues:    []string{"connection refused"},
	}))
	healthy := t.manager.HealthyShards()
	t.Require().Len(healthy, 1)
	t.Equal("s2", healthy[0].ID)

	// unhealthy的shard依旧是active的路由候选
	t.Len(t.manager.ActiveShards(), 2)
}

func (t *RegistrySuite) TestDeregister() {
	t.Require().NoError(t.manager.Register(t.ctx, t.makeShard("s1", 3301)))

	t.Require().NoError(t.manager.Deregister("s1"))
	_, ok := t.manager.Get("s1")
	t.False(ok)
	_, err := t.manager.GetBackend("s1")
	t.ErrorIs(err, registry.ErrBackendNotExist)

	t.ErrorIs(t.manager.Deregister("s1"), registry.ErrShardNotFound)
}

func (t *RegistrySuite) TestMirrorToMetastore() {
	record := t.makeShard("s1", 3301)
	record.Capacity.CurrentStorageBytes = 300
	t.Require().NoError(t.manager.Register(t.ctx, record))
	// Stop等待全部异步镜像落盘
	t.stopManager()

	mirrored, err := t.store.GetShard(t.ctx, "s1")
	t.Require().NoError(err)
	t.Require().NotNil(mirrored)
	t.Equal(int64(300), mirrored.Capacity.CurrentStorageBytes)
	t.Equal(shard.StatusHealthy, mirrored.Health.Status)
}

func (t *RegistrySuite) TestUpdateCapacity() {
	t.Require().NoError(t.manager.Register(t.ctx, t.makeShard("s1", 3301)))
	t.Require().NoError(t.manager.UpdateCapacity("s1", func(c *shard.Capacity) {
		c.CurrentStorageBytes += 850
	}))
	record, ok := t.manager.Get("s1")
	t.Require().True(ok)
	t.InDelta(0.85, record.Capacity.Utilization(), 1e-9)

	t.ErrorIs(t.manager.UpdateCapacity("ghost", func(c *shard.Capacity) {}), registry.ErrShardNotFound)
}
