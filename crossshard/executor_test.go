// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package crossshard_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/backend"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/crossshard"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/errors"
	. "github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/mocktest"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/registry"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/route"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

type ExecutorSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	ctx      context.Context
	store    *MockStore
	manager  *registry.Manager
	executor *crossshard.Executor
	backends map[string]*MockBackend
}

func TestExecutorSuite(t *testing.T) {
	suite.Run(t, new(ExecutorSuite))
}

func (t *ExecutorSuite) SetupTest() {
	t.ctrl = gomock.NewController(t.T())
	t.ctx = context.Background()
	t.store = NewMockStore(t.ctrl)
	t.store.EXPECT().PutShard(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	t.store.EXPECT().PutHealth(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	t.manager = registry.NewManager(t.ctx, t.store)

	t.backends = make(map[string]*MockBackend)
	backend.RegisterBackend("fake", func(ctx context.Context, config *backend.BasicConfig) (backend.Backend, error) {
		return t.backends[config.Name], nil
	})

	router := route.NewRouter(t.manager, t.store)
	t.executor = crossshard.NewExecutor(t.manager, router)
}

func (t *ExecutorSuite) TearDownTest() {
	t.manager.Stop()
	t.ctrl.Finish()
}

func (t *ExecutorSuite) registerShard(id string, port int) *MockBackend {
	mockBackend := NewMockBackend(t.ctrl)
	mockBackend.EXPECT().Ping(gomock.Any()).Return(time.Millisecond, nil).AnyTimes()
	mockBackend.EXPECT().Close().Return(nil).AnyTimes()
	t.backends[id] = mockBackend
	t.Require().NoError(t.manager.Register(t.ctx, &shard.Shard{
		ID:     id,
		Name:   id,
		Active: true,
		Conn: shard.ConnInfo{
			DomainName: "127.0.0.1",
			Port:       port,
			Protocol:   "fake",
		},
		Routing:  shard.RoutingConfig{Strategy: &shard.HashStrategy{}},
		Capacity: shard.Capacity{MaxStorageBytes: 1000},
	}))
	return mockBackend
}

func (t *ExecutorSuite) TestSelectConcatRows() {
	query := "SELECT * FROM users WHERE status = 'ok'"
	t.registerShard("s1", 3301).EXPECT().Query(gomock.Any(), query, gomock.Nil()).
		Return(&backend.Result{Rows: []backend.Row{{"id": 1}, {"id": 2}}, Count: 2}, nil)
	t.registerShard("s2", 3302).EXPECT().Query(gomock.Any(), query, gomock.Nil()).
		Return(&backend.Result{Rows: []backend.Row{}, Count: 0}, nil)
	t.registerShard("s3", 3303).EXPECT().Query(gomock.Any(), query, gomock.Nil()).
		Return(&backend.Result{Rows: []backend.Row{{"id": 7}, {"id": 8}, {"id": 9}}, Count: 3}, nil)

	merged, err := t.executor.ExecuteAcrossShards(t.ctx, query, nil, route.ConsistencyEventual)
	t.Require().NoError(err)
	t.Len(merged.Rows, 5)
	t.Equal(int64(5), merged.Count)
	t.ElementsMatch([]string{"s1", "s2", "s3"}, merged.Succeeded)
	t.Empty(merged.Failed)
}

func (t *ExecutorSuite) TestAggregateSumsScalars() {
	query := "SELECT count(*) FROM users"
	// 驱动可能以字符串或数字给出标量
	t.registerShard("s1", 3301).EXPECT().Query(gomock.Any(), query, gomock.Nil()).
		Return(&backend.Result{Rows: []backend.Row{{"count(*)": "2"}}, Count: 1}, nil)
	t.registerShard("s2", 3302).EXPECT().Query(gomock.Any(), query, gomock.Nil()).
		Return(&backend.Result{Rows: []backend.Row{{"count(*)": int64(3)}}, Count: 1}, nil)

	merged, err := t.executor.ExecuteAcrossShards(t.ctx, query, nil, route.ConsistencyEventual)
	t.Require().NoError(err)
	t.Equal(int64(5), merged.Count)
}

func (t *ExecutorSuite) TestPartialFailure() {
	query := "SELECT * FROM users WHERE status = 'ok'"
	t.registerShard("s1", 3301).EXPECT().Query(gomock.Any(), query, gomock.Nil()).
		Return(&backend.Result{Rows: []backend.Row{{"id": 1}}, Count: 1}, nil)
	t.registerShard("s2", 3302).EXPECT().Query(gomock.Any(), query, gomock.Nil()).
		Return(nil, errors.New("connection reset"))

	merged, err := t.executor.ExecuteAcrossShards(t.ctx, query, nil, route.ConsistencyEventual)
	t.Require().NoError(err)
	t.Len(merged.Rows, 1)
	t.Equal([]string{"s1"}, merged.Succeeded)
	t.Require().Len(merged.Failed, 1)
	t.Equal("s2", merged.Failed[0].ShardID)
	t.Contains(merged.Failed[0].Error, "connection reset")
}

func (t *ExecutorSuite) TestAllShardsFailed() {
	query := "SELECT * FROM users WHERE status = 'ok'"
	t.registerShard("s1", 3301).EXPECT().Query(gomock.Any(), query, gomock.Nil()).
		Return(nil, errors.New("connection reset"))
	t.registerShard("s2", 3302).EXPECT().Query(gomock.Any(), query, gomock.Nil()).
		Return(nil, errors.New("connection reset"))

	_, err := t.executor.ExecuteAcrossShards(t.ctx, query, nil, route.ConsistencyEventual)
	t.Require().Error(err)
	t.True(errors.IsQueryRoutingError(err))
}

func (t *ExecutorSuite) TestSkipsUnhealthyShards() {
	query := "SELECT * FROM users WHERE status = 'ok'"
	t.registerShard("s1", 3301).EXPECT().Query(gomock.Any(), query, gomock.Nil()).
		Return(&backend.Result{Rows: []backend.Row{{"id": 1}}, Count: 1}, nil)
	// unhealthy的shard不在扇出集合里，mock上不设置Query期望
	t.registerShard("s2", 3302)
	t.Require().NoError(t.manager.UpdateHealth("s2", shard.Health{
		Status:    shard.StatusUnhealthy,
		LastCheck: time.Now(),
	}))

	merged, err := t.executor.ExecuteAcrossShards(t.ctx, query, nil, route.ConsistencyEventual)
	t.Require().NoError(err)
	t.Equal([]string{"s1"}, merged.Succeeded)
}

func (t *ExecutorSuite) TestNoShards() {
	_, err := t.executor.ExecuteAcrossShards(t.ctx, "SELECT * FROM users", nil, route.ConsistencyEventual)
	t.Require().Error(err)
	t.Contains(err.Error(), "no active shards")
}
