// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package metastore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goRedis "github.com/go-redis/redis/v8"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/common"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

// redis key布局，全部带TTL，注册表才是数据源头
const (
	ShardInfoKey   = "shard"
	ShardHealthKey = "shard:health"
	RecordShardKey = "record:shard"
)

// Store 外部元数据存储，仅用于shard元数据镜像和搬迁指针
type Store interface {
	PutShard(ctx context.Context, s *shard.Shard) error
	GetShard(ctx context.Context, id string) (*shard.Shard, error)
	DeleteShard(ctx context.Context, id string) error
	PutHealth(ctx context.Context, id string, health *shard.Health) error
	GetHealth(ctx context.Context, id string) (*shard.Health, error)
	// PutRecordShard 记录级override指针，重复写入同一指向是幂等的
	PutRecordShard(ctx context.Context, recordID string, shardID string) error
	// GetRecordShard 指针不存在时返回空串而不是错误
	GetRecordShard(ctx context.Context, recordID string) (string, error)
	Close() error
}

type redisStore struct {
	client    goRedis.UniversalClient
	prefix    string
	shardTTL  time.Duration
	healthTTL time.Duration
	recordTTL time.Duration
}

var _ Store = (*redisStore)(nil)

// NewRedisStore 根据viper配置构建redis存储
func NewRedisStore(ctx context.Context) (Store, error) {
	client := goRedis.NewUniversalClient(&goRedis.UniversalOptions{
		Addrs:    []string{common.Config.GetString(common.ConfigKeyRedisAddress)},
		Password: common.Config.GetString(common.ConfigKeyRedisPassword),
		DB:       common.Config.GetInt(common.ConfigKeyRedisDB),
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return NewStoreWithClient(client, common.Config.GetString(common.ConfigKeyRedisPrefix)), nil
}

// NewStoreWithClient 使用外部client构建，测试场景注入miniredis
func NewStoreWithClient(client goRedis.UniversalClient, prefix string) Store {
	if prefix == "" {
		prefix = "shard_proxy"
	}
	shardTTL := common.Config.GetDuration(common.ConfigKeyRedisShardTTL)
	if shardTTL == 0 {
		shardTTL = time.Hour
	}
	healthTTL := common.Config.GetDuration(common.ConfigKeyRedisHealthTTL)
	if healthTTL == 0 {
		healthTTL = 5 * time.Minute
	}
	recordTTL := common.Config.GetDuration(common.ConfigKeyRedisRecordTTL)
	if recordTTL == 0 {
		recordTTL = 24 * time.Hour
	}
	return &redisStore{
		client:    client,
		prefix:    prefix,
		shardTTL:  shardTTL,
		healthTTL: healthTTL,
		recordTTL: recordTTL,
	}
}

// key 拼接前缀生成完整key
func (r *redisStore) key(keys ...string) string {
	return fmt.Sprintf("%s:%s", r.prefix, strings.Join(keys, ":"))
}

// PutShard :
func (r *redisStore) PutShard(ctx context.Context, s *shard.Shard) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(ShardInfoKey, s.ID), string(data), r.shardTTL).Err()
}

// GetShard :
func (r *redisStore) GetShard(ctx context.Context, id string) (*shard.Shard, error) {
	res, err := r.client.Get(ctx, r.key(ShardInfoKey, id)).Result()
	if err != nil {
		if err == goRedis.Nil {
			return nil, nil
		}
		return nil, err
	}
	record := &shard.Shard{}
	if err := json.Unmarshal([]byte(res), record); err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteShard :
func (r *redisStore) DeleteShard(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(ShardInfoKey, id), r.key(ShardHealthKey, id)).Err()
}

// PutHealth 健康快照使用短TTL，外部观察方可以接近实时读取
func (r *redisStore) PutHealth(ctx context.Context, id string, health *shard.Health) error {
	data, err := json.Marshal(health)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(ShardHealthKey, id), string(data), r.healthTTL).Err()
}

// GetHealth :
func (r *redisStore) GetHealth(ctx context.Context, id string) (*shard.Health, error) {
	res, err := r.client.Get(ctx, r.key(ShardHealthKey, id)).Result()
	if err != nil {
		if err == goRedis.Nil {
			return nil, nil
		}
		return nil, err
	}
	health := &shard.Health{}
	if err := json.Unmarshal([]byte(res), health); err != nil {
		return nil, err
	}
	return health, nil
}

// PutRecordShard :
func (r *redisStore) PutRecordShard(ctx context.Context, recordID string, shardID string) error {
	return r.client.Set(ctx, r.key(RecordShardKey, recordID), shardID, r.recordTTL).Err()
}

// GetRecordShard :
func (r *redisStore) GetRecordShard(ctx context.Context, recordID string) (string, error) {
	res, err := r.client.Get(ctx, r.key(RecordShardKey, recordID)).Result()
	if err != nil {
		if err == goRedis.Nil {
			return "", nil
		}
		return "", err
	}
	return res, nil
}

// Close :
func (r *redisStore) Close() error {
	return r.client.Close()
}
