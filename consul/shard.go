// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Package consul 从consul KV拉取与监听shard配置
// 路径约定: <prefix>/shards/<shard_id> -> shard记录json
package consul

import (
	"context"
	"encoding/json"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

const shardBasePath = "shards"

var (
	moduleName   = "consul"
	consulClient Client
)

// TotalPrefix 所有的路径都有这个前缀，由于是通过viper获得，所以不能声明成const
var TotalPrefix string

// ShardPath shard配置目录
var ShardPath string

// Init 初始化操作，在调用consul包其他函数前应执行该函数
var Init = func(address string, prefix string, tlsConfig *TLSConfig) error {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module": moduleName,
	})
	flowLog.Debugf("called")
	TotalPrefix = prefix
	if TotalPrefix == "" {
		TotalPrefix = "shard_proxy"
	}
	ShardPath = TotalPrefix + "/" + shardBasePath
	var err error
	consulClient, err = NewBasicClient(address, tlsConfig)
	if err != nil {
		flowLog.Errorf("create consul client failed,error:%s", err)
		return err
	}
	flowLog.Debugf("done")
	return nil
}

// Release 释放client连接,关闭监听
var Release = func() error {
	if consulClient == nil {
		return nil
	}
	return consulClient.Close()
}

// GetAllShardsData 拉取全部shard配置
var GetAllShardsData = func() ([]*shard.Shard, error) {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module": moduleName,
	})
	flowLog.Debugf("called")
	kvPairs, err := consulClient.GetPrefix(ShardPath)
	if err != nil {
		flowLog.Errorf("get shard configs failed,error:%s", err)
		return nil, err
	}
	shards := make([]*shard.Shard, 0, len(kvPairs))
	for _, pair := range kvPairs {
		if len(pair.Value) == 0 {
			continue
		}
		record := new(shard.Shard)
		if err := json.Unmarshal(pair.Value, record); err != nil {
			// 单条配置坏了跳过，不拖垮整体
			flowLog.Warnf("unmarshal shard config->[%s] failed,error:%s", pair.Key, err)
			continue
		}
		shards = append(shards, record)
	}
	flowLog.Debugf("done,got %d shards", len(shards))
	return shards, nil
}

// PutShardData 写入单个shard配置
var PutShardData = func(record *shard.Shard) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return consulClient.Put(ShardPath+"/"+record.ID, data)
}

// DeleteShardData 删除单个shard配置
var DeleteShardData = func(shardID string) error {
	return consulClient.Delete(ShardPath + "/" + shardID)
}

// WatchShardChange 监听shard配置目录，每次变化传出一次信号
var WatchShardChange = func(ctx context.Context) (<-chan struct{}, error) {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module": moduleName,
	})
	flowLog.Debugf("called")
	kvChan, err := consulClient.Watch(ShardPath)
	if err != nil {
		return nil, err
	}
	signalChan := make(chan struct{})
	go func() {
		defer func() {
			close(signalChan)
			flowLog.Debugf("signalChan closed")
		}()
		for {
			select {
			case <-ctx.Done():
				flowLog.Debugf("ctx done")
				return
			case _, ok := <-kvChan:
				if !ok {
					return
				}
				signalChan <- struct{}{}
			}
		}
	}()
	flowLog.Debugf("done")
	return signalChan, nil
}
