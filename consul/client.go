// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package consul

import (
	"strings"

	"github.com/hashicorp/consul/api"
	"github.com/hashicorp/consul/api/watch"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
)

// TLSConfig consul客户端证书配置
type TLSConfig struct {
	CAFile     string
	CertFile   string
	KeyFile    string
	SkipVerify bool
}

// Client consul KV读写与目录监听
type Client interface {
	Get(path string) (*api.KVPair, error)
	GetPrefix(prefix string) (api.KVPairs, error)
	Put(path string, value []byte) error
	Delete(path string) error
	Watch(prefix string) (<-chan interface{}, error)
	Close() error
}

// BasicClient 标准consul读写
type BasicClient struct {
	kv        *api.KV
	address   string
	tlsConfig *TLSConfig

	watchPlanMap map[string]*watch.Plan
	outChanMap   map[string]chan interface{}
}

// NewBasicClient 传入的address应符合IP:Port的结构，例如: 127.0.0.1:8500
var NewBasicClient = func(address string, tlsConfig *TLSConfig) (Client, error) {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module": moduleName,
	})
	flowLog.Debugf("called")
	client := &BasicClient{
		address:      address,
		tlsConfig:    tlsConfig,
		watchPlanMap: make(map[string]*watch.Plan),
		outChanMap:   make(map[string]chan interface{}),
	}
	conf := client.apiConfig()
	apiClient, err := api.NewClient(conf)
	if err != nil {
		return nil, err
	}
	client.kv = apiClient.KV()
	flowLog.Debugf("done")
	return client, nil
}

func (bc *BasicClient) apiConfig() *api.Config {
	conf := api.DefaultConfig()
	conf.Address = bc.address
	if bc.tlsConfig != nil {
		conf.TLSConfig.InsecureSkipVerify = bc.tlsConfig.SkipVerify
		conf.TLSConfig.CAFile = bc.tlsConfig.CAFile
		conf.TLSConfig.CertFile = bc.tlsConfig.CertFile
		conf.TLSConfig.KeyFile = bc.tlsConfig.KeyFile
	}
	return conf
}

// Get 返回指定key的单个value
func (bc *BasicClient) Get(path string) (*api.KVPair, error) {
	kvPair, _, err := bc.kv.Get(path, nil)
	if err != nil {
		return nil, err
	}
	return kvPair, nil
}

// GetPrefix 获取指定目录下所有的数据
func (bc *BasicClient) GetPrefix(prefix string) (api.KVPairs, error) {
	if prefix == "" {
		return nil, ErrEmptyPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	kvPairs, _, err := bc.kv.List(prefix, nil)
	if err != nil {
		return nil, err
	}
	return kvPairs, nil
}

// Put 写入数据
func (bc *BasicClient) Put(path string, value []byte) error {
	pair := &api.KVPair{Key: path, Value: value}
	_, err := bc.kv.Put(pair, nil)
	return err
}

// Delete 删除数据
func (bc *BasicClient) Delete(path string) error {
	_, err := bc.kv.Delete(path, nil)
	return err
}

// Watch 监听目录，返回信号通道，重复监听同一目录复用已有通道
func (bc *BasicClient) Watch(prefix string) (<-chan interface{}, error) {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module": moduleName,
	})
	if existing, ok := bc.outChanMap[prefix]; ok {
		return existing, nil
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	plan, err := watch.Parse(map[string]interface{}{
		"stale":  false,
		"type":   "keyprefix",
		"prefix": prefix,
	})
	if err != nil {
		return nil, err
	}
	outChan := make(chan interface{})
	plan.Handler = func(num uint64, data interface{}) {
		outChan <- data
	}
	go func() {
		defer func() {
			close(outChan)
			flowLog.Debugf("outChan closed")
		}()
		if err := plan.RunWithConfig(bc.address, bc.apiConfig()); err != nil {
			flowLog.Errorf("watch plan run failed,error:%s", err)
			if !plan.IsStopped() {
				plan.Stop()
			}
		}
	}()
	bc.watchPlanMap[prefix] = plan
	bc.outChanMap[prefix] = outChan
	return outChan, nil
}

// Close 停止该client下的所有监听
func (bc *BasicClient) Close() error {
	for path, plan := range bc.watchPlanMap {
		if !plan.IsStopped() {
			plan.Stop()
		}
		delete(bc.watchPlanMap, path)
	}
	return nil
}
