// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	// mysql backend在init里注册自己
	_ "github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/backend/sqlbackend"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/common"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/consul"
	proxyhttp "github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/http"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/proxy"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

// proxyCmd represents the proxy command
var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "start the shard proxy engine with the admin http service",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		rebalanceExisting, err := cmd.Flags().GetBool("rebalance")
		if err != nil {
			logging.StdLogger.Errorf("get rebalance flag failed,error:%s", err)
			return
		}

		service, err := proxy.NewService(ctx)
		if err != nil {
			logging.StdLogger.Errorf("create service failed,error:%s", err)
			return
		}

		shardConfigs := loadFileShards()
		consulEnabled := common.Config.GetString(common.ConfigKeyConsulAddress) != ""
		if consulEnabled {
			if err := initConsul(); err != nil {
				logging.StdLogger.Errorf("consul init failed,error:%s", err)
				return
			}
			consulShards, err := consul.GetAllShardsData()
			if err != nil {
				logging.StdLogger.Errorf("get consul shards failed,error:%s", err)
				return
			}
			shardConfigs = append(shardConfigs, consulShards...)
		}

		if err := service.Init(shardConfigs, rebalanceExisting); err != nil {
			logging.StdLogger.Errorf("init service failed,error:%s", err)
			service.Cleanup()
			return
		}

		if consulEnabled {
			if err := watchConsulShards(ctx, service); err != nil {
				logging.StdLogger.Errorf("watch consul shards failed,error:%s", err)
			}
		}

		httpService := proxyhttp.NewService(service)
		go func() {
			if err := httpService.Start(); err != nil {
				logging.StdLogger.Errorf("http service failed,error:%s", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logging.StdLogger.Infof("get signal:%s,start to shutdown", sig)
		case <-ctx.Done():
			logging.StdLogger.Infof("context done,start to shutdown")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpService.Stop(shutdownCtx); err != nil {
			logging.StdLogger.Errorf("stop http service failed,error:%s", err)
		}
		service.Cleanup()
		if consulEnabled {
			if err := consul.Release(); err != nil {
				logging.StdLogger.Errorf("release consul failed,error:%s", err)
			}
		}
		logging.StdLogger.Infof("shard-proxy exit")
	},
}

// loadFileShards 从配置文件读初始shard列表
// viper的map先转回json，让路由策略的信封解码生效
func loadFileShards() []*shard.Shard {
	raw := common.Config.Get(common.ConfigKeyShardConfigs)
	if raw == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		logging.StdLogger.Errorf("marshal shard configs failed,error:%s", err)
		return nil
	}
	var shards []*shard.Shard
	if err := json.Unmarshal(data, &shards); err != nil {
		logging.StdLogger.Errorf("unmarshal shard configs failed,error:%s", err)
		return nil
	}
	return shards
}

func initConsul() error {
	address := common.Config.GetString(common.ConfigKeyConsulAddress)
	prefix := common.Config.GetString(common.ConfigKeyConsulPrefix)
	tlsConfig := &consul.TLSConfig{
		CAFile:     common.Config.GetString(common.ConfigKeyConsulCACertFile),
		CertFile:   common.Config.GetString(common.ConfigKeyConsulCertFile),
		KeyFile:    common.Config.GetString(common.ConfigKeyConsulKeyFile),
		SkipVerify: common.Config.GetBool(common.ConfigKeyConsulSkipVerify),
	}
	return consul.Init(address, prefix, tlsConfig)
}

// watchConsulShards consul配置变化时增量刷新registry
func watchConsulShards(ctx context.Context, service *proxy.Service) error {
	signalChan, err := consul.WatchShardChange(ctx)
	if err != nil {
		return err
	}
	go func() {
		for range signalChan {
			consulShards, err := consul.GetAllShardsData()
			if err != nil {
				logging.StdLogger.Errorf("refresh consul shards failed,error:%s", err)
				continue
			}
			for _, record := range consulShards {
				if err := service.RegisterShard(record); err != nil {
					logging.StdLogger.Warnf("refresh shard->[%s] failed,error:%s", record.ID, err)
				}
			}
			logging.StdLogger.Infof("consul shard configs refreshed,%d shards", len(consulShards))
		}
	}()
	return nil
}

func init() {
	rootCmd.AddCommand(proxyCmd)
	proxyCmd.Flags().BoolP("rebalance", "r", false, "run a rebalance pass on startup")
}
