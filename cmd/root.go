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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/common"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "shard-proxy",
	Short: "shard routing and rebalancing engine",
	Long:  "routes queries across database shards and rebalances data between them",
}

// Execute 执行命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("start shard-proxy failed,error:%s\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "", "path of service config file",
	)
}

func initConfig() {
	c := common.Config

	c.SetDefault(common.ConfigKeyShardStrategy, "hash")
	c.SetDefault(common.ConfigKeyShardDefaultConsistency, "eventual")
	c.SetDefault(common.ConfigKeyShardReplicationFactor, 1)
	c.SetDefault(common.ConfigKeyShardStrictRouting, false)

	c.SetDefault(common.ConfigKeyBackendTimeout, "30s")

	c.SetDefault(common.ConfigKeyHealthPeriod, "1m")
	c.SetDefault(common.ConfigKeyHealthTimeout, "5s")
	c.SetDefault(common.ConfigKeyHealthLatencyThreshold, "500ms")

	c.SetDefault(common.ConfigKeyRebalancePeriod, "5m")
	c.SetDefault(common.ConfigKeyRebalanceThreshold, 0.8)
	c.SetDefault(common.ConfigKeyRebalanceCriticalThreshold, 0.9)
	c.SetDefault(common.ConfigKeyRebalanceMoveFraction, 0.3)
	c.SetDefault(common.ConfigKeyRebalanceBatchSize, 1000)
	c.SetDefault(common.ConfigKeyRebalanceSubBatchSize, 100)
	c.SetDefault(common.ConfigKeyRebalanceRateLimit, 1000)
	c.SetDefault(common.ConfigKeyRebalanceTables, []string{"records"})

	c.SetDefault(common.ConfigKeyAutoScalingEnabled, false)
	c.SetDefault(common.ConfigKeyAutoScalingMinShards, 1)
	c.SetDefault(common.ConfigKeyAutoScalingMaxShards, 0)

	c.SetDefault(common.ConfigKeyRedisMode, "standalone")
	c.SetDefault(common.ConfigKeyRedisAddress, "127.0.0.1:6379")
	c.SetDefault(common.ConfigKeyRedisDB, 0)
	c.SetDefault(common.ConfigKeyRedisPrefix, "shard_proxy")
	c.SetDefault(common.ConfigKeyRedisShardTTL, "1h")
	c.SetDefault(common.ConfigKeyRedisHealthTTL, "5m")
	c.SetDefault(common.ConfigKeyRedisRecordTTL, "24h")

	c.SetDefault(common.ConfigHTTPPort, 10203)
	c.SetDefault(common.ConfigHTTPAddress, "0.0.0.0")

	c.SetDefault(common.ConfigKeyConsulPrefix, "shard_proxy")

	c.SetDefault(common.ConfigKeyLoggingLevel, "info")

	if configPath != "" {
		c.SetConfigFile(configPath)
		if err := c.ReadInConfig(); err != nil {
			fmt.Printf("read config file->[%s] failed,error:%s\n", configPath, err)
			os.Exit(1)
		}
	}
	logging.InitLogger()
}
