// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package common

// 分片路由配置项
const (
	ConfigKeyShardStrategy           = "shard.strategy"
	ConfigKeyShardDefaultConsistency = "shard.default_consistency"
	ConfigKeyShardReplicationFactor  = "shard.replication_factor"
	ConfigKeyShardStrictRouting      = "shard.strict_routing"
	ConfigKeyShardKeyFields          = "shard.key_fields"
	ConfigKeyShardConfigs            = "shard.configs"
)

// backend 配置项
const (
	ConfigKeyBackendTimeout = "backend.timeout"
)

// 健康检查配置项
const (
	ConfigKeyHealthPeriod           = "health.period"
	ConfigKeyHealthTimeout          = "health.timeout"
	ConfigKeyHealthLatencyThreshold = "health.latency_threshold"
)

// rebalance 配置项
const (
	ConfigKeyRebalancePeriod            = "rebalance.period"
	ConfigKeyRebalanceThreshold         = "rebalance.threshold"
	ConfigKeyRebalanceCriticalThreshold = "rebalance.critical_threshold"
	ConfigKeyRebalanceMoveFraction      = "rebalance.move_fraction"
	ConfigKeyRebalanceBatchSize         = "rebalance.batch_size"
	ConfigKeyRebalanceSubBatchSize      = "rebalance.sub_batch_size"
	ConfigKeyRebalanceRateLimit         = "rebalance.rate_limit"
	ConfigKeyRebalanceTables            = "rebalance.tables"
)

// 自动扩容配置项
const (
	ConfigKeyAutoScalingEnabled   = "autoscaling.enabled"
	ConfigKeyAutoScalingMinShards = "autoscaling.min_shards"
	ConfigKeyAutoScalingMaxShards = "autoscaling.max_shards"
	ConfigKeyAutoScalingMetrics   = "autoscaling.metrics"
)

// redis 元数据存储配置项
const (
	ConfigKeyRedisMode      = "redis.mode"
	ConfigKeyRedisAddress   = "redis.address"
	ConfigKeyRedisPassword  = "redis.password"
	ConfigKeyRedisDB        = "redis.db"
	ConfigKeyRedisPrefix    = "redis.prefix"
	ConfigKeyRedisShardTTL  = "redis.shard_ttl"
	ConfigKeyRedisHealthTTL = "redis.health_ttl"
	ConfigKeyRedisRecordTTL = "redis.record_ttl"
)

const (
	ConfigHTTPPort    = "http.port"
	ConfigHTTPAddress = "http.listen"

	ConfigKeyConsulAddress    = "consul.address"
	ConfigKeyConsulPrefix     = "consul.prefix"
	ConfigKeyConsulPeriod     = "consul.period"
	ConfigKeyConsulCACertFile = "consul.ca_file_path"
	ConfigKeyConsulCertFile   = "consul.cert_file_path"
	ConfigKeyConsulKeyFile    = "consul.key_file_path"
	ConfigKeyConsulSkipVerify = "consul.skip_verify"
)

// 日志配置项
const (
	ConfigKeyLoggingLevel        = "logging.level"
	ConfigKeyLoggingPath         = "logging.path"
	ConfigKeyLoggingMaxAge       = "logging.max_age"
	ConfigKeyLoggingRotationTime = "logging.rotation_time"
)
