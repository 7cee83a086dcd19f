// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package errors

import (
	stderrors "errors"
	"fmt"
)

// 对外暴露的机器可读错误码
const (
	CodeShardingFailed     = "SHARDING_FAILED"
	CodeRebalanceFailed    = "REBALANCE_FAILED"
	CodeQueryRoutingFailed = "QUERY_ROUTING_FAILED"
)

// ShardingError 分片引擎的基础错误类型，携带可选的shard id和错误码
type ShardingError struct {
	Code    string
	ShardID string
	Message string
	cause   error
}

func (e *ShardingError) Error() string {
	if e.ShardID != "" {
		return fmt.Sprintf("%s: shard->[%s] %s", e.Code, e.ShardID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is/As链式匹配
func (e *ShardingError) Unwrap() error {
	return e.cause
}

// Cause 兼容pkg/errors的Cause链
func (e *ShardingError) Cause() error {
	return e.cause
}

// RebalanceError 仅由rebalance操作内部抛出，必定携带source shard id
type RebalanceError struct {
	ShardingError
}

// QueryRoutingError 没有任何shard/连接可以满足路由请求时抛出
type QueryRoutingError struct {
	ShardingError
}

// NewShardingError :
func NewShardingError(shardID string, format string, args ...interface{}) *ShardingError {
	return &ShardingError{
		Code:    CodeShardingFailed,
		ShardID: shardID,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewRebalanceError :
func NewRebalanceError(shardID string, cause error, format string, args ...interface{}) *RebalanceError {
	return &RebalanceError{
		ShardingError: ShardingError{
			Code:    CodeRebalanceFailed,
			ShardID: shardID,
			Message: fmt.Sprintf(format, args...),
			cause:   cause,
		},
	}
}

// NewQueryRoutingError :
func NewQueryRoutingError(shardID string, format string, args ...interface{}) *QueryRoutingError {
	return &QueryRoutingError{
		ShardingError: ShardingError{
			Code:    CodeQueryRoutingFailed,
			ShardID: shardID,
			Message: fmt.Sprintf(format, args...),
		},
	}
}

// IsQueryRoutingError :
func IsQueryRoutingError(err error) bool {
	var target *QueryRoutingError
	return stderrors.As(err, &target)
}

// IsRebalanceError :
func IsRebalanceError(err error) bool {
	var target *RebalanceError
	return stderrors.As(err, &target)
}
