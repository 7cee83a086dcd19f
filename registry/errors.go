// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package registry

import (
	"github.com/pkg/errors"
)

// 注册失败的错误同步返回给调用方，从不静默吞掉
var (
	ErrShardNotFound   = errors.New("shard not found")
	ErrShardConflict   = errors.New("shard id already exists with different connection")
	ErrProbeFailed     = errors.New("shard connection probe failed")
	ErrInvalidConfig   = errors.New("invalid shard config")
	ErrUnknownProtocol = errors.New("unknown backend protocol")
	ErrBackendNotExist = errors.New("backend not exist")
	ErrRegistryStopped = errors.New("registry already stopped")
)
