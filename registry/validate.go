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
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/errors"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

// validateShard 注册前的schema校验
func validateShard(record *shard.Shard) error {
	if record == nil {
		return errors.Wrap(ErrInvalidConfig, "record is nil")
	}
	if record.ID == "" {
		return errors.Wrap(ErrInvalidConfig, "empty shard id")
	}
	if record.Conn.DomainName == "" {
		return errors.Wrapf(ErrInvalidConfig, "shard->[%s] empty domain name", record.ID)
	}
	if record.Conn.Port <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "shard->[%s] invalid port:%d", record.ID, record.Conn.Port)
	}
	capacity := record.Capacity
	if capacity.MaxConnections < 0 || capacity.CurrentConnections < 0 ||
		capacity.MaxStorageBytes < 0 || capacity.CurrentStorageBytes < 0 {
		return errors.Wrapf(ErrInvalidConfig, "shard->[%s] negative capacity field", record.ID)
	}
	return nil
}
