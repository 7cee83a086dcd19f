// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package common

import (
	"sync/atomic"

	"github.com/spf13/viper"
)

// Config 全局配置入口，由cmd在启动时完成加载
var Config = viper.GetViper()

var flowID uint64

// NextFlowID 获取全局自增的flow id，用于日志内关联一次请求的全部处理路径
func NextFlowID() uint64 {
	return atomic.AddUint64(&flowID, 1)
}
