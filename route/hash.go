// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package route

// HashKey 分片键的32位稳定hash
// 固定活跃shard集合与固定key之下结果永远一致，这是hash路由确定性的根基
func HashKey(key string) uint32 {
	var h int32
	for _, c := range key {
		h = h<<5 - h + int32(c)
	}
	return uint32(h)
}
