// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package backend

import (
	"context"
	"sync"
)

// NewBackendFunc backend工厂函数，按协议名注册
type NewBackendFunc func(ctx context.Context, config *BasicConfig) (Backend, error)

var (
	factoryLock  sync.RWMutex
	backendFuncs = make(map[string]NewBackendFunc)
)

// RegisterBackend 注册backend工厂，由各实现包的init调用
func RegisterBackend(protocol string, newFunc NewBackendFunc) {
	factoryLock.Lock()
	defer factoryLock.Unlock()
	backendFuncs[protocol] = newFunc
}

// GetBackendFunc 获取指定协议的工厂，不存在返回nil
func GetBackendFunc(protocol string) NewBackendFunc {
	factoryLock.RLock()
	defer factoryLock.RUnlock()
	return backendFuncs[protocol]
}
