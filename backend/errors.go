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
	"github.com/pkg/errors"
)

// :
var (
	ErrUnknownProtocol = errors.New("unknown backend protocol")
	ErrClosed          = errors.New("backend is closed")
	ErrDoPing          = errors.New("do ping failed")
	ErrDoQuery         = errors.New("do query failed")
	ErrDoExec          = errors.New("do exec failed")
	ErrNetwork         = errors.New("network error")
	ErrMissingTable    = errors.New("missing table name")
)
