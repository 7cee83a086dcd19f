// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package logging

import (
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/common"
)

// Entry 日志条目，各模块通过NewEntry携带module/flow_id等字段输出流水日志
type Entry = logrus.Entry

var std = logrus.New()

// StdLogger 不带流水字段的全局logger，cmd等入口模块使用
var StdLogger = logrus.NewEntry(std)

// NewEntry 生成携带固定字段的日志条目
func NewEntry(fields map[string]interface{}) *Entry {
	return std.WithFields(logrus.Fields(fields))
}

// InitLogger 根据viper配置初始化全局日志，需要在配置加载之后调用
func InitLogger() error {
	levelStr := common.Config.GetString(common.ConfigKeyLoggingLevel)
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return err
	}
	std.SetLevel(level)
	std.SetFormatter(&logrus.JSONFormatter{})

	// 未配置路径则输出到标准输出
	path := common.Config.GetString(common.ConfigKeyLoggingPath)
	if path == "" {
		return nil
	}
	maxAge := common.Config.GetDuration(common.ConfigKeyLoggingMaxAge)
	if maxAge == 0 {
		maxAge = 7 * 24 * time.Hour
	}
	rotationTime := common.Config.GetDuration(common.ConfigKeyLoggingRotationTime)
	if rotationTime == 0 {
		rotationTime = 24 * time.Hour
	}
	writer, err := rotatelogs.New(
		path+".%Y%m%d",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(rotationTime),
	)
	if err != nil {
		return err
	}
	std.SetOutput(writer)
	return nil
}
