// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Package http 管理面服务，只读视图+手动触发，不承载数据面流量
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/common"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/proxy"
)

var moduleName = "http"

const (
	success   = http.StatusOK
	noContent = http.StatusNoContent
	outerFail = http.StatusBadRequest
	innerFail = http.StatusInternalServerError
)

const errTemplate = `{"error":"%s"}`

// Service 管理面http服务
type Service struct {
	proxyService *proxy.Service
	server       *http.Server
	address      string
}

// NewService :
func NewService(proxyService *proxy.Service) *Service {
	address := fmt.Sprintf("%s:%d",
		common.Config.GetString(common.ConfigHTTPAddress),
		common.Config.GetInt(common.ConfigHTTPPort))
	httpService := &Service{
		proxyService: proxyService,
		address:      address,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", httpService.PingHandler)
	mux.HandleFunc("/shards", httpService.ShardsHandler)
	mux.HandleFunc("/rebalance", httpService.RebalanceHandler)
	mux.HandleFunc("/print", httpService.PrintHandler)
	mux.Handle("/metrics", promhttp.Handler())
	httpService.server = &http.Server{
		Addr:         address,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return httpService
}

// Start 阻塞监听，关闭时返回
func (httpService *Service) Start() error {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module": moduleName,
	})
	flowLog.Infof("http service listen on %s", httpService.address)
	err := httpService.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop :
func (httpService *Service) Stop(ctx context.Context) error {
	return httpService.server.Shutdown(ctx)
}
