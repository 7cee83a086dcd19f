// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/common"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
)

// PingHandler 存活检查
func (httpService *Service) PingHandler(writer http.ResponseWriter, request *http.Request) {
	_, err := writer.Write([]byte("pong"))
	if err != nil {
		logging.StdLogger.Errorf("writer write failed,error:%s", err)
	}
}

// ShardsHandler 返回全部shard的观测快照，shard_id参数可过滤单个
func (httpService *Service) ShardsHandler(writer http.ResponseWriter, request *http.Request) {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module":  moduleName,
		"flow_id": common.NextFlowID(),
	})
	flowLog.Debugf("called")
	ShardsQueryCountInc()
	shardID := request.URL.Query().Get("shard_id")
	metrics := httpService.proxyService.GetShardMetrics(shardID)
	if shardID != "" && len(metrics) == 0 {
		writer.WriteHeader(outerFail)
		_, err := writer.Write([]byte(fmt.Sprintf(errTemplate, fmt.Sprintf("shard->[%s] not found", shardID))))
		if err != nil {
			flowLog.Errorf("writer write failed,error:%s", err)
		}
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(metrics); err != nil {
		flowLog.Errorf("encode shard metrics failed,error:%s", err)
		return
	}
	flowLog.Debugf("done")
}

// RebalanceHandler 手动触发一轮再平衡，GET查看操作记录
func (httpService *Service) RebalanceHandler(writer http.ResponseWriter, request *http.Request) {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module":  moduleName,
		"flow_id": common.NextFlowID(),
	})
	flowLog.Debugf("called")
	if request.Method == http.MethodPost {
		RebalanceTriggerCountInc()
		created := httpService.proxyService.ScheduleRebalancing()
		flowLog.Infof("manual rebalance triggered,%d operations scheduled", len(created))
		writer.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(writer).Encode(created); err != nil {
			flowLog.Errorf("encode operations failed,error:%s", err)
		}
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(httpService.proxyService.RebalanceOperations()); err != nil {
		flowLog.Errorf("encode operations failed,error:%s", err)
		return
	}
	flowLog.Debugf("done")
}

// PrintHandler 人读的状态汇总
func (httpService *Service) PrintHandler(writer http.ResponseWriter, request *http.Request) {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module":  moduleName,
		"flow_id": common.NextFlowID(),
	})
	flowLog.Infof("start to print proxy info")
	var str string
	for _, metrics := range httpService.proxyService.GetShardMetrics("") {
		str += fmt.Sprintf("shard:[%s] region:[%s] active:[%t] status:[%s] utilization:[%.2f]\n",
			metrics.ShardID, metrics.Region, metrics.Active, metrics.Health.Status, metrics.Utilization)
	}
	for _, op := range httpService.proxyService.RebalanceOperations() {
		str += op.String() + "\n"
	}
	_, err := writer.Write([]byte(str))
	if err != nil {
		flowLog.Errorf("writer write failed,error:%s", err)
		return
	}
	flowLog.Infof("print done")
}
