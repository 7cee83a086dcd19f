// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package route

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/common"
)

// 默认识别的主归属实体id字段，可由shard.key_fields覆盖
var defaultKeyFields = []string{"user_id", "owner_id", "entity_id", "record_id", "id"}

func keyFields() []string {
	fields := common.Config.GetStringSlice(common.ConfigKeyShardKeyFields)
	if len(fields) == 0 {
		return defaultKeyFields
	}
	return fields
}

// ExtractShardKey 从查询中提取分片键
// 提取不到可识别的id字段时返回错误，由路由层决定fallback还是报错
func ExtractShardKey(query string, params []interface{}) (*ShardKey, error) {
	stmt, err := sqlparser.Parse(query)
	if err != nil {
		return nil, ErrParseQuery
	}
	table := tableName(stmt)
	if table == "" {
		return nil, ErrTableNotFound
	}
	for _, field := range keyFields() {
		if value, ok := fieldValue(stmt, field, params); ok {
			return &ShardKey{Table: table, Value: value}, nil
		}
	}
	return nil, ErrKeyNotFound
}

// ExtractGeoPoint 从查询条件中提取经纬度点
func ExtractGeoPoint(query string, params []interface{}) (float64, float64, error) {
	stmt, err := sqlparser.Parse(query)
	if err != nil {
		return 0, 0, ErrParseQuery
	}
	var latStr, lngStr string
	for _, field := range []string{"lat", "latitude"} {
		if value, ok := fieldValue(stmt, field, params); ok {
			latStr = value
			break
		}
	}
	for _, field := range []string{"lng", "longitude"} {
		if value, ok := fieldValue(stmt, field, params); ok {
			lngStr = value
			break
		}
	}
	if latStr == "" || lngStr == "" {
		return 0, 0, ErrGeoPointNotFound
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, ErrGeoPointNotFound
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return 0, 0, ErrGeoPointNotFound
	}
	return lat, lng, nil
}

// ExtractVerb 轻量判断查询动词，解析失败归为other
func ExtractVerb(query string) Verb {
	stmt, err := sqlparser.Parse(query)
	if err != nil {
		return VerbOther
	}
	selectStmt, ok := stmt.(*sqlparser.Select)
	if !ok {
		return VerbOther
	}
	for _, selectExpr := range selectStmt.SelectExprs {
		aliased, ok := selectExpr.(*sqlparser.AliasedExpr)
		if !ok {
			continue
		}
		if funcExpr, ok := aliased.Expr.(*sqlparser.FuncExpr); ok {
			switch strings.ToLower(funcExpr.Name.String()) {
			case "count", "sum":
				return VerbAggregate
			}
		}
	}
	return VerbSelect
}

// tableName 取语句的主表名
func tableName(stmt sqlparser.Statement) string {
	switch node := stmt.(type) {
	case *sqlparser.Select:
		if len(node.From) == 0 {
			return ""
		}
		if expr, ok := node.From[0].(*sqlparser.AliasedTableExpr); ok {
			if name, ok := expr.Expr.(sqlparser.TableName); ok {
				return name.Name.String()
			}
		}
	case *sqlparser.Insert:
		return node.Table.Name.String()
	case *sqlparser.Update:
		if len(node.TableExprs) == 0 {
			return ""
		}
		if expr, ok := node.TableExprs[0].(*sqlparser.AliasedTableExpr); ok {
			if name, ok := expr.Expr.(sqlparser.TableName); ok {
				return name.Name.String()
			}
		}
	case *sqlparser.Delete:
		if len(node.TableExprs) == 0 {
			return ""
		}
		if expr, ok := node.TableExprs[0].(*sqlparser.AliasedTableExpr); ok {
			if name, ok := expr.Expr.(sqlparser.TableName); ok {
				return name.Name.String()
			}
		}
	}
	return ""
}

// fieldValue 在语句中按字段名找等值条件的值
func fieldValue(stmt sqlparser.Statement, field string, params []interface{}) (string, bool) {
	switch node := stmt.(type) {
	case *sqlparser.Select:
		if node.Where != nil {
			return exprFieldValue(node.Where.Expr, field, params)
		}
	case *sqlparser.Update:
		if node.Where != nil {
			return exprFieldValue(node.Where.Expr, field, params)
		}
	case *sqlparser.Delete:
		if node.Where != nil {
			return exprFieldValue(node.Where.Expr, field, params)
		}
	case *sqlparser.Insert:
		return insertFieldValue(node, field, params)
	}
	return "", false
}

// exprFieldValue 递归遍历where表达式，只认等号条件
func exprFieldValue(expr sqlparser.Expr, field string, params []interface{}) (string, bool) {
	switch node := expr.(type) {
	case *sqlparser.ParenExpr:
		return exprFieldValue(node.Expr, field, params)
	case *sqlparser.AndExpr:
		if value, ok := exprFieldValue(node.Left, field, params); ok {
			return value, true
		}
		return exprFieldValue(node.Right, field, params)
	case *sqlparser.OrExpr:
		if value, ok := exprFieldValue(node.Left, field, params); ok {
			return value, true
		}
		return exprFieldValue(node.Right, field, params)
	case *sqlparser.ComparisonExpr:
		if node.Operator != sqlparser.EqualStr {
			return "", false
		}
		name, ok := node.Left.(*sqlparser.ColName)
		if !ok {
			return "", false
		}
		if name.Name.Lowered() != strings.ToLower(field) {
			return "", false
		}
		return exprValue(node.Right, params)
	}
	return "", false
}

// insertFieldValue insert语句按列位置取值
func insertFieldValue(node *sqlparser.Insert, field string, params []interface{}) (string, bool) {
	values, ok := node.Rows.(sqlparser.Values)
	if !ok || len(values) == 0 {
		return "", false
	}
	for i, column := range node.Columns {
		if column.Lowered() != strings.ToLower(field) {
			continue
		}
		if i >= len(values[0]) {
			return "", false
		}
		return exprValue(values[0][i], params)
	}
	return "", false
}

// exprValue 字面量直接取值，占位符回到params按位取值
func exprValue(expr sqlparser.Expr, params []interface{}) (string, bool) {
	value, ok := expr.(*sqlparser.SQLVal)
	if !ok {
		return "", false
	}
	switch value.Type {
	case sqlparser.StrVal, sqlparser.IntVal, sqlparser.FloatVal:
		return string(value.Val), true
	case sqlparser.ValArg:
		// sqlparser把?改写为:v1、:v2...
		index, err := strconv.Atoi(strings.TrimPrefix(string(value.Val), ":v"))
		if err != nil || index < 1 || index > len(params) {
			return "", false
		}
		return fmt.Sprintf("%v", params[index-1]), true
	}
	return "", false
}
