// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package sqlbackend

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/backend"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/logging"
)

var moduleName = "sqlbackend"

// OpenDB 连接构造入口，测试中替换为内存驱动
var OpenDB = sql.Open

// SQLBackend 基于database/sql的shard连接句柄，每个shard持有一个
// 底层虽然是连接池，这里收敛为单连接并内部串行，保证shard内的查询顺序
type SQLBackend struct {
	name    string
	db      *sql.DB
	timeout time.Duration
	// 串行化shard内的所有请求
	lock   sync.Mutex
	closed bool
}

// NewSQLBackend :
func NewSQLBackend(ctx context.Context, config *backend.BasicConfig) (backend.Backend, error) {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module":  moduleName,
		"backend": config.Name,
	})
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		config.Conn.Username, config.Conn.Password, config.Conn.DomainName, config.Conn.Port, config.Conn.Database)
	db, err := OpenDB("mysql", dsn)
	if err != nil {
		flowLog.Errorf("open connection failed,error:%s", err)
		return nil, err
	}
	// shard内请求串行，单连接即可
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &SQLBackend{
		name:    config.Name,
		db:      db,
		timeout: timeout,
	}, nil
}

// Name :
func (b *SQLBackend) Name() string {
	return b.name
}

func (b *SQLBackend) String() string {
	return fmt.Sprintf("sql_backend:[%s]", b.name)
}

// Ping 轻量存活探测，返回往返耗时
func (b *SQLBackend) Ping(ctx context.Context) (time.Duration, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return 0, backend.ErrClosed
	}
	pingCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	start := time.Now()
	if err := b.db.PingContext(pingCtx); err != nil {
		return time.Since(start), backend.ErrDoPing
	}
	return time.Since(start), nil
}

// Query :
func (b *SQLBackend) Query(ctx context.Context, stmt string, params []interface{}) (*backend.Result, error) {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module":  moduleName,
		"backend": b.name,
	})
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return nil, backend.ErrClosed
	}
	queryCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	rows, err := b.db.QueryContext(queryCtx, stmt, params...)
	if err != nil {
		flowLog.Errorf("query failed,error:%s", err)
		return nil, backend.ErrDoQuery
	}
	defer rows.Close()
	result, err := scanRows(rows)
	if err != nil {
		flowLog.Errorf("scan rows failed,error:%s", err)
		return nil, backend.ErrDoQuery
	}
	return result, nil
}

// Exec :
func (b *SQLBackend) Exec(ctx context.Context, stmt string, params []interface{}) (int64, error) {
	flowLog := logging.NewEntry(map[string]interface{}{
		"module":  moduleName,
		"backend": b.name,
	})
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return 0, backend.ErrClosed
	}
	execCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	result, err := b.db.ExecContext(execCtx, stmt, params...)
	if err != nil {
		flowLog.Errorf("exec failed,error:%s", err)
		return 0, backend.ErrDoExec
	}
	affected, err := result.RowsAffected()
	if err != nil {
		flowLog.Errorf("get rows affected failed,error:%s", err)
		return 0, backend.ErrDoExec
	}
	return affected, nil
}

// ReadBatch 按主键顺序读取一批记录
func (b *SQLBackend) ReadBatch(ctx context.Context, table string, offset, limit int) ([]backend.Row, error) {
	if table == "" {
		return nil, backend.ErrMissingTable
	}
	stmt := fmt.Sprintf("SELECT * FROM %s ORDER BY id LIMIT ? OFFSET ?", table)
	result, err := b.Query(ctx, stmt, []interface{}{limit, offset})
	if err != nil {
		return nil, err
	}
	return result.Rows, nil
}

// WriteBatch 以REPLACE写入，重复搬迁同一批记录是幂等的
func (b *SQLBackend) WriteBatch(ctx context.Context, table string, rows []backend.Row) error {
	if table == "" {
		return backend.ErrMissingTable
	}
	if len(rows) == 0 {
		return nil
	}
	columns := make([]string, 0, len(rows[0]))
	for column := range rows[0] {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	values := make([]string, 0, len(rows))
	params := make([]interface{}, 0, len(rows)*len(columns))
	for _, row := range rows {
		values = append(values, placeholders)
		for _, column := range columns {
			params = append(params, row[column])
		}
	}
	stmt := fmt.Sprintf("REPLACE INTO %s (%s) VALUES %s",
		table, strings.Join(columns, ","), strings.Join(values, ","))
	_, err := b.Exec(ctx, stmt, params)
	return err
}

// DeleteBatch 按主键删除一批记录
func (b *SQLBackend) DeleteBatch(ctx context.Context, table string, ids []interface{}) error {
	if table == "" {
		return backend.ErrMissingTable
	}
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", table, placeholders)
	_, err := b.Exec(ctx, stmt, ids)
	return err
}

// Close :
func (b *SQLBackend) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

func scanRows(rows *sql.Rows) (*backend.Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := &backend.Result{Rows: make([]backend.Row, 0)}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(backend.Row, len(columns))
		for i, column := range columns {
			// mysql驱动返回[]byte，统一转成string方便上层合并
			if raw, ok := values[i].([]byte); ok {
				row[column] = string(raw)
				continue
			}
			row[column] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result.Count = int64(len(result.Rows))
	return result, nil
}

func init() {
	backend.RegisterBackend("mysql", NewSQLBackend)
}
