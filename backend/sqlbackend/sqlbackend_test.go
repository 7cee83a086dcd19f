// Tencent is pleased to support the open source community by making
// 蓝鲸智云 - 监控平台 (BlueKing - Monitor) available.
// Copyright (C) 2022 THL A29 Limited, a Tencent company. All rights reserved.
// Licensed under the MIT License (the "License"); you may not use this file except in compliance with the License.
// You may obtain a copy of the License at http://opensource.org/licenses/MIT
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package sqlbackend_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"testing"
	"time"

	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/suite"

	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/backend"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/backend/sqlbackend"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/errors"
	"github.com/TencentBlueKing/bkmonitor-datalink/pkg/shard-proxy/shard"
)

// fakeConn 内存驱动连接，各测试写入自己期望的返回
type fakeConn struct {
	result   driver.Result
	execErr  error
	columns  []string
	rows     [][]driver.Value
	queryErr error
	lastStmt string
	lastArgs []driver.NamedValue
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transaction not supported")
}

func (c *fakeConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.lastStmt = query
	c.lastArgs = args
	if c.execErr != nil {
		return nil, c.execErr
	}
	return c.result, nil
}

func (c *fakeConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.lastStmt = query
	c.lastArgs = args
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return &fakeRows{columns: c.columns, rows: c.rows}, nil
}

type fakeRows struct {
	columns []string
	rows    [][]driver.Value
	cursor  int
}

func (r *fakeRows) Columns() []string { return r.columns }

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.cursor >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.cursor])
	r.cursor++
	return nil
}

type fakeResult struct {
	affected    int64
	affectedErr error
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }

func (r *fakeResult) RowsAffected() (int64, error) { return r.affected, r.affectedErr }

type fakeDriver struct {
	conn *fakeConn
}

func (d *fakeDriver) Open(name string) (driver.Conn, error) { return d.conn, nil }

// 驱动只能注册一次，连接内容在SetupTest里重置
var sharedConn = &fakeConn{}

func init() {
	sql.Register("fakesql", &fakeDriver{conn: sharedConn})
}

type SQLBackendSuite struct {
	suite.Suite
	stubs   *gostub.Stubs
	backend backend.Backend
}

func TestSQLBackendSuite(t *testing.T) {
	suite.Run(t, new(SQLBackendSuite))
}

func (t *SQLBackendSuite) SetupTest() {
	*sharedConn = fakeConn{}
	t.stubs = gostub.Stub(&sqlbackend.OpenDB, func(driverName, dsn string) (*sql.DB, error) {
		return sql.Open("fakesql", dsn)
	})
	var err error
	t.backend, err = sqlbackend.NewSQLBackend(context.Background(), backend.MakeBasicConfig("s1", shard.ConnInfo{
		Username:   "root",
		DomainName: "127.0.0.1",
		Port:       3306,
		Database:   "proxy",
		Protocol:   "mysql",
	}, time.Second))
	t.Require().NoError(err)
}

func (t *SQLBackendSuite) TearDownTest() {
	t.NoError(t.backend.Close())
	t.stubs.Reset()
}

func (t *SQLBackendSuite) TestPing() {
	latency, err := t.backend.Ping(context.Background())
	t.NoError(err)
	t.GreaterOrEqual(latency, time.Duration(0))
}

func (t *SQLBackendSuite) TestExecAffectedRows() {
	sharedConn.result = &fakeResult{affected: 3}
	affected, err := t.backend.Exec(context.Background(), "DELETE FROM records WHERE id IN (?,?,?)", []interface{}{1, 2, 3})
	t.NoError(err)
	t.Equal(int64(3), affected)
	t.Equal("DELETE FROM records WHERE id IN (?,?,?)", sharedConn.lastStmt)
	t.Len(sharedConn.lastArgs, 3)
}

func (t *SQLBackendSuite) TestExecError() {
	sharedConn.execErr = errors.New("table is full")
	_, err := t.backend.Exec(context.Background(), "REPLACE INTO records (id) VALUES (?)", []interface{}{1})
	t.ErrorIs(err, backend.ErrDoExec)
}

func (t *SQLBackendSuite) TestExecRowsAffectedError() {
	// 驱动拿不到影响行数时必须报错，不能当成功返回0
	sharedConn.result = &fakeResult{affectedErr: errors.New("no affected rows info")}
	affected, err := t.backend.Exec(context.Background(), "DELETE FROM records WHERE id IN (?)", []interface{}{1})
	t.ErrorIs(err, backend.ErrDoExec)
	t.Equal(int64(0), affected)
}

func (t *SQLBackendSuite) TestQueryRows() {
	sharedConn.columns = []string{"id", "payload"}
	sharedConn.rows = [][]driver.Value{
		{int64(1), []byte("a")},
		{int64(2), []byte("b")},
	}
	result, err := t.backend.Query(context.Background(), "SELECT * FROM records", nil)
	t.Require().NoError(err)
	t.Equal(int64(2), result.Count)
	// []byte统一转成string方便上层合并
	t.Equal(backend.Row{"id": int64(1), "payload": "a"}, result.Rows[0])
	t.Equal(backend.Row{"id": int64(2), "payload": "b"}, result.Rows[1])
}

func (t *SQLBackendSuite) TestQueryError() {
	sharedConn.queryErr = errors.New("syntax error")
	_, err := t.backend.Query(context.Background(), "SELEC *", nil)
	t.ErrorIs(err, backend.ErrDoQuery)
}

func (t *SQLBackendSuite) TestBatchValidation() {
	_, err := t.backend.ReadBatch(context.Background(), "", 0, 10)
	t.ErrorIs(err, backend.ErrMissingTable)
	t.ErrorIs(t.backend.WriteBatch(context.Background(), "", nil), backend.ErrMissingTable)
	t.ErrorIs(t.backend.DeleteBatch(context.Background(), "", nil), backend.ErrMissingTable)

	// 空批次是no-op，不产生语句
	t.NoError(t.backend.WriteBatch(context.Background(), "records", nil))
	t.NoError(t.backend.DeleteBatch(context.Background(), "records", nil))
	t.Equal("", sharedConn.lastStmt)
}

func (t *SQLBackendSuite) TestWriteBatchStatement() {
	sharedConn.result = &fakeResult{affected: 2}
	err := t.backend.WriteBatch(context.Background(), "records", []backend.Row{
		{"id": 1, "payload": "a"},
		{"id": 2, "payload": "b"},
	})
	t.NoError(err)
	// 列按字典序展开，批量值对齐
	t.Equal("REPLACE INTO records (id,payload) VALUES (?,?),(?,?)", sharedConn.lastStmt)
	t.Len(sharedConn.lastArgs, 4)
}

func (t *SQLBackendSuite) TestClosed() {
	t.Require().NoError(t.backend.Close())
	_, err := t.backend.Ping(context.Background())
	t.ErrorIs(err, backend.ErrClosed)
	_, err = t.backend.Query(context.Background(), "SELECT 1", nil)
	t.ErrorIs(err, backend.ErrClosed)
	_, err = t.backend.Exec(context.Background(), "DELETE FROM records", nil)
	t.ErrorIs(err, backend.ErrClosed)
}
