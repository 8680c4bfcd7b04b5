// Package testutil provides a stub database/sql driver for postgres store tests.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"sync/atomic"
)

// Row is one stored row keyed by lower-case column name.
type Row map[string]any

// StubConn records statements and keeps tables in memory. Writes inside a
// transaction are staged and only become visible on commit. FailOn makes any
// statement containing the substring fail.
type StubConn struct {
	Execs      []string
	Tables     map[string][]Row
	FailPing   bool
	FailBegin  bool
	FailCommit bool
	FailOn     string
	Commits    int
	Rollbacks  int
	staged     map[string][]Row
}

var stubSeq atomic.Int64

// NewStubDB registers a uniquely named driver and opens a sql.DB on it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]Row)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	c.staged = make(map[string][]Row, len(c.Tables))
	for table, rows := range c.Tables {
		c.staged[table] = append([]Row(nil), rows...)
	}
	return &stubTx{conn: c}, nil
}

func (c *StubConn) target() map[string][]Row {
	if c.staged != nil {
		return c.staged
	}
	return c.Tables
}

// ExecContext implements driver.ExecerContext for CREATE, TRUNCATE and INSERT.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailOn != "" && strings.Contains(query, c.FailOn) {
		return nil, fmt.Errorf("exec fail: %s", c.FailOn)
	}
	trimmed := strings.TrimSpace(query)
	upper := strings.ToUpper(trimmed)
	tables := c.target()
	switch {
	case strings.HasPrefix(upper, "TRUNCATE TABLE"):
		for _, name := range strings.Split(trimmed[len("TRUNCATE TABLE"):], ",") {
			delete(tables, strings.ToLower(strings.TrimSpace(name)))
		}
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(upper, "INSERT INTO"):
		table, cols, err := parseInsert(trimmed)
		if err != nil {
			return nil, err
		}
		if len(cols) != len(args) {
			return nil, fmt.Errorf("column/arg mismatch for %s", table)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = args[i].Value
		}
		if strings.Contains(upper, "ON CONFLICT") {
			key := cols[0]
			kept := tables[table][:0:0]
			for _, existing := range tables[table] {
				if existing[key] != row[key] {
					kept = append(kept, existing)
				}
			}
			tables[table] = kept
		}
		tables[table] = append(tables[table], row)
		return driver.RowsAffected(1), nil
	default:
		return driver.RowsAffected(0), nil
	}
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	staged := t.conn.staged
	t.conn.staged = nil
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	t.conn.Tables = staged
	t.conn.Commits++
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.staged = nil
	t.conn.Rollbacks++
	return nil
}

func parseInsert(query string) (string, []string, error) {
	up := strings.ToUpper(query)
	intoIdx := strings.Index(up, "INTO ")
	if intoIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	table := strings.ToLower(strings.TrimSpace(rest[:open]))
	parts := strings.Split(rest[open+1:closeIdx], ",")
	cols := make([]string, 0, len(parts))
	for _, part := range parts {
		cols = append(cols, strings.ToLower(strings.TrimSpace(part)))
	}
	return table, cols, nil
}
