// Package gateway owns the single connection to the relational store and its
// transaction lifecycle. Every error it returns is classified by the engine
// into the errs taxonomy.
package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	engine "crudbench/benchmark/engines/abstract"
	"crudbench/config"
	"crudbench/errs"

	zlog "github.com/rs/zerolog/log"
)

// Table is a read result: column names and the rows in result order.
type Table struct {
	Columns []string
	Rows    [][]any
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Gateway wraps one pinned connection. At most one transaction is open at any
// time and it is not safe for concurrent use.
type Gateway struct {
	engine engine.Engine
	db     *sql.DB
	conn   *sql.Conn
	tx     *sql.Tx
}

// Open connects to the store described by conn using the engine's driver.
func Open(ctx context.Context, conn config.Connection, eng engine.Engine) (*Gateway, error) {
	db, err := sql.Open(eng.DriverName(), eng.DSN(conn))
	if err != nil {
		return nil, errs.Wrap(errs.Connectivity, "open", "open "+eng.Name(), err)
	}
	g, err := New(ctx, db, eng)
	if err != nil {
		db.Close()
		return nil, err
	}
	return g, nil
}

// New pins a single connection from db. The gateway owns db afterwards and
// closes it in Close.
func New(ctx context.Context, db *sql.DB, eng engine.Engine) (*Gateway, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, connectError(eng, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, connectError(eng, err)
	}

	zlog.Debug().Str("engine", eng.Name()).Msg("connection pinned")
	return &Gateway{engine: eng, db: db, conn: conn}, nil
}

// any failure before the first statement means the store is unreachable
func connectError(eng engine.Engine, err error) error {
	return errs.Wrap(errs.Connectivity, "connect", "connect to "+eng.Name(), err)
}

func (g *Gateway) Engine() engine.Engine {
	return g.engine
}

func (g *Gateway) InTransaction() bool {
	return g.tx != nil
}

func (g *Gateway) Begin(ctx context.Context) error {
	if g.tx != nil {
		return errs.New(errs.InvalidArgument, "begin", "a transaction is already open")
	}
	tx, err := g.conn.BeginTx(ctx, nil)
	if err != nil {
		return g.fail("begin", err)
	}
	g.tx = tx
	return nil
}

func (g *Gateway) Commit() error {
	if g.tx == nil {
		return errs.New(errs.InvalidArgument, "commit", "no open transaction")
	}
	err := g.tx.Commit()
	g.tx = nil
	if err != nil {
		return g.fail("commit", err)
	}
	return nil
}

// Rollback aborts the open transaction. It is a no-op without one, so it can
// be called unconditionally on failure paths.
func (g *Gateway) Rollback() error {
	if g.tx == nil {
		return nil
	}
	err := g.tx.Rollback()
	g.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return g.fail("rollback", err)
	}
	return nil
}

// Execute runs one statement and returns the number of affected rows. It
// runs inside the open transaction when there is one.
func (g *Gateway) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	query = g.engine.Rebind(query)

	var result sql.Result
	var err error
	if g.tx != nil {
		result, err = g.tx.ExecContext(ctx, query, args...)
	} else {
		result, err = g.conn.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return 0, g.fail("execute", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, g.fail("execute", err)
	}
	return n, nil
}

// Query runs a read statement and returns every row. Byte slices are
// returned as strings.
func (g *Gateway) Query(ctx context.Context, query string, args ...any) (*Table, error) {
	query = g.engine.Rebind(query)

	var rows *sql.Rows
	var err error
	if g.tx != nil {
		rows, err = g.tx.QueryContext(ctx, query, args...)
	} else {
		rows, err = g.conn.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, g.fail("query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, g.fail("query", err)
	}

	table := &Table{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, g.fail("query", err)
		}
		for i, v := range values {
			values[i] = formatValue(v)
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, g.fail("query", err)
	}

	return table, nil
}

// Close rolls back any open transaction and releases the connection.
func (g *Gateway) Close() error {
	rbErr := g.Rollback()
	connErr := g.conn.Close()
	dbErr := g.db.Close()
	return errors.Join(rbErr, connErr, dbErr)
}

func (g *Gateway) fail(op string, err error) error {
	kind := g.engine.Classify(err)
	return errs.Wrap(kind, op, fmt.Sprintf("%s %s failed", g.engine.Name(), op), err)
}

func formatValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
