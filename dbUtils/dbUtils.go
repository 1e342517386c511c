package dbutils

import (
	"context"
	"fmt"
	"strconv"

	"crudbench/errs"
	"crudbench/gateway"
)

// Removes every row from the table, so the next insertion phase starts from the same state
func Truncate(ctx context.Context, gw *gateway.Gateway, table string) error {
	if gw.InTransaction() {
		return errs.New(errs.InvalidArgument, "truncate", "cannot truncate inside a transaction")
	}
	_, err := gw.Execute(ctx, gw.Engine().TruncateSQL(table))
	return errs.WithOp(err, "truncate")
}

// Returns the number of rows in the table
func RowCount(ctx context.Context, gw *gateway.Gateway, table string) (int64, error) {
	res, err := gw.Query(ctx, "SELECT COUNT(*) FROM "+gw.Engine().QuoteIdent(table))
	if err != nil {
		return 0, errs.WithOp(err, "row_count")
	}
	if res.Len() != 1 || len(res.Rows[0]) != 1 {
		return 0, errs.New(errs.SchemaMismatch, "row_count", "count returned no value")
	}
	return ToInt64(res.Rows[0][0])
}

// Vacuums and analyzes the table. Some engines refuse to vacuum inside a transaction.
func Vacuum(ctx context.Context, gw *gateway.Gateway, table string) error {
	if gw.InTransaction() {
		return errs.New(errs.InvalidArgument, "vacuum", "cannot vacuum inside a transaction")
	}
	for _, stmt := range gw.Engine().VacuumSQL(table) {
		// mysql's ANALYZE TABLE returns a status result set
		if _, err := gw.Query(ctx, stmt); err != nil {
			return errs.WithOp(err, "vacuum")
		}
	}
	return nil
}

// Converts a scanned integer value, which drivers may return as text
func ToInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, errs.Wrap(errs.SchemaMismatch, "row_count", "count is not an integer", err)
		}
		return i, nil
	}
	return 0, errs.New(errs.SchemaMismatch, "row_count", fmt.Sprintf("unexpected count type %T", v))
}
