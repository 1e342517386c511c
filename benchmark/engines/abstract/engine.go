package engine

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strconv"
	"strings"

	"crudbench/config"
	"crudbench/errs"
)

type Engine interface {
	// Name used in the config file and in the summary
	Name() string
	// database/sql driver name
	DriverName() string
	// Builds the driver connection string
	DSN(conn config.Connection) string
	// Rewrites '?' placeholders into the driver's bind syntax
	Rebind(query string) string
	// Maximum number of bind parameters in a single statement
	MaxParams() int
	// Quotes a table or column name
	QuoteIdent(name string) string
	// Statement that removes every row of a table
	TruncateSQL(table string) string
	// Statements that refresh storage and planner statistics for a table
	VacuumSQL(table string) []string
	// Casts a text expression to a two-decimal numeric type
	DecimalCast(expr string) string
	// Maps a driver error onto the failure taxonomy
	Classify(err error) errs.Kind
}

// ClassifyTransport recognizes failures that happen before the store answers:
// broken connections, dial errors and deadlines. They are the same for every
// driver.
func ClassifyTransport(err error) (errs.Kind, bool) {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return errs.Connectivity, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return errs.Connectivity, true
	}
	return "", false
}

// RebindDollar rewrites '?' placeholders as $1, $2, ... Quoted literals and
// identifiers are left untouched.
func RebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			b.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
