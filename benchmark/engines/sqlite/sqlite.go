package sqlite

import (
	"errors"
	"fmt"

	engine "crudbench/benchmark/engines/abstract"
	"crudbench/config"
	"crudbench/errs"

	"github.com/mattn/go-sqlite3"
)

type SQLite struct{}

func New() *SQLite {
	return &SQLite{}
}

func (*SQLite) Name() string       { return "sqlite" }
func (*SQLite) DriverName() string { return "sqlite3" }

func (*SQLite) DSN(conn config.Connection) string {
	return conn.Path + "?_busy_timeout=5000&_journal_mode=WAL"
}

func (*SQLite) Rebind(query string) string { return query }

// default SQLITE_MAX_VARIABLE_NUMBER of the bundled amalgamation
func (*SQLite) MaxParams() int { return 32766 }

func (*SQLite) QuoteIdent(name string) string {
	return `"` + name + `"`
}

// sqlite has no TRUNCATE; an unqualified DELETE uses the truncate optimization
func (s *SQLite) TruncateSQL(table string) string {
	return "DELETE FROM " + s.QuoteIdent(table)
}

func (s *SQLite) VacuumSQL(table string) []string {
	return []string{"VACUUM", "ANALYZE " + s.QuoteIdent(table)}
}

func (*SQLite) DecimalCast(expr string) string {
	return fmt.Sprintf("CAST(%s AS REAL)", expr)
}

func (*SQLite) Classify(err error) errs.Kind {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrConstraint:
			return errs.ConstraintViolation
		case sqlite3.ErrError, sqlite3.ErrMismatch, sqlite3.ErrSchema, sqlite3.ErrRange:
			return errs.SchemaMismatch
		case sqlite3.ErrTooBig:
			return errs.Encoding
		case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrNotADB, sqlite3.ErrCorrupt,
			sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrPerm, sqlite3.ErrAuth:
			return errs.Connectivity
		}
		return errs.Unknown
	}
	if kind, ok := engine.ClassifyTransport(err); ok {
		return kind
	}
	return errs.Unknown
}
