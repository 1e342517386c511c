package postgres

import (
	"errors"
	"fmt"
	"strings"

	engine "crudbench/benchmark/engines/abstract"
	"crudbench/config"
	"crudbench/errs"

	"github.com/lib/pq"
)

type Postgres struct{}

func New() *Postgres {
	return &Postgres{}
}

func (*Postgres) Name() string       { return "postgres" }
func (*Postgres) DriverName() string { return "postgres" }

func (*Postgres) DSN(conn config.Connection) string {
	port := conn.Port
	if port == 0 {
		port = 5432
	}
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteValue(conn.Host), port, quoteValue(conn.User), quoteValue(conn.Password),
		quoteValue(conn.Database), quoteValue(sslMode))
}

var valueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// keyword/value connection strings allow quoted values with backslash escapes
func quoteValue(v string) string {
	return "'" + valueEscaper.Replace(v) + "'"
}

func (*Postgres) Rebind(query string) string { return engine.RebindDollar(query) }
func (*Postgres) MaxParams() int             { return 65535 }

func (*Postgres) QuoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

func (p *Postgres) TruncateSQL(table string) string {
	return "TRUNCATE TABLE " + p.QuoteIdent(table)
}

func (p *Postgres) VacuumSQL(table string) []string {
	return []string{"VACUUM ANALYZE " + p.QuoteIdent(table)}
}

func (*Postgres) DecimalCast(expr string) string {
	return fmt.Sprintf("CAST(%s AS NUMERIC(10, 2))", expr)
}

func (*Postgres) Classify(err error) errs.Kind {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		// character_not_in_repertoire, untranslatable_character
		case "22021", "22P05":
			return errs.Encoding
		}
		switch pqErr.Code.Class() {
		case "23": // integrity constraint violation
			return errs.ConstraintViolation
		case "22", "42": // data exception, syntax error or access rule violation
			return errs.SchemaMismatch
		case "08", "28", "3D", "53", "57": // connection, auth, catalog, resources, operator intervention
			return errs.Connectivity
		}
		return errs.Unknown
	}
	if kind, ok := engine.ClassifyTransport(err); ok {
		return kind
	}
	return errs.Unknown
}
