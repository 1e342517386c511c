package mysql

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	engine "crudbench/benchmark/engines/abstract"
	"crudbench/config"
	"crudbench/errs"

	driver "github.com/go-sql-driver/mysql"
)

type MySQL struct{}

func New() *MySQL {
	return &MySQL{}
}

func (*MySQL) Name() string       { return "mysql" }
func (*MySQL) DriverName() string { return "mysql" }

func (*MySQL) DSN(conn config.Connection) string {
	port := conn.Port
	if port == 0 {
		port = 3306
	}
	cfg := driver.NewConfig()
	cfg.User = conn.User
	cfg.Passwd = conn.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(conn.Host, strconv.Itoa(port))
	cfg.DBName = conn.Database
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	// report matched rows for UPDATE, like the other engines do
	cfg.ClientFoundRows = true
	if conn.SSLMode == "require" {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}

func (*MySQL) Rebind(query string) string { return query }
func (*MySQL) MaxParams() int             { return 65535 }

func (*MySQL) QuoteIdent(name string) string {
	return "`" + name + "`"
}

func (m *MySQL) TruncateSQL(table string) string {
	return "TRUNCATE TABLE " + m.QuoteIdent(table)
}

func (m *MySQL) VacuumSQL(table string) []string {
	return []string{"ANALYZE TABLE " + m.QuoteIdent(table)}
}

func (*MySQL) DecimalCast(expr string) string {
	return fmt.Sprintf("CAST(%s AS DECIMAL(10, 2))", expr)
}

// Server error numbers, see the MySQL server error reference
const (
	erDupKey               = 1022
	erConCount             = 1040
	erDBAccessDenied       = 1044
	erAccessDenied         = 1045
	erBadNull              = 1048
	erBadDB                = 1049
	erServerShutdown       = 1053
	erBadField             = 1054
	erDupEntry             = 1062
	erParse                = 1064
	erNoSuchTable          = 1146
	erWrongValueCount      = 1136
	erAbortingConnection   = 1152
	erNetReadInterrupted   = 1159
	erNetWriteInterrupted  = 1161
	erNoReferencedRow      = 1216
	erRowIsReferenced      = 1217
	erWarnDataOutOfRange   = 1264
	erWarnDataTruncated    = 1265
	erTruncatedWrongValue  = 1292
	erInvalidCharacterStr  = 1300
	erNoDefaultForField    = 1364
	erTruncatedWrongValFld = 1366
	erDataTooLong          = 1406
	erRowIsReferenced2     = 1451
	erNoReferencedRow2     = 1452
	erDupEntryWithKeyName  = 1586
	erQueryInterrupted     = 3024
)

func (*MySQL) Classify(err error) errs.Kind {
	var myErr *driver.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case erDupKey, erDupEntry, erDupEntryWithKeyName, erBadNull,
			erNoReferencedRow, erRowIsReferenced, erRowIsReferenced2, erNoReferencedRow2:
			return errs.ConstraintViolation
		case erBadField, erNoSuchTable, erWrongValueCount, erParse, erNoDefaultForField,
			erWarnDataOutOfRange, erWarnDataTruncated, erTruncatedWrongValue, erDataTooLong:
			return errs.SchemaMismatch
		case erTruncatedWrongValFld, erInvalidCharacterStr:
			return errs.Encoding
		case erConCount, erDBAccessDenied, erAccessDenied, erBadDB, erServerShutdown,
			erAbortingConnection, erNetReadInterrupted, erNetWriteInterrupted, erQueryInterrupted:
			return errs.Connectivity
		}
		return errs.Unknown
	}
	if errors.Is(err, driver.ErrInvalidConn) {
		return errs.Connectivity
	}
	if kind, ok := engine.ClassifyTransport(err); ok {
		return kind
	}
	return errs.Unknown
}
