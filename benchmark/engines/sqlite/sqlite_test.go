package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudbench/config"
	"crudbench/errs"
)

func TestClassify_FromRealDriverErrors(t *testing.T) {
	s := New()
	db, err := sql.Open(s.DriverName(), s.DSN(config.Connection{Path: filepath.Join(t.TempDir(), "c.db")}))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE games (id INTEGER PRIMARY KEY, name TEXT NOT NULL)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO games VALUES (1, 'Portal')")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO games VALUES (1, 'Portal 2')")
	require.Error(t, err)
	assert.Equal(t, errs.ConstraintViolation, s.Classify(err))

	_, err = db.Exec("INSERT INTO games (id, missing) VALUES (2, 'x')")
	require.Error(t, err)
	assert.Equal(t, errs.SchemaMismatch, s.Classify(err))

	_, err = db.Exec("INSERT INTO games (id, name) VALUES (3, NULL)")
	require.Error(t, err)
	assert.Equal(t, errs.ConstraintViolation, s.Classify(err))
}

func TestSQL(t *testing.T) {
	s := New()
	assert.Equal(t, `DELETE FROM "steam_games"`, s.TruncateSQL("steam_games"))
	assert.Equal(t, "CAST(x AS REAL)", s.DecimalCast("x"))
	assert.Equal(t, "sqlite3", s.DriverName())
}
