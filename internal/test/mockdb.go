//go:build unit
// +build unit

package test

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// RunWithMockDB runs f in a subtest with a sqlmock database that matches queries verbatim.
// Unmet expectations fail the subtest.
func RunWithMockDB(t *testing.T, name string, f func(t *testing.T, db *sql.DB, dbMock sqlmock.Sqlmock)) {
	t.Run(name, func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := dbMock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
			_ = db.Close()
		})

		f(t, db, dbMock)
	})
}
