//go:build integration
// +build integration

package test

import (
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"testing"

	"github.com/lib/pq"
)

var dbNamePattern = regexp.MustCompile(`dbname=(((\\ )|[^ ])+)`)

// PostgresSuite a Suite that creates a fresh database before every test and drops it afterwards.
// The database is configured with the POSTGRES_DSN environment variable.
type PostgresSuite struct {
	Suite

	PostgresDSN string

	admin  *sql.DB
	db     *sql.DB
	dbName string
}

// SetupTest creates the test database
func (s *PostgresSuite) SetupTest() {
	s.Suite.SetupTest()

	dsn, adminDSN, dbName := parsePostgresDSN(s.T())
	s.PostgresDSN = dsn
	s.dbName = dbName

	admin, err := sql.Open("postgres", adminDSN)
	if err != nil {
		s.T().Fatalf("test.postgres: failed to connect to postgres db: %+v", err)
	}
	s.admin = admin

	s.dropDatabase()
	if _, err := s.admin.Exec(fmt.Sprintf(`CREATE DATABASE %s`, pq.QuoteIdentifier(s.dbName))); err != nil {
		s.T().Fatalf("test.postgres: failed to create database: %+v", err)
	}
}

// DB returns a database connection pool to the test database
func (s *PostgresSuite) DB() *sql.DB {
	if s.db == nil {
		var err error
		s.db, err = sql.Open("postgres", s.PostgresDSN)
		if err != nil {
			s.T().Fatalf("test.postgres: connection failed: %+v", err)
		}
	}

	return s.db
}

// TearDownTest drops the database created by SetupTest
func (s *PostgresSuite) TearDownTest() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.T().Errorf("test.postgres: connection failed to close: %+v", err)
		}
		s.db = nil
	}

	s.dropDatabase()
	if err := s.admin.Close(); err != nil {
		s.T().Errorf("test.postgres: admin connection failed to close: %+v", err)
	}

	s.Suite.TearDownTest()
}

func (s *PostgresSuite) dropDatabase() {
	// Terminate open connections so the drop does not block
	if _, err := s.admin.Exec(
		"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()",
		s.dbName,
	); err != nil {
		s.T().Fatalf("test.postgres: failed to terminate connections: %+v", err)
	}

	if _, err := s.admin.Exec(fmt.Sprintf(`DROP DATABASE IF EXISTS %s`, pq.QuoteIdentifier(s.dbName))); err != nil {
		s.T().Fatalf("test.postgres: failed to drop database: %+v", err)
	}
}

// parsePostgresDSN returns the test dsn, a dsn to the postgres maintenance database and the test database name
func parsePostgresDSN(t *testing.T) (string, string, string) {
	osDSN, exists := os.LookupEnv("POSTGRES_DSN")
	if !exists {
		t.Fatalf("test.postgres: missing POSTGRES_DSN environment variable")
	}

	dsn, err := pq.ParseURL(osDSN)
	if err != nil {
		t.Fatalf("test.postgres: failed to parse postgres dsn (%v)", err)
	}

	matches := dbNamePattern.FindStringSubmatchIndex(dsn)
	if matches == nil {
		t.Fatalf("test.postgres: postgres dsn has no database name")
	}

	return dsn, dsn[:matches[0]] + "dbname=postgres" + dsn[matches[1]:], dsn[matches[2]:matches[3]]
}
