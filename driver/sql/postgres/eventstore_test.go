//go:build unit
// +build unit

package postgres_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/driver/sql/postgres"
	"github.com/hellofresh/bankengine/internal/test"
	"github.com/hellofresh/bankengine/metadata"
	strategyPostgres "github.com/hellofresh/bankengine/strategy/json/sql/postgres"
)

const (
	streamName  = bankengine.StreamName("bank")
	lockQuery   = `SELECT pg_advisory_xact_lock(hashtext($1))`
	maxQuery    = `SELECT COALESCE(MAX(aggregate_version), -1) FROM "events_bank" WHERE aggregate_id = $1 AND aggregate_type = $2`
	insertQuery = `INSERT INTO "events_bank" (event_id, event_name, payload, metadata, aggregate_type, aggregate_id, aggregate_version, created_at) VALUES `
)

type fundsDeposited struct {
	Amount string `json:"amount"`
}

func newEventStore(t *testing.T, db *sql.DB) *postgres.EventStore {
	manager, err := strategyPostgres.NewSingleStreamManager(db, nil)
	require.NoError(t, err)
	require.NoError(t, manager.PayloadTransformer().RegisterPayload("FundsDeposited", func() interface{} {
		return fundsDeposited{}
	}))

	store, err := manager.NewEventStore()
	require.NoError(t, err)

	return store
}

func newChange(t *testing.T, id aggregate.ID, version int) bankengine.Message {
	change, err := aggregate.ReconstituteChange(
		id,
		bankengine.GenerateUUID(),
		fundsDeposited{Amount: "10.00"},
		metadata.New(),
		time.Now().UTC(),
		version,
	)
	require.NoError(t, err)

	return change.
		WithMetadata(aggregate.IDKey, string(id)).
		WithMetadata(aggregate.TypeKey, "account").
		WithMetadata(aggregate.VersionKey, version)
}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func TestNewEventStore(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	manager, err := strategyPostgres.NewSingleStreamManager(db, nil)
	require.NoError(t, err)
	factoryStore, err := manager.NewEventStore()
	require.NoError(t, err)
	assert.NotNil(t, factoryStore)

	_, err = postgres.NewEventStore(nil, db, nil, nil)
	assert.Equal(t, bankengine.InvalidArgumentError("persistenceStrategy"), err)

	_, err = postgres.NewEventStore(manager.PersistenceStrategy(), nil, nil, nil)
	assert.Equal(t, bankengine.InvalidArgumentError("db"), err)

	_, err = postgres.NewEventStore(manager.PersistenceStrategy(), db, nil, nil)
	assert.Equal(t, bankengine.InvalidArgumentError("messageFactory"), err)
}

func TestEventStore_AppendTo(t *testing.T) {
	ctx := context.Background()
	id := aggregate.GenerateID()
	lockKey := "account:" + string(id)

	test.RunWithMockDB(t, "append to a new aggregate", func(t *testing.T, db *sql.DB, dbMock sqlmock.Sqlmock) {
		dbMock.ExpectBegin()
		dbMock.ExpectExec(lockQuery).WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))
		dbMock.ExpectQuery(maxQuery).WithArgs(string(id), "account").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(-1))
		dbMock.ExpectExec(insertQuery + `($1,$2,$3,$4,$5,$6,$7,$8),($9,$10,$11,$12,$13,$14,$15,$16)`).
			WithArgs(anyArgs(16)...).
			WillReturnResult(sqlmock.NewResult(0, 2))
		dbMock.ExpectCommit()

		store := newEventStore(t, db)
		err := store.AppendTo(ctx, streamName, []bankengine.Message{newChange(t, id, 0), newChange(t, id, 1)})

		assert.NoError(t, err)
	})

	test.RunWithMockDB(t, "stale expected version", func(t *testing.T, db *sql.DB, dbMock sqlmock.Sqlmock) {
		dbMock.ExpectBegin()
		dbMock.ExpectExec(lockQuery).WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))
		dbMock.ExpectQuery(maxQuery).WithArgs(string(id), "account").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(4))
		dbMock.ExpectRollback()

		store := newEventStore(t, db)
		err := store.AppendTo(ctx, streamName, []bankengine.Message{newChange(t, id, 4)})

		assert.Equal(t, &bankengine.ConcurrencyConflictError{
			AggregateType: "account",
			AggregateID:   string(id),
			Expected:      3,
			Actual:        4,
		}, err)
		assert.True(t, errors.Is(err, bankengine.ErrConcurrencyConflict))
	})

	test.RunWithMockDB(t, "unique violation is a conflict", func(t *testing.T, db *sql.DB, dbMock sqlmock.Sqlmock) {
		dbMock.ExpectBegin()
		dbMock.ExpectExec(lockQuery).WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))
		dbMock.ExpectQuery(maxQuery).WithArgs(string(id), "account").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(1))
		dbMock.ExpectExec(insertQuery + `($1,$2,$3,$4,$5,$6,$7,$8)`).
			WithArgs(anyArgs(8)...).
			WillReturnError(&pq.Error{Code: "23505"})
		dbMock.ExpectRollback()
		dbMock.ExpectQuery(maxQuery).WithArgs(string(id), "account").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(2))

		store := newEventStore(t, db)
		err := store.AppendTo(ctx, streamName, []bankengine.Message{newChange(t, id, 2)})

		assert.Equal(t, &bankengine.ConcurrencyConflictError{
			AggregateType: "account",
			AggregateID:   string(id),
			Expected:      1,
			Actual:        2,
		}, err)
		assert.True(t, errors.Is(err, bankengine.ErrConcurrencyConflict))
	})

	test.RunWithMockDB(t, "unique violation with an unreadable version reports it as unknown", func(t *testing.T, db *sql.DB, dbMock sqlmock.Sqlmock) {
		dbMock.ExpectBegin()
		dbMock.ExpectExec(lockQuery).WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))
		dbMock.ExpectQuery(maxQuery).WithArgs(string(id), "account").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(1))
		dbMock.ExpectExec(insertQuery + `($1,$2,$3,$4,$5,$6,$7,$8)`).
			WithArgs(anyArgs(8)...).
			WillReturnError(&pq.Error{Code: "23505"})
		dbMock.ExpectRollback()
		dbMock.ExpectQuery(maxQuery).WithArgs(string(id), "account").
			WillReturnError(errors.New("connection reset"))

		store := newEventStore(t, db)
		err := store.AppendTo(ctx, streamName, []bankengine.Message{newChange(t, id, 2)})

		assert.Equal(t, &bankengine.ConcurrencyConflictError{
			AggregateType: "account",
			AggregateID:   string(id),
			Expected:      1,
			Actual:        -1,
		}, err)
	})

	test.RunWithMockDB(t, "insert failure is returned", func(t *testing.T, db *sql.DB, dbMock sqlmock.Sqlmock) {
		insertErr := errors.New("connection reset")

		dbMock.ExpectBegin()
		dbMock.ExpectExec(lockQuery).WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))
		dbMock.ExpectQuery(maxQuery).WithArgs(string(id), "account").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(-1))
		dbMock.ExpectExec(insertQuery + `($1,$2,$3,$4,$5,$6,$7,$8)`).
			WithArgs(anyArgs(8)...).
			WillReturnError(insertErr)
		dbMock.ExpectRollback()

		store := newEventStore(t, db)
		err := store.AppendTo(ctx, streamName, []bankengine.Message{newChange(t, id, 0)})

		assert.Equal(t, insertErr, err)
	})

	test.RunWithMockDB(t, "non contiguous versions never reach the database", func(t *testing.T, db *sql.DB, dbMock sqlmock.Sqlmock) {
		store := newEventStore(t, db)
		err := store.AppendTo(ctx, streamName, []bankengine.Message{newChange(t, id, 0), newChange(t, id, 2)})

		assert.Error(t, err)
	})

	test.RunWithMockDB(t, "nothing to append", func(t *testing.T, db *sql.DB, dbMock sqlmock.Sqlmock) {
		store := newEventStore(t, db)

		assert.NoError(t, store.AppendTo(ctx, streamName, nil))
	})
}

func TestEventStore_Load(t *testing.T) {
	ctx := context.Background()
	id := aggregate.GenerateID()

	test.RunWithMockDB(t, "load an aggregate stream", func(t *testing.T, db *sql.DB, dbMock sqlmock.Sqlmock) {
		eventID := bankengine.GenerateUUID()
		createdAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		meta := `{"_aggregate_id":"` + string(id) + `","_aggregate_type":"account","_aggregate_version":0}`

		dbMock.ExpectQuery(`SELECT no, event_id, event_name, payload, metadata, created_at FROM "events_bank" WHERE no >= $1 AND aggregate_type = $2 AND aggregate_id = $3 ORDER BY no`).
			WithArgs(int64(1), "account", string(id)).
			WillReturnRows(
				sqlmock.NewRows([]string{"no", "event_id", "event_name", "payload", "metadata", "created_at"}).
					AddRow(int64(5), eventID.String(), "FundsDeposited", []byte(`{"amount":"10.00"}`), []byte(meta), createdAt),
			)

		matcher := metadata.NewMatcher()
		matcher = metadata.WithConstraint(matcher, aggregate.TypeKey, metadata.Equals, "account")
		matcher = metadata.WithConstraint(matcher, aggregate.IDKey, metadata.Equals, string(id))

		store := newEventStore(t, db)
		stream, err := store.Load(ctx, streamName, 1, nil, matcher)
		require.NoError(t, err)
		defer stream.Close()

		messages, numbers, err := bankengine.ReadEventStream(stream)
		require.NoError(t, err)

		require.Len(t, messages, 1)
		assert.Equal(t, []int64{5}, numbers)
		assert.Equal(t, eventID, messages[0].UUID())
		assert.Equal(t, fundsDeposited{Amount: "10.00"}, messages[0].Payload())
		assert.Equal(t, 0, messages[0].(*aggregate.Changed).Version())
	})

	test.RunWithMockDB(t, "limit the number of events", func(t *testing.T, db *sql.DB, dbMock sqlmock.Sqlmock) {
		dbMock.ExpectQuery(`SELECT no, event_id, event_name, payload, metadata, created_at FROM "events_bank" WHERE no >= $1 ORDER BY no LIMIT 10`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"no", "event_id", "event_name", "payload", "metadata", "created_at"}))

		count := uint(10)
		store := newEventStore(t, db)
		stream, err := store.Load(ctx, streamName, 3, &count, nil)
		require.NoError(t, err)

		messages, _, err := bankengine.ReadEventStream(stream)
		require.NoError(t, err)
		assert.Empty(t, messages)
		assert.NoError(t, stream.Close())
	})
}

func TestEventStore_Create(t *testing.T) {
	ctx := context.Background()
	existsQuery := `SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`

	test.RunWithMockDB(t, "create the stream table", func(t *testing.T, db *sql.DB, dbMock sqlmock.Sqlmock) {
		dbMock.ExpectQuery(existsQuery).WithArgs("events_bank").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		dbMock.ExpectBegin()

		store := newEventStore(t, db)
		manager, err := strategyPostgres.NewSingleStreamManager(db, nil)
		require.NoError(t, err)
		for _, q := range manager.PersistenceStrategy().CreateSchema("events_bank") {
			dbMock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))
		}
		dbMock.ExpectCommit()

		assert.NoError(t, store.Create(ctx, streamName))
	})

	test.RunWithMockDB(t, "table already exists", func(t *testing.T, db *sql.DB, dbMock sqlmock.Sqlmock) {
		dbMock.ExpectQuery(existsQuery).WithArgs("events_bank").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		store := newEventStore(t, db)

		assert.Equal(t, postgres.ErrTableAlreadyExists, store.Create(ctx, streamName))
	})
}
