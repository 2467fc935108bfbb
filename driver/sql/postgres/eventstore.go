package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/lib/pq"

	"github.com/hellofresh/bankengine"
	driverSQL "github.com/hellofresh/bankengine/driver/sql"
	"github.com/hellofresh/bankengine/internal/versioning"
	"github.com/hellofresh/bankengine/metadata"
)

// uniqueViolation is the postgres error code raised by the (aggregate_id, aggregate_type, aggregate_version) index
const uniqueViolation = "23505"

var (
	// ErrNoCreateTableQueries occurs when table create queries are not presented in the strategy
	ErrNoCreateTableQueries = errors.New("bankengine: create table queries are not provided")
	// ErrTableAlreadyExists occurs when table cannot be created as it exists already
	ErrTableAlreadyExists = errors.New("bankengine: table already exists")
	// ErrTableNameEmpty occurs when table cannot be created because it has an empty name
	ErrTableNameEmpty = errors.New("bankengine: table name could not be empty")

	_ bankengine.EventStore = &EventStore{}
)

// EventStore a in postgres event store implementation
type EventStore struct {
	persistenceStrategy driverSQL.PersistenceStrategy
	db                  *sql.DB
	messageFactory      driverSQL.MessageFactory
	columns             string
	eventColumns        string
	logger              bankengine.Logger

	placeholderMu             sync.Mutex
	preparedInsertPlaceholder map[int]string
}

// NewEventStore return a new postgres.EventStore
func NewEventStore(
	persistenceStrategy driverSQL.PersistenceStrategy,
	db *sql.DB,
	messageFactory driverSQL.MessageFactory,
	logger bankengine.Logger,
) (*EventStore, error) {
	switch {
	case persistenceStrategy == nil:
		return nil, bankengine.InvalidArgumentError("persistenceStrategy")
	case db == nil:
		return nil, bankengine.InvalidArgumentError("db")
	case messageFactory == nil:
		return nil, bankengine.InvalidArgumentError("messageFactory")
	}
	if logger == nil {
		logger = bankengine.NopLogger
	}

	return &EventStore{
		persistenceStrategy:       persistenceStrategy,
		db:                        db,
		messageFactory:            messageFactory,
		preparedInsertPlaceholder: make(map[int]string),
		columns:                   strings.Join(persistenceStrategy.ColumnNames(), ", "),
		eventColumns:              strings.Join(persistenceStrategy.EventColumnNames(), ", "),
		logger:                    logger,
	}, nil
}

// Create creates the database table, index etc needed for the event stream
func (e *EventStore) Create(ctx context.Context, streamName bankengine.StreamName) error {
	tableName, err := e.tableName(streamName)
	if err != nil {
		return err
	}

	if e.tableExists(ctx, tableName) {
		return ErrTableAlreadyExists
	}

	queries := e.persistenceStrategy.CreateSchema(tableName)
	if len(queries) == 0 {
		return ErrNoCreateTableQueries
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, q := range queries {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			e.rollback(tx, q)
			return err
		}
	}

	return tx.Commit()
}

// HasStream returns true if the table for the eventstream already exists
func (e *EventStore) HasStream(ctx context.Context, streamName bankengine.StreamName) bool {
	tableName, err := e.tableName(streamName)
	if err != nil {
		return false
	}

	return e.tableExists(ctx, tableName)
}

// Load returns an eventstream based on the provided constraints
func (e *EventStore) Load(
	ctx context.Context,
	streamName bankengine.StreamName,
	fromNumber int64,
	count *uint,
	matcher metadata.Matcher,
) (bankengine.EventStream, error) {
	tableName, err := e.tableName(streamName)
	if err != nil {
		return nil, err
	}

	selectQuery := make([]byte, 0, 196)
	params := make([]interface{}, 0, 4)

	selectQuery = append(selectQuery, "SELECT "...)
	selectQuery = append(selectQuery, e.eventColumns...)
	selectQuery = append(selectQuery, " FROM "...)
	selectQuery = append(selectQuery, pq.QuoteIdentifier(tableName)...)
	selectQuery = append(selectQuery, " WHERE no >= $1"...)
	params = append(params, fromNumber)

	if matcher != nil {
		conditions, conditionParams := e.persistenceStrategy.PrepareSearch(matcher)
		selectQuery = append(selectQuery, conditions...)
		params = append(params, conditionParams...)
	}

	selectQuery = append(selectQuery, " ORDER BY no"...)
	if count != nil {
		selectQuery = append(selectQuery, " LIMIT "...)
		selectQuery = append(selectQuery, strconv.FormatUint(uint64(*count), 10)...)
	}

	rows, err := e.db.QueryContext(ctx, string(selectQuery), params...)
	if err != nil {
		return nil, err
	}

	return e.messageFactory.CreateEventStream(rows)
}

// AppendTo inserts the messages into the event stream table within one transaction.
// Every aggregate in the batch is locked with a transaction level advisory lock after which
// its highest stored version must directly precede the first appended version.
func (e *EventStore) AppendTo(ctx context.Context, streamName bankengine.StreamName, streamEvents []bankengine.Message) error {
	if len(streamEvents) == 0 {
		return nil
	}

	tableName, err := e.tableName(streamName)
	if err != nil {
		return err
	}

	batches, err := versioning.Group(streamEvents)
	if err != nil {
		return err
	}

	data, err := e.persistenceStrategy.PrepareData(streamEvents)
	if err != nil {
		return err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, batch := range batches {
		if err := e.checkVersion(ctx, tx, tableName, batch); err != nil {
			e.rollback(tx, "version check")
			return err
		}
	}

	values := e.prepareInsertValues(len(streamEvents), len(e.persistenceStrategy.ColumnNames()))
	/* #nosec G201 */
	insertQuery := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", pq.QuoteIdentifier(tableName), e.columns, values)
	if _, err := tx.ExecContext(ctx, insertQuery, data...); err != nil {
		e.rollback(tx, insertQuery)

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && len(batches) > 0 {
			return e.violationConflict(ctx, tableName, batches)
		}

		e.logger.Warn("failed to insert messages into the event stream", func(e bankengine.LoggerEntry) {
			e.Error(err)
			e.String("stream_name", string(streamName))
			e.Int("count", len(streamEvents))
		})

		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	e.logger.Debug("inserted messages into the event stream", func(e bankengine.LoggerEntry) {
		e.String("stream_name", string(streamName))
		e.Int("count", len(streamEvents))
	})

	return nil
}

// maxVersionQuery returns the highest stored version of an aggregate or -1
func maxVersionQuery(tableName string) string {
	/* #nosec G201 */
	return fmt.Sprintf(
		"SELECT COALESCE(MAX(aggregate_version), -1) FROM %s WHERE aggregate_id = $1 AND aggregate_type = $2",
		pq.QuoteIdentifier(tableName),
	)
}

func (e *EventStore) checkVersion(ctx context.Context, tx *sql.Tx, tableName string, batch versioning.Batch) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", batch.Type+":"+batch.ID); err != nil {
		return err
	}

	var actual int
	if err := tx.QueryRowContext(ctx, maxVersionQuery(tableName), batch.ID, batch.Type).Scan(&actual); err != nil {
		return err
	}

	if actual != batch.First-1 {
		return batch.Conflict(actual)
	}

	return nil
}

// violationConflict rereads the stored versions after a unique violation and reports the first
// aggregate that moved. Actual is -1 when the stored version could not be determined.
func (e *EventStore) violationConflict(ctx context.Context, tableName string, batches []versioning.Batch) error {
	query := maxVersionQuery(tableName)
	for _, batch := range batches {
		var actual int
		if err := e.db.QueryRowContext(ctx, query, batch.ID, batch.Type).Scan(&actual); err != nil {
			e.logger.Warn("failed to read aggregate version after a unique violation", func(le bankengine.LoggerEntry) {
				le.Error(err)
				le.String("aggregate_id", batch.ID)
			})
			return batch.Conflict(-1)
		}
		if actual != batch.First-1 {
			return batch.Conflict(actual)
		}
	}

	return batches[0].Conflict(-1)
}

func (e *EventStore) rollback(tx *sql.Tx, query string) {
	if err := tx.Rollback(); err != nil {
		e.logger.Error("could not rollback transaction", func(e bankengine.LoggerEntry) {
			e.Error(err)
			e.String("query", query)
		})
	}
}

func (e *EventStore) prepareInsertValues(messageCount int, lenCols int) string {
	e.placeholderMu.Lock()
	defer e.placeholderMu.Unlock()

	if values, ok := e.preparedInsertPlaceholder[messageCount]; ok {
		return values
	}

	placeholders := bytes.NewBuffer(make([]byte, 0, (lenCols*3)+(messageCount*3)))
	placeholderCount := messageCount * lenCols
	for i := 0; i < placeholderCount; i++ {
		if m := i % lenCols; m == 0 {
			if i != 0 {
				_, _ = placeholders.WriteString("),")
			}
			_, _ = placeholders.WriteRune('(')
		} else {
			_, _ = placeholders.WriteRune(',')
		}

		_, _ = placeholders.WriteRune('$')
		_, _ = placeholders.WriteString(strconv.Itoa(i + 1))
	}
	_, _ = placeholders.WriteString(")")
	e.preparedInsertPlaceholder[messageCount] = placeholders.String()

	return e.preparedInsertPlaceholder[messageCount]
}

func (e *EventStore) tableName(s bankengine.StreamName) (string, error) {
	tableName, err := e.persistenceStrategy.GenerateTableName(s)
	if err != nil {
		return "", err
	}
	if len(tableName) == 0 {
		return "", ErrTableNameEmpty
	}
	return tableName, nil
}

func (e *EventStore) tableExists(ctx context.Context, tableName string) bool {
	var exists bool
	err := e.db.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`,
		tableName,
	).Scan(&exists)

	if err != nil {
		e.logger.Warn("error on reading from information_schema", func(e bankengine.LoggerEntry) {
			e.Error(err)
			e.String("table", tableName)
		})

		return false
	}

	return exists
}
