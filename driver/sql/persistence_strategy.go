package sql

import (
	"database/sql"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/metadata"
)

type (
	// PersistenceStrategy maps messages of a stream onto the columns of its table
	PersistenceStrategy interface {
		// GenerateTableName returns the table holding the events of the stream
		GenerateTableName(streamName bankengine.StreamName) (string, error)
		// CreateSchema returns the statements creating the table, its indexes and its notify trigger
		CreateSchema(tableName string) []string
		// ColumnNames are the columns written by PrepareData, in order
		ColumnNames() []string
		// EventColumnNames are the columns read by a MessageFactory, in order
		EventColumnNames() []string
		// PrepareData flattens the messages into insert arguments matching ColumnNames
		PrepareData(messages []bankengine.Message) ([]interface{}, error)
		// PrepareSearch returns the conditions for the matcher starting with " AND" and using parameters from $2
		PrepareSearch(matcher metadata.Matcher) ([]byte, []interface{})
	}

	// MessageFactory turns the rows of an event query into an EventStream
	MessageFactory interface {
		CreateEventStream(rows *sql.Rows) (bankengine.EventStream, error)
	}
)
