package postgres

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	driverSQL "github.com/hellofresh/bankengine/driver/sql"
	"github.com/hellofresh/bankengine/metadata"
	"github.com/hellofresh/bankengine/strategy/json/internal"
)

var (
	_ driverSQL.PersistenceStrategy = &SingleStreamStrategy{}

	tableNameInvalidChars = regexp.MustCompile("[^a-z0-9_]+")

	insertColumns = []string{"event_id", "event_name", "payload", "metadata", "aggregate_type", "aggregate_id", "aggregate_version", "created_at"}
	selectColumns = []string{"no", "event_id", "event_name", "payload", "metadata", "created_at"}

	// aggregate metadata is denormalized into indexed columns
	metadataColumns = map[string]string{
		aggregate.TypeKey:    "aggregate_type",
		aggregate.IDKey:      "aggregate_id",
		aggregate.VersionKey: "aggregate_version",
	}
)

// SingleStreamStrategy stores the events of all aggregate types of a stream in a single table
type SingleStreamStrategy struct {
	converter bankengine.MessagePayloadConverter
}

// NewSingleStreamStrategy is the constructor postgres for PersistenceStrategy interface
func NewSingleStreamStrategy(converter bankengine.MessagePayloadConverter) (*SingleStreamStrategy, error) {
	if converter == nil {
		return nil, bankengine.InvalidArgumentError("converter")
	}

	return &SingleStreamStrategy{converter: converter}, nil
}

// CreateSchema returns a valid set of SQL statements to create the event store tables and indexes
func (s *SingleStreamStrategy) CreateSchema(tableName string) []string {
	quotedTable := pq.QuoteIdentifier(tableName)

	/* #nosec G201 */
	return []string{
		fmt.Sprintf(
			`CREATE TABLE %s (
    no BIGSERIAL,
    event_id UUID NOT NULL,
    event_name VARCHAR(100) NOT NULL,
    payload JSON NOT NULL,
    metadata JSONB NOT NULL,
    aggregate_type VARCHAR(50) NOT NULL,
    aggregate_id UUID NOT NULL,
    aggregate_version INTEGER NOT NULL CHECK (aggregate_version >= 0),
    created_at TIMESTAMP(6) NOT NULL,
    PRIMARY KEY (no),
    UNIQUE (event_id)
);`,
			quotedTable,
		),
		fmt.Sprintf(`CREATE UNIQUE INDEX ON %s (aggregate_id, aggregate_type, aggregate_version);`, quotedTable),
		fmt.Sprintf(`CREATE INDEX ON %s (no, aggregate_id, aggregate_type);`, quotedTable),
		sqlFuncEventStreamNotify,
		sqlTriggerEventStreamNotifyTemplate(tableName),
	}
}

// EventColumnNames are the columns AggregateChangedFactory scans
func (s *SingleStreamStrategy) EventColumnNames() []string {
	return selectColumns
}

// ColumnNames are the insert columns in the order PrepareData emits values
func (s *SingleStreamStrategy) ColumnNames() []string {
	return insertColumns
}

// PrepareData returns one row of insert values per message
func (s *SingleStreamStrategy) PrepareData(messages []bankengine.Message) ([]interface{}, error) {
	values := make([]interface{}, 0, len(messages)*len(insertColumns))
	for _, msg := range messages {
		eventName, payload, err := s.converter.ConvertPayload(msg.Payload())
		if err != nil {
			return nil, err
		}

		meta := msg.Metadata()
		encodedMeta, err := internal.MarshalJSON(meta)
		if err != nil {
			return nil, err
		}

		values = append(values,
			msg.UUID(),
			eventName,
			payload,
			encodedMeta,
			meta.Value(aggregate.TypeKey),
			meta.Value(aggregate.IDKey),
			meta.Value(aggregate.VersionKey),
			msg.CreatedAt(),
		)
	}

	return values, nil
}

// PrepareSearch turns the constraints into AND conditions with parameters starting at $2,
// $1 being the event number the load starts from
func (s *SingleStreamStrategy) PrepareSearch(matcher metadata.Matcher) ([]byte, []interface{}) {
	var (
		conditions strings.Builder
		params     []interface{}
	)
	matcher.Iterate(func(c metadata.Constraint) {
		params = append(params, c.Value())

		column, indexed := metadataColumns[c.Field()]
		if !indexed {
			column = "metadata ->> " + pq.QuoteLiteral(c.Field())
		}

		fmt.Fprintf(&conditions, " AND %s %s $%d", column, c.Operator(), len(params)+1)
	})

	return []byte(conditions.String()), params
}

// GenerateTableName returns events_ followed by the lower cased stream name stripped of characters
// that are not allowed unquoted in an identifier
func (s *SingleStreamStrategy) GenerateTableName(streamName bankengine.StreamName) (string, error) {
	name := tableNameInvalidChars.ReplaceAllString(strings.ToLower(string(streamName)), "")
	name = strings.TrimRight(name, "_")
	if name == "" {
		return "", bankengine.InvalidArgumentError("streamName")
	}

	return "events_" + name, nil
}
