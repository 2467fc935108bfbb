package postgres

import (
	"database/sql"

	"github.com/hellofresh/bankengine"
	driverSQL "github.com/hellofresh/bankengine/driver/sql"
	"github.com/hellofresh/bankengine/driver/sql/postgres"
	"github.com/hellofresh/bankengine/strategy/json"
	strategySQL "github.com/hellofresh/bankengine/strategy/json/sql"
)

// SingleStreamManager is a helper for creating JSON Postgres event stores
type SingleStreamManager struct {
	db                  *sql.DB
	payloadTransformer  *json.PayloadTransformer
	persistenceStrategy *SingleStreamStrategy
	messageFactory      driverSQL.MessageFactory

	logger bankengine.Logger
}

// NewSingleStreamManager return a new instance of the SingleStreamManager
func NewSingleStreamManager(db *sql.DB, logger bankengine.Logger) (*SingleStreamManager, error) {
	if db == nil {
		return nil, bankengine.InvalidArgumentError("db")
	}
	if logger == nil {
		logger = bankengine.NopLogger
	}

	payloadTransformer := json.NewPayloadTransformer()

	persistenceStrategy, err := NewSingleStreamStrategy(payloadTransformer)
	if err != nil {
		return nil, err
	}

	messageFactory, err := strategySQL.NewAggregateChangedFactory(payloadTransformer)
	if err != nil {
		return nil, err
	}

	return &SingleStreamManager{
		db:                  db,
		payloadTransformer:  payloadTransformer,
		persistenceStrategy: persistenceStrategy,
		messageFactory:      messageFactory,
		logger:              logger,
	}, nil
}

// NewEventStore returns a new event store instance
func (m *SingleStreamManager) NewEventStore() (*postgres.EventStore, error) {
	return postgres.NewEventStore(
		m.persistenceStrategy,
		m.db,
		m.messageFactory,
		m.logger,
	)
}

// RegisterPayloads registers a set of payload type initiators
func (m *SingleStreamManager) RegisterPayloads(initiators map[string]json.PayloadInitiator) error {
	return m.payloadTransformer.RegisterPayloads(initiators)
}

// PayloadTransformer returns the payload transformer shared by the event stores
func (m *SingleStreamManager) PayloadTransformer() *json.PayloadTransformer {
	return m.payloadTransformer
}

// PersistenceStrategy returns the sql persistence strategy
func (m *SingleStreamManager) PersistenceStrategy() driverSQL.PersistenceStrategy {
	return m.persistenceStrategy
}
