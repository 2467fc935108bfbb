package config

import (
	"database/sql"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/domain/account"
	"github.com/hellofresh/bankengine/domain/order"
	"github.com/hellofresh/bankengine/domain/portfolio"
	driverSQL "github.com/hellofresh/bankengine/driver/sql"
	"github.com/hellofresh/bankengine/extension/amqp"
	"github.com/hellofresh/bankengine/extension/kafka"
	"github.com/hellofresh/bankengine/extension/pq"
	"github.com/hellofresh/bankengine/strategy/json"
	"github.com/hellofresh/bankengine/strategy/json/sql/postgres"
)

// Payloads returns the initiators of every event the bank stores
func Payloads() map[string]json.PayloadInitiator {
	return map[string]json.PayloadInitiator{
		account.AccountOpenedName:    func() interface{} { return account.AccountOpened{} },
		account.FundsDepositedName:   func() interface{} { return account.FundsDeposited{} },
		account.FundsWithdrawnName:   func() interface{} { return account.FundsWithdrawn{} },
		account.TransferSentName:     func() interface{} { return account.TransferSent{} },
		account.TransferReceivedName: func() interface{} { return account.TransferReceived{} },
		account.InterestAppliedName:  func() interface{} { return account.InterestApplied{} },
		account.AccountRenamedName:   func() interface{} { return account.AccountRenamed{} },
		account.AccountClosedName:    func() interface{} { return account.AccountClosed{} },
		account.AccountBannedName:    func() interface{} { return account.AccountBanned{} },

		order.OrderPlacedName:    func() interface{} { return order.OrderPlaced{} },
		order.OrderExecutedName:  func() interface{} { return order.OrderExecuted{} },
		order.OrderCancelledName: func() interface{} { return order.OrderCancelled{} },

		portfolio.PortfolioOpenedName: func() interface{} { return portfolio.PortfolioOpened{} },
		portfolio.SharesCreditedName:  func() interface{} { return portfolio.SharesCredited{} },
		portfolio.SharesDebitedName:   func() interface{} { return portfolio.SharesDebited{} },
	}
}

// NewManager returns the postgres event store manager with all bank events registered
func NewManager(db *sql.DB, logger bankengine.Logger) (*postgres.SingleStreamManager, error) {
	manager, err := postgres.NewSingleStreamManager(db, logger)
	if err != nil {
		return nil, err
	}

	if err := manager.RegisterPayloads(Payloads()); err != nil {
		return nil, err
	}

	return manager, nil
}

// NewListener returns a listener on the notify channel of the event stream table
func NewListener(cfg Config, manager *postgres.SingleStreamManager, logger bankengine.Logger) (*pq.Listener, error) {
	table, err := manager.PersistenceStrategy().GenerateTableName(cfg.StreamName())
	if err != nil {
		return nil, err
	}

	return pq.NewListener(
		cfg.PostgresDSN,
		table,
		cfg.ListenerMinReconnect,
		cfg.ListenerMaxReconnect,
		logger,
	)
}

// NewProjectionListener returns the listener selected by PROJECTION_LISTENER and a func releasing it
func NewProjectionListener(
	cfg Config,
	manager *postgres.SingleStreamManager,
	logger bankengine.Logger,
) (driverSQL.Listener, func() error, error) {
	noop := func() error { return nil }

	switch cfg.ProjectionListener {
	case ListenerAMQP:
		listener, err := amqp.NewListener(
			amqp.DirectQueueConsumer(cfg.AMQPDSN, cfg.AMQPQueue),
			cfg.ListenerMinReconnect,
			cfg.ListenerMaxReconnect,
			logger,
		)
		return listener, noop, err
	case ListenerKafka:
		reader, err := kafka.NewReader(cfg.Brokers(), cfg.KafkaTopic, cfg.KafkaGroupID)
		if err != nil {
			return nil, noop, err
		}
		listener, err := kafka.NewListener(reader, logger)
		return listener, reader.Close, err
	default:
		listener, err := NewListener(cfg, manager, logger)
		return listener, noop, err
	}
}
