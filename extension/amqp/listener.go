package amqp

import (
	"context"
	"io"
	"time"

	"github.com/mailru/easyjson"
	"github.com/streadway/amqp"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/driver/sql"
	strategyJSON "github.com/hellofresh/bankengine/strategy/json"
)

// Ensure Listener implements sql.Listener
var _ sql.Listener = &Listener{}

type (
	// Consume returns a channel of amqp.Delivery's and a related closer or an error
	Consume func() (io.Closer, <-chan amqp.Delivery, error)

	// Listener consumes event envelopes from a queue and triggers projections
	Listener struct {
		consume              Consume
		minReconnectInterval time.Duration
		maxReconnectInterval time.Duration
		logger               bankengine.Logger
		waitFn               func(time.Duration)
	}
)

// NewListener returns a new Listener
func NewListener(
	consume Consume,
	minReconnectInterval time.Duration,
	maxReconnectInterval time.Duration,
	logger bankengine.Logger,
) (*Listener, error) {
	switch {
	case consume == nil:
		return nil, bankengine.InvalidArgumentError("consume")
	case minReconnectInterval <= 0:
		return nil, bankengine.InvalidArgumentError("minReconnectInterval")
	case maxReconnectInterval < minReconnectInterval:
		return nil, bankengine.InvalidArgumentError("maxReconnectInterval")
	}

	if logger == nil {
		logger = bankengine.NopLogger
	}

	return &Listener{
		consume:              consume,
		minReconnectInterval: minReconnectInterval,
		maxReconnectInterval: maxReconnectInterval,
		logger:               logger,
		waitFn:               time.Sleep,
	}, nil
}

// WithWaitFn replaces the default function called to wait (time.Sleep)
func (l *Listener) WithWaitFn(fn func(time.Duration)) {
	l.waitFn = fn
}

// Listen consumes envelopes until the context is done, reconnecting with exponential back-off
func (l *Listener) Listen(ctx context.Context, trigger sql.ProjectionTrigger) error {
	reconnectInterval := l.minReconnectInterval
	for {
		if ctx.Err() != nil {
			return context.Canceled
		}

		conn, deliveries, err := l.consume()
		if err != nil {
			l.logger.Error("failed to start consuming amqp messages", func(e bankengine.LoggerEntry) {
				e.Error(err)
				e.String("reconnect_in", reconnectInterval.String())
			})

			l.waitFn(reconnectInterval)
			reconnectInterval *= 2
			if reconnectInterval > l.maxReconnectInterval {
				reconnectInterval = l.maxReconnectInterval
			}
			continue
		}
		reconnectInterval = l.minReconnectInterval

		l.consumeMessages(ctx, conn, deliveries, trigger)
	}
}

func (l *Listener) consumeMessages(ctx context.Context, conn io.Closer, deliveries <-chan amqp.Delivery, trigger sql.ProjectionTrigger) {
	defer func() {
		if conn == nil {
			return
		}

		if err := conn.Close(); err != nil {
			l.logger.Error("failed to close amqp connection", func(e bankengine.LoggerEntry) {
				e.Error(err)
			})
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-deliveries:
			if !ok {
				return
			}

			env := &strategyJSON.Envelope{}
			if err := easyjson.Unmarshal(msg.Body, env); err != nil {
				l.logger.Error("failed to unmarshal delivery, dropping message", func(e bankengine.LoggerEntry) {
					e.Error(err)
				})
				l.reject(msg)
				continue
			}

			notification := &sql.ProjectionNotification{
				EventName:   env.EventName,
				AggregateID: env.AggregateID,
			}
			if err := trigger(ctx, notification); err != nil {
				l.logger.Error("failed to project event", func(e bankengine.LoggerEntry) {
					e.Error(err)
					e.String("event_id", env.EventID)
					e.String("event_name", env.EventName)
					e.String("aggregate_id", env.AggregateID)
				})
				l.reject(msg)
				continue
			}

			if err := msg.Ack(false); err != nil {
				l.logger.Error("failed to acknowledge delivery", func(e bankengine.LoggerEntry) {
					e.Error(err)
					e.String("event_id", env.EventID)
				})
			}
		}
	}
}

func (l *Listener) reject(msg amqp.Delivery) {
	if msg.Acknowledger == nil {
		return
	}

	if err := msg.Nack(false, false); err != nil {
		l.logger.Error("failed to reject delivery", func(e bankengine.LoggerEntry) {
			e.Error(err)
		})
	}
}
