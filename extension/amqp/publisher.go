package amqp

import (
	"context"
	"io"
	"sync"

	"github.com/mailru/easyjson"
	"github.com/streadway/amqp"

	"github.com/hellofresh/bankengine"
	strategyJSON "github.com/hellofresh/bankengine/strategy/json"
)

var _ bankengine.EventPublisher = &EventPublisher{}

type (
	// Dial opens a connection and channel to the broker
	Dial func() (io.Closer, Channel, error)

	// EventPublisher publishes committed events as JSON envelopes to a queue
	EventPublisher struct {
		queue       string
		converter   bankengine.MessagePayloadConverter
		dial        Dial
		maxAttempts int
		logger      bankengine.Logger

		mux        sync.Mutex
		connection io.Closer
		channel    Channel
	}
)

// NewEventPublisher returns an EventPublisher for the given broker and queue
func NewEventPublisher(
	amqpDSN string,
	queue string,
	converter bankengine.MessagePayloadConverter,
	logger bankengine.Logger,
) (*EventPublisher, error) {
	if _, err := amqp.ParseURI(amqpDSN); err != nil {
		return nil, bankengine.InvalidArgumentError("amqpDSN")
	}

	return NewEventPublisherWithDial(
		func() (io.Closer, Channel, error) {
			return setup(amqpDSN, queue)
		},
		queue,
		converter,
		logger,
	)
}

// NewEventPublisherWithDial returns an EventPublisher using dial to (re)connect
func NewEventPublisherWithDial(
	dial Dial,
	queue string,
	converter bankengine.MessagePayloadConverter,
	logger bankengine.Logger,
) (*EventPublisher, error) {
	switch {
	case dial == nil:
		return nil, bankengine.InvalidArgumentError("dial")
	case len(queue) == 0:
		return nil, bankengine.InvalidArgumentError("queue")
	case converter == nil:
		return nil, bankengine.InvalidArgumentError("converter")
	}

	if logger == nil {
		logger = bankengine.NopLogger
	}

	return &EventPublisher{
		queue:       queue,
		converter:   converter,
		dial:        dial,
		maxAttempts: 3,
		logger:      logger,
	}, nil
}

// Publish sends every message as an envelope to the queue in order
func (p *EventPublisher) Publish(ctx context.Context, messages []bankengine.Message) error {
	for _, msg := range messages {
		env, err := strategyJSON.NewEnvelope(msg, p.converter)
		if err != nil {
			return err
		}

		body, err := easyjson.Marshal(env)
		if err != nil {
			return err
		}

		if err := p.publish(ctx, env, body); err != nil {
			return err
		}
	}

	return nil
}

func (p *EventPublisher) publish(ctx context.Context, env *strategyJSON.Envelope, body []byte) error {
	p.mux.Lock()
	defer p.mux.Unlock()

	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if p.channel == nil {
			p.connection, p.channel, err = p.dial()
			if err != nil {
				return err
			}
		}

		err = p.channel.Publish("", p.queue, true, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    env.EventID,
			Type:         env.EventName,
			Timestamp:    env.CreatedAt,
			Body:         body,
		})
		if !isConnectionError(err) {
			return err
		}

		p.logger.Warn("amqp connection lost, reconnecting", func(e bankengine.LoggerEntry) {
			e.Error(err)
			e.Int("attempt", attempt)
			e.String("event_id", env.EventID)
		})
		p.reset()
	}

	return err
}

func (p *EventPublisher) reset() {
	if p.connection != nil {
		if err := p.connection.Close(); err != nil {
			p.logger.Error("failed to close amqp connection", func(e bankengine.LoggerEntry) {
				e.Error(err)
			})
		}
	}
	p.connection = nil
	p.channel = nil
}

// Close closes the underlying connection
func (p *EventPublisher) Close() error {
	p.mux.Lock()
	defer p.mux.Unlock()

	if p.connection == nil {
		return nil
	}

	err := p.connection.Close()
	p.connection = nil
	p.channel = nil

	return err
}
