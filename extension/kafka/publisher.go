package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/mailru/easyjson"
	"github.com/segmentio/kafka-go"

	"github.com/hellofresh/bankengine"
	strategyJSON "github.com/hellofresh/bankengine/strategy/json"
)

const (
	// EventNameHeader is the kafka header carrying the registered event name
	EventNameHeader = "event_name"
	// AggregateTypeHeader is the kafka header carrying the aggregate type
	AggregateTypeHeader = "aggregate_type"
)

var _ bankengine.EventPublisher = &EventPublisher{}

type (
	// Writer is the part of kafka.Writer used to publish events
	Writer interface {
		WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	}

	// EventPublisher publishes committed events to a topic keyed by aggregate id
	EventPublisher struct {
		writer    Writer
		converter bankengine.MessagePayloadConverter
		logger    bankengine.Logger
	}
)

// NewWriter returns a kafka.Writer that hashes on the message key so events of one aggregate stay ordered
func NewWriter(brokers []string, topic string) (*kafka.Writer, error) {
	switch {
	case len(brokers) == 0:
		return nil, bankengine.InvalidArgumentError("brokers")
	case strings.TrimSpace(topic) == "":
		return nil, bankengine.InvalidArgumentError("topic")
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		MaxAttempts:            5,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}, nil
}

// NewEventPublisher returns a new EventPublisher
func NewEventPublisher(writer Writer, converter bankengine.MessagePayloadConverter, logger bankengine.Logger) (*EventPublisher, error) {
	switch {
	case writer == nil:
		return nil, bankengine.InvalidArgumentError("writer")
	case converter == nil:
		return nil, bankengine.InvalidArgumentError("converter")
	}

	if logger == nil {
		logger = bankengine.NopLogger
	}

	return &EventPublisher{
		writer:    writer,
		converter: converter,
		logger:    logger,
	}, nil
}

// Publish writes all messages in a single batch
func (p *EventPublisher) Publish(ctx context.Context, messages []bankengine.Message) error {
	if len(messages) == 0 {
		return nil
	}

	batch := make([]kafka.Message, 0, len(messages))
	for _, msg := range messages {
		env, err := strategyJSON.NewEnvelope(msg, p.converter)
		if err != nil {
			return err
		}

		value, err := easyjson.Marshal(env)
		if err != nil {
			return err
		}

		batch = append(batch, kafka.Message{
			Key:   []byte(env.AggregateID),
			Value: value,
			Time:  env.CreatedAt,
			Headers: []kafka.Header{
				{Key: EventNameHeader, Value: []byte(env.EventName)},
				{Key: AggregateTypeHeader, Value: []byte(env.AggregateType)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, batch...); err != nil {
		p.logger.Error("failed to write events to kafka", func(e bankengine.LoggerEntry) {
			e.Error(err)
			e.Int("count", len(batch))
		})
		return err
	}

	p.logger.Debug("events written to kafka", func(e bankengine.LoggerEntry) {
		e.Int("count", len(batch))
	})

	return nil
}
