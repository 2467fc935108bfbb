package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mailru/easyjson"
	"github.com/segmentio/kafka-go"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/driver/sql"
	strategyJSON "github.com/hellofresh/bankengine/strategy/json"
)

var _ sql.Listener = &Listener{}

type (
	// Reader is the part of kafka.Reader used to consume events
	Reader interface {
		FetchMessage(ctx context.Context) (kafka.Message, error)
		CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	}

	// Listener consumes event envelopes from a topic and triggers projections
	Listener struct {
		reader Reader
		logger bankengine.Logger
	}
)

// NewReader returns a consumer group reader for the topic
func NewReader(brokers []string, topic, groupID string) (*kafka.Reader, error) {
	switch {
	case len(brokers) == 0:
		return nil, bankengine.InvalidArgumentError("brokers")
	case strings.TrimSpace(topic) == "":
		return nil, bankengine.InvalidArgumentError("topic")
	case strings.TrimSpace(groupID) == "":
		return nil, bankengine.InvalidArgumentError("groupID")
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		SessionTimeout: 10 * time.Second,
		StartOffset:    kafka.FirstOffset,
		MaxBytes:       10e6,
	}), nil
}

// NewListener returns a new Listener
func NewListener(reader Reader, logger bankengine.Logger) (*Listener, error) {
	if reader == nil {
		return nil, bankengine.InvalidArgumentError("reader")
	}

	if logger == nil {
		logger = bankengine.NopLogger
	}

	return &Listener{reader: reader, logger: logger}, nil
}

// Listen fetches envelopes until the context is done.
// Offsets are committed after the trigger succeeded so a failing projection sees the event again.
func (l *Listener) Listen(ctx context.Context, trigger sql.ProjectionTrigger) error {
	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return context.Canceled
			}
			return err
		}

		env := &strategyJSON.Envelope{}
		if err := easyjson.Unmarshal(msg.Value, env); err != nil {
			l.logger.Error("failed to unmarshal kafka message, skipping", func(e bankengine.LoggerEntry) {
				e.Error(err)
				e.Int64("offset", msg.Offset)
				e.Int("partition", msg.Partition)
			})
			if err := l.reader.CommitMessages(ctx, msg); err != nil {
				return err
			}
			continue
		}

		if err := trigger(ctx, &sql.ProjectionNotification{
			EventName:   env.EventName,
			AggregateID: env.AggregateID,
		}); err != nil {
			return err
		}

		if err := l.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}
