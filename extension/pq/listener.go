package pq

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mailru/easyjson"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/driver/sql"
)

// Ensure Listener implements sql.Listener
var _ sql.Listener = &Listener{}

type (
	// Notifier is the part of a pq.Listener used to receive notifications
	Notifier interface {
		Listen(channel string) error
		NotificationChannel() <-chan *pq.Notification
		Close() error
	}

	// Listener triggers projections on postgres NOTIFY messages sent by the event table trigger
	Listener struct {
		channel string
		connect func(callback pq.EventCallbackType) Notifier
		logger  bankengine.Logger
	}
)

// NewListener returns a listener on the notify channel of an event table
func NewListener(
	dsn string,
	channel string,
	minReconnectInterval time.Duration,
	maxReconnectInterval time.Duration,
	logger bankengine.Logger,
) (*Listener, error) {
	switch {
	case strings.TrimSpace(dsn) == "":
		return nil, bankengine.InvalidArgumentError("dsn")
	case minReconnectInterval <= 0:
		return nil, bankengine.InvalidArgumentError("minReconnectInterval")
	case maxReconnectInterval < minReconnectInterval:
		return nil, bankengine.InvalidArgumentError("maxReconnectInterval")
	}

	return NewListenerWithNotifier(channel, func(callback pq.EventCallbackType) Notifier {
		return pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, callback)
	}, logger)
}

// NewListenerWithNotifier returns a listener using connect to open the notification connection
func NewListenerWithNotifier(
	channel string,
	connect func(callback pq.EventCallbackType) Notifier,
	logger bankengine.Logger,
) (*Listener, error) {
	switch {
	case strings.TrimSpace(channel) == "":
		return nil, bankengine.InvalidArgumentError("channel")
	case connect == nil:
		return nil, bankengine.InvalidArgumentError("connect")
	}

	if logger == nil {
		logger = bankengine.NopLogger
	}

	return &Listener{
		channel: channel,
		connect: connect,
		logger:  logger.WithFields(func(e bankengine.LoggerEntry) {
			e.String("channel", channel)
		}),
	}, nil
}

// Listen triggers once to catch up and then once per notification until the context is done
func (l *Listener) Listen(ctx context.Context, trigger sql.ProjectionTrigger) error {
	if ctx.Err() != nil {
		return nil
	}

	notifier := l.connect(l.stateChanged)
	defer func() {
		if err := notifier.Close(); err != nil {
			l.logger.Warn("failed to close notification listener", func(e bankengine.LoggerEntry) {
				e.Error(err)
			})
		}
	}()

	if err := notifier.Listen(l.channel); err != nil {
		return err
	}

	// Catch up only after LISTEN so no append between the two is missed
	if err := trigger(ctx, nil); err != nil {
		return err
	}

	notifications := notifier.NotificationChannel()
	for {
		select {
		case n := <-notifications:
			// nil is sent after a reconnect, catch up on whatever was missed
			if err := trigger(ctx, l.decode(n)); err != nil {
				return err
			}
		case <-ctx.Done():
			l.logger.Debug("context closed, stopping notification listener", nil)
			return nil
		}
	}
}

func (l *Listener) stateChanged(event pq.ListenerEventType, err error) {
	fields := func(e bankengine.LoggerEntry) {
		e.Int("listener_event", int(event))
		if err != nil {
			e.Error(err)
		}
	}

	switch event {
	case pq.ListenerEventConnected:
		l.logger.Debug("notification listener connected", fields)
	case pq.ListenerEventDisconnected:
		l.logger.Warn("notification listener disconnected", fields)
	case pq.ListenerEventReconnected:
		l.logger.Info("notification listener reconnected", fields)
	case pq.ListenerEventConnectionAttemptFailed:
		l.logger.Warn("notification listener failed to connect", fields)
	default:
		l.logger.Warn("notification listener sent an unknown event", fields)
	}
}

func (l *Listener) decode(n *pq.Notification) *sql.ProjectionNotification {
	if n == nil {
		return nil
	}

	if n.Extra == "" {
		l.logger.Error("received notification without payload", func(e bankengine.LoggerEntry) {
			e.Any("pq_notification", n)
		})
		return nil
	}

	notification := &sql.ProjectionNotification{}
	if err := easyjson.Unmarshal([]byte(n.Extra), notification); err != nil {
		l.logger.Error("received invalid notification payload", func(e bankengine.LoggerEntry) {
			e.Any("pq_notification", n)
			e.Error(err)
		})
		return nil
	}

	l.logger.Debug("received notification", func(e bankengine.LoggerEntry) {
		e.Int64("notification.no", notification.No)
		e.String("notification.event_name", notification.EventName)
		e.String("notification.aggregate_id", notification.AggregateID)
	})

	return notification
}
