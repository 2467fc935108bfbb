//go:build unit
// +build unit

package amqp_test

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/streadway/amqp"

	"github.com/hellofresh/bankengine"
	logrusExtension "github.com/hellofresh/bankengine/extension/logrus"
)

type (
	mockConnection struct {
		closed int
	}

	mockChannel struct {
		mux       sync.Mutex
		errs      []error
		published []amqp.Publishing
	}

	mockAcknowledger struct {
		mux   sync.Mutex
		acks  []uint64
		nacks []uint64
	}
)

func (c *mockConnection) Close() error {
	c.closed++
	return nil
}

func (ch *mockChannel) Publish(exchange, queue string, mandatory, immediate bool, msg amqp.Publishing) error {
	ch.mux.Lock()
	defer ch.mux.Unlock()

	if len(ch.errs) > 0 {
		err := ch.errs[0]
		ch.errs = ch.errs[1:]
		if err != nil {
			return err
		}
	}

	ch.published = append(ch.published, msg)
	return nil
}

func (a *mockAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mux.Lock()
	defer a.mux.Unlock()
	a.acks = append(a.acks, tag)
	return nil
}

func (a *mockAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	a.mux.Lock()
	defer a.mux.Unlock()
	a.nacks = append(a.nacks, tag)
	return nil
}

func (a *mockAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func getLogger() (bankengine.Logger, *test.Hook) {
	logger, loggerHook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	return logrusExtension.Wrap(logger), loggerHook
}
