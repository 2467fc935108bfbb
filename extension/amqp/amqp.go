package amqp

import (
	"io"

	"github.com/streadway/amqp"
)

// Channel is the part of an amqp.Channel used to publish events
type Channel interface {
	Publish(exchange, queue string, mandatory, immediate bool, msg amqp.Publishing) error
}

// setup returns a connection and channel with the durable queue declared
func setup(url, queue string) (io.Closer, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	return conn, ch, nil
}

// DirectQueueConsumer returns a Consume func that dials the broker and consumes the queue one delivery at a time
func DirectQueueConsumer(url, queue string) Consume {
	return func() (io.Closer, <-chan amqp.Delivery, error) {
		conn, ch, err := setup(url, queue)
		if err != nil {
			return nil, nil, err
		}

		if err := ch.Qos(1, 0, false); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}

		deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}

		return conn, deliveries, nil
	}
}

func isConnectionError(err error) bool {
	return err == amqp.ErrClosed || err == amqp.ErrFrame || err == amqp.ErrUnexpectedFrame
}
