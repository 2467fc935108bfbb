package sql

import "context"

type (
	// ProjectionTrigger is called for every notification received from the database
	ProjectionTrigger func(ctx context.Context, notification *ProjectionNotification) error

	// Listener listens to an event stream and triggers a notification when an event was appended
	Listener interface {
		// Listen starts listening to the event stream and call the trigger when an event was appended
		Listen(ctx context.Context, trigger ProjectionTrigger) error
	}
)
