package bankengine

//go:generate mockgen -package mocks -destination mocks/eventstore.go -mock_names EventStore=EventStore,EventStream=EventStream,EventPublisher=EventPublisher github.com/hellofresh/bankengine EventStore,EventStream,EventPublisher
