package pehub

import "context"

// NoopPublisher discards change-feed events.
type NoopPublisher struct{}

// NewNoopPublisher creates a publisher that does nothing
func NewNoopPublisher() ChangePublisher {
	return &NoopPublisher{}
}

// Publish does nothing and returns nil
func (n *NoopPublisher) Publish(ctx context.Context, table, eventType string, record interface{}) error {
	return nil
}

// NoopDispatcher discards push notifications.
type NoopDispatcher struct{}

// NewNoopDispatcher creates a dispatcher that does nothing
func NewNoopDispatcher() Dispatcher {
	return &NoopDispatcher{}
}

// Schedule does nothing
func (n *NoopDispatcher) Schedule(title, body string, metadata map[string]string) {}
