package ports

import "context"

// EventPublisher notifies other parts of the system about auth events.
type EventPublisher interface {
	PublishLogin(ctx context.Context, address, accountID string, isNewAccount bool) error
}
