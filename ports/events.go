package ports

import "context"

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishLogin(ctx context.Context, userID string, address string) error
	PublishLogout(ctx context.Context, address string, tokenID string) error
}
