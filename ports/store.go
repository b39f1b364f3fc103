package ports

import (
	"context"
	"time"

	"github.com/layer-3/nocode/core"
)

// NonceStore holds issued sign-in nonces until they are redeemed or expire
type NonceStore interface {
	// Add registers a freshly issued nonce. A zero ttl keeps it until consumed.
	Add(ctx context.Context, nonce string, ttl time.Duration) error

	// Consume atomically removes the nonce and reports whether it was live.
	// Of any number of concurrent calls for one nonce, at most one returns true.
	Consume(ctx context.Context, nonce string) (bool, error)
}

// Denylist interface for session token invalidation
type Denylist interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}

// UserDirectory owns user records keyed by wallet address
type UserDirectory interface {
	// FindByAddress returns core.ErrUserNotFound when no user has the address
	FindByAddress(ctx context.Context, address string) (*core.User, error)
	// FindByID returns core.ErrUserNotFound when the id is unknown
	FindByID(ctx context.Context, id string) (*core.User, error)
	// Create returns core.ErrUserExists when the address is already taken
	Create(ctx context.Context, user *core.User) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// DeploymentStore records contract deployments
type DeploymentStore interface {
	CreateDeployment(ctx context.Context, d *core.Deployment) error
	// ListDeploymentsByUser filters by chain unless chain is empty
	ListDeploymentsByUser(ctx context.Context, userID, chain string) ([]core.Deployment, error)
	// FindDeploymentByContract returns core.ErrDeploymentNotFound when absent
	FindDeploymentByContract(ctx context.Context, address string) (*core.Deployment, error)
}

// TemplateCatalog lists the contract templates users can deploy
type TemplateCatalog interface {
	ListTemplates(ctx context.Context) ([]core.Template, error)
}
