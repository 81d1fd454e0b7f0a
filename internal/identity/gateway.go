package identity

import (
	"context"

	"github.com/rbp/auth/internal/hashx"
)

// Gateway is the persistence contract the identity core operates against.
// Lookups report absence as common.ErrNotFound; every other error is an
// infrastructure fault and propagates to the caller unchanged.
//
// A Gateway instance is bound to one logical connection and is not safe for
// concurrent use; give each worker its own instance.
type Gateway interface {
	SavePendingUser(ctx context.Context, email string, passwordHash hashx.Hash, key string, date int64) error
	GetPendingUser(ctx context.Context, email string) (*PendingUser, error)
	DeletePendingUser(ctx context.Context, email string) error
	GetPendingUserByKey(ctx context.Context, key string) (*PendingCredentials, error)

	SaveUser(ctx context.Context, email string, passwordHash hashx.Hash) error
	GetUser(ctx context.Context, email string) (*User, error)
	SuspendUser(ctx context.Context, email string, attempts int, suspendedUntil int64) error
	SetFailedLoginAttempts(ctx context.Context, email string, attempts int) error
	LiftUserSuspension(ctx context.Context, email string) error
	SetUserRole(ctx context.Context, email, role string) error
	GetUserRole(ctx context.Context, email string) (string, error)

	// WithTx runs fn against a gateway bound to a single transaction;
	// either every operation fn issued is applied, or none is.
	WithTx(ctx context.Context, fn func(Gateway) error) error
}
