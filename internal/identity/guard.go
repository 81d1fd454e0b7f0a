package identity

import (
	"context"
	"errors"

	"github.com/rbp/auth/internal/common"
)

// Operation is any protected operation. Arguments pass through the guard
// opaquely.
type Operation func(ctx context.Context, args ...any) (any, error)

// GuardedOperation is an Operation that first requires the calling user to
// hold a role.
type GuardedOperation func(ctx context.Context, email string, args ...any) (any, error)

// RequireRole wraps op so that it only runs when the user identified by
// email exists and holds exactly the given role; otherwise the call fails
// with ErrUnauthorizedAccess. Authentication is assumed to have happened
// upstream; this checks authorization only.
func RequireRole(gw Gateway, role string, op Operation) GuardedOperation {
	return func(ctx context.Context, email string, args ...any) (any, error) {
		if _, err := gw.GetUser(ctx, email); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, common.ErrUnauthorizedAccess
			}
			return nil, err
		}

		got, err := gw.GetUserRole(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, common.ErrUnauthorizedAccess
			}
			return nil, err
		}
		if got != role {
			return nil, common.ErrUnauthorizedAccess
		}

		return op(ctx, args...)
	}
}
