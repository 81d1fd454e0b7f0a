package gateway

import (
	"context"

	"github.com/rbp/auth/internal/hashx"
	"github.com/rbp/auth/internal/identity"
	"github.com/rbp/auth/internal/query"
)

// The enumerated named operations of the persistence contract. Each method
// dispatches one registered query descriptor and converts the shaped result
// into the identity model types.

var _ identity.Gateway = (*Gateway)(nil)

func (g *Gateway) SavePendingUser(ctx context.Context, email string, passwordHash hashx.Hash, key string, date int64) error {
	return g.execute(ctx, query.SavePendingUser, email, string(passwordHash), key, date)
}

func (g *Gateway) GetPendingUser(ctx context.Context, email string) (*identity.PendingUser, error) {
	r, err := g.oneRow(ctx, query.GetPendingUser, email)
	if err != nil {
		return nil, err
	}
	return &identity.PendingUser{
		Email:            toString(r[0]),
		PasswordHash:     hashx.Hash(toString(r[1])),
		RegistrationKey:  toString(r[2]),
		RegistrationDate: toInt64(r[3]),
	}, nil
}

func (g *Gateway) DeletePendingUser(ctx context.Context, email string) error {
	return g.execute(ctx, query.DeletePendingUser, email)
}

func (g *Gateway) GetPendingUsersUnmailed(ctx context.Context) ([]identity.PendingConfirmation, error) {
	rows, err := g.allRows(ctx, query.GetPendingUsersUnmailed)
	if err != nil {
		return nil, err
	}
	out := make([]identity.PendingConfirmation, 0, len(rows))
	for _, r := range rows {
		out = append(out, identity.PendingConfirmation{
			Email:           toString(r[0]),
			RegistrationKey: toString(r[1]),
		})
	}
	return out, nil
}

func (g *Gateway) SetPendingUserAsMailed(ctx context.Context, email string) error {
	return g.execute(ctx, query.SetPendingUserAsMailed, email)
}

func (g *Gateway) GetPendingUserByKey(ctx context.Context, key string) (*identity.PendingCredentials, error) {
	r, err := g.oneRow(ctx, query.GetPendingUserByKey, key)
	if err != nil {
		return nil, err
	}
	return &identity.PendingCredentials{
		Email:        toString(r[0]),
		PasswordHash: hashx.Hash(toString(r[1])),
	}, nil
}

func (g *Gateway) GetPendingUsersRegisteredBefore(ctx context.Context, cutoff int64) ([]string, error) {
	vals, err := g.oneColumn(ctx, query.GetPendingUsersRegisteredBefore, cutoff)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		out = append(out, toString(v))
	}
	return out, nil
}

func (g *Gateway) SaveUser(ctx context.Context, email string, passwordHash hashx.Hash) error {
	return g.execute(ctx, query.SaveUser, email, string(passwordHash))
}

func (g *Gateway) GetUser(ctx context.Context, email string) (*identity.User, error) {
	r, err := g.oneRow(ctx, query.GetUser, email)
	if err != nil {
		return nil, err
	}
	return &identity.User{
		Email:               toString(r[0]),
		PasswordHash:        hashx.Hash(toString(r[1])),
		FailedLoginAttempts: int(toInt64(r[2])),
		SuspendedUntil:      toNullInt64(r[3]),
	}, nil
}

func (g *Gateway) SuspendUser(ctx context.Context, email string, attempts int, suspendedUntil int64) error {
	return g.execute(ctx, query.SuspendUser, email, attempts, suspendedUntil)
}

func (g *Gateway) SetFailedLoginAttempts(ctx context.Context, email string, attempts int) error {
	return g.execute(ctx, query.SetFailedLoginAttempts, email, attempts)
}

func (g *Gateway) LiftUserSuspension(ctx context.Context, email string) error {
	return g.execute(ctx, query.LiftUserSuspension, email)
}

func (g *Gateway) SetUserRole(ctx context.Context, email, role string) error {
	return g.execute(ctx, query.SetUserRole, email, role)
}

func (g *Gateway) GetUserRole(ctx context.Context, email string) (string, error) {
	v, err := g.unique(ctx, query.GetUserRole, email)
	if err != nil {
		return "", err
	}
	return toString(v), nil
}

// Drivers disagree about the Go types they scan into; these converters
// normalize the handful of representations the supported drivers produce.

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return ""
	}
}

func toInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	default:
		return 0
	}
}

func toNullInt64(v any) *int64 {
	if v == nil {
		return nil
	}
	n := toInt64(v)
	return &n
}
