// Package cleanup sweeps expired pending registrations out of the store. A
// registration that was never confirmed within the expiration window is
// dead weight and its email address should become available again.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbp/auth/internal/common"
	"github.com/rbp/auth/internal/config"
	"github.com/rbp/auth/internal/logging"
)

// Store is the slice of the persistence gateway the sweeper needs.
type Store interface {
	GetPendingUsersRegisteredBefore(ctx context.Context, cutoff int64) ([]string, error)
	DeletePendingUser(ctx context.Context, email string) error
}

// Sweeper deletes pending registrations older than the configured
// expiration window.
type Sweeper struct {
	store Store
	log   logging.Logger

	expiration time.Duration
	now        func() time.Time
}

func New(store Store, cfg *config.Config, log logging.Logger) (*Sweeper, error) {
	if store == nil || cfg == nil {
		return nil, fmt.Errorf("%w: sweeper misses a collaborator", common.ErrProgramming)
	}
	return &Sweeper{
		store:      store,
		log:        log,
		expiration: cfg.RegistrationExpiration,
		now:        time.Now,
	}, nil
}

// DeleteExpired removes every pending registration whose registration date
// lies before now minus the expiration window. Individual deletion failures
// are collected and reported together; they never stop the sweep.
func (s *Sweeper) DeleteExpired(ctx context.Context) error {
	cutoff := s.now().Add(-s.expiration).Unix()

	emails, err := s.store.GetPendingUsersRegisteredBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("listing expired registrations: %w", err)
	}
	if len(emails) == 0 {
		s.log.Info(ctx, "no expired registrations")
		return nil
	}

	var errs []error
	deleted := 0
	for _, email := range emails {
		if err := s.store.DeletePendingUser(ctx, email); err != nil {
			s.log.Warn(ctx, "deleting expired registration failed", "email", email, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", email, err))
			continue
		}
		deleted++
	}

	s.log.Info(ctx, "sweep finished", "deleted", deleted, "failed", len(errs))
	return errors.Join(errs...)
}
