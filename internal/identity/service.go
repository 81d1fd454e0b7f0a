// Package identity implements registration, activation, authentication with
// brute-force lockout, and role-based access control. All persistence goes
// through the Gateway contract; the package itself holds no state beyond
// configuration.
package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rbp/auth/internal/common"
	"github.com/rbp/auth/internal/config"
	"github.com/rbp/auth/internal/hashx"
	"github.com/rbp/auth/internal/logging"
)

// Coarse shape check only: exactly one '@' with non-empty sides. Anything
// stricter belongs to the mail delivery path.
var emailRe = regexp.MustCompile(`^[^@]+@[^@]+$`)

type Service struct {
	gw     Gateway
	hasher *hashx.Hasher
	log    logging.Logger

	registrationExpiration time.Duration
	failedAuthLimit        int
	loginSuspendedPeriod   time.Duration

	now func() time.Time
}

// NewService wires the identity core. A nil gateway or config is a caller
// bug, not a runtime condition.
func NewService(gw Gateway, cfg *config.Config, log logging.Logger) (*Service, error) {
	if gw == nil {
		return nil, fmt.Errorf("%w: nil gateway", common.ErrProgramming)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", common.ErrProgramming)
	}
	return &Service{
		gw:                     gw,
		hasher:                 hashx.New(cfg.SaltLength),
		log:                    log,
		registrationExpiration: cfg.RegistrationExpiration,
		failedAuthLimit:        cfg.FailedAuthLimit,
		loginSuspendedPeriod:   cfg.LoginSuspendedPeriod,
		now:                    time.Now,
	}, nil
}

func validateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return common.ErrInvalidEmail
	}
	return nil
}

// Register stores a pending registration for email and returns the
// registration key to hand to the confirmation mailer. An expired pending
// registration for the same email is silently replaced; an unexpired one is
// left alone, so the insert surfaces the uniqueness violation from the
// persistence layer. An already active account fails with
// ErrUserAlreadyActive.
func (s *Service) Register(ctx context.Context, email, password string) (string, error) {
	if email == "" {
		return "", common.ErrInvalidEmail
	}
	if err := validateEmail(email); err != nil {
		return "", err
	}
	if password == "" {
		return "", common.ErrInvalidPassword
	}

	passwordHash, err := s.hasher.Make(password, "")
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	key := hashx.RegistrationKey(email)
	now := s.now().Unix()

	err = s.gw.WithTx(ctx, func(gw Gateway) error {
		old, err := gw.GetPendingUser(ctx, email)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if old != nil && now-old.RegistrationDate >= int64(s.registrationExpiration.Seconds()) {
			if err := gw.DeletePendingUser(ctx, email); err != nil {
				return err
			}
		}

		if _, err := gw.GetUser(ctx, email); err == nil {
			return fmt.Errorf("%w: %s", common.ErrUserAlreadyActive, email)
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		return gw.SavePendingUser(ctx, email, passwordHash, key, now)
	})
	if err != nil {
		return "", err
	}

	s.log.Info(ctx, "pending registration stored", "email", email)
	return key, nil
}

// Activate turns the pending registration identified by key into an active
// user. The copy into the user table and the deletion of the pending row
// happen in one transaction.
func (s *Service) Activate(ctx context.Context, key string) error {
	err := s.gw.WithTx(ctx, func(gw Gateway) error {
		pending, err := gw.GetPendingUserByKey(ctx, key)
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidRegistrationKey
		}
		if err != nil {
			return err
		}
		if err := gw.SaveUser(ctx, pending.Email, pending.PasswordHash); err != nil {
			return err
		}
		return gw.DeletePendingUser(ctx, pending.Email)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "user activated")
	return nil
}

// Authenticate checks email/password and drives the lockout state machine.
// It returns nil on success and ErrAuthenticationFailed on any credential
// failure; whether the email is registered at all is deliberately not
// distinguishable from a wrong password.
func (s *Service) Authenticate(ctx context.Context, email, password string) error {
	user, err := s.gw.GetUser(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrAuthenticationFailed
	}
	if err != nil {
		return err
	}

	now := s.now().Unix()
	attempts := user.FailedLoginAttempts
	suspendedUntil := user.SuspendedUntil

	// A lapsed suspension is lifted before the current attempt is judged,
	// so waiting out the lockout and supplying the right password succeeds
	// in one call.
	if suspendedUntil != nil && now >= *suspendedUntil {
		if err := s.gw.LiftUserSuspension(ctx, email); err != nil {
			return err
		}
		suspendedUntil = nil
		attempts = 0
	}

	if s.hasher.Verify(password, user.PasswordHash) && suspendedUntil == nil {
		if attempts > 0 {
			if err := s.gw.LiftUserSuspension(ctx, email); err != nil {
				return err
			}
		}
		return nil
	}

	attempts++
	if attempts == s.failedAuthLimit {
		until := now + int64(s.loginSuspendedPeriod.Seconds())
		if err := s.gw.SuspendUser(ctx, email, attempts, until); err != nil {
			return err
		}
		s.log.Warn(ctx, "account suspended after repeated failures", "email", email)
	} else {
		// Also the path for attempts made while already suspended: they
		// keep being counted past the limit, which never re-triggers the
		// equality check above, so the suspension deadline is not extended.
		if err := s.gw.SetFailedLoginAttempts(ctx, email, attempts); err != nil {
			return err
		}
	}

	return common.ErrAuthenticationFailed
}

// SetRole assigns role to an existing user.
func (s *Service) SetRole(ctx context.Context, email, role string) error {
	return s.gw.SetUserRole(ctx, email, role)
}
