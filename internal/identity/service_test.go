package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rbp/auth/internal/common"
	"github.com/rbp/auth/internal/config"
	"github.com/rbp/auth/internal/hashx"
	"github.com/rbp/auth/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fake gateway ---

var errDuplicateEmail = errors.New("unique constraint violated: pending_users.email")

// fakeGateway is an in-memory stand-in for the persistence gateway. Its
// WithTx is not atomic; the service tests only exercise logic, not
// transactional behavior.
type fakeGateway struct {
	pending map[string]*PendingUser
	users   map[string]*User
	roles   map[string]string

	failGetUser error // forced infrastructure error, when set
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		pending: map[string]*PendingUser{},
		users:   map[string]*User{},
		roles:   map[string]string{},
	}
}

func (f *fakeGateway) SavePendingUser(_ context.Context, email string, passwordHash hashx.Hash, key string, date int64) error {
	if _, ok := f.pending[email]; ok {
		return errDuplicateEmail
	}
	f.pending[email] = &PendingUser{
		Email:            email,
		PasswordHash:     passwordHash,
		RegistrationKey:  key,
		RegistrationDate: date,
	}
	return nil
}

func (f *fakeGateway) GetPendingUser(_ context.Context, email string) (*PendingUser, error) {
	p, ok := f.pending[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	return p, nil
}

func (f *fakeGateway) DeletePendingUser(_ context.Context, email string) error {
	delete(f.pending, email)
	return nil
}

func (f *fakeGateway) GetPendingUserByKey(_ context.Context, key string) (*PendingCredentials, error) {
	for _, p := range f.pending {
		if p.RegistrationKey == key {
			return &PendingCredentials{Email: p.Email, PasswordHash: p.PasswordHash}, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeGateway) SaveUser(_ context.Context, email string, passwordHash hashx.Hash) error {
	f.users[email] = &User{Email: email, PasswordHash: passwordHash}
	return nil
}

func (f *fakeGateway) GetUser(_ context.Context, email string) (*User, error) {
	if f.failGetUser != nil {
		return nil, f.failGetUser
	}
	u, ok := f.users[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeGateway) SuspendUser(_ context.Context, email string, attempts int, suspendedUntil int64) error {
	u := f.users[email]
	u.FailedLoginAttempts = attempts
	u.SuspendedUntil = &suspendedUntil
	return nil
}

func (f *fakeGateway) SetFailedLoginAttempts(_ context.Context, email string, attempts int) error {
	f.users[email].FailedLoginAttempts = attempts
	return nil
}

func (f *fakeGateway) LiftUserSuspension(_ context.Context, email string) error {
	u := f.users[email]
	u.FailedLoginAttempts = 0
	u.SuspendedUntil = nil
	return nil
}

func (f *fakeGateway) SetUserRole(_ context.Context, email, role string) error {
	f.roles[email] = role
	return nil
}

func (f *fakeGateway) GetUserRole(_ context.Context, email string) (string, error) {
	role, ok := f.roles[email]
	if !ok {
		return "", common.ErrNotFound
	}
	return role, nil
}

func (f *fakeGateway) WithTx(_ context.Context, fn func(Gateway) error) error {
	return fn(f)
}

// --- helpers ---

func quietLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.FailedAuthLimit = 3
	cfg.LoginSuspendedPeriod = 300 * time.Second
	return cfg
}

func newTestService(t *testing.T, gw Gateway) *Service {
	t.Helper()
	s, err := NewService(gw, testConfig(), quietLogger())
	require.NoError(t, err)
	return s
}

// fixClock pins the service clock to an adjustable instant.
func fixClock(s *Service, start time.Time) *time.Time {
	now := start
	s.now = func() time.Time { return now }
	return &now
}

// --- construction ---

func TestNewService_NilGateway(t *testing.T) {
	_, err := NewService(nil, testConfig(), quietLogger())
	assert.True(t, errors.Is(err, common.ErrProgramming))
}

func TestNewService_NilConfig(t *testing.T) {
	_, err := NewService(newFakeGateway(), nil, quietLogger())
	assert.True(t, errors.Is(err, common.ErrProgramming))
}

// --- registration ---

func TestRegister_Validation(t *testing.T) {
	s := newTestService(t, newFakeGateway())
	ctx := context.Background()

	_, err := s.Register(ctx, "", "pw")
	assert.True(t, errors.Is(err, common.ErrInvalidEmail))

	for _, email := range []string{"no-at-sign", "@example.com", "alice@", "a@b@c"} {
		_, err = s.Register(ctx, email, "pw")
		assert.True(t, errors.Is(err, common.ErrInvalidEmail), "email %q", email)
	}

	_, err = s.Register(ctx, "alice@example.com", "")
	assert.True(t, errors.Is(err, common.ErrInvalidPassword))
}

func TestRegisterThenActivate(t *testing.T) {
	gw := newFakeGateway()
	s := newTestService(t, gw)
	ctx := context.Background()

	key, err := s.Register(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)
	require.Len(t, key, 64)

	require.NoError(t, s.Activate(ctx, key))

	// no pending row remains and the stored hash verifies
	_, err = gw.GetPendingUser(ctx, "alice@example.com")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	user, err := gw.GetUser(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, hashx.New(2).Verify("correct horse", user.PasswordHash))

	require.NoError(t, s.Authenticate(ctx, "alice@example.com", "correct horse"))
}

func TestRegister_ActiveUserRejected(t *testing.T) {
	gw := newFakeGateway()
	s := newTestService(t, gw)
	ctx := context.Background()

	require.NoError(t, gw.SaveUser(ctx, "alice@example.com", "abXYZ"))

	_, err := s.Register(ctx, "alice@example.com", "pw")
	assert.True(t, errors.Is(err, common.ErrUserAlreadyActive))
	assert.Empty(t, gw.pending, "pending table must stay untouched")
}

func TestRegister_DuplicateUnexpiredSurfacesUniquenessError(t *testing.T) {
	gw := newFakeGateway()
	s := newTestService(t, gw)
	ctx := context.Background()

	_, err := s.Register(ctx, "alice@example.com", "pw1")
	require.NoError(t, err)

	_, err = s.Register(ctx, "alice@example.com", "pw2")
	assert.True(t, errors.Is(err, errDuplicateEmail),
		"the persistence uniqueness violation must not be masked, got %v", err)
}

func TestRegister_ExpiredPendingIsReplaced(t *testing.T) {
	gw := newFakeGateway()
	s := newTestService(t, gw)
	ctx := context.Background()

	start := time.Unix(1700000000, 0)
	now := fixClock(s, start)

	oldKey, err := s.Register(ctx, "alice@example.com", "pw1")
	require.NoError(t, err)

	// one second past the expiration window
	*now = start.Add(s.registrationExpiration + time.Second)

	newKey, err := s.Register(ctx, "alice@example.com", "pw2")
	require.NoError(t, err)
	assert.NotEqual(t, oldKey, newKey)

	// the old key no longer activates anything
	assert.True(t, errors.Is(s.Activate(ctx, oldKey), common.ErrInvalidRegistrationKey))
	assert.NoError(t, s.Activate(ctx, newKey))
}

// --- activation ---

func TestActivate_UnknownKey(t *testing.T) {
	s := newTestService(t, newFakeGateway())
	err := s.Activate(context.Background(), "not-a-key")
	assert.True(t, errors.Is(err, common.ErrInvalidRegistrationKey))
}

// --- authentication ---

func activatedUser(t *testing.T, s *Service, gw *fakeGateway, email, password string) {
	t.Helper()
	key, err := s.Register(context.Background(), email, password)
	require.NoError(t, err)
	require.NoError(t, s.Activate(context.Background(), key))
}

func TestAuthenticate_UnknownEmailIndistinguishable(t *testing.T) {
	gw := newFakeGateway()
	s := newTestService(t, gw)
	ctx := context.Background()

	activatedUser(t, s, gw, "alice@example.com", "right")

	unknown := s.Authenticate(ctx, "ghost@example.com", "whatever")
	wrong := s.Authenticate(ctx, "alice@example.com", "wrong")

	assert.True(t, errors.Is(unknown, common.ErrAuthenticationFailed))
	assert.True(t, errors.Is(wrong, common.ErrAuthenticationFailed))
	assert.Equal(t, unknown.Error(), wrong.Error(),
		"unknown email and wrong password must be indistinguishable")
}

func TestAuthenticate_InfrastructureErrorPropagates(t *testing.T) {
	gw := newFakeGateway()
	s := newTestService(t, gw)

	boom := errors.New("backend down")
	gw.failGetUser = boom

	err := s.Authenticate(context.Background(), "alice@example.com", "pw")
	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, common.ErrAuthenticationFailed))
}

func TestAuthenticate_SuccessResetsAttempts(t *testing.T) {
	gw := newFakeGateway()
	s := newTestService(t, gw)
	ctx := context.Background()

	activatedUser(t, s, gw, "alice@example.com", "right")

	require.Error(t, s.Authenticate(ctx, "alice@example.com", "wrong"))
	require.Error(t, s.Authenticate(ctx, "alice@example.com", "wrong"))
	assert.Equal(t, 2, gw.users["alice@example.com"].FailedLoginAttempts)

	require.NoError(t, s.Authenticate(ctx, "alice@example.com", "right"))
	assert.Equal(t, 0, gw.users["alice@example.com"].FailedLoginAttempts)
	assert.Nil(t, gw.users["alice@example.com"].SuspendedUntil)
}

func TestAuthenticate_LockoutScenario(t *testing.T) {
	// limit=3, suspension=300s: three wrong attempts suspend; the correct
	// password at t+150 still fails; the correct password at t+300
	// succeeds and resets the counter
	gw := newFakeGateway()
	s := newTestService(t, gw)
	ctx := context.Background()

	start := time.Unix(1700000000, 0)
	now := fixClock(s, start)

	activatedUser(t, s, gw, "alice@example.com", "right")

	for i := 0; i < 3; i++ {
		err := s.Authenticate(ctx, "alice@example.com", "wrong")
		assert.True(t, errors.Is(err, common.ErrAuthenticationFailed))
	}

	user := gw.users["alice@example.com"]
	require.NotNil(t, user.SuspendedUntil)
	assert.Equal(t, start.Unix()+300, *user.SuspendedUntil)
	assert.Equal(t, 3, user.FailedLoginAttempts)

	*now = start.Add(150 * time.Second)
	err := s.Authenticate(ctx, "alice@example.com", "right")
	assert.True(t, errors.Is(err, common.ErrAuthenticationFailed),
		"correct password before the deadline must still fail")

	*now = start.Add(300 * time.Second)
	require.NoError(t, s.Authenticate(ctx, "alice@example.com", "right"))
	assert.Equal(t, 0, user.FailedLoginAttempts)
	assert.Nil(t, user.SuspendedUntil)
}

func TestAuthenticate_AttemptsWhileSuspendedAreCountedWithoutExtendingDeadline(t *testing.T) {
	gw := newFakeGateway()
	s := newTestService(t, gw)
	ctx := context.Background()

	start := time.Unix(1700000000, 0)
	now := fixClock(s, start)

	activatedUser(t, s, gw, "alice@example.com", "right")

	for i := 0; i < 3; i++ {
		require.Error(t, s.Authenticate(ctx, "alice@example.com", "wrong"))
	}
	user := gw.users["alice@example.com"]
	deadline := *user.SuspendedUntil

	*now = start.Add(100 * time.Second)
	require.Error(t, s.Authenticate(ctx, "alice@example.com", "wrong"))

	assert.Equal(t, 4, user.FailedLoginAttempts, "attempts keep being recorded")
	assert.Equal(t, deadline, *user.SuspendedUntil, "the deadline must not move")
}

func TestAuthenticate_WaitingOutSuspensionWithWrongPasswordStartsOver(t *testing.T) {
	gw := newFakeGateway()
	s := newTestService(t, gw)
	ctx := context.Background()

	start := time.Unix(1700000000, 0)
	now := fixClock(s, start)

	activatedUser(t, s, gw, "alice@example.com", "right")

	for i := 0; i < 3; i++ {
		require.Error(t, s.Authenticate(ctx, "alice@example.com", "wrong"))
	}

	// past the deadline the suspension lifts first, then the wrong
	// password counts as the first failure of a fresh sequence
	*now = start.Add(301 * time.Second)
	require.Error(t, s.Authenticate(ctx, "alice@example.com", "wrong"))

	user := gw.users["alice@example.com"]
	assert.Equal(t, 1, user.FailedLoginAttempts)
	assert.Nil(t, user.SuspendedUntil)
}

// --- roles ---

func TestSetRole(t *testing.T) {
	gw := newFakeGateway()
	s := newTestService(t, gw)
	ctx := context.Background()

	activatedUser(t, s, gw, "alice@example.com", "pw")
	require.NoError(t, s.SetRole(ctx, "alice@example.com", "admin"))

	role, err := gw.GetUserRole(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin", role)
}
