package identity

import "github.com/rbp/auth/internal/hashx"

// PendingUser is a registered-but-unconfirmed account awaiting activation
// through its registration key.
type PendingUser struct {
	Email            string
	PasswordHash     hashx.Hash
	RegistrationKey  string
	RegistrationDate int64 // epoch seconds
}

// PendingCredentials is the slice of a pending registration needed to
// activate it.
type PendingCredentials struct {
	Email        string
	PasswordHash hashx.Hash
}

// PendingConfirmation identifies a registration whose confirmation mail has
// not been sent yet.
type PendingConfirmation struct {
	Email           string
	RegistrationKey string
}

// User is an activated account. FailedLoginAttempts and SuspendedUntil
// drive the brute-force lockout.
type User struct {
	Email               string
	PasswordHash        hashx.Hash
	FailedLoginAttempts int
	SuspendedUntil      *int64 // epoch seconds, nil when not suspended
}
