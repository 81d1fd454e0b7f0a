// Package admincli is the interactive administration front end of the
// identity core: registration, activation, authentication checks and role
// assignment against the configured database.
package admincli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rbp/auth/internal/config"
	"github.com/rbp/auth/internal/gateway"
	"github.com/rbp/auth/internal/identity"
	"github.com/rbp/auth/internal/logging"
	"github.com/rbp/auth/internal/migrations"
)

var errUnknownCommand = errors.New("unknown command")

type App struct {
	config *config.Config
	log    logging.Logger
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(cfg *config.Config, log logging.Logger) *App {
	return &App{
		config: cfg,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// Run opens the database, brings the schema up to date and executes one
// command: register, activate, auth or setrole.
func (a *App) Run(ctx context.Context, command string) error {
	gw, err := gateway.Open(ctx, a.config.DatabaseDriver, a.config.DatabaseDSN,
		gateway.WithLogger(a.log))
	if err != nil {
		return err
	}
	defer gw.Close()

	if err := migrations.Run(ctx, gw.DB(), a.config.DatabaseDriver); err != nil {
		return err
	}

	svc, err := identity.NewService(gw, a.config, a.log)
	if err != nil {
		return err
	}

	switch command {
	case "register":
		return a.register(ctx, svc)
	case "activate":
		return a.activate(ctx, svc)
	case "auth":
		return a.authenticate(ctx, svc)
	case "setrole":
		return a.setRole(ctx, svc)
	default:
		return fmt.Errorf("%w: %q (want register, activate, auth or setrole)", errUnknownCommand, command)
	}
}

func (a *App) register(ctx context.Context, svc *identity.Service) error {
	email, err := GetSimpleText(a.reader, "Email address", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	key, err := svc.Register(ctx, email, string(password))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registration stored. Confirmation key: %s\n", key)
	return nil
}

func (a *App) activate(ctx context.Context, svc *identity.Service) error {
	key, err := GetSimpleText(a.reader, "Registration key", a.out)
	if err != nil {
		return err
	}
	if err := svc.Activate(ctx, key); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "User activated.")
	return nil
}

func (a *App) authenticate(ctx context.Context, svc *identity.Service) error {
	email, err := GetSimpleText(a.reader, "Email address", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	if err := svc.Authenticate(ctx, email, string(password)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Authentication succeeded.")
	return nil
}

func (a *App) setRole(ctx context.Context, svc *identity.Service) error {
	email, err := GetSimpleText(a.reader, "Email address", a.out)
	if err != nil {
		return err
	}
	role, err := GetSimpleText(a.reader, "Role", a.out)
	if err != nil {
		return err
	}
	if err := svc.SetRole(ctx, email, role); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Role %q assigned to %s.\n", role, email)
	return nil
}
