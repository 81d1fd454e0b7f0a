package main

import (
	"context"
	"log"

	"github.com/rbp/auth/internal/config"
	"github.com/rbp/auth/internal/gateway"
	"github.com/rbp/auth/internal/logging"
	"github.com/rbp/auth/internal/mailer"
	"github.com/rbp/auth/internal/migrations"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewDefault()

	gw, err := gateway.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN,
		gateway.WithLogger(logger))
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer gw.Close()

	if err := migrations.Run(ctx, gw.DB(), cfg.DatabaseDriver); err != nil {
		log.Fatalf("%v", err)
	}

	tmpl, err := mailer.LoadTemplate(cfg.ConfirmationTemplate)
	if err != nil {
		log.Fatalf("%v", err)
	}

	sender := mailer.NewSMTPSender(cfg.SMTPAddr, cfg.ConfirmationFromAddr)
	m, err := mailer.New(gw, sender, tmpl, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := m.SendPendingConfirmations(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
