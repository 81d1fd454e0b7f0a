package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/rbp/auth/internal/admincli"
	"github.com/rbp/auth/internal/config"
	"github.com/rbp/auth/internal/logging"
)

func main() {

	command := ""
	if len(os.Args) > 1 && !strings.HasPrefix(os.Args[1], "-") {
		command = os.Args[1]
	}

	ctx := context.Background()
	cfg := config.LoadConfig()
	app := admincli.NewApp(cfg, logging.NewDefault())

	if err := app.Run(ctx, command); err != nil {
		log.Fatalf("%v", err)
	}

}
